// Package cloud defines the typed failure returned by every inventory,
// notification and ledger call so callers can decide how to react.
package cloud

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aws/smithy-go"
)

// FailureKind classifies a failed remote call
type FailureKind int

const (
	FailureOther FailureKind = iota
	FailureNotFound
	FailureInUse
	FailureThrottled
)

func (k FailureKind) String() string {
	switch k {
	case FailureNotFound:
		return "not_found"
	case FailureInUse:
		return "in_use"
	case FailureThrottled:
		return "throttled"
	default:
		return "other"
	}
}

// OpError wraps the error of a single remote operation
type OpError struct {
	Op         string
	ResourceID string
	Kind       FailureKind
	Err        error
}

func (e *OpError) Error() string {
	if e.ResourceID == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.ResourceID, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// Wrap builds an OpError, classifying err by its AWS error code.
// It returns nil when err is nil.
func Wrap(op, resourceID string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{
		Op:         op,
		ResourceID: resourceID,
		Kind:       Classify(err),
		Err:        err,
	}
}

// Classify maps an AWS API error code to a FailureKind
func Classify(err error) FailureKind {
	var opErr *OpError
	if errors.As(err, &opErr) {
		return opErr.Kind
	}

	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return FailureOther
	}

	code := apiErr.ErrorCode()
	switch {
	case strings.HasSuffix(code, ".NotFound"), code == "ResourceNotFoundException":
		return FailureNotFound
	case code == "VolumeInUse", strings.HasSuffix(code, ".InUse"), code == "InvalidIPAddress.InUse":
		return FailureInUse
	case code == "RequestLimitExceeded", code == "Throttling", code == "ThrottlingException",
		code == "ProvisionedThroughputExceededException":
		return FailureThrottled
	default:
		return FailureOther
	}
}

// Reason renders a failure as a short reason string, e.g. "deletion_failed: ..."
func Reason(prefix string, err error) string {
	var opErr *OpError
	if errors.As(err, &opErr) {
		return fmt.Sprintf("%s: %v", prefix, opErr.Err)
	}
	return fmt.Sprintf("%s: %v", prefix, err)
}
