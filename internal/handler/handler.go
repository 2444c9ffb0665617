// Package handler wraps a sweep run into the status-code response returned
// to the invocation trigger.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/inconshreveable/log15"
)

// Response is returned to the trigger
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// RunFunc performs one run and returns the value serialized as the body
type RunFunc func(ctx context.Context) (interface{}, error)

// Invoke runs fn and converts its result into a Response. An error or a
// panic becomes a 500 with {"error": message}.
func Invoke(ctx context.Context, log log15.Logger, fn RunFunc) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			log.Crit("Run panicked", "panic", r)
			resp = errorResponse(fmt.Sprintf("panic: %v", r))
		}
	}()

	body, err := fn(ctx)
	if err != nil {
		log.Error("Run failed", "error", err)
		return errorResponse(err.Error())
	}

	raw, err := json.Marshal(body)
	if err != nil {
		log.Error("Failed to encode response body", "error", err)
		return errorResponse(err.Error())
	}
	return Response{StatusCode: http.StatusOK, Body: string(raw)}
}

func errorResponse(msg string) Response {
	raw, _ := json.Marshal(map[string]string{"error": msg})
	return Response{StatusCode: http.StatusInternalServerError, Body: string(raw)}
}
