// Package fakecloud provides in-memory stand-ins for the EC2 inventory,
// notification channel, ledger table and metrics sink.
package fakecloud

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/aws/smithy-go"

	"github.com/younsl/idlesweep/internal/cloud"
	"github.com/younsl/idlesweep/internal/models"
)

// Operation names accepted by EC2.FailOn
const (
	OpListVolumes          = "ListVolumes"
	OpDescribeVolumes      = "DescribeVolumes"
	OpListStoppedInstances = "ListStoppedInstances"
	OpListSnapshots        = "ListSnapshots"
	OpListAddresses        = "ListAddresses"
	OpCreateTags           = "CreateTags"
	OpCreateSnapshot       = "CreateSnapshot"
	OpDeleteVolume         = "DeleteVolume"
	OpDeleteSnapshot       = "DeleteSnapshot"
	OpReleaseAddress       = "ReleaseAddress"
)

// SnapshotRequest records a CreateSnapshot call
type SnapshotRequest struct {
	VolumeID    string
	Description string
	Tags        map[string]string
}

// EC2 is an in-memory account inventory
type EC2 struct {
	mu sync.Mutex

	Volumes   map[string]*models.Volume
	Snapshots map[string]*models.Snapshot
	Addresses map[string]*models.Address
	Instances map[string]*models.Instance

	// TagCalls records the IDs of every CreateTags call
	TagCalls [][]string
	// SnapshotRequests records every CreateSnapshot call
	SnapshotRequests []SnapshotRequest
	// Deleted records deleted volume and snapshot IDs and released allocation IDs
	Deleted []string

	failures map[string]error
	nextSnap int
}

// NewEC2 returns an empty inventory
func NewEC2() *EC2 {
	return &EC2{
		Volumes:   map[string]*models.Volume{},
		Snapshots: map[string]*models.Snapshot{},
		Addresses: map[string]*models.Address{},
		Instances: map[string]*models.Instance{},
		failures:  map[string]error{},
	}
}

// AddVolume stores a volume
func (f *EC2) AddVolume(v models.Volume) *EC2 {
	f.mu.Lock()
	defer f.mu.Unlock()
	v.Tags = copyTags(v.Tags)
	f.Volumes[v.VolumeID] = &v
	return f
}

// AddSnapshot stores a snapshot
func (f *EC2) AddSnapshot(s models.Snapshot) *EC2 {
	f.mu.Lock()
	defer f.mu.Unlock()
	s.Tags = copyTags(s.Tags)
	f.Snapshots[s.SnapshotID] = &s
	return f
}

// AddAddress stores an address lease
func (f *EC2) AddAddress(a models.Address) *EC2 {
	f.mu.Lock()
	defer f.mu.Unlock()
	a.Tags = copyTags(a.Tags)
	f.Addresses[a.AllocationID] = &a
	return f
}

// AddInstance stores a stopped instance
func (f *EC2) AddInstance(i models.Instance) *EC2 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Instances[i.InstanceID] = &i
	return f
}

// FailOn makes op fail with err. With an id the failure applies to that
// resource only.
func (f *EC2) FailOn(op, id string, err error) *EC2 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[failureKey(op, id)] = err
	return f
}

func failureKey(op, id string) string {
	if id == "" {
		return op
	}
	return op + ":" + id
}

func (f *EC2) failure(op, id string) error {
	if err, ok := f.failures[failureKey(op, id)]; ok {
		return cloud.Wrap(op, id, err)
	}
	if err, ok := f.failures[op]; ok {
		return cloud.Wrap(op, id, err)
	}
	return nil
}

func notFound(op, code, id string) error {
	return cloud.Wrap(op, id, &smithy.GenericAPIError{
		Code:    code,
		Message: fmt.Sprintf("The %s '%s' does not exist.", strings.ToLower(strings.TrimPrefix(code, "Invalid")), id),
	})
}

// ListVolumes returns every volume
func (f *EC2) ListVolumes(ctx context.Context) ([]models.Volume, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure(OpListVolumes, ""); err != nil {
		return nil, err
	}
	out := make([]models.Volume, 0, len(f.Volumes))
	for _, id := range sortedKeys(f.Volumes) {
		out = append(out, cloneVolume(*f.Volumes[id]))
	}
	return out, nil
}

// DescribeVolumes returns the volumes with the given IDs
func (f *EC2) DescribeVolumes(ctx context.Context, ids []string) ([]models.Volume, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Volume
	for _, id := range ids {
		if err := f.failure(OpDescribeVolumes, id); err != nil {
			return nil, err
		}
		v, ok := f.Volumes[id]
		if !ok {
			return nil, notFound(OpDescribeVolumes, "InvalidVolume.NotFound", id)
		}
		out = append(out, cloneVolume(*v))
	}
	return out, nil
}

// ListStoppedInstances returns every stored instance
func (f *EC2) ListStoppedInstances(ctx context.Context) ([]models.Instance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure(OpListStoppedInstances, ""); err != nil {
		return nil, err
	}
	out := make([]models.Instance, 0, len(f.Instances))
	for _, id := range sortedKeys(f.Instances) {
		out = append(out, *f.Instances[id])
	}
	return out, nil
}

// ListSnapshots returns every snapshot
func (f *EC2) ListSnapshots(ctx context.Context) ([]models.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure(OpListSnapshots, ""); err != nil {
		return nil, err
	}
	out := make([]models.Snapshot, 0, len(f.Snapshots))
	for _, id := range sortedKeys(f.Snapshots) {
		s := *f.Snapshots[id]
		s.Tags = copyTags(s.Tags)
		out = append(out, s)
	}
	return out, nil
}

// ListAddresses returns every address lease
func (f *EC2) ListAddresses(ctx context.Context) ([]models.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure(OpListAddresses, ""); err != nil {
		return nil, err
	}
	out := make([]models.Address, 0, len(f.Addresses))
	for _, id := range sortedKeys(f.Addresses) {
		a := *f.Addresses[id]
		a.Tags = copyTags(a.Tags)
		out = append(out, a)
	}
	return out, nil
}

// ListTaggedVolumes returns volumes whose tag key has a value matching pattern
func (f *EC2) ListTaggedVolumes(ctx context.Context, key, pattern string) ([]models.Volume, error) {
	all, err := f.ListVolumes(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.Volume
	for _, v := range all {
		if tagMatches(v.Tags, key, pattern) {
			out = append(out, v)
		}
	}
	return out, nil
}

// ListTaggedSnapshots returns snapshots whose tag key has a value matching pattern
func (f *EC2) ListTaggedSnapshots(ctx context.Context, key, pattern string) ([]models.Snapshot, error) {
	all, err := f.ListSnapshots(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.Snapshot
	for _, s := range all {
		if tagMatches(s.Tags, key, pattern) {
			out = append(out, s)
		}
	}
	return out, nil
}

// ListTaggedAddresses returns address leases whose tag key has a value matching pattern
func (f *EC2) ListTaggedAddresses(ctx context.Context, key, pattern string) ([]models.Address, error) {
	all, err := f.ListAddresses(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.Address
	for _, a := range all {
		if tagMatches(a.Tags, key, pattern) {
			out = append(out, a)
		}
	}
	return out, nil
}

// CreateTags merges tags into every resource in ids. A failing call tags nothing.
func (f *EC2) CreateTags(ctx context.Context, ids []string, tags map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.TagCalls = append(f.TagCalls, append([]string(nil), ids...))
	for _, id := range ids {
		if err := f.failure(OpCreateTags, id); err != nil {
			return err
		}
	}
	for _, id := range ids {
		switch {
		case f.Volumes[id] != nil:
			mergeTags(&f.Volumes[id].Tags, tags)
		case f.Snapshots[id] != nil:
			mergeTags(&f.Snapshots[id].Tags, tags)
		case f.Addresses[id] != nil:
			mergeTags(&f.Addresses[id].Tags, tags)
		}
	}
	return nil
}

// CreateSnapshot records a safety snapshot of a volume
func (f *EC2) CreateSnapshot(ctx context.Context, volumeID, description string, tags map[string]string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SnapshotRequests = append(f.SnapshotRequests, SnapshotRequest{
		VolumeID:    volumeID,
		Description: description,
		Tags:        copyTags(tags),
	})
	if err := f.failure(OpCreateSnapshot, volumeID); err != nil {
		return "", err
	}
	v, ok := f.Volumes[volumeID]
	if !ok {
		return "", notFound(OpCreateSnapshot, "InvalidVolume.NotFound", volumeID)
	}
	f.nextSnap++
	id := fmt.Sprintf("snap-safety%04d", f.nextSnap)
	f.Snapshots[id] = &models.Snapshot{
		SnapshotID:  id,
		VolumeID:    volumeID,
		SizeGB:      v.SizeGB,
		Description: description,
		Tags:        copyTags(tags),
	}
	return id, nil
}

// DeleteVolume removes a volume
func (f *EC2) DeleteVolume(ctx context.Context, volumeID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure(OpDeleteVolume, volumeID); err != nil {
		return err
	}
	if _, ok := f.Volumes[volumeID]; !ok {
		return notFound(OpDeleteVolume, "InvalidVolume.NotFound", volumeID)
	}
	delete(f.Volumes, volumeID)
	f.Deleted = append(f.Deleted, volumeID)
	return nil
}

// DeleteSnapshot removes a snapshot
func (f *EC2) DeleteSnapshot(ctx context.Context, snapshotID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure(OpDeleteSnapshot, snapshotID); err != nil {
		return err
	}
	if _, ok := f.Snapshots[snapshotID]; !ok {
		return notFound(OpDeleteSnapshot, "InvalidSnapshot.NotFound", snapshotID)
	}
	delete(f.Snapshots, snapshotID)
	f.Deleted = append(f.Deleted, snapshotID)
	return nil
}

// ReleaseAddress removes an address lease
func (f *EC2) ReleaseAddress(ctx context.Context, allocationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure(OpReleaseAddress, allocationID); err != nil {
		return err
	}
	if _, ok := f.Addresses[allocationID]; !ok {
		return notFound(OpReleaseAddress, "InvalidAllocationID.NotFound", allocationID)
	}
	delete(f.Addresses, allocationID)
	f.Deleted = append(f.Deleted, allocationID)
	return nil
}

func tagMatches(tags map[string]string, key, pattern string) bool {
	value, ok := tags[key]
	if !ok {
		return false
	}
	if prefix, wildcard := strings.CutSuffix(pattern, "*"); wildcard {
		return strings.HasPrefix(value, prefix)
	}
	return value == pattern
}

func mergeTags(dst *map[string]string, src map[string]string) {
	if *dst == nil {
		*dst = map[string]string{}
	}
	for k, v := range src {
		(*dst)[k] = v
	}
}

func copyTags(tags map[string]string) map[string]string {
	if tags == nil {
		return nil
	}
	out := make(map[string]string, len(tags))
	for k, v := range tags {
		out[k] = v
	}
	return out
}

func cloneVolume(v models.Volume) models.Volume {
	v.Tags = copyTags(v.Tags)
	v.AttachedTo = append([]string(nil), v.AttachedTo...)
	return v
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
