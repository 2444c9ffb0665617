package fakecloud

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/younsl/idlesweep/internal/models"
)

// Published is one message sent through Notifier
type Published struct {
	Subject string
	Body    string
}

// Notifier records published messages
type Notifier struct {
	mu       sync.Mutex
	Messages []Published
	Err      error
}

// Publish records the message or returns Err
func (n *Notifier) Publish(ctx context.Context, subject, body string) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Err != nil {
		return "", n.Err
	}
	n.Messages = append(n.Messages, Published{Subject: subject, Body: body})
	return fmt.Sprintf("msg-%d", len(n.Messages)), nil
}

// Last returns the most recent message
func (n *Notifier) Last() (Published, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.Messages) == 0 {
		return Published{}, false
	}
	return n.Messages[len(n.Messages)-1], true
}

// Ledger is an in-memory ledger table
type Ledger struct {
	mu      sync.Mutex
	Entries map[string]models.LedgerEntry
	Puts    int
	PutErr  error
	ScanErr error
}

// NewLedger returns an empty ledger
func NewLedger() *Ledger {
	return &Ledger{Entries: map[string]models.LedgerEntry{}}
}

// Put stores entry under key, overwriting any previous entry
func (l *Ledger) Put(ctx context.Context, key string, entry models.LedgerEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Puts++
	if l.PutErr != nil {
		return l.PutErr
	}
	l.Entries[key] = entry
	return nil
}

// Scan returns every entry ordered by key
func (l *Ledger) Scan(ctx context.Context) ([]models.LedgerEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ScanErr != nil {
		return nil, l.ScanErr
	}
	keys := make([]string, 0, len(l.Entries))
	for k := range l.Entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]models.LedgerEntry, 0, len(keys))
	for _, k := range keys {
		out = append(out, l.Entries[k])
	}
	return out, nil
}

// Metrics records published run metrics by process
type Metrics struct {
	mu     sync.Mutex
	Values map[string]map[string]float64
	Err    error
}

// PutRunMetrics records values or returns Err
func (m *Metrics) PutRunMetrics(ctx context.Context, process string, values map[string]float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if m.Values == nil {
		m.Values = map[string]map[string]float64{}
	}
	m.Values[process] = values
	return nil
}
