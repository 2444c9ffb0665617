// Package ledger records completed deletions and aggregates them into
// cumulative savings statistics.
package ledger

import (
	"context"
	"fmt"

	"github.com/younsl/idlesweep/internal/models"
)

// Store persists ledger entries
type Store interface {
	Put(ctx context.Context, key string, entry models.LedgerEntry) error
	Scan(ctx context.Context) ([]models.LedgerEntry, error)
}

// Key builds the ledger key of an entry, e.g. volume-vol-123-2025-01-01.
// Writing the same resource twice on the same day overwrites one record.
func Key(entry models.LedgerEntry) string {
	return fmt.Sprintf("%s-%s-%s", entry.Kind.KeyPrefix(), entry.ResourceID, entry.DeletedDate)
}
