// Package ignore holds the suppression overlay. Suppression is keyed by
// lineage and lives outside the ledger: setting or clearing it never touches
// ledger rows, and ledger reads join it to decide what is currently hidden.
package ignore

import (
	"context"

	"spotcheck/internal/spotcheck/models"
)

// Store is the ignore overlay. At most one entry exists per lineage.
type Store interface {
	// Set applies a suppression level. NOT_IGNORED clears the entry; any
	// other level upserts it. Repeated identical calls are no-ops.
	Set(ctx context.Context, lineage models.Lineage, level models.IgnoreLevel) error

	// Get returns the lineage's level, NOT_IGNORED when absent.
	Get(ctx context.Context, lineage models.Lineage) (models.IgnoreLevel, error)
}
