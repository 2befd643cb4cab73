// Package issue links ledger rows to external issue-tracker identifiers.
// Links are annotations: adding or removing one never changes the row.
package issue

import "context"

// Store is the many-to-one issue link table.
type Store interface {
	// Add links an issue id to a ledger row. Duplicate adds are no-ops.
	Add(ctx context.Context, mismatchID int64, issueID string) error

	// Remove deletes one exact link. Removing a missing link is a no-op.
	Remove(ctx context.Context, mismatchID int64, issueID string) error

	// List returns the issue ids linked to a row, sorted.
	List(ctx context.Context, mismatchID int64) ([]string, error)
}
