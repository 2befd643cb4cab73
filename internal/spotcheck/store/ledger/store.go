// Package ledger persists report headers and the append-only mismatch ledger.
// Rows are only ever inserted; the "current" state of a lineage is derived at
// read time by taking its most recent row.
package ledger

import (
	"context"
	"time"

	"spotcheck/internal/spotcheck/models"
)

// Store is the append-only ledger of reports and mismatch rows.
type Store interface {
	// InTx runs fn atomically. Every store call made through the callback's
	// context joins the same transaction; any error aborts all of it.
	InTx(ctx context.Context, fn func(ctx context.Context) error) error

	// InsertReport persists a report header and returns its ledger id. A
	// header with the same (reference type, report time) already present
	// yields a models.DuplicateReportError.
	InsertReport(ctx context.Context, report *models.Report) (int64, error)

	// InsertMismatches appends rows in one batch, all or nothing.
	InsertMismatches(ctx context.Context, rows []*models.Mismatch) error

	// GetMismatches returns, per lineage, only the most recent row by
	// reference-active time (ties broken by insertion order, later wins),
	// joined with the ignore overlay and issue tracker, filtered and
	// paginated. Total counts matching rows before pagination.
	GetMismatches(ctx context.Context, query models.MismatchQuery, limOff models.LimitOffset) (*models.PaginatedList[*models.Mismatch], error)

	// GetMismatch fetches one ledger row by id, with overlay and issues
	// joined. Missing rows yield sentinel.ErrNotFound.
	GetMismatch(ctx context.Context, id int64) (*models.Mismatch, error)

	// GetReport returns a report header with its rows, plus prior rows of the
	// same lineages for audit. Missing reports yield sentinel.ErrNotFound.
	GetReport(ctx context.Context, id models.ReportID) (*models.ReportHistory, error)

	// GetReportSummaries lists per-report mismatch counts for reports in the
	// window, most recent first. A nil refType includes all reference types.
	GetReportSummaries(ctx context.Context, refType *models.ReferenceType, start, end time.Time) ([]*models.ReportSummary, error)

	// DeleteReport removes a report header and cascades to all rows it
	// produced. Used for rollback only.
	DeleteReport(ctx context.Context, id models.ReportID) error
}

// IgnoreReader is the overlay lookup the memory ledger joins at read time.
type IgnoreReader interface {
	Get(ctx context.Context, lineage models.Lineage) (models.IgnoreLevel, error)
}

// IssueReader is the issue-link lookup the memory ledger joins at read time.
type IssueReader interface {
	List(ctx context.Context, mismatchID int64) ([]string, error)
}
