// Package service orchestrates report ingestion and the query surface over
// the mismatch ledger. Handlers stay thin; all reconciliation rules live here
// or in the pure status deriver.
package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Notifier

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"spotcheck/internal/platform/metrics"
	platredis "spotcheck/internal/platform/redis"
	"spotcheck/internal/spotcheck/models"
	"spotcheck/internal/spotcheck/notify"
	"spotcheck/internal/spotcheck/store/ignore"
	"spotcheck/internal/spotcheck/store/issue"
	"spotcheck/internal/spotcheck/store/ledger"
)

// Notifier publishes ingestion outcomes. Implementations must tolerate being
// called outside the ingestion transaction; failures are logged, not fatal.
type Notifier interface {
	ReportIngested(ctx context.Context, event notify.ReportEvent) error
}

// Service is the mismatch reconciliation engine.
type Service struct {
	logger   *slog.Logger
	ledger   ledger.Store
	ignores  ignore.Store
	issues   issue.Store
	metrics  *metrics.Metrics
	cache    *platredis.Client
	notifier Notifier
	tracer   trace.Tracer
}

// Option configures optional collaborators.
type Option func(*Service)

// WithSummaryCache enables redis caching of dashboard summaries.
func WithSummaryCache(cache *platredis.Client) Option {
	return func(s *Service) { s.cache = cache }
}

// WithNotifier enables ingestion outcome events.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// New wires the engine. Cache and notifier are optional; everything else is
// required.
func New(logger *slog.Logger, ledgerStore ledger.Store, ignores ignore.Store, issues issue.Store, m *metrics.Metrics, opts ...Option) *Service {
	s := &Service{
		logger:  logger,
		ledger:  ledgerStore,
		ignores: ignores,
		issues:  issues,
		metrics: m,
		tracer:  otel.Tracer("spotcheck/service"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// SaveReport ingests one comparison run atomically: header insert, open-state
// read, status derivation, and batch row insert all share one transaction.
// A duplicate (reference type, report time) pair fails with
// models.DuplicateReportError and leaves the ledger untouched.
func (s *Service) SaveReport(ctx context.Context, report *models.Report) error {
	if report == nil {
		return fmt.Errorf("report is required")
	}
	if _, err := models.ParseReferenceType(string(report.ReferenceType)); err != nil {
		return err
	}
	if report.ReportDateTime.IsZero() || report.ReferenceDateTime.IsZero() {
		return fmt.Errorf("report %s: report and reference date times are required", report.ID())
	}

	ctx, span := s.tracer.Start(ctx, "SaveReport", trace.WithAttributes(
		attribute.String("reference_type", string(report.ReferenceType)),
	))
	defer span.End()

	started := time.Now()
	var counts statusCounts

	err := s.ledger.InTx(ctx, func(ctx context.Context) error {
		reportID, err := s.ledger.InsertReport(ctx, report)
		if err != nil {
			return err
		}

		// A report that found nothing to compare is a valid, header-only state.
		if len(report.Observations) == 0 {
			s.logger.WarnContext(ctx, "report has no observations, persisting header only",
				"report", report.ID().String())
			return nil
		}

		incoming := s.flatten(ctx, report, reportID)
		checkedKeys := observedKeys(report)
		checkedTypes := report.ReferenceType.CheckedMismatchTypes()

		// Open state for this source and content domain as of this report's
		// reference snapshot. All statuses and ignore levels are included:
		// suppression never hides rows from the reconciliation itself.
		current, err := s.ledger.GetMismatches(ctx, models.MismatchQuery{
			DataSource:   report.ReferenceType.DataSource(),
			ContentTypes: []models.ContentType{report.ReferenceType.ContentType()},
			ToDate:       report.ReferenceDateTime,
		}, models.All)
		if err != nil {
			return fmt.Errorf("read open state: %w", err)
		}

		rows := DeriveStatuses(incoming, current.Results)
		rows = append(rows, DeriveResolved(incoming, current.Results, checkedKeys, checkedTypes,
			reportID, report.ReportDateTime, report.ReferenceDateTime)...)
		counts = countStatuses(rows)

		if len(rows) == 0 {
			return nil
		}
		if err := s.ledger.InsertMismatches(ctx, rows); err != nil {
			return fmt.Errorf("insert mismatch rows: %w", err)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		if s.metrics != nil {
			s.metrics.IngestFailures.WithLabelValues(string(report.ReferenceType)).Inc()
		}
		return err
	}

	if s.metrics != nil {
		s.metrics.ObserveIngest(string(report.ReferenceType),
			counts.added, counts.existing, counts.resolved, time.Since(started))
	}
	s.invalidateSummary(ctx, report.ReferenceType.DataSource())
	s.publishIngested(ctx, report, counts)
	return nil
}

// flatten turns hierarchical observations into candidate ledger rows.
// Malformed observations are logged and skipped; they never abort the report.
func (s *Service) flatten(ctx context.Context, report *models.Report, reportID int64) []*models.Mismatch {
	refType := report.ReferenceType
	var rows []*models.Mismatch
	for _, obs := range report.Observations {
		if obs.Key == nil {
			s.logger.WarnContext(ctx, "observation without content key skipped",
				"report", report.ID().String())
			continue
		}
		if obs.Key.ContentType() != refType.ContentType() {
			s.logger.WarnContext(ctx, "observation key has wrong content domain, skipped",
				"report", report.ID().String(), "key", models.KeyString(obs.Key))
			continue
		}
		refActive := obs.ReferenceID.ActiveDateTime
		if refActive.IsZero() {
			refActive = report.ReferenceDateTime
		}
		for _, found := range obs.Mismatches {
			if _, err := models.ParseMismatchType(string(found.Type)); err != nil {
				s.logger.WarnContext(ctx, "mismatch with unknown type skipped",
					"report", report.ID().String(), "key", models.KeyString(obs.Key), "type", string(found.Type))
				continue
			}
			rows = append(rows, &models.Mismatch{
				ReportID:                reportID,
				Key:                     obs.Key,
				MismatchType:            found.Type,
				ReferenceType:           refType,
				DataSource:              refType.DataSource(),
				ContentType:             refType.ContentType(),
				ReferenceData:           found.ReferenceData,
				ObservedData:            found.ObservedData,
				Notes:                   found.Notes,
				IgnoreLevel:             models.NotIgnored,
				IssueIDs:                found.IssueIDs,
				ReportDateTime:          report.ReportDateTime,
				ObservedDateTime:        obs.ObservedDateTime,
				ReferenceActiveDateTime: refActive,
			})
		}
	}
	return rows
}

func observedKeys(report *models.Report) map[models.ContentKey]models.Observation {
	keys := make(map[models.ContentKey]models.Observation, len(report.Observations))
	for _, obs := range report.Observations {
		if obs.Key != nil {
			keys[obs.Key] = obs
		}
	}
	return keys
}

type statusCounts struct {
	added    int
	existing int
	resolved int
}

func countStatuses(rows []*models.Mismatch) statusCounts {
	var c statusCounts
	for _, row := range rows {
		switch row.Status {
		case models.StatusNew:
			c.added++
		case models.StatusExisting:
			c.existing++
		case models.StatusResolved:
			c.resolved++
		}
	}
	return c
}

func (s *Service) publishIngested(ctx context.Context, report *models.Report, counts statusCounts) {
	if s.notifier == nil {
		return
	}
	event := notify.ReportEvent{
		ReferenceType:  string(report.ReferenceType),
		ReportDateTime: report.ReportDateTime,
		New:            counts.added,
		Existing:       counts.existing,
		Resolved:       counts.resolved,
	}
	if err := s.notifier.ReportIngested(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish report event",
			"report", report.ID().String(), "error", err)
	}
}

// GetMismatches runs a latest-state query with pagination.
func (s *Service) GetMismatches(ctx context.Context, query models.MismatchQuery, limOff models.LimitOffset) (*models.PaginatedList[*models.Mismatch], error) {
	return s.ledger.GetMismatches(ctx, query, limOff)
}

// GetReport returns a report with its rows and prior lineage history.
func (s *Service) GetReport(ctx context.Context, id models.ReportID) (*models.ReportHistory, error) {
	return s.ledger.GetReport(ctx, id)
}

// GetReportSummaries lists per-report counts within a time window.
func (s *Service) GetReportSummaries(ctx context.Context, refType *models.ReferenceType, start, end time.Time) ([]*models.ReportSummary, error) {
	return s.ledger.GetReportSummaries(ctx, refType, start, end)
}

// DeleteReport removes a report and cascades to its ledger rows.
func (s *Service) DeleteReport(ctx context.Context, id models.ReportID) error {
	if err := s.ledger.DeleteReport(ctx, id); err != nil {
		return err
	}
	s.invalidateSummary(ctx, id.ReferenceType.DataSource())
	return nil
}

// SetIgnoreStatus applies a suppression level to the lineage of the given
// ledger row. Idempotent; NOT_IGNORED clears the overlay entry.
func (s *Service) SetIgnoreStatus(ctx context.Context, mismatchID int64, level models.IgnoreLevel) error {
	row, err := s.ledger.GetMismatch(ctx, mismatchID)
	if err != nil {
		return err
	}
	if err := s.ignores.Set(ctx, row.Lineage(), level); err != nil {
		return err
	}
	s.invalidateSummary(ctx, row.DataSource)
	return nil
}

// AddIssueID links an external issue to a ledger row; duplicate adds are
// no-ops.
func (s *Service) AddIssueID(ctx context.Context, mismatchID int64, issueID string) error {
	if issueID == "" {
		return fmt.Errorf("issue id is required")
	}
	if _, err := s.ledger.GetMismatch(ctx, mismatchID); err != nil {
		return err
	}
	return s.issues.Add(ctx, mismatchID, issueID)
}

// DeleteIssueID removes one issue link; removing a missing link is a no-op.
func (s *Service) DeleteIssueID(ctx context.Context, mismatchID int64, issueID string) error {
	return s.issues.Remove(ctx, mismatchID, issueID)
}
