package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"spotcheck/internal/spotcheck/models"
	"spotcheck/pkg/platform/sentinel"
)

// MemoryStore is the in-memory ledger used in unit tests and local runs. It
// mirrors the postgres store's semantics, including read-time joins against
// the overlay and issue tracker.
type MemoryStore struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	ignores IgnoreReader
	issues  IssueReader

	reports      map[models.ReportID]*reportHeader
	rows         []*models.Mismatch
	nextReportID int64
	nextRowID    int64
}

type reportHeader struct {
	id     int64
	report models.Report
}

// NewMemory builds a memory ledger joining reads against the given overlay and
// issue readers.
func NewMemory(ignores IgnoreReader, issues IssueReader) *MemoryStore {
	return &MemoryStore{
		ignores: ignores,
		issues:  issues,
		reports: make(map[models.ReportID]*reportHeader),
	}
}

// InTx serializes writers and restores the pre-transaction state when fn
// fails, matching the all-or-nothing postgres transaction.
func (s *MemoryStore) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	savedReports := make(map[models.ReportID]*reportHeader, len(s.reports))
	for id, h := range s.reports {
		savedReports[id] = h
	}
	savedRows := make([]*models.Mismatch, len(s.rows))
	copy(savedRows, s.rows)
	savedReportID, savedRowID := s.nextReportID, s.nextRowID
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.reports = savedReports
		s.rows = savedRows
		s.nextReportID, s.nextRowID = savedReportID, savedRowID
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *MemoryStore) InsertReport(ctx context.Context, report *models.Report) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := report.ID()
	if _, exists := s.reports[id]; exists {
		return 0, &models.DuplicateReportError{ID: id}
	}
	s.nextReportID++
	header := *report
	header.Observations = nil
	s.reports[id] = &reportHeader{id: s.nextReportID, report: header}
	return s.nextReportID, nil
}

func (s *MemoryStore) InsertMismatches(ctx context.Context, rows []*models.Mismatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range rows {
		s.nextRowID++
		stored := *row
		stored.ID = s.nextRowID
		s.rows = append(s.rows, &stored)
	}
	return nil
}

func (s *MemoryStore) GetMismatches(ctx context.Context, query models.MismatchQuery, limOff models.LimitOffset) (*models.PaginatedList[*models.Mismatch], error) {
	s.mu.RLock()
	latest := make(map[models.Lineage]*models.Mismatch)
	for _, row := range s.rows {
		if query.DataSource != "" && row.DataSource != query.DataSource {
			continue
		}
		if !query.MatchesContentTypes(row.ContentType) {
			continue
		}
		if !query.MatchesDates(row.ReferenceActiveDateTime) {
			continue
		}
		lineage := row.Lineage()
		cur, ok := latest[lineage]
		if !ok || newerRow(row, cur) {
			latest[lineage] = row
		}
	}
	s.mu.RUnlock()

	joined := make([]*models.Mismatch, 0, len(latest))
	for lineage, row := range latest {
		out := *row
		level, err := s.ignores.Get(ctx, lineage)
		if err != nil {
			return nil, fmt.Errorf("join ignore overlay: %w", err)
		}
		out.IgnoreLevel = level
		issueIDs, err := s.issues.List(ctx, row.ID)
		if err != nil {
			return nil, fmt.Errorf("join issue tracker: %w", err)
		}
		out.IssueIDs = issueIDs
		if query.MatchesStatuses(out.Status) && query.MatchesIgnoreLevels(out.IgnoreLevel) {
			joined = append(joined, &out)
		}
	}

	// Most recently changed first; row id breaks reference-active ties.
	sort.Slice(joined, func(i, j int) bool { return newerRow(joined[i], joined[j]) })

	total := len(joined)
	start, end := limOff.Page(total)
	return &models.PaginatedList[*models.Mismatch]{
		Total:   total,
		Limit:   limOff.Limit,
		Offset:  limOff.Offset,
		Results: joined[start:end],
	}, nil
}

func newerRow(a, b *models.Mismatch) bool {
	if !a.ReferenceActiveDateTime.Equal(b.ReferenceActiveDateTime) {
		return a.ReferenceActiveDateTime.After(b.ReferenceActiveDateTime)
	}
	return a.ID > b.ID
}

func (s *MemoryStore) GetMismatch(ctx context.Context, id int64) (*models.Mismatch, error) {
	s.mu.RLock()
	var found *models.Mismatch
	for _, row := range s.rows {
		if row.ID == id {
			found = row
			break
		}
	}
	s.mu.RUnlock()

	if found == nil {
		return nil, fmt.Errorf("mismatch %d: %w", id, sentinel.ErrNotFound)
	}
	out := *found
	level, err := s.ignores.Get(ctx, found.Lineage())
	if err != nil {
		return nil, err
	}
	out.IgnoreLevel = level
	issueIDs, err := s.issues.List(ctx, found.ID)
	if err != nil {
		return nil, err
	}
	out.IssueIDs = issueIDs
	return &out, nil
}

func (s *MemoryStore) GetReport(ctx context.Context, id models.ReportID) (*models.ReportHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	header, ok := s.reports[id]
	if !ok {
		return nil, fmt.Errorf("report %s: %w", id, sentinel.ErrNotFound)
	}

	history := &models.ReportHistory{Report: header.report}
	lineages := make(map[models.Lineage]struct{})
	for _, row := range s.rows {
		if row.ReportID == header.id {
			history.Rows = append(history.Rows, models.HistoryRow{Mismatch: *row, Current: true})
			lineages[row.Lineage()] = struct{}{}
		}
	}
	for _, row := range s.rows {
		if row.ReportID == header.id {
			continue
		}
		if _, ok := lineages[row.Lineage()]; ok && row.ReportDateTime.Before(header.report.ReportDateTime) {
			history.Rows = append(history.Rows, models.HistoryRow{Mismatch: *row, Current: false})
		}
	}
	sort.SliceStable(history.Rows, func(i, j int) bool {
		return history.Rows[i].Current && !history.Rows[j].Current
	})
	return history, nil
}

func (s *MemoryStore) GetReportSummaries(ctx context.Context, refType *models.ReferenceType, start, end time.Time) ([]*models.ReportSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	countsByReport := make(map[int64]map[models.MismatchStatus]int)
	for _, row := range s.rows {
		counts, ok := countsByReport[row.ReportID]
		if !ok {
			counts = make(map[models.MismatchStatus]int)
			countsByReport[row.ReportID] = counts
		}
		counts[row.Status]++
	}

	var summaries []*models.ReportSummary
	for id, header := range s.reports {
		if refType != nil && id.ReferenceType != *refType {
			continue
		}
		when := header.report.ReportDateTime
		if when.Before(start) || when.After(end) {
			continue
		}
		counts := countsByReport[header.id]
		if counts == nil {
			counts = make(map[models.MismatchStatus]int)
		}
		summaries = append(summaries, &models.ReportSummary{
			ID:                id,
			ReferenceDateTime: header.report.ReferenceDateTime,
			Notes:             header.report.Notes,
			CountsByStatus:    counts,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].ID.ReportDateTime.After(summaries[j].ID.ReportDateTime)
	})
	return summaries, nil
}

func (s *MemoryStore) DeleteReport(ctx context.Context, id models.ReportID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	header, ok := s.reports[id]
	if !ok {
		return fmt.Errorf("report %s: %w", id, sentinel.ErrNotFound)
	}
	delete(s.reports, id)

	kept := s.rows[:0]
	for _, row := range s.rows {
		if row.ReportID != header.id {
			kept = append(kept, row)
		}
	}
	s.rows = kept
	return nil
}
