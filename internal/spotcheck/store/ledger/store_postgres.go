package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"spotcheck/internal/spotcheck/models"
	"spotcheck/pkg/platform/sentinel"
	txcontext "spotcheck/pkg/platform/tx"
)

// PostgresStore persists the ledger in PostgreSQL. Latest-state reads use a
// DISTINCT ON over the lineage columns so the full append-only history stays
// queryable while "current" views remain cheap.
type PostgresStore struct {
	pool *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed ledger store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{pool: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) db(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.pool
}

func (s *PostgresStore) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return txcontext.Run(ctx, s.pool, fn)
}

func (s *PostgresStore) InsertReport(ctx context.Context, report *models.Report) (int64, error) {
	const query = `
		INSERT INTO spotcheck_report (reference_type, report_date_time, reference_date_time, notes)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	var id int64
	err := s.db(ctx).QueryRowContext(ctx, query,
		string(report.ReferenceType), report.ReportDateTime, report.ReferenceDateTime, report.Notes,
	).Scan(&id)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return 0, &models.DuplicateReportError{ID: report.ID()}
		}
		return 0, fmt.Errorf("insert report: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) InsertMismatches(ctx context.Context, rows []*models.Mismatch) error {
	const query = `
		INSERT INTO spotcheck_mismatch
			(report_id, key, mismatch_type, reference_type, datasource, content_type,
			 mismatch_status, reference_data, observed_data, notes, ignore_level, issue_ids,
			 report_date_time, observed_date_time, reference_active_date_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	db := s.db(ctx)
	for _, row := range rows {
		keyJSON, err := json.Marshal(models.KeyFieldMap(row.Key))
		if err != nil {
			return fmt.Errorf("marshal content key: %w", err)
		}
		issueIDs := row.IssueIDs
		if issueIDs == nil {
			issueIDs = []string{}
		}
		_, err = db.ExecContext(ctx, query,
			row.ReportID, keyJSON, string(row.MismatchType), string(row.ReferenceType),
			string(row.DataSource), string(row.ContentType), string(row.Status),
			row.ReferenceData, row.ObservedData, row.Notes, string(row.IgnoreLevel),
			pq.Array(issueIDs), row.ReportDateTime, row.ObservedDateTime,
			row.ReferenceActiveDateTime,
		)
		if err != nil {
			return fmt.Errorf("insert mismatch for key %s: %w", models.KeyString(row.Key), err)
		}
	}
	return nil
}

// mismatchColumns is the joined row shape shared by every ledger read. The
// overlay join keeps suppression authoritative at read time; the stored
// ignore_level column is only a write-time snapshot.
const mismatchColumns = `
	m.id, m.report_id, m.key, m.mismatch_type, m.reference_type,
	m.datasource, m.content_type, m.mismatch_status,
	m.reference_data, m.observed_data, m.notes,
	m.report_date_time, m.observed_date_time, m.reference_active_date_time,
	COALESCE(i.ignore_level, 'NOT_IGNORED') AS ignore_level,
	COALESCE(iss.issue_ids, '{}'::text[]) AS issue_ids
`

const mismatchJoins = `
	LEFT JOIN spotcheck_mismatch_ignore i
		ON i.key = m.key AND i.mismatch_type = m.mismatch_type AND i.reference_type = m.reference_type
	LEFT JOIN LATERAL (
		SELECT array_agg(issue_id ORDER BY issue_id) AS issue_ids
		FROM spotcheck_mismatch_issue_id
		WHERE mismatch_id = m.id
	) iss ON TRUE
`

func (s *PostgresStore) GetMismatches(ctx context.Context, query models.MismatchQuery, limOff models.LimitOffset) (*models.PaginatedList[*models.Mismatch], error) {
	// Filters on the raw ledger (source, content, date window) apply before
	// the latest-per-lineage selection; status and ignore filters apply to
	// the derived current view. All predicates come from this fixed set and
	// are parameterized.
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	inner := "WHERE TRUE"
	if query.DataSource != "" {
		inner += " AND m.datasource = " + arg(string(query.DataSource))
	}
	if len(query.ContentTypes) > 0 {
		inner += " AND m.content_type = ANY(" + arg(pq.Array(contentTypeStrings(query.ContentTypes))) + ")"
	}
	if !query.FromDate.IsZero() {
		inner += " AND m.reference_active_date_time >= " + arg(query.FromDate)
	}
	if !query.ToDate.IsZero() {
		inner += " AND m.reference_active_date_time <= " + arg(query.ToDate)
	}

	outer := "WHERE TRUE"
	if len(query.Statuses) > 0 {
		outer += " AND q.mismatch_status = ANY(" + arg(pq.Array(statusStrings(query.Statuses))) + ")"
	}
	if len(query.IgnoreLevels) > 0 {
		outer += " AND q.ignore_level = ANY(" + arg(pq.Array(ignoreLevelStrings(query.IgnoreLevels))) + ")"
	}

	paging := ""
	if limOff.Limit > 0 {
		paging = " LIMIT " + arg(limOff.Limit) + " OFFSET " + arg(limOff.Offset)
	}

	sqlText := `
		SELECT q.*, count(*) OVER () AS total_rows
		FROM (
			SELECT DISTINCT ON (m.key, m.mismatch_type, m.reference_type) ` + mismatchColumns + `
			FROM spotcheck_mismatch m` + mismatchJoins + inner + `
			ORDER BY m.key, m.mismatch_type, m.reference_type,
				m.reference_active_date_time DESC, m.id DESC
		) q
		` + outer + `
		ORDER BY q.reference_active_date_time DESC, q.id DESC` + paging

	rows, err := s.db(ctx).QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("query mismatches: %w", err)
	}
	defer rows.Close()

	list := &models.PaginatedList[*models.Mismatch]{Limit: limOff.Limit, Offset: limOff.Offset}
	for rows.Next() {
		var total int
		m, err := scanMismatch(rows, &total)
		if err != nil {
			return nil, err
		}
		list.Total = total
		list.Results = append(list.Results, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mismatches: %w", err)
	}
	return list, nil
}

func (s *PostgresStore) GetMismatch(ctx context.Context, id int64) (*models.Mismatch, error) {
	sqlText := `
		SELECT ` + mismatchColumns + `, 1 AS total_rows
		FROM spotcheck_mismatch m` + mismatchJoins + `
		WHERE m.id = $1
	`
	rows, err := s.db(ctx).QueryContext(ctx, sqlText, id)
	if err != nil {
		return nil, fmt.Errorf("query mismatch %d: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("mismatch %d: %w", id, sentinel.ErrNotFound)
	}
	var total int
	return scanMismatch(rows, &total)
}

func (s *PostgresStore) GetReport(ctx context.Context, id models.ReportID) (*models.ReportHistory, error) {
	const headerQuery = `
		SELECT id, reference_date_time, notes
		FROM spotcheck_report
		WHERE reference_type = $1 AND report_date_time = $2
	`
	var (
		reportRowID int64
		refDateTime time.Time
		notes       string
	)
	err := s.db(ctx).QueryRowContext(ctx, headerQuery, string(id.ReferenceType), id.ReportDateTime).
		Scan(&reportRowID, &refDateTime, &notes)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("report %s: %w", id, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query report %s: %w", id, err)
	}

	history := &models.ReportHistory{Report: models.Report{
		ReferenceType:     id.ReferenceType,
		ReportDateTime:    id.ReportDateTime,
		ReferenceDateTime: refDateTime,
		Notes:             notes,
	}}

	currentSQL := `
		SELECT ` + mismatchColumns + `, 1 AS total_rows
		FROM spotcheck_mismatch m` + mismatchJoins + `
		WHERE m.report_id = $1
		ORDER BY m.id
	`
	current, err := s.queryHistoryRows(ctx, currentSQL, true, reportRowID)
	if err != nil {
		return nil, err
	}
	history.Rows = current

	// Prior rows of the same lineages, for audit.
	priorSQL := `
		SELECT ` + mismatchColumns + `, 1 AS total_rows
		FROM spotcheck_mismatch m` + mismatchJoins + `
		WHERE m.report_id != $1
			AND m.report_date_time < $2
			AND EXISTS (
				SELECT 1 FROM spotcheck_mismatch cur
				WHERE cur.report_id = $1
					AND cur.key = m.key
					AND cur.mismatch_type = m.mismatch_type
					AND cur.reference_type = m.reference_type
			)
		ORDER BY m.reference_active_date_time DESC, m.id DESC
	`
	prior, err := s.queryHistoryRows(ctx, priorSQL, false, reportRowID, id.ReportDateTime)
	if err != nil {
		return nil, err
	}
	history.Rows = append(history.Rows, prior...)
	return history, nil
}

func (s *PostgresStore) queryHistoryRows(ctx context.Context, sqlText string, current bool, args ...any) ([]models.HistoryRow, error) {
	rows, err := s.db(ctx).QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("query report rows: %w", err)
	}
	defer rows.Close()

	var out []models.HistoryRow
	for rows.Next() {
		var total int
		m, err := scanMismatch(rows, &total)
		if err != nil {
			return nil, err
		}
		out = append(out, models.HistoryRow{Mismatch: *m, Current: current})
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetReportSummaries(ctx context.Context, refType *models.ReferenceType, start, end time.Time) ([]*models.ReportSummary, error) {
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	sqlText := `
		SELECT r.reference_type, r.report_date_time, r.reference_date_time, r.notes,
			m.mismatch_status, count(m.id)
		FROM spotcheck_report r
		LEFT JOIN spotcheck_mismatch m ON m.report_id = r.id
		WHERE r.report_date_time BETWEEN ` + arg(start) + ` AND ` + arg(end)
	if refType != nil {
		sqlText += " AND r.reference_type = " + arg(string(*refType))
	}
	sqlText += `
		GROUP BY r.id, m.mismatch_status
		ORDER BY r.report_date_time DESC, r.id DESC
	`

	rows, err := s.db(ctx).QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("query report summaries: %w", err)
	}
	defer rows.Close()

	var (
		summaries []*models.ReportSummary
		byID      = make(map[models.ReportID]*models.ReportSummary)
	)
	for rows.Next() {
		var (
			refTypeStr  string
			reportTime  time.Time
			refDateTime time.Time
			notes       string
			status      sql.NullString
			count       int
		)
		if err := rows.Scan(&refTypeStr, &reportTime, &refDateTime, &notes, &status, &count); err != nil {
			return nil, fmt.Errorf("scan report summary: %w", err)
		}
		parsedRefType, err := models.ParseReferenceType(refTypeStr)
		if err != nil {
			return nil, fmt.Errorf("corrupt report row: %w", err)
		}
		id := models.ReportID{ReferenceType: parsedRefType, ReportDateTime: reportTime}
		summary, ok := byID[id]
		if !ok {
			summary = &models.ReportSummary{
				ID:                id,
				ReferenceDateTime: refDateTime,
				Notes:             notes,
				CountsByStatus:    make(map[models.MismatchStatus]int),
			}
			byID[id] = summary
			summaries = append(summaries, summary)
		}
		if status.Valid {
			parsedStatus, err := models.ParseMismatchStatus(status.String)
			if err != nil {
				return nil, fmt.Errorf("corrupt mismatch row: %w", err)
			}
			summary.CountsByStatus[parsedStatus] = count
		}
	}
	return summaries, rows.Err()
}

func (s *PostgresStore) DeleteReport(ctx context.Context, id models.ReportID) error {
	const query = `
		DELETE FROM spotcheck_report
		WHERE reference_type = $1 AND report_date_time = $2
	`
	res, err := s.db(ctx).ExecContext(ctx, query, string(id.ReferenceType), id.ReportDateTime)
	if err != nil {
		return fmt.Errorf("delete report %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("report %s: %w", id, sentinel.ErrNotFound)
	}
	return nil
}

// scanMismatch maps one joined row, rejecting corrupt enum values outright.
func scanMismatch(rows *sql.Rows, total *int) (*models.Mismatch, error) {
	var (
		m           models.Mismatch
		keyJSON     []byte
		mismatchTyp string
		refType     string
		dataSource  string
		contentType string
		status      string
		ignoreLevel string
		issueIDs    pq.StringArray
	)
	err := rows.Scan(
		&m.ID, &m.ReportID, &keyJSON, &mismatchTyp, &refType,
		&dataSource, &contentType, &status,
		&m.ReferenceData, &m.ObservedData, &m.Notes,
		&m.ReportDateTime, &m.ObservedDateTime, &m.ReferenceActiveDateTime,
		&ignoreLevel, &issueIDs, total,
	)
	if err != nil {
		return nil, fmt.Errorf("scan mismatch row: %w", err)
	}

	if m.MismatchType, err = models.ParseMismatchType(mismatchTyp); err != nil {
		return nil, fmt.Errorf("corrupt mismatch row %d: %w", m.ID, err)
	}
	if m.ReferenceType, err = models.ParseReferenceType(refType); err != nil {
		return nil, fmt.Errorf("corrupt mismatch row %d: %w", m.ID, err)
	}
	if m.DataSource, err = models.ParseDataSource(dataSource); err != nil {
		return nil, fmt.Errorf("corrupt mismatch row %d: %w", m.ID, err)
	}
	if m.ContentType, err = models.ParseContentType(contentType); err != nil {
		return nil, fmt.Errorf("corrupt mismatch row %d: %w", m.ID, err)
	}
	if m.Status, err = models.ParseMismatchStatus(status); err != nil {
		return nil, fmt.Errorf("corrupt mismatch row %d: %w", m.ID, err)
	}
	if m.IgnoreLevel, err = models.ParseIgnoreLevel(ignoreLevel); err != nil {
		return nil, fmt.Errorf("corrupt mismatch row %d: %w", m.ID, err)
	}

	var fields map[string]string
	if err := json.Unmarshal(keyJSON, &fields); err != nil {
		return nil, fmt.Errorf("corrupt key on mismatch row %d: %w", m.ID, err)
	}
	if m.Key, err = models.KeyFromFields(m.ContentType, fields); err != nil {
		return nil, fmt.Errorf("mismatch row %d: %w", m.ID, err)
	}
	m.IssueIDs = issueIDs
	return &m, nil
}

func contentTypeStrings(in []models.ContentType) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}

func statusStrings(in []models.MismatchStatus) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}

func ignoreLevelStrings(in []models.IgnoreLevel) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}
