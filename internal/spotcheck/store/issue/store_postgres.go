package issue

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStore persists issue links in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Add(ctx context.Context, mismatchID int64, issueID string) error {
	const query = `
		INSERT INTO spotcheck_mismatch_issue_id (mismatch_id, issue_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`
	if _, err := s.db.ExecContext(ctx, query, mismatchID, issueID); err != nil {
		return fmt.Errorf("add issue id: %w", err)
	}
	return nil
}

func (s *PostgresStore) Remove(ctx context.Context, mismatchID int64, issueID string) error {
	const query = `
		DELETE FROM spotcheck_mismatch_issue_id
		WHERE mismatch_id = $1 AND issue_id = $2
	`
	if _, err := s.db.ExecContext(ctx, query, mismatchID, issueID); err != nil {
		return fmt.Errorf("remove issue id: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, mismatchID int64) ([]string, error) {
	const query = `
		SELECT issue_id FROM spotcheck_mismatch_issue_id
		WHERE mismatch_id = $1
		ORDER BY issue_id
	`
	rows, err := s.db.QueryContext(ctx, query, mismatchID)
	if err != nil {
		return nil, fmt.Errorf("list issue ids: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan issue id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
