package ignore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"spotcheck/internal/spotcheck/models"
)

// PostgresStore persists overlay entries in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Set(ctx context.Context, lineage models.Lineage, level models.IgnoreLevel) error {
	keyJSON, err := json.Marshal(models.KeyFieldMap(lineage.Key))
	if err != nil {
		return fmt.Errorf("marshal content key: %w", err)
	}

	if level == "" || level == models.NotIgnored {
		const del = `
			DELETE FROM spotcheck_mismatch_ignore
			WHERE key = $1 AND mismatch_type = $2 AND reference_type = $3
		`
		if _, err := s.db.ExecContext(ctx, del, keyJSON, string(lineage.MismatchType), string(lineage.ReferenceType)); err != nil {
			return fmt.Errorf("clear ignore: %w", err)
		}
		return nil
	}

	const upsert = `
		INSERT INTO spotcheck_mismatch_ignore (key, mismatch_type, reference_type, ignore_level)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key, mismatch_type, reference_type) DO UPDATE SET
			ignore_level = EXCLUDED.ignore_level
	`
	if _, err := s.db.ExecContext(ctx, upsert, keyJSON, string(lineage.MismatchType), string(lineage.ReferenceType), string(level)); err != nil {
		return fmt.Errorf("set ignore: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, lineage models.Lineage) (models.IgnoreLevel, error) {
	keyJSON, err := json.Marshal(models.KeyFieldMap(lineage.Key))
	if err != nil {
		return "", fmt.Errorf("marshal content key: %w", err)
	}

	const query = `
		SELECT ignore_level FROM spotcheck_mismatch_ignore
		WHERE key = $1 AND mismatch_type = $2 AND reference_type = $3
	`
	var raw string
	err = s.db.QueryRowContext(ctx, query, keyJSON, string(lineage.MismatchType), string(lineage.ReferenceType)).Scan(&raw)
	if err == sql.ErrNoRows {
		return models.NotIgnored, nil
	}
	if err != nil {
		return "", fmt.Errorf("get ignore: %w", err)
	}
	level, err := models.ParseIgnoreLevel(raw)
	if err != nil {
		return "", fmt.Errorf("corrupt ignore entry: %w", err)
	}
	return level, nil
}
