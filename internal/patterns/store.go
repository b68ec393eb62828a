package patterns

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sharewatch/sharewatch/internal/models"
)

type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetPattern(ctx context.Context, id uuid.UUID) (*models.SensitivePattern, error) {
	var pattern models.SensitivePattern
	err := s.db.GetContext(ctx, &pattern, `
		SELECT id, pattern, type, description, enabled, created_at, updated_at
		FROM sensitive_patterns WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pattern, nil
}

func (s *PostgresStore) ListPatterns(ctx context.Context, enabledOnly bool) ([]*models.SensitivePattern, error) {
	query := `
		SELECT id, pattern, type, description, enabled, created_at, updated_at
		FROM sensitive_patterns
	`
	if enabledOnly {
		query += " WHERE enabled = true"
	}
	query += " ORDER BY type, created_at DESC"

	var patterns []*models.SensitivePattern
	err := s.db.SelectContext(ctx, &patterns, query)
	return patterns, err
}

func (s *PostgresStore) CreatePattern(ctx context.Context, pattern *models.SensitivePattern) error {
	if pattern.ID == uuid.Nil {
		pattern.ID = uuid.New()
	}
	now := time.Now()
	pattern.CreatedAt = now
	pattern.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sensitive_patterns (id, pattern, type, description, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, pattern.ID, pattern.Pattern, pattern.Type, pattern.Description, pattern.Enabled,
		pattern.CreatedAt, pattern.UpdatedAt)
	return err
}

func (s *PostgresStore) UpdatePattern(ctx context.Context, pattern *models.SensitivePattern) error {
	pattern.UpdatedAt = time.Now()
	_, err := s.db.ExecContext(ctx, `
		UPDATE sensitive_patterns SET
			pattern = $2, type = $3, description = $4, enabled = $5, updated_at = $6
		WHERE id = $1
	`, pattern.ID, pattern.Pattern, pattern.Type, pattern.Description, pattern.Enabled,
		pattern.UpdatedAt)
	return err
}

func (s *PostgresStore) DeletePattern(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sensitive_patterns WHERE id = $1`, id)
	return err
}
