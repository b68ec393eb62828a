package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/sharewatch/sharewatch/internal/models"
)

type Store struct {
	db *sqlx.DB
}

type Config struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

func New(cfg Config) (*Store, error) {
	db, err := sqlx.Connect("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Hour)

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) DB() *sqlx.DB {
	return s.db
}

func (s *Store) CreateSession(ctx context.Context, session *models.ScanSession) error {
	query := `
		INSERT INTO scan_sessions (domain, start_time, status)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	if session.StartTime.IsZero() {
		session.StartTime = time.Now()
	}
	if session.Status == "" {
		session.Status = models.SessionStatusRunning
	}

	return s.db.GetContext(ctx, &session.ID, query,
		session.Domain, session.StartTime, session.Status,
	)
}

func (s *Store) GetSession(ctx context.Context, id int64) (*models.ScanSession, error) {
	var session models.ScanSession
	query := `SELECT * FROM scan_sessions WHERE id = $1`
	err := s.db.GetContext(ctx, &session, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &session, err
}

func (s *Store) ListSessions(ctx context.Context, limit, offset int) ([]models.ScanSession, int, error) {
	var total int
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM scan_sessions`); err != nil {
		return nil, 0, err
	}

	query := `SELECT * FROM scan_sessions ORDER BY start_time DESC, id DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	if offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", offset)
	}

	var sessions []models.ScanSession
	if err := s.db.SelectContext(ctx, &sessions, query); err != nil {
		return nil, 0, err
	}
	return sessions, total, nil
}

// UpdateSessionProgress bumps the running totals while a session is live.
// Completed sessions are frozen and never touched again.
func (s *Store) UpdateSessionProgress(ctx context.Context, id int64, hosts, shares, sensitiveFiles int) error {
	query := `
		UPDATE scan_sessions
		SET total_hosts = $1, total_shares = $2, total_sensitive_files = $3
		WHERE id = $4 AND status = $5
	`
	_, err := s.db.ExecContext(ctx, query, hosts, shares, sensitiveFiles, id, models.SessionStatusRunning)
	return err
}

func (s *Store) CompleteSession(ctx context.Context, id int64, status models.SessionStatus) error {
	query := `
		UPDATE scan_sessions SET status = $1, end_time = $2
		WHERE id = $3 AND status = $4
	`
	_, err := s.db.ExecContext(ctx, query, status, time.Now(), id, models.SessionStatusRunning)
	return err
}

// DeleteSession removes a session; shares and their files cascade.
func (s *Store) DeleteSession(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM scan_sessions WHERE id = $1`, id)
	return err
}

func (s *Store) InsertShare(ctx context.Context, share *models.Share) error {
	query := `
		INSERT INTO shares (
			session_id, hostname, share_name, access_level, error_message,
			total_files, total_dirs, hidden_files, scan_time
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	if share.ScanTime.IsZero() {
		share.ScanTime = time.Now()
	}
	if share.AccessLevel == "" {
		share.AccessLevel = models.AccessNone
	}

	return s.db.GetContext(ctx, &share.ID, query,
		share.SessionID, share.Hostname, share.ShareName, share.AccessLevel,
		share.ErrorMessage, share.TotalFiles, share.TotalDirs, share.HiddenFiles,
		share.ScanTime,
	)
}

func (s *Store) InsertSensitiveFiles(ctx context.Context, files []models.SensitiveFile) error {
	if len(files) == 0 {
		return nil
	}
	query := `
		INSERT INTO sensitive_files (share_id, file_path, file_name, detection_type, created_at)
		VALUES (:share_id, :file_path, :file_name, :detection_type, :created_at)
	`
	now := time.Now()
	for i := range files {
		if files[i].CreatedAt.IsZero() {
			files[i].CreatedAt = now
		}
	}
	_, err := s.db.NamedExecContext(ctx, query, files)
	return err
}

func (s *Store) InsertRootFiles(ctx context.Context, files []models.RootFile) error {
	if len(files) == 0 {
		return nil
	}
	query := `
		INSERT INTO root_files (share_id, file_name, file_type, file_size, attributes, created_time, modified_time)
		VALUES (:share_id, :file_name, :file_type, :file_size, :attributes, :created_time, :modified_time)
	`
	_, err := s.db.NamedExecContext(ctx, query, files)
	return err
}
