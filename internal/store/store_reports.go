package store

import (
	"context"

	"github.com/sharewatch/sharewatch/internal/diff"
	"github.com/sharewatch/sharewatch/internal/models"
	"github.com/sharewatch/sharewatch/internal/stats"
)

// Read-only projections consumed by the diff engine and the risk aggregator.
// All ordering is explicit so the projections are reproducible run to run.

func (s *Store) ListSessionShares(ctx context.Context, sessionID int64) ([]models.Share, error) {
	var shares []models.Share
	query := `
		SELECT * FROM shares
		WHERE session_id = $1
		ORDER BY hostname, share_name, id
	`
	err := s.db.SelectContext(ctx, &shares, query, sessionID)
	return shares, err
}

func (s *Store) ListSessionFileRecords(ctx context.Context, sessionID int64) ([]diff.FileRecord, error) {
	var files []diff.FileRecord
	query := `
		SELECT sh.hostname, sh.share_name, sf.file_path, sf.file_name, sf.detection_type
		FROM sensitive_files sf
		JOIN shares sh ON sh.id = sf.share_id
		WHERE sh.session_id = $1
		ORDER BY sh.hostname, sh.share_name, sf.file_path, sf.file_name, sf.detection_type
	`
	err := s.db.SelectContext(ctx, &files, query, sessionID)
	return files, err
}

func (s *Store) ListShareRecords(ctx context.Context) ([]stats.ShareRecord, error) {
	var shares []stats.ShareRecord
	query := `SELECT hostname, share_name, hidden_files FROM shares ORDER BY hostname, share_name, id`
	err := s.db.SelectContext(ctx, &shares, query)
	return shares, err
}

func (s *Store) ListFileRecords(ctx context.Context) ([]stats.FileRecord, error) {
	var files []stats.FileRecord
	query := `
		SELECT sh.hostname, sh.share_name, sf.file_path, sf.file_name
		FROM sensitive_files sf
		JOIN shares sh ON sh.id = sf.share_id
		ORDER BY sh.hostname, sh.share_name, sf.file_path, sf.file_name, sf.id
	`
	err := s.db.SelectContext(ctx, &files, query)
	return files, err
}
