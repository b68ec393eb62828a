package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sharewatch/sharewatch/internal/models"
	"github.com/sharewatch/sharewatch/internal/query"
)

// ListShares applies the filter predicate and pagination plan to the share
// inventory. Rows carry the distinct sensitive-file count computed under the
// same detection-type condition as the filter. Ordering is (hostname,
// share_name, id) ascending so paging is stable.
func (s *Store) ListShares(ctx context.Context, filter query.ShareFilter, page query.Page) ([]models.ShareListing, int, error) {
	pred := filter.Build(1)

	baseQuery := fmt.Sprintf(`
		FROM shares s
		LEFT JOIN sensitive_files sf ON sf.share_id = s.id%s
		WHERE %s
		GROUP BY s.id
	`, pred.Join, pred.WhereClause())
	if pred.Having != "" {
		baseQuery += " HAVING " + pred.Having
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM (SELECT s.id " + baseQuery + ") grouped"
	if err := s.db.GetContext(ctx, &total, countQuery, pred.Args...); err != nil {
		return nil, 0, err
	}

	selectQuery := "SELECT s.*, " + query.SensitiveFileCount + " AS sensitive_file_count " +
		baseQuery + " ORDER BY s.hostname, s.share_name, s.id"
	selectQuery += fmt.Sprintf(" LIMIT %d OFFSET %d", page.Limit, page.Offset())

	var shares []models.ShareListing
	if err := s.db.SelectContext(ctx, &shares, selectQuery, pred.Args...); err != nil {
		return nil, 0, err
	}
	return shares, total, nil
}

func (s *Store) GetShare(ctx context.Context, id int64) (*models.ShareListing, error) {
	var share models.ShareListing
	queryStr := "SELECT s.*, " + query.SensitiveFileCount + ` AS sensitive_file_count
		FROM shares s
		LEFT JOIN sensitive_files sf ON sf.share_id = s.id
		WHERE s.id = $1
		GROUP BY s.id
	`
	err := s.db.GetContext(ctx, &share, queryStr, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &share, nil
}

func (s *Store) ListShareSensitiveFiles(ctx context.Context, shareID int64, page query.Page) ([]models.SensitiveFile, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM sensitive_files WHERE share_id = $1`
	if err := s.db.GetContext(ctx, &total, countQuery, shareID); err != nil {
		return nil, 0, err
	}

	selectQuery := fmt.Sprintf(`
		SELECT * FROM sensitive_files
		WHERE share_id = $1
		ORDER BY file_path, file_name, detection_type, id
		LIMIT %d OFFSET %d
	`, page.Limit, page.Offset())

	var files []models.SensitiveFile
	if err := s.db.SelectContext(ctx, &files, selectQuery, shareID); err != nil {
		return nil, 0, err
	}
	return files, total, nil
}

func (s *Store) ListShareRootFiles(ctx context.Context, shareID int64, page query.Page) ([]models.RootFile, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM root_files WHERE share_id = $1`
	if err := s.db.GetContext(ctx, &total, countQuery, shareID); err != nil {
		return nil, 0, err
	}

	selectQuery := fmt.Sprintf(`
		SELECT * FROM root_files
		WHERE share_id = $1
		ORDER BY file_name, id
		LIMIT %d OFFSET %d
	`, page.Limit, page.Offset())

	var files []models.RootFile
	if err := s.db.SelectContext(ctx, &files, selectQuery, shareID); err != nil {
		return nil, 0, err
	}
	return files, total, nil
}
