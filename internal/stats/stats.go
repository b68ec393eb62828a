// Package stats computes point-in-time inventory statistics and the
// composite risk score across the full (all-sessions) share inventory.
package stats

import (
	"context"
	"fmt"
	"math"

	"github.com/sharewatch/sharewatch/internal/models"
)

// ShareRecord is the projection of a share row the aggregator needs.
type ShareRecord struct {
	Hostname    string `db:"hostname"`
	ShareName   string `db:"share_name"`
	HiddenFiles int    `db:"hidden_files"`
}

// FileRecord is a sensitive-file row carrying the natural key it inherits
// from its owning share.
type FileRecord struct {
	Hostname  string `db:"hostname"`
	ShareName string `db:"share_name"`
	FilePath  string `db:"file_path"`
	FileName  string `db:"file_name"`
}

// Summary is the computed inventory statistics. Unique counts deduplicate by
// natural key across sessions; total counts are raw row counts, so one
// physical file counts once per matched pattern and one physical share once
// per scan that saw it.
type Summary struct {
	UniqueShares         int     `json:"unique_shares"`
	TotalShares          int     `json:"total_shares"`
	UniqueSensitiveFiles int     `json:"unique_sensitive_files"`
	TotalSensitiveFiles  int     `json:"total_sensitive_files"`
	UniqueHiddenShares   int     `json:"unique_hidden_shares"`
	TotalHiddenFiles     int     `json:"total_hidden_files"`
	RiskScore            float64 `json:"risk_score"`
}

// Store is the read-only slice of the record store the aggregator consumes.
type Store interface {
	ListShareRecords(ctx context.Context) ([]ShareRecord, error)
	ListFileRecords(ctx context.Context) ([]FileRecord, error)
}

type Aggregator struct {
	store Store
}

func NewAggregator(store Store) *Aggregator {
	return &Aggregator{store: store}
}

func (a *Aggregator) Summary(ctx context.Context) (*Summary, error) {
	shares, err := a.store.ListShareRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading shares: %w", err)
	}
	files, err := a.store.ListFileRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading sensitive files: %w", err)
	}
	summary := Compute(shares, files)
	return &summary, nil
}

type fileKey struct {
	Hostname  string
	ShareName string
	FilePath  string
	FileName  string
}

// Compute derives the summary from in-memory record sets. Pure and
// deterministic: no clock, no randomness, no reliance on input order.
func Compute(shares []ShareRecord, files []FileRecord) Summary {
	s := Summary{
		TotalShares:         len(shares),
		TotalSensitiveFiles: len(files),
	}

	uniqueShares := make(map[models.ShareKey]struct{}, len(shares))
	hiddenShares := make(map[models.ShareKey]struct{})
	for _, sh := range shares {
		key := models.ShareKey{Hostname: sh.Hostname, ShareName: sh.ShareName}
		uniqueShares[key] = struct{}{}
		if sh.HiddenFiles > 0 {
			hiddenShares[key] = struct{}{}
		}
		s.TotalHiddenFiles += sh.HiddenFiles
	}
	s.UniqueShares = len(uniqueShares)
	s.UniqueHiddenShares = len(hiddenShares)

	uniqueFiles := make(map[fileKey]struct{}, len(files))
	for _, f := range files {
		uniqueFiles[fileKey{f.Hostname, f.ShareName, f.FilePath, f.FileName}] = struct{}{}
	}
	s.UniqueSensitiveFiles = len(uniqueFiles)

	s.RiskScore = riskScore(s.UniqueSensitiveFiles, s.UniqueHiddenShares, s.UniqueShares)
	return s
}

// riskScore blends sensitive-file density and hidden-file prevalence, up to
// 50 points each, rounded to one decimal. An empty inventory scores zero
// rather than dividing by zero. The sensitive component is deliberately not
// clamped: a share carrying many distinct sensitive files can push it past
// 50, which matches the historical scoring behavior operators rely on.
func riskScore(uniqueSensitiveFiles, uniqueHiddenShares, uniqueShares int) float64 {
	if uniqueShares == 0 {
		return 0
	}
	sensitive := float64(uniqueSensitiveFiles) / float64(uniqueShares) * 50
	hidden := float64(uniqueHiddenShares) / float64(uniqueShares) * 50
	return math.Round((sensitive+hidden)*10) / 10
}
