// Package diff classifies the structural differences between two historical
// scan sessions. Sessions are append-only, frozen row sets, so the comparison
// is a pure full outer join over natural keys: no row is ever mutated between
// the two snapshots, only present or absent.
package diff

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/sharewatch/sharewatch/internal/models"
)

var ErrSessionNotFound = errors.New("scan session not found")

type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeRemoved  ChangeType = "removed"
	ChangeModified ChangeType = "modified"
)

// FileRecord is a sensitive-file row joined with its owning share's natural
// key. Cross-session file identity is (hostname, share_name, file_path,
// file_name); the surrogate ids are not stable across sessions.
type FileRecord struct {
	Hostname      string `db:"hostname"`
	ShareName     string `db:"share_name"`
	FilePath      string `db:"file_path"`
	FileName      string `db:"file_name"`
	DetectionType string `db:"detection_type"`
}

// Inventory is everything recorded for one session.
type Inventory struct {
	Session models.ScanSession
	Shares  []models.Share
	Files   []FileRecord
}

// ShareSnapshot carries one session's values for the fields the comparison
// looks at.
type ShareSnapshot struct {
	AccessLevel    models.AccessLevel `json:"access_level"`
	TotalFiles     int                `json:"total_files"`
	HiddenFiles    int                `json:"hidden_files"`
	SensitiveFiles int                `json:"sensitive_files"`
}

type FileDiff struct {
	FileName          string     `json:"file_name"`
	FilePath          string     `json:"file_path"`
	ChangeType        ChangeType `json:"change_type"`
	OldDetectionTypes []string   `json:"old_detection_types"`
	NewDetectionTypes []string   `json:"new_detection_types"`
}

type ShareDiff struct {
	Hostname    string         `json:"hostname"`
	ShareName   string         `json:"share_name"`
	ChangeType  ChangeType     `json:"change_type"`
	Session1    *ShareSnapshot `json:"session1,omitempty"`
	Session2    *ShareSnapshot `json:"session2,omitempty"`
	FileChanges []FileDiff     `json:"file_changes,omitempty"`
}

type Summary struct {
	TotalDifferences int `json:"total_differences"`
	Added            int `json:"added"`
	Removed          int `json:"removed"`
	Modified         int `json:"modified"`
	FilesAdded       int `json:"files_added"`
	FilesRemoved     int `json:"files_removed"`
	FilesModified    int `json:"files_modified"`
}

type Report struct {
	Sessions    [2]models.ScanSession `json:"sessions"`
	Differences []ShareDiff           `json:"differences"`
	Summary     Summary               `json:"summary"`
}

// Store is the read-only slice of the record store the engine consumes.
type Store interface {
	GetSession(ctx context.Context, id int64) (*models.ScanSession, error)
	ListSessionShares(ctx context.Context, sessionID int64) ([]models.Share, error)
	ListSessionFileRecords(ctx context.Context, sessionID int64) ([]FileRecord, error)
}

type Engine struct {
	store Store
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// Compare resolves both sessions, fetches their inventories and returns the
// classified difference report. A session id that does not resolve fails with
// ErrSessionNotFound before any join work.
func (e *Engine) Compare(ctx context.Context, idA, idB int64) (*Report, error) {
	sessA, err := e.store.GetSession(ctx, idA)
	if err != nil {
		return nil, fmt.Errorf("loading session %d: %w", idA, err)
	}
	if sessA == nil {
		return nil, fmt.Errorf("session %d: %w", idA, ErrSessionNotFound)
	}
	sessB, err := e.store.GetSession(ctx, idB)
	if err != nil {
		return nil, fmt.Errorf("loading session %d: %w", idB, err)
	}
	if sessB == nil {
		return nil, fmt.Errorf("session %d: %w", idB, ErrSessionNotFound)
	}

	invA, err := e.loadInventory(ctx, *sessA)
	if err != nil {
		return nil, err
	}
	invB, err := e.loadInventory(ctx, *sessB)
	if err != nil {
		return nil, err
	}

	return Compare(invA, invB), nil
}

func (e *Engine) loadInventory(ctx context.Context, sess models.ScanSession) (Inventory, error) {
	shares, err := e.store.ListSessionShares(ctx, sess.ID)
	if err != nil {
		return Inventory{}, fmt.Errorf("loading shares for session %d: %w", sess.ID, err)
	}
	files, err := e.store.ListSessionFileRecords(ctx, sess.ID)
	if err != nil {
		return Inventory{}, fmt.Errorf("loading sensitive files for session %d: %w", sess.ID, err)
	}
	return Inventory{Session: sess, Shares: shares, Files: files}, nil
}

// fileKey identifies a file within one share across sessions.
type fileKey struct {
	FileName string
	FilePath string
}

// sessionView is one inventory regrouped by natural key.
type sessionView struct {
	shares map[models.ShareKey]models.Share
	// files maps share key -> file key -> deduplicated detection types.
	files map[models.ShareKey]map[fileKey]map[string]struct{}
}

func buildView(inv Inventory) sessionView {
	v := sessionView{
		shares: make(map[models.ShareKey]models.Share, len(inv.Shares)),
		files:  make(map[models.ShareKey]map[fileKey]map[string]struct{}),
	}
	for _, s := range inv.Shares {
		// Scans do not record duplicate shares within one session.
		v.shares[s.NaturalKey()] = s
	}
	for _, f := range inv.Files {
		sk := models.ShareKey{Hostname: f.Hostname, ShareName: f.ShareName}
		fk := fileKey{FileName: f.FileName, FilePath: f.FilePath}
		byFile := v.files[sk]
		if byFile == nil {
			byFile = make(map[fileKey]map[string]struct{})
			v.files[sk] = byFile
		}
		types := byFile[fk]
		if types == nil {
			types = make(map[string]struct{})
			byFile[fk] = types
		}
		types[f.DetectionType] = struct{}{}
	}
	return v
}

func (v sessionView) snapshot(key models.ShareKey) *ShareSnapshot {
	share, ok := v.shares[key]
	if !ok {
		return nil
	}
	return &ShareSnapshot{
		AccessLevel:    share.AccessLevel,
		TotalFiles:     share.TotalFiles,
		HiddenFiles:    share.HiddenFiles,
		SensitiveFiles: len(v.files[key]),
	}
}

// Compare computes the classified difference between two session
// inventories. Output is deterministic: identical inputs produce identical
// reports regardless of map iteration order.
func Compare(a, b Inventory) *Report {
	viewA := buildView(a)
	viewB := buildView(b)

	keys := make(map[models.ShareKey]struct{}, len(viewA.shares)+len(viewB.shares))
	for k := range viewA.shares {
		keys[k] = struct{}{}
	}
	for k := range viewB.shares {
		keys[k] = struct{}{}
	}

	sorted := make([]models.ShareKey, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Hostname != sorted[j].Hostname {
			return sorted[i].Hostname < sorted[j].Hostname
		}
		return sorted[i].ShareName < sorted[j].ShareName
	})

	report := &Report{Sessions: [2]models.ScanSession{a.Session, b.Session}}
	var modified []ShareDiff

	for _, key := range sorted {
		snapA := viewA.snapshot(key)
		snapB := viewB.snapshot(key)

		switch {
		case snapA == nil:
			report.Differences = append(report.Differences, ShareDiff{
				Hostname:   key.Hostname,
				ShareName:  key.ShareName,
				ChangeType: ChangeAdded,
				Session2:   snapB,
			})
			report.Summary.Added++
		case snapB == nil:
			report.Differences = append(report.Differences, ShareDiff{
				Hostname:   key.Hostname,
				ShareName:  key.ShareName,
				ChangeType: ChangeRemoved,
				Session1:   snapA,
			})
			report.Summary.Removed++
		case *snapA != *snapB:
			d := ShareDiff{
				Hostname:    key.Hostname,
				ShareName:   key.ShareName,
				ChangeType:  ChangeModified,
				Session1:    snapA,
				Session2:    snapB,
				FileChanges: compareFiles(viewA.files[key], viewB.files[key], &report.Summary),
			}
			modified = append(modified, d)
			report.Summary.Modified++
		}
		// Unchanged keys are dropped entirely.
	}

	// Added and removed sort before modified.
	report.Differences = append(report.Differences, modified...)
	report.Summary.TotalDifferences = report.Summary.Added + report.Summary.Removed + report.Summary.Modified

	return report
}

// compareFiles full-outer-joins one modified share's sensitive files by
// (file_name, file_path). Detection types are compared as sets; keys with
// identical sets are omitted.
func compareFiles(filesA, filesB map[fileKey]map[string]struct{}, summary *Summary) []FileDiff {
	keys := make(map[fileKey]struct{}, len(filesA)+len(filesB))
	for k := range filesA {
		keys[k] = struct{}{}
	}
	for k := range filesB {
		keys[k] = struct{}{}
	}

	sorted := make([]fileKey, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].FilePath != sorted[j].FilePath {
			return sorted[i].FilePath < sorted[j].FilePath
		}
		return sorted[i].FileName < sorted[j].FileName
	})

	var diffs []FileDiff
	for _, key := range sorted {
		typesA, inA := filesA[key]
		typesB, inB := filesB[key]

		switch {
		case !inA:
			diffs = append(diffs, FileDiff{
				FileName:          key.FileName,
				FilePath:          key.FilePath,
				ChangeType:        ChangeAdded,
				NewDetectionTypes: sortedTypes(typesB),
			})
			summary.FilesAdded++
		case !inB:
			diffs = append(diffs, FileDiff{
				FileName:          key.FileName,
				FilePath:          key.FilePath,
				ChangeType:        ChangeRemoved,
				OldDetectionTypes: sortedTypes(typesA),
			})
			summary.FilesRemoved++
		case !sameTypes(typesA, typesB):
			diffs = append(diffs, FileDiff{
				FileName:          key.FileName,
				FilePath:          key.FilePath,
				ChangeType:        ChangeModified,
				OldDetectionTypes: sortedTypes(typesA),
				NewDetectionTypes: sortedTypes(typesB),
			})
			summary.FilesModified++
		}
	}
	return diffs
}

func sameTypes(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for t := range a {
		if _, ok := b[t]; !ok {
			return false
		}
	}
	return true
}

func sortedTypes(set map[string]struct{}) []string {
	types := make([]string, 0, len(set))
	for t := range set {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
