package diff

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/sharewatch/sharewatch/internal/models"
)

func mkSession(id int64) models.ScanSession {
	return models.ScanSession{
		ID:        id,
		Domain:    "corp.example.com",
		StartTime: time.Date(2026, 1, int(id), 2, 0, 0, 0, time.UTC),
		Status:    models.SessionStatusCompleted,
	}
}

func mkShare(hostname, shareName string, access models.AccessLevel, totalFiles, hiddenFiles int) models.Share {
	return models.Share{
		Hostname:    hostname,
		ShareName:   shareName,
		AccessLevel: access,
		TotalFiles:  totalFiles,
		HiddenFiles: hiddenFiles,
	}
}

func TestCompare_ClassifiesShares(t *testing.T) {
	a := Inventory{
		Session: mkSession(1),
		Shares: []models.Share{
			mkShare("host1", "finance", models.AccessRead, 100, 2),
			mkShare("host1", "legacy", models.AccessRead, 10, 0),
			mkShare("host2", "public", models.AccessList, 5, 0),
		},
	}
	b := Inventory{
		Session: mkSession(2),
		Shares: []models.Share{
			mkShare("host1", "finance", models.AccessWrite, 100, 2), // access changed
			mkShare("host2", "public", models.AccessList, 5, 0),     // unchanged
			mkShare("host3", "backup", models.AccessRead, 7, 1),     // new
		},
	}

	report := Compare(a, b)

	if got := len(report.Differences); got != 3 {
		t.Fatalf("expected 3 differences, got %d: %+v", got, report.Differences)
	}

	// Added and removed come first, sorted by natural key; modified follows.
	want := []struct {
		hostname  string
		shareName string
		change    ChangeType
	}{
		{"host1", "legacy", ChangeRemoved},
		{"host3", "backup", ChangeAdded},
		{"host1", "finance", ChangeModified},
	}
	for i, w := range want {
		d := report.Differences[i]
		if d.Hostname != w.hostname || d.ShareName != w.shareName || d.ChangeType != w.change {
			t.Errorf("difference %d: got %s/%s %s, want %s/%s %s",
				i, d.Hostname, d.ShareName, d.ChangeType, w.hostname, w.shareName, w.change)
		}
	}

	sum := report.Summary
	if sum.Added != 1 || sum.Removed != 1 || sum.Modified != 1 || sum.TotalDifferences != 3 {
		t.Errorf("unexpected summary: %+v", sum)
	}
}

func TestCompare_SelfIsEmpty(t *testing.T) {
	inv := Inventory{
		Session: mkSession(1),
		Shares: []models.Share{
			mkShare("host1", "finance", models.AccessRead, 100, 2),
			mkShare("host2", "public", models.AccessList, 5, 0),
		},
		Files: []FileRecord{
			{"host1", "finance", "/hr", "salaries.csv", "pii"},
		},
	}

	report := Compare(inv, inv)
	if len(report.Differences) != 0 {
		t.Errorf("self-comparison produced differences: %+v", report.Differences)
	}
	if report.Summary.TotalDifferences != 0 {
		t.Errorf("self-comparison summary: %+v", report.Summary)
	}
}

func TestCompare_AccessAndHiddenChange(t *testing.T) {
	a := Inventory{
		Session: mkSession(1),
		Shares:  []models.Share{mkShare("H1", "S1", models.AccessRead, 100, 0)},
	}
	b := Inventory{
		Session: mkSession(2),
		Shares: []models.Share{
			mkShare("H1", "S1", models.AccessWrite, 100, 2),
			mkShare("H2", "S2", models.AccessRead, 50, 0),
		},
	}

	report := Compare(a, b)

	sum := report.Summary
	if sum.TotalDifferences != 2 || sum.Added != 1 || sum.Removed != 0 || sum.Modified != 1 {
		t.Errorf("unexpected summary: %+v", sum)
	}

	for _, d := range report.Differences {
		if d.Hostname == "H1" && d.ChangeType != ChangeModified {
			t.Errorf("H1/S1 classified %s, want %s", d.ChangeType, ChangeModified)
		}
		if d.Hostname == "H2" && d.ChangeType != ChangeAdded {
			t.Errorf("H2/S2 classified %s, want %s", d.ChangeType, ChangeAdded)
		}
		// Shares that only appear on one side carry no file changes.
		if d.ChangeType != ChangeModified && d.FileChanges != nil {
			t.Errorf("%s share carries file changes: %+v", d.ChangeType, d)
		}
	}
}

func TestCompare_SnapshotSides(t *testing.T) {
	a := Inventory{
		Session: mkSession(1),
		Shares:  []models.Share{mkShare("host1", "old", models.AccessRead, 4, 1)},
	}
	b := Inventory{
		Session: mkSession(2),
		Shares:  []models.Share{mkShare("host1", "new", models.AccessFull, 9, 0)},
	}

	report := Compare(a, b)
	if len(report.Differences) != 2 {
		t.Fatalf("expected 2 differences, got %d", len(report.Differences))
	}

	for _, d := range report.Differences {
		switch d.ChangeType {
		case ChangeRemoved:
			if d.Session1 == nil || d.Session2 != nil {
				t.Errorf("removed share should carry only session1: %+v", d)
			}
			if d.Session1 != nil && d.Session1.AccessLevel != models.AccessRead {
				t.Errorf("removed snapshot access = %s, want %s", d.Session1.AccessLevel, models.AccessRead)
			}
		case ChangeAdded:
			if d.Session2 == nil || d.Session1 != nil {
				t.Errorf("added share should carry only session2: %+v", d)
			}
		default:
			t.Errorf("unexpected change type %s", d.ChangeType)
		}
	}
}

func TestCompare_Symmetry(t *testing.T) {
	a := Inventory{
		Session: mkSession(1),
		Shares: []models.Share{
			mkShare("host1", "alpha", models.AccessRead, 1, 0),
			mkShare("host1", "both", models.AccessRead, 1, 0),
		},
	}
	b := Inventory{
		Session: mkSession(2),
		Shares: []models.Share{
			mkShare("host1", "both", models.AccessRead, 1, 0),
			mkShare("host2", "beta", models.AccessRead, 1, 0),
		},
	}

	ab := Compare(a, b)
	ba := Compare(b, a)

	if ab.Summary.Added != ba.Summary.Removed || ab.Summary.Removed != ba.Summary.Added {
		t.Errorf("added/removed not symmetric: a->b %+v, b->a %+v", ab.Summary, ba.Summary)
	}
	if ab.Summary.Modified != ba.Summary.Modified {
		t.Errorf("modified not symmetric: %d vs %d", ab.Summary.Modified, ba.Summary.Modified)
	}
}

func TestCompare_FileChanges(t *testing.T) {
	shareA := mkShare("host1", "finance", models.AccessRead, 100, 0)
	shareB := mkShare("host1", "finance", models.AccessRead, 101, 0)

	a := Inventory{
		Session: mkSession(1),
		Shares:  []models.Share{shareA},
		Files: []FileRecord{
			{"host1", "finance", "/reports", "q1.xlsx", "confidential"},
			{"host1", "finance", "/hr", "salaries.csv", "pii"},
			{"host1", "finance", "/it", "creds.txt", "password"},
		},
	}
	b := Inventory{
		Session: mkSession(2),
		Shares:  []models.Share{shareB},
		Files: []FileRecord{
			{"host1", "finance", "/reports", "q1.xlsx", "confidential"}, // unchanged
			{"host1", "finance", "/it", "creds.txt", "password"},
			{"host1", "finance", "/it", "creds.txt", "private_key"}, // type set grew
			{"host1", "finance", "/backups", "db.bak", "backup"},    // new file
		},
	}

	report := Compare(a, b)
	if len(report.Differences) != 1 {
		t.Fatalf("expected 1 difference, got %d", len(report.Differences))
	}

	d := report.Differences[0]
	if d.ChangeType != ChangeModified {
		t.Fatalf("change type = %s, want %s", d.ChangeType, ChangeModified)
	}

	// Sorted by (path, name): /backups/db.bak added, /hr/salaries.csv
	// removed, /it/creds.txt modified. /reports/q1.xlsx is unchanged and
	// must not appear.
	if len(d.FileChanges) != 3 {
		t.Fatalf("expected 3 file changes, got %d: %+v", len(d.FileChanges), d.FileChanges)
	}

	if fc := d.FileChanges[0]; fc.FilePath != "/backups" || fc.ChangeType != ChangeAdded {
		t.Errorf("file change 0: %+v", fc)
	}
	if fc := d.FileChanges[1]; fc.FilePath != "/hr" || fc.ChangeType != ChangeRemoved {
		t.Errorf("file change 1: %+v", fc)
	}
	fc := d.FileChanges[2]
	if fc.FilePath != "/it" || fc.ChangeType != ChangeModified {
		t.Fatalf("file change 2: %+v", fc)
	}
	if !reflect.DeepEqual(fc.OldDetectionTypes, []string{"password"}) {
		t.Errorf("old types = %v", fc.OldDetectionTypes)
	}
	if !reflect.DeepEqual(fc.NewDetectionTypes, []string{"password", "private_key"}) {
		t.Errorf("new types = %v", fc.NewDetectionTypes)
	}

	sum := report.Summary
	if sum.FilesAdded != 1 || sum.FilesRemoved != 1 || sum.FilesModified != 1 {
		t.Errorf("unexpected file summary: %+v", sum)
	}
}

func TestCompare_DuplicateDetectionRows(t *testing.T) {
	// The same physical file matched by the same pattern twice collapses
	// into one detection type; the duplicate must not register as a change.
	share := mkShare("host1", "finance", models.AccessRead, 10, 0)

	a := Inventory{
		Session: mkSession(1),
		Shares:  []models.Share{share},
		Files: []FileRecord{
			{"host1", "finance", "/x", "a.txt", "password"},
		},
	}
	b := Inventory{
		Session: mkSession(2),
		Shares:  []models.Share{share},
		Files: []FileRecord{
			{"host1", "finance", "/x", "a.txt", "password"},
			{"host1", "finance", "/x", "a.txt", "password"},
		},
	}

	report := Compare(a, b)
	if len(report.Differences) != 0 {
		t.Errorf("expected no differences, got %+v", report.Differences)
	}
}

func TestCompare_Deterministic(t *testing.T) {
	a := Inventory{Session: mkSession(1)}
	b := Inventory{Session: mkSession(2)}
	for _, host := range []string{"host3", "host1", "host2", "host5", "host4"} {
		a.Shares = append(a.Shares, mkShare(host, "data", models.AccessRead, 1, 0))
		b.Shares = append(b.Shares, mkShare(host, "data", models.AccessWrite, 1, 0))
		b.Shares = append(b.Shares, mkShare(host, "extra", models.AccessRead, 1, 0))
	}

	first := Compare(a, b)
	for i := 0; i < 10; i++ {
		if next := Compare(a, b); !reflect.DeepEqual(first, next) {
			t.Fatalf("run %d produced a different report", i)
		}
	}
}

func TestCompare_EmptyInventories(t *testing.T) {
	report := Compare(Inventory{Session: mkSession(1)}, Inventory{Session: mkSession(2)})
	if len(report.Differences) != 0 || report.Summary.TotalDifferences != 0 {
		t.Errorf("empty inventories should produce an empty report: %+v", report)
	}
}

type fakeStore struct {
	sessions map[int64]models.ScanSession
	shares   map[int64][]models.Share
	files    map[int64][]FileRecord
}

func (f *fakeStore) GetSession(ctx context.Context, id int64) (*models.ScanSession, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (f *fakeStore) ListSessionShares(ctx context.Context, sessionID int64) ([]models.Share, error) {
	return f.shares[sessionID], nil
}

func (f *fakeStore) ListSessionFileRecords(ctx context.Context, sessionID int64) ([]FileRecord, error) {
	return f.files[sessionID], nil
}

func TestEngine_SessionNotFound(t *testing.T) {
	store := &fakeStore{
		sessions: map[int64]models.ScanSession{1: mkSession(1)},
	}
	engine := NewEngine(store)

	if _, err := engine.Compare(context.Background(), 1, 99); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := engine.Compare(context.Background(), 99, 1); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestEngine_Compare(t *testing.T) {
	store := &fakeStore{
		sessions: map[int64]models.ScanSession{
			1: mkSession(1),
			2: mkSession(2),
		},
		shares: map[int64][]models.Share{
			1: {mkShare("host1", "finance", models.AccessRead, 10, 0)},
			2: {
				mkShare("host1", "finance", models.AccessRead, 10, 0),
				mkShare("host2", "fresh", models.AccessRead, 3, 0),
			},
		},
	}

	report, err := NewEngine(store).Compare(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if report.Sessions[0].ID != 1 || report.Sessions[1].ID != 2 {
		t.Errorf("sessions = %d, %d", report.Sessions[0].ID, report.Sessions[1].ID)
	}
	if report.Summary.Added != 1 || report.Summary.TotalDifferences != 1 {
		t.Errorf("unexpected summary: %+v", report.Summary)
	}
}

func BenchmarkCompare(b *testing.B) {
	a := Inventory{Session: mkSession(1)}
	inv := Inventory{Session: mkSession(2)}
	for i := 0; i < 500; i++ {
		host := "host" + string(rune('a'+i%26)) + string(rune('a'+(i/26)%26))
		a.Shares = append(a.Shares, mkShare(host, "data", models.AccessRead, i, i%3))
		inv.Shares = append(inv.Shares, mkShare(host, "data", models.AccessRead, i+1, i%3))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Compare(a, inv)
	}
}
