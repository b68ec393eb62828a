package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/sharewatch/sharewatch/internal/models"
	"github.com/sharewatch/sharewatch/internal/query"
)

// getTestDSN returns the test database DSN from environment
func getTestDSN() string {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		dsn = "host=localhost port=5432 user=sharewatch password=sharewatch_password dbname=sharewatch_test sslmode=disable"
	}
	return dsn
}

// skipIfNoTestDB skips the test if no test database is available
func skipIfNoTestDB(t *testing.T) *Store {
	t.Helper()

	store, err := New(Config{
		DSN:          getTestDSN(),
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	})
	if err != nil {
		t.Skipf("Skipping test, database not available: %v", err)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := store.Ping(ctx); err != nil {
		t.Skipf("Skipping test, database not reachable: %v", err)
		return nil
	}

	return store
}

func createTestSession(t *testing.T, store *Store, ctx context.Context) *models.ScanSession {
	t.Helper()

	session := &models.ScanSession{
		Domain:    "test.example.com",
		StartTime: time.Now().UTC(),
		Status:    models.SessionStatusRunning,
	}
	if err := store.CreateSession(ctx, session); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	t.Cleanup(func() {
		_ = store.DeleteSession(context.Background(), session.ID)
	})
	return session
}

func TestStore_Sessions(t *testing.T) {
	store := skipIfNoTestDB(t)
	if store == nil {
		return
	}
	defer store.Close()

	ctx := context.Background()

	session := createTestSession(t, store, ctx)
	if session.ID == 0 {
		t.Error("Expected session ID to be set")
	}

	retrieved, err := store.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if retrieved == nil {
		t.Fatal("Expected session to be found")
	}
	if retrieved.Domain != "test.example.com" {
		t.Errorf("Domain = %q", retrieved.Domain)
	}
	if retrieved.Status != models.SessionStatusRunning {
		t.Errorf("Status = %q", retrieved.Status)
	}

	if err := store.UpdateSessionProgress(ctx, session.ID, 5, 12, 3); err != nil {
		t.Fatalf("UpdateSessionProgress failed: %v", err)
	}

	if err := store.CompleteSession(ctx, session.ID, models.SessionStatusCompleted); err != nil {
		t.Fatalf("CompleteSession failed: %v", err)
	}

	retrieved, err = store.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if retrieved.Status != models.SessionStatusCompleted {
		t.Errorf("Status after completion = %q", retrieved.Status)
	}
	if retrieved.EndTime == nil {
		t.Error("Expected end time to be set")
	}
	if retrieved.TotalShares != 12 {
		t.Errorf("TotalShares = %d, want 12", retrieved.TotalShares)
	}

	sessions, total, err := store.ListSessions(ctx, 10, 0)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if total < 1 || len(sessions) < 1 {
		t.Errorf("ListSessions returned %d of %d", len(sessions), total)
	}
}

func TestStore_GetSession_Missing(t *testing.T) {
	store := skipIfNoTestDB(t)
	if store == nil {
		return
	}
	defer store.Close()

	session, err := store.GetSession(context.Background(), -1)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if session != nil {
		t.Error("Expected nil for missing session")
	}
}

func TestStore_SharesAndFiles(t *testing.T) {
	store := skipIfNoTestDB(t)
	if store == nil {
		return
	}
	defer store.Close()

	ctx := context.Background()
	session := createTestSession(t, store, ctx)

	share := &models.Share{
		SessionID:   session.ID,
		Hostname:    "fileserver01",
		ShareName:   "finance",
		AccessLevel: models.AccessRead,
		TotalFiles:  42,
		HiddenFiles: 2,
		ScanTime:    time.Now().UTC(),
	}
	if err := store.InsertShare(ctx, share); err != nil {
		t.Fatalf("InsertShare failed: %v", err)
	}
	if share.ID == 0 {
		t.Error("Expected share ID to be set")
	}

	files := []models.SensitiveFile{
		{ShareID: share.ID, FilePath: "/hr", FileName: "salaries.csv", DetectionType: "pii"},
		{ShareID: share.ID, FilePath: "/it", FileName: "creds.txt", DetectionType: "password"},
		{ShareID: share.ID, FilePath: "/it", FileName: "creds.txt", DetectionType: "private_key"},
	}
	if err := store.InsertSensitiveFiles(ctx, files); err != nil {
		t.Fatalf("InsertSensitiveFiles failed: %v", err)
	}

	roots := []models.RootFile{
		{ShareID: share.ID, FileName: "readme.txt", FileType: "txt", FileSize: 120},
		{ShareID: share.ID, FileName: "setup.exe", FileType: "exe", FileSize: 4096, Attributes: models.StringArray{"hidden"}},
	}
	if err := store.InsertRootFiles(ctx, roots); err != nil {
		t.Fatalf("InsertRootFiles failed: %v", err)
	}

	page := query.NewPage(1, 10, query.DefaultSharePageSize)

	listings, total, err := store.ListShares(ctx, query.ShareFilter{SessionID: session.ID}, page)
	if err != nil {
		t.Fatalf("ListShares failed: %v", err)
	}
	if total != 1 || len(listings) != 1 {
		t.Fatalf("ListShares returned %d of %d", len(listings), total)
	}
	// creds.txt carries two detection types but is one file.
	if listings[0].SensitiveFileCount != 2 {
		t.Errorf("SensitiveFileCount = %d, want 2", listings[0].SensitiveFileCount)
	}

	sensitive, total, err := store.ListShareSensitiveFiles(ctx, share.ID, query.NewPage(1, 10, query.DefaultFilePageSize))
	if err != nil {
		t.Fatalf("ListShareSensitiveFiles failed: %v", err)
	}
	if total != 3 || len(sensitive) != 3 {
		t.Errorf("ListShareSensitiveFiles returned %d of %d", len(sensitive), total)
	}

	rootFiles, total, err := store.ListShareRootFiles(ctx, share.ID, query.NewPage(1, 10, query.DefaultFilePageSize))
	if err != nil {
		t.Fatalf("ListShareRootFiles failed: %v", err)
	}
	if total != 2 || len(rootFiles) != 2 {
		t.Errorf("ListShareRootFiles returned %d of %d", len(rootFiles), total)
	}
}

func TestStore_ListShares_DetectionTypeFilter(t *testing.T) {
	store := skipIfNoTestDB(t)
	if store == nil {
		return
	}
	defer store.Close()

	ctx := context.Background()
	session := createTestSession(t, store, ctx)

	clean := &models.Share{
		SessionID: session.ID, Hostname: "hostA", ShareName: "clean",
		AccessLevel: models.AccessRead, ScanTime: time.Now().UTC(),
	}
	dirty := &models.Share{
		SessionID: session.ID, Hostname: "hostB", ShareName: "dirty",
		AccessLevel: models.AccessRead, ScanTime: time.Now().UTC(),
	}
	for _, s := range []*models.Share{clean, dirty} {
		if err := store.InsertShare(ctx, s); err != nil {
			t.Fatalf("InsertShare failed: %v", err)
		}
	}
	err := store.InsertSensitiveFiles(ctx, []models.SensitiveFile{
		{ShareID: dirty.ID, FilePath: "/x", FileName: "vault.kdbx", DetectionType: "password"},
	})
	if err != nil {
		t.Fatalf("InsertSensitiveFiles failed: %v", err)
	}

	filter := query.ShareFilter{SessionID: session.ID, DetectionType: "password"}
	listings, total, err := store.ListShares(ctx, filter, query.NewPage(1, 10, query.DefaultSharePageSize))
	if err != nil {
		t.Fatalf("ListShares failed: %v", err)
	}
	if total != 1 || len(listings) != 1 {
		t.Fatalf("ListShares returned %d of %d, want the matching share only", len(listings), total)
	}
	if listings[0].ShareName != "dirty" {
		t.Errorf("ShareName = %q, want dirty", listings[0].ShareName)
	}
	if listings[0].SensitiveFileCount != 1 {
		t.Errorf("SensitiveFileCount = %d, want 1", listings[0].SensitiveFileCount)
	}

	// A share with no sensitive files counts zero, not one for the
	// unmatched join row.
	cleanListing, err := store.GetShare(ctx, clean.ID)
	if err != nil {
		t.Fatalf("GetShare failed: %v", err)
	}
	if cleanListing == nil {
		t.Fatal("Expected clean share to be found")
	}
	if cleanListing.SensitiveFileCount != 0 {
		t.Errorf("clean share SensitiveFileCount = %d, want 0", cleanListing.SensitiveFileCount)
	}
}

func TestStore_ListShares_PagingReproducesFullResult(t *testing.T) {
	store := skipIfNoTestDB(t)
	if store == nil {
		return
	}
	defer store.Close()

	ctx := context.Background()
	session := createTestSession(t, store, ctx)

	hostnames := []string{"hostA", "hostB", "hostC", "hostD", "hostE"}
	for _, host := range hostnames {
		share := &models.Share{
			SessionID: session.ID, Hostname: host, ShareName: "data",
			AccessLevel: models.AccessRead, ScanTime: time.Now().UTC(),
		}
		if err := store.InsertShare(ctx, share); err != nil {
			t.Fatalf("InsertShare failed: %v", err)
		}
	}

	filter := query.ShareFilter{SessionID: session.ID}

	full, total, err := store.ListShares(ctx, filter, query.NewPage(1, 100, query.DefaultSharePageSize))
	if err != nil {
		t.Fatalf("ListShares failed: %v", err)
	}
	if total != len(hostnames) || len(full) != len(hostnames) {
		t.Fatalf("unpaginated ListShares returned %d of %d", len(full), total)
	}

	limit := 2
	var walked []string
	pages := query.NewPage(1, limit, query.DefaultSharePageSize).TotalPages(total)
	for page := 1; page <= pages; page++ {
		rows, _, err := store.ListShares(ctx, filter, query.NewPage(page, limit, query.DefaultSharePageSize))
		if err != nil {
			t.Fatalf("ListShares page %d failed: %v", page, err)
		}
		for _, r := range rows {
			walked = append(walked, r.Hostname)
		}
	}

	if len(walked) != len(full) {
		t.Fatalf("paged walk returned %d rows, want %d", len(walked), len(full))
	}
	for i, r := range full {
		if walked[i] != r.Hostname {
			t.Errorf("row %d: paged %q, unpaginated %q", i, walked[i], r.Hostname)
		}
	}

	// One page past the end is empty, not an error.
	rows, _, err := store.ListShares(ctx, filter, query.NewPage(pages+1, limit, query.DefaultSharePageSize))
	if err != nil {
		t.Fatalf("ListShares past end failed: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("page past end returned %d rows, want 0", len(rows))
	}
}

func TestStore_DeleteSession_Cascades(t *testing.T) {
	store := skipIfNoTestDB(t)
	if store == nil {
		return
	}
	defer store.Close()

	ctx := context.Background()
	session := createTestSession(t, store, ctx)

	share := &models.Share{
		SessionID: session.ID, Hostname: "hostA", ShareName: "doomed",
		AccessLevel: models.AccessRead, ScanTime: time.Now().UTC(),
	}
	if err := store.InsertShare(ctx, share); err != nil {
		t.Fatalf("InsertShare failed: %v", err)
	}

	if err := store.DeleteSession(ctx, session.ID); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}

	gone, err := store.GetShare(ctx, share.ID)
	if err != nil {
		t.Fatalf("GetShare failed: %v", err)
	}
	if gone != nil {
		t.Error("Expected share to be deleted with its session")
	}
}
