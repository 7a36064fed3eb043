package testsupport

import (
	"context"
	"path/filepath"
	"testing"

	"reelvault/internal/progress"
)

// MustOpenJournal opens a progress.Store in a temp location for tests and
// registers cleanup.
func MustOpenJournal(t testing.TB) *progress.Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "journal.db")
	store, err := progress.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("progress.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
