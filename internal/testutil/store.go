package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/nv4818/webtrack/internal/store"
)

func NewStore(t *testing.T) (*store.Store, context.Context) {
	t.Helper()
	ctx := context.Background()
	st, err := store.Open(ctx, filepath.Join(t.TempDir(), "webtrack-test.db"))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	if err := store.ApplyMigrations(ctx, st.DB()); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return st, ctx
}
