package store_test

import (
	"errors"
	"testing"
	"time"

	"github.com/nv4818/webtrack/internal/store"
	"github.com/nv4818/webtrack/internal/testutil"
)

func TestLoadSessionDefaults(t *testing.T) {
	st, ctx := testutil.NewStore(t)
	session, err := st.LoadSession(ctx)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if session.ClientID != "" || session.AuthToken != "" {
		t.Fatalf("fresh session not empty: %+v", session)
	}
	if !session.Enabled {
		t.Fatalf("fresh session must default to enabled")
	}
	if session.Paired() {
		t.Fatalf("fresh session must be unpaired")
	}
}

func TestSessionRoundTrip(t *testing.T) {
	st, ctx := testutil.NewStore(t)
	if err := st.SetClientID(ctx, "11111111-2222-3333-4444-555555555555"); err != nil {
		t.Fatalf("set client id: %v", err)
	}
	if err := st.SetAuthToken(ctx, "tok-1"); err != nil {
		t.Fatalf("set auth token: %v", err)
	}
	if err := st.SetEnabled(ctx, false); err != nil {
		t.Fatalf("set enabled: %v", err)
	}

	session, err := st.LoadSession(ctx)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if session.ClientID != "11111111-2222-3333-4444-555555555555" {
		t.Fatalf("client id = %q", session.ClientID)
	}
	if session.AuthToken != "tok-1" || !session.Paired() {
		t.Fatalf("auth token = %q", session.AuthToken)
	}
	if session.Enabled {
		t.Fatalf("enabled should persist as false")
	}

	// Clearing the token restores the unpaired state.
	if err := st.SetAuthToken(ctx, ""); err != nil {
		t.Fatalf("clear auth token: %v", err)
	}
	session, err = st.LoadSession(ctx)
	if err != nil {
		t.Fatalf("reload session: %v", err)
	}
	if session.Paired() {
		t.Fatalf("token clear must unpair, got %+v", session)
	}
}

func TestMetadataSendTimes(t *testing.T) {
	st, ctx := testutil.NewStore(t)

	if _, err := st.MetadataSentAt(ctx, "example.com"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	sent := time.Date(2026, 8, 20, 10, 30, 0, 0, time.UTC)
	if err := st.MarkMetadataSent(ctx, "example.com", sent); err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	got, err := st.MetadataSentAt(ctx, "example.com")
	if err != nil {
		t.Fatalf("sent at: %v", err)
	}
	if !got.Equal(sent) {
		t.Fatalf("sent at = %v, want %v", got, sent)
	}

	// Upsert moves the timestamp forward.
	later := sent.Add(48 * time.Hour)
	if err := st.MarkMetadataSent(ctx, "example.com", later); err != nil {
		t.Fatalf("re-mark sent: %v", err)
	}
	all, err := st.LoadMetadataSentTimes(ctx)
	if err != nil {
		t.Fatalf("load all: %v", err)
	}
	if len(all) != 1 || !all["example.com"].Equal(later) {
		t.Fatalf("loaded map = %v", all)
	}
}

func TestPruneMetadataSends(t *testing.T) {
	st, ctx := testutil.NewStore(t)
	old := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fresh := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	if err := st.MarkMetadataSent(ctx, "old.com", old); err != nil {
		t.Fatalf("mark old: %v", err)
	}
	if err := st.MarkMetadataSent(ctx, "fresh.com", fresh); err != nil {
		t.Fatalf("mark fresh: %v", err)
	}
	n, err := st.PruneMetadataSends(ctx, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if n != 1 {
		t.Fatalf("pruned %d rows, want 1", n)
	}
	all, err := st.LoadMetadataSentTimes(ctx)
	if err != nil {
		t.Fatalf("load all: %v", err)
	}
	if _, ok := all["old.com"]; ok {
		t.Fatalf("old.com should be pruned: %v", all)
	}
	if _, ok := all["fresh.com"]; !ok {
		t.Fatalf("fresh.com should survive: %v", all)
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	st, ctx := testutil.NewStore(t)
	if err := store.ApplyMigrations(ctx, st.DB()); err != nil {
		t.Fatalf("second apply: %v", err)
	}
}
