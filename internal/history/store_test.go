package history_test

import (
	"context"
	"path/filepath"
	"testing"

	"mesoprep/internal/history"
)

func openStore(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestBeginAndFinishRun(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	id, err := store.Begin(ctx, "run-1", "20000001")
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if id == 0 {
		t.Fatal("expected row id to be assigned")
	}

	err = store.Finish(ctx, id, history.StatusCompleted, history.Run{
		SubjectID:    "614173",
		Project:      "OpenScope",
		ManifestPath: "/tmp/manifests/manifest_20250615120000.yaml",
	})
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}

	runs, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	run := runs[0]
	if run.Status != history.StatusCompleted {
		t.Fatalf("unexpected status %q", run.Status)
	}
	if run.SessionID != "20000001" || run.SubjectID != "614173" || run.Project != "OpenScope" {
		t.Fatalf("unexpected run fields: %+v", run)
	}
	if run.FinishedAt.IsZero() {
		t.Fatal("expected finished timestamp")
	}
}

func TestRecentOrdersNewestFirst(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	for _, runID := range []string{"run-a", "run-b", "run-c"} {
		if _, err := store.Begin(ctx, runID, "session-"+runID); err != nil {
			t.Fatalf("Begin %s failed: %v", runID, err)
		}
	}

	runs, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].RunID != "run-c" || runs[1].RunID != "run-b" {
		t.Fatalf("unexpected order: %s, %s", runs[0].RunID, runs[1].RunID)
	}
}

func TestBeginRequiresIdentifiers(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	if _, err := store.Begin(ctx, "", "session"); err == nil {
		t.Fatal("expected error for empty run id")
	}
	if _, err := store.Begin(ctx, "run", ""); err == nil {
		t.Fatal("expected error for empty session id")
	}
}
