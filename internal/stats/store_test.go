package stats

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func TestRecordAndTotals(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "stats.db"), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.Record(ctx, "telegram", "42", 2, 0); err != nil {
		t.Fatal(err)
	}
	if err := store.Record(ctx, "telegram", "42", 1, 1); err != nil {
		t.Fatal(err)
	}
	if err := store.Record(ctx, "cli", "local", 0, 0); err != nil {
		t.Fatal(err)
	}

	totals, err := store.Totals(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if totals.Chats != 2 {
		t.Errorf("chats = %d, want 2", totals.Chats)
	}
	if totals.Messages != 3 {
		t.Errorf("messages = %d, want 3", totals.Messages)
	}
	if totals.Expressions != 3 {
		t.Errorf("expressions = %d, want 3", totals.Expressions)
	}
	if totals.Errors != 1 {
		t.Errorf("errors = %d, want 1", totals.Errors)
	}
}
