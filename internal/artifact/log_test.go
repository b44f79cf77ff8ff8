package artifact

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestPreserveLogMovesFileAndIndexes(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	now := time.Date(2026, 1, 17, 10, 30, 0, 0, time.UTC)

	dir := t.TempDir()
	source := filepath.Join(dir, "build.log")
	if err := os.WriteFile(source, []byte("build output"), 0o644); err != nil {
		t.Fatalf("write source log: %v", err)
	}

	record, err := m.PreserveLog(ctx, now, source, "build", LogSuccess)
	if err != nil {
		t.Fatalf("PreserveLog failed: %v", err)
	}

	if _, err := os.Stat(source); !os.IsNotExist(err) {
		t.Error("expected original log path to no longer exist")
	}
	if _, err := os.Stat(record.PreservedPath); err != nil {
		t.Errorf("expected preserved log to exist: %v", err)
	}
	if record.SizeBytes != int64(len("build output")) {
		t.Errorf("unexpected size: %d", record.SizeBytes)
	}

	if _, err := os.Stat(filepath.Join(m.LogsDir, "INDEX.md")); err != nil {
		t.Errorf("expected logs INDEX.md: %v", err)
	}
}

func TestPreserveLogRejectsInvalidOutcome(t *testing.T) {
	m := newTestManager(t)
	dir := t.TempDir()
	source := filepath.Join(dir, "build.log")
	os.WriteFile(source, []byte("x"), 0o644)

	if _, err := m.PreserveLog(context.Background(), time.Now(), source, "build", LogOutcome("bogus")); err == nil {
		t.Error("expected error for invalid outcome")
	}
}
