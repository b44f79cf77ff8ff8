package artifact

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/anthropics/labjournal/internal/jerr"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	root := t.TempDir()
	return New(
		filepath.Join(root, "configs"),
		filepath.Join(root, "logs"),
		filepath.Join(root, "snapshots"),
		nil,
	)
}

func TestArchiveConfigWritesAndIndexes(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	now := time.Date(2026, 1, 17, 10, 30, 0, 0, time.UTC)

	dir := t.TempDir()
	file := filepath.Join(dir, "build.toml")
	if err := os.WriteFile(file, []byte("X=1"), 0o644); err != nil {
		t.Fatalf("write source file: %v", err)
	}

	archive, err := m.ArchiveConfig(ctx, now, file, "first", "2026-01-17-001", "")
	if err != nil {
		t.Fatalf("ArchiveConfig failed: %v", err)
	}
	if _, err := os.Stat(archive.ArchivePath); err != nil {
		t.Errorf("expected archive file to exist: %v", err)
	}

	indexData, err := os.ReadFile(filepath.Join(m.ConfigsDir, "INDEX.md"))
	if err != nil {
		t.Fatalf("expected INDEX.md to exist: %v", err)
	}
	if len(indexData) == 0 {
		t.Error("expected non-empty INDEX.md")
	}
}

func TestArchiveConfigDuplicateRejected(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	now := time.Date(2026, 1, 17, 10, 30, 0, 0, time.UTC)

	dir := t.TempDir()
	file := filepath.Join(dir, "build.toml")
	if err := os.WriteFile(file, []byte("X=1"), 0o644); err != nil {
		t.Fatalf("write source file: %v", err)
	}

	if _, err := m.ArchiveConfig(ctx, now, file, "first", "", ""); err != nil {
		t.Fatalf("first archive failed: %v", err)
	}

	_, err := m.ArchiveConfig(ctx, now.Add(time.Minute), file, "second", "", "")
	if err == nil {
		t.Fatal("expected DuplicateContent error")
	}
	if jerr.KindOf(err) != jerr.DuplicateContent {
		t.Errorf("expected DuplicateContent, got %v", jerr.KindOf(err))
	}

	entries, err := os.ReadDir(filepath.Join(m.ConfigsDir, "build.toml"))
	if err != nil {
		t.Fatalf("read archive dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected exactly one archived file, got %d", len(entries))
	}
}

func TestActivateConfigArchivesCurrentFirst(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	now := time.Date(2026, 1, 17, 10, 30, 0, 0, time.UTC)

	srcDir := t.TempDir()
	source := filepath.Join(srcDir, "build.toml")
	if err := os.WriteFile(source, []byte("X=2"), 0o644); err != nil {
		t.Fatalf("write archive source: %v", err)
	}
	archive, err := m.ArchiveConfig(ctx, now, source, "new-version", "2026-01-17-001", "")
	if err != nil {
		t.Fatalf("ArchiveConfig failed: %v", err)
	}

	target := filepath.Join(srcDir, "active.toml")
	if err := os.WriteFile(target, []byte("X=1"), 0o644); err != nil {
		t.Fatalf("write target: %v", err)
	}

	result, err := m.ActivateConfig(ctx, now.Add(time.Minute), archive.ArchivePath, target, "rollout", "2026-01-17-002")
	if err != nil {
		t.Fatalf("ActivateConfig failed: %v", err)
	}
	if result.SupersededPath == "" {
		t.Error("expected a superseded archive path")
	}

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read target: %v", err)
	}
	if string(data) != "X=2" {
		t.Errorf("expected target to be overwritten with archive bytes, got %q", data)
	}
}

func TestActivateConfigRequiresJournalEntry(t *testing.T) {
	m := newTestManager(t)
	_, err := m.ActivateConfig(context.Background(), time.Now(), "a", "b", "reason", "")
	if jerr.KindOf(err) != jerr.InvalidArgument {
		t.Errorf("expected InvalidArgument for missing journal_entry, got %v", err)
	}
}
