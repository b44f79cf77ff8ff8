package fsutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAtomicReplaceCreatesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "daily.md")

	if err := AtomicReplace(path, []byte("hello")); err != nil {
		t.Fatalf("AtomicReplace failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("got %q, want hello", data)
	}

	// No leftover temp files.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected exactly 1 file in dir, got %d", len(entries))
	}
}

func TestAtomicReplaceOverwrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "daily.md")

	if err := AtomicReplace(path, []byte("first")); err != nil {
		t.Fatalf("first replace failed: %v", err)
	}
	if err := AtomicReplace(path, []byte("second")); err != nil {
		t.Fatalf("second replace failed: %v", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "second" {
		t.Errorf("got %q, want second", data)
	}
}

func TestReadOrEmptyMissingFile(t *testing.T) {
	dir := t.TempDir()
	data, err := ReadOrEmpty(filepath.Join(dir, "missing.md"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("expected empty slice, got %q", data)
	}
}

func TestMoveFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.log")
	dst := filepath.Join(dir, "sub", "dst.log")

	if err := os.WriteFile(src, []byte("log contents"), 0644); err != nil {
		t.Fatalf("setup write failed: %v", err)
	}

	if err := MoveFile(src, dst); err != nil {
		t.Fatalf("MoveFile failed: %v", err)
	}

	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Errorf("original path should not exist after move, err=%v", err)
	}

	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read dst failed: %v", err)
	}
	if string(data) != "log contents" {
		t.Errorf("got %q", data)
	}
}
