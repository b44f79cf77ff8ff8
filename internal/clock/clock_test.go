package clock

import (
	"testing"
	"time"
)

func TestFormatID(t *testing.T) {
	cases := []struct {
		seq  int
		want string
	}{
		{1, "2026-01-17-001"},
		{42, "2026-01-17-042"},
		{999, "2026-01-17-999"},
		{1000, "2026-01-17-1000"},
		{1001, "2026-01-17-1001"},
		{9999, "2026-01-17-9999"},
		{10000, "2026-01-17-10000"},
	}
	for _, c := range cases {
		got := FormatID("2026-01-17", c.seq)
		if got != c.want {
			t.Errorf("FormatID(%d) = %q, want %q", c.seq, got, c.want)
		}
	}
}

func TestAllocatorSequential(t *testing.T) {
	a := NewAllocator(NewFixed(time.Date(2026, 1, 17, 0, 0, 0, 0, time.UTC)))

	first := a.Next("2026-01-17", 0)
	if first != "2026-01-17-001" {
		t.Fatalf("first id = %s", first)
	}
	second := a.Next("2026-01-17", 1)
	if second != "2026-01-17-002" {
		t.Fatalf("second id = %s", second)
	}
	// Simulate the index not having observed the in-flight append yet:
	// knownMax is stale (still 1) but the allocator remembers it already
	// issued 002.
	third := a.Next("2026-01-17", 1)
	if third != "2026-01-17-003" {
		t.Fatalf("third id = %s, want no collision with stale knownMax", third)
	}
}

func TestAllocatorPerDate(t *testing.T) {
	a := NewAllocator(NewFixed(time.Date(2026, 1, 17, 0, 0, 0, 0, time.UTC)))

	if got := a.Next("2026-01-17", 5); got != "2026-01-17-006" {
		t.Fatalf("got %s", got)
	}
	if got := a.Next("2026-01-18", 0); got != "2026-01-18-001" {
		t.Fatalf("separate date should not inherit counter: got %s", got)
	}
}

func TestTodayUsesUTC(t *testing.T) {
	fixed := NewFixed(time.Date(2026, 7, 30, 23, 59, 0, 0, time.UTC))
	a := NewAllocator(fixed)
	if got := a.Today(); got != "2026-07-30" {
		t.Fatalf("Today() = %s", got)
	}
}
