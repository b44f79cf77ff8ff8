// Package clock issues the UTC timestamps and per-day sequential entry
// ids the journal engine stamps every record with.
package clock

import (
	"fmt"
	"sync"
	"time"
)

// Clock returns the current instant. Production code uses System; tests
// use Fixed so ids and timestamps are deterministic.
type Clock interface {
	Now() time.Time
}

// System is the real wall clock, rounded to microsecond resolution per
// the entry metadata timestamp format.
type System struct{}

func (System) Now() time.Time {
	return time.Now().UTC().Round(time.Microsecond)
}

// Fixed is a test double that always returns the same instant unless
// advanced.
type Fixed struct {
	mu sync.Mutex
	t  time.Time
}

// NewFixed returns a Fixed clock starting at t (converted to UTC).
func NewFixed(t time.Time) *Fixed {
	return &Fixed{t: t.UTC()}
}

func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

// Advance moves the fixed clock forward by d.
func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

// Allocator issues entry_id values of the form YYYY-MM-DD-NNN, computing
// NNN as one more than the highest id already known for that date. It
// does not itself persist anything; callers must hold the per-date file
// lock while calling Next and while writing the resulting id, so no two
// in-flight appends can observe the same max.
type Allocator struct {
	clock Clock

	mu      sync.Mutex
	maxSeen map[string]int // date -> highest NNN issued this process
}

// NewAllocator builds an Allocator around clock.
func NewAllocator(clock Clock) *Allocator {
	return &Allocator{clock: clock, maxSeen: make(map[string]int)}
}

// Now returns the allocator's clock's current instant.
func (a *Allocator) Now() time.Time {
	return a.clock.Now()
}

// Today returns the current UTC date as YYYY-MM-DD.
func (a *Allocator) Today() string {
	return a.clock.Now().Format("2006-01-02")
}

// Next returns the next entry id for date, given knownMax — the highest
// NNN the caller found in that date's daily file (0 if none). The
// allocator also remembers the highest NNN it has issued itself this
// process, so appends within one process never collide even when
// knownMax lags behind ids already issued.
func (a *Allocator) Next(date string, knownMax int) string {
	a.mu.Lock()
	defer a.mu.Unlock()

	next := knownMax + 1
	if prev, ok := a.maxSeen[date]; ok && prev+1 > next {
		next = prev + 1
	}
	a.maxSeen[date] = next

	return FormatID(date, next)
}

// FormatID renders date and a sequence number as an entry_id, growing the
// zero-padding beyond 3 digits once the sequence requires it (entry ids
// beyond 999 extend to 1000, 1001, ... per spec, no ceiling).
func FormatID(date string, seq int) string {
	width := 3
	for p := 1000; p <= seq; p *= 10 {
		width++
	}
	return fmt.Sprintf("%s-%0*d", date, width, seq)
}
