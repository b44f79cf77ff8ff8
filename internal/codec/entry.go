// Package codec serializes journal entries to the daily markdown file
// format and parses that format back into structured records. The
// markdown file is the source of truth; everything else (the index,
// caches) is a derived, rebuildable view over it.
package codec

import "time"

// EntryType discriminates the two record shapes the journal stores.
// There is no third state: no "deprecated" or "retracted" variant is
// ever introduced, by design.
type EntryType string

const (
	TypeEntry     EntryType = "entry"
	TypeAmendment EntryType = "amendment"
)

// Outcome classifies how a piece of work went. The zero value means
// "unset", which is distinct from any of the three named outcomes.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomePartial Outcome = "partial"
)

// Entry is the atomic, immutable unit of record. It is a tagged union:
// Type == TypeEntry populates the narrative fields; Type ==
// TypeAmendment populates Correction/Actual/Impact and ReferencesEntry
// instead. Both variants share identity, diagnostic, and relation
// fields.
type Entry struct {
	ID        string    // entry_id, e.g. 2026-01-17-001
	Timestamp time.Time // UTC, microsecond resolution
	Author    string
	Type      EntryType

	// Narrative (entry variant only).
	Context    string
	Intent     string
	Action     string
	Observation string
	Analysis   string
	NextSteps  string

	// Classification.
	Outcome  Outcome
	Template string

	// Relations.
	CausedBy        []string // ordered entry_ids
	References      []string // ordered entry_ids or file paths
	ReferencesEntry string   // amendment variant only: exactly one entry_id
	ConfigUsed      string   // archive path, or empty
	LogProduced     string   // log path, or empty

	// Diagnostic (either variant).
	Tool       string
	Command    string
	DurationMs *int64 // nil when unset; must be >= 0 when present
	ExitCode   *int64 // nil when unset; any signed integer when present
	ErrorType  string

	// Amendment variant only; all three required when Type ==
	// TypeAmendment.
	Correction string
	Actual     string
	Impact     string

	// Extras holds unknown headings encountered on decode, passed
	// through verbatim so a rebuild never silently drops operator notes
	// a newer writer understood but this decoder doesn't.
	Extras map[string]string
}

// Date returns the YYYY-MM-DD date embedded in the entry's id.
func (e *Entry) Date() string {
	if len(e.ID) < 10 {
		return ""
	}
	return e.ID[:10]
}

// IsAmendment reports whether this entry corrects another.
func (e *Entry) IsAmendment() bool {
	return e.Type == TypeAmendment
}
