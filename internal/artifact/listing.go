package artifact

import (
	"context"
	"path/filepath"
	"sort"
	"time"
)

// ConfigArchiveRow is a flattened, exported view of one configs/INDEX.md
// table row, grouping information included for callers (timeline,
// session_handoff) that want a plain list rather than the
// basename-keyed map the index file itself uses.
type ConfigArchiveRow struct {
	Basename     string
	ArchivePath  string
	Timestamp    time.Time
	ContentHash  string
	Reason       string
	JournalEntry string
	Stage        string
}

// ListConfigArchives reads configs/INDEX.md and returns every archive
// row across all basenames, in basename order.
func (m *Manager) ListConfigArchives(ctx context.Context) ([]ConfigArchiveRow, error) {
	groups, err := readConfigIndex(filepath.Join(m.ConfigsDir, "INDEX.md"))
	if err != nil {
		return nil, err
	}
	var out []ConfigArchiveRow
	for _, basename := range sortedKeys(groups) {
		for _, row := range groups[basename] {
			out = append(out, ConfigArchiveRow{
				Basename: basename, ArchivePath: row.ArchivePath, Timestamp: row.Timestamp,
				ContentHash: row.ContentHash, Reason: row.Reason,
				JournalEntry: row.JournalEntry, Stage: row.Stage,
			})
		}
	}
	return out, nil
}

// PreservedLogRow is a flattened, exported view of one logs/INDEX.md
// table row.
type PreservedLogRow struct {
	Category      string
	PreservedPath string
	Timestamp     time.Time
	Outcome       string
	SizeBytes     int64
}

// ListPreservedLogs reads logs/INDEX.md and returns every preserved-log
// row across all categories, in category order.
func (m *Manager) ListPreservedLogs(ctx context.Context) ([]PreservedLogRow, error) {
	groups, err := readLogIndex(filepath.Join(m.LogsDir, "INDEX.md"))
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []PreservedLogRow
	for _, category := range keys {
		for _, row := range groups[category] {
			out = append(out, PreservedLogRow{
				Category: category, PreservedPath: row.PreservedPath,
				Timestamp: row.Timestamp, Outcome: row.Outcome, SizeBytes: row.SizeBytes,
			})
		}
	}
	return out, nil
}

// SnapshotRow is an exported view of one snapshots/INDEX.md table row.
type SnapshotRow struct {
	Name         string
	SnapshotPath string
	Timestamp    time.Time
}

// ListSnapshots reads snapshots/INDEX.md.
func (m *Manager) ListSnapshots(ctx context.Context) ([]SnapshotRow, error) {
	rows, err := readSnapshotIndex(filepath.Join(m.SnapshotsDir, "INDEX.md"))
	if err != nil {
		return nil, err
	}
	out := make([]SnapshotRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, SnapshotRow{Name: r.Name, SnapshotPath: r.SnapshotPath, Timestamp: r.Timestamp})
	}
	return out, nil
}
