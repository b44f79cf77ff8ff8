package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/anthropics/labjournal/internal/fsutil"
	"github.com/anthropics/labjournal/internal/jerr"
)

// archiveNamePattern parses "{timestamp}_{slug}{ext}" archive and
// snapshot filenames back into their components, used by rebuild.
var archiveNamePattern = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}T\d{2}-\d{2}-\d{2})_(.+?)(\.[^.]*)?$`)

// parseArchiveName splits a stamped filename into its timestamp, slug,
// and extension. ok is false if the name doesn't match the pattern.
func parseArchiveName(name string) (ts time.Time, slug, ext string, ok bool) {
	m := archiveNamePattern.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}, "", "", false
	}
	t, err := time.Parse(timestampFileLayout, m[1])
	if err != nil {
		return time.Time{}, "", "", false
	}
	return t, m[2], m[3], true
}

// appendConfigIndexRow appends a describing its archive to
// configs/INDEX.md under a grouped-by-basename table.
func (m *Manager) appendConfigIndexRow(ctx context.Context, a *ConfigArchive) error {
	indexPath := filepath.Join(m.ConfigsDir, "INDEX.md")
	basename := filepath.Base(a.OriginalPath)
	row := configRow{
		ArchivePath:  a.ArchivePath,
		Timestamp:    a.Timestamp,
		ContentHash:  a.ContentHash,
		Reason:       a.Reason,
		JournalEntry: a.JournalEntry,
		Stage:        a.Stage,
	}
	return fsutil.WithLock(ctx, indexPath, lockTimeout, func() error {
		groups, _ := readConfigIndex(indexPath)
		groups[basename] = append(groups[basename], row)
		return writeConfigIndex(indexPath, groups)
	})
}

type configRow struct {
	ArchivePath  string
	Timestamp    time.Time
	ContentHash  string
	Reason       string
	JournalEntry string
	Stage        string
}

// readConfigIndex parses an existing configs/INDEX.md into its
// per-basename row groups. Absence of the file is not an error.
func readConfigIndex(path string) (map[string][]configRow, error) {
	groups := map[string][]configRow{}
	data, err := fsutil.ReadOrEmpty(path)
	if err != nil {
		return nil, err
	}
	var basename string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		switch {
		case strings.HasPrefix(line, "## "):
			basename = strings.TrimSpace(strings.TrimPrefix(line, "## "))
		case strings.HasPrefix(line, "| ") && !strings.HasPrefix(line, "| Archive") && !strings.HasPrefix(line, "|---"):
			cols := splitTableRow(line)
			if len(cols) != 6 || basename == "" {
				continue
			}
			ts, _ := time.Parse(time.RFC3339, cols[1])
			groups[basename] = append(groups[basename], configRow{
				ArchivePath: cols[0], Timestamp: ts, ContentHash: cols[2],
				Reason: cols[3], JournalEntry: cols[4], Stage: cols[5],
			})
		}
	}
	return groups, nil
}

func writeConfigIndex(path string, groups map[string][]configRow) error {
	var b strings.Builder
	b.WriteString("# Config Archive Index\n\n")
	for _, basename := range sortedKeys(groups) {
		b.WriteString("## " + basename + "\n\n")
		b.WriteString("| Archive Path | Timestamp | Content Hash | Reason | Journal Entry | Stage |\n")
		b.WriteString("|---|---|---|---|---|---|\n")
		for _, row := range groups[basename] {
			b.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s |\n",
				row.ArchivePath, row.Timestamp.Format(time.RFC3339), row.ContentHash,
				row.Reason, row.JournalEntry, row.Stage))
		}
		b.WriteString("\n")
	}
	return fsutil.AtomicReplace(path, []byte(b.String()))
}

// splitTableRow splits a "| a | b | c |" markdown table row into its
// trimmed cell values.
func splitTableRow(line string) []string {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "|")
	line = strings.TrimSuffix(line, "|")
	parts := strings.Split(line, "|")
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strings.TrimSpace(p)
	}
	return out
}

func sortedKeys(m map[string][]configRow) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// logRow describes one preserved-log line in logs/INDEX.md.
type logRow struct {
	Category      string
	PreservedPath string
	Timestamp     time.Time
	Outcome       string
	SizeBytes     int64
}

func (m *Manager) appendLogIndexRow(ctx context.Context, r *LogRecord) error {
	indexPath := filepath.Join(m.LogsDir, "INDEX.md")
	row := logRow{Category: r.Category, PreservedPath: r.PreservedPath, Timestamp: r.Timestamp, Outcome: string(r.Outcome), SizeBytes: r.SizeBytes}
	return fsutil.WithLock(ctx, indexPath, lockTimeout, func() error {
		groups, _ := readLogIndex(indexPath)
		groups[r.Category] = append(groups[r.Category], row)
		return writeLogIndex(indexPath, groups)
	})
}

func readLogIndex(path string) (map[string][]logRow, error) {
	groups := map[string][]logRow{}
	data, err := fsutil.ReadOrEmpty(path)
	if err != nil {
		return nil, err
	}
	var category string
	for _, line := range strings.Split(string(data), "\n") {
		switch {
		case strings.HasPrefix(line, "## "):
			category = strings.TrimSpace(strings.TrimPrefix(line, "## "))
		case strings.HasPrefix(line, "| ") && !strings.HasPrefix(line, "| Preserved") && !strings.HasPrefix(line, "|---"):
			cols := splitTableRow(line)
			if len(cols) != 4 || category == "" {
				continue
			}
			ts, _ := time.Parse(time.RFC3339, cols[1])
			size, _ := strconv.ParseInt(cols[3], 10, 64)
			groups[category] = append(groups[category], logRow{Category: category, PreservedPath: cols[0], Timestamp: ts, Outcome: cols[2], SizeBytes: size})
		}
	}
	return groups, nil
}

func writeLogIndex(path string, groups map[string][]logRow) error {
	var b strings.Builder
	b.WriteString("# Log Preservation Index\n\n")
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, category := range keys {
		b.WriteString("## " + category + "\n\n")
		b.WriteString("| Preserved Path | Timestamp | Outcome | Size (bytes) |\n")
		b.WriteString("|---|---|---|---|\n")
		for _, row := range groups[category] {
			b.WriteString(fmt.Sprintf("| %s | %s | %s | %d |\n", row.PreservedPath, row.Timestamp.Format(time.RFC3339), row.Outcome, row.SizeBytes))
		}
		b.WriteString("\n")
	}
	return fsutil.AtomicReplace(path, []byte(b.String()))
}

// snapshotRow describes one snapshot line in snapshots/INDEX.md.
type snapshotRow struct {
	Name         string
	SnapshotPath string
	Timestamp    time.Time
}

func (m *Manager) appendSnapshotIndexRow(ctx context.Context, name, path string, ts time.Time) error {
	indexPath := filepath.Join(m.SnapshotsDir, "INDEX.md")
	return fsutil.WithLock(ctx, indexPath, lockTimeout, func() error {
		rows, _ := readSnapshotIndex(indexPath)
		rows = append(rows, snapshotRow{Name: name, SnapshotPath: path, Timestamp: ts})
		return writeSnapshotIndex(indexPath, rows)
	})
}

func readSnapshotIndex(path string) ([]snapshotRow, error) {
	var rows []snapshotRow
	data, err := fsutil.ReadOrEmpty(path)
	if err != nil {
		return nil, err
	}
	for _, line := range strings.Split(string(data), "\n") {
		if !strings.HasPrefix(line, "| ") || strings.HasPrefix(line, "| Name") || strings.HasPrefix(line, "|---") {
			continue
		}
		cols := splitTableRow(line)
		if len(cols) != 3 {
			continue
		}
		ts, _ := time.Parse(time.RFC3339, cols[2])
		rows = append(rows, snapshotRow{Name: cols[0], SnapshotPath: cols[1], Timestamp: ts})
	}
	return rows, nil
}

func writeSnapshotIndex(path string, rows []snapshotRow) error {
	var b strings.Builder
	b.WriteString("# Snapshot Index\n\n")
	b.WriteString("| Name | Snapshot Path | Timestamp |\n")
	b.WriteString("|---|---|---|\n")
	for _, row := range rows {
		b.WriteString(fmt.Sprintf("| %s | %s | %s |\n", row.Name, row.SnapshotPath, row.Timestamp.Format(time.RFC3339)))
	}
	return fsutil.AtomicReplace(path, []byte(b.String()))
}

// RebuildArtifactIndex regenerates the INDEX.md for kind ("configs",
// "logs", or "snapshots") purely from the directory's current contents
// and the filenames' parsed timestamp/slug, discarding any metadata
// (journal_entry, stage, outcome detail) that can't be recovered from
// the filesystem alone.
func (m *Manager) RebuildArtifactIndex(ctx context.Context, kind string) error {
	switch kind {
	case "configs":
		return m.rebuildConfigsIndex(ctx)
	case "logs":
		return m.rebuildLogsIndex(ctx)
	case "snapshots":
		return m.rebuildSnapshotsIndex(ctx)
	default:
		return jerr.New(jerr.InvalidArgument, "rebuild_artifact_index: unknown kind %q", kind)
	}
}

func (m *Manager) rebuildConfigsIndex(ctx context.Context) error {
	groups := map[string][]configRow{}
	basenames, err := os.ReadDir(m.ConfigsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return jerr.Wrap(jerr.IoFailure, err, "read configs dir")
	}
	for _, bn := range basenames {
		if !bn.IsDir() {
			continue
		}
		dir := filepath.Join(m.ConfigsDir, bn.Name())
		files, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			ts, slug, _, ok := parseArchiveName(f.Name())
			if !ok {
				continue
			}
			path := filepath.Join(dir, f.Name())
			data, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			groups[bn.Name()] = append(groups[bn.Name()], configRow{
				ArchivePath: path, Timestamp: ts, ContentHash: contentHash(data), Reason: slug,
			})
		}
	}
	indexPath := filepath.Join(m.ConfigsDir, "INDEX.md")
	return fsutil.WithLock(ctx, indexPath, lockTimeout, func() error {
		return writeConfigIndex(indexPath, groups)
	})
}

func (m *Manager) rebuildLogsIndex(ctx context.Context) error {
	groups := map[string][]logRow{}
	categories, err := os.ReadDir(m.LogsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return jerr.Wrap(jerr.IoFailure, err, "read logs dir")
	}
	for _, cat := range categories {
		if !cat.IsDir() {
			continue
		}
		dir := filepath.Join(m.LogsDir, cat.Name())
		files, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			ts, outcome, _, ok := parseArchiveName(f.Name())
			if !ok {
				continue
			}
			info, err := f.Info()
			if err != nil {
				continue
			}
			groups[cat.Name()] = append(groups[cat.Name()], logRow{
				Category: cat.Name(), PreservedPath: filepath.Join(dir, f.Name()),
				Timestamp: ts, Outcome: outcome, SizeBytes: info.Size(),
			})
		}
	}
	indexPath := filepath.Join(m.LogsDir, "INDEX.md")
	return fsutil.WithLock(ctx, indexPath, lockTimeout, func() error {
		return writeLogIndex(indexPath, groups)
	})
}

func (m *Manager) rebuildSnapshotsIndex(ctx context.Context) error {
	var rows []snapshotRow
	files, err := os.ReadDir(m.SnapshotsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return jerr.Wrap(jerr.IoFailure, err, "read snapshots dir")
	}
	for _, f := range files {
		if f.IsDir() || f.Name() == "INDEX.md" {
			continue
		}
		ts, slug, _, ok := parseArchiveName(f.Name())
		if !ok {
			continue
		}
		rows = append(rows, snapshotRow{Name: slug, SnapshotPath: filepath.Join(m.SnapshotsDir, f.Name()), Timestamp: ts})
	}
	indexPath := filepath.Join(m.SnapshotsDir, "INDEX.md")
	return fsutil.WithLock(ctx, indexPath, lockTimeout, func() error {
		return writeSnapshotIndex(indexPath, rows)
	})
}
