// Package artifact manages the three side-car trees — configs, logs,
// and snapshots — that sit alongside the journal's daily files.
// Archives are content-hash deduplicated, logs are moved (not copied)
// with an outcome classification, and snapshots capture a JSON view of
// the project's configs/environment/versions/build directory. Each
// tree keeps a human-readable INDEX.md that can always be regenerated
// from the filesystem plus parsed archive names.
package artifact

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/anthropics/labjournal/internal/fsutil"
)

// timestampFileLayout renders a time.Time for use in filenames: ISO
// 8601, second precision, colons replaced with hyphens for filesystem
// safety.
const timestampFileLayout = "2006-01-02T15-04-05"

// Manager owns the configs/, logs/, and snapshots/ directories under a
// project root.
type Manager struct {
	ConfigsDir   string
	LogsDir      string
	SnapshotsDir string

	log *logrus.Logger
}

// New builds a Manager rooted at the given directories. The directories
// are created lazily on first write, matching the daily-file behavior
// in internal/engine.
func New(configsDir, logsDir, snapshotsDir string, log *logrus.Logger) *Manager {
	if log == nil {
		log = logrus.New()
	}
	return &Manager{ConfigsDir: configsDir, LogsDir: logsDir, SnapshotsDir: snapshotsDir, log: log}
}

var slugDisallowed = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// slugify turns arbitrary text into a filesystem-safe, lowercased slug.
func slugify(s string) string {
	s = strings.TrimSpace(s)
	s = slugDisallowed.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	s = strings.ToLower(s)
	if s == "" {
		s = "unnamed"
	}
	return s
}

// stampedName builds "{timestamp}_{slug}{ext}" for archive/snapshot
// filenames.
func stampedName(ts time.Time, slug, ext string) string {
	return fmt.Sprintf("%s_%s%s", ts.Format(timestampFileLayout), slug, ext)
}

// lockTimeout is the default advisory-lock window for artifact writes,
// matching the journal engine's daily-file lock timeout.
var lockTimeout = fsutil.DefaultLockTimeout
