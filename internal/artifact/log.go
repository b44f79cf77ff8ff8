package artifact

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/anthropics/labjournal/internal/fsutil"
	"github.com/anthropics/labjournal/internal/jerr"
)

// LogOutcome classifies how the work that produced a preserved log
// went.
type LogOutcome string

const (
	LogSuccess     LogOutcome = "success"
	LogFailure     LogOutcome = "failure"
	LogInterrupted LogOutcome = "interrupted"
	LogUnknown     LogOutcome = "unknown"
)

func (o LogOutcome) valid() bool {
	switch o {
	case LogSuccess, LogFailure, LogInterrupted, LogUnknown:
		return true
	}
	return false
}

// LogRecord records a preserved log file.
type LogRecord struct {
	OriginalPath  string
	PreservedPath string
	Timestamp     time.Time
	Category      string
	Outcome       LogOutcome
	SizeBytes     int64
}

// PreserveLog moves filePath into logs/{category}/ with a timestamped,
// outcome-classified name, appends a row to logs/INDEX.md, and leaves
// the original path empty on success.
func (m *Manager) PreserveLog(ctx context.Context, now time.Time, filePath, category string, outcome LogOutcome) (*LogRecord, error) {
	if !outcome.valid() {
		return nil, jerr.New(jerr.InvalidArgument, "preserve_log: invalid outcome %q", outcome)
	}

	info, err := os.Stat(filePath)
	if err != nil {
		return nil, jerr.Wrap(jerr.IoFailure, err, "stat %s", filePath)
	}

	name := stampedName(now, string(outcome), ".log")
	dest := filepath.Join(m.LogsDir, category, name)

	if err := fsutil.WithLock(ctx, dest, lockTimeout, func() error {
		return fsutil.MoveFile(filePath, dest)
	}); err != nil {
		return nil, err
	}

	record := &LogRecord{
		OriginalPath: filePath, PreservedPath: dest, Timestamp: now,
		Category: category, Outcome: outcome, SizeBytes: info.Size(),
	}

	if err := m.appendLogIndexRow(ctx, record); err != nil {
		return nil, err
	}

	m.log.WithFields(logrus.Fields{
		"op": "preserve_log", "preserved_path": dest, "outcome": string(outcome),
	}).Info("preserved log")

	return record, nil
}
