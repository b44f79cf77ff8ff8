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

// ConfigArchive records a copy of a configuration file at a point in
// time.
type ConfigArchive struct {
	OriginalPath string
	ArchivePath  string
	Timestamp    time.Time
	ContentHash  string
	Reason       string
	JournalEntry string // optional
	Stage        string // optional
}

// ArchiveConfig reads filePath, and if its content hash isn't already
// archived under configs/{basename}/, writes a new timestamped archive
// and appends a row to configs/INDEX.md. Duplicate bytes for the same
// original path fail with DuplicateContent, naming the prior archive.
func (m *Manager) ArchiveConfig(ctx context.Context, now time.Time, filePath, reason, journalEntry, stage string) (*ConfigArchive, error) {
	if reason == "" {
		return nil, jerr.New(jerr.InvalidArgument, "archive_config: reason is required")
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, jerr.Wrap(jerr.IoFailure, err, "read %s", filePath)
	}
	hash := contentHash(data)

	basename := filepath.Base(filePath)
	dir := filepath.Join(m.ConfigsDir, basename)

	if prior, ok := m.findArchiveByHash(dir, hash); ok {
		return nil, jerr.New(jerr.DuplicateContent, "content already archived at %s", prior)
	}

	ext := filepath.Ext(filePath)
	name := stampedName(now, slugify(reason), ext)
	archivePath := filepath.Join(dir, name)

	if err := fsutil.WithLock(ctx, archivePath, lockTimeout, func() error {
		return fsutil.AtomicReplace(archivePath, data)
	}); err != nil {
		return nil, err
	}

	archive := &ConfigArchive{
		OriginalPath: filePath,
		ArchivePath:  archivePath,
		Timestamp:    now,
		ContentHash:  hash,
		Reason:       reason,
		JournalEntry: journalEntry,
		Stage:        stage,
	}

	if err := m.appendConfigIndexRow(ctx, archive); err != nil {
		return nil, err
	}

	m.log.WithFields(logrus.Fields{
		"op": "archive_config", "archive_path": archivePath, "content_hash": hash,
	}).Info("archived config")

	return archive, nil
}

// findArchiveByHash hashes each file already archived under dir and
// returns the first path whose content matches hash.
func (m *Manager) findArchiveByHash(dir, hash string) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if contentHash(data) == hash {
			return path, true
		}
	}
	return "", false
}

// ActivateResult reports the outcome of ActivateConfig.
type ActivateResult struct {
	ActivatedPath  string
	SupersededPath string // archive path of the pre-activation snapshot, if any
}

// ActivateConfig copies archivePath's bytes onto targetPath,
// archiving targetPath's current contents first (reason
// "pre-activation") when it exists. journalEntry is required: this
// operation always leaves a documentation trail.
func (m *Manager) ActivateConfig(ctx context.Context, now time.Time, archivePath, targetPath, reason, journalEntry string) (*ActivateResult, error) {
	if journalEntry == "" {
		return nil, jerr.New(jerr.InvalidArgument, "activate_config: journal_entry is required")
	}

	result := &ActivateResult{ActivatedPath: targetPath}

	if _, err := os.Stat(targetPath); err == nil {
		archive, archErr := m.ArchiveConfig(ctx, now, targetPath, "pre-activation", journalEntry, "")
		switch {
		case archErr == nil:
			result.SupersededPath = archive.ArchivePath
		case jerr.KindOf(archErr) == jerr.DuplicateContent:
			// Current file already archived under a prior reason; fine to proceed.
		default:
			return nil, archErr
		}
	} else if !os.IsNotExist(err) {
		return nil, jerr.Wrap(jerr.IoFailure, err, "stat %s", targetPath)
	}

	data, err := os.ReadFile(archivePath)
	if err != nil {
		return nil, jerr.Wrap(jerr.IoFailure, err, "read archive %s", archivePath)
	}

	if err := fsutil.WithLock(ctx, targetPath, lockTimeout, func() error {
		return fsutil.AtomicReplace(targetPath, data)
	}); err != nil {
		return nil, err
	}

	m.log.WithFields(logrus.Fields{
		"op": "activate_config", "archive_path": archivePath, "target_path": targetPath,
	}).Info("activated config")

	return result, nil
}
