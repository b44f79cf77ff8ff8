package artifact

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/anthropics/labjournal/internal/fsutil"
	"github.com/anthropics/labjournal/internal/jconfig"
	"github.com/anthropics/labjournal/internal/jerr"
)

// versionProbeTimeout bounds each version-probe subprocess.
const versionProbeTimeout = 5 * time.Second

// Snapshot records a whole-system state capture.
type Snapshot struct {
	Name             string            `json:"name"`
	Timestamp        time.Time         `json:"timestamp"`
	Configs          map[string]string `json:"configs,omitempty"`
	Environment      map[string]string `json:"environment,omitempty"`
	Versions         map[string]string `json:"versions,omitempty"`
	BuildDirListing  []string          `json:"build_dir_listing,omitempty"`
}

// SnapshotRequest parameterizes state_snapshot.
type SnapshotRequest struct {
	Name                  string
	IncludeConfigs        bool
	IncludeEnv            bool
	IncludeVersions       bool
	IncludeBuildDirListing bool
	BuildDir              string

	ConfigGlobs        []string
	EnvExcludePatterns []string
	VersionProbes      []jconfig.VersionProbe
	ProjectRoot        string
	Environ            []string // "KEY=VALUE" pairs; defaults to os.Environ() when nil
}

// StateSnapshot gathers the requested components into a single JSON
// document, writes it under snapshots/, and appends a row to
// snapshots/INDEX.md.
func (m *Manager) StateSnapshot(ctx context.Context, now time.Time, req SnapshotRequest) (*Snapshot, error) {
	if req.Name == "" {
		return nil, jerr.New(jerr.InvalidArgument, "state_snapshot: name is required")
	}
	if req.IncludeBuildDirListing && req.BuildDir == "" {
		return nil, jerr.New(jerr.InvalidArgument, "state_snapshot: build_dir is required when include_build_dir_listing is set")
	}

	snap := &Snapshot{Name: req.Name, Timestamp: now}

	if req.IncludeConfigs {
		configs, err := discoverConfigs(req.ProjectRoot, req.ConfigGlobs)
		if err != nil {
			return nil, err
		}
		snap.Configs = configs
	}

	if req.IncludeEnv {
		snap.Environment = captureEnv(req.Environ, req.EnvExcludePatterns)
	}

	if req.IncludeVersions {
		snap.Versions = captureVersions(ctx, req.VersionProbes)
	}

	if req.IncludeBuildDirListing {
		listing, err := listBuildDir(req.BuildDir)
		if err != nil {
			return nil, err
		}
		snap.BuildDirListing = listing
	}

	name := stampedName(now, slugify(req.Name), ".json")
	path := filepath.Join(m.SnapshotsDir, name)

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, jerr.Wrap(jerr.IoFailure, err, "marshal snapshot %s", req.Name)
	}

	if err := fsutil.WithLock(ctx, path, lockTimeout, func() error {
		return fsutil.AtomicReplace(path, data)
	}); err != nil {
		return nil, err
	}

	if err := m.appendSnapshotIndexRow(ctx, req.Name, path, now); err != nil {
		return nil, err
	}

	m.log.WithFields(logrus.Fields{"op": "state_snapshot", "path": path}).Info("wrote state snapshot")

	return snap, nil
}

// discoverConfigs reads every file under root matching any of globs,
// keyed by its path relative to root.
func discoverConfigs(root string, globs []string) (map[string]string, error) {
	configs := map[string]string{}
	for _, pattern := range globs {
		matches, err := filepath.Glob(filepath.Join(root, pattern))
		if err != nil {
			return nil, jerr.Wrap(jerr.InvalidArgument, err, "invalid config glob %q", pattern)
		}
		for _, match := range matches {
			data, err := os.ReadFile(match)
			if err != nil {
				continue
			}
			rel, err := filepath.Rel(root, match)
			if err != nil {
				rel = match
			}
			configs[rel] = string(data)
		}
	}
	return configs, nil
}

// captureEnv returns environ's KEY=VALUE pairs, filtering out any
// variable whose name matches an exclude pattern.
func captureEnv(environ, excludePatterns []string) map[string]string {
	if environ == nil {
		environ = os.Environ()
	}
	excludes := make([]*regexp.Regexp, 0, len(excludePatterns))
	for _, p := range excludePatterns {
		if re, err := regexp.Compile(p); err == nil {
			excludes = append(excludes, re)
		}
	}

	out := map[string]string{}
	for _, kv := range environ {
		idx := strings.IndexByte(kv, '=')
		if idx < 0 {
			continue
		}
		key, val := kv[:idx], kv[idx+1:]
		excluded := false
		for _, re := range excludes {
			if re.MatchString(key) {
				excluded = true
				break
			}
		}
		if !excluded {
			out[key] = val
		}
	}
	return out
}

// captureVersions runs each probe's command with a bounded timeout,
// recording stdout (or the first regex capture group) on success and
// the literal "not available" on failure or timeout.
func captureVersions(ctx context.Context, probes []jconfig.VersionProbe) map[string]string {
	out := make(map[string]string, len(probes))
	for _, probe := range probes {
		out[probe.Name] = runVersionProbe(ctx, probe)
	}
	return out
}

func runVersionProbe(ctx context.Context, probe jconfig.VersionProbe) string {
	fields := strings.Fields(probe.Command)
	if len(fields) == 0 {
		return "not available"
	}

	probeCtx, cancel := context.WithTimeout(ctx, versionProbeTimeout)
	defer cancel()

	cmd := exec.CommandContext(probeCtx, fields[0], fields[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "not available"
	}

	output := strings.TrimSpace(stdout.String())
	if probe.CaptureRegex == "" {
		return output
	}

	re, err := regexp.Compile(probe.CaptureRegex)
	if err != nil {
		return output
	}
	m := re.FindStringSubmatch(output)
	if len(m) < 2 {
		return "not available"
	}
	return m[1]
}

// listBuildDir returns every path under buildDir, relative to it, in
// a stable order.
func listBuildDir(buildDir string) ([]string, error) {
	var listing []string
	err := filepath.WalkDir(buildDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == buildDir {
			return nil
		}
		rel, relErr := filepath.Rel(buildDir, path)
		if relErr != nil {
			rel = path
		}
		listing = append(listing, rel)
		return nil
	})
	if err != nil {
		return nil, jerr.Wrap(jerr.IoFailure, err, "list build dir %s", buildDir)
	}
	return listing, nil
}
