// Package engine is the journal façade: the single entry point that
// owns the index database handle, the artifact manager, the hook
// registry, and the template registry, and turns the tool operations
// in spec.md §4.6 into calls across internal/codec, internal/index,
// internal/artifact and internal/fsutil.
package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/anthropics/labjournal/internal/artifact"
	"github.com/anthropics/labjournal/internal/clock"
	"github.com/anthropics/labjournal/internal/codec"
	"github.com/anthropics/labjournal/internal/fsutil"
	"github.com/anthropics/labjournal/internal/index"
	"github.com/anthropics/labjournal/internal/jconfig"
	"github.com/anthropics/labjournal/internal/jerr"
)

// entryIDPattern is the exact entry_id grammar from spec.md §6.
var entryIDPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}-\d{3,}$`)

// Engine owns exactly one *sql.DB handle (via Index) and the advisory
// locks on the daily files, config archives, logs, and snapshots that
// share its project root. One Engine per project root is the supported
// shape; multiple processes coordinate only through file locks.
type Engine struct {
	root string
	dirs jconfig.RootedDirs

	cfgMu sync.RWMutex
	cfg   *jconfig.Config

	clock clock.Clock
	alloc *clock.Allocator

	idx       *index.Index
	artifacts *artifact.Manager
	hooks     *HookRegistry
	tools     map[string]CustomTool

	lockTimeout time.Duration
	log         *logrus.Logger
}

// New opens (creating if necessary) the index database and builds the
// artifact manager under root's configured subtrees. The caller owns
// cfg and clk; clk defaults to clock.System{} when nil.
func New(root string, cfg *jconfig.Config, clk clock.Clock, log *logrus.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = jconfig.Default()
	}
	if clk == nil {
		clk = clock.System{}
	}
	if log == nil {
		log = logrus.New()
	}

	dirs := cfg.Resolve(root)

	for _, dir := range []string{dirs.Journal, dirs.Configs, dirs.Logs, dirs.Snapshots} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, jerr.Wrap(jerr.IoFailure, err, "create project subtree %s", dir)
		}
	}

	idx, err := index.Open(filepath.Join(dirs.Journal, ".index.db"), log)
	if err != nil {
		return nil, err
	}

	mgr := artifact.New(dirs.Configs, dirs.Logs, dirs.Snapshots, log)

	return &Engine{
		root:        root,
		dirs:        dirs,
		cfg:         cfg,
		clock:       clk,
		alloc:       clock.NewAllocator(clk),
		idx:         idx,
		artifacts:   mgr,
		hooks:       NewHookRegistry(),
		tools:       map[string]CustomTool{},
		lockTimeout: fsutil.DefaultLockTimeout,
		log:         log,
	}, nil
}

// Close checkpoints and closes the index database handle.
func (e *Engine) Close() error {
	return e.idx.Close()
}

// Config returns the engine's resolved configuration record. The
// returned value is a point-in-time snapshot; callers that hold onto
// it across a SetConfig (e.g. the CLI's config hot-reload) see the
// config as of this call, not later ones.
func (e *Engine) Config() *jconfig.Config {
	e.cfgMu.RLock()
	defer e.cfgMu.RUnlock()
	return e.cfg
}

// SetConfig atomically replaces the engine's configuration record,
// guarding against concurrent reads from in-flight operations. Used by
// the CLI's fsnotify-driven hot-reload.
func (e *Engine) SetConfig(cfg *jconfig.Config) {
	e.cfgMu.Lock()
	defer e.cfgMu.Unlock()
	e.cfg = cfg
}

// config returns the current config for internal use, under the same
// lock Config()/SetConfig() use.
func (e *Engine) config() *jconfig.Config {
	e.cfgMu.RLock()
	defer e.cfgMu.RUnlock()
	return e.cfg
}

// Index exposes the secondary index for callers (CLI, RPC) that need
// read-only access beyond the façade's own operations.
func (e *Engine) Index() *index.Index { return e.idx }

// Artifacts exposes the artifact manager for the same reason.
func (e *Engine) Artifacts() *artifact.Manager { return e.artifacts }

// RegisterHook adds h to the registry for event, at the given priority
// (lower runs first). Hook and CustomTool implementations are
// constructed and owned by the embedding program; the engine only
// dispatches to them.
func (e *Engine) RegisterHook(event string, priority int, h Hook) {
	e.hooks.Register(event, priority, h)
}

// RegisterCustomTool makes t available under its own Name() for the
// custom-version and custom-handoff extension points.
func (e *Engine) RegisterCustomTool(t CustomTool) {
	e.tools[t.Name()] = t
}

func (e *Engine) dailyFilePath(date string) string {
	return filepath.Join(e.dirs.Journal, date+".md")
}

// resolveDateToken expands the "today"/"yesterday" shorthands the CLI
// and RPC surface accept; any other value is assumed to already be a
// literal YYYY-MM-DD and is validated downstream by internal/index.
func (e *Engine) resolveDateToken(token string) string {
	switch token {
	case "today":
		return e.alloc.Today()
	case "yesterday":
		return e.clock.Now().AddDate(0, 0, -1).Format("2006-01-02")
	default:
		return token
	}
}

// dateRange enumerates YYYY-MM-DD dates from from to to inclusive.
func dateRange(from, to string) ([]string, error) {
	start, err := time.Parse("2006-01-02", from)
	if err != nil {
		return nil, jerr.Wrap(jerr.InvalidArgument, err, "invalid date_from %q", from)
	}
	end, err := time.Parse("2006-01-02", to)
	if err != nil {
		return nil, jerr.Wrap(jerr.InvalidArgument, err, "invalid date_to %q", to)
	}
	if end.Before(start) {
		return nil, jerr.New(jerr.InvalidArgument, "date_to %q is before date_from %q", to, from)
	}

	var dates []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format("2006-01-02"))
	}
	return dates, nil
}

func (e *Engine) logOp(op string, fields logrus.Fields, start time.Time) {
	if fields == nil {
		fields = logrus.Fields{}
	}
	fields["op"] = op
	fields["duration_ms"] = time.Since(start).Milliseconds()
	e.log.WithFields(fields).Info(fmt.Sprintf("%s complete", op))
}
