package commands

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/anthropics/labjournal/internal/engine"
	"github.com/anthropics/labjournal/internal/jconfig"
)

// resolvedConfigPath returns the journal.yaml path the running engine
// was opened with, or "" if none exists to watch.
func resolvedConfigPath() string {
	if configPath != "" {
		return configPath
	}
	candidate := filepath.Join(rootPath, "journal.yaml")
	if _, err := os.Stat(candidate); err != nil {
		return ""
	}
	return candidate
}

// watchConfig hot-reloads eng's configuration whenever path is
// rewritten, grounded on the teacher's core.Engine.WatchFile: one
// fsnotify.Watcher goroutine that stops when ctx is done. The reload
// swaps in a freshly parsed *jconfig.Config via Engine.SetConfig, which
// guards the replacement against concurrent reads from in-flight
// operations.
func watchConfig(ctx context.Context, eng *engine.Engine, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&fsnotify.Write == fsnotify.Write {
					reloadConfig(eng, path)
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return nil
}

func reloadConfig(eng *engine.Engine, path string) {
	fresh, err := jconfig.Load(path)
	if err != nil {
		return
	}
	eng.SetConfig(fresh)
}
