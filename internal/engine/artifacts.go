package engine

import (
	"context"
	"time"

	"github.com/anthropics/labjournal/internal/artifact"
	"github.com/anthropics/labjournal/internal/index"
)

// ArchiveConfig wraps artifact.Manager.ArchiveConfig with pre/post_archive
// hook emission.
func (e *Engine) ArchiveConfig(ctx context.Context, filePath, reason, journalEntry, stage string) (*artifact.ConfigArchive, error) {
	payload := map[string]interface{}{"file_path": filePath, "reason": reason, "stage": stage}
	if err := e.hooks.Emit(ctx, &HookContext{Event: EventPreArchive, Timestamp: e.clock.Now(), Payload: payload}); err != nil {
		return nil, err
	}

	archive, err := e.artifacts.ArchiveConfig(ctx, e.clock.Now(), filePath, reason, journalEntry, stage)
	if err != nil {
		return nil, err
	}

	if err := e.hooks.Emit(ctx, &HookContext{Event: EventPostArchive, Timestamp: e.clock.Now(), Payload: payload}); err != nil {
		return archive, err
	}
	return archive, nil
}

// ActivateConfig wraps artifact.Manager.ActivateConfig.
func (e *Engine) ActivateConfig(ctx context.Context, archivePath, targetPath, reason, journalEntry string) (*artifact.ActivateResult, error) {
	return e.artifacts.ActivateConfig(ctx, e.clock.Now(), archivePath, targetPath, reason, journalEntry)
}

// DiffConfig delegates to artifact.DiffConfig.
func (e *Engine) DiffConfig(pathA, pathB string) ([]artifact.DiffLine, error) {
	return artifact.DiffConfig(pathA, pathB)
}

// PreserveLog wraps artifact.Manager.PreserveLog with pre/post_preserve
// hook emission.
func (e *Engine) PreserveLog(ctx context.Context, filePath, category string, outcome artifact.LogOutcome) (*artifact.LogRecord, error) {
	payload := map[string]interface{}{"file_path": filePath, "category": category, "outcome": string(outcome)}
	if err := e.hooks.Emit(ctx, &HookContext{Event: EventPrePreserve, Timestamp: e.clock.Now(), Payload: payload}); err != nil {
		return nil, err
	}

	record, err := e.artifacts.PreserveLog(ctx, e.clock.Now(), filePath, category, outcome)
	if err != nil {
		return nil, err
	}

	if err := e.hooks.Emit(ctx, &HookContext{Event: EventPostPreserve, Timestamp: e.clock.Now(), Payload: payload}); err != nil {
		return record, err
	}
	return record, nil
}

// StateSnapshot wraps artifact.Manager.StateSnapshot. When a
// "custom_version" CustomTool is registered, its output is merged into
// the captured versions map, letting the embedding program add
// version-probe logic the static jconfig.VersionProbe list can't
// express (e.g. querying a running daemon).
func (e *Engine) StateSnapshot(ctx context.Context, req artifact.SnapshotRequest) (*artifact.Snapshot, error) {
	snap, err := e.artifacts.StateSnapshot(ctx, e.clock.Now(), req)
	if err != nil {
		return nil, err
	}

	if tool, ok := e.tools["custom_version"]; ok {
		extra, err := tool.Invoke(ctx, map[string]interface{}{"snapshot_name": req.Name})
		if err == nil {
			if snap.Versions == nil {
				snap.Versions = map[string]string{}
			}
			for k, v := range extra {
				if s, ok := v.(string); ok {
					snap.Versions[k] = s
				}
			}
		}
	}

	return snap, nil
}

// RebuildIndex rebuilds the secondary index from the daily files,
// reporting per-file progress via progress.
func (e *Engine) RebuildIndex(ctx context.Context, progress index.ProgressFunc) (*index.RebuildResult, error) {
	return e.idx.Rebuild(ctx, e.dirs.Journal, progress)
}

// RebuildArtifactIndex regenerates the INDEX.md for kind ("configs",
// "logs", or "snapshots") from the filesystem.
func (e *Engine) RebuildArtifactIndex(ctx context.Context, kind string) error {
	return e.artifacts.RebuildArtifactIndex(ctx, kind)
}

// Now returns the engine's clock's current instant, exposed for callers
// (CLI, RPC) that need a timestamp consistent with the engine's own.
func (e *Engine) Now() time.Time {
	return e.clock.Now()
}
