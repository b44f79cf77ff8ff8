package rpc

import (
	"context"
	"encoding/json"

	"github.com/anthropics/labjournal/internal/artifact"
	"github.com/anthropics/labjournal/internal/engine"
)

func (s *Server) registerArtifactTools() {
	s.handlers["archive_config"] = handleArchiveConfig
	s.handlers["activate_config"] = handleActivateConfig
	s.handlers["diff_config"] = handleDiffConfig
	s.handlers["preserve_log"] = handlePreserveLog
	s.handlers["state_snapshot"] = handleStateSnapshot
	s.handlers["timeline"] = handleTimeline
	s.handlers["trace_causality"] = handleTraceCausality
	s.handlers["session_handoff"] = handleSessionHandoff
}

type archiveConfigParams struct {
	FilePath     string `json:"file_path"`
	Reason       string `json:"reason"`
	JournalEntry string `json:"journal_entry,omitempty"`
	Stage        string `json:"stage,omitempty"`
}

func handleArchiveConfig(ctx context.Context, e *engine.Engine, raw json.RawMessage) (interface{}, error) {
	var p archiveConfigParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	return e.ArchiveConfig(ctx, p.FilePath, p.Reason, p.JournalEntry, p.Stage)
}

type activateConfigParams struct {
	ArchivePath  string `json:"archive_path"`
	TargetPath   string `json:"target_path"`
	Reason       string `json:"reason"`
	JournalEntry string `json:"journal_entry"`
}

func handleActivateConfig(ctx context.Context, e *engine.Engine, raw json.RawMessage) (interface{}, error) {
	var p activateConfigParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	return e.ActivateConfig(ctx, p.ArchivePath, p.TargetPath, p.Reason, p.JournalEntry)
}

type diffConfigParams struct {
	PathA string `json:"path_a"`
	PathB string `json:"path_b"`
}

func handleDiffConfig(ctx context.Context, e *engine.Engine, raw json.RawMessage) (interface{}, error) {
	var p diffConfigParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	return e.DiffConfig(p.PathA, p.PathB)
}

type preserveLogParams struct {
	FilePath string             `json:"file_path"`
	Category string             `json:"category"`
	Outcome  artifact.LogOutcome `json:"outcome"`
}

func handlePreserveLog(ctx context.Context, e *engine.Engine, raw json.RawMessage) (interface{}, error) {
	var p preserveLogParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	return e.PreserveLog(ctx, p.FilePath, p.Category, p.Outcome)
}

type stateSnapshotParams struct {
	Name                   string   `json:"name"`
	IncludeConfigs         bool     `json:"include_configs,omitempty"`
	IncludeEnv             bool     `json:"include_env,omitempty"`
	IncludeVersions        bool     `json:"include_versions,omitempty"`
	IncludeBuildDirListing bool     `json:"include_build_dir_listing,omitempty"`
	BuildDir               string   `json:"build_dir,omitempty"`
	ConfigGlobs            []string `json:"config_globs,omitempty"`
}

func handleStateSnapshot(ctx context.Context, e *engine.Engine, raw json.RawMessage) (interface{}, error) {
	var p stateSnapshotParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	cfg := e.Config()
	return e.StateSnapshot(ctx, artifact.SnapshotRequest{
		Name: p.Name, IncludeConfigs: p.IncludeConfigs, IncludeEnv: p.IncludeEnv,
		IncludeVersions: p.IncludeVersions, IncludeBuildDirListing: p.IncludeBuildDirListing,
		BuildDir:           p.BuildDir,
		ConfigGlobs:        firstNonEmpty(p.ConfigGlobs, cfg.ConfigGlobs),
		EnvExcludePatterns: cfg.EnvExcludePatterns,
		VersionProbes:      cfg.VersionProbes,
	})
}

func firstNonEmpty(a, b []string) []string {
	if len(a) > 0 {
		return a
	}
	return b
}

type timelineParams struct {
	DateFrom string `json:"date_from,omitempty"`
	DateTo   string `json:"date_to,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

func handleTimeline(ctx context.Context, e *engine.Engine, raw json.RawMessage) (interface{}, error) {
	var p timelineParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	return e.Timeline(ctx, p.DateFrom, p.DateTo, p.Limit)
}

type traceCausalityParams struct {
	EntryID   string                  `json:"entry_id"`
	Direction engine.CausalityDirection `json:"direction,omitempty"`
	Depth     int                     `json:"depth,omitempty"`
}

func handleTraceCausality(ctx context.Context, e *engine.Engine, raw json.RawMessage) (interface{}, error) {
	var p traceCausalityParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	if p.Direction == "" {
		p.Direction = engine.DirectionBoth
	}
	return e.TraceCausality(ctx, p.EntryID, p.Direction, p.Depth)
}

type sessionHandoffParams struct {
	DateFrom       string               `json:"date_from,omitempty"`
	DateTo         string               `json:"date_to,omitempty"`
	IncludeConfigs bool                 `json:"include_configs,omitempty"`
	IncludeLogs    bool                 `json:"include_logs,omitempty"`
	Format         engine.HandoffFormat `json:"format,omitempty"`
}

type sessionHandoffResult struct {
	Doc      *engine.SessionHandoff `json:"doc"`
	Markdown string                 `json:"markdown,omitempty"`
}

func handleSessionHandoff(ctx context.Context, e *engine.Engine, raw json.RawMessage) (interface{}, error) {
	var p sessionHandoffParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	doc, markdown, err := e.SessionHandoff(ctx, engine.SessionHandoffRequest{
		DateFrom: p.DateFrom, DateTo: p.DateTo,
		IncludeConfigs: p.IncludeConfigs, IncludeLogs: p.IncludeLogs, Format: p.Format,
	})
	if err != nil {
		return nil, err
	}
	return sessionHandoffResult{Doc: doc, Markdown: markdown}, nil
}
