package rpc

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/anthropics/labjournal/internal/engine"
)

func (s *Server) registerMetaTools() {
	s.handlers["rebuild_artifact_index"] = handleRebuildArtifactIndex
	s.handlers["rebuild_index"] = handleRebuildIndex
	s.handlers["list_templates"] = handleListTemplates
	s.handlers["get_template"] = handleGetTemplate
	s.handlers["help"] = handleHelp
}

type rebuildArtifactIndexParams struct {
	Kind string `json:"kind"`
}

func handleRebuildArtifactIndex(ctx context.Context, e *engine.Engine, raw json.RawMessage) (interface{}, error) {
	var p rebuildArtifactIndexParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	if err := e.RebuildArtifactIndex(ctx, p.Kind); err != nil {
		return nil, err
	}
	return struct {
		Kind string `json:"kind"`
	}{Kind: p.Kind}, nil
}

func handleRebuildIndex(ctx context.Context, e *engine.Engine, raw json.RawMessage) (interface{}, error) {
	return e.RebuildIndex(ctx, nil)
}

func handleListTemplates(ctx context.Context, e *engine.Engine, raw json.RawMessage) (interface{}, error) {
	return e.ListTemplates(), nil
}

type getTemplateParams struct {
	Name string `json:"name"`
}

func handleGetTemplate(ctx context.Context, e *engine.Engine, raw json.RawMessage) (interface{}, error) {
	var p getTemplateParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	return e.GetTemplate(p.Name)
}

// helpResult describes the whole tool surface, so an agent client can
// discover it without out-of-band documentation.
type helpResult struct {
	Tools []string `json:"tools"`
}

func handleHelp(ctx context.Context, e *engine.Engine, raw json.RawMessage) (interface{}, error) {
	return helpResult{Tools: toolNames}, nil
}

// toolNames is the fixed tool list from spec.md §6, kept sorted for a
// stable help response.
var toolNames = func() []string {
	names := []string{
		"append", "amend", "read", "query", "search", "stats", "active",
		"archive_config", "activate_config", "diff_config", "preserve_log",
		"state_snapshot", "timeline", "trace_causality", "session_handoff",
		"rebuild_artifact_index", "rebuild_index", "list_templates", "get_template", "help",
	}
	sort.Strings(names)
	return names
}()
