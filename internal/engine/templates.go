package engine

import (
	"sort"

	"github.com/anthropics/labjournal/internal/jconfig"
	"github.com/anthropics/labjournal/internal/jerr"
)

// ListTemplates returns every configured template, sorted by name. It
// generalizes GoClode's `intents` table — a named, priority-ordered,
// hot-reloadable rule set — from "intent pattern -> action" to
// "template name -> required field set".
func (e *Engine) ListTemplates() []jconfig.Template {
	out := append([]jconfig.Template(nil), e.config().Templates...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// GetTemplate looks up name, failing with TemplateNotFound when absent.
func (e *Engine) GetTemplate(name string) (jconfig.Template, error) {
	t, ok := e.config().Template(name)
	if !ok {
		return jconfig.Template{}, jerr.New(jerr.TemplateNotFound, "template %q not found", name)
	}
	return t, nil
}

// requiredFieldValue returns the textual value of an AppendRequest field
// named by a template's required_fields entry, for validating that
// field is present. Field names match the markdown heading vocabulary
// (lowercased, underscored): context, intent, action, observation,
// analysis, next_steps, outcome, tool, command, error_type.
func requiredFieldValue(req AppendRequest, field string) string {
	switch field {
	case "context":
		return req.Context
	case "intent":
		return req.Intent
	case "action":
		return req.Action
	case "observation":
		return req.Observation
	case "analysis":
		return req.Analysis
	case "next_steps":
		return req.NextSteps
	case "outcome":
		return string(req.Outcome)
	case "tool":
		return req.Tool
	case "command":
		return req.Command
	case "error_type":
		return req.ErrorType
	default:
		return ""
	}
}
