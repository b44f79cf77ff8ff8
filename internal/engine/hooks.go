package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/anthropics/labjournal/internal/codec"
)

// Lifecycle event names the engine emits hooks for.
const (
	EventPreAppend     = "pre_append"
	EventPostAppend    = "post_append"
	EventPreArchive    = "pre_archive"
	EventPostArchive   = "post_archive"
	EventPrePreserve   = "pre_preserve"
	EventPostPreserve  = "post_preserve"
	EventCustomVersion = "custom_version"
	EventCustomHandoff = "custom_handoff"
)

// HookContext is passed to every Hook invocation. TraceID identifies one
// Emit call across all the hooks it runs, for correlating log lines.
// Entry is non-nil and mutable for pre_append (emitted for amendments
// too): a hook may
// adjust fields on it before the write happens. Payload carries
// operation-specific extras (e.g. the archive reason, the log category).
type HookContext struct {
	Event     string
	TraceID   string
	Timestamp time.Time
	Entry     *codec.Entry
	Payload   map[string]interface{}
}

// Hook is the engine's lifecycle extension point. The embedding program
// constructs implementations and registers them with Engine.RegisterHook;
// the engine only knows the interface.
//
// Unlike GoClode's original ModuleManager, whose hook failures were
// swallowed into a debug log, a Hook error here always propagates and
// aborts the in-flight operation — pre_append in particular leaves no
// trace per spec.md §4.6's failure semantics.
type Hook interface {
	Handle(ctx context.Context, hctx *HookContext) error
}

// HookFunc adapts a plain function to Hook.
type HookFunc func(ctx context.Context, hctx *HookContext) error

func (f HookFunc) Handle(ctx context.Context, hctx *HookContext) error { return f(ctx, hctx) }

// CustomTool is an opaque, named extension invoked at the
// custom_version / custom_handoff points. It is a pass-through: the
// engine stores it by name and calls it, nothing more.
type CustomTool interface {
	Name() string
	Invoke(ctx context.Context, payload map[string]interface{}) (map[string]interface{}, error)
}

type registeredHook struct {
	priority int
	hook     Hook
}

// HookRegistry is a priority-ordered, per-event hook table, adapted from
// GoClode's ModuleManager.hooks / Emit machinery (core/modules.go):
// same map[string][]registeredHook shape and ordered dispatch, retargeted
// from LLM-debug events onto journal lifecycle events.
type HookRegistry struct {
	mu    sync.RWMutex
	hooks map[string][]registeredHook
}

// NewHookRegistry builds an empty registry.
func NewHookRegistry() *HookRegistry {
	return &HookRegistry{hooks: map[string][]registeredHook{}}
}

// Register adds h under event at priority, keeping that event's handlers
// sorted ascending by priority (lower runs first).
func (r *HookRegistry) Register(event string, priority int, h Hook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks[event] = append(r.hooks[event], registeredHook{priority: priority, hook: h})
	sort.SliceStable(r.hooks[event], func(i, j int) bool {
		return r.hooks[event][i].priority < r.hooks[event][j].priority
	})
}

// Emit runs every hook registered for hctx.Event in priority order,
// stopping at and returning the first error. A hook raising is fatal
// for the caller's operation.
func (r *HookRegistry) Emit(ctx context.Context, hctx *HookContext) error {
	r.mu.RLock()
	hooks := append([]registeredHook(nil), r.hooks[hctx.Event]...)
	r.mu.RUnlock()

	if hctx.TraceID == "" {
		hctx.TraceID = uuid.New().String()
	}
	if hctx.Payload == nil {
		hctx.Payload = map[string]interface{}{}
	}

	for _, rh := range hooks {
		if err := rh.hook.Handle(ctx, hctx); err != nil {
			return err
		}
	}
	return nil
}
