// Package rpc is the JSON-RPC tool surface the engine's operations are
// exposed through to agent clients. The envelope (named operation plus
// a json.RawMessage payload in, a discriminated success/error body out)
// is grounded on the untoldecay/BeadsLog rpc protocol's Request/Response
// shape, the clearest example of a tool-dispatch JSON-RPC layer in the
// retrieval pack.
package rpc

import (
	"context"
	"encoding/json"

	"github.com/anthropics/labjournal/internal/engine"
	"github.com/anthropics/labjournal/internal/jerr"
)

// Request is one JSON-RPC call: a named tool plus its params.
type Request struct {
	Tool   string          `json:"tool"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response is the tool surface's uniform reply envelope. On success,
// Result carries the tool's own result type; on failure, Error names the
// jerr.Kind and Message is human-readable, per spec.md §7's
// {status, error, message} body.
type Response struct {
	Status  string          `json:"status"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   string          `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
}

// handlerFunc decodes params, calls the engine, and returns a value to
// be marshaled into Result.
type handlerFunc func(ctx context.Context, e *engine.Engine, params json.RawMessage) (interface{}, error)

// Server dispatches named tool calls onto an *engine.Engine.
type Server struct {
	eng      *engine.Engine
	handlers map[string]handlerFunc
}

// NewServer builds a Server wired to eng, registering every tool
// operation named in spec.md §6's tool list.
func NewServer(eng *engine.Engine) *Server {
	s := &Server{eng: eng, handlers: map[string]handlerFunc{}}
	s.registerJournalTools()
	s.registerArtifactTools()
	s.registerMetaTools()
	return s
}

// Dispatch decodes req.Params into the named tool's handler, runs it,
// and always returns a well-formed Response — Dispatch itself only
// errors on a request it cannot even route (unknown tool), and even
// then it still returns a Response rather than a Go error, because that
// is the one response shape JSON-RPC clients can render.
func (s *Server) Dispatch(ctx context.Context, req Request) Response {
	h, ok := s.handlers[req.Tool]
	if !ok {
		return errorResponse(jerr.New(jerr.InvalidArgument, "unknown tool %q", req.Tool))
	}

	result, err := h(ctx, s.eng, req.Params)
	if err != nil {
		return errorResponse(err)
	}

	data, err := json.Marshal(result)
	if err != nil {
		return errorResponse(jerr.Wrap(jerr.IoFailure, err, "marshal result for %q", req.Tool))
	}
	return Response{Status: "ok", Result: data}
}

func errorResponse(err error) Response {
	return Response{Status: "error", Error: string(jerr.KindOf(err)), Message: err.Error()}
}

func decodeParams(params json.RawMessage, dest interface{}) error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, dest); err != nil {
		return jerr.Wrap(jerr.InvalidArgument, err, "decode params")
	}
	return nil
}
