package engine

import (
	"context"

	"github.com/anthropics/labjournal/internal/codec"
	"github.com/anthropics/labjournal/internal/jerr"
)

// CausalityDirection selects which edge direction trace_causality walks.
type CausalityDirection string

const (
	DirectionBackward CausalityDirection = "backward"
	DirectionForward  CausalityDirection = "forward"
	DirectionBoth     CausalityDirection = "both"
)

// maxCausalityDepth hard-caps trace_causality's BFS regardless of the
// caller-requested depth, per spec.md §4.6.
const maxCausalityDepth = 10

// CausalityNode summarizes one visited entry in a causality trace.
type CausalityNode struct {
	EntryID  string
	Author   string
	Context  string
	CausedBy []string // this entry's own caused_by edges
	Depth    int
}

// TraceCausality walks the caused_by graph from entryID. backward
// follows entryID's own caused_by edges; forward follows entries that
// name entryID in theirs; both returns the union of both BFS walks. A
// visited set guards against cycles; depth is hard-capped.
func (e *Engine) TraceCausality(ctx context.Context, entryID string, direction CausalityDirection, depth int) ([]CausalityNode, error) {
	if depth <= 0 || depth > maxCausalityDepth {
		depth = maxCausalityDepth
	}

	root, err := e.idx.Get(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, jerr.New(jerr.NotFound, "trace_causality: entry %q not found", entryID)
	}

	var nodes []CausalityNode

	if direction == DirectionBackward || direction == DirectionBoth {
		backNodes, err := e.bfsCausality(ctx, root, depth, true)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, backNodes...)
	}
	if direction == DirectionForward || direction == DirectionBoth {
		fwdNodes, err := e.bfsCausality(ctx, root, depth, false)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, fwdNodes...)
	}

	return nodes, nil
}

// bfsCausality walks the caused_by graph from root out to depth levels.
// backward=true follows root's own CausedBy ids; backward=false follows
// ReferencingCausedBy (entries that name the current node).
func (e *Engine) bfsCausality(ctx context.Context, root *codec.Entry, depth int, backward bool) ([]CausalityNode, error) {
	visited := map[string]bool{root.ID: true}
	frontier := []*codec.Entry{root}
	var nodes []CausalityNode

	for level := 0; level < depth && len(frontier) > 0; level++ {
		var next []*codec.Entry
		for _, cur := range frontier {
			var neighbors []*codec.Entry
			if backward {
				for _, id := range cur.CausedBy {
					n, err := e.idx.Get(ctx, id)
					if err != nil {
						return nil, err
					}
					if n != nil {
						neighbors = append(neighbors, n)
					}
				}
			} else {
				ns, err := e.idx.ReferencingCausedBy(ctx, cur.ID)
				if err != nil {
					return nil, err
				}
				neighbors = ns
			}

			for _, n := range neighbors {
				if visited[n.ID] {
					continue
				}
				visited[n.ID] = true
				nodes = append(nodes, CausalityNode{
					EntryID: n.ID, Author: n.Author, Context: n.Context,
					CausedBy: n.CausedBy, Depth: level + 1,
				})
				next = append(next, n)
			}
		}
		frontier = next
	}

	return nodes, nil
}
