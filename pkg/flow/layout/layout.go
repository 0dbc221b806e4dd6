// Package layout computes node coordinates from graph topology alone. The
// default engine is layered, flowing left to right along edge direction.
package layout

import (
	"context"
	"log/slog"

	"github.com/pipeboard/pipeboard/pkg/flow"
	pblog "github.com/pipeboard/pipeboard/pkg/log"
	"github.com/pipeboard/pipeboard/pkg/store"
)

// Engine computes a full set of node positions for a graph. Implementations
// must be a function of topology only, never of prior positions.
type Engine interface {
	Layout(ctx context.Context, nodes []flow.Node, edges []flow.Edge) ([]flow.Node, error)
}

// Measurer reports a node's real rendered height, when one is available, so
// nodes can be vertically centered on their layout slot. The zero measurer
// (nil) means "unknown", which leaves nodes top-aligned.
type Measurer interface {
	Height(nodeID string) (float64, bool)
}

// NeedsLayout reports whether any node in the set has no cached position.
// Layout runs only then; placed nodes are never re-laid-out implicitly.
func NeedsLayout(nodes []flow.Node, positions map[string]store.Position) bool {
	for i := range nodes {
		if _, ok := positions[nodes[i].ID]; !ok {
			return true
		}
	}

	return false
}

// Apply runs the engine and shields the render path from its failures: on
// error the original node list is returned unmodified, positions intact. The
// second result reports whether the engine's positions were applied, so
// callers know when to persist them.
func Apply(ctx context.Context, engine Engine, nodes []flow.Node, edges []flow.Edge) ([]flow.Node, bool) {
	laidOut, err := engine.Layout(ctx, nodes, edges)
	if err != nil {
		logger().Error("auto-layout failed", "error", err, "nodes", len(nodes))

		return nodes, false
	}

	return laidOut, true
}

func logger() *slog.Logger {
	return pblog.WithModule("layout")
}
