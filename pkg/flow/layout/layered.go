package layout

import (
	"context"
	"math/rand/v2"

	"github.com/pipeboard/pipeboard/pkg/flow"
	"github.com/pipeboard/pipeboard/pkg/store"
)

// The layout works on a fixed box per node; real rendered sizes are only
// consulted afterwards, through the Measurer.
const (
	NodeBoxWidth  = 350.0
	NodeBoxHeight = 250.0

	layerSpacing = 100.0
	nodeSpacing  = 80.0
)

// Layered assigns nodes to layers along edge direction and stacks each
// layer vertically, producing a left-to-right hierarchical layout.
type Layered struct {
	measurer Measurer
}

type LayeredOption func(*Layered)

// WithMeasurer centers nodes vertically on their slot using real rendered
// heights.
func WithMeasurer(measurer Measurer) LayeredOption {
	return func(l *Layered) {
		l.measurer = measurer
	}
}

func NewLayered(opts ...LayeredOption) *Layered {
	layered := &Layered{}
	for _, opt := range opts {
		opt(layered)
	}

	return layered
}

func (l *Layered) Layout(ctx context.Context, nodes []flow.Node, edges []flow.Edge) ([]flow.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	layers := assignLayers(nodes, edges)

	// Row within a layer follows input order, keeping the result
	// deterministic for identical input.
	rows := make(map[string]int, len(nodes))
	perLayer := make(map[int]int)

	for i := range nodes {
		layer := layers[nodes[i].ID]
		rows[nodes[i].ID] = perLayer[layer]
		perLayer[layer]++
	}

	laidOut := make([]flow.Node, len(nodes))

	for i := range nodes {
		node := nodes[i]

		height := 0.0
		if l.measurer != nil {
			if measured, ok := l.measurer.Height(node.ID); ok {
				height = measured
			}
		}

		node.Position = store.Position{
			// The sub-pixel jitter guarantees downstream change detection
			// fires even when the computed position is numerically unchanged.
			X: float64(layers[node.ID])*(NodeBoxWidth+layerSpacing) + rand.Float64()/1000,
			Y: float64(rows[node.ID])*(NodeBoxHeight+nodeSpacing) - height/2,
		}

		laidOut[i] = node
	}

	return laidOut, nil
}

// assignLayers computes a longest-path layering: a node sits one layer to
// the right of its furthest upstream dependency. Edges whose endpoints are
// not both in the node set (dangling connections) are ignored, and nodes on
// a cycle keep the layer they had when the cycle was detected.
func assignLayers(nodes []flow.Node, edges []flow.Edge) map[string]int {
	present := make(map[string]bool, len(nodes))
	for i := range nodes {
		present[nodes[i].ID] = true
	}

	outgoing := make(map[string][]string)
	indegree := make(map[string]int, len(nodes))

	for i := range nodes {
		indegree[nodes[i].ID] = 0
	}

	for _, edge := range edges {
		if !present[edge.Source] || !present[edge.Target] {
			continue
		}

		outgoing[edge.Source] = append(outgoing[edge.Source], edge.Target)
		indegree[edge.Target]++
	}

	layers := make(map[string]int, len(nodes))

	queue := make([]string, 0, len(nodes))
	for i := range nodes {
		if indegree[nodes[i].ID] == 0 {
			queue = append(queue, nodes[i].ID)
		}
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		for _, target := range outgoing[id] {
			if layers[id]+1 > layers[target] {
				layers[target] = layers[id] + 1
			}

			indegree[target]--
			if indegree[target] == 0 {
				queue = append(queue, target)
			}
		}
	}

	return layers
}
