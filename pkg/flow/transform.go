package flow

import (
	"github.com/pipeboard/pipeboard/pkg/models"
	"github.com/pipeboard/pipeboard/pkg/store"
)

// Fallback geometry used before auto-layout has produced a real position.
// It only exists to avoid a zero position on first render.
const (
	fallbackStageXSpacing  = 600
	fallbackStageYSpacing  = 400
	fallbackSourceYSpacing = 320
)

const noEventTimestamp = "n/a"

const lastEventLayout = "2006-01-02 15:04:05"

// EventSourcesToNodes maps every event source to exactly one node.
func EventSourcesToNodes(sources []models.EventSource, positions map[string]store.Position) []Node {
	nodes := make([]Node, 0, len(sources))

	for idx, source := range sources {
		lastEventAt := noEventTimestamp
		if last := source.LastEvent(); last != nil && last.CreatedAt != nil {
			lastEventAt = last.CreatedAt.Format(lastEventLayout)
		}

		position, ok := positions[source.ID]
		if !ok {
			position = store.Position{X: 0, Y: float64(idx) * fallbackSourceYSpacing}
		}

		nodes = append(nodes, Node{
			ID:        source.ID,
			Type:      NodeTypeEventSource,
			Position:  position,
			Draggable: true,
			EventSource: &EventSourceData{
				ID:          source.ID,
				Name:        source.Name,
				LastEventAt: lastEventAt,
			},
		})
	}

	return nodes
}

// StagesToNodes maps every stage to exactly one node, binding the approve
// callback to the stage's id.
func StagesToNodes(stages []models.Stage, positions map[string]store.Position, approve ApproveFunc) []Node {
	nodes := make([]Node, 0, len(stages))

	for idx, stage := range stages {
		position, ok := positions[stage.ID]
		if !ok {
			connections := len(stage.Spec.Connections)
			if connections < 1 {
				connections = 1
			}

			position = store.Position{
				X: float64(fallbackStageXSpacing * connections),
				Y: float64((idx - 1) * fallbackStageYSpacing),
			}
		}

		stageID := stage.ID

		nodes = append(nodes, Node{
			ID:        stage.ID,
			Type:      NodeTypeStage,
			Position:  position,
			Draggable: true,
			Stage: &StageData{
				Label:       stage.Name,
				Queue:       stage.Queue,
				Connections: stage.Spec.Connections,
				Conditions:  stage.Spec.Conditions,
				Inputs:      stage.Spec.Inputs,
				Outputs:     stage.Spec.Outputs,
				Executor:    stage.Spec.Executor,
				Approve: func(event models.StageEvent) {
					if approve != nil {
						approve(event.ID, stageID)
					}
				},
			},
		})
	}

	return nodes
}

// ToEdges derives one edge per (connection, stage) pair. The edge id is a
// pure function of the connection name and stage id.
func ToEdges(stages []models.Stage, sources []models.EventSource) []Edge {
	edges := make([]Edge, 0)

	for i := range stages {
		stage := &stages[i]

		for _, connection := range stage.Spec.Connections {
			edges = append(edges, Edge{
				ID:       "e-" + connection.Name + "-" + stage.ID,
				Source:   resolveConnectionSource(connection.Name, sources, stages),
				Target:   stage.ID,
				Type:     EdgeTypeBezier,
				Animated: true,
			})
		}
	}

	return edges
}

// resolveConnectionSource resolves a connection's logical name to an entity
// id: event sources first, then stages, first match wins. An unresolved name
// is used verbatim as the source id, producing a dangling edge rather than
// an error.
//
// This is the single place name-based resolution happens; duplicate names
// silently resolve to the first match.
func resolveConnectionSource(name string, sources []models.EventSource, stages []models.Stage) string {
	for i := range sources {
		if sources[i].Name == name {
			return sources[i].ID
		}
	}

	for i := range stages {
		if stages[i].Name == name {
			return stages[i].ID
		}
	}

	return name
}
