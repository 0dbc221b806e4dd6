// Package flow derives the renderable node/edge graph from the domain
// entities. Everything here is a pure function of its inputs: identical
// input yields structurally identical output, so re-renders can be skipped
// upstream by cheap comparison.
package flow

import (
	"github.com/pipeboard/pipeboard/pkg/models"
	"github.com/pipeboard/pipeboard/pkg/store"
)

type NodeType string

const (
	NodeTypeEventSource NodeType = "event_source"
	NodeTypeStage       NodeType = "stage"
)

// ApproveFunc forwards an approve action to the store's entry point.
type ApproveFunc func(eventID, stageID string)

// EventSourceData is the render payload of an event source node.
type EventSourceData struct {
	ID   string
	Name string
	// LastEventAt is the formatted timestamp of the most recent observed
	// event, or "n/a" when the source has none.
	LastEventAt string
}

// StageData is the render payload of a stage node.
type StageData struct {
	Label       string
	Queue       []models.StageEvent
	Connections []models.Connection
	Conditions  []models.Condition
	Inputs      []models.InputDefinition
	Outputs     []models.OutputDefinition
	Executor    models.ExecutorSpec
	// Approve is bound to the owning stage: callers pass only the event.
	Approve func(event models.StageEvent)
}

// Node is one renderable element of the canvas graph.
type Node struct {
	ID        string
	Type      NodeType
	Position  store.Position
	Draggable bool

	EventSource *EventSourceData
	Stage       *StageData
}

// Edge connects an upstream entity to a stage. IDs are deterministic so
// repeated transforms yield byte-identical edges for diffing stability.
type Edge struct {
	ID       string
	Source   string
	Target   string
	Type     string
	Animated bool
}

const EdgeTypeBezier = "bezier"
