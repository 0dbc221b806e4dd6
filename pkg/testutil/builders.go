// Package testutil provides test data builders for canvas entities.
package testutil

import (
	"time"

	"github.com/google/uuid"
	"github.com/pipeboard/pipeboard/pkg/models"
)

// CreateTestCanvas creates a canvas with default values that can be overridden.
func CreateTestCanvas(overrides ...func(*models.Canvas)) models.Canvas {
	canvas := models.Canvas{
		ID:             uuid.New().String(),
		Name:           "test-canvas",
		OrganizationID: uuid.New().String(),
	}

	for _, override := range overrides {
		override(&canvas)
	}

	return canvas
}

// CreateTestStage creates a stage with default values that can be overridden.
func CreateTestStage(overrides ...func(*models.Stage)) models.Stage {
	stage := models.Stage{
		ID:   uuid.New().String(),
		Name: "test-stage",
		Spec: models.StageSpec{
			Executor: models.ExecutorSpec{
				Type: models.ExecutorTypeHTTP,
				HTTP: &models.HTTPExecutorSpec{URL: "https://example.com/run"},
			},
			Connections: []models.Connection{},
			Conditions:  []models.Condition{},
			Inputs:      []models.InputDefinition{},
			Outputs:     []models.OutputDefinition{},
		},
		Queue: []models.StageEvent{},
	}

	for _, override := range overrides {
		override(&stage)
	}

	return stage
}

// WithStageName sets the stage name.
func WithStageName(name string) func(*models.Stage) {
	return func(s *models.Stage) {
		s.Name = name
	}
}

// WithConnections sets the stage's upstream connections.
func WithConnections(connections ...models.Connection) func(*models.Stage) {
	return func(s *models.Stage) {
		s.Spec.Connections = connections
	}
}

// WithApprovalCondition gates the stage on the given approval count.
func WithApprovalCondition(count int) func(*models.Stage) {
	return func(s *models.Stage) {
		s.Spec.Conditions = append(s.Spec.Conditions, models.Condition{
			Type:     models.ConditionTypeApproval,
			Approval: &models.ApprovalCondition{Count: count},
		})
	}
}

// WithQueue sets the stage's event queue.
func WithQueue(queue ...models.StageEvent) func(*models.Stage) {
	return func(s *models.Stage) {
		s.Queue = queue
	}
}

// CreateTestEventSource creates an event source with default values that can
// be overridden.
func CreateTestEventSource(overrides ...func(*models.EventSource)) models.EventSource {
	source := models.EventSource{
		ID:     uuid.New().String(),
		Name:   "test-source",
		Type:   "github",
		Events: []models.Event{},
	}

	for _, override := range overrides {
		override(&source)
	}

	return source
}

// WithSourceName sets the event source name.
func WithSourceName(name string) func(*models.EventSource) {
	return func(es *models.EventSource) {
		es.Name = name
	}
}

// WithEvents sets the source's observed events.
func WithEvents(events ...models.Event) func(*models.EventSource) {
	return func(es *models.EventSource) {
		es.Events = events
	}
}

// CreateTestStageEvent creates a pending stage event with default values
// that can be overridden.
func CreateTestStageEvent(overrides ...func(*models.StageEvent)) models.StageEvent {
	now := time.Now().UTC()

	event := models.StageEvent{
		ID:        uuid.New().String(),
		SourceID:  uuid.New().String(),
		CreatedAt: &now,
		State:     models.StageEventStatePending,
	}

	for _, override := range overrides {
		override(&event)
	}

	return event
}

// WithState sets the stage event state.
func WithState(state string) func(*models.StageEvent) {
	return func(e *models.StageEvent) {
		e.State = state
	}
}

// WithRunningExecution attaches a started execution to the event.
func WithRunningExecution() func(*models.StageEvent) {
	return func(e *models.StageEvent) {
		now := time.Now().UTC()
		e.State = models.StageEventStateProcessed
		e.Execution = &models.Execution{
			ID:        uuid.New().String(),
			State:     models.ExecutionStarted,
			StartedAt: &now,
		}
	}
}
