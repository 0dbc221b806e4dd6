// Package simulator is an in-process canvas backend for development: the
// REST surface the client loads from, the per-canvas WebSocket stream, and
// a scripted event feed. It exists so a session has a live counterparty
// without a real deployment.
package simulator

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/google/uuid"
	"github.com/moogar0880/problems"
	"github.com/pipeboard/pipeboard/pkg/events"
	pblog "github.com/pipeboard/pipeboard/pkg/log"
	"github.com/pipeboard/pipeboard/pkg/models"
)

type Simulator struct {
	hub    *Hub
	app    *fiber.App
	logger *slog.Logger

	mu      sync.RWMutex
	canvas  models.Canvas
	stages  []models.Stage
	sources []models.EventSource
}

func New() *Simulator {
	simulator := &Simulator{
		hub:    NewHub(),
		logger: pblog.WithModule("simulator"),
	}

	simulator.seed()
	simulator.app = simulator.buildApp()

	return simulator
}

func (s *Simulator) CanvasID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.canvas.ID
}

// App exposes the REST surface for handler tests.
func (s *Simulator) App() *fiber.App {
	return s.app
}

// Handler serves both the REST API and the WebSocket stream on one mux.
func (s *Simulator) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws/", s.hub)
	mux.Handle("/", adaptor.FiberApp(s.app))

	return mux
}

func (s *Simulator) buildApp() *fiber.App {
	app := fiber.New()

	canvases := app.Group("/api/v1/canvases")
	canvases.Get("/:id", s.getCanvas)
	canvases.Get("/:id/stages", s.listStages)
	canvases.Get("/:id/event-sources", s.listEventSources)
	canvases.Get("/:id/stages/:stageId/events", s.listStageEvents)
	canvases.Post("/:id/stages/:stageId/events/:eventId/approve", s.approveStageEvent)

	return app
}

func (s *Simulator) getCanvas(c fiber.Ctx) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c.Params("id") != s.canvas.ID {
		return notFound(c, "canvas not found")
	}

	return c.JSON(s.canvas)
}

func (s *Simulator) listStages(c fiber.Ctx) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c.Params("id") != s.canvas.ID {
		return notFound(c, "canvas not found")
	}

	// Queues travel over the dedicated per-stage endpoint, like the real
	// backend: the stage payload never carries one.
	stages := make([]models.Stage, len(s.stages))

	for i, stage := range s.stages {
		stage.Queue = nil
		stages[i] = stage
	}

	return c.JSON(fiber.Map{"stages": stages})
}

func (s *Simulator) listEventSources(c fiber.Ctx) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c.Params("id") != s.canvas.ID {
		return notFound(c, "canvas not found")
	}

	return c.JSON(fiber.Map{"event_sources": s.sources})
}

func (s *Simulator) listStageEvents(c fiber.Ctx) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.stages {
		if s.stages[i].ID == c.Params("stageId") {
			return c.JSON(fiber.Map{"events": s.stages[i].Queue})
		}
	}

	return notFound(c, "stage not found")
}

// approveStageEvent records an approval and, once the required count is
// met, marks the event processed with a started execution. Every change is
// answered with a stage_event_approved broadcast carrying the full event.
func (s *Simulator) approveStageEvent(c fiber.Ctx) error {
	var request struct {
		RequesterID string `json:"requester_id"`
	}

	if err := c.Bind().Body(&request); err != nil {
		return badRequest(c, "invalid approve request: "+err.Error())
	}

	s.mu.Lock()

	stage, event := s.findStageEvent(c.Params("stageId"), c.Params("eventId"))
	if event == nil {
		s.mu.Unlock()

		return notFound(c, "stage event not found")
	}

	now := time.Now().UTC()
	event.Approvals = append(event.Approvals, models.Approval{
		ApprovedBy: request.RequesterID,
		ApprovedAt: &now,
	})

	if remaining := approvalsRemaining(stage, event); remaining == 0 {
		event.State = models.StageEventStateProcessed
		event.StateReason = models.StageEventStateReasonExecution
		event.Execution = &models.Execution{
			ID:        uuid.New().String(),
			State:     models.ExecutionStarted,
			StartedAt: &now,
		}

		go s.finishExecution(stage.ID, event.ID)
	}

	updated := *event
	stageID := stage.ID
	s.mu.Unlock()

	s.broadcast(events.StageEventApprovedEvent, events.StageEventPayload{
		StageEvent: updated,
		StageID:    stageID,
	})

	return c.JSON(updated)
}

// finishExecution completes a started execution after a short delay and
// pushes the updated event, exercising the client's replace-in-place path.
func (s *Simulator) finishExecution(stageID, eventID string) {
	time.Sleep(2 * time.Second)

	s.mu.Lock()

	_, event := s.findStageEvent(stageID, eventID)
	if event == nil || event.Execution == nil {
		s.mu.Unlock()

		return
	}

	now := time.Now().UTC()
	event.Execution.State = models.ExecutionFinished
	event.Execution.Result = models.ExecutionResultPassed
	event.Execution.FinishedAt = &now

	updated := *event
	s.mu.Unlock()

	s.broadcast(events.NewStageEventEvent, events.StageEventPayload{
		StageEvent: updated,
		StageID:    stageID,
	})
}

// caller must hold s.mu
func (s *Simulator) findStageEvent(stageID, eventID string) (*models.Stage, *models.StageEvent) {
	for i := range s.stages {
		if s.stages[i].ID != stageID {
			continue
		}

		for j := range s.stages[i].Queue {
			if s.stages[i].Queue[j].ID == eventID {
				return &s.stages[i], &s.stages[i].Queue[j]
			}
		}

		return &s.stages[i], nil
	}

	return nil, nil
}

func approvalsRemaining(stage *models.Stage, event *models.StageEvent) int {
	for _, condition := range stage.Spec.Conditions {
		if condition.Type == models.ConditionTypeApproval && condition.Approval != nil {
			return condition.Approval.Remaining(event)
		}
	}

	return 0
}

func (s *Simulator) broadcast(eventType events.EventType, payload any) {
	event, err := events.NewServerEvent(eventType, payload)
	if err != nil {
		s.logger.Warn("broadcast encode failed", "event", eventType, "error", err)

		return
	}

	s.hub.Broadcast(s.CanvasID(), event)
}

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(fiber.StatusBadRequest).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(fiber.StatusNotFound).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}
