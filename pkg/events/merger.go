package events

import (
	"encoding/json"
	"log/slog"

	pblog "github.com/pipeboard/pipeboard/pkg/log"
	"github.com/pipeboard/pipeboard/pkg/models"
	"github.com/pipeboard/pipeboard/pkg/store"
)

// Merger applies server-pushed events as minimal, targeted store mutations.
// Every handler is idempotent, so redelivery or double invocation of the
// consumer is harmless. Nothing here ever fails the stream: malformed
// payloads, unknown event names, and missing owners are logged and dropped.
type Merger struct {
	store  *store.Store
	logger *slog.Logger
}

func NewMerger(domainStore *store.Store) *Merger {
	return &Merger{
		store:  domainStore,
		logger: pblog.WithModule("merger"),
	}
}

func (m *Merger) Apply(event ServerEvent) {
	switch event.Event {
	case StageAddedEvent:
		m.applyStageAdded(event.Payload)
	case StageUpdatedEvent:
		m.applyStageUpdated(event.Payload)
	case EventSourceAddedEvent:
		m.applyEventSourceAdded(event.Payload)
	case CanvasUpdatedEvent:
		m.applyCanvasUpdated(event.Payload)
	case NewStageEventEvent, StageEventApprovedEvent:
		m.applyStageEventPushed(event.Event, event.Payload)
	default:
		m.logger.Warn("unhandled event type", "event", event.Event)
	}
}

func (m *Merger) applyStageAdded(payload json.RawMessage) {
	var stage models.Stage
	if err := json.Unmarshal(payload, &stage); err != nil {
		m.logger.Warn("invalid stage_added payload", "error", err)

		return
	}

	// A repeat for a known id is an update in disguise.
	if _, ok := m.store.StageByID(stage.ID); ok {
		if err := m.store.UpdateStage(stage); err != nil {
			m.logger.Warn("stage_added update dropped", "stage_id", stage.ID, "error", err)
		}

		return
	}

	m.store.AddStage(stage)
}

func (m *Merger) applyStageUpdated(payload json.RawMessage) {
	var stage models.Stage
	if err := json.Unmarshal(payload, &stage); err != nil {
		m.logger.Warn("invalid stage_updated payload", "error", err)

		return
	}

	if err := m.store.UpdateStage(stage); err != nil {
		m.logger.Warn("stage_updated dropped", "stage_id", stage.ID, "error", err)
	}
}

func (m *Merger) applyEventSourceAdded(payload json.RawMessage) {
	var source models.EventSource
	if err := json.Unmarshal(payload, &source); err != nil {
		m.logger.Warn("invalid event_source_added payload", "error", err)

		return
	}

	if _, ok := m.store.EventSourceByID(source.ID); ok {
		if err := m.store.UpdateEventSource(source); err != nil {
			m.logger.Warn("event_source_added update dropped", "source_id", source.ID, "error", err)
		}

		return
	}

	m.store.AddEventSource(source)
}

func (m *Merger) applyCanvasUpdated(payload json.RawMessage) {
	var patch models.CanvasPatch
	if err := json.Unmarshal(payload, &patch); err != nil {
		m.logger.Warn("invalid canvas_updated payload", "error", err)

		return
	}

	m.store.UpdateCanvas(patch)
}

func (m *Merger) applyStageEventPushed(eventType EventType, payload json.RawMessage) {
	var pushed StageEventPayload
	if err := json.Unmarshal(payload, &pushed); err != nil {
		m.logger.Warn("invalid stage event payload", "event", eventType, "error", err)

		return
	}

	// Replace-in-place by id: the owning stage's queue never grows on a
	// redelivered or updated event.
	if err := m.store.PushStageEvent(pushed.StageID, pushed.StageEvent); err != nil {
		m.logger.Warn("stage event dropped, owner missing",
			"event", eventType,
			"stage_id", pushed.StageID,
			"stage_event_id", pushed.StageEvent.ID,
			"error", err)
	}
}
