// Package events defines the server-pushed canvas events and the merger
// that applies them to the domain store.
package events

import (
	"encoding/json"

	"github.com/pipeboard/pipeboard/pkg/models"
)

type EventType string

const (
	StageAddedEvent         EventType = "stage_added"
	StageUpdatedEvent       EventType = "stage_updated"
	EventSourceAddedEvent   EventType = "event_source_added"
	CanvasUpdatedEvent      EventType = "canvas_updated"
	NewStageEventEvent      EventType = "new_stage_event"
	StageEventApprovedEvent EventType = "stage_event_approved"
)

// ServerEvent is one frame of the per-canvas WebSocket stream. The payload
// is typed by the event name.
type ServerEvent struct {
	Event   EventType       `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// StageEventPayload is the payload of new_stage_event and
// stage_event_approved: a full updated event object plus its owning stage.
// Approvals arrive this way too, never as a delta.
type StageEventPayload struct {
	models.StageEvent

	StageID string `json:"stage_id"`
}

func NewServerEvent(eventType EventType, payload any) (ServerEvent, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return ServerEvent{}, err
	}

	return ServerEvent{Event: eventType, Payload: raw}, nil
}
