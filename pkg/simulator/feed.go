package simulator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pipeboard/pipeboard/pkg/events"
	"github.com/pipeboard/pipeboard/pkg/models"
)

// Feed emits a scripted stream until ctx ends: each tick a new source event
// lands, a pending stage event is queued on the first stage, and the gated
// stage receives one that immediately moves to waiting on approval.
func (s *Simulator) Feed(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Simulator) tick() {
	now := time.Now().UTC()

	s.mu.Lock()

	if len(s.sources) == 0 || len(s.stages) == 0 {
		s.mu.Unlock()

		return
	}

	source := &s.sources[0]
	source.Events = append(source.Events, models.Event{
		ID:        uuid.New().String(),
		SourceID:  source.ID,
		Type:      "push",
		CreatedAt: &now,
	})
	updatedSource := *source

	pending := models.StageEvent{
		ID:        uuid.New().String(),
		SourceID:  source.ID,
		CreatedAt: &now,
		State:     models.StageEventStatePending,
	}
	s.stages[0].Queue = append(s.stages[0].Queue, pending)
	firstStageID := s.stages[0].ID

	var waiting *models.StageEvent

	var gatedStageID string

	if len(s.stages) > 1 {
		event := models.StageEvent{
			ID:          uuid.New().String(),
			SourceID:    s.stages[0].ID,
			CreatedAt:   &now,
			State:       models.StageEventStateWaiting,
			StateReason: models.StageEventStateReasonApproval,
		}
		s.stages[1].Queue = append(s.stages[1].Queue, event)
		waiting = &event
		gatedStageID = s.stages[1].ID
	}

	s.mu.Unlock()

	s.broadcast(events.EventSourceAddedEvent, updatedSource)
	s.broadcast(events.NewStageEventEvent, events.StageEventPayload{
		StageEvent: pending,
		StageID:    firstStageID,
	})

	if waiting != nil {
		s.broadcast(events.NewStageEventEvent, events.StageEventPayload{
			StageEvent: *waiting,
			StageID:    gatedStageID,
		})
	}
}
