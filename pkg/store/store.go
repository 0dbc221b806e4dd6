// Package store holds the canonical server-known canvas state for one
// editing session: canvas metadata, stages with their event queues, event
// sources, the node position cache, and the current selection.
package store

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-playground/validator/v10"
	pblog "github.com/pipeboard/pipeboard/pkg/log"
	"github.com/pipeboard/pipeboard/pkg/models"
)

var (
	ErrNotInitialized      = errors.New("store not initialized")
	ErrStageNotFound       = errors.New("stage not found")
	ErrEventSourceNotFound = errors.New("event source not found")
)

// InitialData is the result of the sequential initial load. The store only
// accepts it whole: a failed fetch never leaves partial state behind.
type InitialData struct {
	Canvas       models.Canvas
	Stages       []models.Stage
	EventSources []models.EventSource
}

// EventPartitions splits a stage's queue by event state for the sidebar.
type EventPartitions struct {
	Pending   []models.StageEvent
	Waiting   []models.StageEvent
	Processed []models.StageEvent
}

// Store is the domain store. It is constructed once at session start and
// injected into its collaborators; a fresh instance per test keeps tests
// isolated.
type Store struct {
	mu        sync.RWMutex
	logger    *slog.Logger
	validate  *validator.Validate
	positions PositionCache

	initialized     bool
	canvas          models.Canvas
	stages          []models.Stage
	eventSources    []models.EventSource
	selectedStageID string
}

func New() *Store {
	return NewWithPositionCache(NewMemoryPositionCache())
}

func NewWithPositionCache(positions PositionCache) *Store {
	return &Store{
		logger:    pblog.WithModule("store"),
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		positions: positions,
	}
}

// Initialize loads the store from a complete initial data set. Entities are
// validated and normalized before anything is stored. The position cache is
// left alone so placements survive a re-initialize.
func (s *Store) Initialize(data InitialData) error {
	if err := s.validate.Struct(&data.Canvas); err != nil {
		return fmt.Errorf("invalid canvas: %w", err)
	}

	for i := range data.Stages {
		if err := s.validate.Struct(&data.Stages[i]); err != nil {
			return fmt.Errorf("invalid stage %q: %w", data.Stages[i].Name, err)
		}

		data.Stages[i].Normalize()
	}

	for i := range data.EventSources {
		if err := s.validate.Struct(&data.EventSources[i]); err != nil {
			return fmt.Errorf("invalid event source %q: %w", data.EventSources[i].Name, err)
		}

		data.EventSources[i].Normalize()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.canvas = data.Canvas
	s.stages = data.Stages
	s.eventSources = data.EventSources
	s.selectedStageID = ""
	s.initialized = true

	s.logger.Debug("store initialized",
		"canvas_id", data.Canvas.ID,
		"stages", len(data.Stages),
		"event_sources", len(data.EventSources))

	return nil
}

// Dispose clears all session state, including positions and selection.
func (s *Store) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.canvas = models.Canvas{}
	s.stages = nil
	s.eventSources = nil
	s.selectedStageID = ""
	s.initialized = false
	s.positions.Reset()
}

func (s *Store) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.initialized
}

func (s *Store) Canvas() models.Canvas {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.canvas
}

func (s *Store) Stages() []models.Stage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stages := make([]models.Stage, len(s.stages))
	copy(stages, s.stages)

	return stages
}

func (s *Store) EventSources() []models.EventSource {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sources := make([]models.EventSource, len(s.eventSources))
	copy(sources, s.eventSources)

	return sources
}

func (s *Store) StageByID(id string) (models.Stage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.stageIndex(id); i >= 0 {
		return s.stages[i], true
	}

	return models.Stage{}, false
}

func (s *Store) EventSourceByID(id string) (models.EventSource, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.eventSources {
		if s.eventSources[i].ID == id {
			return s.eventSources[i], true
		}
	}

	return models.EventSource{}, false
}

// AddStage appends a new stage with an empty queue.
func (s *Store) AddStage(stage models.Stage) {
	stage.Normalize()
	stage.Queue = []models.StageEvent{}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stages = append(s.stages, stage)
}

// UpdateStage replaces a stage's fields but always carries the existing
// queue over: server stage payloads never include it.
func (s *Store) UpdateStage(stage models.Stage) error {
	stage.Normalize()

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.stageIndex(stage.ID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrStageNotFound, stage.ID)
	}

	stage.Queue = s.stages[i].Queue
	s.stages[i] = stage

	return nil
}

// AddEventSource appends a new event source.
func (s *Store) AddEventSource(source models.EventSource) {
	source.Normalize()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.eventSources = append(s.eventSources, source)
}

// UpdateEventSource overwrites the whole entity with the same id.
func (s *Store) UpdateEventSource(source models.EventSource) error {
	source.Normalize()

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.eventSources {
		if s.eventSources[i].ID == source.ID {
			s.eventSources[i] = source

			return nil
		}
	}

	return fmt.Errorf("%w: %s", ErrEventSourceNotFound, source.ID)
}

// UpdateCanvas shallow-merges the given fields into the canvas.
func (s *Store) UpdateCanvas(patch models.CanvasPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if patch.Name != nil {
		s.canvas.Name = *patch.Name
	}

	if patch.OrganizationID != nil {
		s.canvas.OrganizationID = *patch.OrganizationID
	}
}

// PushStageEvent inserts an event into the owning stage's queue. An existing
// event with the same id is removed first, so a repeated push replaces
// rather than duplicates.
func (s *Store) PushStageEvent(stageID string, event models.StageEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.stageIndex(stageID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrStageNotFound, stageID)
	}

	queue := make([]models.StageEvent, 0, len(s.stages[i].Queue)+1)

	for _, queued := range s.stages[i].Queue {
		if queued.ID != event.ID {
			queue = append(queue, queued)
		}
	}

	s.stages[i].Queue = append(queue, event)

	return nil
}

// EventsByState partitions a stage's queue into pending, waiting, and
// processed events, preserving queue order.
func (s *Store) EventsByState(stageID string) (EventPartitions, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return EventPartitions{}, ErrNotInitialized
	}

	i := s.stageIndex(stageID)
	if i < 0 {
		return EventPartitions{}, fmt.Errorf("%w: %s", ErrStageNotFound, stageID)
	}

	partitions := EventPartitions{
		Pending:   []models.StageEvent{},
		Waiting:   []models.StageEvent{},
		Processed: []models.StageEvent{},
	}

	for _, event := range s.stages[i].Queue {
		switch event.State {
		case models.StageEventStatePending:
			partitions.Pending = append(partitions.Pending, event)
		case models.StageEventStateWaiting:
			partitions.Waiting = append(partitions.Waiting, event)
		case models.StageEventStateProcessed:
			partitions.Processed = append(partitions.Processed, event)
		}
	}

	return partitions, nil
}

// ExecutionRunning reports whether any execution in the stage's queue is
// started. The approve control is disabled while this holds.
func (s *Store) ExecutionRunning(stageID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.stageIndex(stageID); i >= 0 {
		return s.stages[i].ExecutionRunning()
	}

	return false
}

// SelectStage marks a single stage as selected for detail inspection.
func (s *Store) SelectStage(stageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}

	if s.stageIndex(stageID) < 0 {
		return fmt.Errorf("%w: %s", ErrStageNotFound, stageID)
	}

	s.selectedStageID = stageID

	return nil
}

func (s *Store) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.selectedStageID = ""
}

func (s *Store) SelectedStage() (models.Stage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.selectedStageID == "" {
		return models.Stage{}, false
	}

	if i := s.stageIndex(s.selectedStageID); i >= 0 {
		return s.stages[i], true
	}

	return models.Stage{}, false
}

// UpdateNodePosition records a node's placement, from drag or auto-layout.
func (s *Store) UpdateNodePosition(nodeID string, position Position) {
	s.positions.Set(nodeID, position)
}

// Positions returns a snapshot of the position cache.
func (s *Store) Positions() map[string]Position {
	return s.positions.Snapshot()
}

// ResetPositions clears all cached placements, forcing a fresh auto-layout.
func (s *Store) ResetPositions() {
	s.positions.Reset()
}

// caller must hold s.mu
func (s *Store) stageIndex(id string) int {
	for i := range s.stages {
		if s.stages[i].ID == id {
			return i
		}
	}

	return -1
}
