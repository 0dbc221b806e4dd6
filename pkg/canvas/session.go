// Package canvas ties the sync core together for one editing session: the
// initial load, the live event stream, graph derivation, and auto-layout.
package canvas

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pipeboard/pipeboard/pkg/events"
	"github.com/pipeboard/pipeboard/pkg/flow"
	"github.com/pipeboard/pipeboard/pkg/flow/layout"
	pblog "github.com/pipeboard/pipeboard/pkg/log"
	"github.com/pipeboard/pipeboard/pkg/models"
	"github.com/pipeboard/pipeboard/pkg/store"
	"github.com/pipeboard/pipeboard/pkg/ws"
)

// APIClient is the slice of the REST client the session needs.
type APIClient interface {
	GetCanvas(ctx context.Context, canvasID string) (models.Canvas, error)
	ListStages(ctx context.Context, canvasID string) ([]models.Stage, error)
	ListEventSources(ctx context.Context, canvasID string) ([]models.EventSource, error)
	ListStageEvents(ctx context.Context, canvasID, stageID string) ([]models.StageEvent, error)
	ApproveStageEvent(ctx context.Context, canvasID, stageID, eventID string) error
}

// Stream delivers server events in arrival order.
type Stream interface {
	Run(ctx context.Context, handle ws.Handler) error
	Status() ws.Status
}

// Session owns the derived node/edge lists consumed by the renderer and the
// mutation entry points invoked by the UI.
type Session struct {
	canvasID string
	client   APIClient
	store    *store.Store
	merger   *events.Merger
	engine   layout.Engine
	stream   Stream
	logger   *slog.Logger

	mu          sync.RWMutex
	nodes       []flow.Node
	edges       []flow.Edge
	manualEdges []flow.Edge
}

type Option func(*Session)

// WithStore injects a store, e.g. one with a persistent position cache.
func WithStore(domainStore *store.Store) Option {
	return func(s *Session) {
		s.store = domainStore
	}
}

func WithLayoutEngine(engine layout.Engine) Option {
	return func(s *Session) {
		s.engine = engine
	}
}

func WithStream(stream Stream) Option {
	return func(s *Session) {
		s.stream = stream
	}
}

func NewSession(client APIClient, canvasID string, opts ...Option) *Session {
	session := &Session{
		canvasID: canvasID,
		client:   client,
		logger:   pblog.WithModule("canvas"),
	}

	for _, opt := range opts {
		opt(session)
	}

	if session.store == nil {
		session.store = store.New()
	}

	if session.engine == nil {
		session.engine = layout.NewLayered()
	}

	session.merger = events.NewMerger(session.store)

	return session
}

// Load runs the sequential initial fetch: canvas, stages, event sources,
// then every stage's queue. Any failure is terminal; the store is only
// initialized once the whole sequence succeeded.
func (s *Session) Load(ctx context.Context) error {
	canvasData, err := s.client.GetCanvas(ctx, s.canvasID)
	if err != nil {
		return fmt.Errorf("load canvas: %w", err)
	}

	stages, err := s.client.ListStages(ctx, s.canvasID)
	if err != nil {
		return fmt.Errorf("load stages: %w", err)
	}

	sources, err := s.client.ListEventSources(ctx, s.canvasID)
	if err != nil {
		return fmt.Errorf("load event sources: %w", err)
	}

	for i := range stages {
		queue, err := s.client.ListStageEvents(ctx, s.canvasID, stages[i].ID)
		if err != nil {
			return fmt.Errorf("load queue for stage %s: %w", stages[i].ID, err)
		}

		stages[i].Queue = queue
	}

	err = s.store.Initialize(store.InitialData{
		Canvas:       canvasData,
		Stages:       stages,
		EventSources: sources,
	})
	if err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}

	s.refresh(ctx)

	return nil
}

// Watch consumes the event stream until ctx ends, merging each event and
// re-deriving the graph. Positions are never touched by re-derivation, so
// placements survive arbitrary churn in queues and labels.
func (s *Session) Watch(ctx context.Context) error {
	if s.stream == nil {
		return fmt.Errorf("session has no event stream")
	}

	return s.stream.Run(ctx, func(event events.ServerEvent) {
		s.merger.Apply(event)
		s.refresh(ctx)
	})
}

// refresh re-derives nodes and edges from the store and runs auto-layout
// when any node has no cached position. Layout results land last-write-wins
// against concurrent merges; the cache is only ever written per-node.
func (s *Session) refresh(ctx context.Context) {
	positions := s.store.Positions()
	stages := s.store.Stages()
	sources := s.store.EventSources()

	nodes := flow.EventSourcesToNodes(sources, positions)
	nodes = append(nodes, flow.StagesToNodes(stages, positions, s.approve)...)
	edges := flow.ToEdges(stages, sources)

	if layout.NeedsLayout(nodes, positions) {
		laidOut, ok := layout.Apply(ctx, s.engine, nodes, edges)
		if ok {
			nodes = laidOut

			for i := range nodes {
				s.store.UpdateNodePosition(nodes[i].ID, nodes[i].Position)
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nodes = nodes
	s.edges = append(edges, s.manualEdges...)
}

// Nodes returns the current renderable node list.
func (s *Session) Nodes() []flow.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nodes := make([]flow.Node, len(s.nodes))
	copy(nodes, s.nodes)

	return nodes
}

// Edges returns the current renderable edge list, manual edges included.
func (s *Session) Edges() []flow.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()

	edges := make([]flow.Edge, len(s.edges))
	copy(edges, s.edges)

	return edges
}

// MoveNode records a drag-stop.
func (s *Session) MoveNode(nodeID string, position store.Position) {
	s.store.UpdateNodePosition(nodeID, position)

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.nodes {
		if s.nodes[i].ID == nodeID {
			s.nodes[i].Position = position

			break
		}
	}
}

// Connect records a connect gesture as a rendering-only edge; nothing is
// persisted to the server.
func (s *Session) Connect(sourceID, targetID string) {
	edge := flow.Edge{
		ID:       "e-" + sourceID + "-" + targetID,
		Source:   sourceID,
		Target:   targetID,
		Type:     flow.EdgeTypeBezier,
		Animated: true,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.manualEdges {
		if existing.ID == edge.ID {
			return
		}
	}

	s.manualEdges = append(s.manualEdges, edge)
	s.edges = append(s.edges, edge)
}

// ApproveStageEvent fires the approval request and forgets it: no local
// state flip, no retry. The server's answer arrives over the stream.
func (s *Session) ApproveStageEvent(eventID, stageID string) {
	go func() {
		if err := s.client.ApproveStageEvent(context.Background(), s.canvasID, stageID, eventID); err != nil {
			s.logger.Warn("approve failed", "stage_id", stageID, "stage_event_id", eventID, "error", err)
		}
	}()
}

func (s *Session) approve(eventID, stageID string) {
	s.ApproveStageEvent(eventID, stageID)
}

func (s *Session) SelectStage(stageID string) error {
	return s.store.SelectStage(stageID)
}

func (s *Session) ClearSelection() {
	s.store.ClearSelection()
}

// SelectedStageEvents returns the selected stage's queue partitions for the
// sidebar.
func (s *Session) SelectedStageEvents() (store.EventPartitions, error) {
	selected, ok := s.store.SelectedStage()
	if !ok {
		return store.EventPartitions{}, fmt.Errorf("no stage selected")
	}

	return s.store.EventsByState(selected.ID)
}

// ConnectionStatus reflects the stream's transport state for display.
func (s *Session) ConnectionStatus() ws.Status {
	if s.stream == nil {
		return ws.StatusClosed
	}

	return s.stream.Status()
}

func (s *Session) Store() *store.Store {
	return s.store
}

// Dispose releases all session state.
func (s *Session) Dispose() {
	s.store.Dispose()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nodes = nil
	s.edges = nil
	s.manualEdges = nil
}
