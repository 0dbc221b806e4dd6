package canvas_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipeboard/pipeboard/pkg/canvas"
	"github.com/pipeboard/pipeboard/pkg/events"
	"github.com/pipeboard/pipeboard/pkg/flow"
	"github.com/pipeboard/pipeboard/pkg/models"
	"github.com/pipeboard/pipeboard/pkg/store"
	"github.com/pipeboard/pipeboard/pkg/testutil"
	"github.com/pipeboard/pipeboard/pkg/ws"
)

type fakeClient struct {
	mu       sync.Mutex
	canvas   models.Canvas
	stages   []models.Stage
	sources  []models.EventSource
	queues   map[string][]models.StageEvent
	failOn   string
	approved [][2]string // (stageID, eventID)
}

func (c *fakeClient) GetCanvas(_ context.Context, _ string) (models.Canvas, error) {
	if c.failOn == "canvas" {
		return models.Canvas{}, errors.New("canvas fetch failed")
	}

	return c.canvas, nil
}

func (c *fakeClient) ListStages(_ context.Context, _ string) ([]models.Stage, error) {
	if c.failOn == "stages" {
		return nil, errors.New("stages fetch failed")
	}

	return c.stages, nil
}

func (c *fakeClient) ListEventSources(_ context.Context, _ string) ([]models.EventSource, error) {
	if c.failOn == "sources" {
		return nil, errors.New("sources fetch failed")
	}

	return c.sources, nil
}

func (c *fakeClient) ListStageEvents(_ context.Context, _, stageID string) ([]models.StageEvent, error) {
	if c.failOn == "queue" {
		return nil, errors.New("queue fetch failed")
	}

	return c.queues[stageID], nil
}

func (c *fakeClient) ApproveStageEvent(_ context.Context, _, stageID, eventID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.approved = append(c.approved, [2]string{stageID, eventID})

	return nil
}

func (c *fakeClient) approvedCalls() [][2]string {
	c.mu.Lock()
	defer c.mu.Unlock()

	calls := make([][2]string, len(c.approved))
	copy(calls, c.approved)

	return calls
}

type countingEngine struct {
	mu    sync.Mutex
	calls int
	seen  int
}

func (e *countingEngine) Layout(_ context.Context, nodes []flow.Node, _ []flow.Edge) ([]flow.Node, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.calls++
	e.seen = len(nodes)

	laidOut := make([]flow.Node, len(nodes))

	for i, node := range nodes {
		node.Position = store.Position{X: float64(i * 100), Y: float64(i * 50)}
		laidOut[i] = node
	}

	return laidOut, nil
}

func (e *countingEngine) stats() (int, int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.calls, e.seen
}

func demoClient() *fakeClient {
	source := testutil.CreateTestEventSource(testutil.WithSourceName("repo"))
	stage := testutil.CreateTestStage(
		testutil.WithStageName("deploy"),
		testutil.WithConnections(models.Connection{Name: "repo"}),
	)

	return &fakeClient{
		canvas:  testutil.CreateTestCanvas(),
		stages:  []models.Stage{stage},
		sources: []models.EventSource{source},
		queues:  map[string][]models.StageEvent{},
	}
}

func TestSession_Load_EndToEnd(t *testing.T) {
	t.Parallel()

	client := demoClient()
	engine := &countingEngine{}
	session := canvas.NewSession(client, client.canvas.ID, canvas.WithLayoutEngine(engine))

	require.NoError(t, session.Load(context.Background()))

	nodes := session.Nodes()
	require.Len(t, nodes, 2)

	edges := session.Edges()
	require.Len(t, edges, 1)
	assert.Equal(t, client.sources[0].ID, edges[0].Source)
	assert.Equal(t, client.stages[0].ID, edges[0].Target)

	partitions, err := session.Store().EventsByState(client.stages[0].ID)
	require.NoError(t, err)
	assert.Empty(t, partitions.Pending)
	assert.Empty(t, partitions.Waiting)
	assert.Empty(t, partitions.Processed)

	// Nothing was placed yet, so layout ran once over the full node set and
	// its positions landed in the cache.
	calls, seen := engine.stats()
	assert.Equal(t, 1, calls)
	assert.Equal(t, 2, seen)
	assert.Len(t, session.Store().Positions(), 2)
}

func TestSession_Load_FailureIsTerminal(t *testing.T) {
	t.Parallel()

	for _, failOn := range []string{"canvas", "stages", "sources", "queue"} {
		t.Run(failOn, func(t *testing.T) {
			t.Parallel()

			client := demoClient()
			client.failOn = failOn
			session := canvas.NewSession(client, client.canvas.ID)

			err := session.Load(context.Background())
			require.Error(t, err)

			// No partial state reaches the render layer.
			assert.False(t, session.Store().Initialized())
			assert.Empty(t, session.Nodes())
		})
	}
}

func TestSession_LayoutSkippedWhenAllPlaced(t *testing.T) {
	t.Parallel()

	client := demoClient()
	engine := &countingEngine{}

	domainStore := store.New()
	domainStore.UpdateNodePosition(client.sources[0].ID, store.Position{X: 1, Y: 1})
	domainStore.UpdateNodePosition(client.stages[0].ID, store.Position{X: 2, Y: 2})

	session := canvas.NewSession(client, client.canvas.ID,
		canvas.WithLayoutEngine(engine),
		canvas.WithStore(domainStore))

	require.NoError(t, session.Load(context.Background()))

	calls, _ := engine.stats()
	assert.Equal(t, 0, calls)

	nodes := session.Nodes()
	require.Len(t, nodes, 2)

	for _, node := range nodes {
		assert.NotZero(t, node.Position.X)
	}
}

type failingEngine struct{}

func (failingEngine) Layout(_ context.Context, _ []flow.Node, _ []flow.Edge) ([]flow.Node, error) {
	return nil, errors.New("layout exploded")
}

func TestSession_LayoutFailureKeepsFallbackPositions(t *testing.T) {
	t.Parallel()

	client := demoClient()
	session := canvas.NewSession(client, client.canvas.ID, canvas.WithLayoutEngine(failingEngine{}))

	require.NoError(t, session.Load(context.Background()))

	// The render path survives; fallback positions stay, the cache stays
	// empty so the next refresh retries layout.
	require.Len(t, session.Nodes(), 2)
	assert.Empty(t, session.Store().Positions())
}

type scriptedStream struct {
	frames []events.ServerEvent
}

func (s *scriptedStream) Run(_ context.Context, handle ws.Handler) error {
	for _, frame := range s.frames {
		handle(frame)
	}

	return nil
}

func (s *scriptedStream) Status() ws.Status {
	return ws.StatusOpen
}

func TestSession_Watch_MergesAndRederives(t *testing.T) {
	t.Parallel()

	client := demoClient()
	stageID := client.stages[0].ID

	pending, err := events.NewServerEvent(events.NewStageEventEvent, events.StageEventPayload{
		StageEvent: models.StageEvent{ID: "E1", State: models.StageEventStatePending},
		StageID:    stageID,
	})
	require.NoError(t, err)

	waiting, err := events.NewServerEvent(events.NewStageEventEvent, events.StageEventPayload{
		StageEvent: models.StageEvent{ID: "E1", State: models.StageEventStateWaiting},
		StageID:    stageID,
	})
	require.NoError(t, err)

	stream := &scriptedStream{frames: []events.ServerEvent{pending, waiting}}
	session := canvas.NewSession(client, client.canvas.ID, canvas.WithStream(stream))

	require.NoError(t, session.Load(context.Background()))
	require.NoError(t, session.Watch(context.Background()))

	stage, ok := session.Store().StageByID(stageID)
	require.True(t, ok)
	require.Len(t, stage.Queue, 1)
	assert.Equal(t, "E1", stage.Queue[0].ID)
	assert.Equal(t, models.StageEventStateWaiting, stage.Queue[0].State)

	// The re-derived stage node carries the queue.
	var stageNode *flow.Node

	for _, node := range session.Nodes() {
		if node.Type == flow.NodeTypeStage {
			stageNode = &node

			break
		}
	}

	require.NotNil(t, stageNode)
	assert.Len(t, stageNode.Stage.Queue, 1)
}

func TestSession_Watch_PreservesPositions(t *testing.T) {
	t.Parallel()

	client := demoClient()
	stageID := client.stages[0].ID

	frame, err := events.NewServerEvent(events.NewStageEventEvent, events.StageEventPayload{
		StageEvent: models.StageEvent{ID: "E1", State: models.StageEventStatePending},
		StageID:    stageID,
	})
	require.NoError(t, err)

	session := canvas.NewSession(client, client.canvas.ID,
		canvas.WithStream(&scriptedStream{frames: []events.ServerEvent{frame}}))

	require.NoError(t, session.Load(context.Background()))

	session.MoveNode(stageID, store.Position{X: 777, Y: 888})

	require.NoError(t, session.Watch(context.Background()))

	for _, node := range session.Nodes() {
		if node.ID == stageID {
			assert.Equal(t, store.Position{X: 777, Y: 888}, node.Position)
		}
	}
}

func TestSession_ApproveGuardAndFireAndForget(t *testing.T) {
	t.Parallel()

	running := testutil.CreateTestStageEvent(testutil.WithRunningExecution())
	stage := testutil.CreateTestStage(testutil.WithQueue(running))

	client := demoClient()
	client.stages = []models.Stage{stage}
	client.queues = map[string][]models.StageEvent{stage.ID: {running}}

	session := canvas.NewSession(client, client.canvas.ID)
	require.NoError(t, session.Load(context.Background()))

	// The derived guard reports a running execution before the call.
	assert.True(t, session.Store().ExecutionRunning(stage.ID))

	session.ApproveStageEvent(running.ID, stage.ID)

	require.Eventually(t, func() bool {
		return len(client.approvedCalls()) == 1
	}, time.Second, 10*time.Millisecond)

	assert.Equal(t, [2]string{stage.ID, running.ID}, client.approvedCalls()[0])

	// Fire-and-forget: no local state flip.
	got, _ := session.Store().StageByID(stage.ID)
	assert.Equal(t, models.StageEventStateProcessed, got.Queue[0].State)
	assert.True(t, session.Store().ExecutionRunning(stage.ID))
}

func TestSession_ConnectAddsRenderingOnlyEdge(t *testing.T) {
	t.Parallel()

	client := demoClient()
	session := canvas.NewSession(client, client.canvas.ID)
	require.NoError(t, session.Load(context.Background()))

	before := len(session.Edges())

	session.Connect("manual-source", "manual-target")
	session.Connect("manual-source", "manual-target") // repeat gesture is a no-op

	edges := session.Edges()
	require.Len(t, edges, before+1)

	last := edges[len(edges)-1]
	assert.Equal(t, "manual-source", last.Source)
	assert.Equal(t, "manual-target", last.Target)

	// The domain is untouched: nothing grew a connection.
	stage, _ := session.Store().StageByID(client.stages[0].ID)
	assert.Len(t, stage.Spec.Connections, 1)
}

func TestSession_SelectionAndPartitions(t *testing.T) {
	t.Parallel()

	waiting := testutil.CreateTestStageEvent(testutil.WithState(models.StageEventStateWaiting))
	stage := testutil.CreateTestStage(testutil.WithQueue(waiting))

	client := demoClient()
	client.stages = []models.Stage{stage}
	client.queues = map[string][]models.StageEvent{stage.ID: {waiting}}

	session := canvas.NewSession(client, client.canvas.ID)
	require.NoError(t, session.Load(context.Background()))

	_, err := session.SelectedStageEvents()
	require.Error(t, err)

	require.NoError(t, session.SelectStage(stage.ID))

	partitions, err := session.SelectedStageEvents()
	require.NoError(t, err)
	assert.Empty(t, partitions.Pending)
	require.Len(t, partitions.Waiting, 1)
	assert.Equal(t, waiting.ID, partitions.Waiting[0].ID)

	session.ClearSelection()
	_, err = session.SelectedStageEvents()
	assert.Error(t, err)
}

func TestSession_Dispose(t *testing.T) {
	t.Parallel()

	client := demoClient()
	session := canvas.NewSession(client, client.canvas.ID)
	require.NoError(t, session.Load(context.Background()))

	session.Dispose()

	assert.Empty(t, session.Nodes())
	assert.Empty(t, session.Edges())
	assert.False(t, session.Store().Initialized())
}
