// Package api is the typed REST client for the canvas backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/moogar0880/problems"
	pblog "github.com/pipeboard/pipeboard/pkg/log"
	"github.com/pipeboard/pipeboard/pkg/models"
)

const defaultTimeout = 30 * time.Second

// ProblemError is a non-2xx response decoded from the backend's
// application/problem+json body.
type ProblemError struct {
	Problem problems.Problem
}

func (e *ProblemError) Error() string {
	return fmt.Sprintf("api error: %d %s: %s", e.Problem.Status, e.Problem.Type, e.Problem.Detail)
}

// Client talks to one canvas backend. It carries no canvas state; callers
// pass ids explicitly.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

type Option func(*Client)

// WithToken sets the bearer token attached to every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	client := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     pblog.WithModule("api"),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

func (c *Client) GetCanvas(ctx context.Context, canvasID string) (models.Canvas, error) {
	var canvas models.Canvas

	path := fmt.Sprintf("/api/v1/canvases/%s", canvasID)
	if err := c.do(ctx, http.MethodGet, path, nil, &canvas); err != nil {
		return models.Canvas{}, fmt.Errorf("get canvas: %w", err)
	}

	return canvas, nil
}

func (c *Client) ListStages(ctx context.Context, canvasID string) ([]models.Stage, error) {
	var response struct {
		Stages []models.Stage `json:"stages"`
	}

	path := fmt.Sprintf("/api/v1/canvases/%s/stages", canvasID)
	if err := c.do(ctx, http.MethodGet, path, nil, &response); err != nil {
		return nil, fmt.Errorf("list stages: %w", err)
	}

	return response.Stages, nil
}

func (c *Client) ListEventSources(ctx context.Context, canvasID string) ([]models.EventSource, error) {
	var response struct {
		EventSources []models.EventSource `json:"event_sources"`
	}

	path := fmt.Sprintf("/api/v1/canvases/%s/event-sources", canvasID)
	if err := c.do(ctx, http.MethodGet, path, nil, &response); err != nil {
		return nil, fmt.Errorf("list event sources: %w", err)
	}

	return response.EventSources, nil
}

func (c *Client) ListStageEvents(ctx context.Context, canvasID, stageID string) ([]models.StageEvent, error) {
	var response struct {
		Events []models.StageEvent `json:"events"`
	}

	path := fmt.Sprintf("/api/v1/canvases/%s/stages/%s/events", canvasID, stageID)
	if err := c.do(ctx, http.MethodGet, path, nil, &response); err != nil {
		return nil, fmt.Errorf("list stage events: %w", err)
	}

	return response.Events, nil
}

// ApproveRequest identifies who is approving a stage event.
type ApproveRequest struct {
	RequesterID string `json:"requester_id"`
}

// ApproveStageEvent asks the server to record an approval. The resulting
// state change, if any, comes back over the event stream; the client never
// flips state locally.
func (c *Client) ApproveStageEvent(ctx context.Context, canvasID, stageID, eventID string) error {
	path := fmt.Sprintf("/api/v1/canvases/%s/stages/%s/events/%s/approve", canvasID, stageID, eventID)

	body := ApproveRequest{RequesterID: uuid.New().String()}
	if err := c.do(ctx, http.MethodPost, path, body, nil); err != nil {
		return fmt.Errorf("approve stage event: %w", err)
	}

	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader

	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}

		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	request.Header.Set("Content-Type", "application/json")

	if c.token != "" {
		request.Header.Set("Authorization", "Bearer "+c.token)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return c.problemFrom(response)
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(response.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

func (c *Client) problemFrom(response *http.Response) error {
	var problem problems.Problem

	if err := json.NewDecoder(response.Body).Decode(&problem); err != nil || problem.Status == 0 {
		// Not a problem+json body; keep the status at least.
		problem = *problems.NewStatusProblem(response.StatusCode)
	}

	return &ProblemError{Problem: problem}
}
