package models

const (
	ExecutorTypeSemaphore = "semaphore"
	ExecutorTypeHTTP      = "http"
)

// ExecutorSpec describes what runs when a stage event is dispatched.
type ExecutorSpec struct {
	Type      string                 `json:"type"`
	Semaphore *SemaphoreExecutorSpec `json:"semaphore,omitempty"`
	HTTP      *HTTPExecutorSpec      `json:"http,omitempty"`
}

type SemaphoreExecutorSpec struct {
	OrganizationURL string            `json:"organization_url"`
	ProjectID       string            `json:"project_id"`
	Branch          string            `json:"branch"`
	PipelineFile    string            `json:"pipeline_file"`
	Parameters      map[string]string `json:"parameters,omitempty"`
}

type HTTPExecutorSpec struct {
	URL     string            `json:"url"`
	Payload map[string]string `json:"payload,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

type InputDefinition struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type OutputDefinition struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
}

// StageSpec holds the declarative part of a stage as the server sends it.
type StageSpec struct {
	Executor    ExecutorSpec       `json:"executor"`
	Connections []Connection       `json:"connections"`
	Conditions  []Condition        `json:"conditions"`
	Inputs      []InputDefinition  `json:"inputs"`
	Outputs     []OutputDefinition `json:"outputs"`
}

// Stage is a pipeline step with an executor, upstream connections, gating
// conditions, and an event queue. The queue is client-side state: server
// stage payloads never carry it, so updates preserve the prior queue.
type Stage struct {
	ID    string       `json:"id"   validate:"required"`
	Name  string       `json:"name"`
	Spec  StageSpec    `json:"spec"`
	Queue []StageEvent `json:"queue,omitempty"`
}

// Normalize substitutes empty defaults for absent nested fields.
func (s *Stage) Normalize() {
	if s.Spec.Connections == nil {
		s.Spec.Connections = []Connection{}
	}

	if s.Spec.Conditions == nil {
		s.Spec.Conditions = []Condition{}
	}

	if s.Spec.Inputs == nil {
		s.Spec.Inputs = []InputDefinition{}
	}

	if s.Spec.Outputs == nil {
		s.Spec.Outputs = []OutputDefinition{}
	}

	if s.Queue == nil {
		s.Queue = []StageEvent{}
	}
}

// ExecutionRunning reports whether any execution in the stage's queue is in
// the started state. The approve control is disabled while this holds.
func (s *Stage) ExecutionRunning() bool {
	for i := range s.Queue {
		execution := s.Queue[i].Execution
		if execution != nil && execution.Running() {
			return true
		}
	}

	return false
}
