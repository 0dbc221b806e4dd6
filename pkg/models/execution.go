package models

import "time"

const (
	ExecutionPending  = "pending"
	ExecutionStarted  = "started"
	ExecutionFinished = "finished"

	ExecutionResultPassed = "passed"
	ExecutionResultFailed = "failed"
)

// Execution is the run record attached to a stage event once dispatched.
// Result is meaningful only after the execution finished.
type Execution struct {
	ID          string            `json:"id"`
	State       string            `json:"state"`
	Result      string            `json:"result,omitempty"`
	StartedAt   *time.Time        `json:"started_at,omitempty"`
	FinishedAt  *time.Time        `json:"finished_at,omitempty"`
	Outputs     map[string]string `json:"outputs,omitempty"`
	ReferenceID string            `json:"reference_id,omitempty"`
}

func (e *Execution) Running() bool {
	return e.State == ExecutionStarted
}

func (e *Execution) Finished() bool {
	return e.State == ExecutionFinished
}

func (e *Execution) Passed() bool {
	return e.Finished() && e.Result == ExecutionResultPassed
}

func (e *Execution) Failed() bool {
	return e.Finished() && e.Result == ExecutionResultFailed
}
