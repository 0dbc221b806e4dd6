package models

import "time"

const (
	StageEventStatePending   = "pending"
	StageEventStateWaiting   = "waiting"
	StageEventStateProcessed = "processed"

	StageEventStateReasonApproval   = "approval"
	StageEventStateReasonTimeWindow = "time-window"
	StageEventStateReasonExecution  = "execution"
	StageEventStateReasonConnection = "connection"
	StageEventStateReasonCancelled  = "cancelled"
	StageEventStateReasonUnhealthy  = "unhealthy"
)

// Approval records one approver's sign-off on a waiting stage event.
type Approval struct {
	ApprovedBy string     `json:"approved_by"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
}

// StageEvent is one queued unit of work for a stage. The client never
// transitions its state; it renders whatever the server last declared.
type StageEvent struct {
	ID          string            `json:"id"   validate:"required"`
	SourceID    string            `json:"source_id"`
	CreatedAt   *time.Time        `json:"created_at,omitempty"`
	State       string            `json:"state"`
	StateReason string            `json:"state_reason,omitempty"`
	Approvals   []Approval        `json:"approvals,omitempty"`
	Inputs      map[string]string `json:"inputs,omitempty"`
	Execution   *Execution        `json:"execution,omitempty"`
}
