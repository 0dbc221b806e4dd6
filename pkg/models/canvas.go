// Package models defines the canonical canvas domain entities kept in sync
// with the server.
package models

// Canvas is the root aggregate for one editing session.
type Canvas struct {
	ID             string `json:"id"              validate:"required"`
	Name           string `json:"name"`
	OrganizationID string `json:"organization_id"`
}

// CanvasPatch carries the fields of a partial canvas update. Nil fields are
// left untouched by the merge.
type CanvasPatch struct {
	Name           *string `json:"name,omitempty"`
	OrganizationID *string `json:"organization_id,omitempty"`
}
