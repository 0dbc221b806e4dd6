package models

// FilterOperator combines a connection's filters.
type FilterOperator string

const (
	FilterOperatorAnd FilterOperator = "and"
	FilterOperatorOr  FilterOperator = "or"
)

// Filter narrows which upstream events a connection lets through.
type Filter struct {
	Type       string `json:"type,omitempty"`
	Expression string `json:"expression,omitempty"`
}

// Connection is a named reference from a stage to an upstream stage or event
// source. The reference is by display name, resolved at transform time.
type Connection struct {
	Name           string         `json:"name" validate:"required"`
	Type           string         `json:"type,omitempty"`
	Filters        []Filter       `json:"filters,omitempty"`
	FilterOperator FilterOperator `json:"filter_operator,omitempty"`
}
