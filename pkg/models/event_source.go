package models

import "time"

// Event is one raw event observed by an event source.
type Event struct {
	ID        string     `json:"id"`
	SourceID  string     `json:"source_id"`
	Type      string     `json:"type,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// EventSource is an external trigger origin (repository, bucket, cluster)
// whose events feed stages through named connections.
type EventSource struct {
	ID      string   `json:"id"   validate:"required"`
	Name    string   `json:"name"`
	URL     string   `json:"url,omitempty"`
	Type    string   `json:"type,omitempty"`
	Filters []Filter `json:"filters,omitempty"`
	Events  []Event  `json:"events"`
}

// Normalize substitutes empty defaults for absent nested fields so callers
// never see nil slices.
func (es *EventSource) Normalize() {
	if es.Events == nil {
		es.Events = []Event{}
	}

	if es.Filters == nil {
		es.Filters = []Filter{}
	}
}

// LastEvent returns the event with the greatest creation timestamp, or nil
// when the source has observed none. Equal timestamps keep server order.
func (es *EventSource) LastEvent() *Event {
	var last *Event

	for i := range es.Events {
		event := &es.Events[i]
		if last == nil {
			last = event

			continue
		}

		if event.CreatedAt != nil && (last.CreatedAt == nil || event.CreatedAt.After(*last.CreatedAt)) {
			last = event
		}
	}

	return last
}
