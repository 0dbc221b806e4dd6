package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipeboard/pipeboard/pkg/models"
)

func TestEventSource_LastEvent(t *testing.T) {
	t.Parallel()

	older := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		events   []models.Event
		expected string
	}{
		{
			name:     "no events",
			events:   nil,
			expected: "",
		},
		{
			name: "picks greatest timestamp regardless of order",
			events: []models.Event{
				{ID: "e2", CreatedAt: &newer},
				{ID: "e1", CreatedAt: &older},
			},
			expected: "e2",
		},
		{
			name: "equal timestamps keep server order",
			events: []models.Event{
				{ID: "first", CreatedAt: &older},
				{ID: "second", CreatedAt: &older},
			},
			expected: "first",
		},
		{
			name: "nil timestamps lose against real ones",
			events: []models.Event{
				{ID: "no-time"},
				{ID: "timed", CreatedAt: &older},
			},
			expected: "timed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			source := models.EventSource{ID: "es", Events: tt.events}

			last := source.LastEvent()
			if tt.expected == "" {
				assert.Nil(t, last)

				return
			}

			require.NotNil(t, last)
			assert.Equal(t, tt.expected, last.ID)
		})
	}
}

func TestStage_Normalize(t *testing.T) {
	t.Parallel()

	stage := models.Stage{ID: "s1", Name: "deploy"}
	stage.Normalize()

	assert.NotNil(t, stage.Spec.Connections)
	assert.NotNil(t, stage.Spec.Conditions)
	assert.NotNil(t, stage.Spec.Inputs)
	assert.NotNil(t, stage.Spec.Outputs)
	assert.NotNil(t, stage.Queue)
	assert.Empty(t, stage.Queue)
}

func TestStage_ExecutionRunning(t *testing.T) {
	t.Parallel()

	stage := models.Stage{
		ID: "s1",
		Queue: []models.StageEvent{
			{ID: "e1", State: models.StageEventStateProcessed, Execution: &models.Execution{
				ID: "x1", State: models.ExecutionFinished, Result: models.ExecutionResultPassed,
			}},
			{ID: "e2", State: models.StageEventStatePending},
		},
	}

	assert.False(t, stage.ExecutionRunning())

	stage.Queue[1].Execution = &models.Execution{ID: "x2", State: models.ExecutionStarted}
	assert.True(t, stage.ExecutionRunning())
}

func TestExecution_Helpers(t *testing.T) {
	t.Parallel()

	started := models.Execution{State: models.ExecutionStarted}
	assert.True(t, started.Running())
	assert.False(t, started.Finished())
	assert.False(t, started.Passed())

	passed := models.Execution{State: models.ExecutionFinished, Result: models.ExecutionResultPassed}
	assert.True(t, passed.Finished())
	assert.True(t, passed.Passed())
	assert.False(t, passed.Failed())

	failed := models.Execution{State: models.ExecutionFinished, Result: models.ExecutionResultFailed}
	assert.True(t, failed.Failed())

	// Result is only meaningful once finished.
	inFlight := models.Execution{State: models.ExecutionStarted, Result: models.ExecutionResultPassed}
	assert.False(t, inFlight.Passed())
}

func TestApprovalCondition_Remaining(t *testing.T) {
	t.Parallel()

	condition := models.ApprovalCondition{Count: 2}

	event := models.StageEvent{ID: "e1"}
	assert.Equal(t, 2, condition.Remaining(&event))

	event.Approvals = []models.Approval{{ApprovedBy: "u1"}}
	assert.Equal(t, 1, condition.Remaining(&event))

	event.Approvals = append(event.Approvals, models.Approval{ApprovedBy: "u2"}, models.Approval{ApprovedBy: "u3"})
	assert.Equal(t, 0, condition.Remaining(&event))
}

func TestNewTimeWindowCondition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		start   string
		end     string
		days    []string
		wantErr string
	}{
		{name: "valid", start: "08:00", end: "17:00", days: []string{"Monday", "Friday"}},
		{name: "bad start", start: "25:00", end: "17:00", days: []string{"Monday"}, wantErr: "invalid start"},
		{name: "bad end", start: "08:00", end: "17:61", days: []string{"Monday"}, wantErr: "invalid end"},
		{name: "no days", start: "08:00", end: "17:00", days: []string{}, wantErr: "missing week day list"},
		{name: "bad day", start: "08:00", end: "17:00", days: []string{"Caturday"}, wantErr: "invalid day Caturday"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			condition, err := models.NewTimeWindowCondition(tt.start, tt.end, tt.days)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.start, condition.Start)
			assert.Equal(t, tt.end, condition.End)
		})
	}
}

func TestTimeWindowCondition_Evaluate(t *testing.T) {
	t.Parallel()

	// 2026-08-26 is a Wednesday.
	wednesdayNoon := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	wednesdayNight := time.Date(2026, 8, 26, 23, 30, 0, 0, time.UTC)

	window, err := models.NewTimeWindowCondition("08:00", "17:00", []string{"Wednesday"})
	require.NoError(t, err)

	assert.NoError(t, window.Evaluate(&wednesdayNoon))
	assert.Error(t, window.Evaluate(&wednesdayNight))

	thursdayNoon := wednesdayNoon.AddDate(0, 0, 1)
	assert.Error(t, window.Evaluate(&thursdayNoon))

	wrapped, err := models.NewTimeWindowCondition("22:00", "06:00", []string{"Wednesday"})
	require.NoError(t, err)

	assert.NoError(t, wrapped.Evaluate(&wednesdayNight))
	assert.Error(t, wrapped.Evaluate(&wednesdayNoon))
}
