package models

import (
	"fmt"
	"slices"
	"time"
)

const (
	ConditionTypeApproval   = "approval"
	ConditionTypeTimeWindow = "time-window"
)

// Condition gates a stage event's WAITING → PROCESSED transition. The server
// owns the transition; the client evaluates conditions for display only.
type Condition struct {
	Type       string               `json:"type"           validate:"required,oneof=approval time-window"`
	Approval   *ApprovalCondition   `json:"approval,omitempty"`
	TimeWindow *TimeWindowCondition `json:"time,omitempty"`
}

type ApprovalCondition struct {
	Count int `json:"count"`
}

// Remaining returns how many approvals the event still needs, never below 0.
func (c *ApprovalCondition) Remaining(event *StageEvent) int {
	remaining := c.Count - len(event.Approvals)
	if remaining < 0 {
		return 0
	}

	return remaining
}

type TimeWindowCondition struct {
	Start    string   `json:"start"`
	End      string   `json:"end"`
	Timezone string   `json:"timezone,omitempty"`
	WeekDays []string `json:"week_days"`
}

// We only need HH:mm precision, so we use time.TimeOnly format
// but without the seconds part.
var timeWindowLayout = "15:04"

var longDayNames = []string{
	"Sunday",
	"Monday",
	"Tuesday",
	"Wednesday",
	"Thursday",
	"Friday",
	"Saturday",
}

func NewTimeWindowCondition(start, end string, days []string) (*TimeWindowCondition, error) {
	if err := validateTime(start); err != nil {
		return nil, fmt.Errorf("invalid start")
	}

	if err := validateTime(end); err != nil {
		return nil, fmt.Errorf("invalid end")
	}

	if len(days) == 0 {
		return nil, fmt.Errorf("missing week day list")
	}

	if err := validateWeekDays(days); err != nil {
		return nil, err
	}

	return &TimeWindowCondition{
		Start:    start,
		End:      end,
		WeekDays: days,
	}, nil
}

func validateTime(t string) error {
	_, err := time.Parse(timeWindowLayout, t)

	return err
}

func validateWeekDays(days []string) error {
	for _, day := range days {
		if !slices.Contains(longDayNames, day) {
			return fmt.Errorf("invalid day %s", day)
		}
	}

	return nil
}

// Evaluate reports whether t falls inside the window. Used for badges only;
// it never drives a local state transition.
func (c *TimeWindowCondition) Evaluate(t *time.Time) error {
	at := *t

	if c.Timezone != "" {
		if loc, err := time.LoadLocation(c.Timezone); err == nil {
			at = at.In(loc)
		}
	}

	weekDay := at.Weekday().String()
	if !slices.Contains(c.WeekDays, weekDay) {
		return fmt.Errorf("current day - %s - is outside week days allowed - %v", weekDay, c.WeekDays)
	}

	hourAndMinute := fmt.Sprintf("%02d:%02d", at.Hour(), at.Minute())

	now, err := time.Parse(timeWindowLayout, hourAndMinute)
	if err != nil {
		return err
	}

	if !c.inTimeWindow(now) {
		return fmt.Errorf("%s is not in time window %s-%s", hourAndMinute, c.Start, c.End)
	}

	return nil
}

func (c *TimeWindowCondition) inTimeWindow(now time.Time) bool {
	start, _ := time.Parse(timeWindowLayout, c.Start)
	end, _ := time.Parse(timeWindowLayout, c.End)

	if start.Before(end) {
		return (now.After(start) || now.Equal(start)) && now.Before(end)
	}

	// Window wraps around midnight.
	return (now.After(start) || now.Equal(start)) || now.Before(end)
}
