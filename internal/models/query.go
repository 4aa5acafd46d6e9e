package models

import (
	"slices"
	"time"
)

// AlertQuery carries the filter parameters for listing alerts. Zero values
// mean "no filter". Time bounds apply to the sent timestamp.
type AlertQuery struct {
	IDs        []string
	Events     []string
	Severities []string
	Statuses   []string
	Urgencies  []string
	Since      time.Time
	Until      time.Time
	// Active keeps only alerts whose expires timestamp is in the future.
	Active bool
	Limit  int
	Offset int
}

// Matches reports whether an alert satisfies every filter in the query.
func (q AlertQuery) Matches(a Alert) bool {
	if len(q.IDs) > 0 && !slices.Contains(q.IDs, a.ID) {
		return false
	}
	if !matchStr(q.Events, a.Event) {
		return false
	}
	if !matchStr(q.Severities, a.Severity) {
		return false
	}
	if !matchStr(q.Statuses, a.Status) {
		return false
	}
	if !matchStr(q.Urgencies, a.Urgency) {
		return false
	}
	if !q.Since.IsZero() && (a.Sent == nil || a.Sent.Before(q.Since)) {
		return false
	}
	if !q.Until.IsZero() && (a.Sent == nil || a.Sent.After(q.Until)) {
		return false
	}
	if q.Active && (a.Expires == nil || !a.Expires.After(time.Now())) {
		return false
	}
	return true
}

func matchStr(want []string, got *string) bool {
	if len(want) == 0 {
		return true
	}
	return got != nil && slices.Contains(want, *got)
}
