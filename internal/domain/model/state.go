package model

import (
	"fmt"
	"time"
)

// AttendanceStatus classifies attendance against the registered count.
type AttendanceStatus string

// Attendance classifications, by ratio of max observed to registered:
// Poor below 1/3, Fair up to 2/3, Good above.
const (
	AttendancePoor AttendanceStatus = "Poor"
	AttendanceFair AttendanceStatus = "Fair"
	AttendanceGood AttendanceStatus = "Good"
)

// AttendanceSummary is the per-tick attendance classification published
// while a session is active.
type AttendanceSummary struct {
	Status     AttendanceStatus
	Present    int
	Registered int
}

// String renders the summary the way dashboards display it,
// e.g. "Good (9 / 10)".
func (s AttendanceSummary) String() string {
	return fmt.Sprintf("%s (%d / %d)", s.Status, s.Present, s.Registered)
}

// AggregatedState is the single immutable value published each tick. Each
// tick produces a new one; no shared mutable state crosses the publish
// boundary. Attendance is nil outside an active session and Advisory is nil
// until the first refresh request.
type AggregatedState struct {
	Timestamp   time.Time
	NumEntities int
	Alerts      []Alert
	Attendance  *AttendanceSummary
	Advisory    *Advisory
	Paused      bool
}
