// Package attendance maintains the session registry of entity ids to
// first/last-seen timestamps and classifies occupancy against a registered
// count.
package attendance

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/classtwin/classtwin/internal/domain/model"
	"github.com/google/uuid"
)

// Record tracks when a single entity was first and last seen during a
// session. Records are never removed while the session is active, so an
// entity that disappears and reappears extends its original record.
type Record struct {
	ID        model.Identity
	FirstSeen time.Time
	LastSeen  time.Time
}

// Duration is the total span the entity was tracked for.
func (r Record) Duration() time.Duration {
	return r.LastSeen.Sub(r.FirstSeen)
}

// Entry is one line of the durations report.
type Entry struct {
	ID       model.Identity
	Duration time.Duration
}

// Report is the frozen result of a stopped session. Entries are in the
// order the entities were first observed.
type Report struct {
	SessionID   string
	StartedAt   time.Time
	StoppedAt   time.Time
	Registered  int
	MaxObserved int
	MinObserved int
	Entries     []Entry
}

// Render produces the human-readable report block.
func (r Report) Render() string {
	var b strings.Builder
	b.WriteString("----- Lecture Attendance Tracking Report -----\n")
	fmt.Fprintf(&b, "Lecture Duration: %.2f seconds\n", r.StoppedAt.Sub(r.StartedAt).Seconds())
	fmt.Fprintf(&b, "Max attendees: %d\n", r.MaxObserved)
	fmt.Fprintf(&b, "Min attendees: %d\n", r.MinObserved)
	fmt.Fprintf(&b, "Registered Students: %d\n", r.Registered)
	b.WriteString("\nIndividual Tracking:\n")
	for _, e := range r.Entries {
		fmt.Fprintf(&b, "Body %d: %.2fs\n", e.ID.Value, e.Duration.Seconds())
	}
	b.WriteString("----- End of Report -----")
	return b.String()
}

// Tracker is the attendance session state machine. It has two states,
// inactive and active, and rejects calls made in the wrong state. A single
// writer (the aggregation worker) drives Observe; Summary may be read
// concurrently.
type Tracker struct {
	mu sync.RWMutex

	active      bool
	sessionID   string
	startedAt   time.Time
	registered  int
	maxObserved int
	minObserved int
	records     map[model.Identity]*Record
	order       []model.Identity

	lastPresent int
}

// NewTracker creates an inactive tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Start transitions the tracker from inactive to active and resets all
// session state. The registered-count ceiling (occupancy limit or lab
// capacity) is a caller-enforced precondition; Start only rejects counts
// below one.
func (t *Tracker) Start(registered int, now time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.active {
		return fmt.Errorf("start: %w", ErrAlreadyActive)
	}
	if registered < 1 {
		return fmt.Errorf("start: %w (got %d)", ErrInvalidRegistration, registered)
	}

	t.active = true
	t.sessionID = uuid.NewString()
	t.startedAt = now
	t.registered = registered
	t.maxObserved = 0
	t.minObserved = math.MaxInt
	t.records = make(map[model.Identity]*Record)
	t.order = t.order[:0]
	t.lastPresent = 0

	return nil
}

// Observe folds one snapshot into the session: it upserts per-entity
// records, widens the max/min occupancy watermarks, and returns the
// current classification.
func (t *Tracker) Observe(snap model.Snapshot, now time.Time) (model.AttendanceSummary, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.active {
		return model.AttendanceSummary{}, fmt.Errorf("observe: %w", ErrNotActive)
	}

	present := len(snap.Entities)
	if present > t.maxObserved {
		t.maxObserved = present
	}
	if present < t.minObserved {
		t.minObserved = present
	}

	for _, e := range snap.Entities {
		if rec, ok := t.records[e.ID]; ok {
			rec.LastSeen = now
			continue
		}
		t.records[e.ID] = &Record{ID: e.ID, FirstSeen: now, LastSeen: now}
		t.order = append(t.order, e.ID)
	}

	t.lastPresent = present
	return t.summaryLocked(), nil
}

// Summary returns the current classification without mutating the session.
// It reports ErrNotActive outside a session.
func (t *Tracker) Summary() (model.AttendanceSummary, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if !t.active {
		return model.AttendanceSummary{}, fmt.Errorf("summary: %w", ErrNotActive)
	}
	return t.summaryLocked(), nil
}

func (t *Tracker) summaryLocked() model.AttendanceSummary {
	ratio := float64(t.maxObserved) / float64(t.registered)
	var status model.AttendanceStatus
	switch {
	case ratio < 1.0/3.0:
		status = model.AttendancePoor
	case ratio <= 2.0/3.0:
		status = model.AttendanceFair
	default:
		status = model.AttendanceGood
	}
	return model.AttendanceSummary{
		Status:     status,
		Present:    t.lastPresent,
		Registered: t.registered,
	}
}

// Active reports whether a session is running.
func (t *Tracker) Active() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.active
}

// Stop transitions the tracker from active to inactive and freezes the
// session into a durations report, in first-seen order.
func (t *Tracker) Stop(now time.Time) (Report, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.active {
		return Report{}, fmt.Errorf("stop: %w", ErrNotActive)
	}

	minObserved := t.minObserved
	if minObserved == math.MaxInt {
		// Session stopped before a single observation.
		minObserved = 0
	}

	report := Report{
		SessionID:   t.sessionID,
		StartedAt:   t.startedAt,
		StoppedAt:   now,
		Registered:  t.registered,
		MaxObserved: t.maxObserved,
		MinObserved: minObserved,
		Entries:     make([]Entry, 0, len(t.order)),
	}
	for _, id := range t.order {
		rec := t.records[id]
		report.Entries = append(report.Entries, Entry{ID: id, Duration: rec.Duration()})
	}

	t.active = false
	return report, nil
}
