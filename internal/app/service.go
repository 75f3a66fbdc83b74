// Package app provides the aggregation loop service: it consumes one
// detection snapshot per tick, drives the alert evaluators, the attendance
// tracker and the advisory cache, and publishes a merged immutable state to
// observers.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/classtwin/classtwin/internal/adapters/bus"
	"github.com/classtwin/classtwin/internal/adapters/mq/queue"
	"github.com/classtwin/classtwin/internal/domain/advisory"
	"github.com/classtwin/classtwin/internal/domain/alerting"
	"github.com/classtwin/classtwin/internal/domain/attendance"
	"github.com/classtwin/classtwin/internal/domain/model"
	"github.com/classtwin/classtwin/pkg/logger"
	"github.com/classtwin/classtwin/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultOccupancyLimit    = 12
	defaultMinDistance       = 1.0 // meters
	defaultBehaviorThreshold = 40.0
	defaultLabCapacity       = 30
	defaultPublishInterval   = time.Second
)

// Service implements the aggregation loop and its control surface.
type Service struct {
	mu sync.RWMutex

	// Evaluator configuration
	occupancyLimit    int
	minDistance       float64
	behaviorThreshold float64
	proximityEnabled  bool
	behaviorEnabled   bool
	labCapacity       int

	// Scheduling
	publishInterval         time.Duration
	advisoryRefreshInterval time.Duration

	// Core components
	tracker  *attendance.Tracker
	cache    *advisory.Cache
	frames   queue.Queue
	stateBus *bus.StateBus

	// State
	started      bool
	paused       bool
	current      *model.AggregatedState
	lastAdvisory *model.Advisory
	stopCh       chan struct{}

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithOccupancyLimit sets the occupancy alert threshold. It doubles as the
// registered-count ceiling while proximity alerting is enabled.
func WithOccupancyLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.occupancyLimit = limit
		}
	}
}

// WithMinDistance sets the pairwise proximity threshold in meters.
func WithMinDistance(distance float64) Option {
	return func(s *Service) {
		if distance > 0 {
			s.minDistance = distance
		}
	}
}

// WithBehaviorThreshold sets the nose/neck vertical distance threshold in
// image pixels.
func WithBehaviorThreshold(threshold float64) Option {
	return func(s *Service) {
		if threshold > 0 {
			s.behaviorThreshold = threshold
		}
	}
}

// WithProximityAlerts enables or disables the proximity/occupancy evaluator.
func WithProximityAlerts(enabled bool) Option {
	return func(s *Service) {
		s.proximityEnabled = enabled
	}
}

// WithBehaviorAlerts enables or disables the behavioral evaluator.
func WithBehaviorAlerts(enabled bool) Option {
	return func(s *Service) {
		s.behaviorEnabled = enabled
	}
}

// WithLabCapacity sets the registered-count ceiling used when proximity
// alerting is disabled.
func WithLabCapacity(capacity int) Option {
	return func(s *Service) {
		if capacity > 0 {
			s.labCapacity = capacity
		}
	}
}

// WithPublishInterval sets the observer fan-out cadence.
func WithPublishInterval(interval time.Duration) Option {
	return func(s *Service) {
		if interval > 0 {
			s.publishInterval = interval
		}
	}
}

// WithAdvisoryRefreshInterval enables periodic background advisory
// refreshes. Zero leaves refresh purely on-demand.
func WithAdvisoryRefreshInterval(interval time.Duration) Option {
	return func(s *Service) {
		if interval >= 0 {
			s.advisoryRefreshInterval = interval
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs the aggregation service over its collaborators: the frame
// queue fed by the sensing adapter, the advisory cache, and the state bus.
func New(frames queue.Queue, cache *advisory.Cache, stateBus *bus.StateBus, opts ...Option) *Service {
	s := &Service{
		occupancyLimit:    defaultOccupancyLimit,
		minDistance:       defaultMinDistance,
		behaviorThreshold: defaultBehaviorThreshold,
		proximityEnabled:  true,
		behaviorEnabled:   true,
		labCapacity:       defaultLabCapacity,
		publishInterval:   defaultPublishInterval,
		tracker:           attendance.NewTracker(),
		cache:             cache,
		frames:            frames,
		stateBus:          stateBus,
		stopCh:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("aggregator")
	}
	return s
}

// Start launches the aggregation worker, the publisher, and (when
// configured) the background advisory refresher. It is idempotent.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.started = true

	go s.runLoop(ctx)
	go s.runPublisher(ctx)
	if s.advisoryRefreshInterval > 0 {
		go s.runAdvisoryRefresher(ctx)
	}

	s.logger.Info(ctx, "aggregation service started",
		logger.Int("occupancy_limit", s.occupancyLimit),
		logger.Float64("min_distance", s.minDistance),
		logger.Any("proximity_alerts", s.proximityEnabled),
		logger.Any("behavior_alerts", s.behaviorEnabled),
	)
	return nil
}

// Stop shuts the service down. The frame queue is closed so the worker
// drains and exits; the bus stops accepting publishes.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.started = false

	close(s.stopCh)
	_ = s.frames.Close()
	s.stateBus.Close()
	s.logger.Info(context.Background(), "aggregation service stopped")
}

// runLoop is the single dedicated aggregation worker. It consumes one
// snapshot per tick at the device's native frame rate.
func (s *Service) runLoop(ctx context.Context) {
	snapshots := s.frames.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case snap, ok := <-snapshots:
			if !ok {
				return
			}
			if s.Paused() {
				metrics.RecordTickSkipped()
				continue
			}
			s.Tick(snap, time.Now())
		}
	}
}

// runPublisher fans the latest state out to subscribers on a fixed cadence,
// decoupled from the tick rate.
func (s *Service) runPublisher(ctx context.Context) {
	ticker := time.NewTicker(s.publishInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			if state, ok := s.Current(); ok {
				s.stateBus.Publish(state)
			}
		}
	}
}

// runAdvisoryRefresher periodically refreshes the advisory in the
// background so dashboards see it move even without user action. Refresh
// latency lands on this goroutine, never on the tick path.
func (s *Service) runAdvisoryRefresher(ctx context.Context) {
	ticker := time.NewTicker(s.advisoryRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.RequestAdvisoryRefresh(ctx)
		}
	}
}

// Tick folds one snapshot into the aggregate state and returns the new
// immutable state value. Evaluator failures cannot occur on normalized
// snapshots; attendance is only consulted during an active session; the
// advisory is whatever was last requested.
func (s *Service) Tick(snap model.Snapshot, now time.Time) model.AggregatedState {
	start := time.Now()
	defer func() {
		metrics.RecordTickLatency(float64(time.Since(start).Milliseconds()))
	}()

	var alerts []model.Alert
	if s.proximityEnabled {
		alerts = append(alerts, alerting.EvaluateProximity(snap, s.occupancyLimit, s.minDistance)...)
	}
	if s.behaviorEnabled {
		alerts = append(alerts, alerting.EvaluateBehavior(snap, s.behaviorThreshold)...)
	}
	for _, a := range alerts {
		metrics.RecordAlert(string(a.Kind))
	}

	var summary *model.AttendanceSummary
	if s.tracker.Active() {
		if sum, err := s.tracker.Observe(snap, now); err == nil {
			summary = &sum
			metrics.UpdateAttendance(sum.Present, sum.Registered)
		}
	}

	s.mu.Lock()
	state := model.AggregatedState{
		Timestamp:   now,
		NumEntities: len(snap.Entities),
		Alerts:      alerts,
		Attendance:  summary,
		Advisory:    s.lastAdvisory,
		Paused:      s.paused,
	}
	s.current = &state
	s.mu.Unlock()

	metrics.RecordTickProcessed()
	metrics.UpdateEntityCount(len(snap.Entities))
	return state
}

// Current returns the latest aggregated state. The second return is false
// before the first tick.
func (s *Service) Current() (model.AggregatedState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return model.AggregatedState{}, false
	}
	return *s.current, true
}

// StartSession begins attendance tracking. The registered count must not
// exceed the occupancy limit while proximity alerting is enabled, or the
// lab capacity otherwise; violations leave the session inactive.
func (s *Service) StartSession(registered int) error {
	if s.proximityEnabled && registered > s.occupancyLimit {
		return fmt.Errorf("start session: %w (%d > %d)", ErrRegistrationExceedsLimit, registered, s.occupancyLimit)
	}
	if !s.proximityEnabled && registered > s.labCapacity {
		return fmt.Errorf("start session: %w (%d > %d)", ErrRegistrationExceedsCapacity, registered, s.labCapacity)
	}

	if err := s.tracker.Start(registered, time.Now()); err != nil {
		return err
	}

	metrics.UpdateSessionActive(true)
	s.logger.Info(context.Background(), "attendance session started",
		logger.Int("registered", registered),
	)
	return nil
}

// StopSession ends attendance tracking and returns the durations report.
func (s *Service) StopSession() (attendance.Report, error) {
	report, err := s.tracker.Stop(time.Now())
	if err != nil {
		return attendance.Report{}, err
	}

	metrics.UpdateSessionActive(false)
	s.logger.Info(context.Background(), "attendance session stopped",
		logger.Int("max_observed", report.MaxObserved),
		logger.Int("min_observed", report.MinObserved),
		logger.Int("tracked", len(report.Entries)),
	)
	return report, nil
}

// RequestAdvisoryRefresh fetches an advisory for the current occupancy via
// the cache and holds it for subsequent ticks. It never fails: staleness is
// preferable to an error reaching observers.
func (s *Service) RequestAdvisoryRefresh(ctx context.Context) model.Advisory {
	occupancy := 0
	if state, ok := s.Current(); ok {
		occupancy = state.NumEntities
	}

	adv := s.cache.Get(ctx, occupancy, time.Now())

	s.mu.Lock()
	s.lastAdvisory = &adv
	s.mu.Unlock()
	return adv
}

// Pause suspends tick processing. Frames arriving while paused are skipped.
func (s *Service) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = true
}

// Resume restarts tick processing.
func (s *Service) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = false
}

// Paused reports whether tick processing is suspended.
func (s *Service) Paused() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paused
}

// SessionActive reports whether an attendance session is running.
func (s *Service) SessionActive() bool {
	return s.tracker.Active()
}
