package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/classtwin/classtwin/internal/adapters/bus"
	"github.com/classtwin/classtwin/internal/adapters/mq/queue"
	app "github.com/classtwin/classtwin/internal/app"
	"github.com/classtwin/classtwin/internal/domain/advisory"
	"github.com/classtwin/classtwin/internal/domain/model"
	"github.com/classtwin/classtwin/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

// stubRefresher returns a fixed advisory.
type stubRefresher struct {
	calls int
}

func (r *stubRefresher) Refresh(_ context.Context, _ int) (model.Advisory, error) {
	r.calls++
	return model.Advisory{Action: model.ActionMaintain, Suggestion: "Maintain - temperature is optimal."}, nil
}

func newTestService(opts ...app.Option) (*app.Service, *stubRefresher) {
	refresher := &stubRefresher{}
	frames := queue.NewInMemoryQueue(queue.WithBufferSize(8))
	cache := advisory.NewCache(refresher)
	stateBus := bus.New()
	return app.New(frames, cache, stateBus, opts...), refresher
}

// crowdSnapshot builds a snapshot of n entities spread 10 m apart, with the
// first entity posed nose-over-neck (upright).
func crowdSnapshot(n int) model.Snapshot {
	entities := make([]model.Entity, n)
	for i := range entities {
		entities[i] = model.Entity{
			ID:       model.StableID(uint64(i + 1)),
			Position: model.Point3D{X: float64(i) * 10},
			Keypoints: []model.Keypoint{
				{X: 100, Y: 100},
				{X: 100, Y: 200},
			},
		}
	}
	return model.Snapshot{Timestamp: time.Now(), Entities: entities}
}

func TestService_Tick(t *testing.T) {
	Convey("Given a service with default thresholds", t, func() {
		svc, _ := newTestService()
		now := time.Now()

		Convey("When ticking an empty snapshot", func() {
			state := svc.Tick(model.Snapshot{Timestamp: now}, now)

			Convey("Then the state is quiet", func() {
				So(state.NumEntities, ShouldEqual, 0)
				So(state.Alerts, ShouldBeEmpty)
				So(state.Attendance, ShouldBeNil)
				So(state.Advisory, ShouldBeNil)
				So(state.Paused, ShouldBeFalse)
			})

			Convey("And Current returns the same state", func() {
				current, ok := svc.Current()
				So(ok, ShouldBeTrue)
				So(current.NumEntities, ShouldEqual, state.NumEntities)
				So(current.Timestamp, ShouldResemble, state.Timestamp)
			})
		})

		Convey("When a snapshot violates several rules at once", func() {
			snap := crowdSnapshot(13)
			// Move entity 2 next to entity 1 and collapse entity 1's pose.
			snap.Entities[1].Position = model.Point3D{X: 0.5}
			snap.Entities[0].Keypoints[0].Y = 195

			state := svc.Tick(snap, now)

			Convey("Then alerts appear in occupancy, proximity, behavioral order", func() {
				So(state.Alerts, ShouldHaveLength, 3)
				So(state.Alerts[0].Kind, ShouldEqual, model.AlertOccupancy)
				So(state.Alerts[1].Kind, ShouldEqual, model.AlertProximity)
				So(state.Alerts[2].Kind, ShouldEqual, model.AlertBehavioral)
			})
		})

		Convey("When evaluators are disabled", func() {
			svc, _ := newTestService(
				app.WithProximityAlerts(false),
				app.WithBehaviorAlerts(false),
			)
			snap := crowdSnapshot(13)
			snap.Entities[0].Keypoints[0].Y = 195

			state := svc.Tick(snap, now)

			Convey("Then no alerts are emitted", func() {
				So(state.Alerts, ShouldBeEmpty)
				So(state.NumEntities, ShouldEqual, 13)
			})
		})
	})
}

func TestService_Sessions(t *testing.T) {
	Convey("Given a service with occupancy limit 12 and lab capacity 30", t, func() {
		svc, _ := newTestService()
		now := time.Now()

		Convey("When no session is active", func() {
			state := svc.Tick(crowdSnapshot(3), now)

			Convey("Then the published attendance is nil", func() {
				So(state.Attendance, ShouldBeNil)
				So(svc.SessionActive(), ShouldBeFalse)
			})
		})

		Convey("When registering more students than the occupancy limit", func() {
			err := svc.StartSession(13)

			Convey("Then the session is rejected and stays inactive", func() {
				So(errors.Is(err, app.ErrRegistrationExceedsLimit), ShouldBeTrue)
				So(svc.SessionActive(), ShouldBeFalse)
			})
		})

		Convey("When proximity alerting is disabled, the lab capacity applies", func() {
			svc, _ := newTestService(app.WithProximityAlerts(false))

			So(svc.StartSession(13), ShouldBeNil)
			_, err := svc.StopSession()
			So(err, ShouldBeNil)

			err = svc.StartSession(31)
			So(errors.Is(err, app.ErrRegistrationExceedsCapacity), ShouldBeTrue)
		})

		Convey("When a session runs across ticks", func() {
			So(svc.StartSession(10), ShouldBeNil)
			So(svc.SessionActive(), ShouldBeTrue)

			state := svc.Tick(crowdSnapshot(4), now)

			Convey("Then attendance is published with the classification", func() {
				So(state.Attendance, ShouldNotBeNil)
				So(state.Attendance.Status, ShouldEqual, model.AttendanceFair)
				So(state.Attendance.Present, ShouldEqual, 4)
				So(state.Attendance.Registered, ShouldEqual, 10)
			})

			Convey("And stopping yields the durations report", func() {
				_ = svc.Tick(crowdSnapshot(4), now.Add(2*time.Second))

				report, err := svc.StopSession()
				So(err, ShouldBeNil)
				So(svc.SessionActive(), ShouldBeFalse)
				So(report.MaxObserved, ShouldEqual, 4)
				So(report.Entries, ShouldHaveLength, 4)
				So(report.Entries[0].Duration, ShouldEqual, 2*time.Second)
			})
		})
	})
}

func TestService_Advisory(t *testing.T) {
	Convey("Given a service with a stub advisory refresher", t, func() {
		svc, refresher := newTestService()
		ctx := context.Background()
		now := time.Now()

		Convey("When no refresh was ever requested", func() {
			state := svc.Tick(crowdSnapshot(1), now)

			Convey("Then the published advisory is nil", func() {
				So(state.Advisory, ShouldBeNil)
			})
		})

		Convey("When a refresh is requested", func() {
			_ = svc.Tick(crowdSnapshot(2), now)
			adv := svc.RequestAdvisoryRefresh(ctx)

			Convey("Then the refresher ran once", func() {
				So(refresher.calls, ShouldEqual, 1)
				So(adv.Action, ShouldEqual, model.ActionMaintain)
			})

			Convey("And the advisory is held across subsequent ticks", func() {
				state1 := svc.Tick(crowdSnapshot(2), now.Add(time.Second))
				state2 := svc.Tick(crowdSnapshot(3), now.Add(2*time.Second))

				So(state1.Advisory, ShouldNotBeNil)
				So(state2.Advisory, ShouldNotBeNil)
				So(state1.Advisory.Action, ShouldEqual, model.ActionMaintain)
				So(state2.Advisory.Action, ShouldEqual, model.ActionMaintain)
				So(refresher.calls, ShouldEqual, 1)
			})
		})
	})
}

func TestService_PauseResume(t *testing.T) {
	Convey("Given a service", t, func() {
		svc, _ := newTestService()

		Convey("Then it starts unpaused", func() {
			So(svc.Paused(), ShouldBeFalse)
		})

		Convey("When paused", func() {
			svc.Pause()
			So(svc.Paused(), ShouldBeTrue)

			Convey("Then the next tick is published with the paused flag", func() {
				state := svc.Tick(crowdSnapshot(1), time.Now())
				So(state.Paused, ShouldBeTrue)
			})

			Convey("And resuming clears the flag", func() {
				svc.Resume()
				So(svc.Paused(), ShouldBeFalse)
			})
		})
	})
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a service wired to a frame queue and state bus", t, func() {
		refresher := &stubRefresher{}
		frames := queue.NewInMemoryQueue(queue.WithBufferSize(8))
		cache := advisory.NewCache(refresher)
		stateBus := bus.New()
		svc := app.New(frames, cache, stateBus,
			app.WithPublishInterval(10*time.Millisecond),
		)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		Convey("When started", func() {
			err := svc.Start(ctx)
			So(err, ShouldBeNil)
			defer svc.Stop()

			Convey("And starting again is idempotent", func() {
				So(svc.Start(ctx), ShouldBeNil)
			})

			Convey("And an enqueued frame flows through to subscribers", func() {
				ch := make(chan bus.State, 4)
				So(stateBus.Subscribe("test", ch), ShouldBeNil)

				So(frames.Enqueue(ctx, crowdSnapshot(2)), ShouldBeTrue)

				select {
				case state := <-ch:
					So(state.NumEntities, ShouldEqual, 2)
				case <-time.After(2 * time.Second):
					So("timed out waiting for published state", ShouldBeEmpty)
				}
			})
		})

		Convey("When stopped", func() {
			So(svc.Start(ctx), ShouldBeNil)
			svc.Stop()

			Convey("Then the frame queue no longer accepts frames", func() {
				So(frames.IsClosed(), ShouldBeTrue)
				So(frames.Enqueue(ctx, crowdSnapshot(1)), ShouldBeFalse)
			})
		})
	})
}
