package advisory_test

import (
	"context"
	"errors"
	"testing"
	"time"

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

// countingRefresher counts invocations and can be flipped into failure mode.
type countingRefresher struct {
	calls int
	fail  bool
}

func (r *countingRefresher) Refresh(_ context.Context, occupancy int) (model.Advisory, error) {
	r.calls++
	if r.fail {
		return model.Advisory{}, errors.New("upstream unavailable")
	}
	return model.Advisory{
		Action:     model.ActionCool,
		Suggestion: "COOL by 2.0 C to reach 25 C (incl. 3 ppl).",
		Sensors:    model.SensorReadings{Temperature: 27.0},
	}, nil
}

func TestCache_TTL(t *testing.T) {
	Convey("Given a cache with a 60s TTL", t, func() {
		ctx := context.Background()
		refresher := &countingRefresher{}
		cache := advisory.NewCache(refresher, advisory.WithTTL(60*time.Second))
		t0 := time.Now()

		Convey("When fetching for the first time", func() {
			adv := cache.Get(ctx, 3, t0)

			Convey("Then the refresher runs once and the value is stamped", func() {
				So(refresher.calls, ShouldEqual, 1)
				So(adv.Action, ShouldEqual, model.ActionCool)
				So(adv.FetchedAt, ShouldResemble, t0)
			})

			Convey("And fetching again within the TTL", func() {
				again := cache.Get(ctx, 3, t0.Add(30*time.Second))

				Convey("Then the cached value is served without a refresh", func() {
					So(refresher.calls, ShouldEqual, 1)
					So(again, ShouldResemble, adv)
				})
			})

			Convey("And fetching after the TTL lapses", func() {
				later := cache.Get(ctx, 3, t0.Add(61*time.Second))

				Convey("Then the refresher runs again and the stamp moves", func() {
					So(refresher.calls, ShouldEqual, 2)
					So(later.FetchedAt, ShouldResemble, t0.Add(61*time.Second))
				})
			})
		})

		Convey("When Reset drops the cached value", func() {
			_ = cache.Get(ctx, 3, t0)
			cache.Reset()
			_ = cache.Get(ctx, 3, t0.Add(time.Second))

			Convey("Then the next Get refreshes unconditionally", func() {
				So(refresher.calls, ShouldEqual, 2)
			})
		})
	})
}

func TestCache_FailureModes(t *testing.T) {
	Convey("Given a cache whose refresher fails", t, func() {
		ctx := context.Background()
		refresher := &countingRefresher{}
		cache := advisory.NewCache(refresher, advisory.WithTTL(60*time.Second))
		t0 := time.Now()

		Convey("When the failure happens before any value was cached", func() {
			refresher.fail = true
			adv := cache.Get(ctx, 0, t0)

			Convey("Then the defined fallback is served", func() {
				So(adv.Action, ShouldEqual, model.ActionUnknown)
				So(adv.Suggestion, ShouldEqual, "Monitor - no immediate action.")
			})

			Convey("And nothing is cached", func() {
				_, ok := cache.Current()
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When a good value exists and a later refresh fails", func() {
			good := cache.Get(ctx, 3, t0)
			refresher.fail = true
			stale := cache.Get(ctx, 3, t0.Add(2*time.Minute))

			Convey("Then the last good value is served unchanged", func() {
				So(stale, ShouldResemble, good)
				So(stale.Action, ShouldEqual, model.ActionCool)
			})

			Convey("And a recovered refresh replaces it wholesale", func() {
				refresher.fail = false
				fresh := cache.Get(ctx, 3, t0.Add(3*time.Minute))
				So(fresh.FetchedAt, ShouldResemble, t0.Add(3*time.Minute))
			})
		})
	})
}

func TestCache_Current(t *testing.T) {
	Convey("Given an empty cache", t, func() {
		cache := advisory.NewCache(&countingRefresher{})

		Convey("Then Current reports no value", func() {
			_, ok := cache.Current()
			So(ok, ShouldBeFalse)
		})

		Convey("When a value is fetched", func() {
			adv := cache.Get(context.Background(), 1, time.Now())

			Convey("Then Current returns it without refreshing", func() {
				got, ok := cache.Current()
				So(ok, ShouldBeTrue)
				So(got, ShouldResemble, adv)
			})
		})
	})
}

func TestRefresherFunc(t *testing.T) {
	Convey("Given a function adapted to the Refresher interface", t, func() {
		var gotOccupancy int
		fn := advisory.RefresherFunc(func(_ context.Context, occupancy int) (model.Advisory, error) {
			gotOccupancy = occupancy
			return model.Advisory{Action: model.ActionIdle}, nil
		})

		adv, err := fn.Refresh(context.Background(), 7)

		Convey("Then the call passes through", func() {
			So(err, ShouldBeNil)
			So(adv.Action, ShouldEqual, model.ActionIdle)
			So(gotOccupancy, ShouldEqual, 7)
		})
	})
}
