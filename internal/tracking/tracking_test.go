package tracking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mzkhan-25/field-services-mk/internal/domain"
	"github.com/mzkhan-25/field-services-mk/internal/errval"
	"github.com/mzkhan-25/field-services-mk/internal/memstore"
)

type testClock struct {
	at time.Time
}

func (c *testClock) now() time.Time { return c.at }

func (c *testClock) advance(d time.Duration) { c.at = c.at.Add(d) }

func newTestTracking() (*Service, *memstore.Storage, *memstore.Queue, *testClock) {
	clock := &testClock{at: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)}

	storage := memstore.NewStorage()
	storage.SeedUser(domain.User{ID: 1, Username: "dispatcher_dana", Email: "dana@example.com", Role: domain.RoleDispatcher, Active: true})
	storage.SeedUser(domain.User{ID: 2, Username: "tech_tom", Email: "tom@example.com", Role: domain.RoleTechnician, Active: true})
	storage.SeedUser(domain.User{ID: 3, Username: "tech_tara", Email: "tara@example.com", Role: domain.RoleTechnician, Active: true})

	queue := memstore.NewQueue()
	throttle := NewMemoryThrottleWithClock(30*time.Second, clock.now)
	service := NewService(storage, storage, storage, throttle, queue, "locations_live")
	service.now = clock.now

	return service, storage, queue, clock
}

func report(userID int64, lat, lon float64) domain.RouterRequestReportLocation {
	return domain.RouterRequestReportLocation{UserID: userID, Latitude: &lat, Longitude: &lon}
}

func Test_report(t *testing.T) {
	t.Run("it should persist an accepted report and publish it live", func(t *testing.T) {
		service, storage, queue, _ := newTestTracking()

		location, err := service.Report(context.Background(), report(2, 52.52, 13.405))

		assert.NoError(t, err)
		assert.Equal(t, int64(2), location.UserID)
		assert.Equal(t, 52.52, location.Latitude)

		saved, err := storage.GetLatestLocationForUser(context.Background(), 2)
		assert.NoError(t, err)
		assert.Equal(t, location.ID, saved.ID)

		assert.Eventually(t, func() bool {
			return len(queue.Messages("locations_live")) == 1
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("it should accept coordinates on the equator and prime meridian", func(t *testing.T) {
		service, _, _, _ := newTestTracking()

		location, err := service.Report(context.Background(), report(2, 0, 0))

		assert.NoError(t, err)
		assert.Equal(t, float64(0), location.Latitude)
		assert.Equal(t, float64(0), location.Longitude)
	})

	t.Run("it should return not found for an unknown user", func(t *testing.T) {
		service, _, _, _ := newTestTracking()

		_, err := service.Report(context.Background(), report(9999, 52.52, 13.405))

		assert.ErrorIs(t, err, errval.ErrNotFound)
	})

	t.Run("it should reject a non-technician reporter", func(t *testing.T) {
		service, _, _, _ := newTestTracking()

		_, err := service.Report(context.Background(), report(1, 52.52, 13.405))

		assert.ErrorIs(t, err, errval.ErrInvalidArgument)
	})

	t.Run("it should throttle a second report inside the window", func(t *testing.T) {
		service, _, _, clock := newTestTracking()

		_, err := service.Report(context.Background(), report(2, 52.52, 13.405))
		assert.NoError(t, err)

		clock.advance(10 * time.Second)
		_, err = service.Report(context.Background(), report(2, 52.53, 13.41))

		assert.ErrorIs(t, err, errval.ErrThrottled)
		var throttled *errval.ThrottledError
		if assert.ErrorAs(t, err, &throttled) {
			assert.Equal(t, int64(20), throttled.RetryAfterSeconds)
		}
	})

	t.Run("it should accept again once the window has passed", func(t *testing.T) {
		service, storage, _, clock := newTestTracking()

		_, err := service.Report(context.Background(), report(2, 52.52, 13.405))
		assert.NoError(t, err)

		clock.advance(30 * time.Second)
		second, err := service.Report(context.Background(), report(2, 52.53, 13.41))
		assert.NoError(t, err)

		latest, err := storage.GetLatestLocationForUser(context.Background(), 2)
		assert.NoError(t, err)
		assert.Equal(t, second.ID, latest.ID)
	})

	t.Run("it should throttle technicians independently", func(t *testing.T) {
		service, _, _, _ := newTestTracking()

		_, err := service.Report(context.Background(), report(2, 52.52, 13.405))
		assert.NoError(t, err)

		_, err = service.Report(context.Background(), report(3, 48.85, 2.35))
		assert.NoError(t, err)
	})
}

func Test_latest_per_technician(t *testing.T) {
	t.Run("it should return only the freshest report per technician inside the window", func(t *testing.T) {
		service, _, _, clock := newTestTracking()

		_, err := service.Report(context.Background(), report(2, 52.52, 13.405))
		assert.NoError(t, err)

		clock.advance(time.Minute)
		second, err := service.Report(context.Background(), report(2, 52.53, 13.41))
		assert.NoError(t, err)

		clock.advance(time.Minute)
		locations, err := service.LatestPerTechnician(context.Background(), ActiveWindow)
		assert.NoError(t, err)
		if assert.Len(t, locations, 1) {
			assert.Equal(t, second.ID, locations[0].ID)
		}
	})

	t.Run("it should omit technicians whose latest report is stale", func(t *testing.T) {
		service, _, _, clock := newTestTracking()

		_, err := service.Report(context.Background(), report(2, 52.52, 13.405))
		assert.NoError(t, err)

		clock.advance(6 * time.Minute)
		locations, err := service.LatestPerTechnician(context.Background(), ActiveWindow)
		assert.NoError(t, err)
		assert.Len(t, locations, 0)
	})

	t.Run("it should omit reports from non-technicians", func(t *testing.T) {
		service, storage, _, _ := newTestTracking()

		_, err := storage.InsertLocation(context.Background(), &domain.Location{
			UserID:    1,
			Latitude:  52.52,
			Longitude: 13.405,
			Timestamp: service.now(),
		})
		assert.NoError(t, err)

		locations, err := service.LatestPerTechnician(context.Background(), ActiveWindow)
		assert.NoError(t, err)
		assert.Len(t, locations, 0)
	})
}

func Test_nearest(t *testing.T) {
	t.Run("it should pick the technician closest to the point", func(t *testing.T) {
		service, _, _, _ := newTestTracking()

		// tech_tom in Berlin, tech_tara in Paris.
		berlin, err := service.Report(context.Background(), report(2, 52.52, 13.405))
		assert.NoError(t, err)
		_, err = service.Report(context.Background(), report(3, 48.8566, 2.3522))
		assert.NoError(t, err)

		// Hamburg is far closer to Berlin than to Paris.
		nearest, err := service.Nearest(context.Background(), ActiveWindow, 53.5511, 9.9937)
		assert.NoError(t, err)
		assert.Equal(t, berlin.ID, nearest.ID)
	})

	t.Run("it should return not found when nobody reported inside the window", func(t *testing.T) {
		service, _, _, clock := newTestTracking()

		_, err := service.Report(context.Background(), report(2, 52.52, 13.405))
		assert.NoError(t, err)

		clock.advance(6 * time.Minute)
		_, err = service.Nearest(context.Background(), ActiveWindow, 52.52, 13.405)
		assert.ErrorIs(t, err, errval.ErrNotFound)
	})
}

func Test_latest_for_user(t *testing.T) {
	t.Run("it should return a stale report regardless of the window", func(t *testing.T) {
		service, _, _, clock := newTestTracking()

		first, err := service.Report(context.Background(), report(2, 52.52, 13.405))
		assert.NoError(t, err)

		clock.advance(2 * time.Hour)
		latest, err := service.LatestForUser(context.Background(), 2)
		assert.NoError(t, err)
		assert.Equal(t, first.ID, latest.ID)
	})

	t.Run("it should return not found when the user never reported", func(t *testing.T) {
		service, _, _, _ := newTestTracking()

		_, err := service.LatestForUser(context.Background(), 3)
		assert.ErrorIs(t, err, errval.ErrNotFound)
	})
}

func Test_task_locations(t *testing.T) {
	t.Run("it should list unassigned and in progress tasks with unresolved coordinates", func(t *testing.T) {
		service, storage, _, _ := newTestTracking()

		for _, status := range []domain.TaskStatus{domain.Unassigned, domain.InProgress, domain.Completed} {
			_, err := storage.InsertTask(context.Background(), &domain.Task{
				Title:         "Task " + string(status),
				ClientAddress: "12 Elm Street",
				Priority:      domain.Medium,
				Status:        status,
			})
			assert.NoError(t, err)
		}

		views, err := service.TaskLocations(context.Background())
		assert.NoError(t, err)
		if assert.Len(t, views, 2) {
			for _, view := range views {
				assert.Equal(t, "12 Elm Street", view.Address)
				assert.Nil(t, view.Latitude)
				assert.Nil(t, view.Longitude)
			}
		}
	})
}
