package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mzkhan-25/field-services-mk/internal/domain"
	"github.com/mzkhan-25/field-services-mk/internal/errval"
)

// ActiveWindow is how far back a technician's latest report may lie before
// they are considered inactive rather than at a stale position.
const ActiveWindow = 5 * time.Minute

// Service ingests technician position reports under the per-technician
// throttle and answers latest-position queries.
type Service struct {
	locations domain.LocationStore
	tasks     domain.TaskStore
	users     domain.UserDirectory
	throttle  Throttle
	live      domain.LivePublisher
	liveTopic string
	now       func() time.Time
}

func NewService(locations domain.LocationStore, tasks domain.TaskStore, users domain.UserDirectory, throttle Throttle, live domain.LivePublisher, liveTopic string) *Service {
	return &Service{
		locations: locations,
		tasks:     tasks,
		users:     users,
		throttle:  throttle,
		live:      live,
		liveTopic: liveTopic,
		now:       time.Now,
	}
}

// Report ingests one position report. Accepted readings are persisted and
// pushed to live subscribers; the push never blocks or fails the report.
func (s *Service) Report(ctx context.Context, req domain.RouterRequestReportLocation) (*domain.Location, error) {
	slog.InfoContext(ctx, "Updating location for user", "user_id", req.UserID)

	user, err := s.users.GetUserByID(ctx, req.UserID)
	if err != nil {
		if err == errval.ErrNotFound {
			slog.Info("user not found with the given id", "user_id", req.UserID)
			return nil, err
		}

		slog.ErrorContext(ctx, "error occurred while calling users.GetUserByID", "error", err)
		return nil, errval.ErrInternal
	}

	if user.Role != domain.RoleTechnician {
		return nil, fmt.Errorf("only technicians can report location: %w", errval.ErrInvalidArgument)
	}

	retryAfter, ok, err := s.throttle.Reserve(ctx, req.UserID)
	if err != nil {
		slog.ErrorContext(ctx, "error occurred while checking location throttle", "user_id", req.UserID, "error", err)
		return nil, errval.ErrInternal
	}
	if !ok {
		return nil, &errval.ThrottledError{RetryAfterSeconds: retryAfter}
	}

	location := &domain.Location{
		UserID:    req.UserID,
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
		Accuracy:  req.Accuracy,
		Timestamp: s.now(),
	}

	saved, err := s.locations.InsertLocation(ctx, location)
	if err != nil {
		slog.ErrorContext(ctx, "error occurred while calling locations.InsertLocation", "user_id", req.UserID, "error", err)
		return nil, errval.ErrInternal
	}

	s.publishLive(saved)

	slog.InfoContext(ctx, "Location updated successfully", "user_id", req.UserID, "location_id", saved.ID)
	return saved, nil
}

// LatestPerTechnician returns, for each active technician with a report
// inside the window, only their most recent report. Technicians without a
// report in the window are omitted entirely.
func (s *Service) LatestPerTechnician(ctx context.Context, window time.Duration) ([]*domain.Location, error) {
	technicians, err := s.users.GetUsersByRoleAndActive(ctx, domain.RoleTechnician, true)
	if err != nil {
		slog.ErrorContext(ctx, "error occurred while calling users.GetUsersByRoleAndActive", "error", err)
		return nil, errval.ErrInternal
	}

	technicianIDs := map[int64]bool{}
	for _, technician := range technicians {
		technicianIDs[technician.ID] = true
	}

	since := s.now().Add(-window)
	locations, err := s.locations.GetLatestLocationPerUserSince(ctx, since)
	if err != nil {
		slog.ErrorContext(ctx, "error occurred while calling locations.GetLatestLocationPerUserSince", "error", err)
		return nil, errval.ErrInternal
	}

	filtered := []*domain.Location{}
	for _, location := range locations {
		if technicianIDs[location.UserID] {
			filtered = append(filtered, location)
		}
	}

	return filtered, nil
}

// Nearest returns the active technician whose latest report inside the window
// is closest to the given point.
func (s *Service) Nearest(ctx context.Context, window time.Duration, latitude, longitude float64) (*domain.Location, error) {
	locations, err := s.LatestPerTechnician(ctx, window)
	if err != nil {
		return nil, err
	}
	if len(locations) == 0 {
		return nil, errval.ErrNotFound
	}

	nearest := locations[0]
	best := DistanceKm(latitude, longitude, nearest.Latitude, nearest.Longitude)
	for _, location := range locations[1:] {
		if d := DistanceKm(latitude, longitude, location.Latitude, location.Longitude); d < best {
			nearest = location
			best = d
		}
	}

	return nearest, nil
}

// LatestForUser returns the most recent report of one technician, however old.
func (s *Service) LatestForUser(ctx context.Context, userID int64) (*domain.Location, error) {
	location, err := s.locations.GetLatestLocationForUser(ctx, userID)
	if err != nil {
		if err == errval.ErrNotFound {
			return nil, err
		}

		slog.ErrorContext(ctx, "error occurred while calling locations.GetLatestLocationForUser", "user_id", userID, "error", err)
		return nil, errval.ErrInternal
	}

	return location, nil
}

// TaskLocations lists address views for tasks a dispatcher wants on the map:
// the unassigned ones and the ones being worked. Coordinates stay nil until a
// geocoding collaborator resolves the addresses.
func (s *Service) TaskLocations(ctx context.Context) ([]domain.TaskLocationView, error) {
	views := []domain.TaskLocationView{}
	for _, status := range []domain.TaskStatus{domain.Unassigned, domain.InProgress} {
		tasks, err := s.tasks.GetTasksByStatus(ctx, status)
		if err != nil {
			slog.ErrorContext(ctx, "error occurred while calling tasks.GetTasksByStatus", "status", string(status), "error", err)
			return nil, errval.ErrInternal
		}

		for _, task := range tasks {
			views = append(views, domain.TaskLocationView{
				TaskID:   task.ID,
				Title:    task.Title,
				Address:  task.ClientAddress,
				Status:   task.Status,
				Priority: task.Priority,
			})
		}
	}

	return views, nil
}

func (s *Service) publishLive(location *domain.Location) {
	marshalled, err := json.Marshal(location)
	if err != nil {
		slog.Error("There was an error in marshalling location for live publish", "location_id", location.ID, "error", err.Error())
		return
	}

	// Subscribers must never block the reporting path.
	go func() {
		if err := s.live.Publish(s.liveTopic, string(marshalled)); err != nil {
			slog.Error("Error occurred while publishing live location", "location_id", location.ID, "error", err.Error())
		}
	}()
}
