package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mzkhan-25/field-services-mk/internal/domain"
	"github.com/mzkhan-25/field-services-mk/internal/errval"
)

// Storage is an in-memory implementation of the repository interfaces,
// used by the unit tests and for local wiring without postgres.
type Storage struct {
	mu            sync.Mutex
	tasks         map[int64]domain.Task
	users         map[int64]domain.User
	locations     []domain.Location
	notifications map[int64]domain.Notification

	nextTaskID         int64
	nextLocationID     int64
	nextNotificationID int64
}

func NewStorage() *Storage {
	return &Storage{
		tasks:         map[int64]domain.Task{},
		users:         map[int64]domain.User{},
		notifications: map[int64]domain.Notification{},
	}
}

func (s *Storage) Ping(_ context.Context) error { return nil }

// SeedUser registers a directory entry. The identity subsystem owns users, so
// there is no insert path through the store interfaces.
func (s *Storage) SeedUser(user domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
}

func (s *Storage) GetTaskByID(_ context.Context, id int64) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, errval.ErrNotFound
	}

	copied := task
	return &copied, nil
}

func (s *Storage) GetAllTasks(_ context.Context) ([]*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.collectTasks(func(domain.Task) bool { return true }), nil
}

func (s *Storage) GetTasksByStatus(_ context.Context, status domain.TaskStatus) ([]*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.collectTasks(func(task domain.Task) bool { return task.Status == status }), nil
}

func (s *Storage) GetTasksByAssignee(_ context.Context, technicianID int64) ([]*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.collectTasks(func(task domain.Task) bool {
		return task.AssignedTechnicianID != nil && *task.AssignedTechnicianID == technicianID
	}), nil
}

func (s *Storage) GetUnassignedTasksSortedByPriority(_ context.Context) ([]*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := s.collectTasks(func(task domain.Task) bool { return task.Status == domain.Unassigned })
	rank := map[domain.TaskPriority]int{domain.High: 0, domain.Medium: 1, domain.Low: 2}
	sort.SliceStable(tasks, func(i, j int) bool {
		return rank[tasks[i].Priority] < rank[tasks[j].Priority]
	})

	return tasks, nil
}

func (s *Storage) InsertTask(_ context.Context, task *domain.Task) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextTaskID++
	inserted := *task
	inserted.ID = s.nextTaskID
	inserted.CreatedAt = time.Now()
	inserted.UpdatedAt = inserted.CreatedAt
	s.tasks[inserted.ID] = inserted

	copied := inserted
	return &copied, nil
}

func (s *Storage) UpdateTask(_ context.Context, task *domain.Task) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[task.ID]; !ok {
		return nil, errval.ErrNotFound
	}

	updated := *task
	updated.UpdatedAt = time.Now()
	s.tasks[updated.ID] = updated

	copied := updated
	return &copied, nil
}

func (s *Storage) GetUserByID(_ context.Context, id int64) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, errval.ErrNotFound
	}

	copied := user
	return &copied, nil
}

func (s *Storage) GetUsersByRoleAndActive(_ context.Context, role domain.Role, active bool) ([]*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]int64, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	users := []*domain.User{}
	for _, id := range ids {
		user := s.users[id]
		if user.Role == role && user.Active == active {
			copied := user
			users = append(users, &copied)
		}
	}

	return users, nil
}

func (s *Storage) InsertLocation(_ context.Context, location *domain.Location) (*domain.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextLocationID++
	inserted := *location
	inserted.ID = s.nextLocationID
	s.locations = append(s.locations, inserted)

	copied := inserted
	return &copied, nil
}

func (s *Storage) GetLatestLocationForUser(_ context.Context, userID int64) (*domain.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest *domain.Location
	for i := range s.locations {
		location := s.locations[i]
		if location.UserID != userID {
			continue
		}
		if latest == nil || location.Timestamp.After(latest.Timestamp) {
			copied := location
			latest = &copied
		}
	}

	if latest == nil {
		return nil, errval.ErrNotFound
	}

	return latest, nil
}

func (s *Storage) GetLatestLocationPerUserSince(_ context.Context, since time.Time) ([]*domain.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	latest := map[int64]domain.Location{}
	for _, location := range s.locations {
		if location.Timestamp.Before(since) {
			continue
		}
		current, ok := latest[location.UserID]
		if !ok || location.Timestamp.After(current.Timestamp) {
			latest[location.UserID] = location
		}
	}

	ids := make([]int64, 0, len(latest))
	for id := range latest {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	locations := []*domain.Location{}
	for _, id := range ids {
		copied := latest[id]
		locations = append(locations, &copied)
	}

	return locations, nil
}

func (s *Storage) InsertNotification(_ context.Context, notification *domain.Notification) (*domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextNotificationID++
	inserted := *notification
	inserted.ID = s.nextNotificationID
	inserted.CreatedAt = time.Now()
	inserted.UpdatedAt = inserted.CreatedAt
	s.notifications[inserted.ID] = inserted

	copied := inserted
	return &copied, nil
}

func (s *Storage) UpdateNotification(_ context.Context, notification *domain.Notification) (*domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.notifications[notification.ID]; !ok {
		return nil, errval.ErrNotFound
	}

	updated := *notification
	updated.UpdatedAt = time.Now()
	s.notifications[updated.ID] = updated

	copied := updated
	return &copied, nil
}

func (s *Storage) GetNotificationsByTaskID(_ context.Context, taskID int64) ([]*domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.collectNotifications(func(n domain.Notification) bool { return n.TaskID == taskID }), nil
}

func (s *Storage) GetNotificationsByStatus(_ context.Context, status domain.DeliveryStatus) ([]*domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.collectNotifications(func(n domain.Notification) bool { return n.DeliveryStatus == status }), nil
}

func (s *Storage) collectTasks(keep func(domain.Task) bool) []*domain.Task {
	ids := make([]int64, 0, len(s.tasks))
	for id := range s.tasks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	tasks := []*domain.Task{}
	for _, id := range ids {
		task := s.tasks[id]
		if keep(task) {
			copied := task
			tasks = append(tasks, &copied)
		}
	}

	return tasks
}

func (s *Storage) collectNotifications(keep func(domain.Notification) bool) []*domain.Notification {
	ids := make([]int64, 0, len(s.notifications))
	for id := range s.notifications {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	notifications := []*domain.Notification{}
	for _, id := range ids {
		notification := s.notifications[id]
		if keep(notification) {
			copied := notification
			notifications = append(notifications, &copied)
		}
	}

	return notifications
}
