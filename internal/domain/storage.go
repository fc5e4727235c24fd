package domain

import (
	"context"
	"time"
)

type TaskStore interface {
	Ping(ctx context.Context) (err error)
	GetTaskByID(ctx context.Context, id int64) (*Task, error)
	GetAllTasks(ctx context.Context) ([]*Task, error)
	GetTasksByStatus(ctx context.Context, status TaskStatus) ([]*Task, error)
	GetTasksByAssignee(ctx context.Context, technicianID int64) ([]*Task, error)
	GetUnassignedTasksSortedByPriority(ctx context.Context) ([]*Task, error)
	InsertTask(ctx context.Context, task *Task) (*Task, error)
	UpdateTask(ctx context.Context, task *Task) (*Task, error)
}

type UserDirectory interface {
	GetUserByID(ctx context.Context, id int64) (*User, error)
	GetUsersByRoleAndActive(ctx context.Context, role Role, active bool) ([]*User, error)
}

type LocationStore interface {
	InsertLocation(ctx context.Context, location *Location) (*Location, error)
	GetLatestLocationForUser(ctx context.Context, userID int64) (*Location, error)
	GetLatestLocationPerUserSince(ctx context.Context, since time.Time) ([]*Location, error)
}

type NotificationStore interface {
	InsertNotification(ctx context.Context, notification *Notification) (*Notification, error)
	UpdateNotification(ctx context.Context, notification *Notification) (*Notification, error)
	GetNotificationsByTaskID(ctx context.Context, taskID int64) ([]*Notification, error)
	GetNotificationsByStatus(ctx context.Context, status DeliveryStatus) ([]*Notification, error)
}
