package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/mzkhan-25/field-services-mk/internal/domain"
	"github.com/mzkhan-25/field-services-mk/internal/errval"
	"github.com/mzkhan-25/field-services-mk/internal/notifier"
)

// Service owns task records and their lifecycle. All status mutations go
// through the transition table in domain so they cannot diverge from what the
// assignment coordinator considers legal.
type Service struct {
	store    domain.TaskStore
	users    domain.UserDirectory
	locker   domain.DistributedLock
	enqueuer notifier.Enqueuer
	now      func() time.Time
}

func NewService(store domain.TaskStore, users domain.UserDirectory, locker domain.DistributedLock, enqueuer notifier.Enqueuer) *Service {
	return &Service{
		store:    store,
		users:    users,
		locker:   locker,
		enqueuer: enqueuer,
		now:      time.Now,
	}
}

func (s *Service) Create(ctx context.Context, req domain.RouterRequestCreateTask) (*domain.Task, error) {
	slog.InfoContext(ctx, "Creating new task", "title", req.Title)

	if err := validateAddress(req.ClientAddress); err != nil {
		return nil, err
	}

	task := &domain.Task{
		Title:                req.Title,
		Description:          req.Description,
		ClientAddress:        req.ClientAddress,
		Priority:             domain.TaskPriority(req.Priority),
		EstimatedDurationMin: req.EstimatedDuration,
		Status:               domain.Unassigned,
	}

	created, err := s.store.InsertTask(ctx, task)
	if err != nil {
		slog.ErrorContext(ctx, "error occurred while calling store.InsertTask", "error", err)
		return nil, errval.ErrInternal
	}

	slog.InfoContext(ctx, "Task created successfully", "task_id", created.ID)
	return created, nil
}

func (s *Service) GetByID(ctx context.Context, taskID int64) (*domain.Task, error) {
	task, err := s.store.GetTaskByID(ctx, taskID)
	if err != nil {
		if err == errval.ErrNotFound {
			slog.Info("task not found with the given id", "task_id", taskID)
			return nil, err
		}

		slog.ErrorContext(ctx, "error occurred while calling store.GetTaskByID", "error", err)
		return nil, errval.ErrInternal
	}

	return task, nil
}

func (s *Service) GetAll(ctx context.Context) ([]*domain.Task, error) {
	tasks, err := s.store.GetAllTasks(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "error occurred while calling store.GetAllTasks", "error", err)
		return nil, errval.ErrInternal
	}

	return tasks, nil
}

// GetUnassigned lists tasks waiting for a technician, HIGH priority first.
func (s *Service) GetUnassigned(ctx context.Context) ([]*domain.Task, error) {
	tasks, err := s.store.GetUnassignedTasksSortedByPriority(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "error occurred while calling store.GetUnassignedTasksSortedByPriority", "error", err)
		return nil, errval.ErrInternal
	}

	return tasks, nil
}

func (s *Service) GetByAssignee(ctx context.Context, technicianID int64) ([]*domain.Task, error) {
	tasks, err := s.store.GetTasksByAssignee(ctx, technicianID)
	if err != nil {
		slog.ErrorContext(ctx, "error occurred while calling store.GetTasksByAssignee", "error", err)
		return nil, errval.ErrInternal
	}

	return tasks, nil
}

func (s *Service) Update(ctx context.Context, taskID int64, req domain.RouterRequestUpdateTask) (*domain.Task, error) {
	slog.InfoContext(ctx, "Updating task", "task_id", taskID)

	task, err := s.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if req.ClientAddress != nil && *req.ClientAddress != task.ClientAddress {
		if err := validateAddress(*req.ClientAddress); err != nil {
			return nil, err
		}
	}

	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.ClientAddress != nil {
		task.ClientAddress = *req.ClientAddress
	}
	if req.Priority != nil {
		task.Priority = domain.TaskPriority(*req.Priority)
	}
	if req.EstimatedDuration != nil {
		task.EstimatedDurationMin = req.EstimatedDuration
	}

	updated, err := s.store.UpdateTask(ctx, task)
	if err != nil {
		slog.ErrorContext(ctx, "error occurred while calling store.UpdateTask", "error", err)
		return nil, errval.ErrInternal
	}

	return updated, nil
}

// validateAddress is a placeholder policy carried over until real geocoding
// replaces it: an address must hold at least one letter, one digit, and three
// alphanumeric characters overall.
func validateAddress(address string) error {
	if strings.TrimSpace(address) == "" {
		return fmt.Errorf("address cannot be empty: %w", errval.ErrInvalidArgument)
	}

	var hasDigit, hasLetter bool
	alphanumeric := 0
	for _, r := range address {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
			alphanumeric++
		case unicode.IsLetter(r):
			hasLetter = true
			alphanumeric++
		}
	}

	if !hasDigit || !hasLetter {
		return fmt.Errorf("address must contain both letters and numbers: %w", errval.ErrInvalidArgument)
	}
	if alphanumeric < 3 {
		return fmt.Errorf("address must contain meaningful content: %w", errval.ErrInvalidArgument)
	}

	return nil
}
