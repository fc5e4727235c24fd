package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mzkhan-25/field-services-mk/internal/domain"
	"github.com/mzkhan-25/field-services-mk/internal/errval"
	"github.com/mzkhan-25/field-services-mk/internal/locking"
	"github.com/mzkhan-25/field-services-mk/internal/notifier"
)

// Start moves an ASSIGNED task to IN_PROGRESS and stamps startedAt. The
// check-then-mutate sequence holds the per-task lock so concurrent lifecycle
// operations on the same id are serialized. When a notification target is
// given, a TASK_IN_PROGRESS notification is enqueued best-effort.
func (s *Service) Start(ctx context.Context, taskID int64, target *notifier.Target) (*domain.Task, error) {
	slog.InfoContext(ctx, "Starting task", "task_id", taskID)

	var started *domain.Task
	err := locking.WithKey(s.locker, locking.TaskKey(taskID), func() error {
		task, err := s.GetByID(ctx, taskID)
		if err != nil {
			return err
		}

		if task.Status != domain.Assigned || !domain.CanTransition(task.Status, domain.InProgress) {
			return &errval.InvalidStateError{Current: string(task.Status), Operation: "start"}
		}

		now := s.now()
		task.Status = domain.InProgress
		task.StartedAt = &now

		started, err = s.store.UpdateTask(ctx, task)
		if err != nil {
			slog.ErrorContext(ctx, "error occurred while calling store.UpdateTask", "task_id", taskID, "error", err)
			return errval.ErrInternal
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Task marked as IN_PROGRESS", "task_id", taskID)

	if target != nil {
		s.enqueuer.EnqueueTaskInProgress(started, s.lookupTechnician(ctx, started), *target)
	}

	return started, nil
}

// Complete moves an IN_PROGRESS task to COMPLETED. A blank work summary is an
// invalid argument regardless of the task's current status.
func (s *Service) Complete(ctx context.Context, taskID int64, workSummary string) (*domain.Task, error) {
	slog.InfoContext(ctx, "Completing task", "task_id", taskID)

	if strings.TrimSpace(workSummary) == "" {
		return nil, fmt.Errorf("work summary is required for task completion: %w", errval.ErrInvalidArgument)
	}

	var completed *domain.Task
	err := locking.WithKey(s.locker, locking.TaskKey(taskID), func() error {
		task, err := s.GetByID(ctx, taskID)
		if err != nil {
			return err
		}

		if task.Status != domain.InProgress || !domain.CanTransition(task.Status, domain.Completed) {
			return &errval.InvalidStateError{Current: string(task.Status), Operation: "complete"}
		}

		now := s.now()
		task.Status = domain.Completed
		task.CompletedAt = &now
		task.WorkSummary = workSummary

		completed, err = s.store.UpdateTask(ctx, task)
		if err != nil {
			slog.ErrorContext(ctx, "error occurred while calling store.UpdateTask", "task_id", taskID, "error", err)
			return errval.ErrInternal
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Task marked as COMPLETED", "task_id", taskID)
	return completed, nil
}

// GetStatus is a pure read of the task's current status.
func (s *Service) GetStatus(ctx context.Context, taskID int64) (domain.TaskStatus, error) {
	task, err := s.GetByID(ctx, taskID)
	if err != nil {
		return "", err
	}

	return task.Status, nil
}

func (s *Service) lookupTechnician(ctx context.Context, task *domain.Task) *domain.User {
	if task.AssignedTechnicianID == nil {
		return nil
	}

	technician, err := s.users.GetUserByID(ctx, *task.AssignedTechnicianID)
	if err != nil {
		slog.Warn("Could not resolve assigned technician for notification", "task_id", task.ID, "technician_id", *task.AssignedTechnicianID, "error", err.Error())
		return nil
	}

	return technician
}
