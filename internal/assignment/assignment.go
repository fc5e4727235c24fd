package assignment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mzkhan-25/field-services-mk/internal/domain"
	"github.com/mzkhan-25/field-services-mk/internal/errval"
	"github.com/mzkhan-25/field-services-mk/internal/locking"
	"github.com/mzkhan-25/field-services-mk/internal/notifier"
)

// Coordinator binds tasks to technicians. The check-then-set on the task's
// assignee holds the per-task lock, so two concurrent assignment attempts on
// the same task cannot both succeed.
type Coordinator struct {
	tasks    domain.TaskStore
	users    domain.UserDirectory
	locker   domain.DistributedLock
	enqueuer notifier.Enqueuer
	now      func() time.Time
}

func NewCoordinator(tasks domain.TaskStore, users domain.UserDirectory, locker domain.DistributedLock, enqueuer notifier.Enqueuer) *Coordinator {
	return &Coordinator{
		tasks:    tasks,
		users:    users,
		locker:   locker,
		enqueuer: enqueuer,
		now:      time.Now,
	}
}

// Assign binds the task to the technician on behalf of the acting dispatcher.
// Preconditions are checked in order; the first failure wins. On success a
// TASK_ASSIGNED notification is enqueued for the target, best-effort: its
// delivery never rolls back the assignment.
func (c *Coordinator) Assign(ctx context.Context, taskID, technicianID, assignedByID int64, target *notifier.Target) (*domain.Task, error) {
	slog.InfoContext(ctx, "Assigning task to technician", "task_id", taskID, "technician_id", technicianID)

	var assigned *domain.Task
	var technician *domain.User

	err := locking.WithKey(c.locker, locking.TaskKey(taskID), func() error {
		task, err := c.tasks.GetTaskByID(ctx, taskID)
		if err != nil {
			if err == errval.ErrNotFound {
				slog.Info("task not found with the given id", "task_id", taskID)
				return err
			}

			slog.ErrorContext(ctx, "error occurred while calling tasks.GetTaskByID", "error", err)
			return errval.ErrInternal
		}

		if task.AssignedTechnicianID != nil {
			return &errval.AlreadyAssignedError{Assignee: c.assigneeName(ctx, *task.AssignedTechnicianID)}
		}

		technician, err = c.users.GetUserByID(ctx, technicianID)
		if err != nil {
			if err == errval.ErrNotFound {
				slog.Info("technician not found with the given id", "technician_id", technicianID)
				return err
			}

			slog.ErrorContext(ctx, "error occurred while calling users.GetUserByID", "error", err)
			return errval.ErrInternal
		}

		if technician.Role != domain.RoleTechnician {
			return fmt.Errorf("user %d is not a technician: %w", technicianID, errval.ErrInvalidArgument)
		}

		if !technician.Active {
			return errval.ErrUnavailable
		}

		if !domain.CanTransition(task.Status, domain.Assigned) {
			return &errval.InvalidStateError{Current: string(task.Status), Operation: "assign"}
		}

		now := c.now()
		task.AssignedTechnicianID = &technician.ID
		task.AssignedAt = &now
		task.AssignedByID = &assignedByID
		task.Status = domain.Assigned

		assigned, err = c.tasks.UpdateTask(ctx, task)
		if err != nil {
			slog.ErrorContext(ctx, "error occurred while calling tasks.UpdateTask", "task_id", taskID, "error", err)
			return errval.ErrInternal
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Task assigned successfully", "task_id", taskID, "technician", technician.Username)

	if target != nil {
		c.enqueuer.EnqueueTaskAssigned(assigned, technician, *target)
	}

	return assigned, nil
}

// ListAvailableTechnicians returns every active technician as a lightweight
// projection, in store iteration order.
func (c *Coordinator) ListAvailableTechnicians(ctx context.Context) ([]domain.Technician, error) {
	users, err := c.users.GetUsersByRoleAndActive(ctx, domain.RoleTechnician, true)
	if err != nil {
		slog.ErrorContext(ctx, "error occurred while calling users.GetUsersByRoleAndActive", "error", err)
		return nil, errval.ErrInternal
	}

	technicians := make([]domain.Technician, 0, len(users))
	for _, user := range users {
		technicians = append(technicians, user.ToTechnician())
	}

	return technicians, nil
}

func (c *Coordinator) assigneeName(ctx context.Context, technicianID int64) string {
	assignee, err := c.users.GetUserByID(ctx, technicianID)
	if err != nil {
		slog.Warn("Could not resolve current assignee", "technician_id", technicianID, "error", err.Error())
		return fmt.Sprintf("id %d", technicianID)
	}

	return assignee.Username
}
