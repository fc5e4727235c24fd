package notifier

import (
	"encoding/json"
	"log/slog"

	"github.com/mzkhan-25/field-services-mk/internal/domain"
)

// Target names the customer a lifecycle event should notify.
type Target struct {
	CustomerID int64
	Contact    string
	Channel    domain.NotificationChannel
}

// Enqueuer hands notification requests off without blocking the state
// mutation that triggered them. Delivery is best-effort and never rolls back
// the mutation.
type Enqueuer interface {
	EnqueueTaskAssigned(task *domain.Task, technician *domain.User, target Target)
	EnqueueTaskInProgress(task *domain.Task, technician *domain.User, target Target)
}

// QueueEnqueuer publishes notification requests onto the notifications queue
// for the worker to deliver.
type QueueEnqueuer struct {
	queue     domain.Queue
	queueName string
}

func NewQueueEnqueuer(queue domain.Queue, queueName string) *QueueEnqueuer {
	return &QueueEnqueuer{
		queue:     queue,
		queueName: queueName,
	}
}

func (e *QueueEnqueuer) EnqueueTaskAssigned(task *domain.Task, technician *domain.User, target Target) {
	e.enqueue(domain.NotificationRequest{
		TaskID:           task.ID,
		CustomerID:       target.CustomerID,
		Type:             domain.TaskAssignedNotification,
		Message:          TaskAssignedMessage(task, technician),
		Channel:          target.Channel,
		RecipientContact: target.Contact,
	})
}

func (e *QueueEnqueuer) EnqueueTaskInProgress(task *domain.Task, technician *domain.User, target Target) {
	e.enqueue(domain.NotificationRequest{
		TaskID:           task.ID,
		CustomerID:       target.CustomerID,
		Type:             domain.TaskInProgressNotification,
		Message:          TaskInProgressMessage(task, technician),
		Channel:          target.Channel,
		RecipientContact: target.Contact,
	})
}

func (e *QueueEnqueuer) enqueue(req domain.NotificationRequest) {
	marshalled, err := json.Marshal(req)
	if err != nil {
		slog.Error("There was an error in marshalling notification request", "task_id", req.TaskID, "error", err.Error())
		return
	}

	// Publishing may block on broker I/O; the triggering operation must not
	// wait for it.
	go func() {
		if err := e.queue.PublishMessage(e.queueName, string(marshalled)); err != nil {
			slog.Error("Error occurred while queuing notification request", "task_id", req.TaskID, "error", err.Error())
		}
	}()
}
