package notifier

import (
	"fmt"
	"strings"
	"time"

	"github.com/mzkhan-25/field-services-mk/internal/domain"
)

const travelTimeMinutes = 30

// EmailSubject returns the subject line for a notification type.
func EmailSubject(notificationType domain.NotificationType) string {
	switch notificationType {
	case domain.TaskAssignedNotification:
		return "Field Service: Task Assigned"
	case domain.TaskInProgressNotification:
		return "Field Service: Technician On The Way"
	case domain.TaskCompletedNotification:
		return "Field Service: Task Completed"
	case domain.TaskCancelledNotification:
		return "Field Service: Task Cancelled"
	default:
		return "Field Service: Update"
	}
}

// TaskAssignedMessage renders the customer-facing assignment message. Pure
// function of the task snapshot, no side effects.
func TaskAssignedMessage(task *domain.Task, technician *domain.User) string {
	var b strings.Builder
	b.WriteString("Task Assignment Notification\n\n")
	b.WriteString("Your service request has been assigned to a technician.\n\n")
	b.WriteString("Task Details:\n")
	fmt.Fprintf(&b, "- Title: %s\n", task.Title)
	fmt.Fprintf(&b, "- Description: %s\n", task.Description)
	fmt.Fprintf(&b, "- Address: %s\n", task.ClientAddress)
	fmt.Fprintf(&b, "- Priority: %s\n", task.Priority)

	if technician != nil {
		fmt.Fprintf(&b, "- Technician: %s\n", technician.Username)
		fmt.Fprintf(&b, "- Technician Email: %s\n", technician.Email)
	}

	if task.EstimatedDurationMin != nil {
		fmt.Fprintf(&b, "- Estimated Duration: %d minutes\n", *task.EstimatedDurationMin)
	}

	fmt.Fprintf(&b, "- Estimated Time of Arrival: %s\n", ETA(task))
	b.WriteString("\nYou will receive another notification when the technician is on the way.")

	return b.String()
}

// TaskInProgressMessage renders the customer-facing on-the-way message.
func TaskInProgressMessage(task *domain.Task, technician *domain.User) string {
	var b strings.Builder
	b.WriteString("Task In Progress Notification\n\n")
	b.WriteString("Your technician is now on the way to your location.\n\n")
	b.WriteString("Task Details:\n")
	fmt.Fprintf(&b, "- Title: %s\n", task.Title)
	fmt.Fprintf(&b, "- Address: %s\n", task.ClientAddress)

	if technician != nil {
		fmt.Fprintf(&b, "- Technician: %s\n", technician.Username)
		fmt.Fprintf(&b, "- Technician Email: %s\n", technician.Email)
	}

	fmt.Fprintf(&b, "- Estimated Time of Arrival: %s\n", ETA(task))
	b.WriteString("\nPlease be available at the service location.")

	return b.String()
}

// ETA derives the arrival estimate from the assignment time plus a fixed
// travel buffer plus the estimated task duration (0 when unset).
func ETA(task *domain.Task) string {
	if task.AssignedAt == nil {
		return "undetermined"
	}

	totalMinutes := travelTimeMinutes
	if task.EstimatedDurationMin != nil {
		totalMinutes += int(*task.EstimatedDurationMin)
	}

	eta := task.AssignedAt.Add(time.Duration(totalMinutes) * time.Minute)
	return eta.Format("2006-01-02 15:04")
}
