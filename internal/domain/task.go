package domain

import "time"

type TaskStatus string

const (
	Unassigned TaskStatus = "UNASSIGNED"
	Assigned   TaskStatus = "ASSIGNED"
	InProgress TaskStatus = "IN_PROGRESS"
	Completed  TaskStatus = "COMPLETED"
	Cancelled  TaskStatus = "CANCELLED"
)

type TaskPriority string

const (
	High   TaskPriority = "HIGH"
	Medium TaskPriority = "MEDIUM"
	Low    TaskPriority = "LOW"
)

type Task struct {
	ID                   int64        `json:"id"`
	Title                string       `json:"title"`
	Description          string       `json:"description"`
	ClientAddress        string       `json:"client_address"`
	Priority             TaskPriority `json:"priority"`
	EstimatedDurationMin *int32       `json:"estimated_duration,omitempty"`
	Status               TaskStatus   `json:"status"`
	AssignedTechnicianID *int64       `json:"assigned_technician_id,omitempty"`
	AssignedAt           *time.Time   `json:"assigned_at,omitempty"`
	AssignedByID         *int64       `json:"assigned_by_id,omitempty"`
	StartedAt            *time.Time   `json:"started_at,omitempty"`
	CompletedAt          *time.Time   `json:"completed_at,omitempty"`
	WorkSummary          string       `json:"work_summary,omitempty"`
	CreatedAt            time.Time    `json:"created_at"`
	UpdatedAt            time.Time    `json:"updated_at"`
}

// CanTransition is the single transition table for task statuses. Both the
// lifecycle and assignment services consult it so they cannot diverge on what
// is legal. COMPLETED and CANCELLED are terminal.
func CanTransition(from, to TaskStatus) bool {
	switch from {
	case Unassigned:
		return to == Assigned || to == Cancelled
	case Assigned:
		return to == InProgress || to == Unassigned || to == Cancelled
	case InProgress:
		return to == Completed || to == Assigned || to == Cancelled
	case Completed, Cancelled:
		return false
	default:
		return false
	}
}
