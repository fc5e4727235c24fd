package domain

import "time"

// Location is an append-only position report. Newer reports supersede older
// ones for the same technician, they never replace them.
type Location struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  *float64  `json:"accuracy,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// TaskLocationView carries a task's address for map display. Coordinates stay
// unresolved until a geocoding collaborator fills them in.
type TaskLocationView struct {
	TaskID    int64        `json:"task_id"`
	Title     string       `json:"title"`
	Address   string       `json:"address"`
	Status    TaskStatus   `json:"status"`
	Priority  TaskPriority `json:"priority"`
	Latitude  *float64     `json:"latitude"`
	Longitude *float64     `json:"longitude"`
}
