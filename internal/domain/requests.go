package domain

// Request bindings for the HTTP surface. Validation tags beyond the built-ins
// are registered in cmd/server.

type RouterRequestCreateTask struct {
	Title             string `json:"title" binding:"required,min=3,max=200"`
	Description       string `json:"description" binding:"max=1000"`
	ClientAddress     string `json:"client_address" binding:"required,min=5,max=500"`
	Priority          string `json:"priority" binding:"required,validate_priority"`
	EstimatedDuration *int32 `json:"estimated_duration" binding:"omitempty,gt=0"`
}

type RouterRequestUpdateTask struct {
	Title             *string `json:"title" binding:"omitempty,min=3,max=200"`
	Description       *string `json:"description" binding:"omitempty,max=1000"`
	ClientAddress     *string `json:"client_address" binding:"omitempty,min=5,max=500"`
	Priority          *string `json:"priority" binding:"omitempty,validate_priority"`
	EstimatedDuration *int32  `json:"estimated_duration" binding:"omitempty,gt=0"`
}

type RouterRequestAssignTask struct {
	TechnicianID    int64   `json:"technician_id" binding:"required"`
	AssignedByID    int64   `json:"assigned_by" binding:"required"`
	CustomerID      *int64  `json:"customer_id"`
	CustomerContact *string `json:"customer_contact"`
	Channel         *string `json:"notify_channel" binding:"omitempty,validate_channel"`
}

type RouterRequestStartTask struct {
	CustomerID      *int64  `json:"customer_id"`
	CustomerContact *string `json:"customer_contact"`
	Channel         *string `json:"notify_channel" binding:"omitempty,validate_channel"`
}

type RouterRequestCompleteTask struct {
	WorkSummary string `json:"work_summary"`
}

type RouterRequestReportLocation struct {
	UserID int64 `json:"user_id" binding:"required"`
	// Pointers so that 0 (equator, prime meridian) passes required.
	Latitude  *float64 `json:"latitude" binding:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" binding:"required,gte=-180,lte=180"`
	Accuracy  *float64 `json:"accuracy" binding:"omitempty,gte=0"`
}
