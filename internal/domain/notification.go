package domain

import "time"

type NotificationType string

const (
	TaskAssignedNotification   NotificationType = "TASK_ASSIGNED"
	TaskInProgressNotification NotificationType = "TASK_IN_PROGRESS"
	TaskCompletedNotification  NotificationType = "TASK_COMPLETED"
	TaskCancelledNotification  NotificationType = "TASK_CANCELLED"
)

type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "PENDING"
	DeliverySent      DeliveryStatus = "SENT"
	DeliveryDelivered DeliveryStatus = "DELIVERED"
	DeliveryFailed    DeliveryStatus = "FAILED"
)

type NotificationChannel string

const (
	ChannelEmail NotificationChannel = "EMAIL"
	ChannelSms   NotificationChannel = "SMS"
	ChannelBoth  NotificationChannel = "BOTH"
)

type Notification struct {
	ID               int64               `json:"id"`
	TaskID           int64               `json:"task_id"`
	CustomerID       int64               `json:"customer_id"`
	Type             NotificationType    `json:"type"`
	Message          string              `json:"message"`
	Channel          NotificationChannel `json:"channel"`
	RecipientContact string              `json:"recipient_contact"`
	DeliveryStatus   DeliveryStatus      `json:"delivery_status"`
	ErrorMessage     string              `json:"error_message,omitempty"`
	RetryCount       int32               `json:"retry_count"`
	SentAt           *time.Time          `json:"sent_at,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// NotificationRequest is the unit handed to the dispatcher, either directly
// for a synchronous send or marshalled onto the notifications queue for the
// worker to pick up.
type NotificationRequest struct {
	TaskID           int64               `json:"task_id" binding:"required"`
	CustomerID       int64               `json:"customer_id" binding:"required"`
	Type             NotificationType    `json:"type" binding:"required,validate_notification_type"`
	Message          string              `json:"message" binding:"required"`
	Channel          NotificationChannel `json:"channel" binding:"omitempty,validate_channel"`
	RecipientContact string              `json:"recipient_contact" binding:"required"`
}
