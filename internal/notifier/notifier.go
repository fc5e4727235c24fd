package notifier

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mzkhan-25/field-services-mk/internal/domain"
	"github.com/mzkhan-25/field-services-mk/internal/errval"
)

// Service owns delivery of customer notifications. A send attempt is always
// recorded: transport failures become a FAILED record and are never raised to
// the caller that triggered the send.
type Service struct {
	store      domain.NotificationStore
	sender     domain.ChannelSender
	maxRetries int32
	now        func() time.Time
}

func NewService(store domain.NotificationStore, sender domain.ChannelSender, maxRetries int32) *Service {
	return &Service{
		store:      store,
		sender:     sender,
		maxRetries: maxRetries,
		now:        time.Now,
	}
}

// Send creates a PENDING record, attempts delivery on the request's channel
// and returns the final record. The returned error covers persistence
// problems only; delivery failure is communicated through DeliveryStatus.
func (s *Service) Send(ctx context.Context, req domain.NotificationRequest) (*domain.Notification, error) {
	channel := req.Channel
	if channel == "" {
		channel = domain.ChannelEmail
	}

	notification := &domain.Notification{
		TaskID:           req.TaskID,
		CustomerID:       req.CustomerID,
		Type:             req.Type,
		Message:          req.Message,
		Channel:          channel,
		RecipientContact: req.RecipientContact,
		DeliveryStatus:   domain.DeliveryPending,
	}

	saved, err := s.store.InsertNotification(ctx, notification)
	if err != nil {
		slog.ErrorContext(ctx, "error occurred while persisting pending notification", "task_id", req.TaskID, "error", err)
		return nil, errval.ErrInternal
	}

	return s.attempt(ctx, saved)
}

// RetryFailed scans FAILED notifications and re-attempts each one that has
// not exhausted its retry budget, mutating the same record. Running the sweep
// twice with no new failures in between is a no-op.
func (s *Service) RetryFailed(ctx context.Context) error {
	failed, err := s.store.GetNotificationsByStatus(ctx, domain.DeliveryFailed)
	if err != nil {
		slog.ErrorContext(ctx, "error occurred while listing failed notifications", "error", err)
		return errval.ErrInternal
	}

	for _, notification := range failed {
		if notification.RetryCount >= s.maxRetries {
			slog.Warn("Max retry count reached for notification, skipping", "notification_id", notification.ID, "retry_count", notification.RetryCount)
			continue
		}

		slog.Info("Retrying failed notification", "notification_id", notification.ID, "retry_count", notification.RetryCount)
		notification.RetryCount++
		if _, err := s.attempt(ctx, notification); err != nil {
			slog.ErrorContext(ctx, "error occurred while persisting retried notification", "notification_id", notification.ID, "error", err)
		}
	}

	return nil
}

// NotificationsByTask lists the delivery history of one task.
func (s *Service) NotificationsByTask(ctx context.Context, taskID int64) ([]*domain.Notification, error) {
	notifications, err := s.store.GetNotificationsByTaskID(ctx, taskID)
	if err != nil {
		slog.ErrorContext(ctx, "error occurred while listing notifications for task", "task_id", taskID, "error", err)
		return nil, errval.ErrInternal
	}

	return notifications, nil
}

// attempt runs one delivery attempt over every sub-channel of the record and
// persists the outcome. BOTH attempts email and sms independently; any
// sub-channel error marks the whole record FAILED for this attempt.
func (s *Service) attempt(ctx context.Context, notification *domain.Notification) (*domain.Notification, error) {
	var emailErr, smsErr error

	if notification.Channel == domain.ChannelEmail || notification.Channel == domain.ChannelBoth {
		emailErr = s.sender.SendEmail(ctx, notification.RecipientContact, EmailSubject(notification.Type), notification.Message)
		if emailErr != nil {
			slog.ErrorContext(ctx, "failed to send email", "notification_id", notification.ID, "error", emailErr)
		}
	}

	if notification.Channel == domain.ChannelSms || notification.Channel == domain.ChannelBoth {
		smsErr = s.sender.SendSms(ctx, notification.RecipientContact, notification.Message)
		if smsErr != nil {
			slog.ErrorContext(ctx, "failed to send sms", "notification_id", notification.ID, "error", smsErr)
		}
	}

	if sendErr := errors.Join(emailErr, smsErr); sendErr != nil {
		notification.DeliveryStatus = domain.DeliveryFailed
		notification.ErrorMessage = sendErr.Error()
	} else {
		sentAt := s.now()
		notification.DeliveryStatus = domain.DeliverySent
		notification.ErrorMessage = ""
		notification.SentAt = &sentAt
	}

	updated, err := s.store.UpdateNotification(ctx, notification)
	if err != nil {
		slog.ErrorContext(ctx, "error occurred while persisting notification outcome", "notification_id", notification.ID, "error", err)
		return nil, errval.ErrInternal
	}

	return updated, nil
}
