package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"

	"github.com/mzkhan-25/field-services-mk/internal/domain"
	"github.com/mzkhan-25/field-services-mk/internal/errval"
)

const notificationColumns = `id, task_id, customer_id, type, message, channel, recipient_contact,
	delivery_status, error_message, retry_count, sent_at, created_at, updated_at`

func (s *storage) InsertNotification(ctx context.Context, notification *domain.Notification) (*domain.Notification, error) {
	row := s.pool.QueryRow(ctx, `INSERT INTO notifications (task_id, customer_id, type, message, channel, recipient_contact, delivery_status, retry_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id, created_at, updated_at`,
		notification.TaskID, notification.CustomerID, string(notification.Type), notification.Message,
		string(notification.Channel), notification.RecipientContact, string(notification.DeliveryStatus),
		notification.RetryCount)

	inserted := *notification
	if err := row.Scan(&inserted.ID, &inserted.CreatedAt, &inserted.UpdatedAt); err != nil {
		return nil, err
	}

	return &inserted, nil
}

func (s *storage) UpdateNotification(ctx context.Context, notification *domain.Notification) (*domain.Notification, error) {
	row := s.pool.QueryRow(ctx, `UPDATE notifications SET delivery_status = $1, error_message = $2,
		retry_count = $3, sent_at = $4, updated_at = NOW() WHERE id = $5 RETURNING updated_at`,
		string(notification.DeliveryStatus), nullableText(notification.ErrorMessage),
		notification.RetryCount, notification.SentAt, notification.ID)

	updated := *notification
	if err := row.Scan(&updated.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errval.ErrNotFound
		}

		return nil, err
	}

	return &updated, nil
}

func (s *storage) GetNotificationsByTaskID(ctx context.Context, taskID int64) ([]*domain.Notification, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE task_id = $1 ORDER BY id`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectNotifications(rows)
}

func (s *storage) GetNotificationsByStatus(ctx context.Context, status domain.DeliveryStatus) ([]*domain.Notification, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE delivery_status = $1 ORDER BY id`, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectNotifications(rows)
}

func collectNotifications(rows pgx.Rows) ([]*domain.Notification, error) {
	notifications := []*domain.Notification{}
	for rows.Next() {
		notification, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}

		notifications = append(notifications, notification)
	}

	return notifications, rows.Err()
}

func scanNotification(row pgx.Row) (*domain.Notification, error) {
	var n domain.Notification
	var typ, channel, status string
	var errorMessage pgtype.Text
	var sentAt pgtype.Timestamptz

	err := row.Scan(&n.ID, &n.TaskID, &n.CustomerID, &typ, &n.Message, &channel, &n.RecipientContact,
		&status, &errorMessage, &n.RetryCount, &sentAt, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, err
	}

	n.Type = domain.NotificationType(typ)
	n.Channel = domain.NotificationChannel(channel)
	n.DeliveryStatus = domain.DeliveryStatus(status)
	if errorMessage.Status == pgtype.Present {
		n.ErrorMessage = errorMessage.String
	}
	if sentAt.Status == pgtype.Present {
		at := sentAt.Time
		n.SentAt = &at
	}

	return &n, nil
}

func nullableText(value string) interface{} {
	if value == "" {
		return nil
	}

	return value
}
