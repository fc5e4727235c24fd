package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"

	"github.com/mzkhan-25/field-services-mk/internal/domain"
	"github.com/mzkhan-25/field-services-mk/internal/errval"
)

func (s *storage) InsertLocation(ctx context.Context, location *domain.Location) (*domain.Location, error) {
	row := s.pool.QueryRow(ctx, `INSERT INTO locations (user_id, latitude, longitude, accuracy, reported_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		location.UserID, location.Latitude, location.Longitude, location.Accuracy, location.Timestamp)

	inserted := *location
	if err := row.Scan(&inserted.ID); err != nil {
		return nil, err
	}

	return &inserted, nil
}

func (s *storage) GetLatestLocationForUser(ctx context.Context, userID int64) (*domain.Location, error) {
	row := s.pool.QueryRow(ctx, `SELECT id, user_id, latitude, longitude, accuracy, reported_at
		FROM locations WHERE user_id = $1 ORDER BY reported_at DESC LIMIT 1`, userID)

	location, err := scanLocation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errval.ErrNotFound
		}

		return nil, err
	}

	return location, nil
}

func (s *storage) GetLatestLocationPerUserSince(ctx context.Context, since time.Time) ([]*domain.Location, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT ON (user_id) id, user_id, latitude, longitude, accuracy, reported_at
		FROM locations WHERE reported_at >= $1 ORDER BY user_id, reported_at DESC`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	locations := []*domain.Location{}
	for rows.Next() {
		location, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}

		locations = append(locations, location)
	}

	return locations, rows.Err()
}

func scanLocation(row pgx.Row) (*domain.Location, error) {
	var location domain.Location
	var accuracy pgtype.Float8

	err := row.Scan(&location.ID, &location.UserID, &location.Latitude, &location.Longitude, &accuracy, &location.Timestamp)
	if err != nil {
		return nil, err
	}

	if accuracy.Status == pgtype.Present {
		value := accuracy.Float
		location.Accuracy = &value
	}

	return &location, nil
}
