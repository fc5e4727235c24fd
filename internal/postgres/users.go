package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"

	"github.com/mzkhan-25/field-services-mk/internal/domain"
	"github.com/mzkhan-25/field-services-mk/internal/errval"
)

func (s *storage) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT id, username, email, phone, role, active FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errval.ErrNotFound
		}

		return nil, err
	}

	return user, nil
}

func (s *storage) GetUsersByRoleAndActive(ctx context.Context, role domain.Role, active bool) ([]*domain.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, username, email, phone, role, active FROM users
		WHERE role = $1 AND active = $2 ORDER BY id`, string(role), active)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []*domain.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}

		users = append(users, user)
	}

	return users, rows.Err()
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	var phone pgtype.Text
	var role string

	err := row.Scan(&user.ID, &user.Username, &user.Email, &phone, &role, &user.Active)
	if err != nil {
		return nil, err
	}

	user.Role = domain.Role(role)
	if phone.Status == pgtype.Present {
		user.Phone = phone.String
	}

	return &user, nil
}
