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

const taskColumns = `id, title, description, client_address, priority, estimated_duration, status,
	assigned_technician_id, assigned_at, assigned_by_id, started_at, completed_at, work_summary,
	created_at, updated_at`

type taskRow struct {
	ID                   int64
	Title                string
	Description          pgtype.Text
	ClientAddress        string
	Priority             string
	EstimatedDuration    pgtype.Int4
	Status               string
	AssignedTechnicianID pgtype.Int8
	AssignedAt           pgtype.Timestamptz
	AssignedByID         pgtype.Int8
	StartedAt            pgtype.Timestamptz
	CompletedAt          pgtype.Timestamptz
	WorkSummary          pgtype.Text
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (s *storage) GetTaskByID(ctx context.Context, id int64) (*domain.Task, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errval.ErrNotFound
		}

		return nil, err
	}

	return task, nil
}

func (s *storage) GetAllTasks(ctx context.Context) ([]*domain.Task, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTasks(rows)
}

func (s *storage) GetTasksByStatus(ctx context.Context, status domain.TaskStatus) ([]*domain.Task, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+taskColumns+` FROM tasks WHERE status = $1 ORDER BY id`, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTasks(rows)
}

func (s *storage) GetTasksByAssignee(ctx context.Context, technicianID int64) ([]*domain.Task, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+taskColumns+` FROM tasks WHERE assigned_technician_id = $1 ORDER BY id`, technicianID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTasks(rows)
}

func (s *storage) GetUnassignedTasksSortedByPriority(ctx context.Context) ([]*domain.Task, error) {
	// HIGH before MEDIUM before LOW, stable by id otherwise.
	rows, err := s.pool.Query(ctx, `SELECT `+taskColumns+` FROM tasks WHERE status = 'UNASSIGNED'
		ORDER BY CASE priority WHEN 'HIGH' THEN 0 WHEN 'MEDIUM' THEN 1 ELSE 2 END, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTasks(rows)
}

func (s *storage) InsertTask(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	row := s.pool.QueryRow(ctx, `INSERT INTO tasks (title, description, client_address, priority, estimated_duration, status)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at, updated_at`,
		task.Title, task.Description, task.ClientAddress, string(task.Priority), task.EstimatedDurationMin, string(task.Status))

	inserted := *task
	if err := row.Scan(&inserted.ID, &inserted.CreatedAt, &inserted.UpdatedAt); err != nil {
		return nil, err
	}

	return &inserted, nil
}

func (s *storage) UpdateTask(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	row := s.pool.QueryRow(ctx, `UPDATE tasks SET title = $1, description = $2, client_address = $3,
		priority = $4, estimated_duration = $5, status = $6, assigned_technician_id = $7,
		assigned_at = $8, assigned_by_id = $9, started_at = $10, completed_at = $11,
		work_summary = $12, updated_at = NOW() WHERE id = $13 RETURNING updated_at`,
		task.Title, task.Description, task.ClientAddress, string(task.Priority),
		task.EstimatedDurationMin, string(task.Status), task.AssignedTechnicianID,
		task.AssignedAt, task.AssignedByID, task.StartedAt, task.CompletedAt,
		task.WorkSummary, task.ID)

	updated := *task
	if err := row.Scan(&updated.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errval.ErrNotFound
		}

		return nil, err
	}

	return &updated, nil
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var r taskRow
	err := row.Scan(&r.ID, &r.Title, &r.Description, &r.ClientAddress, &r.Priority,
		&r.EstimatedDuration, &r.Status, &r.AssignedTechnicianID, &r.AssignedAt,
		&r.AssignedByID, &r.StartedAt, &r.CompletedAt, &r.WorkSummary,
		&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}

	return convertTask(r), nil
}

func collectTasks(rows pgx.Rows) ([]*domain.Task, error) {
	tasks := []*domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}

		tasks = append(tasks, task)
	}

	return tasks, rows.Err()
}

func convertTask(r taskRow) *domain.Task {
	task := &domain.Task{
		ID:            r.ID,
		Title:         r.Title,
		ClientAddress: r.ClientAddress,
		Priority:      domain.TaskPriority(r.Priority),
		Status:        domain.TaskStatus(r.Status),
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}

	if r.Description.Status == pgtype.Present {
		task.Description = r.Description.String
	}
	if r.EstimatedDuration.Status == pgtype.Present {
		duration := r.EstimatedDuration.Int
		task.EstimatedDurationMin = &duration
	}
	if r.AssignedTechnicianID.Status == pgtype.Present {
		id := r.AssignedTechnicianID.Int
		task.AssignedTechnicianID = &id
	}
	if r.AssignedAt.Status == pgtype.Present {
		at := r.AssignedAt.Time
		task.AssignedAt = &at
	}
	if r.AssignedByID.Status == pgtype.Present {
		id := r.AssignedByID.Int
		task.AssignedByID = &id
	}
	if r.StartedAt.Status == pgtype.Present {
		at := r.StartedAt.Time
		task.StartedAt = &at
	}
	if r.CompletedAt.Status == pgtype.Present {
		at := r.CompletedAt.Time
		task.CompletedAt = &at
	}
	if r.WorkSummary.Status == pgtype.Present {
		task.WorkSummary = r.WorkSummary.String
	}

	return task
}
