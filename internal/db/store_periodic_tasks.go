package db

import (
	"context"
	"fmt"
	"time"

	"github.com/MacJediWizard/learning-credentials/internal/credentials"
	"github.com/MacJediWizard/learning-credentials/internal/models"
)

const periodicTaskColumns = `id, name, task, args, crontab, enabled, last_run_at, created_at, updated_at`

func notFound(entity string, id any) error {
	return fmt.Errorf("%s %v: %w", entity, id, credentials.ErrNotFound)
}

func scanPeriodicTask(row interface{ Scan(...any) error }) (*models.PeriodicTask, error) {
	var t models.PeriodicTask
	err := row.Scan(&t.ID, &t.Name, &t.Task, &t.Args, &t.Crontab, &t.Enabled, &t.LastRunAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreatePeriodicTask inserts a periodic task and assigns its id.
func (db *DB) CreatePeriodicTask(ctx context.Context, t *models.PeriodicTask) error {
	if t.Args == nil {
		t.Args = []int64{}
	}
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO periodic_tasks (name, task, args, crontab, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, t.Name, t.Task, t.Args, t.Crontab, t.Enabled, t.CreatedAt, t.UpdatedAt).Scan(&t.ID)
	return mapError("create periodic task", err)
}

// UpdatePeriodicTask updates a periodic task.
func (db *DB) UpdatePeriodicTask(ctx context.Context, t *models.PeriodicTask) error {
	if t.Args == nil {
		t.Args = []int64{}
	}
	tag, err := db.Pool.Exec(ctx, `
		UPDATE periodic_tasks
		SET name = $2, task = $3, args = $4, crontab = $5, enabled = $6, updated_at = $7
		WHERE id = $1
	`, t.ID, t.Name, t.Task, t.Args, t.Crontab, t.Enabled, t.UpdatedAt)
	if err != nil {
		return mapError("update periodic task", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("periodic task", t.ID)
	}
	return nil
}

// GetPeriodicTask returns a periodic task by id.
func (db *DB) GetPeriodicTask(ctx context.Context, id int64) (*models.PeriodicTask, error) {
	t, err := scanPeriodicTask(db.Pool.QueryRow(ctx,
		`SELECT `+periodicTaskColumns+` FROM periodic_tasks WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(fmt.Sprintf("get periodic task %d", id), err)
	}
	return t, nil
}

// ListEnabledPeriodicTasks returns the tasks the scheduler should run.
func (db *DB) ListEnabledPeriodicTasks(ctx context.Context) ([]*models.PeriodicTask, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+periodicTaskColumns+` FROM periodic_tasks WHERE enabled ORDER BY id`)
	if err != nil {
		return nil, mapError("list enabled periodic tasks", err)
	}
	defer rows.Close()

	var tasks []*models.PeriodicTask
	for rows.Next() {
		t, err := scanPeriodicTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan periodic task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// MarkPeriodicTaskRun records the last time a task fired.
func (db *DB) MarkPeriodicTaskRun(ctx context.Context, id int64, at time.Time) error {
	tag, err := db.Pool.Exec(ctx, `UPDATE periodic_tasks SET last_run_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return mapError("mark periodic task run", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("periodic task", id)
	}
	return nil
}

// DeletePeriodicTask deletes a task. The owning configuration is removed by
// the foreign key cascade, which credentials restrict.
func (db *DB) DeletePeriodicTask(ctx context.Context, id int64) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM periodic_tasks WHERE id = $1`, id)
	if err != nil {
		return mapDeleteError("delete periodic task", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("periodic task", id)
	}
	return nil
}
