package db

import (
	"context"
	"fmt"

	"github.com/MacJediWizard/learning-credentials/internal/models"
	"github.com/jackc/pgx/v5"
)

// CreateLearningPath inserts or replaces a learning path with its steps.
func (db *DB) CreateLearningPath(ctx context.Context, p *models.LearningPath) error {
	return db.ExecTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO learning_paths (key, display_name, invite_only, created_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (key) DO UPDATE
			SET display_name = EXCLUDED.display_name, invite_only = EXCLUDED.invite_only
		`, p.Key.String(), p.DisplayName, p.InviteOnly, p.CreatedAt)
		if err != nil {
			return mapError("upsert learning path", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM learning_path_steps WHERE learning_path_key = $1`, p.Key.String()); err != nil {
			return mapError("clear learning path steps", err)
		}
		batch := &pgx.Batch{}
		for _, step := range p.Steps {
			batch.Queue(`
				INSERT INTO learning_path_steps (learning_path_key, step_order, course_key)
				VALUES ($1, $2, $3)
			`, p.Key.String(), step.Order, step.CourseKey.String())
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return mapError("insert learning path steps", err)
		}
		return nil
	})
}

func (db *DB) loadSteps(ctx context.Context, p *models.LearningPath) error {
	rows, err := db.Pool.Query(ctx, `
		SELECT step_order, course_key FROM learning_path_steps
		WHERE learning_path_key = $1
		ORDER BY step_order
	`, p.Key.String())
	if err != nil {
		return mapError("list learning path steps", err)
	}
	defer rows.Close()

	p.Steps = nil
	for rows.Next() {
		var step models.LearningPathStep
		var courseKey string
		if err := rows.Scan(&step.Order, &courseKey); err != nil {
			return fmt.Errorf("scan learning path step: %w", err)
		}
		step.CourseKey = models.LearningContextKey(courseKey)
		p.Steps = append(p.Steps, step)
	}
	return rows.Err()
}

// GetLearningPath returns a learning path with its steps.
func (db *DB) GetLearningPath(ctx context.Context, key models.LearningContextKey) (*models.LearningPath, error) {
	p := models.LearningPath{Key: key}
	err := db.Pool.QueryRow(ctx, `
		SELECT display_name, invite_only, created_at FROM learning_paths WHERE key = $1
	`, key.String()).Scan(&p.DisplayName, &p.InviteOnly, &p.CreatedAt)
	if err != nil {
		return nil, mapError(fmt.Sprintf("get learning path %s", key), err)
	}
	if err := db.loadSteps(ctx, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListLearningPathsByCourse returns the learning paths containing a course.
func (db *DB) ListLearningPathsByCourse(ctx context.Context, courseKey models.LearningContextKey) ([]*models.LearningPath, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT p.key, p.display_name, p.invite_only, p.created_at
		FROM learning_paths p
		JOIN learning_path_steps s ON s.learning_path_key = p.key
		WHERE s.course_key = $1
		ORDER BY p.key
	`, courseKey.String())
	if err != nil {
		return nil, mapError("list learning paths by course", err)
	}

	var paths []*models.LearningPath
	for rows.Next() {
		var p models.LearningPath
		var key string
		if err := rows.Scan(&key, &p.DisplayName, &p.InviteOnly, &p.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan learning path: %w", err)
		}
		p.Key = models.LearningContextKey(key)
		paths = append(paths, &p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, mapError("list learning paths by course", err)
	}

	for _, p := range paths {
		if err := db.loadSteps(ctx, p); err != nil {
			return nil, err
		}
	}
	return paths, nil
}

// UpsertLearningPathEnrollment creates or replaces a path enrollment.
func (db *DB) UpsertLearningPathEnrollment(ctx context.Context, e *models.LearningPathEnrollment) error {
	var exists bool
	if err := db.Pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM learning_paths WHERE key = $1)`,
		e.LearningPathKey.String()).Scan(&exists); err != nil {
		return mapError("check learning path", err)
	}
	if !exists {
		return notFound("learning path", e.LearningPathKey)
	}
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO learning_path_enrollments (user_id, learning_path_key, is_active, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, learning_path_key) DO UPDATE SET is_active = EXCLUDED.is_active
	`, e.UserID, e.LearningPathKey.String(), e.IsActive, e.CreatedAt)
	return mapError("upsert learning path enrollment", err)
}

func scanEnrollment(row interface{ Scan(...any) error }) (models.LearningPathEnrollment, error) {
	var e models.LearningPathEnrollment
	var key string
	if err := row.Scan(&e.UserID, &key, &e.IsActive, &e.CreatedAt); err != nil {
		return e, err
	}
	e.LearningPathKey = models.LearningContextKey(key)
	return e, nil
}

// ListLearningPathEnrollments returns the enrollments of a path.
func (db *DB) ListLearningPathEnrollments(ctx context.Context, key models.LearningContextKey) ([]models.LearningPathEnrollment, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT user_id, learning_path_key, is_active, created_at
		FROM learning_path_enrollments
		WHERE learning_path_key = $1
		ORDER BY user_id
	`, key.String())
	if err != nil {
		return nil, mapError("list learning path enrollments", err)
	}
	defer rows.Close()

	var out []models.LearningPathEnrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan learning path enrollment: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetLearningPathEnrollment returns one user's enrollment in a path.
func (db *DB) GetLearningPathEnrollment(ctx context.Context, userID int64, key models.LearningContextKey) (*models.LearningPathEnrollment, error) {
	e, err := scanEnrollment(db.Pool.QueryRow(ctx, `
		SELECT user_id, learning_path_key, is_active, created_at
		FROM learning_path_enrollments
		WHERE user_id = $1 AND learning_path_key = $2
	`, userID, key.String()))
	if err != nil {
		return nil, mapError(fmt.Sprintf("get learning path enrollment %s/%d", key, userID), err)
	}
	return &e, nil
}
