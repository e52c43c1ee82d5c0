package db

import (
	"context"
	"fmt"

	"github.com/MacJediWizard/learning-credentials/internal/models"
)

const userColumns = `id, username, email, first_name, last_name, password, is_active, is_staff, date_joined`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName,
		&u.Password, &u.IsActive, &u.IsStaff, &u.DateJoined)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UpsertUser inserts or refreshes a user mirrored from the LMS.
func (db *DB) UpsertUser(ctx context.Context, u *models.User) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE
		SET username = EXCLUDED.username, email = EXCLUDED.email,
		    first_name = EXCLUDED.first_name, last_name = EXCLUDED.last_name,
		    password = EXCLUDED.password, is_active = EXCLUDED.is_active,
		    is_staff = EXCLUDED.is_staff
	`, u.ID, u.Username, u.Email, u.FirstName, u.LastName, u.Password, u.IsActive, u.IsStaff, u.DateJoined)
	return mapError("upsert user", err)
}

// GetUserByID returns a user by id.
func (db *DB) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(db.Pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(fmt.Sprintf("get user %d", id), err)
	}
	return u, nil
}

// GetUserByUsername returns a user by username.
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	u, err := scanUser(db.Pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
	if err != nil {
		return nil, mapError(fmt.Sprintf("get user %s", username), err)
	}
	return u, nil
}

// GetUsersByUsernames returns the known users among usernames keyed by username.
func (db *DB) GetUsersByUsernames(ctx context.Context, usernames []string) (map[string]*models.User, error) {
	rows, err := db.Pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE username = ANY($1)`, usernames)
	if err != nil {
		return nil, mapError("list users by username", err)
	}
	defer rows.Close()

	out := make(map[string]*models.User, len(usernames))
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out[u.Username] = u
	}
	return out, rows.Err()
}
