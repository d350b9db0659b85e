package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ridepool/ridepool/internal/domain/user"
)

const userColumns = `id, name, email, phone_number, gender, password_hash, current_ride_id, created_at, updated_at`

func scanUser(row *sql.Row) (*user.User, error) {
	var u user.User
	var currentRideID sql.NullString
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.PhoneNumber, &u.Gender,
		&u.PasswordHash, &currentRideID, &u.CreatedAt, &u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, user.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	if currentRideID.Valid {
		rideID, err := uuid.Parse(currentRideID.String)
		if err != nil {
			return nil, fmt.Errorf("parse current ride id: %w", err)
		}
		u.CurrentRideID = &rideID
	}
	return &u, nil
}

// CreateUser inserts a new user
func (s *Store) CreateUser(ctx context.Context, u *user.User) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO users (id, name, email, phone_number, gender, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, u.ID, u.Name, u.Email, u.PhoneNumber, u.Gender, u.PasswordHash, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return mapUserInsertError(err)
	}
	return nil
}

// mapUserInsertError translates unique violations into the domain sentinels
// the auth service matches on
func mapUserInsertError(err error) error {
	switch {
	case uniqueViolation(err, constraintUserEmail):
		return user.ErrEmailTaken
	case uniqueViolation(err, constraintUserPhone):
		return user.ErrPhoneTaken
	}
	return fmt.Errorf("insert user: %w", err)
}

// GetUser retrieves a user by id
func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*user.User, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetUserByEmail retrieves a user by email
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// GetUserByPhone retrieves a user by phone number
func (s *Store) GetUserByPhone(ctx context.Context, phone string) (*user.User, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE phone_number = $1`, phone)
	return scanUser(row)
}

// UpdateUserProfile updates name and gender
func (s *Store) UpdateUserProfile(ctx context.Context, id uuid.UUID, name string, gender user.Gender) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE users SET name = $1, gender = $2, updated_at = NOW() WHERE id = $3
	`, name, gender, id)
	if err != nil {
		return fmt.Errorf("update user profile: %w", err)
	}
	return requireRow(res, user.ErrUserNotFound)
}

// UpdateUserPhone updates the verified phone number
func (s *Store) UpdateUserPhone(ctx context.Context, id uuid.UUID, phone string) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE users SET phone_number = $1, updated_at = NOW() WHERE id = $2
	`, phone, id)
	if err != nil {
		return fmt.Errorf("update user phone: %w", err)
	}
	return requireRow(res, user.ErrUserNotFound)
}

// UpdateUserPassword replaces the password hash
func (s *Store) UpdateUserPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2
	`, passwordHash, id)
	if err != nil {
		return fmt.Errorf("update user password: %w", err)
	}
	return requireRow(res, user.ErrUserNotFound)
}

// SetCurrentRide points a user at their pending ride
func (s *Store) SetCurrentRide(ctx context.Context, userID, rideID uuid.UUID) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE users SET current_ride_id = $1, updated_at = NOW() WHERE id = $2
	`, rideID, userID)
	if err != nil {
		return fmt.Errorf("set current ride: %w", err)
	}
	return requireRow(res, user.ErrUserNotFound)
}

// ClearCurrentRide nulls the current-ride pointer for every given user
func (s *Store) ClearCurrentRide(ctx context.Context, userIDs []uuid.UUID) error {
	if len(userIDs) == 0 {
		return nil
	}
	ids := make([]string, len(userIDs))
	for i, id := range userIDs {
		ids[i] = id.String()
	}
	_, err := s.q.ExecContext(ctx, `
		UPDATE users SET current_ride_id = NULL, updated_at = NOW() WHERE id = ANY($1)
	`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("clear current ride: %w", err)
	}
	return nil
}

func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
