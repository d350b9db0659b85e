package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ridepool/ridepool/internal/domain/invite"
)

const inviteColumns = `id, sender_id, ride_id, status, COALESCE(decline_reason, ''), created_at, updated_at`

func scanInvite(scanner interface{ Scan(...interface{}) error }) (*invite.Invite, error) {
	var inv invite.Invite
	err := scanner.Scan(
		&inv.ID, &inv.SenderID, &inv.RideID, &inv.Status,
		&inv.DeclineReason, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, invite.ErrInviteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan invite: %w", err)
	}
	return &inv, nil
}

// CreateInvite inserts a new invite
func (s *Store) CreateInvite(ctx context.Context, inv *invite.Invite) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO invites (id, sender_id, ride_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, inv.ID, inv.SenderID, inv.RideID, inv.Status, inv.CreatedAt, inv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert invite: %w", err)
	}
	return nil
}

// GetInvite retrieves an invite by id
func (s *Store) GetInvite(ctx context.Context, id uuid.UUID) (*invite.Invite, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+inviteColumns+` FROM invites WHERE id = $1`, id)
	return scanInvite(row)
}

// ListInvitesByRide returns all invites targeting a ride, oldest first
func (s *Store) ListInvitesByRide(ctx context.Context, rideID uuid.UUID) ([]*invite.Invite, error) {
	return s.listInvites(ctx, `SELECT `+inviteColumns+` FROM invites WHERE ride_id = $1 ORDER BY created_at`, rideID)
}

// ListInvitesBySender returns all invites a user has sent, newest first
func (s *Store) ListInvitesBySender(ctx context.Context, senderID uuid.UUID) ([]*invite.Invite, error) {
	return s.listInvites(ctx, `SELECT `+inviteColumns+` FROM invites WHERE sender_id = $1 ORDER BY created_at DESC`, senderID)
}

// FindOpenInvite returns the sender's pending or accepted invite for a ride
func (s *Store) FindOpenInvite(ctx context.Context, senderID, rideID uuid.UUID) (*invite.Invite, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT `+inviteColumns+` FROM invites
		WHERE sender_id = $1 AND ride_id = $2 AND status IN ($3, $4)
	`, senderID, rideID, invite.StatusPending, invite.StatusAccepted)
	return scanInvite(row)
}

// UpdateInviteStatus transitions a single invite, guarding terminal states
// via the from-status match
func (s *Store) UpdateInviteStatus(ctx context.Context, id uuid.UUID, from, to invite.Status, declineReason string) (bool, error) {
	res, err := s.q.ExecContext(ctx, `
		UPDATE invites SET status = $1, decline_reason = NULLIF($2, ''), updated_at = NOW()
		WHERE id = $3 AND status = $4
	`, to, declineReason, id, from)
	if err != nil {
		return false, fmt.Errorf("update invite status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// UpdateInvitesByStatus transitions every matching invite on a ride and
// returns the affected rows for notification fan-out
func (s *Store) UpdateInvitesByStatus(ctx context.Context, rideID uuid.UUID, match []invite.Status, to invite.Status, declineReason string) ([]*invite.Invite, error) {
	statuses := make([]string, len(match))
	for i, st := range match {
		statuses[i] = string(st)
	}

	rows, err := s.q.QueryContext(ctx, `
		UPDATE invites SET status = $1, decline_reason = NULLIF($2, ''), updated_at = NOW()
		WHERE ride_id = $3 AND status = ANY($4)
		RETURNING `+inviteColumns,
		to, declineReason, rideID, pq.Array(statuses))
	if err != nil {
		return nil, fmt.Errorf("update invites by status: %w", err)
	}
	defer rows.Close()

	var invites []*invite.Invite
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, err
		}
		invites = append(invites, inv)
	}
	return invites, rows.Err()
}

func (s *Store) listInvites(ctx context.Context, query string, arg interface{}) ([]*invite.Invite, error) {
	rows, err := s.q.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list invites: %w", err)
	}
	defer rows.Close()

	var invites []*invite.Invite
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, err
		}
		invites = append(invites, inv)
	}
	return invites, rows.Err()
}
