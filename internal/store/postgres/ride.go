package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/ridepool/ridepool/internal/domain/ride"
	"github.com/ridepool/ridepool/internal/store"
)

const rideColumns = `id, owner_id, status, people_count, capacity, earliest_departure,
	latest_departure, vehicle_type, COALESCE(cancellation_reason, ''), created_at, updated_at`

func scanRide(scanner interface{ Scan(...interface{}) error }) (*ride.Ride, error) {
	var r ride.Ride
	err := scanner.Scan(
		&r.ID, &r.OwnerID, &r.Status, &r.PeopleCount, &r.Capacity,
		&r.EarliestDeparture, &r.LatestDeparture, &r.VehicleType,
		&r.CancellationReason, &r.CreatedAt, &r.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ride.ErrRideNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan ride: %w", err)
	}
	return &r, nil
}

// CreateRideWithStops persists the ride, its stops, and the owner as the sole
// participant. Callers run it inside WithTransaction; standalone calls open
// their own transaction so the aggregate is never partially visible.
func (s *Store) CreateRideWithStops(ctx context.Context, r *ride.Ride, stops []ride.Stop) error {
	if _, ok := s.q.(*sql.Tx); !ok {
		return s.WithTransaction(ctx, func(tx store.Store) error {
			return tx.CreateRideWithStops(ctx, r, stops)
		})
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO rides (id, owner_id, status, people_count, capacity,
			earliest_departure, latest_departure, vehicle_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, r.ID, r.OwnerID, r.Status, r.PeopleCount, r.Capacity,
		r.EarliestDeparture, r.LatestDeparture, r.VehicleType, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		// Losing a create race to the partial unique index is a conflict,
		// not an infrastructure failure.
		if uniqueViolation(err, constraintOnePendingOwner) {
			return ride.ErrPendingRideExists
		}
		return fmt.Errorf("insert ride: %w", err)
	}

	for _, st := range stops {
		_, err := s.q.ExecContext(ctx, `
			INSERT INTO stops (id, ride_id, position, lat, lon, name)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, st.ID, st.RideID, st.Position, st.Lat, st.Lon, st.Name)
		if err != nil {
			return fmt.Errorf("insert stop: %w", err)
		}
	}

	if err := s.AddParticipant(ctx, r.ID, r.OwnerID); err != nil {
		return err
	}
	return nil
}

// GetRide returns a ride by id regardless of status
func (s *Store) GetRide(ctx context.Context, id uuid.UUID) (*ride.Ride, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+rideColumns+` FROM rides WHERE id = $1`, id)
	r, err := scanRide(row)
	if err != nil {
		return nil, err
	}
	return s.materializeRide(ctx, r)
}

// FindPendingRideByOwner returns the owner's pending ride, fully materialized
func (s *Store) FindPendingRideByOwner(ctx context.Context, ownerID uuid.UUID) (*ride.Ride, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT `+rideColumns+` FROM rides WHERE owner_id = $1 AND status = $2
	`, ownerID, ride.StatusPending)
	r, err := scanRide(row)
	if err != nil {
		return nil, err
	}
	return s.materializeRide(ctx, r)
}

// FindPendingRideByParticipant returns the pending ride the user participates in
func (s *Store) FindPendingRideByParticipant(ctx context.Context, userID uuid.UUID) (*ride.Ride, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT `+rideColumns+` FROM rides r
		WHERE r.status = $2
		  AND EXISTS (SELECT 1 FROM ride_participants p WHERE p.ride_id = r.id AND p.user_id = $1)
	`, userID, ride.StatusPending)
	r, err := scanRide(row)
	if err != nil {
		return nil, err
	}
	return s.materializeRide(ctx, r)
}

// ListRidesByOwner returns the caller's rides newest first with accepted
// participants (owner excluded) and stops
func (s *Store) ListRidesByOwner(ctx context.Context, ownerID uuid.UUID) ([]*ride.Ride, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+rideColumns+` FROM rides WHERE owner_id = $1 ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list rides: %w", err)
	}
	defer rows.Close()

	var rides []*ride.Ride
	for rows.Next() {
		r, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		rides = append(rides, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rides: %w", err)
	}

	for _, r := range rides {
		if r.Stops, err = s.loadStops(ctx, r.ID); err != nil {
			return nil, err
		}
		participants, err := s.loadParticipants(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		// The owner is implicit on their own listing; only joiners are shown.
		r.Participants = r.Participants[:0]
		for _, p := range participants {
			if p.ID != r.OwnerID {
				r.Participants = append(r.Participants, p)
			}
		}
	}
	return rides, nil
}

// AddParticipant adds a user to a ride's participant set
func (s *Store) AddParticipant(ctx context.Context, rideID, userID uuid.UUID) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO ride_participants (ride_id, user_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, rideID, userID)
	if err != nil {
		return fmt.Errorf("add participant: %w", err)
	}
	return nil
}

// UpdateRideStatus transitions a ride between statuses. The from-status match
// in the WHERE clause is the optimistic guard: under concurrent cancellation
// exactly one transaction observes the pending row.
func (s *Store) UpdateRideStatus(ctx context.Context, rideID uuid.UUID, from, to ride.Status, reason string) (bool, error) {
	res, err := s.q.ExecContext(ctx, `
		UPDATE rides SET status = $1, cancellation_reason = NULLIF($2, ''), updated_at = NOW()
		WHERE id = $3 AND status = $4
	`, to, reason, rideID, from)
	if err != nil {
		return false, fmt.Errorf("update ride status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// materializeRide fills owner summary, participants, and stops
func (s *Store) materializeRide(ctx context.Context, r *ride.Ride) (*ride.Ride, error) {
	row := s.q.QueryRowContext(ctx, `SELECT id, name FROM users WHERE id = $1`, r.OwnerID)
	var owner ride.Participant
	if err := row.Scan(&owner.ID, &owner.Name); err != nil {
		return nil, fmt.Errorf("load ride owner: %w", err)
	}
	r.Owner = &owner

	var err error
	if r.Participants, err = s.loadParticipants(ctx, r.ID); err != nil {
		return nil, err
	}
	if r.Stops, err = s.loadStops(ctx, r.ID); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Store) loadParticipants(ctx context.Context, rideID uuid.UUID) ([]ride.Participant, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT u.id, u.name, u.phone_number FROM ride_participants p
		JOIN users u ON u.id = p.user_id
		WHERE p.ride_id = $1
		ORDER BY u.name
	`, rideID)
	if err != nil {
		return nil, fmt.Errorf("load participants: %w", err)
	}
	defer rows.Close()

	var participants []ride.Participant
	for rows.Next() {
		var p ride.Participant
		if err := rows.Scan(&p.ID, &p.Name, &p.PhoneNumber); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

func (s *Store) loadStops(ctx context.Context, rideID uuid.UUID) ([]ride.Stop, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, ride_id, position, lat, lon, name FROM stops
		WHERE ride_id = $1 ORDER BY position
	`, rideID)
	if err != nil {
		return nil, fmt.Errorf("load stops: %w", err)
	}
	defer rows.Close()

	var stops []ride.Stop
	for rows.Next() {
		var st ride.Stop
		if err := rows.Scan(&st.ID, &st.RideID, &st.Position, &st.Lat, &st.Lon, &st.Name); err != nil {
			return nil, fmt.Errorf("scan stop: %w", err)
		}
		stops = append(stops, st)
	}
	return stops, rows.Err()
}
