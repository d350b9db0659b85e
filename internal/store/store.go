package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/ridepool/ridepool/internal/domain/invite"
	"github.com/ridepool/ridepool/internal/domain/notification"
	"github.com/ridepool/ridepool/internal/domain/ride"
	"github.com/ridepool/ridepool/internal/domain/user"
)

// Store is the durable, transactional storage surface the lifecycle services
// depend on. Read operations return fully-materialized aggregates; nothing is
// lazily loaded. Implementations must provide read-committed-or-better
// isolation.
type Store interface {
	// WithTransaction runs fn against a transactional view of the store.
	// If fn returns an error, none of its mutations are visible to other
	// callers; otherwise all of them commit together.
	WithTransaction(ctx context.Context, fn func(Store) error) error

	UserStore
	RideStore
	InviteStore
	NotificationStore
}

// UserStore holds user reads and writes
type UserStore interface {
	CreateUser(ctx context.Context, u *user.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*user.User, error)
	GetUserByEmail(ctx context.Context, email string) (*user.User, error)
	GetUserByPhone(ctx context.Context, phone string) (*user.User, error)
	UpdateUserProfile(ctx context.Context, id uuid.UUID, name string, gender user.Gender) error
	UpdateUserPhone(ctx context.Context, id uuid.UUID, phone string) error
	UpdateUserPassword(ctx context.Context, id uuid.UUID, passwordHash string) error

	// SetCurrentRide points a user at the pending ride they participate in.
	SetCurrentRide(ctx context.Context, userID, rideID uuid.UUID) error

	// ClearCurrentRide nulls the current-ride pointer for every given user.
	ClearCurrentRide(ctx context.Context, userIDs []uuid.UUID) error
}

// RideStore holds ride reads and writes
type RideStore interface {
	// CreateRideWithStops persists the ride, its stops, and the owner as the
	// sole participant in one atomic step.
	CreateRideWithStops(ctx context.Context, r *ride.Ride, stops []ride.Stop) error

	// GetRide returns a ride by id, fully materialized, regardless of status.
	GetRide(ctx context.Context, id uuid.UUID) (*ride.Ride, error)

	// FindPendingRideByOwner returns the owner's pending ride with owner
	// summary, participants, and stops, or ride.ErrRideNotFound.
	FindPendingRideByOwner(ctx context.Context, ownerID uuid.UUID) (*ride.Ride, error)

	// FindPendingRideByParticipant returns the pending ride the user
	// participates in, fully materialized, or ride.ErrRideNotFound.
	FindPendingRideByParticipant(ctx context.Context, userID uuid.UUID) (*ride.Ride, error)

	// ListRidesByOwner returns the caller's rides newest first, each with its
	// accepted participants (owner excluded) and stops.
	ListRidesByOwner(ctx context.Context, ownerID uuid.UUID) ([]*ride.Ride, error)

	// AddParticipant adds a user to a ride's participant set.
	AddParticipant(ctx context.Context, rideID, userID uuid.UUID) error

	// UpdateRideStatus transitions a ride from one status to another and
	// reports whether a row matched. A false return with nil error means the
	// ride was absent or no longer in the from status; it is the optimistic
	// guard against concurrent double-cancellation.
	UpdateRideStatus(ctx context.Context, rideID uuid.UUID, from, to ride.Status, reason string) (bool, error)
}

// InviteStore holds invite reads and writes
type InviteStore interface {
	CreateInvite(ctx context.Context, inv *invite.Invite) error
	GetInvite(ctx context.Context, id uuid.UUID) (*invite.Invite, error)
	ListInvitesByRide(ctx context.Context, rideID uuid.UUID) ([]*invite.Invite, error)
	ListInvitesBySender(ctx context.Context, senderID uuid.UUID) ([]*invite.Invite, error)

	// FindOpenInvite returns the sender's pending or accepted invite for a
	// ride, if any, or invite.ErrInviteNotFound.
	FindOpenInvite(ctx context.Context, senderID, rideID uuid.UUID) (*invite.Invite, error)

	// UpdateInviteStatus transitions a single invite and reports whether a
	// row in the from status matched, guarding terminal states.
	UpdateInviteStatus(ctx context.Context, id uuid.UUID, from, to invite.Status, declineReason string) (bool, error)

	// UpdateInvitesByStatus transitions every invite on a ride whose status
	// matches and returns the affected invites. The returned rows drive
	// notification generation during the cancellation cascade.
	UpdateInvitesByStatus(ctx context.Context, rideID uuid.UUID, match []invite.Status, to invite.Status, declineReason string) ([]*invite.Invite, error)
}

// NotificationStore holds notification writes and reads
type NotificationStore interface {
	CreateNotifications(ctx context.Context, ns []*notification.Notification) error
	ListNotificationsByReceiver(ctx context.Context, receiverID uuid.UUID) ([]*notification.Notification, error)
}
