package invite

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status represents invite status
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusDeclined Status = "declined"
)

// DeclineReasonRideCancelled is recorded on every invite declined by the
// cancellation cascade.
const DeclineReasonRideCancelled = "Ride cancelled"

// Invite is a request from a non-owner user to join a specific ride
type Invite struct {
	ID            uuid.UUID `json:"id"`
	SenderID      uuid.UUID `json:"sender_id"`
	RideID        uuid.UUID `json:"ride_id"`
	Status        Status    `json:"status"`
	DeclineReason string    `json:"decline_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// IsValid validates the status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusDeclined:
		return true
	}
	return false
}

// IsTerminal reports whether the status admits no further transition.
// Accepted is terminal for callers; only the cancellation cascade may move
// accepted invites to declined.
func (s Status) IsTerminal() bool {
	return s == StatusAccepted || s == StatusDeclined
}

// Errors
var (
	ErrInviteNotFound = errors.New("invite not found")
)
