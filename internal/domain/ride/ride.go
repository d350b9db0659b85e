package ride

import (
	"time"

	"github.com/google/uuid"
)

// Status represents ride status
type Status string

const (
	StatusPending   Status = "pending"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// VehicleType represents the kind of vehicle requested for a ride
type VehicleType string

const (
	VehicleSedan     VehicleType = "sedan"
	VehicleSUV       VehicleType = "suv"
	VehicleHatchback VehicleType = "hatchback"
	VehicleVan       VehicleType = "van"
)

// MinStops is the minimum number of stops a route must have
const MinStops = 2

// Ride represents a proposed shared trip owned by one user
type Ride struct {
	ID                 uuid.UUID     `json:"id"`
	OwnerID            uuid.UUID     `json:"owner_id"`
	Owner              *Participant  `json:"owner,omitempty"`
	Status             Status        `json:"status"`
	PeopleCount        int           `json:"people_count"`
	Capacity           int           `json:"capacity"`
	EarliestDeparture  time.Time     `json:"earliest_departure"`
	LatestDeparture    time.Time     `json:"latest_departure"`
	VehicleType        VehicleType   `json:"vehicle_type"`
	CancellationReason string        `json:"cancellation_reason,omitempty"`
	Stops              []Stop        `json:"stops"`
	Participants       []Participant `json:"participants,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// Stop is an ordered point on a ride's route, immutable after creation
type Stop struct {
	ID       uuid.UUID `json:"id"`
	RideID   uuid.UUID `json:"ride_id"`
	Position int       `json:"position"`
	Lat      float64   `json:"lat"`
	Lon      float64   `json:"lon"`
	Name     string    `json:"name"`
}

// Participant is a user summary attached to a ride. Phone numbers are only
// populated where participation implies acceptance.
type Participant struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	PhoneNumber string    `json:"phone_number,omitempty"`
}

// IsValid validates the status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// IsValid validates the vehicle type
func (v VehicleType) IsValid() bool {
	switch v {
	case VehicleSedan, VehicleSUV, VehicleHatchback, VehicleVan:
		return true
	}
	return false
}

// IsPending returns true while the ride is open
func (r *Ride) IsPending() bool {
	return r.Status == StatusPending
}

// IsFull returns true when the participant set has reached capacity
func (r *Ride) IsFull() bool {
	return len(r.Participants) >= r.Capacity
}

// HasParticipant reports whether the given user is in the participant set
func (r *Ride) HasParticipant(userID uuid.UUID) bool {
	for _, p := range r.Participants {
		if p.ID == userID {
			return true
		}
	}
	return false
}
