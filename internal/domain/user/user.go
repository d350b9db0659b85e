package user

import (
	"time"

	"github.com/google/uuid"
)

// Gender represents a user's declared gender
type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
)

// User represents a registered user
type User struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	PhoneNumber   string     `json:"phone_number"`
	Gender        Gender     `json:"gender"`
	PasswordHash  string     `json:"-"`
	CurrentRideID *uuid.UUID `json:"current_ride_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// IsValid validates the gender
func (g Gender) IsValid() bool {
	switch g {
	case GenderMale, GenderFemale:
		return true
	}
	return false
}

// InRide returns true if the user is currently participating in a ride
func (u *User) InRide() bool {
	return u.CurrentRideID != nil
}
