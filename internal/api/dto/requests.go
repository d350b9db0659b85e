package dto

// Envelope is the uniform response body: exactly one of Data and Error is set
type Envelope struct {
	Data  interface{} `json:"data"`
	Error interface{} `json:"error"`
}

// OK wraps a payload in the response envelope
func OK(data interface{}) Envelope {
	return Envelope{Data: data}
}

// Err wraps an error payload in the response envelope
func Err(e interface{}) Envelope {
	return Envelope{Error: e}
}

// Auth

// RegisterRequest verifies a phone number and creates an account
type RegisterRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required"`
	OTP         string `json:"otp" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required"`
	Gender      string `json:"gender" binding:"required"`
}

// LoginRequest authenticates by email and password
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SendOTPRequest asks for a verification code
type SendOTPRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required"`
}

// ResetPasswordRequest replaces a password after OTP verification
type ResetPasswordRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required"`
	OTP         string `json:"otp" binding:"required"`
	Password    string `json:"password" binding:"required"`
}

// Users

// UpdateUserRequest updates profile fields
type UpdateUserRequest struct {
	Name   string `json:"name" binding:"required"`
	Gender string `json:"gender" binding:"required"`
}

// UpdatePhoneRequest replaces the phone number after OTP verification
type UpdatePhoneRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required"`
	OTP         string `json:"otp" binding:"required"`
}

// Rides

// StopRequest is one route point. Zero is a legal coordinate, so lat/lon are
// range-checked in the service instead of bound as required.
type StopRequest struct {
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Name string  `json:"name" binding:"required"`
}

// CreateRideRequest creates a ride. Departure instants are epoch milliseconds.
type CreateRideRequest struct {
	Stops             []StopRequest `json:"stops" binding:"required"`
	PeopleCount       int           `json:"people_count" binding:"required"`
	Capacity          int           `json:"capacity" binding:"required"`
	EarliestDeparture int64         `json:"earliest_departure" binding:"required"`
	LatestDeparture   int64         `json:"latest_departure" binding:"required"`
	VehicleType       string        `json:"vehicle_type" binding:"required"`
}

// CancelRideRequest cancels the caller's pending ride
type CancelRideRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// Invites

// CreateInviteRequest asks to join a ride
type CreateInviteRequest struct {
	RideID string `json:"ride_id" binding:"required"`
}

// DeclineInviteRequest declines an invite with an optional reason
type DeclineInviteRequest struct {
	Reason string `json:"reason"`
}
