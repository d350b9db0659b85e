package user

import "errors"

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrAlreadyInRide = errors.New("user is already in a ride")
	ErrEmailTaken    = errors.New("email already registered")
	ErrPhoneTaken    = errors.New("phone number already registered")
)
