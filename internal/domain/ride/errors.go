package ride

import "errors"

var (
	ErrRideNotFound = errors.New("ride not found")

	// ErrPendingRideExists is returned when creating a ride would violate the
	// one-pending-ride-per-owner constraint.
	ErrPendingRideExists = errors.New("owner already has a pending ride")
)
