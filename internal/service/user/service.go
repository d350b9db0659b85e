// Package user handles profile reads and updates.
package user

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/ridepool/ridepool/internal/domain/ride"
	domain "github.com/ridepool/ridepool/internal/domain/user"
	"github.com/ridepool/ridepool/internal/service/auth"
	"github.com/ridepool/ridepool/internal/store"
	apperrors "github.com/ridepool/ridepool/pkg/errors"
	"github.com/ridepool/ridepool/pkg/logger"
)

// Service handles user profiles
type Service struct {
	store  store.Store
	otp    auth.OTPVerifier
	logger *logger.Logger
}

// NewService creates a new user service
func NewService(st store.Store, otp auth.OTPVerifier, log *logger.Logger) *Service {
	return &Service{store: st, otp: otp, logger: log}
}

// Profile is a user's own view of their account
type Profile struct {
	ID            uuid.UUID     `json:"id"`
	Name          string        `json:"name"`
	Email         string        `json:"email"`
	PhoneNumber   string        `json:"phone_number"`
	Gender        domain.Gender `json:"gender"`
	CurrentRideID *uuid.UUID    `json:"current_ride_id,omitempty"`
	ActiveRides   []uuid.UUID   `json:"active_rides"`
}

// GetProfile returns the caller's profile with their pending owned-ride ids
func (s *Service) GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Store("Failed to load user", err)
	}

	p := &Profile{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		PhoneNumber:   u.PhoneNumber,
		Gender:        u.Gender,
		CurrentRideID: u.CurrentRideID,
		ActiveRides:   []uuid.UUID{},
	}
	if r, err := s.store.FindPendingRideByOwner(ctx, userID); err == nil {
		p.ActiveRides = append(p.ActiveRides, r.ID)
	} else if !errors.Is(err, ride.ErrRideNotFound) {
		return nil, apperrors.Store("Failed to load active rides", err)
	}
	return p, nil
}

// UpdateProfile updates name and gender
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, name, gender string) error {
	if name == "" || gender == "" {
		return apperrors.Validation("Invalid body")
	}
	g := domain.Gender(strings.ToUpper(gender))
	if !g.IsValid() {
		return apperrors.Validation("Invalid gender")
	}

	if err := s.store.UpdateUserProfile(ctx, userID, name, g); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return apperrors.ErrUserNotFound
		}
		return apperrors.Store("Failed to update user", err)
	}
	return nil
}

// UpdatePhone replaces the phone number once the new number is OTP-verified
func (s *Service) UpdatePhone(ctx context.Context, userID uuid.UUID, phone, otp string) error {
	if !auth.ValidPhone(phone) {
		return apperrors.Validation("Invalid phone number")
	}
	if len(otp) != auth.OTPLen {
		return apperrors.Validation("Invalid OTP")
	}

	if _, err := s.store.GetUser(ctx, userID); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return apperrors.ErrUserNotFound
		}
		return apperrors.Store("Failed to load user", err)
	}

	ok, err := s.otp.Check(ctx, phone, otp)
	if err != nil {
		return apperrors.Internal("Failed to verify OTP", err)
	}
	if !ok {
		return apperrors.Unauthorized("Invalid OTP", nil)
	}

	if err := s.store.UpdateUserPhone(ctx, userID, phone); err != nil {
		return apperrors.Store("Failed to update phone number", err)
	}

	s.logger.Info("phone number updated", logger.String("user_id", userID.String()))
	return nil
}
