// Package ride manages the ride lifecycle: creation, cancellation, and the
// current-ride and owned-rides read paths.
package ride

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	domain "github.com/ridepool/ridepool/internal/domain/ride"
	"github.com/ridepool/ridepool/internal/domain/user"
	invitesvc "github.com/ridepool/ridepool/internal/service/invite"
	"github.com/ridepool/ridepool/internal/store"
	"github.com/ridepool/ridepool/pkg/cache"
	apperrors "github.com/ridepool/ridepool/pkg/errors"
	"github.com/ridepool/ridepool/pkg/logger"
)

// MinCancelReasonLen is the minimum length of a cancellation reason
const MinCancelReasonLen = 10

// Service is the ride lifecycle manager
type Service struct {
	store    store.Store
	invites  *invitesvc.Service
	redis    *redis.Client // nil disables the current-ride cache
	cacheTTL time.Duration
	logger   *logger.Logger
}

// NewService creates a new ride lifecycle manager
func NewService(st store.Store, invites *invitesvc.Service, redisClient *redis.Client, cacheTTL time.Duration, log *logger.Logger) *Service {
	return &Service{
		store:    st,
		invites:  invites,
		redis:    redisClient,
		cacheTTL: cacheTTL,
		logger:   log,
	}
}

// StopParams is one route point of a new ride
type StopParams struct {
	Lat  float64
	Lon  float64
	Name string
}

// CreateRideParams carries the validated-at-the-edge fields of a new ride
type CreateRideParams struct {
	Stops             []StopParams
	PeopleCount       int
	Capacity          int
	EarliestDeparture time.Time
	LatestDeparture   time.Time
	VehicleType       string
}

// CreateRide validates the route and departure window, then creates the ride
// with its stops and the owner as sole participant in one transaction.
func (s *Service) CreateRide(ctx context.Context, ownerID uuid.UUID, params CreateRideParams) (*domain.Ride, error) {
	if len(params.Stops) < domain.MinStops {
		return nil, apperrors.Validation("Ride must have at least two stops")
	}
	for _, sp := range params.Stops {
		if sp.Lat < -90 || sp.Lat > 90 || sp.Lon < -180 || sp.Lon > 180 {
			return nil, apperrors.Validation("Stop coordinates out of range")
		}
	}
	if params.PeopleCount <= 0 {
		return nil, apperrors.Validation("People count must be a positive number")
	}
	if params.Capacity <= 0 {
		return nil, apperrors.Validation("Capacity must be a positive number")
	}
	if params.EarliestDeparture.IsZero() || params.LatestDeparture.IsZero() {
		return nil, apperrors.Validation("Departure window must be valid instants")
	}
	if params.EarliestDeparture.After(params.LatestDeparture) {
		return nil, apperrors.Validation("Earliest departure must be before latest departure")
	}

	vehicleType := domain.VehicleType(strings.ToLower(params.VehicleType))
	if !vehicleType.IsValid() {
		return nil, apperrors.Validation("Invalid vehicle type")
	}

	var created *domain.Ride
	err := s.store.WithTransaction(ctx, func(tx store.Store) error {
		if _, err := tx.FindPendingRideByOwner(ctx, ownerID); err == nil {
			return apperrors.ErrActiveRideExists
		} else if !errors.Is(err, domain.ErrRideNotFound) {
			return apperrors.Store("Failed to check existing ride", err)
		}

		owner, err := tx.GetUser(ctx, ownerID)
		if err != nil {
			if errors.Is(err, user.ErrUserNotFound) {
				return apperrors.ErrUserNotFound
			}
			return apperrors.Store("Failed to load owner", err)
		}
		if owner.InRide() {
			return apperrors.ErrAlreadyInRide
		}

		now := time.Now()
		r := &domain.Ride{
			ID:                uuid.New(),
			OwnerID:           ownerID,
			Status:            domain.StatusPending,
			PeopleCount:       params.PeopleCount,
			Capacity:          params.Capacity,
			EarliestDeparture: params.EarliestDeparture,
			LatestDeparture:   params.LatestDeparture,
			VehicleType:       vehicleType,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		stops := make([]domain.Stop, len(params.Stops))
		for i, sp := range params.Stops {
			stops[i] = domain.Stop{
				ID:       uuid.New(),
				RideID:   r.ID,
				Position: i,
				Lat:      sp.Lat,
				Lon:      sp.Lon,
				Name:     sp.Name,
			}
		}

		if err := tx.CreateRideWithStops(ctx, r, stops); err != nil {
			if errors.Is(err, domain.ErrPendingRideExists) {
				return apperrors.ErrActiveRideExists
			}
			return apperrors.Store("Failed to create ride", err)
		}
		if err := tx.SetCurrentRide(ctx, ownerID, r.ID); err != nil {
			return apperrors.Store("Failed to set owner's current ride", err)
		}

		created, err = tx.GetRide(ctx, r.ID)
		if err != nil {
			return apperrors.Store("Failed to load created ride", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCurrentRide(ctx, ownerID)
	s.logger.Info("ride created",
		logger.String("ride_id", created.ID.String()),
		logger.String("owner_id", ownerID.String()),
		logger.Int("stops", len(created.Stops)),
		logger.Int("capacity", created.Capacity),
	)
	return created, nil
}

// CancelRide cancels the owner's pending ride and runs the invite decline
// cascade in one transaction. Exactly one of two concurrent attempts can
// observe the ride as pending; the loser gets NotFound.
func (s *Service) CancelRide(ctx context.Context, ownerID uuid.UUID, reason string) error {
	if utf8.RuneCountInString(reason) < MinCancelReasonLen {
		return apperrors.Validation("Reason must be at least 10 characters")
	}

	var declined int
	var clearedUsers []uuid.UUID

	err := s.store.WithTransaction(ctx, func(tx store.Store) error {
		r, err := tx.FindPendingRideByOwner(ctx, ownerID)
		if err != nil {
			if errors.Is(err, domain.ErrRideNotFound) {
				return apperrors.ErrRideNotFound
			}
			return apperrors.Store("Failed to load ride", err)
		}

		declined, clearedUsers, err = s.invites.CancelCascade(ctx, tx, r, reason)
		return err
	})
	if err != nil {
		return err
	}

	for _, id := range clearedUsers {
		s.invalidateCurrentRide(ctx, id)
	}

	s.logger.Info("ride cancelled",
		logger.String("owner_id", ownerID.String()),
		logger.Int("declined_invites", declined),
	)
	return nil
}

// GetCurrentRide returns the pending ride the user participates in, with
// owner summary, participant contact details, and stops. Reads through the
// redis cache when one is configured.
func (s *Service) GetCurrentRide(ctx context.Context, userID uuid.UUID) (*domain.Ride, error) {
	if s.redis != nil {
		if raw, err := cache.Get(ctx, s.redis, cache.CurrentRideKey(userID.String())); err == nil {
			var r domain.Ride
			if err := json.Unmarshal([]byte(raw), &r); err == nil {
				return &r, nil
			}
		}
	}

	r, err := s.store.FindPendingRideByParticipant(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrRideNotFound) {
			return nil, apperrors.ErrRideNotFound
		}
		return nil, apperrors.Store("Failed to load current ride", err)
	}

	if s.redis != nil {
		if raw, err := json.Marshal(r); err == nil {
			if err := cache.SetWithExpiry(ctx, s.redis, cache.CurrentRideKey(userID.String()), raw, s.cacheTTL); err != nil {
				s.logger.Warn("failed to cache current ride", logger.Err(err))
			}
		}
	}
	return r, nil
}

// GetRides returns the caller's rides newest first, each annotated with its
// accepted participants and stops.
func (s *Service) GetRides(ctx context.Context, ownerID uuid.UUID) ([]*domain.Ride, error) {
	rides, err := s.store.ListRidesByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperrors.Store("Failed to list rides", err)
	}
	return rides, nil
}

func (s *Service) invalidateCurrentRide(ctx context.Context, userID uuid.UUID) {
	if s.redis == nil {
		return
	}
	if err := cache.Delete(ctx, s.redis, cache.CurrentRideKey(userID.String())); err != nil {
		s.logger.Warn("failed to invalidate current ride cache",
			logger.String("user_id", userID.String()),
			logger.Err(err),
		)
	}
}
