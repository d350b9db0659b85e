// Package invite coordinates the invite state machine: creation, acceptance,
// decline, and the cascade of declines a ride cancellation triggers.
package invite

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ridepool/ridepool/internal/domain/invite"
	"github.com/ridepool/ridepool/internal/domain/notification"
	"github.com/ridepool/ridepool/internal/domain/ride"
	"github.com/ridepool/ridepool/internal/domain/user"
	notifysvc "github.com/ridepool/ridepool/internal/service/notification"
	"github.com/ridepool/ridepool/internal/store"
	"github.com/ridepool/ridepool/pkg/cache"
	apperrors "github.com/ridepool/ridepool/pkg/errors"
	"github.com/ridepool/ridepool/pkg/logger"
)

// Service is the invite coordinator
type Service struct {
	store   store.Store
	emitter *notifysvc.Emitter
	redis   *redis.Client // nil disables current-ride cache invalidation
	logger  *logger.Logger
}

// NewService creates a new invite coordinator
func NewService(st store.Store, emitter *notifysvc.Emitter, redisClient *redis.Client, log *logger.Logger) *Service {
	return &Service{
		store:   st,
		emitter: emitter,
		redis:   redisClient,
		logger:  log,
	}
}

// CreateInvite records a pending invite from sender to the ride and notifies
// the ride owner.
func (s *Service) CreateInvite(ctx context.Context, senderID, rideID uuid.UUID) (*invite.Invite, error) {
	var created *invite.Invite

	err := s.store.WithTransaction(ctx, func(tx store.Store) error {
		r, err := tx.GetRide(ctx, rideID)
		if err != nil {
			if errors.Is(err, ride.ErrRideNotFound) {
				return apperrors.ErrRideNotFound
			}
			return apperrors.Store("Failed to load ride", err)
		}
		if !r.IsPending() {
			return apperrors.ErrRideNotFound
		}
		if r.OwnerID == senderID {
			return apperrors.ErrOwnRideInvite
		}

		sender, err := tx.GetUser(ctx, senderID)
		if err != nil {
			if errors.Is(err, user.ErrUserNotFound) {
				return apperrors.ErrUserNotFound
			}
			return apperrors.Store("Failed to load sender", err)
		}
		if sender.InRide() {
			return apperrors.ErrAlreadyInRide
		}

		if _, err := tx.FindOpenInvite(ctx, senderID, rideID); err == nil {
			return apperrors.ErrDuplicateInvite
		} else if !errors.Is(err, invite.ErrInviteNotFound) {
			return apperrors.Store("Failed to check existing invite", err)
		}

		now := time.Now()
		created = &invite.Invite{
			ID:        uuid.New(),
			SenderID:  senderID,
			RideID:    rideID,
			Status:    invite.StatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.CreateInvite(ctx, created); err != nil {
			return apperrors.Store("Failed to create invite", err)
		}

		return s.emitter.Emit(ctx, tx, notifysvc.Message{
			ReceiverID: r.OwnerID,
			Text:       notification.InviteRequested(sender.Name),
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("invite created",
		logger.String("invite_id", created.ID.String()),
		logger.String("ride_id", rideID.String()),
		logger.String("sender_id", senderID.String()),
	)
	return created, nil
}

// AcceptInvite transitions a pending invite to accepted, adds the sender to
// the ride's participants, and points the sender at the ride. Only the ride
// owner may accept.
func (s *Service) AcceptInvite(ctx context.Context, callerID, inviteID uuid.UUID) error {
	var senderID uuid.UUID
	var staleUsers []uuid.UUID

	err := s.store.WithTransaction(ctx, func(tx store.Store) error {
		inv, r, err := s.loadForResolution(ctx, tx, callerID, inviteID)
		if err != nil {
			return err
		}

		sender, err := tx.GetUser(ctx, inv.SenderID)
		if err != nil {
			return apperrors.Store("Failed to load sender", err)
		}
		if sender.InRide() {
			return apperrors.ErrAlreadyInRide
		}
		if r.IsFull() {
			return apperrors.ErrRideFull
		}

		ok, err := tx.UpdateInviteStatus(ctx, inv.ID, invite.StatusPending, invite.StatusAccepted, "")
		if err != nil {
			return apperrors.Store("Failed to accept invite", err)
		}
		if !ok {
			return apperrors.ErrInviteNotPending
		}

		if err := tx.AddParticipant(ctx, r.ID, inv.SenderID); err != nil {
			return apperrors.Store("Failed to add participant", err)
		}
		if err := tx.SetCurrentRide(ctx, inv.SenderID, r.ID); err != nil {
			return apperrors.Store("Failed to set current ride", err)
		}

		senderID = inv.SenderID
		staleUsers = append(staleUsers, inv.SenderID)
		for _, p := range r.Participants {
			staleUsers = append(staleUsers, p.ID)
		}
		return s.emitter.Emit(ctx, tx, notifysvc.Message{
			ReceiverID: inv.SenderID,
			Text:       notification.InviteAccepted(r.Owner.Name),
		})
	})
	if err != nil {
		return err
	}

	// Every participant's cached view of the ride is stale now, the owner
	// and earlier joiners included.
	for _, id := range staleUsers {
		s.invalidateCurrentRide(ctx, id)
	}

	s.logger.Info("invite accepted",
		logger.String("invite_id", inviteID.String()),
		logger.String("sender_id", senderID.String()),
	)
	return nil
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

// DeclineInvite transitions a pending invite to declined with an optional
// reason. Only the ride owner may decline.
func (s *Service) DeclineInvite(ctx context.Context, callerID, inviteID uuid.UUID, reason string) error {
	err := s.store.WithTransaction(ctx, func(tx store.Store) error {
		inv, r, err := s.loadForResolution(ctx, tx, callerID, inviteID)
		if err != nil {
			return err
		}

		ok, err := tx.UpdateInviteStatus(ctx, inv.ID, invite.StatusPending, invite.StatusDeclined, reason)
		if err != nil {
			return apperrors.Store("Failed to decline invite", err)
		}
		if !ok {
			return apperrors.ErrInviteNotPending
		}

		return s.emitter.Emit(ctx, tx, notifysvc.Message{
			ReceiverID: inv.SenderID,
			Text:       notification.InviteDeclined(r.Owner.Name, reason),
		})
	})
	if err != nil {
		return err
	}

	s.logger.Info("invite declined", logger.String("invite_id", inviteID.String()))
	return nil
}

// ListRideInvites returns the invites targeting the caller's ride
func (s *Service) ListRideInvites(ctx context.Context, callerID, rideID uuid.UUID) ([]*invite.Invite, error) {
	r, err := s.store.GetRide(ctx, rideID)
	if err != nil {
		if errors.Is(err, ride.ErrRideNotFound) {
			return nil, apperrors.ErrRideNotFound
		}
		return nil, apperrors.Store("Failed to load ride", err)
	}
	if r.OwnerID != callerID {
		return nil, apperrors.Forbidden("Only the ride owner can list its invites", nil)
	}

	invites, err := s.store.ListInvitesByRide(ctx, rideID)
	if err != nil {
		return nil, apperrors.Store("Failed to list invites", err)
	}
	return invites, nil
}

// ListSentInvites returns the invites the caller has sent, newest first
func (s *Service) ListSentInvites(ctx context.Context, senderID uuid.UUID) ([]*invite.Invite, error) {
	invites, err := s.store.ListInvitesBySender(ctx, senderID)
	if err != nil {
		return nil, apperrors.Store("Failed to list invites", err)
	}
	return invites, nil
}

// CancelCascade runs the decline cascade for a ride being cancelled. It must
// be called inside the caller's transaction, with a ride loaded in that same
// transaction. Steps, in order:
//
//  1. decline accepted invites and clear their senders' current ride
//  2. decline pending invites
//  3. record one notification per declined invite, worded by prior status
//  4. clear the owner's current ride
//  5. flip the ride to cancelled, guarded on it still being pending
//
// Accepted invites are processed before notification text is generated
// because the wording differs by the status each invite held before the
// cascade touched it.
// It returns the number of declined invites and every user whose current-ride
// pointer was cleared (accepted senders plus the owner).
func (s *Service) CancelCascade(ctx context.Context, tx store.Store, r *ride.Ride, reason string) (int, []uuid.UUID, error) {
	accepted, err := tx.UpdateInvitesByStatus(ctx, r.ID,
		[]invite.Status{invite.StatusAccepted},
		invite.StatusDeclined, invite.DeclineReasonRideCancelled)
	if err != nil {
		return 0, nil, apperrors.Store("Failed to decline accepted invites", err)
	}

	senderIDs := make([]uuid.UUID, len(accepted))
	for i, inv := range accepted {
		senderIDs[i] = inv.SenderID
	}
	if len(senderIDs) > 0 {
		if err := tx.ClearCurrentRide(ctx, senderIDs); err != nil {
			return 0, nil, apperrors.Store("Failed to clear participants' current ride", err)
		}
	}

	pending, err := tx.UpdateInvitesByStatus(ctx, r.ID,
		[]invite.Status{invite.StatusPending},
		invite.StatusDeclined, invite.DeclineReasonRideCancelled)
	if err != nil {
		return 0, nil, apperrors.Store("Failed to decline pending invites", err)
	}

	msgs := make([]notifysvc.Message, 0, len(accepted)+len(pending))
	for _, inv := range accepted {
		msgs = append(msgs, notifysvc.Message{
			ReceiverID: inv.SenderID,
			Text:       notification.AcceptedInviteRevoked(r.Owner.Name, reason),
		})
	}
	for _, inv := range pending {
		msgs = append(msgs, notifysvc.Message{
			ReceiverID: inv.SenderID,
			Text:       notification.PendingInviteDeclined(r.Owner.Name, reason),
		})
	}
	if err := s.emitter.Emit(ctx, tx, msgs...); err != nil {
		return 0, nil, err
	}

	if err := tx.ClearCurrentRide(ctx, []uuid.UUID{r.OwnerID}); err != nil {
		return 0, nil, apperrors.Store("Failed to clear owner's current ride", err)
	}

	ok, err := tx.UpdateRideStatus(ctx, r.ID, ride.StatusPending, ride.StatusCancelled, reason)
	if err != nil {
		return 0, nil, apperrors.Store("Failed to cancel ride", err)
	}
	if !ok {
		// A concurrent cancellation won the race; roll everything back.
		return 0, nil, apperrors.ErrRideNotFound
	}

	return len(accepted) + len(pending), append(senderIDs, r.OwnerID), nil
}

// loadForResolution loads an invite plus its ride and authorizes the caller
// as the ride owner
func (s *Service) loadForResolution(ctx context.Context, tx store.Store, callerID, inviteID uuid.UUID) (*invite.Invite, *ride.Ride, error) {
	inv, err := tx.GetInvite(ctx, inviteID)
	if err != nil {
		if errors.Is(err, invite.ErrInviteNotFound) {
			return nil, nil, apperrors.ErrInviteNotFound
		}
		return nil, nil, apperrors.Store("Failed to load invite", err)
	}

	r, err := tx.GetRide(ctx, inv.RideID)
	if err != nil {
		return nil, nil, apperrors.Store("Failed to load ride", err)
	}
	if r.OwnerID != callerID {
		return nil, nil, apperrors.Forbidden("Only the ride owner can resolve an invite", nil)
	}
	if !r.IsPending() {
		return nil, nil, apperrors.ErrRideNotFound
	}
	if inv.Status.IsTerminal() {
		return nil, nil, apperrors.ErrInviteNotPending
	}
	return inv, r, nil
}
