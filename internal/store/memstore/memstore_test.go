package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridepool/ridepool/internal/domain/invite"
	"github.com/ridepool/ridepool/internal/domain/ride"
	"github.com/ridepool/ridepool/internal/domain/user"
	"github.com/ridepool/ridepool/internal/store"
)

func seedPendingRide(t *testing.T, s *Store) (*user.User, *ride.Ride) {
	t.Helper()

	ctx := context.Background()
	owner := &user.User{
		ID:          uuid.New(),
		Name:        "Asha",
		Email:       uuid.NewString() + "@example.com",
		PhoneNumber: "+9198" + uuid.NewString()[:8],
	}
	require.NoError(t, s.CreateUser(ctx, owner))

	now := time.Now()
	r := &ride.Ride{
		ID:                uuid.New(),
		OwnerID:           owner.ID,
		Status:            ride.StatusPending,
		PeopleCount:       1,
		Capacity:          3,
		EarliestDeparture: now.Add(time.Hour),
		LatestDeparture:   now.Add(2 * time.Hour),
		VehicleType:       ride.VehicleSedan,
	}
	stops := []ride.Stop{
		{ID: uuid.New(), RideID: r.ID, Position: 0, Name: "Start"},
		{ID: uuid.New(), RideID: r.ID, Position: 1, Name: "End"},
	}
	require.NoError(t, s.CreateRideWithStops(ctx, r, stops))
	return owner, r
}

// TestCreateRideWithStops_OnePendingPerOwner enforces the same constraint the
// SQL schema's partial unique index does.
func TestCreateRideWithStops_OnePendingPerOwner(t *testing.T) {
	s := New()
	ctx := context.Background()
	owner, _ := seedPendingRide(t, s)

	second := &ride.Ride{
		ID:          uuid.New(),
		OwnerID:     owner.ID,
		Status:      ride.StatusPending,
		PeopleCount: 1,
		Capacity:    2,
		VehicleType: ride.VehicleVan,
	}
	err := s.CreateRideWithStops(ctx, second, nil)
	assert.ErrorIs(t, err, ride.ErrPendingRideExists)
}

// TestWithTransaction_RollsBackOnError checks a failed transaction leaves no
// trace of its writes.
func TestWithTransaction_RollsBackOnError(t *testing.T) {
	s := New()
	ctx := context.Background()
	owner, r := seedPendingRide(t, s)

	boom := errors.New("boom")
	invID := uuid.New()
	err := s.WithTransaction(ctx, func(tx store.Store) error {
		if err := tx.CreateInvite(ctx, &invite.Invite{
			ID:       invID,
			SenderID: owner.ID,
			RideID:   r.ID,
			Status:   invite.StatusPending,
		}); err != nil {
			return err
		}
		if ok, err := tx.UpdateRideStatus(ctx, r.ID, ride.StatusPending, ride.StatusCancelled, "rolled back"); err != nil || !ok {
			t.Fatalf("status update inside tx: ok=%v err=%v", ok, err)
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.GetInvite(ctx, invID)
	assert.ErrorIs(t, err, invite.ErrInviteNotFound)

	reloaded, err := s.GetRide(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, ride.StatusPending, reloaded.Status)
}

// TestWithTransaction_CommitsOnSuccess checks writes surface after commit
func TestWithTransaction_CommitsOnSuccess(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, r := seedPendingRide(t, s)

	err := s.WithTransaction(ctx, func(tx store.Store) error {
		ok, err := tx.UpdateRideStatus(ctx, r.ID, ride.StatusPending, ride.StatusCancelled, "done with it")
		require.True(t, ok)
		return err
	})
	require.NoError(t, err)

	reloaded, err := s.GetRide(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, ride.StatusCancelled, reloaded.Status)
	assert.Equal(t, "done with it", reloaded.CancellationReason)
}

// TestUpdateRideStatus_Guard checks the compare-and-set semantics
func TestUpdateRideStatus_Guard(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, r := seedPendingRide(t, s)

	ok, err := s.UpdateRideStatus(ctx, r.ID, ride.StatusPending, ride.StatusCancelled, "first")
	require.NoError(t, err)
	assert.True(t, ok)

	// Second flip does not match the guard
	ok, err = s.UpdateRideStatus(ctx, r.ID, ride.StatusPending, ride.StatusCancelled, "second")
	require.NoError(t, err)
	assert.False(t, ok)

	reloaded, err := s.GetRide(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", reloaded.CancellationReason)
}

// TestUpdateInvitesByStatus_ReturnsTouchedRows checks the bulk decline returns
// exactly the invites it moved.
func TestUpdateInvitesByStatus_ReturnsTouchedRows(t *testing.T) {
	s := New()
	ctx := context.Background()
	owner, r := seedPendingRide(t, s)

	mk := func(status invite.Status) uuid.UUID {
		id := uuid.New()
		require.NoError(t, s.CreateInvite(ctx, &invite.Invite{
			ID:       id,
			SenderID: owner.ID,
			RideID:   r.ID,
			Status:   status,
		}))
		return id
	}
	pending := mk(invite.StatusPending)
	accepted := mk(invite.StatusAccepted)
	declined := mk(invite.StatusDeclined)

	touched, err := s.UpdateInvitesByStatus(ctx, r.ID,
		[]invite.Status{invite.StatusPending}, invite.StatusDeclined, invite.DeclineReasonRideCancelled)
	require.NoError(t, err)
	require.Len(t, touched, 1)
	assert.Equal(t, pending, touched[0].ID)
	assert.Equal(t, invite.DeclineReasonRideCancelled, touched[0].DeclineReason)

	// Accepted untouched by the pending pass, already-declined never revisited
	inv, err := s.GetInvite(ctx, accepted)
	require.NoError(t, err)
	assert.Equal(t, invite.StatusAccepted, inv.Status)
	inv, err = s.GetInvite(ctx, declined)
	require.NoError(t, err)
	assert.Empty(t, inv.DeclineReason)
}
