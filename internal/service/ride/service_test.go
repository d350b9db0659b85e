package ride

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/ridepool/ridepool/internal/domain/ride"
	"github.com/ridepool/ridepool/internal/domain/user"
	invitesvc "github.com/ridepool/ridepool/internal/service/invite"
	notifysvc "github.com/ridepool/ridepool/internal/service/notification"
	"github.com/ridepool/ridepool/internal/store/memstore"
	apperrors "github.com/ridepool/ridepool/pkg/errors"
	"github.com/ridepool/ridepool/pkg/logger"
)

func newTestService(t *testing.T) (*Service, *invitesvc.Service, *memstore.Store) {
	t.Helper()

	log, err := logger.New(logger.Config{Level: "error", Format: "console"})
	require.NoError(t, err)

	st := memstore.New()
	emitter := notifysvc.NewEmitter(st, log)
	invites := invitesvc.NewService(st, emitter, nil, log)
	rides := NewService(st, invites, nil, 5*time.Minute, log)
	return rides, invites, st
}

func seedUser(t *testing.T, st *memstore.Store, name string) *user.User {
	t.Helper()

	u := &user.User{
		ID:          uuid.New(),
		Name:        name,
		Email:       name + uuid.NewString() + "@example.com",
		PhoneNumber: "+9198" + uuid.NewString()[:8],
		Gender:      user.GenderFemale,
	}
	require.NoError(t, st.CreateUser(context.Background(), u))
	return u
}

func validRideParams() CreateRideParams {
	now := time.Now()
	return CreateRideParams{
		Stops: []StopParams{
			{Lat: 12.9716, Lon: 77.5946, Name: "Indiranagar"},
			{Lat: 13.1986, Lon: 77.7066, Name: "Airport"},
		},
		PeopleCount:       1,
		Capacity:          3,
		EarliestDeparture: now.Add(time.Hour),
		LatestDeparture:   now.Add(2 * time.Hour),
		VehicleType:       "Sedan",
	}
}

// TestCreateRide_Success checks a new ride starts pending with the owner as
// its only participant and the owner pointed at it.
func TestCreateRide_Success(t *testing.T) {
	rides, _, st := newTestService(t)
	ctx := context.Background()
	owner := seedUser(t, st, "Asha")

	created, err := rides.CreateRide(ctx, owner.ID, validRideParams())
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPending, created.Status)
	assert.Equal(t, domain.VehicleSedan, created.VehicleType)
	assert.Len(t, created.Stops, 2)
	assert.Equal(t, "Indiranagar", created.Stops[0].Name)
	assert.True(t, created.HasParticipant(owner.ID))

	reloaded, err := st.GetUser(ctx, owner.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.CurrentRideID)
	assert.Equal(t, created.ID, *reloaded.CurrentRideID)
}

// TestCreateRide_Validation exercises the edge rejections
func TestCreateRide_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateRideParams)
	}{
		{
			name:   "single stop",
			mutate: func(p *CreateRideParams) { p.Stops = p.Stops[:1] },
		},
		{
			name:   "zero people",
			mutate: func(p *CreateRideParams) { p.PeopleCount = 0 },
		},
		{
			name:   "zero capacity",
			mutate: func(p *CreateRideParams) { p.Capacity = 0 },
		},
		{
			name: "inverted departure window",
			mutate: func(p *CreateRideParams) {
				p.EarliestDeparture, p.LatestDeparture = p.LatestDeparture, p.EarliestDeparture
			},
		},
		{
			name:   "unknown vehicle type",
			mutate: func(p *CreateRideParams) { p.VehicleType = "rickshaw" },
		},
		{
			name:   "latitude out of range",
			mutate: func(p *CreateRideParams) { p.Stops[0].Lat = 123.4 },
		},
		{
			name:   "longitude out of range",
			mutate: func(p *CreateRideParams) { p.Stops[1].Lon = -200 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rides, _, st := newTestService(t)
			owner := seedUser(t, st, "Asha")

			params := validRideParams()
			tt.mutate(&params)

			_, err := rides.CreateRide(context.Background(), owner.ID, params)
			require.Error(t, err)
			require.True(t, apperrors.IsAppError(err))
			assert.Equal(t, 400, apperrors.GetAppError(err).Status)
		})
	}
}

// TestCreateRide_ZeroCoordinates accepts the equator/prime-meridian point
func TestCreateRide_ZeroCoordinates(t *testing.T) {
	rides, _, st := newTestService(t)
	owner := seedUser(t, st, "Asha")

	params := validRideParams()
	params.Stops[0].Lat = 0
	params.Stops[0].Lon = 0

	created, err := rides.CreateRide(context.Background(), owner.ID, params)
	require.NoError(t, err)
	assert.Zero(t, created.Stops[0].Lat)
	assert.Zero(t, created.Stops[0].Lon)
}

// TestCreateRide_ActiveRideConflict checks one pending ride per owner
func TestCreateRide_ActiveRideConflict(t *testing.T) {
	rides, _, st := newTestService(t)
	ctx := context.Background()
	owner := seedUser(t, st, "Asha")

	_, err := rides.CreateRide(ctx, owner.ID, validRideParams())
	require.NoError(t, err)

	_, err = rides.CreateRide(ctx, owner.ID, validRideParams())
	assert.ErrorIs(t, err, apperrors.ErrActiveRideExists)
}

// TestCancelRide_ReasonTooShort checks the minimum reason length counts
// characters, not bytes
func TestCancelRide_ReasonTooShort(t *testing.T) {
	reasons := []string{
		"too short",
		// 6 runes but 18 bytes
		"短い理由です",
	}
	for _, reason := range reasons {
		rides, _, st := newTestService(t)
		owner := seedUser(t, st, "Asha")

		err := rides.CancelRide(context.Background(), owner.ID, reason)
		require.Error(t, err, "reason %q", reason)
		assert.Equal(t, 400, apperrors.GetAppError(err).Status)
	}
}

// TestCancelRide_NoPendingRide checks cancelling without a ride is NotFound
func TestCancelRide_NoPendingRide(t *testing.T) {
	rides, _, st := newTestService(t)
	owner := seedUser(t, st, "Asha")

	err := rides.CancelRide(context.Background(), owner.ID, "plans changed entirely")
	assert.ErrorIs(t, err, apperrors.ErrRideNotFound)
}

// TestCancelRide_FlipsStatusAndClearsOwner checks the simple cancellation path
func TestCancelRide_FlipsStatusAndClearsOwner(t *testing.T) {
	rides, _, st := newTestService(t)
	ctx := context.Background()
	owner := seedUser(t, st, "Asha")

	created, err := rides.CreateRide(ctx, owner.ID, validRideParams())
	require.NoError(t, err)

	require.NoError(t, rides.CancelRide(ctx, owner.ID, "meeting ran long, not travelling"))

	r, err := st.GetRide(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, r.Status)
	assert.Equal(t, "meeting ran long, not travelling", r.CancellationReason)

	reloaded, err := st.GetUser(ctx, owner.ID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.CurrentRideID)

	// The owner can open a fresh ride afterwards
	_, err = rides.CreateRide(ctx, owner.ID, validRideParams())
	assert.NoError(t, err)
}

// TestCancelRide_ConcurrentAttempts checks that exactly one of two racing
// cancellations succeeds and the loser observes NotFound.
func TestCancelRide_ConcurrentAttempts(t *testing.T) {
	rides, _, st := newTestService(t)
	ctx := context.Background()
	owner := seedUser(t, st, "Asha")

	_, err := rides.CreateRide(ctx, owner.ID, validRideParams())
	require.NoError(t, err)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = rides.CancelRide(ctx, owner.ID, "double tap from a flaky client")
		}(i)
	}
	wg.Wait()

	var succeeded, notFound int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case apperrors.GetAppError(err).Status == 404:
			notFound++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, notFound)
}

// TestGetCurrentRide returns the pending ride the caller participates in
func TestGetCurrentRide(t *testing.T) {
	rides, _, st := newTestService(t)
	ctx := context.Background()
	owner := seedUser(t, st, "Asha")

	created, err := rides.CreateRide(ctx, owner.ID, validRideParams())
	require.NoError(t, err)

	current, err := rides.GetCurrentRide(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, current.ID)
	require.NotNil(t, current.Owner)
	assert.Equal(t, "Asha", current.Owner.Name)

	stranger := seedUser(t, st, "Binod")
	_, err = rides.GetCurrentRide(ctx, stranger.ID)
	assert.ErrorIs(t, err, apperrors.ErrRideNotFound)
}

// TestGetRides_NewestFirst lists the caller's rides in reverse creation order
func TestGetRides_NewestFirst(t *testing.T) {
	rides, _, st := newTestService(t)
	ctx := context.Background()
	owner := seedUser(t, st, "Asha")

	first, err := rides.CreateRide(ctx, owner.ID, validRideParams())
	require.NoError(t, err)
	require.NoError(t, rides.CancelRide(ctx, owner.ID, "rescheduled to tomorrow morning"))

	second, err := rides.CreateRide(ctx, owner.ID, validRideParams())
	require.NoError(t, err)

	listed, err := rides.GetRides(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, second.ID, listed[0].ID)
	assert.Equal(t, first.ID, listed[1].ID)
	assert.Equal(t, domain.StatusCancelled, listed[1].Status)
}

// TestCancelRide_Cascade runs the full decline cascade: one accepted and two
// pending invites, each declined with the cascade reason and notified with the
// wording its prior status calls for.
func TestCancelRide_Cascade(t *testing.T) {
	rides, invites, st := newTestService(t)
	ctx := context.Background()

	owner := seedUser(t, st, "Asha")
	accepted := seedUser(t, st, "Binod")
	pending1 := seedUser(t, st, "Chitra")
	pending2 := seedUser(t, st, "Deepak")

	created, err := rides.CreateRide(ctx, owner.ID, validRideParams())
	require.NoError(t, err)

	invAccepted, err := invites.CreateInvite(ctx, accepted.ID, created.ID)
	require.NoError(t, err)
	require.NoError(t, invites.AcceptInvite(ctx, owner.ID, invAccepted.ID))

	_, err = invites.CreateInvite(ctx, pending1.ID, created.ID)
	require.NoError(t, err)
	_, err = invites.CreateInvite(ctx, pending2.ID, created.ID)
	require.NoError(t, err)

	reason := "cab broke down on the highway"
	require.NoError(t, rides.CancelRide(ctx, owner.ID, reason))

	// Every invite ends declined with the cascade reason
	all, err := st.ListInvitesByRide(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for _, inv := range all {
		assert.Equal(t, "declined", string(inv.Status))
		assert.Equal(t, "Ride cancelled", inv.DeclineReason)
	}

	// The joined participant is told their active ride is gone
	ns, err := st.ListNotificationsByReceiver(ctx, accepted.ID)
	require.NoError(t, err)
	require.NotEmpty(t, ns)
	assert.Equal(t, "Your active ride was cancelled by Asha. Reason: "+reason, ns[0].Message)

	// Pending senders get the decline wording
	for _, sender := range []uuid.UUID{pending1.ID, pending2.ID} {
		ns, err := st.ListNotificationsByReceiver(ctx, sender)
		require.NoError(t, err)
		require.NotEmpty(t, ns)
		assert.Equal(t, "Your invite was declined by Asha as the ride was cancelled. Reason: "+reason, ns[0].Message)
	}

	// Both the owner and the joined participant are detached from the ride
	for _, id := range []uuid.UUID{owner.ID, accepted.ID} {
		u, err := st.GetUser(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, u.CurrentRideID)
	}

	r, err := st.GetRide(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, r.Status)
}
