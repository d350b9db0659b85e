package invite

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domaininvite "github.com/ridepool/ridepool/internal/domain/invite"
	"github.com/ridepool/ridepool/internal/domain/ride"
	"github.com/ridepool/ridepool/internal/domain/user"
	notifysvc "github.com/ridepool/ridepool/internal/service/notification"
	"github.com/ridepool/ridepool/internal/store/memstore"
	apperrors "github.com/ridepool/ridepool/pkg/errors"
	"github.com/ridepool/ridepool/pkg/logger"
)

func newTestService(t *testing.T) (*Service, *memstore.Store) {
	t.Helper()

	log, err := logger.New(logger.Config{Level: "error", Format: "console"})
	require.NoError(t, err)

	st := memstore.New()
	return NewService(st, notifysvc.NewEmitter(st, log), nil, log), st
}

func seedUser(t *testing.T, st *memstore.Store, name string) *user.User {
	t.Helper()

	u := &user.User{
		ID:          uuid.New(),
		Name:        name,
		Email:       name + uuid.NewString() + "@example.com",
		PhoneNumber: "+9198" + uuid.NewString()[:8],
		Gender:      user.GenderMale,
	}
	require.NoError(t, st.CreateUser(context.Background(), u))
	return u
}

// seedRide opens a pending ride owned by ownerID directly in the store
func seedRide(t *testing.T, st *memstore.Store, ownerID uuid.UUID, capacity int) *ride.Ride {
	t.Helper()

	ctx := context.Background()
	now := time.Now()
	r := &ride.Ride{
		ID:                uuid.New(),
		OwnerID:           ownerID,
		Status:            ride.StatusPending,
		PeopleCount:       1,
		Capacity:          capacity,
		EarliestDeparture: now.Add(time.Hour),
		LatestDeparture:   now.Add(2 * time.Hour),
		VehicleType:       ride.VehicleSUV,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	stops := []ride.Stop{
		{ID: uuid.New(), RideID: r.ID, Position: 0, Lat: 12.97, Lon: 77.59, Name: "Start"},
		{ID: uuid.New(), RideID: r.ID, Position: 1, Lat: 13.19, Lon: 77.70, Name: "End"},
	}
	require.NoError(t, st.CreateRideWithStops(ctx, r, stops))
	require.NoError(t, st.SetCurrentRide(ctx, ownerID, r.ID))
	return r
}

// TestCreateInvite_Success records a pending invite and notifies the owner
func TestCreateInvite_Success(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	owner := seedUser(t, st, "Asha")
	sender := seedUser(t, st, "Binod")
	r := seedRide(t, st, owner.ID, 3)

	created, err := svc.CreateInvite(ctx, sender.ID, r.ID)
	require.NoError(t, err)
	assert.Equal(t, domaininvite.StatusPending, created.Status)
	assert.Equal(t, sender.ID, created.SenderID)

	ns, err := st.ListNotificationsByReceiver(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, ns, 1)
	assert.Equal(t, "Binod requested to join your ride", ns[0].Message)
}

// TestCreateInvite_Rejections exercises the invite creation guards
func TestCreateInvite_Rejections(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	owner := seedUser(t, st, "Asha")
	sender := seedUser(t, st, "Binod")
	r := seedRide(t, st, owner.ID, 3)

	// Owners cannot invite themselves
	_, err := svc.CreateInvite(ctx, owner.ID, r.ID)
	assert.ErrorIs(t, err, apperrors.ErrOwnRideInvite)

	// Unknown ride
	_, err = svc.CreateInvite(ctx, sender.ID, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrRideNotFound)

	// Duplicate open invite
	_, err = svc.CreateInvite(ctx, sender.ID, r.ID)
	require.NoError(t, err)
	_, err = svc.CreateInvite(ctx, sender.ID, r.ID)
	assert.ErrorIs(t, err, apperrors.ErrDuplicateInvite)

	// A sender already in a ride cannot ask to join another
	busy := seedUser(t, st, "Chitra")
	seedRide(t, st, busy.ID, 2)
	_, err = svc.CreateInvite(ctx, busy.ID, r.ID)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyInRide)
}

// TestCreateInvite_ClosedRide checks non-pending rides read as absent
func TestCreateInvite_ClosedRide(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	owner := seedUser(t, st, "Asha")
	sender := seedUser(t, st, "Binod")
	r := seedRide(t, st, owner.ID, 3)

	ok, err := st.UpdateRideStatus(ctx, r.ID, ride.StatusPending, ride.StatusCancelled, "owner gave up")
	require.NoError(t, err)
	require.True(t, ok)

	_, err = svc.CreateInvite(ctx, sender.ID, r.ID)
	assert.ErrorIs(t, err, apperrors.ErrRideNotFound)
}

// TestAcceptInvite_Success joins the sender and points them at the ride
func TestAcceptInvite_Success(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	owner := seedUser(t, st, "Asha")
	sender := seedUser(t, st, "Binod")
	r := seedRide(t, st, owner.ID, 3)

	inv, err := svc.CreateInvite(ctx, sender.ID, r.ID)
	require.NoError(t, err)

	require.NoError(t, svc.AcceptInvite(ctx, owner.ID, inv.ID))

	reloaded, err := st.GetRide(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.HasParticipant(sender.ID))

	u, err := st.GetUser(ctx, sender.ID)
	require.NoError(t, err)
	require.NotNil(t, u.CurrentRideID)
	assert.Equal(t, r.ID, *u.CurrentRideID)

	ns, err := st.ListNotificationsByReceiver(ctx, sender.ID)
	require.NoError(t, err)
	require.Len(t, ns, 1)
	assert.Equal(t, "Asha accepted your invite", ns[0].Message)
}

// TestAcceptInvite_SecondJoiner admits further senders while capacity lasts
func TestAcceptInvite_SecondJoiner(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	owner := seedUser(t, st, "Asha")
	first := seedUser(t, st, "Binod")
	second := seedUser(t, st, "Chitra")
	r := seedRide(t, st, owner.ID, 3)

	inv1, err := svc.CreateInvite(ctx, first.ID, r.ID)
	require.NoError(t, err)
	require.NoError(t, svc.AcceptInvite(ctx, owner.ID, inv1.ID))

	inv2, err := svc.CreateInvite(ctx, second.ID, r.ID)
	require.NoError(t, err)
	require.NoError(t, svc.AcceptInvite(ctx, owner.ID, inv2.ID))

	reloaded, err := st.GetRide(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.HasParticipant(first.ID))
	assert.True(t, reloaded.HasParticipant(second.ID))
}

// TestAcceptInvite_OwnerOnly forbids anyone but the ride owner
func TestAcceptInvite_OwnerOnly(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	owner := seedUser(t, st, "Asha")
	sender := seedUser(t, st, "Binod")
	r := seedRide(t, st, owner.ID, 3)

	inv, err := svc.CreateInvite(ctx, sender.ID, r.ID)
	require.NoError(t, err)

	err = svc.AcceptInvite(ctx, sender.ID, inv.ID)
	require.Error(t, err)
	assert.Equal(t, 403, apperrors.GetAppError(err).Status)
}

// TestAcceptInvite_RideFull rejects once participants reach capacity
func TestAcceptInvite_RideFull(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	owner := seedUser(t, st, "Asha")
	first := seedUser(t, st, "Binod")
	second := seedUser(t, st, "Chitra")
	r := seedRide(t, st, owner.ID, 2)

	inv1, err := svc.CreateInvite(ctx, first.ID, r.ID)
	require.NoError(t, err)
	require.NoError(t, svc.AcceptInvite(ctx, owner.ID, inv1.ID))

	inv2, err := svc.CreateInvite(ctx, second.ID, r.ID)
	require.NoError(t, err)
	err = svc.AcceptInvite(ctx, owner.ID, inv2.ID)
	assert.ErrorIs(t, err, apperrors.ErrRideFull)
}

// TestResolveInvite_TerminalStatus rejects touching resolved invites
func TestResolveInvite_TerminalStatus(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	owner := seedUser(t, st, "Asha")
	sender := seedUser(t, st, "Binod")
	r := seedRide(t, st, owner.ID, 3)

	inv, err := svc.CreateInvite(ctx, sender.ID, r.ID)
	require.NoError(t, err)
	require.NoError(t, svc.DeclineInvite(ctx, owner.ID, inv.ID, "full car already"))

	assert.ErrorIs(t, svc.AcceptInvite(ctx, owner.ID, inv.ID), apperrors.ErrInviteNotPending)
	assert.ErrorIs(t, svc.DeclineInvite(ctx, owner.ID, inv.ID, "again"), apperrors.ErrInviteNotPending)
}

// TestDeclineInvite_Success records the reason and lets the sender retry
func TestDeclineInvite_Success(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	owner := seedUser(t, st, "Asha")
	sender := seedUser(t, st, "Binod")
	r := seedRide(t, st, owner.ID, 3)

	inv, err := svc.CreateInvite(ctx, sender.ID, r.ID)
	require.NoError(t, err)

	require.NoError(t, svc.DeclineInvite(ctx, owner.ID, inv.ID, "leaving earlier than you need"))

	reloaded, err := st.GetInvite(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, domaininvite.StatusDeclined, reloaded.Status)
	assert.Equal(t, "leaving earlier than you need", reloaded.DeclineReason)

	ns, err := st.ListNotificationsByReceiver(ctx, sender.ID)
	require.NoError(t, err)
	require.Len(t, ns, 1)
	assert.Equal(t, "Asha declined your invite. Reason: leaving earlier than you need", ns[0].Message)

	// A declined invite does not block a fresh one
	_, err = svc.CreateInvite(ctx, sender.ID, r.ID)
	assert.NoError(t, err)
}

// TestListRideInvites_OwnerOnly gates the per-ride listing to the owner
func TestListRideInvites_OwnerOnly(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	owner := seedUser(t, st, "Asha")
	sender := seedUser(t, st, "Binod")
	r := seedRide(t, st, owner.ID, 3)

	_, err := svc.CreateInvite(ctx, sender.ID, r.ID)
	require.NoError(t, err)

	listed, err := svc.ListRideInvites(ctx, owner.ID, r.ID)
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	_, err = svc.ListRideInvites(ctx, sender.ID, r.ID)
	require.Error(t, err)
	assert.Equal(t, 403, apperrors.GetAppError(err).Status)
}

// TestListSentInvites_NewestFirst orders a sender's invites by recency
func TestListSentInvites_NewestFirst(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	owner1 := seedUser(t, st, "Asha")
	owner2 := seedUser(t, st, "Chitra")
	sender := seedUser(t, st, "Binod")
	r1 := seedRide(t, st, owner1.ID, 3)
	r2 := seedRide(t, st, owner2.ID, 3)

	first, err := svc.CreateInvite(ctx, sender.ID, r1.ID)
	require.NoError(t, err)
	second, err := svc.CreateInvite(ctx, sender.ID, r2.ID)
	require.NoError(t, err)

	listed, err := svc.ListSentInvites(ctx, sender.ID)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, second.ID, listed[0].ID)
	assert.Equal(t, first.ID, listed[1].ID)
}
