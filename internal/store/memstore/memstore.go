// Package memstore is an in-memory Store used in tests and local development.
// Transactions operate on a deep copy of the dataset that replaces the live
// copy only on commit, giving the same all-or-nothing visibility as the SQL
// implementation. A single mutex serializes transactions, which is the
// behaviour the optimistic status guards are written against.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ridepool/ridepool/internal/domain/invite"
	"github.com/ridepool/ridepool/internal/domain/notification"
	"github.com/ridepool/ridepool/internal/domain/ride"
	"github.com/ridepool/ridepool/internal/domain/user"
	"github.com/ridepool/ridepool/internal/store"
)

type dataset struct {
	users         map[uuid.UUID]*user.User
	rides         map[uuid.UUID]*ride.Ride
	rideOrder     []uuid.UUID
	stops         map[uuid.UUID][]ride.Stop
	participants  map[uuid.UUID][]uuid.UUID
	invites       map[uuid.UUID]*invite.Invite
	inviteOrder   []uuid.UUID
	notifications []*notification.Notification
}

func newDataset() *dataset {
	return &dataset{
		users:        make(map[uuid.UUID]*user.User),
		rides:        make(map[uuid.UUID]*ride.Ride),
		stops:        make(map[uuid.UUID][]ride.Stop),
		participants: make(map[uuid.UUID][]uuid.UUID),
		invites:      make(map[uuid.UUID]*invite.Invite),
	}
}

func (d *dataset) clone() *dataset {
	c := newDataset()
	for id, u := range d.users {
		cp := *u
		if u.CurrentRideID != nil {
			rid := *u.CurrentRideID
			cp.CurrentRideID = &rid
		}
		c.users[id] = &cp
	}
	for id, r := range d.rides {
		cp := *r
		cp.Owner = nil
		cp.Stops = nil
		cp.Participants = nil
		c.rides[id] = &cp
	}
	c.rideOrder = append([]uuid.UUID(nil), d.rideOrder...)
	for id, ss := range d.stops {
		c.stops[id] = append([]ride.Stop(nil), ss...)
	}
	for id, ps := range d.participants {
		c.participants[id] = append([]uuid.UUID(nil), ps...)
	}
	for id, inv := range d.invites {
		cp := *inv
		c.invites[id] = &cp
	}
	c.inviteOrder = append([]uuid.UUID(nil), d.inviteOrder...)
	for _, n := range d.notifications {
		cp := *n
		c.notifications = append(c.notifications, &cp)
	}
	return c
}

// Store implements store.Store in memory
type Store struct {
	mu   *sync.Mutex
	root *Store
	d    *dataset
	inTx bool
}

// New creates an empty in-memory store
func New() *Store {
	s := &Store{mu: &sync.Mutex{}, d: newDataset()}
	s.root = s
	return s
}

var _ store.Store = (*Store)(nil)

// WithTransaction runs fn against a snapshot and swaps it in on success
func (s *Store) WithTransaction(ctx context.Context, fn func(store.Store) error) error {
	if s.inTx {
		return fn(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Store{mu: s.mu, root: s.root, d: s.root.d.clone(), inTx: true}
	if err := fn(tx); err != nil {
		return err
	}
	s.root.d = tx.d
	return nil
}

// run executes op with the mutex held unless already inside a transaction
func (s *Store) run(op func(d *dataset) error) error {
	if s.inTx {
		return op(s.d)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return op(s.root.d)
}

// Users

func (s *Store) CreateUser(ctx context.Context, u *user.User) error {
	return s.run(func(d *dataset) error {
		for _, existing := range d.users {
			if existing.Email == u.Email {
				return user.ErrEmailTaken
			}
			if existing.PhoneNumber == u.PhoneNumber {
				return user.ErrPhoneTaken
			}
		}
		cp := *u
		d.users[u.ID] = &cp
		return nil
	})
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*user.User, error) {
	var out *user.User
	err := s.run(func(d *dataset) error {
		u, ok := d.users[id]
		if !ok {
			return user.ErrUserNotFound
		}
		cp := *u
		out = &cp
		return nil
	})
	return out, err
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	return s.findUser(func(u *user.User) bool { return u.Email == email })
}

func (s *Store) GetUserByPhone(ctx context.Context, phone string) (*user.User, error) {
	return s.findUser(func(u *user.User) bool { return u.PhoneNumber == phone })
}

func (s *Store) findUser(match func(*user.User) bool) (*user.User, error) {
	var out *user.User
	err := s.run(func(d *dataset) error {
		for _, u := range d.users {
			if match(u) {
				cp := *u
				out = &cp
				return nil
			}
		}
		return user.ErrUserNotFound
	})
	return out, err
}

func (s *Store) UpdateUserProfile(ctx context.Context, id uuid.UUID, name string, gender user.Gender) error {
	return s.mutateUser(id, func(u *user.User) {
		u.Name = name
		u.Gender = gender
	})
}

func (s *Store) UpdateUserPhone(ctx context.Context, id uuid.UUID, phone string) error {
	return s.mutateUser(id, func(u *user.User) { u.PhoneNumber = phone })
}

func (s *Store) UpdateUserPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return s.mutateUser(id, func(u *user.User) { u.PasswordHash = passwordHash })
}

func (s *Store) SetCurrentRide(ctx context.Context, userID, rideID uuid.UUID) error {
	return s.mutateUser(userID, func(u *user.User) {
		rid := rideID
		u.CurrentRideID = &rid
	})
}

func (s *Store) ClearCurrentRide(ctx context.Context, userIDs []uuid.UUID) error {
	return s.run(func(d *dataset) error {
		for _, id := range userIDs {
			if u, ok := d.users[id]; ok {
				u.CurrentRideID = nil
				u.UpdatedAt = time.Now()
			}
		}
		return nil
	})
}

func (s *Store) mutateUser(id uuid.UUID, mutate func(*user.User)) error {
	return s.run(func(d *dataset) error {
		u, ok := d.users[id]
		if !ok {
			return user.ErrUserNotFound
		}
		mutate(u)
		u.UpdatedAt = time.Now()
		return nil
	})
}

// Rides

func (s *Store) CreateRideWithStops(ctx context.Context, r *ride.Ride, stops []ride.Stop) error {
	return s.run(func(d *dataset) error {
		for _, existing := range d.rides {
			if existing.OwnerID == r.OwnerID && existing.Status == ride.StatusPending {
				return ride.ErrPendingRideExists
			}
		}
		cp := *r
		cp.Owner = nil
		cp.Stops = nil
		cp.Participants = nil
		d.rides[r.ID] = &cp
		d.rideOrder = append(d.rideOrder, r.ID)
		d.stops[r.ID] = append([]ride.Stop(nil), stops...)
		d.participants[r.ID] = []uuid.UUID{r.OwnerID}
		return nil
	})
}

func (s *Store) GetRide(ctx context.Context, id uuid.UUID) (*ride.Ride, error) {
	var out *ride.Ride
	err := s.run(func(d *dataset) error {
		r, ok := d.rides[id]
		if !ok {
			return ride.ErrRideNotFound
		}
		out = materialize(d, r)
		return nil
	})
	return out, err
}

func (s *Store) FindPendingRideByOwner(ctx context.Context, ownerID uuid.UUID) (*ride.Ride, error) {
	return s.findRide(func(d *dataset, r *ride.Ride) bool {
		return r.OwnerID == ownerID && r.Status == ride.StatusPending
	})
}

func (s *Store) FindPendingRideByParticipant(ctx context.Context, userID uuid.UUID) (*ride.Ride, error) {
	return s.findRide(func(d *dataset, r *ride.Ride) bool {
		if r.Status != ride.StatusPending {
			return false
		}
		for _, pid := range d.participants[r.ID] {
			if pid == userID {
				return true
			}
		}
		return false
	})
}

func (s *Store) findRide(match func(*dataset, *ride.Ride) bool) (*ride.Ride, error) {
	var out *ride.Ride
	err := s.run(func(d *dataset) error {
		for _, r := range d.rides {
			if match(d, r) {
				out = materialize(d, r)
				return nil
			}
		}
		return ride.ErrRideNotFound
	})
	return out, err
}

func (s *Store) ListRidesByOwner(ctx context.Context, ownerID uuid.UUID) ([]*ride.Ride, error) {
	var out []*ride.Ride
	err := s.run(func(d *dataset) error {
		// rideOrder is insertion order; walk it backwards for newest first
		for i := len(d.rideOrder) - 1; i >= 0; i-- {
			r := d.rides[d.rideOrder[i]]
			if r.OwnerID != ownerID {
				continue
			}
			m := materialize(d, r)
			joiners := m.Participants[:0]
			for _, p := range m.Participants {
				if p.ID != r.OwnerID {
					joiners = append(joiners, p)
				}
			}
			m.Participants = joiners
			out = append(out, m)
		}
		return nil
	})
	return out, err
}

func (s *Store) AddParticipant(ctx context.Context, rideID, userID uuid.UUID) error {
	return s.run(func(d *dataset) error {
		for _, pid := range d.participants[rideID] {
			if pid == userID {
				return nil
			}
		}
		d.participants[rideID] = append(d.participants[rideID], userID)
		return nil
	})
}

func (s *Store) UpdateRideStatus(ctx context.Context, rideID uuid.UUID, from, to ride.Status, reason string) (bool, error) {
	matched := false
	err := s.run(func(d *dataset) error {
		r, ok := d.rides[rideID]
		if !ok || r.Status != from {
			return nil
		}
		r.Status = to
		r.CancellationReason = reason
		r.UpdatedAt = time.Now()
		matched = true
		return nil
	})
	return matched, err
}

func materialize(d *dataset, r *ride.Ride) *ride.Ride {
	m := *r
	if owner, ok := d.users[r.OwnerID]; ok {
		m.Owner = &ride.Participant{ID: owner.ID, Name: owner.Name}
	}
	m.Stops = append([]ride.Stop(nil), d.stops[r.ID]...)
	sort.Slice(m.Stops, func(i, j int) bool { return m.Stops[i].Position < m.Stops[j].Position })
	m.Participants = nil
	for _, pid := range d.participants[r.ID] {
		if u, ok := d.users[pid]; ok {
			m.Participants = append(m.Participants, ride.Participant{
				ID: u.ID, Name: u.Name, PhoneNumber: u.PhoneNumber,
			})
		}
	}
	return &m
}

// Invites

func (s *Store) CreateInvite(ctx context.Context, inv *invite.Invite) error {
	return s.run(func(d *dataset) error {
		cp := *inv
		d.invites[inv.ID] = &cp
		d.inviteOrder = append(d.inviteOrder, inv.ID)
		return nil
	})
}

func (s *Store) GetInvite(ctx context.Context, id uuid.UUID) (*invite.Invite, error) {
	var out *invite.Invite
	err := s.run(func(d *dataset) error {
		inv, ok := d.invites[id]
		if !ok {
			return invite.ErrInviteNotFound
		}
		cp := *inv
		out = &cp
		return nil
	})
	return out, err
}

func (s *Store) ListInvitesByRide(ctx context.Context, rideID uuid.UUID) ([]*invite.Invite, error) {
	return s.listInvites(func(inv *invite.Invite) bool { return inv.RideID == rideID }, false)
}

func (s *Store) ListInvitesBySender(ctx context.Context, senderID uuid.UUID) ([]*invite.Invite, error) {
	return s.listInvites(func(inv *invite.Invite) bool { return inv.SenderID == senderID }, true)
}

func (s *Store) listInvites(match func(*invite.Invite) bool, newestFirst bool) ([]*invite.Invite, error) {
	var out []*invite.Invite
	err := s.run(func(d *dataset) error {
		for _, id := range d.inviteOrder {
			inv := d.invites[id]
			if match(inv) {
				cp := *inv
				out = append(out, &cp)
			}
		}
		return nil
	})
	if newestFirst {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out, err
}

func (s *Store) FindOpenInvite(ctx context.Context, senderID, rideID uuid.UUID) (*invite.Invite, error) {
	var out *invite.Invite
	err := s.run(func(d *dataset) error {
		for _, inv := range d.invites {
			if inv.SenderID == senderID && inv.RideID == rideID && inv.Status != invite.StatusDeclined {
				cp := *inv
				out = &cp
				return nil
			}
		}
		return invite.ErrInviteNotFound
	})
	return out, err
}

func (s *Store) UpdateInviteStatus(ctx context.Context, id uuid.UUID, from, to invite.Status, declineReason string) (bool, error) {
	matched := false
	err := s.run(func(d *dataset) error {
		inv, ok := d.invites[id]
		if !ok || inv.Status != from {
			return nil
		}
		inv.Status = to
		if declineReason != "" {
			inv.DeclineReason = declineReason
		}
		inv.UpdatedAt = time.Now()
		matched = true
		return nil
	})
	return matched, err
}

func (s *Store) UpdateInvitesByStatus(ctx context.Context, rideID uuid.UUID, match []invite.Status, to invite.Status, declineReason string) ([]*invite.Invite, error) {
	var out []*invite.Invite
	err := s.run(func(d *dataset) error {
		for _, id := range d.inviteOrder {
			inv := d.invites[id]
			if inv.RideID != rideID {
				continue
			}
			for _, st := range match {
				if inv.Status == st {
					inv.Status = to
					if declineReason != "" {
						inv.DeclineReason = declineReason
					}
					inv.UpdatedAt = time.Now()
					cp := *inv
					out = append(out, &cp)
					break
				}
			}
		}
		return nil
	})
	return out, err
}

// Notifications

func (s *Store) CreateNotifications(ctx context.Context, ns []*notification.Notification) error {
	return s.run(func(d *dataset) error {
		for _, n := range ns {
			cp := *n
			d.notifications = append(d.notifications, &cp)
		}
		return nil
	})
}

func (s *Store) ListNotificationsByReceiver(ctx context.Context, receiverID uuid.UUID) ([]*notification.Notification, error) {
	var out []*notification.Notification
	err := s.run(func(d *dataset) error {
		for i := len(d.notifications) - 1; i >= 0; i-- {
			if d.notifications[i].ReceiverID == receiverID {
				cp := *d.notifications[i]
				out = append(out, &cp)
			}
		}
		return nil
	})
	return out, err
}
