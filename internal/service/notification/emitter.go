// Package notification records fan-out notifications as a side effect of
// lifecycle transitions. Emission is durable persistence only; delivery is
// someone else's problem.
package notification

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ridepool/ridepool/internal/domain/notification"
	"github.com/ridepool/ridepool/internal/store"
	apperrors "github.com/ridepool/ridepool/pkg/errors"
	"github.com/ridepool/ridepool/pkg/logger"
)

// Message pairs a receiver with a notification text
type Message struct {
	ReceiverID uuid.UUID
	Text       string
}

// Emitter appends notification records
type Emitter struct {
	store  store.Store
	logger *logger.Logger
}

// NewEmitter creates an emitter bound to the default store
func NewEmitter(st store.Store, log *logger.Logger) *Emitter {
	return &Emitter{store: st, logger: log}
}

// Emit appends one notification row per message using the given store view.
// Callers inside a transaction pass their transactional store so the records
// commit or roll back with the mutation that produced them.
func (e *Emitter) Emit(ctx context.Context, st store.NotificationStore, msgs ...Message) error {
	if len(msgs) == 0 {
		return nil
	}

	now := time.Now()
	ns := make([]*notification.Notification, len(msgs))
	for i, m := range msgs {
		ns[i] = &notification.Notification{
			ID:         uuid.New(),
			ReceiverID: m.ReceiverID,
			Message:    m.Text,
			CreatedAt:  now,
		}
	}

	if err := st.CreateNotifications(ctx, ns); err != nil {
		return apperrors.Store("Failed to record notifications", err)
	}

	e.logger.Debug("notifications recorded", logger.Int("count", len(ns)))
	return nil
}

// List returns a user's notifications, newest first
func (e *Emitter) List(ctx context.Context, receiverID uuid.UUID) ([]*notification.Notification, error) {
	ns, err := e.store.ListNotificationsByReceiver(ctx, receiverID)
	if err != nil {
		return nil, apperrors.Store("Failed to list notifications", err)
	}
	return ns, nil
}
