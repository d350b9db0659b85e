package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ridepool/ridepool/internal/domain/notification"
)

// CreateNotifications appends notification records. They are written with the
// caller's transactional view, so fan-out commits or rolls back with the
// mutation that produced it.
func (s *Store) CreateNotifications(ctx context.Context, ns []*notification.Notification) error {
	for _, n := range ns {
		_, err := s.q.ExecContext(ctx, `
			INSERT INTO notifications (id, receiver_id, message, created_at)
			VALUES ($1, $2, $3, $4)
		`, n.ID, n.ReceiverID, n.Message, n.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert notification: %w", err)
		}
	}
	return nil
}

// ListNotificationsByReceiver returns a user's notifications, newest first
func (s *Store) ListNotificationsByReceiver(ctx context.Context, receiverID uuid.UUID) ([]*notification.Notification, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, receiver_id, message, created_at FROM notifications
		WHERE receiver_id = $1 ORDER BY created_at DESC
	`, receiverID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var ns []*notification.Notification
	for rows.Next() {
		var n notification.Notification
		if err := rows.Scan(&n.ID, &n.ReceiverID, &n.Message, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		ns = append(ns, &n)
	}
	return ns, rows.Err()
}
