package notification

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Notification is an immutable informational record for a user. It is never
// mutated after creation.
type Notification struct {
	ID         uuid.UUID `json:"id"`
	ReceiverID uuid.UUID `json:"receiver_id"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}

// Message templates. The two cancellation wordings are a contract: receivers
// whose invite was still pending get a different text than receivers who had
// already joined the ride.

// PendingInviteDeclined is the message for a pending invite declined because
// the ride was cancelled.
func PendingInviteDeclined(ownerName, reason string) string {
	return fmt.Sprintf("Your invite was declined by %s as the ride was cancelled. Reason: %s", ownerName, reason)
}

// AcceptedInviteRevoked is the message for a participant whose ride was
// cancelled out from under them.
func AcceptedInviteRevoked(ownerName, reason string) string {
	return fmt.Sprintf("Your active ride was cancelled by %s. Reason: %s", ownerName, reason)
}

// InviteRequested is the message sent to a ride owner when someone asks to join.
func InviteRequested(senderName string) string {
	return fmt.Sprintf("%s requested to join your ride", senderName)
}

// InviteAccepted is the message sent to a sender whose invite was accepted.
func InviteAccepted(ownerName string) string {
	return fmt.Sprintf("%s accepted your invite", ownerName)
}

// InviteDeclined is the message sent to a sender whose invite was declined.
func InviteDeclined(ownerName, reason string) string {
	if reason == "" {
		return fmt.Sprintf("%s declined your invite", ownerName)
	}
	return fmt.Sprintf("%s declined your invite. Reason: %s", ownerName, reason)
}
