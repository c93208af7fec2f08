package entity

import (
	"time"

	"github.com/google/uuid"
)

type ConversationState string

const (
	ConversationIdle           ConversationState = "IDLE"
	ConversationAwaitingAccept ConversationState = "AWAITING_ACCEPT"
	ConversationAwaitingStart  ConversationState = "AWAITING_START"
	ConversationInProgress     ConversationState = "IN_PROGRESS"
)

// Conversation is the messaging session with one driver phone.
type Conversation struct {
	TenantBase
	DriverID         uuid.UUID         `db:"driver_id"`
	Phone            string            `db:"phone"`
	State            ConversationState `db:"state"`
	CurrentBookingID *uuid.UUID        `db:"current_booking_id"`
	LastActivityAt   time.Time         `db:"last_activity_at"`
	SessionExpiresAt *time.Time        `db:"session_expires_at"`
}

// SessionOpen reports whether free-form messages may still be sent.
func (c *Conversation) SessionOpen(now time.Time) bool {
	return c != nil && c.SessionExpiresAt != nil && now.Before(*c.SessionExpiresAt)
}

// BoundTo reports whether the conversation currently tracks bookingID.
func (c *Conversation) BoundTo(bookingID uuid.UUID) bool {
	return c != nil && c.CurrentBookingID != nil && *c.CurrentBookingID == bookingID
}
