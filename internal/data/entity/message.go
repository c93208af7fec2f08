package entity

import (
	"github.com/google/uuid"
)

type MessageDirection string

const (
	MessageOutbound MessageDirection = "OUTBOUND"
	MessageInbound  MessageDirection = "INBOUND"
)

type MessageType string

const (
	MessageTypeBookingConfirmation MessageType = "BOOKING_CONFIRMATION"
	MessageTypeDriverDispatch      MessageType = "DRIVER_DISPATCH"
	MessageTypeDriverAccepted      MessageType = "DRIVER_ACCEPTED"
	MessageTypeManual              MessageType = "MANUAL"
	MessageTypeReply               MessageType = "REPLY"
)

type MessageStatus string

const (
	MessageQueued    MessageStatus = "QUEUED"
	MessageSent      MessageStatus = "SENT"
	MessageDelivered MessageStatus = "DELIVERED"
	MessageRead      MessageStatus = "READ"
	MessageFailed    MessageStatus = "FAILED"
	MessageReceived  MessageStatus = "RECEIVED"
	// MessageProcessed marks an inbound reply whose effects are all applied.
	MessageProcessed MessageStatus = "PROCESSED"
)

var messageStatusRank = map[MessageStatus]int{
	MessageQueued:    1,
	MessageSent:      2,
	MessageDelivered: 3,
	MessageRead:      4,
}

// AdvanceTo returns the status a record should hold after an incoming
// delivery update and whether it changed. FAILED is terminal; the
// positive statuses only move forward.
func (s MessageStatus) AdvanceTo(incoming MessageStatus) (MessageStatus, bool) {
	if s == MessageFailed || s == incoming {
		return s, false
	}
	if incoming == MessageFailed {
		return MessageFailed, true
	}
	next, ok := messageStatusRank[incoming]
	if !ok {
		return s, false
	}
	if next <= messageStatusRank[s] {
		return s, false
	}
	return incoming, true
}

type Message struct {
	TenantBase
	BookingID         *uuid.UUID       `db:"booking_id"`
	DriverID          *uuid.UUID       `db:"driver_id"`
	Direction         MessageDirection `db:"direction"`
	Recipient         string           `db:"recipient"`
	Sender            string           `db:"sender"`
	Type              MessageType      `db:"type"`
	Template          *string          `db:"template"`
	Body              string           `db:"body"`
	ProviderMessageID *string          `db:"provider_message_id"`
	Status            MessageStatus    `db:"status"`
	ErrorDetail       *string          `db:"error_detail"`
}
