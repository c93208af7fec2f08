package usecase

import (
	"strings"

	"chauffeur-backoffice/internal/data/entity"

	"github.com/google/uuid"
)

type ReplyAction string

const (
	ReplyAccept  ReplyAction = "ACCEPT"
	ReplyDecline ReplyAction = "DECLINE"
	ReplyStart   ReplyAction = "START"
	ReplyDone    ReplyAction = "DONE"
)

var replyKeywords = map[string]ReplyAction{
	"accept":    ReplyAccept,
	"accepted":  ReplyAccept,
	"yes":       ReplyAccept,
	"decline":   ReplyDecline,
	"declined":  ReplyDecline,
	"no":        ReplyDecline,
	"start":     ReplyStart,
	"started":   ReplyStart,
	"done":      ReplyDone,
	"complete":  ReplyDone,
	"completed": ReplyDone,
}

// conversationTransitions lists the replies each state reacts to.
var conversationTransitions = map[entity.ConversationState]map[ReplyAction]entity.ConversationState{
	entity.ConversationAwaitingAccept: {
		ReplyAccept:  entity.ConversationAwaitingStart,
		ReplyDecline: entity.ConversationIdle,
	},
	entity.ConversationAwaitingStart: {
		ReplyStart: entity.ConversationInProgress,
	},
	entity.ConversationInProgress: {
		ReplyDone: entity.ConversationIdle,
	},
}

// ParseReply reads a driver reply. Button payloads look like
// "ACCEPT:<booking id>" and name their booking; free text keywords leave
// bookingID nil so the reply applies to the bound booking.
func ParseReply(payload, body string) (action ReplyAction, bookingID *uuid.UUID, ok bool) {
	if payload != "" {
		verb, id, found := strings.Cut(payload, ":")
		action = ReplyAction(strings.ToUpper(strings.TrimSpace(verb)))
		switch action {
		case ReplyAccept, ReplyDecline, ReplyStart, ReplyDone:
		default:
			return "", nil, false
		}
		if found {
			parsed, err := uuid.Parse(strings.TrimSpace(id))
			if err != nil {
				return "", nil, false
			}
			bookingID = &parsed
		}
		return action, bookingID, true
	}

	fields := strings.Fields(strings.ToLower(body))
	if len(fields) == 0 {
		return "", nil, false
	}
	word := strings.Trim(fields[0], ".,!?")
	action, ok = replyKeywords[word]
	return action, nil, ok
}

// NextConversationState returns the state after action, or false when the
// current state does not expect it.
func NextConversationState(state entity.ConversationState, action ReplyAction) (entity.ConversationState, bool) {
	next, ok := conversationTransitions[state][action]
	return next, ok
}

// bookingStatusForReply is the booking status a reply moves the job to.
// ACCEPT leaves the booking ASSIGNED.
func bookingStatusForReply(action ReplyAction) (entity.BookingStatus, bool) {
	switch action {
	case ReplyDecline:
		return entity.BookingStatusPending, true
	case ReplyStart:
		return entity.BookingStatusInProgress, true
	case ReplyDone:
		return entity.BookingStatusCompleted, true
	}
	return "", false
}

func resetConversation(c *entity.Conversation) {
	c.State = entity.ConversationIdle
	c.CurrentBookingID = nil
}
