package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"chauffeur-backoffice/internal/data/entity"
	"chauffeur-backoffice/internal/data/repository"
	"chauffeur-backoffice/internal/dto/request"
	"chauffeur-backoffice/internal/dto/response"
	"chauffeur-backoffice/internal/provider/messaging"
	"chauffeur-backoffice/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type NotifyEvent string

const (
	EventBookingConfirmed NotifyEvent = "booking_confirmed"
	EventDriverDispatched NotifyEvent = "driver_dispatched"
	EventDriverAccepted   NotifyEvent = "driver_accepted"
)

// Provider-approved templates used outside an open session.
const (
	templateBookingConfirmed = "booking_confirmed"
	templateDriverDispatch   = "driver_dispatch"
	templateDriverAccepted   = "driver_accepted"
	templateFollowUp         = "follow_up"
)

const scheduleLayout = "Mon 02 Jan 15:04"

type InboundResult struct {
	Outcome     Outcome
	MessageID   *uuid.UUID
	Action      ReplyAction
	State       entity.ConversationState
	SideEffects []SideEffect
}

type MessagingService interface {
	// Notify sends the message for a booking lifecycle event and always
	// records it. Failures come back in the SideEffect, never as an error.
	Notify(ctx context.Context, tenant Tenant, event NotifyEvent, booking *entity.Booking, driver *entity.Driver) SideEffect
	SendManual(ctx context.Context, tenant Tenant, bookingID uuid.UUID, req *request.SendMessageRequest) (*response.MessageResponse, error)
	Resend(ctx context.Context, tenant Tenant, messageID uuid.UUID) (*response.MessageResponse, error)
	History(ctx context.Context, tenant Tenant, bookingID uuid.UUID) ([]response.MessageResponse, error)

	HandleInbound(ctx context.Context, msg messaging.InboundMessage) (*InboundResult, error)
	HandleStatus(ctx context.Context, update messaging.StatusUpdate) (Outcome, error)

	// SyncConversation realigns the conversation bound to booking after a
	// dispatcher-driven change.
	SyncConversation(ctx context.Context, tenant Tenant, booking *entity.Booking) error
}

type messagingService struct {
	repo   *repository.Repository
	sender MessageSender
	config utils.MessagingConfig
	log    *zap.Logger
	now    func() time.Time
}

func NewMessagingService(repo *repository.Repository, sender MessageSender, config utils.MessagingConfig, log *zap.Logger) MessagingService {
	return &messagingService{
		repo:   repo,
		sender: sender,
		config: config,
		log:    log.With(zap.String("service", "messaging")),
		now:    time.Now,
	}
}

// deliveryMode is the session policy: free-form text is only allowed while
// the provider session window is open, otherwise a template is used.
type deliveryMode int

const (
	deliverTemplate deliveryMode = iota
	deliverFreeForm
)

func modeFor(conv *entity.Conversation, now time.Time) deliveryMode {
	if conv.SessionOpen(now) {
		return deliverFreeForm
	}
	return deliverTemplate
}

type delivery struct {
	tenantID  uuid.UUID
	bookingID *uuid.UUID
	driverID  *uuid.UUID
	kind      entity.MessageType
	recipient string
	body      string
	outbound  messaging.OutboundMessage
}

// deliver writes the audit record first, then calls the provider and
// records the immediate result on it.
func (s *messagingService) deliver(ctx context.Context, d delivery) (*entity.Message, error) {
	now := s.now()
	msg := &entity.Message{
		TenantBase: entity.TenantBase{
			ID:        uuid.New(),
			TenantID:  d.tenantID,
			CreatedAt: now,
			UpdatedAt: now,
		},
		BookingID: d.bookingID,
		DriverID:  d.driverID,
		Direction: entity.MessageOutbound,
		Recipient: d.recipient,
		Sender:    s.config.PhoneNumberID,
		Type:      d.kind,
		Body:      d.body,
		Status:    entity.MessageQueued,
	}
	if d.outbound.Template != nil {
		name := d.outbound.Template.Name
		msg.Template = &name
	}

	if err := s.repo.Message.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("record outbound message: %w", err)
	}

	d.outbound.To = d.recipient
	result, sendErr := s.sender.Send(ctx, d.outbound)

	msg.UpdatedAt = s.now()
	if sendErr != nil {
		detail := sendErr.Error()
		msg.Status = entity.MessageFailed
		msg.ErrorDetail = &detail
	} else {
		id := result.MessageID
		msg.ProviderMessageID = &id
		msg.Status = entity.MessageSent
	}

	// the provider id and SENT land in one write; a receipt racing ahead of
	// it is answered with a retry by HandleStatus
	if _, err := s.repo.Message.UpdateDelivery(ctx, msg, entity.MessageQueued); err != nil {
		s.log.Error("Failed to record send result",
			zap.Error(err),
			zap.String("message_id", msg.ID.String()),
		)
	}

	if sendErr != nil {
		s.log.Warn("Provider rejected message",
			zap.Error(sendErr),
			zap.String("message_id", msg.ID.String()),
			zap.String("type", string(d.kind)),
		)
		return msg, providerError("send message", sendErr)
	}

	return msg, nil
}

func (s *messagingService) Notify(ctx context.Context, tenant Tenant, event NotifyEvent, booking *entity.Booking, driver *entity.Driver) SideEffect {
	effect := SideEffect{Name: string(event)}

	if err := tenant.Validate(); err != nil {
		effect.Error = err.Error()
		return effect
	}
	return s.notify(ctx, tenant.ID, event, booking, driver)
}

func (s *messagingService) notify(ctx context.Context, tenantID uuid.UUID, event NotifyEvent, booking *entity.Booking, driver *entity.Driver) SideEffect {
	effect := SideEffect{Name: string(event)}

	d, conv, err := s.compose(ctx, tenantID, event, booking, driver)
	if err != nil {
		effect.Error = err.Error()
		return effect
	}

	msg, err := s.deliver(ctx, d)
	if msg != nil {
		effect.MessageID = &msg.ID
	}
	if err != nil {
		effect.Error = err.Error()
		return effect
	}
	effect.Success = true

	s.afterNotify(ctx, tenantID, event, booking, driver, conv)
	return effect
}

func (s *messagingService) compose(ctx context.Context, tenantID uuid.UUID, event NotifyEvent, b *entity.Booking, driver *entity.Driver) (delivery, *entity.Conversation, error) {
	d := delivery{tenantID: tenantID, bookingID: &b.ID}
	when := b.ScheduledAt.Format(scheduleLayout)

	switch event {
	case EventBookingConfirmed:
		d.kind = entity.MessageTypeBookingConfirmation
		d.recipient = utils.NormalizePhone(b.CustomerPhone)
		d.body = fmt.Sprintf("Hi %s, your booking %s is confirmed for %s from %s to %s.",
			b.CustomerName, b.Reference, when, b.Pickup, b.Dropoff)
		d.outbound.Template = s.template(templateBookingConfirmed, b.CustomerName, b.Reference, when, b.Pickup, b.Dropoff)
		return d, nil, nil

	case EventDriverAccepted:
		if driver == nil {
			return d, nil, errors.New("no driver on booking")
		}
		d.kind = entity.MessageTypeDriverAccepted
		d.recipient = utils.NormalizePhone(b.CustomerPhone)
		vehicle := strings.TrimSpace(driver.VehicleMake + " " + driver.VehicleModel)
		d.body = fmt.Sprintf("Your driver %s (%s, %s) has accepted booking %s for %s.",
			driver.Name, vehicle, driver.VehiclePlate, b.Reference, when)
		d.outbound.Template = s.template(templateDriverAccepted, driver.Name, vehicle, driver.VehiclePlate, b.Reference)
		return d, nil, nil

	case EventDriverDispatched:
		if driver == nil {
			return d, nil, errors.New("no driver on booking")
		}
		if !driver.MessagingOptIn {
			return d, nil, errors.New("driver has not opted in to messaging")
		}
		phone := utils.NormalizePhone(driver.Phone)
		conv, err := s.repo.Conversation.FindByDriver(ctx, tenantID, driver.ID, phone)
		if err != nil {
			return d, nil, err
		}

		d.kind = entity.MessageTypeDriverDispatch
		d.recipient = phone
		d.driverID = &driver.ID
		d.body = fmt.Sprintf("New job %s: %s to %s at %s. Customer: %s. Reply ACCEPT or DECLINE.",
			b.Reference, b.Pickup, b.Dropoff, when, b.CustomerName)
		if modeFor(conv, s.now()) == deliverFreeForm {
			d.outbound.Body = d.body
			d.outbound.Buttons = []messaging.Button{
				{ID: string(ReplyAccept) + ":" + b.ID.String(), Title: "Accept"},
				{ID: string(ReplyDecline) + ":" + b.ID.String(), Title: "Decline"},
			}
		} else {
			d.outbound.Template = s.template(templateDriverDispatch, b.Reference, b.Pickup, b.Dropoff, when)
		}
		return d, conv, nil
	}

	return d, nil, fmt.Errorf("unknown notification event %q", event)
}

func (s *messagingService) template(name string, params ...string) *messaging.Template {
	return &messaging.Template{Name: name, Language: s.config.TemplateLanguage, Parameters: params}
}

func (s *messagingService) afterNotify(ctx context.Context, tenantID uuid.UUID, event NotifyEvent, b *entity.Booking, driver *entity.Driver, conv *entity.Conversation) {
	now := s.now()

	var mark func(b *entity.Booking) bool
	switch event {
	case EventBookingConfirmed:
		mark = func(b *entity.Booking) bool {
			if b.CustomerNotified {
				return false
			}
			b.CustomerNotified = true
			return true
		}
	case EventDriverDispatched:
		if conv == nil {
			conv = &entity.Conversation{
				TenantBase: entity.TenantBase{ID: uuid.New(), TenantID: tenantID, CreatedAt: now},
				DriverID:   driver.ID,
				Phone:      utils.NormalizePhone(driver.Phone),
			}
		}
		conv.State = entity.ConversationAwaitingAccept
		conv.CurrentBookingID = &b.ID
		conv.LastActivityAt = now
		conv.UpdatedAt = now
		if err := s.repo.Conversation.Save(ctx, conv); err != nil {
			s.log.Error("Failed to bind conversation to booking",
				zap.Error(err),
				zap.String("booking_id", b.ID.String()),
				zap.String("driver_id", driver.ID.String()),
			)
		}

		mark = func(b *entity.Booking) bool {
			if b.DriverNotified || b.DriverID == nil || *b.DriverID != driver.ID {
				return false
			}
			b.DriverNotified = true
			return true
		}
	default:
		return
	}

	fresh, _, err := mutateBooking(ctx, s.repo.Booking, b, s.now, mark)
	if err != nil {
		s.log.Error("Failed to record notification flag",
			zap.Error(err),
			zap.String("booking_id", b.ID.String()),
			zap.String("event", string(event)),
		)
		return
	}
	if fresh != nil {
		*b = *fresh
	}
}

func (s *messagingService) SendManual(ctx context.Context, tenant Tenant, bookingID uuid.UUID, req *request.SendMessageRequest) (*response.MessageResponse, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError(utils.FormatValidationErrors(errs))
	}

	booking, err := s.repo.Booking.FindByID(ctx, tenant.ID, bookingID)
	if err != nil {
		return nil, fmt.Errorf("find booking %s: %w", bookingID.String(), err)
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}

	d := delivery{
		tenantID:  tenant.ID,
		bookingID: &booking.ID,
		kind:      entity.MessageTypeManual,
		body:      req.Body,
	}

	var conv *entity.Conversation
	switch req.Recipient {
	case "driver":
		if booking.DriverID == nil {
			return nil, validationError("booking has no driver assigned")
		}
		driver, err := s.repo.Driver.FindByID(ctx, tenant.ID, *booking.DriverID)
		if err != nil {
			return nil, fmt.Errorf("find driver: %w", err)
		}
		if driver == nil {
			return nil, ErrDriverNotFound
		}
		d.recipient = utils.NormalizePhone(driver.Phone)
		d.driverID = &driver.ID
		conv, err = s.repo.Conversation.FindByDriver(ctx, tenant.ID, driver.ID, d.recipient)
		if err != nil {
			return nil, err
		}
	default:
		d.recipient = utils.NormalizePhone(booking.CustomerPhone)
	}

	if modeFor(conv, s.now()) == deliverFreeForm {
		d.outbound.Body = req.Body
	} else {
		d.outbound.Template = s.template(templateFollowUp, req.Body)
	}

	msg, err := s.deliver(ctx, d)
	if msg == nil {
		return nil, err
	}

	// The message is recorded either way; its status carries the outcome.
	resp := response.MessageToResponse(msg)
	return &resp, nil
}

// Resend sends a copy of a previous outbound message as a new record. The
// session policy is re-evaluated at send time.
func (s *messagingService) Resend(ctx context.Context, tenant Tenant, messageID uuid.UUID) (*response.MessageResponse, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}

	original, err := s.repo.Message.FindByID(ctx, tenant.ID, messageID)
	if err != nil {
		return nil, fmt.Errorf("find message %s: %w", messageID.String(), err)
	}
	if original == nil || original.Direction != entity.MessageOutbound {
		return nil, ErrMessageNotFound
	}

	d := delivery{
		tenantID:  tenant.ID,
		bookingID: original.BookingID,
		driverID:  original.DriverID,
		kind:      original.Type,
		recipient: original.Recipient,
		body:      original.Body,
	}

	var conv *entity.Conversation
	if original.DriverID != nil {
		conv, err = s.repo.Conversation.FindByDriver(ctx, tenant.ID, *original.DriverID, original.Recipient)
		if err != nil {
			return nil, err
		}
	}
	if modeFor(conv, s.now()) == deliverFreeForm {
		d.outbound.Body = original.Body
	} else {
		d.outbound.Template = s.template(templateFollowUp, original.Body)
	}

	msg, err := s.deliver(ctx, d)
	if msg == nil {
		return nil, err
	}

	resp := response.MessageToResponse(msg)
	return &resp, nil
}

func (s *messagingService) History(ctx context.Context, tenant Tenant, bookingID uuid.UUID) ([]response.MessageResponse, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}

	booking, err := s.repo.Booking.FindByID(ctx, tenant.ID, bookingID)
	if err != nil {
		return nil, fmt.Errorf("find booking %s: %w", bookingID.String(), err)
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}

	messages, err := s.repo.Message.FindByBooking(ctx, tenant.ID, bookingID)
	if err != nil {
		return nil, fmt.Errorf("list messages for booking %s: %w", bookingID.String(), err)
	}

	out := make([]response.MessageResponse, 0, len(messages))
	for _, m := range messages {
		out = append(out, response.MessageToResponse(m))
	}
	return out, nil
}

var deliveryStatuses = map[string]entity.MessageStatus{
	"sent":      entity.MessageSent,
	"delivered": entity.MessageDelivered,
	"read":      entity.MessageRead,
	"failed":    entity.MessageFailed,
}

// statusRetryWindow bounds how long an unmatched receipt is bounced back to
// the provider. A receipt can overtake the write that stores the provider id.
const statusRetryWindow = 10 * time.Minute

func (s *messagingService) HandleStatus(ctx context.Context, update messaging.StatusUpdate) (Outcome, error) {
	incoming, ok := deliveryStatuses[strings.ToLower(update.Status)]
	if !ok {
		return Outcome{Status: OutcomeIgnored, Detail: "unknown status " + update.Status}, nil
	}

	var msg *entity.Message
	var outcome Outcome

	err := retryCAS(func() (bool, error) {
		fresh, err := s.repo.Message.FindByProviderID(ctx, entity.MessageOutbound, update.MessageID)
		if err != nil {
			return false, err
		}
		if fresh == nil {
			outcome = s.unmatchedStatus(update)
			return true, nil
		}
		msg = fresh

		next, changed := msg.Status.AdvanceTo(incoming)
		if !changed {
			outcome = noop(fmt.Sprintf("message already %s", msg.Status))
			return true, nil
		}

		expected := msg.Status
		msg.Status = next
		msg.UpdatedAt = s.now()
		if next == entity.MessageFailed && update.Error != "" {
			detail := update.Error
			msg.ErrorDetail = &detail
		}

		ok, err := s.repo.Message.UpdateDelivery(ctx, msg, expected)
		if err != nil || !ok {
			return false, err
		}
		outcome = processed(string(next))
		return true, nil
	})

	return outcome, err
}

func (s *messagingService) unmatchedStatus(update messaging.StatusUpdate) Outcome {
	detail := "no message with provider id " + update.MessageID
	if !update.Timestamp.IsZero() && s.now().Sub(update.Timestamp) < statusRetryWindow {
		return Outcome{Status: OutcomeRetry, Detail: detail}
	}
	return notFound(detail)
}

// HandleInbound records the reply as RECEIVED, applies it, and marks it
// PROCESSED last. A delivery that failed part way is replayed in full by the
// provider's retry; only a PROCESSED record short-circuits.
func (s *messagingService) HandleInbound(ctx context.Context, in messaging.InboundMessage) (*InboundResult, error) {
	phone := utils.NormalizePhone(in.From)
	action, referenced, parsed := ParseReply(in.Payload, in.Body)

	conv, unrouted, err := s.resolveConversation(ctx, in, phone, referenced)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		s.log.Warn("Inbound message not routed",
			zap.String("provider_message_id", in.MessageID),
			zap.String("detail", unrouted.Detail),
		)
		return &InboundResult{Outcome: unrouted}, nil
	}

	record, err := s.repo.Message.FindByProviderID(ctx, entity.MessageInbound, in.MessageID)
	if err != nil {
		return nil, err
	}
	if record != nil && record.Status == entity.MessageProcessed {
		return &InboundResult{Outcome: noop("message already processed"), MessageID: &record.ID, State: conv.State}, nil
	}

	now := s.now()
	target := conv.CurrentBookingID
	if referenced != nil {
		target = referenced
	}

	if record == nil {
		body := in.Body
		if body == "" {
			body = in.Payload
		}
		providerID := in.MessageID
		record = &entity.Message{
			TenantBase: entity.TenantBase{
				ID:        uuid.New(),
				TenantID:  conv.TenantID,
				CreatedAt: now,
				UpdatedAt: now,
			},
			BookingID:         target,
			DriverID:          &conv.DriverID,
			Direction:         entity.MessageInbound,
			Recipient:         s.config.PhoneNumberID,
			Sender:            phone,
			Type:              entity.MessageTypeReply,
			Body:              body,
			ProviderMessageID: &providerID,
			Status:            entity.MessageReceived,
		}
		if err := s.repo.Message.Create(ctx, record); err != nil {
			return nil, fmt.Errorf("record inbound message: %w", err)
		}
	} else {
		s.log.Info("Resuming unprocessed inbound message", zap.String("message_id", record.ID.String()))
	}

	// Any inbound message reopens the provider session window.
	expires := now.Add(s.config.SessionWindow)
	conv.LastActivityAt = now
	conv.SessionExpiresAt = &expires
	conv.UpdatedAt = now

	result := &InboundResult{MessageID: &record.ID, Action: action}
	var accepted *entity.Booking

	switch {
	case !parsed:
		result.Outcome = Outcome{Status: OutcomeIgnored, Detail: "not a recognised reply"}
	case conv.CurrentBookingID == nil || target == nil || *target != *conv.CurrentBookingID:
		result.Outcome = Outcome{Status: OutcomeIgnored, Detail: "reply does not match the current booking"}
	default:
		result.Outcome, accepted, err = s.applyReply(ctx, conv, action)
		if err != nil {
			return nil, err
		}
	}

	if err := s.repo.Conversation.Save(ctx, conv); err != nil {
		return nil, err
	}
	result.State = conv.State

	record.Status = entity.MessageProcessed
	record.UpdatedAt = s.now()
	if _, err := s.repo.Message.UpdateDelivery(ctx, record, entity.MessageReceived); err != nil {
		// state is committed; a replay finds nothing left to move
		s.log.Error("Failed to mark inbound message processed",
			zap.Error(err),
			zap.String("message_id", record.ID.String()),
		)
	}

	if accepted != nil {
		result.SideEffects = append(result.SideEffects, s.notifyAccepted(ctx, conv, accepted))
	}

	return result, nil
}

// resolveConversation finds the conversation an inbound message belongs to.
// A tenant's own business number decides first, then the booking a button
// reply names. Otherwise the sender must be known to a single tenant.
func (s *messagingService) resolveConversation(ctx context.Context, in messaging.InboundMessage, phone string, referenced *uuid.UUID) (*entity.Conversation, Outcome, error) {
	unknown := notFound("no conversation for sender")

	if to := utils.NormalizePhone(in.To); to != "" {
		org, err := s.repo.Organization.FindByMessagingNumber(ctx, to)
		if err != nil {
			return nil, Outcome{}, err
		}
		if org != nil {
			conv, err := s.repo.Conversation.FindLatestByPhone(ctx, org.ID, phone)
			if err != nil || conv != nil {
				return conv, Outcome{}, err
			}
			return nil, unknown, nil
		}
	}

	convs, err := s.repo.Conversation.FindByPhone(ctx, phone)
	if err != nil {
		return nil, Outcome{}, err
	}
	if len(convs) == 0 {
		return nil, unknown, nil
	}

	if referenced != nil {
		for _, c := range convs {
			if c.BoundTo(*referenced) {
				return c, Outcome{}, nil
			}
		}
	}
	for _, c := range convs[1:] {
		if c.TenantID != convs[0].TenantID {
			return nil, Outcome{Status: OutcomeIgnored, Detail: "sender is known to several tenants"}, nil
		}
	}

	return convs[0], Outcome{}, nil
}

// applyReply moves the conversation and its booking together. Replies the
// current state does not expect leave both untouched. A booking that already
// carries the reply is not written again, so a replay after a partial
// failure only advances the conversation. The accepted booking is returned
// for the customer notification.
func (s *messagingService) applyReply(ctx context.Context, conv *entity.Conversation, action ReplyAction) (Outcome, *entity.Booking, error) {
	nextState, ok := NextConversationState(conv.State, action)
	if !ok {
		return Outcome{Status: OutcomeIgnored, Detail: fmt.Sprintf("%s not expected in state %s", action, conv.State)}, nil, nil
	}

	unassigned := Outcome{Status: OutcomeIgnored, Detail: "booking no longer assigned to this driver"}

	booking, err := s.repo.Booking.FindByID(ctx, conv.TenantID, *conv.CurrentBookingID)
	if err != nil {
		return Outcome{}, nil, err
	}
	if booking == nil {
		resetConversation(conv)
		return unassigned, nil, nil
	}

	now := s.now()
	status, moves := bookingStatusForReply(action)
	reassigned := false
	blocked := ""

	booking, _, err = mutateBooking(ctx, s.repo.Booking, booking, s.now, func(b *entity.Booking) bool {
		reassigned, blocked = false, ""
		if action == ReplyDecline && b.DriverID == nil && b.Status == status {
			return false
		}
		if b.DriverID == nil || *b.DriverID != conv.DriverID {
			reassigned = true
			return false
		}
		if moves && b.Status != status && !b.Status.CanTransitionTo(status) {
			blocked = fmt.Sprintf("booking is %s", b.Status)
			return false
		}

		changed := false
		if moves && b.Status != status {
			b.Status = status
			changed = true
		}
		switch action {
		case ReplyAccept:
			if !b.DriverAccepted {
				b.DriverAccepted = true
				b.DriverAcceptedAt = &now
				changed = true
			}
		case ReplyDecline:
			b.DriverID = nil
			b.DriverNotified = false
			b.DriverAccepted = false
			b.DriverAcceptedAt = nil
			changed = true
		}
		return changed
	})
	if err != nil {
		return Outcome{}, nil, err
	}
	if booking == nil || reassigned {
		resetConversation(conv)
		return unassigned, nil, nil
	}
	if blocked != "" {
		return Outcome{Status: OutcomeIgnored, Detail: blocked}, nil, nil
	}

	conv.State = nextState
	if nextState == entity.ConversationIdle {
		resetConversation(conv)
	}

	s.log.Info("Driver reply applied",
		zap.String("booking_id", booking.ID.String()),
		zap.String("action", string(action)),
		zap.String("state", string(conv.State)),
	)

	if action == ReplyAccept {
		return processed(string(action)), booking, nil
	}
	return processed(string(action)), nil, nil
}

func (s *messagingService) notifyAccepted(ctx context.Context, conv *entity.Conversation, booking *entity.Booking) SideEffect {
	driver, err := s.repo.Driver.FindByID(ctx, conv.TenantID, conv.DriverID)
	if err != nil {
		return SideEffect{Name: string(EventDriverAccepted), Error: err.Error()}
	}
	return s.notify(ctx, conv.TenantID, EventDriverAccepted, booking, driver)
}

func (s *messagingService) SyncConversation(ctx context.Context, tenant Tenant, booking *entity.Booking) error {
	conv, err := s.repo.Conversation.FindByBooking(ctx, tenant.ID, booking.ID)
	if err != nil {
		return err
	}
	if conv == nil {
		return nil
	}

	before := conv.State
	switch {
	case booking.DriverID == nil || *booking.DriverID != conv.DriverID:
		resetConversation(conv)
	case booking.Status == entity.BookingStatusInProgress:
		conv.State = entity.ConversationInProgress
	case booking.Status == entity.BookingStatusCompleted,
		booking.Status == entity.BookingStatusCancelled,
		booking.Status == entity.BookingStatusPending:
		resetConversation(conv)
	default:
		return nil
	}

	if conv.State == before && conv.CurrentBookingID != nil {
		return nil
	}

	conv.UpdatedAt = s.now()
	return s.repo.Conversation.Save(ctx, conv)
}
