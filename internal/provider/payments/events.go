package payments

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

var ErrUnsupportedEvent = errors.New("unsupported event type")

// Event is one of CheckoutCompleted, CheckoutExpired, AccountUpdated or
// ChargeRefunded.
type Event interface {
	EventID() string
}

type envelope struct {
	ID string
}

func (e envelope) EventID() string { return e.ID }

type CheckoutCompleted struct {
	envelope
	SessionID       string
	PaymentStatus   string
	PaymentIntentID string
	CustomerEmail   string
}

type CheckoutExpired struct {
	envelope
	SessionID string
}

type AccountUpdated struct {
	envelope
	AccountID        string
	ChargesEnabled   bool
	PayoutsEnabled   bool
	DetailsSubmitted bool
	CurrentlyDue     []string
}

// ChargeRefunded carries the provider's cumulative refunded amount for
// the charge, not the delta of the latest refund.
type ChargeRefunded struct {
	envelope
	PaymentIntentID string
	ChargeID        string
	Amount          int64
	AmountRefunded  int64
}

// ParseEvent verifies the signature header and decodes the event into its
// typed variant. Unknown types return ErrUnsupportedEvent.
func ParseEvent(payload []byte, signature, secret string) (Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("verify webhook signature: %w", err)
	}
	return decodeEvent(event)
}

func decodeEvent(event stripe.Event) (Event, error) {
	if event.Data == nil {
		return nil, fmt.Errorf("event %s has no data", event.ID)
	}
	base := envelope{ID: event.ID}

	switch string(event.Type) {
	case "checkout.session.completed":
		var s stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
			return nil, fmt.Errorf("decode checkout session: %w", err)
		}
		if s.ID == "" {
			return nil, fmt.Errorf("event %s: checkout session id missing", event.ID)
		}
		out := &CheckoutCompleted{
			envelope:      base,
			SessionID:     s.ID,
			PaymentStatus: string(s.PaymentStatus),
			CustomerEmail: s.CustomerEmail,
		}
		if s.PaymentIntent != nil {
			out.PaymentIntentID = s.PaymentIntent.ID
		}
		if s.CustomerDetails != nil && s.CustomerDetails.Email != "" {
			out.CustomerEmail = s.CustomerDetails.Email
		}
		return out, nil

	case "checkout.session.expired":
		var s stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
			return nil, fmt.Errorf("decode checkout session: %w", err)
		}
		if s.ID == "" {
			return nil, fmt.Errorf("event %s: checkout session id missing", event.ID)
		}
		return &CheckoutExpired{envelope: base, SessionID: s.ID}, nil

	case "account.updated":
		var a stripe.Account
		if err := json.Unmarshal(event.Data.Raw, &a); err != nil {
			return nil, fmt.Errorf("decode account: %w", err)
		}
		if a.ID == "" {
			return nil, fmt.Errorf("event %s: account id missing", event.ID)
		}
		return &AccountUpdated{
			envelope:         base,
			AccountID:        a.ID,
			ChargesEnabled:   a.ChargesEnabled,
			PayoutsEnabled:   a.PayoutsEnabled,
			DetailsSubmitted: a.DetailsSubmitted,
			CurrentlyDue:     currentlyDue(&a),
		}, nil

	case "charge.refunded":
		var c stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &c); err != nil {
			return nil, fmt.Errorf("decode charge: %w", err)
		}
		if c.PaymentIntent == nil || c.PaymentIntent.ID == "" {
			return nil, fmt.Errorf("event %s: charge %s has no payment intent", event.ID, c.ID)
		}
		return &ChargeRefunded{
			envelope:        base,
			PaymentIntentID: c.PaymentIntent.ID,
			ChargeID:        c.ID,
			Amount:          c.Amount,
			AmountRefunded:  c.AmountRefunded,
		}, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnsupportedEvent, event.Type)
}

func currentlyDue(a *stripe.Account) []string {
	if a.Requirements == nil {
		return nil
	}
	return a.Requirements.CurrentlyDue
}
