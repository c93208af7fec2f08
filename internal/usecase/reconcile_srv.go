package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chauffeur-backoffice/internal/data/entity"
	"chauffeur-backoffice/internal/data/repository"
	"chauffeur-backoffice/internal/provider/payments"

	"go.uber.org/zap"
)

type ReconcileService interface {
	// HandleEvent applies a verified payments webhook. Safe to call any number
	// of times, in any order; missing local records yield OutcomeNotFound.
	HandleEvent(ctx context.Context, event payments.Event) (Outcome, error)
}

type reconcileService struct {
	repo *repository.Repository
	log  *zap.Logger
	now  func() time.Time
}

func NewReconcileService(repo *repository.Repository, log *zap.Logger) ReconcileService {
	return &reconcileService{
		repo: repo,
		log:  log.With(zap.String("service", "reconcile")),
		now:  time.Now,
	}
}

func (s *reconcileService) HandleEvent(ctx context.Context, event payments.Event) (Outcome, error) {
	var (
		outcome Outcome
		err     error
	)

	switch e := event.(type) {
	case *payments.CheckoutCompleted:
		outcome, err = s.checkoutCompleted(ctx, e)
	case *payments.CheckoutExpired:
		outcome, err = s.checkoutExpired(ctx, e)
	case *payments.AccountUpdated:
		outcome, err = s.accountUpdated(ctx, e)
	case *payments.ChargeRefunded:
		outcome, err = s.chargeRefunded(ctx, e)
	default:
		return Outcome{Status: OutcomeIgnored, Detail: fmt.Sprintf("unhandled event %T", event)}, nil
	}

	if err != nil {
		s.log.Error("Failed to reconcile payment event", zap.Error(err), zap.String("event_id", event.EventID()))
		return Outcome{}, err
	}

	s.log.Info("Payment event reconciled",
		zap.String("event_id", event.EventID()),
		zap.String("outcome", string(outcome.Status)),
		zap.String("detail", outcome.Detail),
	)
	return outcome, nil
}

// updateBooking applies mutate to the freshest copy of booking under its
// version check. mutate returns false when nothing should change.
func (s *reconcileService) updateBooking(ctx context.Context, booking *entity.Booking, mutate func(b *entity.Booking) bool) (bool, error) {
	_, changed, err := mutateBooking(ctx, s.repo.Booking, booking, s.now, mutate)
	return changed, err
}

func (s *reconcileService) bookingFor(ctx context.Context, p *entity.Payment) (*entity.Booking, error) {
	return s.repo.Booking.FindByID(ctx, p.TenantID, p.BookingID)
}

// settleBooking brings the payment's booking in line with it. Every payment
// outcome, including a replay the payment row already reflects, runs
// through here so a booking write lost on an earlier attempt is repaired.
func (s *reconcileService) settleBooking(ctx context.Context, payment *entity.Payment, outcome Outcome, mutate func(b *entity.Booking) bool) (Outcome, error) {
	booking, err := s.bookingFor(ctx, payment)
	if err != nil {
		return Outcome{}, err
	}
	if booking == nil {
		return outcome, nil
	}

	changed, err := s.updateBooking(ctx, booking, mutate)
	if err != nil {
		return Outcome{}, err
	}
	if changed && outcome.Status == OutcomeNoop {
		s.log.Warn("Repaired booking left behind by an earlier attempt",
			zap.String("booking_id", booking.ID.String()),
			zap.String("payment_id", payment.ID.String()),
		)
		return processed("booking brought in line with payment " + string(payment.Status)), nil
	}
	return outcome, nil
}

func (s *reconcileService) checkoutCompleted(ctx context.Context, e *payments.CheckoutCompleted) (Outcome, error) {
	paid := e.PaymentStatus == "paid"

	payment, err := s.repo.Payment.FindByCheckoutSessionID(ctx, e.SessionID)
	if err != nil {
		return Outcome{}, err
	}
	if payment == nil {
		return s.completeBookingOnly(ctx, e)
	}

	var outcome Outcome
	err = retryCAS(func() (bool, error) {
		if payment == nil {
			fresh, err := s.repo.Payment.FindByCheckoutSessionID(ctx, e.SessionID)
			if err != nil {
				return false, err
			}
			if fresh == nil {
				outcome = notFound("no payment for session " + e.SessionID)
				return true, nil
			}
			payment = fresh
		}

		if payment.Status == entity.PaymentStatusSucceeded || payment.Status == entity.PaymentStatusRefunded {
			outcome = noop("payment already " + string(payment.Status))
			return true, nil
		}

		expected := payment.Status
		if paid {
			payment.Status = entity.PaymentStatusSucceeded
			payment.FailureCode = nil
			payment.FailureMessage = nil
			if e.PaymentIntentID != "" {
				intent := e.PaymentIntentID
				payment.PaymentIntentID = &intent
			}
			if e.CustomerEmail != "" {
				email := e.CustomerEmail
				payment.CustomerEmail = &email
			}
		} else {
			if expected == entity.PaymentStatusFailed {
				outcome = noop("payment already failed")
				return true, nil
			}
			code := "unpaid"
			msg := fmt.Sprintf("checkout completed with payment status %q", e.PaymentStatus)
			payment.Status = entity.PaymentStatusFailed
			payment.FailureCode = &code
			payment.FailureMessage = &msg
		}
		payment.UpdatedAt = s.now()

		ok, err := s.repo.Payment.Update(ctx, payment, expected)
		if err != nil {
			return false, err
		}
		if !ok {
			payment = nil
			return false, nil
		}
		outcome = processed("payment " + string(payment.Status))
		return true, nil
	})
	if err != nil || outcome.Status == OutcomeNotFound {
		return outcome, err
	}

	// the stored payment decides, not the event: a stale unpaid replay must
	// not fail a booking whose payment already succeeded
	succeeded := payment.Status == entity.PaymentStatusSucceeded || payment.Status == entity.PaymentStatusRefunded
	failed := payment.Status == entity.PaymentStatusFailed

	return s.settleBooking(ctx, payment, outcome, func(b *entity.Booking) bool {
		if settledPayment(b.PaymentStatus) {
			return false
		}
		switch {
		case succeeded:
			b.PaymentStatus = entity.BookingPaymentPaid
			b.Notes = removeMarker(b.Notes, PendingPaymentMarker)
		case failed && b.PaymentStatus != entity.BookingPaymentFailed &&
			(b.PaymentSessionID == nil || *b.PaymentSessionID == e.SessionID):
			b.PaymentStatus = entity.BookingPaymentFailed
			b.Notes = appendNote(removeMarker(b.Notes, PendingPaymentMarker),
				fmt.Sprintf("Payment failed: checkout %s ended %q", e.SessionID, e.PaymentStatus))
		default:
			return false
		}
		return true
	})
}

// completeBookingOnly covers sessions with no Payment record, such as a
// checkout bound directly to the booking.
func (s *reconcileService) completeBookingOnly(ctx context.Context, e *payments.CheckoutCompleted) (Outcome, error) {
	booking, err := s.repo.Booking.FindByPaymentSessionID(ctx, e.SessionID)
	if err != nil {
		return Outcome{}, err
	}
	if booking == nil {
		return notFound("no payment or booking for session " + e.SessionID), nil
	}
	if settledPayment(booking.PaymentStatus) {
		return noop("booking payment already " + string(booking.PaymentStatus)), nil
	}
	if e.PaymentStatus != "paid" {
		return noop(fmt.Sprintf("session payment status %q", e.PaymentStatus)), nil
	}

	changed, err := s.updateBooking(ctx, booking, func(b *entity.Booking) bool {
		if settledPayment(b.PaymentStatus) {
			return false
		}
		b.PaymentStatus = entity.BookingPaymentPaid
		b.Notes = removeMarker(b.Notes, PendingPaymentMarker)
		return true
	})
	if err != nil {
		return Outcome{}, err
	}
	if !changed {
		return noop("booking already settled"), nil
	}
	return processed("booking paid"), nil
}

func (s *reconcileService) checkoutExpired(ctx context.Context, e *payments.CheckoutExpired) (Outcome, error) {
	var payment *entity.Payment
	var outcome Outcome

	err := retryCAS(func() (bool, error) {
		fresh, err := s.repo.Payment.FindByCheckoutSessionID(ctx, e.SessionID)
		if err != nil {
			return false, err
		}
		if fresh == nil {
			outcome = notFound("no payment for session " + e.SessionID)
			return true, nil
		}
		payment = fresh

		switch payment.Status {
		case entity.PaymentStatusSucceeded, entity.PaymentStatusRefunded, entity.PaymentStatusFailed:
			outcome = noop("payment already " + string(payment.Status))
			return true, nil
		}

		expected := payment.Status
		code, msg := "expired", "checkout session expired"
		payment.Status = entity.PaymentStatusFailed
		payment.FailureCode = &code
		payment.FailureMessage = &msg
		payment.UpdatedAt = s.now()

		ok, err := s.repo.Payment.Update(ctx, payment, expected)
		if err != nil || !ok {
			return false, err
		}
		outcome = processed("payment expired")
		return true, nil
	})
	if err != nil || outcome.Status == OutcomeNotFound {
		return outcome, err
	}
	if payment.Status != entity.PaymentStatusFailed {
		return outcome, nil
	}

	// only the booking still waiting on this session is released; a newer
	// checkout keeps its own marker
	return s.settleBooking(ctx, payment, outcome, func(b *entity.Booking) bool {
		if b.PaymentStatus != entity.BookingPaymentProcessing ||
			b.PaymentSessionID == nil || *b.PaymentSessionID != e.SessionID {
			return false
		}
		b.PaymentStatus = entity.BookingPaymentPending
		b.Notes = appendNote(removeMarker(b.Notes, PendingPaymentMarker), fmt.Sprintf("Checkout %s expired unpaid", e.SessionID))
		return true
	})
}

func (s *reconcileService) accountUpdated(ctx context.Context, e *payments.AccountUpdated) (Outcome, error) {
	account, err := s.repo.PaymentAccount.FindByProviderAccountID(ctx, e.AccountID)
	if err != nil {
		return Outcome{}, err
	}
	if account == nil {
		return notFound("no payment account " + e.AccountID), nil
	}

	if err := applyAccountState(ctx, s.repo, account, &payments.Account{
		ID:               e.AccountID,
		ChargesEnabled:   e.ChargesEnabled,
		PayoutsEnabled:   e.PayoutsEnabled,
		DetailsSubmitted: e.DetailsSubmitted,
		CurrentlyDue:     e.CurrentlyDue,
	}, s.now()); err != nil {
		return Outcome{}, err
	}

	return processed("account " + string(account.Status)), nil
}

func (s *reconcileService) chargeRefunded(ctx context.Context, e *payments.ChargeRefunded) (Outcome, error) {
	var payment *entity.Payment
	var outcome Outcome

	err := retryCAS(func() (bool, error) {
		fresh, err := s.repo.Payment.FindByPaymentIntentID(ctx, e.PaymentIntentID)
		if err != nil {
			return false, err
		}
		if fresh == nil {
			outcome = notFound("no payment for intent " + e.PaymentIntentID)
			return true, nil
		}
		payment = fresh

		// events carry the cumulative total, so the max is both the running
		// sum of partial refunds and a no-op on replay
		cumulative := max(payment.RefundedAmount, e.AmountRefunded)
		if cumulative == payment.RefundedAmount {
			outcome = noop("refund already applied")
			return true, nil
		}

		expected := payment.Status
		payment.RefundedAmount = cumulative
		if cumulative >= payment.Amount {
			payment.Status = entity.PaymentStatusRefunded
		} else {
			payment.Status = entity.PaymentStatusSucceeded
		}
		payment.UpdatedAt = s.now()

		ok, err := s.repo.Payment.Update(ctx, payment, expected)
		if err != nil || !ok {
			return false, err
		}
		outcome = processed(fmt.Sprintf("refunded %d of %d", cumulative, payment.Amount))
		return true, nil
	})
	if err != nil || outcome.Status == OutcomeNotFound {
		return outcome, err
	}
	if payment.RefundedAmount == 0 {
		return outcome, nil
	}

	full := payment.Status == entity.PaymentStatusRefunded
	note := fmt.Sprintf("Refunded %s of %s", formatAmount(payment.RefundedAmount, payment.Currency), formatAmount(payment.Amount, payment.Currency))
	if !full {
		note += " (partial)"
	}
	want := entity.BookingPaymentPartiallyRefunded
	if full {
		want = entity.BookingPaymentRefunded
	}

	return s.settleBooking(ctx, payment, outcome, func(b *entity.Booking) bool {
		changed := false
		if !strings.Contains(b.Notes, note) {
			b.Notes = appendNote(b.Notes, note)
			changed = true
		}
		// an invoiced booking keeps INVOICED so it cannot be invoiced again
		if b.PaymentStatus != entity.BookingPaymentInvoiced && b.PaymentStatus != want {
			b.PaymentStatus = want
			changed = true
		}
		return changed
	})
}
