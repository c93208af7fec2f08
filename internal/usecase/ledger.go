package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"chauffeur-backoffice/internal/data/entity"
	"chauffeur-backoffice/internal/data/repository"
	"chauffeur-backoffice/internal/provider/accounting"
)

// PendingPaymentMarker flags bookings with an open checkout in their notes.
const PendingPaymentMarker = "[PAYMENT PENDING]"

func appendNote(notes, line string) string {
	notes = strings.TrimRight(notes, "\n")
	if notes == "" {
		return line
	}
	return notes + "\n" + line
}

func removeMarker(notes, marker string) string {
	lines := strings.Split(notes, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.Contains(line, marker) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// settledPayment reports payment states a stale checkout event must not
// overwrite on the booking.
func settledPayment(status entity.BookingPaymentStatus) bool {
	switch status {
	case entity.BookingPaymentPaid,
		entity.BookingPaymentRefunded,
		entity.BookingPaymentPartiallyRefunded,
		entity.BookingPaymentInvoiced:
		return true
	}
	return false
}

// formatAmount renders minor units for humans, e.g. "30.00 GBP".
func formatAmount(minor int64, currency string) string {
	d := accounting.ToMajor(minor, currency)
	return fmt.Sprintf("%s %s", d.StringFixed(-d.Exponent()), strings.ToUpper(currency))
}

const casAttempts = 3

// ErrConcurrentUpdate means a record kept changing under a compare-and-set.
var ErrConcurrentUpdate = errors.New("record kept changing concurrently, retry")

// retryCAS runs fn until it reports done. fn reloads its record each round
// so a lost compare-and-set is re-evaluated against fresh state.
func retryCAS(fn func() (done bool, err error)) error {
	for range casAttempts {
		done, err := fn()
		if err != nil || done {
			return err
		}
	}
	return ErrConcurrentUpdate
}

// mutateBooking applies mutate and writes the booking under its version
// check. When another writer got there first the booking is reloaded and
// mutate runs again on the fresh copy, so mutate must derive every change
// from the booking it is handed. mutate returns false when nothing should
// change. The returned booking is the last copy seen, nil if it is gone.
func mutateBooking(ctx context.Context, bookings repository.BookingRepository, booking *entity.Booking, now func() time.Time, mutate func(b *entity.Booking) bool) (*entity.Booking, bool, error) {
	current := booking
	changed := false

	err := retryCAS(func() (bool, error) {
		if current == nil {
			fresh, err := bookings.FindByID(ctx, booking.TenantID, booking.ID)
			if err != nil {
				return false, err
			}
			if fresh == nil {
				return true, nil
			}
			current = fresh
		}

		if !mutate(current) {
			return true, nil
		}
		current.UpdatedAt = now()

		ok, err := bookings.Update(ctx, current)
		if err != nil {
			return false, err
		}
		if !ok {
			current = nil
			return false, nil
		}
		changed = true
		return true, nil
	})

	return current, changed, err
}
