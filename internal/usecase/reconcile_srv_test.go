package usecase

import (
	"strings"
	"testing"

	"chauffeur-backoffice/internal/data/entity"
	"chauffeur-backoffice/internal/provider/payments"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reconcileFixture struct {
	store   *fakeStore
	svc     ReconcileService
	tenant  Tenant
	booking *entity.Booking
	payment *entity.Payment
}

const (
	testSession = "cs_test_123"
	testIntent  = "pi_test_123"
)

func newReconcileFixture(t *testing.T) *reconcileFixture {
	t.Helper()

	store := newFakeStore()
	svc := NewReconcileService(store.repository(), testLogger()).(*reconcileService)
	svc.now = fixedClock

	tenant := testTenant()
	session := testSession
	booking := store.putBooking(newBooking(tenant.ID, func(b *entity.Booking) {
		b.Price = 10000
		b.PaymentStatus = entity.BookingPaymentProcessing
		b.PaymentSessionID = &session
		b.Notes = "VIP client\n" + PendingPaymentMarker + " checkout " + testSession
	}))
	payment := store.putPayment(&entity.Payment{
		TenantBase:        entity.TenantBase{ID: uuid.New(), TenantID: tenant.ID, CreatedAt: testNow, UpdatedAt: testNow},
		BookingID:         booking.ID,
		CheckoutSessionID: &session,
		Amount:            10000,
		Currency:          "gbp",
		Status:            entity.PaymentStatusPending,
		Source:            entity.PaymentSourceWidget,
	})

	return &reconcileFixture{store: store, svc: svc, tenant: tenant, booking: booking, payment: payment}
}

func completedEvent(status string) *payments.CheckoutCompleted {
	return &payments.CheckoutCompleted{
		SessionID:       testSession,
		PaymentStatus:   status,
		PaymentIntentID: testIntent,
		CustomerEmail:   "ada@example.com",
	}
}

func refundEvent(cumulative int64) *payments.ChargeRefunded {
	return &payments.ChargeRefunded{PaymentIntentID: testIntent, ChargeID: "ch_1", Amount: 10000, AmountRefunded: cumulative}
}

func TestCheckoutCompleted_MarksPaid(t *testing.T) {
	f := newReconcileFixture(t)

	outcome, err := f.svc.HandleEvent(t.Context(), completedEvent("paid"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome.Status)

	p := f.store.payment(f.payment.ID)
	assert.Equal(t, entity.PaymentStatusSucceeded, p.Status)
	assert.Equal(t, testIntent, *p.PaymentIntentID)
	assert.Equal(t, "ada@example.com", *p.CustomerEmail)

	b := f.store.booking(f.booking.ID)
	assert.Equal(t, entity.BookingPaymentPaid, b.PaymentStatus)
	assert.Equal(t, "VIP client", b.Notes)
}

func TestCheckoutCompleted_ReplayIsNoop(t *testing.T) {
	f := newReconcileFixture(t)

	_, err := f.svc.HandleEvent(t.Context(), completedEvent("paid"))
	require.NoError(t, err)
	paymentAfterFirst := f.store.payment(f.payment.ID)
	bookingAfterFirst := f.store.booking(f.booking.ID)

	outcome, err := f.svc.HandleEvent(t.Context(), completedEvent("paid"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoop, outcome.Status)
	assert.Equal(t, paymentAfterFirst, f.store.payment(f.payment.ID))
	assert.Equal(t, bookingAfterFirst, f.store.booking(f.booking.ID))
}

func TestCheckoutCompleted_Unpaid(t *testing.T) {
	f := newReconcileFixture(t)

	outcome, err := f.svc.HandleEvent(t.Context(), completedEvent("unpaid"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome.Status)

	p := f.store.payment(f.payment.ID)
	assert.Equal(t, entity.PaymentStatusFailed, p.Status)
	assert.Contains(t, *p.FailureMessage, `"unpaid"`)
	assert.Equal(t, entity.BookingPaymentFailed, f.store.booking(f.booking.ID).PaymentStatus)
}

func TestCheckoutCompleted_FallsBackToBooking(t *testing.T) {
	f := newReconcileFixture(t)
	session := "cs_direct"
	direct := f.store.putBooking(newBooking(f.tenant.ID, func(b *entity.Booking) {
		b.PaymentStatus = entity.BookingPaymentProcessing
		b.PaymentSessionID = &session
	}))

	outcome, err := f.svc.HandleEvent(t.Context(), &payments.CheckoutCompleted{SessionID: session, PaymentStatus: "paid"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome.Status)
	assert.Equal(t, entity.BookingPaymentPaid, f.store.booking(direct.ID).PaymentStatus)
}

func TestCheckoutCompleted_UnknownSessionIsNotFound(t *testing.T) {
	f := newReconcileFixture(t)

	outcome, err := f.svc.HandleEvent(t.Context(), &payments.CheckoutCompleted{SessionID: "cs_elsewhere", PaymentStatus: "paid"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotFound, outcome.Status)
}

func TestCheckoutExpired_AfterPaidDoesNotRegress(t *testing.T) {
	f := newReconcileFixture(t)

	_, err := f.svc.HandleEvent(t.Context(), completedEvent("paid"))
	require.NoError(t, err)

	outcome, err := f.svc.HandleEvent(t.Context(), &payments.CheckoutExpired{SessionID: testSession})
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoop, outcome.Status)
	assert.Equal(t, entity.PaymentStatusSucceeded, f.store.payment(f.payment.ID).Status)
	assert.Equal(t, entity.BookingPaymentPaid, f.store.booking(f.booking.ID).PaymentStatus)
}

func TestCheckoutExpired_ReturnsBookingToPending(t *testing.T) {
	f := newReconcileFixture(t)

	outcome, err := f.svc.HandleEvent(t.Context(), &payments.CheckoutExpired{SessionID: testSession})
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome.Status)

	p := f.store.payment(f.payment.ID)
	assert.Equal(t, entity.PaymentStatusFailed, p.Status)
	assert.Equal(t, "expired", *p.FailureCode)

	b := f.store.booking(f.booking.ID)
	assert.Equal(t, entity.BookingPaymentPending, b.PaymentStatus)
	assert.NotContains(t, b.Notes, PendingPaymentMarker)
	assert.Contains(t, b.Notes, "expired")

	again, err := f.svc.HandleEvent(t.Context(), &payments.CheckoutExpired{SessionID: testSession})
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoop, again.Status)
}

func TestChargeRefunded_AccumulatesPartialRefunds(t *testing.T) {
	f := newReconcileFixture(t)
	_, err := f.svc.HandleEvent(t.Context(), completedEvent("paid"))
	require.NoError(t, err)

	_, err = f.svc.HandleEvent(t.Context(), refundEvent(3000))
	require.NoError(t, err)
	_, err = f.svc.HandleEvent(t.Context(), refundEvent(7000))
	require.NoError(t, err)

	p := f.store.payment(f.payment.ID)
	assert.Equal(t, entity.PaymentStatusSucceeded, p.Status)
	assert.Equal(t, int64(7000), p.RefundedAmount)
	assert.Equal(t, entity.BookingPaymentPartiallyRefunded, f.store.booking(f.booking.ID).PaymentStatus)

	_, err = f.svc.HandleEvent(t.Context(), refundEvent(10000))
	require.NoError(t, err)

	p = f.store.payment(f.payment.ID)
	assert.Equal(t, entity.PaymentStatusRefunded, p.Status)
	assert.Equal(t, int64(10000), p.RefundedAmount)

	b := f.store.booking(f.booking.ID)
	assert.Equal(t, entity.BookingPaymentRefunded, b.PaymentStatus)
	assert.Contains(t, b.Notes, "Refunded 100.00 GBP of 100.00 GBP")
}

func TestChargeRefunded_StaleAndReplayedEvents(t *testing.T) {
	f := newReconcileFixture(t)
	_, err := f.svc.HandleEvent(t.Context(), completedEvent("paid"))
	require.NoError(t, err)

	_, err = f.svc.HandleEvent(t.Context(), refundEvent(7000))
	require.NoError(t, err)

	for _, cumulative := range []int64{7000, 3000} {
		outcome, err := f.svc.HandleEvent(t.Context(), refundEvent(cumulative))
		require.NoError(t, err)
		assert.Equal(t, OutcomeNoop, outcome.Status)
	}
	assert.Equal(t, int64(7000), f.store.payment(f.payment.ID).RefundedAmount)
}

func TestChargeRefunded_InvoicedBookingKeepsGuard(t *testing.T) {
	f := newReconcileFixture(t)
	_, err := f.svc.HandleEvent(t.Context(), completedEvent("paid"))
	require.NoError(t, err)

	b := f.store.booking(f.booking.ID)
	b.PaymentStatus = entity.BookingPaymentInvoiced
	f.store.putBooking(b)

	_, err = f.svc.HandleEvent(t.Context(), refundEvent(2500))
	require.NoError(t, err)

	b = f.store.booking(f.booking.ID)
	assert.Equal(t, entity.BookingPaymentInvoiced, b.PaymentStatus)
	assert.Contains(t, b.Notes, "(partial)")
}

func TestChargeRefunded_UnknownIntent(t *testing.T) {
	f := newReconcileFixture(t)

	outcome, err := f.svc.HandleEvent(t.Context(), &payments.ChargeRefunded{PaymentIntentID: "pi_unknown", AmountRefunded: 100})
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotFound, outcome.Status)
}

func TestCheckoutCompleted_RetryRepairsBooking(t *testing.T) {
	f := newReconcileFixture(t)
	f.store.failBookingUpdates = 1

	_, err := f.svc.HandleEvent(t.Context(), completedEvent("paid"))
	require.ErrorIs(t, err, errStoreDown)
	assert.Equal(t, entity.PaymentStatusSucceeded, f.store.payment(f.payment.ID).Status)
	assert.Equal(t, entity.BookingPaymentProcessing, f.store.booking(f.booking.ID).PaymentStatus)

	outcome, err := f.svc.HandleEvent(t.Context(), completedEvent("paid"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome.Status)

	b := f.store.booking(f.booking.ID)
	assert.Equal(t, entity.BookingPaymentPaid, b.PaymentStatus)
	assert.Equal(t, "VIP client", b.Notes)

	again, err := f.svc.HandleEvent(t.Context(), completedEvent("paid"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoop, again.Status)
}

func TestCheckoutCompleted_StaleUnpaidAfterPaid(t *testing.T) {
	f := newReconcileFixture(t)
	_, err := f.svc.HandleEvent(t.Context(), completedEvent("paid"))
	require.NoError(t, err)

	outcome, err := f.svc.HandleEvent(t.Context(), completedEvent("unpaid"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoop, outcome.Status)
	assert.Equal(t, entity.BookingPaymentPaid, f.store.booking(f.booking.ID).PaymentStatus)
}

func TestCheckoutExpired_RetryRepairsBooking(t *testing.T) {
	f := newReconcileFixture(t)
	f.store.failBookingUpdates = 1

	_, err := f.svc.HandleEvent(t.Context(), &payments.CheckoutExpired{SessionID: testSession})
	require.ErrorIs(t, err, errStoreDown)
	assert.Equal(t, entity.PaymentStatusFailed, f.store.payment(f.payment.ID).Status)
	assert.Equal(t, entity.BookingPaymentProcessing, f.store.booking(f.booking.ID).PaymentStatus)

	outcome, err := f.svc.HandleEvent(t.Context(), &payments.CheckoutExpired{SessionID: testSession})
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome.Status)

	b := f.store.booking(f.booking.ID)
	assert.Equal(t, entity.BookingPaymentPending, b.PaymentStatus)
	assert.NotContains(t, b.Notes, PendingPaymentMarker)
	assert.Equal(t, 1, strings.Count(b.Notes, "expired unpaid"))
}

func TestCheckoutExpired_LeavesNewerCheckout(t *testing.T) {
	f := newReconcileFixture(t)
	newer := "cs_test_newer"
	b := f.store.booking(f.booking.ID)
	b.PaymentSessionID = &newer
	b.Notes = "VIP client\n" + PendingPaymentMarker + " checkout " + newer
	f.store.putBooking(b)

	outcome, err := f.svc.HandleEvent(t.Context(), &payments.CheckoutExpired{SessionID: testSession})
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome.Status)
	assert.Equal(t, entity.PaymentStatusFailed, f.store.payment(f.payment.ID).Status)

	stored := f.store.booking(f.booking.ID)
	assert.Equal(t, entity.BookingPaymentProcessing, stored.PaymentStatus)
	assert.Equal(t, newer, *stored.PaymentSessionID)
	assert.Contains(t, stored.Notes, PendingPaymentMarker+" checkout "+newer)
}

func TestCheckoutCompleted_UnpaidLeavesNewerCheckout(t *testing.T) {
	f := newReconcileFixture(t)
	newer := "cs_test_newer"
	b := f.store.booking(f.booking.ID)
	b.PaymentSessionID = &newer
	b.Notes = "VIP client\n" + PendingPaymentMarker + " checkout " + newer
	f.store.putBooking(b)

	_, err := f.svc.HandleEvent(t.Context(), completedEvent("unpaid"))
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusFailed, f.store.payment(f.payment.ID).Status)

	stored := f.store.booking(f.booking.ID)
	assert.Equal(t, entity.BookingPaymentProcessing, stored.PaymentStatus)
	assert.Equal(t, newer, *stored.PaymentSessionID)
}

func TestChargeRefunded_RetryRepairsBooking(t *testing.T) {
	f := newReconcileFixture(t)
	_, err := f.svc.HandleEvent(t.Context(), completedEvent("paid"))
	require.NoError(t, err)
	f.store.failBookingUpdates = 1

	_, err = f.svc.HandleEvent(t.Context(), refundEvent(3000))
	require.ErrorIs(t, err, errStoreDown)
	assert.Equal(t, int64(3000), f.store.payment(f.payment.ID).RefundedAmount)
	assert.Equal(t, entity.BookingPaymentPaid, f.store.booking(f.booking.ID).PaymentStatus)

	outcome, err := f.svc.HandleEvent(t.Context(), refundEvent(3000))
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome.Status)

	again, err := f.svc.HandleEvent(t.Context(), refundEvent(3000))
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoop, again.Status)

	b := f.store.booking(f.booking.ID)
	assert.Equal(t, entity.BookingPaymentPartiallyRefunded, b.PaymentStatus)
	assert.Equal(t, 1, strings.Count(b.Notes, "Refunded 30.00 GBP of 100.00 GBP (partial)"))
}

func TestAccountUpdated(t *testing.T) {
	f := newReconcileFixture(t)
	f.store.orgs[f.tenant.ID] = &entity.Organization{ID: f.tenant.ID, Name: "Acme Cars"}
	f.store.putAccount(&entity.PaymentAccount{
		TenantBase:        entity.TenantBase{ID: uuid.New(), TenantID: f.tenant.ID},
		ProviderAccountID: "acct_1",
		Status:            entity.PaymentAccountPending,
	})

	tests := []struct {
		name      string
		charges   bool
		details   bool
		want      entity.PaymentAccountStatus
		onboarded bool
	}{
		{"details only", false, true, entity.PaymentAccountRestricted, false},
		{"fully enabled", true, true, entity.PaymentAccountActive, true},
		{"nothing submitted", false, false, entity.PaymentAccountPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome, err := f.svc.HandleEvent(t.Context(), &payments.AccountUpdated{
				AccountID:        "acct_1",
				ChargesEnabled:   tt.charges,
				DetailsSubmitted: tt.details,
				CurrentlyDue:     []string{"individual.verification.document"},
			})
			require.NoError(t, err)
			assert.Equal(t, OutcomeProcessed, outcome.Status)

			account := f.store.accounts[f.tenant.ID]
			assert.Equal(t, tt.want, account.Status)
			assert.Equal(t, []string{"individual.verification.document"}, account.Requirements)
			assert.Equal(t, tt.onboarded, f.store.orgs[f.tenant.ID].PaymentsOnboarded)
		})
	}

	outcome, err := f.svc.HandleEvent(t.Context(), &payments.AccountUpdated{AccountID: "acct_unknown"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotFound, outcome.Status)
}
