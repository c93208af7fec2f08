package entity

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusSucceeded  PaymentStatus = "succeeded"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)

type PaymentSource string

const (
	PaymentSourceWidget PaymentSource = "widget"
	PaymentSourceLink   PaymentSource = "link"
	PaymentSourceManual PaymentSource = "manual"
)

// Payment is one attempt to collect a booking's price.
type Payment struct {
	TenantBase
	BookingID         uuid.UUID     `db:"booking_id"`
	PaymentIntentID   *string       `db:"payment_intent_id"`
	CheckoutSessionID *string       `db:"checkout_session_id"`
	Amount            int64         `db:"amount"`
	Currency          string        `db:"currency"`
	Status            PaymentStatus `db:"status"`
	FailureCode       *string       `db:"failure_code"`
	FailureMessage    *string       `db:"failure_message"`
	RefundedAmount    int64         `db:"refunded_amount"`
	CustomerEmail     *string       `db:"customer_email"`
	Source            PaymentSource `db:"source"`
}

type PaymentLink struct {
	TenantBase
	BookingID      uuid.UUID  `db:"booking_id"`
	ProviderLinkID string     `db:"provider_link_id"`
	URL            string     `db:"url"`
	Amount         int64      `db:"amount"`
	Currency       string     `db:"currency"`
	Active         bool       `db:"active"`
	ExpiresAt      *time.Time `db:"expires_at"`
}

type PaymentAccountStatus string

const (
	PaymentAccountPending    PaymentAccountStatus = "pending"
	PaymentAccountRestricted PaymentAccountStatus = "restricted"
	PaymentAccountActive     PaymentAccountStatus = "active"
)

// DerivePaymentAccountStatus collapses the provider capability flags.
func DerivePaymentAccountStatus(chargesEnabled, detailsSubmitted bool) PaymentAccountStatus {
	switch {
	case chargesEnabled && detailsSubmitted:
		return PaymentAccountActive
	case detailsSubmitted:
		return PaymentAccountRestricted
	default:
		return PaymentAccountPending
	}
}

// PaymentAccount is the tenant's Connect account at the payments provider.
type PaymentAccount struct {
	TenantBase
	ProviderAccountID string               `db:"provider_account_id"`
	Status            PaymentAccountStatus `db:"status"`
	ChargesEnabled    bool                 `db:"charges_enabled"`
	PayoutsEnabled    bool                 `db:"payouts_enabled"`
	DetailsSubmitted  bool                 `db:"details_submitted"`
	Requirements      []string             `db:"requirements"`
}
