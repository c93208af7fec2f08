package response

import (
	"time"

	"chauffeur-backoffice/internal/data/entity"
)

type PaymentResponse struct {
	ID                string               `json:"id"`
	BookingID         string               `json:"booking_id"`
	CheckoutSessionID *string              `json:"checkout_session_id,omitempty"`
	PaymentIntentID   *string              `json:"payment_intent_id,omitempty"`
	Amount            int64                `json:"amount"`
	Currency          string               `json:"currency"`
	Status            entity.PaymentStatus `json:"status"`
	FailureCode       *string              `json:"failure_code,omitempty"`
	FailureMessage    *string              `json:"failure_message,omitempty"`
	RefundedAmount    int64                `json:"refunded_amount"`
	Source            entity.PaymentSource `json:"source"`
	CreatedAt         time.Time            `json:"created_at"`
	UpdatedAt         time.Time            `json:"updated_at"`
}

type CheckoutSessionResponse struct {
	Payment   PaymentResponse `json:"payment"`
	URL       string          `json:"url"`
	ExpiresAt time.Time       `json:"expires_at"`
}

type PaymentLinkResponse struct {
	ID             string     `json:"id"`
	BookingID      string     `json:"booking_id"`
	ProviderLinkID string     `json:"provider_link_id"`
	URL            string     `json:"url"`
	Amount         int64      `json:"amount"`
	Currency       string     `json:"currency"`
	Active         bool       `json:"active"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

type PaymentAccountResponse struct {
	ProviderAccountID string                      `json:"provider_account_id"`
	Status            entity.PaymentAccountStatus `json:"status"`
	ChargesEnabled    bool                        `json:"charges_enabled"`
	PayoutsEnabled    bool                        `json:"payouts_enabled"`
	DetailsSubmitted  bool                        `json:"details_submitted"`
	Requirements      []string                    `json:"requirements"`
}

type OnboardingLinkResponse struct {
	Account   PaymentAccountResponse `json:"account"`
	URL       string                 `json:"url"`
	ExpiresAt time.Time              `json:"expires_at"`
}

func PaymentToResponse(p *entity.Payment) PaymentResponse {
	return PaymentResponse{
		ID:                p.ID.String(),
		BookingID:         p.BookingID.String(),
		CheckoutSessionID: p.CheckoutSessionID,
		PaymentIntentID:   p.PaymentIntentID,
		Amount:            p.Amount,
		Currency:          p.Currency,
		Status:            p.Status,
		FailureCode:       p.FailureCode,
		FailureMessage:    p.FailureMessage,
		RefundedAmount:    p.RefundedAmount,
		Source:            p.Source,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

func PaymentLinkToResponse(l *entity.PaymentLink) PaymentLinkResponse {
	return PaymentLinkResponse{
		ID:             l.ID.String(),
		BookingID:      l.BookingID.String(),
		ProviderLinkID: l.ProviderLinkID,
		URL:            l.URL,
		Amount:         l.Amount,
		Currency:       l.Currency,
		Active:         l.Active,
		ExpiresAt:      l.ExpiresAt,
		CreatedAt:      l.CreatedAt,
	}
}

func PaymentAccountToResponse(a *entity.PaymentAccount) PaymentAccountResponse {
	requirements := a.Requirements
	if requirements == nil {
		requirements = []string{}
	}
	return PaymentAccountResponse{
		ProviderAccountID: a.ProviderAccountID,
		Status:            a.Status,
		ChargesEnabled:    a.ChargesEnabled,
		PayoutsEnabled:    a.PayoutsEnabled,
		DetailsSubmitted:  a.DetailsSubmitted,
		Requirements:      requirements,
	}
}
