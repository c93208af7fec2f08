package payments

import "time"

type CheckoutRequest struct {
	BookingID     string
	Reference     string
	Description   string
	Amount        int64
	Currency      string
	CustomerEmail string
	// DestinationAccount receives the funds minus ApplicationFee.
	DestinationAccount string
	ApplicationFee     int64
}

type CheckoutSession struct {
	ID        string
	URL       string
	ExpiresAt time.Time
}

type AccountRequest struct {
	TenantID string
	Email    string
}

type Account struct {
	ID               string
	ChargesEnabled   bool
	PayoutsEnabled   bool
	DetailsSubmitted bool
	CurrentlyDue     []string
}

type OnboardingLink struct {
	URL       string
	ExpiresAt time.Time
}

type LinkRequest struct {
	BookingID          string
	Description        string
	Amount             int64
	Currency           string
	DestinationAccount string
	ApplicationFee     int64
}

type Link struct {
	ID     string
	URL    string
	Active bool
}
