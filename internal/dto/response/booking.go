package response

import (
	"time"

	"chauffeur-backoffice/internal/data/entity"
)

type BookingResponse struct {
	ID               string                      `json:"id"`
	Reference        string                      `json:"reference"`
	CustomerName     string                      `json:"customer_name"`
	CustomerPhone    string                      `json:"customer_phone"`
	CustomerEmail    *string                     `json:"customer_email,omitempty"`
	Pickup           string                      `json:"pickup"`
	Dropoff          string                      `json:"dropoff"`
	ScheduledAt      time.Time                   `json:"scheduled_at"`
	Price            int64                       `json:"price"`
	Currency         string                      `json:"currency"`
	Status           entity.BookingStatus        `json:"status"`
	PaymentStatus    entity.BookingPaymentStatus `json:"payment_status"`
	DriverID         *string                     `json:"driver_id,omitempty"`
	CustomerNotified bool                        `json:"customer_notified"`
	DriverNotified   bool                        `json:"driver_notified"`
	DriverAccepted   bool                        `json:"driver_accepted"`
	DriverAcceptedAt *time.Time                  `json:"driver_accepted_at,omitempty"`
	Notes            string                      `json:"notes,omitempty"`
	CreatedAt        time.Time                   `json:"created_at"`
	UpdatedAt        time.Time                   `json:"updated_at"`
}

// SideEffectResponse reports one best-effort action that followed the
// primary mutation.
type SideEffectResponse struct {
	Name      string  `json:"name"`
	Success   bool    `json:"success"`
	MessageID *string `json:"message_id,omitempty"`
	Error     string  `json:"error,omitempty"`
}

// BookingActionResponse is returned by mutations that notify. The booking
// reflects the committed primary action whatever the side effects report.
type BookingActionResponse struct {
	Booking     BookingResponse      `json:"booking"`
	SideEffects []SideEffectResponse `json:"side_effects"`
}

func BookingToResponse(b *entity.Booking) BookingResponse {
	resp := BookingResponse{
		ID:               b.ID.String(),
		Reference:        b.Reference,
		CustomerName:     b.CustomerName,
		CustomerPhone:    b.CustomerPhone,
		CustomerEmail:    b.CustomerEmail,
		Pickup:           b.Pickup,
		Dropoff:          b.Dropoff,
		ScheduledAt:      b.ScheduledAt,
		Price:            b.Price,
		Currency:         b.Currency,
		Status:           b.Status,
		PaymentStatus:    b.PaymentStatus,
		CustomerNotified: b.CustomerNotified,
		DriverNotified:   b.DriverNotified,
		DriverAccepted:   b.DriverAccepted,
		DriverAcceptedAt: b.DriverAcceptedAt,
		Notes:            b.Notes,
		CreatedAt:        b.CreatedAt,
		UpdatedAt:        b.UpdatedAt,
	}
	if b.DriverID != nil {
		id := b.DriverID.String()
		resp.DriverID = &id
	}
	return resp
}
