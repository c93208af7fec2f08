package request

import "time"

type CreateBookingRequest struct {
	CustomerName  string    `json:"customer_name" validate:"required,min=2,max=120"`
	CustomerPhone string    `json:"customer_phone" validate:"required,e164"`
	CustomerEmail *string   `json:"customer_email,omitempty" validate:"omitempty,email"`
	Pickup        string    `json:"pickup" validate:"required,max=255"`
	Dropoff       string    `json:"dropoff" validate:"required,max=255"`
	ScheduledAt   time.Time `json:"scheduled_at" validate:"required"`
	Price         int64     `json:"price" validate:"gte=0"`
	Currency      string    `json:"currency" validate:"omitempty,len=3"`
	Notes         string    `json:"notes" validate:"max=2000"`
}

type ListBookingsRequest struct {
	PaginatedRequest
	Status string `json:"status" validate:"omitempty,oneof=PENDING CONFIRMED ASSIGNED IN_PROGRESS COMPLETED CANCELLED"`
}

type AssignDriverRequest struct {
	DriverID string `json:"driver_id" validate:"required,uuid4"`
	// SkipNotification assigns without sending the dispatch message.
	SkipNotification bool `json:"skip_notification"`
}

type TransitionStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=PENDING CONFIRMED ASSIGNED IN_PROGRESS COMPLETED CANCELLED"`
	Reason string `json:"reason" validate:"max=500"`
}
