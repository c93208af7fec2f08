package request

import "time"

type ExtraLineItemRequest struct {
	Description string  `json:"description" validate:"required,max=500"`
	Quantity    int64   `json:"quantity" validate:"gte=0"`
	UnitAmount  int64   `json:"unit_amount" validate:"gte=0"`
	TaxType     string  `json:"tax_type"`
	AccountCode string  `json:"account_code"`
	BookingID   *string `json:"booking_id,omitempty" validate:"omitempty,uuid4"`
}

type CreateInvoiceRequest struct {
	ContactID      string                 `json:"contact_id" validate:"required"`
	ContactName    string                 `json:"contact_name"`
	BookingIDs     []string               `json:"booking_ids" validate:"required,min=1,dive,uuid4"`
	ExtraLineItems []ExtraLineItemRequest `json:"extra_line_items" validate:"dive"`
	Combine        bool                   `json:"combine"`
	DueDate        *time.Time             `json:"due_date,omitempty"`
}
