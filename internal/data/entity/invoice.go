package entity

import (
	"time"

	"github.com/google/uuid"
)

// Invoice mirrors an invoice created at the accounting provider. Only
// Status, AmountPaid and AmountDue change after creation.
type Invoice struct {
	TenantBase
	ProviderInvoiceID string            `db:"provider_invoice_id"`
	InvoiceNumber     string            `db:"invoice_number"`
	ContactID         string            `db:"contact_id"`
	ContactName       string            `db:"contact_name"`
	Reference         string            `db:"reference"`
	Status            string            `db:"status"`
	Currency          string            `db:"currency"`
	Subtotal          int64             `db:"subtotal"`
	TotalTax          int64             `db:"total_tax"`
	Total             int64             `db:"total"`
	AmountDue         int64             `db:"amount_due"`
	AmountPaid        int64             `db:"amount_paid"`
	IssueDate         time.Time         `db:"issue_date"`
	DueDate           time.Time         `db:"due_date"`
	URL               *string           `db:"url"`
	BookingIDs        []uuid.UUID       `db:"booking_ids"`
	CreatedBy         uuid.UUID         `db:"created_by"`
	LineItems         []InvoiceLineItem `db:"-"`
}

type InvoiceLineItem struct {
	BaseSimple
	InvoiceID   uuid.UUID  `db:"invoice_id"`
	BookingID   *uuid.UUID `db:"booking_id"`
	Position    int        `db:"position"` // order on the provider invoice
	Description string     `db:"description"`
	Quantity    int64      `db:"quantity"`
	UnitAmount  int64      `db:"unit_amount"`
	LineAmount  int64      `db:"line_amount"`
	TaxType     string     `db:"tax_type"`
	AccountCode string     `db:"account_code"`
}

// InvoiceAttempt records an invoice call the provider rejected.
type InvoiceAttempt struct {
	TenantBase
	BookingIDs []uuid.UUID `db:"booking_ids"`
	Reference  string      `db:"reference"`
	Error      string      `db:"error"`
	CreatedBy  uuid.UUID   `db:"created_by"`
}
