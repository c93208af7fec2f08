package response

import (
	"time"

	"chauffeur-backoffice/internal/data/entity"
)

type InvoiceLineItemResponse struct {
	BookingID   *string `json:"booking_id,omitempty"`
	Description string  `json:"description"`
	Quantity    int64   `json:"quantity"`
	UnitAmount  int64   `json:"unit_amount"`
	LineAmount  int64   `json:"line_amount"`
	TaxType     string  `json:"tax_type,omitempty"`
	AccountCode string  `json:"account_code,omitempty"`
}

type InvoiceResponse struct {
	ID                string                    `json:"id"`
	ProviderInvoiceID string                    `json:"provider_invoice_id"`
	InvoiceNumber     string                    `json:"invoice_number"`
	ContactID         string                    `json:"contact_id"`
	ContactName       string                    `json:"contact_name,omitempty"`
	Reference         string                    `json:"reference"`
	Status            string                    `json:"status"`
	Currency          string                    `json:"currency"`
	Subtotal          int64                     `json:"subtotal"`
	TotalTax          int64                     `json:"total_tax"`
	Total             int64                     `json:"total"`
	AmountDue         int64                     `json:"amount_due"`
	AmountPaid        int64                     `json:"amount_paid"`
	IssueDate         time.Time                 `json:"issue_date"`
	DueDate           time.Time                 `json:"due_date"`
	URL               *string                   `json:"url,omitempty"`
	BookingIDs        []string                  `json:"booking_ids"`
	LineItems         []InvoiceLineItemResponse `json:"line_items,omitempty"`
	CreatedAt         time.Time                 `json:"created_at"`
}

// InvoiceResultResponse is one invoice attempt in a batch.
type InvoiceResultResponse struct {
	BookingIDs []string         `json:"booking_ids"`
	Success    bool             `json:"success"`
	Invoice    *InvoiceResponse `json:"invoice,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// InvoiceBatchResponse is true only when every attempt succeeded. Failed
// entries can be retried on their own.
type InvoiceBatchResponse struct {
	Success bool                    `json:"success"`
	Results []InvoiceResultResponse `json:"results"`
}

func InvoiceToResponse(inv *entity.Invoice) InvoiceResponse {
	resp := InvoiceResponse{
		ID:                inv.ID.String(),
		ProviderInvoiceID: inv.ProviderInvoiceID,
		InvoiceNumber:     inv.InvoiceNumber,
		ContactID:         inv.ContactID,
		ContactName:       inv.ContactName,
		Reference:         inv.Reference,
		Status:            inv.Status,
		Currency:          inv.Currency,
		Subtotal:          inv.Subtotal,
		TotalTax:          inv.TotalTax,
		Total:             inv.Total,
		AmountDue:         inv.AmountDue,
		AmountPaid:        inv.AmountPaid,
		IssueDate:         inv.IssueDate,
		DueDate:           inv.DueDate,
		URL:               inv.URL,
		BookingIDs:        make([]string, 0, len(inv.BookingIDs)),
		CreatedAt:         inv.CreatedAt,
	}
	for _, id := range inv.BookingIDs {
		resp.BookingIDs = append(resp.BookingIDs, id.String())
	}
	for _, li := range inv.LineItems {
		item := InvoiceLineItemResponse{
			Description: li.Description,
			Quantity:    li.Quantity,
			UnitAmount:  li.UnitAmount,
			LineAmount:  li.LineAmount,
			TaxType:     li.TaxType,
			AccountCode: li.AccountCode,
		}
		if li.BookingID != nil {
			id := li.BookingID.String()
			item.BookingID = &id
		}
		resp.LineItems = append(resp.LineItems, item)
	}
	return resp
}
