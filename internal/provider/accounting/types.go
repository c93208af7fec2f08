package accounting

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Token is an OAuth token pair as issued by the provider.
type Token struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	Expiry       time.Time
	Scope        string
}

// Tenant is one organisation the token has been granted access to.
type Tenant struct {
	ID   string
	Name string
}

// Credentials authorise a single API call on behalf of a provider tenant.
type Credentials struct {
	AccessToken string
	TenantID    string
}

type LineItem struct {
	Description string
	Quantity    int64
	UnitAmount  int64 // minor units
	TaxType     string
	AccountCode string
}

type InvoiceRequest struct {
	ContactID string
	Reference string
	Currency  string
	Date      time.Time
	DueDate   time.Time
	LineItems []LineItem
}

type InvoiceLine struct {
	Description string
	Quantity    int64
	UnitAmount  int64
	LineAmount  int64
	TaxType     string
	AccountCode string
}

type Invoice struct {
	ID          string
	Number      string
	Status      string
	ContactID   string
	ContactName string
	Reference   string
	Currency    string
	Subtotal    int64
	TotalTax    int64
	Total       int64
	AmountDue   int64
	AmountPaid  int64
	LineItems   []InvoiceLine
}

// APIError is a non-2xx answer from the provider.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("accounting api returned %d: %s", e.StatusCode, e.Body)
}

// amount encodes as a bare JSON number.
type amount decimal.Decimal

func (a amount) MarshalJSON() ([]byte, error) {
	return []byte(decimal.Decimal(a).String()), nil
}

func (a *amount) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return err
	}
	*a = amount(d)
	return nil
}

func (a amount) minor(currency string) int64 {
	return ToMinor(decimal.Decimal(a), currency)
}

type wireContact struct {
	ContactID string `json:"ContactID"`
	Name      string `json:"Name,omitempty"`
}

type wireLineItem struct {
	Description string `json:"Description"`
	Quantity    amount `json:"Quantity"`
	UnitAmount  amount `json:"UnitAmount"`
	LineAmount  amount `json:"LineAmount"`
	TaxType     string `json:"TaxType,omitempty"`
	AccountCode string `json:"AccountCode,omitempty"`
}

type wireInvoiceRequest struct {
	Type         string         `json:"Type"`
	Contact      wireContact    `json:"Contact"`
	LineItems    []wireLineItem `json:"LineItems"`
	Date         string         `json:"Date"`
	DueDate      string         `json:"DueDate"`
	Reference    string         `json:"Reference,omitempty"`
	Status       string         `json:"Status"`
	CurrencyCode string         `json:"CurrencyCode,omitempty"`
}

type wireInvoice struct {
	InvoiceID     string         `json:"InvoiceID"`
	InvoiceNumber string         `json:"InvoiceNumber"`
	Status        string         `json:"Status"`
	Contact       wireContact    `json:"Contact"`
	Reference     string         `json:"Reference"`
	CurrencyCode  string         `json:"CurrencyCode"`
	LineItems     []wireLineItem `json:"LineItems"`
	SubTotal      amount         `json:"SubTotal"`
	TotalTax      amount         `json:"TotalTax"`
	Total         amount         `json:"Total"`
	AmountDue     amount         `json:"AmountDue"`
	AmountPaid    amount         `json:"AmountPaid"`
}

type wireInvoiceRequests struct {
	Invoices []wireInvoiceRequest `json:"Invoices"`
}

type wireInvoices struct {
	Invoices []wireInvoice `json:"Invoices"`
}

type wireOnlineInvoices struct {
	OnlineInvoices []struct {
		OnlineInvoiceURL string `json:"OnlineInvoiceUrl"`
	} `json:"OnlineInvoices"`
}

type wireConnection struct {
	ID         string `json:"id"`
	TenantID   string `json:"tenantId"`
	TenantType string `json:"tenantType"`
	TenantName string `json:"tenantName"`
}
