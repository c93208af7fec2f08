package accounting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"chauffeur-backoffice/pkg/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const dateLayout = "2006-01-02"

type Client struct {
	oauth  *oauth2.Config
	config utils.AccountingConfig
	http   *http.Client
	log    *zap.Logger
}

func NewClient(config utils.AccountingConfig, log *zap.Logger) *Client {
	return &Client{
		oauth: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RedirectURL:  config.RedirectURL,
			Scopes:       config.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   config.AuthURL,
				TokenURL:  config.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		config: config,
		http:   &http.Client{Timeout: 15 * time.Second},
		log:    log.With(zap.String("provider", "accounting")),
	}
}

// AuthCodeURL is where the user is sent to grant access.
func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

func (c *Client) Exchange(ctx context.Context, code string) (*Token, error) {
	tok, err := c.oauth.Exchange(c.oauthContext(ctx), code)
	if err != nil {
		c.log.Warn("Authorization code exchange failed", zap.Error(err))
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	return toToken(tok, ""), nil
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	stale := &oauth2.Token{RefreshToken: refreshToken, Expiry: time.Now().Add(-time.Minute)}

	tok, err := c.oauth.TokenSource(c.oauthContext(ctx), stale).Token()
	if err != nil {
		c.log.Warn("Token refresh failed", zap.Error(err))
		return nil, fmt.Errorf("refresh access token: %w", err)
	}
	return toToken(tok, refreshToken), nil
}

// Revoke invalidates the refresh token and every access token minted from it.
func (c *Client) Revoke(ctx context.Context, refreshToken string) error {
	form := url.Values{"token": {refreshToken}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.RevokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build revoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.config.ClientID, c.config.ClientSecret)

	return c.do(req, nil)
}

// Connections lists the provider tenants the access token can act on.
func (c *Client) Connections(ctx context.Context, accessToken string) ([]Tenant, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.ConnectionsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build connections request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	var conns []wireConnection
	if err := c.do(req, &conns); err != nil {
		return nil, err
	}

	tenants := make([]Tenant, 0, len(conns))
	for _, conn := range conns {
		tenants = append(tenants, Tenant{ID: conn.TenantID, Name: conn.TenantName})
	}
	return tenants, nil
}

func (c *Client) CreateInvoice(ctx context.Context, creds Credentials, in InvoiceRequest) (*Invoice, error) {
	body := wireInvoiceRequests{Invoices: []wireInvoiceRequest{{
		Type:         "ACCREC",
		Contact:      wireContact{ContactID: in.ContactID},
		LineItems:    make([]wireLineItem, 0, len(in.LineItems)),
		Date:         in.Date.Format(dateLayout),
		DueDate:      in.DueDate.Format(dateLayout),
		Reference:    in.Reference,
		Status:       "AUTHORISED",
		CurrencyCode: strings.ToUpper(in.Currency),
	}}}
	for _, item := range in.LineItems {
		unit := ToMajor(item.UnitAmount, in.Currency)
		qty := decimal.NewFromInt(item.Quantity)
		body.Invoices[0].LineItems = append(body.Invoices[0].LineItems, wireLineItem{
			Description: item.Description,
			Quantity:    amount(qty),
			UnitAmount:  amount(unit),
			LineAmount:  amount(unit.Mul(qty)),
			TaxType:     item.TaxType,
			AccountCode: item.AccountCode,
		})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal invoice: %w", err)
	}

	req, err := c.apiRequest(ctx, creds, http.MethodPost, "/Invoices", payload)
	if err != nil {
		return nil, err
	}

	var out wireInvoices
	if err := c.do(req, &out); err != nil {
		c.log.Warn("Invoice creation failed", zap.Error(err), zap.String("reference", in.Reference))
		return nil, err
	}
	if len(out.Invoices) == 0 {
		return nil, fmt.Errorf("accounting api returned no invoice for %s", in.Reference)
	}

	return toInvoice(out.Invoices[0], in.Currency), nil
}

func (c *Client) GetInvoice(ctx context.Context, creds Credentials, invoiceID string) (*Invoice, error) {
	req, err := c.apiRequest(ctx, creds, http.MethodGet, "/Invoices/"+url.PathEscape(invoiceID), nil)
	if err != nil {
		return nil, err
	}

	var out wireInvoices
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	if len(out.Invoices) == 0 {
		return nil, fmt.Errorf("invoice %s not found at provider", invoiceID)
	}

	return toInvoice(out.Invoices[0], out.Invoices[0].CurrencyCode), nil
}

// OnlineInvoiceURL returns the customer-facing link for an invoice.
func (c *Client) OnlineInvoiceURL(ctx context.Context, creds Credentials, invoiceID string) (string, error) {
	req, err := c.apiRequest(ctx, creds, http.MethodGet, "/Invoices/"+url.PathEscape(invoiceID)+"/OnlineInvoice", nil)
	if err != nil {
		return "", err
	}

	var out wireOnlineInvoices
	if err := c.do(req, &out); err != nil {
		return "", err
	}
	if len(out.OnlineInvoices) == 0 {
		return "", nil
	}

	return out.OnlineInvoices[0].OnlineInvoiceURL, nil
}

func (c *Client) apiRequest(ctx context.Context, creds Credentials, method, path string, payload []byte) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.config.APIBaseURL, "/")+path, body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s request: %w", method, path, err)
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	req.Header.Set("xero-tenant-id", creds.TenantID)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}

	return nil
}

func (c *Client) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.http)
}

// toToken keeps the previous refresh token when the provider does not rotate it.
func toToken(tok *oauth2.Token, previousRefresh string) *Token {
	out := &Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Expiry:       tok.Expiry,
	}
	if out.RefreshToken == "" {
		out.RefreshToken = previousRefresh
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		out.Scope = scope
	}
	return out
}

func toInvoice(w wireInvoice, currency string) *Invoice {
	inv := &Invoice{
		ID:          w.InvoiceID,
		Number:      w.InvoiceNumber,
		Status:      w.Status,
		ContactID:   w.Contact.ContactID,
		ContactName: w.Contact.Name,
		Reference:   w.Reference,
		Currency:    currency,
		Subtotal:    w.SubTotal.minor(currency),
		TotalTax:    w.TotalTax.minor(currency),
		Total:       w.Total.minor(currency),
		AmountDue:   w.AmountDue.minor(currency),
		AmountPaid:  w.AmountPaid.minor(currency),
	}
	if w.CurrencyCode != "" {
		inv.Currency = w.CurrencyCode
	}
	for _, li := range w.LineItems {
		inv.LineItems = append(inv.LineItems, InvoiceLine{
			Description: li.Description,
			Quantity:    decimal.Decimal(li.Quantity).IntPart(),
			UnitAmount:  li.UnitAmount.minor(currency),
			LineAmount:  li.LineAmount.minor(currency),
			TaxType:     li.TaxType,
			AccountCode: li.AccountCode,
		})
	}
	return inv
}
