package accounting

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"chauffeur-backoffice/pkg/utils"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(utils.AccountingConfig{
		ClientID:       "client",
		ClientSecret:   "secret",
		RedirectURL:    "https://backoffice.test/callback",
		Scopes:         []string{"offline_access", "accounting.transactions"},
		AuthURL:        srv.URL + "/authorize",
		TokenURL:       srv.URL + "/token",
		RevokeURL:      srv.URL + "/revoke",
		APIBaseURL:     srv.URL + "/api",
		ConnectionsURL: srv.URL + "/connections",
	}, zap.NewNop())
}

func TestAuthCodeURL_CarriesState(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})

	u, err := url.Parse(c.AuthCodeURL("state-123"))
	require.NoError(t, err)
	assert.Equal(t, "state-123", u.Query().Get("state"))
	assert.Equal(t, "client", u.Query().Get("client_id"))
	assert.Equal(t, "offline_access accounting.transactions", u.Query().Get("scope"))
}

func TestExchange(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "code-1", r.PostForm.Get("code"))
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "client", user)
		assert.Equal(t, "secret", pass)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"at","refresh_token":"rt","token_type":"Bearer","expires_in":1800,"scope":"accounting.transactions"}`))
	})

	tok, err := c.Exchange(t.Context(), "code-1")
	require.NoError(t, err)
	assert.Equal(t, "at", tok.AccessToken)
	assert.Equal(t, "rt", tok.RefreshToken)
	assert.Equal(t, "accounting.transactions", tok.Scope)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), tok.Expiry, time.Minute)
}

func TestRefresh_KeepsRefreshTokenWhenNotRotated(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "rt-old", r.PostForm.Get("refresh_token"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"at-new","token_type":"Bearer","expires_in":1800}`))
	})

	tok, err := c.Refresh(t.Context(), "rt-old")
	require.NoError(t, err)
	assert.Equal(t, "at-new", tok.AccessToken)
	assert.Equal(t, "rt-old", tok.RefreshToken)
}

func TestCreateInvoice(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/Invoices", r.URL.Path)
		assert.Equal(t, "Bearer at", r.Header.Get("Authorization"))
		assert.Equal(t, "org-1", r.Header.Get("xero-tenant-id"))

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var body struct {
			Invoices []struct {
				Type      string
				Contact   struct{ ContactID string }
				Date      string
				DueDate   string
				Reference string
				Status    string
				LineItems []struct {
					Description string
					Quantity    json.Number
					UnitAmount  json.Number
					TaxType     string
				}
			}
		}
		require.NoError(t, json.Unmarshal(raw, &body))
		require.Len(t, body.Invoices, 1)
		inv := body.Invoices[0]
		assert.Equal(t, "ACCREC", inv.Type)
		assert.Equal(t, "contact-1", inv.Contact.ContactID)
		assert.Equal(t, "2026-03-01", inv.Date)
		assert.Equal(t, "2026-03-15", inv.DueDate)
		assert.Equal(t, "AUTHORISED", inv.Status)
		require.Len(t, inv.LineItems, 1)
		assert.Equal(t, json.Number("50"), inv.LineItems[0].UnitAmount)
		assert.Equal(t, json.Number("1"), inv.LineItems[0].Quantity)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"Invoices":[{"InvoiceID":"inv-1","InvoiceNumber":"INV-0001","Status":"AUTHORISED",
			"CurrencyCode":"GBP","Contact":{"ContactID":"contact-1","Name":"Acme"},
			"LineItems":[{"Description":"Airport run","Quantity":1,"UnitAmount":50.00,"LineAmount":50.00,"TaxType":"OUTPUT2"}],
			"SubTotal":50.00,"TotalTax":10.00,"Total":60.00,"AmountDue":60.00,"AmountPaid":0}]}`))
	})

	inv, err := c.CreateInvoice(t.Context(), Credentials{AccessToken: "at", TenantID: "org-1"}, InvoiceRequest{
		ContactID: "contact-1",
		Reference: "BK-1",
		Currency:  "gbp",
		Date:      time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		DueDate:   time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		LineItems: []LineItem{{Description: "Airport run", Quantity: 1, UnitAmount: 5000, TaxType: "OUTPUT2"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "inv-1", inv.ID)
	assert.Equal(t, "INV-0001", inv.Number)
	assert.Equal(t, int64(5000), inv.Subtotal)
	assert.Equal(t, int64(1000), inv.TotalTax)
	assert.Equal(t, int64(6000), inv.Total)
	require.Len(t, inv.LineItems, 1)
	assert.Equal(t, int64(5000), inv.LineItems[0].LineAmount)
}

func TestCreateInvoice_ProviderError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"Message":"A validation exception occurred"}`))
	})

	_, err := c.CreateInvoice(t.Context(), Credentials{AccessToken: "at", TenantID: "org-1"}, InvoiceRequest{
		ContactID: "contact-1",
		Currency:  "GBP",
		Date:      time.Now(),
		DueDate:   time.Now(),
	})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}

func TestConnections(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer at", r.Header.Get("Authorization"))
		w.Write([]byte(`[{"id":"c1","tenantId":"org-1","tenantType":"ORGANISATION","tenantName":"Acme Cars"}]`))
	})

	tenants, err := c.Connections(t.Context(), "at")
	require.NoError(t, err)
	assert.Equal(t, []Tenant{{ID: "org-1", Name: "Acme Cars"}}, tenants)
}

func TestRevoke(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "rt", r.PostForm.Get("token"))
		_, _, ok := r.BasicAuth()
		assert.True(t, ok)
	})

	require.NoError(t, c.Revoke(t.Context(), "rt"))
	assert.True(t, called)
}

func TestMoneyConversion(t *testing.T) {
	assert.True(t, decimal.RequireFromString("50.25").Equal(ToMajor(5025, "GBP")))
	assert.Equal(t, int64(5025), ToMinor(decimal.RequireFromString("50.25"), "GBP"))
	assert.Equal(t, int64(1200), ToMinor(decimal.RequireFromString("1200"), "JPY"))
	assert.Equal(t, int64(1001), ToMinor(decimal.RequireFromString("10.005"), "USD"))
}
