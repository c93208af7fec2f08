package messaging

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"chauffeur-backoffice/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(utils.MessagingConfig{
		BaseURL:          srv.URL,
		PhoneNumberID:    "pn-1",
		AccessToken:      "token",
		VerifyToken:      "verify",
		TemplateLanguage: "en_GB",
	}, zap.NewNop())
}

func TestSend_Text(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/pn-1/messages", r.URL.Path)
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "text", body["type"])
		assert.Equal(t, "447700900001", body["to"])

		w.Write([]byte(`{"messages":[{"id":"wamid.1"}]}`))
	})

	res, err := c.Send(t.Context(), OutboundMessage{To: "447700900001", Body: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "wamid.1", res.MessageID)
}

func TestSend_TemplateUsesDefaultLanguage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body wireSendRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.NotNil(t, body.Template)
		assert.Equal(t, "template", body.Type)
		assert.Equal(t, "driver_dispatch", body.Template.Name)
		assert.Equal(t, "en_GB", body.Template.Language.Code)
		require.Len(t, body.Template.Components, 1)
		assert.Equal(t, "BK-1", body.Template.Components[0].Parameters[0].Text)

		w.Write([]byte(`{"messages":[{"id":"wamid.2"}]}`))
	})

	_, err := c.Send(t.Context(), OutboundMessage{
		To:       "447700900001",
		Template: &Template{Name: "driver_dispatch", Parameters: []string{"BK-1"}},
	})
	require.NoError(t, err)
}

func TestSend_Buttons(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body wireSendRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.NotNil(t, body.Interactive)
		require.Len(t, body.Interactive.Action.Buttons, 2)
		assert.Equal(t, "ACCEPT:b1", body.Interactive.Action.Buttons[0].Reply.ID)

		w.Write([]byte(`{"messages":[{"id":"wamid.3"}]}`))
	})

	_, err := c.Send(t.Context(), OutboundMessage{
		To:      "447700900001",
		Body:    "New job",
		Buttons: []Button{{ID: "ACCEPT:b1", Title: "Accept"}, {ID: "DECLINE:b1", Title: "Decline"}},
	})
	require.NoError(t, err)
}

func TestSend_ProviderError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"Re-engagement message","code":131047}}`))
	})

	_, err := c.Send(t.Context(), OutboundMessage{To: "447700900001", Body: "hello"})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 131047, apiErr.Code)
	assert.Equal(t, "Re-engagement message", apiErr.Message)
}

func TestVerifySubscription(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})

	challenge, ok := c.VerifySubscription("subscribe", "verify", "abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", challenge)

	_, ok = c.VerifySubscription("subscribe", "wrong", "abc")
	assert.False(t, ok)
}
