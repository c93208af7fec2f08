package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "whsec_test"

func sign(payload []byte, secret string) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d.%s", ts, payload)))
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func eventPayload(eventType, object string) []byte {
	return []byte(fmt.Sprintf(`{"id":"evt_1","object":"event","type":%q,"data":{"object":%s}}`, eventType, object))
}

func TestParseEvent_CheckoutCompleted(t *testing.T) {
	payload := eventPayload("checkout.session.completed",
		`{"id":"cs_1","object":"checkout.session","payment_status":"paid","payment_intent":"pi_1","customer_details":{"email":"rider@example.com"}}`)

	event, err := ParseEvent(payload, sign(payload, testSecret), testSecret)
	require.NoError(t, err)

	completed, ok := event.(*CheckoutCompleted)
	require.True(t, ok)
	assert.Equal(t, "evt_1", completed.EventID())
	assert.Equal(t, "cs_1", completed.SessionID)
	assert.Equal(t, "paid", completed.PaymentStatus)
	assert.Equal(t, "pi_1", completed.PaymentIntentID)
	assert.Equal(t, "rider@example.com", completed.CustomerEmail)
}

func TestParseEvent_ChargeRefunded(t *testing.T) {
	payload := eventPayload("charge.refunded",
		`{"id":"ch_1","object":"charge","amount":10000,"amount_refunded":3000,"payment_intent":"pi_9"}`)

	event, err := ParseEvent(payload, sign(payload, testSecret), testSecret)
	require.NoError(t, err)

	refund, ok := event.(*ChargeRefunded)
	require.True(t, ok)
	assert.Equal(t, "pi_9", refund.PaymentIntentID)
	assert.Equal(t, int64(10000), refund.Amount)
	assert.Equal(t, int64(3000), refund.AmountRefunded)
}

func TestParseEvent_AccountUpdated(t *testing.T) {
	payload := eventPayload("account.updated",
		`{"id":"acct_1","object":"account","charges_enabled":false,"details_submitted":true,"requirements":{"currently_due":["external_account"]}}`)

	event, err := ParseEvent(payload, sign(payload, testSecret), testSecret)
	require.NoError(t, err)

	account, ok := event.(*AccountUpdated)
	require.True(t, ok)
	assert.Equal(t, "acct_1", account.AccountID)
	assert.True(t, account.DetailsSubmitted)
	assert.Equal(t, []string{"external_account"}, account.CurrentlyDue)
}

func TestParseEvent_RejectsBadSignature(t *testing.T) {
	payload := eventPayload("checkout.session.expired", `{"id":"cs_2","object":"checkout.session"}`)

	_, err := ParseEvent(payload, sign(payload, "whsec_other"), testSecret)
	assert.Error(t, err)
}

func TestParseEvent_UnsupportedType(t *testing.T) {
	payload := eventPayload("invoice.paid", `{"id":"in_1","object":"invoice"}`)

	_, err := ParseEvent(payload, sign(payload, testSecret), testSecret)
	assert.ErrorIs(t, err, ErrUnsupportedEvent)
}

func TestParseEvent_MissingSessionID(t *testing.T) {
	payload := eventPayload("checkout.session.expired", `{"object":"checkout.session"}`)

	_, err := ParseEvent(payload, sign(payload, testSecret), testSecret)
	assert.Error(t, err)
}
