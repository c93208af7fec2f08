package messaging

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePayload = `{
  "object": "whatsapp_business_account",
  "entry": [{
    "changes": [{
      "field": "messages",
      "value": {
        "metadata": {"display_phone_number": "447700900000", "phone_number_id": "pn-1"},
        "messages": [
          {"from": "447700900001", "id": "wamid.in1", "timestamp": "1760000000", "type": "text", "text": {"body": "yes"}},
          {"from": "447700900001", "id": "wamid.in2", "timestamp": "1760000001", "type": "interactive",
           "interactive": {"type": "button_reply", "button_reply": {"id": "START:b1", "title": "Start"}}}
        ],
        "statuses": [
          {"id": "wamid.out1", "status": "failed", "timestamp": "1760000002", "recipient_id": "447700900001",
           "errors": [{"code": 131026, "title": "Message undeliverable"}]}
        ]
      }
    }]
  }]
}`

func TestParseWebhook(t *testing.T) {
	inbound, statuses, err := ParseWebhook([]byte(samplePayload))
	require.NoError(t, err)

	require.Len(t, inbound, 2)
	assert.Equal(t, "yes", inbound[0].Body)
	assert.Empty(t, inbound[0].Payload)
	assert.Equal(t, "447700900000", inbound[0].To)
	assert.Equal(t, int64(1760000000), inbound[0].Timestamp.Unix())
	assert.Equal(t, "START:b1", inbound[1].Payload)

	require.Len(t, statuses, 1)
	assert.Equal(t, "failed", statuses[0].Status)
	assert.Equal(t, "131026: Message undeliverable", statuses[0].Error)
}

func TestParseWebhook_Malformed(t *testing.T) {
	_, _, err := ParseWebhook([]byte(`{"entry":`))
	assert.Error(t, err)
}

func TestVerifySignature(t *testing.T) {
	body := []byte(samplePayload)
	mac := hmac.New(sha256.New, []byte("app-secret"))
	mac.Write(body)
	header := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	assert.True(t, VerifySignature(body, header, "app-secret"))
	assert.False(t, VerifySignature(body, header, "other"))
	assert.False(t, VerifySignature(body, "md5=abc", "app-secret"))
	assert.False(t, VerifySignature(body, header, ""))
}
