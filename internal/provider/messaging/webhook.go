package messaging

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// VerifySignature checks an X-Hub-Signature-256 header against the body.
func VerifySignature(body []byte, header, secret string) bool {
	if secret == "" {
		return false
	}
	sig, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return false
	}
	expected, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), expected)
}

// ParseWebhook splits a notification into inbound messages and delivery
// receipts. Entries for other fields are skipped.
func ParseWebhook(body []byte) ([]InboundMessage, []StatusUpdate, error) {
	var hook wireWebhook
	if err := json.Unmarshal(body, &hook); err != nil {
		return nil, nil, fmt.Errorf("decode messaging webhook: %w", err)
	}

	var (
		inbound  []InboundMessage
		statuses []StatusUpdate
	)
	for _, entry := range hook.Entry {
		for _, change := range entry.Changes {
			if change.Field != "messages" {
				continue
			}
			to := change.Value.Metadata.DisplayPhoneNumber

			for _, m := range change.Value.Messages {
				if m.ID == "" || m.From == "" {
					continue
				}
				msg := InboundMessage{
					MessageID: m.ID,
					From:      m.From,
					To:        to,
					Timestamp: parseUnix(m.Timestamp),
				}
				switch {
				case m.Interactive != nil && m.Interactive.ButtonReply != nil:
					msg.Payload = m.Interactive.ButtonReply.ID
					msg.Body = m.Interactive.ButtonReply.Title
				case m.Button != nil:
					msg.Payload = m.Button.Payload
					msg.Body = m.Button.Text
				case m.Text != nil:
					msg.Body = m.Text.Body
				}
				inbound = append(inbound, msg)
			}

			for _, s := range change.Value.Statuses {
				if s.ID == "" {
					continue
				}
				update := StatusUpdate{
					MessageID: s.ID,
					Recipient: s.RecipientID,
					Status:    s.Status,
					Timestamp: parseUnix(s.Timestamp),
				}
				if len(s.Errors) > 0 {
					update.Error = fmt.Sprintf("%d: %s", s.Errors[0].Code, s.Errors[0].Title)
				}
				statuses = append(statuses, update)
			}
		}
	}

	return inbound, statuses, nil
}

func parseUnix(ts string) time.Time {
	sec, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
