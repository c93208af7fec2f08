package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"chauffeur-backoffice/pkg/utils"

	"go.uber.org/zap"
)

type Client struct {
	config utils.MessagingConfig
	http   *http.Client
	log    *zap.Logger
}

func NewClient(config utils.MessagingConfig, log *zap.Logger) *Client {
	return &Client{
		config: config,
		http:   &http.Client{Timeout: 10 * time.Second},
		log:    log.With(zap.String("provider", "messaging")),
	}
}

func (c *Client) Send(ctx context.Context, msg OutboundMessage) (*SendResult, error) {
	body := wireSendRequest{
		MessagingProduct: "whatsapp",
		To:               msg.To,
	}

	switch {
	case msg.Template != nil:
		lang := msg.Template.Language
		if lang == "" {
			lang = c.config.TemplateLanguage
		}
		tpl := &wireTemplate{Name: msg.Template.Name, Language: wireLanguage{Code: lang}}
		if len(msg.Template.Parameters) > 0 {
			params := make([]wireParameter, 0, len(msg.Template.Parameters))
			for _, p := range msg.Template.Parameters {
				params = append(params, wireParameter{Type: "text", Text: p})
			}
			tpl.Components = []wireComponent{{Type: "body", Parameters: params}}
		}
		body.Type = "template"
		body.Template = tpl

	case len(msg.Buttons) > 0:
		interactive := &wireInteractive{Type: "button", Body: wireText{Body: msg.Body}}
		for _, b := range msg.Buttons {
			interactive.Action.Buttons = append(interactive.Action.Buttons, wireButton{
				Type:  "reply",
				Reply: wireReply{ID: b.ID, Title: b.Title},
			})
		}
		body.Type = "interactive"
		body.Interactive = interactive

	default:
		body.Type = "text"
		body.Text = &wireText{Body: msg.Body}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/messages", strings.TrimRight(c.config.BaseURL, "/"), c.config.PhoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.AccessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("Message send failed", zap.Error(err), zap.String("to", msg.To))
		return nil, fmt.Errorf("send message to %s: %w", msg.To, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read send response: %w", err)
	}

	var out wireSendResponse
	if err := json.Unmarshal(raw, &out); err != nil && resp.StatusCode == http.StatusOK {
		return nil, fmt.Errorf("decode send response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || out.Error != nil || len(out.Messages) == 0 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: string(raw)}
		if out.Error != nil {
			apiErr.Code = out.Error.Code
			apiErr.Message = out.Error.Message
		}
		c.log.Warn("Message rejected by provider",
			zap.Int("status", resp.StatusCode),
			zap.Int("code", apiErr.Code),
			zap.String("to", msg.To),
		)
		return nil, apiErr
	}

	return &SendResult{MessageID: out.Messages[0].ID}, nil
}

// VerifySubscription answers the provider's webhook registration
// handshake. It returns the challenge to echo back when the token matches.
func (c *Client) VerifySubscription(mode, token, challenge string) (string, bool) {
	if mode != "subscribe" || c.config.VerifyToken == "" || token != c.config.VerifyToken {
		return "", false
	}
	return challenge, true
}
