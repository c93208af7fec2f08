package messaging

import (
	"fmt"
	"time"
)

// OutboundMessage is either free text (optionally with reply buttons) or
// a pre-approved template. Template wins when both are set.
type OutboundMessage struct {
	To       string
	Body     string
	Buttons  []Button
	Template *Template
}

type Template struct {
	Name       string
	Language   string
	Parameters []string
}

// Button is a quick-reply button; ID comes back as the reply payload.
type Button struct {
	ID    string
	Title string
}

type SendResult struct {
	MessageID string
}

// InboundMessage is a message sent by a user to the business number.
// Payload is set for button replies.
type InboundMessage struct {
	MessageID string
	From      string
	To        string
	Body      string
	Payload   string
	Timestamp time.Time
}

// StatusUpdate is a delivery receipt for a message we sent.
type StatusUpdate struct {
	MessageID string
	Recipient string
	Status    string
	Timestamp time.Time
	Error     string
}

// APIError is a rejected send.
type APIError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("messaging api returned %d (code %d): %s", e.StatusCode, e.Code, e.Message)
}

type wireText struct {
	Body string `json:"body"`
}

type wireLanguage struct {
	Code string `json:"code"`
}

type wireParameter struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type wireComponent struct {
	Type       string          `json:"type"`
	Parameters []wireParameter `json:"parameters"`
}

type wireTemplate struct {
	Name       string          `json:"name"`
	Language   wireLanguage    `json:"language"`
	Components []wireComponent `json:"components,omitempty"`
}

type wireReply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type wireButton struct {
	Type  string    `json:"type"`
	Reply wireReply `json:"reply"`
}

type wireInteractive struct {
	Type   string   `json:"type"`
	Body   wireText `json:"body"`
	Action struct {
		Buttons []wireButton `json:"buttons"`
	} `json:"action"`
}

type wireSendRequest struct {
	MessagingProduct string           `json:"messaging_product"`
	To               string           `json:"to"`
	Type             string           `json:"type"`
	Text             *wireText        `json:"text,omitempty"`
	Template         *wireTemplate    `json:"template,omitempty"`
	Interactive      *wireInteractive `json:"interactive,omitempty"`
}

type wireSendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

type wireWebhook struct {
	Object string `json:"object"`
	Entry  []struct {
		Changes []struct {
			Field string `json:"field"`
			Value struct {
				Metadata struct {
					DisplayPhoneNumber string `json:"display_phone_number"`
					PhoneNumberID      string `json:"phone_number_id"`
				} `json:"metadata"`
				Messages []wireInbound `json:"messages"`
				Statuses []wireStatus  `json:"statuses"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type wireInbound struct {
	From      string `json:"from"`
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text"`
	Button *struct {
		Payload string `json:"payload"`
		Text    string `json:"text"`
	} `json:"button"`
	Interactive *struct {
		Type        string `json:"type"`
		ButtonReply *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"button_reply"`
	} `json:"interactive"`
}

type wireStatus struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	RecipientID string `json:"recipient_id"`
	Errors      []struct {
		Code  int    `json:"code"`
		Title string `json:"title"`
	} `json:"errors"`
}
