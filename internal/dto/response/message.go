package response

import (
	"time"

	"chauffeur-backoffice/internal/data/entity"
)

type MessageResponse struct {
	ID                string                  `json:"id"`
	BookingID         *string                 `json:"booking_id,omitempty"`
	Direction         entity.MessageDirection `json:"direction"`
	Recipient         string                  `json:"recipient"`
	Sender            string                  `json:"sender,omitempty"`
	Type              entity.MessageType      `json:"type"`
	Template          *string                 `json:"template,omitempty"`
	Body              string                  `json:"body"`
	ProviderMessageID *string                 `json:"provider_message_id,omitempty"`
	Status            entity.MessageStatus    `json:"status"`
	ErrorDetail       *string                 `json:"error_detail,omitempty"`
	CreatedAt         time.Time               `json:"created_at"`
	UpdatedAt         time.Time               `json:"updated_at"`
}

func MessageToResponse(m *entity.Message) MessageResponse {
	resp := MessageResponse{
		ID:                m.ID.String(),
		Direction:         m.Direction,
		Recipient:         m.Recipient,
		Sender:            m.Sender,
		Type:              m.Type,
		Template:          m.Template,
		Body:              m.Body,
		ProviderMessageID: m.ProviderMessageID,
		Status:            m.Status,
		ErrorDetail:       m.ErrorDetail,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
	if m.BookingID != nil {
		id := m.BookingID.String()
		resp.BookingID = &id
	}
	return resp
}
