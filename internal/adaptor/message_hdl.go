package adaptor

import (
	"net/http"

	"chauffeur-backoffice/internal/dto/request"
	"chauffeur-backoffice/internal/usecase"
	"chauffeur-backoffice/pkg/utils"

	"go.uber.org/zap"
)

type MessageHandler struct {
	service usecase.MessagingService
	log     *zap.Logger
}

func NewMessageHandler(service usecase.MessagingService, log *zap.Logger) *MessageHandler {
	return &MessageHandler{
		service: service,
		log:     log.With(zap.String("handler", "message")),
	}
}

// History handles GET /api/bookings/{id}/messages
func (h *MessageHandler) History(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFrom(w, r)
	if !ok {
		return
	}
	bookingID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	messages, err := h.service.History(r.Context(), tenant, bookingID)
	if err != nil {
		handleServiceError(w, h.log, err, "get message history")
		return
	}

	utils.ResponseSuccess(w, "success", messages)
}

// SendManual handles POST /api/bookings/{id}/messages. A delivery failure is
// recorded on the returned message rather than failing the request.
func (h *MessageHandler) SendManual(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFrom(w, r)
	if !ok {
		return
	}
	bookingID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req request.SendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	msg, err := h.service.SendManual(r.Context(), tenant, bookingID, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "send message")
		return
	}

	utils.ResponseCreated(w, "success", msg)
}

// Resend handles POST /api/messages/{id}/resend
func (h *MessageHandler) Resend(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFrom(w, r)
	if !ok {
		return
	}
	messageID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	msg, err := h.service.Resend(r.Context(), tenant, messageID)
	if err != nil {
		handleServiceError(w, h.log, err, "resend message")
		return
	}

	utils.ResponseCreated(w, "success", msg)
}
