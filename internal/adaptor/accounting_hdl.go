package adaptor

import (
	"net/http"

	"chauffeur-backoffice/internal/dto/request"
	"chauffeur-backoffice/internal/usecase"
	"chauffeur-backoffice/pkg/utils"

	"go.uber.org/zap"
)

type AccountingHandler struct {
	service usecase.AccountingService
	log     *zap.Logger
}

func NewAccountingHandler(service usecase.AccountingService, log *zap.Logger) *AccountingHandler {
	return &AccountingHandler{
		service: service,
		log:     log.With(zap.String("handler", "accounting")),
	}
}

// Authorize handles POST /api/accounting/connect and returns the consent URL
// the console should redirect to.
func (h *AccountingHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFrom(w, r)
	if !ok {
		return
	}

	auth, err := h.service.Authorize(r.Context(), tenant)
	if err != nil {
		handleServiceError(w, h.log, err, "authorize accounting")
		return
	}

	utils.ResponseSuccess(w, "success", auth)
}

// Callback handles POST /api/accounting/callback. The console relays the
// code and state it received on the redirect, with the caller's own token.
func (h *AccountingHandler) Callback(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFrom(w, r)
	if !ok {
		return
	}

	var req request.AccountingCallbackRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	status, err := h.service.Callback(r.Context(), tenant, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "complete accounting authorization")
		return
	}

	utils.ResponseSuccess(w, "success", status)
}

// Status handles GET /api/accounting/status
func (h *AccountingHandler) Status(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFrom(w, r)
	if !ok {
		return
	}

	status, err := h.service.Status(r.Context(), tenant)
	if err != nil {
		handleServiceError(w, h.log, err, "get accounting status")
		return
	}

	utils.ResponseSuccess(w, "success", status)
}

// Disconnect handles DELETE /api/accounting/connection
func (h *AccountingHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFrom(w, r)
	if !ok {
		return
	}

	if err := h.service.Disconnect(r.Context(), tenant); err != nil {
		handleServiceError(w, h.log, err, "disconnect accounting")
		return
	}

	utils.ResponseSuccess(w, "success", nil)
}
