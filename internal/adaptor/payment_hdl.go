package adaptor

import (
	"errors"
	"io"
	"net/http"

	"chauffeur-backoffice/internal/dto/request"
	"chauffeur-backoffice/internal/usecase"
	"chauffeur-backoffice/pkg/utils"

	"go.uber.org/zap"
)

type PaymentHandler struct {
	service usecase.PaymentService
	log     *zap.Logger
}

func NewPaymentHandler(service usecase.PaymentService, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		log:     log.With(zap.String("handler", "payment")),
	}
}

// decodeOptionalJSON accepts an empty body as the zero request.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.ContentLength == 0 {
		return true
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return false
	}
	if len(body) == 0 {
		return true
	}
	return decodeBytes(w, body, dst)
}

// CreateCheckoutSession handles POST /api/bookings/{id}/checkout
func (h *PaymentHandler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFrom(w, r)
	if !ok {
		return
	}
	bookingID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req request.CreateCheckoutRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}

	session, err := h.service.CreateCheckoutSession(r.Context(), tenant, bookingID, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "create checkout session")
		return
	}

	utils.ResponseCreated(w, "success", session)
}

// ListPayments handles GET /api/bookings/{id}/payments
func (h *PaymentHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFrom(w, r)
	if !ok {
		return
	}
	bookingID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	list, err := h.service.ListPayments(r.Context(), tenant, bookingID)
	if err != nil {
		handleServiceError(w, h.log, err, "list payments")
		return
	}

	utils.ResponseSuccess(w, "success", list)
}

// CreatePaymentLink handles POST /api/bookings/{id}/payment-links
func (h *PaymentHandler) CreatePaymentLink(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFrom(w, r)
	if !ok {
		return
	}
	bookingID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	link, err := h.service.CreatePaymentLink(r.Context(), tenant, bookingID)
	if err != nil {
		handleServiceError(w, h.log, err, "create payment link")
		return
	}

	utils.ResponseCreated(w, "success", link)
}

// ListPaymentLinks handles GET /api/bookings/{id}/payment-links
func (h *PaymentHandler) ListPaymentLinks(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFrom(w, r)
	if !ok {
		return
	}
	bookingID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	links, err := h.service.ListPaymentLinks(r.Context(), tenant, bookingID)
	if err != nil {
		handleServiceError(w, h.log, err, "list payment links")
		return
	}

	utils.ResponseSuccess(w, "success", links)
}

// DeactivatePaymentLink handles POST /api/payment-links/{id}/deactivate
func (h *PaymentHandler) DeactivatePaymentLink(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFrom(w, r)
	if !ok {
		return
	}
	linkID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	link, err := h.service.DeactivatePaymentLink(r.Context(), tenant, linkID)
	if err != nil {
		handleServiceError(w, h.log, err, "deactivate payment link")
		return
	}

	utils.ResponseSuccess(w, "success", link)
}

// CreateOnboardingLink handles POST /api/payments/onboarding
func (h *PaymentHandler) CreateOnboardingLink(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFrom(w, r)
	if !ok {
		return
	}

	var req request.CreateOnboardingLinkRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}

	link, err := h.service.CreateOnboardingLink(r.Context(), tenant, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "create onboarding link")
		return
	}

	utils.ResponseCreated(w, "success", link)
}

// RefreshAccountStatus handles POST /api/payments/account/refresh
func (h *PaymentHandler) RefreshAccountStatus(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFrom(w, r)
	if !ok {
		return
	}

	account, err := h.service.RefreshAccountStatus(r.Context(), tenant)
	if err != nil {
		if errors.Is(err, usecase.ErrPaymentAccountMissing) {
			utils.ResponseNotFound(w, err.Error())
			return
		}
		handleServiceError(w, h.log, err, "refresh payment account")
		return
	}

	utils.ResponseSuccess(w, "success", account)
}
