package adaptor

import (
	"encoding/json"
	"errors"
	"net/http"

	"chauffeur-backoffice/internal/usecase"
	"chauffeur-backoffice/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxBodyBytes bounds JSON and webhook payloads.
const maxBodyBytes = 1 << 20

type Handler struct {
	Booking    *BookingHandler
	Driver     *DriverHandler
	Message    *MessageHandler
	Invoice    *InvoiceHandler
	Payment    *PaymentHandler
	Accounting *AccountingHandler
	Webhook    *WebhookHandler
}

func NewHandler(service *usecase.Service, verifier SubscriptionVerifier, config *utils.Config, log *zap.Logger) *Handler {
	return &Handler{
		Booking:    NewBookingHandler(service.Booking, log),
		Driver:     NewDriverHandler(service.Driver, log),
		Message:    NewMessageHandler(service.Messaging, log),
		Invoice:    NewInvoiceHandler(service.Invoice, log),
		Payment:    NewPaymentHandler(service.Payment, log),
		Accounting: NewAccountingHandler(service.Accounting, log),
		Webhook:    NewWebhookHandler(service.Reconcile, service.Messaging, verifier, config, log),
	}
}

// tenantFrom resolves the caller's tenant and writes the error response
// when it cannot.
func tenantFrom(w http.ResponseWriter, r *http.Request) (usecase.Tenant, bool) {
	tenant, err := usecase.ResolveTenant(r.Context())
	switch {
	case err == nil:
		return tenant, true
	case errors.Is(err, usecase.ErrNoTenant):
		utils.ResponseForbidden(w, "Select an organization to continue")
	default:
		utils.ResponseUnauthorized(w, "Authentication required")
	}
	return usecase.Tenant{}, false
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return false
	}
	return true
}

func decodeBytes(w http.ResponseWriter, body []byte, dst any) bool {
	if err := json.Unmarshal(body, dst); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid "+name, nil)
		return uuid.Nil, false
	}
	return id, true
}

// handleServiceError maps usecase errors onto the response envelope.
func handleServiceError(w http.ResponseWriter, log *zap.Logger, err error, operation string) {
	warn := func(reason string) {
		log.Warn(operation+" failed - "+reason,
			zap.Error(err),
			zap.String("operation", operation))
	}

	var countErr *usecase.CountError

	switch {
	case errors.Is(err, usecase.ErrUnauthenticated):
		warn("unauthenticated")
		utils.ResponseUnauthorized(w, err.Error())

	case errors.Is(err, usecase.ErrNoTenant),
		errors.Is(err, usecase.ErrStateMismatch):
		warn("forbidden")
		utils.ResponseForbidden(w, err.Error())

	case errors.As(err, &countErr):
		warn("batch precondition")
		details := map[string]int{"count": countErr.Count}
		if errors.Is(err, usecase.ErrAlreadyInvoiced) {
			utils.ResponseConflict(w, err.Error(), details)
			return
		}
		utils.ResponseBadRequest(w, err.Error(), details)

	case errors.Is(err, usecase.ErrValidation),
		errors.Is(err, usecase.ErrStateNotFound),
		errors.Is(err, usecase.ErrStateExpired):
		warn("validation")
		utils.ResponseBadRequest(w, err.Error(), nil)

	case errors.Is(err, usecase.ErrBookingNotFound),
		errors.Is(err, usecase.ErrDriverNotFound),
		errors.Is(err, usecase.ErrMessageNotFound),
		errors.Is(err, usecase.ErrInvoiceNotFound),
		errors.Is(err, usecase.ErrPaymentLinkNotFound),
		errors.Is(err, usecase.ErrNoValidBookings):
		warn("not found")
		utils.ResponseNotFound(w, err.Error())

	case errors.Is(err, usecase.ErrInvalidTransition),
		errors.Is(err, usecase.ErrStateUsed),
		errors.Is(err, usecase.ErrNotConnected),
		errors.Is(err, usecase.ErrReauthRequired),
		errors.Is(err, usecase.ErrConcurrentUpdate),
		errors.Is(err, usecase.ErrPaymentAccountMissing),
		errors.Is(err, usecase.ErrPaymentAccountNotReady):
		warn("conflict")
		utils.ResponseConflict(w, err.Error(), nil)

	case errors.Is(err, usecase.ErrProvider):
		warn("provider")
		utils.ResponseBadGateway(w, "An external provider rejected the request, please retry")

	default:
		log.Error("Failed to "+operation,
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseInternalError(w, "Internal server error")
	}
}
