package adaptor

import (
	"errors"
	"io"
	"net/http"

	"chauffeur-backoffice/internal/provider/messaging"
	"chauffeur-backoffice/internal/provider/payments"
	"chauffeur-backoffice/internal/usecase"
	"chauffeur-backoffice/pkg/utils"

	"go.uber.org/zap"
)

// SubscriptionVerifier answers the messaging provider's registration handshake.
type SubscriptionVerifier interface {
	VerifySubscription(mode, token, challenge string) (string, bool)
}

// WebhookHandler serves the unauthenticated provider callbacks. Both
// endpoints verify a signature before touching state and answer 200 for
// anything they have deliberately chosen not to act on, so providers only
// retry real failures.
type WebhookHandler struct {
	reconcile     usecase.ReconcileService
	messaging     usecase.MessagingService
	verifier      SubscriptionVerifier
	stripeSecret  string
	messageSecret string
	log           *zap.Logger
}

func NewWebhookHandler(reconcile usecase.ReconcileService, messaging usecase.MessagingService, verifier SubscriptionVerifier, config *utils.Config, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		reconcile:     reconcile,
		messaging:     messaging,
		verifier:      verifier,
		stripeSecret:  config.Stripe.WebhookSecret,
		messageSecret: config.Messaging.AppSecret,
		log:           log.With(zap.String("handler", "webhook")),
	}
}

// deliverySummary is the body returned to the messaging provider.
type deliverySummary struct {
	Inbound  []usecase.Outcome `json:"inbound"`
	Statuses []usecase.Outcome `json:"statuses"`
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		utils.ResponseBadRequest(w, "Unreadable request body", nil)
		return nil, false
	}
	return body, true
}

// Payments handles POST /webhooks/payments
func (h *WebhookHandler) Payments(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	event, err := payments.ParseEvent(body, r.Header.Get("Stripe-Signature"), h.stripeSecret)
	if errors.Is(err, payments.ErrUnsupportedEvent) {
		utils.ResponseSuccess(w, "ignored", usecase.Outcome{Status: usecase.OutcomeIgnored, Detail: err.Error()})
		return
	}
	if err != nil {
		h.log.Warn("Rejected payments webhook", zap.Error(err))
		utils.ResponseBadRequest(w, "Invalid webhook payload or signature", nil)
		return
	}

	outcome, err := h.reconcile.HandleEvent(r.Context(), event)
	if err != nil {
		h.log.Error("Failed to apply payments webhook",
			zap.Error(err),
			zap.String("event_id", event.EventID()))
		utils.ResponseInternalError(w, "Internal server error")
		return
	}

	h.log.Info("Payments webhook applied",
		zap.String("event_id", event.EventID()),
		zap.String("outcome", string(outcome.Status)),
		zap.String("detail", outcome.Detail))
	utils.ResponseSuccess(w, string(outcome.Status), outcome)
}

// VerifyMessaging handles GET /webhooks/messaging
func (h *WebhookHandler) VerifyMessaging(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	challenge, ok := h.verifier.VerifySubscription(query.Get("hub.mode"), query.Get("hub.verify_token"), query.Get("hub.challenge"))
	if !ok {
		h.log.Warn("Messaging webhook verification rejected", zap.String("mode", query.Get("hub.mode")))
		utils.ResponseForbidden(w, "Verification failed")
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(challenge))
}

// Messaging handles POST /webhooks/messaging. Every entry is attempted; any
// failure, or a receipt that arrived ahead of its message, turns the whole
// delivery into a 500 so the provider retries it. Replayed entries are safe:
// inbound replies are only skipped once marked processed, and delivery
// statuses only move forward.
func (h *WebhookHandler) Messaging(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	if !messaging.VerifySignature(body, r.Header.Get("X-Hub-Signature-256"), h.messageSecret) {
		h.log.Warn("Messaging webhook signature mismatch")
		utils.ResponseUnauthorized(w, "Invalid signature")
		return
	}

	inbound, statuses, err := messaging.ParseWebhook(body)
	if err != nil {
		h.log.Warn("Rejected messaging webhook", zap.Error(err))
		utils.ResponseBadRequest(w, "Invalid webhook payload", nil)
		return
	}

	summary := deliverySummary{
		Inbound:  make([]usecase.Outcome, 0, len(inbound)),
		Statuses: make([]usecase.Outcome, 0, len(statuses)),
	}
	failed := false

	for _, msg := range inbound {
		result, err := h.messaging.HandleInbound(r.Context(), msg)
		if err != nil {
			failed = true
			h.log.Error("Failed to handle inbound message",
				zap.Error(err),
				zap.String("provider_message_id", msg.MessageID))
			continue
		}
		summary.Inbound = append(summary.Inbound, result.Outcome)
	}

	for _, update := range statuses {
		outcome, err := h.messaging.HandleStatus(r.Context(), update)
		if err != nil {
			failed = true
			h.log.Error("Failed to handle delivery status",
				zap.Error(err),
				zap.String("provider_message_id", update.MessageID))
			continue
		}
		if outcome.Status == usecase.OutcomeRetry {
			failed = true
			h.log.Info("Delivery status ahead of its message, asking for a retry",
				zap.String("provider_message_id", update.MessageID))
		}
		summary.Statuses = append(summary.Statuses, outcome)
	}

	if failed {
		utils.ResponseJSON(w, http.StatusInternalServerError, false, "Some entries could not be processed", summary, nil)
		return
	}
	utils.ResponseSuccess(w, "success", summary)
}
