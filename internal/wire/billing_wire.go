package wire

import (
	"chauffeur-backoffice/internal/adaptor"
	"chauffeur-backoffice/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Roles allowed to change the organization's payment or accounting setup.
var adminRoles = []string{"owner", "admin"}

func wireInvoice(r chi.Router, invoiceHandler *adaptor.InvoiceHandler) {
	r.Route("/api/invoices", func(r chi.Router) {
		r.Post("/", invoiceHandler.CreateInvoice)
		r.Get("/", invoiceHandler.ListInvoices)
		r.Get("/{id}", invoiceHandler.GetInvoice)
		r.Post("/{id}/sync", invoiceHandler.SyncInvoice)
	})
}

func wirePayment(r chi.Router, paymentHandler *adaptor.PaymentHandler, log *zap.Logger) {
	r.Post("/api/payment-links/{id}/deactivate", paymentHandler.DeactivatePaymentLink)

	r.Route("/api/payments", func(r chi.Router) {
		r.Use(middleware.RequireRole(log, adminRoles...))

		r.Post("/onboarding", paymentHandler.CreateOnboardingLink)
		r.Post("/account/refresh", paymentHandler.RefreshAccountStatus)
	})
}

func wireAccounting(r chi.Router, accountingHandler *adaptor.AccountingHandler, log *zap.Logger) {
	r.Route("/api/accounting", func(r chi.Router) {
		r.Get("/status", accountingHandler.Status)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(log, adminRoles...))

			r.Post("/connect", accountingHandler.Authorize)
			r.Post("/callback", accountingHandler.Callback)
			r.Delete("/connection", accountingHandler.Disconnect)
		})
	})
}

func wireWebhooks(r chi.Router, webhookHandler *adaptor.WebhookHandler) {
	r.Post("/webhooks/payments", webhookHandler.Payments)
	r.Get("/webhooks/messaging", webhookHandler.VerifyMessaging)
	r.Post("/webhooks/messaging", webhookHandler.Messaging)
}
