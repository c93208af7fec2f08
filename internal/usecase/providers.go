package usecase

import (
	"context"

	"chauffeur-backoffice/internal/provider/accounting"
	"chauffeur-backoffice/internal/provider/messaging"
	"chauffeur-backoffice/internal/provider/payments"
)

type MessageSender interface {
	Send(ctx context.Context, msg messaging.OutboundMessage) (*messaging.SendResult, error)
}

type AccountingProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*accounting.Token, error)
	Refresh(ctx context.Context, refreshToken string) (*accounting.Token, error)
	Revoke(ctx context.Context, refreshToken string) error
	Connections(ctx context.Context, accessToken string) ([]accounting.Tenant, error)
	CreateInvoice(ctx context.Context, creds accounting.Credentials, req accounting.InvoiceRequest) (*accounting.Invoice, error)
	GetInvoice(ctx context.Context, creds accounting.Credentials, invoiceID string) (*accounting.Invoice, error)
	OnlineInvoiceURL(ctx context.Context, creds accounting.Credentials, invoiceID string) (string, error)
}

type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, req payments.CheckoutRequest) (*payments.CheckoutSession, error)
	CreateAccount(ctx context.Context, req payments.AccountRequest) (*payments.Account, error)
	GetAccount(ctx context.Context, accountID string) (*payments.Account, error)
	CreateOnboardingLink(ctx context.Context, accountID string) (*payments.OnboardingLink, error)
	CreatePaymentLink(ctx context.Context, req payments.LinkRequest) (*payments.Link, error)
	DeactivatePaymentLink(ctx context.Context, linkID string) error
}

// Providers bundles the external boundaries the services call out to.
type Providers struct {
	Messaging  MessageSender
	Accounting AccountingProvider
	Payments   PaymentGateway
}
