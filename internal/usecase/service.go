package usecase

import (
	"chauffeur-backoffice/internal/data/repository"
	"chauffeur-backoffice/pkg/utils"

	"go.uber.org/zap"
)

type Service struct {
	Booking    BookingService
	Driver     DriverService
	Messaging  MessagingService
	Invoice    InvoiceService
	Payment    PaymentService
	Reconcile  ReconcileService
	Accounting AccountingService
}

func NewService(repo *repository.Repository, providers Providers, config *utils.Config, log *zap.Logger) *Service {
	messaging := NewMessagingService(repo, providers.Messaging, config.Messaging, log)
	accounting := NewAccountingService(repo, providers.Accounting, config.Accounting, log)

	return &Service{
		Booking:    NewBookingService(repo, messaging, config, log),
		Driver:     NewDriverService(repo.Driver, log),
		Messaging:  messaging,
		Invoice:    NewInvoiceService(repo, providers.Accounting, accounting, config.Accounting, log),
		Payment:    NewPaymentService(repo, providers.Payments, config.Stripe, log),
		Reconcile:  NewReconcileService(repo, log),
		Accounting: accounting,
	}
}
