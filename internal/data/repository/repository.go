package repository

import (
	"chauffeur-backoffice/pkg/database"

	"go.uber.org/zap"
)

type Repository struct {
	Organization         OrganizationRepository
	Booking              BookingRepository
	Driver               DriverRepository
	Conversation         ConversationRepository
	Message              MessageRepository
	Invoice              InvoiceRepository
	Payment              PaymentRepository
	PaymentLink          PaymentLinkRepository
	PaymentAccount       PaymentAccountRepository
	AccountingConnection AccountingConnectionRepository
	OAuthState           OAuthStateRepository
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	return &Repository{
		Organization:         NewOrganizationRepository(db, log),
		Booking:              NewBookingRepository(db, log),
		Driver:               NewDriverRepository(db, log),
		Conversation:         NewConversationRepository(db, log),
		Message:              NewMessageRepository(db, log),
		Invoice:              NewInvoiceRepository(db, log),
		Payment:              NewPaymentRepository(db, log),
		PaymentLink:          NewPaymentLinkRepository(db, log),
		PaymentAccount:       NewPaymentAccountRepository(db, log),
		AccountingConnection: NewAccountingConnectionRepository(db, log),
		OAuthState:           NewOAuthStateRepository(db, log),
	}
}
