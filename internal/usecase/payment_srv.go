package usecase

import (
	"context"
	"fmt"
	"time"

	"chauffeur-backoffice/internal/data/entity"
	"chauffeur-backoffice/internal/data/repository"
	"chauffeur-backoffice/internal/dto/request"
	"chauffeur-backoffice/internal/dto/response"
	"chauffeur-backoffice/internal/provider/payments"
	"chauffeur-backoffice/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type PaymentService interface {
	// CreateCheckoutSession opens a hosted checkout for the booking price and
	// marks the booking PROCESSING until a webhook settles it.
	CreateCheckoutSession(ctx context.Context, tenant Tenant, bookingID uuid.UUID, req *request.CreateCheckoutRequest) (*response.CheckoutSessionResponse, error)
	ListPayments(ctx context.Context, tenant Tenant, bookingID uuid.UUID) ([]response.PaymentResponse, error)

	CreatePaymentLink(ctx context.Context, tenant Tenant, bookingID uuid.UUID) (*response.PaymentLinkResponse, error)
	ListPaymentLinks(ctx context.Context, tenant Tenant, bookingID uuid.UUID) ([]response.PaymentLinkResponse, error)
	DeactivatePaymentLink(ctx context.Context, tenant Tenant, linkID uuid.UUID) (*response.PaymentLinkResponse, error)

	// CreateOnboardingLink creates the tenant's connected account on first
	// use and returns a hosted onboarding URL.
	CreateOnboardingLink(ctx context.Context, tenant Tenant, req *request.CreateOnboardingLinkRequest) (*response.OnboardingLinkResponse, error)
	RefreshAccountStatus(ctx context.Context, tenant Tenant) (*response.PaymentAccountResponse, error)
}

type paymentService struct {
	repo   *repository.Repository
	gw     PaymentGateway
	feeBps int64
	log    *zap.Logger
	now    func() time.Time
}

func NewPaymentService(repo *repository.Repository, gw PaymentGateway, config utils.StripeConfig, log *zap.Logger) PaymentService {
	return &paymentService{
		repo:   repo,
		gw:     gw,
		feeBps: config.PlatformFeeBps,
		log:    log.With(zap.String("service", "payment")),
		now:    time.Now,
	}
}

func (s *paymentService) applicationFee(amount int64) int64 {
	return amount * s.feeBps / 10000
}

// readyAccount returns the tenant's connected account if it can take charges.
func (s *paymentService) readyAccount(ctx context.Context, tenantID uuid.UUID) (*entity.PaymentAccount, error) {
	account, err := s.repo.PaymentAccount.FindByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("find payment account: %w", err)
	}
	if account == nil {
		return nil, ErrPaymentAccountMissing
	}
	if !account.ChargesEnabled {
		return nil, ErrPaymentAccountNotReady
	}
	return account, nil
}

func (s *paymentService) payableBooking(ctx context.Context, tenant Tenant, bookingID uuid.UUID) (*entity.Booking, error) {
	booking, err := s.repo.Booking.FindByID(ctx, tenant.ID, bookingID)
	if err != nil {
		return nil, fmt.Errorf("find booking: %w", err)
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}

	switch {
	case booking.Status == entity.BookingStatusCancelled:
		return nil, validationError("cancelled bookings cannot be paid")
	case settledPayment(booking.PaymentStatus):
		return nil, validationError(fmt.Sprintf("booking payment is already %s", booking.PaymentStatus))
	case booking.Price <= 0:
		return nil, validationError("booking has no price to collect")
	}
	return booking, nil
}

func (s *paymentService) CreateCheckoutSession(ctx context.Context, tenant Tenant, bookingID uuid.UUID, req *request.CreateCheckoutRequest) (*response.CheckoutSessionResponse, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError(utils.FormatValidationErrors(errs))
	}

	account, err := s.readyAccount(ctx, tenant.ID)
	if err != nil {
		return nil, err
	}
	booking, err := s.payableBooking(ctx, tenant, bookingID)
	if err != nil {
		return nil, err
	}

	email := req.CustomerEmail
	if email == nil {
		email = booking.CustomerEmail
	}
	source := entity.PaymentSource(req.Source)
	if source == "" {
		source = entity.PaymentSourceWidget
	}

	now := s.now()
	payment := &entity.Payment{
		TenantBase: entity.TenantBase{
			ID:        uuid.New(),
			TenantID:  tenant.ID,
			CreatedAt: now,
			UpdatedAt: now,
		},
		BookingID:     booking.ID,
		Amount:        booking.Price,
		Currency:      booking.Currency,
		Status:        entity.PaymentStatusPending,
		CustomerEmail: email,
		Source:        source,
	}
	if err := s.repo.Payment.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	checkout := payments.CheckoutRequest{
		BookingID:          booking.ID.String(),
		Reference:          booking.Reference,
		Description:        fmt.Sprintf("%s: %s to %s", booking.Reference, booking.Pickup, booking.Dropoff),
		Amount:             booking.Price,
		Currency:           booking.Currency,
		DestinationAccount: account.ProviderAccountID,
		ApplicationFee:     s.applicationFee(booking.Price),
	}
	if email != nil {
		checkout.CustomerEmail = *email
	}

	session, err := s.gw.CreateCheckoutSession(ctx, checkout)
	if err != nil {
		s.log.Warn("Checkout session creation failed",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
		)
		code, msg := "provider_error", err.Error()
		payment.Status = entity.PaymentStatusFailed
		payment.FailureCode = &code
		payment.FailureMessage = &msg
		payment.UpdatedAt = s.now()
		if _, uerr := s.repo.Payment.Update(ctx, payment, entity.PaymentStatusPending); uerr != nil {
			s.log.Error("Failed to record checkout failure", zap.Error(uerr), zap.String("payment_id", payment.ID.String()))
		}
		return nil, providerError("create checkout session", err)
	}

	payment.CheckoutSessionID = &session.ID
	payment.UpdatedAt = s.now()
	bound, err := s.repo.Payment.Update(ctx, payment, entity.PaymentStatusPending)
	if err != nil {
		return nil, fmt.Errorf("bind checkout session: %w", err)
	}
	if !bound {
		s.log.Warn("Payment changed before its checkout session was bound",
			zap.String("payment_id", payment.ID.String()),
			zap.String("session_id", session.ID),
		)
		return nil, fmt.Errorf("bind checkout session: %w", ErrConcurrentUpdate)
	}

	_, marked, err := mutateBooking(ctx, s.repo.Booking, booking, s.now, func(b *entity.Booking) bool {
		// a webhook that settled the booking first wins
		if settledPayment(b.PaymentStatus) {
			return false
		}
		b.PaymentStatus = entity.BookingPaymentProcessing
		b.PaymentSessionID = &session.ID
		b.Notes = appendNote(removeMarker(b.Notes, PendingPaymentMarker),
			fmt.Sprintf("%s checkout %s for %s", PendingPaymentMarker, session.ID, formatAmount(b.Price, b.Currency)))
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("mark booking processing: %w", err)
	}
	if !marked {
		s.log.Warn("Booking payment status changed during checkout",
			zap.String("booking_id", booking.ID.String()),
			zap.String("session_id", session.ID),
		)
	}

	s.log.Info("Checkout session created",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("booking_id", booking.ID.String()),
		zap.String("session_id", session.ID),
	)

	return &response.CheckoutSessionResponse{
		Payment:   response.PaymentToResponse(payment),
		URL:       session.URL,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

func (s *paymentService) ListPayments(ctx context.Context, tenant Tenant, bookingID uuid.UUID) ([]response.PaymentResponse, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}

	list, err := s.repo.Payment.FindByBooking(ctx, tenant.ID, bookingID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}

	out := make([]response.PaymentResponse, 0, len(list))
	for _, p := range list {
		out = append(out, response.PaymentToResponse(p))
	}
	return out, nil
}

func (s *paymentService) CreatePaymentLink(ctx context.Context, tenant Tenant, bookingID uuid.UUID) (*response.PaymentLinkResponse, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}

	account, err := s.readyAccount(ctx, tenant.ID)
	if err != nil {
		return nil, err
	}
	booking, err := s.payableBooking(ctx, tenant, bookingID)
	if err != nil {
		return nil, err
	}

	remote, err := s.gw.CreatePaymentLink(ctx, payments.LinkRequest{
		BookingID:          booking.ID.String(),
		Description:        fmt.Sprintf("%s: %s to %s", booking.Reference, booking.Pickup, booking.Dropoff),
		Amount:             booking.Price,
		Currency:           booking.Currency,
		DestinationAccount: account.ProviderAccountID,
		ApplicationFee:     s.applicationFee(booking.Price),
	})
	if err != nil {
		s.log.Warn("Payment link creation failed", zap.Error(err), zap.String("booking_id", booking.ID.String()))
		return nil, providerError("create payment link", err)
	}

	now := s.now()
	link := &entity.PaymentLink{
		TenantBase: entity.TenantBase{
			ID:        uuid.New(),
			TenantID:  tenant.ID,
			CreatedAt: now,
			UpdatedAt: now,
		},
		BookingID:      booking.ID,
		ProviderLinkID: remote.ID,
		URL:            remote.URL,
		Amount:         booking.Price,
		Currency:       booking.Currency,
		Active:         remote.Active,
	}
	if err := s.repo.PaymentLink.Create(ctx, link); err != nil {
		return nil, fmt.Errorf("store payment link: %w", err)
	}

	resp := response.PaymentLinkToResponse(link)
	return &resp, nil
}

func (s *paymentService) ListPaymentLinks(ctx context.Context, tenant Tenant, bookingID uuid.UUID) ([]response.PaymentLinkResponse, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}

	links, err := s.repo.PaymentLink.FindByBooking(ctx, tenant.ID, bookingID)
	if err != nil {
		return nil, fmt.Errorf("list payment links: %w", err)
	}

	out := make([]response.PaymentLinkResponse, 0, len(links))
	for _, l := range links {
		out = append(out, response.PaymentLinkToResponse(l))
	}
	return out, nil
}

func (s *paymentService) DeactivatePaymentLink(ctx context.Context, tenant Tenant, linkID uuid.UUID) (*response.PaymentLinkResponse, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}

	link, err := s.repo.PaymentLink.FindByID(ctx, tenant.ID, linkID)
	if err != nil {
		return nil, fmt.Errorf("find payment link: %w", err)
	}
	if link == nil {
		return nil, ErrPaymentLinkNotFound
	}

	if link.Active {
		if err := s.gw.DeactivatePaymentLink(ctx, link.ProviderLinkID); err != nil {
			s.log.Warn("Payment link deactivation failed", zap.Error(err), zap.String("link_id", link.ID.String()))
			return nil, providerError("deactivate payment link", err)
		}

		now := s.now()
		if err := s.repo.PaymentLink.Deactivate(ctx, tenant.ID, link.ID, now); err != nil {
			return nil, fmt.Errorf("deactivate payment link: %w", err)
		}
		link.Active = false
		link.UpdatedAt = now
	}

	resp := response.PaymentLinkToResponse(link)
	return &resp, nil
}

func (s *paymentService) CreateOnboardingLink(ctx context.Context, tenant Tenant, req *request.CreateOnboardingLinkRequest) (*response.OnboardingLinkResponse, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError(utils.FormatValidationErrors(errs))
	}

	account, err := s.repo.PaymentAccount.FindByTenant(ctx, tenant.ID)
	if err != nil {
		return nil, fmt.Errorf("find payment account: %w", err)
	}

	if account == nil {
		remote, err := s.gw.CreateAccount(ctx, payments.AccountRequest{TenantID: tenant.ID.String(), Email: req.Email})
		if err != nil {
			s.log.Warn("Connected account creation failed", zap.Error(err), zap.String("tenant_id", tenant.ID.String()))
			return nil, providerError("create connected account", err)
		}

		now := s.now()
		account = &entity.PaymentAccount{
			TenantBase: entity.TenantBase{
				ID:        uuid.New(),
				TenantID:  tenant.ID,
				CreatedAt: now,
				UpdatedAt: now,
			},
			ProviderAccountID: remote.ID,
		}
		if err := applyAccountState(ctx, s.repo, account, remote, now); err != nil {
			return nil, err
		}

		s.log.Info("Connected account created",
			zap.String("tenant_id", tenant.ID.String()),
			zap.String("account_id", remote.ID),
		)
	}

	link, err := s.gw.CreateOnboardingLink(ctx, account.ProviderAccountID)
	if err != nil {
		s.log.Warn("Onboarding link creation failed", zap.Error(err), zap.String("account_id", account.ProviderAccountID))
		return nil, providerError("create onboarding link", err)
	}

	return &response.OnboardingLinkResponse{
		Account:   response.PaymentAccountToResponse(account),
		URL:       link.URL,
		ExpiresAt: link.ExpiresAt,
	}, nil
}

func (s *paymentService) RefreshAccountStatus(ctx context.Context, tenant Tenant) (*response.PaymentAccountResponse, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}

	account, err := s.repo.PaymentAccount.FindByTenant(ctx, tenant.ID)
	if err != nil {
		return nil, fmt.Errorf("find payment account: %w", err)
	}
	if account == nil {
		return nil, ErrPaymentAccountMissing
	}

	remote, err := s.gw.GetAccount(ctx, account.ProviderAccountID)
	if err != nil {
		s.log.Warn("Connected account lookup failed", zap.Error(err), zap.String("account_id", account.ProviderAccountID))
		return nil, providerError("get connected account", err)
	}

	if err := applyAccountState(ctx, s.repo, account, remote, s.now()); err != nil {
		return nil, err
	}

	resp := response.PaymentAccountToResponse(account)
	return &resp, nil
}

// applyAccountState stores the provider capability flags on the account and
// mirrors the onboarding-complete flag onto the organization.
func applyAccountState(ctx context.Context, repo *repository.Repository, account *entity.PaymentAccount, remote *payments.Account, now time.Time) error {
	account.ChargesEnabled = remote.ChargesEnabled
	account.PayoutsEnabled = remote.PayoutsEnabled
	account.DetailsSubmitted = remote.DetailsSubmitted
	account.Requirements = remote.CurrentlyDue
	account.Status = entity.DerivePaymentAccountStatus(remote.ChargesEnabled, remote.DetailsSubmitted)
	account.UpdatedAt = now

	if err := repo.PaymentAccount.Save(ctx, account); err != nil {
		return fmt.Errorf("save payment account: %w", err)
	}

	onboarded := account.Status == entity.PaymentAccountActive
	if err := repo.Organization.SetPaymentsOnboarded(ctx, account.TenantID, onboarded, now); err != nil {
		return fmt.Errorf("mirror onboarding state: %w", err)
	}
	return nil
}
