package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chauffeur-backoffice/internal/data/entity"
	"chauffeur-backoffice/internal/data/repository"
	"chauffeur-backoffice/internal/dto/request"
	"chauffeur-backoffice/internal/dto/response"
	"chauffeur-backoffice/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BookingService interface {
	CreateBooking(ctx context.Context, tenant Tenant, req *request.CreateBookingRequest) (*response.BookingResponse, error)
	GetBooking(ctx context.Context, tenant Tenant, bookingID uuid.UUID) (*response.BookingResponse, error)
	ListBookings(ctx context.Context, tenant Tenant, req *request.ListBookingsRequest) (*response.PaginatedResponse[response.BookingResponse], error)

	// AssignDriver commits the assignment, then dispatches the driver as a
	// best-effort side effect.
	AssignDriver(ctx context.Context, tenant Tenant, bookingID uuid.UUID, req *request.AssignDriverRequest) (*response.BookingActionResponse, error)
	TransitionStatus(ctx context.Context, tenant Tenant, bookingID uuid.UUID, req *request.TransitionStatusRequest) (*response.BookingActionResponse, error)
}

type bookingService struct {
	repo      *repository.Repository
	messaging MessagingService
	currency  string
	log       *zap.Logger
	now       func() time.Time
}

func NewBookingService(repo *repository.Repository, messaging MessagingService, config *utils.Config, log *zap.Logger) BookingService {
	return &bookingService{
		repo:      repo,
		messaging: messaging,
		currency:  config.Stripe.Currency,
		log:       log.With(zap.String("service", "booking")),
		now:       time.Now,
	}
}

func (s *bookingService) CreateBooking(ctx context.Context, tenant Tenant, req *request.CreateBookingRequest) (*response.BookingResponse, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create booking validation failed", zap.Any("errors", errs))
		return nil, validationError(utils.FormatValidationErrors(errs))
	}

	currency := strings.ToLower(req.Currency)
	if currency == "" {
		currency = s.currency
	}

	now := s.now()
	booking := &entity.Booking{
		TenantBase: entity.TenantBase{
			ID:        uuid.New(),
			TenantID:  tenant.ID,
			CreatedAt: now,
			UpdatedAt: now,
		},
		Reference:     utils.GenerateBookingReference(now),
		CustomerName:  req.CustomerName,
		CustomerPhone: utils.NormalizePhone(req.CustomerPhone),
		CustomerEmail: req.CustomerEmail,
		Pickup:        req.Pickup,
		Dropoff:       req.Dropoff,
		ScheduledAt:   req.ScheduledAt,
		Price:         req.Price,
		Currency:      currency,
		Status:        entity.BookingStatusPending,
		PaymentStatus: entity.BookingPaymentPending,
		Notes:         req.Notes,
	}

	if err := s.repo.Booking.Create(ctx, booking); err != nil {
		s.log.Error("Failed to create booking",
			zap.Error(err),
			zap.String("tenant_id", tenant.ID.String()),
		)
		return nil, fmt.Errorf("create booking: %w", err)
	}

	s.log.Info("Booking created",
		zap.String("booking_id", booking.ID.String()),
		zap.String("reference", booking.Reference),
	)

	resp := response.BookingToResponse(booking)
	return &resp, nil
}

func (s *bookingService) GetBooking(ctx context.Context, tenant Tenant, bookingID uuid.UUID) (*response.BookingResponse, error) {
	booking, err := s.load(ctx, tenant, bookingID)
	if err != nil {
		return nil, err
	}

	resp := response.BookingToResponse(booking)
	return &resp, nil
}

func (s *bookingService) ListBookings(ctx context.Context, tenant Tenant, req *request.ListBookingsRequest) (*response.PaginatedResponse[response.BookingResponse], error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError(utils.FormatValidationErrors(errs))
	}

	var filter repository.BookingFilter
	if req.Status != "" {
		status := entity.BookingStatus(req.Status)
		filter.Status = &status
	}

	bookings, err := s.repo.Booking.FindByTenant(ctx, tenant.ID, filter, req.Limit(), req.Offset())
	if err != nil {
		s.log.Error("Failed to list bookings", zap.Error(err), zap.String("tenant_id", tenant.ID.String()))
		return nil, fmt.Errorf("list bookings: %w", err)
	}

	total, err := s.repo.Booking.CountByTenant(ctx, tenant.ID, filter)
	if err != nil {
		return nil, fmt.Errorf("count bookings: %w", err)
	}

	data := make([]response.BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		data = append(data, response.BookingToResponse(b))
	}

	return response.NewPaginatedResponse(data, req.Page, req.Limit(), total), nil
}

func (s *bookingService) AssignDriver(ctx context.Context, tenant Tenant, bookingID uuid.UUID, req *request.AssignDriverRequest) (*response.BookingActionResponse, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError(utils.FormatValidationErrors(errs))
	}

	booking, err := s.load(ctx, tenant, bookingID)
	if err != nil {
		return nil, err
	}

	reassign := booking.Status == entity.BookingStatusAssigned
	if !reassign && !booking.Status.CanTransitionTo(entity.BookingStatusAssigned) {
		return nil, fmt.Errorf("%w: cannot assign a driver to a %s booking", ErrInvalidTransition, booking.Status)
	}

	driverID := uuid.MustParse(req.DriverID)
	driver, err := s.repo.Driver.FindByID(ctx, tenant.ID, driverID)
	if err != nil {
		return nil, fmt.Errorf("find driver %s: %w", req.DriverID, err)
	}
	if driver == nil {
		return nil, ErrDriverNotFound
	}
	if driver.Status != entity.DriverStatusActive {
		return nil, validationError("driver is not active")
	}

	previous := booking.DriverID
	var invalid error
	booking, _, err = mutateBooking(ctx, s.repo.Booking, booking, s.now, func(b *entity.Booking) bool {
		if b.Status != entity.BookingStatusAssigned && !b.Status.CanTransitionTo(entity.BookingStatusAssigned) {
			invalid = fmt.Errorf("%w: cannot assign a driver to a %s booking", ErrInvalidTransition, b.Status)
			return false
		}
		previous = b.DriverID
		b.DriverID = &driver.ID
		b.Status = entity.BookingStatusAssigned
		b.DriverNotified = false
		b.DriverAccepted = false
		b.DriverAcceptedAt = nil
		return true
	})
	if err != nil {
		s.log.Error("Failed to assign driver",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
			zap.String("driver_id", driver.ID.String()),
		)
		return nil, fmt.Errorf("assign driver: %w", err)
	}
	if invalid != nil {
		return nil, invalid
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}

	var effects []SideEffect
	if previous != nil && *previous != driver.ID {
		effects = append(effects, s.syncConversation(ctx, tenant, booking))
	}
	if !req.SkipNotification {
		effects = append(effects, s.messaging.Notify(ctx, tenant, EventDriverDispatched, booking, driver))
	}

	return &response.BookingActionResponse{
		Booking:     response.BookingToResponse(booking),
		SideEffects: sideEffectsToResponse(effects),
	}, nil
}

func (s *bookingService) TransitionStatus(ctx context.Context, tenant Tenant, bookingID uuid.UUID, req *request.TransitionStatusRequest) (*response.BookingActionResponse, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError(utils.FormatValidationErrors(errs))
	}

	booking, err := s.load(ctx, tenant, bookingID)
	if err != nil {
		return nil, err
	}

	next := entity.BookingStatus(req.Status)
	if !booking.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, booking.Status, next)
	}
	if next == entity.BookingStatusAssigned && booking.DriverID == nil {
		return nil, validationError("assign a driver to move a booking to ASSIGNED")
	}

	now := s.now()
	var invalid error
	booking, _, err = mutateBooking(ctx, s.repo.Booking, booking, s.now, func(b *entity.Booking) bool {
		if !b.Status.CanTransitionTo(next) {
			invalid = fmt.Errorf("%w: %s to %s", ErrInvalidTransition, b.Status, next)
			return false
		}
		if next == entity.BookingStatusAssigned && b.DriverID == nil {
			invalid = validationError("assign a driver to move a booking to ASSIGNED")
			return false
		}
		if next == entity.BookingStatusPending {
			b.DriverID = nil
			b.DriverNotified = false
			b.DriverAccepted = false
			b.DriverAcceptedAt = nil
		}
		if next == entity.BookingStatusCancelled && req.Reason != "" {
			b.Notes = appendNote(b.Notes, fmt.Sprintf("[CANCELLED %s] %s", now.Format(time.DateOnly), req.Reason))
		}
		b.Status = next
		return true
	})
	if err != nil {
		s.log.Error("Failed to transition booking",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
			zap.String("status", string(next)),
		)
		return nil, fmt.Errorf("transition booking: %w", err)
	}
	if invalid != nil {
		return nil, invalid
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}

	s.log.Info("Booking status changed",
		zap.String("booking_id", booking.ID.String()),
		zap.String("status", string(next)),
	)

	var effects []SideEffect
	switch next {
	case entity.BookingStatusConfirmed:
		effects = append(effects, s.messaging.Notify(ctx, tenant, EventBookingConfirmed, booking, nil))
	case entity.BookingStatusPending,
		entity.BookingStatusInProgress,
		entity.BookingStatusCompleted,
		entity.BookingStatusCancelled:
		effects = append(effects, s.syncConversation(ctx, tenant, booking))
	}

	return &response.BookingActionResponse{
		Booking:     response.BookingToResponse(booking),
		SideEffects: sideEffectsToResponse(effects),
	}, nil
}

func (s *bookingService) syncConversation(ctx context.Context, tenant Tenant, booking *entity.Booking) SideEffect {
	effect := SideEffect{Name: "conversation_sync", Success: true}
	if err := s.messaging.SyncConversation(ctx, tenant, booking); err != nil {
		s.log.Warn("Conversation sync failed", zap.Error(err), zap.String("booking_id", booking.ID.String()))
		effect.Success = false
		effect.Error = err.Error()
	}
	return effect
}

func (s *bookingService) load(ctx context.Context, tenant Tenant, bookingID uuid.UUID) (*entity.Booking, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}

	booking, err := s.repo.Booking.FindByID(ctx, tenant.ID, bookingID)
	if err != nil {
		s.log.Error("Failed to find booking", zap.Error(err), zap.String("booking_id", bookingID.String()))
		return nil, fmt.Errorf("find booking %s: %w", bookingID.String(), err)
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}
	return booking, nil
}
