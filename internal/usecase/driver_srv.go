package usecase

import (
	"context"
	"fmt"
	"time"

	"chauffeur-backoffice/internal/data/entity"
	"chauffeur-backoffice/internal/data/repository"
	"chauffeur-backoffice/internal/dto/request"
	"chauffeur-backoffice/internal/dto/response"
	"chauffeur-backoffice/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type DriverService interface {
	CreateDriver(ctx context.Context, tenant Tenant, req *request.CreateDriverRequest) (*response.DriverResponse, error)
	ListDrivers(ctx context.Context, tenant Tenant) ([]response.DriverResponse, error)
}

type driverService struct {
	repo repository.DriverRepository
	log  *zap.Logger
	now  func() time.Time
}

func NewDriverService(repo repository.DriverRepository, log *zap.Logger) DriverService {
	return &driverService{
		repo: repo,
		log:  log.With(zap.String("service", "driver")),
		now:  time.Now,
	}
}

func (s *driverService) CreateDriver(ctx context.Context, tenant Tenant, req *request.CreateDriverRequest) (*response.DriverResponse, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError(utils.FormatValidationErrors(errs))
	}

	now := s.now()
	driver := &entity.Driver{
		TenantBase: entity.TenantBase{
			ID:        uuid.New(),
			TenantID:  tenant.ID,
			CreatedAt: now,
			UpdatedAt: now,
		},
		Name:           req.Name,
		Phone:          utils.NormalizePhone(req.Phone),
		Email:          req.Email,
		VehicleMake:    req.VehicleMake,
		VehicleModel:   req.VehicleModel,
		VehiclePlate:   req.VehiclePlate,
		Status:         entity.DriverStatusActive,
		MessagingOptIn: req.MessagingOptIn,
	}

	if err := s.repo.Create(ctx, driver); err != nil {
		s.log.Error("Failed to create driver", zap.Error(err), zap.String("tenant_id", tenant.ID.String()))
		return nil, fmt.Errorf("create driver: %w", err)
	}

	resp := response.DriverToResponse(driver)
	return &resp, nil
}

func (s *driverService) ListDrivers(ctx context.Context, tenant Tenant) ([]response.DriverResponse, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}

	drivers, err := s.repo.FindByTenant(ctx, tenant.ID)
	if err != nil {
		return nil, fmt.Errorf("list drivers: %w", err)
	}

	out := make([]response.DriverResponse, 0, len(drivers))
	for _, d := range drivers {
		out = append(out, response.DriverToResponse(d))
	}
	return out, nil
}
