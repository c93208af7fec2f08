package repository

import (
	"context"
	"errors"
	"fmt"

	"chauffeur-backoffice/internal/data/entity"
	"chauffeur-backoffice/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type DriverRepository interface {
	Create(ctx context.Context, driver *entity.Driver) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*entity.Driver, error)
	FindByTenant(ctx context.Context, tenantID uuid.UUID) ([]*entity.Driver, error)
	Update(ctx context.Context, driver *entity.Driver) error
}

const driverColumns = `id, tenant_id, name, phone, email, vehicle_make, vehicle_model, vehicle_plate,
	status, rating, messaging_opt_in, phone_verified, created_at, updated_at`

type driverRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewDriverRepository(db database.PgxIface, log *zap.Logger) DriverRepository {
	return &driverRepository{
		db:  db,
		log: log.With(zap.String("repository", "driver")),
	}
}

func scanDriver(row pgx.Row) (*entity.Driver, error) {
	var d entity.Driver
	err := row.Scan(
		&d.ID,
		&d.TenantID,
		&d.Name,
		&d.Phone,
		&d.Email,
		&d.VehicleMake,
		&d.VehicleModel,
		&d.VehiclePlate,
		&d.Status,
		&d.Rating,
		&d.MessagingOptIn,
		&d.PhoneVerified,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *driverRepository) Create(ctx context.Context, driver *entity.Driver) error {
	query := `
		INSERT INTO drivers (` + driverColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.db.Exec(ctx, query,
		driver.ID,
		driver.TenantID,
		driver.Name,
		driver.Phone,
		driver.Email,
		driver.VehicleMake,
		driver.VehicleModel,
		driver.VehiclePlate,
		driver.Status,
		driver.Rating,
		driver.MessagingOptIn,
		driver.PhoneVerified,
		driver.CreatedAt,
		driver.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create driver",
			zap.Error(err),
			zap.String("tenant_id", driver.TenantID.String()),
		)
		return fmt.Errorf("create driver %s: %w", driver.Name, err)
	}

	return nil
}

func (r *driverRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*entity.Driver, error) {
	query := `SELECT ` + driverColumns + ` FROM drivers WHERE id = $1 AND tenant_id = $2`

	driver, err := scanDriver(r.db.QueryRow(ctx, query, id, tenantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find driver by ID",
			zap.Error(err),
			zap.String("driver_id", id.String()),
		)
		return nil, fmt.Errorf("find driver by ID %s: %w", id.String(), err)
	}

	return driver, nil
}

func (r *driverRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID) ([]*entity.Driver, error) {
	query := `SELECT ` + driverColumns + ` FROM drivers WHERE tenant_id = $1 ORDER BY name`

	rows, err := r.db.Query(ctx, query, tenantID)
	if err != nil {
		r.log.Error("Failed to find drivers by tenant",
			zap.Error(err),
			zap.String("tenant_id", tenantID.String()),
		)
		return nil, fmt.Errorf("find drivers by tenant %s: %w", tenantID.String(), err)
	}
	defer rows.Close()

	var drivers []*entity.Driver
	for rows.Next() {
		driver, err := scanDriver(rows)
		if err != nil {
			r.log.Error("Failed to scan driver row", zap.Error(err))
			return nil, fmt.Errorf("scan driver row: %w", err)
		}
		drivers = append(drivers, driver)
	}

	return drivers, rows.Err()
}

func (r *driverRepository) Update(ctx context.Context, driver *entity.Driver) error {
	query := `
		UPDATE drivers
		SET name = $3, phone = $4, email = $5, vehicle_make = $6, vehicle_model = $7, vehicle_plate = $8,
		    status = $9, rating = $10, messaging_opt_in = $11, phone_verified = $12, updated_at = $13
		WHERE id = $1 AND tenant_id = $2
	`

	result, err := r.db.Exec(ctx, query,
		driver.ID,
		driver.TenantID,
		driver.Name,
		driver.Phone,
		driver.Email,
		driver.VehicleMake,
		driver.VehicleModel,
		driver.VehiclePlate,
		driver.Status,
		driver.Rating,
		driver.MessagingOptIn,
		driver.PhoneVerified,
		driver.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to update driver",
			zap.Error(err),
			zap.String("driver_id", driver.ID.String()),
		)
		return fmt.Errorf("update driver %s: %w", driver.ID.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("driver %s not found", driver.ID.String())
	}

	return nil
}
