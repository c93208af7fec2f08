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

// BookingFilter narrows tenant booking listings. A nil Status lists all.
type BookingFilter struct {
	Status *entity.BookingStatus
}

type BookingRepository interface {
	Create(ctx context.Context, booking *entity.Booking) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*entity.Booking, error)
	FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*entity.Booking, error)
	FindByPaymentSessionID(ctx context.Context, sessionID string) (*entity.Booking, error)
	FindByTenant(ctx context.Context, tenantID uuid.UUID, filter BookingFilter, limit, offset int) ([]*entity.Booking, error)
	CountByTenant(ctx context.Context, tenantID uuid.UUID, filter BookingFilter) (int64, error)
	// Update writes booking only if the stored version still matches
	// booking.Version, and bumps it. False means another writer got there first.
	Update(ctx context.Context, booking *entity.Booking) (bool, error)
}

const bookingColumns = `id, tenant_id, reference, customer_name, customer_phone, customer_email,
	pickup, dropoff, scheduled_at, price, currency, status, payment_status, driver_id,
	customer_notified, driver_notified, driver_accepted, driver_accepted_at,
	payment_session_id, notes, version, created_at, updated_at`

type bookingRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewBookingRepository(db database.PgxIface, log *zap.Logger) BookingRepository {
	return &bookingRepository{
		db:  db,
		log: log.With(zap.String("repository", "booking")),
	}
}

func scanBooking(row pgx.Row) (*entity.Booking, error) {
	var b entity.Booking
	err := row.Scan(
		&b.ID,
		&b.TenantID,
		&b.Reference,
		&b.CustomerName,
		&b.CustomerPhone,
		&b.CustomerEmail,
		&b.Pickup,
		&b.Dropoff,
		&b.ScheduledAt,
		&b.Price,
		&b.Currency,
		&b.Status,
		&b.PaymentStatus,
		&b.DriverID,
		&b.CustomerNotified,
		&b.DriverNotified,
		&b.DriverAccepted,
		&b.DriverAcceptedAt,
		&b.PaymentSessionID,
		&b.Notes,
		&b.Version,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *bookingRepository) Create(ctx context.Context, booking *entity.Booking) error {
	query := `
		INSERT INTO bookings (` + bookingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
	`

	_, err := r.db.Exec(ctx, query,
		booking.ID,
		booking.TenantID,
		booking.Reference,
		booking.CustomerName,
		booking.CustomerPhone,
		booking.CustomerEmail,
		booking.Pickup,
		booking.Dropoff,
		booking.ScheduledAt,
		booking.Price,
		booking.Currency,
		booking.Status,
		booking.PaymentStatus,
		booking.DriverID,
		booking.CustomerNotified,
		booking.DriverNotified,
		booking.DriverAccepted,
		booking.DriverAcceptedAt,
		booking.PaymentSessionID,
		booking.Notes,
		booking.Version,
		booking.CreatedAt,
		booking.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create booking",
			zap.Error(err),
			zap.String("reference", booking.Reference),
			zap.String("tenant_id", booking.TenantID.String()),
		)
		return fmt.Errorf("create booking %s: %w", booking.Reference, err)
	}

	return nil
}

func (r *bookingRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1 AND tenant_id = $2`

	booking, err := scanBooking(r.db.QueryRow(ctx, query, id, tenantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find booking by ID",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return nil, fmt.Errorf("find booking by ID %s: %w", id.String(), err)
	}

	return booking, nil
}

func (r *bookingRepository) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*entity.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE tenant_id = $1 AND id = ANY($2)
		ORDER BY scheduled_at, created_at
	`

	rows, err := r.db.Query(ctx, query, tenantID, ids)
	if err != nil {
		r.log.Error("Failed to find bookings by IDs",
			zap.Error(err),
			zap.String("tenant_id", tenantID.String()),
			zap.Int("count", len(ids)),
		)
		return nil, fmt.Errorf("find bookings by IDs: %w", err)
	}
	return r.collect(rows)
}

// FindByPaymentSessionID is used by webhooks, which carry no tenant context.
func (r *bookingRepository) FindByPaymentSessionID(ctx context.Context, sessionID string) (*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE payment_session_id = $1`

	booking, err := scanBooking(r.db.QueryRow(ctx, query, sessionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find booking by payment session",
			zap.Error(err),
			zap.String("session_id", sessionID),
		)
		return nil, fmt.Errorf("find booking by payment session %s: %w", sessionID, err)
	}

	return booking, nil
}

func (r *bookingRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID, filter BookingFilter, limit, offset int) ([]*entity.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE tenant_id = $1 AND ($2::text IS NULL OR status = $2)
		ORDER BY scheduled_at DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.db.Query(ctx, query, tenantID, filter.Status, limit, offset)
	if err != nil {
		r.log.Error("Failed to find bookings by tenant",
			zap.Error(err),
			zap.String("tenant_id", tenantID.String()),
			zap.Int("limit", limit),
			zap.Int("offset", offset),
		)
		return nil, fmt.Errorf("find bookings by tenant %s: %w", tenantID.String(), err)
	}
	return r.collect(rows)
}

func (r *bookingRepository) CountByTenant(ctx context.Context, tenantID uuid.UUID, filter BookingFilter) (int64, error) {
	query := `SELECT COUNT(*) FROM bookings WHERE tenant_id = $1 AND ($2::text IS NULL OR status = $2)`

	var count int64
	if err := r.db.QueryRow(ctx, query, tenantID, filter.Status).Scan(&count); err != nil {
		r.log.Error("Failed to count bookings by tenant",
			zap.Error(err),
			zap.String("tenant_id", tenantID.String()),
		)
		return 0, fmt.Errorf("count bookings by tenant %s: %w", tenantID.String(), err)
	}

	return count, nil
}

func (r *bookingRepository) Update(ctx context.Context, booking *entity.Booking) (bool, error) {
	query := `
		UPDATE bookings
		SET customer_name = $3, customer_phone = $4, customer_email = $5, pickup = $6, dropoff = $7,
		    scheduled_at = $8, price = $9, currency = $10, status = $11, payment_status = $12,
		    driver_id = $13, customer_notified = $14, driver_notified = $15, driver_accepted = $16,
		    driver_accepted_at = $17, payment_session_id = $18, notes = $19, updated_at = $20,
		    version = version + 1
		WHERE id = $1 AND tenant_id = $2 AND version = $21
	`

	result, err := r.db.Exec(ctx, query,
		booking.ID,
		booking.TenantID,
		booking.CustomerName,
		booking.CustomerPhone,
		booking.CustomerEmail,
		booking.Pickup,
		booking.Dropoff,
		booking.ScheduledAt,
		booking.Price,
		booking.Currency,
		booking.Status,
		booking.PaymentStatus,
		booking.DriverID,
		booking.CustomerNotified,
		booking.DriverNotified,
		booking.DriverAccepted,
		booking.DriverAcceptedAt,
		booking.PaymentSessionID,
		booking.Notes,
		booking.UpdatedAt,
		booking.Version,
	)
	if err != nil {
		r.log.Error("Failed to update booking",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
			zap.Int64("version", booking.Version),
		)
		return false, fmt.Errorf("update booking %s: %w", booking.ID.String(), err)
	}

	if result.RowsAffected() == 0 {
		return false, nil
	}
	booking.Version++
	return true, nil
}

func (r *bookingRepository) collect(rows pgx.Rows) ([]*entity.Booking, error) {
	defer rows.Close()

	var bookings []*entity.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			r.log.Error("Failed to scan booking row", zap.Error(err))
			return nil, fmt.Errorf("scan booking row: %w", err)
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate booking rows: %w", err)
	}

	return bookings, nil
}
