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

type PaymentRepository interface {
	Create(ctx context.Context, payment *entity.Payment) error
	FindByCheckoutSessionID(ctx context.Context, sessionID string) (*entity.Payment, error)
	FindByPaymentIntentID(ctx context.Context, intentID string) (*entity.Payment, error)
	FindByBooking(ctx context.Context, tenantID, bookingID uuid.UUID) ([]*entity.Payment, error)
	// Update is a compare-and-set on the previous status; the refunded
	// amount never decreases. It reports false when another writer moved
	// the payment first.
	Update(ctx context.Context, payment *entity.Payment, expected entity.PaymentStatus) (bool, error)
}

const paymentColumns = `id, tenant_id, booking_id, payment_intent_id, checkout_session_id, amount, currency,
	status, failure_code, failure_message, refunded_amount, customer_email, source, created_at, updated_at`

type paymentRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewPaymentRepository(db database.PgxIface, log *zap.Logger) PaymentRepository {
	return &paymentRepository{
		db:  db,
		log: log.With(zap.String("repository", "payment")),
	}
}

func scanPayment(row pgx.Row) (*entity.Payment, error) {
	var p entity.Payment
	err := row.Scan(
		&p.ID,
		&p.TenantID,
		&p.BookingID,
		&p.PaymentIntentID,
		&p.CheckoutSessionID,
		&p.Amount,
		&p.Currency,
		&p.Status,
		&p.FailureCode,
		&p.FailureMessage,
		&p.RefundedAmount,
		&p.CustomerEmail,
		&p.Source,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepository) Create(ctx context.Context, p *entity.Payment) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.db.Exec(ctx, query,
		p.ID,
		p.TenantID,
		p.BookingID,
		p.PaymentIntentID,
		p.CheckoutSessionID,
		p.Amount,
		p.Currency,
		p.Status,
		p.FailureCode,
		p.FailureMessage,
		p.RefundedAmount,
		p.CustomerEmail,
		p.Source,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create payment",
			zap.Error(err),
			zap.String("booking_id", p.BookingID.String()),
		)
		return fmt.Errorf("create payment for booking %s: %w", p.BookingID.String(), err)
	}

	return nil
}

func (r *paymentRepository) findOne(ctx context.Context, column, value string) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE ` + column + ` = $1 ORDER BY created_at DESC LIMIT 1`

	payment, err := scanPayment(r.db.QueryRow(ctx, query, value))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find payment",
			zap.Error(err),
			zap.String(column, value),
		)
		return nil, fmt.Errorf("find payment by %s %s: %w", column, value, err)
	}

	return payment, nil
}

func (r *paymentRepository) FindByCheckoutSessionID(ctx context.Context, sessionID string) (*entity.Payment, error) {
	return r.findOne(ctx, "checkout_session_id", sessionID)
}

func (r *paymentRepository) FindByPaymentIntentID(ctx context.Context, intentID string) (*entity.Payment, error) {
	return r.findOne(ctx, "payment_intent_id", intentID)
}

func (r *paymentRepository) FindByBooking(ctx context.Context, tenantID, bookingID uuid.UUID) ([]*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE tenant_id = $1 AND booking_id = $2 ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, tenantID, bookingID)
	if err != nil {
		r.log.Error("Failed to find payments by booking",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
		)
		return nil, fmt.Errorf("find payments by booking %s: %w", bookingID.String(), err)
	}
	defer rows.Close()

	var payments []*entity.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment row: %w", err)
		}
		payments = append(payments, payment)
	}

	return payments, rows.Err()
}

func (r *paymentRepository) Update(ctx context.Context, p *entity.Payment, expected entity.PaymentStatus) (bool, error) {
	query := `
		UPDATE payments
		SET payment_intent_id = $2, status = $3, failure_code = $4, failure_message = $5,
		    refunded_amount = $6, customer_email = $7, updated_at = $8, checkout_session_id = $10
		WHERE id = $1 AND status = $9 AND refunded_amount <= $6
	`

	result, err := r.db.Exec(ctx, query,
		p.ID,
		p.PaymentIntentID,
		p.Status,
		p.FailureCode,
		p.FailureMessage,
		p.RefundedAmount,
		p.CustomerEmail,
		p.UpdatedAt,
		expected,
		p.CheckoutSessionID,
	)
	if err != nil {
		r.log.Error("Failed to update payment",
			zap.Error(err),
			zap.String("payment_id", p.ID.String()),
			zap.String("status", string(p.Status)),
		)
		return false, fmt.Errorf("update payment %s: %w", p.ID.String(), err)
	}

	return result.RowsAffected() == 1, nil
}
