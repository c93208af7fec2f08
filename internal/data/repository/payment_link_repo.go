package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chauffeur-backoffice/internal/data/entity"
	"chauffeur-backoffice/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type PaymentLinkRepository interface {
	Create(ctx context.Context, link *entity.PaymentLink) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*entity.PaymentLink, error)
	FindByBooking(ctx context.Context, tenantID, bookingID uuid.UUID) ([]*entity.PaymentLink, error)
	Deactivate(ctx context.Context, tenantID, id uuid.UUID, at time.Time) error
}

const paymentLinkColumns = `id, tenant_id, booking_id, provider_link_id, url, amount, currency, active,
	expires_at, created_at, updated_at`

type paymentLinkRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewPaymentLinkRepository(db database.PgxIface, log *zap.Logger) PaymentLinkRepository {
	return &paymentLinkRepository{
		db:  db,
		log: log.With(zap.String("repository", "payment_link")),
	}
}

func scanPaymentLink(row pgx.Row) (*entity.PaymentLink, error) {
	var l entity.PaymentLink
	err := row.Scan(
		&l.ID,
		&l.TenantID,
		&l.BookingID,
		&l.ProviderLinkID,
		&l.URL,
		&l.Amount,
		&l.Currency,
		&l.Active,
		&l.ExpiresAt,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *paymentLinkRepository) Create(ctx context.Context, l *entity.PaymentLink) error {
	query := `
		INSERT INTO payment_links (` + paymentLinkColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.Exec(ctx, query,
		l.ID, l.TenantID, l.BookingID, l.ProviderLinkID, l.URL, l.Amount, l.Currency,
		l.Active, l.ExpiresAt, l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create payment link",
			zap.Error(err),
			zap.String("provider_link_id", l.ProviderLinkID),
		)
		return fmt.Errorf("create payment link %s: %w", l.ProviderLinkID, err)
	}

	return nil
}

func (r *paymentLinkRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*entity.PaymentLink, error) {
	query := `SELECT ` + paymentLinkColumns + ` FROM payment_links WHERE id = $1 AND tenant_id = $2`

	link, err := scanPaymentLink(r.db.QueryRow(ctx, query, id, tenantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find payment link by ID %s: %w", id.String(), err)
	}

	return link, nil
}

func (r *paymentLinkRepository) FindByBooking(ctx context.Context, tenantID, bookingID uuid.UUID) ([]*entity.PaymentLink, error) {
	query := `SELECT ` + paymentLinkColumns + ` FROM payment_links WHERE tenant_id = $1 AND booking_id = $2 ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, tenantID, bookingID)
	if err != nil {
		return nil, fmt.Errorf("find payment links by booking %s: %w", bookingID.String(), err)
	}
	defer rows.Close()

	var links []*entity.PaymentLink
	for rows.Next() {
		link, err := scanPaymentLink(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment link row: %w", err)
		}
		links = append(links, link)
	}

	return links, rows.Err()
}

func (r *paymentLinkRepository) Deactivate(ctx context.Context, tenantID, id uuid.UUID, at time.Time) error {
	query := `UPDATE payment_links SET active = FALSE, updated_at = $3 WHERE id = $1 AND tenant_id = $2`

	result, err := r.db.Exec(ctx, query, id, tenantID, at)
	if err != nil {
		r.log.Error("Failed to deactivate payment link",
			zap.Error(err),
			zap.String("payment_link_id", id.String()),
		)
		return fmt.Errorf("deactivate payment link %s: %w", id.String(), err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("payment link %s not found", id.String())
	}

	return nil
}
