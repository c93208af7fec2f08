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

type PaymentAccountRepository interface {
	FindByTenant(ctx context.Context, tenantID uuid.UUID) (*entity.PaymentAccount, error)
	FindByProviderAccountID(ctx context.Context, accountID string) (*entity.PaymentAccount, error)
	Save(ctx context.Context, account *entity.PaymentAccount) error
}

const paymentAccountColumns = `id, tenant_id, provider_account_id, status, charges_enabled, payouts_enabled,
	details_submitted, requirements, created_at, updated_at`

type paymentAccountRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewPaymentAccountRepository(db database.PgxIface, log *zap.Logger) PaymentAccountRepository {
	return &paymentAccountRepository{
		db:  db,
		log: log.With(zap.String("repository", "payment_account")),
	}
}

func (r *paymentAccountRepository) findOne(ctx context.Context, query string, arg any) (*entity.PaymentAccount, error) {
	var a entity.PaymentAccount
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&a.ID,
		&a.TenantID,
		&a.ProviderAccountID,
		&a.Status,
		&a.ChargesEnabled,
		&a.PayoutsEnabled,
		&a.DetailsSubmitted,
		&a.Requirements,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find payment account", zap.Error(err))
		return nil, fmt.Errorf("find payment account: %w", err)
	}
	return &a, nil
}

func (r *paymentAccountRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID) (*entity.PaymentAccount, error) {
	return r.findOne(ctx, `SELECT `+paymentAccountColumns+` FROM payment_accounts WHERE tenant_id = $1`, tenantID)
}

func (r *paymentAccountRepository) FindByProviderAccountID(ctx context.Context, accountID string) (*entity.PaymentAccount, error) {
	return r.findOne(ctx, `SELECT `+paymentAccountColumns+` FROM payment_accounts WHERE provider_account_id = $1`, accountID)
}

func (r *paymentAccountRepository) Save(ctx context.Context, a *entity.PaymentAccount) error {
	query := `
		INSERT INTO payment_accounts (` + paymentAccountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (tenant_id) DO UPDATE
		SET provider_account_id = EXCLUDED.provider_account_id,
		    status = EXCLUDED.status,
		    charges_enabled = EXCLUDED.charges_enabled,
		    payouts_enabled = EXCLUDED.payouts_enabled,
		    details_submitted = EXCLUDED.details_submitted,
		    requirements = EXCLUDED.requirements,
		    updated_at = EXCLUDED.updated_at
	`

	requirements := a.Requirements
	if requirements == nil {
		requirements = []string{}
	}

	_, err := r.db.Exec(ctx, query,
		a.ID, a.TenantID, a.ProviderAccountID, a.Status, a.ChargesEnabled, a.PayoutsEnabled,
		a.DetailsSubmitted, requirements, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to save payment account",
			zap.Error(err),
			zap.String("provider_account_id", a.ProviderAccountID),
		)
		return fmt.Errorf("save payment account %s: %w", a.ProviderAccountID, err)
	}

	return nil
}
