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

type OrganizationRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Organization, error)
	FindByMessagingNumber(ctx context.Context, number string) (*entity.Organization, error)
	SetPaymentsOnboarded(ctx context.Context, id uuid.UUID, onboarded bool, at time.Time) error
}

type organizationRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewOrganizationRepository(db database.PgxIface, log *zap.Logger) OrganizationRepository {
	return &organizationRepository{
		db:  db,
		log: log.With(zap.String("repository", "organization")),
	}
}

const organizationColumns = `id, name, messaging_number, payments_onboarded, created_at, updated_at`

func (r *organizationRepository) findOne(ctx context.Context, op, query string, arg any) (*entity.Organization, error) {
	var org entity.Organization
	err := r.db.QueryRow(ctx, query, arg).Scan(&org.ID, &org.Name, &org.MessagingNumber, &org.PaymentsOnboarded, &org.CreatedAt, &org.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to "+op, zap.Error(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &org, nil
}

func (r *organizationRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Organization, error) {
	query := `SELECT ` + organizationColumns + ` FROM organizations WHERE id = $1`
	return r.findOne(ctx, "find organization "+id.String(), query, id)
}

// FindByMessagingNumber maps the business number an inbound message was sent
// to onto its tenant.
func (r *organizationRepository) FindByMessagingNumber(ctx context.Context, number string) (*entity.Organization, error) {
	query := `SELECT ` + organizationColumns + ` FROM organizations WHERE messaging_number = $1`
	return r.findOne(ctx, "find organization by messaging number", query, number)
}

func (r *organizationRepository) SetPaymentsOnboarded(ctx context.Context, id uuid.UUID, onboarded bool, at time.Time) error {
	query := `UPDATE organizations SET payments_onboarded = $2, updated_at = $3 WHERE id = $1`

	if _, err := r.db.Exec(ctx, query, id, onboarded, at); err != nil {
		r.log.Error("Failed to update organization onboarding flag",
			zap.Error(err),
			zap.String("organization_id", id.String()),
		)
		return fmt.Errorf("update organization %s onboarding: %w", id.String(), err)
	}

	return nil
}
