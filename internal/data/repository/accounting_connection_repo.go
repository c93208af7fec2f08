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

type AccountingConnectionRepository interface {
	FindByTenant(ctx context.Context, tenantID uuid.UUID) (*entity.AccountingConnection, error)
	Save(ctx context.Context, conn *entity.AccountingConnection) error
	Delete(ctx context.Context, tenantID uuid.UUID) error
}

type accountingConnectionRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewAccountingConnectionRepository(db database.PgxIface, log *zap.Logger) AccountingConnectionRepository {
	return &accountingConnectionRepository{
		db:  db,
		log: log.With(zap.String("repository", "accounting_connection")),
	}
}

func (r *accountingConnectionRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID) (*entity.AccountingConnection, error) {
	query := `
		SELECT id, tenant_id, access_token, refresh_token, token_type, expires_at, scope,
		       provider_tenant_id, provider_tenant_name, connected_by, created_at, updated_at
		FROM accounting_connections
		WHERE tenant_id = $1
	`

	var c entity.AccountingConnection
	err := r.db.QueryRow(ctx, query, tenantID).Scan(
		&c.ID,
		&c.TenantID,
		&c.AccessToken,
		&c.RefreshToken,
		&c.TokenType,
		&c.ExpiresAt,
		&c.Scope,
		&c.ProviderTenantID,
		&c.ProviderTenantName,
		&c.ConnectedBy,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find accounting connection",
			zap.Error(err),
			zap.String("tenant_id", tenantID.String()),
		)
		return nil, fmt.Errorf("find accounting connection for tenant %s: %w", tenantID.String(), err)
	}

	return &c, nil
}

// Save inserts or replaces the tenant's connection. Token rotation goes
// through here as well.
func (r *accountingConnectionRepository) Save(ctx context.Context, c *entity.AccountingConnection) error {
	query := `
		INSERT INTO accounting_connections (
			id, tenant_id, access_token, refresh_token, token_type, expires_at, scope,
			provider_tenant_id, provider_tenant_name, connected_by, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (tenant_id) DO UPDATE
		SET access_token = EXCLUDED.access_token,
		    refresh_token = EXCLUDED.refresh_token,
		    token_type = EXCLUDED.token_type,
		    expires_at = EXCLUDED.expires_at,
		    scope = EXCLUDED.scope,
		    provider_tenant_id = EXCLUDED.provider_tenant_id,
		    provider_tenant_name = EXCLUDED.provider_tenant_name,
		    connected_by = EXCLUDED.connected_by,
		    updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.Exec(ctx, query,
		c.ID, c.TenantID, c.AccessToken, c.RefreshToken, c.TokenType, c.ExpiresAt, c.Scope,
		c.ProviderTenantID, c.ProviderTenantName, c.ConnectedBy, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to save accounting connection",
			zap.Error(err),
			zap.String("tenant_id", c.TenantID.String()),
		)
		return fmt.Errorf("save accounting connection for tenant %s: %w", c.TenantID.String(), err)
	}

	return nil
}

func (r *accountingConnectionRepository) Delete(ctx context.Context, tenantID uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM accounting_connections WHERE tenant_id = $1`, tenantID); err != nil {
		r.log.Error("Failed to delete accounting connection",
			zap.Error(err),
			zap.String("tenant_id", tenantID.String()),
		)
		return fmt.Errorf("delete accounting connection for tenant %s: %w", tenantID.String(), err)
	}

	return nil
}
