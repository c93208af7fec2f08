package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chauffeur-backoffice/internal/data/entity"
	"chauffeur-backoffice/pkg/database"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type OAuthStateRepository interface {
	Create(ctx context.Context, state *entity.OAuthState) error
	FindByToken(ctx context.Context, token string) (*entity.OAuthState, error)
	Consume(ctx context.Context, token string, now time.Time) (bool, error)
}

type oauthStateRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewOAuthStateRepository(db database.PgxIface, log *zap.Logger) OAuthStateRepository {
	return &oauthStateRepository{
		db:  db,
		log: log.With(zap.String("repository", "oauth_state")),
	}
}

func (r *oauthStateRepository) Create(ctx context.Context, s *entity.OAuthState) error {
	query := `
		INSERT INTO oauth_states (id, token, tenant_id, user_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	if _, err := r.db.Exec(ctx, query, s.ID, s.Token, s.TenantID, s.UserID, s.ExpiresAt, s.CreatedAt); err != nil {
		r.log.Error("Failed to create oauth state", zap.Error(err))
		return fmt.Errorf("create oauth state: %w", err)
	}

	return nil
}

func (r *oauthStateRepository) FindByToken(ctx context.Context, token string) (*entity.OAuthState, error) {
	query := `
		SELECT id, token, tenant_id, user_id, expires_at, used_at, created_at
		FROM oauth_states
		WHERE token = $1
	`

	var s entity.OAuthState
	err := r.db.QueryRow(ctx, query, token).Scan(
		&s.ID,
		&s.Token,
		&s.TenantID,
		&s.UserID,
		&s.ExpiresAt,
		&s.UsedAt,
		&s.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find oauth state", zap.Error(err))
		return nil, fmt.Errorf("find oauth state: %w", err)
	}

	return &s, nil
}

// Consume marks the state used. Only one caller can win for a given token,
// and only before it expires.
func (r *oauthStateRepository) Consume(ctx context.Context, token string, now time.Time) (bool, error) {
	query := `
		UPDATE oauth_states
		SET used_at = $2
		WHERE token = $1 AND used_at IS NULL AND expires_at > $2
	`

	result, err := r.db.Exec(ctx, query, token, now)
	if err != nil {
		r.log.Error("Failed to consume oauth state", zap.Error(err))
		return false, fmt.Errorf("consume oauth state: %w", err)
	}

	return result.RowsAffected() == 1, nil
}
