package usecase

import (
	"context"
	"fmt"
	"time"

	"chauffeur-backoffice/internal/data/entity"
	"chauffeur-backoffice/internal/data/repository"
	"chauffeur-backoffice/internal/dto/request"
	"chauffeur-backoffice/internal/dto/response"
	"chauffeur-backoffice/internal/provider/accounting"
	"chauffeur-backoffice/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	ConnectionDisconnected = "disconnected"
	ConnectionConnected    = "connected"
	ConnectionExpired      = "expired"

	// refreshLeeway refreshes tokens slightly before they expire.
	refreshLeeway = 60 * time.Second
)

type AccountingService interface {
	// Authorize mints a single-use state token bound to the caller and
	// returns the provider consent URL.
	Authorize(ctx context.Context, tenant Tenant) (*response.AuthorizeResponse, error)
	Callback(ctx context.Context, tenant Tenant, req *request.AccountingCallbackRequest) (*response.ConnectionStatusResponse, error)
	Status(ctx context.Context, tenant Tenant) (*response.ConnectionStatusResponse, error)
	// Credentials returns a usable access token, refreshing it if needed.
	Credentials(ctx context.Context, tenant Tenant) (accounting.Credentials, error)
	Disconnect(ctx context.Context, tenant Tenant) error
}

type accountingService struct {
	repo     *repository.Repository
	provider AccountingProvider
	stateTTL time.Duration
	log      *zap.Logger
	now      func() time.Time
}

func NewAccountingService(repo *repository.Repository, provider AccountingProvider, config utils.AccountingConfig, log *zap.Logger) AccountingService {
	return &accountingService{
		repo:     repo,
		provider: provider,
		stateTTL: config.StateTTL,
		log:      log.With(zap.String("service", "accounting")),
		now:      time.Now,
	}
}

func (s *accountingService) Authorize(ctx context.Context, tenant Tenant) (*response.AuthorizeResponse, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	state := &entity.OAuthState{
		BaseSimple: entity.BaseSimple{ID: uuid.New(), CreatedAt: now},
		Token:      utils.GenerateStateToken(),
		TenantID:   tenant.ID,
		UserID:     tenant.UserID,
		ExpiresAt:  now.Add(s.stateTTL),
	}

	if err := s.repo.OAuthState.Create(ctx, state); err != nil {
		return nil, fmt.Errorf("store authorization state: %w", err)
	}

	return &response.AuthorizeResponse{
		RedirectURL: s.provider.AuthCodeURL(state.Token),
		ExpiresAt:   state.ExpiresAt,
	}, nil
}

func (s *accountingService) Callback(ctx context.Context, tenant Tenant, req *request.AccountingCallbackRequest) (*response.ConnectionStatusResponse, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError(utils.FormatValidationErrors(errs))
	}

	now := s.now()
	state, err := s.repo.OAuthState.FindByToken(ctx, req.State)
	if err != nil {
		return nil, err
	}
	switch {
	case state == nil:
		return nil, ErrStateNotFound
	case state.TenantID != tenant.ID || state.UserID != tenant.UserID:
		s.log.Warn("Authorization state used by another session",
			zap.String("tenant_id", tenant.ID.String()),
			zap.String("state_tenant_id", state.TenantID.String()),
		)
		return nil, ErrStateMismatch
	case state.UsedAt != nil:
		return nil, ErrStateUsed
	case !now.Before(state.ExpiresAt):
		return nil, ErrStateExpired
	}

	// Only one callback can consume the state, even when two race here.
	consumed, err := s.repo.OAuthState.Consume(ctx, req.State, now)
	if err != nil {
		return nil, err
	}
	if !consumed {
		return nil, ErrStateUsed
	}

	token, err := s.provider.Exchange(ctx, req.Code)
	if err != nil {
		return nil, providerError("exchange authorization code", err)
	}

	tenants, err := s.provider.Connections(ctx, token.AccessToken)
	if err != nil {
		return nil, providerError("list authorised organisations", err)
	}
	if len(tenants) == 0 {
		return nil, validationError("no accounting organisation was authorised")
	}

	existing, err := s.repo.AccountingConnection.FindByTenant(ctx, tenant.ID)
	if err != nil {
		return nil, err
	}

	conn := &entity.AccountingConnection{
		TenantBase: entity.TenantBase{
			ID:        uuid.New(),
			TenantID:  tenant.ID,
			CreatedAt: now,
			UpdatedAt: now,
		},
		AccessToken:        token.AccessToken,
		RefreshToken:       token.RefreshToken,
		TokenType:          token.TokenType,
		ExpiresAt:          token.Expiry,
		Scope:              token.Scope,
		ProviderTenantID:   tenants[0].ID,
		ProviderTenantName: tenants[0].Name,
		ConnectedBy:        tenant.UserID,
	}
	if existing != nil {
		conn.ID = existing.ID
		conn.CreatedAt = existing.CreatedAt
	}

	if err := s.repo.AccountingConnection.Save(ctx, conn); err != nil {
		return nil, fmt.Errorf("store accounting connection: %w", err)
	}

	s.log.Info("Accounting system connected",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("provider_tenant_id", conn.ProviderTenantID),
	)

	return s.statusOf(conn, now), nil
}

func (s *accountingService) Status(ctx context.Context, tenant Tenant) (*response.ConnectionStatusResponse, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}

	conn, err := s.repo.AccountingConnection.FindByTenant(ctx, tenant.ID)
	if err != nil {
		return nil, err
	}
	return s.statusOf(conn, s.now()), nil
}

func (s *accountingService) statusOf(conn *entity.AccountingConnection, now time.Time) *response.ConnectionStatusResponse {
	if conn == nil {
		return &response.ConnectionStatusResponse{State: ConnectionDisconnected}
	}

	state := ConnectionConnected
	if conn.Expired(now) {
		state = ConnectionExpired
	}
	expiresAt := conn.ExpiresAt
	connectedAt := conn.UpdatedAt

	return &response.ConnectionStatusResponse{
		State:              state,
		ProviderTenantID:   conn.ProviderTenantID,
		ProviderTenantName: conn.ProviderTenantName,
		Scope:              conn.Scope,
		ExpiresAt:          &expiresAt,
		ConnectedAt:        &connectedAt,
	}
}

func (s *accountingService) Credentials(ctx context.Context, tenant Tenant) (accounting.Credentials, error) {
	if err := tenant.Validate(); err != nil {
		return accounting.Credentials{}, err
	}

	conn, err := s.repo.AccountingConnection.FindByTenant(ctx, tenant.ID)
	if err != nil {
		return accounting.Credentials{}, err
	}
	if conn == nil {
		return accounting.Credentials{}, ErrNotConnected
	}

	now := s.now()
	if conn.Expired(now.Add(refreshLeeway)) {
		token, err := s.provider.Refresh(ctx, conn.RefreshToken)
		if err != nil {
			s.log.Warn("Accounting token refresh failed", zap.Error(err), zap.String("tenant_id", tenant.ID.String()))
			return accounting.Credentials{}, fmt.Errorf("%w: %w", ErrReauthRequired, err)
		}

		conn.AccessToken = token.AccessToken
		conn.RefreshToken = token.RefreshToken
		conn.TokenType = token.TokenType
		conn.ExpiresAt = token.Expiry
		if token.Scope != "" {
			conn.Scope = token.Scope
		}
		conn.UpdatedAt = now

		if err := s.repo.AccountingConnection.Save(ctx, conn); err != nil {
			return accounting.Credentials{}, fmt.Errorf("store refreshed tokens: %w", err)
		}
	}

	return accounting.Credentials{AccessToken: conn.AccessToken, TenantID: conn.ProviderTenantID}, nil
}

// Disconnect revokes the grant at the provider when it can and always
// removes the stored tokens. Invoices already created are untouched.
func (s *accountingService) Disconnect(ctx context.Context, tenant Tenant) error {
	if err := tenant.Validate(); err != nil {
		return err
	}

	conn, err := s.repo.AccountingConnection.FindByTenant(ctx, tenant.ID)
	if err != nil {
		return err
	}
	if conn == nil {
		return nil
	}

	if err := s.provider.Revoke(ctx, conn.RefreshToken); err != nil {
		s.log.Warn("Token revocation failed, deleting local connection anyway",
			zap.Error(err),
			zap.String("tenant_id", tenant.ID.String()),
		)
	}

	if err := s.repo.AccountingConnection.Delete(ctx, tenant.ID); err != nil {
		return fmt.Errorf("delete accounting connection: %w", err)
	}

	s.log.Info("Accounting system disconnected", zap.String("tenant_id", tenant.ID.String()))
	return nil
}
