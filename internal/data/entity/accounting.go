package entity

import (
	"time"

	"github.com/google/uuid"
)

// AccountingConnection holds the tenant's OAuth tokens for the accounting
// provider. One row per tenant; reconnecting overwrites it.
type AccountingConnection struct {
	TenantBase
	AccessToken        string    `db:"access_token"`
	RefreshToken       string    `db:"refresh_token"`
	TokenType          string    `db:"token_type"`
	ExpiresAt          time.Time `db:"expires_at"`
	Scope              string    `db:"scope"`
	ProviderTenantID   string    `db:"provider_tenant_id"`
	ProviderTenantName string    `db:"provider_tenant_name"`
	ConnectedBy        uuid.UUID `db:"connected_by"`
}

func (c *AccountingConnection) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// OAuthState correlates an authorization redirect with the tenant and user
// that started it.
type OAuthState struct {
	BaseSimple
	Token     string     `db:"token"`
	TenantID  uuid.UUID  `db:"tenant_id"`
	UserID    uuid.UUID  `db:"user_id"`
	ExpiresAt time.Time  `db:"expires_at"`
	UsedAt    *time.Time `db:"used_at"`
}
