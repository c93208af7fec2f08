package response

import "time"

type AuthorizeResponse struct {
	RedirectURL string    `json:"redirect_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// ConnectionStatusResponse.State is one of disconnected, connected or expired.
type ConnectionStatusResponse struct {
	State              string     `json:"state"`
	ProviderTenantID   string     `json:"provider_tenant_id,omitempty"`
	ProviderTenantName string     `json:"provider_tenant_name,omitempty"`
	Scope              string     `json:"scope,omitempty"`
	ExpiresAt          *time.Time `json:"expires_at,omitempty"`
	ConnectedAt        *time.Time `json:"connected_at,omitempty"`
}
