package usecase

import (
	"context"

	"chauffeur-backoffice/pkg/utils"

	"github.com/google/uuid"
)

// Tenant is the resolved caller context every orchestration call takes.
type Tenant struct {
	ID     uuid.UUID
	UserID uuid.UUID
	Role   string
}

// ResolveTenant maps the authenticated identity on ctx to a tenant.
func ResolveTenant(ctx context.Context) (Tenant, error) {
	identity, ok := utils.GetIdentityFromContext(ctx)
	if !ok {
		return Tenant{}, ErrUnauthenticated
	}

	tenant := Tenant{ID: identity.OrgID, UserID: identity.UserID, Role: identity.Role}
	if err := tenant.Validate(); err != nil {
		return Tenant{}, err
	}
	return tenant, nil
}

func (t Tenant) Validate() error {
	if t.UserID == uuid.Nil {
		return ErrUnauthenticated
	}
	if t.ID == uuid.Nil {
		return ErrNoTenant
	}
	return nil
}
