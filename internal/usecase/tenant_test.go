package usecase

import (
	"context"
	"testing"

	"chauffeur-backoffice/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveTenant(t *testing.T) {
	userID, orgID := uuid.New(), uuid.New()

	tests := []struct {
		name    string
		ctx     context.Context
		want    Tenant
		wantErr error
	}{
		{
			name:    "no identity",
			ctx:     context.Background(),
			wantErr: ErrUnauthenticated,
		},
		{
			name:    "identity without organization",
			ctx:     utils.SetIdentityContext(context.Background(), utils.Identity{UserID: userID}),
			wantErr: ErrNoTenant,
		},
		{
			name: "organization member",
			ctx:  utils.SetIdentityContext(context.Background(), utils.Identity{UserID: userID, OrgID: orgID, Role: "owner"}),
			want: Tenant{ID: orgID, UserID: userID, Role: "owner"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveTenant(tt.ctx)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, Tenant{}, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
