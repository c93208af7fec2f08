package utils

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	config := JWTConfig{Secret: "s3cret", Issuer: "identity"}
	identity := Identity{UserID: uuid.New(), OrgID: uuid.New(), Role: "owner"}

	token, err := IssueAccessToken(config, identity, time.Hour)
	require.NoError(t, err)

	got, err := ParseAccessToken(config, token)
	require.NoError(t, err)
	assert.Equal(t, identity, got)
}

func TestParseAccessToken_Rejects(t *testing.T) {
	config := JWTConfig{Secret: "s3cret", Issuer: "identity"}
	identity := Identity{UserID: uuid.New(), OrgID: uuid.New()}

	expired, err := IssueAccessToken(config, identity, -time.Minute)
	require.NoError(t, err)
	foreign, err := IssueAccessToken(JWTConfig{Secret: "s3cret", Issuer: "someone-else"}, identity, time.Hour)
	require.NoError(t, err)

	for name, token := range map[string]string{"expired": expired, "issuer": foreign, "garbage": "not.a.token"} {
		_, err := ParseAccessToken(config, token)
		assert.Error(t, err, name)
	}
}

func TestParseAccessToken_NoOrganization(t *testing.T) {
	config := JWTConfig{Secret: "s3cret"}
	token, err := IssueAccessToken(config, Identity{UserID: uuid.New(), Role: "dispatcher"}, time.Hour)
	require.NoError(t, err)

	got, err := ParseAccessToken(config, token)
	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, got.OrgID)
	assert.Equal(t, "dispatcher", got.Role)
}
