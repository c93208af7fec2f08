package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims carries the caller identity issued by the upstream identity service.
type Claims struct {
	OrgID string `json:"org_id,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// IssueAccessToken signs an HS256 token for identity. Used by tests and local tooling.
func IssueAccessToken(config JWTConfig, identity Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID.String(),
			Issuer:    config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if identity.OrgID != uuid.Nil {
		claims.OrgID = identity.OrgID.String()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.Secret))
}

// ParseAccessToken validates signature, expiry and issuer and returns the
// identity the token was issued for. A token without org_id yields an
// identity with a nil OrgID.
func ParseAccessToken(config JWTConfig, tokenStr string) (Identity, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}

	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(*jwt.Token) (any, error) {
		return []byte(config.Secret), nil
	}, opts...)
	if err != nil {
		return Identity{}, err
	}
	claims, ok := t.Claims.(*Claims)
	if !ok || !t.Valid {
		return Identity{}, errors.New("invalid token")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Identity{}, fmt.Errorf("invalid subject: %w", err)
	}

	identity := Identity{UserID: userID, Role: claims.Role}
	if claims.OrgID != "" {
		orgID, err := uuid.Parse(claims.OrgID)
		if err != nil {
			return Identity{}, fmt.Errorf("invalid org_id: %w", err)
		}
		identity.OrgID = orgID
	}
	return identity, nil
}
