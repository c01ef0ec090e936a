package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/quotedesk/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:                strings.Repeat("s", 32),
		AccessTokenExpiration: 15 * time.Minute,
		Issuer:                "quotedesk",
	}
}

func TestJWTService(t *testing.T) {
	svc := NewJWTService(testJWTConfig())
	tenantID := uuid.New()
	userID := uuid.New()

	input := GenerateTokenInput{
		TenantID: tenantID,
		UserID:   userID,
		Username: "jane",
	}

	t.Run("round-trips claims", func(t *testing.T) {
		token, expiresAt, err := svc.GenerateAccessToken(input)
		require.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, 5*time.Second)

		claims, err := svc.ValidateAccessToken(token)
		require.NoError(t, err)
		assert.Equal(t, tenantID.String(), claims.TenantID)
		assert.Equal(t, userID.String(), claims.UserID)
		assert.Equal(t, "jane", claims.Username)
		assert.Equal(t, "quotedesk", claims.Issuer)
	})

	t.Run("rejects token signed with another secret", func(t *testing.T) {
		other := NewJWTService(config.JWTConfig{
			Secret:                strings.Repeat("x", 32),
			AccessTokenExpiration: 15 * time.Minute,
			Issuer:                "quotedesk",
		})
		token, _, err := other.GenerateAccessToken(input)
		require.NoError(t, err)

		_, err = svc.ValidateAccessToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects expired token", func(t *testing.T) {
		expired := NewJWTService(config.JWTConfig{
			Secret:                strings.Repeat("s", 32),
			AccessTokenExpiration: -time.Minute,
			Issuer:                "quotedesk",
		})
		token, _, err := expired.GenerateAccessToken(input)
		require.NoError(t, err)

		_, err = svc.ValidateAccessToken(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("rejects token from another issuer", func(t *testing.T) {
		other := NewJWTService(config.JWTConfig{
			Secret:                strings.Repeat("s", 32),
			AccessTokenExpiration: 15 * time.Minute,
			Issuer:                "someone-else",
		})
		token, _, err := other.GenerateAccessToken(input)
		require.NoError(t, err)

		_, err = svc.ValidateAccessToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects garbage tokens", func(t *testing.T) {
		_, err := svc.ValidateAccessToken("not-a-jwt")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects tokens missing tenant claim", func(t *testing.T) {
		now := time.Now()
		claims := &Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "quotedesk",
				Audience:  jwt.ClaimStrings{"quotedesk"},
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
				IssuedAt:  jwt.NewNumericDate(now),
			},
			UserID: userID.String(),
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
			SignedString([]byte(strings.Repeat("s", 32)))
		require.NoError(t, err)

		_, err = svc.ValidateAccessToken(token)
		assert.ErrorIs(t, err, ErrMissingTenantID)
	})
}
