package auth_test

import (
	"testing"
	"time"

	"famhub-backend/pkg/auth"
	"famhub-backend/pkg/common"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret string, claims auth.Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestValidateToken(t *testing.T) {
	validator, err := auth.NewJWTValidator("test-secret", "famhub-backend")
	require.NoError(t, err)

	signed := signToken(t, "test-secret", auth.Claims{
		Email:  "alice@example.com",
		Groups: []string{"approved", common.AdminGroup},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			Issuer:    "famhub-backend",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	identity, err := validator.Validate(signed)
	require.NoError(t, err)
	assert.Equal(t, "alice", identity.UserID)
	assert.Equal(t, "alice@example.com", identity.Email)
	assert.True(t, identity.IsAdmin())
}

func TestValidateTokenRejectsBadTokens(t *testing.T) {
	validator, err := auth.NewJWTValidator("test-secret", "famhub-backend")
	require.NoError(t, err)

	expired := signToken(t, "test-secret", auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			Issuer:    "famhub-backend",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	_, err = validator.Validate(expired)
	assert.ErrorIs(t, err, auth.ErrExpiredToken)

	wrongSecret := signToken(t, "other-secret", auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			Issuer:    "famhub-backend",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	_, err = validator.Validate(wrongSecret)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	wrongIssuer := signToken(t, "test-secret", auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	_, err = validator.Validate(wrongIssuer)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	noSubject := signToken(t, "test-secret", auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "famhub-backend",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	_, err = validator.Validate(noSubject)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	_, err = validator.Validate("not-a-token")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}
