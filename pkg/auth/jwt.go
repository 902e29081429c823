package auth

import (
	"errors"

	"famhub-backend/pkg/common"

	"github.com/golang-jwt/jwt/v5"
)

// Token validation errors.
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Claims is the token payload the identity provider issues. Group
// memberships arrive in the Cognito claim.
type Claims struct {
	Email  string   `json:"email"`
	Groups []string `json:"cognito:groups,omitempty"`
	jwt.RegisteredClaims
}

// JWTValidator verifies HS256 bearer tokens and turns their claims into the
// caller identity the rest of the system trusts.
type JWTValidator struct {
	secret []byte
	issuer string
}

// NewJWTValidator creates a validator for one signing secret and issuer.
func NewJWTValidator(secret, issuer string) (*JWTValidator, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &JWTValidator{secret: []byte(secret), issuer: issuer}, nil
}

// Validate parses and verifies a token, returning the identity it asserts.
func (v *JWTValidator) Validate(tokenString string) (common.Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return v.secret, nil
	}, jwt.WithIssuer(v.issuer), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return common.Identity{}, ErrExpiredToken
		}
		return common.Identity{}, ErrInvalidToken
	}
	if !token.Valid || claims.Subject == "" {
		return common.Identity{}, ErrInvalidToken
	}

	return common.Identity{
		UserID: claims.Subject,
		Email:  claims.Email,
		Groups: claims.Groups,
	}, nil
}
