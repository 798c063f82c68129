// Package auth resolves request credentials into an identity.
//
// FLOW:
//  1. A token issuer (the GitHub login flow in this package, or any other
//     service sharing JWT_SECRET) signs an HS256 JWT for an identity.
//  2. Clients send it as "Authorization: Bearer <jwt>" or in the "token"
//     cookie.
//  3. RequireAuth validates it and stores the identity in the request
//     context; handlers read it with IdentityFromContext.
//
// Users are never stored here. Everything the server knows about the caller
// is inside the signed token.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/codegen-gateway/internal/model"
)

// Issuer is the "iss" claim of every token this service signs and accepts.
const Issuer = "codegen-gateway"

// DefaultTokenTTL is how long a login token stays valid.
const DefaultTokenTTL = 24 * time.Hour

// TokenService handles JWT creation and validation.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// claims is the JWT payload: the standard registered claims, with the
// identity id in "sub", plus the display login.
type claims struct {
	Login string `json:"login,omitempty"`
	jwt.RegisteredClaims
}

// Generate signs a token for id that expires after DefaultTokenTTL.
func (s *TokenService) Generate(id model.Identity) (string, error) {
	return s.GenerateWithDuration(id, DefaultTokenTTL)
}

// GenerateWithDuration signs a token with a custom lifetime.
// Tests use negative durations to produce expired tokens.
func (s *TokenService) GenerateWithDuration(id model.Identity, d time.Duration) (string, error) {
	if id.ID == "" {
		return "", errors.New("auth: identity has no id")
	}

	now := time.Now()
	c := claims{
		Login: id.Login,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    Issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a JWT string and returns the identity in it.
//
// The library checks the signature, expiry and issuer. Restricting the valid
// methods to HS256 rejects "alg: none" and RS/HS confusion tokens.
func (s *TokenService) Validate(tokenStr string) (model.Identity, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return model.Identity{}, fmt.Errorf("auth: token expired")
		}
		return model.Identity{}, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return model.Identity{}, fmt.Errorf("auth: invalid token claims")
	}
	if c.Subject == "" {
		return model.Identity{}, fmt.Errorf("auth: token has no subject")
	}

	return model.Identity{ID: c.Subject, Login: c.Login}, nil
}
