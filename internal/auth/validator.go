// Package auth validates the bearer tokens an external identity provider
// issues to board users. Tokens are HS256 JWTs carrying a stable user id
// and a display name; issuance lives outside this service except for the
// development issuer in this package.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingSigningKey = errors.New("token validator: signing key required")
	ErrMissingIssuer     = errors.New("token validator: issuer required")
	ErrMissingToken      = errors.New("token validator: token required")
	ErrInvalidToken      = errors.New("token validator: invalid token")
	ErrExpiredToken      = errors.New("token validator: token expired")
	ErrMissingSubject    = errors.New("token validator: subject required")
)

const bearerPrefix = "Bearer "

// Identity is the authenticated board user.
type Identity struct {
	UserID      string
	DisplayName string
}

// UserClaims mirrors the JWT payload the identity provider emits.
type UserClaims struct {
	DisplayName string `json:"display_name"`
	jwt.RegisteredClaims
}

// ValidatorConfig describes how to validate identity-provider JWTs.
type ValidatorConfig struct {
	SigningSecret []byte
	Issuer        string
	Clock         func() time.Time
}

// Validator validates HS256 bearer tokens.
type Validator struct {
	signingSecret []byte
	issuer        string
	clock         func() time.Time
}

// NewValidator constructs a validator with the provided configuration.
func NewValidator(cfg ValidatorConfig) (*Validator, error) {
	if len(cfg.SigningSecret) == 0 {
		return nil, ErrMissingSigningKey
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		return nil, ErrMissingIssuer
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Validator{
		signingSecret: append([]byte(nil), cfg.SigningSecret...),
		issuer:        issuer,
		clock:         clock,
	}, nil
}

// ValidateToken validates the supplied JWT string and returns the identity.
func (v *Validator) ValidateToken(tokenString string) (Identity, error) {
	token := strings.TrimSpace(tokenString)
	if token == "" {
		return Identity{}, ErrMissingToken
	}

	claims := &UserClaims{}
	parsed, err := jwt.ParseWithClaims(
		token,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
				return nil, fmt.Errorf("%w: unexpected signing algorithm %s", ErrInvalidToken, t.Method.Alg())
			}
			return v.signingSecret, nil
		},
		jwt.WithTimeFunc(v.clock),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrExpiredToken
		}
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if parsed == nil || !parsed.Valid {
		return Identity{}, ErrInvalidToken
	}
	if claims.Issuer != v.issuer {
		return Identity{}, ErrInvalidToken
	}
	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return Identity{}, ErrMissingSubject
	}
	displayName := strings.TrimSpace(claims.DisplayName)
	if displayName == "" {
		displayName = subject
	}
	return Identity{UserID: subject, DisplayName: displayName}, nil
}

// ValidateRequest extracts the Authorization bearer token from the request
// and validates it.
func (v *Validator) ValidateRequest(r *http.Request) (Identity, error) {
	if r == nil {
		return Identity{}, ErrMissingToken
	}
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, bearerPrefix) {
		return Identity{}, ErrMissingToken
	}
	return v.ValidateToken(strings.TrimPrefix(header, bearerPrefix))
}
