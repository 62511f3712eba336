package auth

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("test-secret")

func fixedClock() time.Time {
	return time.Unix(1700000000, 0).UTC()
}

func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	validator, err := NewValidator(ValidatorConfig{
		SigningSecret: testSecret,
		Issuer:        "corkboard-test",
		Clock:         fixedClock,
	})
	if err != nil {
		t.Fatalf("NewValidator returned error: %v", err)
	}
	return validator
}

func mintToken(t *testing.T, identity Identity) string {
	t.Helper()
	issuer := NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: testSecret,
		Issuer:        "corkboard-test",
		Clock:         fixedClock,
	})
	token, _, err := issuer.Issue(identity)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	return token
}

func TestValidateTokenRoundTrip(t *testing.T) {
	validator := newTestValidator(t)
	token := mintToken(t, Identity{UserID: "user-7", DisplayName: "Ada"})

	identity, err := validator.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken returned error: %v", err)
	}
	if identity.UserID != "user-7" {
		t.Fatalf("user id = %q, want user-7", identity.UserID)
	}
	if identity.DisplayName != "Ada" {
		t.Fatalf("display name = %q, want Ada", identity.DisplayName)
	}
}

func TestDisplayNameFallsBackToSubject(t *testing.T) {
	validator := newTestValidator(t)
	token := mintToken(t, Identity{UserID: "user-7"})

	identity, err := validator.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken returned error: %v", err)
	}
	if identity.DisplayName != "user-7" {
		t.Fatalf("display name = %q, want the subject", identity.DisplayName)
	}
}

func TestValidateTokenRejectsEmptyToken(t *testing.T) {
	validator := newTestValidator(t)
	if _, err := validator.ValidateToken("  "); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("err = %v, want ErrMissingToken", err)
	}
}

func TestValidateTokenRejectsWrongIssuer(t *testing.T) {
	validator := newTestValidator(t)
	other := NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: testSecret,
		Issuer:        "someone-else",
		Clock:         fixedClock,
	})
	token, _, err := other.Issue(Identity{UserID: "user-7"})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if _, err := validator.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	validator := newTestValidator(t)
	other := NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: []byte("other-secret"),
		Issuer:        "corkboard-test",
		Clock:         fixedClock,
	})
	token, _, err := other.Issue(Identity{UserID: "user-7"})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if _, err := validator.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	validator := newTestValidator(t)
	issuer := NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: testSecret,
		Issuer:        "corkboard-test",
		TokenTTL:      time.Minute,
		Clock: func() time.Time {
			return fixedClock().Add(-time.Hour)
		},
	})
	token, _, err := issuer.Issue(Identity{UserID: "user-7"})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if _, err := validator.ValidateToken(token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("err = %v, want ErrExpiredToken", err)
	}
}

func TestValidateTokenRejectsUnsignedAlgorithm(t *testing.T) {
	validator := newTestValidator(t)
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject: "user-7",
		Issuer:  "corkboard-test",
	})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("signing unsigned token failed: %v", err)
	}
	if _, err := validator.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestValidateRequestReadsBearerHeader(t *testing.T) {
	validator := newTestValidator(t)
	token := mintToken(t, Identity{UserID: "user-7", DisplayName: "Ada"})

	request := httptest.NewRequest("GET", "/api/boards/b/objects", nil)
	request.Header.Set("Authorization", "Bearer "+token)
	identity, err := validator.ValidateRequest(request)
	if err != nil {
		t.Fatalf("ValidateRequest returned error: %v", err)
	}
	if identity.UserID != "user-7" {
		t.Fatalf("user id = %q, want user-7", identity.UserID)
	}

	bare := httptest.NewRequest("GET", "/api/boards/b/objects", nil)
	if _, err := validator.ValidateRequest(bare); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("err without header = %v, want ErrMissingToken", err)
	}
}
