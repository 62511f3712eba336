package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/inkwelllabs/corkboard/internal/auth"
)

type stubValidator struct {
	identity auth.Identity
	err      error
}

func (s stubValidator) ValidateRequest(*http.Request) (auth.Identity, error) {
	return s.identity, s.err
}

func runAuthorize(t *testing.T, validator TokenValidator, logger *zap.Logger) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(recorder)
	request := httptest.NewRequest(http.MethodGet, "/api/boards/b1/objects", http.NoBody)
	request.Header.Set("Authorization", "Bearer some-token")
	ctx.Request = request

	handler := &httpHandler{validator: validator, logger: logger}
	handler.authorizeRequest(ctx)
	return recorder
}

func TestAuthorizeRequestLogsExpiredTokenAtInfoLevel(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	recorder := runAuthorize(t, stubValidator{err: auth.ErrExpiredToken}, zap.New(core))

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status code: got %d, want %d", recorder.Code, http.StatusUnauthorized)
	}
	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected exactly one log entry, got %d", len(entries))
	}
	if entries[0].Level != zapcore.InfoLevel {
		t.Fatalf("expected info level for expired token, got %s", entries[0].Level)
	}
	if entries[0].Message != "token validation failed" {
		t.Fatalf("unexpected log message: %q", entries[0].Message)
	}
}

func TestAuthorizeRequestLogsUnexpectedTokenErrorAtWarnLevel(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	recorder := runAuthorize(t, stubValidator{err: errors.New("signature mismatch")}, zap.New(core))

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status code: got %d, want %d", recorder.Code, http.StatusUnauthorized)
	}
	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected exactly one log entry, got %d", len(entries))
	}
	if entries[0].Level != zapcore.WarnLevel {
		t.Fatalf("expected warn level for unexpected error, got %s", entries[0].Level)
	}
}
