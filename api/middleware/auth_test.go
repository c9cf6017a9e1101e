package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	pkgauth "github.com/minhngo-dev/thiepcuoi-backend/pkg/auth"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/config"
)

type stubSessionVerifier struct {
	ok  bool
	err error
}

func (s stubSessionVerifier) HasSession(context.Context, string) (bool, error) {
	return s.ok, s.err
}

func middlewareJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "middleware-test-secret", Issuer: "thiepcuoi-test", ExpirationMinutes: 60}
}

func mintTestToken(t *testing.T, cfg config.JWTConfig, adminID uuid.UUID, jti string) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg, time.Now(), pkgauth.AccessTokenPayload{
		AdminID: adminID,
		Email:   "chu-re@thiepcuoi.test",
		JTI:     jti,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func okHandler() (http.Handler, *bool) {
	called := false
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}), &called
}

func TestAuthRejectsMissingToken(t *testing.T) {
	handler, called := okHandler()
	mw := Auth(middlewareJWTConfig(), stubSessionVerifier{ok: true}, nil)(handler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()
	mw.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
	if *called {
		t.Fatal("handler should not run without a token")
	}
}

func TestAuthRejectsGarbageToken(t *testing.T) {
	handler, _ := okHandler()
	mw := Auth(middlewareJWTConfig(), stubSessionVerifier{ok: true}, nil)(handler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	resp := httptest.NewRecorder()
	mw.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsRevokedSession(t *testing.T) {
	cfg := middlewareJWTConfig()
	token := mintTestToken(t, cfg, uuid.New(), uuid.NewString())

	handler, called := okHandler()
	mw := Auth(cfg, stubSessionVerifier{ok: false}, nil)(handler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	mw.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
	if *called {
		t.Fatal("handler should not run after logout revoked the session")
	}
}

func TestAuthSessionStoreDown(t *testing.T) {
	cfg := middlewareJWTConfig()
	token := mintTestToken(t, cfg, uuid.New(), uuid.NewString())

	handler, _ := okHandler()
	mw := Auth(cfg, stubSessionVerifier{err: errors.New("redis unavailable")}, nil)(handler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	mw.ServeHTTP(resp, req)
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}

func TestAuthSeedsContext(t *testing.T) {
	cfg := middlewareJWTConfig()
	adminID := uuid.New()
	jti := uuid.NewString()
	token := mintTestToken(t, cfg, adminID, jti)

	var captured struct {
		adminID  string
		email    string
		accessID string
	}
	mw := Auth(cfg, stubSessionVerifier{ok: true}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.adminID = AdminIDFromContext(r.Context())
		captured.email = AdminEmailFromContext(r.Context())
		captured.accessID = AccessIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	mw.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if captured.adminID != adminID.String() {
		t.Fatalf("expected admin id %s got %s", adminID, captured.adminID)
	}
	if captured.email != "chu-re@thiepcuoi.test" {
		t.Fatalf("unexpected email %q", captured.email)
	}
	if captured.accessID != jti {
		t.Fatalf("expected access id %s got %s", jti, captured.accessID)
	}
}
