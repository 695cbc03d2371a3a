package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/angelmondragon/marco-pos/pkg/auth"
	"github.com/angelmondragon/marco-pos/pkg/config"
	"github.com/angelmondragon/marco-pos/pkg/enums"
)

var jwtCfg = config.JWTConfig{Secret: "secret", Issuer: "marco-pos", ExpirationMinutes: 60}

func okHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestAuthRejectsMissingToken(t *testing.T) {
	handler := Auth(jwtCfg, "demo@marco-pos.app", nil)(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	handler := Auth(jwtCfg, "demo@marco-pos.app", nil)(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthAllowsValidToken(t *testing.T) {
	token, err := auth.MintCashierToken(jwtCfg, time.Now(), auth.CashierTokenPayload{
		Email: "mere@marco-pos.app",
		Role:  enums.MemberRoleCashier,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	var cashier, role string
	handler := Auth(jwtCfg, "demo@marco-pos.app", nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cashier = CashierFromContext(r.Context())
		role = RoleFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if cashier != "mere@marco-pos.app" || role != "cashier" {
		t.Fatalf("unexpected identity %q %q", cashier, role)
	}
}

func TestAuthDisabledUsesDefaultCashier(t *testing.T) {
	var cashier, role string
	handler := Auth(config.JWTConfig{}, "demo@marco-pos.app", nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cashier = CashierFromContext(r.Context())
		role = RoleFromContext(r.Context())
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if cashier != "demo@marco-pos.app" || role != "owner" {
		t.Fatalf("unexpected identity %q %q", cashier, role)
	}
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole("owner", nil)(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithIdentity(req.Context(), "mere@marco-pos.app", "cashier"))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}

	req = req.WithContext(WithIdentity(req.Context(), "owner@marco-pos.app", "owner"))
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}
