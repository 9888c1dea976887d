package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/MrEthical07/goCred/internal/config"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "Adm1n!pass"
	adminKey      = "reset-key"
)

func testSettings() *config.Settings {
	return &config.Settings{
		Admin:     config.AdminSettings{Key: adminKey},
		Bootstrap: config.BootstrapSettings{AdminEmail: adminEmail, AdminPassword: adminPassword},
		Source:    config.SourceSettings{Timeout: time.Second},
		Attempts:  config.AttemptsSettings{Max: 2, Lockout: time.Minute, Store: config.StoreMemory},
		Token:     config.TokenSettings{ExchangeMode: config.ExchangeREST},
		Audit:     config.AuditSettings{Enabled: false},
		Metrics:   config.MetricsSettings{Enabled: true},
	}
}

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	s := testSettings()
	engine, cleanup, err := buildEngine(context.Background(), s, zap.NewNop())
	if err != nil {
		t.Fatalf("buildEngine: %v", err)
	}
	t.Cleanup(cleanup)
	return newRouter(engine, s, zap.NewNop())
}

func doJSON(t *testing.T, h http.Handler, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.RemoteAddr = "192.0.2.10:51000"
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func loginBody(email, password string) string {
	b, _ := json.Marshal(loginRequest{Email: email, Password: password})
	return string(b)
}

func TestLoginSuccess(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/auth/login", loginBody(adminEmail, adminPassword), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var got map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["email"] != adminEmail || got["role"] != "admin" || got["id"] != "bootstrap-admin" {
		t.Fatalf("unexpected identity %v", got)
	}
	if _, leaked := got["Source"]; leaked {
		t.Fatalf("internal fields leaked: %v", got)
	}
}

func TestLoginFailureThenLockout(t *testing.T) {
	h := newTestServer(t)
	body := loginBody(adminEmail, "wrong")

	rec := doJSON(t, h, http.MethodPost, "/api/auth/login", body, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("first failure: expected 401, got %d", rec.Code)
	}
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Remaining == nil || *resp.Remaining != 1 {
		t.Fatalf("expected remaining 1, got %+v", resp)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/auth/login", body, nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second failure: expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Fatalf("expected Retry-After 60, got %q", rec.Header().Get("Retry-After"))
	}

	// The guard answers before the body is read.
	rec = doJSON(t, h, http.MethodPost, "/api/auth/login", loginBody(adminEmail, adminPassword), nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("locked: expected 429, got %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodDelete, "/api/auth/attempts/192.0.2.10", "", map[string]string{
		"Authorization": "Bearer " + adminKey,
	})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("reset: expected 204, got %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/auth/login", loginBody(adminEmail, adminPassword), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("after reset: expected 200, got %d", rec.Code)
	}
}

func TestLoginRejectsMalformedBody(t *testing.T) {
	h := newTestServer(t)
	rec := doJSON(t, h, http.MethodPost, "/api/auth/login", "{", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestResetAttemptsRequiresKey(t *testing.T) {
	h := newTestServer(t)
	rec := doJSON(t, h, http.MethodDelete, "/api/auth/attempts/192.0.2.10", "", map[string]string{
		"Authorization": "Bearer nope",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestValidatePasswordRoute(t *testing.T) {
	h := newTestServer(t)

	tests := []struct {
		password  string
		wantValid bool
	}{
		{"Str0ng!Pass", true},
		{"short", false},
	}
	for _, tt := range tests {
		body, _ := json.Marshal(validateRequest{Password: tt.password})
		rec := doJSON(t, h, http.MethodPost, "/api/auth/password/validate", string(body), nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%q: expected 200, got %d", tt.password, rec.Code)
		}
		var got validateResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.Valid != tt.wantValid {
			t.Fatalf("%q: expected valid=%v, got %+v", tt.password, tt.wantValid, got)
		}
		if !tt.wantValid && len(got.Errors) == 0 {
			t.Fatalf("%q: expected errors", tt.password)
		}
	}
}

func TestMetricsAndHealthRoutes(t *testing.T) {
	h := newTestServer(t)
	_ = doJSON(t, h, http.MethodPost, "/api/auth/login", loginBody(adminEmail, adminPassword), nil)

	rec := doJSON(t, h, http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics: expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "credgate_login_success_total") {
		t.Fatalf("metrics output missing login counter:\n%s", rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz: got %d %q", rec.Code, rec.Body.String())
	}
}

func TestBuildSourcesRequiresOne(t *testing.T) {
	s := testSettings()
	s.Bootstrap = config.BootstrapSettings{}
	if _, _, err := buildSources(context.Background(), s, zap.NewNop()); err == nil {
		t.Fatal("expected error without sources")
	}
}

func TestBuildSourcesOrder(t *testing.T) {
	s := testSettings()
	s.Directory = config.DirectorySettings{URL: "https://dir.example.com", Key: "anon"}

	sources, cleanup, err := buildSources(context.Background(), s, zap.NewNop())
	if err != nil {
		t.Fatalf("buildSources: %v", err)
	}
	defer cleanup()

	if len(sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(sources))
	}
	if sources[0].Name() != "directory" || sources[1].Name() != "bootstrap" {
		t.Fatalf("unexpected order %s, %s", sources[0].Name(), sources[1].Name())
	}
}
