package routes

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	pkgAuth "github.com/statbricks/mbiz-backend/pkg/auth"
	"github.com/statbricks/mbiz-backend/pkg/config"
	"github.com/statbricks/mbiz-backend/pkg/enums"
	"github.com/statbricks/mbiz-backend/pkg/logger"
)

type rejectAllVerifier struct{}

func (rejectAllVerifier) VerifyWebhookSignature([]byte, string) bool {
	return false
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test"},
		JWT: config.JWTConfig{
			Secret:            "test-secret",
			Issuer:            "mbiz-test",
			ExpirationMinutes: 60,
		},
	}
}

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	return NewRouter(Deps{
		Config:  testConfig(),
		Logger:  logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Gateway: rejectAllVerifier{},
	})
}

func mintToken(t *testing.T, cfg *config.Config, role enums.MemberRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID:   uuid.New(),
		TenantID: uuid.New(),
		Role:     role,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestRouterHealthLive(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if got := resp.Header().Get("X-MBiz-Env"); got != "test" {
		t.Fatalf("unexpected env header %q", got)
	}
}

func TestRouterPublicPing(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/public/ping", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}

func TestRouterPrivatePingRequiresToken(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}

func TestRouterPrivatePingWithToken(t *testing.T) {
	cfg := testConfig()
	router := NewRouter(Deps{
		Config:  cfg,
		Logger:  logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Gateway: rejectAllVerifier{},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, enums.MemberRoleOwner))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data map[string]string `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data["tenant_id"] == "" {
		t.Fatal("expected tenant_id in ping response")
	}
}

func TestRouterWebhookRejectsBadSignature(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paystack", strings.NewReader(`{}`))
	req.Header.Set("X-Paystack-Signature", "bogus")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}

func TestRouterEnforcesOwnerRole(t *testing.T) {
	cfg := testConfig()
	router := NewRouter(Deps{
		Config:  cfg,
		Logger:  logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Gateway: rejectAllVerifier{},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/branches/"+uuid.NewString()+"/deactivate", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, enums.MemberRoleStaff))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}
