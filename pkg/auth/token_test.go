package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/statbricks/mbiz-backend/pkg/config"
	"github.com/statbricks/mbiz-backend/pkg/enums"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "mbiz-test",
		ExpirationMinutes: 30,
	}
}

func TestMintAndParseRoundTrip(t *testing.T) {
	cfg := testJWTConfig()
	payload := AccessTokenPayload{
		UserID:   uuid.New(),
		TenantID: uuid.New(),
		Role:     enums.MemberRoleOwner,
	}

	token, err := MintAccessToken(cfg, time.Now(), payload)
	if err != nil {
		t.Fatalf("MintAccessToken returned error: %v", err)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("ParseAccessToken returned error: %v", err)
	}
	if claims.UserID != payload.UserID {
		t.Fatalf("UserID = %s, want %s", claims.UserID, payload.UserID)
	}
	if claims.TenantID != payload.TenantID {
		t.Fatalf("TenantID = %s, want %s", claims.TenantID, payload.TenantID)
	}
	if claims.Role != enums.MemberRoleOwner {
		t.Fatalf("Role = %s, want %s", claims.Role, enums.MemberRoleOwner)
	}
	if claims.Issuer != cfg.Issuer {
		t.Fatalf("Issuer = %s, want %s", claims.Issuer, cfg.Issuer)
	}
	if claims.ID == "" {
		t.Fatal("expected non-empty jti")
	}
}

func TestMintValidation(t *testing.T) {
	cfg := testJWTConfig()
	now := time.Now()
	valid := AccessTokenPayload{UserID: uuid.New(), TenantID: uuid.New(), Role: enums.MemberRoleStaff}

	cases := []struct {
		name    string
		cfg     config.JWTConfig
		payload AccessTokenPayload
	}{
		{"missing secret", config.JWTConfig{Issuer: "x", ExpirationMinutes: 10}, valid},
		{"missing issuer", config.JWTConfig{Secret: "x", ExpirationMinutes: 10}, valid},
		{"zero expiry", config.JWTConfig{Secret: "x", Issuer: "x"}, valid},
		{"missing user", cfg, AccessTokenPayload{TenantID: uuid.New(), Role: enums.MemberRoleStaff}},
		{"missing tenant", cfg, AccessTokenPayload{UserID: uuid.New(), Role: enums.MemberRoleStaff}},
		{"bad role", cfg, AccessTokenPayload{UserID: uuid.New(), TenantID: uuid.New(), Role: enums.MemberRole("boss")}},
	}
	for _, tc := range cases {
		if _, err := MintAccessToken(tc.cfg, now, tc.payload); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestParseExpiredToken(t *testing.T) {
	cfg := testJWTConfig()
	payload := AccessTokenPayload{UserID: uuid.New(), TenantID: uuid.New(), Role: enums.MemberRoleAdmin}

	token, err := MintAccessToken(cfg, time.Now().Add(-2*time.Hour), payload)
	if err != nil {
		t.Fatalf("MintAccessToken returned error: %v", err)
	}
	if _, err := ParseAccessToken(cfg, token); err == nil {
		t.Fatal("expected expired token to fail validation")
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	cfg := testJWTConfig()
	payload := AccessTokenPayload{UserID: uuid.New(), TenantID: uuid.New(), Role: enums.MemberRoleOwner}

	token, err := MintAccessToken(cfg, time.Now(), payload)
	if err != nil {
		t.Fatalf("MintAccessToken returned error: %v", err)
	}

	other := cfg
	other.Secret = "different"
	if _, err := ParseAccessToken(other, token); err == nil {
		t.Fatal("expected signature mismatch to fail")
	}
}
