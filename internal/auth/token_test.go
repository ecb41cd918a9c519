package auth

import (
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/constituent-access/internal/config"
)

func testIdentityConfig() config.IdentityConfig {
	return config.IdentityConfig{JWTSecret: "test-secret", Issuer: "idp.test", Audience: "constituent-access", LeewaySeconds: 30}
}

func TestTokenVerifier_RoundTrip(t *testing.T) {
	v := NewTokenVerifier(testIdentityConfig())

	token, expiresAt, err := v.Sign(Identity{ID: "u-1", RoleHint: "staff_member"}, time.Hour)
	if err != nil {
		t.Fatalf("Sign returned error: %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Fatalf("expected future expiry")
	}

	id, err := v.Verify(token)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if id.ID != "u-1" || id.RoleHint != "staff_member" {
		t.Fatalf("unexpected identity %+v", id)
	}
}

func TestTokenVerifier_Rejects(t *testing.T) {
	cfg := testIdentityConfig()
	v := NewTokenVerifier(cfg)

	other := cfg
	other.JWTSecret = "another-secret"
	forged, _, err := NewTokenVerifier(other).Sign(Identity{ID: "u-1"}, time.Hour)
	if err != nil {
		t.Fatalf("Sign returned error: %v", err)
	}

	wrongAudience := cfg
	wrongAudience.Audience = "someone-else"
	misdirected, _, err := NewTokenVerifier(wrongAudience).Sign(Identity{ID: "u-1"}, time.Hour)
	if err != nil {
		t.Fatalf("Sign returned error: %v", err)
	}

	expired, _, err := v.Sign(Identity{ID: "u-1"}, -time.Hour)
	if err != nil {
		t.Fatalf("Sign returned error: %v", err)
	}

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u-1", Issuer: cfg.Issuer, Audience: jwt.ClaimStrings{cfg.Audience}},
	}).SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	noSubject, _, err := v.Sign(Identity{}, time.Hour)
	if err != nil {
		t.Fatalf("Sign returned error: %v", err)
	}

	for name, token := range map[string]string{
		"forged":         forged,
		"wrong audience": misdirected,
		"expired":        expired,
		"no expiry":      noExpiry,
		"no subject":     noSubject,
		"garbage":        "not-a-token",
	} {
		if _, err := v.Verify(token); err == nil {
			t.Fatalf("%s: expected verification failure", name)
		}
	}
}

func TestTokenVerifier_Leeway(t *testing.T) {
	v := NewTokenVerifier(testIdentityConfig())
	token, _, err := v.Sign(Identity{ID: "u-1"}, -10*time.Second)
	if err != nil {
		t.Fatalf("Sign returned error: %v", err)
	}
	if _, err := v.Verify(token); err != nil {
		t.Fatalf("token expired within leeway must verify: %v", err)
	}
}
