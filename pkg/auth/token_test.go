package auth

import (
	"testing"
	"time"

	"github.com/ecoforge/ecoforge-backend/pkg/config"
	"github.com/ecoforge/ecoforge-backend/pkg/enums"
)

func tokenTestConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "ecoforge-test",
		ExpirationMinutes: 5,
	}
}

func TestMintAndParseRoundTrip(t *testing.T) {
	cfg := tokenTestConfig()
	signed, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{
		UserID: "user-1",
		Role:   enums.MemberRoleAdmin,
		JTI:    "session-1",
	})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	claims, err := ParseAccessToken(cfg, signed)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Fatalf("unexpected user %q", claims.UserID)
	}
	if claims.Role != enums.MemberRoleAdmin {
		t.Fatalf("unexpected role %q", claims.Role)
	}
	if claims.ID != "session-1" {
		t.Fatalf("unexpected jti %q", claims.ID)
	}
}

func TestMintGeneratesJTIWhenOmitted(t *testing.T) {
	cfg := tokenTestConfig()
	signed, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{
		UserID: "user-1",
		Role:   enums.MemberRoleUser,
	})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	claims, err := ParseAccessToken(cfg, signed)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.ID == "" {
		t.Fatal("expected generated jti")
	}
}

func TestMintRejectsInvalidRole(t *testing.T) {
	_, err := MintAccessToken(tokenTestConfig(), time.Now(), AccessTokenPayload{
		UserID: "user-1",
		Role:   enums.MemberRole("overlord"),
	})
	if err == nil {
		t.Fatal("expected error for invalid role")
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	cfg := tokenTestConfig()
	signed, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{
		UserID: "user-1",
		Role:   enums.MemberRoleUser,
	})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	other := cfg
	other.Secret = "different-secret"
	if _, err := ParseAccessToken(other, signed); err == nil {
		t.Fatal("expected signature verification failure")
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	cfg := tokenTestConfig()
	signed, err := MintAccessToken(cfg, time.Now().Add(-time.Hour), AccessTokenPayload{
		UserID: "user-1",
		Role:   enums.MemberRoleUser,
	})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	if _, err := ParseAccessToken(cfg, signed); err == nil {
		t.Fatal("expected expiry rejection")
	}
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	minted := tokenTestConfig()
	minted.Issuer = "someone-else"
	signed, err := MintAccessToken(minted, time.Now(), AccessTokenPayload{
		UserID: "user-1",
		Role:   enums.MemberRoleUser,
	})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	if _, err := ParseAccessToken(tokenTestConfig(), signed); err == nil {
		t.Fatal("expected issuer rejection")
	}
}
