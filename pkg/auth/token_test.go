package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/shipment-console/pkg/config"
	"github.com/angelmondragon/shipment-console/pkg/enums"
)

var testJWTConfig = config.JWTConfig{
	Secret: "secret",
	Issuer: "shipment-console",
}

func TestMintAndParseAccessToken(t *testing.T) {
	now := time.Now().UTC()
	payload := AccessTokenPayload{
		UserID:   "u-100",
		VendorID: "V1",
		Role:     enums.OperatorRoleVendor,
	}

	token, err := MintAccessToken(testJWTConfig, now, 30*time.Minute, payload)
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	claims, err := ParseAccessToken(testJWTConfig, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != "u-100" || claims.VendorID != "V1" {
		t.Fatalf("identity not preserved: %+v", claims)
	}
	if !claims.VendorScoped() {
		t.Fatalf("vendor operator should be vendor scoped")
	}
	if claims.Issuer != testJWTConfig.Issuer {
		t.Fatalf("expected issuer %s, got %s", testJWTConfig.Issuer, claims.Issuer)
	}
	if claims.ID == "" {
		t.Fatalf("expected generated jti")
	}

	exp := now.Add(30 * time.Minute)
	diff := claims.ExpiresAt.Sub(exp)
	if diff < 0 {
		diff = -diff
	}
	if diff >= time.Second {
		t.Fatalf("expected exp roughly %v, got %v", exp, claims.ExpiresAt.UTC())
	}
}

func TestAdminTokenIsNotVendorScoped(t *testing.T) {
	token, err := MintAccessToken(testJWTConfig, time.Now(), time.Minute, AccessTokenPayload{
		UserID: "admin-1",
		Role:   enums.OperatorRoleAdmin,
	})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}
	claims, err := ParseAccessToken(testJWTConfig, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.VendorScoped() {
		t.Fatalf("admin should see every vendor")
	}
}

func TestParseAccessTokenInvalidSignature(t *testing.T) {
	token, err := MintAccessToken(testJWTConfig, time.Now(), 10*time.Minute, AccessTokenPayload{
		UserID: "agent-1",
		Role:   enums.OperatorRoleAgent,
	})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	if _, err := ParseAccessToken(testJWTConfig, token+"x"); err == nil {
		t.Fatal("expected invalid signature error")
	}
	other := testJWTConfig
	other.Issuer = "someone-else"
	if _, err := ParseAccessToken(other, token); err == nil {
		t.Fatal("expected issuer mismatch error")
	}
}

func TestParseAccessTokenExpired(t *testing.T) {
	token, err := MintAccessToken(testJWTConfig, time.Now().Add(-time.Hour), 15*time.Minute, AccessTokenPayload{
		UserID: "agent-1",
		Role:   enums.OperatorRoleAgent,
	})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	_, err = ParseAccessToken(testJWTConfig, token)
	if err == nil {
		t.Fatal("expected expiration error")
	}
	if !strings.Contains(err.Error(), "expired") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMintAccessTokenRejectsBadPayloads(t *testing.T) {
	cases := map[string]AccessTokenPayload{
		"empty role":         {UserID: "u-1"},
		"unknown role":       {UserID: "u-1", Role: "owner"},
		"vendor without id":  {UserID: "u-1", Role: enums.OperatorRoleVendor},
		"missing user id":    {Role: enums.OperatorRoleAdmin},
		"whitespace user id": {UserID: "  ", Role: enums.OperatorRoleAdmin},
	}
	for name, payload := range cases {
		if _, err := MintAccessToken(testJWTConfig, time.Now(), time.Minute, payload); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if _, err := MintAccessToken(testJWTConfig, time.Now(), 0, AccessTokenPayload{UserID: "u", Role: enums.OperatorRoleAdmin}); err == nil {
		t.Fatal("expected ttl error")
	}
}
