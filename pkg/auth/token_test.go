package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/danielvega/portfolio-backend/pkg/config"
)

func mintTestToken(t *testing.T, secret, issuer, subject string, expiresAt time.Time) string {
	t.Helper()
	claims := AccessTokenClaims{
		Email: "ana@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("mint test token: %v", err)
	}
	return token
}

func TestParseAccessToken(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "portfolio"}
	token := mintTestToken(t, cfg.Secret, cfg.Issuer, "identity-123", time.Now().Add(time.Hour))

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.IdentityID() != "identity-123" {
		t.Fatalf("expected subject identity-123, got %s", claims.IdentityID())
	}
	if claims.Email != "ana@example.com" {
		t.Fatalf("unexpected email %s", claims.Email)
	}
	if claims.Issuer != cfg.Issuer {
		t.Fatalf("expected issuer %s, got %s", cfg.Issuer, claims.Issuer)
	}
}

func TestParseAccessTokenInvalidSignature(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "portfolio"}
	token := mintTestToken(t, "other-secret", cfg.Issuer, "identity-123", time.Now().Add(time.Hour))

	if _, err := ParseAccessToken(cfg, token); err == nil {
		t.Fatal("expected invalid signature error")
	}
}

func TestParseAccessTokenExpired(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "portfolio"}
	token := mintTestToken(t, cfg.Secret, cfg.Issuer, "identity-123", time.Now().Add(-time.Hour))

	_, err := ParseAccessToken(cfg, token)
	if err == nil {
		t.Fatal("expected expiration error")
	}
	if !strings.Contains(err.Error(), "expired") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseAccessTokenWrongIssuer(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "portfolio"}
	token := mintTestToken(t, cfg.Secret, "somebody-else", "identity-123", time.Now().Add(time.Hour))

	if _, err := ParseAccessToken(cfg, token); err == nil {
		t.Fatal("expected issuer mismatch error")
	}
}

func TestParseAccessTokenMissingSubject(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "portfolio"}
	token := mintTestToken(t, cfg.Secret, cfg.Issuer, "  ", time.Now().Add(time.Hour))

	if _, err := ParseAccessToken(cfg, token); err == nil {
		t.Fatal("expected missing subject error")
	}
}
