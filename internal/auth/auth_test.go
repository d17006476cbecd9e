package auth

import (
	"testing"
	"time"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	secret := "test-secret"
	token, err := GenerateAccessToken("user-1", []string{"user", "verified"}, secret, 15*time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := ParseAccessToken(token, secret)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Errorf("subject: %s", claims.Subject)
	}
	if len(claims.Roles) != 2 || claims.Roles[0] != "user" {
		t.Errorf("roles: %v", claims.Roles)
	}
}

func TestAccessTokenConfiguredTTL(t *testing.T) {
	secret := "test-secret"
	ttl := 42 * time.Minute
	token, err := GenerateAccessToken("user-1", nil, secret, ttl)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := ParseAccessToken(token, secret)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	lifetime := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	if lifetime != ttl {
		t.Errorf("token lifetime = %v, want %v", lifetime, ttl)
	}
}

func TestAccessTokenZeroTTLFallsBack(t *testing.T) {
	secret := "test-secret"
	token, err := GenerateAccessToken("user-1", nil, secret, 0)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := ParseAccessToken(token, secret)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	lifetime := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	if lifetime != DefaultAccessTokenTTL {
		t.Errorf("token lifetime = %v, want default %v", lifetime, DefaultAccessTokenTTL)
	}
}

func TestParseAccessTokenWrongSecret(t *testing.T) {
	token, err := GenerateAccessToken("user-1", nil, "secret-a", time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := ParseAccessToken(token, "secret-b"); err == nil {
		t.Error("expected signature verification failure")
	}
}

func TestParseAccessTokenGarbage(t *testing.T) {
	if _, err := ParseAccessToken("not.a.jwt", "secret"); err == nil {
		t.Error("expected parse failure")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "correct horse battery staple" {
		t.Fatal("password stored in plaintext")
	}
	if !CheckPassword("correct horse battery staple", hash) {
		t.Error("correct password rejected")
	}
	if CheckPassword("wrong", hash) {
		t.Error("wrong password accepted")
	}
}

func TestGenerateRefreshTokenUnique(t *testing.T) {
	a := GenerateRefreshToken()
	b := GenerateRefreshToken()
	if a == "" || a == b {
		t.Errorf("tokens not unique: %s, %s", a, b)
	}
}
