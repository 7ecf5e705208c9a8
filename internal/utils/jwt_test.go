package utils

import (
	"testing"
	"time"
)

func init() {
	SetJWTSecret("unit-test-signing-key")
}

func TestGenerateAndParseToken(t *testing.T) {
	token, err := GenerateToken(42, "operator", "admin", 24)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if token == "" {
		t.Fatal("GenerateToken() returned an empty token")
	}

	claims, err := ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.UserID != 42 {
		t.Errorf("UserID = %d, expected 42", claims.UserID)
	}
	if claims.Username != "operator" {
		t.Errorf("Username = %q, expected %q", claims.Username, "operator")
	}
	if claims.Role != "admin" {
		t.Errorf("Role = %q, expected %q", claims.Role, "admin")
	}
}

func TestGenerateToken_DistinctPerMember(t *testing.T) {
	token1, _ := GenerateToken(1, "alice", "admin", 24)
	token2, _ := GenerateToken(2, "technical-ci", "user", 24)

	if token1 == token2 {
		t.Error("different members should produce different tokens")
	}
}

func TestParseToken_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-token"},
		{"wrong segment count", "a.b"},
		{"tampered signature", "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.invalid.signature"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseToken(tt.token); err == nil {
				t.Errorf("ParseToken(%q) should return an error", tt.token)
			}
		})
	}
}

func TestParseToken_RotatedSecret(t *testing.T) {
	SetJWTSecret("before-rotation")
	token, _ := GenerateToken(1, "alice", "admin", 24)

	SetJWTSecret("after-rotation")
	_, err := ParseToken(token)

	SetJWTSecret("unit-test-signing-key")

	if err == nil {
		t.Error("a token signed before a key rotation must stop validating")
	}
}

func TestGenerateToken_Expiration(t *testing.T) {
	token, _ := GenerateToken(1, "alice", "admin", 1)
	claims, err := ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}

	expiresAt := claims.ExpiresAt.Time
	now := time.Now()
	if expiresAt.Before(now) {
		t.Error("fresh token must not already be expired")
	}
	diff := expiresAt.Sub(now.Add(time.Hour))
	if diff < -time.Minute || diff > time.Minute {
		t.Errorf("expiration off by more than a minute: %v", diff)
	}
}
