package utils

import (
	"strings"
	"testing"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("changeme")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == "" || hash == "changeme" {
		t.Fatalf("unexpected hash %q", hash)
	}
	if !strings.HasPrefix(hash, "$2") {
		t.Errorf("expected a bcrypt hash, got %q", hash)
	}
}

func TestHashPassword_SaltedPerCall(t *testing.T) {
	hash1, _ := HashPassword("changeme")
	hash2, _ := HashPassword("changeme")

	if hash1 == hash2 {
		t.Error("the same password must hash differently on each call")
	}
}

func TestCheckPassword(t *testing.T) {
	hash, _ := HashPassword("correct-horse")

	tests := []struct {
		name     string
		password string
		hash     string
		want     bool
	}{
		{"matching password", "correct-horse", hash, true},
		{"wrong password", "battery-staple", hash, false},
		{"empty password", "", hash, false},
		{"near miss", "correct-horse1", hash, false},
		{"case sensitive", "Correct-Horse", hash, false},
		{"malformed hash", "correct-horse", "not-a-hash", false},
		{"empty hash", "correct-horse", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CheckPassword(tt.password, tt.hash); got != tt.want {
				t.Errorf("CheckPassword(%q) = %v, expected %v", tt.password, got, tt.want)
			}
		})
	}
}
