package secret

import (
	"strings"
	"testing"
)

func testKey() []byte {
	return []byte("0123456789abcdef0123456789abcdef")
}

func TestNewCipherKeyLength(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{name: "valid 32 byte key", key: "0123456789abcdef0123456789abcdef", wantErr: false},
		{name: "too short", key: "short", wantErr: true},
		{name: "too long", key: "0123456789abcdef0123456789abcdef0", wantErr: true},
		{name: "empty", key: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCipher([]byte(tt.key))
			if tt.wantErr && err != ErrInvalidSecretLength {
				t.Errorf("expected ErrInvalidSecretLength, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c, err := NewCipher(testKey())
	if err != nil {
		t.Fatalf("NewCipher: %v", err)
	}

	tests := []struct {
		name  string
		value string
	}{
		{name: "simple", value: "hunter2"},
		{name: "empty string", value: ""},
		{name: "block sized", value: strings.Repeat("a", 16)},
		{name: "long value", value: strings.Repeat("secret value ", 100)},
		{name: "unicode", value: "пароль 密码 🔑"},
		{name: "contains separator", value: "left:right:more"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stored, err := c.Encrypt(tt.value)
			if err != nil {
				t.Fatalf("Encrypt: %v", err)
			}
			if !strings.Contains(stored, ":") {
				t.Fatalf("stored form %q missing separator", stored)
			}
			got, err := c.Decrypt(stored)
			if err != nil {
				t.Fatalf("Decrypt: %v", err)
			}
			if got != tt.value {
				t.Errorf("round trip = %q, want %q", got, tt.value)
			}
		})
	}
}

func TestEncryptUsesFreshIV(t *testing.T) {
	c, err := NewCipher(testKey())
	if err != nil {
		t.Fatalf("NewCipher: %v", err)
	}

	first, err := c.Encrypt("same plaintext")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	second, err := c.Encrypt("same plaintext")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if first == second {
		t.Error("two encryptions of the same plaintext produced identical stored forms")
	}
}

func TestDecryptMalformedInput(t *testing.T) {
	c, err := NewCipher(testKey())
	if err != nil {
		t.Fatalf("NewCipher: %v", err)
	}

	tests := []struct {
		name   string
		stored string
	}{
		{name: "no separator", stored: "deadbeef"},
		{name: "empty", stored: ""},
		{name: "bad iv hex", stored: "zz:deadbeef"},
		{name: "short iv", stored: "abcd:00112233445566778899aabbccddeeff"},
		{name: "bad ciphertext hex", stored: strings.Repeat("a", 32) + ":not-hex"},
		{name: "ciphertext not block aligned", stored: strings.Repeat("a", 32) + ":deadbeef"},
		{name: "empty ciphertext", stored: strings.Repeat("a", 32) + ":"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := c.Decrypt(tt.stored); err == nil {
				t.Errorf("Decrypt(%q) succeeded, want error", tt.stored)
			}
		})
	}
}

func TestDecryptWrongKey(t *testing.T) {
	c1, _ := NewCipher(testKey())
	c2, _ := NewCipher([]byte("ffffffffffffffffffffffffffffffff"))

	stored, err := c1.Encrypt("classified")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if got, err := c2.Decrypt(stored); err == nil && got == "classified" {
		t.Error("decryption with a different key recovered the plaintext")
	}
}

func TestStoredIVIsReversedHex(t *testing.T) {
	c, _ := NewCipher(testKey())
	stored, err := c.Encrypt("value")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	parts := strings.SplitN(stored, ":", 2)
	if len(parts) != 2 {
		t.Fatalf("stored form %q not in iv:ciphertext shape", stored)
	}
	if len(parts[0]) != 32 {
		t.Errorf("iv segment length = %d, want 32 hex characters", len(parts[0]))
	}
	// The segment only becomes valid hex again after reversal when it
	// contains mixed characters, so just check the alphabet here.
	for _, r := range parts[0] {
		if !strings.ContainsRune("0123456789abcdef", r) {
			t.Errorf("iv segment contains non-hex character %q", r)
		}
	}
}
