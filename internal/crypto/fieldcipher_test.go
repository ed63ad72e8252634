package crypto

import (
	"bytes"
	"strings"
	"testing"
)

// testKey returns a valid 32-byte key for use in tests.
func testKey() []byte {
	return bytes.Repeat([]byte("k"), 32)
}

func TestNewFieldCipher(t *testing.T) {
	if _, err := NewFieldCipher(testKey()); err != nil {
		t.Fatalf("NewFieldCipher() unexpected error: %v", err)
	}

	for _, n := range []int{0, 16, 31, 33, 64} {
		if _, err := NewFieldCipher(make([]byte, n)); err != ErrKeyLengthInvalid {
			t.Errorf("NewFieldCipher(len=%d) error = %v, want %v", n, err, ErrKeyLengthInvalid)
		}
	}
}

func TestNewFieldCipherIsolatesKey(t *testing.T) {
	key := testKey()
	fc, err := NewFieldCipher(key)
	if err != nil {
		t.Fatalf("NewFieldCipher() error: %v", err)
	}
	sealed, _ := fc.Seal("010-1234-5678")

	for i := range key {
		key[i] = 0
	}

	got, err := fc.Open(sealed)
	if err != nil || got != "010-1234-5678" {
		t.Errorf("Open() after key mutation = %q, %v", got, err)
	}
}

func TestDeriveFieldCipher(t *testing.T) {
	salt := bytes.Repeat([]byte("s"), 16)

	if _, err := DeriveFieldCipher("passphrase", make([]byte, 8), 100000); err != ErrSaltTooShort {
		t.Errorf("short salt error = %v, want %v", err, ErrSaltTooShort)
	}

	fc1, err := DeriveFieldCipher("passphrase-one", salt, 1)
	if err != nil {
		t.Fatalf("DeriveFieldCipher() error: %v", err)
	}
	fc2, _ := DeriveFieldCipher("passphrase-two", salt, 1)

	sealed, _ := fc1.Seal("secret")
	if _, err := fc2.Open(sealed); err == nil {
		t.Error("cipher derived from another passphrase decrypted the value")
	}
}

func TestFromEncryptionKey(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		if _, err := FromEncryptionKey(""); err != ErrMissingKey {
			t.Errorf("error = %v, want %v", err, ErrMissingKey)
		}
	})

	t.Run("hex key is used raw", func(t *testing.T) {
		hexKey := strings.Repeat("6b", 32) // 32 bytes of 'k'
		fromHex, err := FromEncryptionKey(hexKey)
		if err != nil {
			t.Fatalf("FromEncryptionKey(hex) error: %v", err)
		}
		raw, _ := NewFieldCipher(testKey())
		sealed, _ := raw.Seal("010-0000-0000")
		if got, err := fromHex.Open(sealed); err != nil || got != "010-0000-0000" {
			t.Errorf("hex-derived cipher Open() = %q, %v", got, err)
		}
	})

	t.Run("passphrase is stretched", func(t *testing.T) {
		a, err := FromEncryptionKey("correct horse battery staple")
		if err != nil {
			t.Fatalf("FromEncryptionKey(passphrase) error: %v", err)
		}
		b, _ := FromEncryptionKey("correct horse battery staple")
		sealed, _ := a.Seal("010-9999-9999")
		if got, err := b.Open(sealed); err != nil || got != "010-9999-9999" {
			t.Errorf("same passphrase should yield same key; Open() = %q, %v", got, err)
		}
	})
}

func TestSealAndOpen(t *testing.T) {
	fc, _ := NewFieldCipher(testKey())

	for _, pt := range []string{"010-1234-5678", "+82 10 1234 5678", "연락처: 02-123-4567", "newline\nand\ttabs"} {
		sealed, err := fc.Seal(pt)
		if err != nil {
			t.Fatalf("Seal(%q) error: %v", pt, err)
		}
		if sealed == "" || sealed == pt {
			t.Fatalf("Seal(%q) = %q, want ciphertext", pt, sealed)
		}
		opened, err := fc.Open(sealed)
		if err != nil || opened != pt {
			t.Errorf("Open() = %q, %v; want %q", opened, err, pt)
		}
	}
}

func TestSealEmptyString(t *testing.T) {
	fc, _ := NewFieldCipher(testKey())

	if sealed, err := fc.Seal(""); err != nil || sealed != "" {
		t.Errorf("Seal(\"\") = %q, %v; want empty", sealed, err)
	}
	if opened, err := fc.Open(""); err != nil || opened != "" {
		t.Errorf("Open(\"\") = %q, %v; want empty", opened, err)
	}
}

func TestSealNonDeterministic(t *testing.T) {
	fc, _ := NewFieldCipher(testKey())
	s1, _ := fc.Seal("same-plaintext")
	s2, _ := fc.Seal("same-plaintext")
	if s1 == s2 {
		t.Error("Seal() produced identical ciphertexts; nonce is not random")
	}
}

func TestOpenErrors(t *testing.T) {
	fc, _ := NewFieldCipher(testKey())

	tests := []struct {
		name       string
		ciphertext string
		wantErr    error
	}{
		{"not base64", "!!!not-base64!!!", ErrCiphertextCorrupted},
		{"shorter than nonce", "YQ==", ErrCiphertextCorrupted},
		{"garbage", "dGhpcyBpcyBub3QgYSB2YWxpZCBjaXBoZXJ0ZXh0", ErrDecryptionFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := fc.Open(tt.ciphertext); err != tt.wantErr {
				t.Errorf("Open(%q) error = %v, want %v", tt.ciphertext, err, tt.wantErr)
			}
		})
	}
}

func TestGenerateKey(t *testing.T) {
	key, err := GenerateKey()
	if err != nil || len(key) != 32 {
		t.Fatalf("GenerateKey() = len %d, %v", len(key), err)
	}
	key2, _ := GenerateKey()
	if bytes.Equal(key, key2) {
		t.Error("GenerateKey() produced identical keys")
	}
}
