// Package crypto provides AES-256-GCM authenticated encryption for personal
// data stored at rest, such as the phone numbers left on the contact form.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

var (
	// ErrKeyLengthInvalid is returned when a master key is not exactly 32 bytes.
	ErrKeyLengthInvalid = errors.New("crypto: key must be exactly 32 bytes for AES-256")
	// ErrCiphertextCorrupted is returned when the ciphertext fails base64 decoding or is too short to contain a nonce.
	ErrCiphertextCorrupted = errors.New("crypto: ciphertext is corrupted or tampered")
	// ErrDecryptionFailed is returned when AES-GCM authentication fails.
	ErrDecryptionFailed = errors.New("crypto: decryption operation failed")
	// ErrSaltTooShort is returned when the salt is shorter than 16 bytes.
	ErrSaltTooShort = errors.New("crypto: salt must be at least 16 bytes")
	// ErrMissingKey is returned by FromEncryptionKey for an empty key.
	ErrMissingKey = errors.New("crypto: ENCRYPTION_KEY is not set")
)

// keySalt is the PBKDF2 salt used when ENCRYPTION_KEY is a passphrase rather
// than a hex-encoded key. Changing it makes stored ciphertexts unreadable.
var keySalt = []byte("admitai-contact-pii-v1")

// FieldCipher encrypts and decrypts individual column values
type FieldCipher struct {
	masterKey []byte
}

// NewFieldCipher creates a cipher with a 32-byte master key
func NewFieldCipher(masterKey []byte) (*FieldCipher, error) {
	if len(masterKey) != 32 {
		return nil, ErrKeyLengthInvalid
	}
	keyCopy := make([]byte, 32)
	copy(keyCopy, masterKey)
	return &FieldCipher{masterKey: keyCopy}, nil
}

// DeriveFieldCipher creates a cipher by deriving a key from a passphrase
func DeriveFieldCipher(passphrase string, salt []byte, iterations int) (*FieldCipher, error) {
	if len(salt) < 16 {
		return nil, ErrSaltTooShort
	}
	if iterations < 10000 {
		iterations = 100000
	}
	derivedKey := pbkdf2.Key([]byte(passphrase), salt, iterations, 32, sha256.New)
	return NewFieldCipher(derivedKey)
}

// FromEncryptionKey builds a cipher from the ENCRYPTION_KEY setting. A value of
// 64 hex characters is used as the raw key; anything else is treated as a
// passphrase and stretched with PBKDF2.
func FromEncryptionKey(key string) (*FieldCipher, error) {
	if key == "" {
		return nil, ErrMissingKey
	}
	if len(key) == 64 {
		if raw, err := hex.DecodeString(key); err == nil {
			return NewFieldCipher(raw)
		}
	}
	return DeriveFieldCipher(key, keySalt, 0)
}

func (fc *FieldCipher) aead() (cipher.AEAD, error) {
	blockCipher, err := aes.NewCipher(fc.masterKey)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(blockCipher)
}

// Seal encrypts plaintext and returns a base64-encoded ciphertext. The empty
// string seals to the empty string.
func (fc *FieldCipher) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	aead, err := fc.aead()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.URLEncoding.EncodeToString(sealed), nil
}

// Open decrypts a base64-encoded ciphertext and returns the plaintext
func (fc *FieldCipher) Open(encodedCiphertext string) (string, error) {
	if encodedCiphertext == "" {
		return "", nil
	}

	ciphertext, err := base64.URLEncoding.DecodeString(encodedCiphertext)
	if err != nil {
		return "", ErrCiphertextCorrupted
	}

	aead, err := fc.aead()
	if err != nil {
		return "", err
	}

	nonceLen := aead.NonceSize()
	if len(ciphertext) < nonceLen {
		return "", ErrCiphertextCorrupted
	}

	plaintext, err := aead.Open(nil, ciphertext[:nonceLen], ciphertext[nonceLen:], nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plaintext), nil
}

// GenerateKey creates a cryptographically secure random 32-byte key
func GenerateKey() ([]byte, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, err
	}
	return key, nil
}
