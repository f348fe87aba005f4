package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// KeyFileName is the key file kept next to config.json
const KeyFileName = "key.bin"

// Cipher encrypts config secrets with AES-256-GCM using a key file
type Cipher struct {
	keyPath string
}

// NewCipher returns a cipher whose key lives in dir
func NewCipher(dir string) *Cipher {
	return &Cipher{keyPath: filepath.Join(dir, KeyFileName)}
}

// KeyPath returns the path to the encryption key file
func (c *Cipher) KeyPath() string {
	return c.keyPath
}

// key reads the key file, generating it on first use
func (c *Cipher) key() ([]byte, error) {
	// Check if key already exists
	if _, err := os.Stat(c.keyPath); err == nil {
		key, err := os.ReadFile(c.keyPath)
		if err != nil {
			return nil, fmt.Errorf("could not read key file: %w", err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("invalid key size: expected 32 bytes, got %d", len(key))
		}
		return key, nil
	}

	if err := os.MkdirAll(filepath.Dir(c.keyPath), 0755); err != nil {
		return nil, fmt.Errorf("could not create security directory: %w", err)
	}

	key := make([]byte, 32) // AES-256
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("could not generate random key: %w", err)
	}

	// Only readable by owner
	if err := os.WriteFile(c.keyPath, key, 0600); err != nil {
		return nil, fmt.Errorf("could not write key file: %w", err)
	}
	return key, nil
}

func (c *Cipher) gcm() (cipher.AEAD, error) {
	key, err := c.key()
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("could not create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("could not create GCM: %w", err)
	}
	return gcm, nil
}

// Encrypt returns base64(nonce || ciphertext). Empty input stays empty.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	gcm, err := c.gcm()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("could not generate nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt
func (c *Cipher) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("could not decode ciphertext: %w", err)
	}
	gcm, err := c.gcm()
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}
	nonce, sealed := data[:nonceSize], data[nonceSize:]

	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("could not decrypt: %w", err)
	}
	return string(plaintext), nil
}

// DecryptOrPlain decrypts value, returning it unchanged when it was never
// encrypted (hand-edited config files)
func (c *Cipher) DecryptOrPlain(value string) string {
	plain, err := c.Decrypt(value)
	if err != nil {
		return value
	}
	return plain
}
