// Package secret handles encryption and decryption of registry passwords.
// Tokens use the Fernet format, so registries encrypted by other tooling
// that speaks Fernet remain readable as long as the key matches.
package secret

import (
	"os"

	"github.com/fernet/fernet-go"

	"github.com/dbbridge/dbbridge/core/shared/errors"
)

const (
	// EnvKey is the environment variable holding the Fernet key.
	EnvKey = "DBBRIDGE_ENCRYPT_KEY"

	// keyNotSet is the fallback when EnvKey is absent. It is deliberately
	// not a parseable key, so every decrypt attempt fails loudly instead
	// of silently using an empty secret.
	keyNotSet = "encryption_key_not_set"
)

// Cipher encrypts and decrypts password fields with a single Fernet key.
type Cipher struct {
	key *fernet.Key
}

// NewCipher parses the encoded key and returns a Cipher for it.
func NewCipher(encodedKey string) (*Cipher, error) {
	key, err := fernet.DecodeKey(encodedKey)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidKey, "encryption key rejected", err)
	}
	return &Cipher{key: key}, nil
}

// CipherFromEnv builds a Cipher from the DBBRIDGE_ENCRYPT_KEY environment
// variable. A missing variable yields the not-set sentinel, which never
// parses, so the caller gets an invalid-key error rather than a zero key.
func CipherFromEnv() (*Cipher, error) {
	encodedKey := os.Getenv(EnvKey)
	if encodedKey == "" {
		encodedKey = keyNotSet
	}
	cipher, err := NewCipher(encodedKey)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidKey, "no usable encryption key in "+EnvKey, err)
	}
	return cipher, nil
}

// Encrypt encrypts a plaintext secret into a Fernet token.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	token, err := fernet.EncryptAndSign([]byte(plaintext), c.key)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidKey, "encryption failed", err)
	}
	return string(token), nil
}

// Decrypt verifies and decrypts a Fernet token. Tokens are accepted
// regardless of age; registry passwords do not expire.
func (c *Cipher) Decrypt(token string) (string, error) {
	plaintext := fernet.VerifyAndDecrypt([]byte(token), 0, []*fernet.Key{c.key})
	if plaintext == nil {
		return "", errors.New(errors.ErrCodeInvalidKey, "password decryption failed; check "+EnvKey)
	}
	return string(plaintext), nil
}

// GenerateKey returns a fresh base64-encoded Fernet key.
func GenerateKey() (string, error) {
	var key fernet.Key
	if err := key.Generate(); err != nil {
		return "", err
	}
	return key.Encode(), nil
}
