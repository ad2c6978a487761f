package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/lent0n/jira-github-integration/internal/domain"
	"github.com/lent0n/jira-github-integration/internal/ports"
)

// LegacyDefaultKey is the key older installs shipped with. It is refused.
const LegacyDefaultKey = "github-integration-key-change-me"

const keySize = 32 // AES-256

// minEncryptedLength is the length above which valid base64 is assumed to be ciphertext
const minEncryptedLength = 20

var (
	ErrMissingKey = errors.New("encryption key is required")
	ErrDefaultKey = errors.New("encryption key must not be the shipped default")
)

// Service encrypts values with AES-256-GCM.
// Ciphertext is base64(nonce || sealed).
type Service struct {
	key []byte
}

var _ ports.EncryptionService = (*Service)(nil)

// NewService derives the cipher key from key material of any length
func NewService(keyMaterial string) (*Service, error) {
	keyMaterial = strings.TrimSpace(keyMaterial)
	if keyMaterial == "" {
		return nil, ErrMissingKey
	}
	if keyMaterial == LegacyDefaultKey {
		return nil, ErrDefaultKey
	}
	return &Service{key: deriveKey(keyMaterial)}, nil
}

func deriveKey(material string) []byte {
	sum := sha256.Sum256([]byte(material))
	return sum[:keySize]
}

// Encrypt returns "" for "" so unset secrets stay unset
func (s *Service) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	gcm, err := s.aead()
	if err != nil {
		return "", &domain.CryptoError{Op: "encrypt", Err: err}
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", &domain.CryptoError{Op: "encrypt", Err: fmt.Errorf("nonce generation failed: %w", err)}
	}
	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt returns "" for ""
func (s *Service) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", &domain.CryptoError{Op: "decrypt", Err: fmt.Errorf("decode ciphertext: %w", err)}
	}
	gcm, err := s.aead()
	if err != nil {
		return "", &domain.CryptoError{Op: "decrypt", Err: err}
	}
	if len(raw) < gcm.NonceSize() {
		return "", &domain.CryptoError{Op: "decrypt", Err: errors.New("ciphertext too short")}
	}
	nonce, sealed := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", &domain.CryptoError{Op: "decrypt", Err: err}
	}
	return string(plaintext), nil
}

// IsEncrypted is a heuristic: valid base64 longer than 20 characters counts as ciphertext.
// Long base64-looking plaintext is misclassified, so it only guards against double encryption.
func (s *Service) IsEncrypted(text string) bool {
	if len(text) <= minEncryptedLength {
		return false
	}
	_, err := base64.StdEncoding.DecodeString(text)
	return err == nil
}

func (s *Service) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return gcm, nil
}
