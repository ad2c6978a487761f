package github

import (
	"crypto/rand"
	"math/big"
	"strings"

	gogithub "github.com/google/go-github/v62/github"
)

const (
	// SignatureHeader carries the HMAC-SHA256 signature of the raw body
	SignatureHeader = "X-Hub-Signature-256"
	signaturePrefix = "sha256="

	secretLength   = 40
	secretAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// VerifySignature checks header against HMAC-SHA256(secret, body).
// Anything unexpected yields false: empty inputs, a prefix other than sha256=,
// non lower-case hex or a mismatch. The comparison is constant time.
func VerifySignature(body []byte, header, secret string) bool {
	if len(body) == 0 || header == "" || secret == "" {
		return false
	}
	hexPart, ok := strings.CutPrefix(header, signaturePrefix)
	if !ok || hexPart == "" || hexPart != strings.ToLower(hexPart) {
		return false
	}
	return gogithub.ValidateSignature(header, body, []byte(secret)) == nil
}

// WebhookVerifier binds a secret for repeated verification
type WebhookVerifier struct {
	secret string
}

// NewWebhookVerifier creates a verifier for one shared secret
func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{secret: secret}
}

// Verify reports whether the signature header matches the body
func (v *WebhookVerifier) Verify(body []byte, header string) bool {
	return VerifySignature(body, header, v.secret)
}

// GenerateSecret returns a 40 character alphanumeric secret from crypto/rand
func GenerateSecret() (string, error) {
	alphabetSize := big.NewInt(int64(len(secretAlphabet)))
	var b strings.Builder
	b.Grow(secretLength)
	for i := 0; i < secretLength; i++ {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", err
		}
		b.WriteByte(secretAlphabet[n.Int64()])
	}
	return b.String(), nil
}
