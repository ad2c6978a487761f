package ports

// EncryptionService encrypts secrets for storage at rest
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
	IsEncrypted(text string) bool
}
