package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashSecret hashes a password or OTP code with bcrypt at the default
// cost. Both kinds of secret go through the same function so codes are
// never stored in plaintext.
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash secret: %w", err)
	}
	return string(hash), nil
}

// VerifySecret reports whether secret matches digest. A mismatch is not
// an error, only false.
func VerifySecret(secret, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(secret)) == nil
}
