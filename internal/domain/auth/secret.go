package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/alexedwards/argon2id"
)

// Configured secret prefixes. A configured secret without a recognized
// prefix is compared as plaintext.
const (
	sha256Prefix   = "sha256:"
	argon2idPrefix = "argon2id:"
)

// VerifySecret compares a presented secret against a configured secret.
//
// The configured value may be plaintext, "sha256:<hex>", or
// "argon2id:<phc-hash>" produced by `if-mcp-server hash-secret`.
// Plaintext and SHA-256 comparisons are constant-time.
func VerifySecret(presented, configured string) bool {
	if presented == "" || configured == "" {
		return false
	}

	switch {
	case strings.HasPrefix(configured, sha256Prefix):
		want := strings.TrimPrefix(configured, sha256Prefix)
		sum := sha256.Sum256([]byte(presented))
		got := hex.EncodeToString(sum[:])
		return subtle.ConstantTimeCompare([]byte(got), []byte(strings.ToLower(want))) == 1

	case strings.HasPrefix(configured, argon2idPrefix):
		hash := strings.TrimPrefix(configured, argon2idPrefix)
		match, err := argon2id.ComparePasswordAndHash(presented, hash)
		return err == nil && match

	default:
		return subtle.ConstantTimeCompare([]byte(presented), []byte(configured)) == 1
	}
}

// HashSecret returns an "argon2id:"-prefixed hash of the secret, suitable
// for any auth secret field in the configuration file.
func HashSecret(secret string) (string, error) {
	hash, err := argon2id.CreateHash(secret, argon2id.DefaultParams)
	if err != nil {
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return argon2idPrefix + hash, nil
}

// GenerateSecret returns a cryptographically random URL-safe secret.
// Used at startup when auth is enabled but no secret is configured for
// the selected method.
func GenerateSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
