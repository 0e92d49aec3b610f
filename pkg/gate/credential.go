package gate

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// minSecretBytes is the minimum decoded key length: 256 bits, matching the
// HMAC-SHA256 strength the rest of the system signs with.
const minSecretBytes = 32

// placeholderMarkers are substrings of known shipped-by-default secrets.
// A secret containing one of these has never been rotated.
var placeholderMarkers = []string{
	"change-in-production",
	"your-256-bit",
}

// CredentialValidator holds the process-wide AI-engine API key and compares
// presented credentials against it in constant time.
type CredentialValidator struct {
	secret string
}

// NewCredentialValidator validates the configured secret and returns a
// comparator for it. The secret must be set, must be valid base64 and must
// decode to at least 32 bytes; any violation is an error and the caller
// must refuse to serve. A placeholder secret is an error in strict mode and
// a loud warning otherwise.
func NewCredentialValidator(secret string, strict bool, log *zap.SugaredLogger) (*CredentialValidator, error) {
	if err := CheckSecret(secret, strict, log); err != nil {
		return nil, err
	}
	return &CredentialValidator{secret: secret}, nil
}

// CheckSecret runs the full startup validation for a configured secret:
// placeholder detection on the raw string, then structural validation.
// A placeholder is an error in strict mode and a loud warning otherwise;
// structural violations are always errors. Shared by the gate credential
// and the session token signing key.
func CheckSecret(secret string, strict bool, log *zap.SugaredLogger) error {
	// Placeholder detection runs on the raw configured string before any
	// decoding, so a never-rotated default gets the specific diagnostic
	// rather than a generic encoding error.
	for _, marker := range placeholderMarkers {
		if strings.Contains(secret, marker) {
			if strict {
				return fmt.Errorf("secret key appears to be a default/placeholder value (contains %q): rotate it before serving", marker)
			}
			log.Warnf("secret key appears to be a default/placeholder value (contains %q); change it immediately for production", marker)
			break
		}
	}

	return ValidateSecret(secret)
}

// ValidateSecret checks that secret is present, base64-encoded and decodes
// to at least 32 bytes. Shared by the gate credential and the session token
// signing key, which follow the same strength rules.
func ValidateSecret(secret string) error {
	if strings.TrimSpace(secret) == "" {
		return fmt.Errorf("secret key is not set: generate one with: openssl rand -base64 32")
	}

	raw, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return fmt.Errorf("secret key is not valid base64: generate a proper key with: openssl rand -base64 32")
	}

	if len(raw) < minSecretBytes {
		return fmt.Errorf("secret key is too short (%d bytes decoded): minimum %d bytes (256-bit) required", len(raw), minSecretBytes)
	}

	return nil
}

// Matches reports whether presented equals the configured secret. The
// comparison runs in constant time with respect to the secret's value so
// partial matches are not distinguishable by timing.
func (v *CredentialValidator) Matches(presented string) bool {
	return subtle.ConstantTimeCompare([]byte(presented), []byte(v.secret)) == 1
}
