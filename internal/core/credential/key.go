package credential

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

// MinKeyBytes is the shortest secret accepted for HS256 (256 bits).
const MinKeyBytes = 32

var (
	ErrMissingSigningKey = errors.New("credential: signing key is not configured")
	ErrWeakSigningKey    = fmt.Errorf("credential: signing key must be at least %d bytes", MinKeyBytes)
)

// SigningKey is the shared HMAC secret. The canonical encoding is the raw
// UTF-8 bytes of the configured secret string: the issuing and the verifying
// services must be configured with the same string, nothing is base64
// decoded on either side.
type SigningKey struct {
	material []byte
}

// NewSigningKey builds the key from the configured secret.
func NewSigningKey(secret string) (SigningKey, error) {
	if secret == "" {
		return SigningKey{}, ErrMissingSigningKey
	}
	if len(secret) < MinKeyBytes {
		return SigningKey{}, ErrWeakSigningKey
	}
	return SigningKey{material: []byte(secret)}, nil
}

// Fingerprint is a short, non-reversible tag of the key material. Services
// log it at startup so mismatched secrets can be spotted by comparing logs.
func (k SigningKey) Fingerprint() string {
	if len(k.material) == 0 {
		return ""
	}
	sum := sha256.Sum256(k.material)
	return hex.EncodeToString(sum[:4])
}

func (k SigningKey) bytes() []byte {
	return k.material
}

func (k SigningKey) isZero() bool {
	return len(k.material) == 0
}
