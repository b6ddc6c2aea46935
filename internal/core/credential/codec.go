// Package credential issues and verifies the signed, time-bounded tokens that
// carry a caller's Identity between services.
//
// Tokens are compact HS256 JWS strings (header.payload.signature) whose
// payload holds the identity under the fixed claim names "id" and "role",
// next to the registered "iss", "sub", "iat" and "exp" claims.
package credential

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/feedbackhub/feedback-system/internal/core/domain"
)

// DefaultTTL is the validity window of an issued credential.
const DefaultTTL = 10 * time.Hour

// Credential is a signed assertion binding an Identity to an expiry instant.
type Credential struct {
	Token     string
	Identity  domain.Identity
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type identityClaims struct {
	UserID string `json:"id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Codec issues and verifies credentials with a single shared key. It holds
// no mutable state and is safe for concurrent use.
type Codec struct {
	key    SigningKey
	ttl    time.Duration
	issuer string
	now    func() time.Time
	parser *jwt.Parser
}

// Option customises a Codec.
type Option func(*Codec)

// WithClock replaces time.Now; used by tests to move across the expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// WithIssuer stamps "iss" on issued tokens and requires it on verification.
func WithIssuer(issuer string) Option {
	return func(c *Codec) { c.issuer = issuer }
}

// NewCodec returns a codec bound to key. A non-positive ttl falls back to
// DefaultTTL.
func NewCodec(key SigningKey, ttl time.Duration, opts ...Option) *Codec {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Codec{
		key:    key,
		ttl:    ttl,
		now:    time.Now,
		parser: jwt.NewParser(jwt.WithStrictDecoding()),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the validity window applied by Issue.
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Issue signs a credential for identity, valid from now for the codec TTL.
func (c *Codec) Issue(identity domain.Identity) (Credential, error) {
	if c.key.isZero() {
		return Credential{}, ErrMissingSigningKey
	}
	if identity.Subject == "" {
		return Credential{}, fmt.Errorf("issue credential: %w: empty subject", domain.ErrInvalidInput)
	}
	if _, err := domain.ParseRole(string(identity.Role)); err != nil {
		return Credential{}, fmt.Errorf("issue credential: %w", err)
	}

	now := c.now()
	claims := identityClaims{
		UserID: identity.Subject,
		Role:   string(identity.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   identity.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key.bytes())
	if err != nil {
		return Credential{}, fmt.Errorf("issue credential: sign: %w", err)
	}

	return Credential{
		Token:     signed,
		Identity:  identity,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Verify checks structure, expiry and signature of token and returns the
// identity it carries. Every failure wraps domain.ErrUnauthenticated and is
// one of domain.ErrMalformedToken, domain.ErrTokenExpired or
// domain.ErrSignatureMismatch. Expiry is evaluated before the signature.
func (c *Codec) Verify(token string) (id domain.Identity, err error) {
	defer func() {
		// Nothing in here may turn a panic into an accepted token.
		if r := recover(); r != nil {
			id, err = domain.Identity{}, domain.ErrMalformedToken
		}
	}()

	if c.key.isZero() {
		return domain.Identity{}, domain.ErrSignatureMismatch
	}
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return domain.Identity{}, domain.ErrMalformedToken
	}

	// The signature segment is left out here so that a damaged signature
	// surfaces as a mismatch after the expiry check, not as a parse error.
	var claims identityClaims
	parsed, _, err := c.parser.ParseUnverified(parts[0]+"."+parts[1]+".", &claims)
	if err != nil {
		return domain.Identity{}, domain.ErrMalformedToken
	}
	if parsed.Method == nil || parsed.Method.Alg() != jwt.SigningMethodHS256.Alg() {
		return domain.Identity{}, domain.ErrMalformedToken
	}

	if claims.ExpiresAt == nil {
		return domain.Identity{}, domain.ErrMalformedToken
	}
	if !c.now().Before(claims.ExpiresAt.Time) {
		return domain.Identity{}, domain.ErrTokenExpired
	}

	sig, err := c.parser.DecodeSegment(parts[2])
	if err != nil || len(sig) == 0 {
		return domain.Identity{}, domain.ErrSignatureMismatch
	}
	if err := jwt.SigningMethodHS256.Verify(parts[0]+"."+parts[1], sig, c.key.bytes()); err != nil {
		return domain.Identity{}, domain.ErrSignatureMismatch
	}

	if c.issuer != "" && claims.Issuer != c.issuer {
		return domain.Identity{}, domain.ErrMalformedToken
	}
	if claims.UserID == "" {
		return domain.Identity{}, domain.ErrMalformedToken
	}
	role, err := domain.ParseRole(claims.Role)
	if err != nil {
		return domain.Identity{}, domain.ErrMalformedToken
	}

	return domain.Identity{Subject: claims.UserID, Role: role}, nil
}
