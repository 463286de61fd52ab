package token

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	domain "github.com/mkshuvo/e-commerce-store-sub001/internal/domain/token"
)

// Claims is the payload of an access token.
type Claims struct {
	Roles map[string]string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

type SignerConfig struct {
	Secret    []byte
	Issuer    string
	Audience  string
	AccessTTL time.Duration
}

// Signer mints and verifies access-token signatures with a single symmetric
// key fixed at startup. The key is read once and never logged.
type Signer struct {
	secret    []byte
	issuer    string
	audience  string
	accessTTL time.Duration
}

const minSecretBytes = 32

func NewSigner(cfg SignerConfig) (*Signer, error) {
	if len(cfg.Secret) < minSecretBytes {
		return nil, fmt.Errorf("token: signing secret must be at least %d bytes", minSecretBytes)
	}
	if strings.TrimSpace(cfg.Issuer) == "" {
		return nil, errors.New("token: issuer is required")
	}
	if strings.TrimSpace(cfg.Audience) == "" {
		return nil, errors.New("token: audience is required")
	}
	if cfg.AccessTTL <= 0 {
		return nil, errors.New("token: access ttl must be positive")
	}
	return &Signer{
		secret:    cfg.Secret,
		issuer:    cfg.Issuer,
		audience:  cfg.Audience,
		accessTTL: cfg.AccessTTL,
	}, nil
}

// IssueAccess mints a signed access token for the principal snapshot.
// Deterministic except for the jti and the timestamps.
func (s *Signer) IssueAccess(p domain.Principal, now time.Time) (string, *Claims, error) {
	now = now.UTC()
	claims := &Claims{
		Roles: p.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   p.ID,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign access token: %w", err)
	}
	return signed, claims, nil
}

// AccessTTL reports the configured access-token lifetime.
func (s *Signer) AccessTTL() time.Duration { return s.accessTTL }

// VerifySignature checks signature and shape only; time, issuer and
// audience claims are the Validator's stages. The algorithm is pinned to
// HS256 - the token's own header is cross-checked, never trusted.
func (s *Signer) VerifySignature(raw string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	claims := &Claims{}
	parsed, err := parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrSignature
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, domain.ErrSignature
	}
	if strings.TrimSpace(claims.Subject) == "" || claims.ID == "" {
		return nil, domain.ErrSignature
	}
	return claims, nil
}

const refreshSecretBytes = 32 // 256 bits of entropy

// NewRefreshToken generates an opaque refresh credential. The wire form is
// "<id>.<secret>": the id is the store lookup key, and only the sha256 of
// the secret is ever persisted. The token is not signed - its validity is
// decided entirely by the credential store.
func NewRefreshToken() (wire, id, hash string, err error) {
	buf := make([]byte, refreshSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", "", fmt.Errorf("refresh token entropy: %w", err)
	}
	secret := base64.RawURLEncoding.EncodeToString(buf)
	id = uuid.NewString()
	return id + "." + secret, id, hashRefreshSecret(secret), nil
}

// SplitRefreshToken parses the wire form back into lookup id and secret.
func SplitRefreshToken(wire string) (id, secret string, err error) {
	id, secret, ok := strings.Cut(wire, ".")
	if !ok || id == "" || secret == "" {
		return "", "", errors.New("invalid refresh token format")
	}
	return id, secret, nil
}

// RefreshSecretMatches compares a presented secret against the stored hash
// in constant time.
func RefreshSecretMatches(hash, secret string) bool {
	actual := hashRefreshSecret(secret)
	if len(hash) != len(actual) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(hash), []byte(actual)) == 1
}

func hashRefreshSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
