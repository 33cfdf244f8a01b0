// Package session issues and validates the portal's bearer tokens.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

const (
	defaultIssuer   = "nemsutalks-portal"
	defaultAudience = "nemsutalks-api"
	defaultLeeway   = 30 * time.Second

	// AdminSubject is the token subject of the fixed administrator.
	AdminSubject = "admin"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenRevoked   = errors.New("token revoked")
	ErrNotConfigured  = errors.New("session secret not configured")
	ErrSecretTooShort = errors.New("session secret must be at least 32 bytes")
)

// Options configures claim validation.
type Options struct {
	Issuer   string
	Audience string
	Leeway   time.Duration
}

// Claims are the portal token claims. Admin tokens carry admin=true and
// the AdminSubject subject.
type Claims struct {
	Admin bool `json:"admin,omitempty"`
	jwt.RegisteredClaims
}

// Manager issues and validates HS256 tokens.
type Manager struct {
	secret   []byte
	ttl      time.Duration
	revoker  TokenRevoker
	issuer   string
	audience string
	leeway   time.Duration
	now      func() time.Time
}

// NewManager builds a manager. revoker may be nil, in which case logout
// cannot invalidate tokens before they expire.
func NewManager(secret string, ttl time.Duration, revoker TokenRevoker, opts Options) (*Manager, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrNotConfigured
	}
	if len(secret) < 32 {
		return nil, ErrSecretTooShort
	}
	opts = normalizeOptions(opts)
	return &Manager{
		secret:   []byte(secret),
		ttl:      ttl,
		revoker:  revoker,
		issuer:   opts.Issuer,
		audience: opts.Audience,
		leeway:   opts.Leeway,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// Issue signs a token for subject.
func (m *Manager) Issue(subject string, admin bool) (string, error) {
	now := m.now()
	claims := Claims{
		Admin: admin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    m.issuer,
			Audience:  jwt.ClaimStrings{m.audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        randomHexID(12),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Verify validates token and checks revocation.
func (m *Manager) Verify(token string) (Claims, error) {
	claims, err := m.parse(token)
	if err != nil {
		return Claims{}, err
	}
	if m.revoker == nil {
		return claims, nil
	}
	revoked, err := m.revoker.IsRevoked(claims.ID)
	if err != nil {
		return Claims{}, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return Claims{}, ErrTokenRevoked
	}
	cutoff, err := m.revoker.RevokedAfter(claims.Subject)
	if err != nil {
		return Claims{}, fmt.Errorf("check user revocation: %w", err)
	}
	if !cutoff.IsZero() && claims.IssuedAt.Time.Before(cutoff.Truncate(time.Second)) {
		return Claims{}, ErrTokenRevoked
	}
	return claims, nil
}

// Revoke invalidates token until it expires. Tokens that fail to parse are
// already unusable and are ignored.
func (m *Manager) Revoke(token string) error {
	if m.revoker == nil {
		return nil
	}
	claims, err := m.parse(token)
	if err != nil {
		return nil
	}
	return m.revoker.Revoke(claims.ID, claims.ExpiresAt.Time.Sub(m.now()))
}

// RevokeUser invalidates every token of subject issued before since.
// Issue times have second precision, so tokens from since's own second
// stay valid.
func (m *Manager) RevokeUser(subject string, since time.Time) error {
	if m.revoker == nil {
		return nil
	}
	return m.revoker.RevokeUser(subject, since)
}

func (m *Manager) parse(token string) (Claims, error) {
	var claims Claims
	token = strings.TrimSpace(token)
	if token == "" {
		return claims, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(m.leeway),
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(m.audience),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !parsed.Valid {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if strings.TrimSpace(claims.Subject) == "" || strings.TrimSpace(claims.ID) == "" || claims.IssuedAt == nil {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}

func randomHexID(nBytes int) string {
	buf := make([]byte, nBytes)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}

func normalizeOptions(opts Options) Options {
	opts.Issuer = strings.TrimSpace(opts.Issuer)
	opts.Audience = strings.TrimSpace(opts.Audience)
	if opts.Issuer == "" {
		opts.Issuer = defaultIssuer
	}
	if opts.Audience == "" {
		opts.Audience = defaultAudience
	}
	if opts.Leeway <= 0 {
		opts.Leeway = defaultLeeway
	}
	return opts
}
