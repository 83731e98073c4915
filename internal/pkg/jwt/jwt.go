package jwt

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrSigningKeyTooShort is returned when the HS512 signing key is less than 64 bytes.
	ErrSigningKeyTooShort = errors.New("HS512 signing key must be at least 64 bytes (512 bits)")

	// ErrTokenExpired is returned when the JWT token has expired.
	ErrTokenExpired = errors.New("JWT token has expired")

	// ErrInvalidToken is returned when the token is malformed or fails validation.
	ErrInvalidToken = errors.New("invalid token")
)

// DefaultRole is assumed for tokens that carry no role claim.
const DefaultRole = "investor"

// Subject identifies who a token is issued to.
type Subject struct {
	UserID int64
	Email  string
	Role   string
}

// JWT generates and verifies tokens.
type JWT interface {
	Generate(sub Subject) (string, error)
	Verify(tokenStr string) (Claims, error)
}

type clocker interface {
	Now() time.Time
}

type generator interface {
	Generate() string
}

type jwtContextKey struct{}

// Config defines the inputs for building a JWT implementation.
type Config struct {
	// Secret is the HMAC signing key, at least 64 bytes.
	Secret    []byte
	Issuer    string
	Audiences []string
	TTL       time.Duration
	// Leeway tolerates clock skew between issuer and this service.
	Leeway time.Duration
	Clock  clocker
	// UUID generates the jti claim.
	UUID generator
}

// Claims wraps the registered claims with the caller identity.
type Claims struct {
	jwt.RegisteredClaims
	UserID    int64  `json:"user_id,string"`
	UserEmail string `json:"user_email"`
	Role      string `json:"role,omitempty"`
}

// RoleOrDefault returns the role claim, or DefaultRole when it is empty.
func (c Claims) RoleOrDefault() string {
	if c.Role == "" {
		return DefaultRole
	}
	return c.Role
}

// GetAuth returns the JWT claims stored in the context, if any.
func GetAuth(ctx context.Context) *Claims {
	clm, ok := ctx.Value(jwtContextKey{}).(Claims)
	if !ok {
		return nil
	}

	return &clm
}

// SetAuth stores JWT claims in the context.
func SetAuth(ctx context.Context, clm Claims) context.Context {
	return context.WithValue(ctx, jwtContextKey{}, clm)
}
