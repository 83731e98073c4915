package jwt

import (
	"errors"
	"strconv"
	"time"

	libJWT "github.com/golang-jwt/jwt/v5"
)

const minSecretLen = 64

// Symmetric signs and verifies HS512 tokens with a shared secret.
type Symmetric struct {
	secret    []byte
	issuer    string
	audiences []string
	ttl       time.Duration
	leeway    time.Duration
	clock     clocker
	uuid      generator
	parser    *libJWT.Parser
}

// NewHS512 builds a Symmetric signer. The secret must be at least 64 bytes.
func NewHS512(cfg Config) (*Symmetric, error) {
	if len(cfg.Secret) < minSecretLen {
		return nil, ErrSigningKeyTooShort
	}

	s := &Symmetric{
		secret:    cfg.Secret,
		issuer:    cfg.Issuer,
		audiences: cfg.Audiences,
		ttl:       cfg.TTL,
		leeway:    cfg.Leeway,
		clock:     cfg.Clock,
		uuid:      cfg.UUID,
	}

	opts := []libJWT.ParserOption{
		libJWT.WithValidMethods([]string{libJWT.SigningMethodHS512.Alg()}),
		libJWT.WithIssuedAt(),
		libJWT.WithExpirationRequired(),
		libJWT.WithLeeway(cfg.Leeway),
		libJWT.WithTimeFunc(s.now),
	}
	if cfg.Issuer != "" {
		opts = append(opts, libJWT.WithIssuer(cfg.Issuer))
	}
	if len(cfg.Audiences) > 0 {
		opts = append(opts, libJWT.WithAudience(cfg.Audiences...))
	}
	s.parser = libJWT.NewParser(opts...)

	return s, nil
}

func (s *Symmetric) now() time.Time {
	if s.clock == nil {
		return time.Now()
	}
	return s.clock.Now()
}

// Generate issues a token for sub. Subject and user_id always carry the same id.
func (s *Symmetric) Generate(sub Subject) (string, error) {
	now := s.now()

	var jti string
	if s.uuid != nil {
		jti = s.uuid.Generate()
	}

	claims := Claims{
		RegisteredClaims: libJWT.RegisteredClaims{
			ID:        jti,
			Subject:   strconv.FormatInt(sub.UserID, 10),
			Issuer:    s.issuer,
			Audience:  s.audiences,
			IssuedAt:  libJWT.NewNumericDate(now),
			NotBefore: libJWT.NewNumericDate(now),
			ExpiresAt: libJWT.NewNumericDate(now.Add(s.ttl)),
		},
		UserID:    sub.UserID,
		UserEmail: sub.Email,
		Role:      sub.Role,
	}

	return libJWT.NewWithClaims(libJWT.SigningMethodHS512, claims).SignedString(s.secret)
}

// Verify parses tokenStr and returns its claims. A subject that disagrees with
// the user_id claim is rejected.
func (s *Symmetric) Verify(tokenStr string) (Claims, error) {
	var claims Claims

	token, err := s.parser.ParseWithClaims(tokenStr, &claims, func(*libJWT.Token) (any, error) {
		return s.secret, nil
	})
	switch {
	case errors.Is(err, libJWT.ErrTokenExpired):
		return Claims{}, ErrTokenExpired
	case errors.Is(err, libJWT.ErrTokenSignatureInvalid), errors.Is(err, libJWT.ErrTokenUnverifiable):
		return Claims{}, ErrInvalidToken
	case err != nil:
		return Claims{}, err
	case !token.Valid:
		return Claims{}, ErrInvalidToken
	}

	if claims.Subject != "" && claims.Subject != strconv.FormatInt(claims.UserID, 10) {
		return Claims{}, ErrInvalidToken
	}

	return claims, nil
}
