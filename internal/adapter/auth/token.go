package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/YelzhanWeb/orderdesk/internal/domain"

	"github.com/golang-jwt/jwt/v4"
)

const (
	bearerHeader = "Bearer"

	AuthHeader = "Authorization"
)

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
)

// Claims is the payload of a staff access token.
type Claims struct {
	jwt.RegisteredClaims
	Role domain.Role `json:"role"`
}

// Principal is the authenticated staff member behind a request.
type Principal struct {
	Subject string
	Role    domain.Role
}

type Issuer struct {
	secret []byte
	ttl    time.Duration
}

func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, fmt.Errorf("auth secret is empty")
	}
	return &Issuer{secret: []byte(secret), ttl: ttl}, nil
}

// Issue signs an HS256 token for subject with the given role.
func (i *Issuer) Issue(subject string, role domain.Role) (string, error) {
	if !role.Valid() {
		return "", fmt.Errorf("unknown role %q", role)
	}
	if strings.TrimSpace(subject) == "" {
		return "", fmt.Errorf("subject is empty")
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  subject,
			IssuedAt: jwt.NewNumericDate(now),
		},
		Role: role,
	}
	if i.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(i.ttl))
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("error while signing jwt token: %w", err)
	}
	return token, nil
}

// Parse verifies a token and returns who it belongs to.
func (i *Issuer) Parse(tokenString string) (Principal, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return Principal{}, ErrInvalidToken
	}
	if !claims.Role.Valid() || claims.Subject == "" {
		return Principal{}, fmt.Errorf("%w: missing role or subject", ErrInvalidToken)
	}

	return Principal{Subject: claims.Subject, Role: claims.Role}, nil
}

// ParseHeader reads a "Bearer <token>" Authorization header.
func (i *Issuer) ParseHeader(header string) (Principal, error) {
	if header == "" {
		return Principal{}, ErrMissingToken
	}
	headerParts := strings.Split(header, " ")
	if len(headerParts) != 2 {
		return Principal{}, fmt.Errorf("%w: auth header doesn't contain two parts", ErrInvalidToken)
	}
	if headerParts[0] != bearerHeader {
		return Principal{}, fmt.Errorf("%w: first auth header part is invalid", ErrInvalidToken)
	}
	return i.Parse(headerParts[1])
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
