package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/kirinyoku/cinebook/internal/domain"
)

var ErrUnauthenticated = errors.New("unauthenticated")

// Claims mirrors the token payload issued by the account service.
type Claims struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Resolver verifies HS256 bearer tokens and turns them into identities.
type Resolver struct {
	secret []byte
	ttl    time.Duration
}

func NewResolver(secret string, ttl time.Duration) *Resolver {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}

	return &Resolver{secret: []byte(secret), ttl: ttl}
}

// Resolve verifies the token and returns the caller it was issued for.
func (r *Resolver) Resolve(token string) (domain.Identity, error) {
	const op = "auth.Resolver.Resolve"

	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Identity{}, fmt.Errorf("%s:%w", op, ErrUnauthenticated)
	}

	claims := &Claims{}
	tkn, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return r.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tkn.Valid {
		return domain.Identity{}, fmt.Errorf("%s:%w: %v", op, ErrUnauthenticated, err)
	}

	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" {
		return domain.Identity{}, fmt.Errorf("%s:%w: missing userId", op, ErrUnauthenticated)
	}

	role := domain.Role(claims.Role)
	switch role {
	case "":
		role = domain.RoleUser
	case domain.RoleUser, domain.RoleAdmin:
	default:
		return domain.Identity{}, fmt.Errorf("%s:%w: unknown role %q", op, ErrUnauthenticated, claims.Role)
	}

	return domain.Identity{UserID: userID, Role: role}, nil
}

// Sign issues a token for id. It exists for operators and tests; account
// management lives elsewhere.
func (r *Resolver) Sign(id domain.Identity, now time.Time) (string, error) {
	claims := Claims{
		UserID: id.UserID,
		Role:   string(id.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(r.ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.secret)
}
