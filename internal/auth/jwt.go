// Package auth provides JWT issuance/validation, password hashing, the
// bearer-token middleware, and the GitHub OAuth flow for researcher sign-in.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/studyweave/studyweave/internal/model"
)

const issuer = "studyweave"

// TokenTTL is how long an access token stays valid. Study sessions can run
// long, so tokens last a day; guests get the same lifetime and simply lose
// access when it lapses.
const TokenTTL = 24 * time.Hour

// Identity is what a validated token proves: who the caller is and what role
// they were issued the token under.
type Identity struct {
	UserID string
	Role   model.Role
}

// TokenService signs and verifies HS256 JWTs. The same secret serves both
// operations; it comes from config and must be at least 16 characters.
type TokenService struct {
	secret []byte
}

func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// claims carries the user ID in the standard "sub" claim plus a custom role
// claim so middleware can gate routes without a database read.
type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Generate creates a signed access token for the given user.
func (s *TokenService) Generate(userID string, role model.Role) (string, error) {
	return s.GenerateWithDuration(userID, role, TokenTTL)
}

// GenerateWithDuration creates a token with a custom expiry. Used by tests
// to mint already-expired tokens.
func (s *TokenService) GenerateWithDuration(userID string, role model.Role, d time.Duration) (string, error) {
	now := time.Now()
	c := claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a JWT string, returning the identity it
// asserts. Pinning the method list to HS256 blocks algorithm-confusion
// tokens; the issuer check blocks tokens minted by other apps sharing a
// secret by accident.
func (s *TokenService) Validate(tokenStr string) (Identity, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, fmt.Errorf("auth: token expired")
		}
		return Identity{}, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return Identity{}, fmt.Errorf("auth: invalid token claims")
	}
	if c.Subject == "" {
		return Identity{}, fmt.Errorf("auth: token has no subject")
	}
	role := model.Role(c.Role)
	if !role.Valid() {
		return Identity{}, fmt.Errorf("auth: token has unknown role %q", c.Role)
	}

	return Identity{UserID: c.Subject, Role: role}, nil
}
