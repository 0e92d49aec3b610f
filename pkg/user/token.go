package user

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"github.com/sentry-vision/management-server/pkg/gate"
)

// ErrInvalidToken covers expired, malformed, and badly signed session
// tokens.
var ErrInvalidToken = errors.New("invalid session token")

// SessionClaims are the claims carried in a dashboard session token.
type SessionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies dashboard session tokens with HS256.
// The signing key is the base64-decoded configured secret, held to the
// same strength rules as the API key.
type TokenService struct {
	key        []byte
	expiration time.Duration
}

// NewTokenService validates the configured secret and prepares the
// signing key. A malformed or short secret is always an error; a
// placeholder secret is an error only in strict mode.
func NewTokenService(secret string, expiration time.Duration, strict bool, log *zap.SugaredLogger) (*TokenService, error) {
	if err := gate.CheckSecret(secret, strict, log); err != nil {
		return nil, fmt.Errorf("JWT secret rejected: %w", err)
	}

	// CheckSecret guarantees the secret decodes.
	key, _ := base64.StdEncoding.DecodeString(secret)
	if expiration <= 0 {
		expiration = 24 * time.Hour
	}
	return &TokenService{key: key, expiration: expiration}, nil
}

// Expiration returns the configured token lifetime.
func (t *TokenService) Expiration() time.Duration {
	return t.expiration
}

// Issue signs a session token for the given account.
func (t *TokenService) Issue(username string, role Role) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.expiration)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
}

// Parse verifies a session token and returns its claims.
func (t *TokenService) Parse(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return t.key, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
