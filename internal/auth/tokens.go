package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token scopes. Access and refresh tokens drive the session; email tokens
// are only good for confirming a mailbox. A token presented with the wrong
// scope is rejected no matter how valid its signature is.
const (
	ScopeAccess  = "access_token"
	ScopeRefresh = "refresh_token"
	ScopeEmail   = "email_token"
)

// emailTokenTTL is how long a mailbox confirmation link stays valid.
const emailTokenTTL = 7 * 24 * time.Hour

// ErrInvalidToken is returned for tokens that fail signature verification,
// are expired, or carry an unexpected scope.
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims is the JWT payload issued by the service. The subject is the
// user's email address.
type Claims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies the service's JWTs with a shared HS256
// secret.
type TokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenManager creates a token manager. The secret should be a strong
// random string; accessTTL and refreshTTL control the lifetime of the
// session token pair.
func NewTokenManager(secret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// NewAccessToken issues a short-lived access token for the given email.
func (m *TokenManager) NewAccessToken(email string) (string, error) {
	return m.sign(email, ScopeAccess, m.accessTTL)
}

// NewRefreshToken issues a long-lived refresh token for the given email.
func (m *TokenManager) NewRefreshToken(email string) (string, error) {
	return m.sign(email, ScopeRefresh, m.refreshTTL)
}

// NewEmailToken issues a mailbox confirmation token for the given email.
func (m *TokenManager) NewEmailToken(email string) (string, error) {
	return m.sign(email, ScopeEmail, emailTokenTTL)
}

func (m *TokenManager) sign(email, scope string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s: %w", scope, err)
	}
	return signed, nil
}

// ParseScoped verifies a token and returns the email it was issued for.
// The token must carry exactly the expected scope.
func (m *TokenManager) ParseScoped(tokenString, scope string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Scope != scope {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
