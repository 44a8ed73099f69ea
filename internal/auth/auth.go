package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token expired")
	ErrMissingSecret = errors.New("jwt secret is not configured")
)

const issuerName = "shelfscan"

// DefaultTTL is used when an Issuer is created without one.
const DefaultTTL = 90 * 24 * time.Hour

// Claims represents JWT claims for an API client
type Claims struct {
	ClientID string `json:"client_id"`
	jwt.RegisteredClaims
}

// Issuer signs and validates client tokens
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

// NewIssuer creates an Issuer using the HMAC secret
func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{secret: []byte(secret), ttl: ttl}, nil
}

// GenerateToken creates a new token for the named client
func (i *Issuer) GenerateToken(subject string) (string, error) {
	return i.GenerateTokenWithTTL(subject, i.ttl)
}

// GenerateTokenWithTTL is GenerateToken with an explicit lifetime
func (i *Issuer) GenerateTokenWithTTL(subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		ClientID: uuid.New().String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuerName,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// ValidateToken validates a token and returns its claims
func (i *Issuer) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return i.secret, nil
	}, jwt.WithIssuer(issuerName))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
