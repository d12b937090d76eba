package crypto

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Identity is the part of an access token the client relies on: who the token
// belongs to and when it stops being accepted.
type Identity struct {
	Subject string
	Expiry  time.Time
}

// Expired reports whether the identity is no longer valid at now.
func (id Identity) Expired(now time.Time) bool {
	return !now.Before(id.Expiry)
}

// DecodeIdentity reads the subject and expiry from a token without verifying
// its signature. Tokens missing either claim are rejected.
func DecodeIdentity(tokenString string) (Identity, error) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, &claims); err != nil {
		return Identity{}, ErrInvalidToken
	}

	if claims.Subject == "" || claims.ExpiresAt == nil {
		return Identity{}, ErrInvalidToken
	}

	return Identity{
		Subject: claims.Subject,
		Expiry:  claims.ExpiresAt.Time,
	}, nil
}

// SignToken creates an HS256 token for subject valid for ttl.
func SignToken(subject, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateToken verifies the signature and expiry of a token signed with
// secret and returns its identity.
func ValidateToken(tokenString, secret string) (Identity, error) {
	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	if claims.Subject == "" {
		return Identity{}, ErrInvalidToken
	}

	return Identity{
		Subject: claims.Subject,
		Expiry:  claims.ExpiresAt.Time,
	}, nil
}
