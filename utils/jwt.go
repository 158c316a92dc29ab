package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims are the session claims minted by the identity provider.
type Claims struct {
	jwt.RegisteredClaims
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// TokenIdentifier is the stable per-user key: issuer and subject joined by "|".
func (c *Claims) TokenIdentifier() string {
	return c.Issuer + "|" + c.Subject
}

// GenerateToken signs an HS256 session token. The service only verifies
// tokens; this is used by tests and local tooling.
func GenerateToken(secret []byte, issuer string, subject string, name string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Name: name,
	})
	return token.SignedString(secret)
}

// ParseToken verifies an HS256 token. When issuer is not empty the token's
// iss claim must match it.
func ParseToken(tokenString string, secret []byte, issuer string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Subject == "" || claims.Issuer == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
