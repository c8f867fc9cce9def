// Package auth issues and validates the signed tokens embedded in email
// verification links. Session tokens are not JWTs; they are opaque random
// values checked against the database.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// LinkClaims carries the single-use verification code inside a signed link
// token. The database code remains the source of truth; the signature only
// protects the link from tampering.
type LinkClaims struct {
	jwt.RegisteredClaims
	Code string `json:"code"`
}

// GenerateLinkToken signs a verification code into a link token valid for
// the given duration.
func GenerateLinkToken(code string, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, LinkClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		Code: code,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// GetCodeFromLinkToken validates a link token and returns the embedded
// verification code.
func GetCodeFromLinkToken(tokenString string, secretKey []byte) (string, error) {
	claims := &LinkClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	})
	if err != nil {
		return "", err
	}

	if !token.Valid {
		return "", ErrInvalidToken
	}

	return claims.Code, nil
}
