// Package auth holds the credential primitives: HS256 access and
// MFA-challenge tokens, password hashing, TOTP and one-time codes.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/lemonauth/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// TokenTypeMFA marks the narrow token handed out between password and TOTP steps.
const TokenTypeMFA = "mfa"

// Claims carries the standard claims plus the user id and an optional
// token type. Access tokens have an empty Type.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"userId"`
	Type   string `json:"type,omitempty"`
}

func sign(claims Claims, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(validityDuration))

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secretKey)
}

// GenerateToken mints an access token for userID.
func GenerateToken(userID string, secretKey []byte, validityDuration time.Duration) (string, error) {
	return sign(Claims{UserID: userID}, secretKey, validityDuration)
}

// GenerateMFAToken mints an MFA-challenge token for userID.
func GenerateMFAToken(userID string, secretKey []byte, validityDuration time.Duration) (string, error) {
	return sign(Claims{UserID: userID, Type: TokenTypeMFA}, secretKey, validityDuration)
}

// ParseToken verifies signature and expiry and returns the claims.
// Expired tokens yield common.ErrTokenExpired, anything else common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.UserID == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}

// GetUserIDFromToken validates an access token. MFA-challenge tokens are rejected.
func GetUserIDFromToken(tokenString string, secretKey []byte) (string, error) {
	claims, err := ParseToken(tokenString, secretKey)
	if err != nil {
		return "", err
	}
	if claims.Type != "" {
		return "", common.ErrInvalidToken
	}
	return claims.UserID, nil
}

// GetUserIDFromMFAToken validates an MFA-challenge token.
func GetUserIDFromMFAToken(tokenString string, secretKey []byte) (string, error) {
	claims, err := ParseToken(tokenString, secretKey)
	if err != nil {
		return "", err
	}
	if claims.Type != TokenTypeMFA {
		return "", common.ErrInvalidToken
	}
	return claims.UserID, nil
}
