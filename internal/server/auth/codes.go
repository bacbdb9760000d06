package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strconv"

	"github.com/dmitrijs2005/lemonauth/internal/common"
)

const verificationAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789!@#$%^&*"

// VerificationCode returns a 6-character email verification code.
func VerificationCode() (string, error) {
	return common.RandomString(verificationAlphabet, 6)
}

// NumericOTP returns a 6-digit password reset code without a leading zero.
func NumericOTP() (string, error) {
	n, err := common.RandomIntInRange(100000, 999999)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n, 10), nil
}

// RefreshToken returns 256 random bits, hex-encoded.
func RefreshToken() (string, error) {
	return common.MakeRandHexString(32)
}

// LinkToken returns the token embedded in emailed verification links.
func LinkToken() (string, error) {
	return common.MakeRandHexString(24)
}

// HashToken returns the hex SHA-256 digest stored in place of a bearer secret.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// EqualSecrets compares two secrets in constant time.
func EqualSecrets(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
