package security

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/matthewhartstonge/argon2"
)

// OTPLength is the number of decimal digits in a one-time code.
const OTPLength = 6

var argon = argon2.DefaultConfig()

// HashPassword returns the encoded argon2id hash of a plaintext password.
// Callers hash exactly once, at the point the plaintext is received.
func HashPassword(password string) (string, error) {
	encoded, err := argon.HashEncoded([]byte(password))
	if err != nil {
		return "", err
	}

	return string(encoded), nil
}

// VerifyPassword reports whether password matches the encoded hash.
func VerifyPassword(password, encodedHash string) (bool, error) {
	return argon2.VerifyEncoded([]byte(password), []byte(encodedHash))
}

// HashOTP hashes a one-time code the same way as a password.
func HashOTP(code string) (string, error) {
	return HashPassword(code)
}

// VerifyOTP reports whether code matches the encoded hash.
func VerifyOTP(code, encodedHash string) (bool, error) {
	return VerifyPassword(code, encodedHash)
}

// GenerateOTP returns a zero-padded numeric code of OTPLength digits.
func GenerateOTP() (string, error) {
	max := big.NewInt(1)
	for range OTPLength {
		max.Mul(max, big.NewInt(10))
	}

	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%0*d", OTPLength, n.Int64()), nil
}
