// Package otp generates the short numeric one-time codes mailed to users.
package otp

import (
	"crypto/rand"
	"math/big"
)

// DefaultDigits is the code length used by every flow in this service.
const DefaultDigits = 6

var ten = big.NewInt(10)

// New returns a fixed-length numeric code. Each digit is drawn independently
// from crypto/rand, so codes carry no correlation between calls.
func New(digits int) (string, error) {
	if digits <= 0 {
		digits = DefaultDigits
	}

	buf := make([]byte, digits)
	for i := range buf {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		buf[i] = byte('0' + n.Int64())
	}
	return string(buf), nil
}
