package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// TTL is how long an issued code stays valid.
const TTL = 10 * time.Minute

const (
	lowest = 100000
	span   = 900000 // codes fall in [100000, 999999]
)

// New draws a uniformly random six-digit code with no leading zero.
func New() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(span))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%d", lowest+n.Int64()), nil
}
