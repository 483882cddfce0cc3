package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/yukikurage/team-task-api/internal/constants"
)

var otpUpperBound = big.NewInt(1_000_000)

// GenerateOTP returns a uniformly random zero-padded 6 digit code.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, otpUpperBound)
	if err != nil {
		return "", fmt.Errorf("failed to generate random number: %w", err)
	}
	return fmt.Sprintf("%0*d", constants.OTPLength, n.Int64()), nil
}

// NormalizeEmail lowercases and trims an address for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
