package service

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
)

var codeRange = big.NewInt(900000)

// generateCode returns a 6-digit numeric code uniformly distributed over
// [100000, 999999].
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeRange)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// generateOpaqueToken returns an unguessable URL-safe token for challenge
// confirmation links.
func generateOpaqueToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
