package matching

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const tokenPrefix = "grp_"

// GenerateToken returns a new URL-safe group access token. 16 random bytes
// gives 128 bits of entropy; the prefix makes tokens recognizable in logs
// and support tickets.
func GenerateToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return tokenPrefix + base64.RawURLEncoding.EncodeToString(buf), nil
}
