package matching

import (
	"strings"
	"testing"
)

func TestGenerateToken(t *testing.T) {
	token, err := GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	if !strings.HasPrefix(token, "grp_") {
		t.Errorf("token %q lacks the grp_ prefix", token)
	}
	// 16 bytes base64url-encoded without padding is 22 characters
	if len(token) != len("grp_")+22 {
		t.Errorf("unexpected token length %d: %q", len(token), token)
	}
	if strings.ContainsAny(token, "+/=") {
		t.Errorf("token %q is not URL-safe", token)
	}
}

func TestGenerateTokenUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		token, err := GenerateToken()
		if err != nil {
			t.Fatalf("GenerateToken: %v", err)
		}
		if seen[token] {
			t.Fatalf("duplicate token after %d generations: %q", i, token)
		}
		seen[token] = true
	}
}
