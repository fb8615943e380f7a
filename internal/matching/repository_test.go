package matching

import (
	"errors"
	"strings"
	"testing"

	"github.com/lib/pq"
)

func TestAssignTokenWithRetry(t *testing.T) {
	collision := &pq.Error{Code: "23505"}

	t.Run("first attempt sticks", func(t *testing.T) {
		calls := 0
		err := assignTokenWithRetry(func(token string) error {
			calls++
			return nil
		})
		if err != nil {
			t.Fatalf("assignTokenWithRetry: %v", err)
		}
		if calls != 1 {
			t.Errorf("expected a single attempt, got %d", calls)
		}
	})

	t.Run("collision retried with a fresh token", func(t *testing.T) {
		var tokens []string
		err := assignTokenWithRetry(func(token string) error {
			tokens = append(tokens, token)
			if len(tokens) < 3 {
				return collision
			}
			return nil
		})
		if err != nil {
			t.Fatalf("assignTokenWithRetry: %v", err)
		}
		if len(tokens) != 3 {
			t.Fatalf("expected 3 attempts, got %d", len(tokens))
		}
		if tokens[0] == tokens[1] || tokens[1] == tokens[2] {
			t.Errorf("retries must use fresh tokens, got %v", tokens)
		}
		for _, tok := range tokens {
			if !strings.HasPrefix(tok, "grp_") {
				t.Errorf("attempt used a malformed token %q", tok)
			}
		}
	})

	t.Run("non-collision error is fatal", func(t *testing.T) {
		calls := 0
		cause := errors.New("connection reset")
		err := assignTokenWithRetry(func(token string) error {
			calls++
			return cause
		})
		if !errors.Is(err, cause) {
			t.Errorf("expected the underlying error, got %v", err)
		}
		if calls != 1 {
			t.Errorf("non-collision errors must not be retried, got %d attempts", calls)
		}
	})

	t.Run("collisions exhausted", func(t *testing.T) {
		calls := 0
		err := assignTokenWithRetry(func(token string) error {
			calls++
			return collision
		})
		if err == nil {
			t.Fatal("expected an error after exhausting retries")
		}
		if calls != tokenAssignRetries {
			t.Errorf("expected %d attempts, got %d", tokenAssignRetries, calls)
		}
	})
}

func TestIsUniqueViolation(t *testing.T) {
	if !isUniqueViolation(&pq.Error{Code: "23505"}) {
		t.Error("23505 must be recognized as a unique violation")
	}
	if isUniqueViolation(&pq.Error{Code: "25P02"}) {
		t.Error("aborted-transaction errors are not unique violations")
	}
	if isUniqueViolation(errors.New("plain error")) {
		t.Error("non-pq errors are not unique violations")
	}
}
