package linenotify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLineClientPush(t *testing.T) {
	var captured struct {
		method string
		auth   string
		body   pushRequest
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.method = r.Method
		captured.auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&captured.body); err != nil {
			t.Errorf("failed to decode push body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewLineClient(server.URL, "channel-token", 5*time.Second)
	if err := client.Push(context.Background(), "U12345", "こんにちは"); err != nil {
		t.Fatalf("Push: %v", err)
	}

	if captured.method != http.MethodPost {
		t.Errorf("expected POST, got %s", captured.method)
	}
	if captured.auth != "Bearer channel-token" {
		t.Errorf("unexpected Authorization header: %q", captured.auth)
	}
	if captured.body.To != "U12345" {
		t.Errorf("unexpected recipient: %q", captured.body.To)
	}
	if len(captured.body.Messages) != 1 ||
		captured.body.Messages[0].Type != "text" ||
		captured.body.Messages[0].Text != "こんにちは" {
		t.Errorf("unexpected messages: %+v", captured.body.Messages)
	}
}

func TestLineClientPushNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewLineClient(server.URL, "channel-token", 5*time.Second)
	err := client.Push(context.Background(), "U12345", "hello")
	if err == nil {
		t.Fatal("expected an error for a 429 response")
	}
}

func TestMockPushClient(t *testing.T) {
	mock := NewMockPushClient()
	mock.FailFor["Ubad"] = context.DeadlineExceeded

	if err := mock.Push(context.Background(), "Ugood", "hi"); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if err := mock.Push(context.Background(), "Ubad", "hi"); err == nil {
		t.Fatal("expected configured failure")
	}
	if len(mock.Pushed) != 1 || mock.Pushed[0].To != "Ugood" {
		t.Errorf("unexpected recorded pushes: %+v", mock.Pushed)
	}
}
