package linenotify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// PushClient delivers one text message to one LINE recipient
type PushClient interface {
	Push(ctx context.Context, to string, text string) error
}

type lineClient struct {
	endpoint     string
	channelToken string
	httpClient   *http.Client
}

// NewLineClient creates a client for the LINE Messaging API push endpoint
func NewLineClient(endpoint, channelToken string, timeout time.Duration) PushClient {
	return &lineClient{
		endpoint:     endpoint,
		channelToken: channelToken,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

type pushRequest struct {
	To       string        `json:"to"`
	Messages []pushMessage `json:"messages"`
}

type pushMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Push sends one text message. A non-2xx response is a delivery failure
// carrying the HTTP status for diagnostics.
func (c *lineClient) Push(ctx context.Context, to string, text string) error {
	payload := pushRequest{
		To:       to,
		Messages: []pushMessage{{Type: "text", Text: text}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.channelToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("push request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("line push returned status %d", resp.StatusCode)
	}

	return nil
}

// MockPushClient is a mock implementation for development and tests
type MockPushClient struct {
	Pushed []MockPush
	// FailFor returns an error for recipients listed here
	FailFor map[string]error
}

type MockPush struct {
	To   string
	Text string
}

func NewMockPushClient() *MockPushClient {
	return &MockPushClient{FailFor: make(map[string]error)}
}

func (m *MockPushClient) Push(ctx context.Context, to string, text string) error {
	if err, ok := m.FailFor[to]; ok {
		return err
	}
	m.Pushed = append(m.Pushed, MockPush{To: to, Text: text})
	return nil
}
