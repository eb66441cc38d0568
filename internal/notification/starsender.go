package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Starsender sends WhatsApp text messages through the Starsender HTTP API.
type Starsender struct {
	URL    string
	Token  string
	Client *http.Client
}

func NewStarsender(url, token string) *Starsender {
	return &Starsender{URL: url, Token: token, Client: &http.Client{Timeout: 15 * time.Second}}
}

// Send posts the message and returns the decoded response body.
func (s *Starsender) Send(ctx context.Context, to, body string) (map[string]interface{}, error) {
	payload, err := json.Marshal(map[string]string{
		"messageType": "text",
		"to":          to,
		"body":        body,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build starsender request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", s.Token)

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("starsender request: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	decoded := map[string]interface{}{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		decoded = map[string]interface{}{"raw_response": string(raw)}
	}
	decoded["http_status"] = resp.StatusCode

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decoded, fmt.Errorf("starsender responded with status %d", resp.StatusCode)
	}
	return decoded, nil
}
