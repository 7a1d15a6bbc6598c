package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"HeroScanner/internal/ports"
)

const (
	defaultBaseURL = "https://api.telegram.org"
	// Bot API limit for a single message, in characters.
	maxMessageLength = 4096
)

// ErrNotConfigured is returned by Publish when the token or chat id is missing.
var ErrNotConfigured = errors.New("telegram notifier misconfigured")

// APIError carries the description Telegram returns for a rejected call.
type APIError struct {
	Status      int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram error %d: %s", e.Status, e.Description)
}

// Notifier sends run reports to a Telegram chat via bot API.
type Notifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier.
func NewNotifier(botToken, chatID string) *Notifier {
	return &Notifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  defaultBaseURL,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// WithBaseURL points the notifier at another Bot API host.
func (n *Notifier) WithBaseURL(base string, client *http.Client) *Notifier {
	n.baseURL = strings.TrimRight(base, "/")
	if client != nil {
		n.client = client
	}
	return n
}

// Publish posts message as plain text, split into several messages when it is too long.
func (n *Notifier) Publish(ctx context.Context, message string) error {
	if n.botToken == "" || n.chatID == "" || n.client == nil {
		return ErrNotConfigured
	}

	for i, part := range splitMessage(message, maxMessageLength) {
		if err := n.send(ctx, part); err != nil {
			return fmt.Errorf("send part %d: %w", i+1, err)
		}
	}
	return nil
}

func (n *Notifier) send(ctx context.Context, text string) error {
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", text)
	form.Set("disable_web_page_preview", "true")

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	var reply struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	decodeErr := json.NewDecoder(resp.Body).Decode(&reply)

	if resp.StatusCode != http.StatusOK || (decodeErr == nil && !reply.OK) {
		desc := reply.Description
		if desc == "" {
			desc = resp.Status
		}
		return &APIError{Status: resp.StatusCode, Description: desc}
	}
	return nil
}

// splitMessage cuts text into chunks of at most limit runes, preferring line breaks.
func splitMessage(text string, limit int) []string {
	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}

	var parts []string
	for len(runes) > limit {
		cut := limit
		for i := limit; i > limit/2; i-- {
			if runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		parts = append(parts, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}
