package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ArxivDigest/internal/ports"
)

const (
	defaultBaseURL = "https://api.telegram.org"

	// Telegram rejects messages over 4096 characters. Chunks stay a
	// little under that so split markers fit.
	messageChunkLimit = 4000
)

// Notifier sends digests to a Telegram chat via the bot API. Long
// digests are split into multiple messages on blank-line boundaries.
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
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// PublishDigest posts the digest text, chunked when it exceeds the
// Telegram message limit.
func (n *Notifier) PublishDigest(ctx context.Context, digest string) error {
	if n.botToken == "" || n.chatID == "" || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}
	if strings.TrimSpace(digest) == "" {
		return nil
	}

	for _, chunk := range splitMessage(digest, messageChunkLimit) {
		if err := n.sendMessage(ctx, chunk); err != nil {
			return err
		}
	}
	return nil
}

func (n *Notifier) sendMessage(ctx context.Context, text string) error {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", text)
	form.Set("parse_mode", "Markdown")
	form.Set("disable_web_page_preview", "true")

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

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram error %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}

	return nil
}

// splitMessage cuts text into chunks of at most limit characters,
// preferring blank-line boundaries, then line boundaries, then a hard
// cut.
func splitMessage(text string, limit int) []string {
	if limit <= 0 || len(text) <= limit {
		return []string{text}
	}

	var chunks []string
	rest := text
	for len(rest) > limit {
		cut := strings.LastIndex(rest[:limit], "\n\n")
		if cut <= 0 {
			cut = strings.LastIndex(rest[:limit], "\n")
		}
		if cut <= 0 {
			cut = limit
		}
		chunks = append(chunks, strings.TrimRight(rest[:cut], "\n"))
		rest = strings.TrimLeft(rest[cut:], "\n")
	}
	if rest != "" {
		chunks = append(chunks, rest)
	}
	return chunks
}
