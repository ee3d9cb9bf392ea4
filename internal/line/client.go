package line

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// QuickReplyAction is the tap action of a quick reply button.
type QuickReplyAction struct {
	Type  string `json:"type"`
	Label string `json:"label"`
	Text  string `json:"text"`
}

// QuickReplyItem is one button attached to an outgoing message.
type QuickReplyItem struct {
	Type   string           `json:"type"`
	Action QuickReplyAction `json:"action"`
}

// MessageItem builds a message-type quick reply button.
func MessageItem(label, text string) QuickReplyItem {
	return QuickReplyItem{
		Type:   "action",
		Action: QuickReplyAction{Type: "message", Label: label, Text: text},
	}
}

type quickReply struct {
	Items []QuickReplyItem `json:"items"`
}

type textMessage struct {
	Type       string      `json:"type"`
	Text       string      `json:"text"`
	QuickReply *quickReply `json:"quickReply,omitempty"`
}

type replyPayload struct {
	ReplyToken string        `json:"replyToken"`
	Messages   []textMessage `json:"messages"`
}

type pushPayload struct {
	To       string        `json:"to"`
	Messages []textMessage `json:"messages"`
}

// Client speaks the LINE Messaging API. Credentials are per-store and
// supplied per call; one client serves every tenant.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a messaging client. baseURL is only overridden by
// tests; pass "" for the production endpoint.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://api.line.me"
	}
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Reply answers an inbound event through its reply token, optionally
// attaching quick reply buttons.
func (c *Client) Reply(ctx context.Context, accessToken, replyToken, text string, items []QuickReplyItem) error {
	msg := textMessage{Type: "text", Text: text}
	if len(items) > 0 {
		msg.QuickReply = &quickReply{Items: items}
	}
	payload := replyPayload{ReplyToken: replyToken, Messages: []textMessage{msg}}
	return c.post(ctx, "/v2/bot/message/reply", accessToken, payload)
}

// Push sends a message directly to a user id.
func (c *Client) Push(ctx context.Context, accessToken, to, text string) error {
	payload := pushPayload{To: to, Messages: []textMessage{{Type: "text", Text: text}}}
	return c.post(ctx, "/v2/bot/message/push", accessToken, payload)
}

func (c *Client) post(ctx context.Context, path, accessToken string, payload any) error {
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal message payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("received non-200 status code %d: %s", resp.StatusCode, body)
	}
	return nil
}
