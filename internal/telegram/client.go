// Package telegram is a minimal Telegram Bot API client covering the calls
// this service makes: operator-channel messages and documents, webhook
// management, and identity lookup.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/notapi/notapi/internal/config"
)

// User is a Telegram user or bot identity.
type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	Username  string `json:"username,omitempty"`
}

// Chat is the conversation a message belongs to.
type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// Message is a Telegram message, trimmed to the fields the bot reads.
type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from,omitempty"`
	Chat      *Chat  `json:"chat"`
	Date      int64  `json:"date"`
	Text      string `json:"text,omitempty"`
}

// Update is an incoming webhook payload.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}

// apiResponse is the Bot API envelope.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	Description string          `json:"description,omitempty"`
	ErrorCode   int             `json:"error_code,omitempty"`
}

// APIError is a Bot API rejection (ok=false).
type APIError struct {
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram: api error %d: %s", e.Code, e.Description)
}

// Client talks to the Telegram Bot API.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *slog.Logger
}

// New creates a client from bot config. Returns nil when no token is
// configured; all methods are nil-safe no-ops in that case.
func New(cfg config.BotConfig, logger *slog.Logger) *Client {
	if cfg.Token == "" {
		return nil
	}
	return &Client{
		baseURL: cfg.APIBaseURL,
		token:   cfg.Token.Value(),
		client:  &http.Client{Timeout: 60 * time.Second},
		logger:  logger.With("component", "telegram"),
	}
}

// Enabled reports whether the client is configured.
func (c *Client) Enabled() bool { return c != nil }

// SendMessage sends an HTML-formatted message to a chat.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) (*Message, error) {
	if c == nil {
		return nil, nil
	}
	var msg Message
	err := c.call(ctx, "sendMessage", map[string]any{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "HTML",
	}, &msg)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// SendReply sends an HTML-formatted message quoting an earlier one.
func (c *Client) SendReply(ctx context.Context, chatID, replyTo int64, text string) (*Message, error) {
	if c == nil {
		return nil, nil
	}
	var msg Message
	err := c.call(ctx, "sendMessage", map[string]any{
		"chat_id":             chatID,
		"text":                text,
		"parse_mode":          "HTML",
		"reply_to_message_id": replyTo,
	}, &msg)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// EditMessageText replaces the text of a previously sent message.
func (c *Client) EditMessageText(ctx context.Context, chatID, messageID int64, text string) (*Message, error) {
	if c == nil {
		return nil, nil
	}
	var msg Message
	err := c.call(ctx, "editMessageText", map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
		"parse_mode": "HTML",
	}, &msg)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// SendDocument uploads a file to a chat as an attachment.
func (c *Client) SendDocument(ctx context.Context, chatID int64, filename string, content []byte) (*Message, error) {
	if c == nil {
		return nil, nil
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("chat_id", strconv.FormatInt(chatID, 10)); err != nil {
		return nil, err
	}
	fw, err := mw.CreateFormFile("document", filename)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(content); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL("sendDocument"), &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var msg Message
	if err := c.do(req, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// SetWebhook registers the bot's webhook URL.
func (c *Client) SetWebhook(ctx context.Context, url string) error {
	if c == nil {
		return nil
	}
	var ok bool
	return c.call(ctx, "setWebhook", map[string]any{"url": url}, &ok)
}

// DeleteWebhook removes any registered webhook.
func (c *Client) DeleteWebhook(ctx context.Context) error {
	if c == nil {
		return nil
	}
	var ok bool
	return c.call(ctx, "deleteWebhook", nil, &ok)
}

// GetMe returns the bot's own identity.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	if c == nil {
		return nil, nil
	}
	var user User
	if err := c.call(ctx, "getMe", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
}

// call performs a JSON API call and decodes the result envelope.
func (c *Client) call(ctx context.Context, method string, payload map[string]any, result any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.do(req, result)
}

func (c *Client) do(req *http.Request, result any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("telegram: reading response: %w", err)
	}

	var env apiResponse
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("telegram: decoding response: %w", err)
	}
	if !env.OK {
		return &APIError{Code: env.ErrorCode, Description: env.Description}
	}
	if result != nil && env.Result != nil {
		if err := json.Unmarshal(env.Result, result); err != nil {
			return fmt.Errorf("telegram: decoding result: %w", err)
		}
	}
	return nil
}
