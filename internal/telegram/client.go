// Package telegram sends chat messages through the Telegram Bot API.
package telegram

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultTimeout bounds a single sendMessage call.
const DefaultTimeout = 10 * time.Second

// Error is a rejected Bot API call.
type Error struct {
	Status      int
	Description string
}

func (e *Error) Error() string {
	return "telegram: " + http.StatusText(e.Status) + ": " + e.Description
}

// Client posts messages to one chat.
type Client struct {
	baseURL string
	token   string
	chatID  string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default instrumented HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// New creates a Client. An empty token or chat id yields an unconfigured
// client.
func New(baseURL, token, chatID string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		chatID:  chatID,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Configured reports whether both the bot token and chat id are set.
func (c *Client) Configured() bool {
	return c.token != "" && c.chatID != ""
}

// SendMessage posts an HTML-formatted message.
func (c *Client) SendMessage(ctx context.Context, text string) error {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("chat_id")
	e.Str(c.chatID)
	e.FieldStart("text")
	e.Str(text)
	e.FieldStart("parse_mode")
	e.Str("HTML")
	e.ObjEnd()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/bot"+c.token+"/sendMessage", bytes.NewReader(e.Bytes()))
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		// The URL carries the bot token.
		var uErr *url.Error
		if errors.As(err, &uErr) {
			err = uErr.Err
		}
		return errors.Wrap(err, "telegram: send message")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	body, _ := io.ReadAll(resp.Body)
	apiErr := &Error{Status: resp.StatusCode}
	_ = jx.DecodeBytes(body).Obj(func(d *jx.Decoder, key string) error {
		if key == "description" && d.Next() == jx.String {
			v, err := d.Str()
			apiErr.Description = v
			return err
		}
		return d.Skip()
	})
	return apiErr
}
