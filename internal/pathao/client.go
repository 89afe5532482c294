// Package pathao implements a client for the Pathao courier merchant API.
package pathao

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	apiPrefix = "/aladdin/api/v1"

	// defaultTokenTTL applies when the token response has no expires_in.
	defaultTokenTTL = time.Hour
	// tokenRefreshMargin renews the token before the server expires it.
	tokenRefreshMargin = time.Minute
)

// Credentials authenticate the merchant with the password grant.
type Credentials struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
}

// APIError is returned for non-2xx responses.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return "pathao: " + strconv.Itoa(e.Status) + ": " + e.Message
}

// Client calls the Pathao API. Safe for concurrent use.
type Client struct {
	baseURL string
	creds   Credentials
	http    *http.Client
	now     func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default instrumented HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithClock overrides the time source used for token expiry.
func WithClock(now func() time.Time) Option {
	return func(cl *Client) { cl.now = now }
}

// New creates a Client for the given base URL.
func New(baseURL string, creds Credentials, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		http: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		now: time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Configured reports whether credentials are present.
func (c *Client) Configured() bool {
	return c.creds.ClientID != "" && c.creds.ClientSecret != "" &&
		c.creds.Username != "" && c.creds.Password != ""
}

// Token returns a cached bearer token, issuing a new one when the cached
// token is missing or about to expire. Concurrent callers share one request.
func (c *Client) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.expires) {
		return c.token, nil
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("client_id")
	e.Str(c.creds.ClientID)
	e.FieldStart("client_secret")
	e.Str(c.creds.ClientSecret)
	e.FieldStart("username")
	e.Str(c.creds.Username)
	e.FieldStart("password")
	e.Str(c.creds.Password)
	e.FieldStart("grant_type")
	e.Str("password")
	e.ObjEnd()

	body, err := c.send(ctx, http.MethodPost, "/issue-token", e.Bytes(), "")
	if err != nil {
		return "", errors.Wrap(err, "issue token")
	}

	var (
		token string
		ttl   = defaultTokenTTL
	)
	if err := jx.DecodeBytes(body).Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "access_token":
			v, err := d.Str()
			token = v
			return err
		case "expires_in":
			v, err := readLoose(d)
			if err != nil {
				return err
			}
			if secs := toInt(v); secs > 0 {
				ttl = time.Duration(secs) * time.Second
			}
			return nil
		default:
			return d.Skip()
		}
	}); err != nil {
		return "", errors.Wrap(err, "decode token")
	}
	if token == "" {
		return "", errors.New("issue token: empty access_token")
	}

	c.token = token
	c.expires = c.now().Add(ttl - tokenRefreshMargin)
	return token, nil
}

func (c *Client) resetToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

// call performs an authenticated request.
func (c *Client) call(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	token, err := c.Token(ctx)
	if err != nil {
		return nil, err
	}
	out, err := c.send(ctx, method, path, body, token)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
		c.resetToken()
	}
	return out, err
}

func (c *Client) send(ctx context.Context, method, path string, body []byte, token string) ([]byte, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, r)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "do request")
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Status: resp.StatusCode, Message: errorMessage(data, resp.StatusCode)}
	}
	return data, nil
}

// errorMessage extracts "message" from an error body.
func errorMessage(data []byte, status int) string {
	var msg string
	_ = jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		if key == "message" && d.Next() == jx.String {
			v, err := d.Str()
			msg = v
			return err
		}
		return d.Skip()
	})
	if msg == "" {
		msg = http.StatusText(status)
	}
	return msg
}
