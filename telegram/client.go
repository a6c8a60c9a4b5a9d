// Package telegram is a small Bot API client: JSON calls, long polling, webhook registration and
// streamed file transfer in both directions.
package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	ttlworker "github.com/FloatTech/ttl"
	"github.com/bytedance/sonic"
	"golang.org/x/time/rate"

	"github.com/moyoez/sora-history-bot/tool"
)

const (
	DefaultBaseURL = "https://api.telegram.org"

	retryLimit      = 5
	maxResponseSize = 4 << 20
	filePathTTL     = 50 * time.Minute // Telegram keeps a file_path valid for at least one hour
)

var AllowedUpdates = []string{"message", "callback_query"}

type Config struct {
	Token       string
	BaseURL     string
	HTTPClient  *http.Client
	RateLimit   float64 // requests per second, <= 0 disables limiting
	PollTimeout time.Duration
}

type Client struct {
	token       string
	baseURL     string
	httpc       *http.Client
	limiter     *rate.Limiter
	pollTimeout time.Duration
	filePaths   *ttlworker.Cache[string, string]
	sleep       func(context.Context, time.Duration) bool
}

func New(cfg Config) *Client {
	c := &Client{
		token:       cfg.Token,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		httpc:       cfg.HTTPClient,
		pollTimeout: cfg.PollTimeout,
		filePaths:   ttlworker.NewCache[string, string](filePathTTL),
		sleep:       sleep,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.httpc == nil {
		c.httpc = tool.NewHTTPClient(0)
	}
	if c.pollTimeout <= 0 {
		c.pollTimeout = 30 * time.Second
	}
	if cfg.RateLimit > 0 {
		burst := int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	} else {
		c.limiter = rate.NewLimiter(rate.Inf, 0)
	}
	return c
}

// APIError is a Bot API answer with ok=false or a non-2xx status.
type APIError struct {
	Method      string
	StatusCode  int
	ErrorCode   int
	Description string
	RetryAfter  time.Duration
}

func (e *APIError) Error() string {
	if e.ErrorCode != 0 {
		return fmt.Sprintf("telegram %s: %d %s", e.Method, e.ErrorCode, e.Description)
	}
	return fmt.Sprintf("telegram %s: http %d %s", e.Method, e.StatusCode, e.Description)
}

type responseParameters struct {
	RetryAfter int `json:"retry_after,omitempty"`
}

type apiResponse[T any] struct {
	OK          bool                `json:"ok"`
	Result      T                   `json:"result"`
	ErrorCode   int                 `json:"error_code,omitempty"`
	Description string              `json:"description,omitempty"`
	Parameters  *responseParameters `json:"parameters,omitempty"`
}

// redactedError hides the bot token that net/http puts into url.Error messages.
type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

func (c *Client) redact(err error) error {
	if err == nil || c.token == "" || !strings.Contains(err.Error(), c.token) {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), c.token, "<token>"), err: err}
}

func (c *Client) methodURL(method string) string {
	return c.baseURL + "/bot" + c.token + "/" + method
}

// call posts args as JSON and decodes the result, retrying while rate limited.
func call[T any](ctx context.Context, c *Client, method string, args any) (T, error) {
	var zero T
	body, err := sonic.Marshal(args)
	if err != nil {
		return zero, fmt.Errorf("encode %s request: %w", method, err)
	}
	return withRetry(ctx, c, method, func() (T, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), bytes.NewReader(body))
		if err != nil {
			return zero, c.redact(err)
		}
		req.Header.Set("Content-Type", "application/json")
		return do[T](c, method, req)
	})
}

func withRetry[T any](ctx context.Context, c *Client, method string, attempt func() (T, error)) (T, error) {
	var (
		out T
		err error
	)
	for i := range retryLimit {
		if err = c.limiter.Wait(ctx); err != nil {
			return out, err
		}
		out, err = attempt()
		if err == nil {
			return out, nil
		}
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusTooManyRequests || i == retryLimit-1 {
			return out, err
		}
		tool.DefaultLogger.Warnf("[Telegram] %s rate limited, retrying in %v", method, apiErr.RetryAfter)
		if !c.sleep(ctx, apiErr.RetryAfter) {
			return out, ctx.Err()
		}
	}
	return out, err
}

func do[T any](c *Client, method string, req *http.Request) (T, error) {
	var zero T
	resp, err := c.httpc.Do(req)
	if err != nil {
		return zero, c.redact(err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return zero, c.redact(fmt.Errorf("read %s response: %w", method, err))
	}
	return decode[T](method, resp.StatusCode, raw)
}

func decode[T any](method string, status int, raw []byte) (T, error) {
	var (
		zero T
		out  apiResponse[T]
	)
	if err := sonic.Unmarshal(raw, &out); err != nil {
		if status < 200 || status >= 300 {
			return zero, &APIError{Method: method, StatusCode: status, Description: strings.TrimSpace(string(raw))}
		}
		return zero, fmt.Errorf("decode %s response: %w", method, err)
	}
	if !out.OK || status < 200 || status >= 300 {
		apiErr := &APIError{
			Method:      method,
			StatusCode:  status,
			ErrorCode:   out.ErrorCode,
			Description: out.Description,
		}
		if out.Parameters != nil && out.Parameters.RetryAfter > 0 {
			apiErr.RetryAfter = time.Duration(out.Parameters.RetryAfter) * time.Second
		}
		return zero, apiErr
	}
	return out.Result, nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
