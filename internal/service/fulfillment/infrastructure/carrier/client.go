// Package carrier 是 Shiprocket 风格承运商 REST API 的客户端
package carrier

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/propranjan/radhagsareees-sub002/internal/pkg/httpclient"
	"github.com/propranjan/radhagsareees-sub002/internal/pkg/logger"
	"github.com/propranjan/radhagsareees-sub002/internal/pkg/metrics"
	"github.com/propranjan/radhagsareees-sub002/internal/service/fulfillment/domain"
)

type Config struct {
	BaseURL       string
	Email         string
	Password      string
	Token         string
	Timeout       time.Duration
	TokenTTL      time.Duration
	RefreshBuffer time.Duration
}

// Client 每次调用只发一次请求，不做重试
type Client struct {
	baseURL string
	timeout time.Duration
	http    *httpclient.Client
	tokens  *TokenSource
}

type Option func(*Client)

// WithHTTPClient 测试时替换底层 http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http.HTTPClient = hc }
}

func WithTracer(t trace.Tracer) Option {
	return func(c *Client) { c.http.Tracer = t }
}

// New store 为 nil 时只使用进程内缓存
func New(cfg Config, store TokenStore, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: cfg.Timeout,
		http:    httpclient.NewClient(otel.Tracer("carrier-client")),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.tokens = NewTokenSource(AuthConfig{
		Email:         cfg.Email,
		Password:      cfg.Password,
		Token:         cfg.Token,
		TTL:           cfg.TokenTTL,
		RefreshBuffer: cfg.RefreshBuffer,
		Timeout:       cfg.Timeout,
	}, c.login, store)
	return c
}

// Tokens 暴露给测试
func (c *Client) Tokens() *TokenSource { return c.tokens }

// do 带 token 调用 endpoint，out 为 nil 时丢弃响应体
func (c *Client) do(ctx context.Context, endpoint, method, path string, query url.Values, body, out any) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		metrics.CarrierRequests.WithLabelValues(endpoint, "auth_error").Inc()
		return err
	}
	status, respBody, err := c.send(ctx, endpoint, method, path, query, body, token)
	if err != nil {
		return err
	}
	if status == http.StatusUnauthorized {
		// 下次调用重新换 token，本次不重试
		c.tokens.Invalidate(token)
	}
	if status < 200 || status >= 300 {
		metrics.CarrierRequests.WithLabelValues(endpoint, "error").Inc()
		return parseAPIError(status, respBody)
	}
	metrics.CarrierRequests.WithLabelValues(endpoint, "ok").Inc()
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return domain.Wrap(domain.KindCarrier, endpoint, errors.Wrap(err, "decode carrier response"))
	}
	return nil
}

// send 发出单次请求，返回状态码和响应体；超时归类为 KindTimeout
func (c *Client) send(ctx context.Context, endpoint, method, path string, query url.Values, body any, token string) (int, []byte, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, domain.Wrap(domain.KindValidation, endpoint, errors.Wrap(err, "encode carrier request"))
		}
		reader = bytes.NewReader(data)
	}
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(callCtx, method, u, reader)
	if err != nil {
		return 0, nil, domain.Wrap(domain.KindCarrier, endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(callCtx, endpoint, req)
	metrics.CarrierLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		return 0, nil, c.transportError(callCtx, endpoint, err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, c.transportError(callCtx, endpoint, err)
	}
	logger.Ctx(ctx).Debug().Str("endpoint", endpoint).Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).Msg("carrier call finished")
	return resp.StatusCode, respBody, nil
}

func (c *Client) transportError(callCtx context.Context, endpoint string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		metrics.CarrierRequests.WithLabelValues(endpoint, "timeout").Inc()
		e := domain.Wrap(domain.KindTimeout, endpoint, err)
		e.Message = "carrier request timed out after " + c.timeout.String()
		return e
	}
	metrics.CarrierRequests.WithLabelValues(endpoint, "error").Inc()
	return domain.Wrap(domain.KindCarrier, endpoint, err)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// login 不携带 token，失败时返回 *APIError 或传输错误
func (c *Client) login(ctx context.Context, email, password string) (string, error) {
	const endpoint = "auth_login"
	status, body, err := c.send(ctx, endpoint, http.MethodPost, "/auth/login",
		nil, loginRequest{Email: email, Password: password}, "")
	if err != nil {
		return "", err
	}
	if status < 200 || status >= 300 {
		metrics.CarrierRequests.WithLabelValues(endpoint, "error").Inc()
		return "", parseAPIError(status, body)
	}
	var lr loginResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return "", errors.Wrap(err, "decode login response")
	}
	metrics.CarrierRequests.WithLabelValues(endpoint, "ok").Inc()
	return lr.Token, nil
}
