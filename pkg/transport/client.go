package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	DefaultTimeout    = 10 * time.Second
	DefaultRetries    = 1
	DefaultRetryDelay = time.Second
	DefaultUserAgent  = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"
)

var (
	// ErrStatus 非 200 响应
	ErrStatus = errors.New("unexpected http status")
	// ErrEmptyBody 响应体为空
	ErrEmptyBody = errors.New("empty response body")
)

// Config 传输层配置
type Config struct {
	Timeout    time.Duration
	Retries    int
	RetryDelay time.Duration
	UserAgent  string
	Headers    map[string]string
	// MinInterval 同一个客户端两次请求之间的最小间隔，0 表示不限制
	MinInterval time.Duration
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Timeout:    DefaultTimeout,
		Retries:    DefaultRetries,
		RetryDelay: DefaultRetryDelay,
		UserAgent:  DefaultUserAgent,
	}
}

// Client 单个提供商持有的 HTTP 会话。
// 不同提供商不能共享同一个 Client。
type Client struct {
	secure   *http.Client
	insecure *http.Client
	limiter  *rate.Limiter
	cfg      Config
	logger   zerolog.Logger
}

// NewClient 创建新的传输客户端，name 用于日志
func NewClient(name string, cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	secureTransport := http.DefaultTransport.(*http.Transport).Clone()
	insecureTransport := http.DefaultTransport.(*http.Transport).Clone()
	insecureTransport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec

	limit := rate.Inf
	if cfg.MinInterval > 0 {
		limit = rate.Every(cfg.MinInterval)
	}

	return &Client{
		secure:   &http.Client{Timeout: cfg.Timeout, Transport: secureTransport},
		insecure: &http.Client{Timeout: cfg.Timeout, Transport: insecureTransport},
		limiter:  rate.NewLimiter(limit, 1),
		cfg:      cfg,
		logger:   log.With().Str("component", "transport").Str("provider", name).Logger(),
	}
}

// Get 发起 GET 请求
func (c *Client) Get(ctx context.Context, rawURL string, params url.Values) ([]byte, error) {
	return c.Request(ctx, http.MethodGet, rawURL, params)
}

// Request 执行一次请求并返回 200 响应体。
// 证书校验失败时仅对本次调用关闭校验重试一次；连接错误或超时按配置重试。
// 任何失败（包括非 200）都以 error 返回，调用方应一视同仁地当作"无结果"。
func (c *Client) Request(ctx context.Context, method, rawURL string, params url.Values) (body []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("request %s panicked: %v", rawURL, r)
		}
	}()

	target, err := buildURL(rawURL, params)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt <= c.cfg.Retries; attempt++ {
		if attempt > 0 {
			c.logger.Info().
				Int("attempt", attempt).
				Int("max_retries", c.cfg.Retries).
				Dur("delay", c.cfg.RetryDelay).
				Msg("Retrying request")
			if err := sleep(ctx, c.cfg.RetryDelay); err != nil {
				return nil, err
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, err = c.once(ctx, c.secure, method, target)
		if err != nil && isCertificateError(err) {
			c.logger.Warn().Err(err).Str("url", target).Msg("TLS verification failed, retrying without verification")
			body, err = c.once(ctx, c.insecure, method, target)
		}
		if err == nil {
			return body, nil
		}

		if ctx.Err() != nil || !isTransient(err) {
			break
		}
		c.logger.Warn().Err(err).Str("url", target).Int("attempt", attempt+1).Msg("Request failed")
	}

	return nil, err
}

func (c *Client) once(ctx context.Context, client *http.Client, method, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.cfg.UserAgent)
	for k, v := range c.cfg.Headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(body) == 0 {
		return nil, ErrEmptyBody
	}
	return body, nil
}

func buildURL(rawURL string, params url.Values) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid url %q: missing scheme or host", rawURL)
	}
	if len(params) > 0 {
		q := u.Query()
		for k, vs := range params {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// isCertificateError 判断是否为证书校验失败
func isCertificateError(err error) bool {
	var verifyErr *tls.CertificateVerificationError
	if errors.As(err, &verifyErr) {
		return true
	}
	var unknownAuthority x509.UnknownAuthorityError
	if errors.As(err, &unknownAuthority) {
		return true
	}
	var hostnameErr x509.HostnameError
	if errors.As(err, &hostnameErr) {
		return true
	}
	var invalidErr x509.CertificateInvalidError
	return errors.As(err, &invalidErr)
}

// isTransient 连接失败或超时
func isTransient(err error) bool {
	if errors.Is(err, ErrStatus) || errors.Is(err, ErrEmptyBody) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		strings.Contains(err.Error(), "connection reset")
}
