package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dropcode/dropcode/internal/logger"
	"github.com/dropcode/dropcode/protocol/backend"
	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// ErrTransport is returned when the backend could not be reached or
// responded with a body that could not be decoded.
var ErrTransport = errors.New("transport error")

// ResponseError is returned when the backend answered but reported failure,
// either through the success indicator or a non 2xx status.
type ResponseError struct {
	Route   backend.Route
	Status  int
	Message string
}

func (e *ResponseError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s rejected by backend (status %d)", e.Route.Name(), e.Status)
	}
	return fmt.Sprintf("%s rejected by backend (status %d): %s", e.Route.Name(), e.Status, e.Message)
}

// Config specifies where the backend operations are served.
type Config struct {
	BaseURL       string
	UploadRoute   string
	DownloadRoute string
	FeedbackRoute string
	Retries       int
	UserAgent     string
}

// Client performs the upload, download and feedback operations.
type Client struct {
	httpClient *http.Client
	routes     map[backend.Route]string
	userAgent  string
	logger     *zap.Logger
}

type Option func(*Client)

func WithLogger(lgr *zap.Logger) Option {
	return func(c *Client) {
		c.logger = lgr
	}
}

// New constructs a client for the backend described by cfg.
func New(cfg Config, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing backend url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("backend url (%s) must be http or https", cfg.BaseURL)
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be non-negative, got %d", cfg.Retries)
	}

	c := &Client{
		routes: map[backend.Route]string{
			backend.UploadRoute:   join(base, cfg.UploadRoute),
			backend.DownloadRoute: join(base, cfg.DownloadRoute),
			backend.FeedbackRoute: join(base, cfg.FeedbackRoute),
		},
		userAgent: cfg.UserAgent,
		logger:    zap.NewNop(),
	}
	if c.userAgent == "" {
		c.userAgent = "dropcode"
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		retryClient := retryablehttp.NewClient()
		retryClient.RetryMax = cfg.Retries
		retryClient.RetryWaitMin = 500 * time.Millisecond
		retryClient.RetryWaitMax = 5 * time.Second
		retryClient.Logger = &retryLogger{logger: c.logger}
		// Hand failed responses back so the backend message can be surfaced.
		retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
		c.httpClient = retryClient.StandardClient()
	}
	return c, nil
}

// Upload submits the encoded file and returns the backend response.
func (c *Client) Upload(ctx context.Context, req backend.UploadRequest) (backend.UploadResponse, error) {
	var res backend.UploadResponse
	status, err := c.do(ctx, backend.UploadRoute, http.MethodPost, nil, req, &res)
	if err != nil {
		return backend.UploadResponse{}, err
	}
	if err := check(backend.UploadRoute, status, res.Status); err != nil {
		return res, err
	}
	return res, nil
}

// Download looks up the file stored under code.
func (c *Client) Download(ctx context.Context, code string) (backend.DownloadResponse, error) {
	var res backend.DownloadResponse
	query := url.Values{"code": []string{code}}
	status, err := c.do(ctx, backend.DownloadRoute, http.MethodGet, query, nil, &res)
	if err != nil {
		return backend.DownloadResponse{}, err
	}
	if err := check(backend.DownloadRoute, status, res.Status); err != nil {
		return res, err
	}
	return res, nil
}

// Feedback submits a rating and comment.
func (c *Client) Feedback(ctx context.Context, req backend.FeedbackRequest) (backend.FeedbackResponse, error) {
	var res backend.FeedbackResponse
	status, err := c.do(ctx, backend.FeedbackRoute, http.MethodPost, nil, req, &res)
	if err != nil {
		return backend.FeedbackResponse{}, err
	}
	if err := check(backend.FeedbackRoute, status, res.Status); err != nil {
		return res, err
	}
	return res, nil
}

// Fetch retrieves the payload behind a resolved download url. The caller
// must close the returned body. The size is -1 when unknown.
func (c *Client) Fetch(ctx context.Context, rawURL string) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("creating fetch request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	r, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: fetching payload: %v", ErrTransport, err)
	}
	if r.StatusCode < 200 || r.StatusCode > 299 {
		r.Body.Close()
		return nil, 0, fmt.Errorf("%w: fetching payload: unexpected status %d", ErrTransport, r.StatusCode)
	}
	return r.Body, r.ContentLength, nil
}

// ------------------------------------------------------ Helpers ------------------------------------------------------

// do performs a request against route and decodes the json response into dst,
// returning the http status.
func (c *Client) do(ctx context.Context, route backend.Route, method string, query url.Values, body any, dst any) (int, error) {
	requestID := uuid.NewString()
	lgr := logger.FromContextOr(ctx, c.logger).With(
		zap.String("route", route.Name()),
		zap.String("request_id", requestID),
	)

	target := c.routes[route]
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encoding %s request: %w", route.Name(), err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return 0, fmt.Errorf("creating %s request: %w", route.Name(), err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-Id", requestID)

	start := time.Now()
	lgr.Debug("sending request", zap.String("method", method))
	r, err := c.httpClient.Do(req)
	if err != nil {
		lgr.Warn("request failed", zap.Error(err))
		return 0, fmt.Errorf("%w: %s request: %v", ErrTransport, route.Name(), err)
	}
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		lgr.Warn("undecodable response", zap.Int("status", r.StatusCode), zap.Error(err))
		return r.StatusCode, fmt.Errorf("%w: decoding %s response (status %d): %v", ErrTransport, route.Name(), r.StatusCode, err)
	}
	lgr.Debug("received response",
		zap.Int("status", r.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)
	return r.StatusCode, nil
}

func check(route backend.Route, status int, s backend.Status) error {
	if status >= 200 && status <= 299 && s.Success {
		return nil
	}
	return &ResponseError{Route: route, Status: status, Message: s.Message}
}

func join(base *url.URL, route string) string {
	u := *base
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(route, "/")
	return u.String()
}

// retryLogger adapts zap to the retryablehttp.LeveledLogger interface.
type retryLogger struct {
	logger *zap.Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw(msg, keysAndValues...)
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Infow(msg, keysAndValues...)
}

func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Warnw(msg, keysAndValues...)
}
