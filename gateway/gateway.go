// Package gateway issues authenticated requests to the backend. Every call
// carries the current bearer token, and a 401 response invalidates the
// session before the call returns.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-timetrack-client/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	defaultTimeout       = 20 * time.Second
	defaultUploadTimeout = 30 * time.Second
	headerRequestID      = "X-Request-ID"
)

// Session is the part of the session store the gateway needs.
// *sessions.Store implements it.
type Session interface {
	// Credentials returns the bearer token and the generation it belongs to.
	Credentials() (*oauth2.Token, uint64, error)
	// InvalidateIf logs out unless the generation has moved on.
	InvalidateIf(generation uint64) bool
}

// Request describes one call. Path is joined to the base URL.
type Request struct {
	Method      string
	Path        string
	Query       url.Values
	Header      http.Header
	Body        io.Reader
	ContentType string
	// Token overrides the stored access token for this call only.
	Token string
	// Timeout overrides the gateway default.
	Timeout time.Duration
}

type Gateway struct {
	baseURL       string
	client        *http.Client
	session       Session
	timeout       time.Duration
	uploadTimeout time.Duration
	logger        zerolog.Logger
	userAgent     string
}

type Option func(*Gateway)

func WithHTTPClient(client *http.Client) Option {
	return func(g *Gateway) {
		g.client = client
	}
}

func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

func WithUploadTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.uploadTimeout = d
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

func WithUserAgent(ua string) Option {
	return func(g *Gateway) {
		g.userAgent = ua
	}
}

func New(baseURL string, session Session, options ...Option) *Gateway {
	g := &Gateway{
		baseURL:       strings.TrimRight(baseURL, "/"),
		client:        &http.Client{},
		session:       session,
		timeout:       defaultTimeout,
		uploadTimeout: defaultUploadTimeout,
		logger:        log.With().Str("component", "gateway").Logger(),
	}
	for _, opt := range options {
		opt(g)
	}
	return g
}

// NewFromConfig builds a gateway using the configured base URL and timeouts.
// Options are applied after the configured values.
func NewFromConfig(c config.Config, session Session, options ...Option) *Gateway {
	opts := []Option{
		WithTimeout(c.GetDefaultTimeout()),
		WithUploadTimeout(c.GetUploadTimeout()),
		WithUserAgent(c.GetAppName()),
	}
	return New(c.GetAPIURL(), session, append(opts, options...)...)
}

func (g *Gateway) BaseURL() string {
	return g.baseURL
}

func (g *Gateway) UploadTimeout() time.Duration {
	return g.uploadTimeout
}

// Do performs the request and never panics or returns a nil Result. On a 401
// the session is invalidated, provided no new login happened while the
// request was in flight.
func (g *Gateway) Do(ctx context.Context, req *Request) *Result {
	requestID := uuid.NewString()
	res := &Result{RequestID: requestID}
	start := time.Now()
	defer func() {
		res.Duration = time.Since(start)
		g.logResult(req, res)
	}()

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = g.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// The generation is captured before the request leaves so a login that
	// lands while it is in flight is not undone by its 401.
	tok, generation, _ := g.session.Credentials()
	if req.Token != "" {
		tok = &oauth2.Token{AccessToken: req.Token, TokenType: "Bearer"}
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, g.url(req), req.Body)
	if err != nil {
		res.Err = &Error{Kind: KindTransport, Message: "invalid request", Err: err}
		return res
	}
	for k, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(k, v)
		}
	}
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}
	if g.userAgent != "" {
		httpReq.Header.Set("User-Agent", g.userAgent)
	}
	httpReq.Header.Set(headerRequestID, requestID)
	if tok != nil {
		tok.SetAuthHeader(httpReq)
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		res.Err = transportError(err, timeout)
		return res
	}
	defer resp.Body.Close()

	res.StatusCode = resp.StatusCode
	res.Header = resp.Header
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		res.Err = transportError(err, timeout)
		return res
	}
	res.Body = body

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		cleared := g.session.InvalidateIf(generation)
		g.logger.Warn().
			Str("request_id", requestID).
			Bool("session_cleared", cleared).
			Msg("Backend rejected credentials")
		res.Err = &Error{
			Kind:       KindAuthorization,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.StatusCode, body),
		}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		res.Err = &Error{
			Kind:       KindStatus,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.StatusCode, body),
		}
	}
	return res
}

func (g *Gateway) url(req *Request) string {
	path := req.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := g.baseURL + path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}
	return u
}

func (g *Gateway) logResult(req *Request, res *Result) {
	evt := g.logger.Debug()
	if res.Err != nil {
		evt = g.logger.Info().Err(res.Err)
	}
	evt.Str("request_id", res.RequestID).
		Str("method", req.Method).
		Str("path", req.Path).
		Int("status", res.StatusCode).
		Dur("duration", res.Duration).
		Msg("Backend request")
}

func transportError(err error, timeout time.Duration) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTransport, Message: fmt.Sprintf("request timed out after %s", timeout), Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return &Error{Kind: KindTransport, Message: "request cancelled", Err: err}
	}
	return &Error{Kind: KindTransport, Message: "could not reach server", Err: err}
}
