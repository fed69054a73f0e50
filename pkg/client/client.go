// Package client provides the HTTP transport to the disk-analyzer backend.
package client

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nathsou/disk-analyzer/pkg/protocol"
	"github.com/nathsou/disk-analyzer/pkg/retry"
)

// RequestIDHeader carries a per-request id so client and server logs can
// be correlated.
const RequestIDHeader = "X-Request-ID"

// maxErrorBody bounds how much of a rejected response is read.
const maxErrorBody = 64 << 10

// Client talks to the backend with optional retries and auth.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	retryConfig retry.Config
	log         *zap.Logger
	authToken   string

	mu       sync.RWMutex
	online   bool
	lastSeen time.Time
}

// Config holds client configuration.
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	RetryConfig retry.Config
	AuthToken   string
	// Transport replaces the default transport, e.g. with an instrumented one.
	Transport http.RoundTripper
	Logger    *zap.Logger
}

// DefaultTransport returns the transport used when Config.Transport is nil.
func DefaultTransport() *http.Transport {
	return &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
}

// New creates a new client.
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if cfg.RetryConfig.MaxAttempts == 0 {
		cfg.RetryConfig = retry.DefaultConfig()
	}
	if cfg.Transport == nil {
		cfg.Transport = DefaultTransport()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
		},
		retryConfig: cfg.RetryConfig,
		log:         cfg.Logger,
		online:      true,
		authToken:   cfg.AuthToken,
	}
}

// BaseURL returns the API base URL requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// applyAuth adds the auth header to a request if a token is set.
func (c *Client) applyAuth(req *http.Request) {
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
}

// IsOnline reports whether the last request reached the server.
func (c *Client) IsOnline() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.online
}

// LastSeen returns when the server last answered.
func (c *Client) LastSeen() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastSeen
}

func (c *Client) setOnline(online bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.online != online {
		if online {
			c.log.Info("server is back online", zap.String("server", c.baseURL))
		} else {
			c.log.Error("server is offline", zap.String("server", c.baseURL))
		}
	}
	c.online = online
	if online {
		c.lastSeen = time.Now()
	}
}

// TransportError is returned when a request fails on the network, is
// rejected by the server or has an undecodable body.
type TransportError struct {
	Op     string // e.g. "GET /ls"
	Status int    // 0 when no response was received
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: server returned %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// AsTransport checks if an error is a TransportError and returns it.
func AsTransport(err error) (*TransportError, bool) {
	var te *TransportError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// OSInfo fetches the descriptor of the explored machine.
func (c *Client) OSInfo(ctx context.Context) (*protocol.OSInfoResponse, error) {
	var resp protocol.OSInfoResponse
	if err := c.get(ctx, protocol.PathOSInfo, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListDirectory fetches the immediate children of path. Directory sizes
// are only computed by the server when showDirSize is set.
func (c *Client) ListDirectory(ctx context.Context, path string, showDirSize bool) (*protocol.LsResponse, error) {
	params := url.Values{}
	params.Set(protocol.ParamPath, path)
	params.Set(protocol.ParamShowDirSize, strconv.FormatBool(showDirSize))

	var resp protocol.LsResponse
	if err := c.get(ctx, protocol.PathLs, params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DirInfo fetches the recursive summary of path. A zero count lets the
// server apply its default.
func (c *Client) DirInfo(ctx context.Context, path string, filesCount, dirsCount int) (*protocol.DirResponse, error) {
	params := url.Values{}
	params.Set(protocol.ParamPath, path)
	if filesCount > 0 {
		params.Set(protocol.ParamFilesCount, strconv.Itoa(filesCount))
	}
	if dirsCount > 0 {
		params.Set(protocol.ParamDirsCount, strconv.Itoa(dirsCount))
	}

	var resp protocol.DirResponse
	if err := c.get(ctx, protocol.PathDir, params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	op := http.MethodGet + " " + endpoint
	target := c.baseURL + endpoint
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	return retry.Do(ctx, c.retryConfig, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return &TransportError{Op: op, Err: err}
		}
		reqID := uuid.NewString()
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Accept-Encoding", "gzip")
		req.Header.Set(RequestIDHeader, reqID)
		c.applyAuth(req)

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return &TransportError{Op: op, Err: ctx.Err()}
			}
			c.setOnline(false)
			return retry.Retryable(&TransportError{Op: op, Err: err})
		}
		defer resp.Body.Close()

		c.log.Debug("request done",
			zap.String("op", op),
			zap.String("request_id", reqID),
			zap.Int("status", resp.StatusCode),
			zap.Duration("duration", time.Since(start)),
		)

		if resp.StatusCode != http.StatusOK {
			c.setOnline(resp.StatusCode < 500)
			terr := &TransportError{Op: op, Status: resp.StatusCode, Err: rejection(resp)}
			if resp.StatusCode >= 500 {
				return retry.Retryable(terr)
			}
			return terr
		}

		c.setOnline(true)

		var reader io.Reader = resp.Body
		if resp.Header.Get("Content-Encoding") == "gzip" {
			gr, err := gzip.NewReader(resp.Body)
			if err != nil {
				return &TransportError{Op: op, Status: resp.StatusCode, Err: err}
			}
			defer gr.Close()
			reader = gr
		}

		if err := json.NewDecoder(reader).Decode(out); err != nil {
			return &TransportError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
		}
		return nil
	})
}

// rejection extracts the server's explanation from a failed response: the
// message of a {"message": ...} body, or the body text itself.
func rejection(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var errResp protocol.ErrorResponse
	if json.Unmarshal(body, &errResp) == nil && errResp.Message != "" {
		return errors.New(errResp.Message)
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return errors.New(text)
	}
	return errors.New(http.StatusText(resp.StatusCode))
}
