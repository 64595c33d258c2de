// Package compiler talks to the remote PureScript compile service.
package compiler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/leapstack-labs/psplay/pkg/core"
)

// Default endpoints of the public try-purescript service.
const (
	DefaultCompileURL = "https://compile.purescript.org/try/compile"
	DefaultBundleURL  = "https://compile.purescript.org/try/bundle"
	DefaultTimeout    = 30 * time.Second
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 64 << 20

// genericDiagnostic is shown when the service rejects a unit without detail.
const genericDiagnostic = "compilation failed"

// Config configures a Client.
type Config struct {
	// CompileURL receives compilation units. Defaults to DefaultCompileURL.
	CompileURL string

	// BundleURL serves the runtime bundle. Defaults to DefaultBundleURL.
	BundleURL string

	// Timeout bounds each request. Defaults to DefaultTimeout.
	Timeout time.Duration

	// HTTPClient is used for requests. Defaults to a client with no timeout;
	// Timeout is applied through the request context.
	HTTPClient *http.Client

	// Logger is optional; a discard logger is used when nil.
	Logger *slog.Logger
}

// Client issues compile and bundle requests.
//
// A Client has no per-request state and may be used concurrently.
type Client struct {
	compileURL string
	bundleURL  string
	timeout    time.Duration
	http       *http.Client
	logger     *slog.Logger
}

// New creates a Client, applying defaults for unset fields.
func New(cfg Config) (*Client, error) {
	if cfg.CompileURL == "" {
		cfg.CompileURL = DefaultCompileURL
	}
	if cfg.BundleURL == "" {
		cfg.BundleURL = DefaultBundleURL
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("%w: negative timeout %v", ErrConfiguration, cfg.Timeout)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	return &Client{
		compileURL: cfg.CompileURL,
		bundleURL:  cfg.BundleURL,
		timeout:    cfg.Timeout,
		http:       cfg.HTTPClient,
		logger:     cfg.Logger,
	}, nil
}

// response is the wire shape of a compile response.
type response struct {
	Error *errorBody `json:"error"`
	JS    *string    `json:"js"`
}

type errorBody struct {
	Tag      string          `json:"tag"`
	Contents json.RawMessage `json:"contents"`
}

type diagnosticRecord struct {
	Message  string         `json:"message"`
	Position *core.Position `json:"position"`
}

// Compile submits unit and interprets the response.
//
// A compiler rejection is returned as core.Diagnostic with a nil error. Any
// failure to obtain a verdict is returned as a *TransportError.
func (c *Client) Compile(ctx context.Context, unit core.CompilationUnit) (core.CompileResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.compileURL, strings.NewReader(unit.Source))
	if err != nil {
		return nil, c.transportErr("compile", c.compileURL, 0, err)
	}
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	body, status, err := c.do(req)
	if err != nil {
		return nil, c.transportErr("compile", c.compileURL, status, err)
	}
	c.logger.Debug("compile request finished",
		"bytes", len(unit.Source),
		"status", status,
		"duration", time.Since(start))

	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, c.transportErr("compile", c.compileURL, status, fmt.Errorf("malformed response: %w", err))
	}

	switch {
	case resp.Error != nil:
		return decodeDiagnostic(resp.Error), nil
	case resp.JS != nil && status < http.StatusMultipleChoices:
		return core.Artifact{Code: *resp.JS}, nil
	case status >= http.StatusMultipleChoices:
		return nil, c.transportErr("compile", c.compileURL, status, errors.New("unexpected status"))
	default:
		return nil, c.transportErr("compile", c.compileURL, status, errors.New("response has neither error nor js"))
	}
}

// FetchBundle downloads the runtime bundle.
func (c *Client) FetchBundle(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.bundleURL, nil)
	if err != nil {
		return "", c.transportErr("bundle", c.bundleURL, 0, err)
	}

	body, status, err := c.do(req)
	if err != nil {
		return "", c.transportErr("bundle", c.bundleURL, status, err)
	}
	if status >= http.StatusMultipleChoices {
		return "", c.transportErr("bundle", c.bundleURL, status, errors.New("unexpected status"))
	}
	if len(body) == 0 {
		return "", c.transportErr("bundle", c.bundleURL, status, errors.New("empty bundle"))
	}

	c.logger.Info("fetched runtime bundle", "url", c.bundleURL, "bytes", len(body))
	return string(body), nil
}

// do performs req and returns the body and status code.
func (c *Client) do(req *http.Request) ([]byte, int, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(resp.Body, maxResponseBytes)); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	return buf.Bytes(), resp.StatusCode, nil
}

func (c *Client) transportErr(op, url string, status int, err error) error {
	c.logger.Warn("compile service request failed", "op", op, "url", url, "status", status, "error", err)
	return &TransportError{Op: op, URL: url, StatusCode: status, Err: err}
}

// decodeDiagnostic keeps the first diagnostic of an error response. The
// service sends either a list of records or a single message string.
func decodeDiagnostic(e *errorBody) core.Diagnostic {
	var records []diagnosticRecord
	if err := json.Unmarshal(e.Contents, &records); err == nil {
		if len(records) == 0 || records[0].Message == "" {
			return core.Diagnostic{Message: genericDiagnostic}
		}
		return core.Diagnostic{Message: records[0].Message, Position: records[0].Position}
	}

	var message string
	if err := json.Unmarshal(e.Contents, &message); err == nil && message != "" {
		return core.Diagnostic{Message: message}
	}

	return core.Diagnostic{Message: genericDiagnostic}
}
