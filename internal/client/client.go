// Package client talks to the archive server over HTTP and implements the
// blob and record store contracts of the client core.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/community-archive/pkg/errors"
)

const maxErrorBody = 64 * 1024

// Config locates the archive server.
type Config struct {
	BaseURL   string
	APIPrefix string
	Timeout   time.Duration
	Logger    *zap.Logger
}

type envelope[T any] struct {
	Data  T                `json:"data"`
	Error *appErrors.Error `json:"error,omitempty"`
}

type base struct {
	origin string
	root   string
	http   *http.Client
	logger *zap.Logger
}

func newBase(cfg Config) base {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	prefix := "/" + strings.Trim(cfg.APIPrefix, "/")
	if prefix == "/" {
		prefix = ""
	}
	origin := strings.TrimRight(cfg.BaseURL, "/")
	return base{
		origin: origin,
		root:   origin + prefix,
		http:   newHTTPClient(cfg.Timeout),
		logger: logger,
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = 4
	return &http.Client{Timeout: timeout, Transport: transport}
}

func (b base) endpoint(segments ...string) string {
	escaped := make([]string, 0, len(segments))
	for _, segment := range segments {
		escaped = append(escaped, url.PathEscape(segment))
	}
	return b.root + "/" + strings.Join(escaped, "/")
}

// resolve makes a server-relative URL absolute.
func (b base) resolve(target string) string {
	if strings.HasPrefix(target, "/") {
		return b.origin + target
	}
	return target
}

func (b base) doJSON(ctx context.Context, client *http.Client, method, target string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if client == nil {
		client = b.http
	}
	return b.send(client, req, out)
}

func (b base) send(client *http.Client, req *http.Request, out any) error {
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	b.logger.Debug("archive request",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodeError turns a non-2xx response into a typed error carrying the
// server's message when the body is an envelope.
func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var env envelope[json.RawMessage]
	if err := json.Unmarshal(raw, &env); err == nil && env.Error != nil && env.Error.Message != "" {
		return &appErrors.Error{Code: env.Error.Code, Message: env.Error.Message, Status: resp.StatusCode}
	}
	message := strings.TrimSpace(string(raw))
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}
	return appErrors.New("HTTP_ERROR", resp.StatusCode, message)
}
