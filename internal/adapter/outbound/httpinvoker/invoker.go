// Package httpinvoker calls the HTTP API behind a generated tool.
package httpinvoker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/i2y/apiforge/internal/domain"
)

// Options tune every request the invoker sends.
type Options struct {
	// DefaultBaseURL is used for tools that carry no base URL of their own.
	DefaultBaseURL string
	// AuthHeaders are static headers added to every request, typically
	// Authorization or an API key header.
	AuthHeaders map[string]string
}

// Invoker implements the usecase.ToolInvoker interface using standard net/http.
type Invoker struct {
	client *http.Client
	opts   Options
	logger *slog.Logger
}

// New creates a new HTTP Invoker.
func New(client *http.Client, opts Options, logger *slog.Logger) *Invoker {
	if client == nil {
		client = http.DefaultClient
	}
	return &Invoker{
		client: client,
		opts:   opts,
		logger: logger.With("component", "http_invoker"),
	}
}

// Invoke builds the request for tool from args, sends it and decodes the
// response. JSON responses are decoded; anything else is returned as text.
func (i *Invoker) Invoke(ctx context.Context, tool domain.ToolDefinition, args map[string]interface{}) (interface{}, error) {
	log := i.logger.With(
		slog.String("tool_name", tool.Name),
		slog.String("method", string(tool.Method)),
		slog.String("path", tool.PathTemplate),
	)

	req, err := i.newRequest(ctx, tool, args)
	if err != nil {
		log.Error("Failed to build HTTP request", slog.Any("error", err))
		return nil, err
	}
	log = log.With(slog.String("url", req.URL.String()))

	log.Debug("Executing HTTP request")
	resp, err := i.client.Do(req)
	if err != nil {
		log.Error("HTTP request failed", slog.Any("error", err))
		return nil, fmt.Errorf("request execution failed: %w", err)
	}
	defer resp.Body.Close()

	log = log.With(slog.Int("status_code", resp.StatusCode))
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error("Failed to read response body", slog.Any("error", err))
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Warn("Received non-success status code", slog.String("response_body", string(respBody)))
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, respBody)
	}

	if strings.Contains(resp.Header.Get("Content-Type"), "json") && len(respBody) > 0 {
		var result interface{}
		if err := json.Unmarshal(respBody, &result); err != nil {
			log.Warn("Failed to unmarshal JSON response, returning raw body as string", slog.Any("error", err))
			return string(respBody), nil
		}
		return result, nil
	}
	return string(respBody), nil
}

func (i *Invoker) newRequest(ctx context.Context, tool domain.ToolDefinition, args map[string]interface{}) (*http.Request, error) {
	base := tool.BaseURL
	if base == "" {
		base = i.opts.DefaultBaseURL
	}
	if base == "" {
		return nil, fmt.Errorf("tool %s has no base URL", tool.Name)
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %s: %w", base, err)
	}

	path, err := tool.BuildPath(args)
	if err != nil {
		return nil, err
	}
	raw := strings.TrimRight(u.EscapedPath(), "/") + path
	if u.Path, err = url.PathUnescape(raw); err != nil {
		return nil, fmt.Errorf("invalid request path %s: %w", raw, err)
	}
	u.RawPath = raw
	if q := tool.BuildQuery(args); len(q) > 0 {
		u.RawQuery = q.Encode()
	}

	var (
		body        io.Reader
		contentType string
	)
	if tool.Method.HasBody() {
		form := tool.BuildForm(args)
		payload := tool.BuildBody(args)
		switch {
		case len(form) > 0 && len(payload) == 0:
			body = strings.NewReader(form.Encode())
			contentType = "application/x-www-form-urlencoded"
		default:
			if payload == nil {
				payload = map[string]any{}
			}
			// Form arguments that share a request with JSON ride in the body.
			for k, v := range form {
				payload[k] = v[0]
			}
			data, err := json.Marshal(payload)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal request body: %w", err)
			}
			body = bytes.NewReader(data)
			contentType = "application/json"
		}
	}

	req, err := http.NewRequestWithContext(ctx, string(tool.Method), u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range i.opts.AuthHeaders {
		req.Header.Set(k, v)
	}
	for k, v := range tool.BuildHeaders(args) {
		req.Header[k] = v
	}
	for _, c := range tool.BuildCookies(args) {
		req.AddCookie(c)
	}
	return req, nil
}
