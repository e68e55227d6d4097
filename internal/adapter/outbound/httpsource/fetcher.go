// Package httpsource fetches sources over HTTP(S), auto-discovering OpenAPI
// documents when a source names a bare host.
package httpsource

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/i2y/apiforge/internal/domain"
	"github.com/i2y/apiforge/internal/usecase"
)

const userAgent = "apiforge/1.0"

// DefaultMaxBodySize bounds a fetched body.
const DefaultMaxBodySize = 16 << 20

// Options tunes a SourceFetcher.
type Options struct {
	// RequestsPerSecond limits requests per host; zero disables limiting.
	RequestsPerSecond float64
	Burst             int
	MaxBodySize       int64
}

// SourceFetcher implements usecase.SourceFetcher for http and https URLs.
type SourceFetcher struct {
	httpClient  *http.Client
	limiter     *hostLimiter
	maxBodySize int64
	logger      *slog.Logger
}

// NewSourceFetcher creates an HTTP fetcher. A nil client selects
// http.DefaultClient.
func NewSourceFetcher(client *http.Client, opts Options, logger *slog.Logger) *SourceFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = DefaultMaxBodySize
	}
	return &SourceFetcher{
		httpClient:  client,
		limiter:     newHostLimiter(opts.RequestsPerSecond, opts.Burst),
		maxBodySize: opts.MaxBodySize,
		logger:      logger.With("component", "http_fetcher"),
	}
}

func (f *SourceFetcher) Accepts(cfg usecase.SourceConfig) bool {
	u := strings.ToLower(cfg.URL)
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}

// Fetch downloads cfg.URL. A URL without a path and without a configured
// type is first treated as an API host whose OpenAPI document sits at a
// well-known path; when none is found the URL itself is fetched.
func (f *SourceFetcher) Fetch(ctx context.Context, cfg usecase.SourceConfig) ([]domain.Source, error) {
	log := f.logger.With(slog.String("source", cfg.URL))
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid source URL %s: %w", cfg.URL, err)
	}

	if (u.Path == "" || u.Path == "/") && u.RawQuery == "" && cfg.Kind == "" {
		log.Info("Source appears to be a base URL, attempting auto-discovery")
		if found, body, ok := f.discover(ctx, cfg.URL, cfg.Headers, log); ok {
			src := cfg.NewSource(found, domain.KindSpec, "", body)
			if src.BaseURL == "" {
				src.BaseURL = strings.TrimRight(cfg.URL, "/")
			}
			return []domain.Source{src}, nil
		}
		log.Info("Auto-discovery found nothing, fetching the URL itself")
	}

	resp, err := f.get(ctx, cfg.URL, cfg.Headers)
	if err != nil {
		log.Error("Failed to fetch source", slog.Any("error", err))
		return nil, fmt.Errorf("failed to fetch %s: %w", cfg.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warn("Received non-OK status code from URL", slog.String("status", resp.Status), slog.Int("status_code", resp.StatusCode))
		return nil, fmt.Errorf("failed to fetch %s: status %s", cfg.URL, resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
	if err != nil {
		log.Error("Failed to read response body from URL", slog.Any("error", err))
		return nil, fmt.Errorf("failed to read response body from %s: %w", cfg.URL, err)
	}
	if int64(len(body)) > f.maxBodySize {
		return nil, fmt.Errorf("response from %s exceeds %d bytes", cfg.URL, f.maxBodySize)
	}

	kind, lang, ok := cfg.Classify(u.Path)
	if !ok {
		kind, lang, ok = KindForContentType(resp.Header.Get("Content-Type"), body)
	}
	if !ok {
		return nil, fmt.Errorf("cannot tell what kind of source %s is (Content-Type %q); set its type",
			cfg.URL, resp.Header.Get("Content-Type"))
	}
	log.Info("Fetched source",
		slog.String("kind", string(kind)),
		slog.Int("size", len(body)))
	return []domain.Source{cfg.NewSource(cfg.URL, kind, lang, body)}, nil
}

func (f *SourceFetcher) get(ctx context.Context, rawURL string, headers map[string]string) (*http.Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	if err := f.limiter.Wait(ctx, u.Host); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	return f.httpClient.Do(req)
}

// KindForContentType infers the source kind from a response Content-Type,
// sniffing body when the header says nothing useful.
func KindForContentType(contentType string, body []byte) (domain.SourceKind, string, bool) {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil || mt == "" || mt == "application/octet-stream" {
		mt, _, _ = mime.ParseMediaType(http.DetectContentType(body))
	}
	switch {
	case mt == "text/html" || mt == "application/xhtml+xml":
		return domain.KindHTML, "", true
	case strings.Contains(mt, "protobuf"):
		return domain.KindProtoset, "", true
	case mt == "text/x-proto" || mt == "text/x-protobuf-text":
		return domain.KindProto, "", true
	case strings.Contains(mt, "graphql"):
		return domain.KindCode, "graphql", true
	case strings.Contains(mt, "javascript") || strings.Contains(mt, "ecmascript"):
		return domain.KindCode, "javascript", true
	case strings.Contains(mt, "typescript"):
		return domain.KindCode, "typescript", true
	case strings.Contains(mt, "json") || strings.Contains(mt, "yaml") || strings.Contains(mt, "openapi"):
		return domain.KindSpec, "", true
	case strings.HasPrefix(mt, "text/"):
		return domain.KindDocument, "", true
	}
	return "", "", false
}
