// Package mcphttp serves the admin HTTP API next to the MCP transport:
// on-demand discovery, the current tool list and prometheus metrics.
package mcphttp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/i2y/apiforge/internal/domain"
	"github.com/i2y/apiforge/internal/usecase"
)

// Discoverer runs a discovery over the given sources.
type Discoverer interface {
	Execute(ctx context.Context, sources []usecase.SourceConfig) (*usecase.DiscoveryReport, error)
}

// ToolLister lists the tools currently served.
type ToolLister interface {
	Execute(ctx context.Context) ([]domain.ToolDefinition, error)
}

// Handlers struct holds dependencies for the HTTP handlers.
type Handlers struct {
	discover Discoverer
	tools    ToolLister
	metrics  *Metrics
	logger   *slog.Logger
}

// NewHandlers creates a new Handlers struct.
func NewHandlers(discover Discoverer, tools ToolLister, metrics *Metrics, logger *slog.Logger) *Handlers {
	return &Handlers{
		discover: discover,
		tools:    tools,
		metrics:  metrics,
		logger:   logger.With("component", "mcphttp_handler"),
	}
}

// RegisterAdminRoutes sets up the HTTP routes for admin endpoints.
func (h *Handlers) RegisterAdminRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /admin/discover", h.metrics.instrument("discover", h.handleDiscover))
	mux.HandleFunc("GET /admin/tools", h.metrics.instrument("tools", h.handleListTools))
	mux.Handle("GET /metrics", h.metrics.Handler())
}

// SourceRequest is one source of a discover request. It decodes from a
// bare URL string or from an object.
type SourceRequest struct {
	URL      string            `json:"url"`
	Type     string            `json:"type,omitempty"`
	Language string            `json:"language,omitempty"`
	Format   string            `json:"format,omitempty"`
	Headers  map[string]string `json:"headers,omitempty"`
	BaseURL  string            `json:"base_url,omitempty"`
}

func (s *SourceRequest) UnmarshalJSON(data []byte) error {
	var url string
	if err := json.Unmarshal(data, &url); err == nil {
		*s = SourceRequest{URL: url}
		return nil
	}
	type plain SourceRequest
	return json.Unmarshal(data, (*plain)(s))
}

// DiscoverRequest defines the expected JSON body for POST /admin/discover.
type DiscoverRequest struct {
	Sources []SourceRequest `json:"sources"`
}

// DiscoverResponse summarizes the run.
type DiscoverResponse struct {
	RunID     string   `json:"run_id"`
	Sources   int      `json:"sources"`
	Endpoints int      `json:"endpoints"`
	Tools     []string `json:"tools"`
	Failures  []string `json:"failures,omitempty"`
	Skipped   int      `json:"skipped,omitempty"`
}

// handleDiscover implements POST /admin/discover
func (h *Handlers) handleDiscover(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var req DiscoverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Failed to decode discover request body", slog.Any("error", err))
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	sources := make([]usecase.SourceConfig, 0, len(req.Sources))
	for _, s := range req.Sources {
		if s.URL == "" {
			http.Error(w, "Every source needs a 'url'", http.StatusBadRequest)
			return
		}
		sources = append(sources, usecase.SourceConfig{
			URL:      s.URL,
			Kind:     s.Type,
			Language: s.Language,
			Format:   s.Format,
			Headers:  s.Headers,
			BaseURL:  s.BaseURL,
		})
	}
	if len(sources) == 0 {
		h.logger.Warn("Discover request has no sources")
		http.Error(w, "Missing 'sources' field in request body", http.StatusBadRequest)
		return
	}

	h.logger.Info("Received discover request", slog.Int("source_count", len(sources)))
	report, err := h.discover.Execute(r.Context(), sources)
	if err != nil {
		h.metrics.discoveryRuns.WithLabelValues("error").Inc()
		h.logger.Error("Discovery failed", slog.Any("error", err))
		status := http.StatusInternalServerError
		if errors.Is(err, usecase.ErrSourceFailed) {
			status = http.StatusBadGateway
		}
		http.Error(w, fmt.Sprintf("Discovery failed: %v", err), status)
		return
	}
	h.metrics.discoveryRuns.WithLabelValues("ok").Inc()
	h.metrics.toolsServed.Set(float64(len(report.Tools)))

	resp := DiscoverResponse{
		RunID:     report.RunID,
		Sources:   report.SourceCount,
		Endpoints: len(report.Endpoints),
		Tools:     make([]string, 0, len(report.Tools)),
		Skipped:   report.Skipped,
	}
	for _, t := range report.Tools {
		resp.Tools = append(resp.Tools, t.Name)
	}
	for _, f := range report.Failures {
		resp.Failures = append(resp.Failures, f.Error())
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// handleListTools implements GET /admin/tools
func (h *Handlers) handleListTools(w http.ResponseWriter, r *http.Request) {
	defs, err := h.tools.Execute(r.Context())
	if err != nil {
		h.logger.Error("Failed to list tools", slog.Any("error", err))
		http.Error(w, fmt.Sprintf("Failed to list tools: %v", err), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, defs)
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("Failed to write response", slog.Any("error", err))
	}
}
