package mcphttp_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/i2y/apiforge/internal/adapter/inbound/mcphttp"
	"github.com/i2y/apiforge/internal/domain"
	"github.com/i2y/apiforge/internal/usecase"
)

type mockDiscoverer struct{ mock.Mock }

func (m *mockDiscoverer) Execute(ctx context.Context, sources []usecase.SourceConfig) (*usecase.DiscoveryReport, error) {
	args := m.Called(ctx, sources)
	report, _ := args.Get(0).(*usecase.DiscoveryReport)
	return report, args.Error(1)
}

type mockLister struct{ mock.Mock }

func (m *mockLister) Execute(ctx context.Context) ([]domain.ToolDefinition, error) {
	args := m.Called(ctx)
	defs, _ := args.Get(0).([]domain.ToolDefinition)
	return defs, args.Error(1)
}

func newServer(t *testing.T, d mcphttp.Discoverer, l mcphttp.ToolLister) *httptest.Server {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	mux := http.NewServeMux()
	mcphttp.NewHandlers(d, l, mcphttp.NewMetrics("apiforge"), logger).RegisterAdminRoutes(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHandleDiscover(t *testing.T) {
	d := new(mockDiscoverer)
	server := newServer(t, d, new(mockLister))

	want := []usecase.SourceConfig{
		{URL: "./api/openapi.yaml"},
		{URL: "https://example.com/docs", Kind: "document", Headers: map[string]string{"X-Key": "k"}, BaseURL: "https://api.example.com"},
	}
	d.On("Execute", mock.Anything, want).Return(&usecase.DiscoveryReport{
		RunID:       "run-1",
		SourceCount: 2,
		Endpoints:   make([]domain.Endpoint, 3),
		Tools:       []domain.ToolDefinition{{Name: "get_users"}, {Name: "post_users"}},
		Failures:    []usecase.SourceFailure{{Source: "x.md", Extractor: "docs", Err: fmt.Errorf("boom")}},
		Skipped:     1,
	}, nil).Once()

	resp := post(t, server.URL+"/admin/discover", `{"sources":["./api/openapi.yaml",
		{"url":"https://example.com/docs","type":"document","headers":{"X-Key":"k"},"base_url":"https://api.example.com"}]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got mcphttp.DiscoverResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, mcphttp.DiscoverResponse{
		RunID:     "run-1",
		Sources:   2,
		Endpoints: 3,
		Tools:     []string{"get_users", "post_users"},
		Failures:  []string{"x.md (docs): boom"},
		Skipped:   1,
	}, got)
	d.AssertExpectations(t)

	metrics, err := http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer metrics.Body.Close()
	text, _ := io.ReadAll(metrics.Body)
	assert.Contains(t, string(text), `apiforge_admin_requests_total{route="discover",status="200"} 1`)
	assert.Contains(t, string(text), `apiforge_discovery_runs_total{result="ok"} 1`)
	assert.Contains(t, string(text), "apiforge_tools 2")
	assert.Contains(t, string(text), "apiforge_admin_request_duration_seconds_count{route=\"discover\"} 1")
}

func TestHandleDiscover_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		execErr    error
		wantStatus int
	}{
		{name: "invalid JSON", body: `{`, wantStatus: http.StatusBadRequest},
		{name: "no sources", body: `{"sources":[]}`, wantStatus: http.StatusBadRequest},
		{name: "source without url", body: `{"sources":[{"type":"spec"}]}`, wantStatus: http.StatusBadRequest},
		{name: "strict source failure", body: `{"sources":["a.yaml"]}`, execErr: fmt.Errorf("run: %w", usecase.ErrSourceFailed), wantStatus: http.StatusBadGateway},
		{name: "save failure", body: `{"sources":["a.yaml"]}`, execErr: fmt.Errorf("disk full"), wantStatus: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := new(mockDiscoverer)
			if tt.execErr != nil {
				d.On("Execute", mock.Anything, mock.Anything).Return(nil, tt.execErr).Once()
			}
			server := newServer(t, d, new(mockLister))
			resp := post(t, server.URL+"/admin/discover", tt.body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			d.AssertExpectations(t)
		})
	}
}

func TestHandleListTools(t *testing.T) {
	l := new(mockLister)
	defs := []domain.ToolDefinition{{Name: "get_users", Method: domain.MethodGet, PathTemplate: "/users"}}
	l.On("Execute", mock.Anything).Return(defs, nil).Once()
	server := newServer(t, new(mockDiscoverer), l)

	resp, err := http.Get(server.URL + "/admin/tools")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var got []domain.ToolDefinition
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, defs, got)

	resp, err = http.Post(server.URL+"/admin/tools", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
