package httpinvoker_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i2y/apiforge/internal/adapter/outbound/httpinvoker"
	"github.com/i2y/apiforge/internal/domain"
)

func newTestInvoker(t *testing.T, handler http.Handler, opts httpinvoker.Options) (*httpinvoker.Invoker, *httptest.Server) {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return httpinvoker.New(server.Client(), opts, logger), server
}

func TestInvoker_Invoke(t *testing.T) {
	ctx := context.Background()
	okBody := map[string]interface{}{"message": "ok"}
	okBytes, _ := json.Marshal(okBody)

	tests := []struct {
		name        string
		handler     func(t *testing.T, w http.ResponseWriter, r *http.Request)
		tool        domain.ToolDefinition
		args        map[string]interface{}
		wantResult  interface{}
		errContains string
	}{
		{
			name: "GET with path, query, header and cookie arguments",
			handler: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/api/users/a b", r.URL.Path)
				assert.Equal(t, "/api/users/a%20b", r.URL.EscapedPath())
				assert.Equal(t, []string{"x", "y"}, r.URL.Query()["tag"])
				assert.Equal(t, "req-1", r.Header.Get("X-Request-Id"))
				assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
				c, err := r.Cookie("session")
				require.NoError(t, err)
				assert.Equal(t, "abc", c.Value)
				assert.Empty(t, r.Header.Get("Content-Type"))

				w.Header().Set("Content-Type", "application/json")
				w.Write(okBytes)
			},
			tool: domain.ToolDefinition{
				Name:         "get_api_users_by_id",
				Method:       domain.MethodGet,
				PathTemplate: "/users/{id}",
				Params: []domain.ToolParam{
					{Name: "id", Source: domain.SourcePath, Required: true},
					{Name: "tag", Source: domain.SourceQuery},
					{Name: "X-Request-Id", Source: domain.SourceHeader},
					{Name: "session", Source: domain.SourceCookie},
				},
			},
			args: map[string]interface{}{
				"id":           "a b",
				"tag":          []interface{}{"x", "y"},
				"X-Request-Id": "req-1",
				"session":      "abc",
			},
			wantResult: okBody,
		},
		{
			name: "POST sends supplied body arguments as JSON",
			handler: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
				data, _ := io.ReadAll(r.Body)
				assert.JSONEq(t, `{"sku":"A-1","qty":2}`, string(data))
				w.WriteHeader(http.StatusCreated)
				w.Write([]byte("created"))
			},
			tool: domain.ToolDefinition{
				Name:         "post_orders",
				Method:       domain.MethodPost,
				PathTemplate: "/orders",
				Params: []domain.ToolParam{
					{Name: "sku", Source: domain.SourceBody, Required: true},
					{Name: "qty", Source: domain.SourceBody},
					{Name: "note", Source: domain.SourceBody},
				},
			},
			args:       map[string]interface{}{"sku": "A-1", "qty": 2},
			wantResult: "created",
		},
		{
			name: "POST with only form arguments is form encoded",
			handler: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
				require.NoError(t, r.ParseForm())
				assert.Equal(t, "alice", r.PostForm.Get("username"))
				w.WriteHeader(http.StatusNoContent)
			},
			tool: domain.ToolDefinition{
				Name:         "post_login",
				Method:       domain.MethodPost,
				PathTemplate: "/login",
				Params:       []domain.ToolParam{{Name: "username", Source: domain.SourceForm}},
			},
			args:       map[string]interface{}{"username": "alice"},
			wantResult: "",
		},
		{
			name: "unary RPC without arguments sends an empty object",
			handler: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/shop.v1.ShopService/ListProducts", r.URL.Path)
				data, _ := io.ReadAll(r.Body)
				assert.Equal(t, "{}", string(data))
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.Write([]byte(`{"products":[]}`))
			},
			tool: domain.ToolDefinition{
				Name:         "post_shop_v1_shopservice_listproducts",
				Method:       domain.MethodPost,
				PathTemplate: "/shop.v1.ShopService/ListProducts",
			},
			wantResult: map[string]interface{}{"products": []interface{}{}},
		},
		{
			name: "non-success status is an error",
			handler: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				w.Write([]byte(`{"error":"thing not found"}`))
			},
			tool:        domain.ToolDefinition{Name: "get_thing", Method: domain.MethodGet, PathTemplate: "/thing"},
			errContains: `HTTP 404: {"error":"thing not found"}`,
		},
		{
			name: "missing path argument",
			handler: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				t.Error("no request expected")
			},
			tool:        domain.ToolDefinition{Name: "get_user", Method: domain.MethodGet, PathTemplate: "/users/{id}"},
			errContains: "missing path parameter",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			invoker, server := newTestInvoker(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				tt.handler(t, w, r)
			}), httpinvoker.Options{AuthHeaders: map[string]string{"Authorization": "Bearer secret"}})
			tt.tool.BaseURL = server.URL + "/api/"

			got, err := invoker.Invoke(ctx, tt.tool, tt.args)
			if tt.errContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				if tt.errContains == "missing path parameter" {
					assert.ErrorIs(t, err, domain.ErrUnresolvedPlaceholder)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantResult, got)
		})
	}
}

func TestInvoker_DefaultBaseURL(t *testing.T) {
	invoker, server := newTestInvoker(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.Write([]byte("ok"))
	}), httpinvoker.Options{})
	tool := domain.ToolDefinition{Name: "get_health", Method: domain.MethodGet, PathTemplate: "/health"}

	_, err := invoker.Invoke(context.Background(), tool, nil)
	assert.ErrorContains(t, err, "has no base URL")

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	invoker = httpinvoker.New(server.Client(), httpinvoker.Options{DefaultBaseURL: server.URL}, logger)
	got, err := invoker.Invoke(context.Background(), tool, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}
