package httpsource

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi3"
)

// Common OpenAPI schema paths used by various frameworks
var commonOpenAPIPaths = []string{
	"/openapi.json",            // FastAPI default
	"/docs/openapi.json",       // Alternative FastAPI path
	"/swagger.json",            // Swagger/OpenAPI 2.0
	"/v3/api-docs",             // SpringDoc OpenAPI 3.0
	"/api-docs",                // SpringFox
	"/api/openapi.json",        // Custom API prefix
	"/api/v1/openapi.json",     // Versioned API
	"/api/swagger.json",        // Alternative swagger path
	"/swagger/v1/swagger.json", // .NET default
	"/openapi.yaml",
	"/_spec", // Some Node.js frameworks
	"/spec",  // Alternative spec path
	"/api-spec.json",
}

// probeTimeout bounds each well-known path probe.
const probeTimeout = 5 * time.Second

// discover probes the well-known schema paths below baseURL and returns the
// first URL serving a loadable OpenAPI or Swagger document together with its
// body.
func (f *SourceFetcher) discover(ctx context.Context, baseURL string, headers map[string]string, log *slog.Logger) (string, []byte, bool) {
	base := strings.TrimRight(baseURL, "/")
	for _, path := range commonOpenAPIPaths {
		probeURL := base + path
		body, err := f.probe(ctx, probeURL, headers)
		if err != nil {
			log.Debug("Error checking path", slog.String("url", probeURL), slog.Any("error", err))
			continue
		}
		if body != nil {
			log.Info("Found OpenAPI schema", slog.String("url", probeURL))
			return probeURL, body, true
		}
	}
	return "", nil, false
}

// probe returns the body of probeURL when it is a schema document, nil
// otherwise.
func (f *SourceFetcher) probe(ctx context.Context, probeURL string, headers map[string]string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	headers = withDefault(headers, "Accept", "application/json, application/vnd.oai.openapi+json, application/yaml")
	resp, err := f.get(ctx, probeURL, headers)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, nil
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return nil, err
	}
	if !isSchemaDocument(ctx, body) {
		return nil, nil
	}
	return body, nil
}

// isSchemaDocument reports whether body loads as an OpenAPI 3 or Swagger 2
// document.
func isSchemaDocument(ctx context.Context, body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] == '<' {
		return false
	}
	loader := openapi3.NewLoader()
	loader.Context = ctx
	if doc, err := loader.LoadFromData(body); err == nil && strings.HasPrefix(doc.OpenAPI, "3.") {
		return true
	}
	var v2 openapi2.T
	return json.Unmarshal(trimmed, &v2) == nil && v2.Swagger == "2.0"
}

func withDefault(headers map[string]string, key, value string) map[string]string {
	for k := range headers {
		if strings.EqualFold(k, key) {
			return headers
		}
	}
	out := make(map[string]string, len(headers)+1)
	for k, v := range headers {
		out[k] = v
	}
	out[key] = value
	return out
}
