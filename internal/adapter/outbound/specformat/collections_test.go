package specformat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i2y/apiforge/internal/adapter/outbound/specformat"
	"github.com/i2y/apiforge/internal/domain"
)

const shopPostman = `{
  "info": {"name": "Shop", "schema": "https://schema.getpostman.com/json/collection/v2.1.0/collection.json"},
  "auth": {"type": "bearer", "bearer": [{"key": "token", "value": "{{token}}"}]},
  "variable": [{"key": "baseUrl", "value": "https://shop.example.com/"}],
  "item": [
    {"name": "Users", "item": [
      {"name": "Get user", "request": {
        "method": "GET",
        "header": [{"key": "Accept", "value": "application/json"}, {"key": "X-Trace", "value": "1", "disabled": true}],
        "url": {
          "raw": "{{baseUrl}}/users/:id?expand=true",
          "host": ["{{baseUrl}}"],
          "path": ["users", ":id"],
          "query": [{"key": "expand", "value": "true"}],
          "variable": [{"key": "id", "value": "42", "description": "user id"}]
        }
      }},
      {"name": "Create user", "request": {
        "method": "POST",
        "auth": {"type": "noauth"},
        "url": "{{baseUrl}}/users",
        "body": {"mode": "raw", "raw": "{\"name\": \"{{name}}\", \"age\": 30, \"admin\": false}"}
      }}
    ]},
    {"name": "Upload", "request": {
      "method": "PUT",
      "url": "https://shop.example.com/files",
      "body": {"mode": "formdata", "formdata": [{"key": "doc", "type": "file"}, {"key": "note", "type": "text", "disabled": true}]}
    }},
    {"name": "Probe", "request": {"method": "HEAD", "url": "/x"}}
  ]
}`

func TestParse_Postman(t *testing.T) {
	doc, err := specformat.Parse([]byte(shopPostman), "")
	require.NoError(t, err)
	assert.Equal(t, specformat.FormatPostman, doc.Format)
	assert.Equal(t, "https://shop.example.com", doc.BaseURL)
	require.NotNil(t, doc.Auth)
	assert.Equal(t, domain.AuthBearer, doc.Auth.Type)
	require.Len(t, doc.Endpoints, 3, "HEAD request is skipped")

	get := doc.Endpoints[0]
	assert.Equal(t, "/users/:id", get.Path)
	assert.Equal(t, []string{"Users"}, get.Tags)
	assert.True(t, get.AuthRequired)
	id, ok := get.Parameters.Get("id")
	require.True(t, ok)
	assert.Equal(t, domain.SourcePath, id.Source)
	assert.True(t, id.Required)
	assert.Equal(t, "user id", id.Description)
	expand, _ := get.Parameters.Get("expand")
	assert.Equal(t, domain.SourceQuery, expand.Source)
	assert.True(t, expand.Required)
	assert.Equal(t, "true", expand.Default)
	trace, _ := get.Parameters.Get("X-Trace")
	assert.Equal(t, domain.SourceHeader, trace.Source)
	assert.False(t, trace.Required)
	assert.False(t, get.Parameters.Has("Accept"))

	create := doc.Endpoints[1]
	assert.Equal(t, domain.MethodPost, create.Method)
	assert.Equal(t, "/users", create.Path)
	assert.False(t, create.AuthRequired, "noauth overrides the collection")
	assert.Equal(t, []string{"admin", "age", "name"}, create.Parameters.Names())
	age, _ := create.Parameters.Get("age")
	assert.Equal(t, domain.TypeInteger, age.Type)
	admin, _ := create.Parameters.Get("admin")
	assert.Equal(t, domain.TypeBoolean, admin.Type)

	upload := doc.Endpoints[2]
	assert.Equal(t, "/files", upload.Path)
	assert.True(t, upload.AuthRequired)
	file, _ := upload.Parameters.Get("doc")
	assert.Equal(t, domain.Parameter{Name: "doc", Type: domain.TypeFile, Source: domain.SourceForm, Required: true}, file)
	note, _ := upload.Parameters.Get("note")
	assert.False(t, note.Required)
}

const ordersInsomnia = `{
  "_type": "export",
  "__export_format": 4,
  "resources": [
    {"_id": "wrk", "_type": "workspace", "name": "W"},
    {"_id": "env", "_type": "environment", "data": {"base_url": "https://api.test"}},
    {"_id": "fld_1", "_type": "request_group", "parentId": "wrk", "name": "Orders"},
    {"_id": "fld_2", "_type": "request_group", "parentId": "fld_1", "name": "Admin"},
    {"_id": "req_1", "_type": "request", "parentId": "fld_2", "name": "Update order", "method": "PATCH",
     "url": "{{ _.base_url }}/orders/{{ _.orderId }}",
     "parameters": [{"name": "notify", "value": "1"}],
     "headers": [{"name": "Content-Type", "value": "application/json"}, {"name": "X-Tenant", "value": "a"}],
     "body": {"mimeType": "application/json", "text": "{\"status\": \"shipped\", \"items\": [1]}"},
     "authentication": {"type": "apikey", "key": "X-API-Key", "value": "k", "addTo": "header"}},
    {"_id": "req_2", "_type": "request", "parentId": "wrk", "name": "Ping", "method": "GET", "url": "https://api.test/ping"}
  ]
}`

func TestParse_Insomnia(t *testing.T) {
	doc, err := specformat.Parse([]byte(ordersInsomnia), "")
	require.NoError(t, err)
	assert.Equal(t, specformat.FormatInsomnia, doc.Format)
	assert.Equal(t, "https://api.test", doc.BaseURL)
	require.NotNil(t, doc.Auth)
	assert.Equal(t, domain.AuthAPIKey, doc.Auth.Type)
	assert.Equal(t, map[string]string{"X-API-Key": ""}, doc.Auth.Headers)
	require.Len(t, doc.Endpoints, 2)

	update := doc.Endpoints[0]
	assert.Equal(t, domain.MethodPatch, update.Method)
	assert.Equal(t, "/orders/{orderId}", update.Path)
	assert.Equal(t, []string{"Orders", "Admin"}, update.Tags)
	assert.True(t, update.AuthRequired)

	want := map[string]domain.ParamSource{
		"orderId":  domain.SourcePath,
		"notify":   domain.SourceQuery,
		"X-Tenant": domain.SourceHeader,
		"status":   domain.SourceBody,
		"items":    domain.SourceBody,
	}
	assert.Len(t, update.Parameters, len(want))
	for name, src := range want {
		p, ok := update.Parameters.Get(name)
		require.True(t, ok, name)
		assert.Equal(t, src, p.Source, name)
	}
	items, _ := update.Parameters.Get("items")
	assert.Equal(t, domain.TypeArray, items.Type)

	ping := doc.Endpoints[1]
	assert.Equal(t, "/ping", ping.Path)
	assert.False(t, ping.AuthRequired)
	assert.Empty(t, ping.Tags)
}

func TestParse_CustomRoutes(t *testing.T) {
	raw := `{"routes":[{"method":"post","path":"orders","parameters":{"qty":{"in":"body","required":true}}}]}`

	doc, err := specformat.Parse([]byte(raw), "")
	require.NoError(t, err)
	require.Len(t, doc.Endpoints, 1)
	ep := doc.Endpoints[0]
	assert.Equal(t, "/orders", ep.Path)
	assert.Equal(t, domain.MethodPost, ep.Method)
	require.Len(t, ep.Parameters, 1)
	assert.Equal(t, domain.Parameter{Name: "qty", Type: domain.TypeString, Source: domain.SourceBody, Required: true}, ep.Parameters[0])
}

func TestParse_CustomVariants(t *testing.T) {
	raw := `
baseUrl: https://inventory.local/
auth: {type: api_key, header: X-Key}
endpoints:
  - url: https://inventory.local/items/{sku}
    verb: PUT
    summary: Replace an item
    tag: items
    params: [{name: sku, type: int, in: query}, {name: price, type: double, in: json}]
    auth: true
  - path: /items
    args: [page, size]
  - path: /items
    method: TRACE
  - method: GET
  - path: /stock
    fields: {count: integer}
    authRequired: false
`
	doc, err := specformat.Parse([]byte(raw), "")
	require.NoError(t, err)
	assert.Equal(t, specformat.FormatCustom, doc.Format)
	assert.Equal(t, "https://inventory.local", doc.BaseURL)
	require.NotNil(t, doc.Auth)
	assert.Equal(t, domain.AuthAPIKey, doc.Auth.Type)
	require.Len(t, doc.Endpoints, 3, "unknown method and missing path are skipped")

	put := doc.Endpoints[0]
	assert.Equal(t, "/items/{sku}", put.Path)
	assert.Equal(t, domain.MethodPut, put.Method)
	assert.Equal(t, "Replace an item", put.Description)
	assert.Equal(t, []string{"items"}, put.Tags)
	assert.True(t, put.AuthRequired)
	sku, _ := put.Parameters.Get("sku")
	assert.Equal(t, domain.Parameter{Name: "sku", Type: domain.TypeInteger, Source: domain.SourcePath, Required: true}, sku)
	price, _ := put.Parameters.Get("price")
	assert.Equal(t, domain.TypeFloat, price.Type)
	assert.Equal(t, domain.SourceBody, price.Source)

	list := doc.Endpoints[1]
	assert.Equal(t, domain.MethodGet, list.Method)
	assert.Equal(t, []string{"page", "size"}, list.Parameters.Names())
	page, _ := list.Parameters.Get("page")
	assert.Equal(t, domain.SourceQuery, page.Source)
	assert.False(t, page.Required)

	stock := doc.Endpoints[2]
	count, _ := stock.Parameters.Get("count")
	assert.Equal(t, domain.TypeInteger, count.Type)
	assert.False(t, stock.AuthRequired)
}

func TestParse_Generic(t *testing.T) {
	raw := `{
	  "service": {
	    "name": "billing",
	    "calls": [
	      {"httpMethod": "DELETE", "endpoint": "/invoices/:id", "description": "Void an invoice"},
	      {"method": "FETCH", "path": "/nope"}
	    ],
	    "surface": {
	      "/invoices": {
	        "get": {"summary": "List invoices", "parameters": [{"name": "status", "in": "query"}]},
	        "post": {"security": [{"key": []}]},
	        "x-notes": "ignored"
	      }
	    }
	  }
	}`

	doc, err := specformat.Parse([]byte(raw), "")
	require.NoError(t, err)
	assert.Equal(t, specformat.FormatGeneric, doc.Format)

	keys := make([]string, len(doc.Endpoints))
	for i, ep := range doc.Endpoints {
		keys[i] = ep.Key().String()
	}
	assert.Equal(t, []string{"DELETE /invoices/:id", "GET /invoices", "POST /invoices"}, keys)

	void := doc.Endpoints[0]
	id, ok := void.Parameters.Get("id")
	require.True(t, ok)
	assert.Equal(t, domain.SourcePath, id.Source)
	assert.Equal(t, "Void an invoice", void.Description)

	list := doc.Endpoints[1]
	assert.Equal(t, "List invoices", list.Description)
	assert.True(t, list.Parameters.Has("status"))
	assert.True(t, doc.Endpoints[2].AuthRequired)
}

func TestParse_GenericKeyPrefix(t *testing.T) {
	raw := `{
	  "service": {
	    "users": {
	      "get": {"description": "list"},
	      "post": {}
	    },
	    "orders": {
	      "cancel": {"method": "post", "description": "Cancel an order"},
	      "lookup": {"verb": "GET", "url": "/orders/{orderId}"}
	    }
	  },
	  "get": {"description": "root objects need a path"}
	}`

	doc, err := specformat.Parse([]byte(raw), specformat.FormatGeneric)
	require.NoError(t, err)

	keys := make([]string, len(doc.Endpoints))
	for i, ep := range doc.Endpoints {
		keys[i] = ep.Key().String()
	}
	assert.Equal(t, []string{
		"POST /service/orders/cancel",
		"GET /orders/{orderId}",
		"GET /service/users",
		"POST /service/users",
	}, keys)

	assert.Equal(t, "Cancel an order", doc.Endpoints[0].Description)
	assert.Equal(t, "list", doc.Endpoints[2].Description)
	assert.True(t, doc.Endpoints[1].Parameters.Has("orderId"))
}
