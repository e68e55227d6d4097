package proto_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i2y/apiforge/internal/adapter/outbound/proto"
	"github.com/i2y/apiforge/internal/domain"
	"github.com/i2y/apiforge/internal/usecase"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func keys(eps []domain.Endpoint) []string {
	out := make([]string, len(eps))
	for i, ep := range eps {
		out[i] = ep.Key().String()
	}
	return out
}

func param(t *testing.T, ep domain.Endpoint, name string) domain.Parameter {
	t.Helper()
	p, ok := ep.Parameters.Get(name)
	require.Truef(t, ok, "parameter %q missing from %s", name, ep.Key())
	return p
}

const shopProto = `syntax = "proto3";

package shop.v1;

import "google/protobuf/timestamp.proto";

enum Status {
  STATUS_UNSPECIFIED = 0;
  STATUS_OPEN = 1;
}

message Category {
  string name = 1;
  repeated Category children = 2;
}

message CreateOrderRequest {
  // Stock keeping unit.
  string sku = 1;
  int32 quantity = 2;
  repeated string coupon_codes = 3;
  map<string, string> labels = 4;
  google.protobuf.Timestamp deliver_at = 5;
  Status status = 6;
  Category category = 7;
  bool gift = 8;
  double price = 9;
}

message Order {
  string id = 1;
}

message WatchRequest {
  string id = 1;
}

service OrderService {
  // Creates an order.
  rpc CreateOrder(CreateOrderRequest) returns (Order);
  rpc GetOrder(WatchRequest) returns (Order);
  rpc Watch(WatchRequest) returns (stream Order);
}
`

const legacyProto = `syntax = "proto2";

package legacy;

message PingRequest {
  required string host = 1;
  optional int32 count = 2 [default = 3];
}

message PingReply {}

service Pinger {
  rpc Ping(PingRequest) returns (PingReply);
}
`

func TestEndpoints_Text(t *testing.T) {
	files, err := proto.ParseText("shop.proto", []byte(shopProto))
	require.NoError(t, err)

	eps, schemas, skipped := proto.Endpoints("shop.proto", files)
	require.Equal(t, []string{
		"POST /shop.v1.OrderService/CreateOrder",
		"POST /shop.v1.OrderService/GetOrder",
	}, keys(eps))
	assert.Equal(t, []string{"shop.v1.OrderService.Watch"}, skipped)

	create := eps[0]
	assert.Equal(t, "Creates an order.", create.Description)
	assert.Equal(t, []string{"OrderService"}, create.Tags)
	assert.Equal(t, []string{
		"sku", "quantity", "couponCodes", "labels", "deliverAt", "status", "category", "gift", "price",
	}, create.Parameters.Names())
	for _, p := range create.Parameters {
		assert.Equal(t, domain.SourceBody, p.Source, p.Name)
		assert.False(t, p.Required, p.Name)
	}
	assert.Equal(t, "Stock keeping unit.", param(t, create, "sku").Description)
	assert.Equal(t, domain.TypeInteger, param(t, create, "quantity").Type)
	assert.Equal(t, domain.TypeArray, param(t, create, "couponCodes").Type)
	assert.Equal(t, domain.TypeObject, param(t, create, "labels").Type)
	assert.Equal(t, domain.TypeString, param(t, create, "deliverAt").Type)
	assert.Equal(t, domain.TypeString, param(t, create, "status").Type)
	assert.Equal(t, domain.TypeObject, param(t, create, "category").Type)
	assert.Equal(t, domain.TypeBoolean, param(t, create, "gift").Type)
	assert.Equal(t, domain.TypeFloat, param(t, create, "price").Type)

	get := eps[1]
	assert.Equal(t, "Invokes the gRPC method OrderService.GetOrder", get.Description)

	require.Contains(t, schemas, "shop.v1.CreateOrderRequest")
	require.Contains(t, schemas, "shop.v1.Order")
	require.Contains(t, schemas, "shop.v1.Category")

	props := create.RequestBodySchema["properties"].(map[string]any)
	status := props["status"].(map[string]any)
	assert.Equal(t, []any{"STATUS_UNSPECIFIED", "STATUS_OPEN"}, status["enum"])
	category := props["category"].(map[string]any)
	children := category["properties"].(map[string]any)["children"].(map[string]any)
	assert.Equal(t, "array", children["type"])
	assert.Equal(t, map[string]any{"type": "object"}, children["items"], "recursion stops at the repeated message")
	assert.Equal(t, "object", create.ResponseSchema["type"])
}

func TestEndpoints_Proto2(t *testing.T) {
	files, err := proto.ParseText("legacy.proto", []byte(legacyProto))
	require.NoError(t, err)

	eps, _, _ := proto.Endpoints("legacy.proto", files)
	require.Equal(t, []string{"POST /legacy.Pinger/Ping"}, keys(eps))
	assert.True(t, param(t, eps[0], "host").Required)
	count := param(t, eps[0], "count")
	assert.False(t, count.Required)
	assert.Equal(t, int32(3), count.Default)
}

func TestParseSet_RoundTrip(t *testing.T) {
	files, err := proto.ParseText("shop.proto", []byte(shopProto))
	require.NoError(t, err)
	data, err := proto.MarshalSet(files)
	require.NoError(t, err)

	decoded, err := proto.ParseSet(data)
	require.NoError(t, err)
	eps, _, _ := proto.Endpoints("shop.protoset", decoded)
	assert.Equal(t, []string{
		"POST /shop.v1.OrderService/CreateOrder",
		"POST /shop.v1.OrderService/GetOrder",
	}, keys(eps))
}

func TestExtractor(t *testing.T) {
	ex := proto.NewExtractor(testLogger())
	assert.Equal(t, "proto", ex.Name())
	assert.Equal(t, domain.TierSpec, ex.Tier())
	assert.True(t, ex.Accepts(domain.Source{Kind: domain.KindProto}))
	assert.True(t, ex.Accepts(domain.Source{Kind: domain.KindProtoset}))
	assert.False(t, ex.Accepts(domain.Source{Kind: domain.KindSpec}))

	run := usecase.NewRunContext(testLogger(), usecase.ExtractOptions{}, 1)
	ctx := context.Background()

	t.Run("proto text", func(t *testing.T) {
		res := ex.Extract(ctx, run, domain.Source{
			Origin:  "protos/shop.proto",
			Kind:    domain.KindProto,
			BaseURL: "http://localhost:8080",
			Data:    []byte(shopProto),
		})
		require.Equal(t, domain.StatusMatched, res.Status)
		assert.Len(t, res.Endpoints, 2)
		assert.Equal(t, "http://localhost:8080", res.BaseURL)
		assert.Contains(t, res.Schemas, "shop.v1.Order")
	})

	t.Run("syntax error", func(t *testing.T) {
		res := ex.Extract(ctx, run, domain.Source{Origin: "bad.proto", Kind: domain.KindProto, Data: []byte("message {")})
		require.Equal(t, domain.StatusFailed, res.Status)
		var pe *domain.ParseError
		require.ErrorAs(t, res.Err, &pe)
		assert.Equal(t, "proto", pe.Format)
	})

	t.Run("garbage descriptor set", func(t *testing.T) {
		res := ex.Extract(ctx, run, domain.Source{Origin: "x.protoset", Kind: domain.KindProtoset, Data: []byte{0xff, 0xff, 0xff}})
		assert.Equal(t, domain.StatusFailed, res.Status)
	})

	t.Run("messages only", func(t *testing.T) {
		res := ex.Extract(ctx, run, domain.Source{Origin: "m.proto", Kind: domain.KindProto, Data: []byte(`syntax = "proto3"; message A { string x = 1; }`)})
		assert.Equal(t, domain.StatusNoMatch, res.Status)
	})
}
