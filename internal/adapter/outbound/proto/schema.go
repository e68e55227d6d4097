package proto

import (
	"github.com/jhump/protoreflect/desc"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/i2y/apiforge/internal/domain"
)

// wellKnown maps google.protobuf messages with a scalar JSON mapping onto
// the parameter type they are written as.
var wellKnown = map[string]domain.ParamType{
	"google.protobuf.Timestamp":   domain.TypeString,
	"google.protobuf.Duration":    domain.TypeString,
	"google.protobuf.FieldMask":   domain.TypeString,
	"google.protobuf.StringValue": domain.TypeString,
	"google.protobuf.BytesValue":  domain.TypeString,
	"google.protobuf.Int32Value":  domain.TypeInteger,
	"google.protobuf.Int64Value":  domain.TypeInteger,
	"google.protobuf.UInt32Value": domain.TypeInteger,
	"google.protobuf.UInt64Value": domain.TypeInteger,
	"google.protobuf.FloatValue":  domain.TypeFloat,
	"google.protobuf.DoubleValue": domain.TypeFloat,
	"google.protobuf.BoolValue":   domain.TypeBoolean,
	"google.protobuf.Struct":      domain.TypeObject,
	"google.protobuf.Value":       domain.TypeUnknown,
	"google.protobuf.ListValue":   domain.TypeArray,
}

// fieldType maps a field onto the canonical parameter type.
func fieldType(field *desc.FieldDescriptor) domain.ParamType {
	switch {
	case field.IsMap():
		return domain.TypeObject
	case field.IsRepeated():
		return domain.TypeArray
	}
	return singularType(field)
}

func singularType(field *desc.FieldDescriptor) domain.ParamType {
	switch field.GetType() {
	case descriptorpb.FieldDescriptorProto_TYPE_DOUBLE,
		descriptorpb.FieldDescriptorProto_TYPE_FLOAT:
		return domain.TypeFloat

	case descriptorpb.FieldDescriptorProto_TYPE_INT64,
		descriptorpb.FieldDescriptorProto_TYPE_UINT64,
		descriptorpb.FieldDescriptorProto_TYPE_INT32,
		descriptorpb.FieldDescriptorProto_TYPE_UINT32,
		descriptorpb.FieldDescriptorProto_TYPE_FIXED64,
		descriptorpb.FieldDescriptorProto_TYPE_FIXED32,
		descriptorpb.FieldDescriptorProto_TYPE_SFIXED32,
		descriptorpb.FieldDescriptorProto_TYPE_SFIXED64,
		descriptorpb.FieldDescriptorProto_TYPE_SINT32,
		descriptorpb.FieldDescriptorProto_TYPE_SINT64:
		return domain.TypeInteger

	case descriptorpb.FieldDescriptorProto_TYPE_BOOL:
		return domain.TypeBoolean

	case descriptorpb.FieldDescriptorProto_TYPE_MESSAGE,
		descriptorpb.FieldDescriptorProto_TYPE_GROUP:
		if t, ok := wellKnown[field.GetMessageType().GetFullyQualifiedName()]; ok {
			return t
		}
		return domain.TypeObject

	default:
		// string, bytes (base64) and enums (value names) are all strings in
		// the JSON mapping.
		return domain.TypeString
	}
}

// typeLabel is the JSON schema type name for t.
func typeLabel(t domain.ParamType) string {
	switch t {
	case domain.TypeFloat:
		return "number"
	case domain.TypeInteger, domain.TypeBoolean, domain.TypeArray, domain.TypeObject:
		return string(t)
	}
	return "string"
}

// schemaBuilder renders message descriptors as JSON schema objects and
// remembers every message it rendered.
type schemaBuilder struct {
	schemas map[string]any
}

func newSchemaBuilder() *schemaBuilder {
	return &schemaBuilder{schemas: make(map[string]any)}
}

// message returns the schema of msg. A message already on the current
// descent path is rendered as a bare object.
func (b *schemaBuilder) message(msg *desc.MessageDescriptor, path map[string]bool) map[string]any {
	name := msg.GetFullyQualifiedName()
	if path[name] {
		return map[string]any{"type": "object"}
	}
	path[name] = true
	defer delete(path, name)

	props := make(map[string]any, len(msg.GetFields()))
	var required []string
	for _, field := range msg.GetFields() {
		props[jsonName(field)] = b.field(field, path)
		if field.IsRequired() {
			required = append(required, jsonName(field))
		}
	}
	schema := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		schema["required"] = required
	}
	if c := comment(msg.GetSourceInfo()); c != "" {
		schema["description"] = c
	}
	b.schemas[name] = schema
	return schema
}

func (b *schemaBuilder) field(field *desc.FieldDescriptor, path map[string]bool) map[string]any {
	if field.IsMap() {
		return map[string]any{
			"type":                 "object",
			"additionalProperties": b.singular(field.GetMapValueType(), path),
		}
	}
	prop := b.singular(field, path)
	if field.IsRepeated() {
		prop = map[string]any{"type": "array", "items": prop}
	}
	if c := comment(field.GetSourceInfo()); c != "" {
		// message schemas are shared through b.schemas
		described := make(map[string]any, len(prop)+1)
		for k, v := range prop {
			described[k] = v
		}
		described["description"] = c
		prop = described
	}
	return prop
}

func (b *schemaBuilder) singular(field *desc.FieldDescriptor, path map[string]bool) map[string]any {
	t := singularType(field)
	switch field.GetType() {
	case descriptorpb.FieldDescriptorProto_TYPE_MESSAGE, descriptorpb.FieldDescriptorProto_TYPE_GROUP:
		if _, ok := wellKnown[field.GetMessageType().GetFullyQualifiedName()]; ok {
			if t == domain.TypeUnknown {
				return map[string]any{}
			}
			return map[string]any{"type": typeLabel(t)}
		}
		return b.message(field.GetMessageType(), path)
	case descriptorpb.FieldDescriptorProto_TYPE_BYTES:
		return map[string]any{"type": "string", "format": "byte"}
	case descriptorpb.FieldDescriptorProto_TYPE_ENUM:
		var values []any
		for _, v := range field.GetEnumType().GetValues() {
			values = append(values, v.GetName())
		}
		return map[string]any{"type": "string", "enum": values}
	}
	return map[string]any{"type": typeLabel(t)}
}

func jsonName(field *desc.FieldDescriptor) string {
	if n := field.GetJSONName(); n != "" {
		return n
	}
	return field.GetName()
}
