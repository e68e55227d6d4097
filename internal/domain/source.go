package domain

import (
	"path/filepath"
	"strings"
)

// SourceKind classifies the content of a fetched source.
type SourceKind string

const (
	KindSpec     SourceKind = "spec"     // OpenAPI, Swagger, Postman, Insomnia, custom JSON/YAML
	KindProto    SourceKind = "proto"    // .proto text
	KindProtoset SourceKind = "protoset" // serialized FileDescriptorSet
	KindCode     SourceKind = "code"
	KindDocument SourceKind = "document"
	KindHTML     SourceKind = "html"
)

// Source is the raw material handed to extractors.
type Source struct {
	// Origin names where the bytes came from: a file path, URL, or
	// grpc:// endpoint.
	Origin string
	Kind   SourceKind
	// Language is set for KindCode, e.g. "go", "python", "javascript".
	Language string
	// FormatHint pins the spec format and skips detection when non-empty.
	FormatHint string
	// BaseURL is the upstream API base, when the configuration knows it.
	BaseURL string
	Data    []byte
}

var extensionKinds = map[string]struct {
	kind SourceKind
	lang string
}{
	".json": {KindSpec, ""}, ".yaml": {KindSpec, ""}, ".yml": {KindSpec, ""},
	".proto": {KindProto, ""}, ".protoset": {KindProtoset, ""}, ".pb": {KindProtoset, ""},
	".go": {KindCode, "go"}, ".py": {KindCode, "python"},
	".js": {KindCode, "javascript"}, ".mjs": {KindCode, "javascript"}, ".cjs": {KindCode, "javascript"},
	".jsx": {KindCode, "javascript"}, ".ts": {KindCode, "typescript"}, ".tsx": {KindCode, "typescript"},
	".java": {KindCode, "java"}, ".kt": {KindCode, "kotlin"}, ".cs": {KindCode, "csharp"},
	".php": {KindCode, "php"}, ".rb": {KindCode, "ruby"}, ".rs": {KindCode, "rust"},
	".swift": {KindCode, "swift"}, ".graphql": {KindCode, "graphql"}, ".gql": {KindCode, "graphql"},
	".md": {KindDocument, ""}, ".markdown": {KindDocument, ""}, ".txt": {KindDocument, ""},
	".rst": {KindDocument, ""}, ".adoc": {KindDocument, ""},
	".html": {KindHTML, ""}, ".htm": {KindHTML, ""},
}

// KindForName infers kind and language from a file name. ok is false for
// files no extractor understands.
func KindForName(name string) (kind SourceKind, lang string, ok bool) {
	ext := strings.ToLower(filepath.Ext(name))
	k, found := extensionKinds[ext]
	if !found {
		return "", "", false
	}
	return k.kind, k.lang, true
}

// ParseSourceKind validates a configured kind label.
func ParseSourceKind(s string) (SourceKind, bool) {
	switch k := SourceKind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindSpec, KindProto, KindProtoset, KindCode, KindDocument, KindHTML:
		return k, true
	}
	switch strings.ToLower(s) {
	case "openapi", "swagger", "postman", "insomnia", "custom":
		return KindSpec, true
	case "markdown", "doc", "docs", "text":
		return KindDocument, true
	}
	return "", false
}
