package proto

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jhump/protoreflect/desc"

	"github.com/i2y/apiforge/internal/domain"
	"github.com/i2y/apiforge/internal/usecase"
)

const extractorName = "proto"

// Extractor reads .proto text and serialized descriptor sets.
type Extractor struct {
	logger *slog.Logger
}

// NewExtractor creates a protobuf extractor.
func NewExtractor(logger *slog.Logger) *Extractor {
	return &Extractor{logger: logger.With("component", "proto_extractor")}
}

func (e *Extractor) Name() string      { return extractorName }
func (e *Extractor) Tier() domain.Tier { return domain.TierSpec }

func (e *Extractor) Accepts(src domain.Source) bool {
	return src.Kind == domain.KindProto || src.Kind == domain.KindProtoset
}

func (e *Extractor) Extract(ctx context.Context, run *usecase.RunContext, src domain.Source) domain.ExtractionResult {
	if err := ctx.Err(); err != nil {
		return domain.Failed(src.Origin, extractorName, domain.TierSpec, err)
	}
	log := e.logger
	if run != nil {
		log = run.Logger.With("component", "proto_extractor")
	}
	log = log.With(slog.String("source", src.Origin))

	var (
		files  []*desc.FileDescriptor
		err    error
		format = "proto"
	)
	if src.Kind == domain.KindProtoset {
		format = "protoset"
		files, err = ParseSet(src.Data)
	} else {
		files, err = ParseText(fileName(src.Origin), src.Data)
	}
	if err != nil {
		log.Warn("Failed to load protobuf descriptors.", slog.Any("error", err))
		return domain.Failed(src.Origin, extractorName, domain.TierSpec,
			&domain.ParseError{Source: src.Origin, Format: format, Cause: err})
	}

	eps, schemas, skipped := Endpoints(src.Origin, files)
	for _, name := range skipped {
		log.Debug("Skipping streaming method.", slog.String("method", name))
	}
	log.Info("Converted protobuf services.",
		slog.Int("file_count", len(files)),
		slog.Int("endpoint_count", len(eps)))

	res := domain.Matched(src.Origin, extractorName, domain.TierSpec, eps)
	res.Schemas = schemas
	res.BaseURL = src.BaseURL
	return res
}

// Endpoints converts every unary method of every service declared in files
// into a POST /<package>.<Service>/<Method> endpoint. The names of the
// streaming methods left out are returned as skipped.
func Endpoints(origin string, files []*desc.FileDescriptor) (eps []domain.Endpoint, schemas map[string]any, skipped []string) {
	b := newSchemaBuilder()
	for _, f := range files {
		for _, svc := range f.GetServices() {
			for _, m := range svc.GetMethods() {
				if m.IsClientStreaming() || m.IsServerStreaming() {
					skipped = append(skipped, m.GetFullyQualifiedName())
					continue
				}
				eps = append(eps, endpoint(origin, svc, m, b))
			}
		}
	}
	return eps, b.schemas, skipped
}

func endpoint(origin string, svc *desc.ServiceDescriptor, m *desc.MethodDescriptor, b *schemaBuilder) domain.Endpoint {
	input := m.GetInputType()
	ep := domain.Endpoint{
		Path:              fmt.Sprintf("/%s/%s", svc.GetFullyQualifiedName(), m.GetName()),
		Method:            domain.MethodPost,
		Description:       comment(m.GetSourceInfo()),
		RequestBodySchema: b.message(input, make(map[string]bool)),
		ResponseSchema:    b.message(m.GetOutputType(), make(map[string]bool)),
		Tags:              []string{svc.GetName()},
		Origin:            origin,
		Extractor:         extractorName,
	}
	if ep.Description == "" {
		ep.Description = fmt.Sprintf("Invokes the gRPC method %s.%s", svc.GetName(), m.GetName())
	}
	for _, field := range input.GetFields() {
		p := domain.Parameter{
			Name:        jsonName(field),
			Type:        fieldType(field),
			Source:      domain.SourceBody,
			Required:    field.IsRequired(),
			Description: comment(field.GetSourceInfo()),
		}
		if def := field.AsFieldDescriptorProto().DefaultValue; def != nil {
			p.Default = field.GetDefaultValue()
			if field.GetEnumType() != nil {
				p.Default = *def
			}
		}
		ep.Parameters.Add(p)
	}
	return ep
}
