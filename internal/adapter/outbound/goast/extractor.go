package goast

import (
	"context"
	"go/parser"
	"go/token"
	"log/slog"
	"sort"

	"github.com/i2y/apiforge/internal/domain"
	"github.com/i2y/apiforge/internal/usecase"
)

const extractorName = "goast"

// Extractor finds routes in Go source files.
type Extractor struct {
	logger *slog.Logger
}

func NewExtractor(logger *slog.Logger) *Extractor {
	return &Extractor{logger: logger.With("component", "goast_extractor")}
}

func (e *Extractor) Name() string      { return extractorName }
func (e *Extractor) Tier() domain.Tier { return domain.TierStructural }

func (e *Extractor) Accepts(src domain.Source) bool {
	return src.Kind == domain.KindCode && src.Language == "go"
}

// Extract parses src and reports one endpoint per recognized route. A file
// that does not parse is a failure; a file without routes is no match.
func (e *Extractor) Extract(ctx context.Context, run *usecase.RunContext, src domain.Source) domain.ExtractionResult {
	if err := ctx.Err(); err != nil {
		return domain.Failed(src.Origin, extractorName, domain.TierStructural, err)
	}
	log := e.logger
	if run != nil {
		log = run.Logger.With("component", "goast_extractor")
	}
	log = log.With(slog.String("source", src.Origin))

	eps, err := Endpoints(src.Origin, src.Data)
	if err != nil {
		log.Warn("Failed to parse Go source.", slog.Any("error", err))
		return domain.Failed(src.Origin, extractorName, domain.TierStructural, err)
	}
	log.Debug("Scanned Go source.", slog.Int("endpoint_count", len(eps)))
	res := domain.Matched(src.Origin, extractorName, domain.TierStructural, eps)
	res.BaseURL = src.BaseURL
	return res
}

// Endpoints parses one Go file and returns its routes in source order.
func Endpoints(origin string, data []byte) ([]domain.Endpoint, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, origin, data, parser.ParseComments)
	if err != nil {
		return nil, &domain.ParseError{Source: origin, Format: "go", Cause: err}
	}
	idx := indexFile(f)

	var eps []domain.Endpoint
	seen := make(map[domain.EndpointKey]bool)
	routes := findRoutes(f, idx)
	sort.SliceStable(routes, func(i, j int) bool { return routes[i].pos < routes[j].pos })
	for _, r := range routes {
		h, ok := idx.resolveHandler(r.handler, 0)
		params, auth := idx.inferParameters(r.method, r.path, h, ok)
		ep := domain.Endpoint{
			Path:         r.path,
			Method:       r.method,
			Description:  firstSentence(h.doc),
			Parameters:   params,
			AuthRequired: auth,
			Origin:       origin,
			Extractor:    extractorName,
		}
		if seen[ep.Key()] {
			continue
		}
		seen[ep.Key()] = true
		eps = append(eps, ep)
	}
	return eps, nil
}
