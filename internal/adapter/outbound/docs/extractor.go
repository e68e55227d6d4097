package docs

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/i2y/apiforge/internal/domain"
	"github.com/i2y/apiforge/internal/usecase"
)

const extractorName = "docs"

var (
	baseURLLabel = regexp.MustCompile(`(?i)\b(?:base\s*url|api\s*endpoint|server|host)\s*:?\s*(https?://[^\s)>\]"'` + "`" + `]+)`)
	authLabel    = regexp.MustCompile(`(?i)\b(authentication|authorization|api[\s_-]*key|bearer\s*token|oauth2?)\b\s*:?\s*([^.\n]*)`)
)

// Extractor finds endpoints in prose documentation. HTML pages are
// flattened first.
type Extractor struct {
	logger *slog.Logger
	window int
}

func NewExtractor(logger *slog.Logger) *Extractor {
	return &Extractor{
		logger: logger.With("component", "docs_extractor"),
		window: usecase.DefaultExtractOptions().DocWindow,
	}
}

func (e *Extractor) Name() string      { return extractorName }
func (e *Extractor) Tier() domain.Tier { return domain.TierDocument }

func (e *Extractor) Accepts(src domain.Source) bool {
	return src.Kind == domain.KindDocument || src.Kind == domain.KindHTML
}

func (e *Extractor) Extract(ctx context.Context, run *usecase.RunContext, src domain.Source) domain.ExtractionResult {
	if err := ctx.Err(); err != nil {
		return domain.Failed(src.Origin, extractorName, domain.TierDocument, err)
	}
	log, size := e.logger, e.window
	if run != nil {
		log = run.Logger.With("component", "docs_extractor")
		size = run.Options.DocWindow
	}
	log = log.With(slog.String("source", src.Origin))

	text := string(src.Data)
	if src.Kind == domain.KindHTML {
		flat, err := Flatten(src.Data)
		if err != nil {
			log.Warn("Failed to flatten HTML document.", slog.Any("error", err))
			return domain.Failed(src.Origin, extractorName, domain.TierDocument,
				&domain.ParseError{Source: src.Origin, Format: "html", Cause: err})
		}
		text = flat
	}

	eps, host := Endpoints(src.Origin, text, size)
	log.Debug("Scanned document.", slog.Int("endpoint_count", len(eps)))

	res := domain.Matched(src.Origin, extractorName, domain.TierDocument, eps)
	if len(eps) == 0 {
		return res
	}
	res.Auth = detectAuth(text)
	switch {
	case src.BaseURL != "":
		res.BaseURL = src.BaseURL
	case baseURLLabel.MatchString(text):
		res.BaseURL = strings.TrimRight(baseURLLabel.FindStringSubmatch(text)[1], "/.,;")
	default:
		res.BaseURL = host
	}
	return res
}

// Endpoints scans text and returns the endpoints it mentions, together with
// the first scheme and host written in a full endpoint URL.
func Endpoints(origin, text string, size int) ([]domain.Endpoint, string) {
	matches := findMatches(text)
	host := ""
	eps := make([]domain.Endpoint, 0, len(matches))
	for i, m := range matches {
		if host == "" {
			host = m.host
		}
		before, after := window(text, matches, i, size)
		if headingLine(text, m.start) {
			before = ""
		} else if j := strings.LastIndex(before, "\n\n"); j >= 0 {
			before = before[j+2:]
		}
		ctx := before + text[m.start:m.end] + after
		params, auth := parameters(m, ctx)
		eps = append(eps, domain.Endpoint{
			Path:         m.path,
			Method:       m.method,
			Description:  description(text[:m.start], after),
			Parameters:   params,
			AuthRequired: auth,
			Tags:         tags(ctx, topHeading(text, m.start)),
			Origin:       origin,
			Extractor:    extractorName,
		})
	}
	return eps, host
}

func headingLine(text string, pos int) bool {
	lineStart := strings.LastIndexByte(text[:pos], '\n') + 1
	return strings.HasPrefix(strings.TrimSpace(text[lineStart:]), "#")
}

// detectAuth reads the document-wide authentication statement, if any.
func detectAuth(text string) *domain.AuthInfo {
	m := authLabel.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	label := strings.ToLower(m[1] + " " + m[2])
	var a *domain.AuthInfo
	switch {
	case strings.Contains(label, "oauth"):
		a = &domain.AuthInfo{Type: domain.AuthOAuth, Headers: map[string]string{"Authorization": "Bearer"}}
	case strings.Contains(label, "bearer"), strings.Contains(label, "token"), strings.Contains(label, "jwt"):
		a = &domain.AuthInfo{Type: domain.AuthBearer, Headers: map[string]string{"Authorization": "Bearer"}}
	case strings.Contains(label, "basic"):
		a = &domain.AuthInfo{Type: domain.AuthBasic, Headers: map[string]string{"Authorization": "Basic"}}
	case strings.Contains(label, "key"):
		a = &domain.AuthInfo{Type: domain.AuthAPIKey, Parameters: map[string]string{"in": "header"}}
		if h := apiKeyHeader.FindString(m[0]); h != "" {
			a.Parameters["name"] = h
			a.Headers = map[string]string{h: ""}
		}
	default:
		return nil
	}
	return a
}

var apiKeyHeader = regexp.MustCompile(`\bX-[A-Za-z0-9-]+`)
