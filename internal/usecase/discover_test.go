package usecase_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/i2y/apiforge/internal/domain"
	"github.com/i2y/apiforge/internal/usecase"
)

// stubFetcher serves sources from memory keyed by URL.
type stubFetcher struct {
	sources map[string][]domain.Source
	calls   atomic.Int32
}

func (f *stubFetcher) Accepts(cfg usecase.SourceConfig) bool {
	return !strings.HasPrefix(cfg.URL, "ftp://")
}

func (f *stubFetcher) Fetch(_ context.Context, cfg usecase.SourceConfig) ([]domain.Source, error) {
	f.calls.Add(1)
	srcs, ok := f.sources[cfg.URL]
	if !ok {
		return nil, errors.New("not found: " + cfg.URL)
	}
	return srcs, nil
}

// lineExtractor reads "METHOD /path description" lines.
type lineExtractor struct {
	name string
	tier domain.Tier
	kind domain.SourceKind
}

func (e lineExtractor) Name() string                   { return e.name }
func (e lineExtractor) Tier() domain.Tier              { return e.tier }
func (e lineExtractor) Accepts(src domain.Source) bool { return src.Kind == e.kind }

func (e lineExtractor) Extract(_ context.Context, _ *usecase.RunContext, src domain.Source) domain.ExtractionResult {
	if string(src.Data) == "broken" {
		return domain.Failed(src.Origin, e.name, e.tier, &domain.ParseError{Source: src.Origin, Cause: errors.New("broken")})
	}
	var eps []domain.Endpoint
	for _, line := range strings.Split(string(src.Data), "\n") {
		fields := strings.SplitN(line, " ", 3)
		if len(fields) < 2 {
			continue
		}
		m, ok := domain.ParseMethod(fields[0])
		if !ok {
			continue
		}
		ep := domain.Endpoint{Method: m, Path: fields[1]}
		if len(fields) == 3 {
			ep.Description = fields[2]
		}
		eps = append(eps, ep)
	}
	return domain.Matched(src.Origin, e.name, e.tier, eps)
}

// MockToolGenerator is a mock implementation of the ToolGenerator interface.
type MockToolGenerator struct {
	mock.Mock
}

func (m *MockToolGenerator) Generate(ep domain.Endpoint) (domain.ToolDefinition, error) {
	args := m.Called(ep)
	return args.Get(0).(domain.ToolDefinition), args.Error(1)
}

// MockPublisher is a mock implementation of the ToolPublisher interface.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, defs []domain.ToolDefinition) error {
	return m.Called(ctx, defs).Error(0)
}

// nameGenerator derives a tool name from the endpoint key and fails on
// paths containing "{broken}".
type nameGenerator struct{}

func (nameGenerator) Generate(ep domain.Endpoint) (domain.ToolDefinition, error) {
	if strings.Contains(ep.Path, "{broken}") {
		return domain.ToolDefinition{}, &domain.GenerationError{Method: ep.Method, Path: ep.Path, Placeholder: "broken"}
	}
	segs := strings.Split(strings.Trim(ep.Path, "/"), "/")
	return domain.ToolDefinition{
		Name:         strings.ToLower(string(ep.Method)) + "_" + segs[len(segs)-1],
		Method:       ep.Method,
		PathTemplate: ep.Path,
		Description:  ep.Description,
	}, nil
}

func newDiscover(t *testing.T, fetcher usecase.SourceFetcher, gen usecase.ToolGenerator, repo usecase.ToolRepository, pub usecase.ToolPublisher, policy usecase.MergePolicy) *usecase.DiscoverUseCase {
	t.Helper()
	extractors := []usecase.Extractor{
		lineExtractor{name: "spec", tier: domain.TierSpec, kind: domain.KindSpec},
		lineExtractor{name: "docs", tier: domain.TierDocument, kind: domain.KindDocument},
	}
	uc, err := usecase.NewDiscoverUseCase([]usecase.SourceFetcher{fetcher}, extractors, gen, repo, pub,
		usecase.DiscoverConfig{MaxConcurrency: 4, Policy: policy}, testLogger())
	require.NoError(t, err)
	return uc
}

func TestDiscoverUseCase_Execute(t *testing.T) {
	ctx := context.Background()
	fetcher := &stubFetcher{sources: map[string][]domain.Source{
		"docs.md":  {{Origin: "docs.md", Kind: domain.KindDocument, Data: []byte("GET /users B\nGET /users/{broken} x")}},
		"api.yaml": {{Origin: "api.yaml", Kind: domain.KindSpec, Data: []byte("GET /users A\nPOST /users create")}},
		"dir": {
			{Origin: "dir/one.yaml", Kind: domain.KindSpec, Data: []byte("GET /orders/{id}")},
			{Origin: "dir/copy.yaml", Kind: domain.KindSpec, Data: []byte("GET /orders/{id}")},
			{Origin: "dir/bad.yaml", Kind: domain.KindSpec, Data: []byte("broken")},
			{Origin: "dir/image.png", Kind: domain.KindHTML + "-unknown", Data: []byte("\x89PNG")},
		},
	}}
	repo := new(MockToolRepository)
	pub := new(MockPublisher)

	var saved []domain.ToolDefinition
	repo.On("Save", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		saved = args.Get(1).([]domain.ToolDefinition)
	}).Return(nil).Once()
	pub.On("Publish", mock.Anything, mock.Anything).Return(nil).Once()

	uc := newDiscover(t, fetcher, nameGenerator{}, repo, pub, usecase.MergePolicy{})
	report, err := uc.Execute(ctx, []usecase.SourceConfig{
		{URL: "docs.md"}, {URL: "api.yaml"}, {URL: "dir"}, {URL: "missing.json"}, {URL: "ftp://nope"},
	})
	require.NoError(t, err)

	var keys []string
	for _, ep := range report.Endpoints {
		keys = append(keys, ep.Key().String())
	}
	// spec-tier results come first regardless of configuration order
	assert.Equal(t, []string{"GET /users", "POST /users", "GET /orders/{id}", "GET /users/{broken}"}, keys)
	assert.Equal(t, "A", report.Endpoints[0].Description)
	assert.Equal(t, 1, report.Duplicates)

	assert.Len(t, report.Failures, 3, "bad.yaml, missing.json and the unaccepted ftp source")
	assert.Len(t, report.GenerationErrors, 1)
	assert.Equal(t, 1, report.Skipped)

	var names []string
	for _, d := range saved {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"get_users", "post_users", "get_{id}"}, names)
	assert.Equal(t, saved, report.Tools)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 5, report.SourceCount, "the duplicate copy is dropped")

	repo.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestDiscoverUseCase_StrictPolicy(t *testing.T) {
	ctx := context.Background()
	fetcher := &stubFetcher{sources: map[string][]domain.Source{
		"bad.yaml": {{Origin: "bad.yaml", Kind: domain.KindSpec, Data: []byte("broken")}},
	}}
	repo := new(MockToolRepository)
	gen := new(MockToolGenerator)

	uc := newDiscover(t, fetcher, gen, repo, nil, usecase.MergePolicy{FailOnSourceError: true})
	report, err := uc.Execute(ctx, []usecase.SourceConfig{{URL: "bad.yaml"}})

	require.Error(t, err)
	assert.True(t, usecase.IsSourceFailure(err))
	require.NotNil(t, report)
	assert.Len(t, report.Failures, 1)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	gen.AssertNotCalled(t, "Generate", mock.Anything)
}

func TestDiscoverUseCase_SaveError(t *testing.T) {
	ctx := context.Background()
	fetcher := &stubFetcher{sources: map[string][]domain.Source{
		"api.yaml": {{Origin: "api.yaml", Kind: domain.KindSpec, Data: []byte("GET /users")}},
	}}
	repo := new(MockToolRepository)
	gen := new(MockToolGenerator)
	saveErr := errors.New("save failed")

	gen.On("Generate", mock.Anything).Return(domain.ToolDefinition{Name: "get_users"}, nil).Once()
	repo.On("Save", mock.Anything, []domain.ToolDefinition{{Name: "get_users"}}).Return(saveErr).Once()

	uc := newDiscover(t, fetcher, gen, repo, nil, usecase.MergePolicy{})
	_, err := uc.Execute(ctx, []usecase.SourceConfig{{URL: "api.yaml"}})

	require.Error(t, err)
	assert.ErrorIs(t, err, saveErr)
	repo.AssertExpectations(t)
	gen.AssertExpectations(t)
}

func TestDiscoverUseCase_ExecuteConfigured(t *testing.T) {
	uc, err := usecase.NewDiscoverUseCase(nil, nil, nameGenerator{}, new(MockToolRepository), nil, usecase.DiscoverConfig{}, testLogger())
	require.NoError(t, err)

	_, err = uc.ExecuteConfigured(context.Background())
	assert.ErrorIs(t, err, usecase.ErrNoSourcesFound)
}
