package github

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGH answers gh invocations from a table keyed by the joined
// arguments.
type fakeGH struct {
	responses map[string]string
	calls     []string
	authErr   error
}

func (f *fakeGH) run(_ context.Context, name string, args ...string) ([]byte, error) {
	key := strings.Join(append([]string{name}, args...), " ")
	f.calls = append(f.calls, key)
	if key == "gh auth status" {
		return nil, f.authErr
	}
	out, ok := f.responses[key]
	if !ok {
		return nil, errors.New("gh command failed: HTTP 404: Not Found")
	}
	return []byte(out), nil
}

func TestParseURL(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		expected    Location
		expectError bool
	}{
		{
			name:     "simple github URL",
			url:      "github://owner/repo/path/to/file.yaml",
			expected: Location{Owner: "owner", Repo: "repo", Path: "path/to/file.yaml"},
		},
		{
			name:     "github URL with ref",
			url:      "github://owner/repo/path/to/file.yaml@v1.0",
			expected: Location{Owner: "owner", Repo: "repo", Path: "path/to/file.yaml", Ref: "v1.0"},
		},
		{
			name:     "directory with branch ref",
			url:      "github://microsoft/api-guidelines/graph/@main",
			expected: Location{Owner: "microsoft", Repo: "api-guidelines", Path: "graph", Ref: "main"},
		},
		{
			name:        "invalid URL - not github",
			url:         "https://github.com/owner/repo/file.yaml",
			expectError: true,
		},
		{
			name:        "invalid URL - missing path",
			url:         "github://owner/repo",
			expectError: true,
		},
		{
			name:        "invalid URL - missing repo",
			url:         "github://owner",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := ParseURL(tt.url)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, loc)
		})
	}
}

func TestLocation_String(t *testing.T) {
	loc := Location{Owner: "o", Repo: "r", Path: "api", Ref: "dev"}
	assert.Equal(t, "github://o/r/api@dev", loc.String())
	assert.Equal(t, "github://o/r/api/v1.yaml@dev", loc.At("api/v1.yaml").String())
	assert.Equal(t, "repos/o/r/contents/api?ref=dev", loc.contentsPath())
}

func TestGHClient_FetchFile(t *testing.T) {
	gh := &fakeGH{responses: map[string]string{
		"gh api -H Accept: application/vnd.github.raw repos/o/r/contents/api.yaml": "openapi: 3.0.0\n",
	}}
	c := &GHClient{run: gh.run}

	data, err := c.FetchFile(context.Background(), Location{Owner: "o", Repo: "r", Path: "api.yaml"})
	require.NoError(t, err)
	assert.Equal(t, "openapi: 3.0.0\n", string(data))
	assert.Equal(t, "gh auth status", gh.calls[0])
}

func TestGHClient_NotAuthenticated(t *testing.T) {
	gh := &fakeGH{authErr: errors.New("gh command failed: You are not logged in to any GitHub hosts")}
	c := &GHClient{run: gh.run}

	_, err := c.FetchFile(context.Background(), Location{Owner: "o", Repo: "r", Path: "api.yaml"})
	assert.ErrorContains(t, err, "gh auth login")
}

func TestGHClient_List(t *testing.T) {
	gh := &fakeGH{responses: map[string]string{
		"gh api repos/o/r/contents/docs":        `[{"name":"a.md","path":"docs/a.md","type":"file","size":10}]`,
		"gh api repos/o/r/contents/docs/a.md":   `{"name":"a.md","path":"docs/a.md","type":"file","size":10}`,
		"gh api repos/o/r/contents/docs/broken": `not json`,
	}}
	c := &GHClient{run: gh.run}
	ctx := context.Background()

	entries, err := c.List(ctx, Location{Owner: "o", Repo: "r", Path: "docs"})
	require.NoError(t, err)
	assert.Equal(t, []Entry{{Name: "a.md", Path: "docs/a.md", Type: "file", Size: 10}}, entries)

	entries, err = c.List(ctx, Location{Owner: "o", Repo: "r", Path: "docs/a.md"})
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = c.List(ctx, Location{Owner: "o", Repo: "r", Path: "docs/broken"})
	assert.Error(t, err)
}
