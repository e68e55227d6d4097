package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os/exec"
	"strings"
)

const scheme = "github://"

// Location is a parsed github://owner/repo/path[@ref] URL.
type Location struct {
	Owner string
	Repo  string
	Path  string
	Ref   string
}

// ParseURL parses a github:// URL into its components
// Format: github://owner/repo/path/to/file[@ref]
func ParseURL(githubURL string) (Location, error) {
	if !strings.HasPrefix(githubURL, scheme) {
		return Location{}, fmt.Errorf("invalid GitHub URL format: %s", githubURL)
	}
	urlPath := strings.TrimPrefix(githubURL, scheme)

	var loc Location
	if i := strings.LastIndex(urlPath, "@"); i >= 0 {
		urlPath, loc.Ref = urlPath[:i], urlPath[i+1:]
	}
	pathParts := strings.SplitN(urlPath, "/", 3)
	if len(pathParts) < 3 || pathParts[0] == "" || pathParts[1] == "" || pathParts[2] == "" {
		return Location{}, fmt.Errorf("invalid GitHub URL format: expected github://owner/repo/path/to/file")
	}
	loc.Owner, loc.Repo, loc.Path = pathParts[0], pathParts[1], strings.Trim(pathParts[2], "/")
	return loc, nil
}

// String renders the location back as a github:// URL.
func (l Location) String() string {
	s := scheme + l.Owner + "/" + l.Repo + "/" + l.Path
	if l.Ref != "" {
		s += "@" + l.Ref
	}
	return s
}

// At returns the location of another path in the same repository and ref.
func (l Location) At(path string) Location {
	l.Path = path
	return l
}

func (l Location) contentsPath() string {
	p := fmt.Sprintf("repos/%s/%s/contents/%s", l.Owner, l.Repo, l.Path)
	if l.Ref != "" {
		p += "?ref=" + url.QueryEscape(l.Ref)
	}
	return p
}

// Entry is one item of a repository directory listing.
type Entry struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Type string `json:"type"` // "file" or "dir"
	Size int64  `json:"size"`
}

type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// GHClient wraps the gh CLI command for GitHub operations
type GHClient struct {
	run runFunc
}

// NewGHClient creates a new GitHub client
func NewGHClient() *GHClient {
	return &GHClient{run: execRun}
}

func execRun(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("%s command failed: %s", name, strings.TrimSpace(stderr.String()))
		}
		return nil, fmt.Errorf("%s command failed: %w", name, err)
	}
	return stdout.Bytes(), nil
}

// FetchFile retrieves the raw content of a file.
func (c *GHClient) FetchFile(ctx context.Context, loc Location) ([]byte, error) {
	if err := c.checkGHCommand(ctx); err != nil {
		return nil, err
	}
	out, err := c.run(ctx, "gh", "api", "-H", "Accept: application/vnd.github.raw", loc.contentsPath())
	if err != nil {
		return nil, err
	}
	return out, nil
}

// List returns the entries of a directory. For a file it returns the file
// itself.
func (c *GHClient) List(ctx context.Context, loc Location) ([]Entry, error) {
	if err := c.checkGHCommand(ctx); err != nil {
		return nil, err
	}
	out, err := c.run(ctx, "gh", "api", loc.contentsPath())
	if err != nil {
		return nil, err
	}
	out = bytes.TrimSpace(out)
	if len(out) > 0 && out[0] == '{' {
		var e Entry
		if err := json.Unmarshal(out, &e); err != nil {
			return nil, fmt.Errorf("failed to decode contents of %s: %w", loc, err)
		}
		return []Entry{e}, nil
	}
	var entries []Entry
	if err := json.Unmarshal(out, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode listing of %s: %w", loc, err)
	}
	return entries, nil
}

// checkGHCommand verifies that the gh CLI is installed and authenticated
func (c *GHClient) checkGHCommand(ctx context.Context) error {
	_, err := c.run(ctx, "gh", "auth", "status")
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "not found") || strings.Contains(msg, "executable file not found"):
		return fmt.Errorf("gh CLI is not installed. Please install it from https://cli.github.com/")
	case strings.Contains(msg, "not logged in"):
		return fmt.Errorf("gh CLI is not authenticated. Please run 'gh auth login' first")
	}
	return fmt.Errorf("gh auth check failed: %w", err)
}

// IsGitHubURL checks if a URL is a GitHub URL
func IsGitHubURL(url string) bool {
	return strings.HasPrefix(url, scheme)
}
