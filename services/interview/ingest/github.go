// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/AleutianAI/AleutianInterview/services/interview/datatypes"
)

// HTTPClient interface allows injecting mock HTTP clients for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// TreeEntry is one entry in a repository tree listing.
type TreeEntry struct {
	Path string `json:"path"`
	Type string `json:"type"` // "blob" or "tree"
	Size int64  `json:"size"`
}

// HostingClient is the source-hosting contract the ingestor consumes. Each
// call fails independently; the hosting side may rate limit. No retry or
// backoff is applied at this layer.
type HostingClient interface {
	// ListTree lists the full repository tree. A non-empty pathScope narrows
	// the listing to entries under that path.
	ListTree(ctx context.Context, repo, pathScope string) ([]TreeEntry, error)

	// ReadFile returns the raw content of one file.
	ReadFile(ctx context.Context, repo, path string) (string, error)
}

// GitHubClient talks to the GitHub REST API.
type GitHubClient struct {
	httpClient HTTPClient
	baseURL    string
	token      string
}

// NewGitHubClient creates a hosting client for api.github.com. token may be
// empty for public repositories, at the cost of a much lower rate limit.
// baseURL overrides the API host for GitHub Enterprise; empty means the
// public API.
func NewGitHubClient(token, baseURL string) *GitHubClient {
	if baseURL == "" {
		baseURL = "https://api.github.com"
	}
	return &GitHubClient{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
	}
}

// WithHTTPClient swaps the underlying HTTP client. Used by tests.
func (g *GitHubClient) WithHTTPClient(c HTTPClient) *GitHubClient {
	g.httpClient = c
	return g
}

// parseRepoLocator accepts "owner/name" or a full GitHub URL and returns the
// owner and repository name.
func parseRepoLocator(locator string) (string, string, error) {
	cleaned := strings.TrimSpace(locator)
	cleaned = strings.TrimSuffix(cleaned, ".git")
	if strings.Contains(cleaned, "://") {
		parsed, err := url.Parse(cleaned)
		if err != nil {
			return "", "", fmt.Errorf("invalid repository URL %q: %w", locator, err)
		}
		cleaned = strings.Trim(parsed.Path, "/")
	}
	parts := strings.Split(cleaned, "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("repository locator %q is not owner/name", locator)
	}
	return parts[0], parts[1], nil
}

func (g *GitHubClient) get(ctx context.Context, apiURL, accept string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", apiURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create GitHub request: %w", err)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("GitHub API call failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read GitHub response: %w", err)
	}
	return body, resp.StatusCode, nil
}

// ListTree implements HostingClient using the recursive git/trees endpoint.
// GitHub only exposes recursive listings from a root ref, so a pathScope is
// applied as a client-side filter over the full listing.
func (g *GitHubClient) ListTree(ctx context.Context, repo, pathScope string) ([]TreeEntry, error) {
	owner, name, err := parseRepoLocator(repo)
	if err != nil {
		return nil, err
	}
	apiURL := fmt.Sprintf("%s/repos/%s/%s/git/trees/HEAD?recursive=1", g.baseURL, owner, name)

	body, status, err := g.get(ctx, apiURL, "application/vnd.github+json")
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("repository %s: %w", repo, datatypes.ErrNotFound)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("GitHub tree listing failed with status %d: %w",
			status, datatypes.ErrUpstream)
	}

	var treeResp struct {
		Tree      []TreeEntry `json:"tree"`
		Truncated bool        `json:"truncated"`
	}
	if err := json.Unmarshal(body, &treeResp); err != nil {
		return nil, fmt.Errorf("failed to parse GitHub tree response: %w", err)
	}
	if treeResp.Truncated {
		slog.Warn("GitHub tree listing truncated", "repo", repo)
	}

	if pathScope == "" {
		return treeResp.Tree, nil
	}
	scoped := make([]TreeEntry, 0, len(treeResp.Tree))
	for _, entry := range treeResp.Tree {
		if entry.Path == pathScope || strings.HasPrefix(entry.Path, pathScope+"/") {
			scoped = append(scoped, entry)
		}
	}
	return scoped, nil
}

// ReadFile implements HostingClient using the contents endpoint with the raw
// media type.
func (g *GitHubClient) ReadFile(ctx context.Context, repo, path string) (string, error) {
	owner, name, err := parseRepoLocator(repo)
	if err != nil {
		return "", err
	}
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	apiURL := fmt.Sprintf("%s/repos/%s/%s/contents/%s", g.baseURL, owner, name,
		strings.Join(segments, "/"))

	body, status, err := g.get(ctx, apiURL, "application/vnd.github.raw+json")
	if err != nil {
		return "", err
	}
	if status == http.StatusNotFound {
		return "", fmt.Errorf("file %s: %w", path, datatypes.ErrNotFound)
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("GitHub file fetch for %s failed with status %d: %w",
			path, status, datatypes.ErrUpstream)
	}
	return string(body), nil
}
