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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianInterview/services/interview/datatypes"
)

// stubHosting is a canned HostingClient.
type stubHosting struct {
	entries   []TreeEntry
	contents  map[string]string
	listErr   error
	failPaths map[string]bool
	reads     []string
}

func (s *stubHosting) ListTree(_ context.Context, _, _ string) ([]TreeEntry, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.entries, nil
}

func (s *stubHosting) ReadFile(_ context.Context, _, path string) (string, error) {
	s.reads = append(s.reads, path)
	if s.failPaths[path] {
		return "", errors.New("rate limited")
	}
	content, ok := s.contents[path]
	if !ok {
		return "", errors.New("no such file")
	}
	return content, nil
}

func blob(path string, size int64) TreeEntry { return TreeEntry{Path: path, Type: "blob", Size: size} }
func dir(path string) TreeEntry              { return TreeEntry{Path: path, Type: "tree"} }

func paths(files []IngestedFile) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out
}

func TestIngest_FiltersExcludedAndBinary(t *testing.T) {
	stub := &stubHosting{
		entries: []TreeEntry{
			dir("src"),
			blob("src/main.go", 100),
			blob("src/logo.png", 100),
			blob("node_modules/lodash/index.js", 100),
			blob(".git/config", 10),
			blob("app.min.js", 50),
			blob("yarn.lock", 5000),
			blob("README.md", 200),
		},
		contents: map[string]string{
			"src/main.go": "package main",
			"README.md":   "# Hello",
		},
	}
	ing := NewIngestor(stub, nil)

	got, err := ing.Ingest(context.Background(), "octocat/hello-world", nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"src/main.go", "README.md"}, paths(got.Files))
}

func TestIngest_SkipsOversizedFiles(t *testing.T) {
	stub := &stubHosting{
		entries: []TreeEntry{
			blob("big.go", maxFileSize+1),
			blob("small.go", 10),
		},
		contents: map[string]string{"small.go": "package small", "big.go": "package big"},
	}
	ing := NewIngestor(stub, nil)

	got, err := ing.Ingest(context.Background(), "octocat/hello-world", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"small.go"}, paths(got.Files))
	assert.NotContains(t, stub.reads, "big.go", "oversized files are never fetched")
}

func TestIngest_PerFileFailureSwallowed(t *testing.T) {
	stub := &stubHosting{
		entries: []TreeEntry{
			blob("a.go", 10),
			blob("b.go", 10),
		},
		contents:  map[string]string{"b.go": "package b"},
		failPaths: map[string]bool{"a.go": true},
	}
	ing := NewIngestor(stub, nil)

	got, err := ing.Ingest(context.Background(), "octocat/hello-world", nil)
	require.NoError(t, err, "a single failed fetch must not fail ingestion")
	assert.Equal(t, []string{"b.go"}, paths(got.Files))
}

func TestIngest_ListFailureIsNotFound(t *testing.T) {
	stub := &stubHosting{listErr: errors.New("boom")}
	ing := NewIngestor(stub, nil)

	_, err := ing.Ingest(context.Background(), "octocat/missing", nil)
	assert.ErrorIs(t, err, datatypes.ErrNotFound)
}

func TestInScope_SymmetricPrefix(t *testing.T) {
	dirs := []string{"src/api"}

	assert.True(t, inScope("src/api/router.go", dirs), "under the selected dir")
	assert.True(t, inScope("src/api", dirs), "the selected dir itself")
	assert.True(t, inScope("src", dirs), "ancestor of the selected dir")
	assert.False(t, inScope("src/apiextra/x.go", dirs), "sibling with shared prefix")
	assert.False(t, inScope("docs/readme.md", dirs))
	assert.True(t, inScope("anything", nil), "empty scope includes everything")
}

func TestIngest_ScopedToDirectories(t *testing.T) {
	stub := &stubHosting{
		entries: []TreeEntry{
			blob("src/api/router.go", 10),
			blob("src/web/page.tsx", 10),
			blob("docs/guide.md", 10),
		},
		contents: map[string]string{
			"src/api/router.go": "package api",
			"src/web/page.tsx":  "export {}",
			"docs/guide.md":     "# Guide",
		},
	}
	ing := NewIngestor(stub, nil)

	got, err := ing.Ingest(context.Background(), "octocat/hello-world", []string{"src/api"})
	require.NoError(t, err)
	assert.Equal(t, []string{"src/api/router.go"}, paths(got.Files))
}

func TestIngest_BuildsHierarchy(t *testing.T) {
	stub := &stubHosting{
		entries: []TreeEntry{
			dir("src"),
			blob("src/main.go", 10),
			blob("README.md", 10),
		},
		contents: map[string]string{"src/main.go": "package main", "README.md": "#"},
	}
	ing := NewIngestor(stub, nil)

	got, err := ing.Ingest(context.Background(), "octocat/hello-world", nil)
	require.NoError(t, err)
	require.Len(t, got.Tree, 2)

	byName := map[string]*FileNode{}
	for _, node := range got.Tree {
		byName[node.Name] = node
	}
	require.Contains(t, byName, "src")
	assert.Equal(t, "dir", byName["src"].Type)
	require.Len(t, byName["src"].Children, 1)
	assert.Equal(t, "src/main.go", byName["src"].Children[0].Path)
	assert.Equal(t, "file", byName["src"].Children[0].Type)
	assert.Equal(t, "file", byName["README.md"].Type)
}

func TestParseRepoLocator(t *testing.T) {
	for _, tc := range []struct {
		in          string
		owner, name string
	}{
		{"octocat/hello-world", "octocat", "hello-world"},
		{"https://github.com/octocat/hello-world", "octocat", "hello-world"},
		{"https://github.com/octocat/hello-world.git", "octocat", "hello-world"},
	} {
		owner, name, err := parseRepoLocator(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.owner, owner)
		assert.Equal(t, tc.name, name)
	}

	_, _, err := parseRepoLocator("just-a-name")
	assert.Error(t, err)
}

func TestIsBinaryPath(t *testing.T) {
	assert.True(t, isBinaryPath("assets/logo.png"))
	assert.True(t, isBinaryPath("lib/native.so"))
	assert.True(t, isBinaryPath("web/app.min.js"))
	assert.False(t, isBinaryPath("src/main.go"))
	assert.False(t, isBinaryPath("config.yaml"))
}
