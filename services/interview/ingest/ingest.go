// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ingest walks a hosted repository tree and returns the text files
// the analyzer can work with. Build, dependency, and VCS directories are
// excluded, binary files are filtered by extension pattern, and oversized
// files are skipped. Ingestion is best-effort: a file that fails to fetch is
// dropped and traversal continues; only a failure to list the repository
// itself is fatal.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/AleutianAI/AleutianInterview/services/interview/datatypes"
)

const (
	// maxFileSize is the per-file size ceiling in bytes.
	maxFileSize = 100_000

	// maxFiles caps how many file contents one ingestion fetches.
	maxFiles = 200
)

// excludedDirs are directory names skipped anywhere in the tree.
var excludedDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	".svn":         true,
	".hg":          true,
	"vendor":       true,
	"__pycache__":  true,
	".cache":       true,
	"dist":         true,
	"build":        true,
	"target":       true,
	"coverage":     true,
	".idea":        true,
	".vscode":      true,
	".next":        true,
	"venv":         true,
	".venv":        true,
}

// binaryPatterns match files excluded by extension.
var binaryPatterns = []string{
	"**/*.{png,jpg,jpeg,gif,ico,bmp,webp,svg}",
	"**/*.{woff,woff2,ttf,eot,otf}",
	"**/*.{zip,tar,gz,tgz,bz2,xz,7z,rar,jar,war}",
	"**/*.{exe,dll,so,dylib,bin,o,a,class,pyc,wasm}",
	"**/*.{pdf,doc,docx,ppt,pptx,xls,xlsx}",
	"**/*.{mp3,mp4,wav,ogg,mov,avi,mkv}",
	"**/*.{db,sqlite,sqlite3}",
	"**/*.min.{js,css}",
	"**/package-lock.json",
	"**/yarn.lock",
	"**/pnpm-lock.yaml",
	"**/go.sum",
	"**/Cargo.lock",
}

// IngestedFile is one fetched repository file.
type IngestedFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	Size    int64  `json:"size"`
}

// FileNode is one node of the directory hierarchy served to the UI's
// directory picker.
type FileNode struct {
	Name     string      `json:"name"`
	Path     string      `json:"path"`
	Type     string      `json:"type"` // "file" or "dir"
	Children []*FileNode `json:"children,omitempty"`
}

// RepoContents is the result of one ingestion.
type RepoContents struct {
	Files []IngestedFile `json:"files"`
	Tree  []*FileNode    `json:"tree"`
}

// Ingestor walks repositories through a hosting client.
type Ingestor struct {
	client HostingClient
	logger *slog.Logger
}

// NewIngestor creates an ingestor over the given hosting client.
func NewIngestor(client HostingClient, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{client: client, logger: logger}
}

// inScope applies the symmetric prefix test: with an empty scope everything
// is included; otherwise a path is included when it is a prefix of, or is
// prefixed by, any requested directory. The ancestor direction keeps parent
// directories visible while a deep directory is selected.
func inScope(path string, dirs []string) bool {
	if len(dirs) == 0 {
		return true
	}
	for _, dir := range dirs {
		dir = strings.Trim(dir, "/")
		if dir == "" {
			return true
		}
		if path == dir ||
			strings.HasPrefix(path, dir+"/") ||
			strings.HasPrefix(dir, path+"/") {
			return true
		}
	}
	return false
}

// inExcludedDir reports whether any path segment is an excluded directory.
func inExcludedDir(path string) bool {
	for _, segment := range strings.Split(path, "/") {
		if excludedDirs[segment] {
			return true
		}
	}
	return false
}

// isBinaryPath reports whether the path matches any binary pattern.
func isBinaryPath(path string) bool {
	for _, pattern := range binaryPatterns {
		if ok, _ := doublestar.Match(pattern, path); ok {
			return true
		}
	}
	return false
}

// Ingest walks the repository, optionally scoped to the given directories,
// and fetches the content of every file passing the filters. Per-file fetch
// failures are swallowed; a failure to list the repository propagates as
// not-found.
func (i *Ingestor) Ingest(ctx context.Context, repo string, dirs []string) (*RepoContents, error) {
	entries, err := i.client.ListTree(ctx, repo, "")
	if err != nil {
		i.logger.Error("repository listing failed", "repo", repo, "error", err)
		return nil, fmt.Errorf("list repository %s: %w", repo, datatypes.ErrNotFound)
	}

	var wanted []TreeEntry
	var included []TreeEntry
	for _, entry := range entries {
		if !inScope(entry.Path, dirs) || inExcludedDir(entry.Path) {
			continue
		}
		included = append(included, entry)
		if entry.Type != "blob" {
			continue
		}
		if isBinaryPath(entry.Path) {
			continue
		}
		if entry.Size > maxFileSize {
			i.logger.Debug("skipping oversized file", "path", entry.Path, "size", entry.Size)
			continue
		}
		wanted = append(wanted, entry)
	}

	sort.Slice(wanted, func(a, b int) bool { return wanted[a].Path < wanted[b].Path })
	if len(wanted) > maxFiles {
		i.logger.Warn("repository exceeds file cap, truncating",
			"repo", repo, "files", len(wanted), "cap", maxFiles)
		wanted = wanted[:maxFiles]
	}

	contents := &RepoContents{Tree: buildTree(included)}
	for _, entry := range wanted {
		content, err := i.client.ReadFile(ctx, repo, entry.Path)
		if err != nil {
			// Best-effort: drop the file, keep walking.
			i.logger.Warn("file fetch failed, dropping", "path", entry.Path, "error", err)
			continue
		}
		contents.Files = append(contents.Files, IngestedFile{
			Path:    entry.Path,
			Content: content,
			Size:    entry.Size,
		})
	}

	i.logger.Info("repository ingested", "repo", repo,
		"files", len(contents.Files), "scoped_dirs", len(dirs))
	return contents, nil
}

// buildTree assembles the hierarchy from the flat, filtered entry list.
func buildTree(entries []TreeEntry) []*FileNode {
	root := &FileNode{Type: "dir"}
	index := map[string]*FileNode{"": root}

	sorted := make([]TreeEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(a, b int) bool { return sorted[a].Path < sorted[b].Path })

	for _, entry := range sorted {
		segments := strings.Split(entry.Path, "/")
		parentPath := ""
		for depth, name := range segments {
			childPath := name
			if parentPath != "" {
				childPath = parentPath + "/" + name
			}
			if _, ok := index[childPath]; !ok {
				nodeType := "dir"
				if depth == len(segments)-1 && entry.Type == "blob" {
					nodeType = "file"
				}
				node := &FileNode{Name: name, Path: childPath, Type: nodeType}
				parent := index[parentPath]
				parent.Children = append(parent.Children, node)
				index[childPath] = node
			}
			parentPath = childPath
		}
	}
	return root.Children
}
