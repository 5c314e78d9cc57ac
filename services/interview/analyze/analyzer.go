// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package analyze turns ingested repository contents into an AnalysisCache.
//
// A bounded sample of files goes into one structured completion: manifests
// and entry-point-like files first, then remaining source files, each
// truncated to a per-file character budget and capped by a total context
// budget. The full path-to-content map is retained in the cache regardless
// of what was sampled, so snippet extraction later works over every
// ingested file.
package analyze

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/AleutianAI/AleutianInterview/services/interview/datatypes"
	"github.com/AleutianAI/AleutianInterview/services/interview/ingest"
	"github.com/AleutianAI/AleutianInterview/services/llm"
)

const (
	// perFileBudget truncates each sampled file to this many characters.
	perFileBudget = 6000

	// totalBudget bounds the combined sampled content.
	totalBudget = 48000

	// maxSampledFiles bounds how many files reach the prompt.
	maxSampledFiles = 25
)

// manifestNames are files that describe the project and always sample first.
var manifestNames = map[string]bool{
	"package.json":     true,
	"go.mod":           true,
	"cargo.toml":       true,
	"pyproject.toml":   true,
	"setup.py":         true,
	"requirements.txt": true,
	"pom.xml":          true,
	"build.gradle":     true,
	"gemfile":          true,
	"makefile":         true,
	"dockerfile":       true,
	"readme.md":        true,
}

// entryPointNames are basenames that usually anchor program flow.
var entryPointNames = map[string]bool{
	"main.go":   true,
	"main.py":   true,
	"main.rs":   true,
	"index.js":  true,
	"index.ts":  true,
	"app.js":    true,
	"app.ts":    true,
	"app.py":    true,
	"server.js": true,
	"server.ts": true,
	"cli.py":    true,
}

// analysisResponse is the schema the completion must satisfy.
type analysisResponse struct {
	MainEntryPoints []string            `json:"mainEntryPoints"`
	Dependencies    map[string][]string `json:"dependencies"`
	Patterns        []string            `json:"patterns"`
	LibrariesUsed   []string            `json:"librariesUsed"`
	Summary         string              `json:"summary"`
}

// Analyzer produces the structured repository summary.
type Analyzer struct {
	client llm.LLMClient
	logger *slog.Logger
}

// NewAnalyzer creates an analyzer over the given completion client.
func NewAnalyzer(client llm.LLMClient, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{client: client, logger: logger}
}

// isPriority reports whether the file should sample before ordinary sources.
func isPriority(filePath string) bool {
	base := strings.ToLower(path.Base(filePath))
	return manifestNames[base] || entryPointNames[base]
}

// budget tracks the remaining sampling allowance. It is threaded by value
// through the worklist loop so the early-exit condition is a plain loop
// predicate rather than mutable closure state.
type budget struct {
	chars int
	files int
}

func (b budget) exhausted() bool {
	return b.chars <= 0 || b.files <= 0
}

// sampled is one file included in the prompt.
type sampled struct {
	path    string
	content string
}

// sampleFiles selects and truncates files under the budget: priority files
// first, then the rest in listing order.
func sampleFiles(files []ingest.IngestedFile) []sampled {
	worklist := make([]ingest.IngestedFile, 0, len(files))
	for _, f := range files {
		if isPriority(f.Path) {
			worklist = append(worklist, f)
		}
	}
	for _, f := range files {
		if !isPriority(f.Path) {
			worklist = append(worklist, f)
		}
	}

	b := budget{chars: totalBudget, files: maxSampledFiles}
	var out []sampled
	for _, f := range worklist {
		if b.exhausted() {
			break
		}
		content := f.Content
		if len(content) > perFileBudget {
			content = content[:perFileBudget]
		}
		if len(content) > b.chars {
			content = content[:b.chars]
		}
		out = append(out, sampled{path: f.Path, content: content})
		b = budget{chars: b.chars - len(content), files: b.files - 1}
	}
	return out
}

// buildPrompt renders the sampled files into the completion request.
func buildPrompt(repo string, files []sampled) string {
	var sb strings.Builder
	sb.WriteString("Analyze the following repository and respond with a single JSON object ")
	sb.WriteString("with exactly these fields:\n")
	sb.WriteString(`{"mainEntryPoints": [paths], "dependencies": {path: [paths it imports]}, `)
	sb.WriteString(`"patterns": [architectural patterns], "librariesUsed": [libraries], `)
	sb.WriteString(`"summary": "2-3 paragraph overview"}` + "\n\n")
	sb.WriteString("Repository: " + repo + "\n\n")
	for _, f := range files {
		sb.WriteString("=== " + f.path + " ===\n")
		sb.WriteString(f.content)
		sb.WriteString("\n\n")
	}
	sb.WriteString("Respond with only the JSON object.")
	return sb.String()
}

// Analyze runs one structured completion over the sampled files and returns
// the cache. A malformed or incomplete completion is a validation error; the
// caller decides what happens to session status.
func (a *Analyzer) Analyze(ctx context.Context, repo string,
	contents *ingest.RepoContents) (*datatypes.AnalysisCache, error) {

	if len(contents.Files) == 0 {
		return nil, fmt.Errorf("no ingestable files in %s: %w", repo, datatypes.ErrValidation)
	}

	files := sampleFiles(contents.Files)
	a.logger.Info("analyzing repository", "repo", repo,
		"ingested_files", len(contents.Files), "sampled_files", len(files))

	maxTokens := 4096
	resp, err := llm.GenerateStructured[analysisResponse](ctx, a.client,
		buildPrompt(repo, files),
		llm.GenerationParams{MaxTokens: &maxTokens},
		[]string{"mainEntryPoints", "dependencies", "patterns", "librariesUsed", "summary"},
		func(r *analysisResponse) error {
			if strings.TrimSpace(r.Summary) == "" {
				return fmt.Errorf("summary is empty")
			}
			return nil
		})
	if err != nil {
		if errors.Is(err, llm.ErrInvalidResponse) {
			return nil, fmt.Errorf("analysis completion: %w: %w", datatypes.ErrValidation, err)
		}
		return nil, fmt.Errorf("analysis completion: %w: %w", datatypes.ErrUpstream, err)
	}

	fileContents := make(map[string]string, len(contents.Files))
	for _, f := range contents.Files {
		fileContents[f.Path] = f.Content
	}

	return &datatypes.AnalysisCache{
		EntryPoints:  resp.MainEntryPoints,
		Dependencies: resp.Dependencies,
		Patterns:     resp.Patterns,
		Libraries:    resp.LibrariesUsed,
		Summary:      resp.Summary,
		FileContents: fileContents,
		AnalyzedAt:   time.Now().UTC(),
	}, nil
}
