// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package analyze

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianInterview/services/interview/datatypes"
	"github.com/AleutianAI/AleutianInterview/services/interview/ingest"
	"github.com/AleutianAI/AleutianInterview/services/llm"
)

const goodAnalysis = `{
	"mainEntryPoints": ["main.go"],
	"dependencies": {"main.go": ["internal/server.go"]},
	"patterns": ["layered architecture"],
	"librariesUsed": ["gin"],
	"summary": "A small HTTP service with a layered architecture."
}`

func contents(files ...ingest.IngestedFile) *ingest.RepoContents {
	return &ingest.RepoContents{Files: files}
}

func TestAnalyze_HappyPath(t *testing.T) {
	client := llm.NewMockClient(goodAnalysis)
	a := NewAnalyzer(client, nil)

	cache, err := a.Analyze(context.Background(), "octocat/hello-world", contents(
		ingest.IngestedFile{Path: "main.go", Content: "package main"},
		ingest.IngestedFile{Path: "internal/server.go", Content: "package internal"},
		ingest.IngestedFile{Path: "README.md", Content: "# svc"},
	))
	require.NoError(t, err)

	assert.Equal(t, []string{"main.go"}, cache.EntryPoints)
	assert.Equal(t, "A small HTTP service with a layered architecture.", cache.Summary)
	assert.Equal(t, []string{"gin"}, cache.Libraries)
	assert.Len(t, cache.FileContents, 3,
		"cache must retain every ingested file, not just the sampled ones")
	assert.False(t, cache.AnalyzedAt.IsZero())
}

func TestAnalyze_MalformedResponseIsValidationError(t *testing.T) {
	client := llm.NewMockClient(`{"summary": "missing the other fields"}`)
	a := NewAnalyzer(client, nil)

	_, err := a.Analyze(context.Background(), "octocat/hello-world", contents(
		ingest.IngestedFile{Path: "main.go", Content: "package main"},
	))
	assert.ErrorIs(t, err, datatypes.ErrValidation)
}

func TestAnalyze_TransportFailureIsUpstream(t *testing.T) {
	client := &llm.MockClient{Err: errors.New("connection refused")}
	a := NewAnalyzer(client, nil)

	_, err := a.Analyze(context.Background(), "octocat/hello-world", contents(
		ingest.IngestedFile{Path: "main.go", Content: "package main"},
	))
	assert.ErrorIs(t, err, datatypes.ErrUpstream)
	assert.NotErrorIs(t, err, datatypes.ErrValidation)
}

func TestAnalyze_EmptyRepoRejected(t *testing.T) {
	a := NewAnalyzer(llm.NewMockClient(goodAnalysis), nil)

	_, err := a.Analyze(context.Background(), "octocat/empty", contents())
	assert.ErrorIs(t, err, datatypes.ErrValidation)
}

func TestSampleFiles_PriorityFirstAndBudgeted(t *testing.T) {
	files := []ingest.IngestedFile{
		{Path: "zz/util.go", Content: strings.Repeat("a", 100)},
		{Path: "package.json", Content: `{"name": "x"}`},
		{Path: "src/index.ts", Content: "export {}"},
	}

	out := sampleFiles(files)
	require.Len(t, out, 3)
	assert.Equal(t, "package.json", out[0].path, "manifests sample first")
	assert.Equal(t, "src/index.ts", out[1].path, "entry points before ordinary sources")
	assert.Equal(t, "zz/util.go", out[2].path)
}

func TestSampleFiles_PerFileTruncation(t *testing.T) {
	files := []ingest.IngestedFile{
		{Path: "huge.go", Content: strings.Repeat("x", perFileBudget*2)},
	}

	out := sampleFiles(files)
	require.Len(t, out, 1)
	assert.Len(t, out[0].content, perFileBudget)
}

func TestSampleFiles_FileCountCap(t *testing.T) {
	var files []ingest.IngestedFile
	for i := 0; i < maxSampledFiles*2; i++ {
		files = append(files, ingest.IngestedFile{
			Path:    strings.Repeat("f", i%5+1) + ".go",
			Content: "package f",
		})
	}

	out := sampleFiles(files)
	assert.LessOrEqual(t, len(out), maxSampledFiles)
}

func TestSampleFiles_TotalBudgetStopsEarly(t *testing.T) {
	var files []ingest.IngestedFile
	for i := 0; i < 20; i++ {
		files = append(files, ingest.IngestedFile{
			Path:    "f.go",
			Content: strings.Repeat("x", perFileBudget),
		})
	}

	out := sampleFiles(files)
	total := 0
	for _, s := range out {
		total += len(s.content)
	}
	assert.LessOrEqual(t, total, totalBudget)
	assert.Less(t, len(out), 20, "budget must stop sampling before the list is drained")
}

func TestBuildPrompt_IncludesSampledFiles(t *testing.T) {
	prompt := buildPrompt("octocat/hello-world", []sampled{
		{path: "main.go", content: "package main"},
	})
	assert.Contains(t, prompt, "=== main.go ===")
	assert.Contains(t, prompt, "package main")
	assert.Contains(t, prompt, "octocat/hello-world")
}
