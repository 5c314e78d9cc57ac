// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package question derives interview questions from a repository analysis.
//
// The model proposes a question plus snippet descriptors; snippets are then
// extracted literally from the cached file contents. Descriptors pointing at
// files or line ranges we don't have are dropped, never synthesized. Asked
// question ids are carried in the prompt to discourage repeats, but nothing
// enforces non-repetition.
package question

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianInterview/services/interview/datatypes"
	"github.com/AleutianAI/AleutianInterview/services/llm"
)

const (
	// contextFileBudget truncates each context file in the prompt.
	contextFileBudget = 4000

	// maxContextFiles bounds how many files reach the prompt.
	maxContextFiles = 10

	// fallbackLines is the snippet length used when no descriptor survives.
	fallbackLines = 30

	// minMissedForFollowUp gates follow-up generation: the prior evaluation
	// must have missed at least this many key points.
	minMissedForFollowUp = 2
)

// languageByExt maps file extensions to snippet language tags.
var languageByExt = map[string]string{
	".go":   "go",
	".py":   "python",
	".js":   "javascript",
	".jsx":  "javascript",
	".ts":   "typescript",
	".tsx":  "typescript",
	".rs":   "rust",
	".java": "java",
	".rb":   "ruby",
	".c":    "c",
	".h":    "c",
	".cpp":  "cpp",
	".cs":   "csharp",
	".php":  "php",
	".sh":   "bash",
	".sql":  "sql",
	".yaml": "yaml",
	".yml":  "yaml",
	".json": "json",
	".md":   "markdown",
	".html": "html",
	".css":  "css",
}

// snippetDescriptor is the model's reference to a code range.
type snippetDescriptor struct {
	File      string `json:"file"`
	StartLine int    `json:"startLine"`
	EndLine   int    `json:"endLine"`
	Relevance string `json:"relevance"`
}

// questionResponse is the schema the completion must satisfy.
type questionResponse struct {
	Text         string              `json:"text"`
	RelatedFiles []string            `json:"relatedFiles"`
	KeyPoints    []string            `json:"keyPoints"`
	CodeSnippets []snippetDescriptor `json:"codeSnippets"`
}

// Generator produces interview questions.
type Generator struct {
	client llm.LLMClient
	logger *slog.Logger
}

// NewGenerator creates a question generator over the given completion client.
func NewGenerator(client llm.LLMClient, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{client: client, logger: logger}
}

// languageFor returns the language tag for a path, defaulting to "text".
func languageFor(filePath string) string {
	if lang, ok := languageByExt[strings.ToLower(path.Ext(filePath))]; ok {
		return lang
	}
	return "text"
}

// extractSnippet cuts the literal 1-based inclusive line range out of the
// cached content. Returns false when the file is missing or the range does
// not fit the file.
func extractSnippet(analysis *datatypes.AnalysisCache, desc snippetDescriptor) (datatypes.CodeSnippet, bool) {
	content, ok := analysis.FileContents[desc.File]
	if !ok {
		return datatypes.CodeSnippet{}, false
	}
	lines := strings.Split(content, "\n")
	if desc.StartLine < 1 || desc.EndLine < desc.StartLine || desc.EndLine > len(lines) {
		return datatypes.CodeSnippet{}, false
	}
	return datatypes.CodeSnippet{
		ID:        uuid.NewString(),
		FilePath:  desc.File,
		StartLine: desc.StartLine,
		EndLine:   desc.EndLine,
		Code:      strings.Join(lines[desc.StartLine-1:desc.EndLine], "\n"),
		Language:  languageFor(desc.File),
	}, true
}

// fallbackSnippet returns the first fallbackLines lines of the first related
// file that has cached content, or false when none does.
func fallbackSnippet(analysis *datatypes.AnalysisCache, relatedFiles []string) (datatypes.CodeSnippet, bool) {
	for _, file := range relatedFiles {
		content, ok := analysis.FileContents[file]
		if !ok {
			continue
		}
		lines := strings.Split(content, "\n")
		end := fallbackLines
		if end > len(lines) {
			end = len(lines)
		}
		return datatypes.CodeSnippet{
			ID:        uuid.NewString(),
			FilePath:  file,
			StartLine: 1,
			EndLine:   end,
			Code:      strings.Join(lines[:end], "\n"),
			Language:  languageFor(file),
		}, true
	}
	return datatypes.CodeSnippet{}, false
}

// contextBlock renders a bounded sample of cached files, optionally filtered
// to a focus area path prefix.
func contextBlock(analysis *datatypes.AnalysisCache, focus string) string {
	var sb strings.Builder
	count := 0
	for filePath, content := range analysis.FileContents {
		if count >= maxContextFiles {
			break
		}
		if focus != "" && !strings.HasPrefix(filePath, focus) {
			continue
		}
		if len(content) > contextFileBudget {
			content = content[:contextFileBudget]
		}
		sb.WriteString("=== " + filePath + " ===\n" + content + "\n\n")
		count++
	}
	return sb.String()
}

const questionSchema = `{"text": "the question", "relatedFiles": [paths], ` +
	`"keyPoints": [points an ideal answer covers], ` +
	`"codeSnippets": [{"file": path, "startLine": n, "endLine": n, "relevance": "why"}]}`

// complete issues the structured completion and assembles the Question,
// extracting literal snippets and falling back when none survive.
func (g *Generator) complete(ctx context.Context, prompt string,
	analysis *datatypes.AnalysisCache) (*datatypes.Question, error) {

	maxTokens := 2048
	resp, err := llm.GenerateStructured[questionResponse](ctx, g.client, prompt,
		llm.GenerationParams{MaxTokens: &maxTokens},
		[]string{"text", "relatedFiles", "keyPoints", "codeSnippets"},
		func(r *questionResponse) error {
			if strings.TrimSpace(r.Text) == "" {
				return fmt.Errorf("question text is empty")
			}
			if len(r.KeyPoints) == 0 {
				return fmt.Errorf("no key points")
			}
			return nil
		})
	if err != nil {
		if errors.Is(err, llm.ErrInvalidResponse) {
			return nil, fmt.Errorf("question completion: %w: %w", datatypes.ErrValidation, err)
		}
		return nil, fmt.Errorf("question completion: %w: %w", datatypes.ErrUpstream, err)
	}

	q := &datatypes.Question{
		ID:           uuid.NewString(),
		Text:         resp.Text,
		RelatedFiles: resp.RelatedFiles,
		KeyPoints:    resp.KeyPoints,
		GeneratedAt:  time.Now().UTC(),
	}
	for _, desc := range resp.CodeSnippets {
		snippet, ok := extractSnippet(analysis, desc)
		if !ok {
			g.logger.Warn("dropping snippet descriptor",
				"file", desc.File, "start", desc.StartLine, "end", desc.EndLine)
			continue
		}
		q.Snippets = append(q.Snippets, snippet)
	}
	if len(q.Snippets) == 0 {
		if snippet, ok := fallbackSnippet(analysis, resp.RelatedFiles); ok {
			q.Snippets = append(q.Snippets, snippet)
		}
	}
	return q, nil
}

// Generate derives one new question from the analysis. askedIDs lists
// already-asked question ids; focus optionally narrows the context to a path
// prefix.
func (g *Generator) Generate(ctx context.Context, analysis *datatypes.AnalysisCache,
	askedIDs []string, focus string) (*datatypes.Question, error) {

	var sb strings.Builder
	sb.WriteString("You are interviewing a candidate about this codebase.\n")
	sb.WriteString("Summary: " + analysis.Summary + "\n")
	if len(analysis.Patterns) > 0 {
		sb.WriteString("Patterns: " + strings.Join(analysis.Patterns, ", ") + "\n")
	}
	if len(askedIDs) > 0 {
		sb.WriteString(fmt.Sprintf(
			"You have already asked %d question(s) (ids: %s). Ask about something different.\n",
			len(askedIDs), strings.Join(askedIDs, ", ")))
	}
	sb.WriteString("\n" + contextBlock(analysis, focus))
	sb.WriteString("\nGenerate one probing technical question about this code. ")
	sb.WriteString("Respond with a single JSON object:\n" + questionSchema)

	return g.complete(ctx, sb.String(), analysis)
}

// FollowUp generates a deeper probe into what the candidate missed on the
// prior question. It returns (nil, nil) when the evaluation missed fewer
// than two points; a strong answer is not worth drilling into.
func (g *Generator) FollowUp(ctx context.Context, analysis *datatypes.AnalysisCache,
	prior *datatypes.Question, answer string,
	eval *datatypes.Evaluation) (*datatypes.Question, error) {

	if len(eval.MissedPoints) < minMissedForFollowUp {
		return nil, nil
	}

	var sb strings.Builder
	sb.WriteString("You are interviewing a candidate about this codebase.\n")
	sb.WriteString("Previous question: " + prior.Text + "\n")
	sb.WriteString("Their answer: " + answer + "\n")
	sb.WriteString("They missed these points: " + strings.Join(eval.MissedPoints, "; ") + "\n")
	sb.WriteString("\n" + contextBlock(analysis, ""))
	sb.WriteString("\nGenerate one follow-up question that probes the missed points more deeply. ")
	sb.WriteString("Respond with a single JSON object:\n" + questionSchema)

	return g.complete(ctx, sb.String(), analysis)
}
