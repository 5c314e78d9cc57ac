// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package annotate adds line-anchored explanatory notes to code snippets.
//
// Annotations are cosmetic, so this is the one pipeline stage that degrades
// instead of failing: a bad completion returns the snippet unannotated and
// bumps the degraded hook. Lines outside the snippet's range are discarded
// as a defense against hallucinated references.
package annotate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/AleutianAI/AleutianInterview/services/interview/datatypes"
	"github.com/AleutianAI/AleutianInterview/services/llm"
)

const (
	minAnnotations = 3
	maxAnnotations = 6
)

type annotationItem struct {
	Line int    `json:"line"`
	Text string `json:"text"`
	Type string `json:"type"`
}

type annotationResponse struct {
	Annotations []annotationItem `json:"annotations"`
}

// Annotator annotates snippets in the context of the active question.
type Annotator struct {
	client llm.LLMClient
	logger *slog.Logger

	// OnDegraded, if set, is invoked whenever an annotation call fails and
	// the snippet is returned unannotated. Wired to a metric in main.
	OnDegraded func()
}

// NewAnnotator creates an annotator over the given completion client.
func NewAnnotator(client llm.LLMClient, logger *slog.Logger) *Annotator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Annotator{client: client, logger: logger}
}

// numberedCode renders the snippet with absolute line numbers so the model
// anchors its notes against the source file, not the excerpt.
func numberedCode(snippet datatypes.CodeSnippet) string {
	lines := strings.Split(snippet.Code, "\n")
	var sb strings.Builder
	for offset, line := range lines {
		sb.WriteString(fmt.Sprintf("%d: %s\n", snippet.StartLine+offset, line))
	}
	return sb.String()
}

func buildPrompt(snippet datatypes.CodeSnippet, question *datatypes.Question) string {
	var sb strings.Builder
	sb.WriteString("The candidate is answering this interview question:\n")
	sb.WriteString(question.Text + "\n\n")
	sb.WriteString(fmt.Sprintf("Annotate this excerpt of %s (lines %d-%d):\n\n",
		snippet.FilePath, snippet.StartLine, snippet.EndLine))
	sb.WriteString(numberedCode(snippet))
	sb.WriteString(fmt.Sprintf("\nProvide %d-%d annotations tied to specific lines. ",
		minAnnotations, maxAnnotations))
	sb.WriteString(`Each type is one of "explanation", "key_point", "connection", "warning". `)
	sb.WriteString("Respond with a single JSON object:\n")
	sb.WriteString(`{"annotations": [{"line": n, "text": "note", "type": "explanation"}]}`)
	return sb.String()
}

// Annotate returns the snippet with 3-6 line-anchored annotations. Any
// annotation outside [StartLine, EndLine] is discarded; an unknown type is
// coerced to explanation. A failed completion degrades to returning the
// snippet unchanged rather than failing the caller.
func (a *Annotator) Annotate(ctx context.Context, snippet datatypes.CodeSnippet,
	question *datatypes.Question) datatypes.CodeSnippet {

	maxTokens := 1024
	resp, err := llm.GenerateStructured[annotationResponse](ctx, a.client,
		buildPrompt(snippet, question),
		llm.GenerationParams{MaxTokens: &maxTokens},
		[]string{"annotations"}, nil)
	if err != nil {
		a.logger.Warn("annotation degraded, returning snippet unannotated",
			"file", snippet.FilePath, "error", err)
		if a.OnDegraded != nil {
			a.OnDegraded()
		}
		return snippet
	}

	for _, item := range resp.Annotations {
		if item.Line < snippet.StartLine || item.Line > snippet.EndLine {
			a.logger.Warn("discarding out-of-range annotation",
				"file", snippet.FilePath, "line", item.Line,
				"start", snippet.StartLine, "end", snippet.EndLine)
			continue
		}
		annType := datatypes.AnnotationType(item.Type)
		if !datatypes.ValidAnnotationType(annType) {
			annType = datatypes.AnnotationExplanation
		}
		snippet.Annotations = append(snippet.Annotations, datatypes.Annotation{
			Line: item.Line,
			Text: item.Text,
			Type: annType,
		})
	}
	return snippet
}
