// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package hint produces progressively more revealing hints for the current
// question. Level 1 nudges toward the right area, level 2 points at the
// relevant code, level 3 spells out most of the answer without giving a
// verbatim solution.
package hint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/AleutianAI/AleutianInterview/services/interview/datatypes"
	"github.com/AleutianAI/AleutianInterview/services/llm"
)

const (
	minLevel = 1
	maxLevel = 3

	// contextFileBudget truncates each related file in the prompt.
	contextFileBudget = 2000

	// maxRelatedFiles bounds how many related files reach the prompt.
	maxRelatedFiles = 2
)

// levelGuidance tells the model how much to reveal at each level.
var levelGuidance = map[int]string{
	1: "Give a gentle nudge toward the right area of the code. Do not name specific functions or reveal any part of the answer.",
	2: "Point at the specific files and functions the candidate should look at, and say what to look for there. Do not state the answer.",
	3: "Explain most of the answer directly, walking through the mechanism, but stop short of a word-for-word model answer.",
}

type hintResponse struct {
	Hint string `json:"hint"`
}

// ClampLevel normalizes a client-supplied hint level. Non-integer inputs are
// truncated toward zero first, then forced into [1,3].
func ClampLevel(raw float64) int {
	level := int(raw)
	if level < minLevel {
		return minLevel
	}
	if level > maxLevel {
		return maxLevel
	}
	return level
}

// Generator produces hints.
type Generator struct {
	client llm.LLMClient
	logger *slog.Logger
}

// NewGenerator creates a hint generator over the given completion client.
func NewGenerator(client llm.LLMClient, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{client: client, logger: logger}
}

func buildPrompt(question *datatypes.Question, level int,
	analysis *datatypes.AnalysisCache) string {

	var sb strings.Builder
	sb.WriteString("A candidate in a technical interview is stuck and asked for a hint.\n\n")
	sb.WriteString("Question: " + question.Text + "\n")
	sb.WriteString("Key points the answer should cover:\n")
	for _, point := range question.KeyPoints {
		sb.WriteString("- " + point + "\n")
	}

	count := 0
	for _, file := range question.RelatedFiles {
		if count >= maxRelatedFiles {
			break
		}
		content, ok := analysis.FileContents[file]
		if !ok {
			continue
		}
		if len(content) > contextFileBudget {
			content = content[:contextFileBudget]
		}
		sb.WriteString("\n=== " + file + " ===\n" + content + "\n")
		count++
	}

	sb.WriteString(fmt.Sprintf("\nThis is hint %d of %d. %s\n", level, maxLevel,
		levelGuidance[level]))
	sb.WriteString(`Respond with a single JSON object: {"hint": "..."}`)
	return sb.String()
}

// Generate runs one structured completion for a hint at the given level. The
// level must already be clamped; callers go through ClampLevel.
func (g *Generator) Generate(ctx context.Context, question *datatypes.Question,
	level int, analysis *datatypes.AnalysisCache) (string, error) {

	maxTokens := 512
	resp, err := llm.GenerateStructured[hintResponse](ctx, g.client,
		buildPrompt(question, level, analysis),
		llm.GenerationParams{MaxTokens: &maxTokens},
		[]string{"hint"},
		func(h *hintResponse) error {
			if strings.TrimSpace(h.Hint) == "" {
				return errors.New("empty hint")
			}
			return nil
		})
	if err != nil {
		if errors.Is(err, llm.ErrInvalidResponse) {
			return "", fmt.Errorf("hint completion: %w: %w", datatypes.ErrValidation, err)
		}
		return "", fmt.Errorf("hint completion: %w: %w", datatypes.ErrUpstream, err)
	}
	return resp.Hint, nil
}
