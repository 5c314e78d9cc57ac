// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package evaluate scores free-text answers against a question's key points.
//
// The model's verdict is not trusted wholesale: the score is clamped to
// [0,100] server-side, correctness is recomputed from the clamped score, and
// the hint flag is OR'd with a low-score check. Only the qualitative fields
// (feedback, missed points, strengths) pass through as-is.
package evaluate

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
	// correctThreshold is the clamped score at or above which an answer
	// counts as correct.
	correctThreshold = 70

	// hintThreshold is the clamped score below which a hint is suggested
	// regardless of the model's needsHint verdict.
	hintThreshold = 50

	// contextFileBudget truncates each related file in the prompt.
	contextFileBudget = 3000

	// maxRelatedFiles bounds how many related files reach the prompt.
	maxRelatedFiles = 3
)

type evaluationResponse struct {
	Score        int      `json:"score"`
	IsCorrect    bool     `json:"isCorrect"`
	Feedback     string   `json:"feedback"`
	MissedPoints []string `json:"missedPoints"`
	Strengths    []string `json:"strengths"`
	NeedsHint    bool     `json:"needsHint"`
}

// Evaluator scores answers.
type Evaluator struct {
	client llm.LLMClient
	logger *slog.Logger
}

// NewEvaluator creates an evaluator over the given completion client.
func NewEvaluator(client llm.LLMClient, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{client: client, logger: logger}
}

// clampScore forces a raw model score into [0,100].
func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func buildPrompt(question *datatypes.Question, answer string,
	analysis *datatypes.AnalysisCache) string {

	var sb strings.Builder
	sb.WriteString("Evaluate a candidate's answer in a technical interview.\n\n")
	sb.WriteString("Question: " + question.Text + "\n")
	sb.WriteString("Key points an ideal answer covers:\n")
	for _, point := range question.KeyPoints {
		sb.WriteString("- " + point + "\n")
	}
	sb.WriteString("\nCandidate's answer: " + answer + "\n\n")

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
		sb.WriteString("=== " + file + " ===\n" + content + "\n\n")
		count++
	}

	sb.WriteString("Score the answer 0-100 against the key points. ")
	sb.WriteString("Respond with a single JSON object:\n")
	sb.WriteString(`{"score": n, "isCorrect": bool, "feedback": "...", ` +
		`"missedPoints": [...], "strengths": [...], "needsHint": bool}`)
	return sb.String()
}

// Evaluate runs one structured completion and returns the server-corrected
// evaluation.
func (e *Evaluator) Evaluate(ctx context.Context, question *datatypes.Question,
	answer string, analysis *datatypes.AnalysisCache) (*datatypes.Evaluation, error) {

	maxTokens := 1024
	resp, err := llm.GenerateStructured[evaluationResponse](ctx, e.client,
		buildPrompt(question, answer, analysis),
		llm.GenerationParams{MaxTokens: &maxTokens},
		[]string{"score", "feedback"}, nil)
	if err != nil {
		if errors.Is(err, llm.ErrInvalidResponse) {
			return nil, fmt.Errorf("evaluation completion: %w: %w", datatypes.ErrValidation, err)
		}
		return nil, fmt.Errorf("evaluation completion: %w: %w", datatypes.ErrUpstream, err)
	}

	score := clampScore(resp.Score)
	if score != resp.Score {
		e.logger.Warn("clamped out-of-range evaluation score",
			"raw", resp.Score, "clamped", score)
	}

	return &datatypes.Evaluation{
		Score: score,
		// Recomputed from the clamped score, never trusted from the model.
		IsCorrect:    score >= correctThreshold,
		Feedback:     resp.Feedback,
		MissedPoints: resp.MissedPoints,
		Strengths:    resp.Strengths,
		NeedsHint:    resp.NeedsHint || score < hintThreshold,
	}, nil
}
