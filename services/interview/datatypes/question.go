// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import "time"

// AnnotationType classifies a line-anchored note on a snippet.
type AnnotationType string

const (
	AnnotationExplanation AnnotationType = "explanation"
	AnnotationKeyPoint    AnnotationType = "key_point"
	AnnotationConnection  AnnotationType = "connection"
	AnnotationWarning     AnnotationType = "warning"
)

// ValidAnnotationType reports whether t is one of the four known types.
func ValidAnnotationType(t AnnotationType) bool {
	switch t {
	case AnnotationExplanation, AnnotationKeyPoint, AnnotationConnection, AnnotationWarning:
		return true
	}
	return false
}

// Annotation is an explanatory note anchored to a single line of a snippet.
// Line is absolute (matches the source file) and must lie within the owning
// snippet's [StartLine, EndLine] range.
type Annotation struct {
	Line int            `json:"line"`
	Text string         `json:"text"`
	Type AnnotationType `json:"type"`
}

// CodeSnippet is a literal, line-bounded excerpt of a source file. Line
// numbers are 1-based and inclusive, matching the source file. Code is always
// extracted from cached file content, never fabricated.
type CodeSnippet struct {
	ID          string       `json:"snippet_id"`
	FilePath    string       `json:"file_path"`
	StartLine   int          `json:"start_line"`
	EndLine     int          `json:"end_line"`
	Code        string       `json:"code"`
	Language    string       `json:"language"`
	Annotations []Annotation `json:"annotations,omitempty"`
}

// Question is one probe posed to the user. Immutable once generated; it is
// the session's current question until answered or cleared.
type Question struct {
	ID           string        `json:"question_id"`
	Text         string        `json:"text"`
	RelatedFiles []string      `json:"related_files"`
	KeyPoints    []string      `json:"key_points"`
	Snippets     []CodeSnippet `json:"code_snippets"`
	GeneratedAt  time.Time     `json:"generated_at"`
}

// Evaluation scores a free-text answer against a question's key points.
// Score is server-clamped to [0,100]; IsCorrect is recomputed from the
// clamped score rather than trusted from the model.
type Evaluation struct {
	Score        int      `json:"score"`
	IsCorrect    bool     `json:"is_correct"`
	Feedback     string   `json:"feedback"`
	MissedPoints []string `json:"missed_points"`
	Strengths    []string `json:"strengths"`
	NeedsHint    bool     `json:"needs_hint"`
}
