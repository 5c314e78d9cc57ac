// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes defines the entities shared by the interview service:
// sessions, messages, questions, snippets, evaluations, and the analysis
// cache. It also owns the session status machine and the error taxonomy
// every other interview package reports against.
package datatypes

import (
	"errors"
	"time"
)

// =============================================================================
// Error Taxonomy
// =============================================================================

// Sentinel errors for the interview pipeline. Every boundary operation maps
// one of these to an HTTP status; components wrap them with fmt.Errorf and
// callers test with errors.Is.
var (
	// ErrNotFound indicates a session, repository, or question that does not
	// exist or has expired from the store. Callers cannot distinguish an
	// expired session from one that never existed.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates a malformed upstream response: missing required
	// fields, unparseable JSON, or out-of-range snippet bounds.
	ErrValidation = errors.New("validation failed")

	// ErrUpstream indicates a hosting-API or completion-service failure,
	// including rate limiting.
	ErrUpstream = errors.New("upstream failure")

	// ErrStateConflict indicates an operation invoked against an incompatible
	// session status, or a question id that does not match the current one.
	ErrStateConflict = errors.New("state conflict")
)

// =============================================================================
// Session Status
// =============================================================================

// SessionStatus enumerates the lifecycle states of an interview session.
type SessionStatus string

const (
	StatusInitializing  SessionStatus = "initializing"
	StatusSelectingDirs SessionStatus = "selecting_dirs"
	StatusAnalyzing     SessionStatus = "analyzing"
	StatusActive        SessionStatus = "active"
	StatusEnded         SessionStatus = "ended"
)

// statusTransitions is the explicit edge table for the session state machine.
// StatusEnded is terminal and is reachable from every non-terminal state via
// the explicit end operation, which is special-cased in CanTransitionTo.
// StatusAnalyzing carries a self-edge so a failed analysis can be retried
// without moving the session backward.
var statusTransitions = map[SessionStatus][]SessionStatus{
	StatusInitializing:  {StatusSelectingDirs},
	StatusSelectingDirs: {StatusAnalyzing},
	StatusAnalyzing:     {StatusAnalyzing, StatusActive},
	StatusActive:        {StatusActive},
	StatusEnded:         {},
}

// Valid reports whether s is one of the known statuses.
func (s SessionStatus) Valid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// CanTransitionTo reports whether the edge s -> next exists in the state
// machine. Ending is allowed from any non-terminal state.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	if s == StatusEnded {
		return false
	}
	if next == StatusEnded {
		return true
	}
	for _, allowed := range statusTransitions[s] {
		if next == allowed {
			return true
		}
	}
	return false
}

// =============================================================================
// Messages
// =============================================================================

// MessageRole identifies the author of a message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// Message subtypes carried in MessageMetadata.Subtype so the UI can render
// pipeline stages distinctly.
const (
	SubtypeWelcome    = "welcome"
	SubtypeAnalysis   = "analysis"
	SubtypeQuestion   = "question"
	SubtypeAnswer     = "answer"
	SubtypeEvaluation = "evaluation"
	SubtypeHint       = "hint"
	SubtypeClosing    = "closing"
)

// MessageMetadata carries optional structured context for a message.
type MessageMetadata struct {
	Subtype    string        `json:"subtype,omitempty"`
	QuestionID string        `json:"question_id,omitempty"`
	Score      *int          `json:"score,omitempty"`
	HintLevel  int           `json:"hint_level,omitempty"`
	Snippets   []CodeSnippet `json:"snippets,omitempty"`
}

// Message is one entry in a session's transcript. The transcript is
// append-only: messages are never edited or removed.
type Message struct {
	ID        string           `json:"message_id"`
	Role      MessageRole      `json:"role"`
	Content   string           `json:"content"`
	Timestamp time.Time        `json:"timestamp"`
	Metadata  *MessageMetadata `json:"metadata,omitempty"`
}

// =============================================================================
// Session
// =============================================================================

// AnsweredQuestion records the most recently answered question together with
// the submitted answer and its evaluation. NextQuestion consumes it to decide
// whether to generate a follow-up probe instead of a fresh question.
type AnsweredQuestion struct {
	Question   Question   `json:"question"`
	Answer     string     `json:"answer"`
	Evaluation Evaluation `json:"evaluation"`
}

// Session is the unit of interview state for one repository interaction.
//
// Invariants:
//   - CurrentQuestion is non-nil only while Status is StatusActive and a
//     question has been issued but not yet answered or cleared.
//   - QuestionsAsked only grows.
//   - Messages is append-only.
//
// Sessions are owned by the session manager; every pipeline stage mutates a
// session through it. Concurrent writers to one session id race with
// last-writer-wins semantics.
type Session struct {
	ID                  string         `json:"session_id"`
	RepoURL             string         `json:"repo_url"`
	SelectedDirectories []string       `json:"selected_directories"`
	Messages            []Message      `json:"messages"`
	CurrentQuestion     *Question      `json:"current_question,omitempty"`
	QuestionsAsked      []string       `json:"questions_asked"`
	Analysis            *AnalysisCache `json:"analysis,omitempty"`
	LastAnswer          *AnsweredQuestion `json:"last_answer,omitempty"`
	HintsUsed           int            `json:"hints_used"`
	Status              SessionStatus  `json:"status"`
	CreatedAt           time.Time      `json:"created_at"`
	LastActivity        time.Time      `json:"last_activity"`
}
