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

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Status Transition Tests
// =============================================================================

func TestSessionStatus_DocumentedEdges(t *testing.T) {
	assert.True(t, StatusInitializing.CanTransitionTo(StatusSelectingDirs))
	assert.True(t, StatusSelectingDirs.CanTransitionTo(StatusAnalyzing))
	assert.True(t, StatusAnalyzing.CanTransitionTo(StatusActive))
	assert.True(t, StatusAnalyzing.CanTransitionTo(StatusAnalyzing), "analysis retry self-edge")
	assert.True(t, StatusActive.CanTransitionTo(StatusActive), "question cycle self-edge")
}

func TestSessionStatus_EndFromAnyNonTerminal(t *testing.T) {
	for _, s := range []SessionStatus{
		StatusInitializing, StatusSelectingDirs, StatusAnalyzing, StatusActive,
	} {
		assert.True(t, s.CanTransitionTo(StatusEnded), "end from %s", s)
	}
}

func TestSessionStatus_NoBackwardEdges(t *testing.T) {
	assert.False(t, StatusAnalyzing.CanTransitionTo(StatusSelectingDirs),
		"analysis failure must not roll status back")
	assert.False(t, StatusActive.CanTransitionTo(StatusAnalyzing))
	assert.False(t, StatusActive.CanTransitionTo(StatusSelectingDirs))
	assert.False(t, StatusSelectingDirs.CanTransitionTo(StatusInitializing))
}

func TestSessionStatus_EndedIsTerminal(t *testing.T) {
	for _, s := range []SessionStatus{
		StatusInitializing, StatusSelectingDirs, StatusAnalyzing, StatusActive, StatusEnded,
	} {
		assert.False(t, StatusEnded.CanTransitionTo(s), "ended -> %s must be rejected", s)
	}
}

func TestSessionStatus_Valid(t *testing.T) {
	assert.True(t, StatusActive.Valid())
	assert.False(t, SessionStatus("paused").Valid())
}

// =============================================================================
// Serialization Tests
// =============================================================================

func TestSession_RoundTrip(t *testing.T) {
	score := 85
	sess := Session{
		ID:                  "sess-1",
		RepoURL:             "octocat/hello-world",
		SelectedDirectories: []string{"src"},
		Messages: []Message{
			{
				ID:        "msg-1",
				Role:      RoleAssistant,
				Content:   "Welcome to your interview.",
				Timestamp: time.Now().UTC().Truncate(time.Second),
				Metadata:  &MessageMetadata{Subtype: SubtypeWelcome},
			},
			{
				ID:        "msg-2",
				Role:      RoleAssistant,
				Content:   "Nice work.",
				Timestamp: time.Now().UTC().Truncate(time.Second),
				Metadata: &MessageMetadata{
					Subtype:    SubtypeEvaluation,
					QuestionID: "q-1",
					Score:      &score,
				},
			},
		},
		QuestionsAsked: []string{"q-1"},
		Status:         StatusActive,
	}

	raw, err := json.Marshal(sess)
	require.NoError(t, err)

	var decoded Session
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, sess.ID, decoded.ID)
	assert.Equal(t, sess.Status, decoded.Status)
	assert.Len(t, decoded.Messages, 2)
	require.NotNil(t, decoded.Messages[1].Metadata)
	require.NotNil(t, decoded.Messages[1].Metadata.Score)
	assert.Equal(t, 85, *decoded.Messages[1].Metadata.Score)
	assert.Nil(t, decoded.CurrentQuestion)
}

func TestValidAnnotationType(t *testing.T) {
	assert.True(t, ValidAnnotationType(AnnotationKeyPoint))
	assert.False(t, ValidAnnotationType(AnnotationType("sarcasm")))
}
