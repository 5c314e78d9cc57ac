// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package hint

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianInterview/services/interview/datatypes"
	"github.com/AleutianAI/AleutianInterview/services/llm"
)

func TestClampLevel(t *testing.T) {
	cases := []struct {
		raw  float64
		want int
	}{
		{1, 1},
		{2, 2},
		{3, 3},
		{0, 1},
		{-5, 1},
		{4, 3},
		{99, 3},
		{2.7, 2},  // truncated, not rounded
		{1.2, 1},
		{0.9, 1},
		{3.9, 3},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ClampLevel(tc.raw), "raw %v", tc.raw)
	}
}

func testQuestion() *datatypes.Question {
	return &datatypes.Question{
		ID:           "q-1",
		Text:         "Why does the cache use a write-through strategy?",
		RelatedFiles: []string{"internal/cache/cache.go"},
		KeyPoints:    []string{"consistency across restarts", "read path stays hot"},
	}
}

func testAnalysis() *datatypes.AnalysisCache {
	return &datatypes.AnalysisCache{
		FileContents: map[string]string{
			"internal/cache/cache.go": "func (c *Cache) Set(k, v string) { c.store(k, v); c.persist(k, v) }",
		},
	}
}

func TestGenerate_HappyPath(t *testing.T) {
	mock := &llm.MockClient{Responses: []string{
		`{"hint": "Look at what happens on the write path after the in-memory store."}`,
	}}
	gen := NewGenerator(mock, nil)

	hint, err := gen.Generate(context.Background(), testQuestion(), 1, testAnalysis())
	require.NoError(t, err)
	assert.Contains(t, hint, "write path")
}

func TestGenerate_LevelGuidanceInPrompt(t *testing.T) {
	for level := 1; level <= 3; level++ {
		mock := &llm.MockClient{Responses: []string{`{"hint": "h"}`}}
		gen := NewGenerator(mock, nil)

		_, err := gen.Generate(context.Background(), testQuestion(), level, testAnalysis())
		require.NoError(t, err)

		require.Len(t, mock.Prompts, 1)
		assert.Contains(t, mock.Prompts[0], levelGuidance[level], "level %d", level)
	}
}

func TestGenerate_PromptIncludesQuestionAndCode(t *testing.T) {
	mock := &llm.MockClient{Responses: []string{`{"hint": "h"}`}}
	gen := NewGenerator(mock, nil)

	_, err := gen.Generate(context.Background(), testQuestion(), 2, testAnalysis())
	require.NoError(t, err)

	prompt := mock.Prompts[0]
	assert.Contains(t, prompt, "write-through strategy")
	assert.Contains(t, prompt, "internal/cache/cache.go")
	assert.Contains(t, prompt, "consistency across restarts")
}

func TestGenerate_EmptyHintRejected(t *testing.T) {
	mock := &llm.MockClient{Responses: []string{`{"hint": "   "}`}}
	gen := NewGenerator(mock, nil)

	_, err := gen.Generate(context.Background(), testQuestion(), 1, testAnalysis())
	require.Error(t, err)
	assert.True(t, errors.Is(err, datatypes.ErrValidation))
}

func TestGenerate_MalformedResponse(t *testing.T) {
	mock := &llm.MockClient{Responses: []string{"just think about caching harder"}}
	gen := NewGenerator(mock, nil)

	_, err := gen.Generate(context.Background(), testQuestion(), 1, testAnalysis())
	require.Error(t, err)
	assert.True(t, errors.Is(err, datatypes.ErrValidation))
}

func TestGenerate_TransportError(t *testing.T) {
	mock := &llm.MockClient{Err: errors.New("dial tcp: connection refused")}
	gen := NewGenerator(mock, nil)

	_, err := gen.Generate(context.Background(), testQuestion(), 1, testAnalysis())
	require.Error(t, err)
	assert.True(t, errors.Is(err, datatypes.ErrUpstream))
}
