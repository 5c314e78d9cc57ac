// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleResponse struct {
	Summary string   `json:"summary"`
	Items   []string `json:"items"`
}

func TestExtractJSON_FencedBlock(t *testing.T) {
	raw := "Here is the analysis:\n```json\n{\"summary\": \"ok\"}\n```\nDone."
	doc, err := ExtractJSON(raw)
	require.NoError(t, err)
	assert.JSONEq(t, `{"summary": "ok"}`, doc)
}

func TestExtractJSON_BareObjectWithProse(t *testing.T) {
	raw := "Sure! {\"summary\": \"ok\", \"items\": []} hope that helps"
	doc, err := ExtractJSON(raw)
	require.NoError(t, err)
	assert.JSONEq(t, `{"summary": "ok", "items": []}`, doc)
}

func TestExtractJSON_NoObject(t *testing.T) {
	_, err := ExtractJSON("I cannot answer that.")
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestGenerateStructured_HappyPath(t *testing.T) {
	client := NewMockClient(`{"summary": "a web service", "items": ["a", "b"]}`)

	out, err := GenerateStructured[sampleResponse](context.Background(), client, "prompt",
		GenerationParams{}, []string{"summary", "items"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "a web service", out.Summary)
	assert.Len(t, out.Items, 2)
}

func TestGenerateStructured_MissingRequiredField(t *testing.T) {
	client := NewMockClient(`{"summary": "a web service"}`)

	_, err := GenerateStructured[sampleResponse](context.Background(), client, "prompt",
		GenerationParams{}, []string{"summary", "items"}, nil)
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestGenerateStructured_NullRequiredField(t *testing.T) {
	client := NewMockClient(`{"summary": "ok", "items": null}`)

	_, err := GenerateStructured[sampleResponse](context.Background(), client, "prompt",
		GenerationParams{}, []string{"summary", "items"}, nil)
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestGenerateStructured_MalformedJSON(t *testing.T) {
	client := NewMockClient(`{"summary": "truncated`)

	_, err := GenerateStructured[sampleResponse](context.Background(), client, "prompt",
		GenerationParams{}, []string{"summary"}, nil)
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestGenerateStructured_PredicateRejects(t *testing.T) {
	client := NewMockClient(`{"summary": "", "items": []}`)

	_, err := GenerateStructured[sampleResponse](context.Background(), client, "prompt",
		GenerationParams{}, []string{"summary", "items"},
		func(r *sampleResponse) error {
			if r.Summary == "" {
				return fmt.Errorf("summary is required")
			}
			return nil
		})
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestGenerateStructured_TransportErrorPassesThrough(t *testing.T) {
	client := &MockClient{Err: errors.New("connection reset")}

	_, err := GenerateStructured[sampleResponse](context.Background(), client, "prompt",
		GenerationParams{}, nil, nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidResponse,
		"transport failures must stay distinguishable from validation failures")
}
