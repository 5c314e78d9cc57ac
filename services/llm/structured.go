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
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidResponse tags a completion that could not be parsed or that
// failed schema validation. Callers test with errors.Is to distinguish a bad
// response from a transport failure.
var ErrInvalidResponse = errors.New("invalid model response")

// ExtractJSON pulls the JSON document out of a completion. Models wrap JSON
// in markdown fences or prose more often than not, so we take everything
// between the first '{' and the last '}'.
func ExtractJSON(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	if idx := strings.Index(text, "```json"); idx >= 0 {
		text = text[idx+len("```json"):]
		if end := strings.Index(text, "```"); end >= 0 {
			text = text[:end]
		}
	} else if idx := strings.Index(text, "```"); idx >= 0 {
		text = text[idx+len("```"):]
		if end := strings.Index(text, "```"); end >= 0 {
			text = text[:end]
		}
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", fmt.Errorf("%w: no JSON object in completion", ErrInvalidResponse)
	}
	return text[start : end+1], nil
}

// GenerateStructured issues one completion and decodes it in two phases:
// first into an untyped document checked for required top-level fields, then
// into T, and finally through the caller's validate predicate. Any phase
// failing returns an error wrapping ErrInvalidResponse; transport errors
// from the client pass through unwrapped.
func GenerateStructured[T any](ctx context.Context, client LLMClient, prompt string,
	params GenerationParams, required []string, validate func(*T) error) (*T, error) {

	raw, err := client.Generate(ctx, prompt, params)
	if err != nil {
		return nil, err
	}

	doc, err := ExtractJSON(raw)
	if err != nil {
		return nil, err
	}

	// Phase 1: untyped parse + required-field check.
	var untyped map[string]json.RawMessage
	if err := json.Unmarshal([]byte(doc), &untyped); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	for _, field := range required {
		value, ok := untyped[field]
		if !ok || string(value) == "null" {
			return nil, fmt.Errorf("%w: missing required field %q", ErrInvalidResponse, field)
		}
	}

	// Phase 2: typed decode + caller predicate.
	var out T
	if err := json.Unmarshal([]byte(doc), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if validate != nil {
		if err := validate(&out); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		}
	}
	return &out, nil
}
