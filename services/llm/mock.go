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
	"fmt"
	"sync"
)

// MockClient is a scripted LLMClient for tests. Responses are returned in
// order; when the script runs out the last response repeats. Prompts records
// every prompt received so tests can assert on prompt content.
type MockClient struct {
	mu        sync.Mutex
	Responses []string
	Err       error
	Prompts   []string
	calls     int
}

// NewMockClient scripts a mock with the given responses.
func NewMockClient(responses ...string) *MockClient {
	return &MockClient{Responses: responses}
}

// Generate implements the LLMClient interface.
func (m *MockClient) Generate(_ context.Context, prompt string, _ GenerationParams) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Prompts = append(m.Prompts, prompt)
	m.calls++
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Responses) == 0 {
		return "", fmt.Errorf("mock client has no scripted responses")
	}
	idx := m.calls - 1
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	}
	return m.Responses[idx], nil
}

// Calls reports how many times Generate was invoked.
func (m *MockClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
