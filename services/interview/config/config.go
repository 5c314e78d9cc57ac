// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads service configuration from the environment. A .env
// file in the working directory is honored when present; real environment
// variables always win.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultPort       = "8094"
	defaultSessionTTL = 2 * time.Hour
	defaultLLMBackend = "openai"
)

// Config holds everything the interview service reads from the environment.
type Config struct {
	// Port is the HTTP listen port.
	Port string

	// RedisAddr is the primary session store address. Empty means skip
	// Redis entirely and run on the in-memory store.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// SessionTTL is the sliding idle expiry for sessions.
	SessionTTL time.Duration

	// GitHubToken authorizes repository reads. Optional for public repos.
	GitHubToken string

	// GitHubAPIBase overrides the GitHub API endpoint, for GHE or tests.
	GitHubAPIBase string

	// LLMBackend selects the completion client: "openai" or "ollama". The
	// clients themselves read their credentials and model settings from the
	// environment.
	LLMBackend string

	// OTLPEndpoint is the OTLP gRPC collector address. Empty disables
	// trace export.
	OTLPEndpoint string
}

// Load reads configuration from the environment, applying defaults.
//
// It loads a .env file first if one exists, then validates the combination.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:          envOr("INTERVIEW_PORT", defaultPort),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		GitHubToken:   os.Getenv("GITHUB_TOKEN"),
		GitHubAPIBase: os.Getenv("GITHUB_API_BASE"),
		LLMBackend:    envOr("INTERVIEW_LLM_BACKEND", defaultLLMBackend),
		OTLPEndpoint:  os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		SessionTTL:    defaultSessionTTL,
	}

	if raw := os.Getenv("REDIS_DB"); raw != "" {
		db, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB %q: %w", raw, err)
		}
		cfg.RedisDB = db
	}

	if raw := os.Getenv("INTERVIEW_SESSION_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid INTERVIEW_SESSION_TTL %q: %w", raw, err)
		}
		if ttl <= 0 {
			return nil, fmt.Errorf("INTERVIEW_SESSION_TTL must be positive, got %q", raw)
		}
		cfg.SessionTTL = ttl
	}

	switch cfg.LLMBackend {
	case "openai", "ollama":
	default:
		return nil, fmt.Errorf("unknown INTERVIEW_LLM_BACKEND %q (want openai or ollama)", cfg.LLMBackend)
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
