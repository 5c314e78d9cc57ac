// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the interview service.
//
// # Description
//
// This package implements metrics for monitoring interview sessions.
// Metrics include:
//   - Request counters (by operation and status)
//   - Stage duration histograms (ingest, analyze, question, evaluate, hint)
//   - Session store backend gauge (1 = redis, 0 = in-memory fallback)
//   - Degraded annotation counter
//
// # Integration
//
// Metrics are exposed via the /metrics endpoint. Use with Prometheus +
// Grafana for dashboards and alerting.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// Namespace for all metrics
const metricsNamespace = "aleutian"

// Subsystem for interview metrics
const interviewSubsystem = "interview"

// InterviewMetrics holds all Prometheus metrics for interview operations.
//
// # Description
//
// Provides counters, histograms, and gauges for monitoring session activity
// and pipeline health. Initialize once at startup via NewInterviewMetrics().
//
// # Thread Safety
//
// All operations are thread-safe.
type InterviewMetrics struct {
	// RequestsTotal counts interview requests by operation and status.
	// Labels: operation (start_session, analyze, next_question, ...),
	// status (success, error)
	RequestsTotal *prometheus.CounterVec

	// StageDurationSeconds measures pipeline stage latency.
	// Labels: stage (ingest, analyze, question, annotate, evaluate, hint)
	StageDurationSeconds *prometheus.HistogramVec

	// ActiveSessions tracks sessions created minus sessions ended on this
	// instance. Slow-expiring sessions are not subtracted.
	ActiveSessions prometheus.Gauge

	// StoreBackend reports the session store in use: 1 for redis,
	// 0 for the in-memory fallback.
	StoreBackend prometheus.Gauge

	// DegradedAnnotationsTotal counts snippets returned without annotations
	// because the annotation stage failed.
	DegradedAnnotationsTotal prometheus.Counter

	// HintsTotal counts hints issued by level.
	// Labels: level (1, 2, 3)
	HintsTotal *prometheus.CounterVec
}

// NewInterviewMetrics creates and registers all interview metrics against the
// given registerer.
//
// # Description
//
// Call once at application startup with prometheus.DefaultRegisterer, or with
// a private registry in tests. Panics on duplicate registration.
func NewInterviewMetrics(reg prometheus.Registerer) *InterviewMetrics {
	factory := promauto.With(reg)

	return &InterviewMetrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: interviewSubsystem,
				Name:      "requests_total",
				Help:      "Total interview requests by operation and status",
			},
			[]string{"operation", "status"},
		),

		StageDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: interviewSubsystem,
				Name:      "stage_duration_seconds",
				Help:      "Pipeline stage duration in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"stage"},
		),

		ActiveSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: interviewSubsystem,
				Name:      "active_sessions",
				Help:      "Sessions created minus sessions explicitly ended",
			},
		),

		StoreBackend: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: interviewSubsystem,
				Name:      "store_backend",
				Help:      "Session store backend: 1 = redis, 0 = in-memory fallback",
			},
		),

		DegradedAnnotationsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: interviewSubsystem,
				Name:      "degraded_annotations_total",
				Help:      "Snippets returned unannotated after annotation failure",
			},
		),

		HintsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: interviewSubsystem,
				Name:      "hints_total",
				Help:      "Hints issued by level",
			},
			[]string{"level"},
		),
	}
}

// =============================================================================
// Operation Names
// =============================================================================

// Operation labels a request for metrics.
type Operation string

const (
	OpStartSession   Operation = "start_session"
	OpGetSession     Operation = "get_session"
	OpSetDirectories Operation = "set_directories"
	OpAnalyze        Operation = "analyze"
	OpNextQuestion   Operation = "next_question"
	OpSubmitAnswer   Operation = "submit_answer"
	OpRequestHint    Operation = "request_hint"
	OpEndSession     Operation = "end_session"
)

// Stage labels a pipeline stage for the duration histogram.
type Stage string

const (
	StageIngest   Stage = "ingest"
	StageAnalyze  Stage = "analyze"
	StageQuestion Stage = "question"
	StageAnnotate Stage = "annotate"
	StageEvaluate Stage = "evaluate"
	StageHint     Stage = "hint"
)

// =============================================================================
// Helper Methods
// =============================================================================

// RecordRequest records a completed request.
func (m *InterviewMetrics) RecordRequest(op Operation, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.RequestsTotal.WithLabelValues(string(op), status).Inc()
}

// ObserveStage records a pipeline stage duration in seconds.
func (m *InterviewMetrics) ObserveStage(stage Stage, seconds float64) {
	m.StageDurationSeconds.WithLabelValues(string(stage)).Observe(seconds)
}

// SessionStarted increments the active session gauge.
func (m *InterviewMetrics) SessionStarted() {
	m.ActiveSessions.Inc()
}

// SessionEnded decrements the active session gauge.
func (m *InterviewMetrics) SessionEnded() {
	m.ActiveSessions.Dec()
}

// SetStoreBackend reports which store backend is serving sessions.
func (m *InterviewMetrics) SetStoreBackend(redis bool) {
	if redis {
		m.StoreBackend.Set(1)
		return
	}
	m.StoreBackend.Set(0)
}

// RecordDegradedAnnotation counts one snippet that went out unannotated.
func (m *InterviewMetrics) RecordDegradedAnnotation() {
	m.DegradedAnnotationsTotal.Inc()
}

// RecordHint counts one issued hint at the given level.
func (m *InterviewMetrics) RecordHint(level int) {
	m.HintsTotal.WithLabelValues(levelLabel(level)).Inc()
}

func levelLabel(level int) string {
	switch level {
	case 1:
		return "1"
	case 2:
		return "2"
	case 3:
		return "3"
	default:
		return "other"
	}
}
