// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestMetrics(t *testing.T) *InterviewMetrics {
	t.Helper()
	return NewInterviewMetrics(prometheus.NewRegistry())
}

func TestRecordRequest(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordRequest(OpStartSession, true)
	m.RecordRequest(OpStartSession, true)
	m.RecordRequest(OpAnalyze, false)

	successVal := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("start_session", "success"))
	if successVal != 2 {
		t.Errorf("RequestsTotal[start_session,success] = %f, want 2", successVal)
	}

	errorVal := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("analyze", "error"))
	if errorVal != 1 {
		t.Errorf("RequestsTotal[analyze,error] = %f, want 1", errorVal)
	}
}

func TestSessionGaugeLifecycle(t *testing.T) {
	m := newTestMetrics(t)

	m.SessionStarted()
	m.SessionStarted()
	m.SessionEnded()

	val := testutil.ToFloat64(m.ActiveSessions)
	if val != 1 {
		t.Errorf("ActiveSessions = %f, want 1", val)
	}
}

func TestSetStoreBackend(t *testing.T) {
	m := newTestMetrics(t)

	m.SetStoreBackend(true)
	if val := testutil.ToFloat64(m.StoreBackend); val != 1 {
		t.Errorf("StoreBackend after redis = %f, want 1", val)
	}

	m.SetStoreBackend(false)
	if val := testutil.ToFloat64(m.StoreBackend); val != 0 {
		t.Errorf("StoreBackend after fallback = %f, want 0", val)
	}
}

func TestRecordDegradedAnnotation(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordDegradedAnnotation()
	m.RecordDegradedAnnotation()

	val := testutil.ToFloat64(m.DegradedAnnotationsTotal)
	if val != 2 {
		t.Errorf("DegradedAnnotationsTotal = %f, want 2", val)
	}
}

func TestRecordHint(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordHint(1)
	m.RecordHint(3)
	m.RecordHint(3)
	m.RecordHint(42)

	if val := testutil.ToFloat64(m.HintsTotal.WithLabelValues("3")); val != 2 {
		t.Errorf("HintsTotal[3] = %f, want 2", val)
	}
	if val := testutil.ToFloat64(m.HintsTotal.WithLabelValues("other")); val != 1 {
		t.Errorf("HintsTotal[other] = %f, want 1", val)
	}
}

func TestObserveStage(t *testing.T) {
	m := newTestMetrics(t)

	m.ObserveStage(StageIngest, 2.0)
	m.ObserveStage(StageAnalyze, 12.0)

	count := testutil.CollectAndCount(m.StageDurationSeconds)
	if count == 0 {
		t.Error("expected stage duration observations to be collected")
	}
}
