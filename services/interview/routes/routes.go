// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/AleutianInterview/services/interview/analyze"
	"github.com/AleutianAI/AleutianInterview/services/interview/annotate"
	"github.com/AleutianAI/AleutianInterview/services/interview/evaluate"
	"github.com/AleutianAI/AleutianInterview/services/interview/handlers"
	"github.com/AleutianAI/AleutianInterview/services/interview/hint"
	"github.com/AleutianAI/AleutianInterview/services/interview/ingest"
	"github.com/AleutianAI/AleutianInterview/services/interview/observability"
	"github.com/AleutianAI/AleutianInterview/services/interview/question"
	"github.com/AleutianAI/AleutianInterview/services/interview/session"
	"github.com/AleutianAI/AleutianInterview/services/interview/store"
)

// Pipeline bundles the per-stage components the interview routes depend on.
type Pipeline struct {
	Sessions  *session.Manager
	Ingestor  *ingest.Ingestor
	Analyzer  *analyze.Analyzer
	Questions *question.Generator
	Annotator *annotate.Annotator
	Evaluator *evaluate.Evaluator
	Hinter    *hint.Generator
}

func SetupRoutes(router *gin.Engine, pipeline *Pipeline, failover *store.Failover,
	metrics *observability.InterviewMetrics) {

	router.GET("/health", handlers.HealthCheck)
	router.GET("/health/store", handlers.StoreStatus(failover))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1 group
	v1 := router.Group("/v1")
	{
		interview := v1.Group("/interview")
		{
			sessions := interview.Group("/sessions")
			{
				sessions.POST("", handlers.StartSession(pipeline.Sessions, metrics))
				sessions.GET("/:sessionId", handlers.GetSession(pipeline.Sessions, metrics))
				sessions.POST("/:sessionId/directories", handlers.SetDirectories(pipeline.Sessions, metrics))
				sessions.POST("/:sessionId/analyze", handlers.Analyze(pipeline.Sessions,
					pipeline.Ingestor, pipeline.Analyzer, metrics))
				sessions.POST("/:sessionId/question", handlers.NextQuestion(pipeline.Sessions,
					pipeline.Questions, pipeline.Annotator, metrics))
				sessions.POST("/:sessionId/answer", handlers.SubmitAnswer(pipeline.Sessions,
					pipeline.Evaluator, metrics))
				sessions.POST("/:sessionId/hint", handlers.RequestHint(pipeline.Sessions,
					pipeline.Hinter, metrics))
				sessions.DELETE("/:sessionId", handlers.EndSession(pipeline.Sessions, metrics))
			}
		}
	}
}
