// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianInterview/services/interview/observability"
	"github.com/AleutianAI/AleutianInterview/services/interview/session"
)

type startSessionRequest struct {
	RepoURL string `json:"repo_url"`
}

type setDirectoriesRequest struct {
	Directories []string `json:"directories"`
}

// StartSession creates a new interview session for a repository.
func StartSession(mgr *session.Manager, metrics *observability.InterviewMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req startSessionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			metrics.RecordRequest(observability.OpStartSession, false)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if strings.TrimSpace(req.RepoURL) == "" {
			metrics.RecordRequest(observability.OpStartSession, false)
			c.JSON(http.StatusBadRequest, gin.H{"error": "repo_url is required"})
			return
		}

		sess, err := mgr.Create(c.Request.Context(), req.RepoURL)
		if err != nil {
			metrics.RecordRequest(observability.OpStartSession, false)
			writeError(c, err)
			return
		}

		metrics.SessionStarted()
		metrics.RecordRequest(observability.OpStartSession, true)
		c.JSON(http.StatusCreated, sess)
	}
}

// GetSession returns the full session, transcript included.
func GetSession(mgr *session.Manager, metrics *observability.InterviewMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := mgr.Get(c.Request.Context(), c.Param("sessionId"))
		if err != nil {
			metrics.RecordRequest(observability.OpGetSession, false)
			writeError(c, err)
			return
		}
		metrics.RecordRequest(observability.OpGetSession, true)
		c.JSON(http.StatusOK, sess)
	}
}

// SetDirectories records the directory scope for the interview and moves the
// session to analyzing. An empty list means the whole repository.
func SetDirectories(mgr *session.Manager, metrics *observability.InterviewMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req setDirectoriesRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			metrics.RecordRequest(observability.OpSetDirectories, false)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		sess, err := mgr.SetSelectedDirectories(c.Request.Context(),
			c.Param("sessionId"), req.Directories)
		if err != nil {
			metrics.RecordRequest(observability.OpSetDirectories, false)
			writeError(c, err)
			return
		}

		slog.Info("directories selected", "session_id", sess.ID,
			"count", len(sess.SelectedDirectories))
		metrics.RecordRequest(observability.OpSetDirectories, true)
		c.JSON(http.StatusOK, sess)
	}
}

// EndSession terminates the interview, appending a closing summary message.
func EndSession(mgr *session.Manager, metrics *observability.InterviewMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := mgr.End(c.Request.Context(), c.Param("sessionId"))
		if err != nil {
			metrics.RecordRequest(observability.OpEndSession, false)
			writeError(c, err)
			return
		}
		metrics.SessionEnded()
		metrics.RecordRequest(observability.OpEndSession, true)
		c.JSON(http.StatusOK, sess)
	}
}
