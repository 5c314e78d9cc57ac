// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers implements the HTTP boundary of the interview service.
// Handlers are thin: they bind and validate requests, delegate to the
// pipeline packages, and map the error taxonomy onto HTTP statuses.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianInterview/services/interview/datatypes"
)

// writeError maps a pipeline error onto an HTTP status and JSON body.
//
// Validation failures reaching this point come from upstream model output,
// not the client, so they map to 502 alongside transport failures. Client
// request problems are rejected with 400 before the pipeline runs.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, datatypes.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, datatypes.ErrStateConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, datatypes.ErrValidation),
		errors.Is(err, datatypes.ErrUpstream):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		slog.Error("unclassified handler error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
