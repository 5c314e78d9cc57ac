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
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianInterview/services/interview/analyze"
	"github.com/AleutianAI/AleutianInterview/services/interview/annotate"
	"github.com/AleutianAI/AleutianInterview/services/interview/datatypes"
	"github.com/AleutianAI/AleutianInterview/services/interview/evaluate"
	"github.com/AleutianAI/AleutianInterview/services/interview/hint"
	"github.com/AleutianAI/AleutianInterview/services/interview/ingest"
	"github.com/AleutianAI/AleutianInterview/services/interview/observability"
	"github.com/AleutianAI/AleutianInterview/services/interview/question"
	"github.com/AleutianAI/AleutianInterview/services/interview/session"
)

// maxHintsPerQuestion caps how many hints a candidate can take on one
// question before they have to commit to an answer.
const maxHintsPerQuestion = 3

type analyzeRequest struct {
	// Directories, when present, replaces the session's directory scope
	// before ingestion. Absent keeps the scope from SetDirectories.
	Directories []string `json:"directories"`
}

type submitAnswerRequest struct {
	QuestionID string `json:"question_id"`
	Answer     string `json:"answer"`
}

type requestHintRequest struct {
	QuestionID string `json:"question_id"`

	// Level is bound as float64 so non-integer payloads are accepted and
	// normalized rather than rejected by the JSON decoder.
	Level float64 `json:"level"`
}

// Analyze ingests the scoped repository and runs the analysis stage, moving
// the session to active on success. A failed analysis leaves the session in
// analyzing so the client can retry.
func Analyze(mgr *session.Manager, ingestor *ingest.Ingestor,
	analyzer *analyze.Analyzer,
	metrics *observability.InterviewMetrics) gin.HandlerFunc {

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		id := c.Param("sessionId")

		sess, err := mgr.Get(ctx, id)
		if err != nil {
			metrics.RecordRequest(observability.OpAnalyze, false)
			writeError(c, err)
			return
		}
		if sess.Status != datatypes.StatusAnalyzing {
			metrics.RecordRequest(observability.OpAnalyze, false)
			writeError(c, fmt.Errorf("analysis requires directory selection first, session is %s: %w",
				sess.Status, datatypes.ErrStateConflict))
			return
		}

		if c.Request.ContentLength > 0 {
			var req analyzeRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				metrics.RecordRequest(observability.OpAnalyze, false)
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
				return
			}
			if req.Directories != nil {
				sess, err = mgr.SetSelectedDirectories(ctx, id, req.Directories)
				if err != nil {
					metrics.RecordRequest(observability.OpAnalyze, false)
					writeError(c, err)
					return
				}
			}
		}

		start := time.Now()
		contents, err := ingestor.Ingest(ctx, sess.RepoURL, sess.SelectedDirectories)
		metrics.ObserveStage(observability.StageIngest, time.Since(start).Seconds())
		if err != nil {
			metrics.RecordRequest(observability.OpAnalyze, false)
			writeError(c, err)
			return
		}

		start = time.Now()
		cache, err := analyzer.Analyze(ctx, sess.RepoURL, contents)
		metrics.ObserveStage(observability.StageAnalyze, time.Since(start).Seconds())
		if err != nil {
			metrics.RecordRequest(observability.OpAnalyze, false)
			writeError(c, err)
			return
		}

		if _, err := mgr.SetAnalysisCache(ctx, id, cache); err != nil {
			metrics.RecordRequest(observability.OpAnalyze, false)
			writeError(c, err)
			return
		}

		sess, err = mgr.AddMessage(ctx, id, datatypes.Message{
			Role:     datatypes.RoleAssistant,
			Content:  analysisMessage(cache),
			Metadata: &datatypes.MessageMetadata{Subtype: datatypes.SubtypeAnalysis},
		})
		if err != nil {
			metrics.RecordRequest(observability.OpAnalyze, false)
			writeError(c, err)
			return
		}

		slog.Info("analysis complete", "session_id", id,
			"files", len(cache.FileContents), "entry_points", len(cache.EntryPoints))
		metrics.RecordRequest(observability.OpAnalyze, true)
		c.JSON(http.StatusOK, sess)
	}
}

// analysisMessage renders the analysis summary for the transcript.
func analysisMessage(cache *datatypes.AnalysisCache) string {
	var sb strings.Builder
	sb.WriteString("I've finished looking over the code. ")
	sb.WriteString(cache.Summary)
	if len(cache.Patterns) > 0 {
		sb.WriteString("\n\nNotable patterns: " + strings.Join(cache.Patterns, ", ") + ".")
	}
	sb.WriteString("\n\nReady when you are. Ask for the first question.")
	return sb.String()
}

// NextQuestion issues the next question. If the previous answer missed enough
// ground, a follow-up probe into the gaps is generated instead of a fresh
// question. Snippets are annotated before the question is stored; annotation
// failures degrade to unannotated snippets rather than failing the request.
func NextQuestion(mgr *session.Manager, generator *question.Generator,
	annotator *annotate.Annotator,
	metrics *observability.InterviewMetrics) gin.HandlerFunc {

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		id := c.Param("sessionId")

		sess, err := mgr.Get(ctx, id)
		if err != nil {
			metrics.RecordRequest(observability.OpNextQuestion, false)
			writeError(c, err)
			return
		}
		if sess.Status != datatypes.StatusActive {
			metrics.RecordRequest(observability.OpNextQuestion, false)
			writeError(c, fmt.Errorf("questions require an active session, session is %s: %w",
				sess.Status, datatypes.ErrStateConflict))
			return
		}
		if sess.CurrentQuestion != nil {
			metrics.RecordRequest(observability.OpNextQuestion, false)
			writeError(c, fmt.Errorf("question %s is still unanswered: %w",
				sess.CurrentQuestion.ID, datatypes.ErrStateConflict))
			return
		}

		start := time.Now()
		q, err := nextQuestion(c, generator, sess)
		metrics.ObserveStage(observability.StageQuestion, time.Since(start).Seconds())
		if err != nil {
			metrics.RecordRequest(observability.OpNextQuestion, false)
			writeError(c, err)
			return
		}

		start = time.Now()
		for i, snippet := range q.Snippets {
			q.Snippets[i] = annotator.Annotate(ctx, snippet, q)
		}
		metrics.ObserveStage(observability.StageAnnotate, time.Since(start).Seconds())

		if _, err := mgr.SetCurrentQuestion(ctx, id, q); err != nil {
			metrics.RecordRequest(observability.OpNextQuestion, false)
			writeError(c, err)
			return
		}
		if _, err := mgr.AddMessage(ctx, id, datatypes.Message{
			Role:    datatypes.RoleAssistant,
			Content: q.Text,
			Metadata: &datatypes.MessageMetadata{
				Subtype:    datatypes.SubtypeQuestion,
				QuestionID: q.ID,
				Snippets:   q.Snippets,
			},
		}); err != nil {
			metrics.RecordRequest(observability.OpNextQuestion, false)
			writeError(c, err)
			return
		}

		metrics.RecordRequest(observability.OpNextQuestion, true)
		c.JSON(http.StatusOK, gin.H{"question": q})
	}
}

// nextQuestion tries a follow-up on the last answer first, then falls back to
// a fresh question.
func nextQuestion(c *gin.Context, generator *question.Generator,
	sess *datatypes.Session) (*datatypes.Question, error) {

	ctx := c.Request.Context()
	if sess.LastAnswer != nil {
		q, err := generator.FollowUp(ctx, sess.Analysis, &sess.LastAnswer.Question,
			sess.LastAnswer.Answer, &sess.LastAnswer.Evaluation)
		if err != nil {
			return nil, err
		}
		if q != nil {
			return q, nil
		}
	}
	return generator.Generate(ctx, sess.Analysis, sess.QuestionsAsked, "")
}

// SubmitAnswer evaluates an answer against the current question, records both
// in the transcript, and clears the question.
func SubmitAnswer(mgr *session.Manager, evaluator *evaluate.Evaluator,
	metrics *observability.InterviewMetrics) gin.HandlerFunc {

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		id := c.Param("sessionId")

		var req submitAnswerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			metrics.RecordRequest(observability.OpSubmitAnswer, false)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if strings.TrimSpace(req.Answer) == "" {
			metrics.RecordRequest(observability.OpSubmitAnswer, false)
			c.JSON(http.StatusBadRequest, gin.H{"error": "answer is required"})
			return
		}

		sess, err := mgr.Get(ctx, id)
		if err != nil {
			metrics.RecordRequest(observability.OpSubmitAnswer, false)
			writeError(c, err)
			return
		}
		if sess.Status != datatypes.StatusActive || sess.CurrentQuestion == nil {
			metrics.RecordRequest(observability.OpSubmitAnswer, false)
			writeError(c, fmt.Errorf("no question awaiting an answer: %w",
				datatypes.ErrStateConflict))
			return
		}
		if req.QuestionID != "" && req.QuestionID != sess.CurrentQuestion.ID {
			metrics.RecordRequest(observability.OpSubmitAnswer, false)
			writeError(c, fmt.Errorf("answer targets question %s but %s is current: %w",
				req.QuestionID, sess.CurrentQuestion.ID, datatypes.ErrStateConflict))
			return
		}

		start := time.Now()
		eval, err := evaluator.Evaluate(ctx, sess.CurrentQuestion, req.Answer, sess.Analysis)
		metrics.ObserveStage(observability.StageEvaluate, time.Since(start).Seconds())
		if err != nil {
			metrics.RecordRequest(observability.OpSubmitAnswer, false)
			writeError(c, err)
			return
		}

		answered := &datatypes.AnsweredQuestion{
			Question:   *sess.CurrentQuestion,
			Answer:     req.Answer,
			Evaluation: *eval,
		}
		questionID := sess.CurrentQuestion.ID

		if _, err := mgr.AddMessage(ctx, id, datatypes.Message{
			Role:    datatypes.RoleUser,
			Content: req.Answer,
			Metadata: &datatypes.MessageMetadata{
				Subtype:    datatypes.SubtypeAnswer,
				QuestionID: questionID,
			},
		}); err != nil {
			metrics.RecordRequest(observability.OpSubmitAnswer, false)
			writeError(c, err)
			return
		}

		score := eval.Score
		if _, err := mgr.AddMessage(ctx, id, datatypes.Message{
			Role:    datatypes.RoleAssistant,
			Content: eval.Feedback,
			Metadata: &datatypes.MessageMetadata{
				Subtype:    datatypes.SubtypeEvaluation,
				QuestionID: questionID,
				Score:      &score,
				Snippets:   sess.CurrentQuestion.Snippets,
			},
		}); err != nil {
			metrics.RecordRequest(observability.OpSubmitAnswer, false)
			writeError(c, err)
			return
		}

		if _, err := mgr.ClearCurrentQuestion(ctx, id, answered); err != nil {
			metrics.RecordRequest(observability.OpSubmitAnswer, false)
			writeError(c, err)
			return
		}

		slog.Info("answer evaluated", "session_id", id,
			"question_id", questionID, "score", eval.Score, "correct", eval.IsCorrect)
		metrics.RecordRequest(observability.OpSubmitAnswer, true)
		c.JSON(http.StatusOK, gin.H{"evaluation": eval})
	}
}

// RequestHint issues a hint for the current question. Levels outside [1,3]
// are clamped, and each question allows at most three hints.
func RequestHint(mgr *session.Manager, hinter *hint.Generator,
	metrics *observability.InterviewMetrics) gin.HandlerFunc {

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		id := c.Param("sessionId")

		var req requestHintRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			metrics.RecordRequest(observability.OpRequestHint, false)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		level := hint.ClampLevel(req.Level)

		sess, err := mgr.Get(ctx, id)
		if err != nil {
			metrics.RecordRequest(observability.OpRequestHint, false)
			writeError(c, err)
			return
		}
		if sess.Status != datatypes.StatusActive || sess.CurrentQuestion == nil {
			metrics.RecordRequest(observability.OpRequestHint, false)
			writeError(c, fmt.Errorf("no question to hint at: %w", datatypes.ErrStateConflict))
			return
		}
		if req.QuestionID != "" && req.QuestionID != sess.CurrentQuestion.ID {
			metrics.RecordRequest(observability.OpRequestHint, false)
			writeError(c, fmt.Errorf("question %s is not the current question: %w",
				req.QuestionID, datatypes.ErrStateConflict))
			return
		}
		if sess.HintsUsed >= maxHintsPerQuestion {
			metrics.RecordRequest(observability.OpRequestHint, false)
			writeError(c, fmt.Errorf("hint limit of %d reached for this question: %w",
				maxHintsPerQuestion, datatypes.ErrStateConflict))
			return
		}

		start := time.Now()
		text, err := hinter.Generate(ctx, sess.CurrentQuestion, level, sess.Analysis)
		metrics.ObserveStage(observability.StageHint, time.Since(start).Seconds())
		if err != nil {
			metrics.RecordRequest(observability.OpRequestHint, false)
			writeError(c, err)
			return
		}

		used, err := mgr.RecordHint(ctx, id, level)
		if err != nil {
			metrics.RecordRequest(observability.OpRequestHint, false)
			writeError(c, err)
			return
		}
		if _, err := mgr.AddMessage(ctx, id, datatypes.Message{
			Role:    datatypes.RoleAssistant,
			Content: text,
			Metadata: &datatypes.MessageMetadata{
				Subtype:    datatypes.SubtypeHint,
				QuestionID: sess.CurrentQuestion.ID,
				HintLevel:  level,
			},
		}); err != nil {
			metrics.RecordRequest(observability.OpRequestHint, false)
			writeError(c, err)
			return
		}

		metrics.RecordHint(level)
		metrics.RecordRequest(observability.OpRequestHint, true)
		c.JSON(http.StatusOK, gin.H{
			"hint":       text,
			"level":      level,
			"hints_used": used,
		})
	}
}
