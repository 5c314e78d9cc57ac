// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package session owns the Session entity: creation, persistence through the
// key-value store, and every state transition. All pipeline stages mutate
// sessions through this manager.
//
// No operation here is atomic. Each one is a read-modify-write over the
// store; concurrent mutations on one session id race and the later write
// wins. Sessions are modeled as single-operator, so this is a documented
// limitation rather than a guarded invariant.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianInterview/services/interview/datatypes"
	"github.com/AleutianAI/AleutianInterview/services/interview/store"
)

const sessionKeyPrefix = "session:"

const welcomeText = "Welcome! I'm going to interview you about this " +
	"repository. Pick the directories you want to focus on, or leave the " +
	"selection empty to cover the whole project."

// Manager performs CRUD and state-transition operations over sessions.
type Manager struct {
	store  store.Backend
	ttl    time.Duration
	logger *slog.Logger
}

// NewManager creates a manager. ttl is the rolling expiry window measured
// from the last write to a session.
func NewManager(backend store.Backend, ttl time.Duration, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{store: backend, ttl: ttl, logger: logger}
}

// Create starts a session for the given repository, installs the generated
// welcome message, and leaves the session in selecting_dirs.
func (m *Manager) Create(ctx context.Context, repoURL string) (*datatypes.Session, error) {
	now := time.Now().UTC()
	sess := &datatypes.Session{
		ID:                  uuid.NewString(),
		RepoURL:             repoURL,
		SelectedDirectories: []string{},
		QuestionsAsked:      []string{},
		Status:              datatypes.StatusSelectingDirs,
		CreatedAt:           now,
		LastActivity:        now,
		Messages: []datatypes.Message{
			{
				ID:        uuid.NewString(),
				Role:      datatypes.RoleAssistant,
				Content:   welcomeText,
				Timestamp: now,
				Metadata:  &datatypes.MessageMetadata{Subtype: datatypes.SubtypeWelcome},
			},
		},
	}
	if err := m.Save(ctx, sess); err != nil {
		return nil, err
	}
	m.logger.Info("session created", "session_id", sess.ID, "repo", repoURL)
	return sess, nil
}

// Get loads a session. An expired session and one that never existed are
// indistinguishable: both return ErrNotFound.
func (m *Manager) Get(ctx context.Context, id string) (*datatypes.Session, error) {
	raw, found, err := m.store.Get(ctx, sessionKeyPrefix+id)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	if !found {
		return nil, fmt.Errorf("session %s: %w", id, datatypes.ErrNotFound)
	}
	var sess datatypes.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &sess, nil
}

// Save persists the session, bumping last-activity and resetting the TTL.
func (m *Manager) Save(ctx context.Context, sess *datatypes.Session) error {
	sess.LastActivity = time.Now().UTC()
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sess.ID, err)
	}
	if err := m.store.SetWithTTL(ctx, sessionKeyPrefix+sess.ID, raw, m.ttl); err != nil {
		return fmt.Errorf("save session %s: %w", sess.ID, err)
	}
	return nil
}

// mutate is the read-modify-write every mutation goes through.
func (m *Manager) mutate(ctx context.Context, id string,
	fn func(*datatypes.Session) error) (*datatypes.Session, error) {

	sess, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(sess); err != nil {
		return nil, err
	}
	if err := m.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// transition moves the session to next, rejecting edges the state machine
// does not document.
func transition(sess *datatypes.Session, next datatypes.SessionStatus) error {
	if !sess.Status.CanTransitionTo(next) {
		return fmt.Errorf("cannot move session from %s to %s: %w",
			sess.Status, next, datatypes.ErrStateConflict)
	}
	sess.Status = next
	return nil
}

// AddMessage appends a message to the session transcript.
func (m *Manager) AddMessage(ctx context.Context, id string,
	msg datatypes.Message) (*datatypes.Session, error) {

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	return m.mutate(ctx, id, func(sess *datatypes.Session) error {
		sess.Messages = append(sess.Messages, msg)
		return nil
	})
}

// UpdateStatus moves the session to the given status, checked against the
// transition table.
func (m *Manager) UpdateStatus(ctx context.Context, id string,
	status datatypes.SessionStatus) (*datatypes.Session, error) {

	return m.mutate(ctx, id, func(sess *datatypes.Session) error {
		return transition(sess, status)
	})
}

// SetSelectedDirectories records the directory scope (empty means whole
// repo) and moves the session to analyzing.
func (m *Manager) SetSelectedDirectories(ctx context.Context, id string,
	dirs []string) (*datatypes.Session, error) {

	if dirs == nil {
		dirs = []string{}
	}
	return m.mutate(ctx, id, func(sess *datatypes.Session) error {
		if err := transition(sess, datatypes.StatusAnalyzing); err != nil {
			return err
		}
		sess.SelectedDirectories = dirs
		return nil
	})
}

// SetAnalysisCache installs the analysis wholesale, replacing any previous
// one, and moves the session to active.
func (m *Manager) SetAnalysisCache(ctx context.Context, id string,
	cache *datatypes.AnalysisCache) (*datatypes.Session, error) {

	return m.mutate(ctx, id, func(sess *datatypes.Session) error {
		if err := transition(sess, datatypes.StatusActive); err != nil {
			return err
		}
		sess.Analysis = cache
		return nil
	})
}

// SetCurrentQuestion installs q as the current question, appends its id to
// the append-only asked list, and resets the per-question hint count.
func (m *Manager) SetCurrentQuestion(ctx context.Context, id string,
	q *datatypes.Question) (*datatypes.Session, error) {

	return m.mutate(ctx, id, func(sess *datatypes.Session) error {
		if sess.Status != datatypes.StatusActive {
			return fmt.Errorf("cannot issue a question while %s: %w",
				sess.Status, datatypes.ErrStateConflict)
		}
		sess.CurrentQuestion = q
		sess.QuestionsAsked = append(sess.QuestionsAsked, q.ID)
		sess.HintsUsed = 0
		return nil
	})
}

// ClearCurrentQuestion clears the current question after an answer, and
// records the answered question so the next generation can follow up on it.
func (m *Manager) ClearCurrentQuestion(ctx context.Context, id string,
	answered *datatypes.AnsweredQuestion) (*datatypes.Session, error) {

	return m.mutate(ctx, id, func(sess *datatypes.Session) error {
		sess.CurrentQuestion = nil
		sess.LastAnswer = answered
		return nil
	})
}

// RecordHint bumps the per-question hint count and returns the new value.
// The cap itself is enforced at the boundary, not here.
func (m *Manager) RecordHint(ctx context.Context, id string, level int) (int, error) {

	used := 0
	_, err := m.mutate(ctx, id, func(sess *datatypes.Session) error {
		sess.HintsUsed++
		used = sess.HintsUsed
		return nil
	})
	if err != nil {
		return 0, err
	}
	return used, nil
}

// End terminates the session: appends a closing summary referencing the
// number of questions asked, clears the current question, and moves to the
// terminal ended status. Ending an already ended session is a conflict.
func (m *Manager) End(ctx context.Context, id string) (*datatypes.Session, error) {
	sess, err := m.mutate(ctx, id, func(sess *datatypes.Session) error {
		if err := transition(sess, datatypes.StatusEnded); err != nil {
			return err
		}
		asked := len(sess.QuestionsAsked)
		closing := fmt.Sprintf("That wraps up the interview. We covered %d "+
			"question(s) about this repository. Thanks for digging in!", asked)
		sess.Messages = append(sess.Messages, datatypes.Message{
			ID:        uuid.NewString(),
			Role:      datatypes.RoleAssistant,
			Content:   closing,
			Timestamp: time.Now().UTC(),
			Metadata:  &datatypes.MessageMetadata{Subtype: datatypes.SubtypeClosing},
		})
		sess.CurrentQuestion = nil
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.logger.Info("session ended", "session_id", id,
		"questions_asked", len(sess.QuestionsAsked))
	return sess, nil
}

// Delete removes the session from the store outright. Exposed for
// administrative cleanup; the normal path is End plus TTL expiry.
func (m *Manager) Delete(ctx context.Context, id string) (bool, error) {
	return m.store.Delete(ctx, sessionKeyPrefix+id)
}
