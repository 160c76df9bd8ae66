// Package client holds the connection-side mirror of a live session: a
// read-only projection maintained purely from server-pushed events. It never
// computes authoritative state; after a reconnect the owner must issue a
// session-state command and let the push replace whatever was held locally.
package client

import (
	"encoding/json"
	"fmt"

	"quizlive/internal/domain"
)

// Mirror is one connection's local projection of a session.
type Mirror struct {
	SessionID       string
	Status          domain.SessionStatus
	CurrentQuestion *domain.PublicQuestion
	Participants    []domain.Participant
	// Answered tracks which participants answered the current question,
	// as far as this client has been told.
	Answered map[string]bool
	// Answers known to this client; populated for the host when correction
	// starts, and updated as grades come in.
	Answers     map[string]map[string]domain.Answer
	Leaderboard []domain.LeaderboardEntry
	LastError   string
}

func NewMirror() *Mirror {
	return &Mirror{
		Answered: make(map[string]bool),
		Answers:  make(map[string]map[string]domain.Answer),
	}
}

// Apply folds one raw server push into the projection.
func (m *Mirror) Apply(data []byte) error {
	var envelope struct {
		Type    domain.EventType `json:"type"`
		Payload json.RawMessage  `json:"payload"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}

	switch envelope.Type {
	case domain.EventSessionState:
		var state domain.SessionState
		if err := json.Unmarshal(envelope.Payload, &state); err != nil {
			return err
		}
		m.SessionID = state.SessionID
		m.Status = state.Status
		m.CurrentQuestion = state.CurrentQuestion
		m.Participants = state.Participants
		// The authoritative projection does not carry per-question answer
		// tracking; a re-sync starts that over.
		m.Answered = make(map[string]bool)
	case domain.EventNewQuestion:
		var payload domain.NewQuestionPayload
		if err := json.Unmarshal(envelope.Payload, &payload); err != nil {
			return err
		}
		q := payload.Question
		m.CurrentQuestion = &q
		m.Status = domain.StatusActive
		m.Answered = make(map[string]bool)
	case domain.EventParticipantJoined:
		var payload domain.ParticipantJoinedPayload
		if err := json.Unmarshal(envelope.Payload, &payload); err != nil {
			return err
		}
		m.upsertParticipant(payload.Participant)
	case domain.EventParticipantAnswer:
		var payload domain.ParticipantAnsweredPayload
		if err := json.Unmarshal(envelope.Payload, &payload); err != nil {
			return err
		}
		m.Answered[payload.ParticipantID] = true
	case domain.EventCorrectionStarted:
		var payload domain.CorrectionStartedPayload
		if err := json.Unmarshal(envelope.Payload, &payload); err != nil {
			return err
		}
		m.Status = domain.StatusCorrection
		for _, a := range payload.Answers {
			m.setAnswer(a)
		}
	case domain.EventAnswerGraded:
		var payload domain.AnswerGradedPayload
		if err := json.Unmarshal(envelope.Payload, &payload); err != nil {
			return err
		}
		m.applyGrade(payload)
	case domain.EventSessionEnded:
		var payload domain.SessionEndedPayload
		if err := json.Unmarshal(envelope.Payload, &payload); err != nil {
			return err
		}
		m.Status = domain.StatusCompleted
		m.Leaderboard = payload.Leaderboard
	case domain.EventError:
		var payload domain.ErrorPayload
		if err := json.Unmarshal(envelope.Payload, &payload); err != nil {
			return err
		}
		m.LastError = payload.Message
	default:
		return fmt.Errorf("unknown event type %q", envelope.Type)
	}
	return nil
}

func (m *Mirror) upsertParticipant(p domain.Participant) {
	for i := range m.Participants {
		if m.Participants[i].UserID == p.UserID {
			m.Participants[i] = p
			return
		}
	}
	m.Participants = append(m.Participants, p)
}

func (m *Mirror) setAnswer(a domain.Answer) {
	byUser, ok := m.Answers[a.QuestionID]
	if !ok {
		byUser = make(map[string]domain.Answer)
		m.Answers[a.QuestionID] = byUser
	}
	byUser[a.UserID] = a
}

func (m *Mirror) applyGrade(g domain.AnswerGradedPayload) {
	byUser, ok := m.Answers[g.QuestionID]
	if !ok {
		byUser = make(map[string]domain.Answer)
		m.Answers[g.QuestionID] = byUser
	}
	a := byUser[g.UserID]
	a.SessionID = m.SessionID
	a.QuestionID = g.QuestionID
	a.UserID = g.UserID
	isCorrect := g.IsCorrect
	points := g.Points
	a.IsCorrect = &isCorrect
	a.Points = &points
	byUser[g.UserID] = a

	for i := range m.Participants {
		if m.Participants[i].UserID == g.UserID {
			m.Participants[i].Score = g.TotalScore
			return
		}
	}
}
