package client

import (
	"encoding/json"
	"testing"
	"time"

	"quizlive/internal/domain"
)

func push(t *testing.T, m *Mirror, typ domain.EventType, payload any) {
	t.Helper()
	data, err := json.Marshal(domain.Event{Type: typ, Payload: payload})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	if err := m.Apply(data); err != nil {
		t.Fatalf("apply %s: %v", typ, err)
	}
}

func TestMirrorFollowsSessionFlow(t *testing.T) {
	m := NewMirror()

	push(t, m, domain.EventSessionState, domain.SessionState{
		SessionID: "s1",
		Status:    domain.StatusWaiting,
		Participants: []domain.Participant{
			{UserID: "alice", DisplayName: "Alice", JoinedAt: time.Now()},
		},
	})
	if m.SessionID != "s1" || m.Status != domain.StatusWaiting || len(m.Participants) != 1 {
		t.Fatalf("projection after session-state: %+v", m)
	}

	push(t, m, domain.EventParticipantJoined, domain.ParticipantJoinedPayload{
		Participant: domain.Participant{UserID: "bob", DisplayName: "Bob"},
	})
	if len(m.Participants) != 2 {
		t.Fatalf("expected 2 participants, got %d", len(m.Participants))
	}

	push(t, m, domain.EventNewQuestion, domain.NewQuestionPayload{
		Question: domain.PublicQuestion{ID: "q1", Prompt: "2+2?", Kind: domain.KindMultipleChoice},
	})
	if m.Status != domain.StatusActive || m.CurrentQuestion == nil || m.CurrentQuestion.ID != "q1" {
		t.Fatalf("projection after new-question: %+v", m)
	}

	push(t, m, domain.EventParticipantAnswer, domain.ParticipantAnsweredPayload{
		ParticipantID: "bob", QuestionID: "q1",
	})
	if !m.Answered["bob"] {
		t.Fatalf("expected bob marked as answered")
	}

	// A new question resets who-has-answered.
	push(t, m, domain.EventNewQuestion, domain.NewQuestionPayload{
		Question: domain.PublicQuestion{ID: "q2", Prompt: "Capital of France?", Kind: domain.KindFreeAnswer},
	})
	if m.Answered["bob"] {
		t.Fatalf("answered tracking must reset on new question")
	}

	push(t, m, domain.EventCorrectionStarted, domain.CorrectionStartedPayload{
		Answers: []domain.Answer{
			{SessionID: "s1", QuestionID: "q2", UserID: "bob", Text: "Paris"},
		},
	})
	if m.Status != domain.StatusCorrection || m.Answers["q2"]["bob"].Text != "Paris" {
		t.Fatalf("projection after correction-started: %+v", m)
	}

	push(t, m, domain.EventAnswerGraded, domain.AnswerGradedPayload{
		UserID: "bob", QuestionID: "q2", IsCorrect: true, Points: 2, TotalScore: 2,
	})
	graded := m.Answers["q2"]["bob"]
	if !graded.Graded() || *graded.Points != 2 {
		t.Fatalf("expected graded answer, got %+v", graded)
	}
	for _, p := range m.Participants {
		if p.UserID == "bob" && p.Score != 2 {
			t.Fatalf("expected bob's score updated to 2, got %d", p.Score)
		}
	}

	push(t, m, domain.EventSessionEnded, domain.SessionEndedPayload{
		Leaderboard: []domain.LeaderboardEntry{
			{UserID: "bob", DisplayName: "Bob", Score: 2},
			{UserID: "alice", DisplayName: "Alice", Score: 0},
		},
	})
	if m.Status != domain.StatusCompleted || len(m.Leaderboard) != 2 {
		t.Fatalf("projection after session-ended: %+v", m)
	}
}

func TestMirrorResyncReplacesLocalState(t *testing.T) {
	m := NewMirror()
	push(t, m, domain.EventNewQuestion, domain.NewQuestionPayload{
		Question: domain.PublicQuestion{ID: "q1"},
	})
	push(t, m, domain.EventParticipantAnswer, domain.ParticipantAnsweredPayload{ParticipantID: "bob", QuestionID: "q1"})

	// Server truth says we are already in correction with no current question
	// knowledge carried over.
	push(t, m, domain.EventSessionState, domain.SessionState{
		SessionID:    "s1",
		Status:       domain.StatusCorrection,
		Participants: []domain.Participant{{UserID: "bob"}},
	})
	if m.Status != domain.StatusCorrection {
		t.Fatalf("expected status from re-sync, got %s", m.Status)
	}
	if m.CurrentQuestion != nil {
		t.Fatalf("re-sync must replace the current question, got %+v", m.CurrentQuestion)
	}
	if m.Answered["bob"] {
		t.Fatalf("re-sync must drop stale answered tracking")
	}
}

func TestMirrorRecordsErrors(t *testing.T) {
	m := NewMirror()
	push(t, m, domain.EventError, domain.ErrorPayload{Message: "forbidden"})
	if m.LastError != "forbidden" {
		t.Fatalf("expected error recorded, got %q", m.LastError)
	}
}

func TestCommandEnvelopes(t *testing.T) {
	var cmd struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	if err := json.Unmarshal(GradeAnswer("q1", "bob", true, 3), &cmd); err != nil {
		t.Fatalf("unmarshal command: %v", err)
	}
	if cmd.Type != "grade-answer" || cmd.Payload["userId"] != "bob" || cmd.Payload["points"] != float64(3) {
		t.Fatalf("unexpected command shape: %+v", cmd)
	}
}
