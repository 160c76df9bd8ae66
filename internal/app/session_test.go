package app

import (
	"testing"
	"time"

	"quizlive/internal/domain"
)

func TestCodeGeneratorUsesUnambiguousAlphabet(t *testing.T) {
	gen := newCodeGenerator()
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		code := gen.next()
		if len(code) != codeLength {
			t.Fatalf("expected %d chars, got %q", codeLength, code)
		}
		for _, c := range code {
			switch c {
			case 'I', 'O', '0', '1':
				t.Fatalf("ambiguous character %q in code %q", c, code)
			}
		}
		seen[code] = true
	}
	if len(seen) < 150 {
		t.Fatalf("codes barely vary: %d distinct of 200", len(seen))
	}
}

func TestAnsweredTrackingResetsOnNewQuestion(t *testing.T) {
	ls := newLiveSession(domain.Session{
		ID:     "s1",
		HostID: "host",
		Status: domain.StatusActive,
	}, domain.Quiz{ID: "quiz-1"}, time.Now)

	ls.answeredCurrent["alice"] = true
	ls.answeredCurrent["bob"] = true

	// This is what SelectQuestion does when replacing the live question.
	ls.answeredCurrent = make(map[string]bool)

	if ls.answeredCurrent["alice"] || ls.answeredCurrent["bob"] {
		t.Fatalf("answered tracking must start empty for a new question")
	}
}

func TestHydratedAnswersMarkCurrentQuestionAnswered(t *testing.T) {
	now := time.Now()
	ls := newLiveSession(domain.Session{
		ID:                "s1",
		HostID:            "host",
		Status:            domain.StatusActive,
		CurrentQuestionID: "q2",
	}, domain.Quiz{ID: "quiz-1"}, time.Now)

	ls.seed(
		[]domain.Participant{{UserID: "alice", DisplayName: "Alice", JoinedAt: now}},
		[]domain.Answer{
			{SessionID: "s1", QuestionID: "q1", UserID: "alice", Text: "4", SubmittedAt: now},
			{SessionID: "s1", QuestionID: "q2", UserID: "alice", Text: "Paris", SubmittedAt: now},
		},
	)

	if !ls.answeredCurrent["alice"] {
		t.Fatalf("answer for the current question should mark alice as answered")
	}
	if got := len(ls.allAnswersLocked()); got != 2 {
		t.Fatalf("expected 2 hydrated answers, got %d", got)
	}
}

func TestLeaderboardOrdering(t *testing.T) {
	base := time.Now()
	ls := newLiveSession(domain.Session{ID: "s1", HostID: "host"}, domain.Quiz{}, time.Now)
	ls.seed([]domain.Participant{
		{UserID: "carol", DisplayName: "Carol", Score: 5, JoinedAt: base.Add(2 * time.Second)},
		{UserID: "alice", DisplayName: "Alice", Score: 3, JoinedAt: base},
		{UserID: "bob", DisplayName: "Bob", Score: 3, JoinedAt: base.Add(time.Second)},
	}, nil)

	lb := ls.computeLeaderboardLocked()
	got := []string{lb[0].UserID, lb[1].UserID, lb[2].UserID}
	want := []string{"carol", "alice", "bob"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	ls := newLiveSession(domain.Session{ID: "s1", HostID: "host"}, domain.Quiz{}, time.Now)
	sub, cancel := ls.subscribe("alice")
	defer cancel()

	ls.mu.Lock()
	// Flood past the buffer; publish must never block.
	for i := 0; i < 100; i++ {
		ls.publishLocked(domain.Event{Type: domain.EventParticipantJoined}, toRoom)
	}
	ls.mu.Unlock()

	if len(sub.ch) != cap(sub.ch) {
		t.Fatalf("expected a full buffer, got %d of %d", len(sub.ch), cap(sub.ch))
	}
}
