package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"quizlive/internal/domain"
)

func TestStoreSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	sess := domain.Session{
		ID:        "s1",
		Code:      "ABC234",
		QuizID:    "quiz-1",
		HostID:    "host",
		Status:    domain.StatusWaiting,
		CreatedAt: time.Now(),
	}
	quiz := domain.Quiz{ID: "quiz-1", Questions: []domain.Question{{ID: "q1", Kind: domain.KindFreeAnswer}}}

	if err := store.CreateSession(ctx, sess, quiz); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, snapshot, err := store.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Code != "ABC234" || len(snapshot.Questions) != 1 {
		t.Fatalf("round trip mismatch: %+v %+v", got, snapshot)
	}

	sess.Status = domain.StatusActive
	sess.CurrentQuestionID = "q1"
	if err := store.UpdateSession(ctx, sess); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _, _ = store.GetSession(ctx, "s1")
	if got.Status != domain.StatusActive || got.CurrentQuestionID != "q1" {
		t.Fatalf("update not applied: %+v", got)
	}

	if _, _, err := store.GetSession(ctx, "nope"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestStoreAnswerUpsertAndGrade(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	sess := domain.Session{ID: "s1", Code: "ABC234", Status: domain.StatusActive, CreatedAt: time.Now()}
	if err := store.CreateSession(ctx, sess, domain.Quiz{}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.UpsertParticipant(ctx, "s1", domain.Participant{UserID: "alice", JoinedAt: time.Now()}); err != nil {
		t.Fatalf("participant: %v", err)
	}

	a := domain.Answer{SessionID: "s1", QuestionID: "q1", UserID: "alice", Text: "first", SubmittedAt: time.Now()}
	if err := store.UpsertAnswer(ctx, a); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	a.Text = "second"
	if err := store.UpsertAnswer(ctx, a); err != nil {
		t.Fatalf("upsert overwrite: %v", err)
	}

	answers, _ := store.ListAnswers(ctx, "s1")
	if len(answers) != 1 || answers[0].Text != "second" {
		t.Fatalf("expected last write to win, got %+v", answers)
	}

	correct := true
	points := 2
	a.IsCorrect = &correct
	a.Points = &points
	if err := store.GradeAnswer(ctx, a, 2); err != nil {
		t.Fatalf("grade: %v", err)
	}
	participants, _ := store.ListParticipants(ctx, "s1")
	if participants[0].Score != 2 {
		t.Fatalf("expected score carried to participant, got %d", participants[0].Score)
	}

	missing := domain.Answer{SessionID: "s1", QuestionID: "q9", UserID: "alice"}
	if err := store.GradeAnswer(ctx, missing, 0); !errors.Is(err, domain.ErrAnswerNotFound) {
		t.Fatalf("expected ErrAnswerNotFound, got %v", err)
	}
}

func TestCodeIndexClaims(t *testing.T) {
	ctx := context.Background()
	index := NewCodeIndex()

	claimed, err := index.Put(ctx, "ABC234", "s1")
	if err != nil || !claimed {
		t.Fatalf("first claim should win: (%v, %v)", claimed, err)
	}
	claimed, err = index.Put(ctx, "ABC234", "s2")
	if err != nil || claimed {
		t.Fatalf("second claim must lose: (%v, %v)", claimed, err)
	}

	sessionID, err := index.Resolve(ctx, "ABC234")
	if err != nil || sessionID != "s1" {
		t.Fatalf("resolve: (%q, %v)", sessionID, err)
	}
	if _, err := index.Resolve(ctx, "ZZZZZZ"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}

	if err := index.Release(ctx, "ABC234"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, err := index.Resolve(ctx, "ABC234"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("released code must not resolve, got %v", err)
	}
	if claimed, err := index.Put(ctx, "ABC234", "s3"); err != nil || !claimed {
		t.Fatalf("released code must be claimable again: (%v, %v)", claimed, err)
	}
}
