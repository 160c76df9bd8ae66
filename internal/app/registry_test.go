package app_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"quizlive/internal/app"
	"quizlive/internal/domain"
	"quizlive/internal/infra/memory"
)

type countingStore struct {
	*memory.Store
	sessionLoads int32
}

func (s *countingStore) GetSession(ctx context.Context, sessionID string) (domain.Session, domain.Quiz, error) {
	atomic.AddInt32(&s.sessionLoads, 1)
	return s.Store.GetSession(ctx, sessionID)
}

// seedSession writes a session directly into the store so the coordinator
// under test has to hydrate it from durable state.
func seedSession(t *testing.T, store app.Store) domain.Session {
	t.Helper()
	ctx := context.Background()
	sess := domain.Session{
		ID:                "sess-1",
		Code:              "ABCDEF",
		QuizID:            "quiz-1",
		HostID:            "host",
		Status:            domain.StatusActive,
		CurrentQuestionID: "q2",
		CreatedAt:         time.Now(),
	}
	if err := store.CreateSession(ctx, sess, testQuiz()); err != nil {
		t.Fatalf("seed session: %v", err)
	}
	if err := store.UpsertParticipant(ctx, sess.ID, domain.Participant{
		UserID: "alice", DisplayName: "Alice", JoinedAt: time.Now(),
	}); err != nil {
		t.Fatalf("seed participant: %v", err)
	}
	if err := store.UpsertAnswer(ctx, domain.Answer{
		SessionID: sess.ID, QuestionID: "q2", UserID: "alice", Text: "Paris", SubmittedAt: time.Now(),
	}); err != nil {
		t.Fatalf("seed answer: %v", err)
	}
	return sess
}

func newHydrationCoordinator(store app.Store, retention time.Duration) *app.Coordinator {
	quizRepo := memory.NewQuizRepository(memory.NewStaticQuizLoader(map[string]domain.Quiz{
		"quiz-1": testQuiz(),
	}), 5*time.Minute)
	return app.NewCoordinator(store, quizRepo, memory.NewCodeIndex(), retention)
}

func TestHydrationRestoresSessionFromStorage(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	sess := seedSession(t, store)

	coordinator := newHydrationCoordinator(store, time.Hour)

	state, err := coordinator.State(ctx, sess.ID)
	if err != nil {
		t.Fatalf("state after hydration: %v", err)
	}
	if state.Status != domain.StatusActive {
		t.Fatalf("expected hydrated status active, got %s", state.Status)
	}
	if state.CurrentQuestion == nil || state.CurrentQuestion.ID != "q2" {
		t.Fatalf("expected current question q2, got %+v", state.CurrentQuestion)
	}
	if len(state.Participants) != 1 || state.Participants[0].UserID != "alice" {
		t.Fatalf("expected alice hydrated, got %+v", state.Participants)
	}

	// Hydrated answers stay live: a duplicate submission overwrites, and the
	// old one counts as "already answered" for the current question.
	if _, err := coordinator.SubmitAnswer(ctx, sess.ID, "alice", "q2", "Marseille"); err != nil {
		t.Fatalf("submit after hydration: %v", err)
	}
	answers, _ := store.ListAnswers(ctx, sess.ID)
	if len(answers) != 1 || answers[0].Text != "Marseille" {
		t.Fatalf("expected overwrite of hydrated answer, got %+v", answers)
	}
}

func TestConcurrentFirstTouchHydratesOnce(t *testing.T) {
	ctx := context.Background()
	store := &countingStore{Store: memory.NewStore()}
	sess := seedSession(t, store.Store)

	coordinator := newHydrationCoordinator(store, time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := coordinator.State(ctx, sess.ID); err != nil {
				t.Errorf("state: %v", err)
			}
		}()
	}
	wg.Wait()

	if loads := atomic.LoadInt32(&store.sessionLoads); loads != 1 {
		t.Fatalf("expected a single hydration load, got %d", loads)
	}
	if coordinator.Registry().Len() != 1 {
		t.Fatalf("expected one live session, got %d", coordinator.Registry().Len())
	}
}

func TestCompletedSessionEvictedAfterRetention(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	quizRepo := memory.NewQuizRepository(memory.NewStaticQuizLoader(map[string]domain.Quiz{
		"quiz-1": testQuiz(),
	}), 5*time.Minute)
	coordinator := app.NewCoordinator(store, quizRepo, memory.NewCodeIndex(), 20*time.Millisecond)

	sess, err := coordinator.CreateSession(ctx, "quiz-1", "host")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := coordinator.EndSession(ctx, sess.ID, "host"); err != nil {
		t.Fatalf("end: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for coordinator.Registry().Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("expected eviction after retention window")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// Eviction is cache cleanup only: the record re-hydrates on demand.
	state, err := coordinator.State(ctx, sess.ID)
	if err != nil {
		t.Fatalf("re-hydrate evicted session: %v", err)
	}
	if state.Status != domain.StatusCompleted {
		t.Fatalf("expected completed after re-hydration, got %s", state.Status)
	}
}
