package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"quizlive/internal/app"
	"quizlive/internal/domain"
	"quizlive/internal/infra/memory"
)

type durableCodes struct {
	codes map[string]string
	loads int
}

func (d *durableCodes) ResolveCode(_ context.Context, code string) (string, error) {
	d.loads++
	if sessionID, ok := d.codes[code]; ok {
		return sessionID, nil
	}
	return "", domain.ErrSessionNotFound
}

func TestResolveFallsBackToDurableStorage(t *testing.T) {
	ctx := context.Background()
	durable := &durableCodes{codes: map[string]string{"ABC234": "s1"}}
	index := app.NewFallbackCodeIndex(memory.NewCodeIndex(), durable)

	// The primary index is empty, as after a restart; the durable record
	// still resolves the printed code.
	sessionID, err := index.Resolve(ctx, "ABC234")
	if err != nil || sessionID != "s1" {
		t.Fatalf("resolve via fallback: (%q, %v)", sessionID, err)
	}

	// The hit was written back; the next resolve stays off storage.
	if _, err := index.Resolve(ctx, "ABC234"); err != nil {
		t.Fatalf("resolve after write-back: %v", err)
	}
	if durable.loads != 1 {
		t.Fatalf("expected a single durable lookup, got %d", durable.loads)
	}

	if _, err := index.Resolve(ctx, "ZZZZZZ"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound for unknown code, got %v", err)
	}
}

type recordingCodeIndex struct {
	*memory.CodeIndex
	lastPut string
}

func (i *recordingCodeIndex) Put(ctx context.Context, code, sessionID string) (bool, error) {
	i.lastPut = code
	return i.CodeIndex.Put(ctx, code, sessionID)
}

func TestFailedSessionCreationReleasesJoinCode(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{Store: memory.NewStore(), failWrites: true}
	codes := &recordingCodeIndex{CodeIndex: memory.NewCodeIndex()}
	quizRepo := memory.NewQuizRepository(memory.NewStaticQuizLoader(map[string]domain.Quiz{
		"quiz-1": testQuiz(),
	}), 5*time.Minute)
	coordinator := app.NewCoordinator(store, quizRepo, codes, time.Hour)

	if _, err := coordinator.CreateSession(ctx, "quiz-1", "host"); err == nil {
		t.Fatalf("expected persistence failure to surface")
	}
	if codes.lastPut == "" {
		t.Fatalf("expected a code claim before the session write")
	}
	if _, err := codes.Resolve(ctx, codes.lastPut); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("claimed code must be released after a failed write, got %v", err)
	}

	// With the store back, creation succeeds and claims a fresh code.
	store.failWrites = false
	sess, err := coordinator.CreateSession(ctx, "quiz-1", "host")
	if err != nil {
		t.Fatalf("create after recovery: %v", err)
	}
	if resolved, err := codes.Resolve(ctx, sess.Code); err != nil || resolved != sess.ID {
		t.Fatalf("resolve recovered code: (%q, %v)", resolved, err)
	}
}
