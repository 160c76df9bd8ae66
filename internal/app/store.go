package app

import (
	"context"

	"quizlive/internal/domain"
)

// Store is the persistence bridge: every state-machine mutation is written
// through it before the change is broadcast, and it supplies the durable
// facts a session is hydrated from on first access.
//
// Writes for distinct (question, participant) keys are independent; callers
// serialize writes that touch the same key by holding the session lock.
type Store interface {
	// CreateSession persists a new session together with its frozen quiz snapshot.
	CreateSession(ctx context.Context, sess domain.Session, snapshot domain.Quiz) error
	// GetSession returns the session row and its quiz snapshot, or ErrSessionNotFound.
	GetSession(ctx context.Context, sessionID string) (domain.Session, domain.Quiz, error)
	// UpdateSession persists status, current question, and timestamps.
	UpdateSession(ctx context.Context, sess domain.Session) error
	// UpsertParticipant persists a participant join (idempotent on (session, user)).
	UpsertParticipant(ctx context.Context, sessionID string, p domain.Participant) error
	// ListParticipants returns a session's participants ordered by join time.
	ListParticipants(ctx context.Context, sessionID string) ([]domain.Participant, error)
	// UpsertAnswer persists a submission, last write wins per triple.
	UpsertAnswer(ctx context.Context, a domain.Answer) error
	// GradeAnswer persists a grading outcome and the participant's recomputed total.
	GradeAnswer(ctx context.Context, a domain.Answer, totalScore int) error
	// ListAnswers returns every answer recorded for a session.
	ListAnswers(ctx context.Context, sessionID string) ([]domain.Answer, error)
}

// QuizRepository loads quiz content (from cache/backing store). The
// coordinator reads a quiz exactly once per session, at creation, to take
// the frozen snapshot.
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// CodeIndex maps human-entered join codes to session ids.
type CodeIndex interface {
	// Put claims a code for a session; it returns false when the code is already taken.
	Put(ctx context.Context, code, sessionID string) (bool, error)
	// Release drops a claim whose session never got persisted.
	Release(ctx context.Context, code string) error
	// Resolve returns the session id for a code, or ErrSessionNotFound.
	Resolve(ctx context.Context, code string) (string, error)
}

// CodeResolver looks a join code up in durable storage.
type CodeResolver interface {
	ResolveCode(ctx context.Context, code string) (string, error)
}
