package memory

import (
	"context"
	"sort"
	"sync"

	"quizlive/internal/domain"
)

type answerKey struct {
	questionID string
	userID     string
}

type sessionRecord struct {
	sess         domain.Session
	snapshot     domain.Quiz
	participants map[string]domain.Participant
	answers      map[answerKey]domain.Answer
}

// Store is an in-memory implementation of app.Store, used in tests and when
// the service runs without Postgres.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*sessionRecord
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]*sessionRecord)}
}

func (s *Store) CreateSession(_ context.Context, sess domain.Session, snapshot domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = &sessionRecord{
		sess:         sess,
		snapshot:     snapshot,
		participants: make(map[string]domain.Participant),
		answers:      make(map[answerKey]domain.Answer),
	}
	return nil
}

func (s *Store) GetSession(_ context.Context, sessionID string) (domain.Session, domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.sessions[sessionID]
	if !ok {
		return domain.Session{}, domain.Quiz{}, domain.ErrSessionNotFound
	}
	return rec.sess, rec.snapshot, nil
}

func (s *Store) UpdateSession(_ context.Context, sess domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[sess.ID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	rec.sess = sess
	return nil
}

func (s *Store) UpsertParticipant(_ context.Context, sessionID string, p domain.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	rec.participants[p.UserID] = p
	return nil
}

func (s *Store) ListParticipants(_ context.Context, sessionID string) ([]domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.sessions[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	out := make([]domain.Participant, 0, len(rec.participants))
	for _, p := range rec.participants {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out, nil
}

func (s *Store) UpsertAnswer(_ context.Context, a domain.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[a.SessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	rec.answers[answerKey{a.QuestionID, a.UserID}] = a
	return nil
}

func (s *Store) GradeAnswer(_ context.Context, a domain.Answer, totalScore int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[a.SessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	key := answerKey{a.QuestionID, a.UserID}
	if _, ok := rec.answers[key]; !ok {
		return domain.ErrAnswerNotFound
	}
	rec.answers[key] = a
	p, ok := rec.participants[a.UserID]
	if ok {
		p.Score = totalScore
		rec.participants[a.UserID] = p
	}
	return nil
}

func (s *Store) ListAnswers(_ context.Context, sessionID string) ([]domain.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.sessions[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	out := make([]domain.Answer, 0, len(rec.answers))
	for _, a := range rec.answers {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].QuestionID != out[j].QuestionID {
			return out[i].QuestionID < out[j].QuestionID
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}
