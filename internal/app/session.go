package app

import (
	"sort"
	"sync"
	"time"

	"quizlive/internal/domain"
)

// subscriber is one connected client's event feed. Delivery is non-blocking;
// a slow client drops events and re-syncs via session-state on reconnect.
type subscriber struct {
	userID string
	ch     chan domain.Event
}

// target selects the audience for one published event.
type target struct {
	only   string // deliver to this user id only, when set
	except string // skip this user id, when set
}

var toRoom = target{}

// liveSession is the in-memory state machine for one running session. All
// access goes through mu; the coordinator holds it for the full duration of
// each mutating operation, including the durable write, so events for one
// session apply strictly one at a time.
type liveSession struct {
	mu sync.Mutex

	sess         domain.Session
	quiz         domain.Quiz
	participants map[string]*domain.Participant
	joinOrder    []string
	// answers is keyed question id -> user id; at most one entry per triple.
	answers map[string]map[string]*domain.Answer
	// answeredCurrent tracks who answered the currently selected question.
	// Selecting a new question resets it.
	answeredCurrent map[string]bool
	leaderboard     []domain.LeaderboardEntry

	subscribers map[*subscriber]struct{}
	now         func() time.Time
}

func newLiveSession(sess domain.Session, quiz domain.Quiz, now func() time.Time) *liveSession {
	return &liveSession{
		sess:            sess,
		quiz:            quiz,
		participants:    make(map[string]*domain.Participant),
		answers:         make(map[string]map[string]*domain.Answer),
		answeredCurrent: make(map[string]bool),
		subscribers:     make(map[*subscriber]struct{}),
		now:             now,
	}
}

// seed loads durable participants and answers into a freshly hydrated session.
func (s *liveSession) seed(participants []domain.Participant, answers []domain.Answer) {
	for i := range participants {
		p := participants[i]
		s.participants[p.UserID] = &p
		s.joinOrder = append(s.joinOrder, p.UserID)
	}
	sort.SliceStable(s.joinOrder, func(i, j int) bool {
		return s.participants[s.joinOrder[i]].JoinedAt.Before(s.participants[s.joinOrder[j]].JoinedAt)
	})
	for i := range answers {
		a := answers[i]
		byUser, ok := s.answers[a.QuestionID]
		if !ok {
			byUser = make(map[string]*domain.Answer)
			s.answers[a.QuestionID] = byUser
		}
		byUser[a.UserID] = &a
		if a.QuestionID == s.sess.CurrentQuestionID {
			s.answeredCurrent[a.UserID] = true
		}
	}
	if s.sess.Status == domain.StatusCompleted {
		s.leaderboard = s.computeLeaderboardLocked()
	}
}

func (s *liveSession) subscribe(userID string) (*subscriber, func()) {
	sub := &subscriber{userID: userID, ch: make(chan domain.Event, 16)}
	s.mu.Lock()
	s.subscribers[sub] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[sub]; ok {
			delete(s.subscribers, sub)
			close(sub.ch)
		}
		s.mu.Unlock()
	}
	return sub, cancel
}

// publishLocked fans one event out to the selected audience. Sends never
// block: a full buffer means the client is too slow and the event is dropped.
func (s *liveSession) publishLocked(ev domain.Event, t target) {
	for sub := range s.subscribers {
		if t.only != "" && sub.userID != t.only {
			continue
		}
		if t.except != "" && sub.userID == t.except {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
		}
	}
}

// stateLocked builds the authoritative projection served to joiners and on re-sync.
func (s *liveSession) stateLocked() domain.SessionState {
	state := domain.SessionState{
		SessionID:    s.sess.ID,
		Status:       s.sess.Status,
		Participants: make([]domain.Participant, 0, len(s.participants)),
	}
	for _, userID := range s.joinOrder {
		state.Participants = append(state.Participants, *s.participants[userID])
	}
	if s.sess.CurrentQuestionID != "" {
		if q, ok := s.quiz.QuestionByID(s.sess.CurrentQuestionID); ok {
			pub := q.Public()
			state.CurrentQuestion = &pub
		}
	}
	return state
}

func (s *liveSession) answerLocked(questionID, userID string) (*domain.Answer, bool) {
	byUser, ok := s.answers[questionID]
	if !ok {
		return nil, false
	}
	a, ok := byUser[userID]
	return a, ok
}

func (s *liveSession) setAnswerLocked(a domain.Answer) {
	byUser, ok := s.answers[a.QuestionID]
	if !ok {
		byUser = make(map[string]*domain.Answer)
		s.answers[a.QuestionID] = byUser
	}
	byUser[a.UserID] = &a
}

// totalWithGradeLocked sums the participant's graded points as if grade were
// already applied, so the durable write can carry the new total.
func (s *liveSession) totalWithGradeLocked(userID string, grade domain.Answer) int {
	total := 0
	for questionID, byUser := range s.answers {
		a, ok := byUser[userID]
		if !ok {
			continue
		}
		if questionID == grade.QuestionID {
			continue
		}
		if a.Graded() && a.Points != nil {
			total += *a.Points
		}
	}
	if grade.Points != nil {
		total += *grade.Points
	}
	return total
}

// allAnswersLocked flattens the two-level answer store, used when correction
// starts to hand the host everything submitted so far.
func (s *liveSession) allAnswersLocked() []domain.Answer {
	out := make([]domain.Answer, 0)
	for _, byUser := range s.answers {
		for _, a := range byUser {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].QuestionID != out[j].QuestionID {
			return out[i].QuestionID < out[j].QuestionID
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}

// computeLeaderboardLocked orders participants by score descending, breaking
// ties by earliest join time, then user id.
func (s *liveSession) computeLeaderboardLocked() []domain.LeaderboardEntry {
	entries := make([]domain.LeaderboardEntry, 0, len(s.participants))
	for _, userID := range s.joinOrder {
		p := s.participants[userID]
		entries = append(entries, domain.LeaderboardEntry{
			UserID:      p.UserID,
			DisplayName: p.DisplayName,
			Avatar:      p.Avatar,
			Score:       p.Score,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		pi := s.participants[entries[i].UserID]
		pj := s.participants[entries[j].UserID]
		if !pi.JoinedAt.Equal(pj.JoinedAt) {
			return pi.JoinedAt.Before(pj.JoinedAt)
		}
		return entries[i].UserID < entries[j].UserID
	})
	return entries
}
