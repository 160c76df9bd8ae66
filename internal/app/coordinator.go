package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"quizlive/internal/domain"
	"github.com/google/uuid"
)

// Coordinator routes inbound session events: it validates the actor's role,
// applies the mutation to the session state machine, writes it through the
// store, and broadcasts the outcome to the relevant audience. Nothing is
// broadcast unless the durable write succeeded.
type Coordinator struct {
	registry *Registry
	store    Store
	quizzes  QuizRepository
	codes    CodeIndex
	gen      *codeGenerator
	now      func() time.Time
	newID    func() string
}

func NewCoordinator(store Store, quizzes QuizRepository, codes CodeIndex, retention time.Duration) *Coordinator {
	return &Coordinator{
		registry: NewRegistry(store, retention),
		store:    store,
		quizzes:  quizzes,
		codes:    codes,
		gen:      newCodeGenerator(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// CreateSession starts a new waiting session for quizID hosted by hostID.
// The quiz's question set is snapshotted here and frozen for the session's
// lifetime, regardless of later edits to the quiz definition.
func (c *Coordinator) CreateSession(ctx context.Context, quizID, hostID string) (domain.Session, error) {
	quiz, err := c.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Session{}, err
	}

	sess := domain.Session{
		ID:        c.newID(),
		QuizID:    quizID,
		HostID:    hostID,
		Status:    domain.StatusWaiting,
		CreatedAt: c.now(),
	}

	// Claim a join code; regenerate on the (rare) collision.
	for attempt := 0; attempt < 5; attempt++ {
		code := c.gen.next()
		claimed, err := c.codes.Put(ctx, code, sess.ID)
		if err != nil {
			return domain.Session{}, fmt.Errorf("claim join code: %w", err)
		}
		if claimed {
			sess.Code = code
			break
		}
	}
	if sess.Code == "" {
		return domain.Session{}, fmt.Errorf("could not claim a unique join code")
	}

	if err := c.store.CreateSession(ctx, sess, quiz); err != nil {
		// Codes are never recycled, so an unreleased claim would orphan this
		// one forever.
		if rerr := c.codes.Release(ctx, sess.Code); rerr != nil {
			log.Printf("release join code %s: %v", sess.Code, rerr)
		}
		return domain.Session{}, fmt.Errorf("persist session: %w", err)
	}

	c.registry.put(newLiveSession(sess, quiz, c.now))
	log.Printf("session %s created (quiz %s, code %s)", sess.ID, quizID, sess.Code)
	return sess, nil
}

// ResolveCode maps a human-entered join code to a session id.
func (c *Coordinator) ResolveCode(ctx context.Context, code string) (string, error) {
	return c.codes.Resolve(ctx, code)
}

// Subscribe attaches a client to the session's event feed. The caller must
// invoke cancel to release the subscription.
func (c *Coordinator) Subscribe(ctx context.Context, sessionID, userID string) (<-chan domain.Event, func(), error) {
	ls, err := c.registry.get(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	sub, cancel := ls.subscribe(userID)
	return sub.ch, cancel, nil
}

// Join adds the actor as a participant (idempotent) and returns the
// authoritative projection. The host receives the projection but is never
// listed as a participant. Everyone else in the room learns about a genuinely
// new participant exactly once.
func (c *Coordinator) Join(ctx context.Context, sessionID, userID, displayName, avatar string) (domain.SessionState, error) {
	ls, err := c.registry.get(ctx, sessionID)
	if err != nil {
		return domain.SessionState{}, err
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	if userID == ls.sess.HostID {
		return ls.stateLocked(), nil
	}
	if _, ok := ls.participants[userID]; ok {
		// Re-join: same record, no second broadcast.
		return ls.stateLocked(), nil
	}

	p := domain.Participant{
		UserID:      userID,
		DisplayName: displayName,
		Avatar:      avatar,
		JoinedAt:    c.now(),
	}
	if err := c.store.UpsertParticipant(ctx, sessionID, p); err != nil {
		return domain.SessionState{}, fmt.Errorf("persist participant: %w", err)
	}
	ls.participants[userID] = &p
	ls.joinOrder = append(ls.joinOrder, userID)

	ls.publishLocked(domain.Event{
		Type:    domain.EventParticipantJoined,
		Payload: domain.ParticipantJoinedPayload{Participant: p},
	}, target{except: userID})
	return ls.stateLocked(), nil
}

// State returns the current projection without mutating anything; reconnecting
// clients use it instead of trusting stale local data.
func (c *Coordinator) State(ctx context.Context, sessionID string) (domain.SessionState, error) {
	ls, err := c.registry.get(ctx, sessionID)
	if err != nil {
		return domain.SessionState{}, err
	}
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return ls.stateLocked(), nil
}

// SelectQuestion makes questionID the live question and moves the session to
// active. Selecting a different question while active replaces the current
// one and resets who-has-answered tracking.
func (c *Coordinator) SelectQuestion(ctx context.Context, sessionID, actorID, questionID string) error {
	ls, err := c.registry.get(ctx, sessionID)
	if err != nil {
		return err
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	if actorID != ls.sess.HostID {
		return domain.ErrForbidden
	}
	if ls.sess.Status != domain.StatusWaiting && ls.sess.Status != domain.StatusActive {
		return domain.ErrInvalidState
	}
	question, ok := ls.quiz.QuestionByID(questionID)
	if !ok {
		return domain.ErrInvalidQuestion
	}

	updated := ls.sess
	updated.Status = domain.StatusActive
	updated.CurrentQuestionID = questionID
	if updated.StartedAt == nil {
		now := c.now()
		updated.StartedAt = &now
	}
	if err := c.store.UpdateSession(ctx, updated); err != nil {
		return fmt.Errorf("persist question selection: %w", err)
	}

	ls.sess = updated
	ls.answeredCurrent = make(map[string]bool)

	ls.publishLocked(domain.Event{
		Type:    domain.EventNewQuestion,
		Payload: domain.NewQuestionPayload{Question: question.Public()},
	}, toRoom)
	return nil
}

// SubmitAnswer upserts the actor's answer for the live question. The
// submitter gets the recorded answer back; the host is told that someone
// answered, with the text withheld until correction. An empty string is a
// valid submission: declining to answer is not the same as not answering.
func (c *Coordinator) SubmitAnswer(ctx context.Context, sessionID, actorID, questionID, text string) (domain.Answer, error) {
	ls, err := c.registry.get(ctx, sessionID)
	if err != nil {
		return domain.Answer{}, err
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	if actorID == ls.sess.HostID {
		return domain.Answer{}, domain.ErrForbidden
	}
	p, ok := ls.participants[actorID]
	if !ok {
		return domain.Answer{}, domain.ErrForbidden
	}
	if ls.sess.Status != domain.StatusActive || questionID != ls.sess.CurrentQuestionID {
		return domain.Answer{}, domain.ErrInvalidState
	}

	answer := domain.Answer{
		SessionID:   sessionID,
		QuestionID:  questionID,
		UserID:      actorID,
		Text:        text,
		SubmittedAt: c.now(),
	}
	if err := c.store.UpsertAnswer(ctx, answer); err != nil {
		return domain.Answer{}, fmt.Errorf("persist answer: %w", err)
	}

	ls.setAnswerLocked(answer)
	ls.answeredCurrent[actorID] = true

	ls.publishLocked(domain.Event{
		Type: domain.EventParticipantAnswer,
		Payload: domain.ParticipantAnsweredPayload{
			ParticipantID:   actorID,
			ParticipantName: p.DisplayName,
			QuestionID:      questionID,
		},
	}, target{only: ls.sess.HostID})
	return answer, nil
}

// StartCorrection moves an active session into the grading phase. Submitted
// answer texts are pushed to the host only; the rest of the room just learns
// that correction started.
func (c *Coordinator) StartCorrection(ctx context.Context, sessionID, actorID string) error {
	ls, err := c.registry.get(ctx, sessionID)
	if err != nil {
		return err
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	if actorID != ls.sess.HostID {
		return domain.ErrForbidden
	}
	if ls.sess.Status != domain.StatusActive {
		return domain.ErrInvalidState
	}

	updated := ls.sess
	updated.Status = domain.StatusCorrection
	if err := c.store.UpdateSession(ctx, updated); err != nil {
		return fmt.Errorf("persist correction start: %w", err)
	}
	ls.sess = updated

	ls.publishLocked(domain.Event{
		Type:    domain.EventCorrectionStarted,
		Payload: domain.CorrectionStartedPayload{Answers: ls.allAnswersLocked()},
	}, target{only: ls.sess.HostID})
	ls.publishLocked(domain.Event{
		Type:    domain.EventCorrectionStarted,
		Payload: domain.CorrectionStartedPayload{},
	}, target{except: ls.sess.HostID})
	return nil
}

// GradeAnswer records the host's verdict for one (question, participant)
// pair, recomputes that participant's running total, and publishes the
// outcome to the whole room.
func (c *Coordinator) GradeAnswer(ctx context.Context, sessionID, actorID, questionID, participantID string, isCorrect bool, points int) error {
	ls, err := c.registry.get(ctx, sessionID)
	if err != nil {
		return err
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	if actorID != ls.sess.HostID {
		return domain.ErrForbidden
	}
	if ls.sess.Status != domain.StatusCorrection {
		return domain.ErrInvalidState
	}
	p, ok := ls.participants[participantID]
	if !ok {
		return domain.ErrAnswerNotFound
	}
	existing, ok := ls.answerLocked(questionID, participantID)
	if !ok {
		return domain.ErrAnswerNotFound
	}

	graded := *existing
	graded.IsCorrect = &isCorrect
	graded.Points = &points
	total := ls.totalWithGradeLocked(participantID, graded)

	if err := c.store.GradeAnswer(ctx, graded, total); err != nil {
		return fmt.Errorf("persist grade: %w", err)
	}

	ls.setAnswerLocked(graded)
	p.Score = total

	ls.publishLocked(domain.Event{
		Type: domain.EventAnswerGraded,
		Payload: domain.AnswerGradedPayload{
			UserID:     participantID,
			QuestionID: questionID,
			IsCorrect:  isCorrect,
			Points:     points,
			TotalScore: total,
		},
	}, toRoom)
	return nil
}

// EndSession completes the session, freezing and broadcasting the final
// leaderboard exactly once. A second call for an already completed session
// is a no-op so duplicate client retries stay harmless.
func (c *Coordinator) EndSession(ctx context.Context, sessionID, actorID string) error {
	ls, err := c.registry.get(ctx, sessionID)
	if err != nil {
		return err
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	if actorID != ls.sess.HostID {
		return domain.ErrForbidden
	}
	if ls.sess.Status == domain.StatusCompleted {
		return nil
	}

	updated := ls.sess
	updated.Status = domain.StatusCompleted
	now := c.now()
	updated.EndedAt = &now
	if err := c.store.UpdateSession(ctx, updated); err != nil {
		return fmt.Errorf("persist session end: %w", err)
	}

	ls.sess = updated
	ls.leaderboard = ls.computeLeaderboardLocked()

	ls.publishLocked(domain.Event{
		Type:    domain.EventSessionEnded,
		Payload: domain.SessionEndedPayload{Leaderboard: ls.leaderboard},
	}, toRoom)

	c.registry.scheduleEviction(sessionID)
	log.Printf("session %s completed, %d participants on the board", sessionID, len(ls.leaderboard))
	return nil
}

// Leaderboard returns the frozen scoreboard of a completed session.
func (c *Coordinator) Leaderboard(ctx context.Context, sessionID string) ([]domain.LeaderboardEntry, error) {
	ls, err := c.registry.get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if ls.sess.Status != domain.StatusCompleted {
		return nil, domain.ErrInvalidState
	}
	out := make([]domain.LeaderboardEntry, len(ls.leaderboard))
	copy(out, ls.leaderboard)
	return out, nil
}

// Registry exposes the session registry, mainly for servers that want to
// report cache occupancy.
func (c *Coordinator) Registry() *Registry {
	return c.registry
}
