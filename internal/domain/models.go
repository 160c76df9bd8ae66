package domain

import "time"

// SessionStatus is the lifecycle state of a live session.
type SessionStatus string

const (
	StatusWaiting    SessionStatus = "waiting"
	StatusActive     SessionStatus = "active"
	StatusCorrection SessionStatus = "correction"
	StatusCompleted  SessionStatus = "completed"
)

// QuestionKind distinguishes how a question is answered and graded.
type QuestionKind string

const (
	KindMultipleChoice QuestionKind = "multiple-choice"
	KindFreeAnswer     QuestionKind = "free-answer"
)

// Session is one run of a quiz, from creation to completion.
type Session struct {
	ID                string        `json:"id"`
	Code              string        `json:"code"`
	QuizID            string        `json:"quizId"`
	HostID            string        `json:"hostId"`
	Status            SessionStatus `json:"status"`
	CurrentQuestionID string        `json:"currentQuestionId,omitempty"`
	CreatedAt         time.Time     `json:"createdAt"`
	StartedAt         *time.Time    `json:"startedAt,omitempty"`
	EndedAt           *time.Time    `json:"endedAt,omitempty"`
}

// Participant is a non-host user who joined a session.
type Participant struct {
	UserID      string    `json:"userId"`
	DisplayName string    `json:"displayName"`
	Avatar      string    `json:"avatar,omitempty"`
	Score       int       `json:"score"`
	JoinedAt    time.Time `json:"joinedAt"`
}

// Option is a possible answer for a multiple-choice question.
type Option struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct,omitempty"`
}

// Question is owned by the quiz and never mutated by the coordinator.
type Question struct {
	ID       string       `json:"id"`
	Prompt   string       `json:"prompt"`
	ImageURL string       `json:"imageUrl,omitempty"`
	Kind     QuestionKind `json:"kind"`
	Options  []Option     `json:"options,omitempty"`
	Position int          `json:"position"`
}

// Quiz is the immutable question set a session snapshots at creation.
type Quiz struct {
	ID        string     `json:"id"`
	Title     string     `json:"title,omitempty"`
	Questions []Question `json:"questions"`
}

// QuestionByID returns the question with the given id, if present.
func (q Quiz) QuestionByID(id string) (Question, bool) {
	for i := range q.Questions {
		if q.Questions[i].ID == id {
			return q.Questions[i], true
		}
	}
	return Question{}, false
}

// Answer is one participant's submission for one question of one session.
// The (SessionID, QuestionID, UserID) triple is unique; resubmission
// overwrites text and timestamp while the question is still live.
type Answer struct {
	SessionID   string    `json:"sessionId"`
	QuestionID  string    `json:"questionId"`
	UserID      string    `json:"userId"`
	Text        string    `json:"text"`
	SubmittedAt time.Time `json:"submittedAt"`
	IsCorrect   *bool     `json:"isCorrect,omitempty"`
	Points      *int      `json:"points,omitempty"`
}

// Graded reports whether the host has graded this answer.
func (a Answer) Graded() bool {
	return a.IsCorrect != nil
}

// LeaderboardEntry is one row of the frozen final scoreboard.
type LeaderboardEntry struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Avatar      string `json:"avatar,omitempty"`
	Score       int    `json:"score"`
}

// PublicOption is an option with its correctness flag stripped.
type PublicOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// PublicQuestion is the participant-safe view of a question. The
// correct-answer metadata never leaves the server through this type.
type PublicQuestion struct {
	ID       string         `json:"id"`
	Prompt   string         `json:"prompt"`
	ImageURL string         `json:"imageUrl,omitempty"`
	Kind     QuestionKind   `json:"kind"`
	Options  []PublicOption `json:"options,omitempty"`
	Position int            `json:"position"`
}

// Public strips correct-answer metadata from a question.
func (q Question) Public() PublicQuestion {
	pub := PublicQuestion{
		ID:       q.ID,
		Prompt:   q.Prompt,
		ImageURL: q.ImageURL,
		Kind:     q.Kind,
		Position: q.Position,
	}
	if len(q.Options) > 0 {
		pub.Options = make([]PublicOption, len(q.Options))
		for i, opt := range q.Options {
			pub.Options[i] = PublicOption{ID: opt.ID, Text: opt.Text}
		}
	}
	return pub
}
