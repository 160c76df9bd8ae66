package domain

// EventType names a server-pushed event.
type EventType string

const (
	EventSessionState      EventType = "session-state"
	EventNewQuestion       EventType = "new-question"
	EventParticipantJoined EventType = "participant-joined"
	EventParticipantAnswer EventType = "participant-answered"
	EventCorrectionStarted EventType = "correction-started"
	EventAnswerGraded      EventType = "answer-graded"
	EventSessionEnded      EventType = "session-ended"
	EventError             EventType = "error"
)

// Event is the envelope every server push uses on the wire.
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

// SessionState is the authoritative projection returned to a joiner and on re-sync.
type SessionState struct {
	SessionID       string          `json:"sessionId"`
	Status          SessionStatus   `json:"status"`
	CurrentQuestion *PublicQuestion `json:"currentQuestion,omitempty"`
	Participants    []Participant   `json:"participants"`
}

// NewQuestionPayload carries the freshly selected question, correctness stripped.
type NewQuestionPayload struct {
	Question PublicQuestion `json:"question"`
}

// ParticipantJoinedPayload announces a new participant to the rest of the room.
type ParticipantJoinedPayload struct {
	Participant Participant `json:"participant"`
}

// ParticipantAnsweredPayload tells the host someone answered. The submitted
// text is withheld until the correction phase.
type ParticipantAnsweredPayload struct {
	ParticipantID   string `json:"participantId"`
	ParticipantName string `json:"participantName"`
	QuestionID      string `json:"questionId"`
}

// CorrectionStartedPayload signals the grading phase. Answer texts travel to
// the host through it; they are zeroed for every other audience member.
type CorrectionStartedPayload struct {
	Answers []Answer `json:"answers,omitempty"`
}

// AnswerGradedPayload publishes a grading outcome to the room.
type AnswerGradedPayload struct {
	UserID     string `json:"userId"`
	QuestionID string `json:"questionId"`
	IsCorrect  bool   `json:"isCorrect"`
	Points     int    `json:"points"`
	TotalScore int    `json:"totalScore"`
}

// SessionEndedPayload carries the frozen final leaderboard.
type SessionEndedPayload struct {
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}

// ErrorPayload is delivered to the originating actor only.
type ErrorPayload struct {
	Message string `json:"message"`
}
