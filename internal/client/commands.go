package client

import "encoding/json"

type command struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

func marshalCommand(typ string, payload any) []byte {
	data, _ := json.Marshal(command{Type: typ, Payload: payload})
	return data
}

// RequestState asks the server for the authoritative projection; issued
// after a reconnect instead of trusting the local mirror.
func RequestState() []byte {
	return marshalCommand("session-state", nil)
}

// SelectQuestion is the host command that makes questionID live.
func SelectQuestion(questionID string) []byte {
	return marshalCommand("select-question", map[string]string{"questionId": questionID})
}

// SubmitAnswer submits answer text for the current question. An empty string
// is a deliberate "no answer" submission.
func SubmitAnswer(questionID, answer string) []byte {
	return marshalCommand("submit-answer", map[string]string{"questionId": questionID, "answer": answer})
}

// StartCorrection is the host command that opens the grading phase.
func StartCorrection() []byte {
	return marshalCommand("start-correction", nil)
}

// GradeAnswer is the host command recording a verdict for one participant's answer.
func GradeAnswer(questionID, userID string, isCorrect bool, points int) []byte {
	return marshalCommand("grade-answer", map[string]any{
		"questionId": questionID,
		"userId":     userID,
		"isCorrect":  isCorrect,
		"points":     points,
	})
}

// EndSession is the host command that completes the session.
func EndSession() []byte {
	return marshalCommand("end-session", nil)
}
