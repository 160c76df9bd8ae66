package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a session id is unknown to both memory and storage.
	ErrSessionNotFound = errors.New("session not found")
	// ErrForbidden is returned when the acting user lacks the required session role.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidState is returned when an operation is not valid in the session's current lifecycle state.
	ErrInvalidState = errors.New("invalid session state")
	// ErrInvalidQuestion is returned when a question id does not belong to the session's quiz.
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrAnswerNotFound is returned when grading targets a (question, participant) pair with no submission.
	ErrAnswerNotFound = errors.New("answer not found")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
)

// IsValidation reports whether err is one of the validation sentinels that
// must be reported to the originating actor only. Anything else surfaced
// from a mutating operation is a persistence failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrInvalidQuestion) ||
		errors.Is(err, ErrAnswerNotFound) ||
		errors.Is(err, ErrQuizNotFound)
}
