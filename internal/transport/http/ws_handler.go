package http

import (
	"encoding/json"
	"log"
	"net/http"

	"quizlive/internal/app"
	"quizlive/internal/domain"
	"github.com/gorilla/websocket"
)

// WSHandler wires websocket connections into the session coordinator. The
// acting identity is fixed at upgrade time from the connection parameters;
// command payloads never carry a caller identity.
type WSHandler struct {
	coordinator *app.Coordinator
	upgrader    websocket.Upgrader
}

func NewWSHandler(coordinator *app.Coordinator) *WSHandler {
	return &WSHandler{
		coordinator: coordinator,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type selectQuestionPayload struct {
	QuestionID string `json:"questionId"`
}

type submitAnswerPayload struct {
	QuestionID string `json:"questionId"`
	Answer     string `json:"answer"`
}

type gradeAnswerPayload struct {
	QuestionID string `json:"questionId"`
	UserID     string `json:"userId"`
	IsCorrect  bool   `json:"isCorrect"`
	Points     int    `json:"points"`
}

// ServeWS upgrades the request and runs the connection's read loop.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	userID := r.URL.Query().Get("userId")
	displayName := r.URL.Query().Get("name")
	avatar := r.URL.Query().Get("avatar")
	if sessionID == "" || userID == "" || displayName == "" {
		http.Error(w, "missing sessionId, userId, or name", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	state, err := h.coordinator.Join(r.Context(), sessionID, userID, displayName, avatar)
	if err != nil {
		_ = conn.WriteJSON(domain.Event{Type: domain.EventError, Payload: domain.ErrorPayload{Message: err.Error()}})
		return
	}

	updates, cancel, err := h.coordinator.Subscribe(r.Context(), sessionID, userID)
	if err != nil {
		_ = conn.WriteJSON(domain.Event{Type: domain.EventError, Payload: domain.ErrorPayload{Message: err.Error()}})
		return
	}
	defer cancel()

	send := make(chan domain.Event, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Single writer goroutine; everything outbound funnels through send.
	go func() {
		defer close(writerDone)
		for ev := range send {
			if err := conn.WriteJSON(ev); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case ev, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- ev:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- domain.Event{Type: domain.EventSessionState, Payload: state}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		h.dispatch(r, send, sessionID, userID, inbound)
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// dispatch maps one inbound command to a coordinator call. Failures are
// reported to this connection only, never to the room.
func (h *WSHandler) dispatch(r *http.Request, send chan<- domain.Event, sessionID, userID string, inbound inboundMessage) {
	ctx := r.Context()
	switch inbound.Type {
	case "session-state":
		state, err := h.coordinator.State(ctx, sessionID)
		if err != nil {
			h.fail(send, err)
			return
		}
		send <- domain.Event{Type: domain.EventSessionState, Payload: state}
	case "select-question":
		var payload selectQuestionPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			h.fail(send, err)
			return
		}
		if err := h.coordinator.SelectQuestion(ctx, sessionID, userID, payload.QuestionID); err != nil {
			h.fail(send, err)
		}
	case "submit-answer":
		var payload submitAnswerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			h.fail(send, err)
			return
		}
		answer, err := h.coordinator.SubmitAnswer(ctx, sessionID, userID, payload.QuestionID, payload.Answer)
		if err != nil {
			h.fail(send, err)
			return
		}
		// Acknowledge only the submitter; the host hears through its own feed.
		send <- domain.Event{Type: domain.EventParticipantAnswer, Payload: domain.ParticipantAnsweredPayload{
			ParticipantID: userID,
			QuestionID:    answer.QuestionID,
		}}
	case "start-correction":
		if err := h.coordinator.StartCorrection(ctx, sessionID, userID); err != nil {
			h.fail(send, err)
		}
	case "grade-answer":
		var payload gradeAnswerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			h.fail(send, err)
			return
		}
		if err := h.coordinator.GradeAnswer(ctx, sessionID, userID, payload.QuestionID, payload.UserID, payload.IsCorrect, payload.Points); err != nil {
			h.fail(send, err)
		}
	case "end-session":
		if err := h.coordinator.EndSession(ctx, sessionID, userID); err != nil {
			h.fail(send, err)
		}
	default:
		send <- domain.Event{Type: domain.EventError, Payload: domain.ErrorPayload{Message: "unsupported message type"}}
	}
}

// fail reports a command failure to the issuing connection. Validation
// failures are the actor's business alone; anything else is a persistence
// problem worth a server-side log line.
func (h *WSHandler) fail(send chan<- domain.Event, err error) {
	if !domain.IsValidation(err) {
		log.Printf("ws command failed: %v", err)
	}
	send <- errorEvent(err)
}

func errorEvent(err error) domain.Event {
	return domain.Event{Type: domain.EventError, Payload: domain.ErrorPayload{Message: err.Error()}}
}
