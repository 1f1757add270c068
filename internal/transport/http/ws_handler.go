package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/domain"
	"github.com/gorilla/websocket"
)

// WSHandler drives one quiz attempt engine per connected client over a
// websocket. The engine persists under a namespace derived from the client
// ID, so a reconnecting client rehydrates its attempt where it left off.
type WSHandler struct {
	states   app.StateStore
	source   app.QuestionSource
	sink     app.SubmissionSink
	upgrader websocket.Upgrader
}

func NewWSHandler(states app.StateStore, source app.QuestionSource, sink app.SubmissionSink) *WSHandler {
	return &WSHandler{
		states: states,
		source: source,
		sink:   sink,
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

type answerPayload struct {
	QuestionID domain.ID `json:"questionId"`
	OptionKey  string    `json:"optionKey"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// attemptSnapshot mirrors what the quiz screen renders: lifecycle, cursor,
// questions, recorded answers, live elapsed seconds and the final result.
type attemptSnapshot struct {
	Lifecycle  app.Lifecycle      `json:"lifecycle"`
	Index      int                `json:"index"`
	Total      int                `json:"total"`
	Questions  []domain.Question  `json:"questions,omitempty"`
	Answers    map[string]string  `json:"answers"`
	ElapsedSec int                `json:"elapsedSec"`
	Result     *domain.QuizResult `json:"result,omitempty"`
}

// ServeWS upgrades the request and runs the attempt message loop.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("clientId")
	if clientID == "" {
		http.Error(w, "missing clientId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	engine := app.NewEngine(h.states, "client:"+clientID, h.sink)
	engine.LoadPersisted()
	engine.Ready()

	send := make(chan any, 16)
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	send <- outboundMessage[attemptSnapshot]{Type: "state", Payload: snapshot(engine)}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "start":
			// Fetch under a fresh generation; a stale response from an
			// earlier start must never be applied over newer state.
			gen := engine.BeginLoad()
			questions, err := h.source.FetchQuizQuestions(r.Context())
			if err != nil {
				send <- errorMessage("io", err)
				continue
			}
			if !engine.ApplyQuestions(gen, questions) {
				continue
			}
			send <- outboundMessage[attemptSnapshot]{Type: "state", Payload: snapshot(engine)}
		case "begin":
			if err := engine.Begin(); err != nil {
				send <- errorMessage("transition", err)
				continue
			}
			send <- outboundMessage[attemptSnapshot]{Type: "state", Payload: snapshot(engine)}
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errorMessage("badPayload", errors.New("invalid answer payload"))
				continue
			}
			if err := engine.Answer(payload.QuestionID, payload.OptionKey); err != nil {
				send <- errorMessage("transition", err)
				continue
			}
			send <- outboundMessage[attemptSnapshot]{Type: "state", Payload: snapshot(engine)}
		case "next":
			engine.Next()
			send <- outboundMessage[attemptSnapshot]{Type: "state", Payload: snapshot(engine)}
		case "prev":
			engine.Prev()
			send <- outboundMessage[attemptSnapshot]{Type: "state", Payload: snapshot(engine)}
		case "submit":
			result, err := engine.Submit(r.Context())
			if err != nil {
				send <- errorMessage(errorCode(err), err)
				continue
			}
			send <- outboundMessage[domain.QuizResult]{Type: "result", Payload: result}
		case "retake":
			if err := engine.Retake(); err != nil {
				send <- errorMessage("transition", err)
				continue
			}
			send <- outboundMessage[attemptSnapshot]{Type: "state", Payload: snapshot(engine)}
		default:
			send <- errorMessage("badPayload", errors.New("unsupported message type"))
		}
	}

	close(send)
	<-writerDone
}

func snapshot(engine *app.Engine) attemptSnapshot {
	questions := engine.Questions()
	snap := attemptSnapshot{
		Lifecycle:  engine.State(),
		Index:      engine.CurrentIndex(),
		Total:      len(questions),
		Questions:  questions,
		Answers:    engine.Answers(),
		ElapsedSec: int(engine.Elapsed() / time.Second),
	}
	if result, ok := engine.Result(); ok {
		snap.Result = &result
	}
	return snap
}

func errorMessage(code string, err error) outboundMessage[errorPayload] {
	return outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Code: code, Message: err.Error()}}
}

// errorCode separates a data-contract violation inside reconciliation from
// an ordinary transient failure; clients surface them differently.
func errorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrMissingOptionID),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrOptionNotFound):
		return "reconciliation"
	case errors.Is(err, domain.ErrSubmitPending),
		errors.Is(err, domain.ErrNotActive),
		errors.Is(err, domain.ErrAttemptCompleted),
		errors.Is(err, domain.ErrNotHydrated),
		errors.Is(err, domain.ErrNoQuestions):
		return "transition"
	default:
		return "io"
	}
}
