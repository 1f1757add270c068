package app

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"quiz-attempt-service/internal/domain"
)

// QuestionSource fetches the ordered question list for a new attempt.
// Repeated calls are idempotent from the engine's point of view, though the
// server may rotate the set between attempts.
type QuestionSource interface {
	FetchQuizQuestions(ctx context.Context) ([]domain.Question, error)
}

// SubmissionSink accepts a reconciled payload and returns the scored result.
type SubmissionSink interface {
	SubmitAnswers(ctx context.Context, payload domain.SubmissionPayload) (domain.QuizResult, error)
}

// ListingSource serves one page of admin questions plus authoritative metadata.
type ListingSource interface {
	FetchQuestionPage(ctx context.Context, req domain.PageRequest) ([]domain.AdminQuestion, domain.PageMeta, error)
}

// StateStore is durable client-side storage. Writes are fire-and-forget and
// reads best-effort; each engine owns exactly one namespace.
type StateStore interface {
	ReadState(namespace string) ([]byte, bool)
	WriteState(namespace string, data []byte)
	DeleteState(namespace string)
}

// Lifecycle is the three-state progression of one quiz attempt.
type Lifecycle string

const (
	Idle      Lifecycle = "idle"
	Active    Lifecycle = "active"
	Completed Lifecycle = "completed"
)

const stateVersion = 1

// persistedState is the storage form of an attempt. startTs travels as unix
// milliseconds so round-tripping does not depend on time.Time encoding.
type persistedState struct {
	Version   int                `json:"version"`
	Questions []domain.Question  `json:"questions"`
	Index     int                `json:"index"`
	Answers   map[string]string  `json:"answers"`
	StartTs   int64              `json:"startTs,omitempty"`
	Lifecycle Lifecycle          `json:"lifecycle"`
	Result    *domain.QuizResult `json:"result,omitempty"`
}

// Engine owns the state of a single quiz attempt: question list, cursor,
// answer map, session clock and lifecycle. All mutations go through it (one
// logical writer); every accepted transition is followed by a full-state
// write to the store. Callers must run LoadPersisted and Ready before
// issuing transitions.
type Engine struct {
	store     StateStore
	namespace string
	sink      SubmissionSink
	now       func() time.Time

	mu            sync.Mutex
	hydrated      bool
	generation    uint64
	questions     []domain.Question
	index         int
	answers       map[string]string
	startTs       time.Time
	lifecycle     Lifecycle
	result        *domain.QuizResult
	submitPending bool
}

func NewEngine(store StateStore, namespace string, sink SubmissionSink) *Engine {
	return NewEngineWithClock(store, namespace, sink, time.Now)
}

// NewEngineWithClock allows deterministic timestamps in tests.
func NewEngineWithClock(store StateStore, namespace string, sink SubmissionSink, now func() time.Time) *Engine {
	return &Engine{
		store:     store,
		namespace: namespace,
		sink:      sink,
		now:       now,
		answers:   make(map[string]string),
		lifecycle: Idle,
	}
}

// LoadPersisted restores the last written state, if any. Unreadable or
// unversioned bytes are treated as absent state: the attempt falls back to
// an empty Idle session and startup proceeds.
func (e *Engine) LoadPersisted() {
	e.mu.Lock()
	defer e.mu.Unlock()

	data, ok := e.store.ReadState(e.namespace)
	if !ok {
		return
	}
	var st persistedState
	if err := json.Unmarshal(data, &st); err != nil {
		log.Printf("discarding corrupt session state in %q: %v", e.namespace, err)
		return
	}
	if st.Version != stateVersion {
		log.Printf("discarding session state in %q: unknown version %d", e.namespace, st.Version)
		return
	}

	e.questions = st.Questions
	e.answers = st.Answers
	if e.answers == nil {
		e.answers = make(map[string]string)
	}
	e.index = st.Index
	if len(e.questions) == 0 {
		e.index = 0
	} else if e.index < 0 {
		e.index = 0
	} else if e.index >= len(e.questions) {
		e.index = len(e.questions) - 1
	}
	if st.StartTs != 0 {
		e.startTs = time.UnixMilli(st.StartTs)
	}
	e.lifecycle = st.Lifecycle
	if e.lifecycle == "" || (e.lifecycle == Active && len(e.questions) == 0) {
		e.lifecycle = Idle
	}
	e.result = st.Result
}

// Ready marks hydration complete. Transitions issued before Ready are
// rejected so UI events cannot race the storage read.
func (e *Engine) Ready() {
	e.mu.Lock()
	e.hydrated = true
	e.mu.Unlock()
}

// BeginLoad opens a new load generation and returns its token. A response
// applied with an older token is stale and gets discarded, so an in-flight
// fetch can never clobber state installed by a newer load.
func (e *Engine) BeginLoad() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.generation++
	return e.generation
}

// ApplyQuestions installs a fetched question list for the given generation.
// It reports whether the list was applied; false means the response was
// stale and ignored. Loading resets the cursor and answers but does not
// start timing.
func (e *Engine) ApplyQuestions(gen uint64, questions []domain.Question) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.hydrated || gen != e.generation {
		return false
	}
	e.questions = questions
	e.index = 0
	e.answers = make(map[string]string)
	e.startTs = time.Time{}
	e.lifecycle = Idle
	e.persistLocked()
	return true
}

// Begin starts the attempt clock. It requires a non-empty question list and
// clears any stale answers or prior result.
func (e *Engine) Begin() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.hydrated {
		return domain.ErrNotHydrated
	}
	if e.lifecycle == Completed {
		return domain.ErrAttemptCompleted
	}
	if len(e.questions) == 0 {
		return domain.ErrNoQuestions
	}
	e.answers = make(map[string]string)
	e.result = nil
	e.startTs = e.now()
	e.lifecycle = Active
	e.persistLocked()
	return nil
}

// Answer records the chosen option key for a question, overwriting any
// previous choice. The key is not validated against the current option
// list here; that is deferred to reconciliation so a reloading option list
// cannot block interaction.
func (e *Engine) Answer(questionID domain.ID, optionKey string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.hydrated {
		return domain.ErrNotHydrated
	}
	if e.lifecycle != Active {
		return domain.ErrNotActive
	}
	e.answers[questionID.String()] = optionKey
	e.persistLocked()
	return nil
}

// Next advances the cursor, saturating at the last question.
func (e *Engine) Next() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.hydrated {
		return
	}
	if e.index < len(e.questions)-1 {
		e.index++
		e.persistLocked()
	}
}

// Prev moves the cursor back, saturating at zero.
func (e *Engine) Prev() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.hydrated {
		return
	}
	if e.index > 0 {
		e.index--
		e.persistLocked()
	}
}

// Elapsed reports attempt time: live while Active, frozen at the submitted
// snapshot once Completed, zero otherwise.
func (e *Engine) Elapsed() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch {
	case e.lifecycle == Active && !e.startTs.IsZero():
		return e.now().Sub(e.startTs)
	case e.lifecycle == Completed && e.result != nil:
		return time.Duration(e.result.TimeTakenSec) * time.Second
	default:
		return 0
	}
}

// Submit reconciles the answer map into a payload, snapshots elapsed time
// once, and hands the payload to the sink. Reconciliation failure or a sink
// error leaves the attempt Active and unchanged. Concurrent submits are
// rejected while one is in flight.
func (e *Engine) Submit(ctx context.Context) (domain.QuizResult, error) {
	e.mu.Lock()
	if !e.hydrated {
		e.mu.Unlock()
		return domain.QuizResult{}, domain.ErrNotHydrated
	}
	if e.lifecycle != Active {
		e.mu.Unlock()
		return domain.QuizResult{}, domain.ErrNotActive
	}
	if e.submitPending {
		e.mu.Unlock()
		return domain.QuizResult{}, domain.ErrSubmitPending
	}

	payload, err := Reconcile(e.questions, e.answers)
	if err != nil {
		e.mu.Unlock()
		return domain.QuizResult{}, err
	}
	// Snapshot once, at the instant of submission; the payload carries this
	// value regardless of how long the sink takes.
	payload.TimeTakenSec = int(e.now().Sub(e.startTs) / time.Second)
	e.submitPending = true
	e.mu.Unlock()

	result, err := e.sink.SubmitAnswers(ctx, payload)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.submitPending = false
	if err != nil {
		return domain.QuizResult{}, err
	}
	if e.lifecycle != Active {
		// A retake won the race while the sink was in flight; the stale
		// result must not be applied over the fresh session.
		return result, nil
	}
	e.result = &result
	e.lifecycle = Completed
	e.startTs = time.Time{}
	e.persistLocked()
	return result, nil
}

// Retake discards all attempt state and returns to Idle. The caller is
// responsible for requesting a fresh question list; the bumped generation
// guarantees a still-in-flight older fetch cannot resurrect the old one.
func (e *Engine) Retake() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.hydrated {
		return domain.ErrNotHydrated
	}
	e.generation++
	e.questions = nil
	e.index = 0
	e.answers = make(map[string]string)
	e.startTs = time.Time{}
	e.lifecycle = Idle
	e.result = nil
	e.persistLocked()
	return nil
}

// SubmitPending reports whether a submission is currently in flight.
// Callers use it to disable the submit affordance and avoid duplicates.
func (e *Engine) SubmitPending() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.submitPending
}

// Hydrated reports whether Ready has been called.
func (e *Engine) Hydrated() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hydrated
}

// State reports the current lifecycle phase.
func (e *Engine) State() Lifecycle {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lifecycle
}

// Questions returns the loaded question list.
func (e *Engine) Questions() []domain.Question {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.questions
}

// CurrentIndex returns the cursor position.
func (e *Engine) CurrentIndex() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.index
}

// Current returns the question under the cursor, if any.
func (e *Engine) Current() (domain.Question, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.questions) == 0 {
		return domain.Question{}, false
	}
	return e.questions[e.index], true
}

// AnswerFor looks up the recorded option key for a question.
func (e *Engine) AnswerFor(questionID domain.ID) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	key, ok := e.answers[questionID.String()]
	return key, ok
}

// Answers returns a copy of the answer map.
func (e *Engine) Answers() map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]string, len(e.answers))
	for k, v := range e.answers {
		out[k] = v
	}
	return out
}

// Result returns the stored attempt result once Completed.
func (e *Engine) Result() (domain.QuizResult, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.result == nil {
		return domain.QuizResult{}, false
	}
	return *e.result, true
}

// StartedAt returns the attempt start time while one is running.
func (e *Engine) StartedAt() (time.Time, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.startTs.IsZero() {
		return time.Time{}, false
	}
	return e.startTs, true
}

func (e *Engine) persistLocked() {
	st := persistedState{
		Version:   stateVersion,
		Questions: e.questions,
		Index:     e.index,
		Answers:   e.answers,
		Lifecycle: e.lifecycle,
		Result:    e.result,
	}
	if !e.startTs.IsZero() {
		st.StartTs = e.startTs.UnixMilli()
	}
	data, err := json.Marshal(st)
	if err != nil {
		log.Printf("marshal session state: %v", err)
		return
	}
	e.store.WriteState(e.namespace, data)
}
