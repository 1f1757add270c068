package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/domain"
)

// QuestionAdmin is the CRUD surface behind the admin question table.
type QuestionAdmin interface {
	Create(ctx context.Context, text string, options []domain.AdminOption) (domain.AdminQuestion, error)
	Update(ctx context.Context, id domain.ID, text string, options []domain.AdminOption) (domain.AdminQuestion, error)
	Delete(ctx context.Context, id domain.ID) error
}

// QuestionsHandler serves the paged admin listing and question CRUD.
// onMutate runs after any write so caches over the question set (answer
// key, quiz questions) can be invalidated.
type QuestionsHandler struct {
	listing  app.ListingSource
	admin    QuestionAdmin
	onMutate func(ctx context.Context)
}

func NewQuestionsHandler(listing app.ListingSource, admin QuestionAdmin, onMutate func(ctx context.Context)) *QuestionsHandler {
	if onMutate == nil {
		onMutate = func(context.Context) {}
	}
	return &QuestionsHandler{listing: listing, admin: admin, onMutate: onMutate}
}

type listEnvelope struct {
	Status  bool                   `json:"status"`
	Message string                 `json:"message"`
	Data    []domain.AdminQuestion `json:"data"`
	Meta    domain.PageMeta        `json:"meta"`
}

type itemEnvelope struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

type questionInput struct {
	Text    string               `json:"text"`
	Options []domain.AdminOption `json:"options"`
}

// ServeCollection handles /api/questions.
func (h *QuestionsHandler) ServeCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// ServeItem handles /api/questions/{id}.
func (h *QuestionsHandler) ServeItem(w http.ResponseWriter, r *http.Request) {
	id := domain.ID(strings.TrimPrefix(r.URL.Path, "/api/questions/"))
	if id.IsZero() {
		http.Error(w, "missing question id", http.StatusBadRequest)
		return
	}
	switch r.Method {
	case http.MethodPut:
		h.update(w, r, id)
	case http.MethodDelete:
		h.remove(w, r, id)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *QuestionsHandler) list(w http.ResponseWriter, r *http.Request) {
	pager := app.NewPager()
	query := r.URL.Query()
	if limit, err := strconv.Atoi(query.Get("limit")); err == nil {
		pager.SetLimit(limit)
	}
	if order := domain.SortDir(query.Get("order")); order != "" {
		pager.SetOrder(order)
	}
	if page, err := strconv.Atoi(query.Get("page")); err == nil {
		pager.SetPage(page)
	}
	activeOnly := query.Get("activeOnly") == "true"

	req := pager.Request()
	req.ActiveOnly = activeOnly
	items, meta, err := h.listing.FetchQuestionPage(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	// A delete may have emptied the requested page; step back once and
	// re-fetch instead of returning an empty page the table can't leave.
	if pager.Observe(meta, len(items)) {
		req = pager.Request()
		req.ActiveOnly = activeOnly
		items, meta, err = h.listing.FetchQuestionPage(r.Context(), req)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, listEnvelope{Status: true, Message: "ok", Data: items, Meta: meta})
}

func (h *QuestionsHandler) create(w http.ResponseWriter, r *http.Request) {
	if h.admin == nil {
		http.Error(w, "question management not configured", http.StatusServiceUnavailable)
		return
	}
	input, ok := decodeQuestionInput(w, r)
	if !ok {
		return
	}
	created, err := h.admin.Create(r.Context(), input.Text, input.Options)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.onMutate(r.Context())
	writeJSON(w, http.StatusCreated, itemEnvelope{Status: true, Message: "created", Data: created})
}

func (h *QuestionsHandler) update(w http.ResponseWriter, r *http.Request, id domain.ID) {
	if h.admin == nil {
		http.Error(w, "question management not configured", http.StatusServiceUnavailable)
		return
	}
	input, ok := decodeQuestionInput(w, r)
	if !ok {
		return
	}
	updated, err := h.admin.Update(r.Context(), id, input.Text, input.Options)
	if errors.Is(err, domain.ErrQuestionNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.onMutate(r.Context())
	writeJSON(w, http.StatusOK, itemEnvelope{Status: true, Message: "updated", Data: updated})
}

func (h *QuestionsHandler) remove(w http.ResponseWriter, r *http.Request, id domain.ID) {
	if h.admin == nil {
		http.Error(w, "question management not configured", http.StatusServiceUnavailable)
		return
	}
	err := h.admin.Delete(r.Context(), id)
	if errors.Is(err, domain.ErrQuestionNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.onMutate(r.Context())
	writeJSON(w, http.StatusOK, itemEnvelope{Status: true, Message: "deleted", Data: map[string]string{"message": "question deleted"}})
}

func decodeQuestionInput(w http.ResponseWriter, r *http.Request) (questionInput, bool) {
	var input questionInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid question payload"))
		return questionInput{}, false
	}
	if strings.TrimSpace(input.Text) == "" || len(input.Options) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("text and options are required"))
		return questionInput{}, false
	}
	correct := 0
	for _, opt := range input.Options {
		if opt.IsCorrect {
			correct++
		}
	}
	if correct != 1 {
		writeError(w, http.StatusBadRequest, errors.New("exactly one option must be correct"))
		return questionInput{}, false
	}
	return input, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, itemEnvelope{Status: false, Message: err.Error()})
}
