package domain

import "time"

// Option is one possible answer of a public quiz question. The server may
// withhold option IDs on the quiz endpoint so clients cannot infer the
// correct choice; position then stands in for identity within one fetch.
type Option struct {
	ID   ID     `json:"id,omitempty"`
	Text string `json:"text"`
}

// Question is the public quiz shape served to attempt clients. Option order
// is significant: position is part of option identity when an explicit id
// is absent.
type Question struct {
	ID      ID       `json:"id"`
	Text    string   `json:"text"`
	Options []Option `json:"options"`
}

// AdminOption carries the correctness flag and is never sent to attempt clients.
type AdminOption struct {
	ID        ID     `json:"id,omitempty"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

// AdminQuestion is the management shape used by the question CRUD surface.
type AdminQuestion struct {
	ID        ID            `json:"id"`
	Text      string        `json:"text"`
	Options   []AdminOption `json:"options"`
	Active    bool          `json:"active"`
	CreatedAt time.Time     `json:"createdAt,omitempty"`
	UpdatedAt time.Time     `json:"updatedAt,omitempty"`
}

// Public strips the correctness flags from an admin question, producing the
// shape the quiz endpoint serves. Option IDs are included only when the
// caller asks for them; omitting them forces positional keys on the client.
func (q AdminQuestion) Public(revealOptionIDs bool) Question {
	out := Question{ID: q.ID, Text: q.Text, Options: make([]Option, len(q.Options))}
	for i, opt := range q.Options {
		out.Options[i] = Option{Text: opt.Text}
		if revealOptionIDs {
			out.Options[i].ID = opt.ID
		}
	}
	return out
}

// SubmittedAnswer references a chosen option by stable server identifiers.
type SubmittedAnswer struct {
	QuestionID ID `json:"questionId"`
	OptionID   ID `json:"optionId"`
}

// SubmissionPayload is the wire payload built by reconciliation. Answer
// order follows answer-map iteration order; consumers must not rely on it.
type SubmissionPayload struct {
	Answers      []SubmittedAnswer `json:"answers"`
	TimeTakenSec int               `json:"timeTakenSec"`
}

// QuizResult summarizes one scored attempt.
type QuizResult struct {
	TotalQuestions int `json:"totalQuestions"`
	CorrectCount   int `json:"correctCount"`
	TimeTakenSec   int `json:"timeTakenSec"`
}

// SortDir orders the admin listing by creation time.
type SortDir string

const (
	SortAsc  SortDir = "ASC"
	SortDesc SortDir = "DESC"
)

// PageRequest describes what the caller wants from the listing source.
type PageRequest struct {
	Page       int
	Limit      int
	Order      SortDir
	ActiveOnly bool
}

// PageMeta is the server-authoritative pagination summary. It drives the
// listing controller's navigation affordances; the request descriptor is
// adjusted to it, never the other way around.
type PageMeta struct {
	TotalCount      int  `json:"totalCount"`
	PageSize        int  `json:"pageSize"`
	CurrentPage     int  `json:"currentPage"`
	TotalPages      int  `json:"totalPages"`
	HasNextPage     bool `json:"hasNextPage"`
	HasPreviousPage bool `json:"hasPreviousPage"`
}

// BuildPageMeta derives the meta block for a page of totalCount items.
func BuildPageMeta(totalCount, page, limit int) PageMeta {
	totalPages := 0
	if limit > 0 {
		totalPages = (totalCount + limit - 1) / limit
	}
	return PageMeta{
		TotalCount:      totalCount,
		PageSize:        limit,
		CurrentPage:     page,
		TotalPages:      totalPages,
		HasNextPage:     page < totalPages,
		HasPreviousPage: page > 1 && totalCount > 0,
	}
}
