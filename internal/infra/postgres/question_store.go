package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"quiz-attempt-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// QuestionStore persists admin questions in Postgres with options as a
// jsonb array. It backs the quiz flow (public question fetch), the scorer
// (answer key) and the admin listing/CRUD surface.
type QuestionStore struct {
	pool *pgxpool.Pool
}

func NewQuestionStore(pool *pgxpool.Pool) *QuestionStore {
	return &QuestionStore{pool: pool}
}

// LoadQuizQuestions returns all active questions in public shape, option
// IDs included, ordered by creation. This is the quiz endpoint contract:
// correctness never leaves the database.
func (s *QuestionStore) LoadQuizQuestions(ctx context.Context) ([]domain.Question, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, text, options FROM questions WHERE active ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("load quiz questions: %w", err)
	}
	defer rows.Close()

	var out []domain.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q.Public(true))
	}
	return out, rows.Err()
}

// LoadAnswerKey maps each active question ID to its correct option ID.
func (s *QuestionStore) LoadAnswerKey(ctx context.Context) (map[string]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, text, options FROM questions WHERE active`)
	if err != nil {
		return nil, fmt.Errorf("load answer key: %w", err)
	}
	defer rows.Close()

	key := make(map[string]string)
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		for _, opt := range q.Options {
			if opt.IsCorrect {
				key[q.ID.String()] = opt.ID.String()
				break
			}
		}
	}
	return key, rows.Err()
}

// FetchQuestionPage returns one listing page plus authoritative metadata.
func (s *QuestionStore) FetchQuestionPage(ctx context.Context, req domain.PageRequest) ([]domain.AdminQuestion, domain.PageMeta, error) {
	where := ""
	if req.ActiveOnly {
		where = " WHERE active"
	}

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM questions`+where).Scan(&total); err != nil {
		return nil, domain.PageMeta{}, fmt.Errorf("count questions: %w", err)
	}

	dir := "ASC"
	if req.Order == domain.SortDesc {
		dir = "DESC"
	}
	query := fmt.Sprintf(`SELECT id, text, options, active, created_at, updated_at FROM questions%s ORDER BY created_at %s, id %s LIMIT $1 OFFSET $2`, where, dir, dir)

	rows, err := s.pool.Query(ctx, query, req.Limit, (req.Page-1)*req.Limit)
	if err != nil {
		return nil, domain.PageMeta{}, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	items := make([]domain.AdminQuestion, 0, req.Limit)
	for rows.Next() {
		var (
			q   domain.AdminQuestion
			id  int64
			raw []byte
		)
		if err := rows.Scan(&id, &q.Text, &raw, &q.Active, &q.CreatedAt, &q.UpdatedAt); err != nil {
			return nil, domain.PageMeta{}, fmt.Errorf("scan question: %w", err)
		}
		q.ID = domain.ID(strconv.FormatInt(id, 10))
		if err := json.Unmarshal(raw, &q.Options); err != nil {
			return nil, domain.PageMeta{}, fmt.Errorf("unmarshal options: %w", err)
		}
		items = append(items, q)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.PageMeta{}, err
	}
	return items, domain.BuildPageMeta(total, req.Page, req.Limit), nil
}

// Create inserts a question, assigning stable per-question option IDs.
func (s *QuestionStore) Create(ctx context.Context, text string, options []domain.AdminOption) (domain.AdminQuestion, error) {
	q := domain.AdminQuestion{Text: text, Options: assignOptionIDs(options), Active: true}
	raw, err := json.Marshal(q.Options)
	if err != nil {
		return domain.AdminQuestion{}, fmt.Errorf("marshal options: %w", err)
	}

	var id int64
	err = s.pool.QueryRow(ctx,
		`INSERT INTO questions (text, options, active) VALUES ($1, $2, TRUE) RETURNING id, created_at, updated_at`,
		text, raw,
	).Scan(&id, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return domain.AdminQuestion{}, fmt.Errorf("insert question: %w", err)
	}
	q.ID = domain.ID(strconv.FormatInt(id, 10))
	return q, nil
}

// Update replaces a question's text and options.
func (s *QuestionStore) Update(ctx context.Context, id domain.ID, text string, options []domain.AdminOption) (domain.AdminQuestion, error) {
	numericID, err := numericID(id)
	if err != nil {
		return domain.AdminQuestion{}, domain.ErrQuestionNotFound
	}
	q := domain.AdminQuestion{ID: id, Text: text, Options: assignOptionIDs(options), Active: true}
	raw, err := json.Marshal(q.Options)
	if err != nil {
		return domain.AdminQuestion{}, fmt.Errorf("marshal options: %w", err)
	}

	err = s.pool.QueryRow(ctx,
		`UPDATE questions SET text=$1, options=$2, updated_at=now() WHERE id=$3 RETURNING active, created_at, updated_at`,
		text, raw, numericID,
	).Scan(&q.Active, &q.CreatedAt, &q.UpdatedAt)
	if err == pgx.ErrNoRows {
		return domain.AdminQuestion{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.AdminQuestion{}, fmt.Errorf("update question: %w", err)
	}
	return q, nil
}

// Delete removes a question by ID.
func (s *QuestionStore) Delete(ctx context.Context, id domain.ID) error {
	numericID, err := numericID(id)
	if err != nil {
		return domain.ErrQuestionNotFound
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM questions WHERE id=$1`, numericID)
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuestionNotFound
	}
	return nil
}

func numericID(id domain.ID) (int64, error) {
	return strconv.ParseInt(id.String(), 10, 64)
}

func scanQuestion(rows pgx.Rows) (domain.AdminQuestion, error) {
	var (
		q   domain.AdminQuestion
		id  int64
		raw []byte
	)
	if err := rows.Scan(&id, &q.Text, &raw); err != nil {
		return domain.AdminQuestion{}, fmt.Errorf("scan question: %w", err)
	}
	q.ID = domain.ID(strconv.FormatInt(id, 10))
	if err := json.Unmarshal(raw, &q.Options); err != nil {
		return domain.AdminQuestion{}, fmt.Errorf("unmarshal options: %w", err)
	}
	return q, nil
}

// assignOptionIDs gives every option a per-question identifier. The quiz
// endpoint relies on these being present; submissions reference them.
func assignOptionIDs(options []domain.AdminOption) []domain.AdminOption {
	out := make([]domain.AdminOption, len(options))
	for i, opt := range options {
		out[i] = opt
		if out[i].ID.IsZero() {
			out[i].ID = domain.ID("o" + strconv.Itoa(i+1))
		}
	}
	return out
}
