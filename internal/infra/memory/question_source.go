package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"quiz-attempt-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// QuestionLoader fetches the quiz question set from a backing store.
type QuestionLoader interface {
	LoadQuizQuestions(ctx context.Context) ([]domain.Question, error)
}

// CachingQuestionSource wraps a loader with a TTL cache so every attempt
// start does not hit the backing store. Concurrent cold fetches collapse
// into one loader call.
type CachingQuestionSource struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu        sync.RWMutex
	questions []domain.Question
	expiresAt time.Time
}

func NewCachingQuestionSource(loader QuestionLoader, ttl time.Duration) *CachingQuestionSource {
	return &CachingQuestionSource{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *CachingQuestionSource) FetchQuizQuestions(ctx context.Context) ([]domain.Question, error) {
	now := s.clock()

	s.mu.RLock()
	if s.questions != nil && s.expiresAt.After(now) {
		qs := s.questions
		s.mu.RUnlock()
		return qs, nil
	}
	s.mu.RUnlock()

	result, err, _ := s.sf.Do("quiz-questions", func() (interface{}, error) {
		now := s.clock()
		s.mu.RLock()
		if s.questions != nil && s.expiresAt.After(now) {
			qs := s.questions
			s.mu.RUnlock()
			return qs, nil
		}
		s.mu.RUnlock()

		questions, err := s.loader.LoadQuizQuestions(ctx)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		s.questions = questions
		s.expiresAt = now.Add(s.ttlWithJitter())
		s.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

// Invalidate drops the cached set so the next fetch hits the loader.
// Called after admin CRUD mutates the question set.
func (s *CachingQuestionSource) Invalidate() {
	s.mu.Lock()
	s.questions = nil
	s.expiresAt = time.Time{}
	s.mu.Unlock()
}

func (s *CachingQuestionSource) ttlWithJitter() time.Duration {
	if s.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(s.ttl) / 10
	return s.ttl + time.Duration(s.rnd.Int63n(jitterMax+1))
}

// StaticQuestionStore serves a fixed admin question set from memory.
// It backs the quiz flow, the scorer, and the paged listing, which makes
// it handy for tests and demo deployments without Postgres.
type StaticQuestionStore struct {
	mu        sync.RWMutex
	questions []domain.AdminQuestion
}

func NewStaticQuestionStore(questions []domain.AdminQuestion) *StaticQuestionStore {
	return &StaticQuestionStore{questions: questions}
}

// LoadQuizQuestions returns the active questions in public shape with
// option IDs preserved, matching the quiz endpoint contract.
func (s *StaticQuestionStore) LoadQuizQuestions(_ context.Context) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Question, 0, len(s.questions))
	for _, q := range s.questions {
		if q.Active {
			out = append(out, q.Public(true))
		}
	}
	return out, nil
}

// LoadAnswerKey maps each active question ID to its correct option ID.
func (s *StaticQuestionStore) LoadAnswerKey(_ context.Context) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key := make(map[string]string, len(s.questions))
	for _, q := range s.questions {
		if !q.Active {
			continue
		}
		for _, opt := range q.Options {
			if opt.IsCorrect {
				key[q.ID.String()] = opt.ID.String()
				break
			}
		}
	}
	return key, nil
}

// FetchQuestionPage slices the stored set into one listing page.
func (s *StaticQuestionStore) FetchQuestionPage(_ context.Context, req domain.PageRequest) ([]domain.AdminQuestion, domain.PageMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	filtered := make([]domain.AdminQuestion, 0, len(s.questions))
	for _, q := range s.questions {
		if req.ActiveOnly && !q.Active {
			continue
		}
		filtered = append(filtered, q)
	}
	if req.Order == domain.SortDesc {
		for i, j := 0, len(filtered)-1; i < j; i, j = i+1, j-1 {
			filtered[i], filtered[j] = filtered[j], filtered[i]
		}
	}

	meta := domain.BuildPageMeta(len(filtered), req.Page, req.Limit)
	start := (req.Page - 1) * req.Limit
	if start >= len(filtered) {
		return []domain.AdminQuestion{}, meta, nil
	}
	end := start + req.Limit
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[start:end], meta, nil
}

// Delete removes a question by ID, reporting whether it existed.
func (s *StaticQuestionStore) Delete(id domain.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, q := range s.questions {
		if q.ID == id {
			s.questions = append(s.questions[:i], s.questions[i+1:]...)
			return true
		}
	}
	return false
}
