package app

import (
	"context"

	"quiz-attempt-service/internal/domain"
)

// AnswerKeySource provides the correct option ID per question ID for the
// active question set.
type AnswerKeySource interface {
	LoadAnswerKey(ctx context.Context) (map[string]string, error)
}

// Scorer is a SubmissionSink that grades payloads against an answer key.
// The engine never sees correctness; scoring stays behind the sink
// boundary the same way the original backend kept it server-side.
type Scorer struct {
	keys AnswerKeySource
}

func NewScorer(keys AnswerKeySource) *Scorer {
	return &Scorer{keys: keys}
}

func (s *Scorer) SubmitAnswers(ctx context.Context, payload domain.SubmissionPayload) (domain.QuizResult, error) {
	key, err := s.keys.LoadAnswerKey(ctx)
	if err != nil {
		return domain.QuizResult{}, err
	}

	correct := 0
	for _, ans := range payload.Answers {
		if want, ok := key[ans.QuestionID.String()]; ok && want == ans.OptionID.String() {
			correct++
		}
	}
	return domain.QuizResult{
		TotalQuestions: len(key),
		CorrectCount:   correct,
		TimeTakenSec:   payload.TimeTakenSec,
	}, nil
}
