package app

import (
	"fmt"

	"quiz-attempt-service/internal/domain"
)

// Reconcile translates locally recorded option keys into a submission
// payload referencing stable server identifiers. Keys are re-derived
// against each question's current option ordering rather than trusted in
// isolation, because positional keys only hold within the exact fetched
// list they came from. Unanswered questions simply have no entry. Any
// resolved option lacking a server identifier aborts the whole
// reconciliation: the quiz endpoint is expected to always provide option
// IDs, so its absence is a contract violation, not a droppable answer.
func Reconcile(questions []domain.Question, answers map[string]string) (domain.SubmissionPayload, error) {
	payload := domain.SubmissionPayload{
		Answers: make([]domain.SubmittedAnswer, 0, len(answers)),
	}
	for questionID, optionKey := range answers {
		var question *domain.Question
		for i := range questions {
			if questions[i].ID.String() == questionID {
				question = &questions[i]
				break
			}
		}
		if question == nil {
			return domain.SubmissionPayload{}, fmt.Errorf("answer for question %s: %w", questionID, domain.ErrQuestionNotFound)
		}

		var selected *domain.Option
		for i := range question.Options {
			if domain.DeriveOptionKey(question.Options[i], i) == optionKey {
				selected = &question.Options[i]
				break
			}
		}
		if selected == nil {
			return domain.SubmissionPayload{}, fmt.Errorf("question %s key %q: %w", questionID, optionKey, domain.ErrOptionNotFound)
		}
		if selected.ID.IsZero() {
			return domain.SubmissionPayload{}, fmt.Errorf("question %s: %w", questionID, domain.ErrMissingOptionID)
		}

		payload.Answers = append(payload.Answers, domain.SubmittedAnswer{
			QuestionID: domain.ID(questionID),
			OptionID:   selected.ID,
		})
	}
	return payload, nil
}
