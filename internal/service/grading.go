package service

import (
	"credlyse_backend/internal/model"
	"credlyse_backend/internal/util"
	"strconv"
	"strings"
)

// QuizGrade is the outcome of grading one submission.
type QuizGrade struct {
	Correct int
	Total   int
	Score   int
	Passed  bool
}

// positionalAnswers turns the wire map {"0": "...", "1": "..."} into a slice
// indexed by question position. Unanswered positions are reported as absent.
func positionalAnswers(answers map[string]string, total int) ([]string, []bool) {
	out := make([]string, total)
	present := make([]bool, total)
	for key, answer := range answers {
		i, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil || i < 0 || i >= total {
			continue
		}
		out[i] = answer
		present[i] = true
	}
	return out, present
}

func answersMatch(submitted, expected string) bool {
	return strings.EqualFold(strings.TrimSpace(submitted), strings.TrimSpace(expected))
}

// GradeQuiz scores answers against questions. Score is floor(correct/total*100)
// and a submission passes at 75 or above.
func GradeQuiz(questions []model.QuizQuestion, answers map[string]string) (QuizGrade, error) {
	total := len(questions)
	if total == 0 {
		return QuizGrade{}, util.ErrQuizHasNoQuestions
	}

	submitted, present := positionalAnswers(answers, total)
	correct := 0
	for i, q := range questions {
		if present[i] && answersMatch(submitted[i], q.Answer) {
			correct++
		}
	}

	score := correct * 100 / total
	return QuizGrade{
		Correct: correct,
		Total:   total,
		Score:   score,
		Passed:  score >= util.QuizPassThreshold,
	}, nil
}
