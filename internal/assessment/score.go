package assessment

import (
	"errors"
	"math"

	"github.com/skylearn/assess-backend/internal/model"
)

// ErrEmptyQuestionSet guards score computation against division by zero.
var ErrEmptyQuestionSet = errors.New("cannot score an empty question set")

// ComputeScore counts positions where the submitted letter matches the
// question's correct answer and returns round(correct/total*100) plus
// the raw correct count. An empty question set is a hard error, never
// a NaN score.
func ComputeScore(questions []model.Question, answers map[int]string) (score, correct int, err error) {
	total := len(questions)
	if total == 0 {
		return 0, 0, ErrEmptyQuestionSet
	}

	for idx, q := range questions {
		if answers[idx] == q.CorrectAnswer {
			correct++
		}
	}

	score = int(math.Round(float64(correct) / float64(total) * 100))
	return score, correct, nil
}
