package assessment

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/skylearn/assess-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeQuestions(n int, d model.Difficulty) []model.Question {
	qs := make([]model.Question, n)
	for i := range qs {
		qs[i] = model.Question{
			ID:            uuid.New(),
			QuestionType:  model.QuestionTypeMCQ,
			Difficulty:    d,
			QuestionText:  fmt.Sprintf("%s question %d", d, i+1),
			Options:       []byte(`["opt a","opt b","opt c","opt d"]`),
			CorrectAnswer: "A",
			Marks:         1,
			OrderIndex:    i,
		}
	}
	return qs
}

func idsOf(qs []model.Question) []uuid.UUID {
	ids := make([]uuid.UUID, len(qs))
	for i, q := range qs {
		ids[i] = q.ID
	}
	return ids
}

func TestShuffleIsPermutation(t *testing.T) {
	for _, n := range []int{0, 1, 2, 5, 50} {
		qs := makeQuestions(n, model.DifficultyEasy)
		original := idsOf(qs)

		shuffled := Shuffle(rand.New(rand.NewSource(42)), qs)

		require.Len(t, shuffled, n)
		assert.ElementsMatch(t, original, idsOf(shuffled), "same multiset for n=%d", n)
		assert.Equal(t, original, idsOf(qs), "input must be left unmodified for n=%d", n)
	}
}

func TestShuffleVariesAcrossSources(t *testing.T) {
	qs := makeQuestions(10, model.DifficultyMedium)

	orders := make(map[string]bool)
	for seed := int64(1); seed <= 20; seed++ {
		shuffled := Shuffle(rand.New(rand.NewSource(seed)), qs)
		orders[fmt.Sprint(idsOf(shuffled))] = true
	}

	assert.Greater(t, len(orders), 1, "repeated shuffles should produce varying orders")
}

func TestShuffleDeterministicForSeed(t *testing.T) {
	qs := makeQuestions(8, model.DifficultyHard)

	a := Shuffle(rand.New(rand.NewSource(7)), qs)
	b := Shuffle(rand.New(rand.NewSource(7)), qs)

	assert.Equal(t, idsOf(a), idsOf(b))
}
