package assessment

import (
	"math/rand"

	"github.com/skylearn/assess-backend/internal/model"
)

// Shuffle returns a uniformly random permutation of qs using a
// Fisher-Yates pass over a copy. The input slice is left unmodified.
// The random source is injected so tests can seed it.
func Shuffle(r *rand.Rand, qs []model.Question) []model.Question {
	shuffled := make([]model.Question, len(qs))
	copy(shuffled, qs)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled
}
