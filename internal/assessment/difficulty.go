package assessment

import (
	"errors"

	"github.com/skylearn/assess-backend/internal/model"
)

// ErrNoQuestions signals that no tier has any questions. Terminal for
// the attempt; never resolved to an arbitrary tier.
var ErrNoQuestions = errors.New("no questions available for any tier")

// TierCounts holds the number of available questions per graded tier.
type TierCounts struct {
	Easy   int
	Medium int
	Hard   int
}

// Total returns the combined question count across graded tiers.
func (c TierCounts) Total() int {
	return c.Easy + c.Medium + c.Hard
}

func (c TierCounts) count(d model.Difficulty) int {
	switch d {
	case model.DifficultyEasy:
		return c.Easy
	case model.DifficultyMedium:
		return c.Medium
	case model.DifficultyHard:
		return c.Hard
	}
	return 0
}

// AssignTier maps a practice score (percentage, 0-100) to a graded tier.
// Thresholds: score >= 75 → hard, >= 50 → medium, otherwise easy.
// Boundary scores resolve to the higher tier. If the target tier has no
// questions, it falls back in a fixed order specific to the missing tier;
// if nothing is available at all it returns ErrNoQuestions.
func AssignTier(score int, counts TierCounts) (model.Difficulty, error) {
	var target model.Difficulty
	switch {
	case score >= 75:
		target = model.DifficultyHard
	case score >= 50:
		target = model.DifficultyMedium
	default:
		target = model.DifficultyEasy
	}

	if counts.count(target) > 0 {
		return target, nil
	}

	var fallback []model.Difficulty
	switch target {
	case model.DifficultyHard:
		fallback = []model.Difficulty{model.DifficultyMedium, model.DifficultyEasy}
	case model.DifficultyMedium:
		fallback = []model.Difficulty{model.DifficultyEasy, model.DifficultyHard}
	case model.DifficultyEasy:
		fallback = []model.Difficulty{model.DifficultyMedium, model.DifficultyHard}
	}

	for _, tier := range fallback {
		if counts.count(tier) > 0 {
			return tier, nil
		}
	}

	return "", ErrNoQuestions
}

// FirstAvailableTier probes tiers in order easy, medium, hard and returns
// the first with questions. Used when a test has no practice questions
// and the attempt starts directly in the main phase.
func FirstAvailableTier(counts TierCounts) (model.Difficulty, error) {
	for _, tier := range model.MainTiers {
		if counts.count(tier) > 0 {
			return tier, nil
		}
	}
	return "", ErrNoQuestions
}
