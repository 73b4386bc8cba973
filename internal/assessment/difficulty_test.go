package assessment

import (
	"testing"

	"github.com/skylearn/assess-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignTierThresholds(t *testing.T) {
	all := TierCounts{Easy: 10, Medium: 10, Hard: 10}

	tests := []struct {
		score int
		want  model.Difficulty
	}{
		{100, model.DifficultyHard},
		{80, model.DifficultyHard},
		{75, model.DifficultyHard}, // boundary resolves up
		{74, model.DifficultyMedium},
		{60, model.DifficultyMedium},
		{50, model.DifficultyMedium}, // boundary resolves up
		{49, model.DifficultyEasy},
		{0, model.DifficultyEasy},
	}

	for _, tc := range tests {
		got, err := AssignTier(tc.score, all)
		require.NoError(t, err, "score %d", tc.score)
		assert.Equal(t, tc.want, got, "score %d", tc.score)
	}
}

func TestAssignTierFallbackLadders(t *testing.T) {
	tests := []struct {
		name   string
		score  int
		counts TierCounts
		want   model.Difficulty
	}{
		{"hard missing falls to medium", 80, TierCounts{Easy: 5, Medium: 5}, model.DifficultyMedium},
		{"hard and medium missing fall to easy", 80, TierCounts{Easy: 5}, model.DifficultyEasy},
		{"medium missing falls to easy first", 60, TierCounts{Easy: 5, Hard: 5}, model.DifficultyEasy},
		{"medium and easy missing fall to hard", 60, TierCounts{Hard: 5}, model.DifficultyHard},
		{"easy missing falls to medium first", 40, TierCounts{Medium: 5, Hard: 5}, model.DifficultyMedium},
		{"only hard populated serves low scorers", 40, TierCounts{Hard: 5}, model.DifficultyHard},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := AssignTier(tc.score, tc.counts)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestAssignTierNoQuestionsAnywhere(t *testing.T) {
	_, err := AssignTier(80, TierCounts{})
	assert.ErrorIs(t, err, ErrNoQuestions)
}

func TestFirstAvailableTier(t *testing.T) {
	got, err := FirstAvailableTier(TierCounts{Medium: 5})
	require.NoError(t, err)
	assert.Equal(t, model.DifficultyMedium, got)

	got, err = FirstAvailableTier(TierCounts{Easy: 1, Medium: 5, Hard: 2})
	require.NoError(t, err)
	assert.Equal(t, model.DifficultyEasy, got, "probes easy first")

	_, err = FirstAvailableTier(TierCounts{})
	assert.ErrorIs(t, err, ErrNoQuestions)
}

func TestComputeScore(t *testing.T) {
	qs := makeQuestions(10, model.DifficultyMedium)
	answers := map[int]string{}
	for i := 0; i < 7; i++ {
		answers[i] = "A"
	}
	answers[7] = "B"

	score, correct, err := ComputeScore(qs, answers)
	require.NoError(t, err)
	assert.Equal(t, 70, score)
	assert.Equal(t, 7, correct)
}

func TestComputeScoreRoundsHalfUp(t *testing.T) {
	qs := makeQuestions(3, model.DifficultyEasy)

	score, _, err := ComputeScore(qs, map[int]string{0: "A"})
	require.NoError(t, err)
	assert.Equal(t, 33, score)

	score, _, err = ComputeScore(qs, map[int]string{0: "A", 1: "A"})
	require.NoError(t, err)
	assert.Equal(t, 67, score)
}

func TestComputeScoreEmptySet(t *testing.T) {
	_, _, err := ComputeScore(nil, map[int]string{})
	assert.ErrorIs(t, err, ErrEmptyQuestionSet)
}
