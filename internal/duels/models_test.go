package duels

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGameOutcome(t *testing.T) {
	tests := []struct {
		name     string
		player   []int
		opponent []int
		draw     bool
		expected Outcome
	}{
		{
			name:     "opponent eliminated",
			player:   []int{100, 100, 100},
			opponent: []int{100, 60, 0},
			expected: OutcomeWin,
		},
		{
			name:     "player eliminated",
			player:   []int{100, 60, 0},
			opponent: []int{100, 100, 100},
			expected: OutcomeLoss,
		},
		{
			name:     "explicit draw with both alive",
			player:   []int{100, 40},
			opponent: []int{100, 40},
			draw:     true,
			expected: OutcomeDraw,
		},
		{
			name:     "both alive without draw flag",
			player:   []int{100, 40},
			opponent: []int{100, 40},
			expected: OutcomeUnknown,
		},
		{
			name:     "no health data",
			player:   nil,
			opponent: nil,
			expected: OutcomeUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &GameRecord{
				GameID:         "g1",
				PlayerHealth:   tt.player,
				OpponentHealth: tt.opponent,
				Draw:           tt.draw,
			}
			assert.Equal(t, tt.expected, g.Outcome())
		})
	}
}

func TestRatingDelta(t *testing.T) {
	before, after := 850, 865
	g := &GameRecord{RatingBefore: &before, RatingAfter: &after}
	d := g.RatingDelta()
	require.NotNil(t, d)
	assert.Equal(t, 15, *d)

	unrated := &GameRecord{RatingAfter: &after}
	assert.Nil(t, unrated.RatingDelta())
}

func TestValidate(t *testing.T) {
	valid := &GameRecord{
		GameID:         "g1",
		StartedAt:      time.Now(),
		PlayerHealth:   []int{100, 0},
		OpponentHealth: []int{100, 80},
		Rounds:         []RoundRecord{{RoundIndex: 0}, {RoundIndex: 1}},
	}
	assert.NoError(t, valid.Validate())

	noID := &GameRecord{}
	assert.Error(t, noID.Validate())

	mismatched := &GameRecord{
		GameID:         "g2",
		PlayerHealth:   []int{100},
		OpponentHealth: []int{100},
		Rounds:         []RoundRecord{{RoundIndex: 0}, {RoundIndex: 1}},
	}
	assert.Error(t, mismatched.Validate())
}

func TestOpponentKey(t *testing.T) {
	strong := &GameRecord{Opponent: Opponent{ID: "abc", Nick: "rival", CountryCode: "de"}}
	key, weak := strong.OpponentKey()
	assert.Equal(t, "abc", key)
	assert.False(t, weak)

	anon := &GameRecord{Opponent: Opponent{Nick: "rival", CountryCode: "de"}}
	key, weak = anon.OpponentKey()
	assert.Equal(t, "rival/de", key)
	assert.True(t, weak)
}

func TestCacheAppendOnly(t *testing.T) {
	base, err := NewCache(GameRecord{GameID: "a"}, GameRecord{GameID: "b"})
	require.NoError(t, err)
	assert.True(t, base.Has("a"))
	assert.False(t, base.Has("c"))

	next, err := base.With(GameRecord{GameID: "c"})
	require.NoError(t, err)
	assert.Equal(t, 3, next.Len())
	// Original snapshot is untouched.
	assert.Equal(t, 2, base.Len())
	assert.False(t, base.Has("c"))

	_, err = next.With(GameRecord{GameID: "a"})
	assert.ErrorIs(t, err, ErrDuplicateGame)

	_, err = NewCache(GameRecord{GameID: "x"}, GameRecord{GameID: "x"})
	assert.ErrorIs(t, err, ErrDuplicateGame)
}

func TestCountryName(t *testing.T) {
	tests := []struct {
		code     string
		expected string
	}{
		{"de", "Germany"},
		{"US", "United States"},
		{"", "Unknown"},
		{"z9", "Z9"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, CountryName(tt.code))
		})
	}
}
