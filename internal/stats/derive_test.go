package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poail0-cell/duels-analyzer-1/internal/duels"
)

var baseTime = time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)

// game builds a minimal valid record whose outcome is derived from the final
// health pair.
func game(id string, n int, outcome duels.Outcome) duels.GameRecord {
	g := duels.GameRecord{
		GameID:    id,
		Mode:      duels.ModeMoving,
		StartedAt: baseTime.Add(time.Duration(n) * time.Hour),
		Opponent:  duels.Opponent{ID: "opp-1", Nick: "rival", CountryCode: "de"},
	}
	switch outcome {
	case duels.OutcomeWin:
		g.PlayerHealth, g.OpponentHealth = []int{80}, []int{0}
	case duels.OutcomeLoss:
		g.PlayerHealth, g.OpponentHealth = []int{0}, []int{80}
	case duels.OutcomeDraw:
		g.PlayerHealth, g.OpponentHealth = []int{50}, []int{50}
		g.Draw = true
	default:
		g.PlayerHealth, g.OpponentHealth = []int{50}, []int{50}
	}
	g.Rounds = []duels.RoundRecord{{
		RoundIndex:  0,
		CountryCode: "fr",
		Player:      duels.Guess{Score: 4000, DistanceKM: 120},
		Opponent:    duels.Guess{Score: 3000, DistanceKM: 800},
	}}
	return g
}

func mustCache(t *testing.T, games ...duels.GameRecord) *duels.Cache {
	t.Helper()
	c, err := duels.NewCache(games...)
	require.NoError(t, err)
	return c
}

func TestDeriveOutcomeClassification(t *testing.T) {
	loss := duels.GameRecord{
		GameID:         "g1",
		StartedAt:      baseTime,
		PlayerHealth:   []int{100, 60, 0},
		OpponentHealth: []int{100, 100, 100},
		Rounds: []duels.RoundRecord{
			{RoundIndex: 0}, {RoundIndex: 1}, {RoundIndex: 2},
		},
	}
	win := loss
	win.GameID = "g2"
	win.PlayerHealth, win.OpponentHealth = loss.OpponentHealth, loss.PlayerHealth

	s := Derive(mustCache(t, loss, win), 1)
	require.Len(t, s.Games, 2)
	assert.Equal(t, duels.OutcomeLoss, s.Games[0].Outcome)
	assert.Equal(t, duels.OutcomeWin, s.Games[1].Outcome)
	assert.Equal(t, 1, s.Overview.Wins)
	assert.Equal(t, 1, s.Overview.Losses)
	assert.Equal(t, 50.0, s.Overview.GameWinRate)
}

func TestDeriveStreaks(t *testing.T) {
	outcomes := []duels.Outcome{
		duels.OutcomeWin, duels.OutcomeWin, duels.OutcomeLoss,
		duels.OutcomeWin, duels.OutcomeWin, duels.OutcomeWin,
	}
	games := make([]duels.GameRecord, len(outcomes))
	for i, o := range outcomes {
		games[i] = game(string(rune('a'+i)), i, o)
	}

	s := Derive(mustCache(t, games...), 1)
	assert.Equal(t, StreakRun{Outcome: duels.OutcomeWin, Length: 3}, s.Streaks.Current)
	assert.Equal(t, StreakRun{Outcome: duels.OutcomeWin, Length: 3}, s.Streaks.Longest)
	assert.Equal(t, 3, s.Streaks.LongestWin)
	assert.Equal(t, 1, s.Streaks.LongestLoss)

	// Streak continuation marks every game extending its predecessor's run.
	cont := make([]bool, len(s.Games))
	for i, g := range s.Games {
		cont[i] = g.StreakContinuation
	}
	assert.Equal(t, []bool{false, true, false, false, true, true}, cont)
}

func TestDeriveStreakTieGoesToMostRecent(t *testing.T) {
	outcomes := []duels.Outcome{
		duels.OutcomeLoss, duels.OutcomeLoss,
		duels.OutcomeWin, duels.OutcomeWin,
	}
	games := make([]duels.GameRecord, len(outcomes))
	for i, o := range outcomes {
		games[i] = game(string(rune('a'+i)), i, o)
	}

	s := Derive(mustCache(t, games...), 1)
	assert.Equal(t, StreakRun{Outcome: duels.OutcomeWin, Length: 2}, s.Streaks.Longest)
}

func TestDeriveDrawBreaksStreak(t *testing.T) {
	outcomes := []duels.Outcome{
		duels.OutcomeWin, duels.OutcomeWin, duels.OutcomeDraw, duels.OutcomeWin,
	}
	games := make([]duels.GameRecord, len(outcomes))
	for i, o := range outcomes {
		games[i] = game(string(rune('a'+i)), i, o)
	}

	s := Derive(mustCache(t, games...), 1)
	assert.Equal(t, StreakRun{Outcome: duels.OutcomeWin, Length: 1}, s.Streaks.Current)
	assert.Equal(t, 2, s.Streaks.LongestWin)
	assert.Equal(t, 1, s.Overview.Draws)
}

func TestDeriveRatingProgression(t *testing.T) {
	rated := func(id string, n, before, after int) duels.GameRecord {
		g := game(id, n, duels.OutcomeWin)
		g.RatingBefore, g.RatingAfter = &before, &after
		return g
	}
	unrated := game("u1", 1, duels.OutcomeLoss)

	s := Derive(mustCache(t,
		rated("r1", 0, 800, 815),
		unrated,
		rated("r2", 2, 815, 801),
	), 1)

	require.Len(t, s.RatingProgression, 2)
	assert.Equal(t, "r1", s.RatingProgression[0].GameID)
	require.NotNil(t, s.RatingProgression[0].Delta)
	assert.Equal(t, 15, *s.RatingProgression[0].Delta)
	require.NotNil(t, s.RatingProgression[1].Delta)
	assert.Equal(t, -14, *s.RatingProgression[1].Delta)

	require.NotNil(t, s.Overview.CurrentRating)
	assert.Equal(t, 801, *s.Overview.CurrentRating)

	// The unrated game is still part of the win-rate aggregates.
	assert.Equal(t, 3, s.Overview.TotalGames)
	assert.Equal(t, 1, s.Overview.Losses)
}

func TestDeriveCountryCompleteness(t *testing.T) {
	g1 := game("g1", 0, duels.OutcomeWin)
	g1.Rounds = []duels.RoundRecord{
		{RoundIndex: 0, CountryCode: "fr", Player: duels.Guess{Score: 4500, DistanceKM: 50}, Opponent: duels.Guess{Score: 3000, DistanceKM: 900}},
		{RoundIndex: 1, CountryCode: "jp", Player: duels.Guess{Score: 2000, DistanceKM: 700}, Opponent: duels.Guess{Score: 4800, DistanceKM: 20}},
		{RoundIndex: 2, CountryCode: "fr", Player: duels.Guess{Score: 3000, DistanceKM: 300}, Opponent: duels.Guess{Score: 3000, DistanceKM: 200}},
	}
	g1.PlayerHealth = []int{100, 60, 60}
	g1.OpponentHealth = []int{40, 40, 0}

	g2 := game("g2", 1, duels.OutcomeLoss)
	g2.Rounds = []duels.RoundRecord{
		{RoundIndex: 0, CountryCode: "br", Player: duels.Guess{TimedOut: true}, Opponent: duels.Guess{Score: 4000, DistanceKM: 100}},
	}

	s := Derive(mustCache(t, g1, g2), 2)

	sum := 0
	for _, c := range s.Countries {
		sum += c.Rounds
	}
	assert.Equal(t, s.Overview.TotalRounds, sum)
	assert.Equal(t, 4, sum)

	require.Len(t, s.Countries, 3)
	fr := s.Countries[0]
	assert.Equal(t, "fr", fr.Code)
	assert.Equal(t, "France", fr.Name)
	assert.Equal(t, 2, fr.Rounds)
	assert.Equal(t, 1, fr.Wins)
	assert.Equal(t, 1, fr.Losses) // equal scores, opponent was closer
	assert.False(t, fr.LowConfidence)

	// Below the sample threshold: flagged, never hidden.
	for _, c := range s.Countries[1:] {
		assert.True(t, c.LowConfidence, c.Code)
	}
}

func TestDeriveOpponentCountries(t *testing.T) {
	vsGerman1 := game("g1", 0, duels.OutcomeWin)
	vsGerman1.Rounds = []duels.RoundRecord{
		{RoundIndex: 0, CountryCode: "fr", Player: duels.Guess{Score: 4000, DistanceKM: 120}, Opponent: duels.Guess{Score: 3000, DistanceKM: 800}},
		{RoundIndex: 1, CountryCode: "jp", Player: duels.Guess{Score: 1000, DistanceKM: 2500}, Opponent: duels.Guess{Score: 4800, DistanceKM: 20}},
	}
	vsGerman1.PlayerHealth = []int{100, 60}
	vsGerman1.OpponentHealth = []int{40, 0}

	vsGerman2 := game("g2", 1, duels.OutcomeWin)
	vsGerman2.Opponent = duels.Opponent{ID: "opp-2", Nick: "zweiter", CountryCode: "DE"}

	vsBrazilian := game("g3", 2, duels.OutcomeLoss)
	vsBrazilian.Opponent = duels.Opponent{ID: "opp-3", Nick: "terceiro", CountryCode: "br"}
	vsBrazilian.Rounds = []duels.RoundRecord{
		{RoundIndex: 0, CountryCode: "ca", Player: duels.Guess{TimedOut: true}, Opponent: duels.Guess{Score: 4000, DistanceKM: 100}},
	}

	s := Derive(mustCache(t, vsGerman1, vsGerman2, vsBrazilian), 2)

	sum := 0
	for _, c := range s.OpponentCountries {
		sum += c.Rounds
	}
	assert.Equal(t, s.Overview.TotalRounds, sum)

	require.Len(t, s.OpponentCountries, 2)
	de := s.OpponentCountries[0]
	assert.Equal(t, "de", de.Code) // "DE" and "de" group together
	assert.Equal(t, "Germany", de.Name)
	assert.Equal(t, 3, de.Rounds)
	assert.Equal(t, 2, de.Wins)
	assert.Equal(t, 1, de.Losses)
	assert.InDelta(t, 100.0*2/3, de.WinRate, 0.001)
	assert.False(t, de.LowConfidence)

	br := s.OpponentCountries[1]
	assert.Equal(t, "br", br.Code)
	assert.Equal(t, 1, br.Rounds)
	assert.Equal(t, 1, br.Losses)
	assert.Equal(t, 0.0, br.AvgScore) // timed-out round counts as a 0 score
	assert.True(t, br.LowConfidence)
}

func TestDeriveRoundTieRules(t *testing.T) {
	tests := []struct {
		name     string
		player   duels.Guess
		opponent duels.Guess
		expected RoundResult
	}{
		{"higher score wins", duels.Guess{Score: 4000, DistanceKM: 500}, duels.Guess{Score: 3999, DistanceKM: 1}, RoundWon},
		{"equal scores, closer guess wins", duels.Guess{Score: 3000, DistanceKM: 10}, duels.Guess{Score: 3000, DistanceKM: 50}, RoundWon},
		{"equal scores, farther guess loses", duels.Guess{Score: 3000, DistanceKM: 90}, duels.Guess{Score: 3000, DistanceKM: 50}, RoundLost},
		{"timeout loses against a zero-score guess", duels.Guess{TimedOut: true}, duels.Guess{Score: 0, DistanceKM: 4000}, RoundLost},
		{"both timed out is a draw", duels.Guess{TimedOut: true}, duels.Guess{TimedOut: true}, RoundDrawn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := duels.RoundRecord{Player: tt.player, Opponent: tt.opponent}
			assert.Equal(t, tt.expected, roundOutcome(r))
		})
	}
}

func TestDeriveHeadToHead(t *testing.T) {
	vsKnown1 := game("g1", 0, duels.OutcomeWin)
	vsKnown2 := game("g2", 1, duels.OutcomeLoss)
	vsAnon := game("g3", 2, duels.OutcomeWin)
	vsAnon.Opponent = duels.Opponent{Nick: "mystery", CountryCode: "br"}

	s := Derive(mustCache(t, vsKnown1, vsKnown2, vsAnon), 1)
	require.Len(t, s.Opponents, 2)

	known := s.Opponents[0]
	assert.Equal(t, "opp-1", known.Key)
	assert.False(t, known.WeakIdentity)
	assert.Equal(t, 2, known.Games)
	assert.Equal(t, 1, known.Wins)
	assert.Equal(t, 1, known.Losses)
	assert.Equal(t, "Germany", known.CountryName)

	anon := s.Opponents[1]
	assert.Equal(t, "mystery/br", anon.Key)
	assert.True(t, anon.WeakIdentity)
	assert.Equal(t, 1, anon.Games)
}

func TestDeriveOmitsMalformedRecords(t *testing.T) {
	good := game("good", 0, duels.OutcomeWin)
	bad := duels.GameRecord{
		GameID:         "bad",
		StartedAt:      baseTime,
		PlayerHealth:   []int{100}, // does not match two rounds
		OpponentHealth: []int{100},
		Rounds:         []duels.RoundRecord{{RoundIndex: 0}, {RoundIndex: 1}},
	}

	s := Derive(mustCache(t, good, bad), 1)
	assert.Equal(t, 1, s.OmittedGames)
	assert.Equal(t, 1, s.Overview.TotalGames)
	require.Len(t, s.Games, 1)
	assert.Equal(t, "good", s.Games[0].GameID)
}

func TestDeriveIsDeterministic(t *testing.T) {
	games := []duels.GameRecord{
		game("g1", 0, duels.OutcomeWin),
		game("g2", 1, duels.OutcomeLoss),
		game("g3", 2, duels.OutcomeWin),
	}
	games[1].Opponent = duels.Opponent{Nick: "other", CountryCode: "se"}

	first := Derive(mustCache(t, games...), 3)
	second := Derive(mustCache(t, games...), 3)
	assert.Equal(t, first, second)
}

func TestDeriveEmptyCache(t *testing.T) {
	s := Derive(mustCache(t), 5)
	assert.Equal(t, 0, s.Overview.TotalGames)
	assert.Equal(t, 0.0, s.Overview.GameWinRate)
	assert.Empty(t, s.Games)
	assert.Empty(t, s.Countries)
	assert.Equal(t, StreakRun{}, s.Streaks.Current)
}
