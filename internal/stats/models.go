package stats

import (
	"time"

	"github.com/poail0-cell/duels-analyzer-1/internal/duels"
)

// RoundResult classifies a single round from the player's side.
type RoundResult string

const (
	RoundWon  RoundResult = "won"
	RoundLost RoundResult = "lost"
	// RoundDrawn covers equal scores with no distance tie-break left,
	// e.g. both players timing out. Drawn rounds stay in sample counts
	// but are excluded from win-rate denominators.
	RoundDrawn RoundResult = "drawn"
)

// GameFact is the flattened game-level view of one cached record.
type GameFact struct {
	GameID             string        `json:"game_id"`
	PlayedAt           time.Time     `json:"played_at"`
	Mode               duels.Mode    `json:"mode"`
	Outcome            duels.Outcome `json:"outcome"`
	RatingDelta        *int          `json:"rating_delta,omitempty"`
	StreakContinuation bool          `json:"streak_continuation"`
}

// RatingPoint is one game in the rating progression series. Only games with
// a present rating appear; Delta is nil for the first rated game or when the
// source did not report a before value.
type RatingPoint struct {
	GameID      string    `json:"game_id"`
	PlayedAt    time.Time `json:"played_at"`
	RatingAfter int       `json:"rating_after"`
	Delta       *int      `json:"delta,omitempty"`
}

// StreakRun is a maximal run of consecutive games with one outcome.
type StreakRun struct {
	Outcome duels.Outcome `json:"outcome"`
	Length  int           `json:"length"`
}

type Streaks struct {
	// Current is the run ending at the most recent decided game; its
	// length is 0 when the latest decided game broke both polarities
	// (a draw).
	Current     StreakRun `json:"current"`
	Longest     StreakRun `json:"longest"`
	LongestWin  int       `json:"longest_win"`
	LongestLoss int       `json:"longest_loss"`
}

// CountryStats aggregates round performance for one country, either the
// panorama country or the opponent's nationality depending on the series.
// LowConfidence flags countries under the sample threshold instead of hiding
// them, so per-country round counts always sum to the corpus total.
type CountryStats struct {
	Code          string  `json:"code"`
	Name          string  `json:"name"`
	Rounds        int     `json:"rounds"`
	Wins          int     `json:"wins"`
	Losses        int     `json:"losses"`
	Draws         int     `json:"draws"`
	WinRate       float64 `json:"win_rate"`
	AvgScore      float64 `json:"avg_score"`
	AvgDistanceKM float64 `json:"avg_distance_km"`
	LowConfidence bool    `json:"low_confidence"`
}

// OpponentStats is the head-to-head record against one opponent.
// WeakIdentity marks rows grouped by nick+country because no persistent id
// was available; such identities may be ambiguous.
type OpponentStats struct {
	Key          string    `json:"key"`
	OpponentID   string    `json:"opponent_id,omitempty"`
	Nick         string    `json:"nick,omitempty"`
	CountryCode  string    `json:"country_code,omitempty"`
	CountryName  string    `json:"country_name,omitempty"`
	WeakIdentity bool      `json:"weak_identity"`
	Games        int       `json:"games"`
	Wins         int       `json:"wins"`
	Losses       int       `json:"losses"`
	Draws        int       `json:"draws"`
	LastPlayedAt time.Time `json:"last_played_at"`
}

// RoundPositionStats aggregates performance per round number within games.
type RoundPositionStats struct {
	Position int     `json:"position"`
	Rounds   int     `json:"rounds"`
	Wins     int     `json:"wins"`
	Losses   int     `json:"losses"`
	Draws    int     `json:"draws"`
	WinRate  float64 `json:"win_rate"`
	AvgScore float64 `json:"avg_score"`
}

type ModeStats struct {
	Mode    duels.Mode `json:"mode"`
	Games   int        `json:"games"`
	Wins    int        `json:"wins"`
	Losses  int        `json:"losses"`
	Draws   int        `json:"draws"`
	WinRate float64    `json:"win_rate"`
}

// Overview holds the headline numbers.
type Overview struct {
	TotalGames    int     `json:"total_games"`
	Wins          int     `json:"wins"`
	Losses        int     `json:"losses"`
	Draws         int     `json:"draws"`
	GameWinRate   float64 `json:"game_win_rate"`
	TotalRounds   int     `json:"total_rounds"`
	RoundWinRate  float64 `json:"round_win_rate"`
	AvgScore      float64 `json:"avg_score"`
	AvgDistanceKM float64 `json:"avg_distance_km"`
	CurrentRating *int    `json:"current_rating,omitempty"`
}

// Statistics is the full derived output. OmittedGames counts records that
// failed validation and were excluded; it is always present so consumers can
// tell a partial dataset from a complete one.
type Statistics struct {
	Overview          Overview             `json:"overview"`
	Games             []GameFact           `json:"games"`
	RatingProgression []RatingPoint        `json:"rating_progression"`
	Streaks           Streaks              `json:"streaks"`
	Countries         []CountryStats       `json:"countries"`
	OpponentCountries []CountryStats       `json:"opponent_countries"`
	Opponents         []OpponentStats      `json:"opponents"`
	RoundPositions    []RoundPositionStats `json:"round_positions"`
	Modes             []ModeStats          `json:"modes"`
	OmittedGames      int                  `json:"omitted_games"`
}
