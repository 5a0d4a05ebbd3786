package duels

import (
	"errors"
	"fmt"
	"time"
)

var ErrDuplicateGame = errors.New("duplicate game id")

// Mode represents the movement restrictions of a duel
type Mode string

const (
	ModeMoving Mode = "moving"
	ModeNoMove Mode = "no_move"
	ModeNMPZ   Mode = "nmpz"
)

// Outcome represents the result of a completed duel
type Outcome string

const (
	OutcomeWin     Outcome = "win"
	OutcomeLoss    Outcome = "loss"
	OutcomeDraw    Outcome = "draw"
	OutcomeUnknown Outcome = "unknown"
)

// Opponent identifies the other player in a duel. ID is the persistent
// account id when the source exposed one; Nick and CountryCode are always
// best-effort.
type Opponent struct {
	ID          string `json:"id,omitempty"`
	Nick        string `json:"nick,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
}

// Guess is one side's answer for a round. TimedOut marks rounds where no
// guess was submitted before the clock ran out; coordinates and distance are
// meaningless in that case and Score is 0.
type Guess struct {
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	DistanceKM float64 `json:"distance_km"`
	Score      int     `json:"score"`
	TimedOut   bool    `json:"timed_out,omitempty"`
}

// RoundRecord is one round within a duel, in play order.
type RoundRecord struct {
	RoundIndex       int      `json:"round_index"`
	CountryCode      string   `json:"country_code"`
	Lat              float64  `json:"lat"`
	Lng              float64  `json:"lng"`
	DamageMultiplier *float64 `json:"damage_multiplier,omitempty"`
	Player           Guess    `json:"player"`
	Opponent         Guess    `json:"opponent"`
}

// GameRecord is one completed duel as returned by the remote source.
// PlayerHealth and OpponentHealth hold the health remaining after each round,
// so their length always matches Rounds.
type GameRecord struct {
	GameID          string        `json:"game_id"`
	Mode            Mode          `json:"mode"`
	CompetitiveMode string        `json:"competitive_mode,omitempty"`
	MapName         string        `json:"map_name,omitempty"`
	StartedAt       time.Time     `json:"started_at"`
	PlayerHealth    []int         `json:"player_health"`
	OpponentHealth  []int         `json:"opponent_health"`
	RatingBefore    *int          `json:"rating_before,omitempty"`
	RatingAfter     *int          `json:"rating_after,omitempty"`
	Draw            bool          `json:"draw,omitempty"`
	Opponent        Opponent      `json:"opponent"`
	Rounds          []RoundRecord `json:"rounds"`
}

// Validate reports whether the record satisfies the structural invariants the
// derivation pipeline relies on.
func (g *GameRecord) Validate() error {
	if g.GameID == "" {
		return errors.New("missing game id")
	}
	if len(g.PlayerHealth) != len(g.Rounds) || len(g.OpponentHealth) != len(g.Rounds) {
		return fmt.Errorf("game %s: health sequences (%d/%d) do not match round count %d",
			g.GameID, len(g.PlayerHealth), len(g.OpponentHealth), len(g.Rounds))
	}
	return nil
}

// Outcome classifies the game from final health. Duels are elimination
// based: the win goes to whoever survives, regardless of score totals. Draw
// requires an explicit draw flag with neither side eliminated; anything else
// that left both sides alive is an unfinished game.
func (g *GameRecord) Outcome() Outcome {
	if len(g.PlayerHealth) == 0 || len(g.OpponentHealth) == 0 {
		return OutcomeUnknown
	}
	mine := g.PlayerHealth[len(g.PlayerHealth)-1]
	theirs := g.OpponentHealth[len(g.OpponentHealth)-1]
	switch {
	case theirs <= 0 && mine > 0:
		return OutcomeWin
	case mine <= 0 && theirs > 0:
		return OutcomeLoss
	case mine > 0 && theirs > 0 && g.Draw:
		return OutcomeDraw
	default:
		return OutcomeUnknown
	}
}

// RatingDelta returns rating_after - rating_before, or nil when either side
// of the pair is absent (unrated or placement games).
func (g *GameRecord) RatingDelta() *int {
	if g.RatingBefore == nil || g.RatingAfter == nil {
		return nil
	}
	d := *g.RatingAfter - *g.RatingBefore
	return &d
}

// OpponentKey returns a grouping key for head-to-head aggregation and whether
// that key is weak. The persistent opponent id is preferred; nick+country is
// the fallback and may collide or split across nick changes.
func (g *GameRecord) OpponentKey() (key string, weak bool) {
	if g.Opponent.ID != "" {
		return g.Opponent.ID, false
	}
	return g.Opponent.Nick + "/" + g.Opponent.CountryCode, true
}
