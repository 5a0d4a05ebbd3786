package geoguessr

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poail0-cell/duels-analyzer-1/internal/duels"
)

// Standard duels starting health, used only when a round has no explicit
// health entry to carry forward from.
const startingHealth = 100

func isDuel(a feedActivity) bool {
	return a.GameMode == "Duels" && a.CompetitiveGameMode != nil
}

// extractDuelIDs pulls competitive duel game ids out of feed entries.
func extractDuelIDs(entries []feedEntry, logger *slog.Logger) []string {
	var ids []string
	for _, entry := range entries {
		ids = append(ids, duelIDsFromEntry(entry, logger)...)
	}
	return ids
}

// duelIDsFromEntry pulls competitive duel game ids out of one feed entry.
// The entry payload is a JSON string holding either one activity or a batch
// of wrapped activities; anything unparseable is skipped, since the feed
// mixes in activity types this tool does not care about.
func duelIDsFromEntry(entry feedEntry, logger *slog.Logger) []string {
	payload := strings.TrimSpace(entry.Payload)
	if payload == "" {
		return nil
	}

	if strings.HasPrefix(payload, "[") {
		var batch []feedActivityWrapper
		if err := json.Unmarshal([]byte(payload), &batch); err != nil {
			logger.Debug("skipping unparseable feed batch", "error", err)
			return nil
		}
		var ids []string
		for _, item := range batch {
			if isDuel(item.Payload) {
				ids = append(ids, item.Payload.GameID)
			}
		}
		return ids
	}

	var activity feedActivity
	if err := json.Unmarshal([]byte(payload), &activity); err != nil {
		logger.Debug("skipping unparseable feed entry", "error", err)
		return nil
	}
	if isDuel(activity) {
		return []string{activity.GameID}
	}
	return nil
}

// processGame flattens a raw duel payload into a GameRecord oriented around
// myPlayerID.
func processGame(raw *duelResponse, myPlayerID string) (*duels.GameRecord, error) {
	if raw.GameID == "" {
		return nil, fmt.Errorf("duel payload has no game id")
	}
	if len(raw.Teams) < 2 {
		return nil, fmt.Errorf("game %s: expected two teams, got %d", raw.GameID, len(raw.Teams))
	}

	myIdx := 0
	if len(raw.Teams[0].Players) == 0 || raw.Teams[0].Players[0].PlayerID != myPlayerID {
		myIdx = 1
	}
	myTeam, oppTeam := raw.Teams[myIdx], raw.Teams[1-myIdx]
	if len(myTeam.Players) == 0 || len(oppTeam.Players) == 0 {
		return nil, fmt.Errorf("game %s: team without players", raw.GameID)
	}
	oppPlayer := oppTeam.Players[0]

	played := raw.CurrentRoundNumber
	if played == 0 || played > len(raw.Rounds) {
		played = len(raw.Rounds)
	}

	ratingBefore, ratingAfter := extractRating(myTeam.Players[0])

	rec := &duels.GameRecord{
		GameID:          raw.GameID,
		Mode:            movementMode(raw.Options),
		CompetitiveMode: raw.Options.CompetitiveGameMode,
		MapName:         raw.Options.Map.Name,
		PlayerHealth:    healthSequence(myTeam, played),
		OpponentHealth:  healthSequence(oppTeam, played),
		RatingBefore:    ratingBefore,
		RatingAfter:     ratingAfter,
		Draw:            raw.IsDraw,
		Opponent: duels.Opponent{
			ID:          oppPlayer.PlayerID,
			Nick:        oppPlayer.Nick,
			CountryCode: oppPlayer.CountryCode,
		},
		Rounds: make([]duels.RoundRecord, 0, played),
	}
	if len(raw.Rounds) > 0 {
		rec.StartedAt = raw.Rounds[0].StartTime
	}

	for i := 0; i < played; i++ {
		rnd := raw.Rounds[i]
		rec.Rounds = append(rec.Rounds, duels.RoundRecord{
			RoundIndex:       i,
			CountryCode:      rnd.Panorama.CountryCode,
			Lat:              rnd.Panorama.Lat,
			Lng:              rnd.Panorama.Lng,
			DamageMultiplier: rnd.DamageMultiplier,
			Player:           findGuess(myTeam.Players[0], rnd.RoundNumber),
			Opponent:         findGuess(oppPlayer, rnd.RoundNumber),
		})
	}

	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("processed game failed validation: %w", err)
	}
	return rec, nil
}

func movementMode(opts duelOptions) duels.Mode {
	mv := opts.MovementOptions
	switch {
	case mv.ForbidMoving && mv.ForbidZooming && mv.ForbidRotating:
		return duels.ModeNMPZ
	case mv.ForbidMoving:
		return duels.ModeNoMove
	default:
		return duels.ModeMoving
	}
}

// extractRating digs the rating pair out of the progress data, preferring the
// competitive track over the ranked-system one. A bare rating of 0 means a
// placement player and is treated as absent so it cannot pollute averages.
func extractRating(p duelPlayer) (before, after *int) {
	if pc := p.ProgressChange; pc != nil {
		if cp := pc.CompetitiveProgress; cp != nil && cp.RatingAfter != nil {
			return cp.RatingBefore, cp.RatingAfter
		}
		if rs := pc.RankedSystemProgress; rs != nil && rs.RatingAfter != nil {
			return rs.RatingBefore, rs.RatingAfter
		}
	}
	if p.Rating != 0 {
		r := int(p.Rating)
		return nil, &r
	}
	return nil, nil
}

// healthSequence returns the health remaining after each of the first played
// rounds. Rounds without an explicit entry carry the previous value forward;
// a team with no per-round data at all gets its final health flattened across
// the sequence so outcome classification still works.
func healthSequence(team duelTeam, played int) []int {
	seq := make([]int, played)
	if len(team.RoundResults) == 0 {
		for i := range seq {
			seq[i] = int(team.Health)
		}
		return seq
	}

	byRound := make(map[int]int, len(team.RoundResults))
	for _, rr := range team.RoundResults {
		byRound[rr.RoundNumber] = int(rr.HealthAfter)
	}
	prev := startingHealth
	for i := 0; i < played; i++ {
		if v, ok := byRound[i+1]; ok {
			prev = v
		}
		seq[i] = prev
	}
	return seq
}

// findGuess matches a guess to a round by round number. No guess means the
// player let the round time out.
func findGuess(p duelPlayer, roundNumber int) duels.Guess {
	for _, g := range p.Guesses {
		if g.RoundNumber == roundNumber {
			return duels.Guess{
				Lat:        g.Lat,
				Lng:        g.Lng,
				DistanceKM: g.Distance / 1000.0,
				Score:      g.Score,
			}
		}
	}
	return duels.Guess{TimedOut: true}
}
