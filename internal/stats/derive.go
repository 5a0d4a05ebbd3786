package stats

import (
	"sort"
	"strings"

	"github.com/poail0-cell/duels-analyzer-1/internal/duels"
)

// DefaultMinCountrySample is the round count under which a country breakdown
// is flagged low-confidence.
const DefaultMinCountrySample = 5

// Derive computes every statistic family from a cache snapshot. It is a pure
// function of its input: no I/O, no shared state, identical output for
// identical snapshots. Records failing validation are excluded and counted
// in OmittedGames rather than failing the whole derivation.
func Derive(cache *duels.Cache, minCountrySample int) *Statistics {
	if minCountrySample <= 0 {
		minCountrySample = DefaultMinCountrySample
	}

	var games []duels.GameRecord
	omitted := 0
	for _, g := range cache.Games() {
		if g.Validate() != nil {
			omitted++
			continue
		}
		games = append(games, g)
	}
	sort.SliceStable(games, func(i, j int) bool {
		if !games[i].StartedAt.Equal(games[j].StartedAt) {
			return games[i].StartedAt.Before(games[j].StartedAt)
		}
		return games[i].GameID < games[j].GameID
	})

	s := &Statistics{
		Games:             []GameFact{},
		RatingProgression: []RatingPoint{},
		Opponents:         []OpponentStats{},
		RoundPositions:    []RoundPositionStats{},
		Modes:             []ModeStats{},
		OmittedGames:      omitted,
	}
	deriveGameLevel(s, games)
	deriveRoundLevel(s, games, minCountrySample)
	return s
}

// countryAccumulator builds one CountryStats series from per-round
// observations. Both the panorama-country and opponent-nationality
// breakdowns go through it.
type countryAccumulator struct {
	byCode  map[string]*CountryStats
	guesses map[string]int
}

func newCountryAccumulator() *countryAccumulator {
	return &countryAccumulator{
		byCode:  map[string]*CountryStats{},
		guesses: map[string]int{},
	}
}

func (a *countryAccumulator) add(code string, player duels.Guess, result RoundResult) {
	code = strings.ToLower(code)
	c := a.byCode[code]
	if c == nil {
		c = &CountryStats{Code: code, Name: duels.CountryName(code)}
		a.byCode[code] = c
	}
	c.Rounds++
	c.AvgScore += float64(player.Score)
	if !player.TimedOut {
		c.AvgDistanceKM += player.DistanceKM
		a.guesses[code]++
	}
	countRound(c, result)
}

func (a *countryAccumulator) finalize(minSample int) []CountryStats {
	out := make([]CountryStats, 0, len(a.byCode))
	for code, c := range a.byCode {
		// Score averages count timed-out rounds as 0; distance averages
		// only cover rounds where a guess exists.
		c.AvgScore /= float64(c.Rounds)
		if n := a.guesses[code]; n > 0 {
			c.AvgDistanceKM /= float64(n)
		}
		c.WinRate = pct(c.Wins, c.Wins+c.Losses)
		c.LowConfidence = c.Rounds < minSample
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rounds != out[j].Rounds {
			return out[i].Rounds > out[j].Rounds
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func deriveGameLevel(s *Statistics, games []duels.GameRecord) {
	var decided []duels.Outcome
	prevPolarity := duels.OutcomeUnknown

	modes := map[duels.Mode]*ModeStats{}
	opponents := map[string]*OpponentStats{}

	for _, g := range games {
		outcome := g.Outcome()

		fact := GameFact{
			GameID:      g.GameID,
			PlayedAt:    g.StartedAt,
			Mode:        g.Mode,
			Outcome:     outcome,
			RatingDelta: g.RatingDelta(),
		}
		switch outcome {
		case duels.OutcomeWin, duels.OutcomeLoss:
			fact.StreakContinuation = outcome == prevPolarity
			prevPolarity = outcome
			decided = append(decided, outcome)
		case duels.OutcomeDraw:
			prevPolarity = duels.OutcomeUnknown
			decided = append(decided, outcome)
		}
		s.Games = append(s.Games, fact)

		if g.RatingAfter != nil {
			s.RatingProgression = append(s.RatingProgression, RatingPoint{
				GameID:      g.GameID,
				PlayedAt:    g.StartedAt,
				RatingAfter: *g.RatingAfter,
				Delta:       g.RatingDelta(),
			})
		}

		m := modes[g.Mode]
		if m == nil {
			m = &ModeStats{Mode: g.Mode}
			modes[g.Mode] = m
		}
		m.Games++
		tally(&m.Wins, &m.Losses, &m.Draws, outcome)

		key, weak := g.OpponentKey()
		o := opponents[key]
		if o == nil {
			o = &OpponentStats{Key: key, WeakIdentity: weak}
			opponents[key] = o
		}
		o.OpponentID = g.Opponent.ID
		o.Nick = g.Opponent.Nick
		o.CountryCode = g.Opponent.CountryCode
		o.CountryName = duels.CountryName(g.Opponent.CountryCode)
		o.Games++
		tally(&o.Wins, &o.Losses, &o.Draws, outcome)
		if g.StartedAt.After(o.LastPlayedAt) {
			o.LastPlayedAt = g.StartedAt
		}
	}

	s.Streaks = deriveStreaks(decided)

	ov := &s.Overview
	ov.TotalGames = len(games)
	for _, o := range decided {
		tally(&ov.Wins, &ov.Losses, &ov.Draws, o)
	}
	ov.GameWinRate = pct(ov.Wins, ov.Wins+ov.Losses+ov.Draws)
	if n := len(s.RatingProgression); n > 0 {
		r := s.RatingProgression[n-1].RatingAfter
		ov.CurrentRating = &r
	}

	for _, m := range modes {
		m.WinRate = pct(m.Wins, m.Wins+m.Losses+m.Draws)
		s.Modes = append(s.Modes, *m)
	}
	sort.Slice(s.Modes, func(i, j int) bool {
		if s.Modes[i].Games != s.Modes[j].Games {
			return s.Modes[i].Games > s.Modes[j].Games
		}
		return s.Modes[i].Mode < s.Modes[j].Mode
	})

	for _, o := range opponents {
		s.Opponents = append(s.Opponents, *o)
	}
	sort.Slice(s.Opponents, func(i, j int) bool {
		a, b := s.Opponents[i], s.Opponents[j]
		if a.Games != b.Games {
			return a.Games > b.Games
		}
		if !a.LastPlayedAt.Equal(b.LastPlayedAt) {
			return a.LastPlayedAt.After(b.LastPlayedAt)
		}
		return a.Key < b.Key
	})
}

func deriveRoundLevel(s *Statistics, games []duels.GameRecord, minCountrySample int) {
	countries := newCountryAccumulator()
	oppCountries := newCountryAccumulator()
	positions := map[int]*RoundPositionStats{}

	var (
		totalRounds, roundWins, roundLosses int
		scoreSum                            float64
		distanceSum                         float64
		distanceCount                       int
	)

	for _, g := range games {
		for _, r := range g.Rounds {
			result := roundOutcome(r)
			totalRounds++
			scoreSum += float64(r.Player.Score)
			if !r.Player.TimedOut {
				distanceSum += r.Player.DistanceKM
				distanceCount++
			}
			switch result {
			case RoundWon:
				roundWins++
			case RoundLost:
				roundLosses++
			}

			countries.add(r.CountryCode, r.Player, result)
			oppCountries.add(g.Opponent.CountryCode, r.Player, result)

			pos := positions[r.RoundIndex+1]
			if pos == nil {
				pos = &RoundPositionStats{Position: r.RoundIndex + 1}
				positions[r.RoundIndex+1] = pos
			}
			pos.Rounds++
			pos.AvgScore += float64(r.Player.Score)
			switch result {
			case RoundWon:
				pos.Wins++
			case RoundLost:
				pos.Losses++
			case RoundDrawn:
				pos.Draws++
			}
		}
	}

	ov := &s.Overview
	ov.TotalRounds = totalRounds
	ov.RoundWinRate = pct(roundWins, roundWins+roundLosses)
	if totalRounds > 0 {
		ov.AvgScore = scoreSum / float64(totalRounds)
	}
	if distanceCount > 0 {
		ov.AvgDistanceKM = distanceSum / float64(distanceCount)
	}

	s.Countries = countries.finalize(minCountrySample)
	s.OpponentCountries = oppCountries.finalize(minCountrySample)

	for _, p := range positions {
		if p.Rounds > 0 {
			p.AvgScore /= float64(p.Rounds)
		}
		p.WinRate = pct(p.Wins, p.Wins+p.Losses)
		s.RoundPositions = append(s.RoundPositions, *p)
	}
	sort.Slice(s.RoundPositions, func(i, j int) bool {
		return s.RoundPositions[i].Position < s.RoundPositions[j].Position
	})
}

// deriveStreaks walks the decided-outcome series in chronological order.
// Draws break runs without starting one. Length ties on the longest run go
// to the more recent run.
func deriveStreaks(decided []duels.Outcome) Streaks {
	var st Streaks
	var cur StreakRun

	endRun := func() {
		if cur.Length == 0 {
			return
		}
		if cur.Length >= st.Longest.Length {
			st.Longest = cur
		}
		if cur.Outcome == duels.OutcomeWin && cur.Length > st.LongestWin {
			st.LongestWin = cur.Length
		}
		if cur.Outcome == duels.OutcomeLoss && cur.Length > st.LongestLoss {
			st.LongestLoss = cur.Length
		}
	}

	for _, o := range decided {
		switch o {
		case duels.OutcomeWin, duels.OutcomeLoss:
			if cur.Outcome == o {
				cur.Length++
				continue
			}
			endRun()
			cur = StreakRun{Outcome: o, Length: 1}
		default:
			endRun()
			cur = StreakRun{}
		}
	}
	st.Current = cur
	endRun()
	return st
}

// roundOutcome decides a round from the player's side. Equal scores fall
// back to the smaller distance error; a side that timed out has no distance
// and loses the tie-break; two timeouts are a drawn round.
func roundOutcome(r duels.RoundRecord) RoundResult {
	switch {
	case r.Player.Score > r.Opponent.Score:
		return RoundWon
	case r.Player.Score < r.Opponent.Score:
		return RoundLost
	case r.Player.TimedOut && r.Opponent.TimedOut:
		return RoundDrawn
	case r.Player.TimedOut:
		return RoundLost
	case r.Opponent.TimedOut:
		return RoundWon
	case r.Player.DistanceKM < r.Opponent.DistanceKM:
		return RoundWon
	case r.Player.DistanceKM > r.Opponent.DistanceKM:
		return RoundLost
	default:
		return RoundDrawn
	}
}

func countRound(c *CountryStats, result RoundResult) {
	switch result {
	case RoundWon:
		c.Wins++
	case RoundLost:
		c.Losses++
	case RoundDrawn:
		c.Draws++
	}
}

func tally(wins, losses, draws *int, outcome duels.Outcome) {
	switch outcome {
	case duels.OutcomeWin:
		*wins++
	case duels.OutcomeLoss:
		*losses++
	case duels.OutcomeDraw:
		*draws++
	}
}

func pct(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(part) / float64(total)
}
