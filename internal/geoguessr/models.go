package geoguessr

import "time"

// Player is the authenticated player as seen by the feed.
type Player struct {
	ID   string `json:"id"`
	Nick string `json:"nick"`
}

// feedResponse is one page of the private activity feed.
type feedResponse struct {
	Entries         []feedEntry `json:"entries"`
	PaginationToken string      `json:"paginationToken"`
}

// feedEntry carries its payload as a JSON string, which decodes to either a
// single activity object or a batch of wrapped activities.
type feedEntry struct {
	Time    time.Time `json:"time"`
	User    Player    `json:"user"`
	Payload string    `json:"payload"`
}

type feedActivity struct {
	GameMode            string  `json:"gameMode"`
	GameID              string  `json:"gameId"`
	CompetitiveGameMode *string `json:"competitiveGameMode"`
}

type feedActivityWrapper struct {
	Payload feedActivity `json:"payload"`
}

// duelResponse is the raw duel payload from the game server.
type duelResponse struct {
	GameID             string      `json:"gameId"`
	CurrentRoundNumber int         `json:"currentRoundNumber"`
	IsDraw             bool        `json:"isDraw"`
	Options            duelOptions `json:"options"`
	Teams              []duelTeam  `json:"teams"`
	Rounds             []duelRound `json:"rounds"`
}

type duelOptions struct {
	Map struct {
		Name string `json:"name"`
	} `json:"map"`
	CompetitiveGameMode string `json:"competitiveGameMode"`
	MovementOptions     struct {
		ForbidMoving   bool `json:"forbidMoving"`
		ForbidZooming  bool `json:"forbidZooming"`
		ForbidRotating bool `json:"forbidRotating"`
	} `json:"movementOptions"`
}

type duelTeam struct {
	ID           string            `json:"id"`
	Health       float64           `json:"health"`
	RoundResults []duelRoundResult `json:"roundResults"`
	Players      []duelPlayer      `json:"players"`
}

type duelRoundResult struct {
	RoundNumber int     `json:"roundNumber"`
	HealthAfter float64 `json:"healthAfter"`
}

type duelPlayer struct {
	PlayerID       string              `json:"playerId"`
	Nick           string              `json:"nick"`
	CountryCode    string              `json:"countryCode"`
	Rating         float64             `json:"rating"`
	ProgressChange *duelProgressChange `json:"progressChange"`
	Guesses        []duelGuess         `json:"guesses"`
}

type duelProgressChange struct {
	CompetitiveProgress  *duelRatingProgress `json:"competitiveProgress"`
	RankedSystemProgress *duelRatingProgress `json:"rankedSystemProgress"`
}

type duelRatingProgress struct {
	RatingBefore *int `json:"ratingBefore"`
	RatingAfter  *int `json:"ratingAfter"`
}

type duelGuess struct {
	RoundNumber int     `json:"roundNumber"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	Distance    float64 `json:"distance"`
	Score       int     `json:"score"`
}

type duelRound struct {
	RoundNumber      int       `json:"roundNumber"`
	StartTime        time.Time `json:"startTime"`
	DamageMultiplier *float64  `json:"damageMultiplier"`
	Panorama         struct {
		CountryCode string  `json:"countryCode"`
		Lat         float64 `json:"lat"`
		Lng         float64 `json:"lng"`
	} `json:"panorama"`
}
