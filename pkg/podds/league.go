package podds

// LeagueDefaults are used when there is no history to average over
type LeagueDefaults struct {
	HomeGoalsPerGame float64 `json:"homeGoalsPerGame" yaml:"home_goals_per_game"`
	AwayGoalsPerGame float64 `json:"awayGoalsPerGame" yaml:"away_goals_per_game"`
}

// DefaultLeagueDefaults are typical values for English league football
func DefaultLeagueDefaults() LeagueDefaults {
	return LeagueDefaults{HomeGoalsPerGame: 1.5, AwayGoalsPerGame: 1.1}
}

// LeagueAverages summarises all played matches before a cut-off date
type LeagueAverages struct {
	Matches          int     `json:"matches"`
	HomeGoalsPerGame float64 `json:"homeGoalsPerGame"`
	AwayGoalsPerGame float64 `json:"awayGoalsPerGame"`
	// GoalsPerGame is the mean goals scored by one team in one match
	GoalsPerGame   float64 `json:"goalsPerGame"`
	HomeAdvantage  float64 `json:"homeAdvantage"`
	AwayAdjustment float64 `json:"awayAdjustment"`
}

// newLeagueAverages builds averages from goal totals, falling back to defaults
// when there are no matches
func newLeagueAverages(matches int, homeGoals, awayGoals float64, d LeagueDefaults) LeagueAverages {
	la := LeagueAverages{Matches: matches}
	if matches == 0 {
		la.HomeGoalsPerGame = d.HomeGoalsPerGame
		la.AwayGoalsPerGame = d.AwayGoalsPerGame
	} else {
		la.HomeGoalsPerGame = homeGoals / float64(matches)
		la.AwayGoalsPerGame = awayGoals / float64(matches)
	}
	la.GoalsPerGame = (la.HomeGoalsPerGame + la.AwayGoalsPerGame) / 2
	if la.GoalsPerGame <= 0 {
		la.HomeAdvantage = 1.0
		la.AwayAdjustment = 1.0
		return la
	}
	la.HomeAdvantage = makeSensible(la.HomeGoalsPerGame / la.GoalsPerGame)
	la.AwayAdjustment = makeSensible(la.AwayGoalsPerGame / la.GoalsPerGame)
	return la
}

// CalculateLeagueAverages averages the played matches in records
func CalculateLeagueAverages(records []MatchRecord, d LeagueDefaults) LeagueAverages {
	var n int
	var home, away float64
	for _, r := range records {
		if !r.Played() {
			continue
		}
		n++
		home += float64(r.GoalsHome)
		away += float64(r.GoalsAway)
	}
	return newLeagueAverages(n, home, away, d)
}

// makeSensible keeps multiplicative adjustments away from zero
func makeSensible(value float64) float64 {
	if value <= 0 {
		return 1.0
	}
	return value
}
