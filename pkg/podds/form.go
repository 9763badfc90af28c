package podds

import (
	"sort"
	"strings"
	"time"
)

// Venue restricts which matches count towards a team's window
type Venue int

const (
	VenueAll Venue = iota
	VenueHome
	VenueAway
)

func (v Venue) String() string {
	switch v {
	case VenueHome:
		return "home"
	case VenueAway:
		return "away"
	}
	return "all"
}

// formDigits is how many results FormPoints remembers
const formDigits = 5

// TeamForm is a team's recent record at a point in time
type TeamForm struct {
	Team             string  `json:"team"`
	Venue            Venue   `json:"venue"`
	WindowSize       int     `json:"windowSize"`
	GamesUsed        int     `json:"gamesUsed"`
	AvgGoalsScored   float64 `json:"avgGoalsScored"`
	AvgGoalsConceded float64 `json:"avgGoalsConceded"`
	HomeAdjustment   float64 `json:"homeAdjustment"`
	AwayAdjustment   float64 `json:"awayAdjustment"`
	// FormPoints packs the last five results in base 4, most recent first
	FormPoints        int     `json:"formPoints"`
	FormPercentage    float64 `json:"formPercentage"`
	ReducedConfidence bool    `json:"reducedConfidence"`
}

// FormString renders FormPoints as e.g. "WWDLW", most recent first
func (f *TeamForm) FormString() string {
	return DecodeForm(f.FormPoints)
}

// EncodeForm packs results (most recent first) the same way a rolling
// quaternary update would
func EncodeForm(results []int) int {
	ret := 0
	for i, r := range results {
		if i == formDigits {
			break
		}
		ret = ret*4 + r
	}
	return ret
}

// DecodeForm is the inverse of EncodeForm
func DecodeForm(points int) string {
	var digits []byte
	for points > 0 {
		switch points % 4 {
		case ResultWin:
			digits = append(digits, 'W')
		case ResultDraw:
			digits = append(digits, 'D')
		case ResultLoss:
			digits = append(digits, 'L')
		default:
			digits = append(digits, '-')
		}
		points /= 4
	}
	// least significant digit is the oldest result
	var sb strings.Builder
	for i := len(digits) - 1; i >= 0; i-- {
		sb.WriteByte(digits[i])
	}
	return sb.String()
}

// History is a date ordered, read only view over played matches with
// per-team indexes and running goal totals
type History struct {
	matches   []MatchRecord
	homeGoals []float64
	awayGoals []float64
	byTeam    map[string][]int
}

// NewHistory copies the played records in data and orders them by date
func NewHistory(records []MatchRecord) *History {
	played := make([]MatchRecord, 0, len(records))
	for _, r := range records {
		if r.Played() && r.Validate() == nil {
			played = append(played, r)
		}
	}
	SortByDate(played)

	h := &History{
		matches:   played,
		homeGoals: make([]float64, len(played)+1),
		awayGoals: make([]float64, len(played)+1),
		byTeam:    make(map[string][]int),
	}
	for i, m := range played {
		h.homeGoals[i+1] = h.homeGoals[i] + float64(m.GoalsHome)
		h.awayGoals[i+1] = h.awayGoals[i] + float64(m.GoalsAway)
		h.byTeam[m.HomeTeam] = append(h.byTeam[m.HomeTeam], i)
		h.byTeam[m.AwayTeam] = append(h.byTeam[m.AwayTeam], i)
	}
	return h
}

func (h *History) Len() int {
	return len(h.matches)
}

// Matches returns the ordered played matches. Callers must not modify them.
func (h *History) Matches() []MatchRecord {
	return h.matches
}

// Teams lists every team seen, sorted
func (h *History) Teams() []string {
	teams := make([]string, 0, len(h.byTeam))
	for t := range h.byTeam {
		teams = append(teams, t)
	}
	sort.Strings(teams)
	return teams
}

// cutoff is the number of matches dated strictly before t
func (h *History) cutoff(t time.Time) int {
	return sort.Search(len(h.matches), func(i int) bool {
		return !h.matches[i].Date.Before(t)
	})
}

// LeagueAveragesBefore averages every match strictly before the given date
func (h *History) LeagueAveragesBefore(before time.Time, d LeagueDefaults) LeagueAverages {
	n := h.cutoff(before)
	return newLeagueAverages(n, h.homeGoals[n], h.awayGoals[n], d)
}

// TeamMatchesBefore returns up to limit of team's matches strictly before the
// date, most recent first. limit <= 0 means no limit.
func (h *History) TeamMatchesBefore(team string, before time.Time, venue Venue, limit int) []MatchRecord {
	idx := h.byTeam[team]
	k := sort.SearchInts(idx, h.cutoff(before))

	var out []MatchRecord
	for i := k - 1; i >= 0; i-- {
		m := h.matches[idx[i]]
		if venue == VenueHome && m.HomeTeam != team {
			continue
		}
		if venue == VenueAway && m.AwayTeam != team {
			continue
		}
		out = append(out, m)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// TeamForm computes team's form over its last lastN matches strictly before
// the given date. When fewer matches exist the form is still returned, built
// from what is available and flagged ReducedConfidence, together with an
// *InsufficientHistoryError.
func (h *History) TeamForm(team string, before time.Time, lastN int, venue Venue, league LeagueAverages) (*TeamForm, error) {
	if lastN < 1 {
		return nil, invalidParam("last_n_games", lastN, "must be at least 1")
	}

	window := h.TeamMatchesBefore(team, before, venue, lastN)
	form := &TeamForm{
		Team:           team,
		Venue:          venue,
		WindowSize:     lastN,
		GamesUsed:      len(window),
		HomeAdjustment: league.HomeAdvantage,
		AwayAdjustment: league.AwayAdjustment,
	}

	if len(window) == 0 {
		switch venue {
		case VenueHome:
			form.AvgGoalsScored = league.HomeGoalsPerGame
			form.AvgGoalsConceded = league.AwayGoalsPerGame
		case VenueAway:
			form.AvgGoalsScored = league.AwayGoalsPerGame
			form.AvgGoalsConceded = league.HomeGoalsPerGame
		default:
			form.AvgGoalsScored = league.GoalsPerGame
			form.AvgGoalsConceded = league.GoalsPerGame
		}
	} else {
		var scored, conceded, points int
		results := make([]int, 0, len(window))
		for _, m := range window {
			s, c, _ := m.GoalsFor(team)
			scored += s
			conceded += c
			r := m.ResultFor(team)
			results = append(results, r)
			switch r {
			case ResultWin:
				points += 3
			case ResultDraw:
				points++
			}
		}
		n := float64(len(window))
		form.AvgGoalsScored = float64(scored) / n
		form.AvgGoalsConceded = float64(conceded) / n
		form.FormPoints = EncodeForm(results)
		form.FormPercentage = float64(points) / (3 * n) * 100
	}

	if len(window) < lastN {
		form.ReducedConfidence = true
		return form, &InsufficientHistoryError{Team: team, Before: before, Want: lastN, Have: len(window)}
	}
	return form, nil
}
