package podds

import (
	"fmt"
	"time"
)

var day0 = time.Date(2024, 8, 10, 15, 0, 0, 0, time.UTC)

var testTeams = []string{"Leeds", "York", "Hull", "Derby", "Stoke", "Wigan"}

func played(home, away string, day, hg, ag int) MatchRecord {
	return MatchRecord{
		HomeTeam:  home,
		AwayTeam:  away,
		Date:      day0.AddDate(0, 0, day),
		GoalsHome: hg,
		GoalsAway: ag,
	}
}

// leagueHistory plays every pairing home and away once per round, one match a
// day, with deterministic scores
func leagueHistory(teams []string, rounds int) []MatchRecord {
	var out []MatchRecord
	day := 0
	for r := 0; r < rounds; r++ {
		for i := range teams {
			for j := range teams {
				if i == j {
					continue
				}
				out = append(out, played(teams[i], teams[j], day, (i+2*j+r)%4, (2*i+j+r)%3))
				day++
			}
		}
	}
	return out
}

func lastDay(history []MatchRecord) time.Time {
	var last time.Time
	for _, m := range history {
		if m.Date.After(last) {
			last = m.Date
		}
	}
	return last
}

// upcoming builds n fixtures on consecutive days after the history
func upcoming(history []MatchRecord, n int) []MatchRecord {
	start := lastDay(history).AddDate(0, 0, 1)
	out := make([]MatchRecord, 0, n)
	for i := 0; i < n; i++ {
		home := testTeams[i%len(testTeams)]
		away := testTeams[(i+1)%len(testTeams)]
		f := NewFixture(home, away, start.AddDate(0, 0, i))
		f.ID = fmt.Sprintf("fx-%02d", i)
		out = append(out, f)
	}
	return out
}

func flatForm(team string, scored, conceded float64) *TeamForm {
	return &TeamForm{
		Team:             team,
		WindowSize:       5,
		GamesUsed:        5,
		AvgGoalsScored:   scored,
		AvgGoalsConceded: conceded,
		HomeAdjustment:   1,
		AwayAdjustment:   1,
	}
}

// symmetricFeatures describes two identical teams in a league with no home advantage
func symmetricFeatures() *FixtureFeatures {
	return &FixtureFeatures{
		Fixture:  NewFixture("Alpha", "Beta", day0),
		HomeForm: flatForm("Alpha", 1.4, 1.4),
		AwayForm: flatForm("Beta", 1.4, 1.4),
		League:   newLeagueAverages(10, 14, 14, DefaultLeagueDefaults()),
	}
}
