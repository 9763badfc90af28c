package podds

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// NotPlayed is the goal count of a match without a result
const NotPlayed = -1

// Result codes, packed two bits each into TeamForm.FormPoints
const (
	ResultNone = 0
	ResultLoss = 1
	ResultDraw = 2
	ResultWin  = 3
)

// MatchRecord is one historical result, or a fixture when both goal counts are NotPlayed
type MatchRecord struct {
	ID        string    `json:"id,omitempty"`
	League    string    `json:"league,omitempty"`
	Season    string    `json:"season,omitempty"`
	HomeTeam  string    `json:"homeTeam"`
	AwayTeam  string    `json:"awayTeam"`
	Date      time.Time `json:"date"`
	GoalsHome int       `json:"goalsHome"`
	GoalsAway int       `json:"goalsAway"`
}

// NewFixture returns an unplayed match
func NewFixture(home, away string, date time.Time) MatchRecord {
	return MatchRecord{
		HomeTeam:  home,
		AwayTeam:  away,
		Date:      date,
		GoalsHome: NotPlayed,
		GoalsAway: NotPlayed,
	}
}

// Played reports whether the record carries a final score
func (m MatchRecord) Played() bool {
	return m.GoalsHome >= 0 && m.GoalsAway >= 0
}

// Key identifies the match. Records without an explicit ID get one derived
// from date and team names.
func (m MatchRecord) Key() string {
	if m.ID != "" {
		return m.ID
	}
	return fmt.Sprintf("%s_%s_v_%s", m.Date.Format("2006-01-02"),
		strings.ReplaceAll(m.HomeTeam, " ", "-"),
		strings.ReplaceAll(m.AwayTeam, " ", "-"))
}

// Label is the human readable "Home vs Away" used in tables
func (m MatchRecord) Label() string {
	return m.HomeTeam + " vs " + m.AwayTeam
}

// Involves reports whether team played in the match
func (m MatchRecord) Involves(team string) bool {
	return m.HomeTeam == team || m.AwayTeam == team
}

// GoalsFor returns the goals scored and conceded by team and whether it was at home
func (m MatchRecord) GoalsFor(team string) (scored, conceded int, home bool) {
	if m.HomeTeam == team {
		return m.GoalsHome, m.GoalsAway, true
	}
	return m.GoalsAway, m.GoalsHome, false
}

// ResultFor returns ResultWin, ResultDraw or ResultLoss from team's point of view,
// or ResultNone for an unplayed match
func (m MatchRecord) ResultFor(team string) int {
	if !m.Played() || !m.Involves(team) {
		return ResultNone
	}
	scored, conceded, _ := m.GoalsFor(team)
	switch {
	case scored > conceded:
		return ResultWin
	case scored == conceded:
		return ResultDraw
	}
	return ResultLoss
}

// Validate checks a record is usable either as history or as a fixture
func (m MatchRecord) Validate() error {
	switch {
	case strings.TrimSpace(m.HomeTeam) == "":
		return &MalformedFixtureError{Fixture: m.Key(), Reason: "missing home team"}
	case strings.TrimSpace(m.AwayTeam) == "":
		return &MalformedFixtureError{Fixture: m.Key(), Reason: "missing away team"}
	case m.HomeTeam == m.AwayTeam:
		return &MalformedFixtureError{Fixture: m.Key(), Reason: "team cannot play itself"}
	case m.Date.IsZero():
		return &MalformedFixtureError{Fixture: m.Key(), Reason: "missing date"}
	case m.GoalsHome < NotPlayed || m.GoalsAway < NotPlayed:
		return &MalformedFixtureError{Fixture: m.Key(), Reason: "negative goal count"}
	case m.Played() != (m.GoalsHome >= 0 || m.GoalsAway >= 0):
		return &MalformedFixtureError{Fixture: m.Key(), Reason: "only one side has a score"}
	}
	return nil
}

// SortByDate orders records oldest first, keeping input order for equal dates
func SortByDate(records []MatchRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date.Before(records[j].Date)
	})
}

// SplitFixtures separates played matches from fixtures, preserving order
func SplitFixtures(records []MatchRecord) (history, fixtures []MatchRecord) {
	for _, r := range records {
		if r.Played() {
			history = append(history, r)
		} else {
			fixtures = append(fixtures, r)
		}
	}
	return history, fixtures
}
