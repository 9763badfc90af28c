package podds

import (
	"errors"

	"github.com/richard-senior/matchpredict/internal/logger"
)

const (
	MinLastNGames     = 1
	MaxLastNGames     = 10
	DefaultLastNGames = 5
)

// PrepareOptions controls feature extraction
type PrepareOptions struct {
	LastNGames int
	// SeparateHomeAwayWindow restricts the home side's window to its home games
	// and the away side's window to its away games
	SeparateHomeAwayWindow bool
	Defaults               LeagueDefaults
	// Fixtures to featurise. When nil the unplayed records in the input are used.
	Fixtures []MatchRecord
}

// FixtureFeatures is everything the models see for one fixture. Both forms only
// use matches dated strictly before the fixture.
type FixtureFeatures struct {
	Index    int            `json:"index"`
	Fixture  MatchRecord    `json:"fixture"`
	HomeForm *TeamForm      `json:"homeForm,omitempty"`
	AwayForm *TeamForm      `json:"awayForm,omitempty"`
	League   LeagueAverages `json:"league"`
	// Err is set when the fixture could not be featurised
	Err error `json:"-"`
}

// ReducedConfidence is true when either side had less history than requested
func (f *FixtureFeatures) ReducedConfidence() bool {
	return (f.HomeForm != nil && f.HomeForm.ReducedConfidence) ||
		(f.AwayForm != nil && f.AwayForm.ReducedConfidence)
}

// Prepared holds featurised fixtures in input order plus a lookup by fixture key
type Prepared struct {
	Fixtures               []*FixtureFeatures
	LastNGames             int
	SeparateHomeAwayWindow bool
	History                *History
	byKey                  map[string]*FixtureFeatures
}

func (p *Prepared) Len() int {
	return len(p.Fixtures)
}

// Lookup finds features by MatchRecord.Key. Duplicate keys resolve to the first occurrence.
func (p *Prepared) Lookup(key string) (*FixtureFeatures, bool) {
	f, ok := p.byKey[key]
	return f, ok
}

// ValidateLastNGames checks the window size range
func ValidateLastNGames(n int) error {
	if n < MinLastNGames || n > MaxLastNGames {
		return invalidParam("last_n_games", n, "must be between %d and %d", MinLastNGames, MaxLastNGames)
	}
	return nil
}

// Prepare builds per-fixture features from historical matches. It has no side
// effects besides logging.
func Prepare(matches []MatchRecord, opts PrepareOptions) (*Prepared, error) {
	if err := ValidateLastNGames(opts.LastNGames); err != nil {
		return nil, err
	}
	if opts.Defaults == (LeagueDefaults{}) {
		opts.Defaults = DefaultLeagueDefaults()
	}

	fixtures := opts.Fixtures
	if fixtures == nil {
		_, fixtures = SplitFixtures(matches)
	}

	history := NewHistory(matches)
	p := &Prepared{
		Fixtures:               make([]*FixtureFeatures, 0, len(fixtures)),
		LastNGames:             opts.LastNGames,
		SeparateHomeAwayWindow: opts.SeparateHomeAwayWindow,
		History:                history,
		byKey:                  make(map[string]*FixtureFeatures, len(fixtures)),
	}

	homeVenue, awayVenue := VenueAll, VenueAll
	if opts.SeparateHomeAwayWindow {
		homeVenue, awayVenue = VenueHome, VenueAway
	}

	reduced := 0
	for i, fx := range fixtures {
		ff := &FixtureFeatures{Index: i, Fixture: fx}
		p.Fixtures = append(p.Fixtures, ff)
		if _, dup := p.byKey[fx.Key()]; !dup {
			p.byKey[fx.Key()] = ff
		}

		if err := fx.Validate(); err != nil {
			logger.Warn("Skipping features for fixture", i, err)
			ff.Err = err
			continue
		}

		ff.League = history.LeagueAveragesBefore(fx.Date, opts.Defaults)

		var err error
		ff.HomeForm, err = teamFormWithFallback(history, fx.HomeTeam, fx, opts.LastNGames, homeVenue, ff.League)
		if err != nil {
			ff.Err = err
			continue
		}
		ff.AwayForm, err = teamFormWithFallback(history, fx.AwayTeam, fx, opts.LastNGames, awayVenue, ff.League)
		if err != nil {
			ff.Err = err
			continue
		}
		if ff.ReducedConfidence() {
			reduced++
		}
	}

	logger.Info("Prepared fixtures", len(p.Fixtures), "history", history.Len(), "reduced confidence", reduced)
	return p, nil
}

// teamFormWithFallback absorbs InsufficientHistoryError: the partial form is
// kept and already carries the ReducedConfidence flag
func teamFormWithFallback(h *History, team string, fx MatchRecord, lastN int, venue Venue, league LeagueAverages) (*TeamForm, error) {
	form, err := h.TeamForm(team, fx.Date, lastN, venue, league)
	var ih *InsufficientHistoryError
	if errors.As(err, &ih) {
		logger.Warn("Using reduced history for", fx.Label(), ih)
		return form, nil
	}
	return form, err
}
