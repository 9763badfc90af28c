package store

import (
	"time"

	"github.com/richard-senior/matchpredict/pkg/podds"
)

// MatchRow is the persisted form of a podds.MatchRecord. Fixtures keep goals of -1.
type MatchRow struct {
	ID        string    `column:"id" dbtype:"TEXT NOT NULL" primary:"true"`
	League    string    `column:"league" dbtype:"TEXT" index:"true"`
	Season    string    `column:"season" dbtype:"TEXT"`
	HomeTeam  string    `column:"home_team" dbtype:"TEXT NOT NULL" index:"true"`
	AwayTeam  string    `column:"away_team" dbtype:"TEXT NOT NULL" index:"true"`
	Date      time.Time `column:"match_date" dbtype:"DATETIME NOT NULL" index:"true"`
	GoalsHome int       `column:"goals_home" dbtype:"INTEGER NOT NULL"`
	GoalsAway int       `column:"goals_away" dbtype:"INTEGER NOT NULL"`
}

func (m *MatchRow) GetTableName() string {
	return "match"
}

func (m *MatchRow) GetPrimaryKey() map[string]any {
	return map[string]any{"id": m.ID}
}

func NewMatchRow(r podds.MatchRecord) *MatchRow {
	return &MatchRow{
		ID:        r.Key(),
		League:    r.League,
		Season:    r.Season,
		HomeTeam:  r.HomeTeam,
		AwayTeam:  r.AwayTeam,
		Date:      r.Date.UTC(),
		GoalsHome: r.GoalsHome,
		GoalsAway: r.GoalsAway,
	}
}

func (m *MatchRow) Record() podds.MatchRecord {
	return podds.MatchRecord{
		ID:        m.ID,
		League:    m.League,
		Season:    m.Season,
		HomeTeam:  m.HomeTeam,
		AwayTeam:  m.AwayTeam,
		Date:      m.Date.UTC(),
		GoalsHome: m.GoalsHome,
		GoalsAway: m.GoalsAway,
	}
}

// PredictionRecord is one PredictionTable row of a prediction run
type PredictionRecord struct {
	RunID             string    `column:"run_id" dbtype:"TEXT NOT NULL" primary:"true" index:"true"`
	FixtureIndex      int       `column:"fixture_index" dbtype:"INTEGER NOT NULL" primary:"true"`
	FixtureKey        string    `column:"fixture_key" dbtype:"TEXT NOT NULL" index:"true"`
	HomeTeam          string    `column:"home_team" dbtype:"TEXT"`
	AwayTeam          string    `column:"away_team" dbtype:"TEXT"`
	Date              time.Time `column:"match_date" dbtype:"DATETIME"`
	Status            string    `column:"status" dbtype:"TEXT NOT NULL"`
	Prediction        string    `column:"prediction" dbtype:"TEXT"`
	Probability       float64   `column:"probability" dbtype:"REAL"`
	ProbHomeWin       float64   `column:"prob_home_win" dbtype:"REAL"`
	ProbDraw          float64   `column:"prob_draw" dbtype:"REAL"`
	ProbAwayWin       float64   `column:"prob_away_win" dbtype:"REAL"`
	XGHome            float64   `column:"xg_home" dbtype:"REAL"`
	XGAway            float64   `column:"xg_away" dbtype:"REAL"`
	MostLikelyScore   string    `column:"most_likely_score" dbtype:"TEXT"`
	ReducedConfidence bool      `column:"reduced_confidence" dbtype:"BOOLEAN"`
	Error             string    `column:"error" dbtype:"TEXT"`
	Simulations       int       `column:"simulations" dbtype:"INTEGER"`
	Seed              int64     `column:"seed" dbtype:"INTEGER"`
	CreatedAt         time.Time `column:"created_at" dbtype:"DATETIME"`
}

func (p *PredictionRecord) GetTableName() string {
	return "prediction"
}

func (p *PredictionRecord) GetPrimaryKey() map[string]any {
	return map[string]any{"run_id": p.RunID, "fixture_index": p.FixtureIndex}
}

// NewPredictionRecord flattens a table row. The seed is stored as its int64 bit pattern.
func NewPredictionRecord(runID string, t *podds.PredictionTable, row *podds.PredictionRow) *PredictionRecord {
	rec := &PredictionRecord{
		RunID:             runID,
		FixtureIndex:      row.Index,
		FixtureKey:        row.Fixture.Key(),
		HomeTeam:          row.Fixture.HomeTeam,
		AwayTeam:          row.Fixture.AwayTeam,
		Date:              row.Fixture.Date.UTC(),
		Status:            row.Status,
		ReducedConfidence: row.ReducedConfidence(),
		Error:             row.ErrorMessage(),
		Simulations:       t.Simulations,
		Seed:              int64(t.Seed),
		CreatedAt:         t.GeneratedAt.UTC(),
	}
	if res := row.Result; res != nil {
		rec.Prediction, rec.Probability = res.Prediction()
		rec.ProbHomeWin = res.HomeWin
		rec.ProbDraw = res.Draw
		rec.ProbAwayWin = res.AwayWin
		rec.XGHome = res.ExpectedGoalsHome
		rec.XGAway = res.ExpectedGoalsAway
		rec.MostLikelyScore = res.MostLikely.String()
	}
	return rec
}
