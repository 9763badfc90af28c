package store

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/richard-senior/matchpredict/internal/logger"
	"github.com/richard-senior/matchpredict/pkg/podds"
)

// MatchFilter narrows LoadMatches. Zero fields match everything.
type MatchFilter struct {
	League string
	Season string
	Team   string
	Before time.Time
}

// SaveStats counts what SaveMatches did with its input
type SaveStats struct {
	Inserted int
	Updated  int
	Skipped  int
}

// Saved is the number of rows written
func (st SaveStats) Saved() int {
	return st.Inserted + st.Updated
}

// SaveMatches upserts records by their key. Invalid records are skipped.
func (s *Store) SaveMatches(records []podds.MatchRecord) (SaveStats, error) {
	var stats SaveStats
	rows := make([]*MatchRow, 0, len(records))
	seen := make(map[string]bool, len(records))
	for _, r := range records {
		if err := r.Validate(); err != nil {
			logger.Warn("Not storing invalid match", err)
			stats.Skipped++
			continue
		}
		row := NewMatchRow(r)
		found, err := s.Exists(row)
		if err != nil {
			return SaveStats{}, err
		}
		if found || seen[row.ID] {
			stats.Updated++
		} else {
			stats.Inserted++
		}
		seen[row.ID] = true
		rows = append(rows, row)
	}
	if err := BulkSave(s, rows); err != nil {
		return SaveStats{}, err
	}
	logger.Info("Saved matches", stats.Inserted, "new", stats.Updated, "updated", stats.Skipped, "skipped")
	return stats, nil
}

// LoadMatches returns stored records oldest first
func (s *Store) LoadMatches(f MatchFilter) ([]podds.MatchRecord, error) {
	var conds []string
	var args []any
	if f.League != "" {
		conds = append(conds, "league = ?")
		args = append(args, f.League)
	}
	if f.Season != "" {
		conds = append(conds, "season = ?")
		args = append(args, f.Season)
	}
	if f.Team != "" {
		conds = append(conds, "(home_team = ? OR away_team = ?)")
		args = append(args, f.Team, f.Team)
	}
	if !f.Before.IsZero() {
		conds = append(conds, "match_date < ?")
		args = append(args, f.Before.UTC())
	}

	rows, err := FindWhere[MatchRow](s, strings.Join(conds, " AND "), args...)
	if err != nil {
		return nil, err
	}
	out := make([]podds.MatchRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Record())
	}
	podds.SortByDate(out)
	return out, nil
}

// SavePredictions stores every row of the table under a new run id
func (s *Store) SavePredictions(t *podds.PredictionTable) (string, error) {
	if t == nil {
		return "", fmt.Errorf("prediction table is nil")
	}
	runID := uuid.NewString()
	recs := make([]*PredictionRecord, 0, len(t.Rows))
	for i := range t.Rows {
		recs = append(recs, NewPredictionRecord(runID, t, &t.Rows[i]))
	}
	if err := BulkSave(s, recs); err != nil {
		return "", err
	}
	logger.Info("Saved prediction run", runID, "rows", len(recs))
	return runID, nil
}

// LoadPredictions returns the rows of one run in fixture order
func (s *Store) LoadPredictions(runID string) ([]*PredictionRecord, error) {
	if _, err := uuid.Parse(runID); err != nil {
		return nil, fmt.Errorf("invalid run id %q: %w", runID, err)
	}
	recs, err := FindWhere[PredictionRecord](s, "run_id = ?", runID)
	if err != nil {
		return nil, err
	}
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].FixtureIndex < recs[j].FixtureIndex
	})
	return recs, nil
}
