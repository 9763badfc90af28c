package processor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/richard-senior/matchpredict/internal/config"
	"github.com/richard-senior/matchpredict/pkg/metrics"
	"github.com/richard-senior/matchpredict/pkg/podds"
	"github.com/richard-senior/matchpredict/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	teams = []string{"Leeds", "York", "Hull", "Derby", "Stoke", "Wigan"}
	start = time.Date(2024, 8, 10, 0, 0, 0, 0, time.UTC)
)

// writeLeague writes two rounds of results, one match a day, followed by three fixtures
func writeLeague(t *testing.T) string {
	t.Helper()
	var sb strings.Builder
	sb.WriteString("home_team,away_team,date,goals_home,goals_away\n")
	day := 0
	for r := 0; r < 2; r++ {
		for i := range teams {
			for j := range teams {
				if i == j {
					continue
				}
				fmt.Fprintf(&sb, "%s,%s,%s,%d,%d\n", teams[i], teams[j],
					start.AddDate(0, 0, day).Format("2006-01-02"), (i+2*j+r)%4, (2*i+j+r)%3)
				day++
			}
		}
	}
	for k := 0; k < 3; k++ {
		fmt.Fprintf(&sb, "%s,%s,%s,,\n", teams[k], teams[k+3], start.AddDate(0, 0, day+k).Format("2006-01-02"))
	}
	path := filepath.Join(t.TempDir(), "league.csv")
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o644))
	return path
}

func newProcessor(t *testing.T) *Processor {
	t.Helper()
	cfg := config.Default()
	cfg.Data.CacheDir = t.TempDir()
	cfg.Data.DBPath = filepath.Join(t.TempDir(), "matches.db")
	cfg.Prediction.Simulations = 2000
	return New(cfg)
}

func seed(v uint64) *uint64 {
	return &v
}

func TestPredictWritesCSVAndStore(t *testing.T) {
	p := newProcessor(t)
	p.Metrics = metrics.New()
	out := filepath.Join(t.TempDir(), "out.csv")

	res, err := p.Predict(context.Background(), PredictRequest{
		Source:    writeLeague(t),
		Seed:      seed(7),
		OutputCSV: out,
		Save:      true,
	})
	require.NoError(t, err)
	require.Len(t, res.Table.Rows, 3)
	assert.Len(t, res.Table.Valid(), 3)
	assert.Equal(t, 2000, res.Table.Simulations)
	assert.Equal(t, uint64(7), res.Table.Seed)

	data, err := os.ReadFile(res.CSVPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "\ufeffFixture,"))

	s, err := store.Open(p.Config.Data.DBPath)
	require.NoError(t, err)
	defer s.Close()
	recs, err := s.LoadPredictions(res.RunID)
	require.NoError(t, err)
	assert.Len(t, recs, 3)

	n, err := testutil.GatherAndCount(p.Metrics.Registry(), "matchpredict_fixtures_predicted_total", "matchpredict_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestPredictIsReproducible(t *testing.T) {
	p := newProcessor(t)
	source := writeLeague(t)

	a, err := p.Predict(context.Background(), PredictRequest{Source: source, Seed: seed(11), Workers: 1})
	require.NoError(t, err)
	b, err := p.Predict(context.Background(), PredictRequest{Source: source, Seed: seed(11), Workers: 3})
	require.NoError(t, err)
	assert.Equal(t, a.Table.Records(), b.Table.Records())
	assert.Empty(t, a.CSVPath)
	assert.Empty(t, a.RunID)
}

func TestPredictRejectsBadRequests(t *testing.T) {
	p := newProcessor(t)
	source := writeLeague(t)
	var ip *podds.InvalidParameterError

	_, err := p.Predict(context.Background(), PredictRequest{Source: source, Simulations: 10})
	require.True(t, errors.As(err, &ip))
	assert.Equal(t, "prediction.simulations", ip.Name)

	_, err = p.Predict(context.Background(), PredictRequest{Source: source, LastNGames: 11})
	assert.True(t, errors.As(err, &ip))

	_, err = p.Predict(context.Background(), PredictRequest{Source: filepath.Join(t.TempDir(), "nope.csv")})
	assert.Error(t, err)

	p.Config.Model.Path = filepath.Join(t.TempDir(), "missing.yaml")
	var mu *podds.ModelUnavailableError
	_, err = p.Predict(context.Background(), PredictRequest{Source: source})
	assert.True(t, errors.As(err, &mu))
}

func TestPredictSaveNeedsDatabase(t *testing.T) {
	p := newProcessor(t)
	p.Config.Data.DBPath = ""
	res, err := p.Predict(context.Background(), PredictRequest{Source: writeLeague(t), Save: true})
	assert.Error(t, err)
	require.NotNil(t, res)
	assert.Len(t, res.Table.Rows, 3)
}

func TestTeamForm(t *testing.T) {
	p := newProcessor(t)
	source := writeLeague(t)

	form, err := p.TeamForm(context.Background(), FormRequest{Source: source, Team: "Leeds", LastNGames: 5})
	require.NoError(t, err)
	assert.Equal(t, 5, form.GamesUsed)
	assert.False(t, form.ReducedConfidence)
	assert.Len(t, form.FormString(), 5)

	// Leeds play their first home games on days 0 to 4
	form, err = p.TeamForm(context.Background(), FormRequest{
		Source: source, Team: "Leeds", LastNGames: 5, Before: start.AddDate(0, 0, 3), Venue: podds.VenueHome,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, form.GamesUsed)
	assert.True(t, form.ReducedConfidence)

	var ih *podds.InsufficientHistoryError
	_, err = p.TeamForm(context.Background(), FormRequest{Source: source, Team: "Nobody"})
	require.True(t, errors.As(err, &ih))
	assert.Contains(t, err.Error(), "known teams: Derby, Hull, Leeds, Stoke, Wigan, York")

	// a known team with no games before the date is not reported as unknown
	_, err = p.TeamForm(context.Background(), FormRequest{Source: source, Team: "Leeds", Before: start})
	require.True(t, errors.As(err, &ih))
	assert.NotContains(t, err.Error(), "known teams")

	var ip *podds.InvalidParameterError
	_, err = p.TeamForm(context.Background(), FormRequest{Source: source, Team: " "})
	assert.True(t, errors.As(err, &ip))
	_, err = p.TeamForm(context.Background(), FormRequest{Source: source, Team: "Leeds", LastNGames: 11})
	assert.True(t, errors.As(err, &ip))
}

func TestImport(t *testing.T) {
	p := newProcessor(t)
	source := writeLeague(t)
	stats, err := p.Import(context.Background(), source, "")
	require.NoError(t, err)
	assert.Equal(t, 63, stats.Saved())
	assert.Equal(t, 63, stats.Inserted)

	// a second import of the same file only updates
	stats, err = p.Import(context.Background(), source, "")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Inserted)
	assert.Equal(t, 63, stats.Updated)

	s, err := store.Open(p.Config.Data.DBPath)
	require.NoError(t, err)
	defer s.Close()
	recs, err := s.LoadMatches(store.MatchFilter{Team: "Leeds"})
	require.NoError(t, err)
	assert.Len(t, recs, 21)

	p.Config.Data.DBPath = ""
	_, err = p.Import(context.Background(), writeLeague(t), "")
	assert.Error(t, err)
}
