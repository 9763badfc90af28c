package datasource

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/richard-senior/matchpredict/pkg/podds"
	"github.com/richard-senior/matchpredict/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const simpleCSV = "\ufeffhome_team,away_team,date,goals_home,goals_away\n" +
	"Leeds,York,2024-08-10,2,1\n" +
	"York,Hull,2024-08-17,0,0\n" +
	"Hull,Leeds,2024-08-24,,\n" +
	"Derby,Stoke,not a date,1,1\n" +
	"Stoke,,2024-08-31,,\n" +
	",,,,\n"

const footballDataCSV = "Div,Date,Time,HomeTeam,AwayTeam,FTHG,FTAG,FTR\n" +
	"E1,10/08/2024,12:30,Leeds,York,2,1,H\n" +
	"E1,17/01/25,,York,Hull,1,3,A\n"

func TestParseSimpleCSV(t *testing.T) {
	recs, err := ParseCSV(strings.NewReader(simpleCSV))
	require.NoError(t, err)
	require.Len(t, recs, 4)

	assert.Equal(t, "Leeds", recs[0].HomeTeam)
	assert.Equal(t, 2, recs[0].GoalsHome)
	assert.Equal(t, time.Date(2024, 8, 10, 0, 0, 0, 0, time.UTC), recs[0].Date)

	assert.False(t, recs[2].Played())
	assert.Equal(t, podds.NotPlayed, recs[2].GoalsHome)

	// the malformed fixture is kept so the prediction table can flag it
	assert.Equal(t, "Stoke", recs[3].HomeTeam)
	assert.Error(t, recs[3].Validate())
}

func TestParseFootballDataCSV(t *testing.T) {
	recs, err := ParseCSV(strings.NewReader(footballDataCSV))
	require.NoError(t, err)
	require.Len(t, recs, 2)

	// 12:30 BST
	assert.Equal(t, time.Date(2024, 8, 10, 11, 30, 0, 0, time.UTC), recs[0].Date)
	assert.Equal(t, "E1", recs[0].League)
	// 15:00 GMT when no time is given
	assert.Equal(t, time.Date(2025, 1, 17, 15, 0, 0, 0, time.UTC), recs[1].Date)
	assert.Equal(t, 3, recs[1].GoalsAway)
}

func TestParseCSVMissingColumns(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("home,away,date\nLeeds,York,2024-08-10\n"))
	assert.ErrorContains(t, err, "goals_home")

	recs, err := ParseCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestParseGoals(t *testing.T) {
	for in, want := range map[string]int{"": -1, "NA": -1, "-1": -1, "3": 3, "2.0": 2} {
		got, err := parseGoals(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"x", "1.5", "-2"} {
		_, err := parseGoals(in)
		assert.Error(t, err, in)
	}
}

const resultsHTML = `<html><body>
<table><tr><td>navigation</td></tr></table>
<table class="results">
  <thead><tr><th>Date</th><th>Home</th><th>Away</th><th>HG</th><th>AG</th></tr></thead>
  <tbody>
    <tr><td>2024-08-10</td><td>Leeds</td><td>York</td><td>2</td><td>1</td></tr>
    <tr><td>2024-08-17</td><td>York</td><td>Hull</td><td>-</td><td>-</td></tr>
  </tbody>
</table>
</body></html>`

func TestParseHTML(t *testing.T) {
	recs, err := ParseHTML(strings.NewReader(resultsHTML))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "Leeds", recs[0].HomeTeam)
	assert.True(t, recs[0].Played())
	assert.False(t, recs[1].Played())

	_, err = ParseHTML(strings.NewReader("<p>nothing here</p>"))
	assert.Error(t, err)
}

func TestLoaderFetchesAndCaches(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(footballDataCSV))
	}))
	defer srv.Close()

	l := NewLoader(t.TempDir())
	l.Client = srv.Client()

	for i := 0; i < 2; i++ {
		recs, err := l.Load(context.Background(), srv.URL+"/mmz4281/2425/E1.csv")
		require.NoError(t, err)
		assert.Len(t, recs, 2)
	}
	assert.Equal(t, int32(1), hits.Load())

	files, err := os.ReadDir(l.CacheDir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.True(t, strings.HasSuffix(files[0].Name(), "E1.csv"))
}

func TestLoaderSources(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "history.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(simpleCSV), 0o644))
	htmlPath := filepath.Join(dir, "results.html")
	require.NoError(t, os.WriteFile(htmlPath, []byte(resultsHTML), 0o644))

	l := NewLoader("")
	recs, err := l.Load(context.Background(), csvPath)
	require.NoError(t, err)
	assert.Len(t, recs, 4)

	recs, err = l.Load(context.Background(), htmlPath)
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	dbPath := filepath.Join(dir, "matches.db")
	s, err := store.Open(dbPath)
	require.NoError(t, err)
	_, err = s.SaveMatches(recs)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	recs, err = l.Load(context.Background(), SQLitePrefix+dbPath)
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	_, err = l.Load(context.Background(), filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)
	_, err = l.Load(context.Background(), "")
	assert.Error(t, err)
}
