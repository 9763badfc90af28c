package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/richard-senior/matchpredict/pkg/podds"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLeague(t *testing.T, dir string) string {
	t.Helper()
	teams := []string{"Leeds", "York", "Hull", "Derby"}
	start := time.Date(2024, 8, 10, 0, 0, 0, 0, time.UTC)
	var sb strings.Builder
	sb.WriteString("home_team,away_team,date,goals_home,goals_away\n")
	day := 0
	for r := 0; r < 2; r++ {
		for i := range teams {
			for j := range teams {
				if i != j {
					fmt.Fprintf(&sb, "%s,%s,%s,%d,%d\n", teams[i], teams[j],
						start.AddDate(0, 0, day).Format("2006-01-02"), (i+j)%3, r)
					day++
				}
			}
		}
	}
	fmt.Fprintf(&sb, "Derby,Leeds,%s,,\n", start.AddDate(0, 0, day).Format("2006-01-02"))
	path := filepath.Join(dir, "league.csv")
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o644))
	return path
}

// writeConfig keeps logs on stderr and the database in dir
func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	cfg := fmt.Sprintf("data:\n  cache_dir: %s\n  db_path: %s\nlog:\n  level: warn\n  output: console\n",
		filepath.Join(dir, "cache"), filepath.Join(dir, "matches.db"))
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path
}

func TestPredictCommand(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "predictions.csv")
	var stdout bytes.Buffer

	err := run(context.Background(), []string{"predict",
		"--data", writeLeague(t, dir), "--config", writeConfig(t, dir),
		"--out", out, "--simulations", "1000", "--last-n", "3", "--seed", "1", "--save",
	}, &stdout)
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "Derby vs Leeds")
	assert.Contains(t, stdout.String(), "Run id")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "\ufeff"+podds.ColFixture))
}

func TestPredictCommandRejectsRange(t *testing.T) {
	dir := t.TempDir()
	err := run(context.Background(), []string{"predict",
		"--data", writeLeague(t, dir), "--config", writeConfig(t, dir), "--simulations", "60000",
	}, &bytes.Buffer{})
	var ip *podds.InvalidParameterError
	assert.True(t, errors.As(err, &ip))
}

func TestLoadAndFormCommands(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir)
	var stdout bytes.Buffer

	require.NoError(t, run(context.Background(), []string{"load", "--data", writeLeague(t, dir), "--config", cfg}, &stdout))
	assert.Contains(t, stdout.String(), "Imported 25 matches")

	stdout.Reset()
	require.NoError(t, run(context.Background(), []string{"form",
		"--data", "sqlite:" + filepath.Join(dir, "matches.db"), "--config", cfg, "--team", "York", "--last-n", "4",
	}, &stdout))
	assert.Contains(t, stdout.String(), "York (all, 4 of 4 games)")
}

func TestUnknownCommand(t *testing.T) {
	assert.Error(t, run(context.Background(), []string{"bogus"}, &bytes.Buffer{}))

	var stdout bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"help"}, &stdout))
	assert.Contains(t, stdout.String(), "predict")
}
