package podds

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseModelFile(t *testing.T) {
	data := []byte(`
goals:
  min_rate: 0.1
  max_rate: 6
winner:
  home_win: [0.2, 0.5, 0.5, 0.5, 1.0]
  draw: [0.1, 0, 0, 0, 0]
  away_win: [-0.2, -0.5, -0.5, -0.5, -1.0]
`)
	goals, winner, err := ParseModelFile(data)
	require.NoError(t, err)
	assert.Equal(t, 0.1, goals.MinRate)
	assert.Equal(t, 6.0, goals.MaxRate)
	assert.Equal(t, 0.1, winner.Draw[0])
}

func TestParseModelFileDefaultsMissingSections(t *testing.T) {
	goals, winner, err := ParseModelFile([]byte("goals:\n  max_rate: 8\n"))
	require.NoError(t, err)
	assert.Equal(t, NewPoissonGoalsModel().MinRate, goals.MinRate)
	assert.Equal(t, NewLogisticWinnerModel(), winner)
}

func TestParseModelFileErrors(t *testing.T) {
	cases := map[string]string{
		"bad yaml":          "goals: [",
		"short winner":      "winner:\n  home_win: [1]\n  draw: [0]\n  away_win: [-1]\n",
		"inverted clamping": "goals:\n  min_rate: 2\n  max_rate: 1\n",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := ParseModelFile([]byte(data))
			var mu *ModelUnavailableError
			assert.True(t, errors.As(err, &mu), "got %v", err)
		})
	}
}

func TestLoadModels(t *testing.T) {
	goals, winner, err := LoadModels("")
	require.NoError(t, err)
	assert.NotNil(t, goals)
	assert.NotNil(t, winner)

	_, _, err = LoadModels(filepath.Join(t.TempDir(), "missing.yaml"))
	var mu *ModelUnavailableError
	assert.True(t, errors.As(err, &mu))

	path := filepath.Join(t.TempDir(), "models.yaml")
	require.NoError(t, os.WriteFile(path, []byte("goals:\n  min_rate: 0.2\n"), 0o644))
	goals, _, err = LoadModels(path)
	require.NoError(t, err)
	assert.Equal(t, 0.2, goals.MinRate)
}
