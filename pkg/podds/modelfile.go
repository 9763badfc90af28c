package podds

import (
	"fmt"
	"os"

	"github.com/richard-senior/matchpredict/internal/logger"
	"gopkg.in/yaml.v3"
)

// ModelFile is the on-disk form of a goals and winner model pair
type ModelFile struct {
	Goals  *PoissonGoalsModel   `yaml:"goals"`
	Winner *LogisticWinnerModel `yaml:"winner"`
}

// DefaultModels returns the built-in goals and winner models
func DefaultModels() (*PoissonGoalsModel, *LogisticWinnerModel) {
	return NewPoissonGoalsModel(), NewLogisticWinnerModel()
}

// ParseModelFile decodes a model file. Sections left out fall back to the built-in models.
func ParseModelFile(data []byte) (*PoissonGoalsModel, *LogisticWinnerModel, error) {
	var mf ModelFile
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return nil, nil, &ModelUnavailableError{Model: "model file", Err: err}
	}

	goals, winner := DefaultModels()
	if mf.Goals != nil {
		goals = mf.Goals
		if goals.MinRate <= 0 {
			goals.MinRate = NewPoissonGoalsModel().MinRate
		}
		if goals.MaxRate > 0 && goals.MaxRate < goals.MinRate {
			return nil, nil, &ModelUnavailableError{Model: "goals",
				Err: fmt.Errorf("max_rate %v below min_rate %v", goals.MaxRate, goals.MinRate)}
		}
	}
	if mf.Winner != nil {
		if err := mf.Winner.Validate(); err != nil {
			return nil, nil, &ModelUnavailableError{Model: "winner", Err: err}
		}
		winner = mf.Winner
	}
	return goals, winner, nil
}

// LoadModels reads a model file from disk. An empty path gives the built-in models.
func LoadModels(path string) (*PoissonGoalsModel, *LogisticWinnerModel, error) {
	if path == "" {
		goals, winner := DefaultModels()
		return goals, winner, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, &ModelUnavailableError{Model: "model file", Err: err}
	}
	goals, winner, err := ParseModelFile(data)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Loaded models from", path)
	return goals, winner, nil
}
