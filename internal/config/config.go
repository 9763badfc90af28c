package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/richard-senior/matchpredict/pkg/podds"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Prediction PredictionConfig `yaml:"prediction"`
	Data       struct {
		CacheDir string `yaml:"cache_dir" default:"/tmp/matchpredict-cache"`
		DBPath   string `yaml:"db_path"`
	} `yaml:"data"`
	Model struct {
		Path string `yaml:"path"`
	} `yaml:"model"`
	Log struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info inform highlight warn error fatal"`
		Output string `yaml:"output" default:"console" validate:"oneof=console file both"`
		File   string `yaml:"file" default:"/tmp/matchpredict.log"`
	} `yaml:"log"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
}

type PredictionConfig struct {
	Simulations            int     `yaml:"simulations" default:"10000" validate:"gte=1000,lte=50000"`
	LastNGames             int     `yaml:"last_n_games" default:"5" validate:"gte=1,lte=10"`
	SeparateHomeAwayWindow bool    `yaml:"separate_home_away_window"`
	Seed                   *uint64 `yaml:"seed"`
	Workers                int     `yaml:"workers" default:"4" validate:"gte=1,lte=64"`
	WinnerWeight           float64 `yaml:"winner_weight" default:"0.25" validate:"gte=0,lte=1"`
	DixonColesRho          float64 `yaml:"dixon_coles_rho" validate:"gte=-0.5,lte=0.5"`
	PoissonRange           int     `yaml:"poisson_range" default:"10" validate:"gte=2,lte=20"`
	// MaxGoalsCap and MinGoalsFloor override the goals model's rate clamps when set
	MaxGoalsCap   float64 `yaml:"max_goals_cap" validate:"gte=0"`
	MinGoalsFloor float64 `yaml:"min_goals_floor" validate:"gte=0"`
	League        struct {
		HomeGoalsPerGame float64 `yaml:"home_goals_per_game" default:"1.5" validate:"gt=0"`
		AwayGoalsPerGame float64 `yaml:"away_goals_per_game" default:"1.1" validate:"gt=0"`
	} `yaml:"league"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Default returns a config holding only default values
func Default() *Config {
	c := &Config{}
	if err := defaults.Set(c); err != nil {
		panic(err)
	}
	return c
}

// Load reads and parses a YAML configuration file. An empty path gives the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML over the defaults and validates the result
func Parse(b []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("MATCHPREDICT_SIMULATIONS"); v != "" {
		if c.Prediction.Simulations, err = strconv.Atoi(v); err != nil {
			return nil, &podds.InvalidParameterError{Name: "simulations", Value: v, Reason: "not an integer"}
		}
	}
	if v := os.Getenv("MATCHPREDICT_LAST_N_GAMES"); v != "" {
		if c.Prediction.LastNGames, err = strconv.Atoi(v); err != nil {
			return nil, &podds.InvalidParameterError{Name: "last_n_games", Value: v, Reason: "not an integer"}
		}
	}
	if v := os.Getenv("MATCHPREDICT_DB"); v != "" {
		c.Data.DBPath = v
	}
	if v := os.Getenv("MATCHPREDICT_LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks ranges. The first failing field is returned as a podds.InvalidParameterError.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &podds.InvalidParameterError{
			Name:   strings.TrimPrefix(fe.Namespace(), "Config."),
			Value:  fe.Value(),
			Reason: errorMessage(fe),
		}
	}
	return fmt.Errorf("validate config: %w", err)
}

func errorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		return "failed validation: " + fe.Tag()
	}
}

// PrepareOptions maps the prediction section onto feature extraction options
func (c *Config) PrepareOptions() podds.PrepareOptions {
	return podds.PrepareOptions{
		LastNGames:             c.Prediction.LastNGames,
		SeparateHomeAwayWindow: c.Prediction.SeparateHomeAwayWindow,
		Defaults: podds.LeagueDefaults{
			HomeGoalsPerGame: c.Prediction.League.HomeGoalsPerGame,
			AwayGoalsPerGame: c.Prediction.League.AwayGoalsPerGame,
		},
	}
}

// PredictOptions maps the prediction section onto orchestrator options
func (c *Config) PredictOptions() podds.PredictOptions {
	opts := podds.DefaultPredictOptions()
	opts.Workers = c.Prediction.Workers
	opts.WinnerWeight = c.Prediction.WinnerWeight
	opts.DixonColesRho = c.Prediction.DixonColesRho
	opts.PoissonRange = c.Prediction.PoissonRange
	if c.Prediction.Seed != nil {
		opts.Seed, opts.Seeded = *c.Prediction.Seed, true
	}
	return opts
}

// LoadModels reads the configured model file and applies the goal clamps
func (c *Config) LoadModels() (*podds.PoissonGoalsModel, *podds.LogisticWinnerModel, error) {
	goals, winner, err := podds.LoadModels(c.Model.Path)
	if err != nil {
		return nil, nil, err
	}
	if c.Prediction.MinGoalsFloor > 0 {
		goals.MinRate = c.Prediction.MinGoalsFloor
	}
	if c.Prediction.MaxGoalsCap > 0 {
		goals.MaxRate = c.Prediction.MaxGoalsCap
	}
	return goals, winner, nil
}

// LogOutput is the logger.SetLogOutput mode for Log.Output
func (c *Config) LogOutput() rune {
	switch c.Log.Output {
	case "file":
		return 'f'
	case "both":
		return 'b'
	default:
		return 'c'
	}
}
