package processor

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/richard-senior/matchpredict/internal/config"
	"github.com/richard-senior/matchpredict/internal/logger"
	"github.com/richard-senior/matchpredict/pkg/datasource"
	"github.com/richard-senior/matchpredict/pkg/metrics"
	"github.com/richard-senior/matchpredict/pkg/podds"
	"github.com/richard-senior/matchpredict/pkg/store"
)

// Processor runs the load, prepare, simulate and export pipeline for the CLI and the MCP tools
type Processor struct {
	Config  *config.Config
	Loader  *datasource.Loader
	Metrics *metrics.Recorder
}

func New(cfg *config.Config) *Processor {
	return &Processor{
		Config: cfg,
		Loader: datasource.NewLoader(cfg.Data.CacheDir),
	}
}

// PredictRequest overrides config values for one run. Zero values keep the configured setting.
type PredictRequest struct {
	Source           string
	Simulations      int
	LastNGames       int
	Workers          int
	Seed             *uint64
	SeparateHomeAway *bool
	// OutputCSV is written when set
	OutputCSV string
	// Save persists the table to the configured database
	Save bool
}

type PredictResult struct {
	Table   *podds.PredictionTable
	CSVPath string
	RunID   string
}

// Predict runs one batch. On cancellation the partial table is returned alongside the error.
func (p *Processor) Predict(ctx context.Context, req PredictRequest) (*PredictResult, error) {
	cfg, err := p.configFor(req)
	if err != nil {
		return nil, err
	}

	records, err := p.load(ctx, req.Source)
	if err != nil {
		return nil, err
	}

	goals, winner, err := cfg.LoadModels()
	if err != nil {
		return nil, err
	}

	prepared, err := podds.Prepare(records, cfg.PrepareOptions())
	if err != nil {
		return nil, err
	}
	if prepared.Len() == 0 {
		logger.Warn("No unplayed fixtures found in", req.Source)
	}

	predictor := podds.NewPredictor(goals, winner, cfg.PredictOptions())
	if p.Metrics != nil {
		predictor = predictor.WithMetrics(p.Metrics)
		p.Metrics.RecordRun()
	}

	start := time.Now()
	table, err := predictor.PredictAll(ctx, prepared, cfg.Prediction.Simulations)
	p.observe("predict", start)
	if table == nil {
		return nil, err
	}
	res := &PredictResult{Table: table}
	if err != nil {
		return res, err
	}
	logger.Info("Predicted", len(table.Valid()), "of", len(table.Rows), "fixtures")

	if req.OutputCSV != "" {
		if res.CSVPath, err = table.SaveCSV(req.OutputCSV); err != nil {
			return res, err
		}
		logger.Info("Wrote predictions to", res.CSVPath)
	}

	if req.Save {
		if res.RunID, err = p.savePredictions(cfg.Data.DBPath, table); err != nil {
			return res, err
		}
	}
	return res, nil
}

// configFor copies the base config and applies the request overrides
func (p *Processor) configFor(req PredictRequest) (*config.Config, error) {
	cfg := *p.Config
	if req.Simulations != 0 {
		cfg.Prediction.Simulations = req.Simulations
	}
	if req.LastNGames != 0 {
		cfg.Prediction.LastNGames = req.LastNGames
	}
	if req.Workers != 0 {
		cfg.Prediction.Workers = req.Workers
	}
	if req.Seed != nil {
		cfg.Prediction.Seed = req.Seed
	}
	if req.SeparateHomeAway != nil {
		cfg.Prediction.SeparateHomeAwayWindow = *req.SeparateHomeAway
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (p *Processor) savePredictions(dbPath string, table *podds.PredictionTable) (string, error) {
	if dbPath == "" {
		return "", errors.New("no database configured to save predictions to")
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return "", err
	}
	defer s.Close()

	runID, err := s.SavePredictions(table)
	if err != nil {
		return "", err
	}
	logger.Info("Saved prediction run", runID, "to", dbPath)
	return runID, nil
}

// FormRequest asks for one team's form before a date
type FormRequest struct {
	Source     string
	Team       string
	Before     time.Time
	LastNGames int
	Venue      podds.Venue
}

// TeamForm computes a team's recent form. A short window is returned flagged
// ReducedConfidence, a team with no matches at all is an error.
func (p *Processor) TeamForm(ctx context.Context, req FormRequest) (*podds.TeamForm, error) {
	lastN := req.LastNGames
	if lastN == 0 {
		lastN = p.Config.Prediction.LastNGames
	}
	if err := podds.ValidateLastNGames(lastN); err != nil {
		return nil, err
	}
	team := strings.TrimSpace(req.Team)
	if team == "" {
		return nil, &podds.InvalidParameterError{Name: "team", Value: req.Team, Reason: "must not be empty"}
	}

	records, err := p.load(ctx, req.Source)
	if err != nil {
		return nil, err
	}

	before := req.Before
	if before.IsZero() {
		before = time.Now().UTC()
	}
	h := podds.NewHistory(records)
	league := h.LeagueAveragesBefore(before, p.Config.PrepareOptions().Defaults)

	form, err := h.TeamForm(team, before, lastN, req.Venue, league)
	var ih *podds.InsufficientHistoryError
	if errors.As(err, &ih) {
		if form.GamesUsed == 0 {
			if teams := h.Teams(); !slices.Contains(teams, team) {
				return nil, fmt.Errorf("unknown team %q, known teams: %s: %w", team, strings.Join(teams, ", "), err)
			}
			return nil, err
		}
		logger.Warn("Reduced history for", team, ih)
		return form, nil
	}
	return form, err
}

// Import loads source and upserts every valid record into the database
func (p *Processor) Import(ctx context.Context, source, dbPath string) (store.SaveStats, error) {
	if dbPath == "" {
		dbPath = p.Config.Data.DBPath
	}
	if dbPath == "" {
		return store.SaveStats{}, errors.New("no database path given")
	}
	records, err := p.load(ctx, source)
	if err != nil {
		return store.SaveStats{}, err
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return store.SaveStats{}, err
	}
	defer s.Close()

	stats, err := s.SaveMatches(records)
	if err != nil {
		return stats, fmt.Errorf("failed to import %s: %w", source, err)
	}
	logger.Info("Imported", stats.Saved(), "matches into", dbPath)
	return stats, nil
}

func (p *Processor) load(ctx context.Context, source string) ([]podds.MatchRecord, error) {
	start := time.Now()
	records, err := p.Loader.Load(ctx, source)
	p.observe("load", start)
	if err != nil {
		if p.Metrics != nil {
			p.Metrics.RecordError("load")
		}
		return nil, err
	}
	return records, nil
}

func (p *Processor) observe(op string, start time.Time) {
	if p.Metrics != nil {
		p.Metrics.RecordLatency(op, time.Since(start).Seconds())
	}
}
