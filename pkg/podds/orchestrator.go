package podds

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/richard-senior/matchpredict/internal/logger"
)

// Row status values
const (
	StatusOK        = "ok"
	StatusError     = "error"
	StatusCancelled = "cancelled"
)

// Metrics receives per-row outcomes and simulation timings. nil is allowed.
type Metrics interface {
	RecordPrediction(status string)
	RecordError(kind string)
	ObserveSimulation(seconds float64)
}

// PredictOptions configure a Predictor
type PredictOptions struct {
	// Workers is the number of fixtures simulated concurrently
	Workers int
	// Seed makes a run reproducible when Seeded is set. Each fixture draws
	// from its own stream derived from Seed and its position.
	Seed          uint64
	Seeded        bool
	WinnerWeight  float64
	DixonColesRho float64
	PoissonRange  int
}

func DefaultPredictOptions() PredictOptions {
	return PredictOptions{
		Workers:      1,
		WinnerWeight: DefaultWinnerWeight,
		PoissonRange: DefaultPoissonRange,
	}
}

// ValidateSimulations checks the batch level simulation count range
func ValidateSimulations(n int) error {
	if n < MinSimulations || n > MaxSimulations {
		return invalidParam("n_simulations", n, "must be between %d and %d", MinSimulations, MaxSimulations)
	}
	return nil
}

// Predictor runs Simulate across every prepared fixture
type Predictor struct {
	goals   GoalsModel
	winner  WinnerModel
	opts    PredictOptions
	metrics Metrics
}

func NewPredictor(goals GoalsModel, winner WinnerModel, opts PredictOptions) *Predictor {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.PoissonRange < 1 {
		opts.PoissonRange = DefaultPoissonRange
	}
	return &Predictor{goals: goals, winner: winner, opts: opts}
}

// WithMetrics attaches a metrics sink
func (p *Predictor) WithMetrics(m Metrics) *Predictor {
	p.metrics = m
	return p
}

// PredictAll checks lastNGames against the window prepared was built with,
// then runs a Predictor over it
func PredictAll(ctx context.Context, prepared *Prepared, goals GoalsModel, winner WinnerModel, nSimulations, lastNGames int, opts PredictOptions) (*PredictionTable, error) {
	if err := ValidateLastNGames(lastNGames); err != nil {
		return nil, err
	}
	if prepared != nil && prepared.LastNGames != lastNGames {
		return nil, invalidParam("last_n_games", lastNGames, "features were prepared with %d", prepared.LastNGames)
	}
	return NewPredictor(goals, winner, opts).PredictAll(ctx, prepared, nSimulations)
}

// PredictAll returns one row per fixture in prepared order. A failing fixture
// becomes a flagged row and never aborts the batch. On cancellation the rows
// finished so far are returned along with ctx.Err(); the rest are marked cancelled.
func (p *Predictor) PredictAll(ctx context.Context, prepared *Prepared, nSimulations int) (*PredictionTable, error) {
	if err := ValidateSimulations(nSimulations); err != nil {
		return nil, err
	}
	if prepared == nil {
		return nil, invalidParam("features", nil, "must not be nil")
	}
	if p.opts.WinnerWeight < 0 || p.opts.WinnerWeight > 1 {
		return nil, invalidParam("winner_weight", p.opts.WinnerWeight, "must be within [0, 1]")
	}
	if modelMissing(p.goals) {
		return nil, &ModelUnavailableError{Model: "goals"}
	}
	if modelMissing(p.winner) && p.opts.WinnerWeight > 0 {
		return nil, &ModelUnavailableError{Model: "winner"}
	}

	seed := p.opts.Seed
	if !p.opts.Seeded {
		seed = TimeSeed()
	}

	table := &PredictionTable{
		Rows:        make([]PredictionRow, prepared.Len()),
		Simulations: nSimulations,
		LastNGames:  prepared.LastNGames,
		Seed:        seed,
		Seeded:      p.opts.Seeded,
		GeneratedAt: time.Now().UTC(),
	}
	for i, f := range prepared.Fixtures {
		table.Rows[i] = PredictionRow{Index: i, Fixture: f.Fixture, HomeForm: f.HomeForm, AwayForm: f.AwayForm}
	}

	workers := min(p.opts.Workers, max(prepared.Len(), 1))
	logger.Info("Predicting fixtures", prepared.Len(), "simulations", nSimulations, "workers", workers)

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				p.predictOne(ctx, i, prepared.Fixtures[i], &table.Rows[i], nSimulations, seed)
			}
		}()
	}

feed:
	for i := range prepared.Fixtures {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	for i := range table.Rows {
		row := &table.Rows[i]
		if row.Status == "" {
			row.Status = StatusCancelled
			row.Err = ctx.Err()
		}
		if p.metrics != nil {
			p.metrics.RecordPrediction(row.Status)
			if row.Status == StatusError {
				p.metrics.RecordError(ErrorKind(row.Err))
			}
		}
	}

	valid := len(table.Valid())
	logger.Info("Predictions complete", valid, "of", len(table.Rows))
	if err := ctx.Err(); err != nil {
		logger.Warn("Prediction run cancelled", err)
		return table, err
	}
	return table, nil
}

// predictOne draws from stream i, the fixture's position in the batch
func (p *Predictor) predictOne(ctx context.Context, i int, f *FixtureFeatures, row *PredictionRow, n int, seed uint64) {
	if err := ctx.Err(); err != nil {
		row.Status, row.Err = StatusCancelled, err
		return
	}

	defer func() {
		if r := recover(); r != nil {
			row.Status = StatusError
			row.Err = &ModelInferenceError{Model: "simulation", Fixture: f.Fixture.Label(), Err: fmt.Errorf("panic: %v", r)}
			logger.Error("Recovered from panic predicting", f.Fixture.Label(), row.Err)
		}
	}()

	start := time.Now()
	res, err := Simulate(f, p.goals, p.winner, n, SimOptions{
		Source:        NewStream(seed, uint64(i)),
		WinnerWeight:  p.opts.WinnerWeight,
		DixonColesRho: p.opts.DixonColesRho,
		PoissonRange:  p.opts.PoissonRange,
	})
	if p.metrics != nil {
		p.metrics.ObserveSimulation(time.Since(start).Seconds())
	}
	if err != nil {
		logger.Warn("Fixture failed", i, f.Fixture.Label(), err)
		row.Status, row.Err = StatusError, err
		return
	}
	row.Status, row.Result = StatusOK, res
}
