package podds

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat"
)

const (
	MinSimulations     = 1000
	MaxSimulations     = 50000
	DefaultSimulations = 10000

	DefaultWinnerWeight = 0.25
	DefaultPoissonRange = 10

	minTau = 1e-9
)

// Outcome labels used by SimulationResult.Prediction
const (
	OutcomeHome = "Home"
	OutcomeDraw = "Draw"
	OutcomeAway = "Away"
)

// SimOptions tune a single Simulate call
type SimOptions struct {
	// Source drives every draw. nil means a time seeded stream.
	Source rand.Source
	// WinnerWeight blends the winner model into the simulated W/D/L:
	// p = (1-w)*simulated + w*winner. 0 ignores the winner model.
	WinnerWeight float64
	// DixonColesRho reweights 0-0, 1-0, 0-1 and 1-1 samples. 0 disables it.
	DixonColesRho float64
	// PoissonRange is the size of the score matrix, goals 0..PoissonRange-1
	PoissonRange int
}

func DefaultSimOptions() SimOptions {
	return SimOptions{
		WinnerWeight: DefaultWinnerWeight,
		PoissonRange: DefaultPoissonRange,
	}
}

// ScoreLine is one exact score and its estimated probability
type ScoreLine struct {
	Home        int     `json:"home"`
	Away        int     `json:"away"`
	Probability float64 `json:"probability"`
}

func (s ScoreLine) String() string {
	return fmt.Sprintf("%d-%d", s.Home, s.Away)
}

// SimulationResult aggregates the samples drawn for one fixture
type SimulationResult struct {
	Fixture     MatchRecord `json:"fixture"`
	Simulations int         `json:"simulations"`

	// Final probabilities after blending, summing to one
	HomeWin float64 `json:"homeWin"`
	Draw    float64 `json:"draw"`
	AwayWin float64 `json:"awayWin"`

	Simulated OutcomeProbabilities  `json:"simulated"`
	Winner    *OutcomeProbabilities `json:"winner,omitempty"`

	Rates             GoalRates `json:"rates"`
	ExpectedGoalsHome float64   `json:"expectedGoalsHome"`
	ExpectedGoalsAway float64   `json:"expectedGoalsAway"`
	StdDevGoalsHome   float64   `json:"stdDevGoalsHome"`
	StdDevGoalsAway   float64   `json:"stdDevGoalsAway"`

	MostLikely  ScoreLine   `json:"mostLikely"`
	Over1p5     float64     `json:"over1p5"`
	Over2p5     float64     `json:"over2p5"`
	ScoreMatrix [][]float64 `json:"-"`

	ReducedConfidence bool `json:"reducedConfidence"`
}

// Outcome returns the final probabilities
func (r *SimulationResult) Outcome() OutcomeProbabilities {
	return OutcomeProbabilities{HomeWin: r.HomeWin, Draw: r.Draw, AwayWin: r.AwayWin}
}

// Prediction is the most probable outcome and its probability. Ties go to the draw.
func (r *SimulationResult) Prediction() (string, float64) {
	label, p := OutcomeDraw, r.Draw
	if r.HomeWin > p {
		label, p = OutcomeHome, r.HomeWin
	}
	if r.AwayWin > p {
		label, p = OutcomeAway, r.AwayWin
	}
	return label, p
}

// Simulate draws nSimulations scorelines from the goals model's Poisson rates
// and turns them into outcome and goal probabilities.
func Simulate(features *FixtureFeatures, goals GoalsModel, winner WinnerModel, nSimulations int, opts SimOptions) (*SimulationResult, error) {
	if nSimulations < 1 {
		return nil, invalidParam("n_simulations", nSimulations, "must be at least 1")
	}
	if features == nil {
		return nil, invalidParam("features", nil, "must not be nil")
	}
	if features.Err != nil {
		return nil, features.Err
	}
	if opts.WinnerWeight < 0 || opts.WinnerWeight > 1 || math.IsNaN(opts.WinnerWeight) {
		return nil, invalidParam("winner_weight", opts.WinnerWeight, "must be within [0, 1]")
	}
	if modelMissing(goals) {
		return nil, &ModelUnavailableError{Model: "goals"}
	}
	if modelMissing(winner) && opts.WinnerWeight > 0 {
		return nil, &ModelUnavailableError{Model: "winner"}
	}
	if opts.PoissonRange < 1 {
		opts.PoissonRange = DefaultPoissonRange
	}

	label := features.Fixture.Label()
	rates, err := goals.PredictGoals(features)
	if err != nil {
		return nil, &ModelInferenceError{Model: "goals", Fixture: label, Err: err}
	}
	if err := checkRate(rates.Home); err != nil {
		return nil, &ModelInferenceError{Model: "goals", Fixture: label, Err: fmt.Errorf("home rate: %w", err)}
	}
	if err := checkRate(rates.Away); err != nil {
		return nil, &ModelInferenceError{Model: "goals", Fixture: label, Err: fmt.Errorf("away rate: %w", err)}
	}

	res := &SimulationResult{
		Fixture:           features.Fixture,
		Simulations:       nSimulations,
		Rates:             rates,
		ReducedConfidence: features.ReducedConfidence(),
	}

	if !modelMissing(winner) && opts.WinnerWeight > 0 {
		wp, err := winner.PredictOutcome(features)
		if err != nil {
			return nil, &ModelInferenceError{Model: "winner", Fixture: label, Err: err}
		}
		wp, err = wp.Normalised()
		if err != nil {
			return nil, &ModelInferenceError{Model: "winner", Fixture: label, Err: err}
		}
		res.Winner = &wp
	}

	src := opts.Source
	if src == nil {
		src = NewStream(TimeSeed(), 0)
	}

	homeGoals := make([]float64, nSimulations)
	awayGoals := make([]float64, nSimulations)
	samplePoisson(homeGoals, rates.Home, src)
	samplePoisson(awayGoals, rates.Away, src)

	var weights []float64
	if opts.DixonColesRho != 0 {
		weights = make([]float64, nSimulations)
		for i := range weights {
			weights[i] = math.Max(minTau, calculateTau(int(homeGoals[i]), int(awayGoals[i]), rates.Home, rates.Away, opts.DixonColesRho))
		}
	}

	tallyScorelines(res, homeGoals, awayGoals, weights, opts.PoissonRange)

	res.ExpectedGoalsHome, res.StdDevGoalsHome = stat.PopMeanStdDev(homeGoals, weights)
	res.ExpectedGoalsAway, res.StdDevGoalsAway = stat.PopMeanStdDev(awayGoals, weights)

	final := res.Simulated
	if res.Winner != nil {
		w := opts.WinnerWeight
		final = OutcomeProbabilities{
			HomeWin: (1-w)*res.Simulated.HomeWin + w*res.Winner.HomeWin,
			Draw:    (1-w)*res.Simulated.Draw + w*res.Winner.Draw,
			AwayWin: (1-w)*res.Simulated.AwayWin + w*res.Winner.AwayWin,
		}
	}
	final, err = final.Normalised()
	if err != nil {
		return nil, &ModelInferenceError{Model: "simulation", Fixture: label, Err: err}
	}
	res.HomeWin, res.Draw, res.AwayWin = final.HomeWin, final.Draw, final.AwayWin

	return res, nil
}

// tallyScorelines fills the outcome frequencies, over/under probabilities and
// the score matrix in one pass over the samples
func tallyScorelines(res *SimulationResult, homeGoals, awayGoals, weights []float64, size int) {
	matrix := make([][]float64, size)
	for i := range matrix {
		matrix[i] = make([]float64, size)
	}

	var total, homeWin, draw, awayWin, over1p5, over2p5 float64
	for i := range homeGoals {
		w := 1.0
		if weights != nil {
			w = weights[i]
		}
		h, a := homeGoals[i], awayGoals[i]
		total += w
		switch {
		case h > a:
			homeWin += w
		case h == a:
			draw += w
		default:
			awayWin += w
		}
		if h+a > 1.5 {
			over1p5 += w
		}
		if h+a > 2.5 {
			over2p5 += w
		}
		if int(h) < size && int(a) < size {
			matrix[int(h)][int(a)] += w
		}
	}

	res.Simulated = OutcomeProbabilities{
		HomeWin: homeWin / total,
		Draw:    draw / total,
		AwayWin: awayWin / total,
	}
	res.Over1p5 = over1p5 / total
	res.Over2p5 = over2p5 / total

	best := ScoreLine{Probability: -1}
	for h := range matrix {
		for a := range matrix[h] {
			matrix[h][a] /= total
			if matrix[h][a] > best.Probability {
				best = ScoreLine{Home: h, Away: a, Probability: matrix[h][a]}
			}
		}
	}
	res.ScoreMatrix = matrix
	res.MostLikely = best
}

func checkRate(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("rate is not finite: %v", v)
	}
	if v < 0 {
		return fmt.Errorf("rate is negative: %v", v)
	}
	return nil
}
