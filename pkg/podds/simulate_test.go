package podds

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

func seeded(seed uint64) SimOptions {
	opts := DefaultSimOptions()
	opts.Source = NewStream(seed, 0)
	return opts
}

func TestSimulateProbabilitiesSumToOne(t *testing.T) {
	goals, winner := DefaultModels()
	for _, rho := range []float64{0, -0.1} {
		opts := seeded(7)
		opts.DixonColesRho = rho

		res, err := Simulate(symmetricFeatures(), goals, winner, 5000, opts)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, res.HomeWin+res.Draw+res.AwayWin, 1e-6)
		assert.InDelta(t, 1.0, res.Simulated.Sum(), 1e-6)
		assert.GreaterOrEqual(t, res.Over1p5, res.Over2p5)
	}
}

func TestSimulateIsDeterministicForASeed(t *testing.T) {
	goals, winner := DefaultModels()
	a, err := Simulate(symmetricFeatures(), goals, winner, 2000, seeded(42))
	require.NoError(t, err)
	b, err := Simulate(symmetricFeatures(), goals, winner, 2000, seeded(42))
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := Simulate(symmetricFeatures(), goals, winner, 2000, seeded(43))
	require.NoError(t, err)
	assert.NotEqual(t, a.Simulated, c.Simulated)
}

func TestSimulateVarianceShrinksWithMoreSimulations(t *testing.T) {
	goals := NewPoissonGoalsModel()
	spread := func(n int) float64 {
		var xs []float64
		for s := uint64(0); s < 20; s++ {
			opts := seeded(s)
			opts.WinnerWeight = 0
			res, err := Simulate(symmetricFeatures(), goals, nil, n, opts)
			require.NoError(t, err)
			xs = append(xs, res.HomeWin)
		}
		return stat.StdDev(xs, nil)
	}
	assert.Less(t, spread(MaxSimulations), spread(MinSimulations))
}

func TestSimulateSymmetricTeams(t *testing.T) {
	opts := seeded(2024)
	opts.WinnerWeight = 0
	res, err := Simulate(symmetricFeatures(), NewPoissonGoalsModel(), nil, MaxSimulations, opts)
	require.NoError(t, err)

	assert.InDelta(t, res.HomeWin, res.AwayWin, 0.02)
	assert.InDelta(t, 1.4, res.Rates.Home, 1e-9)
	assert.InDelta(t, 1.4, res.ExpectedGoalsHome, 0.05)
	assert.InDelta(t, math.Sqrt(1.4), res.StdDevGoalsHome, 0.05)
	assert.Nil(t, res.Winner)
}

func TestSimulateBlendsWinnerModel(t *testing.T) {
	fixed := WinnerModelFunc(func(*FixtureFeatures) (OutcomeProbabilities, error) {
		return OutcomeProbabilities{HomeWin: 2, Draw: 1, AwayWin: 1}, nil
	})
	opts := seeded(1)
	opts.WinnerWeight = 1
	res, err := Simulate(symmetricFeatures(), NewPoissonGoalsModel(), fixed, 1000, opts)
	require.NoError(t, err)

	assert.InDelta(t, 0.5, res.HomeWin, 1e-9)
	assert.InDelta(t, 0.25, res.Draw, 1e-9)
	require.NotNil(t, res.Winner)
	label, p := res.Prediction()
	assert.Equal(t, OutcomeHome, label)
	assert.InDelta(t, 0.5, p, 1e-9)
}

func TestSimulateAcceptsSingleSimulation(t *testing.T) {
	res, err := Simulate(symmetricFeatures(), NewPoissonGoalsModel(), nil, 1, SimOptions{Source: NewStream(3, 0)})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Simulations)
	assert.InDelta(t, 1.0, res.HomeWin+res.Draw+res.AwayWin, 1e-9)
	assert.Equal(t, 1.0, res.MostLikely.Probability)
}

func TestSimulateRejectsBadParameters(t *testing.T) {
	goals, winner := DefaultModels()
	var ip *InvalidParameterError

	_, err := Simulate(symmetricFeatures(), goals, winner, 0, seeded(1))
	assert.True(t, errors.As(err, &ip))

	_, err = Simulate(nil, goals, winner, 10, seeded(1))
	assert.True(t, errors.As(err, &ip))

	opts := seeded(1)
	opts.WinnerWeight = 1.5
	_, err = Simulate(symmetricFeatures(), goals, winner, 10, opts)
	assert.True(t, errors.As(err, &ip))
}

func TestSimulateMissingModels(t *testing.T) {
	var mu *ModelUnavailableError

	_, err := Simulate(symmetricFeatures(), nil, NewLogisticWinnerModel(), 10, seeded(1))
	require.True(t, errors.As(err, &mu))
	assert.Equal(t, "goals", mu.Model)

	_, err = Simulate(symmetricFeatures(), NewPoissonGoalsModel(), nil, 10, seeded(1))
	require.True(t, errors.As(err, &mu))
	assert.Equal(t, "winner", mu.Model)
}

func TestSimulateModelFailures(t *testing.T) {
	boom := errors.New("boom")
	cases := map[string]struct {
		goals  GoalsModel
		winner WinnerModel
	}{
		"goals error": {
			goals:  GoalsModelFunc(func(*FixtureFeatures) (GoalRates, error) { return GoalRates{}, boom }),
			winner: NewLogisticWinnerModel(),
		},
		"nan rate": {
			goals:  GoalsModelFunc(func(*FixtureFeatures) (GoalRates, error) { return GoalRates{Home: math.NaN(), Away: 1}, nil }),
			winner: NewLogisticWinnerModel(),
		},
		"negative rate": {
			goals:  GoalsModelFunc(func(*FixtureFeatures) (GoalRates, error) { return GoalRates{Home: 1, Away: -1}, nil }),
			winner: NewLogisticWinnerModel(),
		},
		"winner error": {
			goals:  NewPoissonGoalsModel(),
			winner: WinnerModelFunc(func(*FixtureFeatures) (OutcomeProbabilities, error) { return OutcomeProbabilities{}, boom }),
		},
		"winner all zero": {
			goals:  NewPoissonGoalsModel(),
			winner: WinnerModelFunc(func(*FixtureFeatures) (OutcomeProbabilities, error) { return OutcomeProbabilities{}, nil }),
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Simulate(symmetricFeatures(), tc.goals, tc.winner, 100, seeded(1))
			var mi *ModelInferenceError
			assert.True(t, errors.As(err, &mi), "got %v", err)
		})
	}
}

func TestSimulateReturnsFeatureError(t *testing.T) {
	f := symmetricFeatures()
	f.Err = &MalformedFixtureError{Fixture: "x", Reason: "missing home team"}
	_, err := Simulate(f, NewPoissonGoalsModel(), nil, 100, SimOptions{})
	var mf *MalformedFixtureError
	assert.True(t, errors.As(err, &mf))
}

func TestDixonColesShiftsLowScores(t *testing.T) {
	plain := seeded(11)
	plain.WinnerWeight = 0
	dc := seeded(11)
	dc.WinnerWeight = 0
	dc.DixonColesRho = -0.15

	a, err := Simulate(symmetricFeatures(), NewPoissonGoalsModel(), nil, 20000, plain)
	require.NoError(t, err)
	b, err := Simulate(symmetricFeatures(), NewPoissonGoalsModel(), nil, 20000, dc)
	require.NoError(t, err)

	// negative rho inflates 0-0 and 1-1
	assert.Greater(t, b.ScoreMatrix[0][0], a.ScoreMatrix[0][0])
	assert.Greater(t, b.Draw, a.Draw)
}

func TestPoissonGoalsModel(t *testing.T) {
	f := &FixtureFeatures{
		HomeForm: flatForm("Leeds", 2.0, 0.5),
		AwayForm: flatForm("York", 1.0, 1.5),
		League:   newLeagueAverages(10, 15, 10, DefaultLeagueDefaults()),
	}
	f.HomeForm.HomeAdjustment = 1.2
	f.AwayForm.AwayAdjustment = 0.8

	rates, err := NewPoissonGoalsModel().PredictGoals(f)
	require.NoError(t, err)
	assert.InDelta(t, 2.0*1.5/1.25*1.2, rates.Home, 1e-9)
	assert.InDelta(t, 1.0*0.5/1.25*0.8, rates.Away, 1e-9)

	f.HomeForm.Venue = VenueHome
	rates, err = NewPoissonGoalsModel().PredictGoals(f)
	require.NoError(t, err)
	assert.InDelta(t, 2.0*1.5/1.25, rates.Home, 1e-9)

	_, err = NewPoissonGoalsModel().PredictGoals(&FixtureFeatures{})
	assert.Error(t, err)
}

func TestLogisticWinnerModelFavoursStrongerSide(t *testing.T) {
	f := &FixtureFeatures{
		HomeForm: flatForm("Leeds", 2.5, 0.5),
		AwayForm: flatForm("York", 0.5, 2.5),
	}
	p, err := NewLogisticWinnerModel().PredictOutcome(f)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, p.Sum(), 1e-9)
	assert.Greater(t, p.HomeWin, p.AwayWin)

	bad := &LogisticWinnerModel{HomeWin: []float64{1}}
	_, err = bad.PredictOutcome(f)
	assert.Error(t, err)
}
