package podds

import (
	"fmt"
	"math"
	"reflect"
)

// GoalRates are the Poisson means for each side
type GoalRates struct {
	Home float64 `json:"home" yaml:"home"`
	Away float64 `json:"away" yaml:"away"`
}

// OutcomeProbabilities is a home win / draw / away win distribution
type OutcomeProbabilities struct {
	HomeWin float64 `json:"homeWin"`
	Draw    float64 `json:"draw"`
	AwayWin float64 `json:"awayWin"`
}

// Sum of the three probabilities
func (o OutcomeProbabilities) Sum() float64 {
	return o.HomeWin + o.Draw + o.AwayWin
}

// Normalised rescales to sum to one. It fails on negative, NaN or all-zero input.
func (o OutcomeProbabilities) Normalised() (OutcomeProbabilities, error) {
	for _, p := range []float64{o.HomeWin, o.Draw, o.AwayWin} {
		if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
			return o, fmt.Errorf("probabilities must be finite and non-negative, got %+v", o)
		}
	}
	s := o.Sum()
	if s <= 0 {
		return o, fmt.Errorf("probabilities sum to zero")
	}
	return OutcomeProbabilities{HomeWin: o.HomeWin / s, Draw: o.Draw / s, AwayWin: o.AwayWin / s}, nil
}

// GoalsModel predicts goal rates for a fixture
type GoalsModel interface {
	PredictGoals(f *FixtureFeatures) (GoalRates, error)
}

// WinnerModel predicts the outcome distribution for a fixture
type WinnerModel interface {
	PredictOutcome(f *FixtureFeatures) (OutcomeProbabilities, error)
}

// GoalsModelFunc adapts a function to GoalsModel
type GoalsModelFunc func(f *FixtureFeatures) (GoalRates, error)

func (fn GoalsModelFunc) PredictGoals(f *FixtureFeatures) (GoalRates, error) {
	return fn(f)
}

// WinnerModelFunc adapts a function to WinnerModel
type WinnerModelFunc func(f *FixtureFeatures) (OutcomeProbabilities, error)

func (fn WinnerModelFunc) PredictOutcome(f *FixtureFeatures) (OutcomeProbabilities, error) {
	return fn(f)
}

// modelMissing is true for a nil interface and for a typed nil pointer or func inside one
func modelMissing(m any) bool {
	if m == nil {
		return true
	}
	switch v := reflect.ValueOf(m); v.Kind() {
	case reflect.Ptr, reflect.Func, reflect.Map, reflect.Slice, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// PoissonGoalsModel is the attack times defence model: a side's rate is its
// scoring form times the opponent's conceding form, relative to the league,
// scaled by the venue adjustment
type PoissonGoalsModel struct {
	MinRate float64 `json:"minRate" yaml:"min_rate"`
	MaxRate float64 `json:"maxRate" yaml:"max_rate"`
}

func NewPoissonGoalsModel() *PoissonGoalsModel {
	return &PoissonGoalsModel{MinRate: 0.05, MaxRate: 10}
}

func (m *PoissonGoalsModel) PredictGoals(f *FixtureFeatures) (GoalRates, error) {
	if m == nil {
		return GoalRates{}, fmt.Errorf("goals model is nil")
	}
	if f == nil || f.HomeForm == nil || f.AwayForm == nil {
		return GoalRates{}, fmt.Errorf("fixture has no form data")
	}
	gpg := f.League.GoalsPerGame
	if gpg <= 0 {
		return GoalRates{}, fmt.Errorf("league goals per game must be positive, got %v", gpg)
	}

	home := f.HomeForm.AvgGoalsScored * f.AwayForm.AvgGoalsConceded / gpg
	away := f.AwayForm.AvgGoalsScored * f.HomeForm.AvgGoalsConceded / gpg

	// venue specific windows already carry home advantage
	if f.HomeForm.Venue == VenueAll {
		home *= f.HomeForm.HomeAdjustment
	}
	if f.AwayForm.Venue == VenueAll {
		away *= f.AwayForm.AwayAdjustment
	}

	return GoalRates{Home: m.clamp(home), Away: m.clamp(away)}, nil
}

func (m *PoissonGoalsModel) clamp(v float64) float64 {
	if v < m.MinRate {
		return m.MinRate
	}
	if m.MaxRate > 0 && v > m.MaxRate {
		return m.MaxRate
	}
	return v
}

// WinnerFeatureNames documents the order of WinnerFeatures
var WinnerFeatureNames = []string{
	"bias",
	"scored_diff",
	"conceded_diff",
	"form_diff",
	"home_advantage",
}

// WinnerFeatures is the input vector for LogisticWinnerModel
func WinnerFeatures(f *FixtureFeatures) []float64 {
	h, a := f.HomeForm, f.AwayForm
	return []float64{
		1.0,
		h.AvgGoalsScored - a.AvgGoalsScored,
		a.AvgGoalsConceded - h.AvgGoalsConceded,
		(h.FormPercentage - a.FormPercentage) / 100,
		h.HomeAdjustment - 1,
	}
}

// LogisticWinnerModel is a multinomial logistic regression over WinnerFeatures
type LogisticWinnerModel struct {
	HomeWin []float64 `json:"homeWin" yaml:"home_win"`
	Draw    []float64 `json:"draw" yaml:"draw"`
	AwayWin []float64 `json:"awayWin" yaml:"away_win"`
}

// NewLogisticWinnerModel returns a model with hand set coefficients
func NewLogisticWinnerModel() *LogisticWinnerModel {
	return &LogisticWinnerModel{
		HomeWin: []float64{0.15, 0.55, 0.45, 0.6, 0.8},
		Draw:    []float64{0, 0, 0, 0, 0},
		AwayWin: []float64{-0.15, -0.55, -0.45, -0.6, -0.8},
	}
}

// Validate checks every coefficient vector matches WinnerFeatureNames
func (m *LogisticWinnerModel) Validate() error {
	want := len(WinnerFeatureNames)
	for name, w := range map[string][]float64{"home_win": m.HomeWin, "draw": m.Draw, "away_win": m.AwayWin} {
		if len(w) != want {
			return fmt.Errorf("%s has %d coefficients, want %d", name, len(w), want)
		}
	}
	return nil
}

func (m *LogisticWinnerModel) PredictOutcome(f *FixtureFeatures) (OutcomeProbabilities, error) {
	if m == nil {
		return OutcomeProbabilities{}, fmt.Errorf("winner model is nil")
	}
	if f == nil || f.HomeForm == nil || f.AwayForm == nil {
		return OutcomeProbabilities{}, fmt.Errorf("fixture has no form data")
	}
	if err := m.Validate(); err != nil {
		return OutcomeProbabilities{}, err
	}
	x := WinnerFeatures(f)
	p := softmax(dot(m.HomeWin, x), dot(m.Draw, x), dot(m.AwayWin, x))
	return OutcomeProbabilities{HomeWin: p[0], Draw: p[1], AwayWin: p[2]}, nil
}

func dot(w, x []float64) float64 {
	var s float64
	for i := range w {
		s += w[i] * x[i]
	}
	return s
}

func softmax(z ...float64) []float64 {
	top := math.Inf(-1)
	for _, v := range z {
		if v > top {
			top = v
		}
	}
	out := make([]float64, len(z))
	var sum float64
	for i, v := range z {
		out[i] = math.Exp(v - top)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
