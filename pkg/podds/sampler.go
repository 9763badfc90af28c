package podds

import (
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/stat/distuv"
)

// NewStream returns an independent random stream. The orchestrator uses the
// fixture's position in the batch as stream so that results do not depend on scheduling.
func NewStream(seed, stream uint64) rand.Source {
	return rand.NewPCG(seed, stream)
}

// TimeSeed is used when the caller does not ask for reproducible output
func TimeSeed() uint64 {
	return uint64(time.Now().UnixNano())
}

// samplePoisson fills dst with Poisson(lambda) draws
func samplePoisson(dst []float64, lambda float64, src rand.Source) {
	if lambda <= 0 {
		clear(dst)
		return
	}
	p := distuv.Poisson{Lambda: lambda, Src: src}
	for i := range dst {
		dst[i] = p.Rand()
	}
}

// calculateTau is the Dixon-Coles low score dependence factor
func calculateTau(homeGoals, awayGoals int, lambdaHome, lambdaAway, rho float64) float64 {
	switch {
	case homeGoals == 0 && awayGoals == 0:
		return 1 - lambdaHome*lambdaAway*rho
	case homeGoals == 0 && awayGoals == 1:
		return 1 + lambdaHome*rho
	case homeGoals == 1 && awayGoals == 0:
		return 1 + lambdaAway*rho
	case homeGoals == 1 && awayGoals == 1:
		return 1 - rho
	}
	return 1.0
}
