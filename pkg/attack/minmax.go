package attack

import (
	"math/rand"

	"github.com/rampart-fl/rampart/pkg/vector"
)

type minMax struct {
	cfg Config
}

func (a *minMax) Name() string {
	return MinMax
}

// Craft binary-searches the largest scale gamma such that
// mean + gamma*direction stays within the maximum honest pairwise distance
// of every honest update. Magnitude seeds gamma, MaxIters and Tolerance
// bound the search.
func (a *minMax) Craft(r Round, _ *rand.Rand) ([]vector.Vector, error) {
	length, err := roundLength(r)
	if err != nil {
		return nil, err
	}

	slots := len(r.Malicious)
	if slots == 0 {
		return nil, nil
	}

	mean, std, err := honestMoments(r.Honest, length)
	if err != nil {
		return nil, err
	}
	dir := direction(a.cfg.Direction, mean, std)

	envelope := 0.0
	for i := 0; i < len(r.Honest); i++ {
		for j := i + 1; j < len(r.Honest); j++ {
			d, err := vector.Distance(r.Honest[i], r.Honest[j])
			if err != nil {
				return nil, err
			}
			if d > envelope {
				envelope = d
			}
		}
	}

	gamma := a.cfg.Magnitude
	if gamma <= 0 {
		gamma = 10
	}
	step := gamma / 2
	gammaSucc := 0.0

	crafted := make(vector.Vector, length)
	for iter := 0; iter < a.cfg.MaxIters && step > a.cfg.Tolerance; iter++ {
		for j := range crafted {
			crafted[j] = mean[j] + gamma*dir[j]
		}
		ok, err := a.withinEnvelope(crafted, r.Honest, envelope)
		if err != nil {
			return nil, err
		}
		if ok {
			gammaSucc = gamma
			gamma += step
		} else {
			gamma -= step
		}
		step /= 2
	}

	final := make(vector.Vector, length)
	for j := range final {
		final[j] = mean[j] + gammaSucc*dir[j]
	}

	return repeat(final, slots), nil
}

func (a *minMax) withinEnvelope(crafted vector.Vector, honest []vector.Vector, envelope float64) (bool, error) {
	for _, h := range honest {
		d, err := vector.Distance(crafted, h)
		if err != nil {
			return false, err
		}
		if d > envelope {
			return false, nil
		}
	}

	return true, nil
}
