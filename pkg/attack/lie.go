package attack

import (
	"math/rand"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/rampart-fl/rampart/pkg/vector"
)

type lie struct{}

func (a *lie) Name() string {
	return LIE
}

// Craft shifts every malicious slot to mean + z*std of the honest updates,
// with z the largest standard-normal deviate that still hides inside the
// benign majority: z = quantile((n-m-s)/(n-m)) for s = n/2 + 1 - m.
func (a *lie) Craft(r Round, _ *rand.Rand) ([]vector.Vector, error) {
	length, err := roundLength(r)
	if err != nil {
		return nil, err
	}

	mean, std, err := honestMoments(r.Honest, length)
	if err != nil {
		return nil, err
	}

	n := len(r.Honest) + len(r.Malicious)
	m := len(r.Malicious)
	s := n/2 + 1 - m
	p := float64(n-m-s) / float64(n-m)
	if p < 1e-6 {
		p = 1e-6
	}
	if p > 1-1e-6 {
		p = 1 - 1e-6
	}
	z := distuv.Normal{Mu: 0, Sigma: 1}.Quantile(p)

	crafted := make(vector.Vector, length)
	for j := range crafted {
		crafted[j] = mean[j] + z*std[j]
	}

	return repeat(crafted, m), nil
}
