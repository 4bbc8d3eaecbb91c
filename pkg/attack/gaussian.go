package attack

import (
	"math/rand"

	"github.com/rampart-fl/rampart/pkg/vector"
)

type gaussian struct {
	cfg Config
}

func (a *gaussian) Name() string {
	return Gaussian
}

// Craft adds independent zero-mean noise with standard deviation Magnitude
// to every coordinate of each malicious update.
func (a *gaussian) Craft(r Round, rng *rand.Rand) ([]vector.Vector, error) {
	if _, err := roundLength(r); err != nil {
		return nil, err
	}

	out := make([]vector.Vector, len(r.Malicious))
	for i, v := range r.Malicious {
		crafted := v.Clone()
		for j := range crafted {
			crafted[j] += a.cfg.Magnitude * rng.NormFloat64()
		}
		out[i] = crafted
	}

	return out, nil
}
