// Package attack implements the perturbations applied to the updates of
// designated malicious clients before aggregation. An injector sees the
// honest updates and the malicious slots and produces replacement vectors
// for exactly those slots; honest updates are never touched.
package attack

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/rampart-fl/rampart/pkg/errors"
	"github.com/rampart-fl/rampart/pkg/vector"
)

const (
	NoAttack = "na"
	Gaussian = "gaussian"
	LIE      = "lie"
	Fang     = "fang"
	MinMax   = "minmax"
)

// Perturbation directions for the searching attacks.
const (
	DirectionUnitStd     = "unit_std"
	DirectionInverseSign = "inverse_sign"
)

// Config carries the adversary's parameters. Magnitude scales Gaussian noise
// and seeds the perturbation search of the optimizing attacks; MaxIters and
// Tolerance bound that search.
type Config struct {
	Magnitude float64
	MaxIters  int
	Tolerance float64
	Direction string
}

// Round is the adversary's view of one round: read-only honest updates and
// the current updates of the malicious slots.
type Round struct {
	Honest    []vector.Vector
	Malicious []vector.Vector
}

// Injector crafts replacement vectors for the malicious slots. The returned
// slice is index aligned with Round.Malicious. Implementations draw
// randomness only from the supplied source.
type Injector interface {
	Name() string
	Craft(r Round, rng *rand.Rand) ([]vector.Vector, error)
}

// New resolves an attack name to its injector. Unknown names fail here,
// before any round runs.
func New(name string, cfg Config) (Injector, error) {
	if cfg.MaxIters <= 0 {
		cfg.MaxIters = 30
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = 1e-5
	}
	if cfg.Direction == "" {
		cfg.Direction = DirectionUnitStd
	}

	switch name {
	case NoAttack:
		return &noAttack{}, nil
	case Gaussian:
		return &gaussian{cfg: cfg}, nil
	case LIE:
		return &lie{}, nil
	case Fang:
		return &fang{cfg: cfg}, nil
	case MinMax:
		return &minMax{cfg: cfg}, nil
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownAttack, name)
	}
}

// Names lists the supported attack names in presentation order.
func Names() []string {
	return []string{NoAttack, Gaussian, LIE, Fang, MinMax}
}

type noAttack struct{}

func (a *noAttack) Name() string {
	return NoAttack
}

func (a *noAttack) Craft(r Round, _ *rand.Rand) ([]vector.Vector, error) {
	out := make([]vector.Vector, len(r.Malicious))
	for i, v := range r.Malicious {
		out[i] = v.Clone()
	}

	return out, nil
}

// roundLength verifies that every vector in the round shares one length and
// returns it.
func roundLength(r Round) (int, error) {
	var length int
	seen := false
	check := func(v vector.Vector) error {
		if !seen {
			length = len(v)
			seen = true

			return nil
		}
		if len(v) != length {
			return fmt.Errorf("%w: %d against %d", errors.ErrDimensionMismatch, len(v), length)
		}

		return nil
	}

	for _, v := range r.Honest {
		if err := check(v); err != nil {
			return 0, err
		}
	}
	for _, v := range r.Malicious {
		if err := check(v); err != nil {
			return 0, err
		}
	}

	return length, nil
}

// honestMoments returns the per-coordinate mean and population standard
// deviation of the honest updates.
func honestMoments(honest []vector.Vector, length int) (mean, std vector.Vector, err error) {
	if len(honest) == 0 {
		return nil, nil, fmt.Errorf("%w: no honest updates to estimate", errors.ErrInsufficientClients)
	}

	mean = make(vector.Vector, length)
	for _, v := range honest {
		for j, x := range v {
			mean[j] += x
		}
	}
	for j := range mean {
		mean[j] /= float64(len(honest))
	}

	std = make(vector.Vector, length)
	for _, v := range honest {
		for j, x := range v {
			d := x - mean[j]
			std[j] += d * d
		}
	}
	for j := range std {
		std[j] = math.Sqrt(std[j] / float64(len(honest)))
	}

	return mean, std, nil
}

// direction resolves the configured perturbation direction against the
// honest moments.
func direction(name string, mean, std vector.Vector) vector.Vector {
	dir := make(vector.Vector, len(mean))
	switch name {
	case DirectionInverseSign:
		for j, m := range mean {
			switch {
			case m > 0:
				dir[j] = -1
			case m < 0:
				dir[j] = 1
			}
		}
	default:
		norm := vector.Norm(std)
		if norm == 0 {
			return dir
		}
		for j, s := range std {
			dir[j] = -s / norm
		}
	}

	return dir
}

// repeat fills every malicious slot with copies of one crafted vector.
func repeat(crafted vector.Vector, slots int) []vector.Vector {
	out := make([]vector.Vector, slots)
	for i := range out {
		out[i] = crafted.Clone()
	}

	return out
}
