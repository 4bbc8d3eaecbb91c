package attack

import (
	"math/rand"

	"github.com/rampart-fl/rampart/pkg/aggregate"
	"github.com/rampart-fl/rampart/pkg/vector"
)

type fang struct {
	cfg Config
}

func (a *fang) Name() string {
	return Fang
}

// Craft runs the model-poisoning search against Krum-style selection: the
// crafted vector moves from the honest mean against the sign of the mean,
// and the perturbation scale is halved until a Krum run over the crafted
// and honest updates would select a crafted one. Magnitude seeds the scale,
// MaxIters and Tolerance bound the search.
func (a *fang) Craft(r Round, _ *rand.Rand) ([]vector.Vector, error) {
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
	dir := direction(DirectionInverseSign, mean, std)

	lambda := a.cfg.Magnitude
	if lambda <= 0 {
		lambda = 10
	}

	crafted := make(vector.Vector, length)
	for iter := 0; iter < a.cfg.MaxIters && lambda >= a.cfg.Tolerance; iter++ {
		for j := range crafted {
			crafted[j] = mean[j] + lambda*dir[j]
		}
		selected, err := a.krumSelectsCrafted(crafted, r.Honest, slots)
		if err != nil || selected {
			break
		}
		lambda /= 2
	}

	return repeat(crafted, slots), nil
}

// krumSelectsCrafted reports whether single-Krum over the crafted copies
// followed by the honest updates picks a crafted index.
func (a *fang) krumSelectsCrafted(crafted vector.Vector, honest []vector.Vector, slots int) (bool, error) {
	updates := make([]aggregate.Update, 0, slots+len(honest))
	for i := 0; i < slots; i++ {
		updates = append(updates, aggregate.Update{Vector: crafted, Weight: 1})
	}
	for _, v := range honest {
		updates = append(updates, aggregate.Update{Vector: v, Weight: 1})
	}

	oracle, err := aggregate.NewKrum(aggregate.Config{NumMalicious: slots, NumToKeep: 1})
	if err != nil {
		return false, err
	}
	res, err := oracle.Aggregate(0, updates, nil)
	if err != nil {
		return false, err
	}

	return len(res.Kept) > 0 && res.Kept[0] < slots, nil
}
