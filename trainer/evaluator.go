package trainer

import (
	"context"
	"sort"

	"github.com/rampart-fl/rampart/experiment"
	"github.com/rampart-fl/rampart/pkg/vector"
)

// Evaluator scores the aggregated global model against a held-out slice the
// clients never train on.
type Evaluator struct {
	data Dataset
}

func NewEvaluator(data Dataset) *Evaluator {
	return &Evaluator{data: data}
}

// Evaluate computes the centralized round metrics for the flattened global
// parameters: mean log loss, accuracy and confusion counts at threshold 0.5,
// and the rank AUC over the raw scores.
func (e *Evaluator) Evaluate(ctx context.Context, global vector.Vector) (experiment.Metrics, error) {
	if err := ctx.Err(); err != nil {
		return experiment.Metrics{}, err
	}

	model := NewModel(len(e.data.X[0]))
	if err := model.SetFlat(global); err != nil {
		return experiment.Metrics{}, err
	}

	var m experiment.Metrics
	scores := make([]float64, e.data.Len())
	loss := 0.0
	for i := range e.data.X {
		p, err := model.Predict(e.data.X[i])
		if err != nil {
			return experiment.Metrics{}, err
		}
		scores[i] = p
		loss += logLoss(p, e.data.Y[i])

		positive := p >= 0.5
		switch {
		case e.data.Y[i] == 1 && positive:
			m.TP++
		case e.data.Y[i] == 1 && !positive:
			m.FN++
		case e.data.Y[i] == 0 && positive:
			m.FP++
		default:
			m.TN++
		}
	}

	total := float64(e.data.Len())
	m.Loss = loss / total
	m.Accuracy = float64(m.TP+m.TN) / total
	m.AUC = rankAUC(scores, e.data.Y)

	return m, nil
}

// rankAUC is the Mann-Whitney statistic: the probability that a random
// positive example scores above a random negative one, with ties counted
// half. A single-class slice scores 0.5.
func rankAUC(scores []float64, labels []int) float64 {
	n := len(scores)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return scores[order[a]] < scores[order[b]]
	})

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j < n && scores[order[j]] == scores[order[i]] {
			j++
		}
		avg := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			ranks[order[k]] = avg
		}
		i = j
	}

	var positives, negatives int
	rankSum := 0.0
	for i, y := range labels {
		if y == 1 {
			positives++
			rankSum += ranks[i]
		} else {
			negatives++
		}
	}
	if positives == 0 || negatives == 0 {
		return 0.5
	}

	u := rankSum - float64(positives*(positives+1))/2
	return u / float64(positives*negatives)
}
