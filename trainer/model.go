package trainer

import (
	"fmt"
	"math"

	"github.com/rampart-fl/rampart/pkg/errors"
	"github.com/rampart-fl/rampart/pkg/vector"
)

// Model is logistic regression over a fixed feature width. Its layered form
// is two layers, the weight vector and the bias.
type Model struct {
	Weights []float64
	Bias    float64
}

// NewModel returns a zero-initialized model.
func NewModel(features int) *Model {
	return &Model{Weights: make([]float64, features)}
}

// Template is the layer-shape template of a model with the given feature
// width.
func Template(features int) vector.Template {
	return vector.Template{vector.Shape{features}, vector.Shape{1}}
}

// Layers returns the model's parameters in layer order.
func (m *Model) Layers() [][]float64 {
	w := make([]float64, len(m.Weights))
	copy(w, m.Weights)

	return [][]float64{w, {m.Bias}}
}

// SetFlat loads the model from a flattened parameter vector.
func (m *Model) SetFlat(v vector.Vector) error {
	layers, err := vector.Unflatten(v, Template(len(m.Weights)))
	if err != nil {
		return fmt.Errorf("loading model parameters: %w", err)
	}
	copy(m.Weights, layers[0])
	m.Bias = layers[1][0]

	return nil
}

// Predict returns the positive-class probability for one example.
func (m *Model) Predict(x []float64) (float64, error) {
	if len(x) != len(m.Weights) {
		return 0, fmt.Errorf("%w: example of %d features against %d", errors.ErrDimensionMismatch, len(x), len(m.Weights))
	}

	z := m.Bias
	for j, w := range m.Weights {
		z += w * x[j]
	}

	return sigmoid(z), nil
}

func sigmoid(z float64) float64 {
	switch {
	case z > 30:
		return 1
	case z < -30:
		return 0
	}

	return 1 / (1 + math.Exp(-z))
}

// logLoss is the negative log likelihood of one prediction, clamped away
// from the poles.
func logLoss(p float64, label int) float64 {
	const eps = 1e-12
	if p < eps {
		p = eps
	}
	if p > 1-eps {
		p = 1 - eps
	}
	if label == 1 {
		return -math.Log(p)
	}

	return -math.Log(1 - p)
}
