// Package vector provides the flattened parameter representation shared by
// the aggregation strategies, the attack injectors, and the trainer: model
// layers are concatenated into a single vector in layer order, and a shape
// template allows the exact layered form to be reconstructed.
package vector

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/rampart-fl/rampart/pkg/errors"
)

// Vector is a model's parameters flattened into one slice, every layer
// concatenated in declaration order.
type Vector []float64

// Shape is the dimension list of one layer. An empty shape denotes a scalar.
type Shape []int

// Size returns the number of elements a layer of this shape holds.
func (s Shape) Size() int {
	size := 1
	for _, d := range s {
		size *= d
	}

	return size
}

// Template is the ordered list of layer shapes for one model. It is
// materialized once per run and reused for every flatten and unflatten.
type Template []Shape

// Size returns the total flattened length of a model with this template.
func (t Template) Size() int {
	total := 0
	for _, s := range t {
		total += s.Size()
	}

	return total
}

// TemplateOf derives a template from layered parameters, treating each layer
// as one-dimensional. Trainers with richer layer shapes build the template
// themselves.
func TemplateOf(layers [][]float64) Template {
	t := make(Template, len(layers))
	for i, l := range layers {
		t[i] = Shape{len(l)}
	}

	return t
}

// Flatten concatenates layers into a single vector in layer order. Each
// layer, already stored row-major, must match the template's size for that
// position.
func Flatten(layers [][]float64, t Template) (Vector, error) {
	if len(layers) != len(t) {
		return nil, fmt.Errorf("%w: %d layers against template of %d", errors.ErrDimensionMismatch, len(layers), len(t))
	}

	out := make(Vector, 0, t.Size())
	for i, l := range layers {
		if len(l) != t[i].Size() {
			return nil, fmt.Errorf("%w: layer %d has %d elements, template expects %d", errors.ErrDimensionMismatch, i, len(l), t[i].Size())
		}
		out = append(out, l...)
	}

	return out, nil
}

// Unflatten splits a vector back into per-layer slices according to the
// template. It is the exact inverse of Flatten for the same template.
func Unflatten(v Vector, t Template) ([][]float64, error) {
	if len(v) != t.Size() {
		return nil, fmt.Errorf("%w: vector of %d against template of %d", errors.ErrDimensionMismatch, len(v), t.Size())
	}

	layers := make([][]float64, len(t))
	offset := 0
	for i, s := range t {
		n := s.Size()
		layers[i] = make([]float64, n)
		copy(layers[i], v[offset:offset+n])
		offset += n
	}

	return layers, nil
}

// Clone returns an independent copy of v.
func (v Vector) Clone() Vector {
	out := make(Vector, len(v))
	copy(out, v)

	return out
}

// Dot returns the inner product of two vectors of equal length.
func Dot(a, b Vector) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d against %d", errors.ErrDimensionMismatch, len(a), len(b))
	}

	return floats.Dot(a, b), nil
}

// Norm returns the Euclidean norm of v.
func Norm(v Vector) float64 {
	return floats.Norm(v, 2)
}

// SquaredDistance returns the squared Euclidean distance between two vectors
// of equal length.
func SquaredDistance(a, b Vector) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d against %d", errors.ErrDimensionMismatch, len(a), len(b))
	}

	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}

	return sum, nil
}

// Distance returns the Euclidean distance between two vectors of equal
// length.
func Distance(a, b Vector) (float64, error) {
	sq, err := SquaredDistance(a, b)
	if err != nil {
		return 0, err
	}

	return math.Sqrt(sq), nil
}

// CosineDistance returns one minus the cosine similarity of two vectors of
// equal length. Two zero vectors are at distance zero; a zero vector against
// a non-zero one is at distance one.
func CosineDistance(a, b Vector) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d against %d", errors.ErrDimensionMismatch, len(a), len(b))
	}

	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	switch {
	case na == 0 && nb == 0:
		return 0, nil
	case na == 0 || nb == 0:
		return 1, nil
	}

	return 1 - floats.Dot(a, b)/(na*nb), nil
}
