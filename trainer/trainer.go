// Package trainer simulates the client side of a federated round: a seeded
// synthetic dataset partitioned across the pool, local logistic-regression
// training, and centralized evaluation of the global model. Clients live in
// the coordinator's process and always respond.
package trainer

import (
	"context"
	"fmt"

	"github.com/rampart-fl/rampart/experiment"
	"github.com/rampart-fl/rampart/pkg/errors"
	"github.com/rampart-fl/rampart/pkg/vector"
)

const learningRate = 0.1

// FitConfig carries the per-round local training instructions.
type FitConfig struct {
	Epochs    int
	BatchSize int
}

// Update is the raw layered result of one local fit.
type Update struct {
	ClientID    string
	Layers      [][]float64
	NumExamples int64
	Metrics     map[string]float64
}

// Client is the collaborator the orchestrator drives each round. Fit and
// Evaluate are safe to call concurrently across clients; a client keeps no
// state between rounds beyond its own shard.
type Client interface {
	ID() string
	Fit(ctx context.Context, global vector.Vector, cfg FitConfig) (Update, error)
	Evaluate(ctx context.Context, global vector.Vector) (map[string]float64, error)
}

type simClient struct {
	id   string
	data Dataset
}

// NewClient returns an in-process client training logistic regression on its
// own shard by mini-batch gradient descent.
func NewClient(id string, data Dataset) Client {
	return &simClient{id: id, data: data}
}

func (c *simClient) ID() string {
	return c.id
}

func (c *simClient) Fit(ctx context.Context, global vector.Vector, cfg FitConfig) (Update, error) {
	if err := ctx.Err(); err != nil {
		return Update{}, err
	}
	if c.data.Len() == 0 {
		return Update{}, fmt.Errorf("%w: client %s has an empty shard", errors.ErrInvalidData, c.id)
	}

	features := len(c.data.X[0])
	model := NewModel(features)
	if err := model.SetFlat(global); err != nil {
		return Update{}, err
	}

	batch := cfg.BatchSize
	if batch <= 0 || batch > c.data.Len() {
		batch = c.data.Len()
	}
	epochs := cfg.Epochs
	if epochs <= 0 {
		epochs = 1
	}

	grad := make([]float64, features)
	loss := 0.0
	for epoch := 0; epoch < epochs; epoch++ {
		loss = 0
		for lo := 0; lo < c.data.Len(); lo += batch {
			hi := min(lo+batch, c.data.Len())
			for j := range grad {
				grad[j] = 0
			}
			gradBias := 0.0
			for i := lo; i < hi; i++ {
				p, err := model.Predict(c.data.X[i])
				if err != nil {
					return Update{}, err
				}
				diff := p - float64(c.data.Y[i])
				for j, x := range c.data.X[i] {
					grad[j] += diff * x
				}
				gradBias += diff
				loss += logLoss(p, c.data.Y[i])
			}
			scale := learningRate / float64(hi-lo)
			for j := range model.Weights {
				model.Weights[j] -= scale * grad[j]
			}
			model.Bias -= scale * gradBias
		}
		loss /= float64(c.data.Len())
	}

	return Update{
		ClientID:    c.id,
		Layers:      model.Layers(),
		NumExamples: int64(c.data.Len()),
		Metrics:     map[string]float64{"train_loss": loss},
	}, nil
}

func (c *simClient) Evaluate(ctx context.Context, global vector.Vector) (map[string]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.data.Len() == 0 {
		return nil, fmt.Errorf("%w: client %s has an empty shard", errors.ErrInvalidData, c.id)
	}

	model := NewModel(len(c.data.X[0]))
	if err := model.SetFlat(global); err != nil {
		return nil, err
	}

	loss, correct := 0.0, 0
	for i := range c.data.X {
		p, err := model.Predict(c.data.X[i])
		if err != nil {
			return nil, err
		}
		loss += logLoss(p, c.data.Y[i])
		if (p >= 0.5) == (c.data.Y[i] == 1) {
			correct++
		}
	}

	return map[string]float64{
		"loss":     loss / float64(c.data.Len()),
		"accuracy": float64(correct) / float64(c.data.Len()),
	}, nil
}

const (
	examplesPerClient = 128
	evalExamples      = 512
)

// NewPool builds an experiment's full client pool, its centralized evaluator
// and the layer-shape template: one synthetic dataset drawn from the
// experiment seed, split IID across the pool, with a held-out evaluation
// slice.
func NewPool(exp experiment.Experiment) ([]Client, *Evaluator, vector.Template, error) {
	if exp.PoolSize < 1 {
		return nil, nil, nil, fmt.Errorf("%w: pool size %d", errors.ErrInvalidData, exp.PoolSize)
	}

	features := Features(exp.Dataset)
	data := Synthesize(exp.PoolSize*examplesPerClient+evalExamples, features, exp.Seed)

	trainSize := exp.PoolSize * examplesPerClient
	train := Dataset{X: data.X[:trainSize], Y: data.Y[:trainSize]}
	held := Dataset{X: data.X[trainSize:], Y: data.Y[trainSize:]}

	shards := train.Partition(exp.PoolSize)
	clients := make([]Client, exp.PoolSize)
	for i := range clients {
		clients[i] = NewClient(fmt.Sprintf("client-%d", i), shards[i])
	}

	return clients, NewEvaluator(held), Template(features), nil
}
