package trainer

import "math/rand"

// Dataset is a labeled design matrix for binary classification.
type Dataset struct {
	X [][]float64
	Y []int
}

// featuresByName maps a dataset name to the width of its synthetic stand-in.
var featuresByName = map[string]int{
	"synthetic": 20,
	"income":    14,
	"house":     17,
}

// Features returns the feature width the named dataset is generated with.
func Features(name string) int {
	if f, ok := featuresByName[name]; ok {
		return f
	}

	return featuresByName["synthetic"]
}

// Synthesize draws a two-cluster Gaussian classification problem: class 1
// centered at +shift per coordinate, class 0 at -shift, unit noise, balanced
// labels. The same seed reproduces the same dataset.
func Synthesize(examples, features int, seed int64) Dataset {
	rng := rand.New(rand.NewSource(seed))

	d := Dataset{
		X: make([][]float64, examples),
		Y: make([]int, examples),
	}
	const shift = 0.8
	for i := 0; i < examples; i++ {
		label := i % 2
		center := -shift
		if label == 1 {
			center = shift
		}
		row := make([]float64, features)
		for j := range row {
			row[j] = center + rng.NormFloat64()
		}
		d.X[i] = row
		d.Y[i] = label
	}

	rng.Shuffle(examples, func(i, j int) {
		d.X[i], d.X[j] = d.X[j], d.X[i]
		d.Y[i], d.Y[j] = d.Y[j], d.Y[i]
	})

	return d
}

// Len returns the number of examples.
func (d Dataset) Len() int {
	return len(d.X)
}

// Partition splits the dataset into count shards of near-equal size, in
// order. Every example lands in exactly one shard.
func (d Dataset) Partition(count int) []Dataset {
	shards := make([]Dataset, count)
	for i := range shards {
		lo := i * d.Len() / count
		hi := (i + 1) * d.Len() / count
		shards[i] = Dataset{X: d.X[lo:hi], Y: d.Y[lo:hi]}
	}

	return shards
}
