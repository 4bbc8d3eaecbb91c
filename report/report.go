// Package report writes run artifacts: the per-round CSV log of each run,
// a combined log across runs, and accuracy/loss curves per run.
package report

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/rampart-fl/rampart/experiment"
	"github.com/rampart-fl/rampart/pkg/aggregate"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var columns = []string{
	"round", "loss", "accuracy", "auc",
	"TP", "TN", "FP", "FN",
	"attack_fn", "dataset_name", "num_malicious", "strategy", "aggregate_fn",
}

// Writer appends round rows to <root>/<runID>/results.csv and to the shared
// <root>/all_results.csv. Appends are serialized, so concurrent runs can
// share one writer.
type Writer struct {
	root string
	mu   sync.Mutex
}

func NewWriter(root string) (*Writer, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}

	return &Writer{root: root}, nil
}

func (w *Writer) Append(exp experiment.Experiment, run experiment.Run, rec experiment.RoundRecord) error {
	row := []string{
		strconv.Itoa(rec.Round),
		formatFloat(rec.Metrics.Loss),
		formatFloat(rec.Metrics.Accuracy),
		formatFloat(rec.Metrics.AUC),
		strconv.Itoa(rec.Metrics.TP),
		strconv.Itoa(rec.Metrics.TN),
		strconv.Itoa(rec.Metrics.FP),
		strconv.Itoa(rec.Metrics.FN),
		exp.Attack.Name,
		exp.Dataset,
		strconv.Itoa(exp.Attack.NumMalicious),
		exp.Strategy.Name,
		combineFn(exp.Strategy.Name),
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.appendRow(filepath.Join(w.root, run.ID, "results.csv"), row); err != nil {
		return err
	}

	return w.appendRow(filepath.Join(w.root, "all_results.csv"), row)
}

// Plot renders the accuracy and loss curves of a finished run.
func (w *Writer) Plot(runID string, recs []experiment.RoundRecord) error {
	if len(recs) == 0 {
		return nil
	}

	accuracy := make(plotter.XYs, len(recs))
	loss := make(plotter.XYs, len(recs))
	for i, rec := range recs {
		accuracy[i].X = float64(rec.Round)
		accuracy[i].Y = rec.Metrics.Accuracy
		loss[i].X = float64(rec.Round)
		loss[i].Y = rec.Metrics.Loss
	}

	if err := w.plotCurve(runID, "accuracy.png", "Accuracy", accuracy); err != nil {
		return err
	}

	return w.plotCurve(runID, "loss.png", "Loss", loss)
}

func (w *Writer) plotCurve(runID, file, label string, series plotter.XYs) error {
	p := plot.New()
	p.Title.Text = label + " per round"
	p.X.Label.Text = "Round"
	p.Y.Label.Text = label

	line, err := plotter.NewLine(series)
	if err != nil {
		return err
	}
	p.Add(plotter.NewGrid(), line)

	dir := filepath.Join(w.root, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	return p.Save(6*vg.Inch, 4*vg.Inch, filepath.Join(dir, file))
}

func (w *Writer) appendRow(path string, row []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	_, statErr := os.Stat(path)
	fresh := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if fresh {
		if err := cw.Write(columns); err != nil {
			return err
		}
	}
	if err := cw.Write(row); err != nil {
		return err
	}
	cw.Flush()

	return cw.Error()
}

// combineFn names the step that folds the kept updates into one vector.
// Selection strategies end in a weighted mean; the coordinate-wise ones are
// their own combine step, and Bulyan folds with a trimmed mean.
func combineFn(strategy string) string {
	switch strategy {
	case aggregate.TrimmedMean, aggregate.FedMedian:
		return strategy
	case aggregate.Bulyan:
		return aggregate.TrimmedMean
	default:
		return aggregate.FedAvg
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
