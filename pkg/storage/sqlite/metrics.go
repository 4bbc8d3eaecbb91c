package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rampart-fl/rampart/experiment"
)

type metricsRepo struct {
	db *Database
}

func NewMetricsRepository(db *Database) MetricsRepository {
	return &metricsRepo{db: db}
}

type dbRoundMetrics struct {
	RunID        string    `db:"run_id"`
	Round        int       `db:"round"`
	Loss         float64   `db:"loss"`
	Accuracy     float64   `db:"accuracy"`
	AUC          float64   `db:"auc"`
	TP           int       `db:"tp"`
	TN           int       `db:"tn"`
	FP           int       `db:"fp"`
	FN           int       `db:"fn"`
	KeptIndices  []byte    `db:"kept_indices"`
	MaliciousIDs []byte    `db:"malicious_ids"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r *metricsRepo) CreateRoundMetrics(ctx context.Context, rec experiment.RoundRecord) error {
	query := `INSERT INTO round_metrics (run_id, round, loss, accuracy, auc, tp, tn, fp, fn, kept_indices, malicious_ids, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	kept, err := json.Marshal(rec.KeptIndices)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}
	malicious, err := json.Marshal(rec.MaliciousIDs)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query,
		rec.RunID, rec.Round,
		rec.Metrics.Loss, rec.Metrics.Accuracy, rec.Metrics.AUC,
		rec.Metrics.TP, rec.Metrics.TN, rec.Metrics.FP, rec.Metrics.FN,
		kept, malicious, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCreate, err)
	}

	return nil
}

func (r *metricsRepo) ListRoundMetrics(ctx context.Context, runID string, offset, limit uint64) ([]experiment.RoundRecord, uint64, error) {
	var total uint64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM round_metrics WHERE run_id = ?`, runID); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	query := `SELECT run_id, round, loss, accuracy, auc, tp, tn, fp, fn, kept_indices, malicious_ids, created_at
		FROM round_metrics WHERE run_id = ? ORDER BY round LIMIT ? OFFSET ?`

	var rows []dbRoundMetrics
	if err := r.db.SelectContext(ctx, &rows, query, runID, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	recs := make([]experiment.RoundRecord, len(rows))
	for i, row := range rows {
		rec := experiment.RoundRecord{
			RunID: row.RunID,
			Round: row.Round,
			Metrics: experiment.Metrics{
				Loss:     row.Loss,
				Accuracy: row.Accuracy,
				AUC:      row.AUC,
				TP:       row.TP,
				TN:       row.TN,
				FP:       row.FP,
				FN:       row.FN,
			},
			CreatedAt: row.CreatedAt,
		}
		if len(row.KeptIndices) > 0 {
			if err := json.Unmarshal(row.KeptIndices, &rec.KeptIndices); err != nil {
				return nil, 0, fmt.Errorf("%w: %w", ErrDBScan, err)
			}
		}
		if len(row.MaliciousIDs) > 0 {
			if err := json.Unmarshal(row.MaliciousIDs, &rec.MaliciousIDs); err != nil {
				return nil, 0, fmt.Errorf("%w: %w", ErrDBScan, err)
			}
		}
		recs[i] = rec
	}

	return recs, total, nil
}
