package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"

	"github.com/rampart-fl/rampart/coordinator"
	"github.com/rampart-fl/rampart/experiment"
	"github.com/rampart-fl/rampart/pkg/history"
	"github.com/rampart-fl/rampart/report"
)

type envConfig struct {
	LogLevel   string `env:"SIMULATE_LOG_LEVEL"  envDefault:"info"`
	OutputRoot string `env:"SIMULATE_OUTPUT_DIR" envDefault:"./results"`
}

func main() {
	if len(os.Args) != 2 {
		log.Fatalf("usage: %s <experiment.toml>", filepath.Base(os.Args[0]))
	}

	cfg := envConfig{}
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("failed to load configuration : %s", err.Error())
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		log.Fatalf("failed to parse log level: %s", err.Error())
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	exp, err := experiment.LoadConfig(os.Args[1])
	if err != nil {
		log.Fatalf("failed to load experiment: %s", err.Error())
	}
	exp.ID = uuid.NewString()

	run := experiment.Run{
		ID:           uuid.NewString(),
		ExperimentID: exp.ID,
		Name:         exp.Name,
		State:        experiment.Running,
		Seed:         exp.Seed,
	}

	hist, err := history.New(filepath.Join(cfg.OutputRoot, "history", run.ID), exp.Strategy.SampleWidth, exp.Seed)
	if err != nil {
		log.Fatalf("failed to open history store: %s", err.Error())
	}
	if err := hist.Reset(); err != nil {
		log.Fatalf("failed to reset history store: %s", err.Error())
	}

	engine, err := coordinator.NewEngine(exp, hist, logger)
	if err != nil {
		log.Fatalf("failed to build engine: %s", err.Error())
	}

	reporter, err := report.NewWriter(cfg.OutputRoot)
	if err != nil {
		log.Fatalf("failed to open report writer: %s", err.Error())
	}

	records := make([]experiment.RoundRecord, 0, exp.NumRounds)
	hook := func(_ context.Context, rec experiment.RoundRecord) error {
		records = append(records, rec)

		return reporter.Append(exp, run, rec)
	}

	if err := engine.Run(context.Background(), run.ID, hook); err != nil {
		logger.Error("Simulation failed", slog.String("run_id", run.ID), slog.Any("error", err))
		os.Exit(1)
	}

	if err := reporter.Plot(run.ID, records); err != nil {
		logger.Warn("Failed to plot run curves", slog.String("run_id", run.ID), slog.Any("error", err))
	}

	logger.Info("Simulation completed",
		slog.String("run_id", run.ID),
		slog.String("experiment", exp.Name),
		slog.Int("rounds", exp.NumRounds),
	)
}
