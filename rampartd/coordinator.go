// Package rampartd hosts the daemon commands that run coordinator
// components in-process.
package rampartd

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/rampart-fl/rampart/coordinator"
	"github.com/rampart-fl/rampart/coordinator/api"
	"github.com/rampart-fl/rampart/coordinator/middleware"
	"github.com/rampart-fl/rampart/pkg/prometheus"
	"github.com/rampart-fl/rampart/pkg/server"
	httpserver "github.com/rampart-fl/rampart/pkg/server/http"
	"github.com/rampart-fl/rampart/pkg/storage"
	"github.com/rampart-fl/rampart/pkg/tracing"
	"github.com/rampart-fl/rampart/report"
)

const svcName = "coordinator"

// Config holds everything StartCoordinator needs to bring the service up.
type Config struct {
	LogLevel    string
	InstanceID  string
	HistoryRoot string
	ReportRoot  string
	Storage     storage.Config
	Server      server.Config
	OTELURL     url.URL
	TraceRatio  float64
}

// StartCoordinator wires the coordinator service and serves its HTTP API
// until the context is cancelled or a stop signal arrives.
func StartCoordinator(ctx context.Context, cancel context.CancelFunc, cfg Config) error {
	g, ctx := errgroup.WithContext(ctx)

	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return fmt.Errorf("failed to parse log level: %w", err)
	}
	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	var tp trace.TracerProvider
	switch {
	case cfg.OTELURL == (url.URL{}):
		tp = noop.NewTracerProvider()
	default:
		sdktp, err := tracing.NewProvider(ctx, svcName, cfg.OTELURL, cfg.InstanceID, cfg.TraceRatio)
		if err != nil {
			return fmt.Errorf("failed to initialize opentelemetry: %w", err)
		}
		defer func() {
			if err := sdktp.Shutdown(ctx); err != nil {
				logger.Error("error shutting down tracer provider", slog.Any("error", err))
			}
		}()
		tp = sdktp
	}
	tracer := tp.Tracer(svcName)

	repos, err := storage.NewRepositories(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	if repos.Closer != nil {
		defer repos.Closer.Close()
	}

	reporter, err := report.NewWriter(cfg.ReportRoot)
	if err != nil {
		return fmt.Errorf("failed to initialize report writer: %w", err)
	}

	svc := coordinator.NewService(repos.Experiments, repos.Runs, repos.Metrics, reporter, cfg.HistoryRoot, logger)
	svc = middleware.Logging(logger, svc)
	svc = middleware.Tracing(tracer, svc)
	counter, latency := prometheus.MakeMetrics(svcName, "api")
	svc = middleware.Metrics(counter, latency, svc)

	hs := httpserver.NewServer(ctx, cancel, svcName, cfg.Server, api.MakeHandler(svc, logger, cfg.InstanceID), logger)

	g.Go(func() error {
		return hs.Start()
	})

	g.Go(func() error {
		return server.StopSignalHandler(ctx, cancel, logger, svcName, hs)
	})

	return g.Wait()
}

var coordinatorCmd = []cobra.Command{
	{
		Use:   "start",
		Short: "Start coordinator",
		Long:  `Start coordinator.`,
		Run: func(cmd *cobra.Command, _ []string) {
			cfg := Config{
				LogLevel:    "info",
				HistoryRoot: "./data/history",
				ReportRoot:  "./data/results",
				Storage: storage.Config{
					Type: "memory",
				},
				Server: server.Config{
					Host: "localhost",
					Port: "9090",
				},
			}
			ctx, cancel := context.WithCancel(cmd.Context())
			if err := StartCoordinator(ctx, cancel, cfg); err != nil {
				cmd.PrintErrf("failed to start coordinator: %s", err.Error())
			}
			cancel()
		},
	},
}

func NewCoordinatorCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:   "coordinator [start]",
		Short: "Coordinator management",
		Long:  `Start the experiment coordinator.`,
	}

	for i := range coordinatorCmd {
		cmd.AddCommand(&coordinatorCmd[i])
	}

	return &cmd
}
