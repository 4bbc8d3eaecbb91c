package main

import (
	"context"
	"log"
	"net/url"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/rampart-fl/rampart/pkg/server"
	"github.com/rampart-fl/rampart/pkg/storage"
	"github.com/rampart-fl/rampart/rampartd"
)

const (
	svcName       = "coordinator"
	defHTTPPort   = "9090"
	envPrefixHTTP = "COORDINATOR_HTTP_"
	pathEnv       = ".env"
)

type envConfig struct {
	LogLevel    string  `env:"COORDINATOR_LOG_LEVEL"    envDefault:"info"`
	InstanceID  string  `env:"COORDINATOR_INSTANCE_ID"`
	HistoryRoot string  `env:"COORDINATOR_HISTORY_ROOT" envDefault:"./data/history"`
	ReportRoot  string  `env:"COORDINATOR_REPORT_ROOT"  envDefault:"./data/results"`
	OTELURL     url.URL `env:"COORDINATOR_OTEL_URL"`
	TraceRatio  float64 `env:"COORDINATOR_TRACE_RATIO"  envDefault:"0"`
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := os.Stat(pathEnv); err == nil {
		_ = godotenv.Load(pathEnv)
	}

	cfg := envConfig{}
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("failed to load configuration : %s", err.Error())
	}

	storageCfg := storage.Config{}
	if err := env.Parse(&storageCfg); err != nil {
		log.Fatalf("failed to load storage configuration : %s", err.Error())
	}

	serverCfg := server.Config{Port: defHTTPPort}
	if err := env.ParseWithOptions(&serverCfg, env.Options{Prefix: envPrefixHTTP}); err != nil {
		log.Fatalf("failed to load %s HTTP server configuration : %s", svcName, err.Error())
	}

	if err := rampartd.StartCoordinator(ctx, cancel, rampartd.Config{
		LogLevel:    cfg.LogLevel,
		InstanceID:  cfg.InstanceID,
		HistoryRoot: cfg.HistoryRoot,
		ReportRoot:  cfg.ReportRoot,
		Storage:     storageCfg,
		Server:      serverCfg,
		OTELURL:     cfg.OTELURL,
		TraceRatio:  cfg.TraceRatio,
	}); err != nil {
		log.Fatalf("%s service exited with error: %s", svcName, err.Error())
	}
}
