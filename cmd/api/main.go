package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	flag "github.com/spf13/pflag"

	"github.com/rzzdr/option-pricing-engine/config"
	"github.com/rzzdr/option-pricing-engine/internal/pricing"
	"github.com/rzzdr/option-pricing-engine/internal/scenario"
	"github.com/rzzdr/option-pricing-engine/internal/simulation"
	"github.com/rzzdr/option-pricing-engine/internal/store"
	"github.com/rzzdr/option-pricing-engine/internal/websocket"
	"github.com/rzzdr/option-pricing-engine/pkg/api"
	"github.com/rzzdr/option-pricing-engine/pkg/metrics"
	"github.com/rzzdr/option-pricing-engine/pkg/utils/logger"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
)

func main() {
	flag.Parse()

	if *configFile != "" {
		os.Setenv("OPTION_CONFIG_PATH", *configFile)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.GetLogger("api.main").Fatalf("Failed to load configuration: %v", err)
	}

	logger.Init(cfg.App.LogLevel, cfg.App.Environment)
	log := logger.GetLogger("api.main")
	log.Info("Starting Option Pricing Engine API Service")

	// Create a context that will be canceled on program termination
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	recorder := metrics.NewRecorder()
	go recorder.SampleRuntime(ctx, 15*time.Second)

	pricer := pricing.NewBlackScholesPricer()

	simulator := simulation.NewPathSimulator(simulation.SimulatorConfig{
		BatchSize:      cfg.Simulation.BatchSize,
		Workers:        cfg.Simulation.Workers,
		MaxSteps:       cfg.Simulation.MaxSteps,
		MaxSimulations: cfg.Simulation.MaxSimulations,
		MaxCells:       cfg.Simulation.MaxCells,
	}, simulation.NewPCGFactory(simulation.RandomSeed()))

	runner := simulation.NewRunner(simulation.RunnerConfig{
		HistogramBins: cfg.Simulation.HistogramBins,
		SamplePaths:   cfg.Simulation.SamplePaths,
		FixedSeed:     cfg.Simulation.SeedPointer(),
	}, simulator, pricer)

	scenarios := scenario.NewEngine(scenario.EngineConfig{
		Workers:       cfg.Scenario.Workers,
		MaxConditions: cfg.Scenario.MaxConditions,
	}, pricer)

	hub := websocket.NewHub(recorder)
	go hub.Run(ctx)

	apiServer := api.NewServer(
		api.Config{
			Host:               cfg.API.Host,
			Port:               cfg.API.Port,
			ReadTimeout:        cfg.API.ReadTimeout,
			WriteTimeout:       cfg.API.WriteTimeout,
			AllowedOrigins:     cfg.API.CORS.AllowedOrigins,
			AllowedMethods:     cfg.API.CORS.AllowedMethods,
			AllowedHeaders:     cfg.API.CORS.AllowedHeaders,
			DefaultSteps:       cfg.Simulation.DefaultSteps,
			DefaultSimulations: cfg.Simulation.DefaultSimulations,
			RateLimit:          rateLimit(cfg.API.RateLimit),
			RateLimitBurst:     cfg.API.RateLimit.Burst,
		},
		api.Dependencies{
			Pricer:     pricer,
			Scenarios:  scenarios,
			Simulation: runner,
			Portfolios: store.NewInMemoryPortfolioStore(),
			Hub:        hub,
			Recorder:   recorder,
			Gatherer:   prometheus.DefaultGatherer,
		},
	)

	go apiServer.SweepRateLimits(ctx, time.Minute)

	go func() {
		if err := apiServer.Start(); err != nil {
			log.Errorf("API server error: %v", err)
			cancel()
		}
	}()

	var promServer *metrics.PrometheusServer
	if cfg.Metrics.Prometheus.Enabled {
		promServer = metrics.NewPrometheusServer(cfg.Metrics.Prometheus.Port)
		go func() {
			if err := promServer.Start(); err != nil {
				log.Errorf("Prometheus server error: %v", err)
			}
		}()
	}

	<-ctx.Done()
	log.Info("Shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
	defer shutdownCancel()

	if err := apiServer.Stop(shutdownCtx); err != nil {
		log.Errorf("API server shutdown error: %v", err)
	}

	if promServer != nil {
		if err := promServer.Stop(shutdownCtx); err != nil {
			log.Errorf("Prometheus server shutdown error: %v", err)
		}
	}

	log.Info("Shutdown complete")
	_ = log.Sync()
}

func rateLimit(cfg config.RateLimitConfig) float64 {
	if !cfg.Enabled {
		return 0
	}
	return cfg.RequestsPerSecond
}
