package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/rzzdr/option-pricing-engine/config"
	"github.com/rzzdr/option-pricing-engine/internal/kafka"
	"github.com/rzzdr/option-pricing-engine/internal/pricing"
	"github.com/rzzdr/option-pricing-engine/internal/scenario"
	"github.com/rzzdr/option-pricing-engine/internal/simulation"
	"github.com/rzzdr/option-pricing-engine/pkg/metrics"
	"github.com/rzzdr/option-pricing-engine/pkg/utils/circuit"
	"github.com/rzzdr/option-pricing-engine/pkg/utils/logger"
)

var (
	configFile   = flag.String("config", "", "Path to configuration file")
	createTopics = flag.Bool("create-topics", false, "Create the request and result topics before consuming")
	partitions   = flag.Int("partitions", 3, "Partitions for created topics")
)

func main() {
	flag.Parse()

	if *configFile != "" {
		os.Setenv("OPTION_CONFIG_PATH", *configFile)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.GetLogger("pricing-engine.main").Fatalf("Failed to load configuration: %v", err)
	}

	logger.Init(cfg.App.LogLevel, cfg.App.Environment)
	log := logger.GetLogger("pricing-engine.main")
	log.Info("Starting Option Pricing Engine Kafka worker")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	recorder := metrics.NewRecorder()
	go recorder.SampleRuntime(ctx, 15*time.Second)

	kafkaClient, err := kafka.NewClient(&kafka.Config{
		Brokers:           cfg.Kafka.Brokers,
		GroupID:           cfg.Kafka.Consumer.GroupID,
		AutoOffsetReset:   cfg.Kafka.Consumer.AutoOffsetReset,
		SessionTimeout:    cfg.Kafka.Consumer.SessionTimeout,
		HeartbeatInterval: cfg.Kafka.Consumer.HeartbeatInterval,
		ProducerAcks:      cfg.Kafka.Producer.Acks,
		CompressionType:   cfg.Kafka.Producer.CompressionType,
		BatchSize:         cfg.Kafka.Producer.BatchSize,
		LingerMs:          cfg.Kafka.Producer.LingerMs,
		RetryBackoff:      cfg.Kafka.Producer.RetryBackoff,
		MaxRetries:        cfg.Kafka.Producer.MaxRetries,
	})
	if err != nil {
		log.Fatalf("Failed to create Kafka client: %v", err)
	}

	if *createTopics {
		for _, topic := range []string{cfg.Kafka.Topics.PricingRequests, cfg.Kafka.Topics.PricingResults} {
			if err := kafkaClient.CreateTopic(ctx, topic, *partitions, 1); err != nil {
				log.Fatalf("Failed to create topic %s: %v", topic, err)
			}
		}
	}

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

	breaker := circuit.NewBreaker(circuit.Config{
		Name:         "kafka.results",
		Timeout:      cfg.Kafka.Producer.Breaker.Timeout,
		FailureRatio: cfg.Kafka.Producer.Breaker.FailureRatio,
		MinRequests:  cfg.Kafka.Producer.Breaker.MinRequests,
	}, recorder)

	producer := kafkaClient.NewProducer(cfg.Kafka.Topics.PricingResults).WithBreaker(breaker)
	consumer := kafkaClient.NewConsumer(cfg.Kafka.Topics.PricingRequests)

	worker := kafka.NewPricingWorker(kafka.WorkerConfig{
		DefaultSteps:       cfg.Simulation.DefaultSteps,
		DefaultSimulations: cfg.Simulation.DefaultSimulations,
	}, pricer, scenarios, runner, producer, recorder)

	var promServer *metrics.PrometheusServer
	if cfg.Metrics.Prometheus.Enabled {
		promServer = metrics.NewPrometheusServer(cfg.Metrics.Prometheus.Port)
		go func() {
			if err := promServer.Start(); err != nil {
				log.Errorf("Prometheus server error: %v", err)
			}
		}()
	}

	log.Infof("Consuming %s with %d workers, publishing to %s",
		cfg.Kafka.Topics.PricingRequests, cfg.Kafka.Consumer.Workers, cfg.Kafka.Topics.PricingResults)

	// Blocks until the context is cancelled
	consumer.Start(ctx, cfg.Kafka.Consumer.Workers, worker.HandleMessage)

	log.Info("Shutdown signal received")

	if err := consumer.Close(); err != nil {
		log.Errorf("Consumer shutdown error: %v", err)
	}

	if err := producer.Close(); err != nil {
		log.Errorf("Producer shutdown error: %v", err)
	}

	if promServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := promServer.Stop(shutdownCtx); err != nil {
			log.Errorf("Prometheus server shutdown error: %v", err)
		}
	}

	log.Info("Shutdown complete")
	_ = log.Sync()
}
