package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/rzzdr/option-pricing-engine/internal/pricing"
	"github.com/rzzdr/option-pricing-engine/internal/simulation"
	"github.com/rzzdr/option-pricing-engine/pkg/models"
	"github.com/rzzdr/option-pricing-engine/pkg/utils/logger"
)

var (
	spot           = flag.Float64("spot", 100, "Current price of the underlying")
	strike         = flag.Float64("strike", 100, "Strike price")
	maturityMonths = flag.Float64("maturity-months", 12, "Time to maturity in months")
	rate           = flag.Float64("rate", 0.05, "Continuously compounded risk-free rate")
	volatility     = flag.Float64("volatility", 0.2, "Annualised volatility")
	steps          = flag.Int("steps", 252, "Time steps per path")
	simulations    = flag.Int("simulations", 10000, "Number of simulated paths")
	seed           = flag.Uint64("seed", 0, "Random seed; a fresh seed is drawn when unset")
	workers        = flag.Int("workers", 4, "Concurrent path batches")
	output         = flag.StringP("output", "o", "summary", "Output format: summary or json")
	verbose        = flag.BoolP("verbose", "v", false, "Log progress")
)

func main() {
	flag.Parse()

	level := "warn"
	if *verbose {
		level = "info"
	}
	logger.Init(level, "development")
	log := logger.GetLogger("simulate.main")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	req := models.SimulationRequest{
		Spot:        *spot,
		Strike:      *strike,
		Maturity:    *maturityMonths / 12,
		Rate:        *rate,
		Volatility:  *volatility,
		Steps:       *steps,
		Simulations: *simulations,
	}
	if flag.CommandLine.Changed("seed") {
		req.Seed = seed
	}

	pricer := pricing.NewBlackScholesPricer()
	simulator := simulation.NewPathSimulator(simulation.SimulatorConfig{Workers: *workers}, simulation.NewPCGFactory(simulation.RandomSeed()))
	runner := simulation.NewRunner(simulation.RunnerConfig{}, simulator, pricer)

	report, err := runner.Run(ctx, req)
	if err != nil {
		log.Errorf("Simulation failed: %v", err)
		os.Exit(1)
	}

	switch *output {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			log.Fatalf("Failed to encode report: %v", err)
		}
	default:
		printSummary(report)
	}
}

func printSummary(report *models.SimulationReport) {
	keys := make([]string, 0, len(report.Summary))
	for k := range report.Summary {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Printf("simulation %s (seed %d, %v)\n", report.ID, report.Seed, report.Duration)
	for _, k := range keys {
		fmt.Printf("  %-16s %s\n", k, report.Summary[k])
	}
	fmt.Printf("  %-16s %.4f\n", "call_std_error", report.Call.StandardError)
	fmt.Printf("  %-16s %.4f\n", "put_std_error", report.Put.StandardError)
}
