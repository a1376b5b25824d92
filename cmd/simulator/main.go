package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/brianbland/l2feesim/pkg/analysis"
	"github.com/brianbland/l2feesim/pkg/blockchain"
	"github.com/brianbland/l2feesim/pkg/config"
	"github.com/brianbland/l2feesim/pkg/observability"
	"github.com/brianbland/l2feesim/pkg/replay"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "simulate":
		err = handleSimulate(os.Args[2:])
	case "score":
		err = handleScore(os.Args[2:])
	case "sweep":
		err = handleSweep(os.Args[2:])
	case "demand":
		err = handleDemand(os.Args[2:])
	case "help", "-h", "--help":
		config.NewParser().ShowDetailedHelp(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: l2feesim <simulate|score|sweep|demand> [file] [flags...]")
	fmt.Println("Example: l2feesim simulate fees.csv --mode=pdi+ff --kp=0.1")
	fmt.Println("Run 'l2feesim help' for every flag")
}

// command holds the parsed state shared by every subcommand
type command struct {
	cfg    *config.Config
	runCfg *config.RunConfig
	args   []string
	logger *zap.Logger
}

// parseCommand parses flags and builds the logger. It returns nil when only
// help was requested.
func parseCommand(args []string) (*command, error) {
	parser := config.NewParser()
	cfg, runCfg, err := parser.Parse(args)
	if err != nil {
		return nil, err
	}
	if runCfg.ShowHelp {
		return nil, nil
	}

	logger, err := newLogger(runCfg.LogLevel)
	if err != nil {
		return nil, err
	}

	return &command{
		cfg:    cfg,
		runCfg: runCfg,
		args:   parser.Args(),
		logger: logger,
	}, nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	logCfg := zap.NewDevelopmentConfig()
	logCfg.Level = zap.NewAtomicLevelAt(lvl)
	logCfg.OutputPaths = []string{"stderr"}
	return logCfg.Build()
}

// loadSamples loads the fee history named by the first positional argument
func (c *command) loadSamples(name string) ([]blockchain.FeeSample, error) {
	if len(c.args) < 1 {
		return nil, fmt.Errorf("usage: l2feesim %s <data_file> [flags...]", name)
	}

	filename := c.args[0]
	c.logger.Info("loading fee history", zap.String("file", filename))

	samples, err := blockchain.LoadSamplesFromFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to load samples: %w", err)
	}

	c.logger.Info("loaded fee history",
		zap.Int("samples", len(samples)),
		zap.Int64("firstBlock", samples[0].BlockNumber),
		zap.Int64("lastBlock", samples[len(samples)-1].BlockNumber),
	)
	return samples, nil
}

// writeOutput writes v as indented JSON when an output file is configured
func (c *command) writeOutput(v interface{}) error {
	if c.runCfg.OutputFile == "" {
		return nil
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	if err := os.WriteFile(c.runCfg.OutputFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	fmt.Printf("\nResults written to %s\n", c.runCfg.OutputFile)
	return nil
}

func handleSimulate(args []string) error {
	cmd, err := parseCommand(args)
	if err != nil || cmd == nil {
		return err
	}
	defer cmd.logger.Sync() //nolint:errcheck

	samples, err := cmd.loadSamples("simulate")
	if err != nil {
		return err
	}

	sim := replay.NewSimulator(*cmd.cfg, cmd.logger)
	result, err := sim.SimulateAgainstSamples(samples, cmd.runCfg.MinBlock, cmd.runCfg.MaxBlock)
	if err != nil {
		return err
	}

	replay.PrintSimulationResults(os.Stdout, result)
	return cmd.writeOutput(result)
}

func handleScore(args []string) error {
	cmd, err := parseCommand(args)
	if err != nil || cmd == nil {
		return err
	}
	defer cmd.logger.Sync() //nolint:errcheck

	samples, err := cmd.loadSamples("score")
	if err != nil {
		return err
	}

	sim := replay.NewSimulator(*cmd.cfg, cmd.logger)
	scores, err := sim.CompareMechanisms(samples, cmd.runCfg.MinBlock, cmd.runCfg.MaxBlock)
	if err != nil {
		return err
	}

	analysis.PrintSummary(os.Stdout, scores)
	return cmd.writeOutput(scores)
}

func handleSweep(args []string) error {
	cmd, err := parseCommand(args)
	if err != nil || cmd == nil {
		return err
	}
	defer cmd.logger.Sync() //nolint:errcheck

	samples, err := cmd.loadSamples("sweep")
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	metrics, err := observability.NewSweepMetrics(registry)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	// Interrupt stops the sweep and prints the candidates evaluated so far
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sim := replay.NewSimulator(*cmd.cfg, cmd.logger)
	result, err := sim.Sweep(ctx, samples, *cmd.runCfg, metrics)
	if err != nil {
		return err
	}

	replay.PrintSweepResults(os.Stdout, result, cmd.runCfg.SweepTop)
	return cmd.writeOutput(result)
}

func handleDemand(args []string) error {
	cmd, err := parseCommand(args)
	if err != nil || cmd == nil {
		return err
	}
	defer cmd.logger.Sync() //nolint:errcheck

	sim := replay.NewSimulator(*cmd.cfg, cmd.logger)
	demand, _, scalars, err := sim.BuildDemand(cmd.runCfg.DemandBlocks)
	if err != nil {
		return err
	}

	replay.PrintDemandSummary(os.Stdout, cmd.cfg.Scenario, scalars, demand)
	return cmd.writeOutput(struct {
		Scenario string    `json:"scenario"`
		Demand   []float64 `json:"demand"`
	}{cmd.cfg.Scenario, demand})
}
