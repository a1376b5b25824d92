package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/brianbland/l2feesim/pkg/scenarios"
)

// Config holds the economic parameters of a simulation
type Config struct {
	// Posting cost
	PostEveryBlocks     int     // L1 blocks between batch postings
	L1GasUsed           float64 // L1 execution gas per posting
	BlobMode            string  // fixed or dynamic
	NumBlobs            float64 // Blobs per posting in fixed mode
	PriorityFeeGwei     float64 // Priority fee paid on L1 gas
	TxGas               float64 // Dynamic blob model: L2 gas per transaction
	TxBytes             float64 // Dynamic blob model: bytes per transaction
	BatchOverheadBytes  float64 // Dynamic blob model: fixed bytes per batch
	CompressionRatio    float64 // Dynamic blob model: uncompressed / compressed
	BlobUtilization     float64 // Dynamic blob model: usable fraction of a blob
	MinBlobsPerProposal float64 // Dynamic blob model: floor on blobs per posting

	// L2 demand
	L2GasPerL2Block float64 // Baseline L2 gas per L2 block
	L2BlockTimeSec  float64 // L2 block time in seconds
	Scenario        string  // constant, steady, normal or bursty
	DemandRegime    string  // low, base or high

	// Pricing mechanism
	Mechanism      string  // pid, eip1559 or arbitrum
	ControllerMode string  // ff, p, pi, pd, pdi, pi+ff or pdi+ff
	AutoAlpha      bool    // Derive alpha from posting cost at baseline throughput
	AlphaGas       float64 // Feedforward coefficient on L1 gas price
	AlphaBlob      float64 // Feedforward coefficient on blob price
	Kp             float64 // Proportional gain
	Ki             float64 // Integral gain
	Kd             float64 // Derivative gain
	PFloorGwei     float64 // Lower bound on the P term
	IMin           float64 // Integral lower clamp
	IMax           float64 // Integral upper clamp
	DerivativeBeta float64 // Derivative EMA weight (0-1)
	FFDelayBlocks  int     // Feedforward price delay in blocks
	FBDelayBlocks  int     // Vault observation delay in blocks
	MinFeeGwei     float64 // Minimum charged fee per L2 gas
	MaxFeeGwei     float64 // Maximum charged fee per L2 gas

	// Vault
	InitialVaultEth float64
	TargetVaultEth  float64

	// Alternative mechanisms
	EIP1559Denominator  int
	ArbInitialPriceGwei float64
	ArbInertia          int
	ArbEquilUnits       float64

	// Scoring
	Score ScoreWeights
}

// ScoreWeights holds the scorer deadband and component weights
type ScoreWeights struct {
	DeadbandPct float64
	WHealth     float64
	WUx         float64
	WDraw       float64
	WUnder      float64
	WArea       float64
	WStreak     float64
	WPostBE     float64
	WStd        float64
	WP95        float64
	WP99        float64
	WMaxStep    float64
	WClamp      float64
	WLevel      float64

	// UnitTargetFallback divides drawdown and area by 1 instead of zeroing
	// them when the vault target is 0
	UnitTargetFallback bool
}

// RunConfig holds runtime configuration for the CLI
type RunConfig struct {
	MinBlock       int64  // First block of the scored range (0 = first sample)
	MaxBlock       int64  // Last block of the scored range (0 = last sample)
	SweepMaxBlocks int    // Largest range a sweep accepts
	SweepWorkers   int    // Parallel sweep workers (1 = sequential)
	SweepTop       int    // Number of ranked candidates to print
	DemandBlocks   int    // Series length for the demand command
	OutputFile     string // Optional JSON output path
	LogLevel       string // debug, info, warn or error
	ShowHelp       bool
}

// Default returns a configuration with sensible defaults
func Default() Config {
	return Config{
		PostEveryBlocks:     10,
		L1GasUsed:           1_000_000,
		BlobMode:            "fixed",
		NumBlobs:            2,
		PriorityFeeGwei:     0,
		TxGas:               70_000,
		TxBytes:             120,
		BatchOverheadBytes:  1200,
		CompressionRatio:    1,
		BlobUtilization:     0.95,
		MinBlobsPerProposal: 1,

		L2GasPerL2Block: 2_000_000,
		L2BlockTimeSec:  2,
		Scenario:        "normal",
		DemandRegime:    "base",

		Mechanism:      "pid",
		ControllerMode: "ff",
		AutoAlpha:      true,
		IMin:           -5,
		IMax:           5,
		DerivativeBeta: 0.8,
		FFDelayBlocks:  5,
		FBDelayBlocks:  5,
		MinFeeGwei:     0.01,
		MaxFeeGwei:     1.0,

		InitialVaultEth: 10,
		TargetVaultEth:  10,

		EIP1559Denominator:  8,
		ArbInitialPriceGwei: 0.001,
		ArbInertia:          10,
		ArbEquilUnits:       96_000_000,

		Score: DefaultScoreWeights(),
	}
}

// DefaultScoreWeights returns the default scoring weights
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{
		DeadbandPct: 5,
		WHealth:     0.75,
		WUx:         0.25,
		WDraw:       0.35,
		WUnder:      0.25,
		WArea:       0.20,
		WStreak:     0.10,
		WPostBE:     0.20,
		WStd:        0.20,
		WP95:        0.20,
		WP99:        0.10,
		WMaxStep:    0.05,
		WClamp:      0.05,
		WLevel:      0.40,
	}
}

// DefaultRunConfig returns the default runtime configuration
func DefaultRunConfig() RunConfig {
	return RunConfig{
		SweepMaxBlocks: 200_000,
		SweepWorkers:   1,
		SweepTop:       10,
		DemandBlocks:   1000,
		LogLevel:       "info",
	}
}

var (
	validBlobModes  = []string{"fixed", "dynamic"}
	validMechanisms = []string{"pid", "taiko", "eip1559", "eip-1559", "arbitrum", "arb"}
	validModes      = []string{"ff", "p", "pi", "pd", "pdi", "pid", "pi+ff", "pdi+ff", "pid+ff"}
	validRegimes    = []string{"low", "base", "high"}
	validLogLevels  = []string{"debug", "info", "warn", "error"}
)

// mechanismNames maps every accepted mechanism name to its canonical form
var mechanismNames = map[string]string{
	"pid":      "pid",
	"taiko":    "pid",
	"eip1559":  "eip1559",
	"eip-1559": "eip1559",
	"arbitrum": "arbitrum",
	"arb":      "arbitrum",
}

// CanonicalMechanism resolves a mechanism name or alias to its canonical form
func CanonicalMechanism(name string) (string, error) {
	if canonical, ok := mechanismNames[strings.ToLower(strings.TrimSpace(name))]; ok {
		return canonical, nil
	}
	return "", fmt.Errorf("invalid mechanism '%s', must be one of: %v", name, validMechanisms)
}

// Parser handles command-line flag parsing
type Parser struct {
	config    *Config
	runConfig *RunConfig
	flagSet   *pflag.FlagSet
}

// NewParser creates a new configuration parser
func NewParser() *Parser {
	config := Default()
	runConfig := DefaultRunConfig()

	flagSet := pflag.NewFlagSet("l2feesim", pflag.ContinueOnError)
	flagSet.SortFlags = false

	return &Parser{
		config:    &config,
		runConfig: &runConfig,
		flagSet:   flagSet,
	}
}

// FlagSet returns the underlying flag set
func (p *Parser) FlagSet() *pflag.FlagSet {
	return p.flagSet
}

// RegisterFlags registers all command-line flags
func (p *Parser) RegisterFlags() {
	c := p.config
	f := p.flagSet

	// Posting cost flags
	f.IntVar(&c.PostEveryBlocks, "post-every", c.PostEveryBlocks, "L1 blocks between batch postings")
	f.Float64Var(&c.L1GasUsed, "l1-gas-used", c.L1GasUsed, "L1 execution gas per posting")
	f.StringVar(&c.BlobMode, "blob-mode", c.BlobMode, "Blob accounting: fixed or dynamic")
	f.Float64Var(&c.NumBlobs, "num-blobs", c.NumBlobs, "Blobs per posting in fixed mode")
	f.Float64Var(&c.PriorityFeeGwei, "priority-fee-gwei", c.PriorityFeeGwei, "L1 priority fee in gwei")
	f.Float64Var(&c.TxGas, "tx-gas", c.TxGas, "Dynamic blobs: L2 gas per transaction")
	f.Float64Var(&c.TxBytes, "tx-bytes", c.TxBytes, "Dynamic blobs: bytes per transaction")
	f.Float64Var(&c.BatchOverheadBytes, "batch-overhead-bytes", c.BatchOverheadBytes, "Dynamic blobs: fixed bytes per batch")
	f.Float64Var(&c.CompressionRatio, "compression-ratio", c.CompressionRatio, "Dynamic blobs: compression ratio")
	f.Float64Var(&c.BlobUtilization, "blob-utilization", c.BlobUtilization, "Dynamic blobs: usable fraction of each blob")
	f.Float64Var(&c.MinBlobsPerProposal, "min-blobs", c.MinBlobsPerProposal, "Dynamic blobs: minimum blobs per posting")

	// Demand flags
	f.Float64Var(&c.L2GasPerL2Block, "l2-gas-per-block", c.L2GasPerL2Block, "Baseline L2 gas per L2 block")
	f.Float64Var(&c.L2BlockTimeSec, "l2-block-time", c.L2BlockTimeSec, "L2 block time in seconds")
	f.StringVar(&c.Scenario, "scenario", c.Scenario, "Demand scenario: constant, steady, normal or bursty")
	f.StringVar(&c.DemandRegime, "demand-regime", c.DemandRegime, "Demand regime: low, base or high")

	// Pricing flags
	f.StringVar(&c.Mechanism, "mechanism", c.Mechanism, "Pricing mechanism: pid (taiko), eip1559 (eip-1559) or arbitrum (arb)")
	f.StringVar(&c.ControllerMode, "mode", c.ControllerMode, "Controller mode: ff, p, pi, pd, pdi, pi+ff or pdi+ff")
	f.BoolVar(&c.AutoAlpha, "auto-alpha", c.AutoAlpha, "Derive alpha coefficients from posting cost")
	f.Float64Var(&c.AlphaGas, "alpha-gas", c.AlphaGas, "Feedforward coefficient on L1 gas price")
	f.Float64Var(&c.AlphaBlob, "alpha-blob", c.AlphaBlob, "Feedforward coefficient on blob price")
	f.Float64Var(&c.Kp, "kp", c.Kp, "Proportional gain")
	f.Float64Var(&c.Ki, "ki", c.Ki, "Integral gain")
	f.Float64Var(&c.Kd, "kd", c.Kd, "Derivative gain")
	f.Float64Var(&c.PFloorGwei, "p-floor-gwei", c.PFloorGwei, "Lower bound on the P term in gwei")
	f.Float64Var(&c.IMin, "i-min", c.IMin, "Integral lower clamp")
	f.Float64Var(&c.IMax, "i-max", c.IMax, "Integral upper clamp")
	f.Float64Var(&c.DerivativeBeta, "derivative-beta", c.DerivativeBeta, "Derivative smoothing weight (0-1)")
	f.IntVar(&c.FFDelayBlocks, "ff-delay", c.FFDelayBlocks, "Feedforward price delay in blocks")
	f.IntVar(&c.FBDelayBlocks, "fb-delay", c.FBDelayBlocks, "Vault observation delay in blocks")
	f.Float64Var(&c.MinFeeGwei, "min-fee-gwei", c.MinFeeGwei, "Minimum fee per L2 gas in gwei")
	f.Float64Var(&c.MaxFeeGwei, "max-fee-gwei", c.MaxFeeGwei, "Maximum fee per L2 gas in gwei")

	// Vault flags
	f.Float64Var(&c.InitialVaultEth, "initial-vault", c.InitialVaultEth, "Initial vault balance in ETH")
	f.Float64Var(&c.TargetVaultEth, "target-vault", c.TargetVaultEth, "Target vault balance in ETH")

	// Alternative mechanism flags
	f.IntVar(&c.EIP1559Denominator, "eip1559-denominator", c.EIP1559Denominator, "EIP-1559 max change denominator")
	f.Float64Var(&c.ArbInitialPriceGwei, "arb-initial-price-gwei", c.ArbInitialPriceGwei, "Arbitrum initial price in gwei")
	f.IntVar(&c.ArbInertia, "arb-inertia", c.ArbInertia, "Arbitrum inertia")
	f.Float64Var(&c.ArbEquilUnits, "arb-equil-units", c.ArbEquilUnits, "Arbitrum equilibration units")

	// Scoring flags
	s := &c.Score
	f.Float64Var(&s.DeadbandPct, "deadband-pct", s.DeadbandPct, "Vault deadband below target in percent")
	f.Float64Var(&s.WHealth, "w-health", s.WHealth, "Weight of health badness in total")
	f.Float64Var(&s.WUx, "w-ux", s.WUx, "Weight of UX badness in total")
	f.Float64Var(&s.WDraw, "w-draw", s.WDraw, "Health weight: max drawdown")
	f.Float64Var(&s.WUnder, "w-under", s.WUnder, "Health weight: time under deadband")
	f.Float64Var(&s.WArea, "w-area", s.WArea, "Health weight: deficit area")
	f.Float64Var(&s.WStreak, "w-streak", s.WStreak, "Health weight: worst under-deadband streak")
	f.Float64Var(&s.WPostBE, "w-post-be", s.WPostBE, "Health weight: non-break-even postings")
	f.Float64Var(&s.WStd, "w-std", s.WStd, "UX weight: fee standard deviation")
	f.Float64Var(&s.WP95, "w-p95", s.WP95, "UX weight: p95 fee step")
	f.Float64Var(&s.WP99, "w-p99", s.WP99, "UX weight: p99 fee step")
	f.Float64Var(&s.WMaxStep, "w-max-step", s.WMaxStep, "UX weight: max fee step")
	f.Float64Var(&s.WClamp, "w-clamp", s.WClamp, "UX weight: time clamped at max fee")
	f.Float64Var(&s.WLevel, "w-level", s.WLevel, "UX weight: overcharge versus break-even")

	// Runtime flags
	r := p.runConfig
	f.Int64Var(&r.MinBlock, "min-block", r.MinBlock, "First block of the scored range (0 = first sample)")
	f.Int64Var(&r.MaxBlock, "max-block", r.MaxBlock, "Last block of the scored range (0 = last sample)")
	f.IntVar(&r.SweepMaxBlocks, "sweep-max-blocks", r.SweepMaxBlocks, "Largest range a sweep accepts")
	f.IntVar(&r.SweepWorkers, "workers", r.SweepWorkers, "Parallel sweep workers")
	f.IntVar(&r.SweepTop, "top", r.SweepTop, "Number of ranked sweep candidates to print")
	f.IntVar(&r.DemandBlocks, "blocks", r.DemandBlocks, "Number of L1 blocks for the demand command")
	f.StringVarP(&r.OutputFile, "output", "o", r.OutputFile, "Write results as JSON to this file")
	f.StringVar(&r.LogLevel, "log-level", r.LogLevel, "Log level: debug, info, warn or error")
	f.BoolVarP(&r.ShowHelp, "help", "h", r.ShowHelp, "Show detailed help and parameter explanations")
}

// Parse parses command-line arguments and returns configuration
func (p *Parser) Parse(args []string) (*Config, *RunConfig, error) {
	p.RegisterFlags()

	if err := p.flagSet.Parse(args); err != nil {
		return nil, nil, fmt.Errorf("failed to parse flags: %w", err)
	}

	if p.runConfig.ShowHelp {
		p.ShowDetailedHelp(os.Stdout)
		return p.config, p.runConfig, nil
	}

	// Explicit alphas only make sense without auto-alpha
	if !p.flagSet.Changed("auto-alpha") && (p.flagSet.Changed("alpha-gas") || p.flagSet.Changed("alpha-blob")) {
		p.config.AutoAlpha = false
	}

	if err := p.Validate(); err != nil {
		return nil, nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return p.config, p.runConfig, nil
}

// Args returns the positional arguments left after parsing
func (p *Parser) Args() []string {
	return p.flagSet.Args()
}

// Validate validates the configuration parameters
func (p *Parser) Validate() error {
	if err := p.config.Validate(); err != nil {
		return err
	}
	return p.runConfig.Validate()
}

// Validate validates the economic parameters
func (c *Config) Validate() error {
	if c.AutoAlpha && (c.AlphaGas != 0 || c.AlphaBlob != 0) {
		return fmt.Errorf("auto-alpha cannot be combined with explicit alpha-gas/alpha-blob")
	}

	if c.PostEveryBlocks <= 0 {
		return fmt.Errorf("post every (%d) must be positive", c.PostEveryBlocks)
	}

	if c.L1GasUsed < 0 || c.NumBlobs < 0 || c.PriorityFeeGwei < 0 {
		return fmt.Errorf("posting cost parameters must not be negative")
	}

	if c.L2GasPerL2Block < 0 {
		return fmt.Errorf("l2 gas per block (%.0f) must not be negative", c.L2GasPerL2Block)
	}

	if c.L2BlockTimeSec <= 0 {
		return fmt.Errorf("l2 block time (%.3f) must be positive", c.L2BlockTimeSec)
	}

	if c.MinFeeGwei < 0 {
		return fmt.Errorf("min fee (%.6f) must not be negative", c.MinFeeGwei)
	}

	if c.MaxFeeGwei < c.MinFeeGwei {
		return fmt.Errorf("max fee (%.6f) must be >= min fee (%.6f)", c.MaxFeeGwei, c.MinFeeGwei)
	}

	if c.IMin > c.IMax {
		return fmt.Errorf("i-min (%.3f) must be <= i-max (%.3f)", c.IMin, c.IMax)
	}

	if c.IMin > 0 || c.IMax < 0 {
		return fmt.Errorf("integral bounds [%.3f, %.3f] must contain 0", c.IMin, c.IMax)
	}

	if c.DerivativeBeta < 0 || c.DerivativeBeta > 1 {
		return fmt.Errorf("derivative beta (%.3f) must be between 0 and 1", c.DerivativeBeta)
	}

	if c.Kp < 0 || c.Ki < 0 || c.Kd < 0 || c.AlphaGas < 0 || c.AlphaBlob < 0 {
		return fmt.Errorf("gains and alpha coefficients must not be negative")
	}

	if c.FFDelayBlocks < 0 || c.FBDelayBlocks < 0 {
		return fmt.Errorf("delays (ff=%d, fb=%d) must not be negative", c.FFDelayBlocks, c.FBDelayBlocks)
	}

	if c.InitialVaultEth < 0 || c.TargetVaultEth < 0 {
		return fmt.Errorf("vault balances must not be negative")
	}

	if c.EIP1559Denominator < 1 || c.ArbInertia < 1 || c.ArbEquilUnits <= 0 {
		return fmt.Errorf("eip1559 denominator, arbitrum inertia and equilibration units must be positive")
	}

	if err := c.Score.Validate(); err != nil {
		return err
	}

	if err := oneOf("blob mode", c.BlobMode, validBlobModes); err != nil {
		return err
	}
	if _, err := CanonicalMechanism(c.Mechanism); err != nil {
		return err
	}
	if err := oneOf("controller mode", strings.ReplaceAll(c.ControllerMode, "_", "+"), validModes); err != nil {
		return err
	}
	if err := oneOf("demand regime", c.DemandRegime, validRegimes); err != nil {
		return err
	}
	if _, err := scenarios.ParseScenario(c.Scenario); err != nil {
		return fmt.Errorf("invalid scenario '%s', must be one of: %v", c.Scenario, scenarios.GetValidScenarioNames())
	}

	return nil
}

// Validate checks that every weight and the deadband are non-negative
func (w ScoreWeights) Validate() error {
	weights := []float64{
		w.DeadbandPct, w.WHealth, w.WUx,
		w.WDraw, w.WUnder, w.WArea, w.WStreak, w.WPostBE,
		w.WStd, w.WP95, w.WP99, w.WMaxStep, w.WClamp, w.WLevel,
	}
	for _, v := range weights {
		if v < 0 {
			return fmt.Errorf("score weights and deadband must not be negative")
		}
	}
	if w.DeadbandPct > 100 {
		return fmt.Errorf("deadband (%.2f%%) must not exceed 100%%", w.DeadbandPct)
	}
	return nil
}

// Validate validates the runtime parameters
func (r *RunConfig) Validate() error {
	if r.MinBlock < 0 || r.MaxBlock < 0 {
		return fmt.Errorf("block range bounds must not be negative")
	}
	if r.MaxBlock != 0 && r.MinBlock > r.MaxBlock {
		return fmt.Errorf("min block (%d) must be <= max block (%d)", r.MinBlock, r.MaxBlock)
	}
	if r.SweepMaxBlocks <= 0 {
		return fmt.Errorf("sweep max blocks (%d) must be positive", r.SweepMaxBlocks)
	}
	if r.SweepWorkers <= 0 {
		return fmt.Errorf("workers (%d) must be positive", r.SweepWorkers)
	}
	if r.DemandBlocks <= 0 {
		return fmt.Errorf("blocks (%d) must be positive", r.DemandBlocks)
	}
	if r.SweepTop < 0 {
		return fmt.Errorf("top (%d) must not be negative", r.SweepTop)
	}
	return oneOf("log level", r.LogLevel, validLogLevels)
}

func oneOf(name, value string, valid []string) error {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, v := range valid {
		if normalized == v {
			return nil
		}
	}
	return fmt.Errorf("invalid %s '%s', must be one of: %v", name, value, valid)
}

// ShowDetailedHelp displays comprehensive help information
func (p *Parser) ShowDetailedHelp(w io.Writer) {
	c := p.config
	r := p.runConfig

	fmt.Fprintln(w, "L2 Fee Controller Simulator - Complete CLI Reference")
	fmt.Fprintln(w, "================================================================================")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "OVERVIEW:")
	fmt.Fprintln(w, "  Replays an L1 fee history, prices L2 gas with a fee controller, settles")
	fmt.Fprintln(w, "  revenue against batch posting cost in a vault, and scores the result on")
	fmt.Fprintln(w, "  protocol health and user experience.")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "COMMANDS:")
	fmt.Fprintln(w, "  l2feesim simulate <file> [flags]   # Simulate and score one configuration")
	fmt.Fprintln(w, "  l2feesim score <file> [flags]      # Score every mechanism on the same history")
	fmt.Fprintln(w, "  l2feesim sweep <file> [flags]      # Search kp/ki/i-max for the best score")
	fmt.Fprintln(w, "  l2feesim demand [flags]            # Print a synthetic demand series summary")
	fmt.Fprintln(w, "  <file> is a .csv with block_number, base_fee_per_gas_wei and")
	fmt.Fprintln(w, "  base_fee_per_blob_gas_wei columns, or a .json dataset.")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "POSTING COST:")
	fmt.Fprintf(w, "  --post-every=%d          L1 blocks between postings\n", c.PostEveryBlocks)
	fmt.Fprintf(w, "  --l1-gas-used=%.0f    L1 execution gas per posting\n", c.L1GasUsed)
	fmt.Fprintf(w, "  --blob-mode=%s         fixed uses --num-blobs, dynamic estimates from demand\n", c.BlobMode)
	fmt.Fprintf(w, "  --num-blobs=%.0f            Blobs per posting in fixed mode\n", c.NumBlobs)
	fmt.Fprintf(w, "  --priority-fee-gwei=%.3f  L1 priority fee\n", c.PriorityFeeGwei)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "DEMAND:")
	fmt.Fprintf(w, "  --l2-gas-per-block=%.0f  Baseline L2 gas per L2 block\n", c.L2GasPerL2Block)
	fmt.Fprintf(w, "  --l2-block-time=%.1f       L2 block time in seconds (L1 slot is 12s)\n", c.L2BlockTimeSec)
	fmt.Fprintf(w, "  --scenario=%s         Options: %s\n", c.Scenario, strings.Join(scenarios.GetValidScenarioNames(), ", "))
	fmt.Fprintf(w, "  --demand-regime=%s      low (0.7x), base (1.0x) or high (1.4x)\n", c.DemandRegime)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "CONTROLLER:")
	fmt.Fprintf(w, "  --mechanism=%s           pid, eip1559 or arbitrum\n", c.Mechanism)
	fmt.Fprintf(w, "  --mode=%s                 ff, p, pi, pd, pdi, pi+ff or pdi+ff\n", c.ControllerMode)
	fmt.Fprintf(w, "  --auto-alpha=%t         Pass expected posting cost through at baseline demand\n", c.AutoAlpha)
	fmt.Fprintf(w, "  --kp=%.3f --ki=%.3f --kd=%.3f\n", c.Kp, c.Ki, c.Kd)
	fmt.Fprintf(w, "  --i-min=%.1f --i-max=%.1f  Integral clamp\n", c.IMin, c.IMax)
	fmt.Fprintf(w, "  --derivative-beta=%.2f   Derivative smoothing\n", c.DerivativeBeta)
	fmt.Fprintf(w, "  --ff-delay=%d --fb-delay=%d  Delays in blocks (feedback delay is at least 1)\n", c.FFDelayBlocks, c.FBDelayBlocks)
	fmt.Fprintf(w, "  --min-fee-gwei=%.3f --max-fee-gwei=%.3f\n", c.MinFeeGwei, c.MaxFeeGwei)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "VAULT:")
	fmt.Fprintf(w, "  --initial-vault=%.2f --target-vault=%.2f  Balances in ETH\n", c.InitialVaultEth, c.TargetVaultEth)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "SCORING:")
	fmt.Fprintf(w, "  --deadband-pct=%.1f  --w-health=%.2f --w-ux=%.2f\n", c.Score.DeadbandPct, c.Score.WHealth, c.Score.WUx)
	fmt.Fprintln(w, "  Health weights: --w-draw --w-under --w-area --w-streak --w-post-be")
	fmt.Fprintln(w, "  UX weights:     --w-std --w-p95 --w-p99 --w-max-step --w-clamp --w-level")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "RUNTIME:")
	fmt.Fprintln(w, "  --min-block / --max-block  Scored (and swept) block range")
	fmt.Fprintf(w, "  --sweep-max-blocks=%d  Sweeps over larger ranges are rejected\n", r.SweepMaxBlocks)
	fmt.Fprintf(w, "  --workers=%d  --top=%d  --blocks=%d\n", r.SweepWorkers, r.SweepTop, r.DemandBlocks)
	fmt.Fprintf(w, "  --log-level=%s  -o <file.json>\n", r.LogLevel)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "EXAMPLE WORKFLOWS:")
	fmt.Fprintln(w, "  l2feesim simulate fees.csv --mode=pdi+ff --kp=0.1 --ki=0.01")
	fmt.Fprintln(w, "  l2feesim simulate fees.csv --mechanism=eip1559")
	fmt.Fprintln(w, "  l2feesim sweep fees.csv --scenario=bursty --workers=8 --top=5")
	fmt.Fprintln(w, "  l2feesim demand --scenario=bursty --l2-gas-per-block=3000000")
}
