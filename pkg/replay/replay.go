package replay

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"go.uber.org/zap"

	"github.com/brianbland/l2feesim/pkg/analysis"
	"github.com/brianbland/l2feesim/pkg/blockchain"
	"github.com/brianbland/l2feesim/pkg/config"
	"github.com/brianbland/l2feesim/pkg/observability"
	"github.com/brianbland/l2feesim/pkg/optimizer"
	"github.com/brianbland/l2feesim/pkg/scenarios"
	"github.com/brianbland/l2feesim/pkg/simulator"
)

// Result holds one replay of an L1 fee history and its score
type Result struct {
	Params  simulator.SimulationParams `json:"params"`
	Scalars scenarios.DemandScalars    `json:"scalars"`
	Trace   *simulator.Trace           `json:"trace"`
	Score   *analysis.ScoreResult      `json:"score"`
}

// Simulator replays L1 fee histories under a configuration
type Simulator struct {
	config config.Config
	logger *zap.Logger
}

// NewSimulator creates a new replay simulator. A nil logger disables logging.
func NewSimulator(cfg config.Config, logger *zap.Logger) *Simulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Simulator{
		config: cfg,
		logger: logger,
	}
}

// ResolveRange fills zero bounds with the first and last sample block
func ResolveRange(samples []blockchain.FeeSample, minBlock, maxBlock int64) (int64, int64) {
	if len(samples) == 0 {
		return minBlock, maxBlock
	}
	if minBlock == 0 {
		minBlock = samples[0].BlockNumber
	}
	if maxBlock == 0 {
		maxBlock = samples[len(samples)-1].BlockNumber
	}
	return minBlock, maxBlock
}

// BuildDemand generates the synthetic L2 gas series for n L1 blocks
func (s *Simulator) BuildDemand(n int) ([]float64, simulator.SimulationParams, scenarios.DemandScalars, error) {
	params, scalars, err := simulator.ParamsFromConfig(&s.config)
	if err != nil {
		return nil, simulator.SimulationParams{}, scenarios.DemandScalars{}, fmt.Errorf("invalid configuration: %w", err)
	}

	scenario, err := scenarios.ParseScenario(s.config.Scenario)
	if err != nil {
		return nil, simulator.SimulationParams{}, scenarios.DemandScalars{}, err
	}

	demand, err := scenarios.Generate(n, scalars.TargetGasPerL1Block, scenario)
	if err != nil {
		return nil, simulator.SimulationParams{}, scenarios.DemandScalars{}, fmt.Errorf("failed to build demand: %w", err)
	}

	return demand, params, scalars, nil
}

// SimulateAgainstSamples runs the configured mechanism over every sample and
// scores [minBlock, maxBlock]. Zero bounds select the whole series.
func (s *Simulator) SimulateAgainstSamples(samples []blockchain.FeeSample, minBlock, maxBlock int64) (*Result, error) {
	if err := blockchain.ValidateSamples(samples); err != nil {
		return nil, fmt.Errorf("invalid samples: %w", err)
	}

	demand, params, scalars, err := s.BuildDemand(len(samples))
	if err != nil {
		return nil, err
	}

	trace, err := simulator.NewRunner(s.logger).Run(samples, demand, params)
	if err != nil {
		return nil, fmt.Errorf("simulation failed: %w", err)
	}

	minBlock, maxBlock = ResolveRange(samples, minBlock, maxBlock)
	score, err := analysis.Score(trace, minBlock, maxBlock, s.config.Score)
	if err != nil {
		return nil, fmt.Errorf("scoring failed: %w", err)
	}

	s.logger.Info("replay complete",
		zap.String("mechanism", string(params.Mechanism)),
		zap.Int("blocks", len(samples)),
		zap.Float64("totalBadness", score.TotalBadness),
	)

	return &Result{
		Params:  params,
		Scalars: scalars,
		Trace:   trace,
		Score:   score,
	}, nil
}

// CompareMechanisms replays the samples once per available mechanism and
// returns their scores in factory order
func (s *Simulator) CompareMechanisms(samples []blockchain.FeeSample, minBlock, maxBlock int64) ([]analysis.LabeledScore, error) {
	factory := simulator.NewMechanismFactory()

	var scores []analysis.LabeledScore
	for _, mechanism := range factory.GetAvailableTypes() {
		cfg := s.config
		cfg.Mechanism = string(mechanism)

		result, err := NewSimulator(cfg, s.logger).SimulateAgainstSamples(samples, minBlock, maxBlock)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", mechanism, err)
		}

		label := string(mechanism)
		if mechanism == simulator.MechanismPID {
			label = fmt.Sprintf("%s (%s)", mechanism, result.Trace.Mode)
		}
		scores = append(scores, analysis.LabeledScore{Label: label, Result: result.Score})
	}
	return scores, nil
}

// Sweep searches the controller grid over [minBlock, maxBlock] of samples
func (s *Simulator) Sweep(
	ctx context.Context,
	samples []blockchain.FeeSample,
	runCfg config.RunConfig,
	metrics *observability.SweepMetrics,
) (*optimizer.SweepResult, error) {
	demand, params, _, err := s.BuildDemand(len(samples))
	if err != nil {
		return nil, err
	}

	sweepCfg := optimizer.DefaultSweepConfig()
	sweepCfg.Score = s.config.Score
	sweepCfg.MaxBlocks = runCfg.SweepMaxBlocks
	sweepCfg.Workers = runCfg.SweepWorkers
	sweepCfg.OnProgress = func(p optimizer.Progress) {
		if p.Evaluated%100 == 0 || p.Evaluated == p.Total {
			s.logger.Info("sweep progress",
				zap.Uint64("runID", p.RunID),
				zap.Int("evaluated", p.Evaluated),
				zap.Int("total", p.Total),
			)
		}
	}

	minBlock, maxBlock := ResolveRange(samples, runCfg.MinBlock, runCfg.MaxBlock)

	return optimizer.New(sweepCfg, s.logger, metrics).Run(ctx, optimizer.SweepRequest{
		Samples:  samples,
		Demand:   demand,
		Params:   params,
		MinBlock: minBlock,
		MaxBlock: maxBlock,
	})
}

// PrintSimulationResults prints the results of a replay
func PrintSimulationResults(w io.Writer, result *Result) {
	params := result.Params
	trace := result.Trace

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 80))
	fmt.Fprintf(w, "L1 FEE HISTORY REPLAY RESULTS\n")
	fmt.Fprintf(w, "%s\n", strings.Repeat("=", 80))

	fmt.Fprintf(w, "Mechanism: %s\n", trace.Mechanism)
	if trace.Mode != "" {
		ctrl := params.Controller
		fmt.Fprintf(w, "  Mode: %s (kp=%g ki=%g kd=%g, i in [%g, %g])\n",
			trace.Mode, ctrl.Kp, ctrl.Ki, ctrl.Kd, ctrl.IMin, ctrl.IMax)
		fmt.Fprintf(w, "  Alpha: gas=%.6g blob=%.6g\n", ctrl.AlphaGas, ctrl.AlphaBlob)
		fmt.Fprintf(w, "  Delays: ff=%d fb=%d blocks\n", ctrl.FFDelayBlocks, ctrl.EffectiveFBDelay())
	}
	fmt.Fprintf(w, "  Fee bounds: %.4f - %.4f Gwei\n", trace.MinFeeWeiPerGas/1e9, trace.MaxFeeWeiPerGas/1e9)

	fmt.Fprintf(w, "\nDemand:\n")
	fmt.Fprintf(w, "  Baseline: %.2f M gas per L1 block (%.1fx regime)\n",
		result.Scalars.BaseGasPerL1Block/1e6, result.Scalars.Multiplier)
	fmt.Fprintf(w, "  Posting every %d L1 blocks (%.2f M gas per proposal at baseline)\n",
		params.PostEveryBlocks, result.Scalars.BaseGasPerProposal/1e6)

	fmt.Fprintf(w, "\nVault:\n")
	fmt.Fprintf(w, "  Initial / target: %.4f / %.4f ETH\n", params.InitialVaultEth, params.TargetVaultEth)
	fmt.Fprintf(w, "  Postings: %d\n", trace.Settlements())
	vault := analysis.SummarizeSeries(trace.VaultBalances())
	fmt.Fprintf(w, "  Balance range: %.6f - %.6f ETH (mean %.6f)\n", vault.Min, vault.Max, vault.Mean)

	analysis.PrintScorecard(w, string(trace.Mechanism), result.Score)
}

// PrintSweepResults prints the top ranked candidates of a sweep
func PrintSweepResults(w io.Writer, result *optimizer.SweepResult, top int) {
	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 80))
	fmt.Fprintf(w, "PARAMETER SWEEP RESULTS\n")
	fmt.Fprintf(w, "%s\n", strings.Repeat("=", 80))

	fmt.Fprintf(w, "Blocks %d - %d, evaluated %d of %d candidates", result.StartBlock, result.EndBlock, result.Evaluated, result.Total)
	if result.Cancelled {
		fmt.Fprintf(w, " (cancelled)")
	}
	fmt.Fprintln(w)

	scores := make([]analysis.LabeledScore, 0, top)
	for i, c := range result.Candidates {
		if i >= top {
			break
		}
		scores = append(scores, analysis.LabeledScore{Label: c.Candidate.String(), Result: c.Score})
	}
	analysis.PrintSummary(w, scores)

	if result.Best != nil {
		fmt.Fprintf(w, "\nBest: %s (total badness %.6f)\n", result.Best.Candidate, result.Best.Score.TotalBadness)
	}
}

// PrintDemandSummary prints the distribution of a synthetic demand series
func PrintDemandSummary(w io.Writer, scenario string, scalars scenarios.DemandScalars, demand []float64) {
	summary := analysis.SummarizeSeries(demand)

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 80))
	fmt.Fprintf(w, "DEMAND SERIES: %s\n", scenario)
	fmt.Fprintf(w, "%s\n", strings.Repeat("=", 80))

	fmt.Fprintf(w, "L2 blocks per L1 block: %.2f\n", scalars.L2BlocksPerL1Block)
	fmt.Fprintf(w, "Baseline: %.3f M gas per L1 block, target %.3f M (%.1fx regime)\n",
		scalars.BaseGasPerL1Block/1e6, scalars.TargetGasPerL1Block/1e6, scalars.Multiplier)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Blocks\tMean\tStd\tMin\tP5\tP95\tMax")
	fmt.Fprintf(tw, "%d\t%.3f M\t%.3f M\t%.3f M\t%.3f M\t%.3f M\t%.3f M\n",
		summary.Count,
		summary.Mean/1e6,
		summary.Std/1e6,
		summary.Min/1e6,
		summary.P5/1e6,
		summary.P95/1e6,
		summary.Max/1e6,
	)
	tw.Flush()
}
