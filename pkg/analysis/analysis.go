package analysis

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/brianbland/l2feesim/pkg/blockchain"
	"github.com/brianbland/l2feesim/pkg/config"
	"github.com/brianbland/l2feesim/pkg/simulator"
)

// ErrInvalidRange is returned when a block range selects no trace rows
var ErrInvalidRange = blockchain.ErrInvalidRange

// ScoreConfig holds the deadband and component weights used by the scorer
type ScoreConfig = config.ScoreWeights

// DefaultScoreConfig returns the default scoring configuration
func DefaultScoreConfig() ScoreConfig {
	return config.DefaultScoreWeights()
}

// HealthComponents are the protocol health badness terms, each in [0, 1] or near it
type HealthComponents struct {
	Draw   float64 `json:"dDraw"`
	Under  float64 `json:"dUnder"`
	Area   float64 `json:"dArea"`
	Streak float64 `json:"dStreak"`
	PostBE float64 `json:"dPost"`
}

// UXComponents are the user experience badness terms
type UXComponents struct {
	Std     float64 `json:"uStd"`
	P95     float64 `json:"uP95"`
	P99     float64 `json:"uP99"`
	MaxStep float64 `json:"uMax"`
	Clamp   float64 `json:"uClamp"`
	Level   float64 `json:"uLevel"`
}

// RawMetrics are the unnormalized figures the components are derived from
type RawMetrics struct {
	MaxDrawdownEth       float64 `json:"maxDrawdownEth"`
	DeadbandFloorEth     float64 `json:"deadbandFloorEth"`
	UnderBlocks          int     `json:"underBlocks"`
	WorstStreak          int     `json:"worstStreak"`
	Settlements          int     `json:"settlements"`
	BreakEvenSettlements int     `json:"breakEvenSettlements"`
	MeanFeeWei           float64 `json:"meanFeeWei"`
	StdFeeWei            float64 `json:"stdFeeWei"`
	P95StepWei           float64 `json:"p95StepWei"`
	P99StepWei           float64 `json:"p99StepWei"`
	MaxStepWei           float64 `json:"maxStepWei"`
	ClampMaxBlocks       int     `json:"clampMaxBlocks"`
	MeanBreakEvenFeeWei  float64 `json:"meanBreakEvenFeeWei"`
	FinalVaultEth        float64 `json:"finalVaultEth"`
}

// ScoreResult is the two-axis badness of a trace over a block range. Lower is better.
type ScoreResult struct {
	HealthBadness float64          `json:"healthBadness"`
	UXBadness     float64          `json:"uxBadness"`
	TotalBadness  float64          `json:"totalBadness"`
	Health        HealthComponents `json:"health"`
	UX            UXComponents     `json:"ux"`
	Raw           RawMetrics       `json:"raw"`
	StartBlock    int64            `json:"startBlock"`
	EndBlock      int64            `json:"endBlock"`
	Blocks        int              `json:"blocks"`
}

// Score scores the trace rows whose block numbers fall in [minBlock, maxBlock]
func Score(trace *simulator.Trace, minBlock, maxBlock int64, cfg ScoreConfig) (*ScoreResult, error) {
	if trace == nil || len(trace.Rows) == 0 {
		return nil, fmt.Errorf("%w: empty trace", ErrInvalidRange)
	}
	if minBlock > maxBlock {
		return nil, fmt.Errorf("%w: min block %d > max block %d", ErrInvalidRange, minBlock, maxBlock)
	}

	rows := trace.Rows
	i0 := sort.Search(len(rows), func(i int) bool { return rows[i].BlockNumber >= minBlock })
	i1 := sort.Search(len(rows), func(i int) bool { return rows[i].BlockNumber > maxBlock }) - 1
	if i0 > i1 {
		return nil, fmt.Errorf("%w: no blocks in [%d, %d]", ErrInvalidRange, minBlock, maxBlock)
	}

	return ScoreIndices(trace, i0, i1, cfg)
}

// ScoreIndices scores the inclusive row interval [i0, i1]
func ScoreIndices(trace *simulator.Trace, i0, i1 int, cfg ScoreConfig) (*ScoreResult, error) {
	if trace == nil || i0 < 0 || i1 >= len(trace.Rows) || i0 > i1 {
		return nil, fmt.Errorf("%w: index interval [%d, %d]", ErrInvalidRange, i0, i1)
	}

	rows := trace.Rows[i0 : i1+1]
	n := float64(len(rows))
	target := trace.TargetVaultEth
	maxFee := trace.MaxFeeWeiPerGas

	var raw RawMetrics
	raw.FinalVaultEth = rows[len(rows)-1].VaultEth

	// Health
	floor := target * (1 - cfg.DeadbandPct/100)
	raw.DeadbandFloorEth = floor

	var areaSum float64
	var streak int
	for _, row := range rows {
		if gap := target - row.VaultEth; gap > raw.MaxDrawdownEth {
			raw.MaxDrawdownEth = gap
		}

		if row.VaultEth < floor {
			raw.UnderBlocks++
			areaSum += floor - row.VaultEth
			streak++
			if streak > raw.WorstStreak {
				raw.WorstStreak = streak
			}
		} else {
			streak = 0
		}

		if row.Settlement != nil {
			raw.Settlements++
			if row.Settlement.BreakEven {
				raw.BreakEvenSettlements++
			}
		}
	}

	targetDenom := target
	if targetDenom <= 0 && cfg.UnitTargetFallback {
		targetDenom = 1
	}

	var health HealthComponents
	if targetDenom > 0 {
		health.Draw = raw.MaxDrawdownEth / targetDenom
		health.Area = areaSum / (targetDenom * n)
	}
	health.Under = float64(raw.UnderBlocks) / n
	health.Streak = float64(raw.WorstStreak) / n
	if raw.Settlements > 0 {
		health.PostBE = 1 - float64(raw.BreakEvenSettlements)/float64(raw.Settlements)
	}

	// UX
	fees := make([]float64, len(rows))
	var breakEvens []float64
	for i, row := range rows {
		fees[i] = row.FeeWeiPerGas
		if row.Clamp == simulator.ClampMax {
			raw.ClampMaxBlocks++
		}
		if row.BreakEvenDefined {
			breakEvens = append(breakEvens, row.BreakEvenFeeWei)
		}
	}

	steps := make([]float64, 0, len(fees))
	for i := 1; i < len(fees); i++ {
		steps = append(steps, math.Abs(fees[i]-fees[i-1]))
	}

	raw.MeanFeeWei = averageFloat64(fees)
	raw.StdFeeWei = stdDev(fees)
	raw.P95StepWei = percentile(steps, 95)
	raw.P99StepWei = percentile(steps, 99)
	raw.MaxStepWei = maxFloat64(steps)
	raw.MeanBreakEvenFeeWei = averageFloat64(breakEvens)

	var ux UXComponents
	if maxFee > 0 {
		ux.Std = raw.StdFeeWei / maxFee
		ux.P95 = raw.P95StepWei / maxFee
		ux.P99 = raw.P99StepWei / maxFee
		ux.MaxStep = raw.MaxStepWei / maxFee
	}
	ux.Clamp = float64(raw.ClampMaxBlocks) / n
	if raw.MeanBreakEvenFeeWei > 0 {
		ux.Level = math.Max(0, raw.MeanFeeWei-raw.MeanBreakEvenFeeWei) / raw.MeanBreakEvenFeeWei
	}

	healthBadness := weightedMean(
		[]float64{health.Draw, health.Under, health.Area, health.Streak, health.PostBE},
		[]float64{cfg.WDraw, cfg.WUnder, cfg.WArea, cfg.WStreak, cfg.WPostBE},
	)
	uxBadness := weightedMean(
		[]float64{ux.Std, ux.P95, ux.P99, ux.MaxStep, ux.Clamp, ux.Level},
		[]float64{cfg.WStd, cfg.WP95, cfg.WP99, cfg.WMaxStep, cfg.WClamp, cfg.WLevel},
	)

	return &ScoreResult{
		HealthBadness: healthBadness,
		UXBadness:     uxBadness,
		TotalBadness:  weightedMean([]float64{healthBadness, uxBadness}, []float64{cfg.WHealth, cfg.WUx}),
		Health:        health,
		UX:            ux,
		Raw:           raw,
		StartBlock:    rows[0].BlockNumber,
		EndBlock:      rows[len(rows)-1].BlockNumber,
		Blocks:        len(rows),
	}, nil
}

// weightedMean averages values by their non-negative weights. Negative weights
// count as zero; the result is 0 when no weight is positive.
func weightedMean(values, weights []float64) float64 {
	var sum, weightSum float64
	for i, v := range values {
		if i >= len(weights) {
			break
		}
		w := math.Max(0, weights[i])
		sum += w * v
		weightSum += w
	}
	if weightSum <= 0 {
		return 0
	}
	return sum / weightSum
}

// percentile returns the p-th percentile of values with linear interpolation
// between closest ranks
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	k := float64(len(sorted)-1) * p / 100
	lo := int(math.Floor(k))
	hi := int(math.Ceil(k))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(k-float64(lo))
}

// LabeledScore pairs a score with a display label
type LabeledScore struct {
	Label  string
	Result *ScoreResult
}

// PrintScorecard prints one score as a detailed breakdown
func PrintScorecard(w io.Writer, label string, result *ScoreResult) {
	fmt.Fprintf(w, "\n%s\n", strings.Repeat("-", 60))
	fmt.Fprintf(w, "SCORECARD: %s\n", label)
	fmt.Fprintf(w, "%s\n", strings.Repeat("-", 60))

	fmt.Fprintf(w, "Range: blocks %d - %d (%d blocks)\n", result.StartBlock, result.EndBlock, result.Blocks)
	fmt.Fprintf(w, "Total badness: %.6f (health %.6f, ux %.6f)\n",
		result.TotalBadness, result.HealthBadness, result.UXBadness)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\nHealth\tValue\tUX\tValue")
	rows := [][4]string{
		{"max drawdown", f6(result.Health.Draw), "fee std", f6(result.UX.Std)},
		{"under deadband", f6(result.Health.Under), "p95 step", f6(result.UX.P95)},
		{"deficit area", f6(result.Health.Area), "p99 step", f6(result.UX.P99)},
		{"worst streak", f6(result.Health.Streak), "max step", f6(result.UX.MaxStep)},
		{"non-break-even posts", f6(result.Health.PostBE), "clamped at max", f6(result.UX.Clamp)},
		{"", "", "level vs break-even", f6(result.UX.Level)},
	}
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r[0], r[1], r[2], r[3])
	}
	tw.Flush()

	raw := result.Raw
	fmt.Fprintf(w, "\nVault:\n")
	fmt.Fprintf(w, "  Final: %.6f ETH (deadband floor %.6f ETH)\n", raw.FinalVaultEth, raw.DeadbandFloorEth)
	fmt.Fprintf(w, "  Max drawdown below target: %.6f ETH\n", raw.MaxDrawdownEth)
	fmt.Fprintf(w, "  Postings: %d (%d broke even)\n", raw.Settlements, raw.BreakEvenSettlements)

	fmt.Fprintf(w, "\nFees:\n")
	fmt.Fprintf(w, "  Mean: %.6f Gwei (break-even mean %.6f Gwei)\n", raw.MeanFeeWei/1e9, raw.MeanBreakEvenFeeWei/1e9)
	fmt.Fprintf(w, "  Std dev: %.6f Gwei\n", raw.StdFeeWei/1e9)
	fmt.Fprintf(w, "  Step p95/p99/max: %.6f / %.6f / %.6f Gwei\n", raw.P95StepWei/1e9, raw.P99StepWei/1e9, raw.MaxStepWei/1e9)
	fmt.Fprintf(w, "  Blocks at max fee: %d\n", raw.ClampMaxBlocks)
}

// PrintSummary prints a comparison table of several scores
func PrintSummary(w io.Writer, scores []LabeledScore) {
	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 80))
	fmt.Fprintf(w, "SCORE SUMMARY\n")
	fmt.Fprintf(w, "%s\n", strings.Repeat("=", 80))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Run\tTotal\tHealth\tUX\tFinal Vault\tMean Fee\tPosts BE")
	for _, s := range scores {
		r := s.Result
		fmt.Fprintf(tw, "%s\t%.6f\t%.6f\t%.6f\t%.4f ETH\t%.4f Gwei\t%d/%d\n",
			s.Label,
			r.TotalBadness,
			r.HealthBadness,
			r.UXBadness,
			r.Raw.FinalVaultEth,
			r.Raw.MeanFeeWei/1e9,
			r.Raw.BreakEvenSettlements,
			r.Raw.Settlements,
		)
	}
	tw.Flush()
}

// SeriesSummary describes the distribution of a series
type SeriesSummary struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	P5    float64 `json:"p5"`
	P95   float64 `json:"p95"`
}

// SummarizeSeries returns summary statistics of values
func SummarizeSeries(values []float64) SeriesSummary {
	return SeriesSummary{
		Count: len(values),
		Mean:  averageFloat64(values),
		Std:   stdDev(values),
		Min:   minFloat64(values),
		Max:   maxFloat64(values),
		P5:    percentile(values, 5),
		P95:   percentile(values, 95),
	}
}

func f6(v float64) string {
	return fmt.Sprintf("%.6f", v)
}

// Utility functions for statistics calculations

func averageFloat64(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stdDev is the population standard deviation
func stdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := averageFloat64(values)
	var sumSquares float64
	for _, v := range values {
		sumSquares += v * v
	}
	return math.Sqrt(math.Max(0, sumSquares/float64(len(values))-mean*mean))
}

func minFloat64(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	min := values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
	}
	return min
}

func maxFloat64(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	max := values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
	}
	return max
}
