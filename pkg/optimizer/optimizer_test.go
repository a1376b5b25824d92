package optimizer

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/brianbland/l2feesim/pkg/analysis"
	"github.com/brianbland/l2feesim/pkg/blockchain"
	"github.com/brianbland/l2feesim/pkg/observability"
	"github.com/brianbland/l2feesim/pkg/scenarios"
	"github.com/brianbland/l2feesim/pkg/simulator"
)

func sweepRequest(t *testing.T, n int) SweepRequest {
	samples := make([]blockchain.FeeSample, n)
	for i := range samples {
		samples[i] = blockchain.FeeSample{
			BlockNumber:    int64(5000 + i),
			BaseFeeWei:     20e9 + 10e9*math.Sin(float64(i)/15),
			BlobBaseFeeWei: 1e9 + 0.5e9*math.Cos(float64(i)/40),
		}
	}
	demand, err := scenarios.Generate(n, 1e6, scenarios.ScenarioBursty)
	require.NoError(t, err)

	params := simulator.DefaultSimulationParams()
	params.Posting.L1GasUsed = 100_000
	params.Controller.AlphaGas, params.Controller.AlphaBlob = simulator.DeriveAutoAlpha(params.Posting, 1e6, params.PostEveryBlocks)
	params.InitialVaultEth = 9

	return SweepRequest{
		Samples:  samples,
		Demand:   demand,
		Params:   params,
		MinBlock: samples[0].BlockNumber,
		MaxBlock: samples[n-1].BlockNumber,
	}
}

func smallGrid() Grid {
	return Grid{
		Modes:         []simulator.ControllerMode{simulator.ModePDI, simulator.ModePDIFF},
		Kp:            []float64{0, 0.1, 0.8},
		Ki:            []float64{0, 0.01},
		Kd:            []float64{0},
		IMax:          []float64{5, 100},
		AlphaVariants: []AlphaVariant{AlphaCurrent, AlphaZero},
	}
}

func testConfig() SweepConfig {
	cfg := DefaultSweepConfig()
	cfg.Grid = smallGrid()
	return cfg
}

func TestDefaultGrid(t *testing.T) {
	require := require.New(t)

	grid := DefaultGrid()
	require.NoError(grid.Validate())
	require.Equal(864, grid.Size())

	candidates := grid.Candidates()
	require.Len(candidates, 864)
	require.Equal(Candidate{Mode: simulator.ModePDI, Kp: 0, Ki: 0, Kd: 0, IMax: 5, Alpha: AlphaCurrent}, candidates[0])
	require.Equal(Candidate{Mode: simulator.ModePDI, Kp: 0, Ki: 0, Kd: 0, IMax: 5, Alpha: AlphaZero}, candidates[1])
	require.Equal(Candidate{Mode: simulator.ModePDI, Kp: 0, Ki: 0, Kd: 0, IMax: 10, Alpha: AlphaCurrent}, candidates[2])
	require.Equal(Candidate{Mode: simulator.ModePDIFF, Kp: 1.6, Ki: 1, Kd: 0, IMax: 100, Alpha: AlphaZero}, candidates[863])
}

func TestCandidateApply(t *testing.T) {
	base := simulator.DefaultControllerConfig()
	base.AlphaGas, base.AlphaBlob = 0.1, 0.2
	base.IMin = -3

	cfg := Candidate{Mode: simulator.ModePDIFF, Kp: 0.4, Ki: 0.1, IMax: 10, Alpha: AlphaZero}.Apply(base)
	require.Equal(t, simulator.ModePDIFF, cfg.Mode)
	require.Equal(t, 0.4, cfg.Kp)
	require.Equal(t, 10.0, cfg.IMax)
	require.Equal(t, -3.0, cfg.IMin)
	require.Zero(t, cfg.AlphaGas)
	require.Zero(t, cfg.AlphaBlob)

	cfg = Candidate{Mode: simulator.ModePDI, Alpha: AlphaCurrent}.Apply(base)
	require.Equal(t, 0.1, cfg.AlphaGas)
	require.Equal(t, 0.2, cfg.AlphaBlob)
}

func TestGridValidate(t *testing.T) {
	grid := smallGrid()
	grid.Kp = []float64{-1}
	require.ErrorIs(t, grid.Validate(), simulator.ErrInvalidConfig)

	grid = smallGrid()
	grid.AlphaVariants = []AlphaVariant{"half"}
	require.ErrorIs(t, grid.Validate(), simulator.ErrInvalidConfig)
}

func TestSweepMatchesExhaustiveScan(t *testing.T) {
	require := require.New(t)

	req := sweepRequest(t, 300)
	req.MinBlock = 5050
	req.MaxBlock = 5249
	cfg := testConfig()

	o := New(cfg, nil, nil)
	result, err := o.Run(context.Background(), req)
	require.NoError(err)
	require.False(result.Cancelled)
	require.Equal(cfg.Grid.Size(), result.Evaluated)
	require.Len(result.Candidates, cfg.Grid.Size())
	require.Equal(int64(5050), result.StartBlock)
	require.Equal(int64(5249), result.EndBlock)
	require.Same(result, o.Last())

	for i := 1; i < len(result.Candidates); i++ {
		require.LessOrEqual(result.Candidates[i-1].Score.TotalBadness, result.Candidates[i].Score.TotalBadness)
	}

	best := math.Inf(1)
	bestIndex := -1
	for i, candidate := range cfg.Grid.Candidates() {
		params := req.Params
		params.Controller = candidate.Apply(req.Params.Controller)
		params.BlockIndexOffset = 50

		trace, err := simulator.Run(req.Samples[50:250], req.Demand[50:250], params)
		require.NoError(err)
		score, err := analysis.ScoreIndices(trace, 0, len(trace.Rows)-1, cfg.Score)
		require.NoError(err)

		if score.TotalBadness < best {
			best = score.TotalBadness
			bestIndex = i
		}
	}

	require.Equal(best, result.Best.Score.TotalBadness)
	require.Equal(bestIndex, result.Best.Index)
}

func TestParallelSweepMatchesSequential(t *testing.T) {
	req := sweepRequest(t, 200)

	sequential, err := New(testConfig(), nil, nil).Run(context.Background(), req)
	require.NoError(t, err)

	cfg := testConfig()
	cfg.Workers = 4
	parallel, err := New(cfg, nil, nil).Run(context.Background(), req)
	require.NoError(t, err)

	require.Equal(t, len(sequential.Candidates), len(parallel.Candidates))
	for i := range sequential.Candidates {
		require.Equal(t, sequential.Candidates[i].Index, parallel.Candidates[i].Index)
		require.Equal(t, sequential.Candidates[i].Score, parallel.Candidates[i].Score)
	}
}

func TestSweepCancelledAfterK(t *testing.T) {
	require := require.New(t)

	const k = 7
	cfg := testConfig()

	var o *Optimizer
	cfg.OnProgress = func(p Progress) {
		if p.Evaluated == k {
			o.Cancel()
		}
	}
	o = New(cfg, nil, nil)

	result, err := o.Run(context.Background(), sweepRequest(t, 120))
	require.NoError(err)
	require.True(result.Cancelled)
	require.Equal(k, result.Evaluated)
	require.Len(result.Candidates, k)
	require.NotNil(result.Best)
	require.Nil(o.Last())

	for i := 1; i < len(result.Candidates); i++ {
		require.LessOrEqual(result.Candidates[i-1].Score.TotalBadness, result.Candidates[i].Score.TotalBadness)
	}
	for _, c := range result.Candidates {
		require.Less(c.Index, k)
	}
}

func TestSweepCancelledAfterLastCandidate(t *testing.T) {
	require := require.New(t)

	registry := prometheus.NewRegistry()
	metrics, err := observability.NewSweepMetrics(registry)
	require.NoError(err)

	cfg := testConfig()
	total := cfg.Grid.Size()

	var o *Optimizer
	cfg.OnProgress = func(p Progress) {
		if p.Evaluated == total {
			o.Cancel()
		}
	}
	o = New(cfg, nil, metrics)

	result, err := o.Run(context.Background(), sweepRequest(t, 80))
	require.NoError(err)
	require.Equal(total, result.Evaluated)
	require.True(result.Cancelled)
	require.Nil(o.Last())
	require.Equal(1.0, testutil.ToFloat64(metrics.SweepsCancelled))
	require.Zero(testutil.ToFloat64(metrics.SweepsCompleted))
}

func TestSweepScoresZeroTargetAgainstUnit(t *testing.T) {
	o := New(testConfig(), nil, nil)
	require.True(t, o.config.Score.UnitTargetFallback)
}

func TestSweepContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := New(testConfig(), nil, nil)
	result, err := o.Run(ctx, sweepRequest(t, 50))
	require.NoError(t, err)
	require.True(t, result.Cancelled)
	require.Zero(t, result.Evaluated)
	require.Nil(t, result.Best)
}

func TestSweepRangeTooLarge(t *testing.T) {
	require := require.New(t)

	cfg := testConfig()
	cfg.MaxBlocks = 100
	o := New(cfg, nil, nil)

	req := sweepRequest(t, 150)
	req.MaxBlock = req.Samples[99].BlockNumber
	previous, err := o.Run(context.Background(), req)
	require.NoError(err)
	require.Same(previous, o.Last())
	runID := o.CurrentRunID()

	req.MaxBlock = req.Samples[100].BlockNumber
	_, err = o.Run(context.Background(), req)
	require.True(errors.Is(err, ErrRangeTooLarge))
	require.Same(previous, o.Last())
	require.Equal(runID, o.CurrentRunID())
}

func TestSweepInvalidInput(t *testing.T) {
	o := New(testConfig(), nil, nil)

	req := sweepRequest(t, 50)
	req.MinBlock, req.MaxBlock = 1, 10
	_, err := o.Run(context.Background(), req)
	require.True(t, errors.Is(err, ErrInvalidRange))

	req = sweepRequest(t, 50)
	req.Demand = req.Demand[:10]
	_, err = o.Run(context.Background(), req)
	require.True(t, errors.Is(err, simulator.ErrLengthMismatch))

	req = sweepRequest(t, 50)
	req.Samples[3].BlockNumber = req.Samples[2].BlockNumber
	_, err = o.Run(context.Background(), req)
	require.True(t, errors.Is(err, blockchain.ErrNonMonotonic))
}

func TestSweepYieldsAndRecordsMetrics(t *testing.T) {
	require := require.New(t)

	registry := prometheus.NewRegistry()
	metrics, err := observability.NewSweepMetrics(registry)
	require.NoError(err)

	var yields int
	cfg := testConfig()
	cfg.YieldEvery = 4
	cfg.Yield = func() { yields++ }

	o := New(cfg, nil, metrics)
	result, err := o.Run(context.Background(), sweepRequest(t, 80))
	require.NoError(err)

	total := cfg.Grid.Size()
	require.Equal(total/4, yields)
	require.Equal(1.0, testutil.ToFloat64(metrics.SweepsStarted))
	require.Equal(1.0, testutil.ToFloat64(metrics.SweepsCompleted))
	require.Equal(float64(total), testutil.ToFloat64(metrics.CandidatesEvaluated))
	require.Equal(result.Best.Score.TotalBadness, testutil.ToFloat64(metrics.BestTotalBadness))
}
