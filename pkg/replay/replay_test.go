package replay

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brianbland/l2feesim/pkg/blockchain"
	"github.com/brianbland/l2feesim/pkg/config"
	"github.com/brianbland/l2feesim/pkg/optimizer"
)

func testSamples(n int) []blockchain.FeeSample {
	samples := make([]blockchain.FeeSample, n)
	for i := range samples {
		samples[i] = blockchain.FeeSample{
			BlockNumber:    int64(19_000_000 + 2*i),
			BaseFeeWei:     float64(15e9 + (i%20)*1e9),
			BlobBaseFeeWei: 1,
		}
	}
	return samples
}

func TestResolveRange(t *testing.T) {
	samples := testSamples(10)

	minBlock, maxBlock := ResolveRange(samples, 0, 0)
	require.Equal(t, int64(19_000_000), minBlock)
	require.Equal(t, int64(19_000_018), maxBlock)

	minBlock, maxBlock = ResolveRange(samples, 19_000_004, 0)
	require.Equal(t, int64(19_000_004), minBlock)
	require.Equal(t, int64(19_000_018), maxBlock)
}

func TestSimulateAgainstSamples(t *testing.T) {
	require := require.New(t)

	cfg := config.Default()
	cfg.ControllerMode = "pdi+ff"
	cfg.Kp = 0.1
	cfg.Ki = 0.01

	sim := NewSimulator(cfg, nil)
	result, err := sim.SimulateAgainstSamples(testSamples(200), 19_000_100, 0)
	require.NoError(err)
	require.Len(result.Trace.Rows, 200)
	require.Equal(150, result.Score.Blocks)
	require.Equal("pdi+ff", result.Trace.Mode)
	require.Greater(result.Params.Controller.AlphaGas, 0.0)

	var buf bytes.Buffer
	PrintSimulationResults(&buf, result)
	require.Contains(buf.String(), "L1 FEE HISTORY REPLAY RESULTS")
	require.Contains(buf.String(), "SCORECARD: pid")
	require.Contains(buf.String(), "Balance range:")

	// Same inputs replay to the same trace
	again, err := sim.SimulateAgainstSamples(testSamples(200), 19_000_100, 0)
	require.NoError(err)
	require.Equal(result.Trace.Rows, again.Trace.Rows)

	_, err = sim.SimulateAgainstSamples(testSamples(10), 1, 2)
	require.True(errors.Is(err, blockchain.ErrInvalidRange))

	_, err = sim.SimulateAgainstSamples(nil, 0, 0)
	require.True(errors.Is(err, blockchain.ErrEmptySeries))
}

func TestCompareMechanisms(t *testing.T) {
	sim := NewSimulator(config.Default(), nil)
	scores, err := sim.CompareMechanisms(testSamples(100), 0, 0)
	require.NoError(t, err)
	require.Len(t, scores, 3)
	require.Equal(t, "pid (ff)", scores[0].Label)
	require.Equal(t, "eip1559", scores[1].Label)
	require.Equal(t, "arbitrum", scores[2].Label)
}

func TestSweep(t *testing.T) {
	require := require.New(t)

	runCfg := config.DefaultRunConfig()
	runCfg.SweepWorkers = 2
	runCfg.MinBlock = 19_000_020

	sim := NewSimulator(config.Default(), nil)
	result, err := sim.Sweep(context.Background(), testSamples(60), runCfg, nil)
	require.NoError(err)
	require.Equal(864, result.Evaluated)
	require.Equal(int64(19_000_020), result.StartBlock)
	require.NotNil(result.Best)

	var buf bytes.Buffer
	PrintSweepResults(&buf, result, 3)
	require.Contains(buf.String(), "PARAMETER SWEEP RESULTS")
	require.Contains(buf.String(), "Best: mode=")

	runCfg.SweepMaxBlocks = 5
	_, err = sim.Sweep(context.Background(), testSamples(60), runCfg, nil)
	require.True(errors.Is(err, optimizer.ErrRangeTooLarge))
}

func TestBuildDemand(t *testing.T) {
	cfg := config.Default()
	cfg.Scenario = "constant"
	cfg.DemandRegime = "low"

	demand, _, scalars, err := NewSimulator(cfg, nil).BuildDemand(50)
	require.NoError(t, err)
	require.Len(t, demand, 50)
	for _, gas := range demand {
		require.InDelta(t, scalars.TargetGasPerL1Block, gas, 1e-6)
	}
	require.InDelta(t, 12e6*0.7, scalars.TargetGasPerL1Block, 1e-6)

	var buf bytes.Buffer
	PrintDemandSummary(&buf, cfg.Scenario, scalars, demand)
	require.Contains(t, buf.String(), "DEMAND SERIES: constant")

	cfg.Scenario = "chaotic"
	_, _, _, err = NewSimulator(cfg, nil).BuildDemand(50)
	require.Error(t, err)
}
