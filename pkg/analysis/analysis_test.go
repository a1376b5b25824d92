package analysis

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brianbland/l2feesim/pkg/simulator"
)

func traceFrom(fees, vault []float64, maxFee float64) *simulator.Trace {
	rows := make([]simulator.TraceRow, len(fees))
	for i := range rows {
		rows[i] = simulator.TraceRow{
			BlockNumber:  int64(100 + i),
			FeeWeiPerGas: fees[i],
			VaultEth:     vault[i],
			Clamp:        simulator.ClassifyClamp(fees[i], 0, maxFee),
		}
	}
	return &simulator.Trace{
		TargetVaultEth:  10,
		MaxFeeWeiPerGas: maxFee,
		Rows:            rows,
	}
}

func TestScoreHealthComponents(t *testing.T) {
	require := require.New(t)

	fees := []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1}
	vault := []float64{10, 9, 9, 10, 8, 8, 8, 9.6, 10, 10}
	trace := traceFrom(fees, vault, 10)
	trace.Rows[3].Settlement = &simulator.Settlement{BreakEven: true}
	trace.Rows[7].Settlement = &simulator.Settlement{BreakEven: false}

	result, err := ScoreIndices(trace, 0, 9, DefaultScoreConfig())
	require.NoError(err)

	// floor is 9.5
	require.InDelta(9.5, result.Raw.DeadbandFloorEth, 1e-12)
	require.InDelta(0.2, result.Health.Draw, 1e-12)
	require.Equal(5, result.Raw.UnderBlocks)
	require.InDelta(0.5, result.Health.Under, 1e-12)
	require.Equal(3, result.Raw.WorstStreak)
	require.InDelta(0.3, result.Health.Streak, 1e-12)
	require.InDelta((0.5+0.5+1.5+1.5+1.5)/(10*10), result.Health.Area, 1e-12)
	require.InDelta(0.5, result.Health.PostBE, 1e-12)

	expected := (0.35*0.2 + 0.25*0.5 + 0.2*0.055 + 0.1*0.3 + 0.2*0.5) / 1.1
	require.InDelta(expected, result.HealthBadness, 1e-12)

	require.Zero(result.UX.Std)
	require.Zero(result.UX.MaxStep)
	require.Zero(result.UXBadness)
	require.InDelta(0.75*expected, result.TotalBadness, 1e-12)
}

func TestScoreUXComponents(t *testing.T) {
	require := require.New(t)

	fees := []float64{2, 4, 4, 8, 10}
	vault := []float64{10, 10, 10, 10, 10}
	trace := traceFrom(fees, vault, 10)
	for i := range trace.Rows {
		trace.Rows[i].BreakEvenFeeWei = 4
		trace.Rows[i].BreakEvenDefined = true
	}

	result, err := ScoreIndices(trace, 0, 4, DefaultScoreConfig())
	require.NoError(err)

	require.InDelta(5.6, result.Raw.MeanFeeWei, 1e-12)
	require.InDelta(2.939387691, result.Raw.StdFeeWei, 1e-9)
	require.InDelta(0.2939387691, result.UX.Std, 1e-9)

	// steps are 2, 0, 4, 2 -> sorted 0, 2, 2, 4
	require.InDelta(3.7, result.Raw.P95StepWei, 1e-12)
	require.InDelta(3.94, result.Raw.P99StepWei, 1e-12)
	require.Equal(4.0, result.Raw.MaxStepWei)
	require.InDelta(0.4, result.UX.MaxStep, 1e-12)

	require.Equal(1, result.Raw.ClampMaxBlocks)
	require.InDelta(0.2, result.UX.Clamp, 1e-12)
	require.InDelta(0.4, result.UX.Level, 1e-12)
	require.Zero(result.HealthBadness)
}

func TestScoreGuards(t *testing.T) {
	trace := traceFrom([]float64{1, 3}, []float64{0, 0}, 0)
	trace.TargetVaultEth = 0

	result, err := ScoreIndices(trace, 0, 1, DefaultScoreConfig())
	require.NoError(t, err)

	assert.Zero(t, result.Health.Draw)
	assert.Zero(t, result.Health.Area)
	assert.Zero(t, result.Health.PostBE)
	assert.Zero(t, result.UX.Std)
	assert.Zero(t, result.UX.P95)
	assert.Zero(t, result.UX.P99)
	assert.Zero(t, result.UX.MaxStep)
	assert.Zero(t, result.UX.Level)

	cfg := DefaultScoreConfig()
	cfg.WHealth, cfg.WUx = 0, 0
	result, err = ScoreIndices(trace, 0, 1, cfg)
	require.NoError(t, err)
	assert.Zero(t, result.TotalBadness)
}

func TestScoreZeroTargetUnitFallback(t *testing.T) {
	trace := traceFrom([]float64{1, 1, 1}, []float64{0, -3, -3}, 10)
	trace.TargetVaultEth = 0

	cfg := DefaultScoreConfig()
	result, err := ScoreIndices(trace, 0, 2, cfg)
	require.NoError(t, err)
	assert.Zero(t, result.Health.Draw)
	assert.Zero(t, result.Health.Area)

	cfg.UnitTargetFallback = true
	result, err = ScoreIndices(trace, 0, 2, cfg)
	require.NoError(t, err)
	assert.InDelta(t, 3, result.Health.Draw, 1e-12)
	assert.InDelta(t, 2, result.Health.Area, 1e-12)
	assert.InDelta(t, 2.0/3, result.Health.Under, 1e-12)
}

func TestScoreBlockRange(t *testing.T) {
	trace := traceFrom([]float64{1, 2, 3, 4, 5}, []float64{10, 10, 10, 10, 10}, 10)

	result, err := Score(trace, 101, 103, DefaultScoreConfig())
	require.NoError(t, err)
	assert.Equal(t, 3, result.Blocks)
	assert.Equal(t, int64(101), result.StartBlock)
	assert.Equal(t, int64(103), result.EndBlock)
	assert.InDelta(t, 3.0, result.Raw.MeanFeeWei, 1e-12)

	result, err = Score(trace, 0, 1000, DefaultScoreConfig())
	require.NoError(t, err)
	assert.Equal(t, 5, result.Blocks)

	tests := []struct {
		name     string
		min, max int64
	}{
		{"inverted", 103, 101},
		{"before", 0, 99},
		{"after", 105, 200},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Score(trace, test.min, test.max, DefaultScoreConfig())
			assert.True(t, errors.Is(err, ErrInvalidRange))
		})
	}

	_, err = ScoreIndices(trace, 2, 5, DefaultScoreConfig())
	assert.True(t, errors.Is(err, ErrInvalidRange))
	_, err = Score(&simulator.Trace{}, 0, 1, DefaultScoreConfig())
	assert.True(t, errors.Is(err, ErrInvalidRange))
}

func TestWeightedMean(t *testing.T) {
	assert.InDelta(t, 2.0, weightedMean([]float64{1, 3}, []float64{1, 1}), 1e-12)
	assert.InDelta(t, 3.0, weightedMean([]float64{1, 3}, []float64{0, 2}), 1e-12)
	assert.InDelta(t, 3.0, weightedMean([]float64{1, 3}, []float64{-4, 2}), 1e-12)
	assert.Zero(t, weightedMean([]float64{1, 3}, []float64{0, 0}))
}

func TestPercentile(t *testing.T) {
	assert.Zero(t, percentile(nil, 95))
	assert.Equal(t, 7.0, percentile([]float64{7}, 99))
	assert.InDelta(t, 2.5, percentile([]float64{4, 1, 3, 2}, 50), 1e-12)
	assert.Equal(t, 4.0, percentile([]float64{4, 1, 3, 2}, 100))
	assert.Equal(t, 1.0, percentile([]float64{4, 1, 3, 2}, 0))
}

func TestUXRatiosDoNotGrowWithMaxFee(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("raising max fee with fixed fees never raises spread ratios", prop.ForAll(
		func(fees []float64, maxFee, extra float64) string {
			if len(fees) == 0 {
				return ""
			}
			vault := make([]float64, len(fees))
			low := traceFrom(fees, vault, maxFee)
			high := traceFrom(fees, vault, maxFee+extra)

			a, err := ScoreIndices(low, 0, len(fees)-1, DefaultScoreConfig())
			if err != nil {
				return err.Error()
			}
			b, err := ScoreIndices(high, 0, len(fees)-1, DefaultScoreConfig())
			if err != nil {
				return err.Error()
			}

			pairs := [][2]float64{
				{a.UX.Std, b.UX.Std},
				{a.UX.P95, b.UX.P95},
				{a.UX.P99, b.UX.P99},
				{a.UX.MaxStep, b.UX.MaxStep},
			}
			for i, p := range pairs {
				if p[1] > p[0]+1e-12 {
					return fmt.Sprintf("ratio %d grew from %g to %g", i, p[0], p[1])
				}
			}
			return ""
		},
		gen.SliceOf(gen.Float64Range(0, 1e9)),
		gen.Float64Range(1e6, 1e9),
		gen.Float64Range(0, 1e9),
	))

	properties.TestingRun(t)
}

func TestPrintScorecard(t *testing.T) {
	trace := traceFrom([]float64{1e8, 2e8}, []float64{10, 9}, 1e9)
	result, err := ScoreIndices(trace, 0, 1, DefaultScoreConfig())
	require.NoError(t, err)

	var buf bytes.Buffer
	PrintScorecard(&buf, "pdi+ff", result)
	PrintSummary(&buf, []LabeledScore{{Label: "pdi+ff", Result: result}})

	out := buf.String()
	assert.Contains(t, out, "SCORECARD: pdi+ff")
	assert.Contains(t, out, "SCORE SUMMARY")
	assert.Contains(t, out, "max drawdown")
}
