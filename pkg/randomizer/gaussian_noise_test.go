package randomizer_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brianbland/l2feesim/pkg/randomizer"
)

func TestLCGIsDeterministic(t *testing.T) {
	a := randomizer.NewLCG(0x1234abcd)
	b := randomizer.NewLCG(0x1234abcd)

	for i := 0; i < 1000; i++ {
		va, vb := a.Float64(), b.Float64()
		require.Equal(t, va, vb, "draw %d diverged", i)
		require.GreaterOrEqual(t, va, 0.0)
		require.Less(t, va, 1.0)
	}
}

func TestLCGFirstDraw(t *testing.T) {
	g := randomizer.NewLCG(0)
	// state becomes the increment after one step from zero
	assert.Equal(t, 1013904223.0/4294967296.0, g.Float64())
}

func TestLCGSeedResets(t *testing.T) {
	g := randomizer.NewLCG(42)
	first := g.Float64()
	g.Float64()
	g.Seed(42)
	assert.Equal(t, first, g.Float64())
}

func TestGaussian(t *testing.T) {
	src := randomizer.NewLCG(12345)

	const n = 20000
	var sum, sumSquares float64
	for i := 0; i < n; i++ {
		v := randomizer.Gaussian(src)
		require.False(t, math.IsNaN(v) || math.IsInf(v, 0), "draw %d not finite", i)
		sum += v
		sumSquares += v * v
	}

	mean := sum / n
	std := math.Sqrt(sumSquares/n - mean*mean)
	assert.InDelta(t, 0, mean, 0.05)
	assert.InDelta(t, 1, std, 0.05)
}

func TestGaussianConsumesTwoDraws(t *testing.T) {
	a := randomizer.NewLCG(99)
	b := randomizer.NewLCG(99)

	randomizer.Gaussian(a)
	b.Float64()
	b.Float64()
	assert.Equal(t, b.Float64(), a.Float64())
}

func TestAR1ProcessStaysInBand(t *testing.T) {
	params := randomizer.AR1Params{Rho: 0.9, Sigma: 0.16, JumpProb: 0.035, JumpSigma: 0.45, Lo: 0.25, Hi: 3.5}
	p := randomizer.NewAR1Process(randomizer.NewLCG(7), params)

	for i := 0; i < 5000; i++ {
		m := p.Next()
		if m < params.Lo || m > params.Hi {
			t.Fatalf("multiplier %f at step %d outside [%f, %f]", m, i, params.Lo, params.Hi)
		}
	}
}

func TestAR1ProcessZeroSigmaIsFlat(t *testing.T) {
	p := randomizer.NewAR1Process(randomizer.NewLCG(7), randomizer.AR1Params{Rho: 0.9, Lo: 0.5, Hi: 2})
	for i := 0; i < 100; i++ {
		assert.Equal(t, 1.0, p.Next())
	}
}
