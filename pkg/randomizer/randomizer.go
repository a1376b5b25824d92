package randomizer

// Source is a deterministic stream of uniform values in [0, 1)
type Source interface {
	Float64() float64
}

// LCG is a 32-bit linear congruential generator. Two generators built from the
// same seed produce identical streams on every platform.
type LCG struct {
	state uint32
}

const (
	lcgMultiplier uint32 = 1664525
	lcgIncrement  uint32 = 1013904223
	lcgModulus           = 4294967296.0
)

// NewLCG creates a new generator seeded with seed
func NewLCG(seed uint32) *LCG {
	return &LCG{state: seed}
}

// Float64 advances the generator and returns the next value in [0, 1)
func (g *LCG) Float64() float64 {
	g.state = lcgMultiplier*g.state + lcgIncrement
	return float64(g.state) / lcgModulus
}

// Seed resets the generator state
func (g *LCG) Seed(seed uint32) {
	g.state = seed
}
