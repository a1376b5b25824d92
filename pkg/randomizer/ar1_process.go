package randomizer

import "math"

// AR1Params configures a mean-reverting log-multiplier process with optional jumps
type AR1Params struct {
	Rho       float64 // Persistence of the log multiplier
	Sigma     float64 // Per-step innovation scale
	JumpProb  float64 // Probability of a jump on each step
	JumpSigma float64 // Scale of a jump when one occurs
	Lo        float64 // Lower clamp on the multiplier
	Hi        float64 // Upper clamp on the multiplier
}

// AR1Process evolves x_i = rho*x_{i-1} + sigma*z_i on log(multiplier)
type AR1Process struct {
	src    Source
	params AR1Params

	// State
	x float64
}

// NewAR1Process creates a new process starting at x = 0 (multiplier 1)
func NewAR1Process(src Source, params AR1Params) *AR1Process {
	return &AR1Process{
		src:    src,
		params: params,
	}
}

// Next advances the process and returns the clamped multiplier exp(x)
func (p *AR1Process) Next() float64 {
	p.x = p.params.Rho*p.x + p.params.Sigma*Gaussian(p.src)
	if p.params.JumpProb > 0 && p.src.Float64() < p.params.JumpProb {
		p.x += p.params.JumpSigma * Gaussian(p.src)
	}

	m := math.Exp(p.x)
	if m < p.params.Lo {
		return p.params.Lo
	}
	if m > p.params.Hi {
		return p.params.Hi
	}
	return m
}
