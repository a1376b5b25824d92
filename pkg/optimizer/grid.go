package optimizer

import (
	"fmt"

	"github.com/brianbland/l2feesim/pkg/simulator"
)

// AlphaVariant selects the feedforward coefficients a candidate runs with
type AlphaVariant string

const (
	AlphaCurrent AlphaVariant = "current" // Keep the configured alphas
	AlphaZero    AlphaVariant = "zero"    // Pure feedback, both alphas 0
)

// Grid is the set of values swept per controller parameter
type Grid struct {
	Modes         []simulator.ControllerMode `json:"modes"`
	Kp            []float64                  `json:"kp"`
	Ki            []float64                  `json:"ki"`
	Kd            []float64                  `json:"kd"`
	IMax          []float64                  `json:"iMax"`
	AlphaVariants []AlphaVariant             `json:"alphaVariants"`
}

// DefaultGrid returns the default sweep grid of 864 candidates
func DefaultGrid() Grid {
	return Grid{
		Modes:         []simulator.ControllerMode{simulator.ModePDI, simulator.ModePDIFF},
		Kp:            []float64{0, 0.02, 0.05, 0.1, 0.2, 0.4, 0.8, 1.6},
		Ki:            []float64{0, 0.001, 0.003, 0.01, 0.03, 0.1, 0.2, 0.5, 1},
		Kd:            []float64{0},
		IMax:          []float64{5, 10, 100},
		AlphaVariants: []AlphaVariant{AlphaCurrent, AlphaZero},
	}
}

// Size returns the number of candidates in the grid
func (g Grid) Size() int {
	return len(g.Modes) * len(g.Kp) * len(g.Ki) * len(g.Kd) * len(g.IMax) * len(g.AlphaVariants)
}

// Validate checks that the grid only holds values a controller accepts
func (g Grid) Validate() error {
	for _, mode := range g.Modes {
		if !mode.Valid() {
			return fmt.Errorf("%w: %v", simulator.ErrUnknownMode, mode)
		}
	}
	for _, values := range [][]float64{g.Kp, g.Ki, g.Kd, g.IMax} {
		for _, v := range values {
			if v < 0 {
				return fmt.Errorf("%w: grid values must not be negative (%g)", simulator.ErrInvalidConfig, v)
			}
		}
	}
	for _, variant := range g.AlphaVariants {
		if variant != AlphaCurrent && variant != AlphaZero {
			return fmt.Errorf("%w: unknown alpha variant %q", simulator.ErrInvalidConfig, variant)
		}
	}
	return nil
}

// Candidates enumerates the grid in mode, kp, ki, kd, i_max, alpha order
func (g Grid) Candidates() []Candidate {
	candidates := make([]Candidate, 0, g.Size())
	for _, mode := range g.Modes {
		for _, kp := range g.Kp {
			for _, ki := range g.Ki {
				for _, kd := range g.Kd {
					for _, iMax := range g.IMax {
						for _, alpha := range g.AlphaVariants {
							candidates = append(candidates, Candidate{
								Mode:  mode,
								Kp:    kp,
								Ki:    ki,
								Kd:    kd,
								IMax:  iMax,
								Alpha: alpha,
							})
						}
					}
				}
			}
		}
	}
	return candidates
}

// Candidate is one point of the sweep grid
type Candidate struct {
	Mode  simulator.ControllerMode `json:"mode"`
	Kp    float64                  `json:"kp"`
	Ki    float64                  `json:"ki"`
	Kd    float64                  `json:"kd"`
	IMax  float64                  `json:"iMax"`
	Alpha AlphaVariant             `json:"alpha"`
}

// Apply overlays the candidate on a base controller configuration. The
// integral lower bound and every other field come from base.
func (c Candidate) Apply(base simulator.ControllerConfig) simulator.ControllerConfig {
	cfg := base
	cfg.Mode = c.Mode
	cfg.Kp = c.Kp
	cfg.Ki = c.Ki
	cfg.Kd = c.Kd
	cfg.IMax = c.IMax
	if c.Alpha == AlphaZero {
		cfg.AlphaGas = 0
		cfg.AlphaBlob = 0
	}
	return cfg
}

func (c Candidate) String() string {
	return fmt.Sprintf("mode=%s kp=%g ki=%g kd=%g i_max=%g alpha=%s", c.Mode, c.Kp, c.Ki, c.Kd, c.IMax, c.Alpha)
}
