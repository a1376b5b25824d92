package simulator

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidConfig is returned when a configuration violates its numeric invariants
var ErrInvalidConfig = errors.New("invalid configuration")

// ControllerConfig holds configuration for the feedforward + PID fee controller
type ControllerConfig struct {
	Mode ControllerMode `json:"mode"`

	// Feedforward cost pass-through coefficients per L2 gas
	AlphaGas  float64 `json:"alphaGas"`
	AlphaBlob float64 `json:"alphaBlob"`

	// PID parameters
	Kp float64 `json:"kp"` // Proportional gain
	Ki float64 `json:"ki"` // Integral gain
	Kd float64 `json:"kd"` // Derivative gain

	PFloorWeiPerGas float64 `json:"pFloorWeiPerGas"` // Lower bound on the P term when P is active

	// Integral windup prevention
	IMin float64 `json:"iMin"`
	IMax float64 `json:"iMax"`

	DerivativeBeta float64 `json:"derivativeBeta"` // EMA weight on the previous filtered derivative

	FFDelayBlocks int `json:"ffDelayBlocks"` // Input delay on L1 prices
	FBDelayBlocks int `json:"fbDelayBlocks"` // Observation delay on the vault balance

	// Output limits
	MinFeeWeiPerGas float64 `json:"minFeeWeiPerGas"`
	MaxFeeWeiPerGas float64 `json:"maxFeeWeiPerGas"`
}

// DefaultControllerConfig returns the default controller configuration
func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		Mode:            ModeFF,
		IMin:            -5,
		IMax:            5,
		DerivativeBeta:  0.8,
		FFDelayBlocks:   5,
		FBDelayBlocks:   5,
		MinFeeWeiPerGas: 0.01e9, // 0.01 gwei
		MaxFeeWeiPerGas: 1e9,    // 1 gwei
	}
}

// Validate checks the configuration invariants
func (c ControllerConfig) Validate() error {
	if !c.Mode.Valid() {
		return fmt.Errorf("%w: %v", ErrUnknownMode, c.Mode)
	}

	nonNegative := []struct {
		name  string
		value float64
	}{
		{"alpha gas", c.AlphaGas},
		{"alpha blob", c.AlphaBlob},
		{"kp", c.Kp},
		{"ki", c.Ki},
		{"kd", c.Kd},
		{"min fee", c.MinFeeWeiPerGas},
	}
	for _, f := range nonNegative {
		if f.value < 0 || math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%w: %s (%g) must be finite and non-negative", ErrInvalidConfig, f.name, f.value)
		}
	}

	if c.MinFeeWeiPerGas > c.MaxFeeWeiPerGas {
		return fmt.Errorf("%w: min fee (%g) must be <= max fee (%g)",
			ErrInvalidConfig, c.MinFeeWeiPerGas, c.MaxFeeWeiPerGas)
	}

	if c.IMin > c.IMax {
		return fmt.Errorf("%w: i_min (%g) must be <= i_max (%g)", ErrInvalidConfig, c.IMin, c.IMax)
	}

	// The integral starts at and resets to zero, so zero must be inside the bounds.
	if c.IMin > 0 || c.IMax < 0 {
		return fmt.Errorf("%w: integral bounds [%g, %g] must contain 0", ErrInvalidConfig, c.IMin, c.IMax)
	}

	if c.DerivativeBeta < 0 || c.DerivativeBeta > 1 {
		return fmt.Errorf("%w: derivative beta (%g) must be between 0 and 1", ErrInvalidConfig, c.DerivativeBeta)
	}

	if c.FFDelayBlocks < 0 || c.FBDelayBlocks < 0 {
		return fmt.Errorf("%w: delays (ff=%d, fb=%d) must not be negative",
			ErrInvalidConfig, c.FFDelayBlocks, c.FBDelayBlocks)
	}

	return nil
}

// EffectiveFBDelay returns the feedback delay actually applied. The balance
// for block t is only known after block t is priced, so the delay is at least 1.
func (c ControllerConfig) EffectiveFBDelay() int {
	if c.FBDelayBlocks < 1 {
		return 1
	}
	return c.FBDelayBlocks
}

// FeedforwardIndex returns the sample index read for feedforward pricing at block t
func (c ControllerConfig) FeedforwardIndex(t int) int {
	if idx := t - c.FFDelayBlocks; idx > 0 {
		return idx
	}
	return 0
}

// FeeRange returns max_fee - min_fee, the scale applied to every feedback term
func (c ControllerConfig) FeeRange() float64 {
	return c.MaxFeeWeiPerGas - c.MinFeeWeiPerGas
}

// ControllerState is the per-block state threaded through FeeController.Step
type ControllerState struct {
	Integral           float64 `json:"integral"`
	PrevEpsilon        float64 `json:"prevEpsilon"`
	FilteredDerivative float64 `json:"filteredDerivative"`
}

// FeeController implements a feedforward cost pass-through plus PID feedback on
// the normalized vault deficit
type FeeController struct {
	config ControllerConfig
	terms  TermSet
}

// NewFeeController creates a new fee controller
func NewFeeController(cfg ControllerConfig) (*FeeController, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &FeeController{
		config: cfg,
		terms:  cfg.Mode.Terms(),
	}, nil
}

// Config returns the controller configuration
func (c *FeeController) Config() ControllerConfig {
	return c.config
}

// Step prices one block. It does not mutate the controller or st.
func (c *FeeController) Step(in ControllerInput, st ControllerState) (FeeBreakdown, ControllerState) {
	cfg := c.config
	next := st

	var gasComponent, blobComponent float64
	if c.terms.Feedforward {
		gasComponent = cfg.AlphaGas * (in.BaseFeeWei + in.PriorityFeeWei)
		blobComponent = cfg.AlphaBlob * in.BlobBaseFeeWei
	}
	feedforward := gasComponent + blobComponent

	eps := in.Epsilon

	if c.terms.I {
		next.Integral = ClampFloat64(st.Integral+eps, cfg.IMin, cfg.IMax)
	} else {
		next.Integral = 0
	}

	var de float64
	if in.Index > 0 {
		de = eps - st.PrevEpsilon
	}
	next.FilteredDerivative = cfg.DerivativeBeta*st.FilteredDerivative + (1-cfg.DerivativeBeta)*de
	next.PrevEpsilon = eps

	feeRange := cfg.FeeRange()

	var pTerm, iTerm, dTerm float64
	if c.terms.P {
		pTerm = math.Max(cfg.PFloorWeiPerGas, cfg.Kp*eps*feeRange)
	}
	if c.terms.I {
		iTerm = cfg.Ki * next.Integral * feeRange
	}
	if c.terms.D {
		dTerm = cfg.Kd * next.FilteredDerivative * feeRange
	}
	feedback := pTerm + iTerm + dTerm

	fee := ClampFloat64(feedforward+feedback, cfg.MinFeeWeiPerGas, cfg.MaxFeeWeiPerGas)

	return FeeBreakdown{
		FeeWeiPerGas:     fee,
		GasComponentWei:  gasComponent,
		BlobComponentWei: blobComponent,
		FeedforwardWei:   feedforward,
		PTermWei:         pTerm,
		ITermWei:         iTerm,
		DTermWei:         dTerm,
		FeedbackWei:      feedback,
		Integral:         next.Integral,
		Derivative:       next.FilteredDerivative,
		Clamp:            ClassifyClamp(fee, cfg.MinFeeWeiPerGas, cfg.MaxFeeWeiPerGas),
	}, next
}

// pidMechanism adapts a FeeController to the Mechanism interface
type pidMechanism struct {
	controller *FeeController
	state      ControllerState
}

// NewPIDMechanism creates a mechanism backed by a FeeController
func NewPIDMechanism(cfg ControllerConfig) (Mechanism, error) {
	controller, err := NewFeeController(cfg)
	if err != nil {
		return nil, err
	}
	return &pidMechanism{controller: controller}, nil
}

func (m *pidMechanism) Quote(in ControllerInput) FeeBreakdown {
	breakdown, next := m.controller.Step(in, m.state)
	m.state = next
	return breakdown
}

// Settled is a no-op: the PID controller observes the vault through its feedback delay line
func (m *pidMechanism) Settled(float64, float64) {}
