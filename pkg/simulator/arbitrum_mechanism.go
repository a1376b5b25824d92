package simulator

import "math"

// ArbitrumConfig holds configuration for the Arbitrum-style L1 pricer
type ArbitrumConfig struct {
	InitialPriceGwei float64 `json:"initialPriceGwei"`
	Inertia          int     `json:"inertia"`
	EquilUnits       float64 `json:"equilUnits"`
	MinFeeWeiPerGas  float64 `json:"minFeeWeiPerGas"`
	MaxFeeWeiPerGas  float64 `json:"maxFeeWeiPerGas"`
	InitialVaultEth  float64 `json:"initialVaultEth"`
	TargetVaultEth   float64 `json:"targetVaultEth"`
}

// DefaultArbitrumConfig returns the default Arbitrum-style configuration
func DefaultArbitrumConfig() ArbitrumConfig {
	return ArbitrumConfig{
		InitialPriceGwei: 0.001,
		Inertia:          10,
		EquilUnits:       96_000_000,
		MinFeeWeiPerGas:  0.01e9,
		MaxFeeWeiPerGas:  1e9,
	}
}

// ArbitrumMechanism moves its price after each posting toward the rate that
// would drain the vault surplus over EquilUnits of gas
type ArbitrumMechanism struct {
	config ArbitrumConfig

	// State
	priceGwei   float64
	lastSurplus float64
}

// NewArbitrumMechanism creates a new Arbitrum-style mechanism
func NewArbitrumMechanism(cfg ArbitrumConfig) *ArbitrumMechanism {
	if cfg.Inertia < 1 {
		cfg.Inertia = 1
	}
	if cfg.EquilUnits < 1 {
		cfg.EquilUnits = 1
	}
	m := &ArbitrumMechanism{
		config:      cfg,
		lastSurplus: cfg.InitialVaultEth - cfg.TargetVaultEth,
	}
	m.priceGwei = ClampFloat64(cfg.InitialPriceGwei, cfg.MinFeeWeiPerGas/1e9, cfg.MaxFeeWeiPerGas/1e9)
	return m
}

// Quote returns the current price, clamped to the fee bounds
func (m *ArbitrumMechanism) Quote(ControllerInput) FeeBreakdown {
	fee := ClampFloat64(m.priceGwei*1e9, m.config.MinFeeWeiPerGas, m.config.MaxFeeWeiPerGas)
	return FeeBreakdown{
		FeeWeiPerGas: fee,
		Clamp:        ClassifyClamp(fee, m.config.MinFeeWeiPerGas, m.config.MaxFeeWeiPerGas),
	}
}

// Settled updates the price from the surplus and its change per allocated unit
func (m *ArbitrumMechanism) Settled(vaultEth, gasPerProposal float64) {
	units := math.Max(0, gasPerProposal)
	surplus := vaultEth - m.config.TargetVaultEth

	if units > 0 {
		inertiaUnits := m.config.EquilUnits / float64(m.config.Inertia)
		desired := -(surplus * 1e9) / m.config.EquilUnits
		actual := ((surplus - m.lastSurplus) * 1e9) / units
		change := (desired - actual) * units / (inertiaUnits + units)
		m.priceGwei = math.Max(0, m.priceGwei+change)
	}
	m.lastSurplus = surplus
}
