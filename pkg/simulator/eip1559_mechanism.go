package simulator

import "math"

// EIP1559Config holds configuration for the vault-driven EIP-1559 style mechanism
type EIP1559Config struct {
	Denominator     int     `json:"denominator"` // Max change denominator (8 = 12.5% per unit error)
	MinFeeWeiPerGas float64 `json:"minFeeWeiPerGas"`
	MaxFeeWeiPerGas float64 `json:"maxFeeWeiPerGas"`
	TargetVaultEth  float64 `json:"targetVaultEth"`
}

// DefaultEIP1559Config returns the default EIP-1559 configuration
func DefaultEIP1559Config() EIP1559Config {
	return EIP1559Config{
		Denominator:     8,
		MinFeeWeiPerGas: 0.01e9,
		MaxFeeWeiPerGas: 1e9,
	}
}

// Error ratio bounds applied before each update
const (
	eip1559MinErrorRatio = -8
	eip1559MaxErrorRatio = 1
)

// EIP1559Mechanism holds a fee that moves multiplicatively after every posting
// in proportion to the vault deficit
type EIP1559Mechanism struct {
	config EIP1559Config
	fee    float64
}

// NewEIP1559Mechanism creates a new EIP-1559 style mechanism starting at the minimum fee
func NewEIP1559Mechanism(cfg EIP1559Config) *EIP1559Mechanism {
	if cfg.Denominator < 1 {
		cfg.Denominator = 1
	}
	return &EIP1559Mechanism{
		config: cfg,
		fee:    cfg.MinFeeWeiPerGas,
	}
}

// Quote returns the current fee; it only changes at settlement
func (m *EIP1559Mechanism) Quote(ControllerInput) FeeBreakdown {
	fee := ClampFloat64(m.fee, m.config.MinFeeWeiPerGas, m.config.MaxFeeWeiPerGas)
	return FeeBreakdown{
		FeeWeiPerGas: fee,
		Clamp:        ClassifyClamp(fee, m.config.MinFeeWeiPerGas, m.config.MaxFeeWeiPerGas),
	}
}

// Settled adjusts the fee by 1 + clamp(deficit/target, -8, 1) / denominator
func (m *EIP1559Mechanism) Settled(vaultEth, _ float64) {
	target := m.config.TargetVaultEth
	if target <= 0 {
		m.fee = ClampFloat64(m.fee, m.config.MinFeeWeiPerGas, m.config.MaxFeeWeiPerGas)
		return
	}

	errorRatio := ClampFloat64((target-vaultEth)/target, eip1559MinErrorRatio, eip1559MaxErrorRatio)
	next := m.fee * (1 + errorRatio/float64(m.config.Denominator))
	if math.IsNaN(next) || math.IsInf(next, 0) {
		return
	}
	m.fee = ClampFloat64(next, m.config.MinFeeWeiPerGas, m.config.MaxFeeWeiPerGas)
}
