package simulator

import (
	"errors"
	"fmt"

	"github.com/brianbland/l2feesim/pkg/config"
)

// ErrUnknownMechanism is returned for mechanism names that are not recognized
var ErrUnknownMechanism = errors.New("unknown mechanism")

// MechanismType represents the type of fee pricing mechanism
type MechanismType string

const (
	MechanismPID      MechanismType = "pid"
	MechanismEIP1559  MechanismType = "eip1559"
	MechanismArbitrum MechanismType = "arbitrum"
)

// MechanismFactory creates pricing mechanisms from simulation parameters
type MechanismFactory struct{}

// NewMechanismFactory creates a new mechanism factory
func NewMechanismFactory() *MechanismFactory {
	return &MechanismFactory{}
}

// CreateMechanism creates a mechanism for the given simulation parameters
func (f *MechanismFactory) CreateMechanism(params SimulationParams) (Mechanism, error) {
	ctrl := params.Controller

	switch params.Mechanism {
	case MechanismPID, "":
		return NewPIDMechanism(ctrl)

	case MechanismEIP1559:
		cfg := params.EIP1559
		cfg.MinFeeWeiPerGas = ctrl.MinFeeWeiPerGas
		cfg.MaxFeeWeiPerGas = ctrl.MaxFeeWeiPerGas
		cfg.TargetVaultEth = params.TargetVaultEth
		return NewEIP1559Mechanism(cfg), nil

	case MechanismArbitrum:
		cfg := params.Arbitrum
		cfg.MinFeeWeiPerGas = ctrl.MinFeeWeiPerGas
		cfg.MaxFeeWeiPerGas = ctrl.MaxFeeWeiPerGas
		cfg.InitialVaultEth = params.InitialVaultEth
		cfg.TargetVaultEth = params.TargetVaultEth
		return NewArbitrumMechanism(cfg), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMechanism, params.Mechanism)
	}
}

// GetAvailableTypes returns a list of available mechanism types
func (f *MechanismFactory) GetAvailableTypes() []MechanismType {
	return []MechanismType{
		MechanismPID,
		MechanismEIP1559,
		MechanismArbitrum,
	}
}

// GetTypeDescription returns a description for each mechanism type
func (f *MechanismFactory) GetTypeDescription(mechanism MechanismType) string {
	switch mechanism {
	case MechanismPID:
		return "PID Controller - Feedforward L1 cost pass-through plus P/I/D feedback on vault deficit"
	case MechanismEIP1559:
		return "EIP-1559 - Multiplicative fee update at each posting driven by vault deficit"
	case MechanismArbitrum:
		return "Arbitrum - L1 pricer that steers surplus toward zero with inertia"
	default:
		return "Unknown mechanism type"
	}
}

// ParseMechanismType parses a string into a MechanismType
func ParseMechanismType(s string) (MechanismType, error) {
	name, err := config.CanonicalMechanism(s)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrUnknownMechanism, s)
	}
	return MechanismType(name), nil
}
