package scenarios

import (
	"fmt"
	"strings"
)

// L1BlockTimeSeconds is the L1 slot time used to convert L2 throughput
const L1BlockTimeSeconds = 12.0

// DemandRegime scales baseline throughput to model quieter or busier periods
type DemandRegime string

const (
	RegimeLow  DemandRegime = "low"
	RegimeBase DemandRegime = "base"
	RegimeHigh DemandRegime = "high"
)

// Multiplier returns the throughput multiplier for the regime. Unknown regimes
// behave like base.
func (r DemandRegime) Multiplier() float64 {
	switch r {
	case RegimeLow:
		return 0.7
	case RegimeHigh:
		return 1.4
	default:
		return 1.0
	}
}

// ParseDemandRegime parses a string into a DemandRegime
func ParseDemandRegime(s string) (DemandRegime, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return RegimeLow, nil
	case "", "base":
		return RegimeBase, nil
	case "high":
		return RegimeHigh, nil
	default:
		return "", fmt.Errorf("unknown demand regime: %s", s)
	}
}

// DemandScalars holds throughput figures derived from L2 chain parameters
type DemandScalars struct {
	Multiplier         float64 `json:"multiplier"`
	L2BlocksPerL1Block float64 `json:"l2BlocksPerL1Block"`
	BaseGasPerL1Block  float64 `json:"baseGasPerL1Block"`
	// TargetGasPerL1Block is the regime-adjusted baseline the demand series is built around
	TargetGasPerL1Block float64 `json:"targetGasPerL1Block"`
	BaseGasPerProposal  float64 `json:"baseGasPerProposal"`
}

// DeriveDemandScalars converts per-L2-block gas and block time into per-L1-block figures
func DeriveDemandScalars(l2GasPerL2Block, l2BlockTimeSec float64, regime DemandRegime, postEveryBlocks int) DemandScalars {
	var l2BlocksPerL1Block float64
	if l2BlockTimeSec > 0 {
		l2BlocksPerL1Block = L1BlockTimeSeconds / l2BlockTimeSec
	}

	base := l2GasPerL2Block * l2BlocksPerL1Block
	multiplier := regime.Multiplier()

	return DemandScalars{
		Multiplier:          multiplier,
		L2BlocksPerL1Block:  l2BlocksPerL1Block,
		BaseGasPerL1Block:   base,
		TargetGasPerL1Block: base * multiplier,
		BaseGasPerProposal:  base * float64(postEveryBlocks),
	}
}
