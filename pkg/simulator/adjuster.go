package simulator

// ClampState reports whether a charged fee sits on one of its bounds
type ClampState string

const (
	ClampNone ClampState = "none"
	ClampMin  ClampState = "min"
	ClampMax  ClampState = "max"
)

// clampTolerance is the wei slack used when classifying a fee as clamped
const clampTolerance = 1e-9

// ClassifyClamp returns the clamp state of fee within [minFee, maxFee]
func ClassifyClamp(fee, minFee, maxFee float64) ClampState {
	if fee <= minFee+clampTolerance {
		return ClampMin
	}
	if fee >= maxFee-clampTolerance {
		return ClampMax
	}
	return ClampNone
}

// FeeBreakdown is the per-block output of a pricing mechanism
type FeeBreakdown struct {
	FeeWeiPerGas     float64    `json:"feeWeiPerGas"`
	GasComponentWei  float64    `json:"gasComponentWei"`
	BlobComponentWei float64    `json:"blobComponentWei"`
	FeedforwardWei   float64    `json:"feedforwardWei"`
	PTermWei         float64    `json:"pTermWei"`
	ITermWei         float64    `json:"iTermWei"`
	DTermWei         float64    `json:"dTermWei"`
	FeedbackWei      float64    `json:"feedbackWei"`
	Integral         float64    `json:"integral"`
	Derivative       float64    `json:"derivative"`
	Clamp            ClampState `json:"clamp"`
}

// ControllerInput carries everything a mechanism may read when pricing block t
type ControllerInput struct {
	Index          int     // Local block index within the run
	BaseFeeWei     float64 // Feedforward L1 base fee (already delayed)
	BlobBaseFeeWei float64 // Feedforward L1 blob base fee (already delayed)
	PriorityFeeWei float64
	DeficitEth     float64 // target - observed vault balance
	Epsilon        float64 // Deficit normalized by target
}

// Mechanism is the interface that all L2 fee pricing mechanisms must implement
type Mechanism interface {
	// Quote prices the current block and advances per-block state
	Quote(in ControllerInput) FeeBreakdown

	// Settled is called after every posting settlement with the new vault balance
	Settled(vaultEth, gasPerProposal float64)
}

// NormalizedDeficit returns the vault deficit and its ratio to target.
// The ratio is 0 when target is not positive.
func NormalizedDeficit(targetEth, observedEth float64) (float64, float64) {
	deficit := targetEth - observedEth
	if targetEth <= 0 {
		return deficit, 0
	}
	return deficit, deficit / targetEth
}

// ClampFloat64 ensures value is within the specified bounds
func ClampFloat64(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
