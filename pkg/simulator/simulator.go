package simulator

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/brianbland/l2feesim/pkg/blockchain"
)

// ErrLengthMismatch is returned when the demand series does not match the samples
var ErrLengthMismatch = errors.New("demand series length does not match samples")

// SimulationParams holds every input of a single simulation run besides the series
type SimulationParams struct {
	Mechanism  MechanismType     `json:"mechanism"`
	Controller ControllerConfig  `json:"controller"`
	Posting    PostingCostParams `json:"posting"`
	EIP1559    EIP1559Config     `json:"eip1559"`
	Arbitrum   ArbitrumConfig    `json:"arbitrum"`

	PostEveryBlocks int     `json:"postEveryBlocks"`
	InitialVaultEth float64 `json:"initialVaultEth"`
	TargetVaultEth  float64 `json:"targetVaultEth"`

	// BlockIndexOffset is the global index of the first sample. Posting
	// cadence is aligned to global indices so a sliced replay settles on the
	// same blocks as the full run.
	BlockIndexOffset int `json:"blockIndexOffset"`
}

// DefaultSimulationParams returns default simulation parameters
func DefaultSimulationParams() SimulationParams {
	return SimulationParams{
		Mechanism:       MechanismPID,
		Controller:      DefaultControllerConfig(),
		Posting:         DefaultPostingCostParams(),
		EIP1559:         DefaultEIP1559Config(),
		Arbitrum:        DefaultArbitrumConfig(),
		PostEveryBlocks: 10,
		InitialVaultEth: 10,
		TargetVaultEth:  10,
	}
}

// Validate checks the simulation parameters
func (p SimulationParams) Validate() error {
	if err := p.Controller.Validate(); err != nil {
		return fmt.Errorf("controller: %w", err)
	}
	if err := p.Posting.Validate(); err != nil {
		return fmt.Errorf("posting: %w", err)
	}
	if p.PostEveryBlocks < 1 {
		return fmt.Errorf("%w: post every blocks (%d) must be positive", ErrInvalidConfig, p.PostEveryBlocks)
	}
	if p.InitialVaultEth < 0 || p.TargetVaultEth < 0 {
		return fmt.Errorf("%w: vault balances (initial=%g, target=%g) must not be negative",
			ErrInvalidConfig, p.InitialVaultEth, p.TargetVaultEth)
	}
	if p.BlockIndexOffset < 0 {
		return fmt.Errorf("%w: block index offset (%d) must not be negative", ErrInvalidConfig, p.BlockIndexOffset)
	}
	return nil
}

// TraceRow is the derived state of one simulated block
type TraceRow struct {
	BlockNumber    int64   `json:"blockNumber"`
	BaseFeeWei     float64 `json:"baseFeeWei"`
	BlobBaseFeeWei float64 `json:"blobBaseFeeWei"`
	GasDemand      float64 `json:"gasDemand"`

	FeeWeiPerGas float64    `json:"feeWeiPerGas"`
	Clamp        ClampState `json:"clamp"`

	NumBlobs       float64 `json:"numBlobs"`
	GasCostWei     float64 `json:"gasCostWei"`
	BlobCostWei    float64 `json:"blobCostWei"`
	PostingCostWei float64 `json:"postingCostWei"`

	// BreakEvenFeeWei is posting cost over the L2 gas of a proposal at this
	// block's demand. Undefined when demand is zero.
	BreakEvenFeeWei  float64 `json:"breakEvenFeeWei"`
	BreakEvenDefined bool    `json:"breakEvenDefined"`

	GasComponentWei  float64 `json:"gasComponentWei"`
	BlobComponentWei float64 `json:"blobComponentWei"`
	FeedforwardWei   float64 `json:"feedforwardWei"`
	PTermWei         float64 `json:"pTermWei"`
	ITermWei         float64 `json:"iTermWei"`
	DTermWei         float64 `json:"dTermWei"`
	FeedbackWei      float64 `json:"feedbackWei"`

	DeficitEth float64 `json:"deficitEth"`
	Epsilon    float64 `json:"epsilon"`
	Integral   float64 `json:"integral"`
	Derivative float64 `json:"derivative"`

	VaultEth   float64     `json:"vaultEth"`
	Settlement *Settlement `json:"settlement,omitempty"`
}

// Trace is the full output of a simulation run
type Trace struct {
	Mechanism       MechanismType `json:"mechanism"`
	Mode            string        `json:"mode"`
	TargetVaultEth  float64       `json:"targetVaultEth"`
	InitialVaultEth float64       `json:"initialVaultEth"`
	MinFeeWeiPerGas float64       `json:"minFeeWeiPerGas"`
	MaxFeeWeiPerGas float64       `json:"maxFeeWeiPerGas"`
	PostEveryBlocks int           `json:"postEveryBlocks"`
	Rows            []TraceRow    `json:"rows"`
}

// Fees returns the charged fee series
func (t *Trace) Fees() []float64 {
	out := make([]float64, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.FeeWeiPerGas
	}
	return out
}

// VaultBalances returns the vault balance series
func (t *Trace) VaultBalances() []float64 {
	out := make([]float64, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.VaultEth
	}
	return out
}

// Settlements returns the number of posting events in the trace
func (t *Trace) Settlements() int {
	var n int
	for _, r := range t.Rows {
		if r.Settlement != nil {
			n++
		}
	}
	return n
}

// Runner drives a pricing mechanism and vault ledger over an L1 fee series
type Runner struct {
	factory *MechanismFactory
	logger  *zap.Logger
}

// NewRunner creates a new runner. A nil logger disables logging.
func NewRunner(logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		factory: NewMechanismFactory(),
		logger:  logger,
	}
}

// Run simulates with a runner that does not log
func Run(samples []blockchain.FeeSample, demand []float64, params SimulationParams) (*Trace, error) {
	return NewRunner(nil).Run(samples, demand, params)
}

// Run simulates every sample in order and returns one trace row per sample
func (r *Runner) Run(samples []blockchain.FeeSample, demand []float64, params SimulationParams) (*Trace, error) {
	if err := blockchain.ValidateSamples(samples); err != nil {
		return nil, err
	}
	if len(demand) != len(samples) {
		return nil, fmt.Errorf("%w: %d demand values for %d samples", ErrLengthMismatch, len(demand), len(samples))
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	mechanism, err := r.factory.CreateMechanism(params)
	if err != nil {
		return nil, err
	}

	ctrl := params.Controller
	fbDelay := ctrl.EffectiveFBDelay()
	ledger := NewVaultLedger(params.InitialVaultEth, params.TargetVaultEth, params.PostEveryBlocks)

	trace := &Trace{
		Mechanism:       params.Mechanism,
		TargetVaultEth:  params.TargetVaultEth,
		InitialVaultEth: params.InitialVaultEth,
		MinFeeWeiPerGas: ctrl.MinFeeWeiPerGas,
		MaxFeeWeiPerGas: ctrl.MaxFeeWeiPerGas,
		PostEveryBlocks: params.PostEveryBlocks,
		Rows:            make([]TraceRow, len(samples)),
	}
	if trace.Mechanism == "" {
		trace.Mechanism = MechanismPID
	}
	if trace.Mechanism == MechanismPID {
		trace.Mode = ctrl.Mode.String()
	}

	for t, sample := range samples {
		ff := samples[ctrl.FeedforwardIndex(t)]

		gas := demand[t]
		if gas < 0 {
			gas = 0
		}
		gasPerProposal := gas * float64(params.PostEveryBlocks)
		cost := params.Posting.Cost(sample.BaseFeeWei, sample.BlobBaseFeeWei, gasPerProposal)

		observed := params.InitialVaultEth
		if fb := t - fbDelay; fb >= 0 {
			observed = trace.Rows[fb].VaultEth
		}
		deficit, eps := NormalizedDeficit(params.TargetVaultEth, observed)

		breakdown := mechanism.Quote(ControllerInput{
			Index:          t,
			BaseFeeWei:     ff.BaseFeeWei,
			BlobBaseFeeWei: ff.BlobBaseFeeWei,
			PriorityFeeWei: params.Posting.PriorityFeeWei,
			DeficitEth:     deficit,
			Epsilon:        eps,
		})

		ledger.Accrue(breakdown.FeeWeiPerGas, gas)

		row := TraceRow{
			BlockNumber:      sample.BlockNumber,
			BaseFeeWei:       sample.BaseFeeWei,
			BlobBaseFeeWei:   sample.BlobBaseFeeWei,
			GasDemand:        gas,
			FeeWeiPerGas:     breakdown.FeeWeiPerGas,
			Clamp:            breakdown.Clamp,
			NumBlobs:         cost.NumBlobs,
			GasCostWei:       cost.GasWei,
			BlobCostWei:      cost.BlobWei,
			PostingCostWei:   cost.TotalWei,
			GasComponentWei:  breakdown.GasComponentWei,
			BlobComponentWei: breakdown.BlobComponentWei,
			FeedforwardWei:   breakdown.FeedforwardWei,
			PTermWei:         breakdown.PTermWei,
			ITermWei:         breakdown.ITermWei,
			DTermWei:         breakdown.DTermWei,
			FeedbackWei:      breakdown.FeedbackWei,
			DeficitEth:       deficit,
			Epsilon:          eps,
			Integral:         breakdown.Integral,
			Derivative:       breakdown.Derivative,
		}
		if gasPerProposal > 0 {
			row.BreakEvenFeeWei = cost.TotalWei / gasPerProposal
			row.BreakEvenDefined = true
		}

		if ledger.ShouldSettle(params.BlockIndexOffset + t) {
			settlement := ledger.Settle(cost.TotalWei)
			row.Settlement = &settlement
			mechanism.Settled(settlement.BalanceEth, gasPerProposal)
		}

		row.VaultEth = ledger.Balance()
		trace.Rows[t] = row
	}

	r.logger.Debug("simulation complete",
		zap.String("mechanism", string(trace.Mechanism)),
		zap.String("mode", trace.Mode),
		zap.Int("blocks", len(trace.Rows)),
		zap.Int("settlements", trace.Settlements()),
		zap.Float64("finalVaultEth", ledger.Balance()),
	)

	return trace, nil
}
