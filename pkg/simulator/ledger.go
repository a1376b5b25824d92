package simulator

// weiPerEth converts wei amounts to ETH
const weiPerEth = 1e18

// breakEvenTolerance absorbs float noise when comparing revenue to cost
const breakEvenTolerance = 1e-12

// VaultState is the solvency ledger at a point in the run
type VaultState struct {
	BalanceEth        float64 `json:"balanceEth"`
	PendingRevenueEth float64 `json:"pendingRevenueEth"`
	TargetEth         float64 `json:"targetEth"`
}

// Settlement records one posting event
type Settlement struct {
	RevenueEth float64 `json:"revenueEth"`
	CostEth    float64 `json:"costEth"`
	PnLEth     float64 `json:"pnlEth"`
	BreakEven  bool    `json:"breakEven"`
	BalanceEth float64 `json:"balanceEth"`
}

// VaultLedger accrues per-block revenue and settles it against posting cost on
// a fixed cadence. The balance only moves at settlement.
type VaultLedger struct {
	state           VaultState
	postEveryBlocks int
}

// NewVaultLedger creates a ledger starting at initialEth
func NewVaultLedger(initialEth, targetEth float64, postEveryBlocks int) *VaultLedger {
	if postEveryBlocks < 1 {
		postEveryBlocks = 1
	}
	return &VaultLedger{
		state: VaultState{
			BalanceEth: initialEth,
			TargetEth:  targetEth,
		},
		postEveryBlocks: postEveryBlocks,
	}
}

// Accrue adds fee * gas of revenue to the pending pool and returns it in ETH
func (l *VaultLedger) Accrue(feeWeiPerGas, gas float64) float64 {
	revenue := feeWeiPerGas * gas / weiPerEth
	l.state.PendingRevenueEth += revenue
	return revenue
}

// ShouldSettle reports whether globalIndex is a posting block
func (l *VaultLedger) ShouldSettle(globalIndex int) bool {
	return (globalIndex+1)%l.postEveryBlocks == 0
}

// Settle moves pending revenue into the balance and deducts the posting cost
func (l *VaultLedger) Settle(costWei float64) Settlement {
	revenue := l.state.PendingRevenueEth
	cost := costWei / weiPerEth

	l.state.PendingRevenueEth = 0
	l.state.BalanceEth += revenue
	l.state.BalanceEth -= cost

	return Settlement{
		RevenueEth: revenue,
		CostEth:    cost,
		PnLEth:     revenue - cost,
		BreakEven:  revenue+breakEvenTolerance >= cost,
		BalanceEth: l.state.BalanceEth,
	}
}

// Balance returns the current vault balance
func (l *VaultLedger) Balance() float64 {
	return l.state.BalanceEth
}

// State returns a copy of the ledger state
func (l *VaultLedger) State() VaultState {
	return l.state
}
