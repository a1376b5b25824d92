package simulator

import (
	"github.com/brianbland/l2feesim/pkg/config"
	"github.com/brianbland/l2feesim/pkg/scenarios"
)

const weiPerGwei = 1e9

// ConvertToControllerConfig converts config.Config to ControllerConfig
func ConvertToControllerConfig(cfg *config.Config) (ControllerConfig, error) {
	mode, err := ParseControllerMode(cfg.ControllerMode)
	if err != nil {
		return ControllerConfig{}, err
	}
	return ControllerConfig{
		Mode:            mode,
		AlphaGas:        cfg.AlphaGas,
		AlphaBlob:       cfg.AlphaBlob,
		Kp:              cfg.Kp,
		Ki:              cfg.Ki,
		Kd:              cfg.Kd,
		PFloorWeiPerGas: cfg.PFloorGwei * weiPerGwei,
		IMin:            cfg.IMin,
		IMax:            cfg.IMax,
		DerivativeBeta:  cfg.DerivativeBeta,
		FFDelayBlocks:   cfg.FFDelayBlocks,
		FBDelayBlocks:   cfg.FBDelayBlocks,
		MinFeeWeiPerGas: cfg.MinFeeGwei * weiPerGwei,
		MaxFeeWeiPerGas: cfg.MaxFeeGwei * weiPerGwei,
	}, nil
}

// ConvertToPostingCostParams converts config.Config to PostingCostParams
func ConvertToPostingCostParams(cfg *config.Config) (PostingCostParams, error) {
	blobMode, err := ParseBlobMode(cfg.BlobMode)
	if err != nil {
		return PostingCostParams{}, err
	}
	return PostingCostParams{
		L1GasUsed:      cfg.L1GasUsed,
		NumBlobs:       cfg.NumBlobs,
		PriorityFeeWei: cfg.PriorityFeeGwei * weiPerGwei,
		BlobGasPerBlob: BlobGasPerBlob,
		BlobMode:       blobMode,
		BlobModel: BlobModel{
			TxGas:               cfg.TxGas,
			TxBytes:             cfg.TxBytes,
			BatchOverheadBytes:  cfg.BatchOverheadBytes,
			CompressionRatio:    cfg.CompressionRatio,
			BlobUtilization:     cfg.BlobUtilization,
			MinBlobsPerProposal: cfg.MinBlobsPerProposal,
		},
	}, nil
}

// ParamsFromConfig builds simulation parameters and the demand scalars they
// were derived from. With AutoAlpha set, alpha coefficients are derived from
// posting cost at the unscaled baseline throughput.
func ParamsFromConfig(cfg *config.Config) (SimulationParams, scenarios.DemandScalars, error) {
	mechanism, err := ParseMechanismType(cfg.Mechanism)
	if err != nil {
		return SimulationParams{}, scenarios.DemandScalars{}, err
	}
	regime, err := scenarios.ParseDemandRegime(cfg.DemandRegime)
	if err != nil {
		return SimulationParams{}, scenarios.DemandScalars{}, err
	}
	ctrl, err := ConvertToControllerConfig(cfg)
	if err != nil {
		return SimulationParams{}, scenarios.DemandScalars{}, err
	}
	posting, err := ConvertToPostingCostParams(cfg)
	if err != nil {
		return SimulationParams{}, scenarios.DemandScalars{}, err
	}

	scalars := scenarios.DeriveDemandScalars(cfg.L2GasPerL2Block, cfg.L2BlockTimeSec, regime, cfg.PostEveryBlocks)
	if cfg.AutoAlpha {
		ctrl.AlphaGas, ctrl.AlphaBlob = DeriveAutoAlpha(posting, scalars.BaseGasPerL1Block, cfg.PostEveryBlocks)
	}

	params := SimulationParams{
		Mechanism:  mechanism,
		Controller: ctrl,
		Posting:    posting,
		EIP1559: EIP1559Config{
			Denominator: cfg.EIP1559Denominator,
		},
		Arbitrum: ArbitrumConfig{
			InitialPriceGwei: cfg.ArbInitialPriceGwei,
			Inertia:          cfg.ArbInertia,
			EquilUnits:       cfg.ArbEquilUnits,
		},
		PostEveryBlocks: cfg.PostEveryBlocks,
		InitialVaultEth: cfg.InitialVaultEth,
		TargetVaultEth:  cfg.TargetVaultEth,
	}
	if err := params.Validate(); err != nil {
		return SimulationParams{}, scenarios.DemandScalars{}, err
	}
	return params, scalars, nil
}
