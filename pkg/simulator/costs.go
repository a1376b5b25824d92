package simulator

import (
	"fmt"
	"math"
	"strings"

	"github.com/ethereum/go-ethereum/params"
)

// BlobGasPerBlob is the blob gas consumed by one EIP-4844 blob
const BlobGasPerBlob = float64(params.BlobTxBlobGasPerBlob)

// BlobMode selects how many blobs each posting is charged for
type BlobMode string

const (
	BlobModeFixed   BlobMode = "fixed"
	BlobModeDynamic BlobMode = "dynamic"
)

// ParseBlobMode parses a string into a BlobMode
func ParseBlobMode(s string) (BlobMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fixed":
		return BlobModeFixed, nil
	case "dynamic":
		return BlobModeDynamic, nil
	default:
		return "", fmt.Errorf("unknown blob mode: %s", s)
	}
}

// BlobModel estimates blob usage from the L2 gas carried by a posting
type BlobModel struct {
	TxGas               float64 `json:"txGas"`               // Average L2 gas per transaction
	TxBytes             float64 `json:"txBytes"`             // Average serialized bytes per transaction
	BatchOverheadBytes  float64 `json:"batchOverheadBytes"`  // Fixed bytes per batch
	CompressionRatio    float64 `json:"compressionRatio"`    // Uncompressed / compressed
	BlobUtilization     float64 `json:"blobUtilization"`     // Usable fraction of each blob
	MinBlobsPerProposal float64 `json:"minBlobsPerProposal"` // Floor on blobs per posting
}

// DefaultBlobModel returns the default blob model
func DefaultBlobModel() BlobModel {
	return BlobModel{
		TxGas:               70_000,
		TxBytes:             120,
		BatchOverheadBytes:  1200,
		CompressionRatio:    1,
		BlobUtilization:     0.95,
		MinBlobsPerProposal: 1,
	}
}

// EstimateBlobs returns the number of blobs needed for gasPerProposal L2 gas
func (m BlobModel) EstimateBlobs(gasPerProposal float64) float64 {
	minBlobs := math.Max(0, m.MinBlobsPerProposal)
	if !(gasPerProposal > 0) {
		return minBlobs
	}

	txGas := math.Max(1, m.TxGas)
	txBytes := math.Max(0, m.TxBytes)
	overhead := math.Max(0, m.BatchOverheadBytes)
	compression := math.Max(1e-9, m.CompressionRatio)
	utilization := ClampFloat64(m.BlobUtilization, 1e-9, 1)

	txCount := gasPerProposal / txGas
	compressedBytes := (overhead + txCount*txBytes) / compression
	bytesPerBlob := BlobGasPerBlob * utilization

	var blobs float64
	if compressedBytes > 0 {
		blobs = math.Ceil(compressedBytes / bytesPerBlob)
	}
	return math.Max(minBlobs, blobs)
}

// PostingCostParams describes the L1 cost of one batch posting
type PostingCostParams struct {
	L1GasUsed      float64   `json:"l1GasUsed"`
	NumBlobs       float64   `json:"numBlobs"` // Used in fixed blob mode
	PriorityFeeWei float64   `json:"priorityFeeWei"`
	BlobGasPerBlob float64   `json:"blobGasPerBlob"` // Zero means BlobGasPerBlob
	BlobMode       BlobMode  `json:"blobMode"`
	BlobModel      BlobModel `json:"blobModel"`
}

// DefaultPostingCostParams returns the default posting cost parameters
func DefaultPostingCostParams() PostingCostParams {
	return PostingCostParams{
		L1GasUsed:      1_000_000,
		NumBlobs:       2,
		BlobGasPerBlob: BlobGasPerBlob,
		BlobMode:       BlobModeFixed,
		BlobModel:      DefaultBlobModel(),
	}
}

// Validate checks the posting cost parameters
func (p PostingCostParams) Validate() error {
	if p.L1GasUsed < 0 || p.NumBlobs < 0 || p.PriorityFeeWei < 0 || p.BlobGasPerBlob < 0 {
		return fmt.Errorf("%w: posting cost parameters must not be negative", ErrInvalidConfig)
	}
	switch p.BlobMode {
	case "", BlobModeFixed, BlobModeDynamic:
	default:
		return fmt.Errorf("%w: unknown blob mode %q", ErrInvalidConfig, p.BlobMode)
	}
	return nil
}

func (p PostingCostParams) blobGasPerBlob() float64 {
	if p.BlobGasPerBlob > 0 {
		return p.BlobGasPerBlob
	}
	return BlobGasPerBlob
}

// BlobsFor returns the blob count charged for a posting carrying gasPerProposal L2 gas
func (p PostingCostParams) BlobsFor(gasPerProposal float64) float64 {
	if p.BlobMode == BlobModeDynamic {
		return p.BlobModel.EstimateBlobs(gasPerProposal)
	}
	return p.NumBlobs
}

// PostingCost is the L1 cost of one posting, in wei
type PostingCost struct {
	NumBlobs float64 `json:"numBlobs"`
	GasWei   float64 `json:"gasWei"`
	BlobWei  float64 `json:"blobWei"`
	TotalWei float64 `json:"totalWei"`
}

// Cost prices a posting at the given L1 fees
func (p PostingCostParams) Cost(baseFeeWei, blobBaseFeeWei, gasPerProposal float64) PostingCost {
	blobs := p.BlobsFor(gasPerProposal)
	gasWei := p.L1GasUsed * (baseFeeWei + p.PriorityFeeWei)
	blobWei := blobs * p.blobGasPerBlob() * blobBaseFeeWei
	return PostingCost{
		NumBlobs: blobs,
		GasWei:   gasWei,
		BlobWei:  blobWei,
		TotalWei: gasWei + blobWei,
	}
}

// DeriveAutoAlpha returns feedforward coefficients that pass through the
// expected per-posting L1 cost at baseline throughput. Both are 0 when the
// baseline proposal carries no gas.
func DeriveAutoAlpha(p PostingCostParams, baselineGasPerL1Block float64, postEveryBlocks int) (float64, float64) {
	gasPerProposal := baselineGasPerL1Block * float64(postEveryBlocks)
	if !(gasPerProposal > 0) {
		return 0, 0
	}
	alphaGas := p.L1GasUsed / gasPerProposal
	alphaBlob := p.BlobsFor(gasPerProposal) * p.blobGasPerBlob() / gasPerProposal
	return alphaGas, alphaBlob
}
