package blockchain

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
)

// FeeSample is one L1 block's fee observation
type FeeSample struct {
	BlockNumber    int64   `json:"blockNumber"`
	BaseFeeWei     float64 `json:"baseFeePerGasWei"`
	BlobBaseFeeWei float64 `json:"baseFeePerBlobGasWei"`
}

// Wei is an integer wei amount that decodes from JSON numbers, decimal strings
// or 0x-prefixed hex strings
type Wei struct {
	uint256.Int
}

// ParseWei parses a decimal or 0x-prefixed hex wei amount
func ParseWei(s string) (*Wei, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return &Wei{}, nil
	}

	var (
		v   *uint256.Int
		err error
	)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err = uint256.FromHex(s)
	} else {
		v, err = uint256.FromDecimal(s)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid wei amount %q: %w", s, err)
	}
	return &Wei{Int: *v}, nil
}

// Float64 returns the nearest float64 to the wei amount
func (w *Wei) Float64() float64 {
	if w.IsUint64() {
		return float64(w.Uint64())
	}
	f, _ := new(big.Float).SetInt(w.ToBig()).Float64()
	return f
}

// UnmarshalJSON implements json.Unmarshaler
func (w *Wei) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "null" {
		w.Clear()
		return nil
	}
	parsed, err := ParseWei(s)
	if err != nil {
		return err
	}
	*w = *parsed
	return nil
}

// MarshalJSON implements json.Marshaler
func (w Wei) MarshalJSON() ([]byte, error) {
	return json.Marshal(w.Dec())
}

// SampleRecord is the on-disk form of a FeeSample with exact integer wei fields
type SampleRecord struct {
	BlockNumber          int64 `json:"blockNumber"`
	BaseFeePerGasWei     Wei   `json:"baseFeePerGasWei"`
	BaseFeePerBlobGasWei Wei   `json:"baseFeePerBlobGasWei"`
}

// Sample converts the record into a FeeSample
func (r SampleRecord) Sample() FeeSample {
	return FeeSample{
		BlockNumber:    r.BlockNumber,
		BaseFeeWei:     r.BaseFeePerGasWei.Float64(),
		BlobBaseFeeWei: r.BaseFeePerBlobGasWei.Float64(),
	}
}

// DataSet represents a stored series of L1 fee samples
type DataSet struct {
	Chain      string         `json:"chain,omitempty"`
	StartBlock int64          `json:"startBlock"`
	EndBlock   int64          `json:"endBlock"`
	Samples    []SampleRecord `json:"samples"`
	FetchedAt  int64          `json:"fetchedAt,omitempty"`
}

// FeeSamples converts every record in the dataset
func (d *DataSet) FeeSamples() []FeeSample {
	samples := make([]FeeSample, len(d.Samples))
	for i, r := range d.Samples {
		samples[i] = r.Sample()
	}
	return samples
}
