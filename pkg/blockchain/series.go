package blockchain

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	// ErrEmptySeries is returned when a sample series has no entries
	ErrEmptySeries = errors.New("sample series is empty")

	// ErrNonMonotonic is returned when block numbers are not strictly ascending
	ErrNonMonotonic = errors.New("block numbers must be strictly ascending")

	// ErrInvalidFee is returned for negative or non-finite fee values
	ErrInvalidFee = errors.New("fee values must be finite and non-negative")

	// ErrInvalidRange is returned when a block range maps to no samples
	ErrInvalidRange = errors.New("invalid block range")
)

// ValidateSamples checks that samples are non-empty, strictly ascending by
// block number and carry finite non-negative fees. Gaps are allowed.
func ValidateSamples(samples []FeeSample) error {
	if len(samples) == 0 {
		return ErrEmptySeries
	}

	for i, s := range samples {
		if !validFee(s.BaseFeeWei) || !validFee(s.BlobBaseFeeWei) {
			return fmt.Errorf("%w: block %d at index %d", ErrInvalidFee, s.BlockNumber, i)
		}
		if i > 0 && s.BlockNumber <= samples[i-1].BlockNumber {
			return fmt.Errorf("%w: block %d follows %d at index %d",
				ErrNonMonotonic, s.BlockNumber, samples[i-1].BlockNumber, i)
		}
	}

	return nil
}

func validFee(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// ValidateDataSet performs validation checks on a dataset
func ValidateDataSet(dataset *DataSet) error {
	if dataset == nil {
		return fmt.Errorf("dataset is nil")
	}

	if len(dataset.Samples) == 0 {
		return fmt.Errorf("dataset contains no samples: %w", ErrEmptySeries)
	}

	first := dataset.Samples[0].BlockNumber
	last := dataset.Samples[len(dataset.Samples)-1].BlockNumber
	if first != dataset.StartBlock || last != dataset.EndBlock {
		return fmt.Errorf("dataset bounds mismatch: header [%d, %d], samples [%d, %d]",
			dataset.StartBlock, dataset.EndBlock, first, last)
	}

	return ValidateSamples(dataset.FeeSamples())
}

// IndexRange maps an inclusive block range onto the inclusive index interval
// of samples whose block numbers fall inside it. Samples must be ascending.
func IndexRange(samples []FeeSample, minBlock, maxBlock int64) (int, int, error) {
	if minBlock > maxBlock {
		return 0, 0, fmt.Errorf("%w: min block %d > max block %d", ErrInvalidRange, minBlock, maxBlock)
	}

	i0 := sort.Search(len(samples), func(i int) bool {
		return samples[i].BlockNumber >= minBlock
	})
	i1 := sort.Search(len(samples), func(i int) bool {
		return samples[i].BlockNumber > maxBlock
	}) - 1

	if i0 >= len(samples) || i1 < i0 {
		return 0, 0, fmt.Errorf("%w: no samples in [%d, %d]", ErrInvalidRange, minBlock, maxBlock)
	}

	return i0, i1, nil
}
