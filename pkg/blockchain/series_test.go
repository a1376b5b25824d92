package blockchain

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplesFor(blocks ...int64) []FeeSample {
	samples := make([]FeeSample, len(blocks))
	for i, b := range blocks {
		samples[i] = FeeSample{BlockNumber: b, BaseFeeWei: 20e9, BlobBaseFeeWei: 1e9}
	}
	return samples
}

func TestValidateSamples(t *testing.T) {
	tests := []struct {
		name    string
		samples []FeeSample
		wantErr error
	}{
		{"empty", nil, ErrEmptySeries},
		{"duplicate", samplesFor(100, 101, 101), ErrNonMonotonic},
		{"descending", samplesFor(100, 99), ErrNonMonotonic},
		{"negative fee", []FeeSample{{BlockNumber: 1, BaseFeeWei: -1}}, ErrInvalidFee},
		{"gaps allowed", samplesFor(100, 105, 200), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSamples(tt.samples)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "expected %v, got %v", tt.wantErr, err)
		})
	}
}

func TestValidateDataSet(t *testing.T) {
	record := func(b int64) SampleRecord {
		return SampleRecord{BlockNumber: b}
	}

	tests := []struct {
		name      string
		dataset   *DataSet
		expectErr bool
	}{
		{
			name:      "nil dataset",
			dataset:   nil,
			expectErr: true,
		},
		{
			name:      "empty samples",
			dataset:   &DataSet{StartBlock: 100, EndBlock: 100},
			expectErr: true,
		},
		{
			name: "bounds mismatch",
			dataset: &DataSet{
				StartBlock: 100,
				EndBlock:   102,
				Samples:    []SampleRecord{record(100)},
			},
			expectErr: true,
		},
		{
			name: "out of order",
			dataset: &DataSet{
				StartBlock: 100,
				EndBlock:   102,
				Samples:    []SampleRecord{record(100), record(103), record(102)},
			},
			expectErr: true,
		},
		{
			name: "valid dataset with gap",
			dataset: &DataSet{
				StartBlock: 100,
				EndBlock:   103,
				Samples:    []SampleRecord{record(100), record(101), record(103)},
			},
			expectErr: false,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := ValidateDataSet(test.dataset)

			if test.expectErr && err == nil {
				t.Errorf("Expected error for test %s, but got none", test.name)
			}

			if !test.expectErr && err != nil {
				t.Errorf("Unexpected error for test %s: %v", test.name, err)
			}
		})
	}
}

func TestIndexRange(t *testing.T) {
	samples := samplesFor(10, 20, 30, 40, 50)

	tests := []struct {
		name     string
		min, max int64
		i0, i1   int
		wantErr  bool
	}{
		{"full", 0, 100, 0, 4, false},
		{"exact", 20, 40, 1, 3, false},
		{"between samples", 21, 39, 2, 2, false},
		{"single", 30, 30, 2, 2, false},
		{"before data", 0, 5, 0, 0, true},
		{"after data", 60, 70, 0, 0, true},
		{"gap only", 31, 39, 0, 0, true},
		{"inverted", 40, 20, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			i0, i1, err := IndexRange(samples, tt.min, tt.max)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidRange))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.i0, i0)
			assert.Equal(t, tt.i1, i1)
		})
	}
}

func TestParseWei(t *testing.T) {
	w, err := ParseWei("20000000000")
	require.NoError(t, err)
	assert.Equal(t, 20e9, w.Float64())

	w, err = ParseWei("0x3b9aca00")
	require.NoError(t, err)
	assert.Equal(t, 1e9, w.Float64())

	w, err = ParseWei("100000000000000000000000")
	require.NoError(t, err)
	assert.InEpsilon(t, 1e23, w.Float64(), 1e-15)

	_, err = ParseWei("12.5")
	assert.Error(t, err)
}

func TestLoadSamplesCSV(t *testing.T) {
	input := strings.Join([]string{
		"block_number,base_fee_per_gas_wei,base_fee_per_blob_gas_wei",
		"100,20000000000,1",
		"101,21000000000,2",
	}, "\n")

	samples, err := LoadSamplesCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, FeeSample{BlockNumber: 101, BaseFeeWei: 21e9, BlobBaseFeeWei: 2}, samples[1])
}

func TestLoadSamplesCSVErrors(t *testing.T) {
	_, err := LoadSamplesCSV(strings.NewReader(""))
	assert.True(t, errors.Is(err, ErrEmptySeries))

	_, err = LoadSamplesCSV(strings.NewReader("block_number,base_fee_per_gas_wei\n1,2\n"))
	assert.Error(t, err)

	_, err = LoadSamplesCSV(strings.NewReader("block_number,base_fee_per_gas_wei,base_fee_per_blob_gas_wei\nx,1,1\n"))
	assert.Error(t, err)
}

func TestDataSetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fees.json")

	base, err := ParseWei("30000000000")
	require.NoError(t, err)
	dataset := &DataSet{
		StartBlock: 7,
		EndBlock:   8,
		Samples: []SampleRecord{
			{BlockNumber: 7, BaseFeePerGasWei: *base},
			{BlockNumber: 8, BaseFeePerGasWei: *base},
		},
	}
	require.NoError(t, SaveDataSetToFile(dataset, path))

	samples, err := LoadSamplesFromFile(path)
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, 30e9, samples[0].BaseFeeWei)
}

func TestLoadSamplesFromFileRejectsUnordered(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fees.csv")
	content := "block_number,base_fee_per_gas_wei,base_fee_per_blob_gas_wei\n5,1,1\n4,1,1\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	_, err := LoadSamplesFromFile(path)
	assert.True(t, errors.Is(err, ErrNonMonotonic))
}

func TestWeiUnmarshalAcceptsNumbers(t *testing.T) {
	var w Wei
	require.NoError(t, w.UnmarshalJSON([]byte("1500")))
	assert.Equal(t, 1500.0, w.Float64())

	require.NoError(t, w.UnmarshalJSON([]byte(`"0x10"`)))
	assert.Equal(t, 16.0, w.Float64())
}
