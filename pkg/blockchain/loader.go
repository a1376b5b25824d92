package blockchain

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// CSV column names accepted by LoadSamplesCSV
const (
	ColumnBlockNumber = "block_number"
	ColumnBaseFee     = "base_fee_per_gas_wei"
	ColumnBlobBaseFee = "base_fee_per_blob_gas_wei"
)

// SaveDataSetToFile saves a dataset to a JSON file
func SaveDataSetToFile(dataset *DataSet, filename string) error {
	jsonData, err := json.MarshalIndent(dataset, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal dataset: %w", err)
	}

	if err := os.WriteFile(filename, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// LoadDataSetFromFile loads a dataset from a JSON file
func LoadDataSetFromFile(filename string) (*DataSet, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var dataset DataSet
	if err := json.Unmarshal(data, &dataset); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dataset: %w", err)
	}

	return &dataset, nil
}

// LoadSamplesCSV reads fee samples from CSV with a header row naming at least
// the block number, base fee and blob base fee columns
func LoadSamplesCSV(r io.Reader) ([]FeeSample, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptySeries
		}
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{ColumnBlockNumber, ColumnBaseFee, ColumnBlobBaseFee} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("csv missing required column %q", required)
		}
	}

	var samples []FeeSample
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv line %d: %w", line, err)
		}

		blockNumber, err := strconv.ParseInt(strings.TrimSpace(record[columns[ColumnBlockNumber]]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid block number: %w", line, err)
		}
		baseFee, err := ParseWei(record[columns[ColumnBaseFee]])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		blobFee, err := ParseWei(record[columns[ColumnBlobBaseFee]])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		samples = append(samples, FeeSample{
			BlockNumber:    blockNumber,
			BaseFeeWei:     baseFee.Float64(),
			BlobBaseFeeWei: blobFee.Float64(),
		})
	}

	if len(samples) == 0 {
		return nil, ErrEmptySeries
	}
	return samples, nil
}

// LoadSamplesFromFile loads and validates fee samples from a .csv or .json file
func LoadSamplesFromFile(filename string) ([]FeeSample, error) {
	var samples []FeeSample

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		f, err := os.Open(filename)
		if err != nil {
			return nil, fmt.Errorf("failed to open file: %w", err)
		}
		defer f.Close()

		samples, err = LoadSamplesCSV(f)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", filename, err)
		}
	default:
		dataset, err := LoadDataSetFromFile(filename)
		if err != nil {
			return nil, err
		}
		if err := ValidateDataSet(dataset); err != nil {
			return nil, fmt.Errorf("invalid dataset %s: %w", filename, err)
		}
		samples = dataset.FeeSamples()
	}

	if err := ValidateSamples(samples); err != nil {
		return nil, fmt.Errorf("invalid samples in %s: %w", filename, err)
	}
	return samples, nil
}
