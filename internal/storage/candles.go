package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/letieu/pattern-backtest/internal/types"
)

var ErrUnsupportedFormat = errors.New("unsupported candle file format")

func format(filePath string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(filePath)); ext {
	case ".json", ".csv":
		return ext, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// SaveCandles writes candles as an indented JSON array or as CSV, chosen by the
// file extension.
func SaveCandles(filePath string, candles []types.Candle) error {
	ext, err := format(filePath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if ext == ".csv" {
		if err := gocsv.MarshalFile(&candles, file); err != nil {
			return fmt.Errorf("failed to encode candles: %w", err)
		}
		return nil
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(candles); err != nil {
		return fmt.Errorf("failed to encode candles: %w", err)
	}
	return nil
}

// LoadCandles reads a candle file and rejects series that break the OHLC
// invariants or are not strictly ascending in time.
func LoadCandles(filePath string) ([]types.Candle, error) {
	ext, err := format(filePath)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open candle file: %w", err)
	}
	defer file.Close()

	var candles []types.Candle
	if ext == ".csv" {
		if err := gocsv.UnmarshalFile(file, &candles); err != nil {
			return nil, fmt.Errorf("failed to decode candles: %w", err)
		}
	} else {
		if err := json.NewDecoder(file).Decode(&candles); err != nil {
			return nil, fmt.Errorf("failed to decode candles: %w", err)
		}
	}

	if err := types.ValidateSeries(candles); err != nil {
		return nil, fmt.Errorf("invalid candle file %s: %w", filePath, err)
	}
	return candles, nil
}
