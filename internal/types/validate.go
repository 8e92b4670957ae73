package types

import (
	"errors"
	"fmt"
	"math"
)

var ErrMalformedCandle = errors.New("malformed candle")

// Validate checks the OHLC invariant low <= open, close <= high on finite prices.
func (c *Candle) Validate() error {
	for _, v := range []float64{c.Open, c.High, c.Low, c.Close} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite price at open time %d", ErrMalformedCandle, c.OpenTime)
		}
	}
	if c.High < c.Low {
		return fmt.Errorf("%w: high %v below low %v at open time %d", ErrMalformedCandle, c.High, c.Low, c.OpenTime)
	}
	if c.Open < c.Low || c.Open > c.High || c.Close < c.Low || c.Close > c.High {
		return fmt.Errorf("%w: open/close outside [%v, %v] at open time %d", ErrMalformedCandle, c.Low, c.High, c.OpenTime)
	}
	if c.CloseTime < c.OpenTime {
		return fmt.Errorf("%w: close time %d before open time %d", ErrMalformedCandle, c.CloseTime, c.OpenTime)
	}
	return nil
}

// ValidateSeries validates every candle and requires strictly ascending open times.
func ValidateSeries(candles []Candle) error {
	for i := range candles {
		if err := candles[i].Validate(); err != nil {
			return fmt.Errorf("candle %d: %w", i, err)
		}
		if i > 0 && candles[i].OpenTime <= candles[i-1].OpenTime {
			return fmt.Errorf("candle %d: %w: open time %d not after %d", i, ErrMalformedCandle, candles[i].OpenTime, candles[i-1].OpenTime)
		}
	}
	return nil
}
