package patterns

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/letieu/pattern-backtest/internal/types"
)

type Kind int

const (
	KindW Kind = iota + 1
	KindM
	KindBullReversal
)

func (k Kind) String() string {
	switch k {
	case KindW:
		return "W"
	case KindM:
		return "M"
	case KindBullReversal:
		return "Bull Reversal"
	default:
		return "None"
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	if string(text) == "None" {
		*k = 0
		return nil
	}
	kind, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// ParseKind accepts the names used in config files: "w", "m", "bull-reversal".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "w", "double-bottom":
		return KindW, nil
	case "m", "double-top":
		return KindM, nil
	case "bull-reversal", "bull reversal", "reversal":
		return KindBullReversal, nil
	}
	return 0, fmt.Errorf("unknown pattern kind %q", s)
}

// DoubleParams configures the W and M detectors.
type DoubleParams struct {
	Repetitions int `json:"repetitions"`
	SearchRange int `json:"searchRange"`
}

type ReversalParams struct {
	TrendLength        int `json:"trendLength"`
	CounterTrendLength int `json:"counterTrendLength"`
}

// Params is a closed union over the pattern kinds: Double is read for W and M,
// Reversal for BullReversal.
type Params struct {
	Kind     Kind           `json:"kind"`
	Double   DoubleParams   `json:"double"`
	Reversal ReversalParams `json:"reversal"`
}

func W(repetitions, searchRange int) Params {
	return Params{Kind: KindW, Double: DoubleParams{Repetitions: repetitions, SearchRange: searchRange}}
}

func M(repetitions, searchRange int) Params {
	return Params{Kind: KindM, Double: DoubleParams{Repetitions: repetitions, SearchRange: searchRange}}
}

func BullReversal(trendLength, counterTrendLength int) Params {
	return Params{Kind: KindBullReversal, Reversal: ReversalParams{TrendLength: trendLength, CounterTrendLength: counterTrendLength}}
}

// Values names the parameters of the active variant for reports.
func (p Params) Values() map[string]string {
	values := map[string]string{"name": p.Kind.String()}
	switch p.Kind {
	case KindW, KindM:
		values["klines_repetitions"] = strconv.Itoa(p.Double.Repetitions)
		values["klines_range"] = strconv.Itoa(p.Double.SearchRange)
	case KindBullReversal:
		values["trend_size"] = strconv.Itoa(p.Reversal.TrendLength)
		values["counter_trend_size"] = strconv.Itoa(p.Reversal.CounterTrendLength)
	}
	return values
}

// Detector scans candles from the cursor start for one formation.
type Detector func(candles []types.Candle, start int, potentialOnly bool) (Match, bool)

// Detector returns the scanner bound to the active variant. Unknown kinds never match.
func (p Params) Detector() Detector {
	switch p.Kind {
	case KindW:
		return func(candles []types.Candle, start int, potentialOnly bool) (Match, bool) {
			return findDouble(candles, start, p.Double, bottom, potentialOnly)
		}
	case KindM:
		return func(candles []types.Candle, start int, potentialOnly bool) (Match, bool) {
			return findDouble(candles, start, p.Double, top, potentialOnly)
		}
	case KindBullReversal:
		return func(candles []types.Candle, start int, potentialOnly bool) (Match, bool) {
			return findBullReversal(candles, start, p.Reversal)
		}
	}
	return func([]types.Candle, int, bool) (Match, bool) { return Match{}, false }
}

// Find runs the detector for params from the cursor start.
func Find(candles []types.Candle, start int, params Params, potentialOnly bool) (Match, bool) {
	return params.Detector()(candles, start, potentialOnly)
}
