package types

import (
	"encoding/json"
	"fmt"
)

type Status int

const (
	StatusNotOpened Status = iota
	StatusNotTriggered
	StatusRunning
	StatusWin
	StatusLost
	StatusUnknown
)

func (s Status) String() string {
	switch s {
	case StatusNotOpened:
		return "not opened"
	case StatusNotTriggered:
		return "not triggered"
	case StatusRunning:
		return "running"
	case StatusWin:
		return "win"
	case StatusLost:
		return "lost"
	case StatusUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Closed reports a terminal status.
func (s Status) Closed() bool {
	return s == StatusWin || s == StatusLost || s == StatusUnknown
}

type Side int

const (
	Long Side = iota
	Short
)

func (s Side) String() string {
	if s == Short {
		return "short"
	}
	return "long"
}

type Trade struct {
	Pattern      string  `json:"pattern"`
	Side         Side    `json:"side"`
	EntryPrice   float64 `json:"entryPrice"`
	StopLoss     float64 `json:"stopLoss"`
	TakeProfit   float64 `json:"takeProfit"`
	OpenIndex    int     `json:"openIndex"`
	OpenTime     int64   `json:"openTime"`
	CloseTime    int64   `json:"closeTime"`
	PositionSize float64 `json:"positionSize"`
	GrossProfit  float64 `json:"grossProfit"`
	GrossLoss    float64 `json:"grossLoss"`
	Fees         float64 `json:"fees"`
	EquityAtOpen float64 `json:"equityAtOpen"`
	Status       Status  `json:"status"`

	// index of the candle on which the trade started running; checks begin after it
	runningSince int
}

type tradeJSON struct {
	*tradeFields
	RunningSince int `json:"runningSince"`
}

type tradeFields Trade

// MarshalJSON keeps the running candle index so a partially resolved list can
// be resolved again after a round trip.
func (t Trade) MarshalJSON() ([]byte, error) {
	return json.Marshal(tradeJSON{tradeFields: (*tradeFields)(&t), RunningSince: t.runningSince})
}

func (t *Trade) UnmarshalJSON(data []byte) error {
	aux := tradeJSON{tradeFields: (*tradeFields)(t)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	t.runningSince = aux.RunningSince
	return nil
}

// MarkRunning records the candle index from which stop and target checks apply.
func (t *Trade) MarkRunning(candleIndex int) {
	t.Status = StatusRunning
	t.runningSince = candleIndex
}

// RunningSince is the candle index on which the trade became Running.
func (t *Trade) RunningSince() int {
	return t.runningSince
}

// StopTouched reports whether the candle reached the stop-loss in the trade's direction.
func (t *Trade) StopTouched(c *Candle) bool {
	if t.Side == Short {
		return c.High >= t.StopLoss
	}
	return c.Low <= t.StopLoss
}

// TargetTouched reports whether the candle reached the take-profit in the trade's direction.
func (t *Trade) TargetTouched(c *Candle) bool {
	if t.Side == Short {
		return c.Low <= t.TakeProfit
	}
	return c.High >= t.TakeProfit
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	for candidate := StatusNotOpened; candidate <= StatusUnknown; candidate++ {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown trade status %q", text)
}

func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Side) UnmarshalText(text []byte) error {
	switch string(text) {
	case "long":
		*s = Long
	case "short":
		*s = Short
	default:
		return fmt.Errorf("unknown trade side %q", text)
	}
	return nil
}
