package patterns

// Match is a detected formation. Indices are positions in the scanned candle
// slice; times are candle open (start) and close (end) times.
//
// Anchor prices by kind:
//   - W: Lower, Neckline
//   - M: Higher, Neckline
//   - BullReversal: Peak, End
type Match struct {
	Kind       Kind
	StartIndex int
	StartTime  int64
	EndIndex   int
	EndTime    int64

	Lower    float64
	Higher   float64
	Neckline float64
	Peak     float64
	End      float64
}
