package backtester

// Progress is an advisory sweep-wide completion event.
type Progress struct {
	Percent float32 `json:"percent"`
	SweepID string  `json:"sweepId"`
}

type configProgress struct {
	index   int
	percent float32
}

// aggregator turns per-configuration progress into sweep-wide percentages. The
// configuration index travels with every message, so the aggregator alone
// knows how far the sweep is. Neither side blocks on the other: updates that
// do not fit are dropped.
type aggregator struct {
	in      chan configProgress
	out     chan<- Progress
	done    chan struct{}
	total   int
	sweepID string
	last    float32
}

func newAggregator(total int, sweepID string, out chan<- Progress) *aggregator {
	a := &aggregator{
		in:      make(chan configProgress, 64),
		out:     out,
		done:    make(chan struct{}),
		total:   total,
		sweepID: sweepID,
	}
	go a.run()
	return a
}

func (a *aggregator) run() {
	for msg := range a.in {
		if a.total == 0 {
			continue
		}
		overall := (float32(msg.index)*100 + msg.percent) / float32(a.total*100) * 100
		if overall <= a.last || overall >= 100 {
			continue
		}
		a.last = overall
		if a.out != nil {
			select {
			case a.out <- Progress{Percent: overall, SweepID: a.sweepID}:
			default:
			}
		}
	}
	close(a.done)

	// The sweep is already released; the final event waits here for a reader
	// that may never come.
	if a.out != nil {
		a.out <- Progress{Percent: 100, SweepID: a.sweepID}
	}
}

// reporter returns the progress callback for the configuration at index.
func (a *aggregator) reporter(index int) func(float32) {
	return func(percent float32) {
		select {
		case a.in <- configProgress{index: index, percent: percent}:
		default:
		}
	}
}

// finish waits until every intermediate update has been handled. The final 100%
// is delivered afterwards, whenever the consumer of out gets to it.
func (a *aggregator) finish() {
	close(a.in)
	<-a.done
}
