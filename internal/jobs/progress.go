package jobs

import "time"

// progressDebouncer implements §4.4.4's progress write throttling: a
// processor may call its ProgressFunc as often as it likes, but the
// orchestrator only persists and broadcasts an update once at least
// minInterval has elapsed AND the percentage has moved by at least
// minDelta since the last accepted update. The very first and very last
// (100%) calls always go through.
type progressDebouncer struct {
	minInterval time.Duration
	minDelta    float64

	lastWrite time.Time
	lastValue float64
	seen      bool
}

func newProgressDebouncer(minInterval time.Duration, minDelta float64) *progressDebouncer {
	return &progressDebouncer{minInterval: minInterval, minDelta: minDelta}
}

func (d *progressDebouncer) allow(percent float64) bool {
	now := time.Now()

	if !d.seen || percent >= 100 {
		d.seen = true
		d.lastWrite = now
		d.lastValue = percent
		return true
	}

	if now.Sub(d.lastWrite) < d.minInterval || percent-d.lastValue < d.minDelta {
		return false
	}

	d.lastWrite = now
	d.lastValue = percent
	return true
}
