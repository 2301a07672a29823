package logging

// BatchProgress picks which clip completions earn an INFO progress line: the
// first completion in each step-percent bucket, the final clip, and the first
// clip that did not fully enrich. Callers serialize access.
type BatchProgress struct {
	total      int
	step       int
	done       int
	lastBucket int
	flagged    bool
}

// NewBatchProgress tracks total clips. A step outside (0, 100] means 10%.
func NewBatchProgress(total, step int) *BatchProgress {
	if step <= 0 || step > 100 {
		step = 10
	}
	return &BatchProgress{total: total, step: step, lastBucket: -1}
}

// Advance records one finished clip; healthy is false for degraded and
// skipped clips. It returns the clips done so far, the completion percentage
// and whether the completion should be logged. A nil BatchProgress logs
// everything.
func (p *BatchProgress) Advance(healthy bool) (done int, percent float64, emit bool) {
	if p == nil {
		return 0, 0, true
	}
	p.done++
	if p.total <= 0 {
		return p.done, 100, true
	}
	percent = float64(p.done) / float64(p.total) * 100
	bucket := p.done * 100 / p.total / p.step
	if bucket > p.lastBucket {
		p.lastBucket = bucket
		emit = true
	}
	if p.done >= p.total {
		emit = true
	}
	if !healthy && !p.flagged {
		p.flagged = true
		emit = true
	}
	return p.done, percent, emit
}
