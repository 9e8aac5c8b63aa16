package upload

// DefaultProgressStep is the minimum advance, in percentage points, between
// two status-message edits.
const DefaultProgressStep = 10

// Throttle turns byte counts into percentages and decides when a new
// snapshot is worth reporting. It is not safe for concurrent use; each
// upload owns its own Throttle.
type Throttle struct {
	total int64
	step  int
	last  int
}

// NewThrottle creates a Throttle for a transfer of total bytes. A step below
// 1 falls back to DefaultProgressStep.
func NewThrottle(total int64, step int) *Throttle {
	if step < 1 {
		step = DefaultProgressStep
	}
	return &Throttle{total: total, step: step}
}

// Update records that written bytes have been transferred. It returns the
// current percentage and true when it has advanced by at least the step
// since the last reported snapshot. Percentages never decrease. An unknown
// (zero or negative) total never reports.
func (t *Throttle) Update(written int64) (int, bool) {
	if t.total <= 0 {
		return t.last, false
	}

	pct := int(written * 100 / t.total)
	pct = max(t.last, min(pct, 100))

	if pct-t.last < t.step {
		return t.last, false
	}
	t.last = pct
	return pct, true
}

// Last returns the most recently reported percentage.
func (t *Throttle) Last() int {
	return t.last
}
