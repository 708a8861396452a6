package service

// Transition is the outcome of recording a request result.
type Transition int

const (
	TransitionNone Transition = iota
	TransitionUnavailable
	TransitionRecovered
)

func (t Transition) String() string {
	switch t {
	case TransitionUnavailable:
		return "unavailable"
	case TransitionRecovered:
		return "recovered"
	default:
		return "none"
	}
}

// FailureTracker counts consecutive request failures and decides
// availability. A single transient failure never marks the device
// down: the transition fires only when the counter reaches the
// threshold. The next success recovers immediately.
type FailureTracker struct {
	threshold int
	failures  int
	available bool
}

func NewFailureTracker(threshold int) *FailureTracker {
	return &FailureTracker{
		threshold: threshold,
		available: true,
	}
}

func (t *FailureTracker) RecordResult(ok bool) Transition {
	if ok {
		t.failures = 0
		if !t.available {
			t.available = true
			return TransitionRecovered
		}
		return TransitionNone
	}
	t.failures++
	if t.available && t.failures >= t.threshold {
		t.available = false
		return TransitionUnavailable
	}
	return TransitionNone
}

func (t *FailureTracker) Available() bool {
	return t.available
}

func (t *FailureTracker) ConsecutiveFailures() int {
	return t.failures
}
