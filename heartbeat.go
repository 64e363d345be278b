package claudebridge

import "time"

// HeartbeatScheduler decides when a transport-level keep-alive is due. It
// runs on a fixed interval, independent of the progress announcer, so idle
// intermediaries are defeated even when the announcer has gone quiet.
//
// Like ProgressState, the scheduler takes the current instant as a parameter
// so tests never need a real clock. Owned by one multiplexer run.
type HeartbeatScheduler struct {
	interval time.Duration
	last     time.Time
}

// NewHeartbeatScheduler creates a scheduler whose first heartbeat becomes
// due one interval after now.
func NewHeartbeatScheduler(interval time.Duration, now time.Time) *HeartbeatScheduler {
	return &HeartbeatScheduler{interval: interval, last: now}
}

// Due reports whether a heartbeat should be emitted at now, and if so
// advances the schedule.
func (h *HeartbeatScheduler) Due(now time.Time) bool {
	if now.Sub(h.last) < h.interval {
		return false
	}
	h.last = now
	return true
}

// Reset restarts the interval, called on every real-content frame.
func (h *HeartbeatScheduler) Reset(now time.Time) {
	h.last = now
}
