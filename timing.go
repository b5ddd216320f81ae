package docan

import "sync"

// SessionTiming is the client's current P2/P2* pair (spec.md §3), default
// (50ms, 5000ms).
type SessionTiming struct {
	P2Ms     uint16
	P2StarMs uint32
}

// DefaultSessionTiming is the spec.md §6 timing default.
var DefaultSessionTiming = SessionTiming{P2Ms: 50, P2StarMs: 5000}

// TimingContext holds the current P2 pair and a non-negotiable p2Offset
// that extends client patience beyond the standard, e.g. for slow test
// benches (spec.md §4.2, component C2). Grounded on the teacher's
// SDOClient.TimeoutTimeUs/TimeoutTimeBlockTransferUs atomic-under-one-lock
// fields in sdo_client.go.
type TimingContext struct {
	mu        sync.Mutex
	timing    SessionTiming
	p2Offset  uint32 // milliseconds
}

// NewTimingContext creates a timing context with the given initial timing
// and offset.
func NewTimingContext(timing SessionTiming, p2OffsetMs uint32) *TimingContext {
	return &TimingContext{timing: timing, p2Offset: p2OffsetMs}
}

// TimeoutMs returns p2_star_ms when pending, else p2_ms + p2_offset.
func (t *TimingContext) TimeoutMs(pending bool) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if pending {
		return uint64(t.timing.P2StarMs)
	}
	return uint64(t.timing.P2Ms) + uint64(t.p2Offset)
}

// Update atomically replaces the current timing. Only called by the client
// after a positive SessionControl response.
func (t *TimingContext) Update(timing SessionTiming) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timing = timing
}

// Snapshot returns the current (timing, p2Offset) pair, used by the client
// engine to snapshot state before a transmit without holding the lock
// across I/O (spec.md §4.4 concurrency note).
func (t *TimingContext) Snapshot() (SessionTiming, uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timing, t.p2Offset
}

// SetOffset updates the non-negotiable p2Offset (configuration-time only).
func (t *TimingContext) SetOffset(offsetMs uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.p2Offset = offsetMs
}
