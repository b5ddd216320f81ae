package docan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTimingContextTimeoutMs(t *testing.T) {
	tc := NewTimingContext(SessionTiming{P2Ms: 50, P2StarMs: 5000}, 10)
	assert.EqualValues(t, 60, tc.TimeoutMs(false))
	assert.EqualValues(t, 5000, tc.TimeoutMs(true))
}

func TestTimingContextUpdate(t *testing.T) {
	tc := NewTimingContext(DefaultSessionTiming, 0)
	tc.Update(SessionTiming{P2Ms: 100, P2StarMs: 1000})
	timing, offset := tc.Snapshot()
	assert.EqualValues(t, 100, timing.P2Ms)
	assert.EqualValues(t, 1000, timing.P2StarMs)
	assert.EqualValues(t, 0, offset)
}

func TestTimingContextSetOffset(t *testing.T) {
	tc := NewTimingContext(DefaultSessionTiming, 0)
	tc.SetOffset(25)
	_, offset := tc.Snapshot()
	assert.EqualValues(t, 25, offset)
}
