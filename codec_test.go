package docan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionTimingRoundTripBigEndian(t *testing.T) {
	timing := SessionTiming{P2Ms: 50, P2StarMs: 5000}
	encoded := encodeSessionTiming(timing, BigEndian)
	decoded, err := decodeSessionTiming(encoded, BigEndian)
	assert.NoError(t, err)
	assert.EqualValues(t, timing, decoded)
}

func TestSessionTimingRoundTripLittleEndian(t *testing.T) {
	timing := SessionTiming{P2Ms: 250, P2StarMs: 12345}
	encoded := encodeSessionTiming(timing, LittleEndian)
	decoded, err := decodeSessionTiming(encoded, LittleEndian)
	assert.NoError(t, err)
	assert.EqualValues(t, timing, decoded)
}

func TestDecodeSessionTimingTooShort(t *testing.T) {
	_, err := decodeSessionTiming([]byte{0x00, 0x01}, BigEndian)
	assert.Error(t, err)
}
