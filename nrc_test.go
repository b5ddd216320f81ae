package docan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransportErrorToNRCMapping(t *testing.T) {
	cases := map[TransportErrorKind]NRC{
		TransportEmptyPdu:         NRCIncorrectMessageLengthOrInvalidFmt,
		TransportInvalidDataLength: NRCIncorrectMessageLengthOrInvalidFmt,
		TransportInvalidPdu:       NRCGeneralReject,
		TransportTimeout:          NRCGeneralReject,
		TransportLengthOutOfRange: NRCRequestOutOfRange,
		TransportOverloadFlow:     NRCRequestOutOfRange,
		TransportInvalidSequence:  NRCWrongBlockSequenceCounter,
	}
	for kind, want := range cases {
		assert.EqualValues(t, want, transportErrorToNRC(kind))
	}
}

func TestNRCStringKnownAndUnknown(t *testing.T) {
	assert.Equal(t, "ServiceNotSupported", NRCServiceNotSupported.String())
	assert.Equal(t, "NRC(xfe)", NRC(0xFE).String())
}
