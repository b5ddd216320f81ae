package docan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeRequestWithSubFunction(t *testing.T) {
	req := &Request{
		Service:     ServiceDiagnosticSessionControl,
		SubFunction: &SubFunction{ID: SessionTypeExtended, Suppress: true},
	}
	out := EncodeRequest(req)
	assert.EqualValues(t, []byte{0x10, 0x83}, out)
}

func TestEncodeRequestWithoutSubFunction(t *testing.T) {
	req := &Request{Service: ServiceReadDataByIdentifier, Data: []byte{0x12, 0x34}}
	out := EncodeRequest(req)
	assert.EqualValues(t, []byte{0x22, 0x12, 0x34}, out)
}

func TestDecodeResponsePositive(t *testing.T) {
	raw := []byte{0x50, 0x03, 0x00, 50, 0x00, 0x00, 0x13, 0x88}
	resp, err := DecodeResponse(raw, true)
	assert.NoError(t, err)
	assert.EqualValues(t, ServiceDiagnosticSessionControl, resp.Service)
	assert.NotNil(t, resp.SubFunction)
	assert.EqualValues(t, 0x03, resp.SubFunction.ID)
	assert.False(t, resp.Negative)
}

func TestDecodeResponseNegative(t *testing.T) {
	raw := []byte{0x7F, 0x10, 0x78}
	resp, err := DecodeResponse(raw, true)
	assert.NoError(t, err)
	assert.True(t, resp.Negative)
	assert.EqualValues(t, NRCRequestCorrectlyReceivedResponsePending, resp.NRC)
	assert.True(t, resp.IsResponsePending())
}

func TestDecodeResponseTooShort(t *testing.T) {
	_, err := DecodeResponse(nil, false)
	assert.Error(t, err)

	_, err = DecodeResponse([]byte{0x7F, 0x10}, false)
	assert.Error(t, err)
}

func TestSubFunctionByteRoundTrip(t *testing.T) {
	sf := SubFunction{ID: 0x03, Suppress: true}
	parsed := ParseSubFunction(sf.Byte())
	assert.EqualValues(t, sf, parsed)
}
