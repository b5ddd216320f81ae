package docan

import "encoding/binary"

// ByteOrder selects the endianness used for multi-byte fields (spec.md §6,
// server config key byte_order).
type ByteOrder uint8

const (
	BigEndian ByteOrder = iota
	LittleEndian
)

func (b ByteOrder) encoding() binary.ByteOrder {
	if b == LittleEndian {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// encodeSessionTiming serializes (p2, p2_star) into the 6-byte body a
// positive SessionControl response carries.
func encodeSessionTiming(t SessionTiming, order ByteOrder) []byte {
	out := make([]byte, 6)
	enc := order.encoding()
	enc.PutUint16(out[0:2], t.P2Ms)
	enc.PutUint32(out[2:6], t.P2StarMs)
	return out
}

// decodeSessionTiming parses the 6-byte SessionControl positive-response
// body back into a SessionTiming.
func decodeSessionTiming(data []byte, order ByteOrder) (SessionTiming, error) {
	if len(data) < 6 {
		return SessionTiming{}, &CodecError{Kind: "invalid_data_length"}
	}
	enc := order.encoding()
	return SessionTiming{
		P2Ms:     enc.Uint16(data[0:2]),
		P2StarMs: enc.Uint32(data[2:6]),
	}, nil
}
