package docan

import (
	"errors"
	"fmt"
)

// Sentinel errors for argument/precondition failures, grounded on the
// teacher's flat errors.go table.
var (
	ErrInvalidAddress    = errors.New("invalid address: tx_id and rx_id must be non-zero and distinct")
	ErrNoSecurityAlgo    = errors.New("security algorithm required")
	ErrDIDAlreadyExists  = errors.New("data identifier already registered")
	ErrDIDNotFound       = errors.New("data identifier not found")
	ErrNoPendingSeed     = errors.New("no pending security access seed")
	ErrShuttingDown      = errors.New("transport is shutting down")
)

// TransportErrorKind classifies the contract errors an IsoTpTransport is
// allowed to surface. The transport itself is an external collaborator;
// this is the closed set of kinds the dispatcher's NRC mapping switches on.
type TransportErrorKind uint8

const (
	TransportTimeout TransportErrorKind = iota
	TransportEmptyPdu
	TransportInvalidPdu
	TransportInvalidDataLength
	TransportInvalidParam
	TransportInvalidStMin
	TransportInvalidSequence
	TransportLengthOutOfRange
	TransportOverloadFlow
	TransportMixFramesError
)

var transportErrorNames = map[TransportErrorKind]string{
	TransportTimeout:           "timeout",
	TransportEmptyPdu:          "empty pdu",
	TransportInvalidPdu:        "invalid pdu",
	TransportInvalidDataLength: "invalid data length",
	TransportInvalidParam:      "invalid parameter",
	TransportInvalidStMin:      "invalid separation time",
	TransportInvalidSequence:   "invalid consecutive-frame sequence",
	TransportLengthOutOfRange:  "length out of range",
	TransportOverloadFlow:      "overload / flow control error",
	TransportMixFramesError:    "mixed frame types",
}

// TransportError is the error type an IsoTpTransport returns. It is kept
// as-is by callers per spec.md §7 ("transport error kept as-is").
type TransportError struct {
	Kind TransportErrorKind
}

func (e *TransportError) Error() string {
	name, ok := transportErrorNames[e.Kind]
	if !ok {
		name = "unknown transport error"
	}
	return fmt.Sprintf("isotp: %s", name)
}

// CodecError is returned by the UDS message codec collaborator.
type CodecError struct {
	Kind string // "invalid_data_length", "unknown_service", ...
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("codec: %s", e.Kind)
}

// ProtocolError covers client-side application-layer protocol violations.
type ProtocolError struct {
	Kind    string
	Service uint8
	NRC     byte
	Expect  uint8
	Actual  uint8
}

func (e *ProtocolError) Error() string {
	switch e.Kind {
	case "unexpected_response":
		return fmt.Sprintf("uds: unexpected response service x%02x", e.Service)
	case "unexpected_subfunction":
		return fmt.Sprintf("uds: unexpected sub-function for service x%02x", e.Service)
	case "unexpected_transfer_sequence":
		return fmt.Sprintf("uds: unexpected transfer sequence: expected %d, got %d", e.Expect, e.Actual)
	case "nrc":
		return fmt.Sprintf("uds: negative response for service x%02x, nrc %s", e.Service, NRC(e.NRC))
	default:
		return "uds: protocol error"
	}
}

// NewUnexpectedResponse builds the UnexpectedResponse protocol error.
func NewUnexpectedResponse(service uint8) error {
	return &ProtocolError{Kind: "unexpected_response", Service: service}
}

// NewUnexpectedSubFunction builds the UnexpectedSubFunction protocol error.
func NewUnexpectedSubFunction(service uint8) error {
	return &ProtocolError{Kind: "unexpected_subfunction", Service: service}
}

// NewUnexpectedTransferSequence builds the UnexpectedTransferSequence error.
func NewUnexpectedTransferSequence(expect, actual uint8) error {
	return &ProtocolError{Kind: "unexpected_transfer_sequence", Expect: expect, Actual: actual}
}

// NewNRCError builds the NRCError{service, code} protocol error.
func NewNRCError(service uint8, nrc byte) error {
	return &ProtocolError{Kind: "nrc", Service: service, NRC: nrc}
}

// SecurityAlgoError wraps an error returned by a registered SecurityAlgo.
type SecurityAlgoError struct {
	Text string
}

func (e *SecurityAlgoError) Error() string {
	return fmt.Sprintf("security algorithm error: %s", e.Text)
}

// NotImplementError marks a UDS service the core treats as a stub.
type NotImplementError struct {
	Service uint8
}

func (e *NotImplementError) Error() string {
	return fmt.Sprintf("service x%02x not implemented", e.Service)
}

// OtherError is a catch-all for conditions with no dedicated type, mirroring
// the Rust original's OtherError(text) variant.
type OtherError struct {
	Text string
}

func (e *OtherError) Error() string {
	return e.Text
}
