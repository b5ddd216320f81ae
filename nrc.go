package docan

import "fmt"

// NRC is a UDS (ISO 14229-1) negative response code.
type NRC byte

const (
	NRCGeneralReject                      NRC = 0x10
	NRCServiceNotSupported                NRC = 0x11
	NRCSubFunctionNotSupported            NRC = 0x12
	NRCIncorrectMessageLengthOrInvalidFmt NRC = 0x13
	NRCResponseTooLong                    NRC = 0x14
	NRCBusyRepeatRequest                  NRC = 0x21
	NRCConditionsNotCorrect               NRC = 0x22
	NRCRequestSequenceError               NRC = 0x24
	NRCRequestOutOfRange                  NRC = 0x31
	NRCSecurityAccessDenied               NRC = 0x33
	NRCInvalidKey                         NRC = 0x35
	NRCExceedNumberOfAttempts             NRC = 0x36
	NRCRequiredTimeDelayNotExpired        NRC = 0x37
	NRCUploadDownloadNotAccepted          NRC = 0x70
	NRCTransferDataSuspended              NRC = 0x71
	NRCGeneralProgrammingFailure          NRC = 0x72
	NRCWrongBlockSequenceCounter          NRC = 0x73
	NRCRequestCorrectlyReceivedResponsePending NRC = 0x78
	NRCServiceNotSupportedInActiveSession NRC = 0x7F
)

var nrcNames = map[NRC]string{
	NRCGeneralReject:                      "GeneralReject",
	NRCServiceNotSupported:                "ServiceNotSupported",
	NRCSubFunctionNotSupported:            "SubFunctionNotSupported",
	NRCIncorrectMessageLengthOrInvalidFmt: "IncorrectMessageLengthOrInvalidFormat",
	NRCResponseTooLong:                    "ResponseTooLong",
	NRCBusyRepeatRequest:                  "BusyRepeatRequest",
	NRCConditionsNotCorrect:               "ConditionsNotCorrect",
	NRCRequestSequenceError:               "RequestSequenceError",
	NRCRequestOutOfRange:                  "RequestOutOfRange",
	NRCSecurityAccessDenied:               "SecurityAccessDenied",
	NRCInvalidKey:                         "InvalidKey",
	NRCExceedNumberOfAttempts:             "ExceedNumberOfAttempts",
	NRCRequiredTimeDelayNotExpired:        "RequiredTimeDelayNotExpired",
	NRCUploadDownloadNotAccepted:          "UploadDownloadNotAccepted",
	NRCTransferDataSuspended:              "TransferDataSuspended",
	NRCGeneralProgrammingFailure:          "GeneralProgrammingFailure",
	NRCWrongBlockSequenceCounter:          "WrongBlockSequenceCounter",
	NRCRequestCorrectlyReceivedResponsePending: "RequestCorrectlyReceivedResponsePending",
	NRCServiceNotSupportedInActiveSession:      "ServiceNotSupportedInActiveSession",
}

func (n NRC) String() string {
	if name, ok := nrcNames[n]; ok {
		return name
	}
	return fmt.Sprintf("NRC(x%02x)", byte(n))
}

// transportErrorToNRC maps a TransportErrorKind to the NRC the dispatcher
// transmits, per spec.md §4.6.
func transportErrorToNRC(kind TransportErrorKind) NRC {
	switch kind {
	case TransportEmptyPdu, TransportInvalidDataLength:
		return NRCIncorrectMessageLengthOrInvalidFmt
	case TransportInvalidPdu, TransportInvalidParam, TransportInvalidStMin,
		TransportMixFramesError, TransportTimeout:
		return NRCGeneralReject
	case TransportLengthOutOfRange, TransportOverloadFlow:
		return NRCRequestOutOfRange
	case TransportInvalidSequence:
		return NRCWrongBlockSequenceCounter
	default:
		return NRCGeneralReject
	}
}
