package docan

import "encoding/binary"

// defaultHandlers builds the C7 service handler table (spec.md §4.7).
// Services the Rust original stubs out (RequestFileTransfer,
// ReadMemoryByAddress, WriteMemoryByAddress, ReadScalingDataByIdentifier,
// ReadDataByPeriodicIdentifier, SecuredDataTransmission, ResponseOnEvent,
// Authentication, ReadDTCInformation, InputOutputControlByIdentifier) get
// a minimal handler that always answers ServiceNotSupported, mirroring
// original_source's stub modules; unlike a service missing from the
// table, a stubbed service's request is still decoded first (a
// sub-function service too short to carry its sub-function byte answers
// IncorrectMessageLengthOrInvalidFormat). DynamicallyDefineDataIdentifier is
// wired to the dynamic DID store (spec.md §3) instead of stubbed, since
// ECUReset needs a populated store to clear.
func defaultHandlers() map[Service]serviceHandler {
	return map[Service]serviceHandler{
		ServiceDiagnosticSessionControl:        handleSessionControl,
		ServiceECUReset:                        handleECUReset,
		ServiceSecurityAccess:                  handleSecurityAccess,
		ServiceCommunicationControl:            handleCommunicationControl,
		ServiceTesterPresent:                   handleTesterPresent,
		ServiceReadDataByIdentifier:            handleReadDID,
		ServiceWriteDataByIdentifier:           handleWriteDID,
		ServiceClearDiagnosticInformation:      handleClearDiagnosticInfo,
		ServiceControlDTCSetting:               handleControlDTCSetting,
		ServiceLinkControl:                     handleLinkControl,
		ServiceAccessTimingParameter:           handleAccessTimingParameter,
		ServiceRoutineControl:                  handleRoutineControl,
		ServiceRequestDownload:                 handleRequestDownload,
		ServiceRequestUpload:                   handleRequestUpload,
		ServiceRequestTransferExit:             handleRequestTransferExit,
		ServiceTransferData:                    handleTransferData,
		ServiceDynamicallyDefineDataIdentifier: handleDynamicallyDefineDID,
		ServiceReadDTCInformation:              stubHandler,
		ServiceReadMemoryByAddress:             stubHandler,
		ServiceWriteMemoryByAddress:            stubHandler,
		ServiceReadScalingDataByIdentifier:     stubHandler,
		ServiceReadDataByPeriodicIdentifier:    stubHandler,
		ServiceSecuredDataTransmission:         stubHandler,
		ServiceResponseOnEvent:                 stubHandler,
		ServiceAuthentication:                  stubHandler,
		ServiceInputOutputControlByIdentifier:  stubHandler,
		ServiceRequestFileTransfer:             stubHandler,
	}
}

func stubHandler(s *Server, req *Request) (*Response, error) {
	return nil, nrc(NRCServiceNotSupported)
}

func positiveResponse(req *Request, data []byte) *Response {
	resp := &Response{Service: req.Service, Data: data}
	if req.SubFunction != nil {
		resp.SubFunction = req.SubFunction
	}
	return resp
}

// suppressed reports whether req asked to suppress the positive response.
func suppressed(req *Request) bool {
	return req.SubFunction != nil && req.SubFunction.Suppress
}

// handleSessionControl implements spec.md §4.7 SessionControl: any
// requested session is accepted (no gating by current session), the
// session manager transitions, a keep-alive deadline is armed unless the
// new session is Default, and the response carries the server's
// configured timing.
func handleSessionControl(s *Server, req *Request) (*Response, error) {
	if req.SubFunction == nil {
		return nil, nrc(NRCIncorrectMessageLengthOrInvalidFmt)
	}
	session, ok := SubFunctionToDiagnosticSession(req.SubFunction.ID)
	if !ok {
		return nil, nrc(NRCSubFunctionNotSupported)
	}
	s.session.Change(session)
	if session != SessionDefault {
		s.session.Keep()
	}
	if suppressed(req) {
		return nil, nil
	}
	return positiveResponse(req, encodeSessionTiming(s.cfg.Timing, s.cfg.ByteOrder)), nil
}

// handleECUReset implements spec.md §4.7 ECUReset: the session manager
// reverts to Default (which zeroes sa_level, per SessionManager.Change),
// the dynamic DID store is cleared, and the response carries a fixed
// power-down time of one second for EnableRapidPowerShutDown. Actually
// tearing the process down is outside this module's scope; callers
// observe the response and may act on it.
func handleECUReset(s *Server, req *Request) (*Response, error) {
	if req.SubFunction == nil {
		return nil, nrc(NRCIncorrectMessageLengthOrInvalidFmt)
	}
	s.session.Change(SessionDefault)
	s.ctx.clearDynamicDIDs()
	if suppressed(req) {
		return nil, nil
	}
	var data []byte
	if req.SubFunction.ID == ResetEnableRapidPowerShutDown {
		data = []byte{0x01}
	}
	return positiveResponse(req, data), nil
}

// handleSecurityAccess implements spec.md §4.7 SecurityAccess's two-round
// protocol: odd sub-function IDs request a seed, even IDs submit a key.
// Per the Open Question recorded in DESIGN.md, a request with no
// registered SecurityAlgo answers ConditionsNotCorrect (0x22) rather than
// GeneralReject, deliberately asymmetric with the client's OtherError for
// the same condition. Per spec.md §3/§4.5's "if current_session ==
// Default, then sa_level == 0" invariant, no security level can be
// granted while still in the Default session.
func handleSecurityAccess(s *Server, req *Request) (*Response, error) {
	if req.SubFunction == nil {
		return nil, nrc(NRCIncorrectMessageLengthOrInvalidFmt)
	}
	if s.session.SessionType() == SessionDefault {
		return nil, nrc(NRCConditionsNotCorrect)
	}
	algo := s.ctx.securityAlgo()
	if algo == nil {
		return nil, nrc(NRCConditionsNotCorrect)
	}
	level := req.SubFunction.ID
	if level%2 == 1 {
		seed, err := generateSeed(s.cfg.SeedLen)
		if err != nil {
			return nil, nrc(NRCGeneralReject)
		}
		s.ctx.setPendingSeed(level, seed)
		return positiveResponse(req, seed), nil
	}

	requestLevel := level - 1
	seed, ok := s.ctx.takePendingSeed(requestLevel)
	if !ok {
		return nil, nrc(NRCRequestSequenceError)
	}
	expectedKey, err := algo(requestLevel, seed, s.cfg.SASalt)
	if err != nil {
		return nil, nrc(NRCGeneralReject)
	}
	if string(expectedKey) != string(req.Data) {
		return nil, nrc(NRCInvalidKey)
	}
	s.session.SetSALevel(requestLevel)
	return positiveResponse(req, nil), nil
}

func handleCommunicationControl(s *Server, req *Request) (*Response, error) {
	if req.SubFunction == nil {
		return nil, nrc(NRCIncorrectMessageLengthOrInvalidFmt)
	}
	if suppressed(req) {
		return nil, nil
	}
	return positiveResponse(req, nil), nil
}

// handleTesterPresent implements spec.md §4.7 TesterPresent: renews the
// session's keep-alive deadline and, unless suppressed, echoes back.
func handleTesterPresent(s *Server, req *Request) (*Response, error) {
	if s.session.SessionType() != SessionDefault {
		s.session.Keep()
	}
	if suppressed(req) {
		return nil, nil
	}
	return positiveResponse(req, nil), nil
}

// handleReadDID implements spec.md §4.7 ReadDID: each requested DID is
// gated by did_sa_level (a DID absent from the gate table is ungated);
// an unmet SA level answers SecurityAccessDenied, a missing DID answers
// RequestOutOfRange. A DID is looked up in the static store first, then
// the dynamic store (spec.md §3), so a DynamicallyDefineDID-defined DID
// reads back like any other.
func handleReadDID(s *Server, req *Request) (*Response, error) {
	if len(req.Data)%2 != 0 || len(req.Data) == 0 {
		return nil, nrc(NRCIncorrectMessageLengthOrInvalidFmt)
	}
	saLevel := s.session.SALevel()
	out := make([]byte, 0, len(req.Data)*2)
	for i := 0; i < len(req.Data); i += 2 {
		did := binary.BigEndian.Uint16(req.Data[i : i+2])
		if gate, gated := s.cfg.DidSALevel[did]; gated && gate != saLevel {
			return nil, nrc(NRCSecurityAccessDenied)
		}
		value, ok := s.ctx.getDID(did)
		if !ok {
			value, ok = s.ctx.getDynamicDID(did)
		}
		if !ok {
			return nil, nrc(NRCRequestOutOfRange)
		}
		out = binary.BigEndian.AppendUint16(out, did)
		out = append(out, value...)
	}
	return positiveResponse(req, out), nil
}

// handleWriteDID implements spec.md §4.7 WriteDID: only permitted in the
// Extended session with sa_level exactly equal to extend_sa_level;
// anything else answers ServiceNotSupportedInActiveSession.
func handleWriteDID(s *Server, req *Request) (*Response, error) {
	if len(req.Data) < 2 {
		return nil, nrc(NRCIncorrectMessageLengthOrInvalidFmt)
	}
	if s.session.SessionType() != SessionExtended || s.session.SALevel() != s.cfg.ExtendSALevel {
		return nil, nrc(NRCServiceNotSupportedInActiveSession)
	}
	did := binary.BigEndian.Uint16(req.Data[0:2])
	s.ctx.setDID(did, req.Data[2:])
	if suppressed(req) {
		return nil, nil
	}
	return positiveResponse(req, req.Data[0:2]), nil
}

// handleDynamicallyDefineDID implements a define-by-identifier variant of
// DynamicallyDefineDataIdentifier: the requested DID's value is stored in
// the dynamic DID store (distinct from the static one WriteDID writes),
// so ECUReset's "dynamic DID store cleared" side effect has
// something real to clear.
func handleDynamicallyDefineDID(s *Server, req *Request) (*Response, error) {
	if req.SubFunction == nil || len(req.Data) < 2 {
		return nil, nrc(NRCIncorrectMessageLengthOrInvalidFmt)
	}
	did := binary.BigEndian.Uint16(req.Data[0:2])
	s.ctx.setDynamicDID(did, req.Data[2:])
	if suppressed(req) {
		return nil, nil
	}
	return positiveResponse(req, req.Data[0:2]), nil
}

func handleClearDiagnosticInfo(s *Server, req *Request) (*Response, error) {
	if len(req.Data) < 3 {
		return nil, nrc(NRCIncorrectMessageLengthOrInvalidFmt)
	}
	groupMask := uint32(req.Data[0])<<16 | uint32(req.Data[1])<<8 | uint32(req.Data[2])
	s.ctx.clearDTCs(groupMask)
	if suppressed(req) {
		return nil, nil
	}
	return positiveResponse(req, nil), nil
}

func handleControlDTCSetting(s *Server, req *Request) (*Response, error) {
	if req.SubFunction == nil {
		return nil, nrc(NRCIncorrectMessageLengthOrInvalidFmt)
	}
	if suppressed(req) {
		return nil, nil
	}
	return positiveResponse(req, nil), nil
}

func handleLinkControl(s *Server, req *Request) (*Response, error) {
	if req.SubFunction == nil {
		return nil, nrc(NRCIncorrectMessageLengthOrInvalidFmt)
	}
	if suppressed(req) {
		return nil, nil
	}
	return positiveResponse(req, nil), nil
}

// handleAccessTimingParameter implements spec.md §4.7
// AccessTimingParameter: ReadCurrent and ReadExtended answer with the
// server's configured timing, everything else is acknowledged with an
// empty body.
func handleAccessTimingParameter(s *Server, req *Request) (*Response, error) {
	if req.SubFunction == nil {
		return nil, nrc(NRCIncorrectMessageLengthOrInvalidFmt)
	}
	if suppressed(req) {
		return nil, nil
	}
	if req.SubFunction.ID == AccessTimingReadCurrent || req.SubFunction.ID == AccessTimingReadExtended {
		return positiveResponse(req, encodeSessionTiming(s.cfg.Timing, s.cfg.ByteOrder)), nil
	}
	return positiveResponse(req, nil), nil
}

func handleRoutineControl(s *Server, req *Request) (*Response, error) {
	if req.SubFunction == nil || len(req.Data) < 2 {
		return nil, nrc(NRCIncorrectMessageLengthOrInvalidFmt)
	}
	if suppressed(req) {
		return nil, nil
	}
	return positiveResponse(req, req.Data[0:2]), nil
}

// handleRequestDownload/Upload answer with a fixed max block length sized
// for the CAN/ISO-TP transport underneath (4095 bytes, the ISO-TP single
// transfer's practical ceiling for this module's test transports),
// mirroring the original's fixed block-size stub rather than negotiating
// against memSize.
func handleRequestDownload(s *Server, req *Request) (*Response, error) {
	return handleRequestTransfer(req)
}

func handleRequestUpload(s *Server, req *Request) (*Response, error) {
	return handleRequestTransfer(req)
}

func handleRequestTransfer(req *Request) (*Response, error) {
	if len(req.Data) < 3 {
		return nil, nrc(NRCIncorrectMessageLengthOrInvalidFmt)
	}
	const maxBlockLen = 0x0FFF
	data := []byte{0x20, byte(maxBlockLen >> 8), byte(maxBlockLen)}
	return positiveResponse(req, data), nil
}

func handleRequestTransferExit(s *Server, req *Request) (*Response, error) {
	if suppressed(req) {
		return nil, nil
	}
	return positiveResponse(req, nil), nil
}

// handleTransferData echoes the request's sequence byte, letting the
// client's own sequence check (client_services.go TransferData) detect a
// mismatch; the server has no sequence state of its own to violate here
// since it always answers with the client's own counter.
func handleTransferData(s *Server, req *Request) (*Response, error) {
	if len(req.Data) == 0 {
		return nil, nrc(NRCIncorrectMessageLengthOrInvalidFmt)
	}
	return positiveResponse(req, []byte{req.Data[0]}), nil
}
