package docan

// Service identifies a UDS service by its request service byte (ISO
// 14229-1 Table 2).
type Service uint8

const (
	ServiceDiagnosticSessionControl        Service = 0x10
	ServiceECUReset                        Service = 0x11
	ServiceClearDiagnosticInformation      Service = 0x14
	ServiceReadDTCInformation              Service = 0x19
	ServiceReadDataByIdentifier            Service = 0x22
	ServiceReadMemoryByAddress             Service = 0x23
	ServiceReadScalingDataByIdentifier     Service = 0x24
	ServiceSecurityAccess                  Service = 0x27
	ServiceCommunicationControl            Service = 0x28
	ServiceAuthentication                  Service = 0x29
	ServiceReadDataByPeriodicIdentifier    Service = 0x2A
	ServiceDynamicallyDefineDataIdentifier Service = 0x2C
	ServiceWriteDataByIdentifier           Service = 0x2E
	ServiceInputOutputControlByIdentifier  Service = 0x2F
	ServiceRoutineControl                  Service = 0x31
	ServiceRequestDownload                 Service = 0x34
	ServiceRequestUpload                   Service = 0x35
	ServiceTransferData                    Service = 0x36
	ServiceRequestTransferExit             Service = 0x37
	ServiceRequestFileTransfer             Service = 0x38
	ServiceWriteMemoryByAddress            Service = 0x3D
	ServiceTesterPresent                   Service = 0x3E
	ServiceAccessTimingParameter           Service = 0x83
	ServiceSecuredDataTransmission         Service = 0x84
	ServiceControlDTCSetting               Service = 0x85
	ServiceResponseOnEvent                 Service = 0x86
	ServiceLinkControl                     Service = 0x87

	negativeResponseServiceID Service = 0x7F
)

// String renders a Service as its hex request byte, for log lines and
// metric labels rather than a full name table.
func (s Service) String() string {
	const hexDigits = "0123456789ABCDEF"
	return "0x" + string([]byte{hexDigits[s>>4], hexDigits[s&0x0F]})
}

const suppressPositiveBit uint8 = 0x80

// SubFunction carries the origin sub-function byte and the
// suppress-positive-response bit (spec.md §3).
type SubFunction struct {
	ID       uint8
	Suppress bool
}

// Byte returns the wire byte: origin OR'd with the suppress bit.
func (s SubFunction) Byte() uint8 {
	b := s.ID
	if s.Suppress {
		b |= suppressPositiveBit
	}
	return b
}

// ParseSubFunction splits a wire byte into origin + suppress bit.
func ParseSubFunction(b uint8) SubFunction {
	return SubFunction{ID: b &^ suppressPositiveBit, Suppress: b&suppressPositiveBit != 0}
}

// Request is a typed UDS request, built by the client engine or parsed by
// the server dispatcher.
type Request struct {
	Service     Service
	SubFunction *SubFunction
	Data        []byte
}

// Response is a typed UDS response.
type Response struct {
	Service     Service
	SubFunction *SubFunction
	Data        []byte
	Negative    bool
	NRC         NRC
}

// IsResponsePending reports whether this is the "still working" negative
// response (NRC 0x78) that drives the client's tester-present keep-alive.
func (r *Response) IsResponsePending() bool {
	return r.Negative && r.NRC == NRCRequestCorrectlyReceivedResponsePending
}

// EncodeRequest serializes a Request to wire bytes: service byte, optional
// sub-function byte, then the service-specific body. The UDS message
// codec (DID layout, per-service body shape) is an external collaborator
// per spec.md §1; this is the generic envelope every service shares.
func EncodeRequest(req *Request) []byte {
	out := make([]byte, 0, 2+len(req.Data))
	out = append(out, byte(req.Service))
	if req.SubFunction != nil {
		out = append(out, req.SubFunction.Byte())
	}
	out = append(out, req.Data...)
	return out
}

// DecodeResponse parses wire bytes into a typed Response. hasSubFunction
// tells the decoder whether the requested service carries a sub-function
// byte (services differ; the codec collaborator normally supplies this,
// here it is a caller-supplied hint since we do not implement the full
// per-service codec table).
func DecodeResponse(raw []byte, hasSubFunction bool) (*Response, error) {
	if len(raw) == 0 {
		return nil, &CodecError{Kind: "invalid_data_length"}
	}
	if raw[0] == byte(negativeResponseServiceID) {
		if len(raw) < 3 {
			return nil, &CodecError{Kind: "invalid_data_length"}
		}
		return &Response{
			Service:  Service(raw[1]),
			Negative: true,
			NRC:      NRC(raw[2]),
		}, nil
	}
	resp := &Response{Service: Service(raw[0] &^ 0x40)}
	body := raw[1:]
	if hasSubFunction {
		if len(body) == 0 {
			return nil, &CodecError{Kind: "invalid_data_length"}
		}
		sf := ParseSubFunction(body[0])
		resp.SubFunction = &sf
		body = body[1:]
	}
	resp.Data = body
	return resp, nil
}
