package docan

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/samsamfire/docan/pkg/diddb"
)

// ServerConfig is the subset of the YAML server configuration (spec.md
// §6) the dispatcher and handlers consult directly. The bound Address is
// loaded separately via AddressFromConfig (config.go), since constructing
// a Server needs it before the config/session/dispatcher wiring exists.
type ServerConfig struct {
	Timing         SessionTiming
	KeepDuration   time.Duration
	ExtendSALevel  uint8
	ProgramSALevel uint8
	SeedLen        int
	SASalt         []byte
	DidCfg         DidConfig
	DidSALevel     DidSecurityLevels
	ByteOrder      ByteOrder
}

// ServerContext is the server's C4 analogue: the registered security
// algorithm, pending-seed table, and the DID/DTC stores (pkg/diddb) a
// dispatch loop's handlers read and write. spec.md §3 distinguishes a
// static DID store (written by WriteDID, survives a reset) from a
// dynamic one (built by DynamicallyDefineDID, cleared on ECUReset), so
// they are two separate pkg/diddb.Store instances rather than one.
type ServerContext struct {
	mu          sync.Mutex
	dids        *diddb.Store
	dynamicDids *diddb.Store
	dtcs        *diddb.DTCStore
	algo        SecurityAlgo
	pendingSeed map[uint8][]byte
}

// NewServerContext creates an empty server context.
func NewServerContext() *ServerContext {
	return &ServerContext{
		dids:        diddb.NewStore(),
		dynamicDids: diddb.NewStore(),
		dtcs:        diddb.NewDTCStore(),
		pendingSeed: map[uint8][]byte{},
	}
}

func (s *ServerContext) SetSecurityAlgo(algo SecurityAlgo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.algo = algo
}

func (s *ServerContext) securityAlgo() SecurityAlgo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.algo
}

func (s *ServerContext) setDID(did uint16, value []byte) {
	s.dids.Set(did, value)
}

func (s *ServerContext) getDID(did uint16) ([]byte, bool) {
	return s.dids.Get(did)
}

// setDynamicDID/getDynamicDID back DynamicallyDefineDataIdentifier, kept
// in a store distinct from the static DID table so ECUReset (spec.md
// §4.7) has something to clear without touching statically configured
// DIDs.
func (s *ServerContext) setDynamicDID(did uint16, value []byte) {
	s.dynamicDids.Set(did, value)
}

func (s *ServerContext) getDynamicDID(did uint16) ([]byte, bool) {
	return s.dynamicDids.Get(did)
}

func (s *ServerContext) clearDynamicDIDs() {
	s.dynamicDids.Clear()
}

// DTCs returns the server's DTC store, for callers populating or
// inspecting fault data. ClearDiagnosticInformation clears it; the
// ReadDTCInformation handler is a stub and does not read it.
func (s *ServerContext) DTCs() *diddb.DTCStore { return s.dtcs }

func (s *ServerContext) clearDTCs(groupMask uint32) {
	s.dtcs.ClearGroup(groupMask)
}

func (s *ServerContext) setPendingSeed(level uint8, seed []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingSeed[level] = seed
}

func (s *ServerContext) takePendingSeed(level uint8) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seed, ok := s.pendingSeed[level]
	delete(s.pendingSeed, level)
	return seed, ok
}

// Server is the UDS server dispatcher and service handler set (spec.md
// §4.6/§4.7, components C6 and C7). Grounded on the teacher's SDOServer
// state machine in sdo_server.go, generalized from a single-object
// read/write state machine to a stateless-per-request service table plus
// the session/SA state SessionManager already owns.
type Server struct {
	bound   *BoundAddress
	cfg     *ServerConfig
	session *SessionManager
	ctx     *ServerContext
	metrics *DispatcherMetrics

	handlers map[Service]serviceHandler
}

// serviceHandler handles one decoded request and returns the positive
// Response to send back (sendResponse adds the 0x40 service offset), or
// an error. Returning (nil, nil) for a suppressed request means "send
// nothing".
type serviceHandler func(s *Server, req *Request) (*Response, error)

// NewServer constructs a dispatcher bound to addr over transport, wired
// to session and cfg, with the full C7 handler table registered.
func NewServer(addr Address, transport IsoTpTransport, cfg *ServerConfig, session *SessionManager) *Server {
	srv := &Server{
		bound:   NewBoundAddress(addr, transport),
		cfg:     cfg,
		session: session,
		ctx:     NewServerContext(),
	}
	srv.handlers = defaultHandlers()
	return srv
}

// Context returns the server's DID/DTC/security context.
func (srv *Server) Context() *ServerContext { return srv.ctx }

// SetMetrics attaches Prometheus instrumentation to the dispatcher. Nil is
// safe to pass (or to leave unset, its zero value) and simply disables
// metric collection; this is ambient/optional wiring, not part of C6's
// required behavior.
func (srv *Server) SetMetrics(m *DispatcherMetrics) { srv.metrics = m }

// Run is the dispatcher's receive loop (spec.md §4.6). It consumes
// IsoTpEvents from the bound transport until ctx is cancelled, decoding
// each DataReceived event into a Request, dispatching it, and
// transmitting the Response. Decode failures and unknown services yield
// a negative response per spec.md §4.6; transport errors observed while
// receiving are counted, logged, and the loop continues without sending
// anything.
func (srv *Server) Run(ctx context.Context) {
	transport := srv.bound.Transport()
	events := transport.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			switch evt.Kind {
			case EventDataReceived:
				srv.dispatch(evt.Data)
			case EventErrorOccurred:
				srv.metrics.observeRxError()
				log.Warnf("[SERVER][RX] transport error: %v", evt.Err)
			}
		}
	}
}

func (srv *Server) dispatch(raw []byte) {
	if len(raw) == 0 {
		srv.sendNegative(negativeResponseServiceID, NRCIncorrectMessageLengthOrInvalidFmt)
		return
	}
	service := Service(raw[0])
	srv.metrics.observeRequest(service)
	handler, ok := srv.handlers[service]
	if !ok {
		log.Warnf("[SERVER][RX] service x%02x not supported", service)
		srv.sendNegative(service, NRCServiceNotSupported)
		return
	}

	req, err := decodeRequest(service, raw)
	if err != nil {
		log.Warnf("[SERVER][RX] service x%02x decode error: %v", service, err)
		srv.sendNegative(service, NRCIncorrectMessageLengthOrInvalidFmt)
		return
	}

	resp, err := handler(srv, req)
	if err != nil {
		srv.handleHandlerError(service, req, err)
		return
	}
	if resp == nil {
		// Suppressed positive response: send nothing.
		return
	}
	srv.sendResponse(resp)
}

func (srv *Server) handleHandlerError(service Service, req *Request, err error) {
	if nrcErr, ok := err.(*nrcResponse); ok {
		srv.sendNegative(service, nrcErr.nrc)
		return
	}
	if te, ok := err.(*TransportError); ok {
		srv.sendNegative(service, transportErrorToNRC(te.Kind))
		return
	}
	log.Warnf("[SERVER] handler error for service x%02x: %v", service, err)
	srv.sendNegative(service, NRCGeneralReject)
}

// nrcResponse is the handler-internal way to request a specific negative
// response; handlers return it via nrc() rather than constructing a
// Response themselves, keeping the negative-response wire format in one
// place (sendNegative).
type nrcResponse struct {
	nrc NRC
}

func (e *nrcResponse) Error() string { return "nrc: " + e.nrc.String() }

func nrc(code NRC) error { return &nrcResponse{nrc: code} }

func decodeRequest(service Service, raw []byte) (*Request, error) {
	if serviceHasSubFunction(service) {
		if len(raw) < 2 {
			return nil, &CodecError{Kind: "invalid_data_length"}
		}
		sf := ParseSubFunction(raw[1])
		return &Request{Service: service, SubFunction: &sf, Data: raw[2:]}, nil
	}
	return &Request{Service: service, Data: raw[1:]}, nil
}

// serviceHasSubFunction reports whether service carries a sub-function
// byte, the one piece of the UDS message codec table this module
// hard-codes (spec.md §1 scopes the rest of the codec out).
func serviceHasSubFunction(service Service) bool {
	switch service {
	case ServiceDiagnosticSessionControl, ServiceECUReset, ServiceSecurityAccess,
		ServiceCommunicationControl, ServiceTesterPresent, ServiceControlDTCSetting,
		ServiceLinkControl, ServiceAccessTimingParameter, ServiceRoutineControl,
		ServiceReadDTCInformation, ServiceAuthentication, ServiceDynamicallyDefineDataIdentifier,
		ServiceReadDataByPeriodicIdentifier:
		return true
	default:
		return false
	}
}

// sendResponse transmits a positive response. Per spec.md §4.6 step 6, a
// transmit failure is not simply dropped: the transport error is mapped
// through the NRC table and one negative-response retransmit is
// attempted; only a failure of that retry is logged and dropped
// (sendNegative itself logs on failure, so there is nothing further to
// do here on the retry path).
func (srv *Server) sendResponse(resp *Response) {
	out := make([]byte, 0, 2+len(resp.Data))
	out = append(out, byte(resp.Service)|0x40)
	if resp.SubFunction != nil {
		out = append(out, resp.SubFunction.Byte())
	}
	out = append(out, resp.Data...)
	transport := srv.bound.Transport()
	if err := transport.Send(Physical, out); err != nil {
		code := NRCGeneralReject
		if te, ok := err.(*TransportError); ok {
			code = transportErrorToNRC(te.Kind)
		}
		srv.sendNegative(resp.Service, code)
	}
}

func (srv *Server) sendNegative(service Service, code NRC) {
	srv.metrics.observeNegative(service, code)
	out := []byte{byte(negativeResponseServiceID), byte(service), byte(code)}
	transport := srv.bound.Transport()
	if err := transport.Send(Physical, out); err != nil {
		log.Warnf("[SERVER][TX] negative response send failed: %v", err)
	}
}
