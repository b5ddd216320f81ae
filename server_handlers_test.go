package docan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(cfg *ServerConfig) *Server {
	addr := Address{TxID: 0x7A0, RxID: 0x7A8, FID: 0x7DF}
	_, serverTransport := NewLoopbackIsoTpPair(addr, 0)
	session := NewSessionManager(cfg.KeepDuration)
	return NewServer(addr, serverTransport, cfg, session)
}

// Per spec.md §3/§4.5's "if current_session == Default, then sa_level ==
// 0" invariant, SecurityAccess is rejected outright while still in the
// Default session, regardless of whether an algorithm is registered.
func TestHandleSecurityAccessRejectedInDefaultSession(t *testing.T) {
	srv := newTestServer(&ServerConfig{KeepDuration: time.Second, SeedLen: 4})
	srv.Context().SetSecurityAlgo(XORSecurityAlgo)
	req := &Request{Service: ServiceSecurityAccess, SubFunction: &SubFunction{ID: 1}}
	_, err := handleSecurityAccess(srv, req)
	require.Error(t, err)
	nrcErr, ok := err.(*nrcResponse)
	require.True(t, ok)
	assert.Equal(t, NRCConditionsNotCorrect, nrcErr.nrc)
}

// Open Question #2 (DESIGN.md): a SecurityAccess request with no
// registered algorithm answers ConditionsNotCorrect on the server side,
// asymmetric with the client's OtherError for the same condition.
func TestHandleSecurityAccessNoAlgoRegistered(t *testing.T) {
	srv := newTestServer(&ServerConfig{KeepDuration: time.Second, SeedLen: 4})
	srv.session.Change(SessionExtended)
	req := &Request{Service: ServiceSecurityAccess, SubFunction: &SubFunction{ID: 1}}
	_, err := handleSecurityAccess(srv, req)
	require.Error(t, err)
	nrcErr, ok := err.(*nrcResponse)
	require.True(t, ok)
	assert.Equal(t, NRCConditionsNotCorrect, nrcErr.nrc)
}

func TestHandleSecurityAccessSeedThenKey(t *testing.T) {
	srv := newTestServer(&ServerConfig{KeepDuration: time.Second, SeedLen: 4, SASalt: []byte{0x01}})
	srv.session.Change(SessionExtended)
	srv.Context().SetSecurityAlgo(XORSecurityAlgo)

	seedReq := &Request{Service: ServiceSecurityAccess, SubFunction: &SubFunction{ID: 1}}
	seedResp, err := handleSecurityAccess(srv, seedReq)
	require.NoError(t, err)
	require.Len(t, seedResp.Data, 4)

	key, err := XORSecurityAlgo(1, seedResp.Data, []byte{0x01})
	require.NoError(t, err)

	keyReq := &Request{Service: ServiceSecurityAccess, SubFunction: &SubFunction{ID: 2}, Data: key}
	keyResp, err := handleSecurityAccess(srv, keyReq)
	require.NoError(t, err)
	assert.EqualValues(t, 2, keyResp.SubFunction.ID)
	assert.EqualValues(t, 1, srv.session.SALevel())
}

func TestHandleSecurityAccessWrongKeyRejected(t *testing.T) {
	srv := newTestServer(&ServerConfig{KeepDuration: time.Second, SeedLen: 4, SASalt: []byte{0x01}})
	srv.session.Change(SessionExtended)
	srv.Context().SetSecurityAlgo(XORSecurityAlgo)

	seedReq := &Request{Service: ServiceSecurityAccess, SubFunction: &SubFunction{ID: 1}}
	_, err := handleSecurityAccess(srv, seedReq)
	require.NoError(t, err)

	keyReq := &Request{Service: ServiceSecurityAccess, SubFunction: &SubFunction{ID: 2}, Data: []byte{0xDE, 0xAD, 0xBE, 0xEF}}
	_, err = handleSecurityAccess(srv, keyReq)
	require.Error(t, err)
	nrcErr, ok := err.(*nrcResponse)
	require.True(t, ok)
	assert.Equal(t, NRCInvalidKey, nrcErr.nrc)
}

func TestHandleSessionControlUnknownSubFunction(t *testing.T) {
	srv := newTestServer(&ServerConfig{KeepDuration: time.Second})
	req := &Request{Service: ServiceDiagnosticSessionControl, SubFunction: &SubFunction{ID: 0x09}}
	_, err := handleSessionControl(srv, req)
	require.Error(t, err)
	nrcErr, ok := err.(*nrcResponse)
	require.True(t, ok)
	assert.Equal(t, NRCSubFunctionNotSupported, nrcErr.nrc)
}

func TestHandleReadDIDSecurityGated(t *testing.T) {
	cfg := &ServerConfig{KeepDuration: time.Second, DidSALevel: DidSecurityLevels{0x1234: 1}}
	srv := newTestServer(cfg)
	srv.Context().setDID(0x1234, []byte{0xAB})

	req := &Request{Service: ServiceReadDataByIdentifier, Data: []byte{0x12, 0x34}}
	_, err := handleReadDID(srv, req)
	require.Error(t, err)
	nrcErr, ok := err.(*nrcResponse)
	require.True(t, ok)
	assert.Equal(t, NRCSecurityAccessDenied, nrcErr.nrc)

	srv.session.SetSALevel(1)
	resp, err := handleReadDID(srv, req)
	require.NoError(t, err)
	assert.EqualValues(t, []byte{0x12, 0x34, 0xAB}, resp.Data)
}

func TestHandleReadDIDUnknownDID(t *testing.T) {
	srv := newTestServer(&ServerConfig{KeepDuration: time.Second})
	req := &Request{Service: ServiceReadDataByIdentifier, Data: []byte{0xFF, 0xFF}}
	_, err := handleReadDID(srv, req)
	require.Error(t, err)
	nrcErr, ok := err.(*nrcResponse)
	require.True(t, ok)
	assert.Equal(t, NRCRequestOutOfRange, nrcErr.nrc)
}

func TestHandleTransferDataEchoesSequence(t *testing.T) {
	srv := newTestServer(&ServerConfig{KeepDuration: time.Second})
	req := &Request{Service: ServiceTransferData, Data: []byte{0x07, 0xAA, 0xBB}}
	resp, err := handleTransferData(srv, req)
	require.NoError(t, err)
	assert.EqualValues(t, []byte{0x07}, resp.Data)
}
