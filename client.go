package docan

import (
	"time"

	log "github.com/sirupsen/logrus"
)

// Client is the UDS client engine (spec.md §4.3, component C3). It
// mirrors UDS services as public methods and drives the core
// send-and-await-response algorithm. Grounded on the teacher's SDOClient
// main-loop shape (rx-new flag + timeout timer driving a state machine in
// sdo_client.go), generalized from SDO segment states to UDS
// response-pending/tester-present states.
type Client struct {
	bound  *BoundAddress
	ctx    *ClientContext
	events *EventBuffer

	pumpDone chan struct{}
}

// NewClient constructs a client bound to addr over transport, and starts
// the background goroutine that pumps IsoTpEvents into the client's event
// buffer (spec.md §5: "at least one task for the device receive pump").
func NewClient(addr Address, transport IsoTpTransport) *Client {
	c := &Client{
		bound:    NewBoundAddress(addr, transport),
		ctx:      NewClientContext(NewTimingContext(DefaultSessionTiming, 0)),
		events:   NewEventBuffer(64),
		pumpDone: make(chan struct{}),
	}
	go c.pump(transport)
	return c
}

func (c *Client) pump(transport IsoTpTransport) {
	defer close(c.pumpDone)
	for evt := range transport.Events() {
		c.events.Push(evt)
	}
}

// Context returns the client's DID/security context (component C4).
func (c *Client) Context() *ClientContext { return c.ctx }

// Close releases the underlying transport.
func (c *Client) Close() error {
	return c.bound.Transport().Close()
}

// waitForResponse waits up to timeoutMs for a DataReceived event. Wait and
// FirstFrameReceived events reset the timer to "now" since they indicate
// the peer is making progress (spec.md §4.3 step 3).
func (c *Client) waitForResponse(timeoutMs uint64) (*IsoTpEvent, error) {
	deadline := time.Now().Add(time.Duration(timeoutMs) * time.Millisecond)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, &TransportError{Kind: TransportTimeout}
		}
		timer := time.NewTimer(remaining)
		select {
		case <-c.events.Notify():
			timer.Stop()
			for {
				evt, ok := c.events.Pop()
				if !ok {
					break
				}
				switch evt.Kind {
				case EventDataReceived:
					e := evt
					return &e, nil
				case EventErrorOccurred:
					return nil, evt.Err
				case EventWait, EventFirstFrameReceived:
					deadline = time.Now().Add(time.Duration(timeoutMs) * time.Millisecond)
				}
			}
		case <-timer.C:
			return nil, &TransportError{Kind: TransportTimeout}
		}
	}
}

// sendTesterPresentKeepAlive transmits the zero/suppress-positive
// TesterPresent that keeps the server from reverting sessions while the
// client waits out a ResponsePending loop (spec.md §4.3 step 5a/b).
func (c *Client) sendTesterPresentKeepAlive() error {
	req := &Request{Service: ServiceTesterPresent, SubFunction: &SubFunction{ID: 0, Suppress: true}}
	return c.bound.Transport().Send(Physical, EncodeRequest(req))
}

// sendAndAwaitResponse is the core algorithm from spec.md §4.3. hasSubFunction
// tells the decoder whether req.Service carries a sub-function byte in its
// response (the UDS message codec is an external collaborator; this hint
// substitutes for its per-service table).
func (c *Client) sendAndAwaitResponse(addrType AddressType, req *Request, hasSubFunction bool) (*Response, error) {
	timing, offset := c.ctx.timing.Snapshot()
	c.events.Clear()

	transport := c.bound.Transport()
	log.Debugf("[CLIENT][TX] service x%02x addr=%v suppress=%v", req.Service, addrType, req.SubFunction != nil && req.SubFunction.Suppress)
	if err := transport.Send(addrType, EncodeRequest(req)); err != nil {
		return nil, err
	}

	suppressed := req.SubFunction != nil && req.SubFunction.Suppress
	initialTimeoutMs := uint64(timing.P2Ms) + uint64(offset)

	evt, err := c.waitForResponse(initialTimeoutMs)
	if err != nil {
		if suppressed {
			if te, ok := err.(*TransportError); ok && te.Kind == TransportTimeout {
				log.Debugf("[CLIENT][RX] service x%02x suppressed positive, no response", req.Service)
				return nil, nil
			}
		}
		return nil, err
	}

	resp, err := DecodeResponse(evt.Data, hasSubFunction)
	if err != nil {
		return nil, err
	}

	for resp.IsResponsePending() {
		log.Debugf("[CLIENT][RX] service x%02x response pending, sending tester present", req.Service)
		if err := c.sendTesterPresentKeepAlive(); err != nil {
			return nil, err
		}
		evt, err = c.waitForResponse(uint64(timing.P2StarMs))
		if err != nil {
			return nil, err
		}
		resp, err = DecodeResponse(evt.Data, hasSubFunction)
		if err != nil {
			return nil, err
		}
	}

	if resp.Negative {
		log.Warnf("[CLIENT][RX] service x%02x negative response nrc=%v", req.Service, resp.NRC)
		return nil, NewNRCError(uint8(req.Service), byte(resp.NRC))
	}
	if resp.Service != req.Service {
		return nil, NewUnexpectedResponse(uint8(req.Service))
	}
	if hasSubFunction && req.SubFunction != nil {
		if resp.SubFunction == nil || resp.SubFunction.ID != req.SubFunction.ID {
			return nil, NewUnexpectedSubFunction(uint8(req.Service))
		}
	}
	log.Debugf("[CLIENT][RX] service x%02x positive response", req.Service)
	return resp, nil
}
