package docan

import (
	"sync"
	"time"
)

// LoopbackIsoTpTransport is an in-process IsoTpTransport double for tests
// (spec.md §4.1's transport is explicitly out of scope, so
// this module never implements real ISO-TP segmentation). Grounded on
// the teacher's VirtualCanBus (virtual.go): a paired, TCP-backed loopback
// bus with a background reception goroutine and a stop channel. This
// adapts that shape to an already-assembled-PDU channel pair instead of
// a byte-socket, since segmentation/reassembly sit below the
// IsoTpTransport boundary and have no analogue here.
type LoopbackIsoTpTransport struct {
	mu     sync.Mutex
	addr   Address
	outbox chan<- []byte
	events chan IsoTpEvent
	closed bool
	delay  time.Duration
}

// NewLoopbackIsoTpPair builds two transports wired to each other: frames
// sent on one arrive as EventDataReceived on the other, after an
// optional simulated link delay. Useful for client/server integration
// tests.
func NewLoopbackIsoTpPair(addr Address, delay time.Duration) (client, server *LoopbackIsoTpTransport) {
	toServer := make(chan []byte, 16)
	toClient := make(chan []byte, 16)

	client = &LoopbackIsoTpTransport{addr: addr, outbox: toServer, events: make(chan IsoTpEvent, 16), delay: delay}
	server = &LoopbackIsoTpTransport{addr: addr, outbox: toClient, events: make(chan IsoTpEvent, 16), delay: delay}

	go pumpLoopback(toClient, client.events, &client.mu, &client.closed, delay)
	go pumpLoopback(toServer, server.events, &server.mu, &server.closed, delay)

	return client, server
}

func pumpLoopback(in <-chan []byte, out chan<- IsoTpEvent, mu *sync.Mutex, closed *bool, delay time.Duration) {
	for data := range in {
		if delay > 0 {
			time.Sleep(delay)
		}
		mu.Lock()
		stopped := *closed
		mu.Unlock()
		if stopped {
			return
		}
		out <- IsoTpEvent{Kind: EventDataReceived, Data: data}
	}
}

func (l *LoopbackIsoTpTransport) Send(addrType AddressType, data []byte) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrShuttingDown
	}
	l.mu.Unlock()
	l.outbox <- append([]byte(nil), data...)
	return nil
}

func (l *LoopbackIsoTpTransport) Events() <-chan IsoTpEvent {
	return l.events
}

// Rebind updates the address the transport reports binding to. The
// loopback pair shares one wire regardless of address, matching the
// spec.md §3 contract that rebinding must not tear down the underlying
// channel.
func (l *LoopbackIsoTpTransport) Rebind(addr Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.addr = addr
	return nil
}

func (l *LoopbackIsoTpTransport) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	close(l.outbox)
	close(l.events)
	return nil
}
