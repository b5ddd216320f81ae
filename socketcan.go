package docan

import (
	"github.com/brutella/can"
)

// SocketcanBus wraps brutella/can's socketcan binding as a Bus (spec.md
// §1 CAN driver external collaborator). Grounded directly on the
// teacher's socketcan.go, adapted to this module's Bus.Subscribe
// signature (cancel func + error) instead of the teacher's void
// Subscribe.
type SocketcanBus struct {
	bus      *can.Bus
	listener FrameListener
}

// NewSocketcanBus opens a socketcan interface by name, e.g. "can0".
func NewSocketcanBus(name string) (*SocketcanBus, error) {
	bus, err := can.NewBusForInterfaceWithName(name)
	if err != nil {
		return nil, err
	}
	return &SocketcanBus{bus: bus}, nil
}

func (s *SocketcanBus) Send(frame Frame) error {
	return s.bus.Publish(can.Frame{ID: frame.ID, Length: frame.DLC, Data: frame.Data})
}

func (s *SocketcanBus) Subscribe(listener FrameListener) (func(), error) {
	s.listener = listener
	s.bus.Subscribe(s)
	return func() { s.listener = nil }, nil
}

// Handle is brutella/can's Handler interface, bridging its Frame type to
// ours.
func (s *SocketcanBus) Handle(frame can.Frame) {
	if s.listener != nil {
		s.listener.Handle(Frame{ID: frame.ID, DLC: frame.Length, Data: frame.Data})
	}
}

func (s *SocketcanBus) Connect(...any) error {
	go s.bus.ConnectAndPublish()
	return nil
}

func (s *SocketcanBus) Disconnect() error {
	return s.bus.Disconnect()
}
