package docan

// Frame is a single CAN frame, deliberately narrow: the driver and the
// ISO-TP transport are external collaborators, this module only needs
// enough of a frame to hand bytes across that boundary.
type Frame struct {
	ID   uint32
	DLC  uint8
	Data [8]byte
}

// FrameListener receives frames from a Bus. Handle must not block.
type FrameListener interface {
	Handle(frame Frame)
}

// Bus is the CAN driver contract (explicitly out of scope per spec.md §1:
// only its contract appears here). Two adapters ship against it:
// SocketcanBus (socketcan.go) and RawSocketcanBus (socketcan_raw.go). The
// virtual ISO-TP loopback (virtual_isotp.go) sits above this contract and
// uses no Bus.
type Bus interface {
	Send(frame Frame) error
	Subscribe(listener FrameListener) (cancel func(), err error)
	Connect(args ...any) error
	Disconnect() error
}
