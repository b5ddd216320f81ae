//go:build linux

package docan

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// RawSocketcanBus is a Bus implementation over a raw CAN_RAW socket,
// grounded directly on the teacher's pkg/can/socketcanv3 adapter
// (unix.Socket(AF_CAN, SOCK_RAW, CAN_RAW) + unix.Bind to a
// SockaddrCAN), trimmed to a single-frame blocking Read loop instead of
// that file's recvmmsg batch/unsafe-pointer path — this module favors a
// conservative, unsafe-free socket read since docan only needs one
// frame at a time, not CANopen's PDO throughput.
type RawSocketcanBus struct {
	fd       int
	listener FrameListener
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// canFrameWireSize is the classic (non-FD) struct can_frame layout: 4
// byte ID, 1 byte length, 3 bytes padding, 8 bytes data.
const canFrameWireSize = 16

// NewRawSocketcanBus opens and binds a CAN_RAW socket on the named
// interface (must already be up, e.g. `ip link set can0 up`).
func NewRawSocketcanBus(channel string) (*RawSocketcanBus, error) {
	iface, err := net.InterfaceByName(channel)
	if err != nil {
		return nil, err
	}
	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW, unix.CAN_RAW)
	if err != nil {
		return nil, fmt.Errorf("docan: failed to create CAN socket: %w", err)
	}
	if err := unix.Bind(fd, &unix.SockaddrCAN{Ifindex: iface.Index}); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("docan: failed to bind CAN socket: %w", err)
	}
	return &RawSocketcanBus{fd: fd}, nil
}

// SetFilters installs a CAN_RAW_FILTER filter set, narrowing reception
// to the addresses this module actually talks on.
func (b *RawSocketcanBus) SetFilters(filters []unix.CanFilter) error {
	return unix.SetsockoptCanRawFilter(b.fd, unix.SOL_CAN_RAW, unix.CAN_RAW_FILTER, filters)
}

func (b *RawSocketcanBus) Subscribe(listener FrameListener) (func(), error) {
	b.listener = listener
	return func() { b.listener = nil }, nil
}

func (b *RawSocketcanBus) Connect(...any) error {
	var ctx context.Context
	ctx, b.cancel = context.WithCancel(context.Background())
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.receiveLoop(ctx)
	}()
	return nil
}

func (b *RawSocketcanBus) Disconnect() error {
	if b.cancel != nil {
		b.cancel()
		b.wg.Wait()
	}
	return unix.Close(b.fd)
}

func (b *RawSocketcanBus) Send(frame Frame) error {
	buf := make([]byte, canFrameWireSize)
	binary.LittleEndian.PutUint32(buf[0:4], frame.ID)
	buf[4] = frame.DLC
	copy(buf[8:16], frame.Data[:])
	n, err := unix.Write(b.fd, buf)
	if err != nil {
		return err
	}
	if n != canFrameWireSize {
		return &TransportError{Kind: TransportInvalidPdu}
	}
	return nil
}

func (b *RawSocketcanBus) receiveLoop(ctx context.Context) {
	buf := make([]byte, canFrameWireSize)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		n, err := unix.Read(b.fd, buf)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warnf("[SOCKETCAN] read error: %v", err)
			continue
		}
		if n != canFrameWireSize {
			continue
		}
		var frame Frame
		frame.ID = binary.LittleEndian.Uint32(buf[0:4])
		frame.DLC = buf[4]
		copy(frame.Data[:], buf[8:16])
		if b.listener != nil {
			b.listener.Handle(frame)
		}
	}
}
