package docan

import "sync"

// AddressType selects physical (1:1) or functional (broadcast) addressing
// for a request.
type AddressType uint8

const (
	Physical AddressType = iota
	Functional
)

func (t AddressType) String() string {
	if t == Functional {
		return "functional"
	}
	return "physical"
}

// Address is the {tx_id, rx_id, fid} triple from spec.md §3. It is
// clone-cheap and immutable during a single exchange.
type Address struct {
	TxID uint32
	RxID uint32
	FID  uint32
}

// Clone returns a value copy.
func (a Address) Clone() Address {
	return a
}

// BoundAddress is the mutable-at-runtime handle both Client and Server
// embed: the current Address plus the machinery to rebind the underlying
// IsoTpTransport to a new one without reopening the CAN channel, per
// spec.md §3 ("mutable at runtime via an update operation that re-binds
// the ISO-TP layer without reopening the CAN channel").
type BoundAddress struct {
	mu        sync.Mutex
	addr      Address
	transport IsoTpTransport
}

// NewBoundAddress constructs a bound address over a transport already
// configured for addr.
func NewBoundAddress(addr Address, transport IsoTpTransport) *BoundAddress {
	return &BoundAddress{addr: addr, transport: transport}
}

// Current returns a snapshot of the bound address.
func (b *BoundAddress) Current() Address {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addr
}

// Update re-binds the transport to a new address.
func (b *BoundAddress) Update(addr Address) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.transport.Rebind(addr); err != nil {
		return err
	}
	b.addr = addr
	return nil
}

// Transport returns the underlying transport handle.
func (b *BoundAddress) Transport() IsoTpTransport {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.transport
}
