package netstack

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kstaniek/go-can-bridge/internal/frame"
	"github.com/kstaniek/go-can-bridge/internal/logging"
)

// Family is the address family tag carried by receive packets.
type Family uint8

const (
	FamilyUnspec Family = iota
	FamilyCAN
)

// MaxRxPacket bounds a single receive buffer request.
const MaxRxPacket = 128

// Packet is one receive-path buffer. Buffers are pooled: consumers must
// Release them back to the stack.
type Packet struct {
	Family Family
	Frame  frame.Frame
}

// Interface is an upstream network interface as seen by the bridge: identity
// plus administrative state.
type Interface interface {
	Name() string
	IsUp() bool
}

// Stack is the network-stack collaborator. AllocRx waits at most timeout for
// a free buffer and fails non-fatally under memory pressure; Recv submits an
// allocated packet to the interface's receive path.
type Stack interface {
	RegisterInterface(name string) Interface
	AllocRx(ifc Interface, size int, fam Family, timeout time.Duration) (*Packet, error)
	Recv(ifc Interface, pkt *Packet) error
	Release(pkt *Packet)
}

var (
	// ErrNoBuffer means the pool stayed empty for the whole allocation wait.
	ErrNoBuffer = errors.New("netstack: no rx buffer")
	// ErrQueueFull means the interface receive queue rejected the packet.
	ErrQueueFull = errors.New("netstack: rx queue full")
)

// LocalInterface is the in-process Interface implementation. It starts
// administratively down.
type LocalInterface struct {
	name string
	up   atomic.Bool
}

func (i *LocalInterface) Name() string { return i.name }
func (i *LocalInterface) IsUp() bool   { return i.up.Load() }
func (i *LocalInterface) SetUp(up bool) {
	if i.up.Swap(up) != up {
		logging.L().Info("iface_admin_state", "if", i.name, "up", up)
	}
}

// Local is an in-process Stack: a fixed-capacity packet pool and one bounded
// receive queue per registered interface, fanned out to subscribers.
type Local struct {
	mu        sync.Mutex
	pool      chan *Packet
	ifaces    map[string]*LocalInterface
	queues    map[string]chan *Packet
	queueSize int
}

// NewLocal creates a Local stack with poolSize receive buffers and
// queueSize per-interface receive slots.
func NewLocal(poolSize, queueSize int) *Local {
	l := &Local{
		pool:      make(chan *Packet, poolSize),
		ifaces:    make(map[string]*LocalInterface),
		queues:    make(map[string]chan *Packet),
		queueSize: queueSize,
	}
	for i := 0; i < poolSize; i++ {
		l.pool <- &Packet{}
	}
	return l
}

// RegisterInterface returns the interface handle for name, creating it
// (administratively down) on first use.
func (l *Local) RegisterInterface(name string) Interface {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ifc, ok := l.ifaces[name]; ok {
		return ifc
	}
	ifc := &LocalInterface{name: name}
	l.ifaces[name] = ifc
	l.queues[name] = make(chan *Packet, l.queueSize)
	return ifc
}

// SetUp changes the administrative state of a registered interface.
func (l *Local) SetUp(name string, up bool) {
	l.mu.Lock()
	ifc := l.ifaces[name]
	l.mu.Unlock()
	if ifc != nil {
		ifc.SetUp(up)
	}
}

// AllocRx takes a buffer from the pool, waiting at most timeout.
func (l *Local) AllocRx(ifc Interface, size int, fam Family, timeout time.Duration) (*Packet, error) {
	if size <= 0 || size > MaxRxPacket {
		return nil, fmt.Errorf("netstack: bad rx alloc size %d", size)
	}
	select {
	case pkt := <-l.pool:
		pkt.Family = fam
		return pkt, nil
	default:
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case pkt := <-l.pool:
		pkt.Family = fam
		return pkt, nil
	case <-t.C:
		return nil, ErrNoBuffer
	}
}

// Recv submits a packet to the interface receive queue. On ErrQueueFull the
// caller still owns the packet and must Release it.
func (l *Local) Recv(ifc Interface, pkt *Packet) error {
	l.mu.Lock()
	q := l.queues[ifc.Name()]
	l.mu.Unlock()
	if q == nil {
		return fmt.Errorf("netstack: unregistered interface %q", ifc.Name())
	}
	select {
	case q <- pkt:
		return nil
	default:
		return ErrQueueFull
	}
}

// Release returns a packet to the pool.
func (l *Local) Release(pkt *Packet) {
	if pkt == nil {
		return
	}
	*pkt = Packet{}
	select {
	case l.pool <- pkt:
	default: // pool already full (double release); drop on the floor
	}
}

// Queue exposes the receive queue of a registered interface. Consumers must
// Release every packet they take.
func (l *Local) Queue(name string) <-chan *Packet {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.queues[name]
}

// Drain starts a goroutine consuming an interface's receive queue, invoking
// fn (may be nil) for each packet and releasing it. Used by the daemon as
// the terminal receive-path consumer.
func (l *Local) Drain(name string, fn func(*Packet)) {
	q := l.Queue(name)
	if q == nil {
		return
	}
	go func() {
		for pkt := range q {
			if fn != nil {
				fn(pkt)
			}
			l.Release(pkt)
		}
	}()
}
