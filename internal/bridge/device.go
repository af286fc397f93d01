package bridge

import (
	"fmt"
	"time"

	"github.com/kstaniek/go-can-bridge/internal/frame"
	"github.com/kstaniek/go-can-bridge/internal/netstack"
)

// State is the controller error state reported by the raw seam.
type State int

const (
	StateErrorActive State = iota
	StateErrorPassive
	StateBusOff
)

func (s State) String() string {
	switch s {
	case StateErrorActive:
		return "error-active"
	case StateErrorPassive:
		return "error-passive"
	case StateBusOff:
		return "bus-off"
	default:
		return "unknown"
	}
}

// TxCallback reports the outcome of a raw-seam send.
type TxCallback func(err error)

// Device is the raw device-operation seam. It shares the Context with the
// packet seam; both treat it as read-only, so no locking between them.
//
// This bridge models no hardware-level filtering and no bus error states:
// filter attach/detach and state-change registration are no-ops and the
// state is always error-active.
type Device struct {
	ctx *Context
}

// NewDevice wraps a context in the raw seam.
func NewDevice(c *Context) *Device { return &Device{ctx: c} }

// Send writes one frame synchronously. The timeout and callback exist for
// contract compatibility with queueing drivers: the write either completes
// or fails before Send returns, so the timeout is unused and the callback
// (if any) fires inline.
func (d *Device) Send(f frame.Frame, timeout time.Duration, cb TxCallback) error {
	_ = timeout
	err := d.ctx.Send(f)
	if cb != nil {
		cb(err)
	}
	return err
}

// AttachFilter accepts any filter and returns filter id 0; the host channel
// delivers everything and filtering happens via the socket option adapter.
func (d *Device) AttachFilter(flt frame.Filter) (int, error) { return 0, nil }

// Detach is a no-op; there is no per-filter bookkeeping to release.
func (d *Device) Detach(filterID int) {}

// State always reports error-active; bus health is not modeled.
func (d *Device) State() State { return StateErrorActive }

// RegisterStateChange is a no-op; the state never changes.
func (d *Device) RegisterStateChange(fn func(State)) {}

// SocketDevice is the packet-oriented seam, enabled per interface when
// higher-level integration is active.
type SocketDevice struct {
	ctx *Context
	dev *Device
}

// NewSocketDevice wraps a context in the packet seam.
func NewSocketDevice(c *Context) *SocketDevice {
	return &SocketDevice{ctx: c, dev: NewDevice(c)}
}

// Send validates the packet's address family before translation and hands
// the frame to the synchronous send path.
func (s *SocketDevice) Send(pkt *netstack.Packet) error {
	if pkt.Family != netstack.FamilyCAN {
		return fmt.Errorf("%w: family %d", ErrFamilyMismatch, pkt.Family)
	}
	return s.ctx.Send(pkt.Frame)
}

// SetOption delegates to the socket option adapter.
func (s *SocketDevice) SetOption(level, name int, value []byte) error {
	return s.ctx.SetOption(level, name, value)
}

// Close detaches the given filter id and releases the installed channel
// filter, restoring accept-all.
func (s *SocketDevice) Close(filterID int) {
	s.dev.Detach(filterID)
	if s.ctx.ch != nil {
		if err := s.ctx.ch.ClearFilter(); err != nil {
			s.ctx.log.Warn("filter_clear_error", "if", s.ctx.name, "error", err)
		}
	}
}
