package hostch

import (
	"fmt"
	"time"

	"github.com/kstaniek/go-can-bridge/internal/frame"
)

// Channel is one open host-side CAN transport. A Channel carries fixed-size
// host frame blobs in both directions and holds at most one installed filter
// (installing a new one replaces the previous, clearing restores accept-all).
//
// WaitData blocks with no timeout until at least one frame is readable or
// the channel fails/closes; silence on the bus is a normal state. ReadFrame
// never blocks after WaitData reported readiness; ok=false means nothing was
// delivered (for example the buffered frame was rejected by the installed
// filter).
type Channel interface {
	WaitData() error
	ReadFrame(fr *frame.HostFrame) (ok bool, err error)
	WriteFrame(fr frame.HostFrame) error
	InstallFilter(flt frame.Filter) error
	ClearFilter() error
	Close() error
}

// Config selects and parameterizes a channel driver.
type Config struct {
	Driver string // "socketcan" | "serial"
	Name   string // interface name or serial device path
	Baud   int    // serial only
	ReadTO time.Duration
}

// Open opens the host channel described by cfg.
func Open(cfg Config) (Channel, error) {
	switch cfg.Driver {
	case "socketcan":
		return OpenSocketCAN(cfg.Name)
	case "serial":
		return OpenSerial(cfg.Name, cfg.Baud, cfg.ReadTO)
	default:
		return nil, fmt.Errorf("unknown channel driver %q (use socketcan|serial)", cfg.Driver)
	}
}
