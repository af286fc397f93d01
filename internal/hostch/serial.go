package hostch

import (
	"sync/atomic"
	"time"

	"github.com/tarm/serial"

	"github.com/kstaniek/go-can-bridge/internal/frame"
)

// Port abstracts tarm/serial for testability.
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// openPort is a hook for tests (overridden in unit tests).
var openPort = func(name string, baud int, readTimeout time.Duration) (Port, error) {
	cfg := &serial.Config{Name: name, Baud: baud, ReadTimeout: readTimeout}
	return serial.OpenPort(cfg)
}

// serialChannel carries raw 16-byte host frame blobs back-to-back over a
// serial byte stream. A UART has no kernel-side filtering, so the installed
// filter is applied in software on the read path.
type serialChannel struct {
	p    Port
	acc  []byte // partial-frame accumulator
	rbuf [256]byte
	flt  atomic.Pointer[frame.Filter]
}

// OpenSerial opens a serial host channel on the named device.
func OpenSerial(name string, baud int, readTO time.Duration) (Channel, error) {
	p, err := openPort(name, baud, readTO)
	if err != nil {
		return nil, err
	}
	return &serialChannel{p: p}, nil
}

// WaitData reads from the port until at least one whole frame is buffered.
// Zero-byte reads (port read timeout) just keep waiting; silence is normal.
func (c *serialChannel) WaitData() error {
	for len(c.acc) < frame.HostWireSize {
		n, err := c.p.Read(c.rbuf[:])
		if n > 0 {
			c.acc = append(c.acc, c.rbuf[:n]...)
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// ReadFrame pops one buffered frame. ok=false when nothing is buffered or
// the frame was rejected by the installed filter.
func (c *serialChannel) ReadFrame(fr *frame.HostFrame) (bool, error) {
	if len(c.acc) < frame.HostWireSize {
		return false, nil
	}
	hf, err := frame.HostFrameFromWire(c.acc[:frame.HostWireSize])
	c.acc = c.acc[frame.HostWireSize:]
	if len(c.acc) == 0 {
		c.acc = nil // release backing array between bursts
	}
	if err != nil {
		return false, err
	}
	if flt := c.flt.Load(); flt != nil && !flt.Matches(hf) {
		return false, nil
	}
	*fr = hf
	return true, nil
}

func (c *serialChannel) WriteFrame(fr frame.HostFrame) error {
	var buf [frame.HostWireSize]byte
	fr.PutWire(buf[:])
	_, err := c.p.Write(buf[:])
	return err
}

func (c *serialChannel) InstallFilter(flt frame.Filter) error {
	if flt.IsZero() {
		return c.ClearFilter()
	}
	c.flt.Store(&flt)
	return nil
}

func (c *serialChannel) ClearFilter() error {
	c.flt.Store(nil)
	return nil
}

func (c *serialChannel) Close() error { return c.p.Close() }
