//go:build linux

package hostch

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"

	"github.com/kstaniek/go-can-bridge/internal/frame"
)

type socketCAN struct {
	fd int
}

// OpenSocketCAN binds a raw AF_CAN socket to the named host interface
// (e.g. vcan0). CAN FD is disabled so reads always produce classic 16-byte
// frames.
func OpenSocketCAN(iface string) (Channel, error) {
	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW, unix.CAN_RAW)
	if err != nil {
		return nil, fmt.Errorf("socket(AF_CAN): %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_CAN_RAW, unix.CAN_RAW_FD_FRAMES, 0); err != nil {
		// Older kernels may not know this option; ignore ENOPROTOOPT
		if err != unix.ENOPROTOOPT {
			_ = unix.Close(fd)
			return nil, fmt.Errorf("disable CAN FD: %w", err)
		}
	}
	ifi, err := net.InterfaceByName(iface)
	if err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("if %q: %w", iface, err)
	}
	sa := &unix.SockaddrCAN{Ifindex: ifi.Index}
	if err := unix.Bind(fd, sa); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("bind(can@%s): %w", iface, err)
	}
	return &socketCAN{fd: fd}, nil
}

// WaitData polls the socket for readability with no timeout.
func (c *socketCAN) WaitData() error {
	for {
		fds := []unix.PollFd{{Fd: int32(c.fd), Events: unix.POLLIN}}
		n, err := unix.Poll(fds, -1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return fmt.Errorf("poll(can): %w", err)
		}
		if n > 0 && fds[0].Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
			return fmt.Errorf("poll(can): revents 0x%x", fds[0].Revents)
		}
		if n > 0 {
			return nil
		}
	}
}

// ReadFrame reads one classic CAN frame from the raw socket. The kernel
// applies the installed filter, so a successful read always delivers.
func (c *socketCAN) ReadFrame(fr *frame.HostFrame) (bool, error) {
	var buf [frame.HostWireSize]byte
	n, err := unix.Read(c.fd, buf[:])
	if err != nil {
		return false, err
	}
	if n != frame.HostWireSize {
		return false, fmt.Errorf("short read: %d", n)
	}
	hf, err := frame.HostFrameFromWire(buf[:])
	if err != nil {
		return false, err
	}
	*fr = hf
	return true, nil
}

// WriteFrame writes one classic CAN frame; the kernel writes whole frames
// atomically.
func (c *socketCAN) WriteFrame(fr frame.HostFrame) error {
	var buf [frame.HostWireSize]byte
	fr.PutWire(buf[:])
	_, err := unix.Write(c.fd, buf[:])
	return err
}

// InstallFilter replaces the kernel-side receive filter.
func (c *socketCAN) InstallFilter(flt frame.Filter) error {
	if flt.IsZero() {
		return c.ClearFilter()
	}
	raw := []unix.CanFilter{{Id: flt.HostID(), Mask: flt.HostMask()}}
	if err := unix.SetsockoptCanRawFilter(c.fd, unix.SOL_CAN_RAW, unix.CAN_RAW_FILTER, raw); err != nil {
		return fmt.Errorf("install filter: %w", err)
	}
	return nil
}

// ClearFilter restores the accept-all filter.
func (c *socketCAN) ClearFilter() error {
	raw := []unix.CanFilter{{Id: 0, Mask: 0}}
	if err := unix.SetsockoptCanRawFilter(c.fd, unix.SOL_CAN_RAW, unix.CAN_RAW_FILTER, raw); err != nil {
		return fmt.Errorf("clear filter: %w", err)
	}
	return nil
}

func (c *socketCAN) Close() error { return unix.Close(c.fd) }
