package bridge

import (
	"fmt"
	"log/slog"

	"github.com/kstaniek/go-can-bridge/internal/frame"
	"github.com/kstaniek/go-can-bridge/internal/hostch"
	"github.com/kstaniek/go-can-bridge/internal/metrics"
	"github.com/kstaniek/go-can-bridge/internal/netstack"
)

// Context binds one configured interface to its open host channel and its
// upstream network interface. All fields are written exactly once by the
// registry, before the worker starts; every later access (worker, send path,
// option adapter, device seams) is read-only, so no locking is needed.
//
// ch == nil is the closed sentinel: the channel failed to open and the
// interface is permanently inactive. The worker is never started in that
// case and the send paths fail fast without any I/O.
type Context struct {
	name  string
	ch    hostch.Channel
	up    netstack.Interface
	stack netstack.Stack
	log   *slog.Logger
}

// Name returns the configured interface name.
func (c *Context) Name() string { return c.name }

// Active reports whether the host channel opened successfully.
func (c *Context) Active() bool { return c.ch != nil }

// Send translates a canonical frame to the host wire form and writes it
// synchronously to the channel. No queueing, no retry: a write failure is
// surfaced immediately to the caller. Safe for concurrent callers; the
// channel writes whole frames atomically.
func (c *Context) Send(f frame.Frame) error {
	if c.ch == nil {
		return fmt.Errorf("%w: %s", ErrDeviceNotPresent, c.name)
	}
	hf := frame.ToHost(f)
	if err := c.ch.WriteFrame(hf); err != nil {
		metrics.IncError(metrics.ErrHostWrite)
		c.log.Warn("host_write_error", "if", c.name, "dlc", hf.DLC, "error", err)
		return fmt.Errorf("host write %s: %w", c.name, err)
	}
	metrics.IncHostTx()
	return nil
}
