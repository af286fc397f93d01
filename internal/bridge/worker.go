package bridge

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/kstaniek/go-can-bridge/internal/frame"
	"github.com/kstaniek/go-can-bridge/internal/metrics"
	"github.com/kstaniek/go-can-bridge/internal/netstack"
)

const (
	// PollInterval is the idle recheck period while the upstream interface
	// is administratively down.
	PollInterval = 10 * time.Millisecond
	// BufAllocTimeout bounds the wait for a receive buffer.
	BufAllocTimeout = 100 * time.Millisecond
)

// sleepFn allows tests to intercept idle-poll sleeps.
var sleepFn = time.Sleep

// allocTimeout allows tests to shorten the buffer wait.
var allocTimeout = BufAllocTimeout

// runWorker is the per-interface polling loop. While the interface is down
// it sleeps PollInterval and rechecks; while up it blocks on host data
// readiness with no timeout and drains one frame per wakeup. The loop only
// exits on context cancellation (daemon shutdown); a never-up interface
// parks here forever without touching the channel.
func (c *Context) runWorker(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	defer c.log.Info("rx_worker_end", "if", c.name)
	c.log.Info("rx_worker_start", "if", c.name)
	for {
		if ctx.Err() != nil {
			return
		}
		if c.up != nil && c.up.IsUp() {
			for {
				if err := c.ch.WaitData(); err != nil {
					if ctx.Err() != nil {
						return
					}
					c.log.Warn("host_wait_error", "if", c.name, "error", err)
					break
				}
				c.readOnce()
				if ctx.Err() != nil {
					return
				}
			}
		}
		sleepFn(PollInterval)
	}
}

// readOnce drains one host frame and pushes it up the receive path.
// Delivery is best-effort: buffer exhaustion or a full receive queue drops
// the frame without backpressure to the host side.
func (c *Context) readOnce() {
	var hf frame.HostFrame
	ok, err := c.ch.ReadFrame(&hf)
	if err != nil {
		metrics.IncError(metrics.ErrHostRead)
		c.log.Warn("host_read_error", "if", c.name, "error", err)
		return
	}
	if !ok {
		return
	}
	metrics.IncHostRx()

	f := frame.ToFrame(hf)
	pkt, err := c.stack.AllocRx(c.up, frame.HostWireSize, netstack.FamilyCAN, allocTimeout)
	if err != nil {
		metrics.IncRxDropNoBuf()
		c.log.Warn("rx_no_buffer", "if", c.name, "id", f.ID, "error", err)
		return
	}
	pkt.Frame = f
	if err := c.stack.Recv(c.up, pkt); err != nil {
		c.stack.Release(pkt)
		if errors.Is(err, netstack.ErrQueueFull) {
			metrics.IncRxDropQueue()
		} else {
			metrics.IncError(metrics.ErrStackRecv)
		}
		c.log.Warn("rx_submit_error", "if", c.name, "id", f.ID, "error", err)
		return
	}
	metrics.IncStackRx()
}
