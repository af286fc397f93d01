package bridge

import (
	"context"
	"log/slog"
	"sync"

	"github.com/kstaniek/go-can-bridge/internal/hostch"
	"github.com/kstaniek/go-can-bridge/internal/metrics"
	"github.com/kstaniek/go-can-bridge/internal/netstack"
)

// MaxInterfaces is the configuration limit on simultaneously bridged
// interfaces.
const MaxInterfaces = 2

// InterfaceConfig describes one bridged interface.
type InterfaceConfig struct {
	Name       string        // upstream interface name (e.g. zcan0)
	Channel    hostch.Config // host channel selection
	PacketSeam bool          // also expose the packet-oriented seam
}

// openChannel is a hook for tests (overridden in unit tests).
var openChannel = hostch.Open

// Entry bundles one context with its device seams.
type Entry struct {
	Ctx  *Context
	Dev  *Device
	Sock *SocketDevice // nil unless the packet seam is enabled
}

// Registry owns the per-interface contexts, built once at startup.
type Registry struct {
	entries []*Entry
	byName  map[string]*Entry
	wg      sync.WaitGroup
}

// New builds the registry: for each configured interface it registers the
// upstream interface, opens the host channel and, on success, starts exactly
// one polling worker. An open failure is logged and leaves the context in
// the closed sentinel state; it never aborts startup, since a non-functional
// simulated interface is not safety-critical.
func New(ctx context.Context, stack netstack.Stack, l *slog.Logger, cfgs []InterfaceConfig) *Registry {
	if len(cfgs) > MaxInterfaces {
		l.Warn("too_many_interfaces", "configured", len(cfgs), "max", MaxInterfaces)
		cfgs = cfgs[:MaxInterfaces]
	}
	r := &Registry{byName: make(map[string]*Entry)}
	for _, ic := range cfgs {
		c := &Context{
			name:  ic.Name,
			up:    stack.RegisterInterface(ic.Name),
			stack: stack,
			log:   l,
		}
		ch, err := openChannel(ic.Channel)
		if err != nil {
			metrics.IncError(metrics.ErrChannelOpen)
			l.Error("channel_open_error", "if", ic.Name, "channel", ic.Channel.Name, "error", err)
			// c.ch stays nil: the interface is permanently inactive and
			// no worker ever touches the channel.
		} else {
			c.ch = ch
			l.Info("channel_open", "if", ic.Name, "driver", ic.Channel.Driver, "channel", ic.Channel.Name)
			r.wg.Add(1)
			go c.runWorker(ctx, &r.wg)
		}
		e := &Entry{Ctx: c, Dev: NewDevice(c)}
		if ic.PacketSeam {
			e.Sock = NewSocketDevice(c)
		}
		r.entries = append(r.entries, e)
		r.byName[ic.Name] = e
	}
	return r
}

// Lookup returns the entry for an interface name, or nil.
func (r *Registry) Lookup(name string) *Entry { return r.byName[name] }

// Entries returns the registry contents in configuration order.
func (r *Registry) Entries() []*Entry { return r.entries }

// ActiveCount returns the number of interfaces whose channel opened.
func (r *Registry) ActiveCount() int {
	n := 0
	for _, e := range r.entries {
		if e.Ctx.Active() {
			n++
		}
	}
	return n
}

// Close closes all host channels (unblocking any worker parked in WaitData)
// and waits for the workers to exit. The registry context must be cancelled
// before or alongside Close.
func (r *Registry) Close() {
	for _, e := range r.entries {
		if e.Ctx.ch != nil {
			_ = e.Ctx.ch.Close()
		}
	}
	r.wg.Wait()
}
