package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kstaniek/go-can-bridge/internal/bridge"
	"github.com/kstaniek/go-can-bridge/internal/hostch"
)

// ifaceConfig describes one bridged interface. An empty name disables the
// slot.
type ifaceConfig struct {
	name    string
	driver  string
	channel string
	baud    int
	packet  bool
}

type appConfig struct {
	if1             ifaceConfig
	if2             ifaceConfig
	serialReadTO    time.Duration
	rxPool          int
	rxQueue         int
	logFormat       string
	logLevel        string
	metricsAddr     string
	logMetricsEvery time.Duration
	mdnsEnable      bool
	mdnsName        string
}

func parseFlags() (*appConfig, bool) {
	cfg := &appConfig{}
	if1Name := flag.String("if1-name", "zcan0", "First interface name (empty disables)")
	if1Driver := flag.String("if1-driver", "socketcan", "First interface channel driver: socketcan|serial")
	if1Channel := flag.String("if1-channel", "vcan0", "First interface host channel (CAN interface or serial device)")
	if1Baud := flag.Int("if1-baud", 115200, "First interface serial baud rate")
	if1Packet := flag.Bool("if1-packet", true, "Expose the packet-oriented seam on the first interface")
	if2Name := flag.String("if2-name", "", "Second interface name (empty disables)")
	if2Driver := flag.String("if2-driver", "socketcan", "Second interface channel driver: socketcan|serial")
	if2Channel := flag.String("if2-channel", "", "Second interface host channel")
	if2Baud := flag.Int("if2-baud", 115200, "Second interface serial baud rate")
	if2Packet := flag.Bool("if2-packet", false, "Expose the packet-oriented seam on the second interface")
	serialReadTO := flag.Duration("serial-read-timeout", 50*time.Millisecond, "Serial channel read timeout")
	rxPool := flag.Int("rx-pool", 64, "Receive buffer pool size (packets)")
	rxQueue := flag.Int("rx-queue", 256, "Per-interface receive queue depth (packets)")
	logFormat := flag.String("log-format", "text", "Log format: text|json")
	logLevel := flag.String("log-level", "info", "Log level: debug|info|warn|error")
	metricsAddr := flag.String("metrics-addr", "", "Metrics HTTP listen address (e.g., :9100); empty disables")
	logMetricsEvery := flag.Duration("log-metrics-interval", 0, "If >0, periodically log metrics counters (for non-Prometheus setups)")
	mdnsEnable := flag.Bool("mdns-enable", false, "Enable mDNS/Avahi advertisement of the monitor endpoint")
	mdnsName := flag.String("mdns-name", "", "mDNS instance name (default can-bridge-<hostname>)")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	// Track which flags were explicitly set to give them precedence over env.
	setFlags := map[string]struct{}{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = struct{}{} })
	cfg.if1 = ifaceConfig{name: *if1Name, driver: *if1Driver, channel: *if1Channel, baud: *if1Baud, packet: *if1Packet}
	cfg.if2 = ifaceConfig{name: *if2Name, driver: *if2Driver, channel: *if2Channel, baud: *if2Baud, packet: *if2Packet}
	cfg.serialReadTO = *serialReadTO
	cfg.rxPool = *rxPool
	cfg.rxQueue = *rxQueue
	cfg.logFormat = *logFormat
	cfg.logLevel = *logLevel
	cfg.metricsAddr = *metricsAddr
	cfg.logMetricsEvery = *logMetricsEvery
	cfg.mdnsEnable = *mdnsEnable
	cfg.mdnsName = *mdnsName

	if err := applyEnvOverrides(cfg, setFlags); err != nil {
		fmt.Printf("environment override error: %v\n", err)
		return nil, *showVersion
	}
	if err := cfg.validate(); err != nil {
		fmt.Printf("configuration error: %v\n", err)
		return nil, *showVersion
	}
	return cfg, *showVersion
}

// validate performs basic semantic validation of the parsed configuration.
// It does not attempt to open channels – only checks values/ranges.
func (c *appConfig) validate() error {
	if c == nil {
		return errors.New("nil config")
	}
	switch c.logFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log-format: %s", c.logFormat)
	}
	switch c.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log-level: %s", c.logLevel)
	}
	if c.rxPool <= 0 {
		return fmt.Errorf("rx-pool must be > 0 (got %d)", c.rxPool)
	}
	if c.rxQueue <= 0 {
		return fmt.Errorf("rx-queue must be > 0 (got %d)", c.rxQueue)
	}
	if c.serialReadTO <= 0 {
		return errors.New("serial-read-timeout must be > 0")
	}
	if c.if1.name != "" && c.if1.name == c.if2.name {
		return fmt.Errorf("interface names must differ (both %q)", c.if1.name)
	}
	for _, ic := range []struct {
		slot string
		cfg  ifaceConfig
	}{{"if1", c.if1}, {"if2", c.if2}} {
		if ic.cfg.name == "" {
			continue
		}
		switch ic.cfg.driver {
		case "socketcan", "serial":
		default:
			return fmt.Errorf("invalid %s-driver: %s", ic.slot, ic.cfg.driver)
		}
		if ic.cfg.channel == "" {
			return fmt.Errorf("%s-channel must be set when %s-name is set", ic.slot, ic.slot)
		}
		if ic.cfg.driver == "serial" && ic.cfg.baud <= 0 {
			return fmt.Errorf("%s-baud must be > 0 (got %d)", ic.slot, ic.cfg.baud)
		}
	}
	return nil
}

// interfaces converts the enabled slots to registry configuration.
func (c *appConfig) interfaces() []bridge.InterfaceConfig {
	var out []bridge.InterfaceConfig
	for _, ic := range []ifaceConfig{c.if1, c.if2} {
		if ic.name == "" {
			continue
		}
		out = append(out, bridge.InterfaceConfig{
			Name: ic.name,
			Channel: hostch.Config{
				Driver: ic.driver,
				Name:   ic.channel,
				Baud:   ic.baud,
				ReadTO: c.serialReadTO,
			},
			PacketSeam: ic.packet,
		})
	}
	return out
}

// applyEnvOverrides maps CAN_BRIDGE_* environment variables to config fields
// unless a corresponding flag was explicitly set. Empty values are ignored.
// Duration accepts Go time.ParseDuration format.
func applyEnvOverrides(c *appConfig, set map[string]struct{}) error {
	var firstErr error
	get := func(k string) (string, bool) { v, ok := os.LookupEnv(k); return strings.TrimSpace(v), ok }
	str := func(flagName, env string, dst *string) {
		if _, ok := set[flagName]; ok {
			return
		}
		if v, ok := get(env); ok && v != "" {
			*dst = v
		}
	}
	num := func(flagName, env string, dst *int) {
		if _, ok := set[flagName]; ok {
			return
		}
		if v, ok := get(env); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			} else if firstErr == nil {
				firstErr = fmt.Errorf("invalid %s: %w", env, err)
			}
		}
	}
	dur := func(flagName, env string, dst *time.Duration) {
		if _, ok := set[flagName]; ok {
			return
		}
		if v, ok := get(env); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			} else if firstErr == nil {
				firstErr = fmt.Errorf("invalid %s: %w", env, err)
			}
		}
	}
	boolean := func(flagName, env string, dst *bool) {
		if _, ok := set[flagName]; ok {
			return
		}
		if v, ok := get(env); ok && v != "" {
			switch strings.ToLower(v) {
			case "1", "true", "yes", "on":
				*dst = true
			case "0", "false", "no", "off":
				*dst = false
			}
		}
	}

	str("if1-name", "CAN_BRIDGE_IF1_NAME", &c.if1.name)
	str("if1-driver", "CAN_BRIDGE_IF1_DRIVER", &c.if1.driver)
	str("if1-channel", "CAN_BRIDGE_IF1_CHANNEL", &c.if1.channel)
	num("if1-baud", "CAN_BRIDGE_IF1_BAUD", &c.if1.baud)
	boolean("if1-packet", "CAN_BRIDGE_IF1_PACKET", &c.if1.packet)
	str("if2-name", "CAN_BRIDGE_IF2_NAME", &c.if2.name)
	str("if2-driver", "CAN_BRIDGE_IF2_DRIVER", &c.if2.driver)
	str("if2-channel", "CAN_BRIDGE_IF2_CHANNEL", &c.if2.channel)
	num("if2-baud", "CAN_BRIDGE_IF2_BAUD", &c.if2.baud)
	boolean("if2-packet", "CAN_BRIDGE_IF2_PACKET", &c.if2.packet)
	dur("serial-read-timeout", "CAN_BRIDGE_SERIAL_READ_TIMEOUT", &c.serialReadTO)
	num("rx-pool", "CAN_BRIDGE_RX_POOL", &c.rxPool)
	num("rx-queue", "CAN_BRIDGE_RX_QUEUE", &c.rxQueue)
	str("log-format", "CAN_BRIDGE_LOG_FORMAT", &c.logFormat)
	str("log-level", "CAN_BRIDGE_LOG_LEVEL", &c.logLevel)
	str("metrics-addr", "CAN_BRIDGE_METRICS", &c.metricsAddr)
	dur("log-metrics-interval", "CAN_BRIDGE_LOG_METRICS_INTERVAL", &c.logMetricsEvery)
	boolean("mdns-enable", "CAN_BRIDGE_MDNS_ENABLE", &c.mdnsEnable)
	str("mdns-name", "CAN_BRIDGE_MDNS_NAME", &c.mdnsName)
	return firstErr
}
