package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/kstaniek/go-can-bridge/internal/bridge"
	"github.com/kstaniek/go-can-bridge/internal/metrics"
	"github.com/kstaniek/go-can-bridge/internal/netstack"
)

func main() {
	cfg, showVersion := parseFlags()
	if showVersion {
		fmt.Printf("can-bridge %s (commit %s, built %s)\n", version, commit, date)
		return
	}
	if cfg == nil {
		os.Exit(1)
	}
	l := setupLogger(cfg.logFormat, cfg.logLevel)
	l.Info("build_info", "version", version, "commit", commit, "date", date)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var wg sync.WaitGroup
	startMetricsLogger(ctx, cfg.logMetricsEvery, l, &wg)

	stack := netstack.NewLocal(cfg.rxPool, cfg.rxQueue)
	ifcfgs := cfg.interfaces()
	if len(ifcfgs) == 0 {
		l.Warn("no_interfaces_configured")
	}
	reg := bridge.New(ctx, stack, l, ifcfgs)
	l.Info("bridge_init", "configured", len(ifcfgs), "active", reg.ActiveCount())

	// Terminal receive-path consumer: drain each interface queue and bring
	// the interface administratively up once its drain is in place.
	for _, ic := range ifcfgs {
		name := ic.Name
		stack.Drain(name, func(pkt *netstack.Packet) {
			l.Debug("rx_frame", "if", name, "id", pkt.Frame.ID, "dlc", pkt.Frame.DLC)
		})
		stack.SetUp(name, true)
	}

	// Ready when at least one interface bridged and context not cancelled.
	metrics.SetReadinessFunc(func() bool {
		return ctx.Err() == nil && reg.ActiveCount() > 0
	})
	if cfg.metricsAddr != "" {
		metrics.InitBuildInfo(version, commit, date)
		srvHTTP := metrics.StartHTTP(cfg.metricsAddr)
		defer func() { _ = srvHTTP.Shutdown(context.Background()) }()

		if cfg.mdnsEnable {
			port := 0
			if _, p, err := net.SplitHostPort(cfg.metricsAddr); err == nil {
				if pn, perr := strconv.Atoi(p); perr == nil {
					port = pn
				}
			}
			if port > 0 {
				cleanupMDNS, err := startMDNS(ctx, cfg, port)
				if err != nil {
					l.Warn("mdns_start_failed", "error", err)
				} else {
					l.Info("mdns_started", "service", mdnsServiceType, "name", cfg.mdnsName, "port", port)
					defer cleanupMDNS()
				}
			} else {
				l.Warn("mdns_skipped_no_port", "metrics_addr", cfg.metricsAddr)
			}
		}
	}

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	s := <-sigCh
	l.Info("shutdown_signal", "signal", s.String())
	cancel()
	reg.Close()
	wg.Wait()
}
