package metrics

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/kstaniek/go-can-bridge/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus counters
var (
	HostRxFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "host_rx_frames_total",
		Help: "Total CAN frames read from host channels.",
	})
	HostTxFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "host_tx_frames_total",
		Help: "Total CAN frames written to host channels.",
	})
	StackRxDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stack_rx_delivered_total",
		Help: "Total frames delivered to the network stack receive path.",
	})
	RxDroppedNoBuf = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rx_dropped_no_buffer_total",
		Help: "Total received frames dropped because no receive buffer was available.",
	})
	RxDroppedQueue = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rx_dropped_queue_total",
		Help: "Total received frames dropped because the receive queue was full.",
	})
	FilterInstalls = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filter_installs_total",
		Help: "Total successful CAN filter installations.",
	})
	MalformedFilters = promauto.NewCounter(prometheus.CounterOpts{
		Name: "malformed_filters_total",
		Help: "Total rejected filter blobs (unsupported option or invalid length).",
	})
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "build_info",
		Help: "Build metadata (value is always 1).",
	}, []string{"version", "commit", "date"})
	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "errors_total",
		Help: "Error counters by subsystem.",
	}, []string{"where"})
	readinessMu sync.RWMutex
	readinessFn func() bool
)

// Error label constants (stable label values to bound cardinality)
const (
	ErrChannelOpen   = "channel_open"
	ErrHostRead      = "host_read"
	ErrHostWrite     = "host_write"
	ErrFilterInstall = "filter_install"
	ErrStackRecv     = "stack_recv"
)

// StartHTTP serves Prometheus metrics at /metrics on the given address and
// a readiness probe at /ready.
func StartHTTP(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if IsReady() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready\n"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready\n"))
	})

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	go func() {
		logging.L().Info("metrics_listen", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.L().Error("metrics_http_error", "error", err)
		}
	}()
	return srv
}

// Local mirrored counters for easy logging (avoid Prometheus scraping in-process)
var (
	localHostRx    uint64
	localHostTx    uint64
	localStackRx   uint64
	localDropNoBuf uint64
	localDropQueue uint64
	localFilters   uint64
	localMalformed uint64
	localErrors    uint64
)

// Snapshot is a cheap copy of local counters.
type Snapshot struct {
	HostRx         uint64
	HostTx         uint64
	StackRx        uint64
	DroppedNoBuf   uint64
	DroppedQueue   uint64
	FilterInstalls uint64
	Malformed      uint64
	Errors         uint64 // sum across error labels
}

func Snap() Snapshot {
	return Snapshot{
		HostRx:         atomic.LoadUint64(&localHostRx),
		HostTx:         atomic.LoadUint64(&localHostTx),
		StackRx:        atomic.LoadUint64(&localStackRx),
		DroppedNoBuf:   atomic.LoadUint64(&localDropNoBuf),
		DroppedQueue:   atomic.LoadUint64(&localDropQueue),
		FilterInstalls: atomic.LoadUint64(&localFilters),
		Malformed:      atomic.LoadUint64(&localMalformed),
		Errors:         atomic.LoadUint64(&localErrors),
	}
}

// Wrapper helpers to keep call sites simple.
func IncHostRx() {
	HostRxFrames.Inc()
	atomic.AddUint64(&localHostRx, 1)
}

func IncHostTx() {
	HostTxFrames.Inc()
	atomic.AddUint64(&localHostTx, 1)
}

func IncStackRx() {
	StackRxDelivered.Inc()
	atomic.AddUint64(&localStackRx, 1)
}

func IncRxDropNoBuf() {
	RxDroppedNoBuf.Inc()
	atomic.AddUint64(&localDropNoBuf, 1)
}

func IncRxDropQueue() {
	RxDroppedQueue.Inc()
	atomic.AddUint64(&localDropQueue, 1)
}

func IncFilterInstall() {
	FilterInstalls.Inc()
	atomic.AddUint64(&localFilters, 1)
}

func IncMalformedFilter() {
	MalformedFilters.Inc()
	atomic.AddUint64(&localMalformed, 1)
}

func IncError(label string) {
	Errors.WithLabelValues(label).Inc()
	atomic.AddUint64(&localErrors, 1)
}

// InitBuildInfo sets the build info gauge (should be called once at startup).
func InitBuildInfo(version, commit, date string) {
	BuildInfo.WithLabelValues(version, commit, date).Set(1)
	// Pre-register error label series so the first error does not pay
	// registration latency.
	for _, lbl := range []string{
		ErrChannelOpen, ErrHostRead, ErrHostWrite,
		ErrFilterInstall, ErrStackRecv,
	} {
		Errors.WithLabelValues(lbl).Add(0)
	}
}

// SetReadinessFunc registers a function used by /ready and IsReady.
func SetReadinessFunc(fn func() bool) { readinessMu.Lock(); readinessFn = fn; readinessMu.Unlock() }

// IsReady invokes the registered readiness function if present.
func IsReady() bool {
	readinessMu.RLock()
	fn := readinessFn
	readinessMu.RUnlock()
	if fn == nil { // if not set yet, treat as ready so metrics endpoint doesn't flap
		return true
	}
	return fn()
}
