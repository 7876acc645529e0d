package observability

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once

	bridgeReconnects = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "pubmarine",
		Subsystem: "bridge",
		Name:      "reconnects_total",
		Help:      "Serial port reopens after a read failure.",
	})
	bridgeCommands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pubmarine",
			Subsystem: "bridge",
			Name:      "commands_total",
			Help:      "Commands decoded from the vehicle.",
		},
		[]string{"name"},
	)
	bridgeDecodeErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "pubmarine",
		Subsystem: "bridge",
		Name:      "decode_errors_total",
		Help:      "Inbound lines dropped because they failed to decode.",
	})
	bridgeWriteErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "pubmarine",
		Subsystem: "bridge",
		Name:      "write_errors_total",
		Help:      "Outbound commands dropped because the write failed.",
	})
	vehicleTicks = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "pubmarine",
		Subsystem: "vehicle",
		Name:      "ticks_total",
		Help:      "Control loop iterations.",
	})
	vehicleOverruns = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "pubmarine",
		Subsystem: "vehicle",
		Name:      "tick_overruns_total",
		Help:      "Ticks whose processing took longer than the tick period.",
	})
	vehicleChannelErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pubmarine",
			Subsystem: "vehicle",
			Name:      "channel_errors_total",
			Help:      "Rejected command tokens by cause.",
		},
		[]string{"cause"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pubmarine",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests served by the host.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pubmarine",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			bridgeReconnects, bridgeCommands, bridgeDecodeErrors, bridgeWriteErrors,
			vehicleTicks, vehicleOverruns, vehicleChannelErrors,
			httpRequests, httpDuration,
		)
	})
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	RegisterMetrics()
	return promhttp.Handler()
}

func RecordReconnect() { bridgeReconnects.Inc() }

func RecordCommand(name string) { bridgeCommands.WithLabelValues(name).Inc() }

func RecordDecodeError() { bridgeDecodeErrors.Inc() }

func RecordWriteError() { bridgeWriteErrors.Inc() }

// RecordTick counts one loop iteration and whether it overran its period.
func RecordTick(overrun bool) {
	vehicleTicks.Inc()
	if overrun {
		vehicleOverruns.Inc()
	}
}

func RecordChannelError(cause string) { vehicleChannelErrors.WithLabelValues(cause).Inc() }

func RecordHTTPRequest(method, path string, status int, d time.Duration) {
	httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, path).Observe(d.Seconds())
}
