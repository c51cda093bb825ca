package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pong",
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests received",
	}, []string{"method", "path", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pong",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	// ConnectedPlayers tracks live websocket connections in the registry.
	ConnectedPlayers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "pong",
		Name:      "connected_players",
		Help:      "Current number of connected players",
	})

	// ActiveMatches tracks matches in the active index, by mode.
	ActiveMatches = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "pong",
		Name:      "active_matches",
		Help:      "Current number of active matches",
	}, []string{"mode"})

	// QueueDepth tracks players waiting in the matchmaking queue.
	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "pong",
		Name:      "matchmaking_queue_depth",
		Help:      "Current number of players in the matchmaking queue",
	})

	// ActiveTournaments tracks non-terminal tournaments.
	ActiveTournaments = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "pong",
		Name:      "active_tournaments",
		Help:      "Current number of active tournaments",
	})

	// Ticks counts simulation steps across all matches.
	Ticks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pong",
		Name:      "simulation_ticks_total",
		Help:      "Total number of simulation ticks executed",
	})

	// MatchesFinished counts terminal matches by finish reason.
	MatchesFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pong",
		Name:      "matches_finished_total",
		Help:      "Total number of finished matches",
	}, []string{"reason"})
)

type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *responseRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack is required so the websocket upgrade keeps working behind the
// middleware.
func (r *responseRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := r.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, fmt.Errorf("metrics: underlying ResponseWriter does not support hijacking")
}

// Middleware records request metrics with Prometheus labels.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r)

		labels := prometheus.Labels{
			"method": r.Method,
			"path":   r.URL.Path,
			"status": strconv.Itoa(rec.status),
		}
		httpRequests.With(labels).Inc()
		httpLatency.With(labels).Observe(time.Since(start).Seconds())
	})
}

// Handler exposes the default Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
