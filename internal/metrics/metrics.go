package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "quizapi", Name: "http_requests_total", Help: "Handled HTTP requests",
	}, []string{"route", "status"})
	BroadcastSent = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "quizapi", Name: "broadcast_sent_total", Help: "Broadcast messages delivered",
	})
	BroadcastFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "quizapi", Name: "broadcast_failed_total", Help: "Broadcast messages failed",
	})
	DBPing = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "quizapi", Name: "db_ping_seconds", Help: "DB ping latency",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(HTTPRequests, BroadcastSent, BroadcastFailed, DBPing)
}

func Handler() http.Handler { return promhttp.Handler() }

func ObserveDBPing(d time.Duration) { DBPing.Observe(d.Seconds()) }
