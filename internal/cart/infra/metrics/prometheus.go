package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder exports cart sync outcomes as Prometheus metrics.
type Recorder struct {
	syncs     *prometheus.CounterVec
	duration  prometheus.Histogram
	recreated *prometheus.CounterVec
}

func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		syncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "cart",
			Name:      "sync_passes_total",
			Help:      "Checkout synchronization passes by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "storefront",
			Subsystem: "cart",
			Name:      "sync_duration_seconds",
			Help:      "Duration of checkout synchronization passes.",
			Buckets:   prometheus.DefBuckets,
		}),
		recreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "cart",
			Name:      "checkouts_recreated_total",
			Help:      "Held checkouts replaced because they were completed or gone.",
		}, []string{"reason"}),
	}
	reg.MustRegister(r.syncs, r.duration, r.recreated)
	return r
}

func (r *Recorder) SyncFinished(outcome string, elapsed time.Duration) {
	r.syncs.WithLabelValues(outcome).Inc()
	r.duration.Observe(elapsed.Seconds())
}

func (r *Recorder) CheckoutRecreated(reason string) {
	r.recreated.WithLabelValues(reason).Inc()
}
