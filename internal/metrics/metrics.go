package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var (
	HarvestCounter *prometheus.CounterVec

	ProposalCounter *prometheus.CounterVec

	ApplyWriteCounter *prometheus.CounterVec

	PassRunTimeSummary *prometheus.SummaryVec

	ApplyTransitionRunTimeSummary *prometheus.SummaryVec

	StoreQueryErrorCount *prometheus.CounterVec
)

func init() {
	HarvestCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netsync_harvests",
			Help: "A counter metric to measure the total count of device harvests, successful and failed",
		},
		[]string{"family", "state"},
	)

	ProposalCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netsync_proposals",
			Help: "A counter metric to measure the total count of proposals planned by entity and action",
		},
		[]string{"model", "action"},
	)

	ApplyWriteCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netsync_apply_writes",
			Help: "A counter metric to measure the total count of writes made to the inventory system",
		},
		[]string{"model", "action"},
	)

	PassRunTimeSummary = promauto.NewSummaryVec(
		prometheus.SummaryOpts{
			Name: "netsync_pass_duration_seconds",
			Help: "A summary metric to measure the total time spent in a reconciliation pass",
		},
		[]string{"operation", "state"},
	)

	ApplyTransitionRunTimeSummary = promauto.NewSummaryVec(
		prometheus.SummaryOpts{
			Name: "netsync_apply_transition_duration_seconds",
			Help: "A summary metric to measure the time spent in each apply transition",
		},
		[]string{"transition", "state"},
	)

	StoreQueryErrorCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netsync_store_query_error_count",
			Help: "A counter metric to measure the total count of errors querying the inventory store.",
		},
		[]string{"storeKind", "kind", "operation"},
	)
}

// ListenAndServe exposes prometheus metrics as /metrics on the given address.
func ListenAndServe(address string, logger *logrus.Logger) {
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())

		server := &http.Server{
			Addr:              address,
			Handler:           mux,
			ReadHeaderTimeout: 2 * time.Second, // nolint:gomnd // time duration value is clear as is.
		}

		if err := server.ListenAndServe(); err != nil {
			logger.WithError(err).Error("metrics endpoint")
		}
	}()
}

// ObserveSince records the time elapsed since start in the summary.
func ObserveSince(summary *prometheus.SummaryVec, start time.Time, labels ...string) {
	summary.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
}
