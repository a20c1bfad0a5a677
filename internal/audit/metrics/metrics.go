package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the audit core. Construct once at
// wiring time; promauto registers against the default registry.
type Metrics struct {
	RecordsWritten    *prometheus.CounterVec
	RecordsSuppressed prometheus.Counter
	SinkDropped       prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		RecordsWritten: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "audittrail_records_written_total",
			Help: "Total audit records written, by event type",
		}, []string{"event_type"}),
		RecordsSuppressed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "audittrail_records_suppressed_total",
			Help: "Recorder calls short-circuited by audit suppression",
		}),
		SinkDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "audittrail_sink_dropped_total",
			Help: "Records dropped because the sink channel was full",
		}),
	}
}
