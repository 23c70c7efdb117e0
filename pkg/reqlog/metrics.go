package reqlog

import (
	"github.com/Combine-Capital/reqlog/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// StatsSource exposes pipeline counters.
type StatsSource interface {
	Stats() Stats
}

const metricsNamespace = "reqlog"

// RegisterMetrics exports the counters of src on reg. Values are read at
// scrape time, so the request path pays nothing for them.
func RegisterMetrics(reg prometheus.Registerer, src StatsSource) error {
	counter := func(name, help string, value func(Stats) uint64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(value(src.Stats())) })
	}
	gauge := func(name, help string, value func(Stats) int) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(value(src.Stats())) })
	}

	collectors := []prometheus.Collector{
		counter("records_submitted_total", "Access records offered to the queue.",
			func(s Stats) uint64 { return s.Submitted }),
		counter("records_dropped_total", "Access records discarded because the queue was full or closed.",
			func(s Stats) uint64 { return s.Dropped }),
		counter("records_written_total", "Access records accepted by the sink.",
			func(s Stats) uint64 { return s.Written }),
		counter("records_failed_total", "Access records that could not be encoded or written.",
			func(s Stats) uint64 { return s.Failed }),
		counter("records_lost_total", "Access records still queued when draining timed out.",
			func(s Stats) uint64 { return s.Lost }),
		gauge("queue_depth", "Access records waiting to be written.",
			func(s Stats) int { return s.Queued }),
		gauge("queue_capacity", "Maximum number of queued access records.",
			func(s Stats) int { return s.Capacity }),
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return errors.NewPermanent("failed to register request log metrics", err)
		}
	}
	return nil
}
