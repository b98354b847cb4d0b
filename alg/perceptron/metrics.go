package perceptron

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects training counters. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	Instances *prometheus.CounterVec
	Updates   prometheus.Counter
	Loss      prometheus.Histogram
	Step      prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	m := &Metrics{
		Instances: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "train",
			Name:      "instances_total",
			Help:      "Training instances processed, by outcome.",
		}, []string{"status"}),
		Updates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "train",
			Name:      "updates_total",
			Help:      "Weight updates applied.",
		}),
		Loss: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "train",
			Name:      "update_loss",
			Help:      "Structured loss of mispredicted instances.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		Step: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "train",
			Name:      "update_step",
			Help:      "Passive-aggressive step sizes.",
			Buckets:   prometheus.ExponentialBuckets(1e-4, 4, 10),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Instances, m.Updates, m.Loss, m.Step)
	}
	return m
}

func (m *Metrics) observeInstance(status string) {
	if m == nil {
		return
	}
	m.Instances.WithLabelValues(status).Inc()
}

func (m *Metrics) observeUpdate(loss, step float64) {
	if m == nil {
		return
	}
	m.Updates.Inc()
	m.Loss.Observe(loss)
	m.Step.Observe(step)
}
