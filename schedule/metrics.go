package schedule

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics instruments the record store. A nil *Metrics records nothing.
type Metrics struct {
	loads         prometheus.Counter
	saves         prometheus.Counter
	parseFailures prometheus.Counter
	readFailures  prometheus.Counter
	writeFailures prometheus.Counter
	dropped       prometheus.Counter
	records       prometheus.Gauge
}

// NewMetrics creates and registers the store metrics on reg
// (prometheus.DefaultRegisterer when nil).
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "action_store",
			Name:      name,
			Help:      help,
		})
	}

	m := &Metrics{
		loads:         counter("loads_total", "Store loads"),
		saves:         counter("saves_total", "Successful store saves"),
		parseFailures: counter("parse_failures_total", "Loads that recovered from a malformed blob"),
		readFailures:  counter("read_failures_total", "Blob reads that failed"),
		writeFailures: counter("write_failures_total", "Blob writes that failed"),
		dropped:       counter("retention_dropped_total", "Records dropped by the retention rule"),
		records: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "action_store",
			Name:      "records",
			Help:      "Records held after the last load or save",
		}),
	}

	reg.MustRegister(
		m.loads,
		m.saves,
		m.parseFailures,
		m.readFailures,
		m.writeFailures,
		m.dropped,
		m.records,
	)
	return m
}

func (m *Metrics) observeLoad(records, dropped int) {
	if m == nil {
		return
	}
	m.loads.Inc()
	m.dropped.Add(float64(dropped))
	m.records.Set(float64(records))
}

func (m *Metrics) observeSave(records, dropped int) {
	if m == nil {
		return
	}
	m.saves.Inc()
	m.dropped.Add(float64(dropped))
	m.records.Set(float64(records))
}

func (m *Metrics) observeParseFailure() {
	if m != nil {
		m.parseFailures.Inc()
	}
}

func (m *Metrics) observeReadFailure() {
	if m != nil {
		m.readFailures.Inc()
	}
}

func (m *Metrics) observeWriteFailure() {
	if m != nil {
		m.writeFailures.Inc()
	}
}
