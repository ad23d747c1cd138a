package report

import (
	"gaebench/samples"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusExporter exposes report rows as gauges for the node exporter textfile collector
type PrometheusExporter struct {
	registry        *prometheus.Registry
	percentileGauge *prometheus.GaugeVec
	rowsGauge       prometheus.Gauge
}

// NewPrometheusExporter creates an exporter backed by its own registry
func NewPrometheusExporter() *PrometheusExporter {
	exporter := &PrometheusExporter{
		registry: prometheus.NewRegistry(),
		percentileGauge: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gaebench_latency_percentile_ms",
				Help: "Latency percentile of a storage operation in milliseconds",
			},
			[]string{"gae", "endpoint", "input", "operation", "params", "percentile"},
		),
		rowsGauge: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "gaebench_report_rows",
				Help: "Number of rows in the last generated report",
			},
		),
	}

	exporter.registry.MustRegister(
		exporter.percentileGauge,
		exporter.rowsGauge,
	)

	return exporter
}

// Record sets one gauge per row
func (pe *PrometheusExporter) Record(rows []Row) {
	for i := range rows {
		r := &rows[i]
		pe.percentileGauge.WithLabelValues(
			r.SourceType,
			r.Endpoint,
			r.Input,
			r.Operation,
			r.Params,
			samples.FormatFloat(r.Percentile),
		).Set(r.Value)
	}
	pe.rowsGauge.Set(float64(len(rows)))
}

// WriteTextfile writes the current metrics in the text exposition format
func (pe *PrometheusExporter) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, pe.registry)
}

// WritePromTextfile records rows in a fresh exporter and writes them to path
func WritePromTextfile(path string, rows []Row) error {
	exporter := NewPrometheusExporter()
	exporter.Record(rows)
	return exporter.WriteTextfile(path)
}
