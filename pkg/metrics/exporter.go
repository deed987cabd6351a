package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Exporter exposes operator metrics to Prometheus.
type Exporter struct {
	OptimizationsCreated prometheus.Counter
	OptimizationsApplied *prometheus.CounterVec
	OptimizationsFailed  *prometheus.CounterVec
	Rollbacks            prometheus.Counter
	TotalMonthlySavings  prometheus.Gauge
	OptimizationDuration prometheus.Histogram
}

// NewExporter registers the costopt metric family with the default
// registry. Call it once per process.
func NewExporter() *Exporter {
	return newExporterWith(promauto.With(prometheus.DefaultRegisterer))
}

// NewExporterFor registers against a caller-owned registry, used in tests.
func NewExporterFor(reg prometheus.Registerer) *Exporter {
	return newExporterWith(promauto.With(reg))
}

func newExporterWith(factory promauto.Factory) *Exporter {
	return &Exporter{
		OptimizationsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "costopt_optimizations_created_total",
			Help: "Total number of CostOptimization resources created",
		}),
		OptimizationsApplied: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "costopt_optimizations_applied_total",
			Help: "Total number of optimizations applied by type",
		}, []string{"optimization_type"}),
		OptimizationsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "costopt_optimizations_failed_total",
			Help: "Total number of failed optimization attempts by reason",
		}, []string{"reason"}),
		Rollbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "costopt_rollbacks_total",
			Help: "Total number of rollbacks executed",
		}),
		TotalMonthlySavings: factory.NewGauge(prometheus.GaugeOpts{
			Name: "costopt_total_monthly_savings_usd",
			Help: "Sum of monthly savings across applied optimizations in USD",
		}),
		OptimizationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "costopt_optimization_duration_seconds",
			Help:    "Wall-clock time from analysis start to applied optimization",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		}),
	}
}
