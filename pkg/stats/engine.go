package stats

import (
	"math"

	"k8s.io/apimachinery/pkg/api/resource"
	"k8s.io/klog/v2"

	"kubernetes-cost-optimizer/pkg/models"
)

// Optimization kinds understood by Confidence
const (
	OptimizationRightSizing = "right_sizing"
	OptimizationReplicas    = "replica_optimization"
)

// Engine derives sizing, scaling and placement suggestions from aggregated
// workload metrics. Every method is a pure function of its inputs, so a single
// Engine is safe to share across goroutines.
type Engine struct {
	safetyMargin       float64
	cpuLimitFactor     float64
	memoryLimitFactor  float64
	targetUtilization  float64
	unusedThresholdPct float64
}

// NewEngine creates an Engine with production defaults
func NewEngine() *Engine {
	return &Engine{
		safetyMargin:       1.15,
		cpuLimitFactor:     1.5,
		memoryLimitFactor:  1.3,
		targetUtilization:  70.0,
		unusedThresholdPct: 5.0,
	}
}

// RightSize proposes requests at p95 usage plus the safety margin, with limits
// scaled up from the new requests. The confidence score reflects sample depth
// and variance of the observation window.
func (e *Engine) RightSize(workload *models.Workload, metrics *models.WorkloadMetrics) (models.ResourceSpec, float64) {
	recommendedCPU := metrics.CPUUsage.P95 * e.safetyMargin
	recommendedMemory := metrics.MemoryUsage.P95 * e.safetyMargin

	spec := models.ResourceSpec{
		CPURequest:    formatCPU(recommendedCPU),
		MemoryRequest: formatMemory(recommendedMemory),
		CPULimit:      formatCPU(recommendedCPU * e.cpuLimitFactor),
		MemoryLimit:   formatMemory(recommendedMemory * e.memoryLimitFactor),
	}

	confidence := e.Confidence(metrics, OptimizationRightSizing)

	klog.V(4).Infof("Right-sized %s/%s: cpu %s/%s, memory %s/%s, confidence %.2f",
		workload.Namespace, workload.Name,
		spec.CPURequest.String(), spec.CPULimit.String(),
		spec.MemoryRequest.String(), spec.MemoryLimit.String(), confidence)

	return spec, confidence
}

// ClassifyPattern tags the usage shape of a workload. Variance is |p95-p50|/avg
// per dimension, averaged across cpu and memory. Workloads idling below 30%
// utilization on both dimensions are tagged for downsizing regardless of shape.
func (e *Engine) ClassifyPattern(metrics *models.WorkloadMetrics) models.Pattern {
	variance := e.averageVariance(metrics)

	pattern := models.PatternBusinessHours
	switch {
	case variance > 0.4:
		pattern = models.PatternBurst
	case variance < 0.15:
		pattern = models.PatternSteady
	}

	if metrics.CPUUtilizationPct < 30 && metrics.MemoryUtilizationPct < 30 {
		pattern = models.PatternDownsize
	}

	return pattern
}

// OptimizeReplicas sizes the replica count toward the target utilization.
// Deeply idle workloads are halved, mildly idle ones shed a single replica,
// and saturated ones scale up proportionally. Changes smaller than 15% of the
// current count are suppressed, and StatefulSets are never scaled below their
// current count.
func (e *Engine) OptimizeReplicas(workload *models.Workload, metrics *models.WorkloadMetrics) (int32, float64) {
	current := workload.Replicas
	maxUtilization := math.Max(metrics.CPUUtilizationPct, metrics.MemoryUtilizationPct)

	var recommended int32
	switch {
	case maxUtilization < 30:
		recommended = max(1, current-1)
		if maxUtilization < 15 {
			recommended = max(1, int32(math.Ceil(float64(current)*0.5)))
		}
	case maxUtilization > 85:
		recommended = int32(math.Ceil(float64(current) * maxUtilization / e.targetUtilization))
	default:
		recommended = max(1, int32(math.Round(float64(current)*maxUtilization/e.targetUtilization)))
	}

	if workload.Kind == models.KindStatefulSet && recommended < current {
		recommended = current
	}

	confidence := e.Confidence(metrics, OptimizationReplicas)

	if current > 0 && math.Abs(float64(recommended-current))/float64(current) < 0.15 {
		recommended = current
	}

	klog.V(4).Infof("Replica recommendation for %s/%s: %d -> %d at %.1f%% max utilization, confidence %.2f",
		workload.Namespace, workload.Name, current, recommended, maxUtilization, confidence)

	return recommended, confidence
}

// Confidence scores a recommendation on [0,1] from sample depth, variance and
// window length. Right-sizing gets a small bonus at extreme cpu utilization
// (<20% or >90%).
func (e *Engine) Confidence(metrics *models.WorkloadMetrics, optimizationType string) float64 {
	confidence := 0.5

	switch {
	case metrics.SampleCount > 1000:
		confidence += 0.2
	case metrics.SampleCount > 500:
		confidence += 0.15
	case metrics.SampleCount > 100:
		confidence += 0.1
	}

	variance := e.averageVariance(metrics)
	switch {
	case variance < 0.15:
		confidence += 0.2
	case variance < 0.3:
		confidence += 0.1
	}

	switch {
	case metrics.TimeRangeHours >= 168:
		confidence += 0.1
	case metrics.TimeRangeHours >= 72:
		confidence += 0.05
	}

	if optimizationType == OptimizationRightSizing {
		if metrics.CPUUtilizationPct < 20 || metrics.CPUUtilizationPct > 90 {
			confidence += 0.05
		}
	}

	return math.Min(1.0, confidence)
}

func (e *Engine) averageVariance(metrics *models.WorkloadMetrics) float64 {
	return (variance(metrics.CPUUsage) + variance(metrics.MemoryUsage)) / 2
}

// variance is the normalized p95-p50 spread, zero when nothing was observed
func variance(stats models.MetricStats) float64 {
	if stats.Avg == 0 {
		return 0
	}
	return math.Abs(stats.P95-stats.P50) / stats.Avg
}

// formatCPU renders cores as a quantity, in millicores below one core and in
// tenths of a core above
func formatCPU(cores float64) resource.Quantity {
	if cores < 1 {
		return *resource.NewMilliQuantity(int64(math.Round(cores*1000)), resource.DecimalSI)
	}
	return *resource.NewMilliQuantity(int64(math.Round(cores*10))*100, resource.DecimalSI)
}

// formatMemory snaps bytes down to the largest whole binary unit
func formatMemory(bytes float64) resource.Quantity {
	b := int64(bytes)
	switch {
	case b < 1024*1024:
		return *resource.NewQuantity((b/1024)*1024, resource.BinarySI)
	case b < 1024*1024*1024:
		return *resource.NewQuantity((b/(1024*1024))*(1024*1024), resource.BinarySI)
	default:
		return *resource.NewQuantity((b/(1024*1024*1024))*(1024*1024*1024), resource.BinarySI)
	}
}

// cpuCores converts a cpu quantity to cores
func cpuCores(q resource.Quantity) float64 {
	return float64(q.MilliValue()) / 1000.0
}

// memoryBytes converts a memory quantity to bytes
func memoryBytes(q resource.Quantity) float64 {
	return float64(q.Value())
}
