package stats

import (
	"strings"

	"kubernetes-cost-optimizer/pkg/models"
)

// ScheduledScalingPlan describes a time-based scale-down opportunity
type ScheduledScalingPlan struct {
	Suitable      bool    `json:"suitable"`
	Strategy      string  `json:"strategy"`
	PeakHours     string  `json:"peak_hours,omitempty"`
	OffPeakFactor float64 `json:"off_peak_scale_down,omitempty"`
	Confidence    float64 `json:"confidence"`
}

// SpotSuitability judges whether a workload tolerates spot interruption.
// StatefulSets, DaemonSets and single-replica workloads never qualify. Burst
// patterns and utilization above 80% each cost a fixed confidence penalty
// without disqualifying on their own.
func (e *Engine) SpotSuitability(workload *models.Workload, metrics *models.WorkloadMetrics) (bool, float64, string) {
	if workload.Kind == models.KindStatefulSet || workload.Kind == models.KindDaemonSet {
		return false, 0.0, "StatefulSets and DaemonSets are not suitable for spot instances"
	}

	confidence := 0.7
	reason := ""

	if e.ClassifyPattern(metrics) == models.PatternBurst {
		confidence -= 0.2
		reason = "Burst pattern detected, spot interruptions may impact performance"
	}

	if metrics.CPUUtilizationPct > 80 || metrics.MemoryUtilizationPct > 80 {
		confidence -= 0.15
		reason = "High utilization may be impacted by spot interruptions"
	}

	if workload.Replicas == 1 {
		return false, 0.0, "Single replica workload, spot interruptions would cause downtime"
	}

	if reason == "" {
		reason = "Workload is suitable for spot instances with appropriate redundancy"
	}

	return true, confidence, reason
}

// DetectUnused reports workloads idling below the unused threshold on both dimensions
func (e *Engine) DetectUnused(metrics *models.WorkloadMetrics) bool {
	return metrics.CPUUtilizationPct < e.unusedThresholdPct &&
		metrics.MemoryUtilizationPct < e.unusedThresholdPct
}

// RecommendInstanceType picks an instance family for the provider from the
// cpu to memory ratio. Memory is in GB.
func (e *Engine) RecommendInstanceType(cpuCores, memoryGB float64, provider string) (string, string) {
	computeHeavy := cpuCores/memoryGB > 0.5
	memoryHeavy := memoryGB/cpuCores > 4

	switch strings.ToLower(provider) {
	case "aws":
		if computeHeavy {
			return "c5.xlarge", "CPU-optimized instance recommended"
		}
		if memoryHeavy {
			return "r5.large", "Memory-optimized instance recommended"
		}
		return "m5.large", "Balanced instance recommended"
	case "gcp":
		if computeHeavy {
			return "c2-standard-4", "Compute-optimized instance recommended"
		}
		if memoryHeavy {
			return "n2-highmem-2", "Memory-optimized instance recommended"
		}
		return "n2-standard-2", "Balanced instance recommended"
	default:
		if computeHeavy {
			return "Standard_F4s_v2", "Compute-optimized instance recommended"
		}
		if memoryHeavy {
			return "Standard_E4s_v3", "Memory-optimized instance recommended"
		}
		return "Standard_D4s_v3", "Balanced instance recommended"
	}
}

// DetectScheduledScaling proposes an off-peak scale-down for workloads whose
// usage tracks business hours
func (e *Engine) DetectScheduledScaling(metrics *models.WorkloadMetrics) ScheduledScalingPlan {
	if e.ClassifyPattern(metrics) == models.PatternBusinessHours {
		return ScheduledScalingPlan{
			Suitable:      true,
			Strategy:      "business_hours",
			PeakHours:     "9am-5pm weekdays",
			OffPeakFactor: 0.5,
			Confidence:    0.75,
		}
	}
	return ScheduledScalingPlan{Strategy: "none"}
}
