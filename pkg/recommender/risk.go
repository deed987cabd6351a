package recommender

import (
	"math"
	"strconv"

	"kubernetes-cost-optimizer/pkg/models"
)

// AssessRisk scores a recommendation from workload shape and utilization.
// The score starts at 0.3 and accumulates penalties; spot migrations carry a
// fixed assessment of their own.
func AssessRisk(workload *models.Workload, optimizationType OptimizationType, metrics *models.WorkloadMetrics) RiskAssessment {
	score := 0.3
	var factors []string
	var mitigations []string

	if workload.Kind == models.KindStatefulSet {
		score += 0.2
		factors = append(factors, "StatefulSet requires careful handling")
		mitigations = append(mitigations, "Test in staging environment first")
	}

	if workload.Replicas == 1 {
		score += 0.15
		factors = append(factors, "Single replica - no redundancy")
		mitigations = append(mitigations, "Consider increasing replicas before optimization")
	}

	if optimizationType == TypeReduceReplicas || optimizationType == TypeRightSizeCPU {
		if metrics != nil && metrics.CPUUtilizationPct > 80 {
			score += 0.2
			factors = append(factors, "High CPU utilization")
			mitigations = append(mitigations, "Monitor performance closely after change")
		}
	}

	if optimizationType == TypeSpotInstances {
		score = 0.5
		factors = append(factors, "Spot instances can be interrupted")
		mitigations = append(mitigations,
			"Ensure application handles interruptions gracefully",
			"Maintain on-demand fallback capacity")
	}

	level := RiskLow
	switch {
	case score >= 0.7:
		level = RiskHigh
	case score >= 0.5:
		level = RiskMedium
	}

	if len(factors) == 0 {
		factors = []string{"Standard optimization"}
	}
	if len(mitigations) == 0 {
		mitigations = []string{"Follow standard deployment procedures"}
	}

	return RiskAssessment{
		Level:           level,
		Score:           math.Min(1.0, score),
		Factors:         factors,
		MitigationSteps: mitigations,
	}
}

// PlanRollback builds the undo plan for a recommendation from its type and
// the workload's pre-change configuration
func PlanRollback(workload *models.Workload, optimizationType OptimizationType) RollbackPlan {
	var steps []string
	estimated := 5

	switch optimizationType {
	case TypeRightSizeCPU, TypeRightSizeMemory:
		steps = []string{
			"Restore original resource requests: " + workload.Resources.CPURequest.String() +
				" CPU, " + workload.Resources.MemoryRequest.String() + " memory",
			"Apply updated manifest",
			"Verify pod stability",
		}
	case TypeReduceReplicas, TypeIncreaseReplicas:
		steps = []string{
			"Scale back to " + itoa(workload.Replicas) + " replicas",
			"Verify all pods are running",
		}
		estimated = 2
	case TypeSpotInstances:
		steps = []string{
			"Switch back to on-demand instances",
			"Verify application availability",
			"Monitor for stability",
		}
		estimated = 10
	case TypeScheduledScaling:
		steps = []string{
			"Remove HorizontalPodAutoscaler or CronJob",
			"Set replicas to constant " + itoa(workload.Replicas),
		}
	default:
		steps = []string{"Revert to previous configuration", "Verify workload health"}
	}

	return RollbackPlan{
		Steps:                steps,
		EstimatedTimeMinutes: estimated,
		AutomationAvailable:  true,
	}
}

func itoa(n int32) string {
	return strconv.Itoa(int(n))
}
