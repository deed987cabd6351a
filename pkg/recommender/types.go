package recommender

import (
	"fmt"
	"sort"

	"k8s.io/apimachinery/pkg/api/resource"

	"kubernetes-cost-optimizer/pkg/cost"
)

// OptimizationType enumerates every recommendation family the engine can emit
type OptimizationType string

const (
	TypeRightSizeCPU       OptimizationType = "right_size_cpu"
	TypeRightSizeMemory    OptimizationType = "right_size_memory"
	TypeReduceReplicas     OptimizationType = "reduce_replicas"
	TypeIncreaseReplicas   OptimizationType = "increase_replicas"
	TypeSpotInstances      OptimizationType = "spot_instances"
	TypeChangeInstanceType OptimizationType = "change_instance_type"
	TypeConsolidateNodes   OptimizationType = "consolidate_nodes"
	TypeMoveRegion         OptimizationType = "move_region"
	TypeScheduledScaling   OptimizationType = "scheduled_scaling"
	TypeRemoveUnused       OptimizationType = "remove_unused"
)

// KnownTypes lists every valid OptimizationType
var KnownTypes = []OptimizationType{
	TypeRightSizeCPU, TypeRightSizeMemory, TypeReduceReplicas,
	TypeIncreaseReplicas, TypeSpotInstances, TypeChangeInstanceType,
	TypeConsolidateNodes, TypeMoveRegion, TypeScheduledScaling, TypeRemoveUnused,
}

// RiskLevel grades how dangerous applying a recommendation is
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Severity ranks the level for ordinal threshold comparisons. Unknown levels
// rank highest so they never pass a gate.
func (r RiskLevel) Severity() int {
	switch r {
	case RiskLow:
		return 1
	case RiskMedium:
		return 2
	case RiskHigh:
		return 3
	case RiskCritical:
		return 4
	default:
		return 5
	}
}

// RiskAssessment explains why a recommendation carries its risk level.
// Factors and mitigation steps are always non-empty.
type RiskAssessment struct {
	Level           RiskLevel `json:"level"`
	Score           float64   `json:"score"`
	Factors         []string  `json:"factors"`
	MitigationSteps []string  `json:"mitigation_steps"`
}

// RollbackPlan describes how to undo a recommendation once applied
type RollbackPlan struct {
	Steps                []string `json:"steps"`
	EstimatedTimeMinutes int      `json:"estimated_time_minutes"`
	AutomationAvailable  bool     `json:"automation_available"`
}

// RightSizeConfig carries the proposed requests and limits for a right-sizing
// recommendation. Replicas stay at their current value.
type RightSizeConfig struct {
	CPURequest    resource.Quantity `json:"cpu_request"`
	MemoryRequest resource.Quantity `json:"memory_request"`
	CPULimit      resource.Quantity `json:"cpu_limit"`
	MemoryLimit   resource.Quantity `json:"memory_limit"`
	Replicas      int32             `json:"replicas"`
}

// ReplicaConfig carries the proposed replica count
type ReplicaConfig struct {
	Replicas int32 `json:"replicas"`
}

// SpotConfig carries the spot migration parameters
type SpotConfig struct {
	InstanceType       string  `json:"instance_type"`
	DiscountPercentage float64 `json:"discount_percentage"`
	InterruptionRate   string  `json:"interruption_rate"`
}

// ScheduledScalingConfig carries the time-based scaling parameters
type ScheduledScalingConfig struct {
	Strategy        string `json:"scaling_schedule"`
	PeakHours       string `json:"peak_hours"`
	PeakReplicas    int32  `json:"peak_replicas"`
	OffPeakReplicas int32  `json:"off_peak_replicas"`
}

// RemoveConfig marks a workload for removal
type RemoveConfig struct {
	Action string `json:"action"`
}

// Recommendation is one sized, costed and risk-assessed optimization
// proposal. Exactly one config field is set, keyed by Type. Recommendations
// are created fresh each analysis cycle and never mutated.
type Recommendation struct {
	ID           string `json:"id"`
	WorkloadID   string `json:"workload_id"`
	WorkloadName string `json:"workload_name"`
	ClusterName  string `json:"cluster_name"`
	Namespace    string `json:"namespace"`

	Type        OptimizationType `json:"optimization_type"`
	Title       string           `json:"title"`
	Description string           `json:"description"`

	CurrentCost       cost.CostEstimate `json:"current_cost"`
	OptimizedCost     cost.CostEstimate `json:"optimized_cost"`
	MonthlySavings    float64           `json:"monthly_savings"`
	YearlySavings     float64           `json:"yearly_savings"`
	SavingsPercentage float64           `json:"savings_percentage"`

	ConfidenceScore float64        `json:"confidence_score"`
	Risk            RiskAssessment `json:"risk_assessment"`
	Rollback        RollbackPlan   `json:"rollback_plan"`

	RightSize        *RightSizeConfig        `json:"right_size,omitempty"`
	Replicas         *ReplicaConfig          `json:"replicas,omitempty"`
	Spot             *SpotConfig             `json:"spot,omitempty"`
	ScheduledScaling *ScheduledScalingConfig `json:"scheduled_scaling,omitempty"`
	Remove           *RemoveConfig           `json:"remove,omitempty"`
}

// Changes renders the concrete field changes for status reporting
func (r *Recommendation) Changes() map[string]string {
	changes := map[string]string{}
	switch {
	case r.RightSize != nil:
		changes["cpu_request"] = r.RightSize.CPURequest.String()
		changes["memory_request"] = r.RightSize.MemoryRequest.String()
		changes["cpu_limit"] = r.RightSize.CPULimit.String()
		changes["memory_limit"] = r.RightSize.MemoryLimit.String()
	case r.Replicas != nil:
		changes["replicas"] = fmt.Sprintf("%d", r.Replicas.Replicas)
	case r.Spot != nil:
		changes["instance_type"] = r.Spot.InstanceType
	case r.ScheduledScaling != nil:
		changes["scaling_schedule"] = r.ScheduledScaling.Strategy
		changes["peak_replicas"] = fmt.Sprintf("%d", r.ScheduledScaling.PeakReplicas)
		changes["off_peak_replicas"] = fmt.Sprintf("%d", r.ScheduledScaling.OffPeakReplicas)
	case r.Remove != nil:
		changes["action"] = r.Remove.Action
	}
	return changes
}

// sortBySavings orders recommendations by monthly savings descending
func sortBySavings(recs []*Recommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].MonthlySavings > recs[j].MonthlySavings
	})
}
