package recommender

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"kubernetes-cost-optimizer/pkg/cost"
	"kubernetes-cost-optimizer/pkg/models"
	"kubernetes-cost-optimizer/pkg/stats"
)

// Options narrows which recommendations a call may return
type Options struct {
	// MinConfidence drops candidates scoring below it
	MinConfidence float64
	// Types restricts the result to the given families; empty means all
	Types []OptimizationType
	// MaxRisk drops candidates above the given risk severity; empty means no cap
	MaxRisk RiskLevel
	// Limit caps the result length; zero means unlimited
	Limit int
}

func (o Options) allows(t OptimizationType) bool {
	if len(o.Types) == 0 {
		return true
	}
	for _, allowed := range o.Types {
		if allowed == t {
			return true
		}
	}
	return false
}

// Recommender turns workload metrics into ranked optimization proposals.
// Every family is attempted independently; candidates with non-positive
// savings or insufficient confidence are discarded, and the survivors are
// sorted by monthly savings descending.
type Recommender struct {
	engine *stats.Engine
	costs  *cost.Model
}

// New creates a Recommender on top of a stats engine and cost model
func New(engine *stats.Engine, costs *cost.Model) *Recommender {
	return &Recommender{engine: engine, costs: costs}
}

// Recommend generates every eligible recommendation for the workload
func (r *Recommender) Recommend(ctx context.Context, workload *models.Workload, metrics *models.WorkloadMetrics, opts Options) []*Recommendation {
	currentCost := r.costs.Estimate(ctx, workload)

	var recs []*Recommendation
	add := func(rec *Recommendation) {
		if rec == nil || rec.MonthlySavings <= 0 {
			return
		}
		if rec.ConfidenceScore < opts.MinConfidence {
			return
		}
		if !opts.allows(rec.Type) {
			return
		}
		if opts.MaxRisk != "" && rec.Risk.Level.Severity() > opts.MaxRisk.Severity() {
			return
		}
		recs = append(recs, rec)
	}

	if r.engine.DetectUnused(metrics) {
		add(r.unusedRecommendation(workload, metrics, currentCost))
	}
	add(r.rightSizeRecommendation(ctx, workload, metrics, currentCost))
	add(r.replicaRecommendation(ctx, workload, metrics, currentCost))
	add(r.spotRecommendation(ctx, workload, metrics, currentCost))
	add(r.scheduledScalingRecommendation(workload, metrics, currentCost))

	sortBySavings(recs)
	if opts.Limit > 0 && len(recs) > opts.Limit {
		recs = recs[:opts.Limit]
	}

	klog.V(4).Infof("Generated %d recommendations for %s/%s", len(recs), workload.Namespace, workload.Name)
	return recs
}

// Best returns the highest-saving recommendation, or nil when none qualify
func (r *Recommender) Best(ctx context.Context, workload *models.Workload, metrics *models.WorkloadMetrics, opts Options) *Recommendation {
	recs := r.Recommend(ctx, workload, metrics, opts)
	if len(recs) == 0 {
		return nil
	}
	return recs[0]
}

func (r *Recommender) rightSizeRecommendation(ctx context.Context, workload *models.Workload, metrics *models.WorkloadMetrics, currentCost cost.CostEstimate) *Recommendation {
	proposed, confidence := r.engine.RightSize(workload, metrics)
	if proposed.Equal(workload.Resources) {
		return nil
	}

	optimizedCost := r.costs.EstimateOptimized(ctx, workload, cost.Proposal{
		CPURequest:    &proposed.CPURequest,
		MemoryRequest: &proposed.MemoryRequest,
	})

	savings := currentCost.Monthly - optimizedCost.Monthly
	if savings <= 0 {
		return nil
	}

	rec := r.newRecommendation(workload, TypeRightSizeCPU, currentCost, optimizedCost, savings)
	rec.Title = fmt.Sprintf("Right-size resources for %s", workload.Name)
	rec.Description = fmt.Sprintf("Reduce resource requests based on P95 utilization (CPU: %.1f%%, Memory: %.1f%%)",
		metrics.CPUUtilizationPct, metrics.MemoryUtilizationPct)
	rec.ConfidenceScore = confidence
	rec.Risk = AssessRisk(workload, TypeRightSizeCPU, metrics)
	rec.Rollback = PlanRollback(workload, TypeRightSizeCPU)
	rec.RightSize = &RightSizeConfig{
		CPURequest:    proposed.CPURequest,
		MemoryRequest: proposed.MemoryRequest,
		CPULimit:      proposed.CPULimit,
		MemoryLimit:   proposed.MemoryLimit,
		Replicas:      workload.Replicas,
	}
	return rec
}

func (r *Recommender) replicaRecommendation(ctx context.Context, workload *models.Workload, metrics *models.WorkloadMetrics, currentCost cost.CostEstimate) *Recommendation {
	proposed, confidence := r.engine.OptimizeReplicas(workload, metrics)
	if proposed == workload.Replicas {
		return nil
	}

	optimizedCost := r.costs.EstimateOptimized(ctx, workload, cost.Proposal{Replicas: &proposed})

	savings := currentCost.Monthly - optimizedCost.Monthly
	if savings <= 0 {
		return nil
	}

	optType := TypeReduceReplicas
	if proposed > workload.Replicas {
		optType = TypeIncreaseReplicas
	}

	rec := r.newRecommendation(workload, optType, currentCost, optimizedCost, savings)
	rec.Title = fmt.Sprintf("Optimize replica count for %s", workload.Name)
	rec.Description = fmt.Sprintf("Adjust replicas from %d to %d based on utilization patterns",
		workload.Replicas, proposed)
	rec.ConfidenceScore = confidence
	rec.Risk = AssessRisk(workload, optType, metrics)
	rec.Rollback = PlanRollback(workload, optType)
	rec.Replicas = &ReplicaConfig{Replicas: proposed}
	return rec
}

func (r *Recommender) spotRecommendation(ctx context.Context, workload *models.Workload, metrics *models.WorkloadMetrics, currentCost cost.CostEstimate) *Recommendation {
	suitable, confidence, reason := r.engine.SpotSuitability(workload, metrics)
	if !suitable {
		return nil
	}

	comparison := r.costs.SpotVsOnDemand(ctx, workload)
	if comparison.MonthlySavings <= 0 {
		return nil
	}

	optimizedCost := currentCost
	optimizedCost.Monthly = comparison.SpotMonthly
	optimizedCost.Yearly = optimizedCost.Monthly * 12

	rec := r.newRecommendation(workload, TypeSpotInstances, currentCost, optimizedCost, comparison.MonthlySavings)
	rec.Title = fmt.Sprintf("Use spot instances for %s", workload.Name)
	rec.Description = fmt.Sprintf("Switch to spot instances for %.0f%% savings. %s",
		comparison.DiscountPercentage, reason)
	rec.ConfidenceScore = confidence
	rec.Risk = RiskAssessment{
		Level: RiskMedium,
		Score: 0.5,
		Factors: []string{
			"Potential spot instance interruptions",
			"Requires fault-tolerant application design",
		},
		MitigationSteps: []string{
			"Ensure replicas > 1",
			"Implement graceful shutdown",
			"Use spot instance pools",
		},
	}
	rec.Rollback = RollbackPlan{
		Steps:                []string{"Scale back to on-demand instances", "Verify application stability"},
		EstimatedTimeMinutes: 5,
		AutomationAvailable:  true,
	}
	rec.Spot = &SpotConfig{
		InstanceType:       "spot",
		DiscountPercentage: comparison.DiscountPercentage,
		InterruptionRate:   comparison.InterruptionRate,
	}
	return rec
}

func (r *Recommender) scheduledScalingRecommendation(workload *models.Workload, metrics *models.WorkloadMetrics, currentCost cost.CostEstimate) *Recommendation {
	plan := r.engine.DetectScheduledScaling(metrics)
	if !plan.Suitable {
		return nil
	}

	// Off-peak hours cover roughly half the month, so savings are the
	// scale-down share of that half
	savings := currentCost.Monthly * (1 - plan.OffPeakFactor) * 0.5
	if savings <= 0 {
		return nil
	}

	optimizedCost := currentCost
	optimizedCost.Monthly = currentCost.Monthly - savings
	optimizedCost.Yearly = optimizedCost.Monthly * 12

	offPeak := int32(math.Max(1, float64(workload.Replicas)*plan.OffPeakFactor))

	rec := r.newRecommendation(workload, TypeScheduledScaling, currentCost, optimizedCost, savings)
	rec.Title = fmt.Sprintf("Implement scheduled scaling for %s", workload.Name)
	rec.Description = fmt.Sprintf("Scale down during off-peak hours (%s)", plan.PeakHours)
	rec.ConfidenceScore = plan.Confidence
	rec.Risk = AssessRisk(workload, TypeScheduledScaling, metrics)
	rec.Rollback = PlanRollback(workload, TypeScheduledScaling)
	rec.ScheduledScaling = &ScheduledScalingConfig{
		Strategy:        plan.Strategy,
		PeakHours:       plan.PeakHours,
		PeakReplicas:    workload.Replicas,
		OffPeakReplicas: offPeak,
	}
	return rec
}

func (r *Recommender) unusedRecommendation(workload *models.Workload, metrics *models.WorkloadMetrics, currentCost cost.CostEstimate) *Recommendation {
	optimizedCost := currentCost
	optimizedCost.Monthly = 0
	optimizedCost.Yearly = 0

	rec := r.newRecommendation(workload, TypeRemoveUnused, currentCost, optimizedCost, currentCost.Monthly)
	rec.Title = fmt.Sprintf("Remove unused workload %s", workload.Name)
	rec.Description = fmt.Sprintf("Workload has very low utilization (CPU: %.1f%%, Memory: %.1f%%) and may be unused",
		metrics.CPUUtilizationPct, metrics.MemoryUtilizationPct)
	rec.SavingsPercentage = 100.0
	rec.ConfidenceScore = 0.6
	rec.Risk = RiskAssessment{
		Level: RiskLow,
		Score: 0.2,
		Factors: []string{
			"Very low resource utilization detected",
			"Workload may be unused",
		},
		MitigationSteps: []string{
			"Verify workload purpose",
			"Check application logs",
			"Coordinate with team",
		},
	}
	rec.Rollback = RollbackPlan{
		Steps:                []string{"Restore from backup", "Redeploy from manifest"},
		EstimatedTimeMinutes: 10,
		AutomationAvailable:  true,
	}
	rec.Remove = &RemoveConfig{Action: "delete"}
	return rec
}

func (r *Recommender) newRecommendation(workload *models.Workload, t OptimizationType, current, optimized cost.CostEstimate, savings float64) *Recommendation {
	rec := &Recommendation{
		ID:             uuid.New().String(),
		WorkloadID:     workload.ID,
		WorkloadName:   workload.Name,
		ClusterName:    workload.ClusterName,
		Namespace:      workload.Namespace,
		Type:           t,
		CurrentCost:    current,
		OptimizedCost:  optimized,
		MonthlySavings: savings,
		YearlySavings:  savings * 12,
	}
	if current.Monthly > 0 {
		rec.SavingsPercentage = savings / current.Monthly * 100
	}
	return rec
}
