package recommender

import (
	"context"
	"testing"
	"time"

	"k8s.io/apimachinery/pkg/api/resource"

	"kubernetes-cost-optimizer/pkg/cost"
	"kubernetes-cost-optimizer/pkg/models"
	"kubernetes-cost-optimizer/pkg/stats"
)

// offlineModel prices through the local fallback formula only: every pricing
// URL points at a closed port.
func offlineModel() *cost.Model {
	return cost.NewModel(cost.Config{
		AWSPricingURL:   "http://127.0.0.1:1",
		GCPPricingURL:   "http://127.0.0.1:1",
		AzurePricingURL: "http://127.0.0.1:1",
		Timeout:         200 * time.Millisecond,
	})
}

func testWorkload(kind string, replicas int32) *models.Workload {
	return &models.Workload{
		ID:        "w-1",
		Namespace: "default",
		Name:      "api-server",
		Kind:      kind,
		Replicas:  replicas,
		Provider:  "aws",
		Resources: models.ResourceSpec{
			CPURequest:    resource.MustParse("1"),
			MemoryRequest: resource.MustParse("4Gi"),
			CPULimit:      resource.MustParse("2"),
			MemoryLimit:   resource.MustParse("8Gi"),
		},
	}
}

func idleMetrics() *models.WorkloadMetrics {
	return &models.WorkloadMetrics{
		CPUUsage:             models.MetricStats{Avg: 0.2, P50: 0.2, P95: 0.21, P99: 0.22, Min: 0.1, Max: 0.3},
		MemoryUsage:          models.MetricStats{Avg: 0.8e9, P50: 0.8e9, P95: 0.84e9, P99: 0.9e9, Min: 0.5e9, Max: 1e9},
		CPUUtilizationPct:    20,
		MemoryUtilizationPct: 20,
		SampleCount:          1200,
		TimeRangeHours:       168,
	}
}

func TestRecommendSavingsInvariant(t *testing.T) {
	r := New(stats.NewEngine(), offlineModel())
	recs := r.Recommend(context.Background(), testWorkload(models.KindDeployment, 6), idleMetrics(), Options{})

	if len(recs) == 0 {
		t.Fatal("expected recommendations for an idle workload, got none")
	}
	for _, rec := range recs {
		if rec.MonthlySavings <= 0 {
			t.Errorf("recommendation %s has non-positive savings %.2f", rec.Type, rec.MonthlySavings)
		}
		if rec.CurrentCost.Monthly <= rec.OptimizedCost.Monthly {
			t.Errorf("recommendation %s does not reduce monthly cost: %.2f -> %.2f",
				rec.Type, rec.CurrentCost.Monthly, rec.OptimizedCost.Monthly)
		}
		if rec.ConfidenceScore < 0 || rec.ConfidenceScore > 1 {
			t.Errorf("recommendation %s confidence %.2f out of bounds", rec.Type, rec.ConfidenceScore)
		}
		if len(rec.Risk.Factors) == 0 || len(rec.Risk.MitigationSteps) == 0 {
			t.Errorf("recommendation %s has empty risk factors or mitigations", rec.Type)
		}
		if len(rec.Rollback.Steps) == 0 {
			t.Errorf("recommendation %s has an empty rollback plan", rec.Type)
		}
	}
}

func TestRecommendSortedBySavings(t *testing.T) {
	r := New(stats.NewEngine(), offlineModel())
	recs := r.Recommend(context.Background(), testWorkload(models.KindDeployment, 6), idleMetrics(), Options{})

	for i := 1; i < len(recs); i++ {
		if recs[i].MonthlySavings > recs[i-1].MonthlySavings {
			t.Errorf("recommendations out of order at %d: %.2f after %.2f",
				i, recs[i].MonthlySavings, recs[i-1].MonthlySavings)
		}
	}
}

func TestRecommendExactlyOneConfig(t *testing.T) {
	r := New(stats.NewEngine(), offlineModel())
	recs := r.Recommend(context.Background(), testWorkload(models.KindDeployment, 6), idleMetrics(), Options{})

	for _, rec := range recs {
		set := 0
		if rec.RightSize != nil {
			set++
		}
		if rec.Replicas != nil {
			set++
		}
		if rec.Spot != nil {
			set++
		}
		if rec.ScheduledScaling != nil {
			set++
		}
		if rec.Remove != nil {
			set++
		}
		if set != 1 {
			t.Errorf("recommendation %s carries %d config variants, want exactly 1", rec.Type, set)
		}
		if len(rec.Changes()) == 0 {
			t.Errorf("recommendation %s reports no changes", rec.Type)
		}
	}
}

func TestRecommendUnusedWorkload(t *testing.T) {
	metrics := idleMetrics()
	metrics.CPUUtilizationPct = 2
	metrics.MemoryUtilizationPct = 3

	r := New(stats.NewEngine(), offlineModel())
	recs := r.Recommend(context.Background(), testWorkload(models.KindDeployment, 2), metrics, Options{})

	var unused *Recommendation
	for _, rec := range recs {
		if rec.Type == TypeRemoveUnused {
			unused = rec
		}
	}
	if unused == nil {
		t.Fatal("expected a remove_unused recommendation for a 2-3% utilized workload")
	}
	if unused.SavingsPercentage != 100.0 {
		t.Errorf("expected 100%% savings, got %.1f", unused.SavingsPercentage)
	}
	if unused.Risk.Level != RiskLow {
		t.Errorf("expected low risk, got %s", unused.Risk.Level)
	}
	if unused.ConfidenceScore != 0.6 {
		t.Errorf("expected confidence 0.6, got %.2f", unused.ConfidenceScore)
	}
}

func TestRecommendConfidenceThreshold(t *testing.T) {
	r := New(stats.NewEngine(), offlineModel())
	recs := r.Recommend(context.Background(), testWorkload(models.KindDeployment, 6), idleMetrics(),
		Options{MinConfidence: 0.99})

	for _, rec := range recs {
		if rec.ConfidenceScore < 0.99 {
			t.Errorf("recommendation %s confidence %.2f below threshold", rec.Type, rec.ConfidenceScore)
		}
	}
}

func TestRecommendTypeFilter(t *testing.T) {
	r := New(stats.NewEngine(), offlineModel())
	recs := r.Recommend(context.Background(), testWorkload(models.KindDeployment, 6), idleMetrics(),
		Options{Types: []OptimizationType{TypeReduceReplicas}})

	for _, rec := range recs {
		if rec.Type != TypeReduceReplicas {
			t.Errorf("type filter leaked recommendation %s", rec.Type)
		}
	}
}

func TestBestPicksHighestSavings(t *testing.T) {
	r := New(stats.NewEngine(), offlineModel())
	workload := testWorkload(models.KindDeployment, 6)
	metrics := idleMetrics()

	best := r.Best(context.Background(), workload, metrics, Options{})
	if best == nil {
		t.Fatal("expected a best recommendation")
	}

	all := r.Recommend(context.Background(), workload, metrics, Options{})
	for _, rec := range all {
		if rec.MonthlySavings > best.MonthlySavings {
			t.Errorf("best %.2f is not the maximum, found %.2f", best.MonthlySavings, rec.MonthlySavings)
		}
	}
}

func TestAssessRisk(t *testing.T) {
	tests := []struct {
		name        string
		workload    *models.Workload
		optType     OptimizationType
		metrics     *models.WorkloadMetrics
		expectLevel RiskLevel
		expectScore float64
	}{
		{
			name:        "plain deployment is low risk",
			workload:    testWorkload(models.KindDeployment, 4),
			optType:     TypeRightSizeCPU,
			metrics:     idleMetrics(),
			expectLevel: RiskLow,
			expectScore: 0.3,
		},
		{
			name:        "statefulset adds risk",
			workload:    testWorkload(models.KindStatefulSet, 4),
			optType:     TypeReduceReplicas,
			metrics:     idleMetrics(),
			expectLevel: RiskMedium,
			expectScore: 0.5,
		},
		{
			name:     "single replica statefulset under load is high risk",
			workload: testWorkload(models.KindStatefulSet, 1),
			optType:  TypeReduceReplicas,
			metrics: &models.WorkloadMetrics{
				CPUUtilizationPct: 90,
			},
			expectLevel: RiskHigh,
			expectScore: 0.85,
		},
		{
			name:        "spot is fixed at medium",
			workload:    testWorkload(models.KindDeployment, 4),
			optType:     TypeSpotInstances,
			metrics:     idleMetrics(),
			expectLevel: RiskMedium,
			expectScore: 0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			risk := AssessRisk(tt.workload, tt.optType, tt.metrics)
			if risk.Level != tt.expectLevel {
				t.Errorf("expected level %s, got %s", tt.expectLevel, risk.Level)
			}
			if diff := risk.Score - tt.expectScore; diff > 0.001 || diff < -0.001 {
				t.Errorf("expected score %.2f, got %.2f", tt.expectScore, risk.Score)
			}
			if len(risk.Factors) == 0 {
				t.Error("factors must never be empty")
			}
			if len(risk.MitigationSteps) == 0 {
				t.Error("mitigation steps must never be empty")
			}
		})
	}
}

func TestRiskLevelSeverity(t *testing.T) {
	order := []RiskLevel{RiskLow, RiskMedium, RiskHigh, RiskCritical}
	for i := 1; i < len(order); i++ {
		if order[i].Severity() <= order[i-1].Severity() {
			t.Errorf("severity of %s should exceed %s", order[i], order[i-1])
		}
	}
	if RiskLevel("bogus").Severity() <= RiskCritical.Severity() {
		t.Error("unknown levels must rank above critical")
	}
}

func TestPlanRollback(t *testing.T) {
	workload := testWorkload(models.KindDeployment, 8)

	tests := []struct {
		optType       OptimizationType
		expectMinutes int
	}{
		{TypeRightSizeCPU, 5},
		{TypeReduceReplicas, 2},
		{TypeSpotInstances, 10},
		{TypeScheduledScaling, 5},
		{TypeConsolidateNodes, 5},
	}

	for _, tt := range tests {
		t.Run(string(tt.optType), func(t *testing.T) {
			plan := PlanRollback(workload, tt.optType)
			if plan.EstimatedTimeMinutes != tt.expectMinutes {
				t.Errorf("expected %d minutes, got %d", tt.expectMinutes, plan.EstimatedTimeMinutes)
			}
			if len(plan.Steps) == 0 {
				t.Error("rollback plan has no steps")
			}
			if !plan.AutomationAvailable {
				t.Error("automation should be available")
			}
		})
	}
}
