package stats

import (
	"math"
	"testing"

	"kubernetes-cost-optimizer/pkg/models"
)

func steadyMetrics(cpuUtil, memUtil float64) *models.WorkloadMetrics {
	return &models.WorkloadMetrics{
		CPUUsage:             models.MetricStats{Avg: 1.0, P50: 1.0, P95: 1.05},
		MemoryUsage:          models.MetricStats{Avg: 1.0, P50: 1.0, P95: 1.05},
		CPUUtilizationPct:    cpuUtil,
		MemoryUtilizationPct: memUtil,
		SampleCount:          600,
		TimeRangeHours:       72,
	}
}

func burstMetrics(cpuUtil, memUtil float64) *models.WorkloadMetrics {
	return &models.WorkloadMetrics{
		CPUUsage:             models.MetricStats{Avg: 1.0, P50: 0.5, P95: 1.5},
		MemoryUsage:          models.MetricStats{Avg: 1.0, P50: 0.5, P95: 1.5},
		CPUUtilizationPct:    cpuUtil,
		MemoryUtilizationPct: memUtil,
		SampleCount:          600,
		TimeRangeHours:       72,
	}
}

func TestSpotSuitability(t *testing.T) {
	engine := NewEngine()

	tests := []struct {
		name           string
		workload       models.Workload
		metrics        *models.WorkloadMetrics
		expectSuitable bool
		expectConf     float64
		expectReason   string
	}{
		{
			name:           "statefulset is never suitable",
			workload:       models.Workload{Kind: models.KindStatefulSet, Replicas: 5},
			metrics:        steadyMetrics(50, 50),
			expectSuitable: false,
			expectConf:     0.0,
			expectReason:   "StatefulSets and DaemonSets are not suitable for spot instances",
		},
		{
			name:           "daemonset is never suitable",
			workload:       models.Workload{Kind: models.KindDaemonSet, Replicas: 3},
			metrics:        steadyMetrics(50, 50),
			expectSuitable: false,
			expectConf:     0.0,
			expectReason:   "StatefulSets and DaemonSets are not suitable for spot instances",
		},
		{
			name:           "single replica is never suitable",
			workload:       models.Workload{Kind: models.KindDeployment, Replicas: 1},
			metrics:        steadyMetrics(50, 50),
			expectSuitable: false,
			expectConf:     0.0,
			expectReason:   "Single replica workload, spot interruptions would cause downtime",
		},
		{
			name:           "redundant steady deployment",
			workload:       models.Workload{Kind: models.KindDeployment, Replicas: 3},
			metrics:        steadyMetrics(50, 50),
			expectSuitable: true,
			expectConf:     0.7,
			expectReason:   "Workload is suitable for spot instances with appropriate redundancy",
		},
		{
			name:           "burst pattern lowers confidence",
			workload:       models.Workload{Kind: models.KindDeployment, Replicas: 3},
			metrics:        burstMetrics(50, 50),
			expectSuitable: true,
			expectConf:     0.5,
			expectReason:   "Burst pattern detected, spot interruptions may impact performance",
		},
		{
			name:           "hot workload lowers confidence",
			workload:       models.Workload{Kind: models.KindDeployment, Replicas: 3},
			metrics:        steadyMetrics(85, 50),
			expectSuitable: true,
			expectConf:     0.55,
			expectReason:   "High utilization may be impacted by spot interruptions",
		},
		{
			name:           "burst and hot stack penalties",
			workload:       models.Workload{Kind: models.KindDeployment, Replicas: 3},
			metrics:        burstMetrics(85, 50),
			expectSuitable: true,
			expectConf:     0.35,
			expectReason:   "High utilization may be impacted by spot interruptions",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			suitable, confidence, reason := engine.SpotSuitability(&tt.workload, tt.metrics)
			if suitable != tt.expectSuitable {
				t.Errorf("suitable = %v, expected %v", suitable, tt.expectSuitable)
			}
			if math.Abs(confidence-tt.expectConf) > 0.001 {
				t.Errorf("confidence = %.3f, expected %.3f", confidence, tt.expectConf)
			}
			if reason != tt.expectReason {
				t.Errorf("reason = %q, expected %q", reason, tt.expectReason)
			}
		})
	}
}

func TestDetectUnused(t *testing.T) {
	engine := NewEngine()

	tests := []struct {
		name     string
		cpuUtil  float64
		memUtil  float64
		expected bool
	}{
		{name: "both idle", cpuUtil: 2, memUtil: 3, expected: true},
		{name: "cpu busy", cpuUtil: 12, memUtil: 3, expected: false},
		{name: "memory busy", cpuUtil: 2, memUtil: 40, expected: false},
		{name: "exactly at threshold", cpuUtil: 5, memUtil: 5, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := engine.DetectUnused(steadyMetrics(tt.cpuUtil, tt.memUtil))
			if result != tt.expected {
				t.Errorf("DetectUnused() = %v, expected %v", result, tt.expected)
			}
		})
	}
}

func TestRecommendInstanceType(t *testing.T) {
	engine := NewEngine()

	tests := []struct {
		name         string
		cpuCores     float64
		memoryGB     float64
		provider     string
		expectedType string
	}{
		{name: "aws compute heavy", cpuCores: 4, memoryGB: 4, provider: "aws", expectedType: "c5.xlarge"},
		{name: "aws memory heavy", cpuCores: 2, memoryGB: 16, provider: "aws", expectedType: "r5.large"},
		{name: "aws balanced", cpuCores: 2, memoryGB: 8, provider: "aws", expectedType: "m5.large"},
		{name: "gcp compute heavy", cpuCores: 4, memoryGB: 4, provider: "gcp", expectedType: "c2-standard-4"},
		{name: "gcp memory heavy", cpuCores: 2, memoryGB: 16, provider: "gcp", expectedType: "n2-highmem-2"},
		{name: "gcp balanced", cpuCores: 2, memoryGB: 8, provider: "gcp", expectedType: "n2-standard-2"},
		{name: "azure compute heavy", cpuCores: 4, memoryGB: 4, provider: "azure", expectedType: "Standard_F4s_v2"},
		{name: "azure memory heavy", cpuCores: 2, memoryGB: 16, provider: "azure", expectedType: "Standard_E4s_v3"},
		{name: "azure balanced", cpuCores: 2, memoryGB: 8, provider: "azure", expectedType: "Standard_D4s_v3"},
		{name: "provider is case insensitive", cpuCores: 4, memoryGB: 4, provider: "AWS", expectedType: "c5.xlarge"},
		{name: "unknown provider falls back to azure shapes", cpuCores: 2, memoryGB: 8, provider: "onprem", expectedType: "Standard_D4s_v3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			instanceType, reason := engine.RecommendInstanceType(tt.cpuCores, tt.memoryGB, tt.provider)
			if instanceType != tt.expectedType {
				t.Errorf("RecommendInstanceType(%v, %v, %s) = %s, expected %s",
					tt.cpuCores, tt.memoryGB, tt.provider, instanceType, tt.expectedType)
			}
			if reason == "" {
				t.Error("expected a non-empty reason")
			}
		})
	}
}

func TestDetectScheduledScaling(t *testing.T) {
	engine := NewEngine()

	businessHours := &models.WorkloadMetrics{
		CPUUsage:             models.MetricStats{Avg: 1.0, P50: 1.0, P95: 1.3},
		MemoryUsage:          models.MetricStats{Avg: 1.0, P50: 1.0, P95: 1.3},
		CPUUtilizationPct:    50,
		MemoryUtilizationPct: 50,
	}

	plan := engine.DetectScheduledScaling(businessHours)
	if !plan.Suitable {
		t.Fatal("expected a business-hours workload to be suitable for scheduled scaling")
	}
	if plan.Strategy != "business_hours" {
		t.Errorf("strategy = %s, expected business_hours", plan.Strategy)
	}
	if plan.PeakHours != "9am-5pm weekdays" {
		t.Errorf("peak hours = %q, expected %q", plan.PeakHours, "9am-5pm weekdays")
	}
	if math.Abs(plan.OffPeakFactor-0.5) > 0.001 {
		t.Errorf("off-peak factor = %.2f, expected 0.50", plan.OffPeakFactor)
	}
	if math.Abs(plan.Confidence-0.75) > 0.001 {
		t.Errorf("confidence = %.2f, expected 0.75", plan.Confidence)
	}

	plan = engine.DetectScheduledScaling(steadyMetrics(50, 50))
	if plan.Suitable {
		t.Error("expected a steady workload to be unsuitable for scheduled scaling")
	}
	if plan.Strategy != "none" {
		t.Errorf("strategy = %s, expected none", plan.Strategy)
	}
}
