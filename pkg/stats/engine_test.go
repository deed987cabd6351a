package stats

import (
	"math"
	"testing"

	"kubernetes-cost-optimizer/pkg/models"
)

func TestRightSize(t *testing.T) {
	engine := NewEngine()

	workload := &models.Workload{
		Namespace: "default",
		Name:      "api",
		Kind:      models.KindDeployment,
		Replicas:  3,
	}
	metrics := &models.WorkloadMetrics{
		CPUUsage:    models.MetricStats{Avg: 0.25, P50: 0.25, P95: 0.3, P99: 0.32, Max: 0.35, Min: 0.1},
		MemoryUsage: models.MetricStats{Avg: 500 * 1024 * 1024, P50: 500 * 1024 * 1024, P95: 512 * 1024 * 1024, P99: 520 * 1024 * 1024, Max: 530 * 1024 * 1024, Min: 400 * 1024 * 1024},
		CPUUtilizationPct:    30,
		MemoryUtilizationPct: 50,
		SampleCount:          600,
		TimeRangeHours:       72,
	}

	spec, confidence := engine.RightSize(workload, metrics)

	if got := spec.CPURequest.String(); got != "345m" {
		t.Errorf("cpu request = %s, expected 345m", got)
	}
	if got := spec.CPULimit.String(); got != "517m" {
		t.Errorf("cpu limit = %s, expected 517m", got)
	}
	if got := spec.MemoryRequest.String(); got != "588Mi" {
		t.Errorf("memory request = %s, expected 588Mi", got)
	}
	if got := spec.MemoryLimit.String(); got != "765Mi" {
		t.Errorf("memory limit = %s, expected 765Mi", got)
	}
	if confidence <= 0 || confidence > 1 {
		t.Errorf("confidence = %.2f, expected a value in (0,1]", confidence)
	}
}

func TestRightSizeAboveOneCore(t *testing.T) {
	engine := NewEngine()

	workload := &models.Workload{Namespace: "default", Name: "worker", Kind: models.KindDeployment, Replicas: 2}
	metrics := &models.WorkloadMetrics{
		CPUUsage:    models.MetricStats{Avg: 1.0, P50: 1.0, P95: 1.2, Max: 1.4, Min: 0.5},
		MemoryUsage: models.MetricStats{Avg: 2 * 1024 * 1024 * 1024, P50: 2 * 1024 * 1024 * 1024, P95: 2 * 1024 * 1024 * 1024, Max: 2 * 1024 * 1024 * 1024, Min: 1024 * 1024 * 1024},
		CPUUtilizationPct:    60,
		MemoryUtilizationPct: 60,
		SampleCount:          200,
		TimeRangeHours:       24,
	}

	spec, _ := engine.RightSize(workload, metrics)

	// 1.2 * 1.15 = 1.38 cores, snapped to tenths of a core
	if got := spec.CPURequest.String(); got != "1400m" {
		t.Errorf("cpu request = %s, expected 1400m", got)
	}
	// 1.38 * 1.5 = 2.07 cores
	if got := spec.CPULimit.String(); got != "2100m" {
		t.Errorf("cpu limit = %s, expected 2100m", got)
	}
	// 2Gi * 1.15 = 2.3Gi, floored to whole Gi
	if got := spec.MemoryRequest.String(); got != "2Gi" {
		t.Errorf("memory request = %s, expected 2Gi", got)
	}
}

func TestClassifyPattern(t *testing.T) {
	engine := NewEngine()

	tests := []struct {
		name     string
		metrics  models.WorkloadMetrics
		expected models.Pattern
	}{
		{
			name: "steady workload",
			metrics: models.WorkloadMetrics{
				CPUUsage:             models.MetricStats{Avg: 1.0, P50: 1.0, P95: 1.05},
				MemoryUsage:          models.MetricStats{Avg: 1.0, P50: 1.0, P95: 1.05},
				CPUUtilizationPct:    55,
				MemoryUtilizationPct: 60,
			},
			expected: models.PatternSteady,
		},
		{
			name: "burst workload",
			metrics: models.WorkloadMetrics{
				CPUUsage:             models.MetricStats{Avg: 1.0, P50: 0.5, P95: 1.5},
				MemoryUsage:          models.MetricStats{Avg: 1.0, P50: 0.8, P95: 1.4},
				CPUUtilizationPct:    50,
				MemoryUtilizationPct: 50,
			},
			expected: models.PatternBurst,
		},
		{
			name: "business hours workload",
			metrics: models.WorkloadMetrics{
				CPUUsage:             models.MetricStats{Avg: 1.0, P50: 1.0, P95: 1.3},
				MemoryUsage:          models.MetricStats{Avg: 1.0, P50: 1.0, P95: 1.3},
				CPUUtilizationPct:    50,
				MemoryUtilizationPct: 50,
			},
			expected: models.PatternBusinessHours,
		},
		{
			name: "idle workload overrides to downsize",
			metrics: models.WorkloadMetrics{
				CPUUsage:             models.MetricStats{Avg: 1.0, P50: 1.0, P95: 1.3},
				MemoryUsage:          models.MetricStats{Avg: 1.0, P50: 1.0, P95: 1.3},
				CPUUtilizationPct:    25,
				MemoryUtilizationPct: 20,
			},
			expected: models.PatternDownsize,
		},
		{
			name: "idle burst still downsizes",
			metrics: models.WorkloadMetrics{
				CPUUsage:             models.MetricStats{Avg: 1.0, P50: 0.5, P95: 1.5},
				MemoryUsage:          models.MetricStats{Avg: 1.0, P50: 0.5, P95: 1.5},
				CPUUtilizationPct:    10,
				MemoryUtilizationPct: 10,
			},
			expected: models.PatternDownsize,
		},
		{
			name: "no observed load counts as steady",
			metrics: models.WorkloadMetrics{
				CPUUsage:             models.MetricStats{},
				MemoryUsage:          models.MetricStats{},
				CPUUtilizationPct:    50,
				MemoryUtilizationPct: 50,
			},
			expected: models.PatternSteady,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := engine.ClassifyPattern(&tt.metrics)
			if result != tt.expected {
				t.Errorf("ClassifyPattern() = %s, expected %s", result, tt.expected)
			}
		})
	}
}

func TestOptimizeReplicas(t *testing.T) {
	engine := NewEngine()

	tests := []struct {
		name     string
		kind     string
		current  int32
		cpuUtil  float64
		memUtil  float64
		expected int32
	}{
		{
			name:     "moderate utilization inside anti-thrash band",
			kind:     models.KindDeployment,
			current:  8,
			cpuUtil:  75,
			memUtil:  50,
			expected: 8, // computed 9, change of 12.5% is suppressed
		},
		{
			name:     "saturated workload scales up",
			kind:     models.KindDeployment,
			current:  8,
			cpuUtil:  90,
			memUtil:  50,
			expected: 11, // ceil(8 * 90/70)
		},
		{
			name:     "target inside 15% band keeps current",
			kind:     models.KindDeployment,
			current:  10,
			cpuUtil:  63,
			memUtil:  40,
			expected: 10,
		},
		{
			name:     "deep idle halves the count",
			kind:     models.KindDeployment,
			current:  8,
			cpuUtil:  10,
			memUtil:  5,
			expected: 4,
		},
		{
			name:     "mild idle sheds one replica",
			kind:     models.KindDeployment,
			current:  4,
			cpuUtil:  25,
			memUtil:  20,
			expected: 3,
		},
		{
			name:     "memory drives the decision",
			kind:     models.KindDeployment,
			current:  8,
			cpuUtil:  20,
			memUtil:  90,
			expected: 11,
		},
		{
			name:     "statefulset never scales down",
			kind:     models.KindStatefulSet,
			current:  8,
			cpuUtil:  10,
			memUtil:  5,
			expected: 8,
		},
		{
			name:     "statefulset may scale up",
			kind:     models.KindStatefulSet,
			current:  4,
			cpuUtil:  90,
			memUtil:  50,
			expected: 6, // ceil(4 * 90/70)
		},
		{
			name:     "never below one replica",
			kind:     models.KindDeployment,
			current:  1,
			cpuUtil:  10,
			memUtil:  5,
			expected: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			workload := &models.Workload{
				Namespace: "default",
				Name:      "api",
				Kind:      tt.kind,
				Replicas:  tt.current,
			}
			metrics := &models.WorkloadMetrics{
				CPUUsage:             models.MetricStats{Avg: 1.0, P50: 1.0, P95: 1.05},
				MemoryUsage:          models.MetricStats{Avg: 1.0, P50: 1.0, P95: 1.05},
				CPUUtilizationPct:    tt.cpuUtil,
				MemoryUtilizationPct: tt.memUtil,
				SampleCount:          600,
				TimeRangeHours:       72,
			}

			result, confidence := engine.OptimizeReplicas(workload, metrics)
			if result != tt.expected {
				t.Errorf("OptimizeReplicas() = %d, expected %d", result, tt.expected)
			}
			if confidence < 0 || confidence > 1 {
				t.Errorf("confidence = %.2f, expected a value in [0,1]", confidence)
			}
		})
	}
}

func TestConfidence(t *testing.T) {
	engine := NewEngine()

	tests := []struct {
		name             string
		metrics          models.WorkloadMetrics
		optimizationType string
		expected         float64
	}{
		{
			name: "rich window clamps at one",
			metrics: models.WorkloadMetrics{
				CPUUsage:          models.MetricStats{Avg: 1.0, P50: 1.0, P95: 1.0},
				MemoryUsage:       models.MetricStats{Avg: 1.0, P50: 1.0, P95: 1.0},
				CPUUtilizationPct: 10,
				SampleCount:       1200,
				TimeRangeHours:    168,
			},
			optimizationType: OptimizationRightSizing,
			expected:         1.0, // 0.5 + 0.2 + 0.2 + 0.1 + 0.05 clamped
		},
		{
			name: "medium window",
			metrics: models.WorkloadMetrics{
				CPUUsage:          models.MetricStats{Avg: 1.0, P50: 1.0, P95: 1.2},
				MemoryUsage:       models.MetricStats{Avg: 1.0, P50: 1.0, P95: 1.2},
				CPUUtilizationPct: 50,
				SampleCount:       600,
				TimeRangeHours:    72,
			},
			optimizationType: OptimizationReplicas,
			expected:         0.8, // 0.5 + 0.15 + 0.1 + 0.05
		},
		{
			name: "sparse noisy window stays at base",
			metrics: models.WorkloadMetrics{
				CPUUsage:          models.MetricStats{Avg: 1.0, P50: 0.5, P95: 1.0},
				MemoryUsage:       models.MetricStats{Avg: 1.0, P50: 0.5, P95: 1.0},
				CPUUtilizationPct: 50,
				SampleCount:       50,
				TimeRangeHours:    24,
			},
			optimizationType: OptimizationReplicas,
			expected:         0.5,
		},
		{
			name: "right-sizing bonus at extreme utilization",
			metrics: models.WorkloadMetrics{
				CPUUsage:          models.MetricStats{Avg: 1.0, P50: 1.0, P95: 1.2},
				MemoryUsage:       models.MetricStats{Avg: 1.0, P50: 1.0, P95: 1.2},
				CPUUtilizationPct: 15,
				SampleCount:       200,
				TimeRangeHours:    24,
			},
			optimizationType: OptimizationRightSizing,
			expected:         0.75, // 0.5 + 0.1 + 0.1 + 0.05
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := engine.Confidence(&tt.metrics, tt.optimizationType)
			if math.Abs(result-tt.expected) > 0.001 {
				t.Errorf("Confidence() = %.3f, expected %.3f", result, tt.expected)
			}
		})
	}
}

func TestConfidenceMonotonicInSampleCount(t *testing.T) {
	engine := NewEngine()

	base := models.WorkloadMetrics{
		CPUUsage:          models.MetricStats{Avg: 1.0, P50: 1.0, P95: 1.2},
		MemoryUsage:       models.MetricStats{Avg: 1.0, P50: 1.0, P95: 1.2},
		CPUUtilizationPct: 50,
		TimeRangeHours:    24,
	}

	previous := -1.0
	for _, samples := range []int{10, 150, 600, 1500} {
		m := base
		m.SampleCount = samples
		c := engine.Confidence(&m, OptimizationReplicas)
		if c < previous {
			t.Errorf("confidence dropped from %.3f to %.3f at %d samples", previous, c, samples)
		}
		if c < 0 || c > 1 {
			t.Errorf("confidence = %.3f at %d samples, expected a value in [0,1]", c, samples)
		}
		previous = c
	}
}

func TestConfidenceMonotonicInWindowLength(t *testing.T) {
	engine := NewEngine()

	base := models.WorkloadMetrics{
		CPUUsage:          models.MetricStats{Avg: 1.0, P50: 1.0, P95: 1.2},
		MemoryUsage:       models.MetricStats{Avg: 1.0, P50: 1.0, P95: 1.2},
		CPUUtilizationPct: 50,
		SampleCount:       600,
	}

	previous := -1.0
	for _, hours := range []int{1, 24, 72, 168, 336} {
		m := base
		m.TimeRangeHours = hours
		c := engine.Confidence(&m, OptimizationReplicas)
		if c < previous {
			t.Errorf("confidence dropped from %.3f to %.3f at %dh window", previous, c, hours)
		}
		previous = c
	}
}

func TestFormatCPU(t *testing.T) {
	tests := []struct {
		cores    float64
		expected string
	}{
		{0.345, "345m"},
		{0.1, "100m"},
		{1.0, "1"},
		{1.38, "1400m"},
		{2.0, "2"},
	}

	for _, tt := range tests {
		q := formatCPU(tt.cores)
		if q.String() != tt.expected {
			t.Errorf("formatCPU(%v) = %s, expected %s", tt.cores, q.String(), tt.expected)
		}
	}
}

func TestFormatMemory(t *testing.T) {
	tests := []struct {
		bytes    float64
		expected string
	}{
		{512 * 1024 * 1024, "512Mi"},
		{588.8 * 1024 * 1024, "588Mi"},
		{2 * 1024 * 1024 * 1024, "2Gi"},
		{2.5 * 1024 * 1024 * 1024, "2Gi"},
		{1536, "1Ki"},
	}

	for _, tt := range tests {
		q := formatMemory(tt.bytes)
		if q.String() != tt.expected {
			t.Errorf("formatMemory(%v) = %s, expected %s", tt.bytes, q.String(), tt.expected)
		}
	}
}
