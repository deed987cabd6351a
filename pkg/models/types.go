package models

import (
	"time"

	"k8s.io/apimachinery/pkg/api/resource"
)

// Workload kinds the optimizer understands
const (
	KindDeployment  = "Deployment"
	KindStatefulSet = "StatefulSet"
	KindDaemonSet   = "DaemonSet"
)

// ResourceSpec holds the requests and limits of a workload's primary container
type ResourceSpec struct {
	CPURequest    resource.Quantity `json:"cpu_request"`
	MemoryRequest resource.Quantity `json:"memory_request"`
	CPULimit      resource.Quantity `json:"cpu_limit"`
	MemoryLimit   resource.Quantity `json:"memory_limit"`
}

// Equal reports whether both specs carry numerically identical quantities
func (r ResourceSpec) Equal(o ResourceSpec) bool {
	return r.CPURequest.Cmp(o.CPURequest) == 0 &&
		r.MemoryRequest.Cmp(o.MemoryRequest) == 0 &&
		r.CPULimit.Cmp(o.CPULimit) == 0 &&
		r.MemoryLimit.Cmp(o.MemoryLimit) == 0
}

// Workload is the unit of optimization: one Deployment, StatefulSet or DaemonSet
type Workload struct {
	ID          string            `json:"id"`
	ClusterID   string            `json:"cluster_id"`
	ClusterName string            `json:"cluster_name"`
	Namespace   string            `json:"namespace"`
	Name        string            `json:"name"`
	Kind        string            `json:"kind"`
	Replicas    int32             `json:"replicas"`
	Resources   ResourceSpec      `json:"current_resources"`
	Provider    string            `json:"provider"`
	Labels      map[string]string `json:"labels,omitempty"`
	Annotations map[string]string `json:"annotations,omitempty"`
}

// MetricStats summarizes one resource dimension over the sampling window.
// CPU values are cores, memory values are bytes.
type MetricStats struct {
	Avg float64 `json:"avg"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
	Max float64 `json:"max"`
	Min float64 `json:"min"`
}

// WorkloadMetrics is the aggregated usage picture recommendations are derived from
type WorkloadMetrics struct {
	WorkloadID           string      `json:"workload_id"`
	CPUUsage             MetricStats `json:"cpu_usage"`
	MemoryUsage          MetricStats `json:"memory_usage"`
	CPUUtilizationPct    float64     `json:"cpu_utilization_pct"`
	MemoryUtilizationPct float64     `json:"memory_utilization_pct"`
	SampleCount          int         `json:"sample_count"`
	TimeRangeHours       int         `json:"time_range_hours"`
}

// Pattern classifies the usage shape of a workload over its observation window
type Pattern string

const (
	PatternBurst         Pattern = "burst"
	PatternSteady        Pattern = "steady"
	PatternBusinessHours Pattern = "business_hours"
	PatternDownsize      Pattern = "downsize"
)

// PodSample is a single usage reading for one pod
type PodSample struct {
	PodName     string    `json:"pod_name"`
	Namespace   string    `json:"namespace"`
	Timestamp   time.Time `json:"timestamp"`
	CPUMillis   int64     `json:"cpu_millis"`   // CPU usage in millicores (m)
	MemoryBytes int64     `json:"memory_bytes"` // memory usage in bytes
}
