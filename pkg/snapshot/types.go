package snapshot

import (
	"fmt"
	"time"
)

// WorkloadState is a point-in-time capture of the mutable fields of a
// workload, taken immediately before an optimization is applied. The
// snake_case field names are the wire format shared by both storage tiers.
type WorkloadState struct {
	WorkloadName string            `json:"workload_name"`
	WorkloadKind string            `json:"workload_kind"`
	Namespace    string            `json:"namespace"`
	Replicas     int32             `json:"replicas"`
	Resources    map[string]string `json:"resources"`
	Timestamp    time.Time         `json:"timestamp"`
	Annotations  map[string]string `json:"annotations,omitempty"`
	Labels       map[string]string `json:"labels,omitempty"`
}

// Key returns the canonical storage key for a workload identity.
func Key(namespace, kind, name string) string {
	return fmt.Sprintf("rollback:%s:%s:%s", namespace, kind, name)
}
