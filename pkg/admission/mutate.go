package admission

import (
	v1 "kubernetes-cost-optimizer/pkg/apis/optimization/v1"
)

// PatchOp is a single JSON-Patch operation
type PatchOp struct {
	Op    string      `json:"op"`
	Path  string      `json:"path"`
	Value interface{} `json:"value,omitempty"`
}

// Mutate returns the JSON-Patch that normalizes a freshly admitted
// CostOptimization: a default status object when none exists, and the
// managed-by label. The ~1 sequence escapes the slash in the label key.
func Mutate(opt *v1.CostOptimization) []PatchOp {
	var patches []PatchOp

	if opt.Status.Phase == "" {
		patches = append(patches, PatchOp{
			Op:   "add",
			Path: "/status",
			Value: map[string]interface{}{
				"phase":                string(v1.PhasePending),
				"message":              "CostOptimization created",
				"appliedOptimizations": 0,
				"totalSavings":         0.0,
				"conditions":           []interface{}{},
			},
		})
	}

	if opt.Labels == nil {
		patches = append(patches, PatchOp{
			Op:    "add",
			Path:  "/metadata/labels",
			Value: map[string]string{},
		})
	}

	patches = append(patches, PatchOp{
		Op:    "add",
		Path:  "/metadata/labels/app.kubernetes.io~1managed-by",
		Value: ManagedByValue,
	})

	return patches
}
