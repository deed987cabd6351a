package admission

import (
	"fmt"

	v1 "kubernetes-cost-optimizer/pkg/apis/optimization/v1"
)

// Namespaces whose workloads are never optimized
var protectedNamespaces = map[string]bool{
	"kube-system":     true,
	"kube-public":     true,
	"kube-node-lease": true,
}

// Cluster-critical workloads that are never optimized
var protectedWorkloads = map[string]bool{
	"kube-dns":             true,
	"coredns":              true,
	"kube-proxy":           true,
	"metrics-server":       true,
	"kubernetes-dashboard": true,
}

// ManagedByValue is stamped into the managed-by label of accepted declarations
const ManagedByValue = "cost-optimizer-operator"

var allowedKinds = []v1.WorkloadKind{
	v1.WorkloadDeployment, v1.WorkloadStatefulSet, v1.WorkloadDaemonSet,
}

var allowedPolicies = []v1.OptimizationPolicy{
	v1.PolicyCPU, v1.PolicyMemory, v1.PolicyReplicas,
	v1.PolicyAll, v1.PolicySpotInstances, v1.PolicyScheduledScaling,
}

var allowedRiskLevels = []v1.RiskLevel{
	v1.RiskLow, v1.RiskMedium, v1.RiskHigh, v1.RiskCritical,
}

// Validate enforces the structural invariants of a CostOptimization. Checks
// run in a fixed order and stop at the first failure; the returned reason is
// specific to the failed check. Validation never errors, it only rejects.
func Validate(opt *v1.CostOptimization) (bool, string) {
	spec := opt.Spec

	if spec.TargetWorkload.Name == "" {
		return false, "targetWorkload.name is required"
	}
	if spec.TargetWorkload.Kind == "" {
		return false, "targetWorkload.kind is required"
	}
	if !containsKind(allowedKinds, spec.TargetWorkload.Kind) {
		return false, fmt.Sprintf("targetWorkload.kind must be one of %v", allowedKinds)
	}

	if spec.OptimizationType == "" {
		return false, "optimizationType is required"
	}
	if !containsPolicy(allowedPolicies, spec.OptimizationType) {
		return false, fmt.Sprintf("optimizationType must be one of %v", allowedPolicies)
	}

	// Zero values mean the field was omitted and the CRD default applies
	if spec.MaxChangePercent != 0 && (spec.MaxChangePercent < 1 || spec.MaxChangePercent > 100) {
		return false, "maxChangePercent must be between 1 and 100"
	}

	if spec.MinConfidence < 0.0 || spec.MinConfidence > 1.0 {
		return false, "minConfidence must be between 0.0 and 1.0"
	}

	if spec.AutoApply && spec.DryRun {
		return false, "Cannot enable both autoApply and dryRun"
	}

	if spec.MaxRiskLevel != "" && !containsRisk(allowedRiskLevels, spec.MaxRiskLevel) {
		return false, fmt.Sprintf("maxRiskLevel must be one of %v", allowedRiskLevels)
	}

	if spec.AutoApply && (spec.MaxRiskLevel == v1.RiskHigh || spec.MaxRiskLevel == v1.RiskCritical) {
		return false, "Cannot enable autoApply with maxRiskLevel HIGH or CRITICAL"
	}

	if spec.TargetWorkload.Kind == v1.WorkloadStatefulSet && spec.OptimizationType == v1.PolicyReplicas {
		if spec.AutoApply {
			return false, "Cannot auto-apply replica optimization to StatefulSet. Manual intervention required."
		}
	}

	if spec.TargetWorkload.Kind == v1.WorkloadDaemonSet &&
		(spec.OptimizationType == v1.PolicyReplicas || spec.OptimizationType == v1.PolicyAll) {
		return false, "Cannot optimize replicas for DaemonSet"
	}

	if spec.OptimizationType == v1.PolicySpotInstances {
		if spec.AutoApply && spec.MinConfidence < 0.8 {
			return false, "Spot instance optimization requires minConfidence >= 0.8 for auto-apply"
		}
	}

	return true, "Validation passed"
}

// SafetyCheck rejects declarations that could endanger cluster-critical
// infrastructure, independently of structural validation
func SafetyCheck(opt *v1.CostOptimization) (bool, string) {
	namespace := opt.Namespace
	if namespace == "" {
		namespace = "default"
	}
	if protectedNamespaces[namespace] {
		return false, fmt.Sprintf("Cannot optimize workloads in %s namespace", namespace)
	}

	if protectedWorkloads[opt.Spec.TargetWorkload.Name] {
		return false, fmt.Sprintf("Cannot optimize protected workload: %s", opt.Spec.TargetWorkload.Name)
	}

	if opt.Labels["app.kubernetes.io/component"] == "controller" {
		return false, "Cannot optimize Kubernetes controller components"
	}

	if opt.Spec.MaxChangePercent > 80 && opt.Spec.AutoApply {
		return false, "Cannot auto-apply optimizations with maxChangePercent > 80%"
	}

	return true, "Safety checks passed"
}

func containsKind(kinds []v1.WorkloadKind, k v1.WorkloadKind) bool {
	for _, kind := range kinds {
		if kind == k {
			return true
		}
	}
	return false
}

func containsPolicy(policies []v1.OptimizationPolicy, p v1.OptimizationPolicy) bool {
	for _, policy := range policies {
		if policy == p {
			return true
		}
	}
	return false
}

func containsRisk(levels []v1.RiskLevel, r v1.RiskLevel) bool {
	for _, level := range levels {
		if level == r {
			return true
		}
	}
	return false
}
