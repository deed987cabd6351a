package controller

import (
	"context"
	"fmt"
	"math"

	"k8s.io/klog/v2"

	v1 "kubernetes-cost-optimizer/pkg/apis/optimization/v1"
	"kubernetes-cost-optimizer/pkg/models"
)

const defaultMaxChangePercent = 50

// checkGuardrails validates the planned change against the declaration's
// blast-radius limits and cluster safety constraints. A false return
// carries a human-readable reason, not an error: a blocked apply is a
// normal outcome.
func (r *Reconciler) checkGuardrails(ctx context.Context, opt *v1.CostOptimization, current *models.Workload, plan *applySpec) (bool, string) {
	maxChange := float64(opt.Spec.MaxChangePercent)
	if maxChange <= 0 {
		maxChange = defaultMaxChangePercent
	}

	if hpaName, err := r.findConflictingHPA(ctx, current.Namespace, current.Kind, current.Name); err != nil {
		klog.Warningf("HPA check for %s/%s failed: %v", current.Namespace, current.Name, err)
	} else if hpaName != "" {
		return false, fmt.Sprintf("workload is managed by HPA %s", hpaName)
	}

	if plan.Replicas != nil {
		newReplicas := *plan.Replicas
		if newReplicas < 1 {
			return false, fmt.Sprintf("replica count %d is below the minimum of 1", newReplicas)
		}
		if current.Kind == "StatefulSet" && newReplicas < current.Replicas {
			return false, "StatefulSet replica reduction requires manual action"
		}
		if pct := changePercent(float64(current.Replicas), float64(newReplicas)); pct > maxChange {
			return false, fmt.Sprintf("replica change of %.0f%% exceeds maxChangePercent=%.0f%%", pct, maxChange)
		}
		if newReplicas < current.Replicas {
			planned := current.Replicas - newReplicas
			pdbResult, err := newPDBChecker(r.kubeClient).checkSafety(ctx, current.Namespace, current.Kind, current.Name, planned)
			if err != nil {
				klog.Warningf("PDB check for %s/%s failed: %v", current.Namespace, current.Name, err)
				return false, fmt.Sprintf("PDB check failed: %v", err)
			}
			if !pdbResult.IsSafe {
				return false, pdbResult.Message
			}
		}
	}

	if plan.CPURequest != nil {
		oldCPU := current.Resources.CPURequest.AsApproximateFloat64()
		newCPU := plan.CPURequest.AsApproximateFloat64()
		if pct := changePercent(oldCPU, newCPU); pct > maxChange {
			return false, fmt.Sprintf("CPU request change of %.0f%% exceeds maxChangePercent=%.0f%%", pct, maxChange)
		}
	}

	if plan.MemoryRequest != nil {
		oldMem := current.Resources.MemoryRequest.AsApproximateFloat64()
		newMem := plan.MemoryRequest.AsApproximateFloat64()
		if pct := changePercent(oldMem, newMem); pct > maxChange {
			return false, fmt.Sprintf("memory request change of %.0f%% exceeds maxChangePercent=%.0f%%", pct, maxChange)
		}
	}

	return true, ""
}

func changePercent(old, new float64) float64 {
	if old <= 0 {
		return 0
	}
	return math.Abs(new-old) / old * 100
}
