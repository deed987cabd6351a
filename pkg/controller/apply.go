package controller

import (
	"context"
	"fmt"
	"time"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/klog/v2"

	v1 "kubernetes-cost-optimizer/pkg/apis/optimization/v1"
	"kubernetes-cost-optimizer/pkg/events"
	"kubernetes-cost-optimizer/pkg/metrics"
	"kubernetes-cost-optimizer/pkg/recommender"
)

const (
	optimizedAtAnnotation = "optimization.k8s.io/optimized-at"
	optimizedByAnnotation = "optimization.k8s.io/optimized-by"
	operatorIdentity      = "cost-optimizer-operator"
)

// applySpec is the concrete mutation derived from a recommendation.
// Nil fields are left at their current values.
type applySpec struct {
	Replicas      *int32
	CPURequest    *resource.Quantity
	MemoryRequest *resource.Quantity
	CPULimit      *resource.Quantity
	MemoryLimit   *resource.Quantity
}

// deriveApplySpec maps a recommendation onto workload mutations. The
// second return is false for recommendation types the operator cannot
// apply mechanically (spot migration, scheduled scaling, removal).
func deriveApplySpec(rec *recommender.Recommendation) (*applySpec, bool) {
	switch {
	case rec.RightSize != nil:
		cpuReq := rec.RightSize.CPURequest
		memReq := rec.RightSize.MemoryRequest
		cpuLim := rec.RightSize.CPULimit
		memLim := rec.RightSize.MemoryLimit
		return &applySpec{
			CPURequest:    &cpuReq,
			MemoryRequest: &memReq,
			CPULimit:      &cpuLim,
			MemoryLimit:   &memLim,
		}, true
	case rec.Replicas != nil:
		replicas := rec.Replicas.Replicas
		return &applySpec{Replicas: &replicas}, true
	default:
		return nil, false
	}
}

func (r *Reconciler) applyRecommendation(ctx context.Context, opt *v1.CostOptimization, rec *recommender.Recommendation, started time.Time) {
	target := opt.Spec.TargetWorkload

	plan, appliable := deriveApplySpec(rec)
	if !appliable {
		r.setPhase(opt, v1.PhaseReady,
			fmt.Sprintf("Optimization type %s requires manual action", rec.Type))
		r.recorder.Normal(opt, events.ReasonOptimizationSkipped,
			fmt.Sprintf("%s cannot be applied automatically", rec.Type))
		return
	}

	current, err := metrics.FetchWorkload(ctx, r.kubeClient, opt.Namespace, string(target.Kind), target.Name)
	if err != nil {
		klog.Errorf("Failed to read workload %s/%s: %v", opt.Namespace, target.Name, err)
		r.setPhase(opt, v1.PhaseFailed, "Failed to apply optimization")
		r.exporter.OptimizationsFailed.WithLabelValues("workload_read_error").Inc()
		r.recorder.Warning(opt, events.ReasonOptimizationFailed, err.Error())
		return
	}

	if ok, reason := r.checkGuardrails(ctx, opt, current, plan); !ok {
		klog.Infof("Guardrail blocked optimization of %s/%s: %s", opt.Namespace, target.Name, reason)
		r.setPhase(opt, v1.PhaseReady, fmt.Sprintf("Guardrail violation: %s", reason))
		r.recorder.Warning(opt, events.ReasonGuardrailViolation, reason)
		return
	}

	if _, err := r.rollback.Capture(ctx, opt.Namespace, string(target.Kind), target.Name); err != nil {
		klog.Errorf("Failed to capture rollback snapshot for %s/%s: %v", opt.Namespace, target.Name, err)
		r.setPhase(opt, v1.PhaseFailed, "Failed to apply optimization")
		r.exporter.OptimizationsFailed.WithLabelValues("snapshot_error").Inc()
		r.recorder.Warning(opt, events.ReasonOptimizationFailed,
			fmt.Sprintf("Snapshot capture failed: %v", err))
		return
	}

	if err := r.applyChanges(ctx, opt.Namespace, string(target.Kind), target.Name, plan); err != nil {
		klog.Errorf("Failed to apply optimization to %s/%s: %v", opt.Namespace, target.Name, err)
		r.setPhase(opt, v1.PhaseFailed, "Failed to apply optimization")
		r.exporter.OptimizationsFailed.WithLabelValues("application_failed").Inc()
		r.recorder.Warning(opt, events.ReasonOptimizationFailed, err.Error())
		return
	}

	now := metav1.Now()
	r.setPhase(opt, v1.PhaseApplied, "Optimization applied successfully")
	opt.Status.LastApplied = &now
	opt.Status.AppliedOptimizations++
	opt.Status.TotalSavings += rec.MonthlySavings

	r.exporter.OptimizationsApplied.WithLabelValues(string(rec.Type)).Inc()
	r.exporter.TotalMonthlySavings.Add(rec.MonthlySavings)
	r.exporter.OptimizationDuration.Observe(time.Since(started).Seconds())
	r.recorder.Normal(opt, events.ReasonOptimizationApplied,
		fmt.Sprintf("Applied %s, saving $%.2f/month", rec.Type, rec.MonthlySavings))
	r.recordApplied(ctx, opt, rec)
}

// applyChanges writes the plan onto the live object in a single update:
// replicas, the resources of every container, and the audit annotations.
func (r *Reconciler) applyChanges(ctx context.Context, namespace, kind, name string, plan *applySpec) error {
	switch kind {
	case "Deployment":
		deploy, err := r.kubeClient.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return err
		}
		if plan.Replicas != nil {
			deploy.Spec.Replicas = plan.Replicas
		}
		applyResources(deploy.Spec.Template.Spec.Containers, plan)
		stampApplied(&deploy.ObjectMeta)
		_, err = r.kubeClient.AppsV1().Deployments(namespace).Update(ctx, deploy, metav1.UpdateOptions{})
		return err

	case "StatefulSet":
		sts, err := r.kubeClient.AppsV1().StatefulSets(namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return err
		}
		if plan.Replicas != nil {
			sts.Spec.Replicas = plan.Replicas
		}
		applyResources(sts.Spec.Template.Spec.Containers, plan)
		stampApplied(&sts.ObjectMeta)
		_, err = r.kubeClient.AppsV1().StatefulSets(namespace).Update(ctx, sts, metav1.UpdateOptions{})
		return err

	default:
		return fmt.Errorf("unsupported workload kind: %s", kind)
	}
}

func applyResources(containers []corev1.Container, plan *applySpec) {
	for i := range containers {
		res := &containers[i].Resources
		if res.Requests == nil {
			res.Requests = corev1.ResourceList{}
		}
		if res.Limits == nil {
			res.Limits = corev1.ResourceList{}
		}
		if plan.CPURequest != nil {
			res.Requests[corev1.ResourceCPU] = *plan.CPURequest
		}
		if plan.MemoryRequest != nil {
			res.Requests[corev1.ResourceMemory] = *plan.MemoryRequest
		}
		if plan.CPULimit != nil {
			res.Limits[corev1.ResourceCPU] = *plan.CPULimit
		}
		if plan.MemoryLimit != nil {
			res.Limits[corev1.ResourceMemory] = *plan.MemoryLimit
		}
	}
}

func stampApplied(meta *metav1.ObjectMeta) {
	if meta.Annotations == nil {
		meta.Annotations = map[string]string{}
	}
	meta.Annotations[optimizedAtAnnotation] = time.Now().UTC().Format(time.RFC3339)
	meta.Annotations[optimizedByAnnotation] = operatorIdentity
}
