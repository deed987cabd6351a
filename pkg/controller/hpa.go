package controller

import (
	"context"
	"fmt"

	autoscalingv2 "k8s.io/api/autoscaling/v2"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/klog/v2"
)

// findConflictingHPA returns the name of an HPA that manages the
// workload's replica count, or "" when none does. Replica mutations
// would fight the autoscaler and right-sizing would skew its resource
// targets, so both are refused under an HPA.
func (r *Reconciler) findConflictingHPA(ctx context.Context, namespace, kind, name string) (string, error) {
	hpaList, err := r.kubeClient.AutoscalingV2().HorizontalPodAutoscalers(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to list HPAs: %v", err)
	}

	for i := range hpaList.Items {
		hpa := &hpaList.Items[i]
		if hpa.Spec.ScaleTargetRef.Name != name || hpa.Spec.ScaleTargetRef.Kind != kind {
			continue
		}
		if metrics := resourceMetrics(hpa); len(metrics) > 0 {
			klog.V(3).Infof("HPA conflict: %s targets %s/%s with metrics %v", hpa.Name, kind, name, metrics)
		}
		return hpa.Name, nil
	}
	return "", nil
}

func resourceMetrics(hpa *autoscalingv2.HorizontalPodAutoscaler) []string {
	var conflicts []string
	seen := map[string]bool{}
	for _, metric := range hpa.Spec.Metrics {
		if metric.Type != autoscalingv2.ResourceMetricSourceType {
			continue
		}
		name := string(metric.Resource.Name)
		if (name == "cpu" || name == "memory") && !seen[name] {
			conflicts = append(conflicts, name)
			seen[name] = true
		}
	}
	return conflicts
}
