package metrics

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"kubernetes-cost-optimizer/pkg/models"
	"kubernetes-cost-optimizer/pkg/recommender"
	"kubernetes-cost-optimizer/pkg/storage"
)

const providerAnnotation = "optimization.k8s.io/provider"

// WindowKey is the window store key for a workload, namespace/name.
func WindowKey(namespace, name string) string {
	return namespace + "/" + name
}

// ClusterMetricsSource resolves a workload target against the live
// cluster and the sampling window. It implements
// recommender.MetricsSource: a missing workload or an empty window is
// (nil, nil, nil), not an error.
type ClusterMetricsSource struct {
	kubeClient kubernetes.Interface
	store      *storage.WindowStore
}

func NewClusterMetricsSource(kubeClient kubernetes.Interface, store *storage.WindowStore) *ClusterMetricsSource {
	return &ClusterMetricsSource{kubeClient: kubeClient, store: store}
}

func (c *ClusterMetricsSource) WorkloadMetrics(ctx context.Context, target recommender.Target) (*models.Workload, *models.WorkloadMetrics, error) {
	workload, err := FetchWorkload(ctx, c.kubeClient, target.Namespace, target.Kind, target.Name)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	stats := c.store.Aggregate(WindowKey(target.Namespace, target.Name), workload)
	if stats == nil {
		return nil, nil, nil
	}
	return workload, stats, nil
}

// FetchWorkload reads the live workload object and maps it onto the
// internal model. Resource figures come from the first container, the
// same container the recommendation engine sizes against.
func FetchWorkload(ctx context.Context, client kubernetes.Interface, namespace, kind, name string) (*models.Workload, error) {
	switch kind {
	case "Deployment":
		deploy, err := client.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return nil, err
		}
		replicas := int32(1)
		if deploy.Spec.Replicas != nil {
			replicas = *deploy.Spec.Replicas
		}
		return buildWorkload(namespace, kind, name, replicas, deploy.Annotations, deploy.Labels,
			deploy.Spec.Template.Spec.Containers), nil

	case "StatefulSet":
		sts, err := client.AppsV1().StatefulSets(namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return nil, err
		}
		replicas := int32(1)
		if sts.Spec.Replicas != nil {
			replicas = *sts.Spec.Replicas
		}
		return buildWorkload(namespace, kind, name, replicas, sts.Annotations, sts.Labels,
			sts.Spec.Template.Spec.Containers), nil

	case "DaemonSet":
		ds, err := client.AppsV1().DaemonSets(namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return nil, err
		}
		return buildWorkload(namespace, kind, name, ds.Status.DesiredNumberScheduled,
			ds.Annotations, ds.Labels, ds.Spec.Template.Spec.Containers), nil

	default:
		return nil, fmt.Errorf("unsupported workload kind: %s", kind)
	}
}

func buildWorkload(namespace, kind, name string, replicas int32, annotations, lbls map[string]string, containers []corev1.Container) *models.Workload {
	w := &models.Workload{
		ID:          fmt.Sprintf("%s-%s-%s", namespace, kind, name),
		Namespace:   namespace,
		Name:        name,
		Kind:        kind,
		Replicas:    replicas,
		Provider:    "aws",
		Labels:      lbls,
		Annotations: annotations,
	}
	if provider, ok := annotations[providerAnnotation]; ok && provider != "" {
		w.Provider = provider
	}
	if len(containers) > 0 {
		res := containers[0].Resources
		if q, ok := res.Requests[corev1.ResourceCPU]; ok {
			w.Resources.CPURequest = q
		}
		if q, ok := res.Requests[corev1.ResourceMemory]; ok {
			w.Resources.MemoryRequest = q
		}
		if q, ok := res.Limits[corev1.ResourceCPU]; ok {
			w.Resources.CPULimit = q
		}
		if q, ok := res.Limits[corev1.ResourceMemory]; ok {
			w.Resources.MemoryLimit = q
		}
	}
	return w
}
