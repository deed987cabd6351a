package rollback

import (
	"context"
	"fmt"
	"time"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/klog/v2"

	"kubernetes-cost-optimizer/pkg/snapshot"
)

const (
	rolledBackAtAnnotation = "optimization.k8s.io/rolled-back-at"
	rolledBackByAnnotation = "optimization.k8s.io/rolled-back-by"
	operatorIdentity       = "cost-optimizer-operator"
)

// Executor restores workloads to the state captured before an
// optimization was applied. Only Deployments and StatefulSets can be
// rolled back; DaemonSets never have their replicas or resources
// patched in the first place.
type Executor struct {
	kubeClient kubernetes.Interface
	store      snapshot.Store
}

func NewExecutor(kubeClient kubernetes.Interface, store snapshot.Store) *Executor {
	return &Executor{kubeClient: kubeClient, store: store}
}

// Capture snapshots the current replicas and first-container resources
// of a workload and persists them. Call it before mutating the workload.
func (e *Executor) Capture(ctx context.Context, namespace, kind, name string) (*snapshot.WorkloadState, error) {
	state := &snapshot.WorkloadState{
		WorkloadName: name,
		WorkloadKind: kind,
		Namespace:    namespace,
		Resources:    map[string]string{},
		Timestamp:    time.Now().UTC(),
	}

	var containers []corev1.Container
	switch kind {
	case "Deployment":
		deploy, err := e.kubeClient.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return nil, err
		}
		if deploy.Spec.Replicas != nil {
			state.Replicas = *deploy.Spec.Replicas
		}
		state.Annotations = deploy.Annotations
		state.Labels = deploy.Labels
		containers = deploy.Spec.Template.Spec.Containers

	case "StatefulSet":
		sts, err := e.kubeClient.AppsV1().StatefulSets(namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return nil, err
		}
		if sts.Spec.Replicas != nil {
			state.Replicas = *sts.Spec.Replicas
		}
		state.Annotations = sts.Annotations
		state.Labels = sts.Labels
		containers = sts.Spec.Template.Spec.Containers

	default:
		return nil, fmt.Errorf("unsupported kind for rollback: %s", kind)
	}

	if len(containers) > 0 {
		res := containers[0].Resources
		if cpu, ok := res.Requests[corev1.ResourceCPU]; ok {
			state.Resources["cpu_request"] = cpu.String()
		}
		if mem, ok := res.Requests[corev1.ResourceMemory]; ok {
			state.Resources["memory_request"] = mem.String()
		}
		if cpu, ok := res.Limits[corev1.ResourceCPU]; ok {
			state.Resources["cpu_limit"] = cpu.String()
		}
		if mem, ok := res.Limits[corev1.ResourceMemory]; ok {
			state.Resources["memory_limit"] = mem.String()
		}
	}

	if err := e.store.Save(ctx, state); err != nil {
		return nil, fmt.Errorf("saving rollback state: %w", err)
	}
	klog.V(2).Infof("Captured rollback state for %s/%s (%s): replicas=%d", namespace, name, kind, state.Replicas)
	return state, nil
}

// Execute restores the workload from its saved snapshot and verifies
// the restore took effect. The bool reports whether the re-read state
// matched the snapshot; it is meaningful only when err is nil.
func (e *Executor) Execute(ctx context.Context, namespace, kind, name string) (bool, error) {
	state, err := e.store.Load(ctx, namespace, kind, name)
	if err != nil {
		return false, fmt.Errorf("loading rollback state for %s/%s: %w", namespace, name, err)
	}

	klog.Infof("Rolling back %s/%s (%s) to replicas=%d", namespace, name, kind, state.Replicas)

	switch kind {
	case "Deployment":
		err = e.restoreDeployment(ctx, state)
	case "StatefulSet":
		err = e.restoreStatefulSet(ctx, state)
	default:
		return false, fmt.Errorf("unsupported kind for rollback: %s", kind)
	}
	if err != nil {
		return false, fmt.Errorf("restoring %s/%s: %w", namespace, name, err)
	}

	validated, err := e.validate(ctx, state)
	if err != nil {
		return false, err
	}
	if validated {
		klog.Infof("Rollback of %s/%s validated", namespace, name)
	} else {
		klog.Warningf("Rollback of %s/%s applied but validation found drift", namespace, name)
	}
	return validated, nil
}

func (e *Executor) restoreDeployment(ctx context.Context, state *snapshot.WorkloadState) error {
	deploy, err := e.kubeClient.AppsV1().Deployments(state.Namespace).Get(ctx, state.WorkloadName, metav1.GetOptions{})
	if err != nil {
		return err
	}

	replicas := state.Replicas
	deploy.Spec.Replicas = &replicas
	restoreResources(deploy.Spec.Template.Spec.Containers, state.Resources)
	stampRollback(&deploy.ObjectMeta)

	_, err = e.kubeClient.AppsV1().Deployments(state.Namespace).Update(ctx, deploy, metav1.UpdateOptions{})
	return err
}

func (e *Executor) restoreStatefulSet(ctx context.Context, state *snapshot.WorkloadState) error {
	sts, err := e.kubeClient.AppsV1().StatefulSets(state.Namespace).Get(ctx, state.WorkloadName, metav1.GetOptions{})
	if err != nil {
		return err
	}

	replicas := state.Replicas
	sts.Spec.Replicas = &replicas
	restoreResources(sts.Spec.Template.Spec.Containers, state.Resources)
	stampRollback(&sts.ObjectMeta)

	_, err = e.kubeClient.AppsV1().StatefulSets(state.Namespace).Update(ctx, sts, metav1.UpdateOptions{})
	return err
}

// restoreResources writes the snapshot's resource fields back into every
// container. Fields absent from the snapshot are left untouched.
func restoreResources(containers []corev1.Container, saved map[string]string) {
	for i := range containers {
		res := &containers[i].Resources
		if res.Requests == nil {
			res.Requests = corev1.ResourceList{}
		}
		if res.Limits == nil {
			res.Limits = corev1.ResourceList{}
		}
		if v, ok := saved["cpu_request"]; ok {
			res.Requests[corev1.ResourceCPU] = resource.MustParse(v)
		}
		if v, ok := saved["memory_request"]; ok {
			res.Requests[corev1.ResourceMemory] = resource.MustParse(v)
		}
		if v, ok := saved["cpu_limit"]; ok {
			res.Limits[corev1.ResourceCPU] = resource.MustParse(v)
		}
		if v, ok := saved["memory_limit"]; ok {
			res.Limits[corev1.ResourceMemory] = resource.MustParse(v)
		}
	}
}

func stampRollback(meta *metav1.ObjectMeta) {
	if meta.Annotations == nil {
		meta.Annotations = map[string]string{}
	}
	meta.Annotations[rolledBackAtAnnotation] = time.Now().UTC().Format(time.RFC3339)
	meta.Annotations[rolledBackByAnnotation] = operatorIdentity
}

// validate re-reads the workload and compares replicas and the request
// fields against the snapshot.
func (e *Executor) validate(ctx context.Context, state *snapshot.WorkloadState) (bool, error) {
	var (
		replicas   int32
		containers []corev1.Container
	)

	switch state.WorkloadKind {
	case "Deployment":
		deploy, err := e.kubeClient.AppsV1().Deployments(state.Namespace).Get(ctx, state.WorkloadName, metav1.GetOptions{})
		if err != nil {
			return false, err
		}
		if deploy.Spec.Replicas != nil {
			replicas = *deploy.Spec.Replicas
		}
		containers = deploy.Spec.Template.Spec.Containers

	case "StatefulSet":
		sts, err := e.kubeClient.AppsV1().StatefulSets(state.Namespace).Get(ctx, state.WorkloadName, metav1.GetOptions{})
		if err != nil {
			return false, err
		}
		if sts.Spec.Replicas != nil {
			replicas = *sts.Spec.Replicas
		}
		containers = sts.Spec.Template.Spec.Containers
	}

	if replicas != state.Replicas {
		return false, nil
	}
	if len(containers) == 0 {
		return true, nil
	}

	res := containers[0].Resources
	if want, ok := state.Resources["cpu_request"]; ok {
		got, present := res.Requests[corev1.ResourceCPU]
		if !present || got.Cmp(resource.MustParse(want)) != 0 {
			return false, nil
		}
	}
	if want, ok := state.Resources["memory_request"]; ok {
		got, present := res.Requests[corev1.ResourceMemory]
		if !present || got.Cmp(resource.MustParse(want)) != 0 {
			return false, nil
		}
	}
	return true, nil
}
