package controller

import (
	"context"
	"fmt"

	policyv1 "k8s.io/api/policy/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/client-go/kubernetes"
	"k8s.io/klog/v2"
)

type pdbCheckResult struct {
	HasPDB            bool
	PDBName           string
	IsSafe            bool
	CurrentReplicas   int32
	AvailableReplicas int32
	Message           string
}

// pdbChecker validates a planned replica reduction against any
// PodDisruptionBudget covering the workload's pods.
type pdbChecker struct {
	kubeClient kubernetes.Interface
}

func newPDBChecker(kubeClient kubernetes.Interface) *pdbChecker {
	return &pdbChecker{kubeClient: kubeClient}
}

func (p *pdbChecker) checkSafety(ctx context.Context, namespace, kind, name string, plannedDisruption int32) (*pdbCheckResult, error) {
	workloadLabels, currentReplicas, availableReplicas, err := p.getWorkloadInfo(ctx, namespace, kind, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get workload info: %v", err)
	}

	pdb, err := p.findMatchingPDB(ctx, namespace, workloadLabels)
	if err != nil {
		return nil, fmt.Errorf("failed to find PDB: %v", err)
	}

	if pdb == nil {
		return &pdbCheckResult{
			HasPDB:            false,
			CurrentReplicas:   currentReplicas,
			AvailableReplicas: availableReplicas,
			IsSafe:            true,
			Message:           "No PDB found, update is safe",
		}, nil
	}

	result := &pdbCheckResult{
		HasPDB:            true,
		PDBName:           pdb.Name,
		CurrentReplicas:   currentReplicas,
		AvailableReplicas: availableReplicas,
	}

	if pdb.Spec.MinAvailable != nil {
		minAvail := calculateIntOrPercent(pdb.Spec.MinAvailable, currentReplicas)
		afterDisruption := availableReplicas - plannedDisruption
		result.IsSafe = afterDisruption >= minAvail
		result.Message = fmt.Sprintf("PDB %s requires minAvailable=%d, after disruption will have %d available",
			pdb.Name, minAvail, afterDisruption)
	} else if pdb.Spec.MaxUnavailable != nil {
		maxUnavail := calculateIntOrPercent(pdb.Spec.MaxUnavailable, currentReplicas)
		currentUnavailable := currentReplicas - availableReplicas
		afterDisruption := currentUnavailable + plannedDisruption
		result.IsSafe = afterDisruption <= maxUnavail
		result.Message = fmt.Sprintf("PDB %s allows maxUnavailable=%d, after disruption will have %d unavailable",
			pdb.Name, maxUnavail, afterDisruption)
	} else {
		result.IsSafe = true
		result.Message = fmt.Sprintf("PDB %s sets no availability constraint", pdb.Name)
	}

	if !result.IsSafe {
		klog.V(3).Infof("PDB violation detected for %s/%s: %s", namespace, name, result.Message)
	}

	return result, nil
}

func (p *pdbChecker) getWorkloadInfo(ctx context.Context, namespace, kind, name string) (map[string]string, int32, int32, error) {
	switch kind {
	case "Deployment":
		deploy, err := p.kubeClient.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return nil, 0, 0, err
		}
		replicas := int32(1)
		if deploy.Spec.Replicas != nil {
			replicas = *deploy.Spec.Replicas
		}
		return deploy.Spec.Selector.MatchLabels, replicas, deploy.Status.AvailableReplicas, nil

	case "StatefulSet":
		sts, err := p.kubeClient.AppsV1().StatefulSets(namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return nil, 0, 0, err
		}
		replicas := int32(1)
		if sts.Spec.Replicas != nil {
			replicas = *sts.Spec.Replicas
		}
		return sts.Spec.Selector.MatchLabels, replicas, sts.Status.AvailableReplicas, nil

	default:
		return nil, 0, 0, fmt.Errorf("unsupported workload kind: %s", kind)
	}
}

func (p *pdbChecker) findMatchingPDB(ctx context.Context, namespace string, workloadLabels map[string]string) (*policyv1.PodDisruptionBudget, error) {
	pdbList, err := p.kubeClient.PolicyV1().PodDisruptionBudgets(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}

	for i := range pdbList.Items {
		pdb := &pdbList.Items[i]
		if pdb.Spec.Selector == nil {
			continue
		}
		selector, err := metav1.LabelSelectorAsSelector(pdb.Spec.Selector)
		if err != nil {
			continue
		}
		if selector.Matches(labels.Set(workloadLabels)) {
			return pdb, nil
		}
	}

	return nil, nil
}

func calculateIntOrPercent(value *intstr.IntOrString, total int32) int32 {
	if value.Type == intstr.Int {
		return value.IntVal
	}
	scaled, _ := intstr.GetScaledValueFromIntOrPercent(value, int(total), true)
	return int32(scaled)
}
