package snapshot

import (
	"context"
	"encoding/json"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

const stateDataKey = "rollback_state"

// ConfigMapStore is the durable snapshot tier. Each workload gets a
// ConfigMap named {workload}-rollback-state in the workload's own
// namespace, so snapshots survive operator restarts and redis flushes.
type ConfigMapStore struct {
	client kubernetes.Interface
}

func NewConfigMapStore(client kubernetes.Interface) *ConfigMapStore {
	return &ConfigMapStore{client: client}
}

func configMapName(workloadName string) string {
	return workloadName + "-rollback-state"
}

func (s *ConfigMapStore) Save(ctx context.Context, state *WorkloadState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}

	cm := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:      configMapName(state.WorkloadName),
			Namespace: state.Namespace,
			Labels: map[string]string{
				"app":       "cost-optimizer",
				"component": "rollback-state",
			},
		},
		Data: map[string]string{stateDataKey: string(data)},
	}

	_, err = s.client.CoreV1().ConfigMaps(state.Namespace).Create(ctx, cm, metav1.CreateOptions{})
	if errors.IsAlreadyExists(err) {
		_, err = s.client.CoreV1().ConfigMaps(state.Namespace).Update(ctx, cm, metav1.UpdateOptions{})
	}
	if err != nil {
		return fmt.Errorf("persisting snapshot ConfigMap: %w", err)
	}
	return nil
}

func (s *ConfigMapStore) Load(ctx context.Context, namespace, kind, name string) (*WorkloadState, error) {
	cm, err := s.client.CoreV1().ConfigMaps(namespace).Get(ctx, configMapName(name), metav1.GetOptions{})
	if errors.IsNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot ConfigMap: %w", err)
	}

	raw, ok := cm.Data[stateDataKey]
	if !ok {
		return nil, ErrNotFound
	}
	state := &WorkloadState{}
	if err := json.Unmarshal([]byte(raw), state); err != nil {
		return nil, fmt.Errorf("unmarshaling snapshot: %w", err)
	}
	if kind != "" && state.WorkloadKind != kind {
		return nil, ErrNotFound
	}
	return state, nil
}

func (s *ConfigMapStore) Delete(ctx context.Context, namespace, kind, name string) error {
	err := s.client.CoreV1().ConfigMaps(namespace).Delete(ctx, configMapName(name), metav1.DeleteOptions{})
	if errors.IsNotFound(err) {
		return ErrNotFound
	}
	return err
}
