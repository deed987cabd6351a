package metrics

import (
	"context"
	"fmt"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/rest"
	"k8s.io/klog/v2"
	metricsv "k8s.io/metrics/pkg/client/clientset/versioned"

	"kubernetes-cost-optimizer/pkg/models"
	"kubernetes-cost-optimizer/pkg/storage"
)

// SampleTarget identifies one workload whose pods should be sampled.
type SampleTarget struct {
	Namespace string
	Selector  string // pod label selector
	Key       string // window store key, namespace/workload
}

// Sampler polls metrics-server and feeds usage samples into the window
// store the recommendation engine reads from.
type Sampler struct {
	metricsClient metricsv.Interface
	store         *storage.WindowStore
}

func NewSampler(config *rest.Config, store *storage.WindowStore) (*Sampler, error) {
	client, err := metricsv.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("creating metrics client: %w", err)
	}
	return &Sampler{metricsClient: client, store: store}, nil
}

// NewSamplerFromClient wraps an existing clientset, used in tests.
func NewSamplerFromClient(client metricsv.Interface, store *storage.WindowStore) *Sampler {
	return &Sampler{metricsClient: client, store: store}
}

// Collect samples every pod matching the target's selector once.
func (s *Sampler) Collect(ctx context.Context, target SampleTarget) error {
	podMetrics, err := s.metricsClient.MetricsV1beta1().PodMetricses(target.Namespace).List(ctx, metav1.ListOptions{
		LabelSelector: target.Selector,
	})
	if err != nil {
		return fmt.Errorf("listing pod metrics in %s: %w", target.Namespace, err)
	}

	now := time.Now()
	for _, pm := range podMetrics.Items {
		var cpuMillis, memBytes int64
		for _, container := range pm.Containers {
			cpuMillis += container.Usage.Cpu().MilliValue()
			memBytes += container.Usage.Memory().Value()
		}
		s.store.Add(target.Key, models.PodSample{
			PodName:     pm.Name,
			Namespace:   pm.Namespace,
			Timestamp:   now,
			CPUMillis:   cpuMillis,
			MemoryBytes: memBytes,
		})
	}
	klog.V(3).Infof("Sampled %d pods for %s", len(podMetrics.Items), target.Key)
	return nil
}

// Run polls all targets at the given interval until ctx is cancelled.
// targets is re-evaluated each tick so newly tracked workloads are
// picked up without a restart.
func (s *Sampler) Run(ctx context.Context, interval time.Duration, targets func() []SampleTarget) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, target := range targets() {
				if err := s.Collect(ctx, target); err != nil {
					klog.Warningf("Sampling %s failed: %v", target.Key, err)
				}
			}
		}
	}
}
