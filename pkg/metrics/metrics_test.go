package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/metrics/pkg/apis/metrics/v1beta1"
	metricsfake "k8s.io/metrics/pkg/client/clientset/versioned/fake"

	"kubernetes-cost-optimizer/pkg/storage"
)

func TestExporterCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	exp := NewExporterFor(reg)

	exp.OptimizationsCreated.Inc()
	exp.OptimizationsApplied.WithLabelValues("right_size_cpu").Inc()
	exp.OptimizationsApplied.WithLabelValues("right_size_cpu").Inc()
	exp.OptimizationsFailed.WithLabelValues("apply_error").Inc()
	exp.Rollbacks.Inc()
	exp.TotalMonthlySavings.Set(123.45)

	if got := testutil.ToFloat64(exp.OptimizationsCreated); got != 1 {
		t.Errorf("created = %v, want 1", got)
	}
	if got := testutil.ToFloat64(exp.OptimizationsApplied.WithLabelValues("right_size_cpu")); got != 2 {
		t.Errorf("applied{right_size_cpu} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(exp.TotalMonthlySavings); got != 123.45 {
		t.Errorf("savings gauge = %v, want 123.45", got)
	}
}

func podMetrics(name, ns string, cpuMillis, memMi int64) *v1beta1.PodMetrics {
	return &v1beta1.PodMetrics{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: ns,
			Labels:    map[string]string{"app": "web-app"},
		},
		Containers: []v1beta1.ContainerMetrics{
			{
				Name: "app",
				Usage: corev1.ResourceList{
					corev1.ResourceCPU:    *resource.NewMilliQuantity(cpuMillis, resource.DecimalSI),
					corev1.ResourceMemory: *resource.NewQuantity(memMi<<20, resource.BinarySI),
				},
			},
		},
	}
}

func TestSamplerCollect(t *testing.T) {
	// The generated fake client lists PodMetrics under the resource name
	// "pods", but NewSimpleClientset's tracker files objects passed to it
	// under "podmetricses", so seed the tracker directly instead.
	client := metricsfake.NewSimpleClientset()
	podGVR := v1beta1.SchemeGroupVersion.WithResource("pods")
	for _, pm := range []*v1beta1.PodMetrics{
		podMetrics("web-app-1", "production", 250, 256),
		podMetrics("web-app-2", "production", 350, 512),
	} {
		if err := client.Tracker().Create(podGVR, pm, pm.Namespace); err != nil {
			t.Fatalf("seeding fake tracker: %v", err)
		}
	}
	store := storage.NewWindowStore(time.Hour, 1000)
	sampler := NewSamplerFromClient(client, store)

	target := SampleTarget{
		Namespace: "production",
		Selector:  "app=web-app",
		Key:       "production/web-app",
	}
	if err := sampler.Collect(context.Background(), target); err != nil {
		t.Fatalf("Collect: %v", err)
	}

	samples := store.Samples("production/web-app")
	if len(samples) != 2 {
		t.Fatalf("got %d samples, want 2", len(samples))
	}
	var totalCPU int64
	for _, s := range samples {
		totalCPU += s.CPUMillis
	}
	if totalCPU != 600 {
		t.Errorf("total sampled cpu = %dm, want 600m", totalCPU)
	}
}

func TestSamplerCollectEmptyNamespace(t *testing.T) {
	store := storage.NewWindowStore(time.Hour, 100)
	sampler := NewSamplerFromClient(metricsfake.NewSimpleClientset(), store)

	err := sampler.Collect(context.Background(), SampleTarget{Namespace: "empty", Key: "empty/none"})
	if err != nil {
		t.Fatalf("Collect on empty namespace: %v", err)
	}
	if got := store.Samples("empty/none"); len(got) != 0 {
		t.Errorf("got %d samples, want 0", len(got))
	}
}
