package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"kubernetes-cost-optimizer/pkg/config"
	"kubernetes-cost-optimizer/pkg/cost"
	"kubernetes-cost-optimizer/pkg/metrics"
	"kubernetes-cost-optimizer/pkg/recommender"
	"kubernetes-cost-optimizer/pkg/rollback"
	"kubernetes-cost-optimizer/pkg/snapshot"
	"kubernetes-cost-optimizer/pkg/stats"
	"kubernetes-cost-optimizer/pkg/storage"
)

var (
	kubeconfig string
	kind       string
	samples    int
	interval   time.Duration
)

func main() {
	root := &cobra.Command{
		Use:   "costctl",
		Short: "Operational CLI for the cost optimizer",
	}
	root.PersistentFlags().StringVar(&kubeconfig, "kubeconfig",
		filepath.Join(os.Getenv("HOME"), ".kube", "config"), "Path to kubeconfig (ignored in cluster)")

	rollbackCmd := &cobra.Command{
		Use:   "rollback <namespace>/<kind>/<name>",
		Short: "Restore a workload to its pre-optimization state",
		Args:  cobra.ExactArgs(1),
		RunE:  runRollback,
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze <namespace>/<name>",
		Short: "Sample a workload and print its optimization recommendations",
		Args:  cobra.ExactArgs(1),
		RunE:  runAnalyze,
	}
	analyzeCmd.Flags().StringVar(&kind, "kind", "Deployment", "Workload kind (Deployment or StatefulSet)")
	analyzeCmd.Flags().IntVar(&samples, "samples", 10, "Number of usage samples to collect")
	analyzeCmd.Flags().DurationVar(&interval, "interval", 5*time.Second, "Delay between samples")

	root.AddCommand(rollbackCmd, analyzeCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func buildClients() (*rest.Config, kubernetes.Interface, error) {
	restConfig, err := rest.InClusterConfig()
	if err != nil {
		restConfig, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
		if err != nil {
			return nil, nil, fmt.Errorf("building kube config: %w", err)
		}
	}
	kubeClient, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("creating kubernetes client: %w", err)
	}
	return restConfig, kubeClient, nil
}

func runRollback(cmd *cobra.Command, args []string) error {
	parts := strings.Split(args[0], "/")
	if len(parts) != 3 {
		return fmt.Errorf("invalid resource format, expected: namespace/kind/name")
	}
	namespace, workloadKind, name := parts[0], parts[1], parts[2]

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	_, kubeClient, err := buildClients()
	if err != nil {
		return err
	}

	store := snapshot.NewTiered(
		snapshot.NewRedisStore(cfg.RedisAddr(), cfg.RedisPassword, cfg.RedisDB),
		snapshot.NewConfigMapStore(kubeClient),
	)
	executor := rollback.NewExecutor(kubeClient, store)

	ctx := context.Background()
	validated, err := executor.Execute(ctx, namespace, workloadKind, name)
	if err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}
	if !validated {
		fmt.Printf("Rollback of %s/%s applied, but validation found drift\n", namespace, name)
		return nil
	}
	fmt.Printf("Rolled back %s %s/%s to its saved state\n", workloadKind, namespace, name)
	return nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	parts := strings.Split(args[0], "/")
	if len(parts) != 2 {
		return fmt.Errorf("invalid workload format, expected: namespace/name")
	}
	namespace, name := parts[0], parts[1]

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	restConfig, kubeClient, err := buildClients()
	if err != nil {
		return err
	}

	ctx := context.Background()
	workload, err := metrics.FetchWorkload(ctx, kubeClient, namespace, kind, name)
	if err != nil {
		return fmt.Errorf("reading workload: %w", err)
	}

	windowStore := storage.NewWindowStore(time.Hour, 10000)
	sampler, err := metrics.NewSampler(restConfig, windowStore)
	if err != nil {
		return fmt.Errorf("creating sampler: %w", err)
	}

	selector := "app=" + name
	if len(workload.Labels) > 0 {
		selector = metav1.FormatLabelSelector(&metav1.LabelSelector{MatchLabels: workload.Labels})
	}
	target := metrics.SampleTarget{
		Namespace: namespace,
		Selector:  selector,
		Key:       metrics.WindowKey(namespace, name),
	}

	fmt.Printf("Sampling %s/%s (%d samples, %s apart)...\n", namespace, name, samples, interval)
	for i := 0; i < samples; i++ {
		if i > 0 {
			time.Sleep(interval)
		}
		if err := sampler.Collect(ctx, target); err != nil {
			return fmt.Errorf("sampling: %w", err)
		}
	}

	usage := windowStore.Aggregate(target.Key, workload)
	if usage == nil {
		return fmt.Errorf("no usage samples collected, is metrics-server running?")
	}

	engine := recommender.New(stats.NewEngine(), cost.NewModel(cost.Config{
		AWSPricingURL:   cfg.AWSPricingURL,
		GCPPricingURL:   cfg.GCPPricingURL,
		AzurePricingURL: cfg.AzurePricingURL,
	}))
	recs := engine.Recommend(ctx, workload, usage, recommender.Options{})

	fmt.Printf("\nWorkload %s/%s (%s, %d replicas)\n", namespace, name, kind, workload.Replicas)
	fmt.Printf("CPU avg/p95: %.3f/%.3f cores (%.0f%% of request)\n",
		usage.CPUUsage.Avg, usage.CPUUsage.P95, usage.CPUUtilizationPct)
	fmt.Printf("Memory avg/p95: %.0f/%.0f MiB (%.0f%% of request)\n",
		usage.MemoryUsage.Avg/(1<<20), usage.MemoryUsage.P95/(1<<20), usage.MemoryUtilizationPct)

	if len(recs) == 0 {
		fmt.Println("\nNo optimization opportunities found")
		return nil
	}

	fmt.Printf("\n%-22s %-10s %-6s %10s\n", "TYPE", "CONFIDENCE", "RISK", "SAVINGS/MO")
	for _, rec := range recs {
		fmt.Printf("%-22s %-10.2f %-6s %9s$%.2f\n",
			rec.Type, rec.ConfidenceScore, rec.Risk.Level, "", rec.MonthlySavings)
	}
	return nil
}
