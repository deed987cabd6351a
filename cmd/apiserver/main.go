package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"kubernetes-cost-optimizer/pkg/apiserver"
	"kubernetes-cost-optimizer/pkg/config"
	"kubernetes-cost-optimizer/pkg/cost"
	"kubernetes-cost-optimizer/pkg/history"
	"kubernetes-cost-optimizer/pkg/logger"
	"kubernetes-cost-optimizer/pkg/metrics"
	"kubernetes-cost-optimizer/pkg/recommender"
	"kubernetes-cost-optimizer/pkg/stats"
	"kubernetes-cost-optimizer/pkg/storage"
)

var kubeconfig string

func main() {
	flag.StringVar(&kubeconfig, "kubeconfig", filepath.Join(os.Getenv("HOME"), ".kube", "config"), "Path to kubeconfig (ignored in cluster)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.NewLogger(cfg.LogLevel, false)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	restConfig, err := buildRESTConfig()
	if err != nil {
		log.Errorw("Failed to build kube config", "error", err)
		os.Exit(1)
	}
	kubeClient, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		log.Errorw("Failed to create kubernetes client", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	windowStore := storage.NewWindowStore(cfg.MetricsWindow(), 100000)
	sampler, err := metrics.NewSampler(restConfig, windowStore)
	if err != nil {
		log.Errorw("Failed to create metrics sampler", "error", err)
		os.Exit(1)
	}
	go sampler.Run(ctx, cfg.SampleInterval(), allWorkloadTargets(ctx, kubeClient, log))

	engine := recommender.New(stats.NewEngine(), cost.NewModel(cost.Config{
		AWSPricingURL:   cfg.AWSPricingURL,
		GCPPricingURL:   cfg.GCPPricingURL,
		AzurePricingURL: cfg.AzurePricingURL,
	}))

	handler := apiserver.NewHandler(log, kubeClient, windowStore, engine)
	if cfg.HistoryDSN != "" {
		ledger, err := history.NewLedger(cfg.HistoryDSN)
		if err != nil {
			log.Errorw("Savings ledger unavailable", "error", err)
		} else {
			defer ledger.Close()
			handler.WithLedger(ledger)
		}
	}

	server := apiserver.NewServer(log, cfg.APIServerAddr, handler)
	if err := server.Run(ctx); err != nil {
		log.Errorw("API server failed", "error", err)
		os.Exit(1)
	}
}

func buildRESTConfig() (*rest.Config, error) {
	if cfg, err := rest.InClusterConfig(); err == nil {
		return cfg, nil
	}
	return clientcmd.BuildConfigFromFlags("", kubeconfig)
}

// allWorkloadTargets samples every Deployment and StatefulSet in the
// cluster, refreshed each tick.
func allWorkloadTargets(ctx context.Context, kubeClient kubernetes.Interface, log *logger.Logger) func() []metrics.SampleTarget {
	return func() []metrics.SampleTarget {
		var targets []metrics.SampleTarget

		deployments, err := kubeClient.AppsV1().Deployments(metav1.NamespaceAll).List(ctx, metav1.ListOptions{})
		if err != nil {
			log.Errorw("Failed to list deployments for sampling", "error", err)
			return nil
		}
		for i := range deployments.Items {
			d := &deployments.Items[i]
			targets = append(targets, metrics.SampleTarget{
				Namespace: d.Namespace,
				Selector:  metav1.FormatLabelSelector(d.Spec.Selector),
				Key:       metrics.WindowKey(d.Namespace, d.Name),
			})
		}

		statefulsets, err := kubeClient.AppsV1().StatefulSets(metav1.NamespaceAll).List(ctx, metav1.ListOptions{})
		if err != nil {
			log.Errorw("Failed to list statefulsets for sampling", "error", err)
			return targets
		}
		for i := range statefulsets.Items {
			s := &statefulsets.Items[i]
			targets = append(targets, metrics.SampleTarget{
				Namespace: s.Namespace,
				Selector:  metav1.FormatLabelSelector(s.Spec.Selector),
				Key:       metrics.WindowKey(s.Namespace, s.Name),
			})
		}

		return targets
	}
}
