package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/scheme"
	typedcorev1 "k8s.io/client-go/kubernetes/typed/core/v1"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/tools/leaderelection"
	"k8s.io/client-go/tools/leaderelection/resourcelock"
	"k8s.io/client-go/tools/record"
	"k8s.io/klog/v2"

	v1 "kubernetes-cost-optimizer/pkg/apis/optimization/v1"
	"kubernetes-cost-optimizer/pkg/config"
	"kubernetes-cost-optimizer/pkg/controller"
	"kubernetes-cost-optimizer/pkg/cost"
	"kubernetes-cost-optimizer/pkg/events"
	"kubernetes-cost-optimizer/pkg/history"
	"kubernetes-cost-optimizer/pkg/metrics"
	"kubernetes-cost-optimizer/pkg/recommender"
	"kubernetes-cost-optimizer/pkg/rollback"
	"kubernetes-cost-optimizer/pkg/snapshot"
	"kubernetes-cost-optimizer/pkg/stats"
	"kubernetes-cost-optimizer/pkg/storage"
)

var (
	kubeconfig    string
	namespace     string
	workers       int
	leaderElect   bool
	leaseDuration time.Duration
	renewDeadline time.Duration
	retryPeriod   time.Duration
)

func main() {
	klog.InitFlags(nil)
	flag.StringVar(&kubeconfig, "kubeconfig", filepath.Join(os.Getenv("HOME"), ".kube", "config"), "Path to kubeconfig (ignored in cluster)")
	flag.StringVar(&namespace, "namespace", "default", "Namespace to watch CostOptimizations")
	flag.IntVar(&workers, "workers", 2, "Number of worker threads")
	flag.BoolVar(&leaderElect, "leader-elect", true, "Enable leader election")
	flag.DurationVar(&leaseDuration, "lease-duration", 15*time.Second, "Lease duration")
	flag.DurationVar(&renewDeadline, "renew-deadline", 10*time.Second, "Renew deadline")
	flag.DurationVar(&retryPeriod, "retry-period", 2*time.Second, "Retry period")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		klog.Fatalf("Failed to load configuration: %v", err)
	}

	restConfig, err := buildRESTConfig()
	if err != nil {
		klog.Fatalf("Failed to build config: %v", err)
	}

	kubeClient, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		klog.Fatalf("Failed to create kubernetes client: %v", err)
	}

	optClient, err := v1.NewCostOptimizationClient(restConfig, namespace)
	if err != nil {
		klog.Fatalf("Failed to create optimization client: %v", err)
	}

	ctx := context.Background()

	store := snapshot.NewTiered(
		snapshot.NewRedisStore(cfg.RedisAddr(), cfg.RedisPassword, cfg.RedisDB),
		snapshot.NewConfigMapStore(kubeClient),
	)
	rollbackExec := rollback.NewExecutor(kubeClient, store)

	source, sampler := buildSource(cfg, kubeClient, restConfig)
	if sampler != nil {
		go sampler.Run(ctx, cfg.SampleInterval(), sampleTargets(ctx, kubeClient, optClient))
	}

	exporter := metrics.NewExporter()
	go serveMetrics(cfg.MetricsAddr)

	eventRecorder := buildEventRecorder(kubeClient)
	reconciler := controller.NewReconciler(kubeClient, optClient, source, rollbackExec,
		events.NewRecorder(eventRecorder), exporter).
		WithTick(cfg.ReconcileInterval())

	if cfg.HistoryDSN != "" {
		ledger, err := history.NewLedger(cfg.HistoryDSN)
		if err != nil {
			klog.Warningf("Savings ledger unavailable: %v", err)
		} else {
			defer ledger.Close()
			reconciler.WithLedger(ledger)
		}
	}

	ctrl := controller.NewCostOptimizationController(kubeClient, optClient, reconciler, eventRecorder)

	if !leaderElect {
		klog.Info("Running without leader election")
		if err := ctrl.Run(ctx, workers); err != nil {
			klog.Fatalf("Error running controller: %v", err)
		}
		return
	}

	id, err := os.Hostname()
	if err != nil {
		klog.Fatalf("Failed to get hostname: %v", err)
	}

	lock := &resourcelock.LeaseLock{
		LeaseMeta: metav1.ObjectMeta{
			Name:      cfg.LeaderElectionName,
			Namespace: cfg.LeaderElectionNamespace,
		},
		Client: kubeClient.CoordinationV1(),
		LockConfig: resourcelock.ResourceLockConfig{
			Identity: id,
		},
	}

	leaderelection.RunOrDie(ctx, leaderelection.LeaderElectionConfig{
		Lock:            lock,
		ReleaseOnCancel: true,
		LeaseDuration:   leaseDuration,
		RenewDeadline:   renewDeadline,
		RetryPeriod:     retryPeriod,
		Callbacks: leaderelection.LeaderCallbacks{
			OnStartedLeading: func(ctx context.Context) {
				klog.Infof("Started leading as %s", id)
				if err := ctrl.Run(ctx, workers); err != nil {
					klog.Fatalf("Error running controller: %v", err)
				}
			},
			OnStoppedLeading: func() {
				klog.Infof("Leader lost: %s", id)
				os.Exit(0)
			},
			OnNewLeader: func(identity string) {
				if identity == id {
					return
				}
				klog.Infof("New leader elected: %s", identity)
			},
		},
	})
}

func buildRESTConfig() (*rest.Config, error) {
	if cfg, err := rest.InClusterConfig(); err == nil {
		return cfg, nil
	}
	return clientcmd.BuildConfigFromFlags("", kubeconfig)
}

// buildSource picks the recommendation source: the remote optimizer API
// when configured, otherwise an in-process engine fed by the live
// sampler.
func buildSource(cfg *config.Config, kubeClient kubernetes.Interface, restConfig *rest.Config) (recommender.Source, *metrics.Sampler) {
	if cfg.OptimizerAPIURL != "" {
		klog.Infof("Using optimizer API at %s", cfg.OptimizerAPIURL)
		return recommender.NewRemoteSource(cfg.OptimizerAPIURL, 30*time.Second), nil
	}

	windowStore := storage.NewWindowStore(cfg.MetricsWindow(), 100000)
	sampler, err := metrics.NewSampler(restConfig, windowStore)
	if err != nil {
		klog.Fatalf("Failed to create metrics sampler: %v", err)
	}

	engine := recommender.New(stats.NewEngine(), cost.NewModel(cost.Config{
		AWSPricingURL:   cfg.AWSPricingURL,
		GCPPricingURL:   cfg.GCPPricingURL,
		AzurePricingURL: cfg.AzurePricingURL,
	}))
	return recommender.NewLocalSource(engine, metrics.NewClusterMetricsSource(kubeClient, windowStore)), sampler
}

// sampleTargets derives the sampling set from the CostOptimizations
// currently declared, re-evaluated every tick.
func sampleTargets(ctx context.Context, kubeClient kubernetes.Interface, optClient *v1.CostOptimizationClient) func() []metrics.SampleTarget {
	return func() []metrics.SampleTarget {
		list, err := optClient.List(ctx, metav1.ListOptions{})
		if err != nil {
			klog.Warningf("Failed to list CostOptimizations for sampling: %v", err)
			return nil
		}

		var targets []metrics.SampleTarget
		for i := range list.Items {
			opt := &list.Items[i]
			selector, err := workloadSelector(ctx, kubeClient, opt)
			if err != nil {
				klog.V(3).Infof("Skipping sampling for %s/%s: %v", opt.Namespace, opt.Name, err)
				continue
			}
			targets = append(targets, metrics.SampleTarget{
				Namespace: opt.Namespace,
				Selector:  selector,
				Key:       metrics.WindowKey(opt.Namespace, opt.Spec.TargetWorkload.Name),
			})
		}
		return targets
	}
}

func workloadSelector(ctx context.Context, kubeClient kubernetes.Interface, opt *v1.CostOptimization) (string, error) {
	target := opt.Spec.TargetWorkload
	switch target.Kind {
	case v1.WorkloadDeployment:
		deploy, err := kubeClient.AppsV1().Deployments(opt.Namespace).Get(ctx, target.Name, metav1.GetOptions{})
		if err != nil {
			return "", err
		}
		return metav1.FormatLabelSelector(deploy.Spec.Selector), nil
	case v1.WorkloadStatefulSet:
		sts, err := kubeClient.AppsV1().StatefulSets(opt.Namespace).Get(ctx, target.Name, metav1.GetOptions{})
		if err != nil {
			return "", err
		}
		return metav1.FormatLabelSelector(sts.Spec.Selector), nil
	case v1.WorkloadDaemonSet:
		ds, err := kubeClient.AppsV1().DaemonSets(opt.Namespace).Get(ctx, target.Name, metav1.GetOptions{})
		if err != nil {
			return "", err
		}
		return metav1.FormatLabelSelector(ds.Spec.Selector), nil
	default:
		return "", nil
	}
}

func buildEventRecorder(kubeClient kubernetes.Interface) record.EventRecorder {
	broadcaster := record.NewBroadcaster()
	broadcaster.StartRecordingToSink(&typedcorev1.EventSinkImpl{
		Interface: kubeClient.CoreV1().Events(""),
	})
	eventScheme := runtime.NewScheme()
	if err := scheme.AddToScheme(eventScheme); err != nil {
		klog.Fatalf("Failed to build event scheme: %v", err)
	}
	if err := v1.AddToScheme(eventScheme); err != nil {
		klog.Fatalf("Failed to register optimization types: %v", err)
	}
	return broadcaster.NewRecorder(eventScheme, corev1.EventSource{Component: "cost-optimizer-operator"})
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	klog.Infof("Metrics listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		klog.Errorf("Metrics server stopped: %v", err)
	}
}
