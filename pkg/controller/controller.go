package controller

import (
	"context"
	"fmt"
	"time"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/equality"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	runtime "k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/cache"
	"k8s.io/client-go/tools/record"
	"k8s.io/client-go/util/workqueue"
	"k8s.io/klog/v2"

	v1 "kubernetes-cost-optimizer/pkg/apis/optimization/v1"
)

// CostOptimizationController watches CostOptimization resources and
// drives them through the reconciler, one worker per queue item.
type CostOptimizationController struct {
	kubeClient    kubernetes.Interface
	optClient     *v1.CostOptimizationClient
	informer      cache.SharedIndexInformer
	workqueue     workqueue.TypedRateLimitingInterface[string]
	eventRecorder record.EventRecorder
	reconciler    *Reconciler
}

func NewCostOptimizationController(
	kubeClient kubernetes.Interface,
	optClient *v1.CostOptimizationClient,
	reconciler *Reconciler,
	eventRecorder record.EventRecorder,
) *CostOptimizationController {

	informer := cache.NewSharedIndexInformer(
		&cache.ListWatch{
			ListFunc: func(options metav1.ListOptions) (runtime.Object, error) {
				return optClient.List(context.Background(), options)
			},
			WatchFunc: func(options metav1.ListOptions) (watch.Interface, error) {
				return optClient.Watch(context.Background(), options)
			},
		},
		&v1.CostOptimization{},
		time.Minute*10,
		cache.Indexers{},
	)

	controller := &CostOptimizationController{
		kubeClient: kubeClient,
		optClient:  optClient,
		informer:   informer,
		workqueue: workqueue.NewTypedRateLimitingQueue(
			workqueue.DefaultTypedControllerRateLimiter[string](),
		),
		eventRecorder: eventRecorder,
		reconciler:    reconciler,
	}

	_, err := informer.AddEventHandler(cache.ResourceEventHandlerFuncs{
		AddFunc: func(obj interface{}) {
			key, err := cache.MetaNamespaceKeyFunc(obj)
			if err == nil {
				controller.workqueue.Add(key)
				klog.V(4).Infof("Added CostOptimization to queue: %s", key)
			}
		},
		UpdateFunc: func(oldObj, newObj interface{}) {
			key, err := cache.MetaNamespaceKeyFunc(newObj)
			if err == nil {
				controller.workqueue.Add(key)
				klog.V(4).Infof("Updated CostOptimization queued: %s", key)
			}
		},
		DeleteFunc: func(obj interface{}) {
			key, err := cache.DeletionHandlingMetaNamespaceKeyFunc(obj)
			if err == nil {
				controller.workqueue.Add(key)
				klog.V(4).Infof("Deleted CostOptimization queued: %s", key)
			}
		},
	})
	if err != nil {
		klog.Fatalf("Error adding event handler: %v", err)
	}

	return controller
}

func (c *CostOptimizationController) Run(ctx context.Context, workers int) error {
	defer utilruntime.HandleCrash()
	defer c.workqueue.ShutDown()

	klog.Info("Starting CostOptimization controller")
	klog.Infof("Starting %d workers", workers)

	go c.informer.Run(ctx.Done())

	if !cache.WaitForCacheSync(ctx.Done(), c.informer.HasSynced) {
		return fmt.Errorf("failed to wait for caches to sync")
	}

	klog.Info("Cache synced, starting workers")

	for i := 0; i < workers; i++ {
		go wait.UntilWithContext(ctx, c.runWorker, time.Second)
	}

	klog.Info("Workers started")
	<-ctx.Done()
	klog.Info("Shutting down workers")

	return nil
}

func (c *CostOptimizationController) runWorker(ctx context.Context) {
	for c.processNextItem(ctx) {
	}
}

func (c *CostOptimizationController) processNextItem(ctx context.Context) bool {
	key, shutdown := c.workqueue.Get()
	if shutdown {
		return false
	}
	defer c.workqueue.Done(key)

	err := c.syncHandler(ctx, key)
	c.handleErr(err, key)
	return true
}

func (c *CostOptimizationController) syncHandler(ctx context.Context, key string) error {
	namespace, name, err := cache.SplitMetaNamespaceKey(key)
	if err != nil {
		utilruntime.HandleError(fmt.Errorf("invalid resource key: %s", key))
		return nil
	}

	obj, exists, err := c.informer.GetIndexer().GetByKey(key)
	if err != nil {
		return fmt.Errorf("error fetching object with key %s: %v", key, err)
	}

	if !exists {
		klog.V(3).Infof("CostOptimization %s/%s deleted", namespace, name)
		return nil
	}

	original, ok := obj.(*v1.CostOptimization)
	if !ok {
		return fmt.Errorf("unexpected object type: %T", obj)
	}

	opt := original.DeepCopy()

	klog.V(3).Infof("Reconciling CostOptimization %s/%s", namespace, name)

	result, err := c.reconciler.Reconcile(ctx, opt)
	if err != nil {
		c.eventRecorder.Event(opt, corev1.EventTypeWarning, "ReconcileError", err.Error())
		return err
	}

	if result.RequeueAfter > 0 {
		c.workqueue.AddAfter(key, result.RequeueAfter)
	}

	if result.Updated && !equality.Semantic.DeepEqual(original.Status, opt.Status) {
		_, err = c.optClient.UpdateStatus(ctx, opt, metav1.UpdateOptions{})
		if err != nil {
			return fmt.Errorf("failed to update status: %v", err)
		}
	}

	return nil
}

func (c *CostOptimizationController) handleErr(err error, key string) {
	if err == nil {
		c.workqueue.Forget(key)
		return
	}

	if c.workqueue.NumRequeues(key) < 5 {
		klog.Warningf("Error syncing CostOptimization %s: %v", key, err)
		c.workqueue.AddRateLimited(key)
		return
	}

	c.workqueue.Forget(key)
	utilruntime.HandleError(err)
	klog.Warningf("Dropping CostOptimization %s out of queue: %v", key, err)
}
