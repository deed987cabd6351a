package v1

import (
	"context"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/runtime/serializer"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/client-go/rest"
)

// CostOptimizationClient is a namespaced client for CostOptimization resources
type CostOptimizationClient struct {
	restClient rest.Interface
	namespace  string
}

// NewCostOptimizationClient creates a client for CostOptimization resources.
// An empty namespace selects all namespaces for List and Watch.
func NewCostOptimizationClient(config *rest.Config, namespace string) (*CostOptimizationClient, error) {
	configCopy := *config
	configCopy.GroupVersion = &SchemeGroupVersion
	configCopy.APIPath = "/apis"
	configCopy.ContentType = runtime.ContentTypeJSON

	scheme := runtime.NewScheme()
	if err := AddToScheme(scheme); err != nil {
		return nil, err
	}
	configCopy.NegotiatedSerializer = serializer.NewCodecFactory(scheme)

	client, err := rest.RESTClientFor(&configCopy)
	if err != nil {
		return nil, err
	}

	return &CostOptimizationClient{
		restClient: client,
		namespace:  namespace,
	}, nil
}

// List returns CostOptimizations in the client's namespace
func (c *CostOptimizationClient) List(ctx context.Context, opts metav1.ListOptions) (*CostOptimizationList, error) {
	result := &CostOptimizationList{}
	err := c.restClient.
		Get().
		Namespace(c.namespace).
		Resource("costoptimizations").
		VersionedParams(&opts, metav1.ParameterCodec).
		Do(ctx).
		Into(result)
	return result, err
}

// Get returns a specific CostOptimization by name
func (c *CostOptimizationClient) Get(ctx context.Context, name string, opts metav1.GetOptions) (*CostOptimization, error) {
	result := &CostOptimization{}
	err := c.restClient.
		Get().
		Namespace(c.namespace).
		Resource("costoptimizations").
		Name(name).
		VersionedParams(&opts, metav1.ParameterCodec).
		Do(ctx).
		Into(result)
	return result, err
}

// Watch watches for changes to CostOptimizations
func (c *CostOptimizationClient) Watch(ctx context.Context, opts metav1.ListOptions) (watch.Interface, error) {
	opts.Watch = true
	return c.restClient.
		Get().
		Namespace(c.namespace).
		Resource("costoptimizations").
		VersionedParams(&opts, metav1.ParameterCodec).
		Watch(ctx)
}

// Update replaces a CostOptimization, used for finalizer changes
func (c *CostOptimizationClient) Update(ctx context.Context, opt *CostOptimization, opts metav1.UpdateOptions) (*CostOptimization, error) {
	result := &CostOptimization{}
	err := c.restClient.
		Put().
		Namespace(opt.Namespace).
		Resource("costoptimizations").
		Name(opt.Name).
		VersionedParams(&opts, metav1.ParameterCodec).
		Body(opt).
		Do(ctx).
		Into(result)
	return result, err
}

// UpdateStatus updates the status subresource of a CostOptimization
func (c *CostOptimizationClient) UpdateStatus(ctx context.Context, opt *CostOptimization, opts metav1.UpdateOptions) (*CostOptimization, error) {
	result := &CostOptimization{}
	err := c.restClient.
		Put().
		Namespace(opt.Namespace).
		Resource("costoptimizations").
		Name(opt.Name).
		SubResource("status").
		VersionedParams(&opts, metav1.ParameterCodec).
		Body(opt).
		Do(ctx).
		Into(result)
	return result, err
}

// GroupVersionResource returns the GVR for CostOptimization
func GroupVersionResource() schema.GroupVersionResource {
	return schema.GroupVersionResource{
		Group:    GroupName,
		Version:  Version,
		Resource: "costoptimizations",
	}
}
