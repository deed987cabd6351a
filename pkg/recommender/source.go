package recommender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"k8s.io/klog/v2"

	v1 "kubernetes-cost-optimizer/pkg/apis/optimization/v1"
	"kubernetes-cost-optimizer/pkg/models"
)

// Target names one workload a recommendation is wanted for
type Target struct {
	Namespace string
	Name      string
	Kind      string
}

// Source yields the best recommendation for a target workload. A nil
// recommendation with a nil error means no opportunity was found, which is a
// normal outcome.
type Source interface {
	BestRecommendation(ctx context.Context, target Target, opts Options) (*Recommendation, error)
}

// TypesForPolicy maps a declaration's optimization policy to the families the
// recommender may consider
func TypesForPolicy(policy v1.OptimizationPolicy) []OptimizationType {
	switch policy {
	case v1.PolicyAll:
		return []OptimizationType{
			TypeRightSizeCPU, TypeRightSizeMemory, TypeReduceReplicas,
			TypeSpotInstances, TypeScheduledScaling,
		}
	case v1.PolicyCPU:
		return []OptimizationType{TypeRightSizeCPU}
	case v1.PolicyMemory:
		return []OptimizationType{TypeRightSizeMemory}
	case v1.PolicyReplicas:
		return []OptimizationType{TypeReduceReplicas, TypeIncreaseReplicas}
	case v1.PolicySpotInstances:
		return []OptimizationType{TypeSpotInstances}
	case v1.PolicyScheduledScaling:
		return []OptimizationType{TypeScheduledScaling}
	default:
		return []OptimizationType{TypeRightSizeCPU, TypeRightSizeMemory}
	}
}

// MetricsSource resolves a target to its workload description and aggregated
// usage metrics. Not-found is reported as (nil, nil, nil).
type MetricsSource interface {
	WorkloadMetrics(ctx context.Context, target Target) (*models.Workload, *models.WorkloadMetrics, error)
}

// LocalSource runs the recommendation engine in process against a metrics
// source
type LocalSource struct {
	recommender *Recommender
	metrics     MetricsSource
}

// NewLocalSource creates an in-process recommendation source
func NewLocalSource(r *Recommender, metrics MetricsSource) *LocalSource {
	return &LocalSource{recommender: r, metrics: metrics}
}

// BestRecommendation analyzes the target and returns its top recommendation
func (s *LocalSource) BestRecommendation(ctx context.Context, target Target, opts Options) (*Recommendation, error) {
	workload, metrics, err := s.metrics.WorkloadMetrics(ctx, target)
	if err != nil {
		return nil, err
	}
	if workload == nil || metrics == nil {
		return nil, nil
	}
	return s.recommender.Best(ctx, workload, metrics, opts), nil
}

// RemoteSource fetches recommendations from the optimizer API. Transport
// failures and non-200 responses are treated as "no recommendation
// available", never as errors.
type RemoteSource struct {
	baseURL string
	client  *http.Client
}

// NewRemoteSource creates a source backed by the optimizer API
func NewRemoteSource(baseURL string, timeout time.Duration) *RemoteSource {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RemoteSource{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type optimizeRequest struct {
	MinConfidence     float64            `json:"min_confidence"`
	OptimizationTypes []OptimizationType `json:"optimization_types,omitempty"`
}

type optimizeResponse struct {
	Recommendations []*Recommendation `json:"recommendations"`
}

type workloadListResponse struct {
	Workloads []struct {
		ID        string `json:"id"`
		Namespace string `json:"namespace"`
		Name      string `json:"name"`
	} `json:"workloads"`
}

// BestRecommendation resolves the target's workload id and returns the
// highest-saving recommendation the optimizer API offers for it
func (s *RemoteSource) BestRecommendation(ctx context.Context, target Target, opts Options) (*Recommendation, error) {
	workloadID := s.resolveWorkloadID(ctx, target)

	payload, err := json.Marshal(optimizeRequest{
		MinConfidence:     opts.MinConfidence,
		OptimizationTypes: opts.Types,
	})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/optimize/%s", s.baseURL, workloadID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		klog.V(2).Infof("Optimizer API request for %s/%s failed: %v", target.Namespace, target.Name, err)
		return nil, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		klog.V(2).Infof("Optimizer API returned status %d for %s/%s", resp.StatusCode, target.Namespace, target.Name)
		return nil, nil
	}

	var result optimizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		klog.V(2).Infof("Optimizer API returned malformed payload for %s/%s: %v", target.Namespace, target.Name, err)
		return nil, nil
	}

	var best *Recommendation
	for _, rec := range result.Recommendations {
		if best == nil || rec.MonthlySavings > best.MonthlySavings {
			best = rec
		}
	}
	return best, nil
}

// resolveWorkloadID looks the target up in the optimizer API's workload
// listing, falling back to a synthetic id when the listing is unavailable
func (s *RemoteSource) resolveWorkloadID(ctx context.Context, target Target) string {
	fallback := fmt.Sprintf("mock-%s-%s", target.Namespace, target.Name)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/workloads", nil)
	if err != nil {
		return fallback
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fallback
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fallback
	}

	var listing workloadListResponse
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return fallback
	}

	for _, w := range listing.Workloads {
		if w.Namespace == target.Namespace && w.Name == target.Name {
			return w.ID
		}
	}
	return fallback
}
