package cost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"k8s.io/apimachinery/pkg/api/resource"
	"k8s.io/klog/v2"

	"kubernetes-cost-optimizer/pkg/models"
)

// Local linear fallback rates, USD per hour
const (
	fallbackCPUPerCoreHour  = 0.04
	fallbackMemoryPerGBHour = 0.005
)

// Billing assumptions shared with the pricing services
const (
	hoursPerMonth    = 730
	defaultStorageGB = 10
	defaultNetworkGB = 50
	defaultRegion    = "us-east-1"
)

type pricingRequest struct {
	InstanceType string  `json:"instance_type"`
	CPUCores     float64 `json:"cpu_cores"`
	MemoryGB     float64 `json:"memory_gb"`
	StorageGB    float64 `json:"storage_gb"`
	NetworkGB    float64 `json:"network_gb"`
	Hours        float64 `json:"hours"`
	Region       string  `json:"region"`
}

type pricingResponse struct {
	Provider     string        `json:"provider"`
	InstanceType string        `json:"instance_type"`
	Region       string        `json:"region"`
	HourlyCost   float64       `json:"hourly_cost"`
	MonthlyCost  float64       `json:"monthly_cost"`
	YearlyCost   float64       `json:"yearly_cost"`
	Breakdown    CostBreakdown `json:"breakdown"`
}

// Model prices workload configurations against per-provider pricing services.
// Lookups that fail for any reason fall back to a local linear model, so every
// estimate returns a usable result.
type Model struct {
	awsPricingURL   string
	gcpPricingURL   string
	azurePricingURL string

	client *http.Client
	cache  *priceCache
}

// Config carries the pricing service endpoints and client tuning
type Config struct {
	AWSPricingURL   string
	GCPPricingURL   string
	AzurePricingURL string
	Timeout         time.Duration
	CacheTTL        time.Duration
}

// NewModel creates a cost model. Empty config fields fall back to the
// in-cluster pricing service names.
func NewModel(cfg Config) *Model {
	if cfg.AWSPricingURL == "" {
		cfg.AWSPricingURL = "http://aws-pricing-api:8000"
	}
	if cfg.GCPPricingURL == "" {
		cfg.GCPPricingURL = "http://gcp-pricing-api:8000"
	}
	if cfg.AzurePricingURL == "" {
		cfg.AzurePricingURL = "http://azure-pricing-api:8000"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}
	return &Model{
		awsPricingURL:   cfg.AWSPricingURL,
		gcpPricingURL:   cfg.GCPPricingURL,
		azurePricingURL: cfg.AzurePricingURL,
		client:          &http.Client{Timeout: cfg.Timeout},
		cache:           newPriceCache(cfg.CacheTTL),
	}
}

// Estimate prices the workload as currently configured
func (m *Model) Estimate(ctx context.Context, workload *models.Workload) CostEstimate {
	return m.estimate(ctx, workload, "")
}

// EstimateInstance prices the workload against an explicit instance type
func (m *Model) EstimateInstance(ctx context.Context, workload *models.Workload, instanceType string) CostEstimate {
	return m.estimate(ctx, workload, instanceType)
}

func (m *Model) estimate(ctx context.Context, workload *models.Workload, instanceType string) CostEstimate {
	cpuCores := quantityCores(workload.Resources.CPURequest)
	memoryGB := quantityGB(workload.Resources.MemoryRequest)

	if instanceType == "" {
		instanceType = InferInstanceType(cpuCores, memoryGB, workload.Provider)
	}

	pricing, err := m.fetchPricing(ctx, workload.Provider, instanceType, cpuCores, memoryGB)
	if err != nil {
		klog.V(2).Infof("Pricing lookup for %s/%s (%s) failed: %v, using fallback model",
			workload.Namespace, workload.Name, instanceType, err)
		return fallbackEstimate(cpuCores, memoryGB, workload.Replicas)
	}

	return scaleEstimate(pricing, workload.Replicas)
}

// EstimateOptimized prices the workload under a proposed configuration
func (m *Model) EstimateOptimized(ctx context.Context, workload *models.Workload, proposal Proposal) CostEstimate {
	cpuCores := quantityCores(workload.Resources.CPURequest)
	if proposal.CPURequest != nil {
		cpuCores = quantityCores(*proposal.CPURequest)
	}
	memoryGB := quantityGB(workload.Resources.MemoryRequest)
	if proposal.MemoryRequest != nil {
		memoryGB = quantityGB(*proposal.MemoryRequest)
	}
	replicas := workload.Replicas
	if proposal.Replicas != nil {
		replicas = *proposal.Replicas
	}

	instanceType := InferInstanceType(cpuCores, memoryGB, workload.Provider)

	pricing, err := m.fetchPricing(ctx, workload.Provider, instanceType, cpuCores, memoryGB)
	if err != nil {
		klog.V(2).Infof("Optimized pricing lookup for %s/%s (%s) failed: %v, using fallback model",
			workload.Namespace, workload.Name, instanceType, err)
		return fallbackEstimate(cpuCores, memoryGB, replicas)
	}

	return scaleEstimate(pricing, replicas)
}

// CompareProviders prices the same workload on aws, gcp and azure
func (m *Model) CompareProviders(ctx context.Context, workload *models.Workload) map[string]CostEstimate {
	results := make(map[string]CostEstimate, 3)
	for _, provider := range []string{"aws", "gcp", "azure"} {
		w := *workload
		w.Provider = provider
		results[provider] = m.Estimate(ctx, &w)
	}
	return results
}

func (m *Model) fetchPricing(ctx context.Context, provider, instanceType string, cpuCores, memoryGB float64) (*pricingResponse, error) {
	cacheKey := fmt.Sprintf("%s-%s-%.3f-%.3f", strings.ToLower(provider), instanceType, cpuCores, memoryGB)
	if cached := m.cache.get(cacheKey); cached != nil {
		return cached, nil
	}

	payload, err := json.Marshal(pricingRequest{
		InstanceType: instanceType,
		CPUCores:     cpuCores,
		MemoryGB:     memoryGB,
		StorageGB:    defaultStorageGB,
		NetworkGB:    defaultNetworkGB,
		Hours:        hoursPerMonth,
		Region:       defaultRegion,
	})
	if err != nil {
		return nil, err
	}

	url := m.pricingURL(provider) + "/pricing"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pricing service returned status %d", resp.StatusCode)
	}

	var pricing pricingResponse
	if err := json.NewDecoder(resp.Body).Decode(&pricing); err != nil {
		return nil, err
	}

	m.cache.set(cacheKey, &pricing)
	return &pricing, nil
}

// pricingURL maps a provider to its pricing service, defaulting to aws
func (m *Model) pricingURL(provider string) string {
	switch strings.ToLower(provider) {
	case "gcp":
		return m.gcpPricingURL
	case "azure":
		return m.azurePricingURL
	default:
		return m.awsPricingURL
	}
}

// scaleEstimate expands a per-instance pricing response to all replicas. The
// breakdown stays per instance, as reported by the pricing service.
func scaleEstimate(pricing *pricingResponse, replicas int32) CostEstimate {
	monthly := pricing.MonthlyCost * float64(replicas)
	return CostEstimate{
		Hourly:    pricing.HourlyCost * float64(replicas),
		Daily:     monthly / 30,
		Monthly:   monthly,
		Yearly:    monthly * 12,
		Breakdown: pricing.Breakdown,
	}
}

// fallbackEstimate prices linearly at fixed per-core and per-GB rates with a
// 70/20/5/5 compute/memory/storage/network split
func fallbackEstimate(cpuCores, memoryGB float64, replicas int32) CostEstimate {
	hourly := (cpuCores*fallbackCPUPerCoreHour + memoryGB*fallbackMemoryPerGBHour) * float64(replicas)
	monthly := hourly * hoursPerMonth
	return CostEstimate{
		Hourly:  hourly,
		Daily:   monthly / 30,
		Monthly: monthly,
		Yearly:  monthly * 12,
		Breakdown: CostBreakdown{
			Compute: monthly * 0.7,
			Memory:  monthly * 0.2,
			Storage: monthly * 0.05,
			Network: monthly * 0.05,
			Total:   monthly,
		},
	}
}

// quantityCores converts a cpu quantity to cores
func quantityCores(q resource.Quantity) float64 {
	return float64(q.MilliValue()) / 1000.0
}

// quantityGB converts a memory quantity to 1024-based gigabytes
func quantityGB(q resource.Quantity) float64 {
	return float64(q.Value()) / (1024 * 1024 * 1024)
}
