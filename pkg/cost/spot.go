package cost

import (
	"context"
	"encoding/json"
	"net/http"

	"k8s.io/klog/v2"

	"kubernetes-cost-optimizer/pkg/models"
)

type spotPrice struct {
	InstanceType       string  `json:"instance_type"`
	Region             string  `json:"region"`
	AvailabilityZone   string  `json:"availability_zone"`
	SpotPrice          float64 `json:"spot_price"`
	OnDemandPrice      float64 `json:"on_demand_price"`
	DiscountPercentage float64 `json:"discount_percentage"`
	InterruptionRate   string  `json:"interruption_rate"`
}

type spotPriceList struct {
	Provider string      `json:"provider"`
	Prices   []spotPrice `json:"prices"`
}

// SpotVsOnDemand compares spot and on-demand pricing for the workload's
// inferred instance type. A failed lookup, and a feed without a matching
// instance type, both yield the zero comparison with an unknown interruption
// rate.
func (m *Model) SpotVsOnDemand(ctx context.Context, workload *models.Workload) SpotComparison {
	cpuCores := quantityCores(workload.Resources.CPURequest)
	memoryGB := quantityGB(workload.Resources.MemoryRequest)
	instanceType := InferInstanceType(cpuCores, memoryGB, workload.Provider)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.pricingURL(workload.Provider)+"/spot-prices", nil)
	if err != nil {
		return unknownSpotComparison()
	}

	resp, err := m.client.Do(req)
	if err != nil {
		klog.V(2).Infof("Spot price lookup for %s/%s failed: %v", workload.Namespace, workload.Name, err)
		return unknownSpotComparison()
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return unknownSpotComparison()
	}

	var feed spotPriceList
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return unknownSpotComparison()
	}

	for _, price := range feed.Prices {
		if price.InstanceType != instanceType {
			continue
		}

		onDemandMonthly := price.OnDemandPrice * hoursPerMonth * float64(workload.Replicas)
		spotMonthly := price.SpotPrice * hoursPerMonth * float64(workload.Replicas)
		savings := onDemandMonthly - spotMonthly

		comparison := SpotComparison{
			OnDemandMonthly:    onDemandMonthly,
			SpotMonthly:        spotMonthly,
			MonthlySavings:     savings,
			DiscountPercentage: price.DiscountPercentage,
			InterruptionRate:   price.InterruptionRate,
		}
		if onDemandMonthly > 0 {
			comparison.SavingsPercentage = savings / onDemandMonthly * 100
		}
		if comparison.InterruptionRate == "" {
			comparison.InterruptionRate = "unknown"
		}
		return comparison
	}

	return unknownSpotComparison()
}

func unknownSpotComparison() SpotComparison {
	return SpotComparison{InterruptionRate: "unknown"}
}
