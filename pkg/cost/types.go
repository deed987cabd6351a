package cost

import (
	"fmt"

	"k8s.io/apimachinery/pkg/api/resource"
)

// CostBreakdown splits a monthly estimate into its billing components
type CostBreakdown struct {
	Compute float64 `json:"compute"`
	Memory  float64 `json:"memory"`
	Storage float64 `json:"storage"`
	Network float64 `json:"network"`
	Total   float64 `json:"total"`
}

// CostEstimate projects the cost of one workload configuration across billing periods
type CostEstimate struct {
	Hourly    float64       `json:"hourly"`
	Daily     float64       `json:"daily"`
	Monthly   float64       `json:"monthly"`
	Yearly    float64       `json:"yearly"`
	Breakdown CostBreakdown `json:"breakdown"`
}

// Format returns a human-readable summary of the estimate
func (e CostEstimate) Format() string {
	return fmt.Sprintf("$%.4f/hour ($%.2f/day, $%.2f/month, $%.2f/year)",
		e.Hourly, e.Daily, e.Monthly, e.Yearly)
}

// Proposal overrides parts of a workload configuration when pricing an
// optimized state. Nil fields keep the current value.
type Proposal struct {
	CPURequest    *resource.Quantity
	MemoryRequest *resource.Quantity
	Replicas      *int32
}

// SpotComparison weighs spot pricing against on-demand for one workload
type SpotComparison struct {
	OnDemandMonthly    float64 `json:"on_demand_monthly"`
	SpotMonthly        float64 `json:"spot_monthly"`
	MonthlySavings     float64 `json:"monthly_savings"`
	SavingsPercentage  float64 `json:"savings_percentage"`
	DiscountPercentage float64 `json:"discount_percentage"`
	InterruptionRate   string  `json:"interruption_rate"`
}
