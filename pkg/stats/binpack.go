package stats

import (
	"sort"

	"kubernetes-cost-optimizer/pkg/models"
)

// Default node envelope used when callers pass an empty capacity
const (
	defaultNodeCPUCores    = 8.0
	defaultNodeMemoryBytes = 32 * 1024 * 1024 * 1024
)

// BinPackItem is one schedulable unit for consolidation planning
type BinPackItem struct {
	Name          string  `json:"name"`
	CPURequest    float64 `json:"cpu_request"`    // cores
	MemoryRequest float64 `json:"memory_request"` // bytes
}

// NodeCapacity describes the allocatable envelope of a single node
type NodeCapacity struct {
	CPU    float64 // cores
	Memory float64 // bytes
}

// BinPackNode is a planned node together with the workloads packed onto it
type BinPackNode struct {
	CPUUsed        float64       `json:"cpu_used"`
	MemoryUsed     float64       `json:"memory_used"`
	CPUCapacity    float64       `json:"cpu_capacity"`
	MemoryCapacity float64       `json:"memory_capacity"`
	Workloads      []BinPackItem `json:"workloads"`
}

// BinPackResult reports the outcome of a consolidation plan
type BinPackResult struct {
	RequiredNodes          int           `json:"required_nodes"`
	TotalCPUUtilization    float64       `json:"total_cpu_utilization"`
	TotalMemoryUtilization float64       `json:"total_memory_utilization"`
	Nodes                  []BinPackNode `json:"nodes"`
	SavingsPotential       int           `json:"savings_potential"`
}

// BinPack plans node placement with a decreasing-size pass: items are sorted
// by combined footprint and appended to the open node while both dimensions
// stay at or under 85% of capacity, otherwise a fresh node is opened seeded
// with the item. SavingsPotential is the item count minus the node count,
// floored at zero.
func (e *Engine) BinPack(items []BinPackItem, capacity NodeCapacity) BinPackResult {
	if capacity.CPU <= 0 {
		capacity.CPU = defaultNodeCPUCores
	}
	if capacity.Memory <= 0 {
		capacity.Memory = defaultNodeMemoryBytes
	}

	sorted := make([]BinPackItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CPURequest+sorted[i].MemoryRequest > sorted[j].CPURequest+sorted[j].MemoryRequest
	})

	var nodes []BinPackNode
	current := BinPackNode{CPUCapacity: capacity.CPU, MemoryCapacity: capacity.Memory}

	for _, item := range sorted {
		if current.CPUUsed+item.CPURequest <= capacity.CPU*0.85 &&
			current.MemoryUsed+item.MemoryRequest <= capacity.Memory*0.85 {
			current.CPUUsed += item.CPURequest
			current.MemoryUsed += item.MemoryRequest
			current.Workloads = append(current.Workloads, item)
			continue
		}
		if len(current.Workloads) > 0 {
			nodes = append(nodes, current)
		}
		current = BinPackNode{
			CPUUsed:        item.CPURequest,
			MemoryUsed:     item.MemoryRequest,
			CPUCapacity:    capacity.CPU,
			MemoryCapacity: capacity.Memory,
			Workloads:      []BinPackItem{item},
		}
	}
	if len(current.Workloads) > 0 {
		nodes = append(nodes, current)
	}

	result := BinPackResult{
		RequiredNodes:    len(nodes),
		Nodes:            nodes,
		SavingsPotential: max(0, len(items)-len(nodes)),
	}

	if len(nodes) > 0 {
		var cpuUsed, cpuCapacity, memUsed, memCapacity float64
		for _, n := range nodes {
			cpuUsed += n.CPUUsed
			cpuCapacity += n.CPUCapacity
			memUsed += n.MemoryUsed
			memCapacity += n.MemoryCapacity
		}
		result.TotalCPUUtilization = cpuUsed / cpuCapacity * 100
		result.TotalMemoryUtilization = memUsed / memCapacity * 100
	}

	return result
}

// BinPackWorkloads packs workloads by their declared requests
func (e *Engine) BinPackWorkloads(workloads []*models.Workload, capacity NodeCapacity) BinPackResult {
	items := make([]BinPackItem, 0, len(workloads))
	for _, w := range workloads {
		items = append(items, BinPackItem{
			Name:          w.Namespace + "/" + w.Name,
			CPURequest:    cpuCores(w.Resources.CPURequest),
			MemoryRequest: memoryBytes(w.Resources.MemoryRequest),
		})
	}
	return e.BinPack(items, capacity)
}
