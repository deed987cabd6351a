package storage

import (
	"encoding/json"
	"math"
	"os"
	"sort"
	"sync"
	"time"

	"kubernetes-cost-optimizer/pkg/models"
)

// WindowStore holds recent pod usage samples per workload, bounded by
// both age and count. It backs the statistics engine with the raw data
// aggregation works on.
type WindowStore struct {
	mu         sync.RWMutex
	window     time.Duration
	maxSamples int
	samples    map[string][]models.PodSample // key: namespace/workload
}

func NewWindowStore(window time.Duration, maxSamples int) *WindowStore {
	return &WindowStore{
		window:     window,
		maxSamples: maxSamples,
		samples:    make(map[string][]models.PodSample),
	}
}

// Add appends a sample and prunes anything older than the window.
func (s *WindowStore) Add(key string, sample models.PodSample) {
	s.mu.Lock()
	defer s.mu.Unlock()

	samples := append(s.samples[key], sample)
	cutoff := time.Now().Add(-s.window)

	kept := samples[:0]
	for _, sm := range samples {
		if sm.Timestamp.After(cutoff) {
			kept = append(kept, sm)
		}
	}
	if len(kept) > s.maxSamples {
		kept = kept[len(kept)-s.maxSamples:]
	}
	s.samples[key] = kept
}

// Samples returns a copy of the stored samples for a workload.
func (s *WindowStore) Samples(key string) []models.PodSample {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.PodSample, len(s.samples[key]))
	copy(out, s.samples[key])
	return out
}

// Aggregate reduces a workload's sample window to the statistics the
// recommendation engine consumes. Returns nil when no samples exist.
func (s *WindowStore) Aggregate(key string, workload *models.Workload) *models.WorkloadMetrics {
	samples := s.Samples(key)
	if len(samples) == 0 {
		return nil
	}

	cpu := make([]float64, 0, len(samples))
	mem := make([]float64, 0, len(samples))
	oldest := samples[0].Timestamp
	newest := samples[0].Timestamp
	for _, sm := range samples {
		cpu = append(cpu, float64(sm.CPUMillis)/1000.0)
		mem = append(mem, float64(sm.MemoryBytes))
		if sm.Timestamp.Before(oldest) {
			oldest = sm.Timestamp
		}
		if sm.Timestamp.After(newest) {
			newest = sm.Timestamp
		}
	}

	metrics := &models.WorkloadMetrics{
		WorkloadID:     key,
		CPUUsage:       summarize(cpu),
		MemoryUsage:    summarize(mem),
		SampleCount:    len(samples),
		TimeRangeHours: int(math.Ceil(newest.Sub(oldest).Hours())),
	}

	cpuRequest := workload.Resources.CPURequest.AsApproximateFloat64()
	if cpuRequest > 0 {
		metrics.CPUUtilizationPct = metrics.CPUUsage.Avg / cpuRequest * 100
	}
	memRequest := workload.Resources.MemoryRequest.AsApproximateFloat64()
	if memRequest > 0 {
		metrics.MemoryUtilizationPct = metrics.MemoryUsage.Avg / memRequest * 100
	}
	return metrics
}

func summarize(values []float64) models.MetricStats {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}

	return models.MetricStats{
		Avg: sum / float64(len(sorted)),
		P50: percentile(sorted, 50),
		P95: percentile(sorted, 95),
		P99: percentile(sorted, 99),
		Max: sorted[len(sorted)-1],
		Min: sorted[0],
	}
}

// percentile interpolates linearly between the two nearest ranks.
// Input must be sorted ascending.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}
	frac := rank - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// SaveToFile writes the sample map to a JSON file
func (s *WindowStore) SaveToFile(filename string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := json.MarshalIndent(s.samples, "", " ")
	if err != nil {
		return err
	}

	return os.WriteFile(filename, data, 0644)
}

// LoadFromFile reads a JSON file and restores the sample map
func (s *WindowStore) LoadFromFile(filename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, &s.samples)
}
