// Package simulator generates synthetic usage streams for exercising
// the statistics engine and window store in tests. It is a fixture,
// not a service.
package simulator

import (
	"math"
	"math/rand"
	"time"

	"kubernetes-cost-optimizer/pkg/models"
)

// Patterns the simulator can shape a stream around.
const (
	PatternBusinessHours = "business_hours"
	PatternNightly       = "nightly"
	PatternHourly        = "hourly"
	PatternSporadic      = "sporadic"
	PatternWeekendLow    = "weekend_low"
	PatternSteady        = "steady"
)

// Simulator produces usage values shaped by time-of-day, weekday,
// workload pattern, random spikes and slow growth. All baseline
// memoization lives on the instance, so two simulators with the same
// seed generate identical streams.
type Simulator struct {
	rng        *rand.Rand
	baselines  map[string]float64
	growthRate float64
	epoch      time.Time
}

func New(seed int64) *Simulator {
	return &Simulator{
		rng:        rand.New(rand.NewSource(seed)),
		baselines:  make(map[string]float64),
		growthRate: 0.001,
		epoch:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// CPUUsage returns simulated CPU usage in cores at the given instant.
func (s *Simulator) CPUUsage(workload *models.Workload, pattern string, at time.Time) float64 {
	request := workload.Resources.CPURequest.AsApproximateFloat64()
	limit := workload.Resources.CPULimit.AsApproximateFloat64()
	if limit <= 0 {
		limit = request * 2
	}

	base := s.baseline(workload.Name+"_cpu", func() float64 {
		return request * s.uniform(0.4, 0.8)
	})

	factor := s.businessHoursFactor(at, 1.0) *
		s.weekendFactor(at, 1.0) *
		s.patternFactor(pattern, at, 1.0) *
		s.spikeFactor(0.02) *
		s.growthFactor(at, 1.0)

	usage := base * factor
	return math.Max(0.01, math.Min(usage, limit*0.95))
}

// MemoryUsage returns simulated memory usage in bytes. Memory reacts
// to the daily cycle less sharply than CPU does.
func (s *Simulator) MemoryUsage(workload *models.Workload, pattern string, at time.Time) int64 {
	request := workload.Resources.MemoryRequest.AsApproximateFloat64()
	limit := workload.Resources.MemoryLimit.AsApproximateFloat64()
	if limit <= 0 {
		limit = request * 2
	}

	base := s.baseline(workload.Name+"_memory", func() float64 {
		return request * s.uniform(0.6, 0.9)
	})

	factor := s.businessHoursFactor(at, 0.3) *
		s.weekendFactor(at, 0.2) *
		s.patternFactor(pattern, at, 0.2) *
		s.growthFactor(at, 0.5)

	usage := base * factor
	return int64(math.Max(request*0.2, math.Min(usage, limit*0.95)))
}

// HistoricalSamples generates a pod sample stream over [start, end] at
// a fixed interval, suitable for feeding a window store.
func (s *Simulator) HistoricalSamples(workload *models.Workload, pattern string, start, end time.Time, interval time.Duration) []models.PodSample {
	var samples []models.PodSample
	for at := start; !at.After(end); at = at.Add(interval) {
		samples = append(samples, models.PodSample{
			PodName:     workload.Name + "-0",
			Namespace:   workload.Namespace,
			Timestamp:   at,
			CPUMillis:   int64(s.CPUUsage(workload, pattern, at) * 1000),
			MemoryBytes: s.MemoryUsage(workload, pattern, at),
		})
	}
	return samples
}

func (s *Simulator) baseline(key string, compute func() float64) float64 {
	if v, ok := s.baselines[key]; ok {
		return v
	}
	v := compute()
	s.baselines[key] = v
	return v
}

func (s *Simulator) businessHoursFactor(at time.Time, intensity float64) float64 {
	hour := at.Hour()
	switch {
	case hour >= 9 && hour < 17:
		peakPosition := float64(hour-9) / 8
		return 1.0 + math.Sin(peakPosition*math.Pi)*0.5*intensity
	case (hour >= 7 && hour < 9) || (hour >= 17 && hour < 19):
		return 1.0 + 0.2*intensity
	case hour >= 19 && hour < 22:
		return 1.0 - 0.2*intensity
	default:
		return 1.0 - 0.4*intensity
	}
}

func (s *Simulator) weekendFactor(at time.Time, intensity float64) float64 {
	if wd := at.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return 1.0 - 0.3*intensity
	}
	return 1.0
}

func (s *Simulator) patternFactor(pattern string, at time.Time, intensity float64) float64 {
	hour := at.Hour()

	switch pattern {
	case PatternBusinessHours:
		if hour >= 9 && hour < 17 {
			return 1.0 + 0.4*intensity
		}
		return 1.0 - 0.3*intensity

	case PatternNightly:
		if hour < 6 {
			return 1.0 + 2.0*intensity
		}
		return 1.0 - 0.8*intensity

	case PatternHourly:
		if float64(at.Minute())/60 < 0.2 {
			return 1.0 + 0.5*intensity
		}
		return 1.0

	case PatternSporadic:
		if s.rng.Float64() < 0.1 {
			return s.uniform(0.2, 2.0)
		}
		return 1.0

	case PatternWeekendLow:
		if wd := at.Weekday(); wd == time.Saturday || wd == time.Sunday {
			return 1.0 - 0.5*intensity
		}
		return 1.0 + 0.2*intensity

	default:
		return 1.0
	}
}

func (s *Simulator) spikeFactor(probability float64) float64 {
	if s.rng.Float64() < probability {
		return s.uniform(1.5, 3.0)
	}
	return 1.0
}

func (s *Simulator) growthFactor(at time.Time, intensity float64) float64 {
	days := at.Sub(s.epoch).Hours() / 24
	return math.Min(1.0+days*s.growthRate*intensity, 1.5)
}

func (s *Simulator) uniform(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}
