package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"k8s.io/klog/v2"

	v1 "kubernetes-cost-optimizer/pkg/apis/optimization/v1"
)

type MaintenanceWindowChecker struct {
	parser cron.Parser
}

func NewMaintenanceWindowChecker() *MaintenanceWindowChecker {
	return &MaintenanceWindowChecker{
		parser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
	}
}

// IsInMaintenanceWindow reports whether optimizations may be applied
// right now. No configured windows means apply any time.
func (m *MaintenanceWindowChecker) IsInMaintenanceWindow(windows []v1.MaintenanceWindow) bool {
	if len(windows) == 0 {
		return true
	}

	now := time.Now()
	for _, window := range windows {
		if m.isInWindow(window, now) {
			return true
		}
	}

	return false
}

// GetNextMaintenanceWindow returns the earliest upcoming window start,
// or nil when no windows are configured.
func (m *MaintenanceWindowChecker) GetNextMaintenanceWindow(windows []v1.MaintenanceWindow) *time.Time {
	if len(windows) == 0 {
		return nil
	}

	var nextWindow *time.Time
	now := time.Now()

	for _, window := range windows {
		next := m.getNextWindowStart(window, now)
		if next != nil && (nextWindow == nil || next.Before(*nextWindow)) {
			nextWindow = next
		}
	}

	return nextWindow
}

func (m *MaintenanceWindowChecker) isInWindow(window v1.MaintenanceWindow, now time.Time) bool {
	location, err := m.getLocation(window.Timezone)
	if err != nil {
		klog.Warningf("Invalid timezone %s, using UTC: %v", window.Timezone, err)
		location = time.UTC
	}

	nowInTz := now.In(location)

	schedule, err := m.parser.Parse(window.Schedule)
	if err != nil {
		klog.Warningf("Invalid cron schedule %s: %v", window.Schedule, err)
		return false
	}

	duration, err := time.ParseDuration(window.Duration)
	if err != nil {
		klog.Warningf("Invalid duration %s: %v", window.Duration, err)
		return false
	}

	lastStart := schedule.Next(nowInTz.Add(-duration - time.Minute))
	for lastStart.Before(nowInTz) {
		windowEnd := lastStart.Add(duration)
		if nowInTz.After(lastStart) && nowInTz.Before(windowEnd) {
			klog.V(4).Infof("Currently in maintenance window: %s - %s", lastStart.Format(time.RFC3339), windowEnd.Format(time.RFC3339))
			return true
		}
		lastStart = schedule.Next(lastStart)
	}

	return false
}

func (m *MaintenanceWindowChecker) getNextWindowStart(window v1.MaintenanceWindow, now time.Time) *time.Time {
	location, err := m.getLocation(window.Timezone)
	if err != nil {
		klog.Warningf("Invalid timezone %s, using UTC: %v", window.Timezone, err)
		location = time.UTC
	}

	nowInTz := now.In(location)

	schedule, err := m.parser.Parse(window.Schedule)
	if err != nil {
		klog.Warningf("Invalid cron schedule %s: %v", window.Schedule, err)
		return nil
	}

	next := schedule.Next(nowInTz)
	return &next
}

func (m *MaintenanceWindowChecker) getLocation(timezone string) (*time.Location, error) {
	if timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(timezone)
}

// ValidateMaintenanceWindow checks the window's schedule, duration and
// timezone without evaluating it.
func (m *MaintenanceWindowChecker) ValidateMaintenanceWindow(window v1.MaintenanceWindow) error {
	if _, err := m.parser.Parse(window.Schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %s: %v", window.Schedule, err)
	}

	if _, err := time.ParseDuration(window.Duration); err != nil {
		return fmt.Errorf("invalid duration %s: %v", window.Duration, err)
	}

	if window.Timezone != "" {
		if _, err := time.LoadLocation(window.Timezone); err != nil {
			return fmt.Errorf("invalid timezone %s: %v", window.Timezone, err)
		}
	}

	return nil
}
