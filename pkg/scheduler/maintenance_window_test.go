package scheduler

import (
	"testing"
	"time"

	v1 "kubernetes-cost-optimizer/pkg/apis/optimization/v1"
)

func TestNoWindowsAlwaysOpen(t *testing.T) {
	checker := NewMaintenanceWindowChecker()
	if !checker.IsInMaintenanceWindow(nil) {
		t.Error("empty window list must allow applying any time")
	}
	if next := checker.GetNextMaintenanceWindow(nil); next != nil {
		t.Errorf("next window = %v, want nil", next)
	}
}

func TestIsInWindowAt(t *testing.T) {
	checker := NewMaintenanceWindowChecker()
	// Daily window at 02:00 UTC for 2 hours.
	window := v1.MaintenanceWindow{
		Schedule: "0 2 * * *",
		Duration: "2h",
	}

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"inside window", time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC), true},
		{"just after start", time.Date(2026, 3, 10, 2, 1, 0, 0, time.UTC), true},
		{"before window", time.Date(2026, 3, 10, 1, 30, 0, 0, time.UTC), false},
		{"after window", time.Date(2026, 3, 10, 4, 30, 0, 0, time.UTC), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := checker.isInWindow(window, tt.at); got != tt.want {
				t.Errorf("isInWindow(%s) = %v, want %v", tt.at, got, tt.want)
			}
		})
	}
}

func TestIsInWindowTimezone(t *testing.T) {
	checker := NewMaintenanceWindowChecker()
	window := v1.MaintenanceWindow{
		Schedule: "0 2 * * *",
		Duration: "1h",
		Timezone: "America/New_York",
	}

	// 02:30 in New York is 07:30 UTC during EST.
	inside := time.Date(2026, 1, 15, 7, 30, 0, 0, time.UTC)
	if !checker.isInWindow(window, inside) {
		t.Error("expected 02:30 America/New_York to be inside the window")
	}

	outside := time.Date(2026, 1, 15, 2, 30, 0, 0, time.UTC)
	if checker.isInWindow(window, outside) {
		t.Error("expected 21:30 America/New_York to be outside the window")
	}
}

func TestIsInWindowBadSchedule(t *testing.T) {
	checker := NewMaintenanceWindowChecker()
	window := v1.MaintenanceWindow{Schedule: "not cron", Duration: "1h"}
	if checker.isInWindow(window, time.Now()) {
		t.Error("invalid schedule must never match")
	}
}

func TestValidateMaintenanceWindow(t *testing.T) {
	checker := NewMaintenanceWindowChecker()

	tests := []struct {
		name    string
		window  v1.MaintenanceWindow
		wantErr bool
	}{
		{"valid", v1.MaintenanceWindow{Schedule: "0 2 * * 6", Duration: "4h"}, false},
		{"valid with timezone", v1.MaintenanceWindow{Schedule: "0 2 * * *", Duration: "2h", Timezone: "Europe/Berlin"}, false},
		{"bad schedule", v1.MaintenanceWindow{Schedule: "every day", Duration: "2h"}, true},
		{"bad duration", v1.MaintenanceWindow{Schedule: "0 2 * * *", Duration: "two hours"}, true},
		{"bad timezone", v1.MaintenanceWindow{Schedule: "0 2 * * *", Duration: "2h", Timezone: "Mars/Olympus"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checker.ValidateMaintenanceWindow(tt.window)
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetNextWindowStart(t *testing.T) {
	checker := NewMaintenanceWindowChecker()
	windows := []v1.MaintenanceWindow{
		{Schedule: "0 2 * * *", Duration: "2h"},
	}
	next := checker.GetNextMaintenanceWindow(windows)
	if next == nil {
		t.Fatal("expected a next window")
	}
	if !next.After(time.Now().Add(-time.Minute)) {
		t.Errorf("next window %v is in the past", next)
	}
}
