package events

import (
	corev1 "k8s.io/api/core/v1"
	"k8s.io/client-go/tools/record"

	v1 "kubernetes-cost-optimizer/pkg/apis/optimization/v1"
)

const (
	ReasonAnalysisStarted          = "AnalysisStarted"
	ReasonRecommendationReady      = "RecommendationReady"
	ReasonNoOptimizationNeeded     = "NoOptimizationNeeded"
	ReasonOptimizationApplied      = "OptimizationApplied"
	ReasonOptimizationFailed       = "OptimizationFailed"
	ReasonOptimizationSkipped      = "OptimizationSkipped"
	ReasonDryRunSimulated          = "DryRunSimulated"
	ReasonMaintenanceWindowSkipped = "MaintenanceWindowSkipped"
	ReasonGuardrailViolation       = "GuardrailViolation"
	ReasonRollbackCompleted        = "RollbackCompleted"
	ReasonRollbackFailed           = "RollbackFailed"
)

// Recorder emits Kubernetes events against CostOptimization objects.
type Recorder struct {
	recorder record.EventRecorder
}

func NewRecorder(recorder record.EventRecorder) *Recorder {
	return &Recorder{recorder: recorder}
}

func (e *Recorder) Normal(opt *v1.CostOptimization, reason, message string) {
	if e.recorder != nil {
		e.recorder.Event(opt, corev1.EventTypeNormal, reason, message)
	}
}

func (e *Recorder) Warning(opt *v1.CostOptimization, reason, message string) {
	if e.recorder != nil {
		e.recorder.Event(opt, corev1.EventTypeWarning, reason, message)
	}
}
