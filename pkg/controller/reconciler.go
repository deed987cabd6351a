package controller

import (
	"context"
	"fmt"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/klog/v2"

	v1 "kubernetes-cost-optimizer/pkg/apis/optimization/v1"
	"kubernetes-cost-optimizer/pkg/events"
	"kubernetes-cost-optimizer/pkg/history"
	"kubernetes-cost-optimizer/pkg/metrics"
	"kubernetes-cost-optimizer/pkg/recommender"
	"kubernetes-cost-optimizer/pkg/rollback"
	"kubernetes-cost-optimizer/pkg/scheduler"
)

const (
	FinalizerName = "optimization.k8s.io/finalizer"

	defaultTick          = 1800 * time.Second
	defaultMinConfidence = 0.7
	defaultMaxRisk       = v1.RiskMedium
)

// Updater is the subset of the CostOptimization client the reconciler
// needs for finalizer updates. Status updates go through the controller.
type Updater interface {
	Update(ctx context.Context, opt *v1.CostOptimization, opts metav1.UpdateOptions) (*v1.CostOptimization, error)
}

type ReconcileResult struct {
	RequeueAfter time.Duration
	Updated      bool
}

// Reconciler drives one CostOptimization through its lifecycle:
// Pending -> Analyzing -> Ready/Applied/Failed, with finalizer-based
// rollback on deletion.
type Reconciler struct {
	kubeClient kubernetes.Interface
	optClient  Updater
	source     recommender.Source
	windows    *scheduler.MaintenanceWindowChecker
	rollback   *rollback.Executor
	recorder   *events.Recorder
	exporter   *metrics.Exporter
	ledger     *history.Ledger
	tick       time.Duration
}

func NewReconciler(
	kubeClient kubernetes.Interface,
	optClient Updater,
	source recommender.Source,
	rollbackExec *rollback.Executor,
	recorder *events.Recorder,
	exporter *metrics.Exporter,
) *Reconciler {
	return &Reconciler{
		kubeClient: kubeClient,
		optClient:  optClient,
		source:     source,
		windows:    scheduler.NewMaintenanceWindowChecker(),
		rollback:   rollbackExec,
		recorder:   recorder,
		exporter:   exporter,
		tick:       defaultTick,
	}
}

// WithLedger attaches the optional savings ledger.
func (r *Reconciler) WithLedger(ledger *history.Ledger) *Reconciler {
	r.ledger = ledger
	return r
}

// WithTick overrides the periodic re-analysis interval.
func (r *Reconciler) WithTick(tick time.Duration) *Reconciler {
	r.tick = tick
	return r
}

func (r *Reconciler) Reconcile(ctx context.Context, opt *v1.CostOptimization) (*ReconcileResult, error) {
	result := &ReconcileResult{}

	if opt.DeletionTimestamp != nil {
		return result, r.reconcileDelete(ctx, opt)
	}

	if !hasFinalizer(opt) {
		opt.Finalizers = append(opt.Finalizers, FinalizerName)
		updated, err := r.optClient.Update(ctx, opt, metav1.UpdateOptions{})
		if err != nil {
			return result, fmt.Errorf("adding finalizer: %v", err)
		}
		updated.Status = opt.Status
		*opt = *updated
	}

	switch opt.Status.Phase {
	case "", v1.PhasePending:
		target := opt.Spec.TargetWorkload
		r.setPhase(opt, v1.PhaseAnalyzing,
			fmt.Sprintf("Analyzing %s/%s for %s optimization", target.Kind, target.Name, opt.Spec.OptimizationType))
		now := metav1.Now()
		opt.Status.LastAnalysis = &now
		r.recorder.Normal(opt, events.ReasonAnalysisStarted,
			fmt.Sprintf("Started analyzing %s/%s", target.Kind, target.Name))
		r.exporter.OptimizationsCreated.Inc()
		result.Updated = true
		result.RequeueAfter = 5 * time.Second
		return result, nil
	}

	return r.reconcileAnalysis(ctx, opt)
}

// reconcileAnalysis is the periodic cycle: fetch the best
// recommendation, record it in status, and apply when every gate holds.
func (r *Reconciler) reconcileAnalysis(ctx context.Context, opt *v1.CostOptimization) (*ReconcileResult, error) {
	result := &ReconcileResult{Updated: true, RequeueAfter: r.tick}
	started := time.Now()

	target := recommender.Target{
		Namespace: opt.Namespace,
		Name:      opt.Spec.TargetWorkload.Name,
		Kind:      string(opt.Spec.TargetWorkload.Kind),
	}
	opts := recommender.Options{
		MinConfidence: minConfidence(opt),
		Types:         recommender.TypesForPolicy(opt.Spec.OptimizationType),
	}

	rec, err := r.source.BestRecommendation(ctx, target, opts)

	now := metav1.Now()
	opt.Status.LastAnalysis = &now
	opt.Status.ObservedGeneration = opt.Generation

	if err != nil {
		klog.Warningf("Analysis of %s/%s failed: %v", opt.Namespace, opt.Name, err)
		r.setPhase(opt, v1.PhaseFailed, fmt.Sprintf("Error: %v", err))
		r.exporter.OptimizationsFailed.WithLabelValues("analysis_error").Inc()
		r.recorder.Warning(opt, events.ReasonOptimizationFailed, err.Error())
		return result, nil
	}

	if rec == nil {
		klog.V(2).Infof("No optimization found for %s/%s", target.Kind, target.Name)
		r.setPhase(opt, v1.PhaseReady, "No optimization opportunities found")
		opt.Status.CurrentRecommendation = nil
		r.recorder.Normal(opt, events.ReasonNoOptimizationNeeded, "No optimization opportunities found")
		return result, nil
	}

	klog.Infof("Found optimization for %s/%s: $%.2f/month savings",
		target.Kind, target.Name, rec.MonthlySavings)
	opt.Status.CurrentRecommendation = summarize(rec)
	r.recorder.Normal(opt, events.ReasonRecommendationReady,
		fmt.Sprintf("Recommendation ready: $%.2f/month potential savings", rec.MonthlySavings))

	if !opt.Spec.AutoApply || opt.Spec.DryRun {
		if opt.Spec.DryRun {
			r.setPhase(opt, v1.PhaseReady,
				fmt.Sprintf("Dry-run mode: Would save $%.2f/month", rec.MonthlySavings))
			r.recorder.Normal(opt, events.ReasonDryRunSimulated,
				fmt.Sprintf("Dry-run: would apply %s for $%.2f/month", rec.Type, rec.MonthlySavings))
		} else {
			r.setPhase(opt, v1.PhaseReady, "Auto-apply disabled")
		}
		return result, nil
	}

	if rec.ConfidenceScore < minConfidence(opt) || !riskAllowed(opt, rec) {
		klog.V(2).Infof("Skipping auto-apply for %s/%s: confidence=%.2f, risk=%s",
			opt.Namespace, opt.Name, rec.ConfidenceScore, rec.Risk.Level)
		r.setPhase(opt, v1.PhaseReady,
			fmt.Sprintf("Optimization found but not applied: confidence=%.2f, risk=%s",
				rec.ConfidenceScore, rec.Risk.Level))
		r.recorder.Normal(opt, events.ReasonOptimizationSkipped,
			fmt.Sprintf("Not applied: confidence=%.2f, risk=%s", rec.ConfidenceScore, rec.Risk.Level))
		return result, nil
	}

	if !r.windows.IsInMaintenanceWindow(opt.Spec.MaintenanceWindows) {
		r.setPhase(opt, v1.PhaseReady, "Waiting for maintenance window")
		r.recorder.Normal(opt, events.ReasonMaintenanceWindowSkipped,
			"Optimization deferred until the next maintenance window")
		if next := r.windows.GetNextMaintenanceWindow(opt.Spec.MaintenanceWindows); next != nil {
			if until := time.Until(*next); until > 0 && until < result.RequeueAfter {
				result.RequeueAfter = until
			}
		}
		return result, nil
	}

	r.applyRecommendation(ctx, opt, rec, started)
	return result, nil
}

// reconcileDelete runs the finalizer: roll back an applied optimization
// unless rollbackOnFailure was disabled, then release the object.
// Rollback errors are logged but never block deletion.
func (r *Reconciler) reconcileDelete(ctx context.Context, opt *v1.CostOptimization) error {
	if !hasFinalizer(opt) {
		return nil
	}

	if opt.Status.Phase == v1.PhaseApplied && rollbackOnFailure(opt) {
		target := opt.Spec.TargetWorkload
		klog.Infof("Executing rollback for %s/%s before deletion", opt.Namespace, opt.Name)

		validated, err := r.rollback.Execute(ctx, opt.Namespace, string(target.Kind), target.Name)
		switch {
		case err != nil:
			klog.Errorf("Rollback of %s/%s failed: %v", opt.Namespace, opt.Name, err)
			r.recorder.Warning(opt, events.ReasonRollbackFailed, err.Error())
			r.exporter.OptimizationsFailed.WithLabelValues("rollback_error").Inc()
		case !validated:
			klog.Warningf("Rollback of %s/%s applied but did not validate", opt.Namespace, opt.Name)
			r.recorder.Warning(opt, events.ReasonRollbackFailed, "Rollback applied but validation found drift")
			r.exporter.Rollbacks.Inc()
		default:
			r.recorder.Normal(opt, events.ReasonRollbackCompleted,
				fmt.Sprintf("Rolled back %s/%s", target.Kind, target.Name))
			r.exporter.Rollbacks.Inc()
			r.exporter.TotalMonthlySavings.Sub(recommendationSavings(opt))
			r.recordRollback(ctx, opt)
		}
	}

	opt.Finalizers = removeFinalizer(opt.Finalizers)
	if _, err := r.optClient.Update(ctx, opt, metav1.UpdateOptions{}); err != nil {
		return fmt.Errorf("removing finalizer: %v", err)
	}
	return nil
}

func (r *Reconciler) setPhase(opt *v1.CostOptimization, phase v1.OptimizationPhase, message string) {
	opt.Status.Phase = phase
	opt.Status.Message = message
	klog.V(4).Infof("CostOptimization %s/%s phase %s: %s", opt.Namespace, opt.Name, phase, message)
}

func (r *Reconciler) recordApplied(ctx context.Context, opt *v1.CostOptimization, rec *recommender.Recommendation) {
	if r.ledger == nil {
		return
	}
	err := r.ledger.RecordApplied(ctx, &history.Record{
		Namespace:        opt.Namespace,
		WorkloadName:     opt.Spec.TargetWorkload.Name,
		WorkloadKind:     string(opt.Spec.TargetWorkload.Kind),
		OptimizationType: string(rec.Type),
		MonthlySavings:   rec.MonthlySavings,
		ConfidenceScore:  rec.ConfidenceScore,
		RiskLevel:        string(rec.Risk.Level),
	})
	if err != nil {
		klog.Warningf("Failed to record applied optimization in ledger: %v", err)
	}
}

func (r *Reconciler) recordRollback(ctx context.Context, opt *v1.CostOptimization) {
	if r.ledger == nil {
		return
	}
	target := opt.Spec.TargetWorkload
	if err := r.ledger.RecordRollback(ctx, opt.Namespace, string(target.Kind), target.Name); err != nil {
		klog.Warningf("Failed to record rollback in ledger: %v", err)
	}
}

func summarize(rec *recommender.Recommendation) *v1.RecommendationSummary {
	return &v1.RecommendationSummary{
		OptimizationType:     string(rec.Type),
		CurrentMonthlyCost:   rec.CurrentCost.Monthly,
		OptimizedMonthlyCost: rec.OptimizedCost.Monthly,
		MonthlySavings:       rec.MonthlySavings,
		ConfidenceScore:      rec.ConfidenceScore,
		RiskLevel:            string(rec.Risk.Level),
		Changes:              rec.Changes(),
	}
}

func minConfidence(opt *v1.CostOptimization) float64 {
	if opt.Spec.MinConfidence > 0 {
		return opt.Spec.MinConfidence
	}
	return defaultMinConfidence
}

// riskAllowed compares the recommendation's assessed risk against the
// declaration's cap by ordinal severity, so the recommender's lowercase
// levels and the CRD's uppercase levels compare correctly.
func riskAllowed(opt *v1.CostOptimization, rec *recommender.Recommendation) bool {
	maxRisk := opt.Spec.MaxRiskLevel
	if maxRisk == "" {
		maxRisk = defaultMaxRisk
	}
	return rec.Risk.Level.Severity() <= maxRisk.Severity()
}

func rollbackOnFailure(opt *v1.CostOptimization) bool {
	if opt.Spec.RollbackOnFailure == nil {
		return true
	}
	return *opt.Spec.RollbackOnFailure
}

func recommendationSavings(opt *v1.CostOptimization) float64 {
	if opt.Status.CurrentRecommendation == nil {
		return 0
	}
	return opt.Status.CurrentRecommendation.MonthlySavings
}

func hasFinalizer(opt *v1.CostOptimization) bool {
	for _, f := range opt.Finalizers {
		if f == FinalizerName {
			return true
		}
	}
	return false
}

func removeFinalizer(finalizers []string) []string {
	out := finalizers[:0]
	for _, f := range finalizers {
		if f != FinalizerName {
			out = append(out, f)
		}
	}
	return out
}
