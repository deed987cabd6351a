package v1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// +genclient
// +k8s:deepcopy-gen:interfaces=k8s.io/apimachinery/pkg/runtime.Object
// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:shortName=costopt;co
// +kubebuilder:printcolumn:name="Workload",type=string,JSONPath=`.spec.targetWorkload.name`
// +kubebuilder:printcolumn:name="Type",type=string,JSONPath=`.spec.optimizationType`
// +kubebuilder:printcolumn:name="Phase",type=string,JSONPath=`.status.phase`
// +kubebuilder:printcolumn:name="Savings",type=number,JSONPath=`.status.totalSavings`
// +kubebuilder:printcolumn:name="Age",type=date,JSONPath=`.metadata.creationTimestamp`

// CostOptimization is the Schema for the costoptimizations API
type CostOptimization struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   CostOptimizationSpec   `json:"spec"`
	Status CostOptimizationStatus `json:"status,omitempty"`
}

// CostOptimizationSpec defines the desired state of CostOptimization
type CostOptimizationSpec struct {
	// TargetWorkload identifies the workload to optimize. The workload must live
	// in the same namespace as this resource.
	// +required
	TargetWorkload TargetWorkload `json:"targetWorkload"`

	// OptimizationType selects which recommendation families are considered
	// +optional
	// +kubebuilder:validation:Enum=CPU;MEMORY;REPLICAS;ALL;SPOT_INSTANCES;SCHEDULED_SCALING
	// +kubebuilder:default=ALL
	OptimizationType OptimizationPolicy `json:"optimizationType,omitempty"`

	// DryRun reports would-be savings without mutating the workload
	// +optional
	// +kubebuilder:default=true
	DryRun bool `json:"dryRun"`

	// AutoApply allows the controller to apply recommendations that pass the
	// confidence and risk gates. Mutually exclusive with DryRun.
	// +optional
	// +kubebuilder:default=false
	AutoApply bool `json:"autoApply"`

	// MinConfidence is the minimum confidence score a recommendation needs
	// +optional
	// +kubebuilder:validation:Minimum=0
	// +kubebuilder:validation:Maximum=1
	// +kubebuilder:default=0.7
	MinConfidence float64 `json:"minConfidence,omitempty"`

	// MaxRiskLevel is the highest risk level eligible for auto-apply
	// +optional
	// +kubebuilder:validation:Enum=LOW;MEDIUM;HIGH;CRITICAL
	// +kubebuilder:default=MEDIUM
	MaxRiskLevel RiskLevel `json:"maxRiskLevel,omitempty"`

	// MaxChangePercent caps how far a single apply may move replicas or
	// resource requests, as a percentage of the current value
	// +optional
	// +kubebuilder:validation:Minimum=1
	// +kubebuilder:validation:Maximum=100
	// +kubebuilder:default=50
	MaxChangePercent int32 `json:"maxChangePercent,omitempty"`

	// RollbackOnFailure restores the pre-apply snapshot when this resource is
	// deleted while an optimization is applied
	// +optional
	// +kubebuilder:default=true
	RollbackOnFailure *bool `json:"rollbackOnFailure,omitempty"`

	// MaintenanceWindows restricts auto-apply to the given windows. Empty means
	// apply at any time.
	// +optional
	MaintenanceWindows []MaintenanceWindow `json:"maintenanceWindows,omitempty"`
}

// TargetWorkload identifies a workload by name and kind
type TargetWorkload struct {
	// Name of the workload
	// +required
	Name string `json:"name"`

	// Kind of the workload
	// +required
	// +kubebuilder:validation:Enum=Deployment;StatefulSet;DaemonSet
	Kind WorkloadKind `json:"kind"`
}

// WorkloadKind enumerates the workload kinds the optimizer can manage
// +kubebuilder:validation:Enum=Deployment;StatefulSet;DaemonSet
type WorkloadKind string

const (
	// WorkloadDeployment targets a Deployment
	WorkloadDeployment WorkloadKind = "Deployment"
	// WorkloadStatefulSet targets a StatefulSet
	WorkloadStatefulSet WorkloadKind = "StatefulSet"
	// WorkloadDaemonSet targets a DaemonSet
	WorkloadDaemonSet WorkloadKind = "DaemonSet"
)

// OptimizationPolicy selects which recommendation families to consider
// +kubebuilder:validation:Enum=CPU;MEMORY;REPLICAS;ALL;SPOT_INSTANCES;SCHEDULED_SCALING
type OptimizationPolicy string

const (
	// PolicyCPU considers CPU right-sizing only
	PolicyCPU OptimizationPolicy = "CPU"
	// PolicyMemory considers memory right-sizing only
	PolicyMemory OptimizationPolicy = "MEMORY"
	// PolicyReplicas considers replica count changes only
	PolicyReplicas OptimizationPolicy = "REPLICAS"
	// PolicyAll considers every recommendation family
	PolicyAll OptimizationPolicy = "ALL"
	// PolicySpotInstances considers spot instance migration only
	PolicySpotInstances OptimizationPolicy = "SPOT_INSTANCES"
	// PolicyScheduledScaling considers time-based scaling only
	PolicyScheduledScaling OptimizationPolicy = "SCHEDULED_SCALING"
)

// RiskLevel grades how risky an optimization is
// +kubebuilder:validation:Enum=LOW;MEDIUM;HIGH;CRITICAL
type RiskLevel string

const (
	// RiskLow is routine and safe to automate
	RiskLow RiskLevel = "LOW"
	// RiskMedium needs the standard gates but may be automated
	RiskMedium RiskLevel = "MEDIUM"
	// RiskHigh should be reviewed by a human
	RiskHigh RiskLevel = "HIGH"
	// RiskCritical must never be auto-applied
	RiskCritical RiskLevel = "CRITICAL"
)

// Severity returns the ordinal rank of the level for threshold comparisons.
// Unknown levels rank highest so they never pass a gate.
func (r RiskLevel) Severity() int {
	switch r {
	case RiskLow:
		return 1
	case RiskMedium:
		return 2
	case RiskHigh:
		return 3
	case RiskCritical:
		return 4
	default:
		return 5
	}
}

// MaintenanceWindow defines a time window when applies are allowed
type MaintenanceWindow struct {
	// Schedule is a cron expression for when the window opens
	// +required
	Schedule string `json:"schedule"`

	// Duration is how long the window stays open (e.g., "2h", "30m")
	// +required
	Duration string `json:"duration"`

	// Timezone for the schedule (IANA name)
	// +optional
	// +kubebuilder:default=UTC
	Timezone string `json:"timezone,omitempty"`
}

// CostOptimizationStatus defines the observed state of CostOptimization
type CostOptimizationStatus struct {
	// Phase is the current lifecycle phase
	// +optional
	Phase OptimizationPhase `json:"phase,omitempty"`

	// Message explains the current phase in human terms
	// +optional
	Message string `json:"message,omitempty"`

	// ObservedGeneration is the generation last acted on by the controller
	// +optional
	ObservedGeneration int64 `json:"observedGeneration,omitempty"`

	// LastAnalysis is when the recommendation engine last ran for this target
	// +optional
	LastAnalysis *metav1.Time `json:"lastAnalysis,omitempty"`

	// LastApplied is when an optimization was last applied
	// +optional
	LastApplied *metav1.Time `json:"lastApplied,omitempty"`

	// CurrentRecommendation is the best recommendation from the last analysis
	// +optional
	CurrentRecommendation *RecommendationSummary `json:"currentRecommendation,omitempty"`

	// AppliedOptimizations counts successful applies over the lifetime of this
	// resource
	// +optional
	AppliedOptimizations int32 `json:"appliedOptimizations,omitempty"`

	// TotalSavings accumulates the estimated monthly savings of every applied
	// optimization, in USD
	// +optional
	TotalSavings float64 `json:"totalSavings,omitempty"`

	// Conditions represent the latest available observations
	// +optional
	Conditions []CostOptimizationCondition `json:"conditions,omitempty"`
}

// OptimizationPhase represents the lifecycle phase of a CostOptimization
// +kubebuilder:validation:Enum=Pending;Analyzing;Ready;Applied;Failed
type OptimizationPhase string

const (
	// PhasePending means the resource was accepted but not yet analyzed
	PhasePending OptimizationPhase = "Pending"
	// PhaseAnalyzing means an analysis cycle is in progress
	PhaseAnalyzing OptimizationPhase = "Analyzing"
	// PhaseReady means analysis finished without applying anything
	PhaseReady OptimizationPhase = "Ready"
	// PhaseApplied means an optimization is currently applied to the workload
	PhaseApplied OptimizationPhase = "Applied"
	// PhaseFailed means the last analysis or apply attempt failed
	PhaseFailed OptimizationPhase = "Failed"
)

// RecommendationSummary is the status snapshot of a recommendation
type RecommendationSummary struct {
	// OptimizationType of the recommendation
	// +required
	OptimizationType string `json:"optimizationType"`

	// CurrentMonthlyCost in USD before the change
	// +optional
	CurrentMonthlyCost float64 `json:"currentCost,omitempty"`

	// OptimizedMonthlyCost in USD after the change
	// +optional
	OptimizedMonthlyCost float64 `json:"optimizedCost,omitempty"`

	// MonthlySavings in USD
	// +optional
	MonthlySavings float64 `json:"monthlySavings,omitempty"`

	// ConfidenceScore of the recommendation, 0 to 1
	// +optional
	ConfidenceScore float64 `json:"confidenceScore,omitempty"`

	// RiskLevel of the recommendation
	// +optional
	RiskLevel string `json:"riskLevel,omitempty"`

	// Changes lists the concrete field changes the recommendation proposes
	// +optional
	Changes map[string]string `json:"changes,omitempty"`
}

// CostOptimizationCondition contains details for the current condition
type CostOptimizationCondition struct {
	// Type of the condition
	// +required
	Type CostOptimizationConditionType `json:"type"`

	// Status of the condition (True, False, Unknown)
	// +required
	Status ConditionStatus `json:"status"`

	// LastTransitionTime is the last time the condition transitioned
	// +required
	LastTransitionTime metav1.Time `json:"lastTransitionTime"`

	// Reason is a machine-readable reason for the condition's last transition
	// +optional
	Reason string `json:"reason,omitempty"`

	// Message is a human-readable message indicating details
	// +optional
	Message string `json:"message,omitempty"`
}

// CostOptimizationConditionType represents condition types
// +kubebuilder:validation:Enum=Ready;RecommendationAvailable;Applied;RollbackComplete;MaintenanceWindow
type CostOptimizationConditionType string

const (
	// ConditionTypeReady indicates the resource is being reconciled normally
	ConditionTypeReady CostOptimizationConditionType = "Ready"
	// ConditionTypeRecommendationAvailable indicates an actionable recommendation exists
	ConditionTypeRecommendationAvailable CostOptimizationConditionType = "RecommendationAvailable"
	// ConditionTypeApplied indicates an optimization is applied to the workload
	ConditionTypeApplied CostOptimizationConditionType = "Applied"
	// ConditionTypeRollbackComplete indicates the last rollback finished cleanly
	ConditionTypeRollbackComplete CostOptimizationConditionType = "RollbackComplete"
	// ConditionTypeMaintenanceWindow indicates the target is inside a maintenance window
	ConditionTypeMaintenanceWindow CostOptimizationConditionType = "MaintenanceWindow"
)

// ConditionStatus represents the status of a condition
// +kubebuilder:validation:Enum=True;False;Unknown
type ConditionStatus string

const (
	// ConditionTrue means the condition is true
	ConditionTrue ConditionStatus = "True"
	// ConditionFalse means the condition is false
	ConditionFalse ConditionStatus = "False"
	// ConditionUnknown means the condition status is unknown
	ConditionUnknown ConditionStatus = "Unknown"
)

// +k8s:deepcopy-gen:interfaces=k8s.io/apimachinery/pkg/runtime.Object
// +kubebuilder:object:root=true

// CostOptimizationList contains a list of CostOptimization
type CostOptimizationList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []CostOptimization `json:"items"`
}
