package apiserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"kubernetes-cost-optimizer/pkg/history"
	"kubernetes-cost-optimizer/pkg/logger"
	"kubernetes-cost-optimizer/pkg/metrics"
	"kubernetes-cost-optimizer/pkg/models"
	"kubernetes-cost-optimizer/pkg/recommender"
	"kubernetes-cost-optimizer/pkg/storage"
)

// Handler serves the recommendation API: workload listing, window
// metrics, on-demand analysis and the realized-savings history.
type Handler struct {
	log         *logger.Logger
	kubeClient  kubernetes.Interface
	store       *storage.WindowStore
	recommender *recommender.Recommender
	ledger      *history.Ledger
}

func NewHandler(log *logger.Logger, kubeClient kubernetes.Interface, store *storage.WindowStore, rec *recommender.Recommender) *Handler {
	return &Handler{
		log:         log,
		kubeClient:  kubeClient,
		store:       store,
		recommender: rec,
	}
}

// WithLedger attaches the optional savings ledger backing /savings/history.
func (h *Handler) WithLedger(ledger *history.Ledger) *Handler {
	h.ledger = ledger
	return h
}

// SetupRoutes configures API routes
func SetupRoutes(router *mux.Router, h *Handler) {
	router.HandleFunc("/workloads", h.ListWorkloads).Methods("GET")
	router.HandleFunc("/workloads/{namespace}/{name}/metrics", h.GetWorkloadMetrics).Methods("GET")
	router.HandleFunc("/optimize/{id}", h.Optimize).Methods("POST")
	router.HandleFunc("/savings/history", h.GetSavingsHistory).Methods("GET")

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	}).Methods("GET")
}

type workloadSummary struct {
	ID        string `json:"id"`
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Replicas  int32  `json:"replicas"`
	Provider  string `json:"provider"`
}

type optimizeRequest struct {
	MinConfidence     float64                        `json:"min_confidence"`
	OptimizationTypes []recommender.OptimizationType `json:"optimization_types,omitempty"`
	MaxRiskLevel      recommender.RiskLevel          `json:"max_risk_level,omitempty"`
}

type optimizeResponse struct {
	Workload              *models.Workload              `json:"workload"`
	Metrics               *models.WorkloadMetrics       `json:"metrics"`
	Recommendations       []*recommender.Recommendation `json:"recommendations"`
	TotalPotentialSavings float64                       `json:"total_potential_savings"`
}

// ListWorkloads handles GET /workloads
func (h *Handler) ListWorkloads(w http.ResponseWriter, r *http.Request) {
	workloads, err := h.scanWorkloads(r.Context())
	if err != nil {
		h.log.Errorw("Failed to scan workloads", "error", err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	summaries := make([]workloadSummary, 0, len(workloads))
	for _, wl := range workloads {
		summaries = append(summaries, workloadSummary{
			ID:        wl.ID,
			Namespace: wl.Namespace,
			Name:      wl.Name,
			Kind:      wl.Kind,
			Replicas:  wl.Replicas,
			Provider:  wl.Provider,
		})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"workloads": summaries})
}

// GetWorkloadMetrics handles GET /workloads/{namespace}/{name}/metrics
func (h *Handler) GetWorkloadMetrics(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	namespace, name := vars["namespace"], vars["name"]

	workload, err := h.findWorkload(r.Context(), namespace, name)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if workload == nil {
		respondError(w, http.StatusNotFound, fmt.Sprintf("workload %s/%s not found", namespace, name))
		return
	}

	stats := h.store.Aggregate(metrics.WindowKey(namespace, name), workload)
	if stats == nil {
		respondError(w, http.StatusNotFound, fmt.Sprintf("no samples collected for %s/%s yet", namespace, name))
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

// Optimize handles POST /optimize/{id}
func (h *Handler) Optimize(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]

	var req optimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	workload, err := h.findWorkloadByID(r.Context(), id)
	if err != nil {
		h.log.Errorw("Workload lookup failed", "id", id, "error", err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if workload == nil {
		respondError(w, http.StatusNotFound, fmt.Sprintf("workload %s not found", id))
		return
	}

	stats := h.store.Aggregate(metrics.WindowKey(workload.Namespace, workload.Name), workload)
	resp := optimizeResponse{
		Workload:        workload,
		Metrics:         stats,
		Recommendations: []*recommender.Recommendation{},
	}
	if stats == nil {
		// Nothing sampled yet; an empty result, not an error.
		respondJSON(w, http.StatusOK, resp)
		return
	}

	recs := h.recommender.Recommend(r.Context(), workload, stats, recommender.Options{
		MinConfidence: req.MinConfidence,
		Types:         req.OptimizationTypes,
		MaxRisk:       req.MaxRiskLevel,
	})
	for _, rec := range recs {
		resp.TotalPotentialSavings += rec.MonthlySavings
	}
	resp.Recommendations = recs

	h.log.Infow("Served optimization analysis",
		"workload", workload.ID,
		"recommendations", len(recs),
		"potential_savings", resp.TotalPotentialSavings)
	respondJSON(w, http.StatusOK, resp)
}

// GetSavingsHistory handles GET /savings/history
func (h *Handler) GetSavingsHistory(w http.ResponseWriter, r *http.Request) {
	if h.ledger == nil {
		respondError(w, http.StatusServiceUnavailable, "history backend not configured")
		return
	}

	records, err := h.ledger.History(r.Context(), 0)
	if err != nil {
		h.log.Errorw("Failed to read savings history", "error", err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	summary, err := h.ledger.Summarize(r.Context(), 0)
	if err != nil {
		h.log.Errorw("Failed to summarize savings history", "error", err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"summary": summary,
		"history": records,
	})
}

func (h *Handler) scanWorkloads(ctx context.Context) ([]*models.Workload, error) {
	var workloads []*models.Workload

	deployments, err := h.kubeClient.AppsV1().Deployments(metav1.NamespaceAll).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("listing deployments: %w", err)
	}
	for i := range deployments.Items {
		d := &deployments.Items[i]
		wl, err := metrics.FetchWorkload(ctx, h.kubeClient, d.Namespace, "Deployment", d.Name)
		if err != nil {
			continue
		}
		workloads = append(workloads, wl)
	}

	statefulsets, err := h.kubeClient.AppsV1().StatefulSets(metav1.NamespaceAll).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("listing statefulsets: %w", err)
	}
	for i := range statefulsets.Items {
		s := &statefulsets.Items[i]
		wl, err := metrics.FetchWorkload(ctx, h.kubeClient, s.Namespace, "StatefulSet", s.Name)
		if err != nil {
			continue
		}
		workloads = append(workloads, wl)
	}

	return workloads, nil
}

func (h *Handler) findWorkload(ctx context.Context, namespace, name string) (*models.Workload, error) {
	workloads, err := h.scanWorkloads(ctx)
	if err != nil {
		return nil, err
	}
	for _, wl := range workloads {
		if wl.Namespace == namespace && wl.Name == name {
			return wl, nil
		}
	}
	return nil, nil
}

// findWorkloadByID resolves a listing id. The operator's remote source
// falls back to mock-{namespace}-{name} ids when the listing is
// unreachable, so those resolve too.
func (h *Handler) findWorkloadByID(ctx context.Context, id string) (*models.Workload, error) {
	workloads, err := h.scanWorkloads(ctx)
	if err != nil {
		return nil, err
	}
	for _, wl := range workloads {
		if wl.ID == id {
			return wl, nil
		}
		if strings.HasPrefix(id, "mock-") && id == fmt.Sprintf("mock-%s-%s", wl.Namespace, wl.Name) {
			return wl, nil
		}
	}
	return nil, nil
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
