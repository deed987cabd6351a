package admission

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	admissionv1 "k8s.io/api/admission/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	v1 "kubernetes-cost-optimizer/pkg/apis/optimization/v1"
	"kubernetes-cost-optimizer/pkg/logger"
)

// Server serves the validating and mutating webhook endpoints for
// CostOptimization resources.
type Server struct {
	log      *logger.Logger
	addr     string
	certFile string
	keyFile  string
	srv      *http.Server
}

// NewServer creates a webhook server listening on addr. certFile and
// keyFile may be empty, in which case the server runs plain HTTP
// (useful in tests).
func NewServer(log *logger.Logger, addr, certFile, keyFile string) *Server {
	s := &Server{
		log:      log,
		addr:     addr,
		certFile: certFile,
		keyFile:  keyFile,
	}

	r := mux.NewRouter()
	r.HandleFunc("/validate", s.handleValidate).Methods(http.MethodPost)
	r.HandleFunc("/mutate", s.handleMutate).Methods(http.MethodPost)
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if s.certFile != "" && s.keyFile != "" {
			errCh <- s.srv.ListenAndServeTLS(s.certFile, s.keyFile)
		} else {
			errCh <- s.srv.ListenAndServe()
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `{"status":"healthy"}`)
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	review, opt, err := s.decodeReview(r)
	if err != nil {
		s.log.Errorw("failed to decode admission review", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp := &admissionv1.AdmissionResponse{
		UID:     review.Request.UID,
		Allowed: true,
	}

	if ok, reason := Validate(opt); !ok {
		resp.Allowed = false
		resp.Result = &metav1.Status{
			Code:    http.StatusBadRequest,
			Message: reason,
		}
	} else if ok, reason := SafetyCheck(opt); !ok {
		resp.Allowed = false
		resp.Result = &metav1.Status{
			Code:    http.StatusForbidden,
			Message: reason,
		}
	}

	if !resp.Allowed {
		s.log.Infow("rejected CostOptimization",
			"namespace", opt.Namespace, "name", opt.Name,
			"reason", resp.Result.Message)
	}

	s.writeResponse(w, review, resp)
}

func (s *Server) handleMutate(w http.ResponseWriter, r *http.Request) {
	// Mutation fails open: any error admits the object unpatched so
	// a broken webhook cannot block resource creation.
	review, opt, err := s.decodeReview(r)
	if err != nil {
		s.log.Errorw("failed to decode mutation review", "error", err)
		s.writeResponse(w, &admissionv1.AdmissionReview{}, &admissionv1.AdmissionResponse{Allowed: true})
		return
	}

	resp := &admissionv1.AdmissionResponse{
		UID:     review.Request.UID,
		Allowed: true,
	}

	patch, err := json.Marshal(Mutate(opt))
	if err != nil {
		s.log.Errorw("failed to marshal patch", "error", err)
		s.writeResponse(w, review, resp)
		return
	}

	pt := admissionv1.PatchTypeJSONPatch
	resp.Patch = patch
	resp.PatchType = &pt
	s.writeResponse(w, review, resp)
}

func (s *Server) decodeReview(r *http.Request) (*admissionv1.AdmissionReview, *v1.CostOptimization, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("reading request body: %w", err)
	}

	review := &admissionv1.AdmissionReview{}
	if err := json.Unmarshal(body, review); err != nil {
		return nil, nil, fmt.Errorf("unmarshaling admission review: %w", err)
	}
	if review.Request == nil {
		return nil, nil, fmt.Errorf("admission review has no request")
	}

	opt := &v1.CostOptimization{}
	if err := json.Unmarshal(review.Request.Object.Raw, opt); err != nil {
		return nil, nil, fmt.Errorf("unmarshaling CostOptimization: %w", err)
	}
	return review, opt, nil
}

func (s *Server) writeResponse(w http.ResponseWriter, review *admissionv1.AdmissionReview, resp *admissionv1.AdmissionResponse) {
	out := admissionv1.AdmissionReview{
		TypeMeta: metav1.TypeMeta{
			APIVersion: "admission.k8s.io/v1",
			Kind:       "AdmissionReview",
		},
		Response: resp,
	}

	data, err := json.Marshal(out)
	if err != nil {
		s.log.Errorw("failed to marshal admission response", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}
