package recommender

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRemoteSourcePicksHighestSavings(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/workloads":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"workloads": []map[string]string{
					{"id": "uuid-1", "namespace": "default", "name": "api-server"},
				},
			})
		case "/optimize/uuid-1":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"recommendations": []map[string]interface{}{
					{"optimization_type": "right_size_cpu", "monthly_savings": 12.5},
					{"optimization_type": "reduce_replicas", "monthly_savings": 40.0},
					{"optimization_type": "spot_instances", "monthly_savings": 25.0},
				},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	source := NewRemoteSource(server.URL, time.Second)
	rec, err := source.BestRecommendation(context.Background(),
		Target{Namespace: "default", Name: "api-server", Kind: "Deployment"},
		Options{MinConfidence: 0.7})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec == nil {
		t.Fatal("expected a recommendation")
	}
	if rec.Type != TypeReduceReplicas {
		t.Errorf("expected the highest-saving recommendation, got %s", rec.Type)
	}
	if rec.MonthlySavings != 40.0 {
		t.Errorf("expected savings 40.0, got %.2f", rec.MonthlySavings)
	}
}

func TestRemoteSourceNon200IsNoRecommendation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	source := NewRemoteSource(server.URL, time.Second)
	rec, err := source.BestRecommendation(context.Background(),
		Target{Namespace: "default", Name: "api-server", Kind: "Deployment"}, Options{})
	if err != nil {
		t.Fatalf("upstream errors must not propagate: %v", err)
	}
	if rec != nil {
		t.Errorf("expected no recommendation on upstream failure, got %s", rec.Type)
	}
}

func TestRemoteSourceMalformedPayloadIsNoRecommendation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{not json"))
	}))
	defer server.Close()

	source := NewRemoteSource(server.URL, time.Second)
	rec, err := source.BestRecommendation(context.Background(),
		Target{Namespace: "default", Name: "api-server", Kind: "Deployment"}, Options{})
	if err != nil {
		t.Fatalf("malformed payloads must not propagate: %v", err)
	}
	if rec != nil {
		t.Error("expected no recommendation on malformed payload")
	}
}

func TestRemoteSourceUnreachableIsNoRecommendation(t *testing.T) {
	source := NewRemoteSource("http://127.0.0.1:1", 200*time.Millisecond)
	rec, err := source.BestRecommendation(context.Background(),
		Target{Namespace: "default", Name: "api-server", Kind: "Deployment"}, Options{})
	if err != nil {
		t.Fatalf("transport errors must not propagate: %v", err)
	}
	if rec != nil {
		t.Error("expected no recommendation when the API is unreachable")
	}
}
