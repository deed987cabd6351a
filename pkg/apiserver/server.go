package apiserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"kubernetes-cost-optimizer/pkg/logger"
)

// Server is the recommendation API's HTTP front. It owns the router and
// lifecycle; all request handling lives on Handler.
type Server struct {
	log  *logger.Logger
	addr string
	srv  *http.Server
}

func NewServer(log *logger.Logger, addr string, handler *Handler) *Server {
	router := mux.NewRouter()
	SetupRoutes(router, handler)

	return &Server{
		log:  log,
		addr: addr,
		srv: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Handler exposes the routed handler for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Infow("Recommendation API listening", "addr", s.addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.log.Infow("Shutting down recommendation API")
	return s.srv.Shutdown(shutdownCtx)
}
