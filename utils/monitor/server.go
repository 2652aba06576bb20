package monitor

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server exposes a prometheus registry over HTTP together with runtime
// and process collectors
type Server struct {
	srv    *http.Server
	logger *zap.Logger
	wg     sync.WaitGroup
}

// NewServer registers the Go runtime and process collectors on reg and
// prepares a /metrics handler bound to addr
func NewServer(addr string, reg *prometheus.Registry, logger *zap.Logger) (*Server, error) {
	for _, c := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				return nil, err
			}
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}, nil
}

// Handler returns the HTTP handler serving /metrics
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start serves in the background until ctx is cancelled or Shutdown is called
func (s *Server) Start(ctx context.Context) {
	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.logger.Info("Serving metrics", zap.String("address", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Metrics server failed", zap.Error(err))
		}
	}()
	go func() {
		defer s.wg.Done()
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("Metrics server shutdown", zap.Error(err))
		}
	}()
}

// Wait blocks until the server goroutines have exited
func (s *Server) Wait() {
	s.wg.Wait()
}
