// Package metrics wires a tally.Scope backed by a Prometheus reporter and
// exposes it, plus a liveness probe, on a small chi mux.
package metrics

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/uber-go/tally"
	promreporter "github.com/uber-go/tally/prometheus"
)

const shutdownTimeout = 5 * time.Second

// Server bundles the metrics scope with the HTTP server that exposes it.
type Server struct {
	config Config
	http   *http.Server
	closer io.Closer
}

// New builds a reporting tally.Scope and the HTTP server that serves its
// /metrics endpoint (plus /healthz). Call Start to begin listening and
// Close to flush and tear down.
func New(config Config) (tally.Scope, *Server, error) {
	config.applyDefaults()

	reporter, err := promreporter.NewReporter(promreporter.Options{})
	if err != nil {
		return nil, nil, fmt.Errorf("new prometheus reporter: %s", err)
	}

	scope, closer := tally.NewRootScope(tally.ScopeOptions{
		Prefix:         config.Prefix,
		CachedReporter: reporter,
	}, config.ReportInterval)

	mux := chi.NewRouter()
	mux.Handle("/metrics", reporter.HTTPHandler())
	mux.Get("/healthz", healthzHandler)

	s := &Server{
		config: config,
		http:   &http.Server{Addr: config.Addr, Handler: mux},
		closer: closer,
	}
	return scope, s, nil
}

func healthzHandler(w http.ResponseWriter, r *http.Request) {
	io.WriteString(w, "OK")
}

// Start begins serving in the background. It returns immediately; serve
// errors are delivered on the returned channel.
func (s *Server) Start() <-chan error {
	errc := make(chan error, 1)
	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
		close(errc)
	}()
	return errc
}

// Close shuts down the HTTP server and flushes the metrics reporter.
func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown metrics server: %s", err)
	}
	return s.closer.Close()
}
