package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stereo-express/touch/pkg/cl/logger"
)

// Startable is a component with startup work (open connections, parse
// templates, seed data).
type Startable interface {
	Start(context.Context) error
}

// Stoppable is a component that releases resources on shutdown.
type Stoppable interface {
	Stop(context.Context) error
}

// RouteRegistrar is a component that mounts HTTP routes.
type RouteRegistrar interface {
	RegisterRoutes(chi.Router)
}

// Pipeline holds components in dependency order.
type Pipeline struct {
	comps   []any
	started []any
	log     logger.Logger
}

// Setup builds a pipeline over comps. Capabilities are discovered by
// checking each component for Startable, Stoppable and RouteRegistrar.
func Setup(log logger.Logger, comps ...any) *Pipeline {
	return &Pipeline{comps: comps, log: log}
}

// Start starts components in order. When one fails, the components already
// started are stopped in reverse order and the error is returned.
// Routes are registered only after every component started.
func (p *Pipeline) Start(ctx context.Context, router chi.Router) error {
	for i, c := range p.comps {
		if s, ok := c.(Startable); ok {
			if err := s.Start(ctx); err != nil {
				p.log.Errorf("error starting component #%d: %v", i, err)
				p.rollback()
				return err
			}
		}
		p.started = append(p.started, c)
	}

	if router == nil {
		return nil
	}
	for _, c := range p.comps {
		if rr, ok := c.(RouteRegistrar); ok {
			rr.RegisterRoutes(router)
		}
	}
	return nil
}

func (p *Pipeline) rollback() {
	for j := len(p.started) - 1; j >= 0; j-- {
		if st, ok := p.started[j].(Stoppable); ok {
			if err := st.Stop(context.Background()); err != nil {
				p.log.Errorf("error stopping component #%d during rollback: %v", j, err)
			}
		}
	}
	p.started = nil
}

// Stop stops started components in reverse order (LIFO).
func (p *Pipeline) Stop(ctx context.Context) {
	for i := len(p.started) - 1; i >= 0; i-- {
		if st, ok := p.started[i].(Stoppable); ok {
			if err := st.Stop(ctx); err != nil {
				p.log.Errorf("error stopping component #%d: %v", i, err)
			}
		}
	}
	p.started = nil
}

// NewServer returns the HTTP server for the router.
func NewServer(router http.Handler, addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Serve blocks until the server is shut down.
func Serve(srv *http.Server) error {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown performs graceful shutdown of the HTTP server and all components.
func (p *Pipeline) Shutdown(srv *http.Server) {
	p.log.Info("Shutting down gracefully, press Ctrl+C again to force")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		p.log.Errorf("server shutdown failed: %v", err)
	}

	p.Stop(shutdownCtx)
}
