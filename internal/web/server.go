// Package web serves simulations, the live render state and the formulas
// panel over HTTP, and streams render frames over a WebSocket.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/thurmanmarka/umbra/internal/logging"
	"github.com/thurmanmarka/umbra/internal/observability"
	"github.com/thurmanmarka/umbra/internal/render"
	"github.com/thurmanmarka/umbra/internal/sim"
)

// maxRequestBytes bounds a simulation request body.
const maxRequestBytes = 4 << 10

// Options configure a Server.
type Options struct {
	ScanRate float64 // simulation runs per second per client; <= 0 disables limiting
	Burst    int
	Logger   logging.Logger
	Metrics  *observability.Collector
}

// Server is the HTTP surface over one simulator and its live task.
type Server struct {
	sim     *sim.Simulator
	task    *render.Task
	hub     *Hub
	limiter *IPRateLimiter
	log     logging.Logger
	metrics *observability.Collector
	router  *mux.Router

	mu      sync.RWMutex
	current *sim.Run
}

// NewServer builds the routes and registers the WebSocket hub as a surface
// of task.
func NewServer(s *sim.Simulator, task *render.Task, opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = logging.Noop()
	}
	srv := &Server{
		sim:     s,
		task:    task,
		hub:     NewHub(log, opts.Metrics),
		log:     log,
		metrics: opts.Metrics,
	}
	if opts.ScanRate > 0 {
		srv.limiter = NewIPRateLimiter(rate.Limit(opts.ScanRate), opts.Burst)
	}
	task.AddSurface(srv.hub)
	srv.routes()
	return srv
}

func (s *Server) routes() {
	r := mux.NewRouter()
	r.Use(s.metrics.Middleware(routeTemplate))

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/simulations", s.handleSimulate).Methods(http.MethodPost)
	api.HandleFunc("/simulations/current", s.handleCurrent).Methods(http.MethodGet)
	api.HandleFunc("/state", s.handleState).Methods(http.MethodGet)
	api.HandleFunc("/formulas", s.handleFormulas).Methods(http.MethodGet)

	r.Handle("/ws", s.hub).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	}).Methods(http.MethodGet)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}
	s.router = r
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Hub returns the WebSocket hub.
func (s *Server) Hub() *Hub { return s.hub }

// Current returns the last successful run, or nil.
func (s *Server) Current() *sim.Run {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info(ctx, "http server listening", logging.String("addr", addr))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.hub.Close()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	if s.limiter != nil && !s.limiter.Allow(r) {
		writeError(w, http.StatusTooManyRequests, "too many simulation requests")
		return
	}

	var req sim.Request
	body := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	run, err := s.sim.Simulate(r.Context(), req)
	switch {
	case errors.Is(err, sim.ErrInvalidDate), errors.Is(err, sim.ErrWindowTooLong):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.log.Error(r.Context(), "simulation failed", logging.Err(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.mu.Lock()
	s.current = run
	s.mu.Unlock()
	s.task.SetEclipses(run.Eclipses)

	writeJSON(w, http.StatusCreated, run)
}

func (s *Server) handleCurrent(w http.ResponseWriter, _ *http.Request) {
	run := s.Current()
	if run == nil {
		writeError(w, http.StatusNotFound, "no simulation has run yet")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	state, ok := s.task.State()
	if !ok {
		writeError(w, http.StatusNotFound, "no frame rendered yet")
		return
	}
	writeJSON(w, http.StatusOK, Frame{State: state, Info: render.InfoText(state)})
}

func (s *Server) handleFormulas(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(render.Formulas + "\n"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
