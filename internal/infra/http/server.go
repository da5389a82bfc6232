package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"vpn-subscription-bot/internal/config"
	"vpn-subscription-bot/internal/domain"
	"vpn-subscription-bot/internal/infra/scheduler"
)

// SchedulerControl is what the ops endpoints drive.
type SchedulerControl interface {
	Start(parent context.Context)
	Stop()
	Status() scheduler.Status
	RunOnce(ctx context.Context) (int, error)
}

// Checker reports whether a dependency is reachable.
type Checker func(ctx context.Context) error

// Server exposes health, metrics and scheduler control.
type Server struct {
	cfg    config.HTTPConfig
	sched  SchedulerControl
	auth   *AuthManager
	checks map[string]Checker
	log    *zerolog.Logger

	// baseCtx parents scheduler loops started over HTTP so they outlive the request.
	baseCtx context.Context
	server  *http.Server
}

func NewServer(cfg config.HTTPConfig, sched SchedulerControl, auth *AuthManager, checks map[string]Checker, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "OpsHTTP").Logger()
	return &Server{
		cfg:     cfg,
		sched:   sched,
		auth:    auth,
		checks:  checks,
		log:     &l,
		baseCtx: context.Background(),
	}
}

// Router builds the chi router; exported for tests and embedding.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(traceID, recoverer(s.log), requestLog(s.log))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/admin/scheduler", func(r chi.Router) {
		r.Use(s.auth.RequireAdmin)
		r.Get("/", s.handleSchedulerStatus)
		r.Post("/start", s.handleSchedulerStart)
		r.Post("/stop", s.handleSchedulerStop)
		r.Post("/run", s.handleSchedulerRun)
	})
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.baseCtx = ctx
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Int("port", s.cfg.Port).Msg("ops http server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	}
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Checks: map[string]string{}}
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := s.checks[name](ctx); err != nil {
			s.log.Warn().Err(err).Str("check", name).Msg("health check failed")
			resp.Status = "degraded"
			resp.Checks[name] = "fail"
			continue
		}
		resp.Checks[name] = "ok"
	}

	code := http.StatusOK
	if resp.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

func (s *Server) handleSchedulerStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sched.Status())
}

func (s *Server) handleSchedulerStart(w http.ResponseWriter, r *http.Request) {
	s.sched.Start(s.baseCtx)
	writeJSON(w, http.StatusOK, s.sched.Status())
}

func (s *Server) handleSchedulerStop(w http.ResponseWriter, r *http.Request) {
	s.sched.Stop()
	writeJSON(w, http.StatusOK, s.sched.Status())
}

type runResponse struct {
	Sent  int    `json:"sent"`
	Error string `json:"error,omitempty"`
}

func (s *Server) handleSchedulerRun(w http.ResponseWriter, r *http.Request) {
	// A disconnecting client must not cut the scan short.
	sent, err := s.sched.RunOnce(context.WithoutCancel(r.Context()))
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, domain.ErrLockNotAcquired) {
			code = http.StatusConflict
		}
		writeJSON(w, code, runResponse{Sent: sent, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, runResponse{Sent: sent})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
