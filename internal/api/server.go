// Package api exposes simulations over HTTP and WebSocket.
package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"portfolio-montecarlo/internal/domain"
	"portfolio-montecarlo/internal/observability"
	"portfolio-montecarlo/internal/reporting"
	"portfolio-montecarlo/internal/simulation"
	"portfolio-montecarlo/internal/storage"
)

const (
	// maxRequestBody bounds JSON request bodies.
	maxRequestBody = 1 << 20

	// Per-IP limiters unused for limiterIdleTTL are dropped every limiterSweepEvery.
	limiterIdleTTL    = 10 * time.Minute
	limiterSweepEvery = time.Minute
)

// Options contains configuration for creating a Server.
type Options struct {
	Runner          *simulation.Runner
	RunStore        storage.SimulationRunStore // nil disables run lookups
	TrajectoryStore storage.TrajectoryStore    // nil disables charts
	Logger          *zap.Logger
	Defaults        domain.SimulationConfig // applied to zero request fields
	MaxTrials       int
	RateLimit       float64  // requests per second per IP, 0 = unlimited
	RateBurst       int
	AllowedOrigins  []string // WebSocket origins, "*" = any, empty = same host only
}

// Server serves the simulation API.
type Server struct {
	runner       *simulation.Runner
	runs         storage.SimulationRunStore
	trajectories storage.TrajectoryStore
	logger       *zap.Logger
	defaults     domain.SimulationConfig
	maxTrials    int

	upgrader       websocket.Upgrader
	allowedOrigins []string

	rateLimit  rate.Limit
	rateBurst  int
	ipLimiters sync.Map // map[string]*ipLimiter

	mu  sync.Mutex
	srv *http.Server
}

// NewServer creates a new Server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxTrials := opts.MaxTrials
	if maxTrials <= 0 {
		maxTrials = domain.DefaultTrials * 100
	}

	s := &Server{
		runner:         opts.Runner,
		runs:           opts.RunStore,
		trajectories:   opts.TrajectoryStore,
		logger:         logger,
		defaults:       opts.Defaults,
		maxTrials:      maxTrials,
		allowedOrigins: opts.AllowedOrigins,
		rateLimit:      rate.Limit(opts.RateLimit),
		rateBurst:      opts.RateBurst,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", observability.Handler())
	mux.HandleFunc("POST /v1/simulations", s.handleCreateSimulation)
	mux.HandleFunc("GET /v1/simulations", s.handleListSimulations)
	mux.HandleFunc("GET /v1/simulations/{id}", s.handleGetSimulation)
	mux.HandleFunc("GET /v1/simulations/{id}/trajectories.png", s.handleTrajectoryChart)
	mux.HandleFunc("GET /v1/simulations/{id}/distribution.png", s.handleDistributionChart)
	mux.HandleFunc("GET /ws/simulations", s.handleWebSocket)
	return s.instrument(s.rateLimited(mux))
}

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.mu.Lock()
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.srv
	s.mu.Unlock()

	s.logger.Info("starting api server", zap.String("addr", addr))

	if s.rateLimit > 0 {
		go s.sweepLimiters(ctx)
	}

	errChan := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	}
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.srv == nil {
		return nil
	}
	s.logger.Info("stopping api server")
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

func (s *Server) handleCreateSimulation(w http.ResponseWriter, r *http.Request) {
	var req SimulationRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	runReq, err := req.toRunRequest(s.defaults, s.maxTrials)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.runner.Run(r.Context(), runReq)
	if err != nil {
		s.writeRunError(w, err)
		return
	}

	status := http.StatusCreated
	if res.Cached {
		status = http.StatusOK
	}
	writeJSON(w, status, newRunResponse(res.Run, res.Cached).withProjection(req, res.Run.Summary.CI))
}

func (s *Server) handleListSimulations(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeError(w, http.StatusNotFound, "run storage disabled")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	runs, err := s.runs.List(r.Context(), limit)
	if err != nil {
		s.writeRunError(w, err)
		return
	}
	out := make([]RunResponse, len(runs))
	for i, run := range runs {
		out[i] = newRunResponse(run, false)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetSimulation(w http.ResponseWriter, r *http.Request) {
	run, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newRunResponse(run, false))
}

func (s *Server) handleTrajectoryChart(w http.ResponseWriter, r *http.Request) {
	_, ens, ok := s.loadEnsemble(w, r)
	if !ok {
		return
	}
	img, err := reporting.RenderTrajectoryChart(ens)
	if err != nil {
		s.logger.Error("render trajectory chart", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "chart rendering failed")
		return
	}
	observability.RecordReportGenerated("chart")
	writePNG(w, img)
}

func (s *Server) handleDistributionChart(w http.ResponseWriter, r *http.Request) {
	run, ens, ok := s.loadEnsemble(w, r)
	if !ok {
		return
	}
	img, err := reporting.RenderDistributionChart(ens.FinalValues(), run.Summary.CI)
	if err != nil {
		s.logger.Error("render distribution chart", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "chart rendering failed")
		return
	}
	observability.RecordReportGenerated("chart")
	writePNG(w, img)
}

func (s *Server) loadRun(w http.ResponseWriter, r *http.Request) (*domain.SimulationRun, bool) {
	if s.runs == nil {
		writeError(w, http.StatusNotFound, "run storage disabled")
		return nil, false
	}
	run, err := s.runs.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeRunError(w, err)
		return nil, false
	}
	return run, true
}

func (s *Server) loadEnsemble(w http.ResponseWriter, r *http.Request) (*domain.SimulationRun, *domain.Ensemble, bool) {
	if s.trajectories == nil {
		writeError(w, http.StatusNotFound, "trajectory storage disabled")
		return nil, nil, false
	}
	run, ok := s.loadRun(w, r)
	if !ok {
		return nil, nil, false
	}
	ens, err := s.trajectories.GetEnsemble(r.Context(), run.RunID)
	if err != nil {
		s.writeRunError(w, err)
		return nil, nil, false
	}
	return run, ens, true
}

// writeRunError maps engine and storage errors to HTTP status codes.
func (s *Server) writeRunError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, simulation.ErrInvalidInput),
		errors.Is(err, simulation.ErrInvalidWeights):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, simulation.ErrInsufficientHistory):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, context.Canceled):
		// client went away
	default:
		s.logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// rateLimited rejects requests above the per-IP rate.
func (s *Server) rateLimited(next http.Handler) http.Handler {
	if s.rateLimit <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := remoteIP(r)
		if !s.limiterFor(ip).Allow() {
			s.logger.Warn("rate limit exceeded", zap.String("ip", ip))
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ipLimiter is a client's rate limiter and the last time it was used.
type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanoseconds
}

// limiterFor returns or creates the rate limiter for ip and marks it used.
func (s *Server) limiterFor(ip string) *rate.Limiter {
	v, ok := s.ipLimiters.Load(ip)
	if !ok {
		burst := s.rateBurst
		if burst <= 0 {
			burst = 1
		}
		v, _ = s.ipLimiters.LoadOrStore(ip, &ipLimiter{limiter: rate.NewLimiter(s.rateLimit, burst)})
	}
	entry := v.(*ipLimiter)
	entry.lastSeen.Store(time.Now().UnixNano())
	return entry.limiter
}

// pruneLimiters drops limiters last used before cutoff.
// Returns the number removed.
func (s *Server) pruneLimiters(cutoff time.Time) int {
	removed := 0
	s.ipLimiters.Range(func(key, v any) bool {
		if v.(*ipLimiter).lastSeen.Load() < cutoff.UnixNano() {
			s.ipLimiters.Delete(key)
			removed++
		}
		return true
	})
	return removed
}

// sweepLimiters prunes idle limiters until ctx is cancelled.
func (s *Server) sweepLimiters(ctx context.Context) {
	ticker := time.NewTicker(limiterSweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := s.pruneLimiters(now.Add(-limiterIdleTTL)); n > 0 {
				s.logger.Debug("pruned idle rate limiters", zap.Int("count", n))
			}
		}
	}
}

// statusRecorder captures the response code for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController and the WebSocket upgrader reach the hijacker.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack is needed by the WebSocket upgrader.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// instrument records request latency by route pattern and status code.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		observability.RecordHTTPRequest(route, strconv.Itoa(rec.status), time.Since(start).Seconds())
	})
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func writePNG(w http.ResponseWriter, img []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(img)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img)
}
