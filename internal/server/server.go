package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"PolicyScan/internal/analysis"
	"PolicyScan/internal/calculator"
	"PolicyScan/internal/collector"
	"PolicyScan/internal/config"
	"PolicyScan/internal/model"
	"PolicyScan/internal/recorder"
)

// maxBodyBytes caps request bodies accepted by the analyze endpoints.
const maxBodyBytes = 1 << 20

// Server exposes the analysis engine over HTTP.
type Server struct {
	Engine        *analysis.Engine
	Collector     *collector.Collector // nil disables GET /portfolio
	Recorder      recorder.Recorder
	MaxConcurrent int
	Now           func() time.Time

	cfg     config.ServerConfig
	limiter *rate.Limiter
}

// New creates a Server. rec may be a NoopRecorder.
func New(cfg config.ServerConfig, engine *analysis.Engine, col *collector.Collector, rec recorder.Recorder, maxConcurrent int) *Server {
	return &Server{
		Engine:        engine,
		Collector:     col,
		Recorder:      rec,
		MaxConcurrent: maxConcurrent,
		Now:           time.Now,
		cfg:           cfg,
		limiter:       rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
	}
}

// Handler builds the chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(s.rateLimit)

	r.Get("/health", s.handleHealth)
	r.Post("/analyze", s.handleAnalyze)
	r.Post("/analyze/batch", s.handleBatch)
	r.Get("/portfolio", s.handlePortfolio)
	r.Get("/policies/{id}", s.handlePolicy)
	r.Get("/scans", s.handleScans)
	return r
}

// ListenAndServe runs the HTTP server until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("server: listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return eris.Wrap(err, "server: listen")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	zap.L().Info("server: shutting down")
	return eris.Wrap(srv.Shutdown(shutdownCtx), "server: shutdown")
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("server: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

type analyzeRequest struct {
	Policies []model.PolicyPayload `json:"policies"`
	Now      string                `json:"now,omitempty"`
}

type batchRequest struct {
	Portfolios []struct {
		Owner    string                `json:"owner"`
		Policies []model.PolicyPayload `json:"policies"`
	} `json:"portfolios"`
}

type batchResponse struct {
	Results []analysis.BatchResult `json:"results"`
}

type portfolioResponse struct {
	Source       string                   `json:"source"`
	PolicyCount  int                      `json:"policyCount"`
	TotalPremium string                   `json:"totalPremium"`
	ScanID       string                   `json:"scanId,omitempty"`
	Analysis     *model.PortfolioAnalysis `json:"analysis"`
}

type errorResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	now := s.Now()
	if req.Now != "" {
		t, err := time.Parse(time.RFC3339, req.Now)
		if err != nil {
			writeError(w, http.StatusBadRequest, "now must be an RFC3339 timestamp")
			return
		}
		now = t
	}

	policies, err := model.RecordsFromPayloads(req.Policies)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := s.Engine.Evaluate(policies, now)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	portfolios := make([]analysis.Owned, 0, len(req.Portfolios))
	for _, p := range req.Portfolios {
		policies, err := model.RecordsFromPayloads(p.Policies)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("owner %q: %v", p.Owner, err))
			return
		}
		portfolios = append(portfolios, analysis.Owned{Owner: p.Owner, Policies: policies})
	}

	results, err := analysis.AnalyzeBatch(r.Context(), s.Engine, portfolios, s.Now, s.MaxConcurrent)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, batchResponse{Results: results})
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	if s.Collector == nil {
		writeError(w, http.StatusNotFound, "no policy source configured")
		return
	}
	policies, err := s.Collector.Collect(r.Context())
	if err != nil {
		zap.L().Error("server: collect portfolio", zap.Error(err))
		writeError(w, http.StatusBadGateway, "could not fetch policies")
		return
	}
	result, err := s.Engine.Evaluate(policies, s.Now())
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	total := calculator.TotalPremium(policies)
	resp := portfolioResponse{
		Source:       s.Collector.Fetcher.Name(),
		PolicyCount:  len(policies),
		TotalPremium: total.String(),
		Analysis:     result,
	}
	id, err := s.Recorder.RecordScan(&recorder.ScanRecord{
		Source:       resp.Source,
		PolicyCount:  len(policies),
		TotalPremium: total,
		Analysis:     result,
	})
	if err != nil {
		zap.L().Error("server: record scan", zap.Error(err))
	}
	resp.ScanID = id
	writeJSON(w, http.StatusOK, resp)
}

// policyGetter is implemented by sources that can fetch one policy directly.
type policyGetter interface {
	FetchPolicy(ctx context.Context, id string) (model.PolicyRecord, error)
}

type policyResponse struct {
	Policy        model.PolicyPayload `json:"policy"`
	Category      string              `json:"category"`
	Status        string              `json:"status"`
	DaysRemaining *int                `json:"daysRemaining,omitempty"`
}

func (s *Server) handlePolicy(w http.ResponseWriter, r *http.Request) {
	if s.Collector == nil {
		writeError(w, http.StatusNotFound, "no policy source configured")
		return
	}
	id := chi.URLParam(r, "id")

	var (
		policy model.PolicyRecord
		found  bool
	)
	if g, ok := s.Collector.Fetcher.(policyGetter); ok {
		p, err := g.FetchPolicy(r.Context(), id)
		if err != nil {
			zap.L().Warn("server: fetch policy", zap.String("id", id), zap.Error(err))
			writeError(w, http.StatusNotFound, fmt.Sprintf("policy %q not found", id))
			return
		}
		policy, found = p, true
	} else {
		policies, err := s.Collector.Collect(r.Context())
		if err != nil {
			zap.L().Error("server: collect portfolio", zap.Error(err))
			writeError(w, http.StatusBadGateway, "could not fetch policies")
			return
		}
		for _, p := range policies {
			if p.ID == id {
				policy, found = p, true
				break
			}
		}
	}
	if !found {
		writeError(w, http.StatusNotFound, fmt.Sprintf("policy %q not found", id))
		return
	}

	now := s.Now()
	resp := policyResponse{
		Policy:   model.PayloadFromRecord(policy),
		Category: policy.Category().Label(),
		Status:   string(calculator.ExpiryStatus(policy.ExpiryDate, now, s.Engine.Thresholds.UpcomingWindowDays)),
	}
	if policy.ExpiryDate != nil {
		days := calculator.DaysRemaining(*policy.ExpiryDate, now)
		resp.DaysRemaining = &days
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleScans(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}
	scans, err := s.Recorder.RecentScans(limit)
	if err != nil {
		zap.L().Error("server: recent scans", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not load scan history")
		return
	}
	if scans == nil {
		scans = []recorder.ScanSummary{}
	}
	writeJSON(w, http.StatusOK, scans)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Status: status, Message: message})
}
