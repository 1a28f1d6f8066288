package main

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"slidestat/internal/analytics"
	"slidestat/internal/config"
	"slidestat/internal/model"
	"slidestat/internal/persistence"
)

const maxBodyBytes = 8 << 20

type resultCache interface {
	Check(ctx context.Context) error
	Fetch(ctx context.Context, req model.Request) (*model.Result, error)
	Save(ctx context.Context, req model.Request, res model.Result) error
	Stop() error
}

type app struct {
	analyzer *analytics.Analyzer
	cache    resultCache
	log      zerolog.Logger
	registry *prometheus.Registry
	prom     promMetrics
}

type promMetrics struct {
	computeTotal    *prometheus.CounterVec
	badReqTotal     prometheus.Counter
	cacheHitTotal   prometheus.Counter
	cacheErrTotal   prometheus.Counter
	procTimeSeconds prometheus.Histogram
	seriesPoints    prometheus.Histogram
}

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the series functions over HTTP",
		Long: `Serve the series functions over HTTP.

Endpoints:
  POST /compute     compute one series
  GET  /functions   list function names
  GET  /analytics   summary of the latest computation
  GET  /health      liveness, including the result cache when configured
  GET  /metrics     Prometheus metrics`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	return cmd
}

func runServe(parent context.Context, cfg config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	setLogLevel(cfg.LogLevel)

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	var cache resultCache
	if cfg.CacheEnabled() {
		store := persistence.NewResultCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.CacheTTL)
		if err := store.Check(ctx); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis ping failed")
		}
		cache = store
	}

	service := newApp(analytics.NewAnalyzer(log.Logger), cache, log.Logger)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           service.router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Bool("cache", cache != nil).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("listen failed")
			cancel()
		}
	}()

	awaitSignal(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown error")
	}
	if cache != nil {
		if err := cache.Stop(); err != nil {
			log.Error().Err(err).Msg("redis close error")
		}
	}
	return nil
}

func newApp(analyzer *analytics.Analyzer, cache resultCache, logger zerolog.Logger) *app {
	service := &app{
		analyzer: analyzer,
		cache:    cache,
		log:      logger.With().Str("component", "http").Logger(),
		registry: prometheus.NewRegistry(),
		prom:     buildPromMetrics(),
	}
	service.prom.register(service.registry)
	return service
}

func buildPromMetrics() promMetrics {
	return promMetrics{
		computeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "compute_total",
			Help: "Total series computed, by function",
		}, []string{"func"}),
		badReqTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "compute_bad_request_total",
			Help: "Total rejected compute requests",
		}),
		cacheHitTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "compute_cache_hit_total",
			Help: "Total compute requests served from the result cache",
		}),
		cacheErrTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "redis_error_total",
			Help: "Total redis errors",
		}),
		procTimeSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "compute_processing_seconds",
			Help:    "Latency for computing a series",
			Buckets: prometheus.DefBuckets,
		}),
		seriesPoints: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "compute_series_points",
			Help:    "Number of input points per compute request",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		}),
	}
}

func (m promMetrics) register(reg prometheus.Registerer) {
	reg.MustRegister(
		m.computeTotal,
		m.badReqTotal,
		m.cacheHitTotal,
		m.cacheErrTotal,
		m.procTimeSeconds,
		m.seriesPoints,
	)
}

func (a *app) router() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", a.healthHandler)
	mux.HandleFunc("/compute", a.computeHandler)
	mux.HandleFunc("/functions", a.functionsHandler)
	mux.HandleFunc("/analytics", a.analyticsHandler)
	return mux
}

func (a *app) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if a.cache != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := a.cache.Check(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("redis unavailable"))
			return
		}
	}

	_, _ = w.Write([]byte("ok"))
}

func (a *app) computeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	defer func() {
		a.prom.procTimeSeconds.Observe(time.Since(start).Seconds())
	}()

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req model.Request
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&req); err != nil {
		a.prom.badReqTotal.Inc()
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("invalid json"))
		return
	}

	if !isRequestValid(req) {
		a.prom.badReqTotal.Inc()
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("invalid values"))
		return
	}
	a.prom.seriesPoints.Observe(float64(len(req.Values)))

	if cached := a.fetchCached(r.Context(), req); cached != nil {
		a.prom.cacheHitTotal.Inc()
		w.Header().Set("X-Cache", "hit")
		respondJSON(w, cached)
		return
	}

	res, err := a.analyzer.Run(req)
	if err != nil {
		a.prom.badReqTotal.Inc()
		status := http.StatusBadRequest
		if errors.Is(err, analytics.ErrUnknownFunc) {
			status = http.StatusNotFound
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(err.Error()))
		return
	}
	a.prom.computeTotal.WithLabelValues(req.Func).Inc()

	a.saveCached(r.Context(), req, res)
	respondJSON(w, res)
}

func (a *app) fetchCached(parent context.Context, req model.Request) *model.Result {
	if a.cache == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(parent, 2*time.Second)
	defer cancel()

	res, err := a.cache.Fetch(ctx, req)
	if err != nil {
		a.prom.cacheErrTotal.Inc()
		a.log.Warn().Err(err).Msg("result cache fetch failed")
		return nil
	}
	return res
}

func (a *app) saveCached(parent context.Context, req model.Request, res model.Result) {
	if a.cache == nil {
		return
	}

	ctx, cancel := context.WithTimeout(parent, 2*time.Second)
	defer cancel()

	if err := a.cache.Save(ctx, req, res); err != nil {
		a.prom.cacheErrTotal.Inc()
		a.log.Warn().Err(err).Msg("result cache save failed")
	}
}

func isRequestValid(req model.Request) bool {
	for _, v := range req.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	if req.Smoothing != nil && math.IsNaN(*req.Smoothing) {
		return false
	}
	return true
}

func (a *app) functionsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	respondJSON(w, a.analyzer.Funcs())
}

func (a *app) analyticsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	respondJSON(w, a.analyzer.Latest())
}

func respondJSON(w http.ResponseWriter, v any) {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("encode error"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(append(payload, '\n'))
}

func awaitSignal(ctx context.Context) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case <-stop:
		log.Info().Msg("shutdown signal received")
	case <-ctx.Done():
	}
}
