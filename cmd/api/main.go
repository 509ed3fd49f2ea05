package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/noah-isme/toko-promo/internal/auth"
	"github.com/noah-isme/toko-promo/internal/config"
	"github.com/noah-isme/toko-promo/internal/discount"
	"github.com/noah-isme/toko-promo/internal/events"
	"github.com/noah-isme/toko-promo/internal/health"
	"github.com/noah-isme/toko-promo/internal/obs"
	"github.com/noah-isme/toko-promo/internal/ratelimit"
	"github.com/noah-isme/toko-promo/internal/repo"
	"github.com/noah-isme/toko-promo/internal/resilience"
)

const serviceName = "promo-api"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Obs.LogFormat, cfg.Obs.LogLevel).With().
		Str("service", serviceName).
		Str("env", cfg.AppEnv).
		Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error().Err(err).Msg("promo-api stopped")
		os.Exit(1)
	}
}

// run wires dependencies, serves HTTP until ctx is cancelled and then drains.
func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	obs.MustRegisterDomainMetrics(cfg.Obs.MetricsNamespace, nil)
	resilience.MustRegisterMetrics(nil)

	tracing := cfg.Obs.TracingEnabled
	if tracing {
		shutdown, err := obs.InitTracer(ctx, obs.TracingConfig{
			ServiceName:   serviceName,
			Environment:   cfg.AppEnv,
			Exporter:      cfg.Obs.TracingExporter,
			Endpoint:      cfg.Obs.OTLPEndpoint,
			SamplingRatio: cfg.Obs.SamplingRatio,
		})
		if err != nil {
			logger.Error().Err(err).Msg("tracing disabled")
			tracing = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	startCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := openPostgres(startCtx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	rdb, err := openRedis(startCtx, cfg.RedisURL, cfg.Obs.MetricsEnabled, logger)
	if err != nil {
		return err
	}
	defer rdb.Close()

	probes := map[string]health.Probe{
		"db":    func(ctx context.Context) error { return pool.Ping(ctx) },
		"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	}

	eventLogger := logger.With().Str("component", "discount_events").Logger()
	var sink discount.EventSink = events.LogSink{Logger: eventLogger}
	if cfg.KafkaEnabled() {
		kafka, err := kgo.NewClient(
			kgo.SeedBrokers(cfg.KafkaBrokers...),
			kgo.ClientID(serviceName),
			kgo.DefaultProduceTopic(cfg.KafkaDiscountTopic),
			kgo.ProducerLinger(50*time.Millisecond),
		)
		if err != nil {
			return fmt.Errorf("kafka client: %w", err)
		}
		defer closeKafka(kafka, logger)
		sink = &events.Bus{Producer: kafka, Topic: cfg.KafkaDiscountTopic, Logger: eventLogger}
		probes["kafka"] = func(ctx context.Context) error { return kafka.Ping(ctx) }
	}

	store := repo.NewCouponStore(pool)
	scopes := &repo.ScopeCache{
		Source: store,
		Client: rdb,
		TTL:    cfg.ScopeCacheTTL,
		Logger: logger.With().Str("component", "scope_cache").Logger(),
		Breaker: resilience.NewBreaker(resilience.BreakerConfig{
			Name:    "scope_cache",
			OpenFor: 10 * time.Second,
			Logger:  logger,
		}),
	}
	solver, err := discount.NewSolver(discount.SolverConfig{
		Coupons:    store,
		Scopes:     scopes,
		Pool:       discount.NewPool(cfg.DiscountWorkers, cfg.DiscountQueueSize),
		Deadline:   cfg.DiscountDeadline,
		MaxCoupons: cfg.DiscountMaxCoupons,
		Events:     sink,
		Logger:     &logger,
	})
	if err != nil {
		return fmt.Errorf("discount solver: %w", err)
	}

	verifier, err := auth.NewVerifier(auth.VerifierConfig{
		Secret:    cfg.JWTSecret,
		Issuer:    cfg.JWTIssuer,
		ClockSkew: 30 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("token verifier: %w", err)
	}

	var limit *ratelimit.Handler
	if cfg.RateLimitEnabled() {
		lim, err := ratelimit.New(rdb, "promo:rl:", cfg.RateLimitResolve)
		if err != nil {
			return err
		}
		limit = &ratelimit.Handler{
			Limiter: lim,
			Key:     ratelimit.UserOrIP,
			OnError: func(err error) { logger.Warn().Err(err).Msg("rate limiter unavailable") },
		}
	}

	var httpMetrics *obs.HTTPMetrics
	if cfg.Obs.MetricsEnabled {
		httpMetrics = obs.NewHTTPMetrics(cfg.Obs.MetricsNamespace, obs.ParseBucketsCSV(cfg.Obs.MetricsBuckets), nil)
	}

	var profiler http.Handler
	if cfg.Obs.PprofEnabled {
		profiler = newProfiler(cfg.Obs.PprofUser, cfg.Obs.PprofPass)
	}

	srv := &http.Server{
		Addr: cfg.HTTPAddr(),
		Handler: newRouter(routerDeps{
			Logger:         logger,
			Discount:       &discount.Handler{Solver: solver, Validate: validator.New()},
			Auth:           auth.Middleware{Tokens: verifier},
			RateLimit:      limit,
			Health:         health.Handler{Probes: probes, Timeout: cfg.HealthReadyTimeout},
			HTTPMetrics:    httpMetrics,
			Tracing:        tracing,
			Metrics:        cfg.Obs.MetricsEnabled,
			Pprof:          profiler,
			AllowedOrigins: cfg.CORSAllowedOrigins,
			MaxBodyBytes:   cfg.HTTPMaxBodyBytes,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	health.SetReady(false)
	logger.Info().Msg("shutting down")
	// in-flight resolutions finish within their deadline
	drainCtx, cancelDrain := context.WithTimeout(context.Background(), cfg.DiscountDeadline+5*time.Second)
	defer cancelDrain()
	if err := srv.Shutdown(drainCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

func openPostgres(ctx context.Context, url string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	poolCfg.ConnConfig.Tracer = obs.PGXTracer{}
	if poolCfg.ConnConfig.RuntimeParams == nil {
		poolCfg.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolCfg.ConnConfig.RuntimeParams["application_name"] = serviceName

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

func openRedis(ctx context.Context, url string, metrics bool, logger zerolog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(rdb); err != nil {
		logger.Warn().Err(err).Msg("instrument redis tracing")
	}
	if metrics {
		if err := redisotel.InstrumentMetrics(rdb); err != nil {
			logger.Warn().Err(err).Msg("instrument redis metrics")
		}
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

func closeKafka(client *kgo.Client, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Flush(ctx); err != nil {
		logger.Error().Err(err).Msg("flush kafka producer")
	}
	client.Close()
}

// newProfiler serves net/http/pprof, behind basic auth when a user is set.
func newProfiler(user, pass string) http.Handler {
	r := chi.NewRouter()
	if user != "" {
		r.Use(middleware.BasicAuth("pprof", map[string]string{user: pass}))
	}
	r.Mount("/", middleware.Profiler())
	return r
}
