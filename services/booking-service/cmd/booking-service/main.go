package main

import (
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/grpc"

	"github.com/md-rashed-zaman/spacebook/libs/auth"
	libconfig "github.com/md-rashed-zaman/spacebook/libs/config"
	"github.com/md-rashed-zaman/spacebook/libs/db"
	"github.com/md-rashed-zaman/spacebook/libs/grpcx"
	"github.com/md-rashed-zaman/spacebook/libs/httpx"
	"github.com/md-rashed-zaman/spacebook/libs/kafkax"
	otelx "github.com/md-rashed-zaman/spacebook/libs/otel"
	"github.com/md-rashed-zaman/spacebook/libs/runtime"
	"github.com/md-rashed-zaman/spacebook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/spacebook/services/booking-service/internal/config"
	"github.com/md-rashed-zaman/spacebook/services/booking-service/internal/grpcserver"
	"github.com/md-rashed-zaman/spacebook/services/booking-service/internal/handlers"
	"github.com/md-rashed-zaman/spacebook/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/spacebook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/spacebook/services/booking-service/internal/storage"
)

func main() {
	cfg, err := config.Load(os.Getenv(libconfig.PathEnv))
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(cfg.ServiceName, cfg.Env)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, cfg.ServiceName, cfg.Tracing)
	if err != nil {
		logger.Error("otel setup failed", "err", err)
		otelShutdown = nil
	}

	if cfg.Database.Migrate {
		if err := db.Migrate(storage.Migrations, storage.MigrationsDir, cfg.Database.URL); err != nil {
			logger.Error("db migration failed", "err", err)
			panic(err)
		}
	}

	pool, err := db.Open(ctx, cfg.Database.URL, db.PoolOptions{})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	window, err := cfg.Window()
	if err != nil {
		panic(err)
	}

	outboxRepo := outbox.NewRepository()
	repo := storage.NewBookingRepository(pool, outboxRepo)
	manager := booking.NewManager(repo, window,
		booking.WithLogger(logger),
		booking.WithRecorder(metrics.Recorder{}),
		booking.WithDefaultSpaces(cfg.Schedule.DefaultSpaces),
	)

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   cfg.Kafka.Brokers,
		PollEvery: cfg.Kafka.OutboxPollEvery,
		BatchSize: cfg.Kafka.OutboxBatchSize,
		Published: metrics.OutboxPublishedTotal,
	})
	go outboxPublisher.Run(ctx)

	checks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
	}
	if brokers := kafkax.SplitBrokers(cfg.Kafka.Brokers); len(brokers) > 0 {
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}

	var rateLimit httpx.Middleware
	if addr := strings.TrimSpace(cfg.Redis.Addr); addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: httpx.RedisReadyCheck(rdb)})
		rateLimit = httpx.NewRedisRateLimiter(rdb, cfg.RateLimit.PerMinute, time.Minute, "spacebook:rl").
			Middleware(logger, cfg.RateLimit.FailOpen)
	} else {
		logger.Warn("REDIS_ADDR not set; rate limits apply per instance")
		rateLimit = httpx.NewRateLimiter(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst).Middleware()
	}

	var jwks *auth.JWKSClient
	if url := strings.TrimSpace(cfg.Auth.JWKSURL); url != "" {
		jwks = auth.NewJWKSClient(url, cfg.Auth.JWKSCacheTTL)
		if err := jwks.Prefetch(ctx); err != nil {
			logger.Warn("jwks prefetch failed; keys load on first request", "err", err)
		}
	}
	verifier := auth.NewVerifier(cfg.Auth.JWTSecret, jwks)
	if verifier == nil {
		logger.Warn("JWT_SECRET and JWKS_URL not set; api routes are unauthenticated")
	}

	bookingHandler := handlers.NewBookingHandler(manager, logger)
	api := httpx.Chain(bookingHandler.Routes(verifier),
		rateLimit,
		httpx.WithBodyLimit(cfg.HTTP.BodyLimitBytes),
		httpx.WithTimeout(cfg.HTTP.RequestTimeout),
	)

	base := runtime.NewBaseMuxWithReady(checks...)
	router := chi.NewRouter()
	router.Use(httpx.WithMetrics(routePattern))
	router.Mount("/api/v1", api)
	router.Handle("/healthz", base)
	router.Handle("/readyz", base)
	router.Handle("/metrics", promhttp.Handler())

	httpHandler := httpx.Chain(router,
		httpx.WithRecover(logger),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: cfg.HTTP.CORSAllowOrigins,
			AllowedHeaders: []string{"Authorization", "Content-Type", httpx.RequestIDHeader},
			ExposedHeaders: []string{httpx.RequestIDHeader, "Retry-After"},
		}),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
	srv := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcSrv := grpcx.NewServer(grpc.ChainUnaryInterceptor(grpcx.UnaryServerLoggingInterceptor(logger)))
	health := grpcserver.NewHealth(logger, 10*time.Second, checks...)
	health.Register(grpcSrv)
	go health.Run(ctx)
	if _, err := grpcserver.Serve(ctx, logger, ":"+cfg.HTTP.GRPCPort, grpcSrv); err != nil {
		logger.Error("grpc listen failed", "err", err)
		panic(err)
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	if err := runtime.Shutdown(10*time.Second, srv.Shutdown, otelShutdown); err != nil {
		logger.Error("shutdown error", "err", err)
	}
	logger.Info("booking service stopped")
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}
