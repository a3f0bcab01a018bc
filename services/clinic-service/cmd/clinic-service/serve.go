package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/clinicflow/clinicflow/libs/db"
	"github.com/clinicflow/clinicflow/libs/grpcx"
	"github.com/clinicflow/clinicflow/libs/httpx"
	"github.com/clinicflow/clinicflow/libs/kafkax"
	otelx "github.com/clinicflow/clinicflow/libs/otel"
	"github.com/clinicflow/clinicflow/libs/runtime"
	"github.com/clinicflow/clinicflow/services/clinic-service/internal/booking"
	"github.com/clinicflow/clinicflow/services/clinic-service/internal/config"
	"github.com/clinicflow/clinicflow/services/clinic-service/internal/consumer"
	"github.com/clinicflow/clinicflow/services/clinic-service/internal/handlers"
	"github.com/clinicflow/clinicflow/services/clinic-service/internal/inbox"
	"github.com/clinicflow/clinicflow/services/clinic-service/internal/memstore"
	"github.com/clinicflow/clinicflow/services/clinic-service/internal/outbox"
	"github.com/clinicflow/clinicflow/services/clinic-service/internal/schedule"
	"github.com/clinicflow/clinicflow/services/clinic-service/internal/slots"
	"github.com/clinicflow/clinicflow/services/clinic-service/internal/storage"
	"github.com/clinicflow/clinicflow/services/clinic-service/internal/store"
)

func serveCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API, gRPC health server and event workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*envFile)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(parent context.Context, cfg config.Config) error {
	logger := runtime.NewLogger(cfg.ServiceName, cfg.LogLevel)

	ctx, stop := runtime.SignalContext(parent)
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, cfg.OTel)
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	checks := []runtime.ReadyCheck{
		{Name: "kafka", Check: kafkax.ReadyCheck(cfg.KafkaBrokers)},
	}

	var (
		st        store.Store
		inboxRepo *inbox.Repository
	)
	switch cfg.StoreDriver {
	case config.DriverMemory:
		logger.Warn("using in-memory store; data is lost on restart and events are only logged")
		mem := memstore.New()
		go logMemoryEvents(ctx, mem, logger, 2*time.Second)
		st = mem
	default:
		pool, err := db.Open(ctx, cfg.DatabaseURL, db.PoolOptions{MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
		if err != nil {
			return fmt.Errorf("db connection failed: %w", err)
		}
		defer pool.Close()
		checks = append(checks, runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)})

		outboxRepo := outbox.NewRepository()
		st = storage.NewRepository(pool, outboxRepo)

		publisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
			Brokers:   cfg.KafkaBrokers,
			PollEvery: 2 * time.Second,
			BatchSize: 50,
		})
		go publisher.Run(ctx)

		inboxRepo = inbox.NewRepository(pool)
	}

	engine := slots.NewEngine(st, st, cfg.Location, slots.WithDoctors(st))
	coord := booking.NewCoordinator(st, engine,
		booking.WithMatchPolicy(cfg.MatchPolicy),
		booking.WithLogger(logger),
	)
	if inboxRepo != nil {
		startPrescriptionConsumer(ctx, cfg, logger, inboxRepo, coord)
	}
	sched := schedule.NewService(st, logger)

	var public []httpx.Middleware
	if cfg.RateLimitPerMinute > 0 {
		limiter, check, err := newLimiter(cfg)
		if err != nil {
			return err
		}
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: check})
		public = append(public, httpx.WithRateLimit(limiter, logger, true))
	}

	mux := runtime.NewBaseMuxWithReady(checks...)
	handlers.Register(mux,
		handlers.NewPublicHandler(engine, coord, logger),
		handlers.NewStaffHandler(coord, sched, engine, logger),
		cfg.JWTSecret,
		public...,
	)

	httpHandler := httpx.Chain(mux,
		httpx.WithRecover(logger),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: cfg.Origins(),
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", httpx.RequestIDHeader},
			MaxAge:         10 * time.Minute,
		}),
		httpx.WithBodyLimit(1<<20),
		httpx.WithTimeout(15*time.Second),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, cfg.ServiceName)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("http server starting", "addr", srv.Addr, "store", cfg.StoreDriver, "timezone", cfg.Location.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "err", err)
			stop()
		}
	}()

	grpcSrv, healthSrv := grpcx.NewServer(logger)
	if cfg.GRPCPort != "" {
		lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
		go func() {
			logger.Info("grpc server starting", "addr", lis.Addr().String())
			if err := grpcSrv.Serve(lis); err != nil {
				logger.Error("grpc server error", "err", err)
			}
		}()
	}

	<-ctx.Done()
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	grpcSrv.GracefulStop()
	logger.Info("servers stopped")
	return nil
}

// newLimiter prefers Redis so the limit is shared across replicas.
func newLimiter(cfg config.Config) (httpx.Limiter, func(context.Context) error, error) {
	if strings.TrimSpace(cfg.RedisURL) == "" {
		return httpx.NewMemoryRateLimiter(cfg.RateLimitPerMinute, time.Minute), nil, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	limiter := httpx.NewRedisRateLimiter(rdb, cfg.RateLimitPerMinute, time.Minute, cfg.ServiceName+":public")
	return limiter, httpx.RedisReadyCheck(rdb), nil
}

func startPrescriptionConsumer(ctx context.Context, cfg config.Config, logger *slog.Logger, inboxRepo *inbox.Repository, completer consumer.Completer) {
	if len(kafkax.SplitBrokers(cfg.KafkaBrokers)) == 0 || strings.TrimSpace(cfg.KafkaPrescriptionTopic) == "" {
		logger.Warn("prescription consumer disabled (no kafka brokers or topic configured)")
		return
	}
	c := consumer.New(logger, inboxRepo, consumer.Config{
		Brokers: cfg.KafkaBrokers,
		GroupID: cfg.KafkaGroupID,
		Topic:   cfg.KafkaPrescriptionTopic,
	}, consumer.PrescriptionHandler(completer, logger))
	go c.Run(ctx)
}

// logMemoryEvents stands in for the outbox publisher when nothing is
// persisted: committed events are drained and logged.
func logMemoryEvents(ctx context.Context, mem *memstore.Store, logger *slog.Logger, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, evt := range mem.DrainEvents() {
				logger.Info("event committed", "event_type", evt.EventType, "aggregate_id", evt.AggregateID)
			}
		}
	}
}
