// Package app собирает киоск витрины: хранилища, склад, корзину, gRPC-сервис и фоновые воркеры.
package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	healthcheck "github.com/vladislavdragonenkov/farmstand/internal/health"
	grpcsvc "github.com/vladislavdragonenkov/farmstand/internal/service/grpc"
	"github.com/vladislavdragonenkov/farmstand/internal/service/outbox"
	"github.com/vladislavdragonenkov/farmstand/internal/service/retention"
	"github.com/vladislavdragonenkov/farmstand/internal/version"
)

// Run запускает киоск и блокируется до отмены ctx или падения gRPC-сервера.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")
	cfg = LoadRemoteConfig(ctx, cfg, logger)

	deps, err := NewDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.WithError(err).Warn("failed to close dependencies")
		}
	}()

	kiosk := NewKiosk(cfg, deps, logger)
	stopWorkers := StartWorkers(ctx, cfg, deps, kiosk, logger)
	defer stopWorkers()

	serviceLogger := logger.WithField("layer", "grpc")
	storefrontService := grpcsvc.NewStorefrontService(kiosk.Front, serviceLogger)
	grpcMetrics := promgrpc.NewServerMetrics()
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(grpcMetrics.UnaryServerInterceptor()))
	if err := prometheus.Register(grpcMetrics); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok2 := are.ExistingCollector.(*promgrpc.ServerMetrics); ok2 {
				grpcMetrics = existing
			}
		} else {
			logger.WithError(err).Warn("failed to register grpc metrics")
		}
	}

	grpcsvc.RegisterStorefrontServer(grpcServer, storefrontService)
	grpcMetrics.InitializeMetrics(grpcServer)
	reflection.Register(grpcServer)

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(grpcsvc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	healthHandler := newHealthHandler(cfg, deps, kiosk)
	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		shutdownHTTP(metricsSrv, logger)
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("gRPC сервер слушает %s", cfg.GRPCAddr)
		errCh <- grpcServer.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем gRPC сервер")
		stoppedCh := make(chan struct{})
		go func() {
			healthServer.Shutdown()
			grpcServer.GracefulStop()
			close(stoppedCh)
		}()
		select {
		case <-stoppedCh:
		case <-time.After(5 * time.Second):
			logger.Warn("graceful stop превысил таймаут, принудительно останавливаем")
			grpcServer.Stop()
		}
		shutdownHTTP(metricsSrv, logger)
		return ctx.Err()
	case err := <-errCh:
		shutdownHTTP(metricsSrv, logger)
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	}
}

// StartWorkers запускает обновление склада, доставку outbox и очистку журнала.
// Возвращённая функция останавливает их и ждёт завершения.
func StartWorkers(ctx context.Context, cfg Config, deps *Dependencies, kiosk *Kiosk, logger *log.Entry) func() {
	workersCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup

	kiosk.Poller.Start(workersCtx)

	if deps.Publisher != nil {
		worker := outbox.NewWorker(deps.Outbox, deps.Publisher,
			outbox.WithLogger(logger.WithField("layer", "outbox")),
			outbox.WithDLQPublisher(deps.DLQPublisher),
			outbox.WithMetrics(outbox.NewMetrics(prometheus.DefaultRegisterer)),
			outbox.WithPollInterval(cfg.OutboxPollInterval),
			outbox.WithBatchSize(cfg.OutboxBatchSize),
			outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
			outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
		)
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker.Run(workersCtx)
		}()
	}

	if pruner, ok := deps.Journal.(retention.Pruner); ok {
		worker := retention.NewWorker(pruner,
			retention.WithLogger(logger.WithField("layer", "retention")),
			retention.WithRetention(cfg.JournalRetention),
			retention.WithInterval(cfg.RetentionInterval),
			retention.WithBatchSize(cfg.RetentionBatchSize),
		)
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker.Run(workersCtx)
		}()
	}

	return func() {
		cancel()
		kiosk.Poller.Stop()
		wg.Wait()
	}
}

// newHealthHandler регистрирует проверки: свежесть склада и доступность хранилищ.
func newHealthHandler(cfg Config, deps *Dependencies, kiosk *Kiosk) *healthcheck.Handler {
	handler := healthcheck.NewHandler(version.Current().Version)
	handler.RegisterChecker("stock", healthcheck.NewFreshnessChecker("stock", 3*cfg.StockRefreshInterval, func() time.Time {
		return kiosk.Store.Current().FetchedAt()
	}))
	if deps.SQL != nil {
		handler.RegisterChecker("journal", healthcheck.NewPingChecker("journal", 2*time.Second, deps.SQL.Ping))
	}
	if deps.Redis != nil {
		redisClient := deps.Redis
		handler.RegisterChecker("sessions", healthcheck.NewPingChecker("sessions", 2*time.Second, func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}))
	}
	return handler
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus и health endpoints.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("metrics shutdown with error")
	}
}
