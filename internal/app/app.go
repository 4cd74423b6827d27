// Package app собирает сервис из частей: хранилище, сервисы, сага,
// HTTP-граница, фоновые воркеры и серверы метрик.
package app

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderhub/internal/cache"
	"github.com/vladislavdragonenkov/orderhub/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/orderhub/internal/health"
	"github.com/vladislavdragonenkov/orderhub/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/orderhub/internal/metrics"
	"github.com/vladislavdragonenkov/orderhub/internal/service/customers"
	"github.com/vladislavdragonenkov/orderhub/internal/service/idempotency"
	"github.com/vladislavdragonenkov/orderhub/internal/service/order"
	"github.com/vladislavdragonenkov/orderhub/internal/service/outbox"
	"github.com/vladislavdragonenkov/orderhub/internal/service/product"
	"github.com/vladislavdragonenkov/orderhub/internal/service/saga"
	"github.com/vladislavdragonenkov/orderhub/internal/transport/httpapi"
	"github.com/vladislavdragonenkov/orderhub/internal/version"
)

// Run запускает сервис и блокируется до отмены ctx или фатальной ошибки.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	store, storeCheck, closeStore, err := initStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	sagaMetrics := metrics.NewSagaMetrics()
	orders := order.NewService(store,
		order.WithLogger(logger.WithField("layer", "orders")),
		order.WithMetrics(sagaMetrics),
	)
	products := product.NewService(store, logger.WithField("layer", "products"))

	var validator domain.CustomerValidator
	if cfg.CustomersAPIURL != "" {
		validator = customers.NewClient(cfg.CustomersAPIURL, cfg.CustomersAPIToken, logger.WithField("layer", "customers"))
	} else {
		logger.Warn("customers API is not configured, using mock validator")
		validator = customers.NewMockValidator()
	}

	orchestrator := saga.NewOrchestrator(orders, validator, logger.WithField("layer", "saga"))

	handlerOptions := []httpapi.HandlerOption{
		httpapi.WithLogger(logger.WithField("layer", "http")),
	}
	var respCache *cache.RedisCache
	if cfg.RedisAddr != "" {
		respCache = cache.NewRedisCache(cfg.RedisAddr, "orderhub")
		handlerOptions = append(handlerOptions, httpapi.WithResponseCache(respCache))
		logger.WithField("addr", cfg.RedisAddr).Info("redis response cache enabled")
	}
	defer func() {
		if respCache != nil {
			_ = respCache.Close()
		}
	}()

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	if storeCheck != nil {
		healthHandler.RegisterChecker("storage", healthcheck.NewCheckerFunc("storage", storeCheck))
	}

	handler := httpapi.NewHandler(orders, products, orchestrator, handlerOptions...)
	router := httpapi.NewRouter(handler, healthHandler)

	kafkaProducer := initKafkaProducer(cfg.KafkaBrokers, logger)
	defer closeKafka(kafkaProducer, logger)

	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()
	var workers sync.WaitGroup

	if kafkaProducer != nil {
		publisher := kafka.NewOutboxPublisher(kafkaProducer, kafka.TopicOrderEvents)
		dlqPublisher := kafka.NewOutboxPublisher(kafkaProducer, kafka.TopicOrderEvents+".dlq")
		outboxWorker := outbox.NewWorker(store.Outbox(), publisher,
			outbox.WithLogger(logger.WithField("layer", "outbox")),
			outbox.WithDLQPublisher(dlqPublisher),
		)
		workers.Add(1)
		go func() {
			defer workers.Done()
			outboxWorker.Run(workerCtx)
		}()
	}

	cleanupWorker := idempotency.NewCleanupWorker(store.Idempotency(),
		idempotency.WithLogger(logger.WithField("layer", "idempotency")),
	)
	workers.Add(1)
	go func() {
		defer workers.Done()
		cleanupWorker.Run(workerCtx)
	}()

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP API слушает %s", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	shutdown := func() {
		shutdownHTTP(srv, logger)
		shutdownHTTP(metricsSrv, logger)
		stopWorkers()
		workers.Wait()
	}

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP сервер")
		shutdown()
		return ctx.Err()
	case err := <-errCh:
		shutdown()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// startMetricsServer поднимает отдельный listener с /metrics и пробами.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
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
		logger.WithError(err).Warn("http shutdown with error")
	}
}
