package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hirewatch/screening-engine/internal/bootstrap"
	"github.com/hirewatch/screening-engine/internal/config"
	"github.com/hirewatch/screening-engine/internal/observability/logging"
	"github.com/hirewatch/screening-engine/internal/observability/metrics"
)

const serviceName = "screening-worker"

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{})
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	if cfg.WorkerMetricsPort != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", workerMetrics.Handler())
			log.Printf("worker metrics listening on :%s", cfg.WorkerMetricsPort)
			if err := http.ListenAndServe(":"+cfg.WorkerMetricsPort, mux); err != nil && err != http.ErrServerClosed {
				log.Printf("worker metrics server error: %v", err)
			}
		}()
	}

	log.Printf("worker subscribed to %s", cfg.NATSSubject)
	err = app.Queue.SubscribeIndexRequested(ctx, func(handlerCtx context.Context, documentID string) error {
		indexCtx, cancel := context.WithTimeout(handlerCtx, 5*time.Minute)
		defer cancel()

		workerMetrics.StartDocument()
		start := time.Now()
		indexErr := app.Indexer.IndexByID(indexCtx, documentID)
		workerMetrics.FinishDocument(serviceName, time.Since(start), indexErr)

		if doc, getErr := app.Repo.GetByID(indexCtx, documentID); getErr == nil {
			workerMetrics.ObserveQueueLag(serviceName, start.Sub(doc.CreatedAt))
		}
		return indexErr
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}
