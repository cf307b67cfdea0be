package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"

	"comicstore/internal/config"
	"comicstore/internal/core/comic"
	"comicstore/internal/core/download"
	"comicstore/internal/core/failures"
	"comicstore/internal/core/ingest"
	"comicstore/internal/core/library"
	"comicstore/internal/logger"
	rds "comicstore/internal/platform/redis"
	"comicstore/internal/platform/storage"
	tasks "comicstore/internal/platform/tasks"
	"comicstore/internal/server"
	"comicstore/internal/worker"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("[comicstore] %v", err)
	}
}

// run wires and serves until shutdown. Errors are returned rather than fatal
// so the deferred Redis and queue clients are closed first.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	log.Printf("[comicstore] starting at %s (env=%s, executor=%s)\n", cfg.HTTPAddr, cfg.AppEnv, cfg.Executor)

	logr := logger.New("main")

	// Page fetcher shared by the immediate executor and the worker
	fetchOpts := []download.FetcherOption{download.WithTimeout(cfg.FetchTimeout)}
	if cfg.MirrorEnabled() {
		mirror, err := storage.NewSupabaseMirror(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.SupabaseBucket, cfg.StorageRoot)
		if err != nil {
			return fmt.Errorf("initialize storage mirror: %w", err)
		}
		fetchOpts = append(fetchOpts, download.WithMirror(mirror))
		logr.LogInfof("mirroring pages to bucket %s", cfg.SupabaseBucket)
	}
	fetcher := download.NewFetcher(fetchOpts...)

	// Redis handle, opened once and closed on exit
	var (
		redisSvc    *rds.Service
		taskClient  *tasks.Client
		failureLog  *failures.Store
		asynqServer *asynq.Server
	)
	if cfg.NeedsRedis() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		redisSvc, err = rds.New(ctx, rds.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		cancel()
		if err != nil {
			return err
		}
		defer redisSvc.Close()

		taskClient = tasks.New(redisSvc)
		defer taskClient.Close()
		failureLog = failures.NewStore(redisSvc.Client())
	}

	var exec download.Executor
	switch cfg.Executor {
	case config.ExecutorImmediate:
		exec = download.NewImmediateExecutor(fetcher)
	case config.ExecutorQueued:
		exec = download.NewQueuedExecutor(taskClient, cfg.TaskQueue, cfg.TaskMaxRetries)
	}

	deriver := comic.NewDeriver(cfg.StorageRoot)
	ingestSvc := ingest.NewService(deriver, exec)
	librarySvc := library.NewService(deriver)

	// Worker
	if cfg.WorkerEnabled {
		mux := worker.NewMux()
		mux.HandleFunc(download.TaskTypeDownload, download.NewTaskHandler(fetcher).HandleTask)

		asynqServer = worker.NewServer(redisSvc.AsynqRedisOpt(), worker.Options{
			Concurrency: cfg.WorkerConcurrency,
			Queue:       cfg.TaskQueue,
			RetryBase:   cfg.TaskRetryBase,
			RetryMax:    cfg.TaskRetryMax,
		}, failureLog.HandleDeadTask)
		if err := asynqServer.Start(mux.Mux()); err != nil {
			return fmt.Errorf("start worker: %w", err)
		}
		logr.LogInfof("worker consuming queue %q with concurrency %d, handling %v", cfg.TaskQueue, cfg.WorkerConcurrency, mux.Types())
	}

	// HTTP server
	app := fiber.New(fiber.Config{
		AppName: "Comic Store",
		JSONEncoder: func(v interface{}) ([]byte, error) {
			var buf bytes.Buffer
			encoder := json.NewEncoder(&buf)
			encoder.SetEscapeHTML(false)
			if err := encoder.Encode(v); err != nil {
				return nil, err
			}
			return buf.Bytes(), nil
		},
	})

	healthHandler := server.RegisterRoutes(app, server.Dependencies{
		Ingest:      ingestSvc,
		Library:     librarySvc,
		StorageRoot: cfg.StorageRoot,
		Redis:       redisSvc,
		Failures:    failureLog,
	})
	healthHandler.SetReady()

	// Graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-shutdown
		logr.LogInfo("Shutting down...")
		if asynqServer != nil {
			asynqServer.Shutdown()
		}
		_ = app.ShutdownWithTimeout(5 * time.Second)
	}()

	if err := app.Listen(cfg.HTTPAddr); err != nil {
		logr.LogErrorf("server listen: %v", err)
		if asynqServer != nil {
			asynqServer.Shutdown()
		}
		return fmt.Errorf("server listen: %w", err)
	}
	return nil
}
