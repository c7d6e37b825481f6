package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"golang.org/x/sync/errgroup"

	"behavior/internal/amqp"
	"behavior/internal/backend"
	"behavior/internal/cache"
	"behavior/internal/cli"
	"behavior/internal/core"
	apphttp "behavior/internal/http"
	"behavior/internal/log"
	"behavior/internal/services"
	"behavior/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize data backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if res.Cleanup != nil {
			if err := res.Cleanup(); err != nil {
				logger.Warn("Backend cleanup failed", log.FieldError, err)
			}
		}
	}()

	var statementCache cache.Cache[[]core.Record]
	cacheManager := cache.NewManager()
	defer cacheManager.Stop()

	deps := apphttp.Deps{Logger: logger}
	if cfg.StatementCacheTTL > 0 {
		lru := cache.NewLRUCache[[]core.Record](cfg.StatementCacheSize, cfg.StatementCacheTTL)
		cacheManager.Register(lru)
		cacheManager.StartCleanup(cfg.StatementCacheTTL)
		statementCache = lru
		deps.Cache = lru
	}
	statements := services.NewStatementService(res.Provider, statementCache)
	deps.Statements = statements

	if res.Store != nil {
		opts := []services.ImportOption{services.WithOnImport(statements.Invalidate)}
		if cfg.AMQPURL != "" {
			client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
			if err != nil {
				logger.Error("Failed to initialize AMQP client", log.FieldError, err)
				os.Exit(1)
			}
			defer client.Close()
			opts = append(opts, services.WithPublisher(client))
			logger.Info("Statement imports will be queued", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
		deps.Store = res.Store
		deps.Importer = services.NewImportService(res.Store, worker.OpenStatement, cfg.StatementPath, cfg.ImportReplace, opts...)
	}

	srv := apphttp.NewServer(":"+cfg.Port, deps, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting behavior server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			log.FieldSource, statements.SourceName())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer shutdownCancel()
		logger.Info("Shutting down server", log.FieldOperation, log.OpShutdown)
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
