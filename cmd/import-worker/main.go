package main

import (
	"context"
	"errors"
	"os"

	"behavior/internal/amqp"
	"behavior/internal/cli"
	"behavior/internal/log"
	"behavior/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentWorker)

	if err := cfg.RequireAMQP(); err != nil {
		logger.Error("Import worker needs a broker", log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeConfiguration)
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	w := worker.NewImportWorker(repo, worker.OpenStatement)
	logger.Info("Starting import worker",
		"queue", cfg.AMQPQueue,
		"db", repo.Name())

	if err := client.ConsumeStatementImports(ctx, w.HandleImportMessage); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err, log.FieldOperation, log.OpConsume)
		os.Exit(1)
	}
	logger.Info("Import worker stopped")
}
