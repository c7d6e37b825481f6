// Command seed creates the statements schema and loads a statement CSV into
// SQLite.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"behavior/internal/cli"
	"behavior/internal/log"
	"behavior/internal/storage"
	"behavior/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentSeed)

	path := flag.String("path", cfg.StatementPath, "statement CSV to import (file path or gs://bucket/object)")
	dbPath := flag.String("db", cfg.SQLiteDBPath, "SQLite database path")
	reset := flag.Bool("reset", false, "drop and recreate the schema before importing")
	replace := flag.Bool("replace", cfg.ImportReplace, "delete existing rows before importing")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	repo := cli.InitSQLite(logger, *dbPath)
	defer repo.Close()

	if *reset {
		if err := storage.ResetSchema(*dbPath); err != nil {
			logger.Error("Failed to reset schema", log.FieldError, err, "db", *dbPath)
			os.Exit(1)
		}
		logger.Info("Schema reset", "db", *dbPath)
	}

	src, err := worker.OpenStatement(ctx, *path)
	if err != nil {
		logger.Error("Failed to open statement", log.FieldError, err, "path", *path)
		os.Exit(1)
	}
	defer src.Close()

	n, err := repo.ImportCSV(ctx, src, *replace)
	if err != nil {
		logger.Error("Import failed", log.FieldError, err, "path", *path, log.FieldOperation, log.OpImport)
		os.Exit(1)
	}

	version, _, err := storage.SchemaVersion(*dbPath)
	if err != nil {
		logger.Warn("Could not read schema version", log.FieldError, err)
	}
	logger.Info("Seed complete",
		log.FieldRecordCount, n,
		"path", *path,
		"db", *dbPath,
		"schema_version", version)
}
