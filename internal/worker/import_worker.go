package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"behavior/internal/amqp"
	"behavior/internal/core"
	"behavior/internal/source/gcs"
)

// Importer stores a statement CSV.
type Importer interface {
	ImportCSV(ctx context.Context, r io.Reader, replace bool) (int, error)
}

// Opener returns the statement CSV named by path.
type Opener func(ctx context.Context, path string) (io.ReadCloser, error)

// ImportWorker handles statement import messages from AMQP.
type ImportWorker struct {
	store Importer
	open  Opener
}

func NewImportWorker(store Importer, open Opener) *ImportWorker {
	if open == nil {
		open = OpenStatement
	}
	return &ImportWorker{store: store, open: open}
}

// HandleImportMessage imports the referenced CSV. Bad statement data is
// logged and acknowledged since redelivery cannot fix it; storage failures
// are returned so the message is requeued.
func (w *ImportWorker) HandleImportMessage(ctx context.Context, msg *amqp.StatementImportMessage) error {
	slog.InfoContext(ctx, "Processing import message",
		"id", msg.ID,
		"path", msg.Path,
		"replace", msg.Replace)

	r, err := w.open(ctx, msg.Path)
	if err != nil {
		if errors.Is(err, core.ErrMissingDataSource) {
			slog.ErrorContext(ctx, "Statement source not found, dropping message",
				"id", msg.ID,
				"path", msg.Path,
				"error", err)
			return nil
		}
		return fmt.Errorf("open statement: %w", err)
	}
	defer r.Close()

	n, err := w.store.ImportCSV(ctx, r, msg.Replace)
	if err != nil {
		if isDataError(err) {
			slog.ErrorContext(ctx, "Statement rejected, dropping message",
				"id", msg.ID,
				"path", msg.Path,
				"error", err)
			return nil
		}
		return fmt.Errorf("import statement: %w", err)
	}

	slog.InfoContext(ctx, "Statement import completed",
		"id", msg.ID,
		"path", msg.Path,
		"record_count", n)
	return nil
}

func isDataError(err error) bool {
	return errors.Is(err, core.ErrMalformedStatement) ||
		errors.Is(err, core.ErrInvalidDateFormat) ||
		errors.Is(err, core.ErrInvalidAmount)
}

// OpenStatement opens a local file or downloads a gs:// object.
func OpenStatement(ctx context.Context, path string) (io.ReadCloser, error) {
	if gcs.IsURI(path) {
		data, err := gcs.Fetch(ctx, path)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMissingDataSource, err)
	}
	return f, nil
}
