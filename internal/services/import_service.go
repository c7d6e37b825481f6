package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"behavior/internal/amqp"
	"behavior/internal/log"
)

// ErrStoreNotConfigured is returned when an operation needs the relational
// store but the service runs without one.
var ErrStoreNotConfigured = errors.New("statement store not configured")

// Importer stores a statement CSV.
type Importer interface {
	ImportCSV(ctx context.Context, r io.Reader, replace bool) (int, error)
}

// Publisher queues import requests for the import worker.
type Publisher interface {
	PublishStatementImport(ctx context.Context, path string, replace bool) (*amqp.StatementImportMessage, error)
}

// Opener returns the statement CSV named by path.
type Opener func(ctx context.Context, path string) (io.ReadCloser, error)

// ImportResult describes what an import request did.
type ImportResult struct {
	Path      string `json:"path"`
	Queued    bool   `json:"queued"`
	MessageID string `json:"message_id,omitempty"`
	Rows      int    `json:"rows"`
}

// ImportService imports the configured statement CSV into the relational
// store, through the queue when a publisher is configured and inline
// otherwise.
type ImportService struct {
	store     Importer
	publisher Publisher
	open      Opener
	path      string
	replace   bool
	onImport  func()
}

type ImportOption func(*ImportService)

// WithPublisher routes imports through the queue.
func WithPublisher(p Publisher) ImportOption {
	return func(s *ImportService) { s.publisher = p }
}

// WithOnImport registers a callback run after an inline import commits.
func WithOnImport(fn func()) ImportOption {
	return func(s *ImportService) { s.onImport = fn }
}

func NewImportService(store Importer, open Opener, path string, replace bool, opts ...ImportOption) *ImportService {
	s := &ImportService{store: store, open: open, path: path, replace: replace}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ImportService) Import(ctx context.Context) (ImportResult, error) {
	result := ImportResult{Path: s.path}

	if s.publisher != nil {
		msg, err := s.publisher.PublishStatementImport(ctx, s.path, s.replace)
		if err != nil {
			return result, fmt.Errorf("queue statement import: %w", err)
		}
		result.Queued = true
		result.MessageID = msg.ID.String()
		slog.InfoContext(ctx, "Statement import queued",
			log.FieldComponent, log.ComponentAMQP,
			log.FieldOperation, log.OpPublish,
			log.FieldSource, s.path,
			log.FieldMessageID, result.MessageID)
		return result, nil
	}

	if s.store == nil {
		return result, ErrStoreNotConfigured
	}

	r, err := s.open(ctx, s.path)
	if err != nil {
		return result, err
	}
	defer r.Close()

	n, err := s.store.ImportCSV(ctx, r, s.replace)
	if err != nil {
		return result, err
	}
	result.Rows = n

	if s.onImport != nil {
		s.onImport()
	}
	slog.InfoContext(ctx, "Statement imported inline",
		log.FieldComponent, log.ComponentStorage,
		log.FieldOperation, log.OpImport,
		log.FieldSource, s.path,
		log.FieldRecordCount, n)
	return result, nil
}
