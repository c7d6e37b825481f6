package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"behavior/internal/analytics"
	"behavior/internal/cache"
	"behavior/internal/core"
	"behavior/internal/log"
	"behavior/internal/ordered"
	"behavior/internal/source"
)

// loadTimeout bounds a provider load once it no longer follows the caller's
// context.
const loadTimeout = 2 * time.Minute

// StatementService loads the statement from its provider and runs the
// analytics over it. Loaded records are cached per provider and concurrent
// loads share one provider call.
type StatementService struct {
	provider source.Provider
	cache    cache.Cache[[]core.Record]
	loads    singleflight.Group
}

// NewStatementService creates the service. A nil cache disables caching.
func NewStatementService(provider source.Provider, c cache.Cache[[]core.Record]) *StatementService {
	return &StatementService{provider: provider, cache: c}
}

// SourceName identifies the configured provider.
func (s *StatementService) SourceName() string {
	return s.provider.Name()
}

// Ping checks the provider when it supports it.
func (s *StatementService) Ping(ctx context.Context) error {
	if p, ok := s.provider.(source.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Invalidate drops cached records so the next call reloads.
func (s *StatementService) Invalidate() {
	if s.cache != nil {
		s.cache.Purge()
	}
}

// cacheKey is the provider name, suffixed with the provider's version when it
// reports one so that a changed store misses the cache.
func (s *StatementService) cacheKey(ctx context.Context) string {
	key := s.provider.Name()
	v, ok := s.provider.(source.Versioner)
	if !ok {
		return key
	}
	version, err := v.Version(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Statement version unavailable",
			log.FieldComponent, log.ComponentStatement,
			log.FieldSource, key,
			log.FieldError, err.Error())
		return key
	}
	return key + "@" + version
}

func (s *StatementService) records(ctx context.Context) ([]core.Record, error) {
	key := s.cacheKey(ctx)
	if s.cache != nil {
		if records, ok := s.cache.Get(key); ok {
			return records, nil
		}
	}

	// The load outlives any single caller: one client going away must not
	// fail the others waiting on the same call.
	ch := s.loads.DoChan(key, func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		records, err := s.provider.Load(lctx)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			s.cache.Set(key, records)
		}
		slog.InfoContext(lctx, "Statement loaded",
			log.FieldComponent, log.ComponentStatement,
			log.FieldSource, key,
			log.FieldRecordCount, len(records))
		return records, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("load statement from %s: %w", s.provider.Name(), res.Err)
		}
		if res.Shared {
			slog.DebugContext(ctx, "Statement load shared",
				log.FieldComponent, log.ComponentStatement,
				log.FieldSource, key)
		}
		return res.Val.([]core.Record), nil
	}
}

// RawData returns every record in source order.
func (s *StatementService) RawData(ctx context.Context) ([]core.Record, error) {
	records, err := s.records(ctx)
	if err != nil {
		return nil, err
	}
	return slices.Clone(records), nil
}

func (s *StatementService) DailyExpenseTotals(ctx context.Context) (*ordered.Map[decimal.Decimal], error) {
	records, err := s.records(ctx)
	if err != nil {
		return nil, err
	}
	return analytics.DailyExpenseTotals(records), nil
}

// ExpenseTotals sums expenses per period key.
func (s *StatementService) ExpenseTotals(ctx context.Context, p core.Period) (*ordered.Map[decimal.Decimal], error) {
	if err := validPeriod(p); err != nil {
		return nil, err
	}
	records, err := s.records(ctx)
	if err != nil {
		return nil, err
	}
	return analytics.ExpenseTotals(records, p)
}

func (s *StatementService) GroupedByDate(ctx context.Context) (analytics.DateBucket, error) {
	records, err := s.records(ctx)
	if err != nil {
		return nil, err
	}
	return analytics.GroupByDate(records)
}

// CategorizedExpenses groups each period bucket by first-word category.
func (s *StatementService) CategorizedExpenses(ctx context.Context, p core.Period) (*ordered.Map[analytics.CategoryGroup], error) {
	if err := validPeriod(p); err != nil {
		return nil, err
	}
	daily, err := s.GroupedByDate(ctx)
	if err != nil {
		return nil, err
	}
	buckets, err := analytics.Rebucket(daily, p)
	if err != nil {
		return nil, err
	}

	result := analytics.CategorizeBuckets(buckets)
	slog.DebugContext(ctx, "Categorized expenses",
		log.FieldComponent, log.ComponentStatement,
		log.FieldPeriod, p.String(),
		"buckets", result.Len())
	return result, nil
}

// TokenCategories clusters the description tokens of the daily buckets.
func (s *StatementService) TokenCategories(ctx context.Context) (*ordered.Map[[]string], error) {
	daily, err := s.GroupedByDate(ctx)
	if err != nil {
		return nil, err
	}
	return analytics.GenerateCategories(daily), nil
}

func validPeriod(p core.Period) error {
	if !slices.Contains(core.Periods(), p) {
		return fmt.Errorf("%w: %q", core.ErrInvalidPeriod, p)
	}
	return nil
}
