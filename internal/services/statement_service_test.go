package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"behavior/internal/cache"
	"behavior/internal/core"
	"behavior/internal/statement"
)

const julyStatement = `DATE (YYYY/MM/DD),STATUS,AMOUNT,BANK ACTIVITY STATUS,EXPENSE DESCRIPTION
20230701,OPEN,1000,BALANCE,
20230703,TRANS,-12.50,CARD PAYMENT,UBER EATS 29 JUL
20230703,TRANS,-7.25,CARD PAYMENT,UBER TRIP
20230710,TRANS,-40.00,CARD PAYMENT,TESCO STORES 09 JUL
20230712,TRANS,250.00,TRANSFER,SALARY
20230731,CLOSE,1190.25,BALANCE,
`

type fakeProvider struct {
	body     string
	err      error
	calls    atomic.Int32
	gate     chan struct{}
	canceled atomic.Bool
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Load(ctx context.Context) ([]core.Record, error) {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	if ctx.Err() != nil {
		f.canceled.Store(true)
	}
	if f.err != nil {
		return nil, f.err
	}
	return statement.Parse(strings.NewReader(f.body))
}

func TestStatementService_DailyAndPeriodTotals(t *testing.T) {
	svc := NewStatementService(&fakeProvider{body: julyStatement}, nil)
	ctx := context.Background()

	daily, err := svc.DailyExpenseTotals(ctx)
	if err != nil {
		t.Fatalf("DailyExpenseTotals: %v", err)
	}
	if got := daily.Keys(); len(got) != 2 || got[0] != "2023/07/03" || got[1] != "2023/07/10" {
		t.Fatalf("daily keys = %v", got)
	}
	if v, _ := daily.Get("2023/07/03"); v.String() != "19.75" {
		t.Errorf("2023/07/03 total = %s, want 19.75", v)
	}

	weekly, err := svc.ExpenseTotals(ctx, core.Weekly)
	if err != nil {
		t.Fatalf("ExpenseTotals weekly: %v", err)
	}
	if got := weekly.Keys(); len(got) != 2 || got[0] != "2023/07/03" || got[1] != "2023/07/10" {
		t.Fatalf("weekly keys = %v", got)
	}

	monthly, err := svc.ExpenseTotals(ctx, core.Monthly)
	if err != nil {
		t.Fatalf("ExpenseTotals monthly: %v", err)
	}
	if v, _ := monthly.Get("2023/07/01"); v.String() != "59.75" {
		t.Errorf("monthly total = %s, want 59.75", v)
	}

	if _, err := svc.ExpenseTotals(ctx, core.Period("yearly")); !errors.Is(err, core.ErrInvalidPeriod) {
		t.Errorf("expected ErrInvalidPeriod, got %v", err)
	}
}

func TestStatementService_CategorizedExpenses(t *testing.T) {
	svc := NewStatementService(&fakeProvider{body: julyStatement}, nil)

	result, err := svc.CategorizedExpenses(context.Background(), core.Monthly)
	if err != nil {
		t.Fatalf("CategorizedExpenses: %v", err)
	}
	groups, ok := result.Get("2023/07/01")
	if !ok {
		t.Fatalf("keys = %v", result.Keys())
	}
	if uber, _ := groups.Get("uber"); len(uber) != 2 {
		t.Errorf("expected two uber records, got %d (%v)", len(uber), groups.Keys())
	}
	if _, ok := groups.Get("tesco"); !ok {
		t.Errorf("expected a tesco group, got %v", groups.Keys())
	}

	if _, err := svc.CategorizedExpenses(context.Background(), "hourly"); !errors.Is(err, core.ErrInvalidPeriod) {
		t.Errorf("expected ErrInvalidPeriod, got %v", err)
	}
}

func TestStatementService_GroupedAndTokens(t *testing.T) {
	svc := NewStatementService(&fakeProvider{body: julyStatement}, nil)
	ctx := context.Background()

	grouped, err := svc.GroupedByDate(ctx)
	if err != nil {
		t.Fatalf("GroupedByDate: %v", err)
	}
	recs, _ := grouped.Get("2023/07/03")
	if len(recs) != 2 || recs[0].Description.Value != "uber eats" {
		t.Fatalf("2023/07/03 = %+v", recs)
	}

	cats, err := svc.TokenCategories(ctx)
	if err != nil {
		t.Fatalf("TokenCategories: %v", err)
	}
	if cats.Len() == 0 {
		t.Fatal("expected token categories")
	}

	raw, err := svc.RawData(ctx)
	if err != nil || len(raw) != 6 {
		t.Fatalf("RawData = %d records, %v", len(raw), err)
	}
}

func TestStatementService_Errors(t *testing.T) {
	svc := NewStatementService(&fakeProvider{err: fmt.Errorf("%w: gone", core.ErrMissingDataSource)}, nil)
	if _, err := svc.RawData(context.Background()); !errors.Is(err, core.ErrMissingDataSource) {
		t.Fatalf("expected ErrMissingDataSource, got %v", err)
	}

	short := NewStatementService(&fakeProvider{body: "DATE,AMOUNT\n20230701,1\n"}, nil)
	if _, err := short.GroupedByDate(context.Background()); !errors.Is(err, core.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestStatementService_CachesAndInvalidates(t *testing.T) {
	p := &fakeProvider{body: julyStatement}
	svc := NewStatementService(p, cache.NewLRUCache[[]core.Record](4, time.Minute))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.RawData(ctx); err != nil {
			t.Fatalf("RawData: %v", err)
		}
	}
	if n := p.calls.Load(); n != 1 {
		t.Fatalf("expected one provider load, got %d", n)
	}

	svc.Invalidate()
	if _, err := svc.DailyExpenseTotals(ctx); err != nil {
		t.Fatalf("DailyExpenseTotals: %v", err)
	}
	if n := p.calls.Load(); n != 2 {
		t.Fatalf("expected reload after Invalidate, got %d loads", n)
	}
}

func TestStatementService_SharesConcurrentLoads(t *testing.T) {
	p := &fakeProvider{body: julyStatement, gate: make(chan struct{})}
	svc := NewStatementService(p, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.RawData(context.Background()); err != nil {
				t.Errorf("RawData: %v", err)
			}
		}()
	}
	// let the goroutines pile up on the in-flight load
	time.Sleep(50 * time.Millisecond)
	close(p.gate)
	wg.Wait()

	if n := p.calls.Load(); n < 1 || n > 8 {
		t.Fatalf("unexpected load count %d", n)
	}
}

func TestStatementService_CallerCancelDoesNotFailSharedLoad(t *testing.T) {
	p := &fakeProvider{body: julyStatement, gate: make(chan struct{})}
	svc := NewStatementService(p, cache.NewLRUCache[[]core.Record](4, time.Minute))

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := svc.RawData(ctx)
		first <- err
	}()
	for p.calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}

	second := make(chan error, 1)
	go func() {
		_, err := svc.RawData(context.Background())
		second <- err
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	if err := <-first; !errors.Is(err, context.Canceled) {
		t.Fatalf("canceled caller: expected context.Canceled, got %v", err)
	}

	close(p.gate)
	if err := <-second; err != nil {
		t.Fatalf("waiting caller: %v", err)
	}
	if p.canceled.Load() {
		t.Fatal("provider load saw the first caller's cancellation")
	}
	if n := p.calls.Load(); n != 1 {
		t.Fatalf("expected one provider load, got %d", n)
	}
	if _, err := svc.RawData(context.Background()); err != nil {
		t.Fatalf("RawData after load: %v", err)
	}
	if n := p.calls.Load(); n != 1 {
		t.Fatalf("expected cached records, got %d loads", n)
	}
}

type versionedProvider struct {
	*fakeProvider
	mu      sync.Mutex
	version string
	err     error
}

func (v *versionedProvider) Version(context.Context) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.version, v.err
}

func (v *versionedProvider) set(version string, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.version, v.err = version, err
}

func TestStatementService_ReloadsWhenProviderVersionChanges(t *testing.T) {
	p := &versionedProvider{fakeProvider: &fakeProvider{body: julyStatement}, version: "4.4"}
	svc := NewStatementService(p, cache.NewLRUCache[[]core.Record](4, time.Minute))
	ctx := context.Background()

	steps := []struct {
		name      string
		version   string
		err       error
		wantLoads int32
	}{
		{"first read loads", "4.4", nil, 1},
		{"same version hits cache", "4.4", nil, 1},
		{"import bumps version", "8.8", nil, 2},
		{"cached under new version", "8.8", nil, 2},
		{"version error falls back to name key", "", errors.New("db locked"), 3},
		{"name key then cached", "", errors.New("db locked"), 3},
	}
	for _, step := range steps {
		p.set(step.version, step.err)
		if _, err := svc.RawData(ctx); err != nil {
			t.Fatalf("%s: RawData: %v", step.name, err)
		}
		if n := p.calls.Load(); n != step.wantLoads {
			t.Fatalf("%s: loads = %d, want %d", step.name, n, step.wantLoads)
		}
	}
}
