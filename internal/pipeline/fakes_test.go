package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/dpe-enrichment-service/internal/domain"
)

// --- fakes ---

// fakeGeocoder resolves formatted addresses from a table; unknown addresses
// are NotFound.
type fakeGeocoder struct {
	points map[string]domain.GeoPoint
	err    error
	delay  map[string]time.Duration
	calls  atomic.Int64
}

func (f *fakeGeocoder) Resolve(_ context.Context, formatted string) (domain.GeoPoint, error) {
	f.calls.Add(1)
	if d := f.delay[formatted]; d > 0 {
		time.Sleep(d)
	}
	if f.err != nil {
		return domain.GeoPoint{}, f.err
	}
	p, ok := f.points[formatted]
	if !ok {
		return domain.GeoPoint{}, domain.NotFound(domain.StageGeocode, "no coordinates found for the given address")
	}
	return p, nil
}

type fakeTransactions struct {
	records []domain.MutationRecord
	err     error
	calls   atomic.Int64
}

func (f *fakeTransactions) Lookup(_ context.Context, _ domain.GeoPoint, _ float64) ([]domain.MutationRecord, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return append([]domain.MutationRecord(nil), f.records...), nil
}

type fakeDiagnostics struct {
	records    []domain.DiagnosticRecord
	err        error
	calls      atomic.Int64
	lastRadius atomic.Value
}

func (f *fakeDiagnostics) Lookup(_ context.Context, _ domain.GeoPoint, radius float64) ([]domain.DiagnosticRecord, error) {
	f.calls.Add(1)
	f.lastRadius.Store(radius)
	if f.err != nil {
		return nil, f.err
	}
	return append([]domain.DiagnosticRecord(nil), f.records...), nil
}

type fakeCosts struct {
	costs map[string]*float64
	err   error
}

func (f *fakeCosts) AverageCostPerKwh(_ context.Context, heatingType string) (*float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.costs[heatingType]
	if !ok {
		return nil, domain.NotFound(domain.StageEnergyCost, "no energy cost for "+heatingType)
	}
	return c, nil
}

type fakeClasses struct {
	bands map[string]domain.ClassConsumption
}

func (f *fakeClasses) ClassConsumption(_ context.Context, class string) (domain.ClassConsumption, error) {
	b, ok := f.bands[class]
	if !ok {
		return domain.ClassConsumption{}, domain.NotFound(domain.StageIndicators, "no band for "+class)
	}
	return b, nil
}

type fakeUsers struct {
	users []domain.UserRecord
	err   error
}

func (f *fakeUsers) ListUsers(context.Context) ([]domain.UserRecord, error) {
	return f.users, f.err
}

type fakeResults struct {
	mu     sync.Mutex
	rows   []domain.ResultRow
	failOn map[string]bool
}

func (f *fakeResults) InsertResult(_ context.Context, row domain.ResultRow) error {
	if f.failOn[row.User.ID] {
		return errors.New("duplicate key value violates unique constraint")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, row)
	return nil
}

func (f *fakeResults) byUser() map[string]domain.ResultRow {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]domain.ResultRow, len(f.rows))
	for _, r := range f.rows {
		out[r.User.ID] = r
	}
	return out
}

type fakePublisher struct {
	mu     sync.Mutex
	events []domain.EnrichmentEvent
	err    error
}

func (f *fakePublisher) LoadBatch(_ context.Context, events []domain.EnrichmentEvent) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, events...)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr(v float64) *float64 { return &v }

func date(s string) time.Time {
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return d
}
