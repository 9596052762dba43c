package refdata_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/couchcryptid/dpe-enrichment-service/internal/domain"
	"github.com/couchcryptid/dpe-enrichment-service/internal/observability"
	"github.com/couchcryptid/dpe-enrichment-service/internal/refdata"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnergyCosts(t *testing.T) {
	entries, err := refdata.EnergyCosts()
	require.NoError(t, err)
	require.Len(t, entries, 14)

	byType := make(map[string]domain.EnergyCostEntry, len(entries))
	for _, e := range entries {
		assert.Equal(t, 2024, e.Year, e.HeatingType)
		byType[e.HeatingType] = e
	}

	gas := byType["Gaz naturel"]
	require.NotNil(t, gas.CostPerKwh)
	assert.InDelta(t, 0.109, *gas.CostPerKwh, 1e-9)

	cooling, ok := byType["Réseau de Froid Urbain"]
	require.True(t, ok)
	assert.Nil(t, cooling.CostPerKwh)

	assert.Contains(t, byType, "Électricité")
	assert.Contains(t, byType, "Bois – Plaquettes d’industrie")
}

func TestClassBands(t *testing.T) {
	bands, err := refdata.ClassBands()
	require.NoError(t, err)
	require.Len(t, bands, 7)

	want := []string{"A", "B", "C", "D", "E", "F", "G"}
	for i, b := range bands {
		assert.Equal(t, want[i], b.Class)
		if i > 0 {
			assert.Greater(t, b.Min, bands[i-1].Max, "bands do not overlap")
		}
	}
	assert.Equal(t, domain.ClassConsumption{Class: "B", Min: 71, Average: 90, Max: 110}, bands[1])
}

type fakeSeeder struct {
	costs    []domain.EnergyCostEntry
	bands    []domain.ClassConsumption
	costsErr error
}

func (f *fakeSeeder) SeedEnergyCosts(_ context.Context, entries []domain.EnergyCostEntry) (int, error) {
	if f.costsErr != nil {
		return 0, f.costsErr
	}
	f.costs = entries
	return len(entries), nil
}

func (f *fakeSeeder) SeedClassConsumption(_ context.Context, bands []domain.ClassConsumption) (int, error) {
	f.bands = bands
	return len(bands), nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSeed(t *testing.T) {
	s := &fakeSeeder{}
	metrics := observability.NewMetricsForTesting()

	report, err := refdata.Seed(context.Background(), s, metrics, discardLogger())
	require.NoError(t, err)

	assert.Equal(t, refdata.Report{EnergyCosts: 14, DPEClasses: 7}, report)
	assert.Len(t, s.costs, 14)
	assert.Len(t, s.bands, 7)
	assert.InDelta(t, 14.0, testutil.ToFloat64(metrics.ReferenceRowsSeeded.WithLabelValues("energy_costs")), 1e-9)
	assert.InDelta(t, 7.0, testutil.ToFloat64(metrics.ReferenceRowsSeeded.WithLabelValues("dpe_class_consumption")), 1e-9)
}

func TestSeed_StopsOnCostFailure(t *testing.T) {
	s := &fakeSeeder{costsErr: errors.New("connection refused")}

	_, err := refdata.Seed(context.Background(), s, observability.NewMetricsForTesting(), discardLogger())
	require.Error(t, err)
	assert.Nil(t, s.bands)
}

func TestLoader(t *testing.T) {
	s := &fakeSeeder{}
	l := refdata.NewLoader(s, observability.NewMetricsForTesting(), discardLogger())

	report, err := l.Seed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 14, report.EnergyCosts)
	assert.Len(t, s.bands, 7)
}
