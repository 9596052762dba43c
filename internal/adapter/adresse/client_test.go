package adresse

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/dpe-enrichment-service/internal/domain"
	"github.com/couchcryptid/dpe-enrichment-service/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

func testClient(baseURL string) *Client {
	return NewClient(baseURL, 5*time.Second, 100, observability.NewMetricsForTesting(),
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestClient_Resolve_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "12 Rue de la Paix 75002 Paris", r.URL.Query().Get("q"))
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"type":"FeatureCollection","features":[
			{"type":"Feature","geometry":{"type":"Point","coordinates":[2.331,48.869]},"properties":{"score":0.97}},
			{"type":"Feature","geometry":{"type":"Point","coordinates":[5.0,45.0]},"properties":{"score":0.4}}
		]}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL + "/search/")
	point, err := c.Resolve(context.Background(), "12 Rue de la Paix 75002 Paris")
	require.NoError(t, err)

	assert.InDelta(t, 48.869, point.Latitude, 1e-9)
	assert.InDelta(t, 2.331, point.Longitude, 1e-9)
}

func TestClient_Resolve_NoFeatures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"type":"FeatureCollection","features":[]}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Resolve(context.Background(), "nowhere")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, domain.StageGeocode, domain.StageOf(err))
}

func TestClient_Resolve_MalformedGeometry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"features":[{"geometry":{"coordinates":[2.3]}}]}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Resolve(context.Background(), "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpstream)
}

func TestClient_Resolve_ServerError(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Resolve(context.Background(), "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpstream)
	assert.Contains(t, err.Error(), "status 500")
	assert.Equal(t, 1, calls, "a failed geocode is not retried")
}

func TestClient_Resolve_WrongShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"features":{"not":"a list"}}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Resolve(context.Background(), "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpstream)
}
