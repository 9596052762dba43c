// Package adresse resolves French postal addresses with the national
// address API (api-adresse.data.gouv.fr).
package adresse

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/couchcryptid/dpe-enrichment-service/internal/adapter/upstream"
	"github.com/couchcryptid/dpe-enrichment-service/internal/domain"
	"github.com/couchcryptid/dpe-enrichment-service/internal/observability"
)

const serviceName = "geocode"

// Client implements domain.Geocoder.
type Client struct {
	http    *upstream.Client
	baseURL string
}

// NewClient creates an address API client.
func NewClient(baseURL string, timeout time.Duration, rps float64, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		http:    upstream.New(serviceName, timeout, rps, metrics, logger),
		baseURL: baseURL,
	}
}

// Resolve geocodes formattedAddress. The first returned feature is the match.
func (c *Client) Resolve(ctx context.Context, formattedAddress string) (domain.GeoPoint, error) {
	params := url.Values{"q": {formattedAddress}}

	var resp response
	if err := c.http.GetJSON(ctx, c.baseURL+"?"+params.Encode(), &resp); err != nil {
		return domain.GeoPoint{}, domain.Upstream(domain.StageGeocode, "geocoding request failed", err)
	}

	if len(resp.Features) == 0 {
		c.http.ObserveEmpty()
		return domain.GeoPoint{}, domain.NotFound(domain.StageGeocode, "no coordinates found for the given address")
	}

	coords := resp.Features[0].Geometry.Coordinates
	if len(coords) < 2 {
		c.http.ObserveError()
		return domain.GeoPoint{}, domain.Upstream(domain.StageGeocode, "malformed geocoding response",
			errors.New("feature geometry has fewer than two coordinates"))
	}

	c.http.ObserveSuccess()
	// GeoJSON order is [lon, lat].
	return domain.GeoPoint{Latitude: coords[1], Longitude: coords[0]}, nil
}

// Address API response types.

type response struct {
	Features []feature `json:"features"`
}

type feature struct {
	Geometry geometry `json:"geometry"`
}

type geometry struct {
	Coordinates []float64 `json:"coordinates"` // [lon, lat]
}
