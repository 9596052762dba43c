// Package dvf looks up property sales (mutations) near a point in the DVF
// open dataset.
package dvf

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/dpe-enrichment-service/internal/adapter/upstream"
	"github.com/couchcryptid/dpe-enrichment-service/internal/domain"
	"github.com/couchcryptid/dpe-enrichment-service/internal/observability"
)

const serviceName = "dvf"

// Client implements domain.TransactionLookup.
type Client struct {
	http    *upstream.Client
	baseURL string
}

// NewClient creates a DVF client.
func NewClient(baseURL string, timeout time.Duration, rps float64, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		http:    upstream.New(serviceName, timeout, rps, metrics, logger),
		baseURL: baseURL,
	}
}

// Lookup returns every sale within radiusMeters of point, in API order.
// A non-positive radius means domain.DefaultSearchRadius.
func (c *Client) Lookup(ctx context.Context, point domain.GeoPoint, radiusMeters float64) ([]domain.MutationRecord, error) {
	if radiusMeters <= 0 {
		radiusMeters = domain.DefaultSearchRadius
	}
	params := url.Values{
		"lat":  {formatFloat(point.Latitude)},
		"lon":  {formatFloat(point.Longitude)},
		"dist": {formatFloat(radiusMeters)},
	}

	var resp response
	if err := c.http.GetJSON(ctx, c.baseURL+"?"+params.Encode(), &resp); err != nil {
		return nil, domain.Upstream(domain.StageTransactions, "transaction lookup failed", err)
	}

	if len(resp.Features) == 0 {
		c.http.ObserveEmpty()
		return nil, domain.NotFound(domain.StageTransactions, "no mutation data found for the given coordinates")
	}

	records := make([]domain.MutationRecord, 0, len(resp.Features))
	for i, f := range resp.Features {
		date, err := time.Parse(time.DateOnly, f.Properties.DateMutation)
		if err != nil {
			c.http.ObserveError()
			return nil, domain.Upstream(domain.StageTransactions, "malformed transaction response",
				fmt.Errorf("feature %d: date_mutation %q: %w", i, f.Properties.DateMutation, err))
		}
		if !f.Properties.Lat.Valid || !f.Properties.Lon.Valid {
			c.http.ObserveError()
			return nil, domain.Upstream(domain.StageTransactions, "malformed transaction response",
				fmt.Errorf("feature %d: lat/lon is not a number", i))
		}
		records = append(records, domain.MutationRecord{
			Date:      date,
			Latitude:  f.Properties.Lat.Value,
			Longitude: f.Properties.Lon.Value,
		})
	}

	c.http.ObserveSuccess()
	return records, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// DVF API response types.

type response struct {
	Features []feature `json:"features"`
}

type feature struct {
	Properties properties `json:"properties"`
}

type properties struct {
	DateMutation string             `json:"date_mutation"`
	Lat          upstream.FlexFloat `json:"lat"`
	Lon          upstream.FlexFloat `json:"lon"`
}
