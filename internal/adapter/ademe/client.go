// Package ademe fetches energy performance diagnostics (DPE) near a point
// from the ADEME open data portal.
package ademe

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

const serviceName = "ademe"

// Dataset column labels.
const (
	keyCommune                 = "Nom__commune_(BAN)"
	keyPostalCode              = "Code_postal_(BAN)"
	keyStreetNumber            = "N°_voie_(BAN)"
	keyBANID                   = "Identifiant__BAN"
	keyFullAddress             = "Adresse_(BAN)"
	keyRawAddress              = "Adresse_brute"
	keyConstructionYear        = "Annee_construction"
	keyConstructionPeriod      = "Période_construction"
	keyBuildingType            = "Type_bâtiment"
	keyHeatingInstallationType = "Type_installation_chauffage"
	keyDHWInstallationType     = "Type_installation_ECS_(général)"
	keyHeatingEnergyType       = "Type_énergie_n°1"
	keyDHWEnergyType           = "Type_énergie_principale_ECS"
	keyEnergyLabel             = "Etiquette_DPE"
	keyCeilingHeight           = "Hauteur_sous-plafond"
	keyUnitLivingSurface       = "Surface_habitable_logement"
	keyBuildingLivingSurface   = "Surface_habitable_immeuble"
	keyApartmentCount          = "Nombre_appartement"
	keyCoordX                  = "Coordonnée_cartographique_X_(BAN)"
	keyCoordY                  = "Coordonnée_cartographique_Y_(BAN)"
	keyConsumptionTotal        = "Conso_5_usages_é_finale"
	keyConsumptionPerM2        = "Conso_5_usages/m²_é_finale"
	keyConsumptionHeating      = "Conso_chauffage_é_finale"
	keyConsumptionHeatingHigh  = "Conso_chauffage_dépensier_é_finale"
	keyConsumptionLighting     = "Conso_éclairage_é_finale"
	keyConsumptionDHW          = "Conso_ECS_é_finale"
	keyConsumptionAuxiliary    = "Conso_auxiliaires_é_finale"
	keyConsumptionCooling      = "Conso_refroidissement_é_finale"
)

// Client implements domain.DiagnosticLookup.
type Client struct {
	http    *upstream.Client
	baseURL string
}

// NewClient creates an ADEME DPE client.
func NewClient(baseURL string, timeout time.Duration, rps float64, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		http:    upstream.New(serviceName, timeout, rps, metrics, logger),
		baseURL: baseURL,
	}
}

// Lookup returns the unfiltered diagnostics within radiusMeters of point.
// A non-positive radius means domain.DefaultSearchRadius.
func (c *Client) Lookup(ctx context.Context, point domain.GeoPoint, radiusMeters float64) ([]domain.DiagnosticRecord, error) {
	if radiusMeters <= 0 {
		radiusMeters = domain.DefaultSearchRadius
	}
	params := url.Values{
		"geo_distance": {fmt.Sprintf("%s:%s:%s",
			formatFloat(point.Longitude), formatFloat(point.Latitude), formatFloat(radiusMeters))},
	}

	var resp response
	if err := c.http.GetJSON(ctx, c.baseURL+"?"+params.Encode(), &resp); err != nil {
		return nil, domain.Upstream(domain.StageDiagnostics, "diagnostic lookup failed", err)
	}

	if len(resp.Results) == 0 {
		c.http.ObserveEmpty()
		return nil, domain.NotFound(domain.StageDiagnostics, "no DPE data found for the given coordinates")
	}

	records := make([]domain.DiagnosticRecord, 0, len(resp.Results))
	for i, raw := range resp.Results {
		rec, err := decodeRecord(raw)
		if err != nil {
			c.http.ObserveError()
			return nil, domain.Upstream(domain.StageDiagnostics, "malformed diagnostic response",
				fmt.Errorf("result %d: %w", i, err))
		}
		records = append(records, rec)
	}

	c.http.ObserveSuccess()
	return records, nil
}

func decodeRecord(f upstream.Fields) (domain.DiagnosticRecord, error) {
	r := upstream.NewFieldReader(f)
	rec := domain.DiagnosticRecord{
		Commune:                 r.String(keyCommune),
		PostalCode:              r.String(keyPostalCode),
		StreetNumber:            r.String(keyStreetNumber),
		BANID:                   r.String(keyBANID),
		FullAddress:             r.String(keyFullAddress),
		RawAddress:              r.String(keyRawAddress),
		ConstructionYear:        r.Int(keyConstructionYear),
		ConstructionPeriod:      r.String(keyConstructionPeriod),
		BuildingType:            r.String(keyBuildingType),
		HeatingInstallationType: r.String(keyHeatingInstallationType),
		DHWInstallationType:     r.String(keyDHWInstallationType),
		HeatingEnergyType:       r.String(keyHeatingEnergyType),
		DHWEnergyType:           r.String(keyDHWEnergyType),
		EnergyLabel:             r.String(keyEnergyLabel),
		CeilingHeight:           r.Float(keyCeilingHeight),
		UnitLivingSurface:       r.Float(keyUnitLivingSurface),
		BuildingLivingSurface:   r.Float(keyBuildingLivingSurface),
		ApartmentCount:          r.Int(keyApartmentCount),
		CoordX:                  r.Float(keyCoordX),
		CoordY:                  r.Float(keyCoordY),
		ConsumptionTotal:        r.Float(keyConsumptionTotal),
		ConsumptionPerM2:        r.Float(keyConsumptionPerM2),
		ConsumptionHeating:      r.Float(keyConsumptionHeating),
		ConsumptionHeatingHigh:  r.Float(keyConsumptionHeatingHigh),
		ConsumptionLighting:     r.Float(keyConsumptionLighting),
		ConsumptionDHW:          r.Float(keyConsumptionDHW),
		ConsumptionAuxiliary:    r.Float(keyConsumptionAuxiliary),
		ConsumptionCooling:      r.Float(keyConsumptionCooling),
	}
	if err := r.Err(); err != nil {
		return domain.DiagnosticRecord{}, err
	}
	return rec, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ADEME API response types.

type response struct {
	Total   int               `json:"total"`
	Results []upstream.Fields `json:"results"`
}
