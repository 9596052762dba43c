package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// DefaultSearchRadius is the DVF/DPE search radius in meters used when a
// caller does not supply one.
const DefaultSearchRadius = 100

// GeoPoint is a WGS-84 latitude/longitude pair.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// MutationRecord is a single property sale from DVF.
type MutationRecord struct {
	Date      time.Time
	Latitude  float64
	Longitude float64
}

type mutationJSON struct {
	Date      string  `json:"date_mutation"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// MarshalJSON writes the sale date in DVF's YYYY-MM-DD form.
func (m MutationRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(mutationJSON{
		Date:      m.Date.Format(time.DateOnly),
		Latitude:  m.Latitude,
		Longitude: m.Longitude,
	})
}

func (m *MutationRecord) UnmarshalJSON(data []byte) error {
	var v mutationJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	d, err := time.Parse(time.DateOnly, v.Date)
	if err != nil {
		return fmt.Errorf("parse date_mutation: %w", err)
	}
	*m = MutationRecord{Date: d, Latitude: v.Latitude, Longitude: v.Longitude}
	return nil
}

// DiagnosticRecord is one DPE (energy performance diagnostic) entry.
// Numeric fields are nil when the upstream value was missing or not numeric.
type DiagnosticRecord struct {
	Commune                 string   `json:"commune"`
	PostalCode              string   `json:"code_postal"`
	StreetNumber            string   `json:"numero_voie"`
	BANID                   string   `json:"identifiant_ban"`
	FullAddress             string   `json:"adresse_complete"`
	RawAddress              string   `json:"adresse_brute"`
	ConstructionYear        *int     `json:"annee_construction"`
	ConstructionPeriod      string   `json:"periode_construction"`
	BuildingType            string   `json:"type_batiment"`
	HeatingInstallationType string   `json:"type_installation_chauffage"`
	DHWInstallationType     string   `json:"type_installation_ecs"`
	HeatingEnergyType       string   `json:"type_energie_chauffage"`
	DHWEnergyType           string   `json:"type_energie_principale_ecs"`
	EnergyLabel             string   `json:"etiquette_DPE"`
	CeilingHeight           *float64 `json:"hauteur_sous_plafond"`
	UnitLivingSurface       *float64 `json:"surface_habitable_logement"`
	BuildingLivingSurface   *float64 `json:"surface_habitable_immeuble"`
	ApartmentCount          *int     `json:"nombre_appartement"`
	CoordX                  *float64 `json:"coord_x"` // Lambert-93
	CoordY                  *float64 `json:"coord_y"`

	// Final energy consumption, kWh/year unless noted.
	ConsumptionTotal       *float64 `json:"conso_5_usages"`
	ConsumptionPerM2       *float64 `json:"conso_5_usages_par_m2"` // kWh/m²/year
	ConsumptionHeating     *float64 `json:"conso_chauffage"`
	ConsumptionHeatingHigh *float64 `json:"conso_chauffage_depensier"`
	ConsumptionLighting    *float64 `json:"conso_eclairage"`
	ConsumptionDHW         *float64 `json:"conso_ecs"`
	ConsumptionAuxiliary   *float64 `json:"conso_auxiliaires"`
	ConsumptionCooling     *float64 `json:"conso_refroidissement"`
}

// CostEnergyType returns the energy label used for the cost lookup: the
// primary heating energy, falling back to the hot-water energy.
func (d DiagnosticRecord) CostEnergyType() string {
	if d.HeatingEnergyType != "" {
		return d.HeatingEnergyType
	}
	return d.DHWEnergyType
}

// EnergyCostEntry is one row of the average energy cost reference table.
type EnergyCostEntry struct {
	HeatingType string   `json:"type_chauffage" yaml:"type_chauffage"`
	CostPerKwh  *float64 `json:"cout_moyen_kwh" yaml:"cout_moyen_kwh"`
	Year        int      `json:"annee" yaml:"annee"`
}

// ClassConsumption is the final consumption band of a DPE class, kWh/m²/year.
type ClassConsumption struct {
	Class   string  `json:"classe" yaml:"classe"`
	Min     float64 `json:"consommation_min" yaml:"consommation_min"`
	Average float64 `json:"consommation_moyenne" yaml:"consommation_moyenne"`
	Max     float64 `json:"consommation_max" yaml:"consommation_max"`
}

// EnrichOptions tunes a single-address enrichment.
type EnrichOptions struct {
	// RadiusMeters is the DVF/DPE search radius; zero means the configured default.
	RadiusMeters float64
	// Indicators computes IRE/IPE for the first matching diagnostic.
	Indicators bool
}

// CombinedResult is the output of a single-address enrichment. Diagnostics
// holds every record whose street number equals the queried one, in API order.
type CombinedResult struct {
	Address        string             `json:"address"`
	Geocode        GeoPoint           `json:"geocode"`
	RecentMutation MutationRecord     `json:"recentMutation"`
	Diagnostics    []DiagnosticRecord `json:"dpeData"`
	Indicators     *Indicators        `json:"indicators,omitempty"`
}

// Indicators bundles the derived figures for one diagnostic.
type Indicators struct {
	CostPerKwh *float64           `json:"cout_moyen_kwh"`
	IRE        *float64           `json:"IRE"`
	IPE        *float64           `json:"IPE"`
	Projection *SavingsProjection `json:"projection,omitempty"`
}

// UserRecord is a row from the users table.
type UserRecord struct {
	ID            string `json:"id"`
	LastName      string `json:"nom"`
	FirstName     string `json:"prenom"`
	ContactNumber string `json:"numero"`
	Email         string `json:"email,omitempty"`
	StreetNumber  string `json:"numero_voie"`
	StreetName    string `json:"nom_rue"` // street type and name combined
	PostalCode    string `json:"code_postal"`
	Commune       string `json:"commune"`
}

// UserCombinedData is the per-user combined block of a batch run. Diagnostic
// is the first exact street-number match, or nil when there is none.
type UserCombinedData struct {
	Address        string            `json:"address"`
	Geocode        GeoPoint          `json:"geocode"`
	RecentMutation MutationRecord    `json:"recentMutation"`
	Diagnostic     *DiagnosticRecord `json:"dpeData"`
	IRE            *float64          `json:"IRE,omitempty"`
	IPE            *float64          `json:"IPE,omitempty"`
}

// EnrichedUserRecord is a user plus either CombinedData or Error, never both.
type EnrichedUserRecord struct {
	UserRecord
	CombinedData *UserCombinedData `json:"combinedData"`
	Error        string            `json:"error,omitempty"`
}

// BatchResult is the output of one batch run, users in listing order.
type BatchResult struct {
	RunID string               `json:"run_id,omitempty"`
	Users []EnrichedUserRecord `json:"users"`
}

// ResultRow is what gets persisted for one successfully enriched user.
type ResultRow struct {
	RunID      string
	User       UserRecord
	Combined   UserCombinedData
	Indicators Indicators
	EnrichedAt time.Time
}

// EnrichmentEvent is published for each persisted row.
type EnrichmentEvent struct {
	RunID      string           `json:"run_id"`
	UserID     string           `json:"user_id"`
	Combined   UserCombinedData `json:"combined"`
	Indicators Indicators       `json:"indicators"`
	EnrichedAt time.Time        `json:"enriched_at"`
}

// Geocoder resolves a formatted address to coordinates.
type Geocoder interface {
	Resolve(ctx context.Context, formattedAddress string) (GeoPoint, error)
}

// TransactionLookup retrieves property sales near a point.
type TransactionLookup interface {
	Lookup(ctx context.Context, point GeoPoint, radiusMeters float64) ([]MutationRecord, error)
}

// DiagnosticLookup retrieves DPE records near a point, unfiltered.
type DiagnosticLookup interface {
	Lookup(ctx context.Context, point GeoPoint, radiusMeters float64) ([]DiagnosticRecord, error)
}

// EnergyCostLookup returns the average cost per kWh for an energy label.
// A nil cost with a nil error means the row exists but has no cost.
type EnergyCostLookup interface {
	AverageCostPerKwh(ctx context.Context, heatingType string) (*float64, error)
}

// ClassConsumptionLookup returns the consumption band of a DPE class.
type ClassConsumptionLookup interface {
	ClassConsumption(ctx context.Context, class string) (ClassConsumption, error)
}

// UserStore lists the users to enrich.
type UserStore interface {
	ListUsers(ctx context.Context) ([]UserRecord, error)
}

// ResultStore persists one enriched row per user per run.
type ResultStore interface {
	InsertResult(ctx context.Context, row ResultRow) error
}
