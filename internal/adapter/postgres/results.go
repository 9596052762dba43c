package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/couchcryptid/dpe-enrichment-service/internal/domain"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

const wgs84 = 4326

// column pairs a user_verified column with its value and, optionally, an
// SQL expression wrapping the placeholder.
type column struct {
	name string
	expr string
	val  any
}

// InsertResult writes one user_verified row. A second insert for the same
// run and user replaces the first.
func (s *Store) InsertResult(ctx context.Context, row domain.ResultRow) error {
	cols, err := resultColumns(row)
	if err != nil {
		return domain.Store(domain.StagePersist, "encode location", err)
	}
	sql, args := buildUpsert("user_verified", []string{"run_id", "user_id"}, cols)
	if _, err := s.pool.Exec(ctx, sql, args...); err != nil {
		return domain.Store(domain.StagePersist, "insert user_verified", err)
	}
	return nil
}

func resultColumns(row domain.ResultRow) ([]column, error) {
	c := row.Combined
	u := row.User

	location, err := pointEWKB(c.Geocode)
	if err != nil {
		return nil, err
	}
	var mutationDate *time.Time
	if !c.RecentMutation.Date.IsZero() {
		d := c.RecentMutation.Date
		mutationDate = &d
	}

	cols := []column{
		{name: "run_id", val: row.RunID},
		{name: "user_id", val: u.ID},
		{name: "nom", val: u.LastName},
		{name: "prenom", val: u.FirstName},
		{name: "numero", val: u.ContactNumber},
		{name: "email", val: nullString(u.Email)},
		{name: "adresse", val: c.Address},
		{name: "latitude", val: c.Geocode.Latitude},
		{name: "longitude", val: c.Geocode.Longitude},
		{name: "location", expr: "ST_GeomFromEWKB(%s)", val: location},
		{name: "date_mutation", val: mutationDate},
	}

	if d := c.Diagnostic; d != nil {
		cols = append(cols,
			column{name: "code_postal", val: nullString(d.PostalCode)},
			column{name: "identifiant_ban", val: nullString(d.BANID)},
			column{name: "adresse_complete", val: nullString(d.FullAddress)},
			column{name: "type_batiment", val: nullString(d.BuildingType)},
			column{name: "periode_construction", val: nullString(d.ConstructionPeriod)},
			column{name: "etiquette_dpe", val: nullString(d.EnergyLabel)},
			column{name: "hauteur_sous_plafond", val: d.CeilingHeight},
			column{name: "surface_habitable_logement", val: d.UnitLivingSurface},
			column{name: "adresse_brute", val: nullString(d.RawAddress)},
			column{name: "coord_x", val: d.CoordX},
			column{name: "coord_y", val: d.CoordY},
			column{name: "type_energie_principale_ecs", val: nullString(d.DHWEnergyType)},
			column{name: "type_energie_chauffage", val: nullString(d.HeatingEnergyType)},
			column{name: "conso_5_usages", val: d.ConsumptionTotal},
			column{name: "conso_5_usages_par_m2", val: d.ConsumptionPerM2},
			column{name: "conso_chauffage", val: d.ConsumptionHeating},
			column{name: "conso_chauffage_depensier", val: d.ConsumptionHeatingHigh},
			column{name: "conso_eclairage", val: d.ConsumptionLighting},
			column{name: "conso_ecs", val: d.ConsumptionDHW},
			column{name: "conso_auxiliaires", val: d.ConsumptionAuxiliary},
			column{name: "conso_refroidissement", val: d.ConsumptionCooling},
		)
	} else {
		cols = append(cols, column{name: "code_postal", val: nullString(u.PostalCode)})
	}

	ind := row.Indicators
	cols = append(cols,
		column{name: "cout_moyen_kwh", val: ind.CostPerKwh},
		column{name: "ire", val: ind.IRE},
		column{name: "ipe", val: ind.IPE},
	)
	if p := ind.Projection; p != nil {
		cols = append(cols,
			column{name: "classe_cible", val: p.TargetClass},
			column{name: "conso_actuel_annuel", val: p.CurrentCost},
			column{name: "conso_prev_min_annuel", val: p.ProjectedMin},
			column{name: "conso_prev_moyenne_annuel", val: p.ProjectedAverage},
			column{name: "conso_prev_max_annuel", val: p.ProjectedMax},
			column{name: "economies_annuelles_min", val: p.SavingsMin},
			column{name: "economies_annuelles_moyenne", val: p.SavingsAverage},
			column{name: "economies_annuelles_max", val: p.SavingsMax},
		)
	}

	cols = append(cols,
		column{name: "status", val: "enriched"},
		column{name: "enriched_at", val: row.EnrichedAt},
	)
	return cols, nil
}

// buildUpsert renders an INSERT ... ON CONFLICT DO UPDATE over cols.
func buildUpsert(table string, conflict []string, cols []column) (string, []any) {
	names := make([]string, len(cols))
	values := make([]string, len(cols))
	args := make([]any, len(cols))
	var updates []string

	isKey := make(map[string]bool, len(conflict))
	for _, k := range conflict {
		isKey[k] = true
	}

	for i, c := range cols {
		names[i] = c.name
		ph := fmt.Sprintf("$%d", i+1)
		if c.expr != "" {
			ph = fmt.Sprintf(c.expr, ph)
		}
		values[i] = ph
		args[i] = c.val
		if !isKey[c.name] {
			updates = append(updates, c.name+" = EXCLUDED."+c.name)
		}
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
		table,
		strings.Join(names, ", "),
		strings.Join(values, ", "),
		strings.Join(conflict, ", "),
		strings.Join(updates, ", "),
	)
	return sql, args
}

// pointEWKB encodes p as a little-endian EWKB point in SRID 4326.
func pointEWKB(p domain.GeoPoint) ([]byte, error) {
	pt := geom.NewPointFlat(geom.XY, []float64{p.Longitude, p.Latitude}).SetSRID(wgs84)
	b, err := ewkb.Marshal(pt, ewkb.NDR)
	if err != nil {
		return nil, fmt.Errorf("marshal ewkb: %w", err)
	}
	return b, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
