// Package domain models address-level real-estate and energy-performance data
// assembled from French open-data services.
//
// # Data Sources
//
// Three public APIs are queried for every address, in order:
//
//   - Base Adresse Nationale geocoder (api-adresse.data.gouv.fr): free-text
//     address to a GeoJSON feature collection. Coordinates are [lon, lat].
//   - DVF, "Demandes de valeurs foncières" (api.cquest.org/dvf): property
//     sales ("mutations") within a radius of a point. Each feature carries a
//     date_mutation in YYYY-MM-DD form.
//   - ADEME DPE dataset (data.ademe.fr, dpe-v2-logements-existants): building
//     energy diagnostics within a radius, as flat objects keyed by French
//     column labels such as "N°_voie_(BAN)" or "Conso_5_usages/m²_é_finale".
//
// # DPE Conventions
//
// Energy label:
//
//	A (best) through G (worst). Scored A=1.0 ... G=4.0 in 0.5 steps for IPE.
//
// Consumption figures:
//
//	Final energy in kWh/year, except "Conso_5_usages/m²_é_finale" which is
//	kWh/m²/year. Values arrive as JSON numbers or numeric strings and are
//	coerced best-effort; anything non-numeric becomes absent.
//
// Street number matching:
//
//	Diagnostics are attached by exact string equality between the queried
//	street number and the record's "N°_voie_(BAN)". "12" never matches "12B"
//	or "12 ". Near matches are deliberately ignored.
//
// # Indicators
//
//	IRE = consumption_per_m2 × unit living surface × average cost per kWh
//	IPE = dpe_score(label) × heating consumption × consumption_per_m2 / 1000
//
// Both are absent (nil) rather than zero when an input is missing.
//
// # Street Types
//
// User records store the street type and name as one field ("Rue de la Paix").
// [SplitStreetName] takes the first word as the type, except for a small table
// of known multi-word types ("Grande Rue", "Route Départementale") matched
// without regard to case or accents. Anything else with a multi-word type is
// misparsed, which only affects the type/name split; the formatted address
// sent to the geocoder is the same whitespace-joined text either way.
package domain
