package postgres

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/dpe-enrichment-service/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

func strp(s string) *string { return &s }

func f64(v float64) *float64 { return &v }

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

var userColumns = []string{"id", "nom", "prenom", "numero", "email", "numero_voie", "nom_rue", "code_postal", "commune"}

func TestListUsers(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT id, nom, prenom, numero, email, numero_voie, nom_rue, code_postal, commune\s+FROM users\s+ORDER BY id`).
		WillReturnRows(pgxmock.NewRows(userColumns).
			AddRow("u1", strp("Dupont"), strp("Marie"), strp("0601020304"), strp("marie@example.fr"),
				strp("12"), strp("Rue de la Paix"), strp("75002"), strp("Paris")).
			AddRow("u2", strp("Martin"), (*string)(nil), (*string)(nil), (*string)(nil),
				strp("8"), (*string)(nil), strp("33000"), strp("Bordeaux")))

	users, err := New(mock).ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)

	assert.Equal(t, domain.UserRecord{
		ID: "u1", LastName: "Dupont", FirstName: "Marie", ContactNumber: "0601020304", Email: "marie@example.fr",
		StreetNumber: "12", StreetName: "Rue de la Paix", PostalCode: "75002", Commune: "Paris",
	}, users[0])
	assert.Equal(t, "Martin", users[1].LastName)
	assert.Empty(t, users[1].StreetName)
	assert.Empty(t, users[1].Email)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListUsers_QueryError(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`FROM users`).WillReturnError(errors.New(`relation "users" does not exist`))

	_, err := New(mock).ListUsers(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStore)
	assert.Equal(t, domain.StageListUsers, domain.StageOf(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAverageCostPerKwh(t *testing.T) {
	tests := []struct {
		name    string
		rows    *pgxmock.Rows
		err     error
		want    *float64
		wantErr error
	}{
		{
			name: "found",
			rows: pgxmock.NewRows([]string{"cout_moyen_kwh"}).AddRow(f64(0.109)),
			want: f64(0.109),
		},
		{
			name: "null cost",
			rows: pgxmock.NewRows([]string{"cout_moyen_kwh"}).AddRow((*float64)(nil)),
		},
		{
			name:    "missing row",
			err:     pgx.ErrNoRows,
			wantErr: domain.ErrNotFound,
		},
		{
			name:    "connection failure",
			err:     errors.New("connection reset by peer"),
			wantErr: domain.ErrStore,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMock(t)
			q := mock.ExpectQuery(regexp.QuoteMeta(costSQL)).WithArgs("Gaz naturel")
			if tt.err != nil {
				q.WillReturnError(tt.err)
			} else {
				q.WillReturnRows(tt.rows)
			}

			got, err := New(mock).AverageCostPerKwh(context.Background(), "Gaz naturel")
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, domain.StageEnergyCost, domain.StageOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestClassConsumption(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(classSQL)).WithArgs("C").
		WillReturnRows(pgxmock.NewRows([]string{"classe", "consommation_min", "consommation_moyenne", "consommation_max"}).
			AddRow("C", 111.0, 145.0, 180.0))

	got, err := New(mock).ClassConsumption(context.Background(), "C")
	require.NoError(t, err)
	assert.Equal(t, domain.ClassConsumption{Class: "C", Min: 111, Average: 145, Max: 180}, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClassConsumption_NotFound(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(classSQL)).WithArgs("Z").WillReturnError(pgx.ErrNoRows)

	_, err := New(mock).ClassConsumption(context.Background(), "Z")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, domain.StageIndicators, domain.StageOf(err))
}

func TestSeedEnergyCosts(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO energy_costs`).
		WithArgs("Gaz naturel", f64(0.109), 2024).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO energy_costs`).
		WithArgs("Réseau de Froid Urbain", (*float64)(nil), 2024).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	n, err := New(mock).SeedEnergyCosts(context.Background(), []domain.EnergyCostEntry{
		{HeatingType: "Gaz naturel", CostPerKwh: f64(0.109), Year: 2024},
		{HeatingType: "Réseau de Froid Urbain", Year: 2024},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSeedClassConsumption_RollsBackOnError(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO dpe_class_consumption`).
		WithArgs("A", 0.0, 50.0, 70.0).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO dpe_class_consumption`).
		WithArgs("B", 71.0, 90.0, 110.0).
		WillReturnError(errors.New("check constraint violated"))
	mock.ExpectRollback()

	n, err := New(mock).SeedClassConsumption(context.Background(), []domain.ClassConsumption{
		{Class: "A", Min: 0, Average: 50, Max: 70},
		{Class: "B", Min: 71, Average: 90, Max: 110},
	})
	require.Error(t, err)
	assert.Zero(t, n)
	assert.Contains(t, err.Error(), `upsert class "B"`)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSeedEnergyCosts_BeginFails(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	_, err := New(mock).SeedEnergyCosts(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin")
}

func resultRow() domain.ResultRow {
	return domain.ResultRow{
		RunID: "6f1c3d7e-0a4b-4d8e-9f21-3b5c7a9d1e02",
		User: domain.UserRecord{
			ID: "u1", LastName: "Dupont", FirstName: "Marie", ContactNumber: "0601020304",
			StreetNumber: "12", StreetName: "Rue de la Paix", PostalCode: "75002", Commune: "Paris",
		},
		Combined: domain.UserCombinedData{
			Address:        "12 Rue de la Paix 75002 Paris",
			Geocode:        domain.GeoPoint{Latitude: 48.869, Longitude: 2.331},
			RecentMutation: domain.MutationRecord{Date: time.Date(2022, 11, 30, 0, 0, 0, 0, time.UTC)},
			Diagnostic: &domain.DiagnosticRecord{
				StreetNumber: "12", BANID: "75102_7034_00012", EnergyLabel: "B",
				ConsumptionPerM2: f64(150), UnitLivingSurface: f64(80),
			},
		},
		Indicators: domain.Indicators{
			CostPerKwh: f64(0.109),
			IRE:        f64(1308),
			IPE:        f64(225),
			Projection: &domain.SavingsProjection{TargetClass: "B", CurrentCost: 1308, ProjectedAverage: 784.8, SavingsAverage: 523.2},
		},
		EnrichedAt: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
	}
}

// anyArgs matches every column of row without inspecting values.
func anyArgs(t *testing.T, row domain.ResultRow) []any {
	t.Helper()
	cols, err := resultColumns(row)
	require.NoError(t, err)
	args := make([]any, len(cols))
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func TestInsertResult(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec(`INSERT INTO user_verified \(run_id, user_id, .*ST_GeomFromEWKB\(\$10\).*ON CONFLICT \(run_id, user_id\) DO UPDATE SET`).
		WithArgs(anyArgs(t, resultRow())...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, New(mock).InsertResult(context.Background(), resultRow()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertResult_Failure(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec(`INSERT INTO user_verified`).
		WithArgs(anyArgs(t, resultRow())...).
		WillReturnError(errors.New("deadlock detected"))

	err := New(mock).InsertResult(context.Background(), resultRow())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStore)
	assert.Equal(t, domain.StagePersist, domain.StageOf(err))
}

func TestResultColumns(t *testing.T) {
	cols, err := resultColumns(resultRow())
	require.NoError(t, err)

	byName := make(map[string]any, len(cols))
	for _, c := range cols {
		_, dup := byName[c.name]
		require.False(t, dup, "duplicate column %s", c.name)
		byName[c.name] = c.val
	}
	assert.Equal(t, "u1", byName["user_id"])
	assert.Equal(t, strp("75102_7034_00012"), byName["identifiant_ban"])
	assert.Equal(t, "B", byName["classe_cible"])
	assert.Equal(t, "enriched", byName["status"])
	assert.Nil(t, byName["email"].(*string))
}

func TestResultColumns_NoDiagnostic(t *testing.T) {
	row := resultRow()
	row.Combined.Diagnostic = nil
	row.Combined.RecentMutation = domain.MutationRecord{}
	row.Indicators = domain.Indicators{}

	cols, err := resultColumns(row)
	require.NoError(t, err)

	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
		if c.name == "date_mutation" {
			assert.Nil(t, c.val.(*time.Time))
		}
	}
	assert.Contains(t, names, "code_postal")
	assert.NotContains(t, names, "identifiant_ban")
	assert.NotContains(t, names, "classe_cible")
}

func TestBuildUpsert(t *testing.T) {
	sql, args := buildUpsert("t", []string{"k"}, []column{
		{name: "k", val: 1},
		{name: "g", expr: "ST_GeomFromEWKB(%s)", val: []byte{1}},
		{name: "v", val: "x"},
	})
	assert.Equal(t,
		"INSERT INTO t (k, g, v) VALUES ($1, ST_GeomFromEWKB($2), $3) ON CONFLICT (k) DO UPDATE SET g = EXCLUDED.g, v = EXCLUDED.v",
		sql)
	assert.Equal(t, []any{1, []byte{1}, "x"}, args)
}

func TestPointEWKB(t *testing.T) {
	b, err := pointEWKB(domain.GeoPoint{Latitude: 48.869, Longitude: 2.331})
	require.NoError(t, err)

	g, err := ewkb.Unmarshal(b)
	require.NoError(t, err)
	pt, ok := g.(*geom.Point)
	require.True(t, ok)
	assert.Equal(t, 4326, pt.SRID())
	assert.InDelta(t, 2.331, pt.X(), 1e-9)
	assert.InDelta(t, 48.869, pt.Y(), 1e-9)
}

func TestCheckReadiness(t *testing.T) {
	mock := newMock(t)
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	err := New(mock).CheckReadiness(context.Background())
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "database not reachable"))
}
