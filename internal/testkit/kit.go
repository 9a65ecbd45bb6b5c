// Package testkit provides a seeded in-memory warehouse and the services
// built on it, for handler and integration tests.
package testkit

import (
	"context"
	"database/sql"
	"testing"

	"survivaldash/adapters/warehouse"
	"survivaldash/app"
	"survivaldash/domain/dataset"
	"survivaldash/domain/filter"
	"survivaldash/internal/migration"

	"github.com/stretchr/testify/require"
)

// Table is the name the kit seeds.
const Table = "TITANIC"

// TestKit bundles a seeded warehouse with services wired to it.
type TestKit struct {
	Session    *warehouse.Session
	Catalog    *filter.Catalog
	Analysis   *app.AnalysisService
	Prediction *app.PredictionService
}

// Passengers is a small sample of the passenger table.
func Passengers() []dataset.Passenger {
	row := func(id, survived, pclass int64, name, sex string, age, fare float64, port string) dataset.Passenger {
		p := dataset.Passenger{
			PassengerID: id, Survived: survived, Pclass: pclass,
			Name: name, Sex: sex, Fare: fare,
		}
		if age > 0 {
			p.Age = sql.NullFloat64{Float64: age, Valid: true}
		}
		if port != "" {
			p.Embarked = sql.NullString{String: port, Valid: true}
		}
		return p
	}
	return []dataset.Passenger{
		row(1, 0, 3, "Braund, Mr. Owen Harris", "male", 22, 7.25, "S"),
		row(2, 1, 1, "Cumings, Mrs. John Bradley", "female", 38, 71.2833, "C"),
		row(3, 1, 3, "Heikkinen, Miss. Laina", "female", 26, 7.925, "S"),
		row(4, 1, 1, "Futrelle, Mrs. Jacques Heath", "female", 35, 53.1, "S"),
		row(5, 0, 3, "Allen, Mr. William Henry", "male", 35, 8.05, "S"),
		row(6, 0, 3, "Moran, Mr. James", "male", 0, 8.4583, "Q"),
		row(7, 0, 1, "McCarthy, Mr. Timothy J", "male", 54, 51.8625, "S"),
		row(8, 0, 3, "Palsson, Master. Gosta Leonard", "male", 2, 21.075, "S"),
		row(9, 1, 3, "Johnson, Mrs. Oscar W", "female", 27, 11.1333, "S"),
		row(10, 1, 2, "Nasser, Mrs. Nicholas", "female", 14, 30.0708, "C"),
		row(17, 0, 3, "Rice, Master. Eugene", "male", 2, 29.125, "Q"),
		row(62, 1, 1, "Icard, Miss. Amelie", "female", 38, 80, ""),
	}
}

// New opens an in-memory warehouse, seeds it and builds the services.
func New(t testing.TB) *TestKit {
	t.Helper()
	ctx := context.Background()

	db, err := warehouse.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, migration.NewRunner(warehouse.DriverSQLite, Table, "").Run(ctx, db))
	require.NoError(t, migration.InsertPassengers(ctx, db, Table, Passengers()))

	session := warehouse.NewSession(db, warehouse.DriverSQLite, nil)

	catalog, err := filter.NewCatalog(filter.DefaultDefinitions()...)
	require.NoError(t, err)
	require.NoError(t, catalog.LoadOptions(ctx, session.Table(Table)))

	predictions, err := app.NewPredictionService(session, "survived", 64, nil)
	require.NoError(t, err)

	return &TestKit{
		Session:    session,
		Catalog:    catalog,
		Analysis:   app.NewAnalysisService(session, catalog, Table, nil),
		Prediction: predictions,
	}
}
