package migration

import (
	"context"
	"fmt"

	"survivaldash/domain/dataset"
	"survivaldash/domain/query"
	"survivaldash/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner creates the passenger table and, on postgres, a stand-in
// survival scoring function for development warehouses.
type MigrationRunner struct {
	version         string
	driver          string
	table           string
	scoringFunction string
}

var _ Migrator = (*MigrationRunner)(nil)

// NewRunner creates a migration runner for the given driver and table.
// scoringFunction may be empty to skip creating the function.
func NewRunner(driver, table, scoringFunction string) *MigrationRunner {
	return &MigrationRunner{
		version:         "1.0.0",
		driver:          driver,
		table:           table,
		scoringFunction: scoringFunction,
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createPassengerTable(ctx, db); err != nil {
		return errors.Wrapf(err, "failed to create %s table", r.table)
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create indexes")
	}

	if r.driver == "postgres" && r.scoringFunction != "" {
		if err := r.createScoringFunction(ctx, db); err != nil {
			return errors.Wrap(err, "failed to create scoring function")
		}
	}

	return nil
}

func (r *MigrationRunner) createPassengerTable(ctx context.Context, db *sqlx.DB) error {
	realType, textType := "REAL", "TEXT"
	if r.driver == "postgres" {
		realType = "DOUBLE PRECISION"
	}
	_, err := db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			"PASSENGERID" INTEGER PRIMARY KEY,
			"SURVIVED" INTEGER NOT NULL,
			"PCLASS" INTEGER NOT NULL,
			"NAME" %[3]s NOT NULL,
			"SEX" %[3]s NOT NULL,
			"AGE" %[2]s,
			"SIBSP" INTEGER NOT NULL DEFAULT 0,
			"PARCH" INTEGER NOT NULL DEFAULT 0,
			"TICKET" %[3]s NOT NULL DEFAULT '',
			"FARE" %[2]s NOT NULL DEFAULT 0,
			"CABIN" %[3]s,
			"EMBARKED" %[3]s
		)
	`, query.QuoteIdent(r.table), realType, textType))
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	name := query.QuoteIdent("IDX_" + r.table + "_SURVIVED")
	_, err := db.ExecContext(ctx, fmt.Sprintf(
		`CREATE INDEX IF NOT EXISTS %s ON %s ("SURVIVED")`, name, query.QuoteIdent(r.table)))
	return err
}

// createScoringFunction installs the same decision tree the local sqlite
// warehouse registers in-process.
func (r *MigrationRunner) createScoringFunction(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, fmt.Sprintf(`
		CREATE OR REPLACE FUNCTION %s(rec json) RETURNS double precision
		LANGUAGE sql IMMUTABLE AS $fn$
			SELECT CASE
				WHEN rec->>'SEX' = 'female' THEN
					CASE
						WHEN (rec->>'PCLASS')::int <= 2 THEN 1
						WHEN (rec->>'FARE')::float >= 23 THEN 0
						WHEN rec->>'EMBARKED' = 'S' AND (rec->>'AGE')::float > 35 THEN 0
						ELSE 1
					END
				WHEN (rec->>'AGE')::float <= 9 AND (rec->>'PCLASS')::int <= 2 THEN 1
				WHEN (rec->>'PCLASS')::int = 1 AND (rec->>'AGE')::float <= 17 THEN 1
				ELSE 0
			END::double precision
		$fn$
	`, r.scoringFunction))
	return err
}

const insertBatchSize = 500

// InsertPassengers bulk-loads rows into table, replacing nothing: rows whose
// id already exists make the load fail.
func InsertPassengers(ctx context.Context, db *sqlx.DB, table string, rows []dataset.Passenger) error {
	if len(rows) == 0 {
		return nil
	}
	cols := ""
	vals := ""
	for i, c := range dataset.Columns {
		if i > 0 {
			cols += ", "
			vals += ", "
		}
		cols += query.QuoteIdent(c)
		vals += ":" + c
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", query.QuoteIdent(table), cols, vals)

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin load")
	}
	defer tx.Rollback()

	for start := 0; start < len(rows); start += insertBatchSize {
		end := min(start+insertBatchSize, len(rows))
		if _, err := tx.NamedExecContext(ctx, stmt, rows[start:end]); err != nil {
			return errors.Wrapf(err, "failed to insert rows %d..%d", start, end)
		}
	}
	return errors.Wrap(tx.Commit(), "failed to commit load")
}
