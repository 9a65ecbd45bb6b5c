// Package warehouse is the session provider: one pooled connection to the
// remote tabular data service, shared by every page.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"survivaldash/domain/prediction"
	"survivaldash/internal"
	"survivaldash/internal/config"
	"survivaldash/internal/errors"
	"survivaldash/ports"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const (
	// DriverPostgres talks to a postgres-compatible warehouse.
	DriverPostgres = "postgres"
	// DriverSQLite is the local warehouse. The scoring function runs in-process.
	DriverSQLite = "sqlite3"
)

var functionName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Session wraps the connection pool.
type Session struct {
	db     *sqlx.DB
	driver string
	logger *internal.Logger
}

// Open connects to the warehouse and verifies the connection.
func Open(ctx context.Context, cfg config.WarehouseConfig, logger *internal.Logger) (*Session, error) {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	var (
		db  *sqlx.DB
		err error
	)
	switch cfg.Driver {
	case DriverPostgres:
		db, err = sqlx.Open(DriverPostgres, cfg.URL)
	case DriverSQLite:
		db, err = OpenSQLite(cfg.URL)
	default:
		return nil, errors.ConfigInvalid(fmt.Sprintf("unsupported warehouse driver %q", cfg.Driver))
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to open warehouse")
	}
	if cfg.MaxOpenConns > 0 && cfg.URL != ":memory:" {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to ping warehouse"))
	}

	logger.Info("warehouse session opened (driver=%s)", cfg.Driver)
	return NewSession(db, cfg.Driver, logger), nil
}

// NewSession wraps an existing pool. driver is DriverPostgres or DriverSQLite.
func NewSession(db *sqlx.DB, driver string, logger *internal.Logger) *Session {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	return &Session{db: db, driver: driver, logger: logger}
}

// DB exposes the pool for schema management and bulk loads.
func (s *Session) DB() *sqlx.DB { return s.db }

// Driver returns DriverPostgres or DriverSQLite.
func (s *Session) Driver() string { return s.driver }

// Close releases the pool.
func (s *Session) Close() error { return s.db.Close() }

// Ping checks the connection.
func (s *Session) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Table returns a lazy handle on the named table.
func (s *Session) Table(name string) ports.TableHandle {
	return &Table{session: s, name: name}
}

// Score calls function with the record built as a JSON object, the way the
// warehouse passes a whole row to a user-defined function.
func (s *Session) Score(ctx context.Context, function string, record []prediction.Field) (float64, error) {
	if !functionName.MatchString(function) {
		return 0, errors.InvalidInput(fmt.Sprintf("invalid scoring function name %q", function))
	}

	pairs := make([]string, 0, len(record))
	args := make([]any, 0, len(record))
	for _, f := range record {
		pairs = append(pairs, fmt.Sprintf("'%s', %s", f.Name, s.placeholder(f.Value)))
		args = append(args, f.Value)
	}
	q := fmt.Sprintf("SELECT %s(%s(%s)) AS PREDICTED", function, s.objectConstructor(), strings.Join(pairs, ", "))

	var predicted sql.NullFloat64
	if err := s.db.QueryRowxContext(ctx, s.db.Rebind(q), args...).Scan(&predicted); err != nil {
		return 0, errors.ExternalServiceError("scoring function "+function, err)
	}
	if !predicted.Valid {
		return 0, errors.ExternalServiceError("scoring function "+function, fmt.Errorf("returned NULL"))
	}
	s.logger.Debug("scored record with %s: %v", function, predicted.Float64)
	return predicted.Float64, nil
}

func (s *Session) objectConstructor() string {
	if s.driver == DriverPostgres {
		return "json_build_object"
	}
	return "json_object"
}

// placeholder returns a bind placeholder, typed for postgres where the
// variadic object constructor cannot infer parameter types.
func (s *Session) placeholder(v any) string {
	if s.driver != DriverPostgres {
		return "?"
	}
	switch v.(type) {
	case int, int64:
		return "?::integer"
	case float64:
		return "?::double precision"
	default:
		return "?::text"
	}
}
