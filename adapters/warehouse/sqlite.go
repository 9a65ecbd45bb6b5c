package warehouse

import (
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/tidwall/gjson"
)

// sqliteDriverName is the go-sqlite3 driver with the scoring function
// registered on every connection.
const sqliteDriverName = "sqlite3_survivaldash"

func init() {
	sql.Register(sqliteDriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("survived", ScoreRecord, true)
		},
	})
	sqlx.BindDriver(sqliteDriverName, sqlx.QUESTION)
}

// OpenSQLite opens the local warehouse at dsn. Use ":memory:" for tests; the
// pool is then pinned to one connection so every query sees the same data.
func OpenSQLite(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open(sqliteDriverName, dsn)
	if err != nil {
		return nil, err
	}
	if dsn == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

// ScoreRecord is the local stand-in for the warehouse's survival model. It
// reads the JSON record built by the object constructor and walks a fixed
// decision tree over sex, class, fare and age. It returns 1 for survival and
// 0 otherwise.
func ScoreRecord(record string) float64 {
	sex := gjson.Get(record, "SEX").String()
	pclass := gjson.Get(record, "PCLASS").Int()
	age := gjson.Get(record, "AGE").Float()
	fare := gjson.Get(record, "FARE").Float()
	embarked := gjson.Get(record, "EMBARKED").String()

	if sex == "female" {
		if pclass <= 2 {
			return 1
		}
		if fare >= 23 {
			return 0
		}
		if embarked == "S" && age > 35 {
			return 0
		}
		return 1
	}

	if age <= 9 && pclass <= 2 {
		return 1
	}
	if pclass == 1 && age <= 17 {
		return 1
	}
	return 0
}
