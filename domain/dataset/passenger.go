package dataset

import "database/sql"

// Passenger is one row of the TITANIC table.
type Passenger struct {
	PassengerID int64           `db:"PASSENGERID" json:"passenger_id"`
	Survived    int64           `db:"SURVIVED" json:"survived"`
	Pclass      int64           `db:"PCLASS" json:"pclass"`
	Name        string          `db:"NAME" json:"name"`
	Sex         string          `db:"SEX" json:"sex"`
	Age         sql.NullFloat64 `db:"AGE" json:"age"`
	SibSp       int64           `db:"SIBSP" json:"sibsp"`
	Parch       int64           `db:"PARCH" json:"parch"`
	Ticket      string          `db:"TICKET" json:"ticket"`
	Fare        float64         `db:"FARE" json:"fare"`
	Cabin       sql.NullString  `db:"CABIN" json:"cabin"`
	Embarked    sql.NullString  `db:"EMBARKED" json:"embarked"`
}

// Columns lists the table's columns in insertion order.
var Columns = []string{
	"PASSENGERID", "SURVIVED", "PCLASS", "NAME", "SEX", "AGE",
	"SIBSP", "PARCH", "TICKET", "FARE", "CABIN", "EMBARKED",
}

// OutcomeColumn is the label the analysis page groups by.
const OutcomeColumn = "SURVIVED"
