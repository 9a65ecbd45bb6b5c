// Package prediction holds the survival prediction form, its validation and
// the interpretation of the scoring function's label.
package prediction

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"survivaldash/internal/errors"
)

// Form bounds and choices.
const (
	MinAge     = 0
	MaxAge     = 90
	DefaultAge = 1

	MinFare     = 15
	MaxFare     = 500
	DefaultFare = 40
)

var (
	Sexes   = []string{"female", "male"}
	Classes = []int{1, 2, 3}
	Ports   = []string{"Queenstown, Ireland", "Southampton, U.K.", "Cherbourg, France"}
)

// Request is one row of scoring inputs.
type Request struct {
	Embarked string `json:"embarked"`
	Sex      string `json:"sex"`
	Pclass   int    `json:"pclass"`
	Age      int    `json:"age"`
	Fare     int    `json:"fare"`
}

// NormalizePort reduces a port of departure to the one-letter code the
// scorer expects: "Southampton, U.K." becomes "S".
func NormalizePort(port string) string {
	port = strings.TrimSpace(port)
	if port == "" {
		return ""
	}
	r, _ := utf8.DecodeRuneInString(port)
	return string(r)
}

// Normalize returns the canonical form of r, used both as the scoring input
// and as the cache key.
func (r Request) Normalize() Request {
	r.Embarked = NormalizePort(r.Embarked)
	r.Sex = strings.ToLower(strings.TrimSpace(r.Sex))
	return r
}

// Validate checks the request against the form's bounded inputs. It accepts
// both full port names and one-letter codes.
func (r Request) Validate() error {
	n := r.Normalize()
	if !portCodeKnown(n.Embarked) {
		return errors.InvalidInput(fmt.Sprintf("unknown port of departure %q", r.Embarked))
	}
	if !contains(Sexes, n.Sex) {
		return errors.InvalidInput(fmt.Sprintf("unknown gender %q", r.Sex))
	}
	if !containsInt(Classes, r.Pclass) {
		return errors.InvalidInput(fmt.Sprintf("class must be 1, 2 or 3, got %d", r.Pclass))
	}
	if r.Age < MinAge || r.Age > MaxAge {
		return errors.InvalidInput(fmt.Sprintf("age must be within %d..%d, got %d", MinAge, MaxAge, r.Age))
	}
	if r.Fare < MinFare || r.Fare > MaxFare {
		return errors.InvalidInput(fmt.Sprintf("fare must be within %d..%d, got %d", MinFare, MaxFare, r.Fare))
	}
	return nil
}

// Record is the single row sent to the scoring function, keyed by column.
func (r Request) Record() []Field {
	n := r.Normalize()
	return []Field{
		{Name: "EMBARKED", Value: n.Embarked},
		{Name: "SEX", Value: n.Sex},
		{Name: "PCLASS", Value: n.Pclass},
		{Name: "AGE", Value: n.Age},
		{Name: "FARE", Value: n.Fare},
	}
}

// Field is one named value of a scoring record. Order is preserved.
type Field struct {
	Name  string
	Value any
}

// Outcome is the interpreted result of a scoring call.
type Outcome struct {
	Request  Request `json:"request"`
	Label    float64 `json:"label"`
	Survived bool    `json:"survived"`
	Message  string  `json:"message"`
	Cached   bool    `json:"cached"`
}

const (
	SurvivedMessage = "### Congrats, you will probably survive!"
	PerishedMessage = "### Oh no, the stars are not aligned in your favour!"
)

// Interpret maps a predicted label onto an outcome. Only exactly 1.0 counts
// as survival.
func Interpret(req Request, label float64) Outcome {
	o := Outcome{Request: req, Label: label, Message: PerishedMessage}
	if label == 1.0 {
		o.Survived = true
		o.Message = SurvivedMessage
	}
	return o
}

func portCodeKnown(code string) bool {
	for _, p := range Ports {
		if NormalizePort(p) == code {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsInt(list []int, n int) bool {
	for _, v := range list {
		if v == n {
			return true
		}
	}
	return false
}
