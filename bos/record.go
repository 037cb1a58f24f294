// Package bos defines the contract of the Business Object Service: the remote
// platform that owns persistence, business rules and workflow state for the
// models demoseed provisions.
//
// The package is deliberately small. Records are attribute maps, filters are
// conjunctions of clauses and every operation takes a context. Adapters such
// as clients/trytonclient and bos/memstore implement Service; higher layers
// (provision, modules, replay) only ever see this package.
//
// Example usage:
//
//	parties := bos.Model(svc, "party.party")
//	id, err := parties.FindOne(ctx, bos.Where("name", bos.Eq, "Saber"))
//	if errors.Is(err, bos.ErrNotFound) {
//		ids, err := parties.Create(ctx, bos.Record{"name": "Saber"})
//		...
//	}
package bos

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ID identifies a record within one model.
type ID int64

// IDs converts a slice of integers to IDs.
func IDs(v ...int64) []ID {
	ids := make([]ID, len(v))
	for i, x := range v {
		ids[i] = ID(x)
	}
	return ids
}

// Record is the attribute set of one business object.
// Many2one values are IDs, one2many construction uses Children or Add.
type Record map[string]any

// Children constructs nested child records together with their parent,
// e.g. the first address of a party.
type Children []Record

// Add links existing records to a one2many or many2many field.
type Add []ID

// ID returns the "id" attribute of a record read from the service.
func (r Record) ID() ID {
	return r.Ref("id")
}

// Ref returns a many2one attribute as an ID. Missing or null values yield 0.
func (r Record) Ref(key string) ID {
	switch v := r[key].(type) {
	case ID:
		return v
	case int:
		return ID(v)
	case int64:
		return ID(v)
	case float64:
		return ID(v)
	}
	return 0
}

// Refs returns a one2many or many2many attribute as IDs.
func (r Record) Refs(key string) []ID {
	switch v := r[key].(type) {
	case []ID:
		return v
	case Add:
		return []ID(v)
	case []any:
		ids := make([]ID, 0, len(v))
		for _, x := range v {
			ids = append(ids, Record{"v": x}.Ref("v"))
		}
		return ids
	}
	return nil
}

// String returns a string attribute or "".
func (r Record) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// Decimal returns a numeric attribute as a decimal. Missing values yield zero.
func (r Record) Decimal(key string) decimal.Decimal {
	switch v := r[key].(type) {
	case decimal.Decimal:
		return v
	case int:
		return decimal.NewFromInt(int64(v))
	case int64:
		return decimal.NewFromInt(v)
	case float64:
		return decimal.NewFromFloat(v)
	case string:
		d, err := decimal.NewFromString(v)
		if err == nil {
			return d
		}
	}
	return decimal.Zero
}

// Date returns a date attribute. ok is false when the attribute is unset.
func (r Record) Date(key string) (Date, bool) {
	d, ok := r[key].(Date)
	return d, ok
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	c := make(Record, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

// Date is a calendar date without time of day.
type Date struct {
	time.Time
}

// DateOf truncates t to its calendar date in t's location and returns it in UTC.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// NewDate returns the given calendar date.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// AddDays returns the date n days later (earlier for negative n).
func (d Date) AddDays(n int) Date {
	return Date{d.Time.AddDate(0, 0, n)}
}

// AddMonths returns the date n months later, clamped to the last day of the
// target month (Jan 31 + 1 month is the last day of February).
func (d Date) AddMonths(n int) Date {
	y, m, day := d.Time.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1).Day()
	if day > last {
		day = last
	}
	return NewDate(first.Year(), first.Month(), day)
}

// StartOfYear returns January 1st of the date's year shifted by years.
func (d Date) StartOfYear(years int) Date {
	return NewDate(d.Year()+years, time.January, 1)
}

// EndOfYear returns December 31st of the date's year.
func (d Date) EndOfYear() Date {
	return NewDate(d.Year(), time.December, 31)
}

// Before reports whether d is strictly before e.
func (d Date) Before(e Date) bool {
	return d.Time.Before(e.Time)
}

// After reports whether d is strictly after e.
func (d Date) After(e Date) bool {
	return d.Time.After(e.Time)
}

// Equal reports whether d and e are the same calendar date.
func (d Date) Equal(e Date) bool {
	return d.Time.Equal(e.Time)
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(time.DateOnly)
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return Date{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return DateOf(t), nil
}
