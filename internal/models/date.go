package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

// Date is a calendar date without time of day or zone. It marshals as
// "YYYY-MM-DD" and maps to a SQL DATE column.
type Date struct {
	civil.Date
}

// NewDate builds a Date from its components.
func NewDate(year int, month time.Month, day int) Date {
	return Date{civil.Date{Year: year, Month: month, Day: day}}
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	return Date{civil.DateOf(t)}
}

// Today returns the current UTC calendar date.
func Today() Date {
	return DateOf(time.Now().UTC())
}

// ParseDate parses a "YYYY-MM-DD" string.
func ParseDate(raw string) (Date, error) {
	d, err := civil.ParseDate(raw)
	if err != nil {
		return Date{}, err
	}
	return Date{d}, nil
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool {
	return d.Date == civil.Date{}
}

// AddDays returns the date n days later (earlier for negative n).
func (d Date) AddDays(n int) Date {
	return Date{d.Date.AddDays(n)}
}

// Time returns midnight UTC of the date.
func (d Date) Time() time.Time {
	return d.In(time.UTC)
}

// Value implements driver.Valuer.
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.Time(), nil
}

// Scan implements sql.Scanner.
func (d *Date) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = DateOf(v)
		return nil
	case []byte:
		return d.scanString(string(v))
	case string:
		return d.scanString(v)
	default:
		return fmt.Errorf("unsupported type %T for Date", value)
	}
}

func (d *Date) scanString(raw string) error {
	if len(raw) > 10 {
		raw = raw[:10]
	}
	parsed, err := ParseDate(raw)
	if err != nil {
		return fmt.Errorf("scan date %q: %w", raw, err)
	}
	*d = parsed
	return nil
}
