// Package calendar holds the civil Date type and the week/month range helpers
// that income periods are computed with. All ranges are day-granular and
// evaluated in the local time zone.
package calendar

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const layout = "2006-01-02"

var ErrInvalidDate = errors.New("invalid date")

// Date is a calendar date without time of day or zone
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses "YYYY-MM-DD". The date is not shifted through UTC.
func ParseDate(s string) (Date, error) {
	t, err := time.ParseInLocation(layout, strings.TrimSpace(s), time.Local)
	if err != nil {
		return Date{}, fmt.Errorf("%w %q: expected YYYY-MM-DD", ErrInvalidDate, s)
	}
	return DateOf(t), nil
}

// MustParseDate is ParseDate for literals known to be valid
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// DateOf returns the calendar day t falls on in its own location
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Today is the current local date
func Today() Date {
	return DateOf(time.Now())
}

// Time returns local midnight of the date
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.Local)
}

func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

func (d Date) Before(o Date) bool {
	return d.Compare(o) < 0
}

func (d Date) After(o Date) bool {
	return d.Compare(o) > 0
}

// Compare returns -1, 0 or +1
func (d Date) Compare(o Date) int {
	switch {
	case d.Year != o.Year:
		return cmpInt(d.Year, o.Year)
	case d.Month != o.Month:
		return cmpInt(int(d.Month), int(o.Month))
	default:
		return cmpInt(d.Day, o.Day)
	}
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: expected a string", ErrInvalidDate)
	}
	return d.UnmarshalText([]byte(s))
}

// Value stores the date as a "YYYY-MM-DD" literal
func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

// Scan accepts what postgres and sqlite drivers return for a date column
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d = DateOf(v)
		return nil
	case string:
		return d.UnmarshalText([]byte(firstDay(v)))
	case []byte:
		return d.UnmarshalText([]byte(firstDay(string(v))))
	case nil:
		*d = Date{}
		return nil
	default:
		return fmt.Errorf("calendar: cannot scan %T into Date", src)
	}
}

// firstDay trims a timestamp literal down to its date part
func firstDay(s string) string {
	if len(s) > len(layout) {
		return s[:len(layout)]
	}
	return s
}
